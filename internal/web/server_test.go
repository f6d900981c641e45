package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
)

type fakeScoreStore struct {
	records []domain.ScoreRecord
	putErr  error
}

func (f *fakeScoreStore) Put(record domain.ScoreRecord) error {
	if f.putErr != nil {
		return f.putErr
	}
	f.records = append(f.records, record)
	return nil
}

func (f *fakeScoreStore) All() ([]domain.ScoreRecord, error) {
	return f.records, nil
}

func (f *fakeScoreStore) BySymbol(symbol string) ([]domain.ScoreRecord, error) {
	var out []domain.ScoreRecord
	for _, r := range f.records {
		if r.Symbol == symbol {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeScoreStore) DeleteSymbol(symbol string) (int, error) {
	kept := f.records[:0]
	removed := 0
	for _, r := range f.records {
		if r.Symbol == symbol {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	f.records = kept
	return removed, nil
}

type fakeSnapshots struct {
	history []domain.BalanceSnapshot
}

func (f *fakeSnapshots) History() ([]domain.BalanceSnapshot, error) {
	return f.history, nil
}

func (f *fakeSnapshots) SnapshotsAfter(index uint64) ([]domain.BalanceSnapshotRecord, error) {
	return nil, nil
}

type fakeSeries struct {
	rows []domain.MergedRow
	err  error
}

func (f *fakeSeries) Series(ctx context.Context, pair domain.Pair, interval string, since time.Time, limit int) ([]domain.MergedRow, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.rows, nil
}

func newTestServer(scores *fakeScoreStore, snapshots *fakeSnapshots, series *fakeSeries) *httptest.Server {
	srv := NewServer(":0", scores, snapshots, series)
	return httptest.NewServer(srv.Handler())
}

func TestAddScoreSingle(t *testing.T) {
	scores := &fakeScoreStore{}
	ts := newTestServer(scores, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	body := `{"symbol":"BTCUSDT","timestamp":1700000000000,"score":7.5}`
	resp, err := http.Post(ts.URL+"/scores", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Len(t, scores.records, 1)
	assert.Equal(t, domain.ScoreRecord{Symbol: "BTCUSDT", Timestamp: 1700000000000, Score: 7.5}, scores.records[0])
}

func TestAddScoresListPartialFailure(t *testing.T) {
	scores := &fakeScoreStore{}
	ts := newTestServer(scores, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	// second item carries a string timestamp, third misses the score
	body := `[
		{"symbol":"BTCUSDT","timestamp":1700000000000,"score":1},
		{"symbol":"ETHUSDT","timestamp":"2023-11-14","score":2},
		{"symbol":"SOLUSDT","timestamp":1700000060000}
	]`
	resp, err := http.Post(ts.URL+"/scores", "application/json", strings.NewReader(body))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusMultiStatus, resp.StatusCode)

	var payload struct {
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, "processed 1 out of 3 items", payload.Message)
	assert.Len(t, payload.Errors, 2)
	require.Len(t, scores.records, 1)
	assert.Equal(t, "BTCUSDT", scores.records[0].Symbol)
}

func TestAddScoresRejectsNonJSON(t *testing.T) {
	ts := newTestServer(&fakeScoreStore{}, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/scores", "text/plain", strings.NewReader("not json"))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestScoresBySymbolNotFound(t *testing.T) {
	ts := newTestServer(&fakeScoreStore{}, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/scores/UNKNOWN")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestScoresBySymbol(t *testing.T) {
	scores := &fakeScoreStore{records: []domain.ScoreRecord{
		{Symbol: "BTCUSDT", Timestamp: 1, Score: 1},
		{Symbol: "ETHUSDT", Timestamp: 2, Score: 2},
	}}
	ts := newTestServer(scores, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/scores/BTCUSDT")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []domain.ScoreRecord
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	assert.Equal(t, "BTCUSDT", got[0].Symbol)
}

func TestDeleteScores(t *testing.T) {
	scores := &fakeScoreStore{records: []domain.ScoreRecord{
		{Symbol: "BTCUSDT", Timestamp: 1, Score: 1},
		{Symbol: "BTCUSDT", Timestamp: 2, Score: 2},
	}}
	ts := newTestServer(scores, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/scores/BTCUSDT", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var payload struct {
		Deleted int `json:"deleted"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&payload))
	assert.Equal(t, 2, payload.Deleted)
	assert.Empty(t, scores.records)
}

func TestDeleteScoresNotFound(t *testing.T) {
	ts := newTestServer(&fakeScoreStore{}, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/scores/UNKNOWN", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestBalanceHistory(t *testing.T) {
	snapshots := &fakeSnapshots{history: []domain.BalanceSnapshot{
		{Timestamp: 2000, TotalValue: decimal.NewFromInt(105)},
		{Timestamp: 1000, TotalValue: decimal.NewFromInt(100)},
	}}
	ts := newTestServer(&fakeScoreStore{}, snapshots, &fakeSeries{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/balance/history")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []domain.BalanceSnapshot
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 2)
	assert.Equal(t, int64(2000), got[0].Timestamp)
}

func TestSeries(t *testing.T) {
	score := 5.0
	series := &fakeSeries{rows: []domain.MergedRow{
		{Key: domain.AlignmentKey(1700000000000 - 1700000000000%60000), Score: &score},
	}}
	ts := newTestServer(&fakeScoreStore{}, &fakeSnapshots{}, series)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/series/BTC_USDT?interval=1m&limit=10")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got []domain.MergedRow
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	require.Len(t, got, 1)
	require.NotNil(t, got[0].Score)
	assert.Equal(t, 5.0, *got[0].Score)
}

func TestSeriesBadPair(t *testing.T) {
	ts := newTestServer(&fakeScoreStore{}, &fakeSnapshots{}, &fakeSeries{})
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/series/BTCUSDT")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSeriesSourceUnavailable(t *testing.T) {
	series := &fakeSeries{err: errors.Wrap(domain.ErrSourceUnavailable, "binance klines")}
	ts := newTestServer(&fakeScoreStore{}, &fakeSnapshots{}, series)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/series/BTC_USDT")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
}
