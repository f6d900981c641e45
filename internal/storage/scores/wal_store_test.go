package scores

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"folio/internal/domain"
)

func record(symbol string, ts int64, score float64) domain.ScoreRecord {
	return domain.ScoreRecord{Symbol: symbol, Timestamp: ts, Score: score}
}

func newStore(t *testing.T) *WALStore {
	t.Helper()
	store, err := NewWALStore(t.TempDir())
	require.NoError(t, err, "failed to create score store")
	t.Cleanup(func() { assert.NoError(t, store.Close()) })
	return store
}

func TestPutAndQueryAscending(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Put(record("AAPL", 3000, 3.0)))
	require.NoError(t, store.Put(record("AAPL", 1000, 1.0)))
	require.NoError(t, store.Put(record("AAPL", 2000, 2.0)))

	records, err := store.BySymbol("AAPL")
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, int64(1000), records[0].Timestamp)
	assert.Equal(t, int64(2000), records[1].Timestamp)
	assert.Equal(t, int64(3000), records[2].Timestamp)
}

func TestLastWriteWins(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Put(record("AAPL", 1000, 1.0)))
	require.NoError(t, store.Put(record("AAPL", 1000, 2.0)))

	records, err := store.BySymbol("AAPL")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2.0, records[0].Score)
}

func TestBySymbolUnknownIsEmpty(t *testing.T) {
	store := newStore(t)

	records, err := store.BySymbol("NOPE")
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestAllOrdersBySymbolThenTimestamp(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.PutBatch([]domain.ScoreRecord{
		record("MSFT", 2000, 4.0),
		record("AAPL", 2000, 2.0),
		record("AAPL", 1000, 1.0),
	}))

	records, err := store.All()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, "AAPL", records[0].Symbol)
	assert.Equal(t, int64(1000), records[0].Timestamp)
	assert.Equal(t, "AAPL", records[1].Symbol)
	assert.Equal(t, "MSFT", records[2].Symbol)
}

func TestDeleteSymbol(t *testing.T) {
	store := newStore(t)

	require.NoError(t, store.Put(record("AAPL", 1000, 1.0)))
	require.NoError(t, store.Put(record("AAPL", 2000, 2.0)))
	require.NoError(t, store.Put(record("MSFT", 1000, 3.0)))

	removed, err := store.DeleteSymbol("AAPL")
	require.NoError(t, err)
	assert.Equal(t, 2, removed)

	records, err := store.BySymbol("AAPL")
	require.NoError(t, err)
	assert.Empty(t, records)

	kept, err := store.BySymbol("MSFT")
	require.NoError(t, err)
	assert.Len(t, kept, 1)

	removed, err = store.DeleteSymbol("AAPL")
	require.NoError(t, err)
	assert.Zero(t, removed)
}

func TestReplayAfterReopen(t *testing.T) {
	dir := t.TempDir()

	store, err := NewWALStore(dir)
	require.NoError(t, err)
	require.NoError(t, store.Put(record("AAPL", 1000, 1.0)))
	require.NoError(t, store.Put(record("AAPL", 1000, 2.0)))
	require.NoError(t, store.Put(record("MSFT", 1000, 5.0)))
	_, err = store.DeleteSymbol("MSFT")
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewWALStore(dir)
	require.NoError(t, err)
	defer reopened.Close()

	records, err := reopened.BySymbol("AAPL")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, 2.0, records[0].Score)

	gone, err := reopened.BySymbol("MSFT")
	require.NoError(t, err)
	assert.Empty(t, gone)

	assert.Equal(t, []string{"AAPL"}, reopened.Symbols())
}
