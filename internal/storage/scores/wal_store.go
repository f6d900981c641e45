// Package scores persists (symbol, timestamp, score) records in an
// append-only WAL with an in-memory index replayed on open. A later write
// with the same (symbol, timestamp) key replaces the earlier one.
package scores

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/vadiminshakov/gowal"

	"folio/internal/domain"
)

const (
	defaultScoreDir      = "./wal/scores"
	scoreSegmentLimit    = 10000
	scoreMaxSegments     = 100
	scoreKeyPrefix       = "score_"
	scoreTombstonePrefix = "score_del_"
)

// WALStore is a WAL-backed score store. Deletes are tombstone records so the
// index rebuilds correctly on restart.
type WALStore struct {
	wal   *gowal.Wal
	mu    sync.RWMutex
	index map[string]map[int64]float64
}

// NewWALStore opens (or creates) the score WAL under dir and replays it into
// the in-memory index.
func NewWALStore(dir string) (*WALStore, error) {
	if dir == "" {
		dir = defaultScoreDir
	}

	wal, err := gowal.NewWAL(gowal.Config{
		Dir:              dir,
		Prefix:           "scores_",
		SegmentThreshold: scoreSegmentLimit,
		MaxSegments:      scoreMaxSegments,
		IsInSyncDiskMode: true,
	})
	if err != nil {
		return nil, errors.Wrap(err, "init score WAL")
	}

	store := &WALStore{wal: wal, index: make(map[string]map[int64]float64)}
	if err := store.replay(); err != nil {
		wal.Close()
		return nil, err
	}

	return store, nil
}

func (s *WALStore) replay() error {
	for msg := range s.wal.Iterator() {
		switch {
		case strings.HasPrefix(msg.Key, scoreTombstonePrefix):
			symbol := strings.TrimPrefix(msg.Key, scoreTombstonePrefix)
			delete(s.index, symbol)
		case strings.HasPrefix(msg.Key, scoreKeyPrefix):
			var record domain.ScoreRecord
			if err := json.Unmarshal(msg.Value, &record); err != nil {
				return errors.Wrap(err, "decode score record")
			}
			s.indexPut(record)
		}
	}
	return nil
}

func (s *WALStore) indexPut(record domain.ScoreRecord) {
	bySymbol, ok := s.index[record.Symbol]
	if !ok {
		bySymbol = make(map[int64]float64)
		s.index[record.Symbol] = bySymbol
	}
	bySymbol[record.Timestamp] = record.Score
}

// Put appends one score record. An existing (symbol, timestamp) pair is
// replaced, never an error.
func (s *WALStore) Put(record domain.ScoreRecord) error {
	if s == nil || s.wal == nil {
		return errors.Wrap(domain.ErrPersistence, "score store is not initialized")
	}
	if record.Symbol == "" {
		return errors.Wrap(domain.ErrInvalidInput, "score symbol is required")
	}

	payload, err := json.Marshal(record)
	if err != nil {
		return errors.Wrap(err, "marshal score record")
	}

	key := fmt.Sprintf("%s%s_%d", scoreKeyPrefix, record.Symbol, record.Timestamp)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, payload); err != nil {
		return errors.Wrapf(domain.ErrPersistence, "append score: %v", err)
	}
	s.indexPut(record)

	return nil
}

// PutBatch appends records one by one, stopping at the first failure.
func (s *WALStore) PutBatch(records []domain.ScoreRecord) error {
	for _, record := range records {
		if err := s.Put(record); err != nil {
			return err
		}
	}
	return nil
}

// BySymbol returns all records for a symbol ordered ascending by timestamp.
// A symbol with no records yields an empty slice.
func (s *WALStore) BySymbol(symbol string) ([]domain.ScoreRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.Wrap(domain.ErrPersistence, "score store is not initialized")
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	bySymbol := s.index[symbol]
	records := make([]domain.ScoreRecord, 0, len(bySymbol))
	for ts, score := range bySymbol {
		records = append(records, domain.ScoreRecord{Symbol: symbol, Timestamp: ts, Score: score})
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Timestamp < records[j].Timestamp })

	return records, nil
}

// All returns every record ordered by symbol then timestamp.
func (s *WALStore) All() ([]domain.ScoreRecord, error) {
	if s == nil || s.wal == nil {
		return nil, errors.Wrap(domain.ErrPersistence, "score store is not initialized")
	}

	s.mu.RLock()
	symbols := make([]string, 0, len(s.index))
	for symbol := range s.index {
		symbols = append(symbols, symbol)
	}
	s.mu.RUnlock()
	sort.Strings(symbols)

	var records []domain.ScoreRecord
	for _, symbol := range symbols {
		bySymbol, err := s.BySymbol(symbol)
		if err != nil {
			return nil, err
		}
		records = append(records, bySymbol...)
	}

	return records, nil
}

// Symbols returns all symbols with at least one record, sorted.
func (s *WALStore) Symbols() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	symbols := make([]string, 0, len(s.index))
	for symbol, bySymbol := range s.index {
		if len(bySymbol) > 0 {
			symbols = append(symbols, symbol)
		}
	}
	sort.Strings(symbols)

	return symbols
}

// DeleteSymbol removes all records for a symbol and returns how many were
// removed. The deletion is recorded as a tombstone so it survives restarts.
func (s *WALStore) DeleteSymbol(symbol string) (int, error) {
	if s == nil || s.wal == nil {
		return 0, errors.Wrap(domain.ErrPersistence, "score store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := len(s.index[symbol])
	if removed == 0 {
		return 0, nil
	}

	key := scoreTombstonePrefix + symbol
	if err := s.wal.Write(s.wal.CurrentIndex()+1, key, []byte("{}")); err != nil {
		return 0, errors.Wrapf(domain.ErrPersistence, "append tombstone: %v", err)
	}
	delete(s.index, symbol)

	return removed, nil
}

// Close closes the underlying WAL.
func (s *WALStore) Close() error {
	if s == nil || s.wal == nil {
		return errors.Wrap(domain.ErrPersistence, "score store is not initialized")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.wal.Close()
}
