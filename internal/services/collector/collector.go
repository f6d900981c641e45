// Package collector produces one persisted balance snapshot per scheduling
// tick by valuing every configured account segment and summing the results.
package collector

import (
	"context"
	"sync"
	"time"

	"github.com/bytedance/gopkg/util/gopool"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"folio/internal/domain"
	"folio/internal/services/pricer"
	"folio/internal/services/valuation"
)

// ErrTickInFlight is returned when a collection is requested while the
// previous one is still running. The collector is never re-entered.
var ErrTickInFlight = errors.New("collection tick already in flight")

// Target is one account segment valued by a specific engine. Segments on
// different venues use different engines.
type Target struct {
	Segment domain.Segment
	Engine  *valuation.Engine
}

// SnapshotWriter is the slice of the snapshot store the collector writes.
type SnapshotWriter interface {
	Save(snapshot domain.BalanceSnapshot) error
}

// Collector values all targets once per tick and appends exactly one
// snapshot on success. Any segment failure aborts the whole tick with
// nothing written: a partial multi-segment total would misrepresent net
// worth.
type Collector struct {
	targets  []Target
	store    SnapshotWriter
	fallback pricer.Pricer
	quote    string
	logger   *zap.Logger

	mu sync.Mutex
}

// New creates a collector. fallback may be nil; when set it is consulted for
// assets the segment's own price book could not resolve.
func New(targets []Target, store SnapshotWriter, fallback pricer.Pricer, quoteCurrency string, logger *zap.Logger) *Collector {
	return &Collector{
		targets:  targets,
		store:    store,
		fallback: fallback,
		quote:    quoteCurrency,
		logger:   logger,
	}
}

// Collect runs one tick: value all segments concurrently, sum, persist. The
// snapshot timestamp is wall-clock time captured at tick start, so it means
// "value as of this instant" regardless of how long valuation takes.
func (c *Collector) Collect(ctx context.Context) (domain.BalanceSnapshot, error) {
	if !c.mu.TryLock() {
		return domain.BalanceSnapshot{}, ErrTickInFlight
	}
	defer c.mu.Unlock()

	startedAt := time.Now().UTC().UnixMilli()
	tickID := uuid.New().String()
	logger := c.logger.With(zap.String("tick_id", tickID))

	logger.Info("starting balance collection", zap.Int("segments", len(c.targets)))

	results := make([]domain.ValuationResult, len(c.targets))
	errs := make([]error, len(c.targets))

	var wg sync.WaitGroup
	for i, target := range c.targets {
		i, target := i, target
		wg.Add(1)
		gopool.CtxGo(ctx, func() {
			defer wg.Done()
			results[i], errs[i] = target.Engine.ValueSegmentWith(ctx, target.Segment, c.resolveMissingQuotes)
		})
	}
	wg.Wait()

	total := decimal.Zero
	for i, target := range c.targets {
		if errs[i] != nil {
			logger.Error("segment valuation failed, aborting tick",
				zap.String("segment", string(target.Segment)), zap.Error(errs[i]))
			return domain.BalanceSnapshot{}, errors.Wrapf(errs[i], "segment %s", target.Segment)
		}
		if len(results[i].Unresolved) > 0 {
			logger.Warn("assets without a price were excluded from the total",
				zap.String("segment", string(target.Segment)),
				zap.Strings("assets", results[i].Unresolved))
		}
		total = total.Add(results[i].Total)
	}

	snapshot := domain.BalanceSnapshot{Timestamp: startedAt, TotalValue: total}

	if err := c.store.Save(snapshot); err != nil {
		logger.Error("failed to persist balance snapshot", zap.Error(err))
		return domain.BalanceSnapshot{}, err
	}

	logger.Info("balance collection finished",
		zap.Int64("timestamp", snapshot.Timestamp),
		zap.String("total", snapshot.TotalValue.String()))

	return snapshot, nil
}

// resolveMissingQuotes asks the fallback pricer for assets the fetched book
// could not price. Prices already in the book are never touched, so all
// in-cycle conversions stay on the same fetch.
func (c *Collector) resolveMissingQuotes(ctx context.Context, positions []domain.BalancePosition, quotes domain.PriceBook) {
	if c.fallback == nil {
		return
	}

	for _, position := range positions {
		if !position.Amount.IsPositive() || position.Asset == c.quote {
			continue
		}
		pair := domain.Pair{From: position.Asset, To: c.quote}
		if _, ok := quotes.Price(pair); ok {
			continue
		}

		price, err := c.fallback.GetPrice(ctx, pair)
		if err != nil || !price.IsPositive() {
			c.logger.Debug("fallback pricer could not resolve asset",
				zap.String("asset", position.Asset), zap.Error(err))
			continue
		}
		quotes.Set(pair, price)
	}
}

// Run collects once immediately and then on every tick until ctx is done.
// A failed tick is logged and skipped; the next tick proceeds normally. The
// loop is synchronous, so a long-running collection makes the ticker drop
// ticks instead of overlapping invocations.
func (c *Collector) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	c.logger.Info("starting snapshot collection loop", zap.Duration("interval", interval))

	if _, err := c.Collect(ctx); err != nil {
		c.logger.Error("initial collection failed", zap.Error(err))
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("context done, stopping snapshot collection loop")
			return ctx.Err()
		case <-ticker.C:
			if _, err := c.Collect(ctx); err != nil {
				if errors.Is(err, ErrTickInFlight) {
					c.logger.Warn("previous collection still running, skipping tick")
					continue
				}
				c.logger.Error("collection tick failed", zap.Error(err))
			}
		}
	}
}
