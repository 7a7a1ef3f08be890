package shiftdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/jakechorley/salon-bookings/pkg/core/finance"
	"github.com/jakechorley/salon-bookings/pkg/core/model"
	"github.com/jakechorley/salon-bookings/pkg/db"
)

// ErrSuperseded is returned by a load whose result was discarded because a newer request was issued
var ErrSuperseded = errors.New("request superseded by a newer request")

// Store is the subset of shift persistence the loader needs
type Store interface {
	GetShift(ctx context.Context, shiftID string) (*model.Shift, error)
	GetShiftItems(ctx context.Context, shiftID string) ([]model.ShiftItem, error)
	ReplaceShiftItems(ctx context.Context, shiftID string, items []model.ShiftItem) ([]model.ShiftItem, error)
}

// Snapshot is the result of a successful load
type Snapshot struct {
	Shift   model.Shift
	Items   []model.ShiftItem
	Summary model.FinancialSummary
}

// Loader loads a shift's finance data for one view. Only the latest request's
// result is ever returned or written to the cache.
type Loader struct {
	store  Store
	cache  Cache
	tokens Tokens
	logger *zap.Logger
	now    func() time.Time
}

func NewLoader(store Store, cache Cache, logger *zap.Logger) *Loader {
	return &Loader{
		store:  store,
		cache:  cache,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock replaces the time source used for the live guarantee, for tests
func (l *Loader) WithClock(now func() time.Time) *Loader {
	l.now = now
	return l
}

// Load fetches the shift and its items through the cache, merges unsaved local
// edits and computes the summary. Returns ErrSuperseded if a newer Load or
// SaveItems was issued before this one completed.
func (l *Loader) Load(ctx context.Context, shiftID string, localItems []model.ShiftItem) (*Snapshot, error) {
	tok := l.tokens.Next(ctx)

	l.logger.Debug("Loading shift data",
		zap.String("shift_id", shiftID),
		zap.Uint64("request_seq", tok.Seq()))

	// Step 1: Shift record
	shift, err := cached(l, tok, shiftKey(shiftID), CategoryShift, func(ctx context.Context) (*model.Shift, error) {
		return l.store.GetShift(ctx, shiftID)
	})
	if err != nil {
		return nil, l.staleOr(tok, fmt.Errorf("failed to load shift: %w", err))
	}

	// Step 2: Line items
	serverItems, err := cached(l, tok, itemsKey(shiftID), CategoryShift, func(ctx context.Context) ([]model.ShiftItem, error) {
		return l.store.GetShiftItems(ctx, shiftID)
	})
	if err != nil {
		return nil, l.staleOr(tok, fmt.Errorf("failed to load shift items: %w", err))
	}

	// Step 3: Reconcile and compute
	items := finance.MergeShiftItems(localItems, serverItems)
	summary := l.summarize(tok, shift, items)

	if !tok.Valid() {
		l.logger.Debug("Discarding superseded shift load",
			zap.String("shift_id", shiftID),
			zap.Uint64("request_seq", tok.Seq()))
		return nil, ErrSuperseded
	}

	return &Snapshot{Shift: *shift, Items: items, Summary: summary}, nil
}

// SaveItems validates items and replaces the shift's persisted items with them.
// Invalid items never reach the store. Any in-flight Load is superseded.
func (l *Loader) SaveItems(ctx context.Context, shiftID string, items []model.ShiftItem) ([]model.ShiftItem, error) {
	if err := finance.ValidateItems(items); err != nil {
		return nil, err
	}

	tok := l.tokens.Next(ctx)

	shift, err := l.store.GetShift(tok.Context(), shiftID)
	if err != nil {
		return nil, fmt.Errorf("failed to load shift: %w", err)
	}
	if !shift.IsOpen() {
		return nil, db.ErrShiftClosed
	}

	saved, err := l.store.ReplaceShiftItems(tok.Context(), shiftID, items)
	if err != nil {
		return nil, fmt.Errorf("failed to save shift items: %w", err)
	}

	l.cache.Delete(ctx, itemsKey(shiftID), summaryKey(shiftID))
	if tok.Valid() {
		l.put(tok, itemsKey(shiftID), CategoryShift, saved)
	}

	l.logger.Info("Saved shift items",
		zap.String("shift_id", shiftID),
		zap.Int("count", len(saved)))

	return saved, nil
}

// Invalidate drops every cached entry for the shift
func (l *Loader) Invalidate(ctx context.Context, shiftID string) {
	l.cache.Delete(ctx, shiftKey(shiftID), itemsKey(shiftID), summaryKey(shiftID))
}

func (l *Loader) summarize(tok *Token, shift *model.Shift, items []model.ShiftItem) model.FinancialSummary {
	if !shift.IsOpen() {
		// A closed shift's summary never changes, so it is kept for longer
		if raw, ok := l.cache.Get(tok.Context(), summaryKey(shift.ID), CategoryAggregate); ok {
			var summary model.FinancialSummary
			if err := json.Unmarshal(raw, &summary); err == nil {
				return summary
			}
		}
	}

	summary := finance.CalculateShiftFinancials(
		items,
		shift,
		shift.IsOpen(),
		shift.PercentMaster,
		shift.PercentSalon,
		shift.HourlyRate,
		l.currentGuarantee(shift),
	)

	if !shift.IsOpen() && tok.Valid() {
		l.put(tok, summaryKey(shift.ID), CategoryAggregate, summary)
	}
	return summary
}

// currentGuarantee is the guarantee earned so far on an open shift
func (l *Loader) currentGuarantee(shift *model.Shift) *decimal.Decimal {
	if shift.GuaranteedAmount != nil {
		return shift.GuaranteedAmount
	}
	if shift.HourlyRate == nil || shift.OpenedAt.IsZero() {
		return nil
	}
	hours := decimal.NewFromFloat(l.now().Sub(shift.OpenedAt).Hours())
	g := finance.GuaranteedAmount(*shift.HourlyRate, hours)
	return &g
}

func (l *Loader) put(tok *Token, key string, category Category, value any) {
	raw, err := json.Marshal(value)
	if err != nil {
		l.logger.Warn("Failed to encode cache value", zap.String("key", key), zap.Error(err))
		return
	}
	l.cache.Put(tok.Context(), key, category, raw)
}

func (l *Loader) staleOr(tok *Token, err error) error {
	if !tok.Valid() {
		return ErrSuperseded
	}
	return err
}

// cached reads key from the cache, falling back to fetch. Fresh results are
// written back only while tok is still the latest token.
func cached[T any](l *Loader, tok *Token, key string, category Category, fetch func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if raw, ok := l.cache.Get(tok.Context(), key, category); ok {
		var v T
		if err := json.Unmarshal(raw, &v); err == nil {
			return v, nil
		}
		l.logger.Warn("Discarding undecodable cache entry", zap.String("key", key))
	}

	v, err := fetch(tok.Context())
	if err != nil {
		return zero, err
	}
	if !tok.Valid() {
		return zero, ErrSuperseded
	}

	l.put(tok, key, category, v)
	return v, nil
}

func shiftKey(shiftID string) string   { return "shift:" + shiftID }
func itemsKey(shiftID string) string   { return "items:" + shiftID }
func summaryKey(shiftID string) string { return "summary:" + shiftID }
