package worker

import (
	"context"
	"errors"
	"time"

	"spinify/internal/domain"

	"github.com/rs/zerolog"
)

// RosterWorker mirrors the user roster to the spreadsheet. Syncs are
// requested through a coalescing channel so a burst of change events
// collapses into a single write, and a ticker guarantees a periodic
// full refresh even without events.
type RosterWorker struct {
	store       domain.Store
	sheets      domain.SheetsWriter
	retryPolicy RetryPolicy
	interval    time.Duration
	kick        chan struct{}
	logger      *zerolog.Logger
}

func NewRosterWorker(store domain.Store, sheets domain.SheetsWriter, interval time.Duration, retry RetryPolicy, logger *zerolog.Logger) *RosterWorker {
	retry = retry.withDefaults()
	if interval <= 0 {
		interval = 30 * time.Minute
	}

	return &RosterWorker{
		store:       store,
		sheets:      sheets,
		retryPolicy: retry,
		interval:    interval,
		kick:        make(chan struct{}, 1),
		logger:      logger,
	}
}

// EnqueueSync requests a roster sync. A pending request already in the
// channel covers this one too.
func (w *RosterWorker) EnqueueSync(ctx context.Context) error {
	select {
	case w.kick <- struct{}{}:
	default:
	}
	return nil
}

// Start runs the sync loop until ctx is done.
func (w *RosterWorker) Start(ctx context.Context) {
	w.logger.Info().Dur("interval", w.interval).Msg("roster worker started")
	defer w.logger.Info().Msg("roster worker stopped")

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
		case <-ticker.C:
		}

		if err := w.syncWithRetry(ctx); err != nil {
			w.logger.Error().Err(err).Msg("roster sync failed after retries")
		}
	}
}

// SyncOnce performs a single roster sync without retries.
func (w *RosterWorker) SyncOnce(ctx context.Context) error {
	users, err := w.store.ListUsers(ctx)
	if err != nil {
		return err
	}

	groupCounts, err := w.store.GroupCounts(ctx)
	if err != nil {
		return err
	}

	return w.sheets.UpdateRosterSheet(ctx, users, groupCounts)
}

func (w *RosterWorker) syncWithRetry(ctx context.Context) error {
	var lastErr error
	for attempt := 1; attempt <= w.retryPolicy.MaxRetries; attempt++ {
		lastErr = w.SyncOnce(ctx)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}

		delay := w.retryPolicy.NextDelay(attempt)
		w.logger.Warn().Err(lastErr).Int("attempt", attempt).Dur("next_delay", delay).Msg("roster sync attempt failed")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
	return lastErr
}
