package chat

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/bert4lyf/chit-chat/internal/metrics"
	"github.com/bert4lyf/chit-chat/internal/store"
)

// Sweeper destroys rooms whose TTL deadline has passed. It goes through the
// same destroy path as a manual request, so the two converge on the store's
// MarkDestroyed idempotency and double-firing is harmless.
type Sweeper struct {
	svc      *Service
	registry store.Registry
	interval time.Duration
	logger   zerolog.Logger
}

// NewSweeper creates a sweeper ticking at the given interval. The interval
// should be short enough that a client-visible countdown feels accurate;
// one second is the usual choice.
func NewSweeper(svc *Service, registry store.Registry, interval time.Duration, logger zerolog.Logger) *Sweeper {
	return &Sweeper{
		svc:      svc,
		registry: registry,
		interval: interval,
		logger:   logger.With().Str("component", "sweeper").Logger(),
	}
}

// Run sweeps until the context is cancelled. A failed sweep is logged and
// retried on the next tick, never fatal.
func (sw *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(sw.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sw.sweep(ctx)
		}
	}
}

// sweep destroys every expired room it can. One room failing must not stop
// destruction of the others; it stays expired and the next tick retries it.
func (sw *Sweeper) sweep(ctx context.Context) {
	ids, err := sw.registry.Expired(ctx, time.Now())
	if err != nil {
		sw.logger.Error().Err(err).Msg("expiry scan failed")
		return
	}

	for _, id := range ids {
		if err := sw.svc.DestroyRoom(ctx, id, ReasonExpired); err != nil {
			metrics.SweepFailures.Inc()
			sw.logger.Error().Err(err).Str("room_id", id).Msg("expiry destroy failed")
		}
	}

	if err := sw.registry.Compact(ctx); err != nil {
		sw.logger.Warn().Err(err).Msg("compact failed")
	}
}
