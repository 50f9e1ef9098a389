package analytics

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cloakgate/cloakgate/internal/db"
	"github.com/cloakgate/cloakgate/internal/models"
	"github.com/cloakgate/cloakgate/internal/observability"
)

// HitSink is what the request path sees: a non-blocking handoff. The gateway
// must never wait on, or fail because of, hit persistence.
type HitSink interface {
	Enqueue(hit models.Hit)
}

// HitWriter drains a bounded queue of hits into the hit log and the redis
// counters on its own goroutine. When the queue is full the hit is dropped
// and counted; delivery is best effort.
type HitWriter struct {
	svc      HitLogService
	counters *db.RedisStore
	logger   *zap.Logger
	metrics  observability.MetricsRegistry
	timeout  time.Duration
	ch       chan models.Hit
	done     chan struct{}
}

var _ HitSink = (*HitWriter)(nil)

// NewHitWriter creates a writer with the given queue size. counters may be
// nil; the hit log write still happens.
func NewHitWriter(svc HitLogService, counters *db.RedisStore, logger *zap.Logger, metrics observability.MetricsRegistry, queueSize int, timeout time.Duration) *HitWriter {
	if queueSize <= 0 {
		queueSize = 1
	}
	return &HitWriter{
		svc:      svc,
		counters: counters,
		logger:   logger,
		metrics:  metrics,
		timeout:  timeout,
		ch:       make(chan models.Hit, queueSize),
		done:     make(chan struct{}),
	}
}

// Start launches the worker goroutine. It exits when ctx is cancelled, after
// draining whatever is already queued.
func (w *HitWriter) Start(ctx context.Context) {
	go func() {
		defer close(w.done)
		for {
			select {
			case hit := <-w.ch:
				w.write(hit)
			case <-ctx.Done():
				for {
					select {
					case hit := <-w.ch:
						w.write(hit)
					default:
						return
					}
				}
			}
		}
	}()
}

// Wait blocks until the worker has exited. Used during shutdown.
func (w *HitWriter) Wait() {
	<-w.done
}

// Enqueue hands a hit to the worker without blocking. A full queue drops the
// hit; the request path is never delayed.
func (w *HitWriter) Enqueue(hit models.Hit) {
	select {
	case w.ch <- hit:
	default:
		w.metrics.IncrementHitsLogged("dropped")
		w.logger.Warn("hit queue full, dropping hit",
			zap.String("campaign_slug", hit.CampaignSlug))
	}
}

// write persists one hit. A panic or error here stays here.
func (w *HitWriter) write(hit models.Hit) {
	defer func() {
		if rec := recover(); rec != nil {
			w.metrics.IncrementHitsLogged("error")
			w.logger.Error("hit write panic", zap.Any("panic", rec))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	if err := w.svc.InsertHit(ctx, hit); err != nil {
		if !errors.Is(err, ErrUnavailable) {
			w.logger.Error("hit insert failed", zap.Error(err),
				zap.String("campaign_slug", hit.CampaignSlug))
		}
		w.metrics.IncrementHitsLogged("error")
	} else {
		w.metrics.IncrementHitsLogged("ok")
	}

	if w.counters != nil {
		if err := w.counters.IncrementHit(hit.CampaignSlug, hit.IsBot); err != nil {
			w.logger.Warn("hit counter update failed", zap.Error(err),
				zap.String("campaign_slug", hit.CampaignSlug))
		}
	}
}
