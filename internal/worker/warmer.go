package worker

import (
	"context"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"classattend/internal/attendance"
	"classattend/internal/metrics"
	"classattend/internal/queue"
)

// ActivityLister finds classes with records on or after a date.
type ActivityLister interface {
	ClassesWithActivity(ctx context.Context, since attendance.Date) ([]string, error)
}

// Warmer keeps the trailing-window history and statistics of busy classes
// in the read cache.
type Warmer struct {
	svc     *attendance.Service
	classes ActivityLister
	log     zerolog.Logger
}

// NewWarmer creates a warmer. svc must be backed by the cached store.
func NewWarmer(svc *attendance.Service, classes ActivityLister, logger zerolog.Logger) *Warmer {
	return &Warmer{
		svc:     svc,
		classes: classes,
		log:     logger.With().Str("component", "cache_warmer").Logger(),
	}
}

// Warm loads the trailing window of one class through the store.
func (w *Warmer) Warm(ctx context.Context, classID, trigger string) error {
	from, to := w.svc.TrailingWindow()
	store := w.svc.Store()
	if _, err := store.FetchHistory(ctx, classID, from); err != nil {
		metrics.WarmRuns.WithLabelValues(trigger, "error").Inc()
		return errors.Wrapf(err, "warm history of %s", classID)
	}
	if _, err := store.FetchStatistics(ctx, classID, from, to); err != nil {
		metrics.WarmRuns.WithLabelValues(trigger, "error").Inc()
		return errors.Wrapf(err, "warm statistics of %s", classID)
	}
	metrics.WarmRuns.WithLabelValues(trigger, "ok").Inc()
	return nil
}

// WarmActive warms every class with activity inside the trailing window.
// It returns how many classes were warmed.
func (w *Warmer) WarmActive(ctx context.Context) (int, error) {
	from, _ := w.svc.TrailingWindow()
	classes, err := w.classes.ClassesWithActivity(ctx, from)
	if err != nil {
		return 0, err
	}
	warmed := 0
	for _, id := range classes {
		if ctx.Err() != nil {
			return warmed, ctx.Err()
		}
		if err := w.Warm(ctx, id, "schedule"); err != nil {
			w.log.Warn().Err(err).Str("class_id", id).Msg("scheduled warm-up failed")
			continue
		}
		warmed++
	}
	return warmed, nil
}

// Handle processes one queue message. Unknown types are skipped.
func (w *Warmer) Handle(ctx context.Context, msg queue.Message) error {
	if msg.Type != queue.TypeAttendanceCommitted {
		w.log.Debug().Str("type", msg.Type).Msg("skipping message")
		return nil
	}
	evt, err := queue.DecodeCommit(msg)
	if err != nil {
		return err
	}
	return w.Warm(ctx, evt.ClassID, "commit")
}

// Run consumes q until ctx is done.
func (w *Warmer) Run(ctx context.Context, q queue.Queue) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return errors.Wrap(err, "consume")
	}
	w.log.Info().Msg("worker started, waiting for messages")
	for msg := range messages {
		if err := w.Handle(ctx, msg); err != nil {
			w.log.Warn().Err(err).Msg("message handling failed")
		}
	}
	w.log.Info().Msg("worker stopped")
	return nil
}

// Schedule registers WarmActive on spec (standard five-field cron syntax).
// The caller starts and stops the returned scheduler.
func (w *Warmer) Schedule(ctx context.Context, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		n, err := w.WarmActive(ctx)
		if err != nil {
			w.log.Error().Err(err).Msg("scheduled warm-up aborted")
			return
		}
		w.log.Info().Int("classes", n).Msg("scheduled warm-up done")
	})
	if err != nil {
		return nil, errors.Wrapf(err, "invalid warm schedule %q", spec)
	}
	return c, nil
}
