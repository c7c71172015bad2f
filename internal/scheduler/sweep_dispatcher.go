package scheduler

import (
	"context"
	"errors"
	"fmt"
	"time"

	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// SweepDispatcher enqueues the recurring maintenance tasks on a fixed
// interval. Tasks are enqueued with a uniqueness window so overlapping
// dispatcher instances do not double-run a sweep.
type SweepDispatcher struct {
	client   *asynq.Client
	queue    string
	interval time.Duration
	log      *logger.Logger
}

func NewSweepDispatcher(cfg config.SchedulerConfig, log *logger.Logger) (*SweepDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	interval := cfg.GetInactivitySweepInterval()
	if interval <= 0 {
		interval = time.Hour
	}

	return &SweepDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		interval: interval,
		log:      log,
	}, nil
}

func (d *SweepDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *SweepDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	d.enqueueSweeps(ctx)

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		d.enqueueSweeps(ctx)
	}
}

func (d *SweepDispatcher) enqueueSweeps(ctx context.Context) {
	unique := d.interval / 2
	if unique < time.Minute {
		unique = time.Minute
	}

	task, err := NewInactivitySweepTask()
	if err == nil {
		_, err = d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.Unique(unique))
	}
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		d.log.Warn("inactivity sweep enqueue failed", "error", err)
	}

	task, err = NewSignalsExpireTask(SignalsExpirePayload{Window: (2 * d.interval).String()})
	if err == nil {
		_, err = d.client.EnqueueContext(ctx, task, asynq.Queue(d.queue), asynq.Unique(unique))
	}
	if err != nil && !errors.Is(err, asynq.ErrDuplicateTask) {
		d.log.Warn("signal expiry enqueue failed", "error", err)
	}
}
