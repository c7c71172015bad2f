package scheduler

import (
	"context"
	"fmt"
	"time"

	"contactpulse_backend/platform/config"
	"contactpulse_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// InactivitySweeper demotes contacts whose lead status has gone stale.
type InactivitySweeper interface {
	SweepInactivity(ctx context.Context) (int, error)
}

// SignalExpirer resolves key signals whose time-to-live has lapsed.
type SignalExpirer interface {
	SweepExpired(ctx context.Context, window time.Duration) (int, error)
}

type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	status  InactivitySweeper
	signals SignalExpirer
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, status InactivitySweeper, signals SignalExpirer, log *logger.Logger) (*Worker, error) {
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

	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 10
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		status:  status,
		signals: signals,
		log:     log,
	}

	mux.HandleFunc(TaskInactivitySweep, w.handleInactivitySweep)
	mux.HandleFunc(TaskSignalsExpire, w.handleSignalsExpire)

	return w, nil
}

func (w *Worker) handleInactivitySweep(ctx context.Context, task *asynq.Task) error {
	if w.status == nil {
		return nil
	}

	demoted, err := w.status.SweepInactivity(ctx)
	if err != nil {
		return err
	}

	if demoted > 0 {
		w.log.Info("inactivity sweep demoted contacts", "count", demoted)
	}
	return nil
}

func (w *Worker) handleSignalsExpire(ctx context.Context, task *asynq.Task) error {
	if w.signals == nil {
		return nil
	}

	payload, err := ParseSignalsExpirePayload(task)
	if err != nil {
		return err
	}

	window, err := time.ParseDuration(payload.Window)
	if err != nil || window <= 0 {
		window = time.Hour
	}

	expired, err := w.signals.SweepExpired(ctx, window)
	if err != nil {
		return err
	}

	if expired > 0 {
		w.log.Info("signal expiry sweep resolved signals", "count", expired)
	}
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
