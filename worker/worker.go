package worker

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
)

// Worker a long-running background loop
type Worker interface {
	Run(ctx context.Context) error
}

// OnWork job body
type OnWork func() error

// BaseJob cron-driven job, skipping ticks that overlap a running body
type BaseJob struct {
	Cron      *cron.Cron
	IsRunning bool
	OnWork    OnWork
}

func (job *BaseJob) Start() error {
	job.Cron.Start()
	return nil
}

func (job *BaseJob) Stop() error {
	job.Cron.Stop()
	return nil
}

func (job *BaseJob) Run() {
	if job.IsRunning {
		return
	}

	job.IsRunning = true
	job.OnWork()
	job.IsRunning = false
}

// Job a cron-driven background job
type Job interface {
	Start() error
	Stop() error
}

type jobWorker struct {
	job Job
}

// NewJobWorker adapt a cron job to the Worker loop
func NewJobWorker(job Job) Worker {
	return &jobWorker{job: job}
}

func (w *jobWorker) Run(ctx context.Context) error {
	if err := w.job.Start(); err != nil {
		return err
	}

	<-ctx.Done()
	w.job.Stop()
	return ctx.Err()
}

// TickWorker drives a body in a tight loop, backing off while the body
// reports nothing to do
type TickWorker struct {
	Delay    time.Duration
	ErrDelay time.Duration
}

// StartTick run fn until ctx is done
func (w *TickWorker) StartTick(ctx context.Context, fn func(ctx context.Context) error) error {
	delay := w.Delay
	if delay <= 0 {
		delay = 100 * time.Millisecond
	}

	errDelay := w.ErrDelay
	if errDelay <= 0 {
		errDelay = 300 * time.Millisecond
	}

	dur := time.Millisecond
	timer := time.NewTimer(dur)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
			if err := fn(ctx); err != nil {
				dur = errDelay
			} else {
				dur = delay
			}

			timer.Reset(dur)
		}
	}
}
