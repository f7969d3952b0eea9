// Package worker hosts the periodic background tasks: the stale-claim
// sweep and the queue SLA check. Each task runs on its own ticker,
// independent of request handling.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Task is one periodic background job
type Task struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// Runner drives a set of periodic tasks until its context is cancelled
type Runner struct {
	tasks  []Task
	logger *logrus.Logger
	wg     sync.WaitGroup
}

// NewRunner creates a runner for the given tasks
func NewRunner(logger *logrus.Logger, tasks ...Task) *Runner {
	return &Runner{
		tasks:  tasks,
		logger: logger,
	}
}

// Start launches every task on its own ticker. Each tick is panic-isolated
// so one bad cycle cannot take the worker down.
func (r *Runner) Start(ctx context.Context) {
	for _, task := range r.tasks {
		r.wg.Add(1)
		go r.loop(ctx, task)

		r.logger.WithFields(logrus.Fields{
			"task":     task.Name,
			"interval": task.Interval,
		}).Info("Background task started")
	}
}

// Wait blocks until every task loop has exited
func (r *Runner) Wait() {
	r.wg.Wait()
}

func (r *Runner) loop(ctx context.Context, task Task) {
	defer r.wg.Done()

	ticker := time.NewTicker(task.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			r.logger.WithField("task", task.Name).Info("Background task stopped")
			return
		case <-ticker.C:
			r.runOnce(ctx, task)
		}
	}
}

func (r *Runner) runOnce(ctx context.Context, task Task) {
	defer func() {
		if p := recover(); p != nil {
			r.logger.WithFields(logrus.Fields{
				"task":  task.Name,
				"panic": p,
			}).Error("Background task panicked")
		}
	}()

	if err := task.Run(ctx); err != nil {
		r.logger.WithError(err).WithField("task", task.Name).Error("Background task failed")
	}
}
