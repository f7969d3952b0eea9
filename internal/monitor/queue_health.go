// Package monitor implements the periodic SLA check over the review queue.
// The monitor is strictly read-only: it never mutates request status or
// claim state.
package monitor

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/alert"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/models"
)

// QueueHealth is the result of one SLA check cycle
type QueueHealth struct {
	QueueSize                 int   `json:"queueSize"`
	OldestUnclaimedAgeMinutes int64 `json:"oldestUnclaimedAgeMinutes"`
	SLABreached               bool  `json:"slaBreached"`
	Healthy                   bool  `json:"isHealthy"`
}

// Store is the read-only persistence surface the monitor needs
type Store interface {
	CountUnclaimed(ctx context.Context) (int, error)
	OldestUnclaimed(ctx context.Context) (*models.IntakeRequest, error)
}

// QueueHealthMonitor checks the unclaimed queue against the configured SLA
type QueueHealthMonitor struct {
	store      Store
	alerts     alert.Sink
	clk        clock.Clock
	slaMaxWait time.Duration
	logger     *logrus.Logger
}

// NewQueueHealthMonitor creates a queue health monitor
func NewQueueHealthMonitor(store Store, alerts alert.Sink, clk clock.Clock, slaMaxWait time.Duration, logger *logrus.Logger) *QueueHealthMonitor {
	return &QueueHealthMonitor{
		store:      store,
		alerts:     alerts,
		clk:        clk,
		slaMaxWait: slaMaxWait,
		logger:     logger,
	}
}

// CheckHealth computes the queue size and the age of the oldest unclaimed
// request, compares against the SLA and emits at most one alert per check
// cycle on breach.
func (m *QueueHealthMonitor) CheckHealth(ctx context.Context) (QueueHealth, error) {
	queueSize, err := m.store.CountUnclaimed(ctx)
	if err != nil {
		return QueueHealth{}, err
	}

	health := QueueHealth{
		QueueSize: queueSize,
		Healthy:   true,
	}

	oldest, err := m.store.OldestUnclaimed(ctx)
	if err != nil {
		return QueueHealth{}, err
	}
	if oldest == nil {
		return health, nil
	}

	now := m.clk.Now()
	age := now.Sub(oldest.GetCreatedTime())
	health.OldestUnclaimedAgeMinutes = int64(age / time.Minute)
	health.SLABreached = age > m.slaMaxWait
	health.Healthy = !health.SLABreached

	if health.SLABreached {
		m.alerts.Notify(ctx, alert.SeverityCritical, "Review queue SLA breached", map[string]interface{}{
			"queueSize":         queueSize,
			"oldestRequestId":   oldest.RequestID,
			"oldestServiceType": oldest.ServiceType,
			"oldestAgeMinutes":  health.OldestUnclaimedAgeMinutes,
			"slaMaxWaitMinutes": int64(m.slaMaxWait / time.Minute),
		})

		m.logger.WithFields(logrus.Fields{
			"queue_size":         queueSize,
			"oldest_request_id":  oldest.RequestID,
			"oldest_age_minutes": health.OldestUnclaimedAgeMinutes,
		}).Warn("Review queue SLA breached")
	}

	return health, nil
}
