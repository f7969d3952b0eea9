// Package claims implements claim acquisition, release and the stale-claim
// sweep. All reviewer coordination happens through the store's atomic
// conditional update; there are no in-process locks, because multiple
// service instances run against the same database.
package claims

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/alert"
	"github.com/careloop/intake-review-api/internal/audit"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/models"
)

// ErrAlreadyClaimed is returned when another reviewer holds a live claim.
// This is a contention result, not a failure: the caller should pick a
// different request, not retry in a loop.
var ErrAlreadyClaimed = errors.New("request is claimed by another reviewer")

// ErrNotClaimable is returned when the request is not in a claimable status
var ErrNotClaimable = errors.New("request is not claimable")

// ErrNotClaimHolder is returned when a reviewer releases a claim they do not hold
var ErrNotClaimHolder = errors.New("reviewer does not hold the claim")

// Statistics buckets live claims by age for monitoring
type Statistics struct {
	Active  int `json:"active"`
	Warning int `json:"warning"`
	Stale   int `json:"stale"`
}

// Config holds the claim timing thresholds. These are configuration, not
// constants: deployments tune them per review pool.
type Config struct {
	Timeout          time.Duration
	WarningThreshold time.Duration
}

// Store is the persistence surface the claim manager needs
type Store interface {
	GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error)
	AtomicClaim(ctx context.Context, requestID, orgID, reviewerID string, claimedAt, staleBefore int64) (bool, error)
	ReleaseClaim(ctx context.Context, requestID, orgID, reviewerID string, updatedTime int64) (bool, error)
	ReleaseClaimsOlderThan(ctx context.Context, cutoff, updatedTime int64) (int64, error)
	ListStaleClaims(ctx context.Context, cutoff int64) ([]models.IntakeRequest, error)
	ListClaimed(ctx context.Context) ([]models.IntakeRequest, error)
}

// Manager coordinates claims over the shared request store
type Manager struct {
	store  Store
	sink   audit.Sink
	alerts alert.Sink
	clk    clock.Clock
	cfg    Config
	logger *logrus.Logger
}

// NewManager creates a claim manager
func NewManager(store Store, sink audit.Sink, alerts alert.Sink, clk clock.Clock, cfg Config, logger *logrus.Logger) *Manager {
	return &Manager{
		store:  store,
		sink:   sink,
		alerts: alerts,
		clk:    clk,
		cfg:    cfg,
		logger: logger,
	}
}

// Claim atomically assigns the request to the reviewer and moves it into
// review as one store operation. Exactly one of N concurrent claimants
// succeeds; the rest receive ErrAlreadyClaimed. A stale claim (older than
// the timeout) is taken over the same way.
func (m *Manager) Claim(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error) {
	now := clock.NowMillis(m.clk)
	staleBefore := now - m.cfg.Timeout.Milliseconds()

	claimed, err := m.store.AtomicClaim(ctx, requestID, orgID, reviewerID, now, staleBefore)
	if err != nil {
		return nil, err
	}

	if !claimed {
		// Resolve why the conditional update matched nothing.
		request, readErr := m.store.GetByID(ctx, requestID, orgID)
		if readErr != nil {
			return nil, readErr
		}
		switch models.RequestStatus(request.CurrentStatus) {
		case models.StatusInReview:
			return nil, fmt.Errorf("%w: held by another reviewer", ErrAlreadyClaimed)
		case models.StatusPaid:
			// Raced with another claimant between our update and this read.
			return nil, ErrAlreadyClaimed
		default:
			return nil, fmt.Errorf("%w: status is %s", ErrNotClaimable, request.CurrentStatus)
		}
	}

	event := audit.Event(requestID, orgID, models.AuditEventClaimAcquired)
	audit.WithActor(event, reviewerID, models.ActorRoleReviewer)
	audit.WithStatusChange(event, string(models.StatusPaid), string(models.StatusInReview))
	event.OccurredTime = now
	m.sink.Record(ctx, event)

	m.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"reviewer_id": reviewerID,
	}).Info("Claim acquired")

	return m.store.GetByID(ctx, requestID, orgID)
}

// Release clears the claim when a reviewer backs out without deciding.
// The request returns to the queue.
func (m *Manager) Release(ctx context.Context, requestID, orgID, reviewerID string) error {
	now := clock.NowMillis(m.clk)

	released, err := m.store.ReleaseClaim(ctx, requestID, orgID, reviewerID, now)
	if err != nil {
		return err
	}

	if !released {
		if _, readErr := m.store.GetByID(ctx, requestID, orgID); readErr != nil {
			return readErr
		}
		return ErrNotClaimHolder
	}

	event := audit.Event(requestID, orgID, models.AuditEventClaimReleased)
	audit.WithActor(event, reviewerID, models.ActorRoleReviewer)
	audit.WithStatusChange(event, string(models.StatusInReview), string(models.StatusPaid))
	audit.WithMetadata(event, map[string]interface{}{
		"reason": models.AuditReasonReviewerBackout,
	})
	event.OccurredTime = now
	m.sink.Record(ctx, event)

	m.logger.WithFields(logrus.Fields{
		"request_id":  requestID,
		"reviewer_id": reviewerID,
	}).Info("Claim released")

	return nil
}

// SweepStaleClaims releases every claim older than the timeout in one pass
// and returns how many were released. Each release is audited before the
// bulk update runs, so the audit trail survives a partial failure; a failed
// sweep is self-healing because the next scheduled run catches stragglers.
func (m *Manager) SweepStaleClaims(ctx context.Context) (int, error) {
	now := clock.NowMillis(m.clk)
	cutoff := now - m.cfg.Timeout.Milliseconds()

	stale, err := m.store.ListStaleClaims(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to enumerate stale claims: %w", err)
	}

	if len(stale) == 0 {
		return 0, nil
	}

	for _, request := range stale {
		event := audit.Event(request.RequestID, request.OrgID, models.AuditEventClaimReleased)
		audit.WithActor(event, "claim-sweeper", models.ActorRoleSystem)
		audit.WithStatusChange(event, string(models.StatusInReview), string(models.StatusPaid))
		metadata := map[string]interface{}{
			"reason": models.AuditReasonSessionTimeout,
		}
		if request.ClaimedBy != nil {
			metadata["abandonedBy"] = *request.ClaimedBy
		}
		audit.WithMetadata(event, metadata)
		event.OccurredTime = now
		m.sink.Record(ctx, event)
	}

	released, err := m.store.ReleaseClaimsOlderThan(ctx, cutoff, now)
	if err != nil {
		m.alerts.Notify(ctx, alert.SeverityWarning, "Stale claim sweep failed", map[string]interface{}{
			"staleClaims": len(stale),
			"error":       err.Error(),
		})
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	m.logger.WithFields(logrus.Fields{
		"released": released,
		"cutoff":   cutoff,
	}).Info("Stale claim sweep completed")

	return int(released), nil
}

// Statistics buckets the live claims by age: active below the warning
// threshold, warning between the threshold and the timeout, stale beyond
// the timeout and eligible for the next sweep.
func (m *Manager) Statistics(ctx context.Context) (Statistics, error) {
	claimed, err := m.store.ListClaimed(ctx)
	if err != nil {
		return Statistics{}, err
	}

	now := m.clk.Now()
	var stats Statistics
	for _, request := range claimed {
		age := request.Claim().Age(now)
		switch {
		case age > m.cfg.Timeout:
			stats.Stale++
		case age >= m.cfg.WarningThreshold:
			stats.Warning++
		default:
			stats.Active++
		}
	}

	return stats, nil
}
