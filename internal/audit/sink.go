// Package audit provides the append-only audit trail for the review engine.
package audit

import (
	"context"
	"encoding/json"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/dao"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/pkg/utils"
)

// Sink records audit events. Record is best-effort: implementations log
// failures and never propagate them, because the state mutation that
// triggered the event has already committed.
type Sink interface {
	Record(ctx context.Context, event *models.AuditEvent)
}

// DBSink writes audit events to the INTAKE_AUDIT_EVENT table
type DBSink struct {
	auditDAO *dao.AuditDAO
	clk      clock.Clock
	logger   *logrus.Logger
}

// NewDBSink creates a database-backed audit sink
func NewDBSink(auditDAO *dao.AuditDAO, clk clock.Clock, logger *logrus.Logger) *DBSink {
	return &DBSink{
		auditDAO: auditDAO,
		clk:      clk,
		logger:   logger,
	}
}

// Record persists the event. Missing AuditID and OccurredTime are filled in.
// Failures are logged for later reconciliation, never returned.
func (s *DBSink) Record(ctx context.Context, event *models.AuditEvent) {
	if event.AuditID == "" {
		event.AuditID = utils.GenerateAuditID()
	}
	if event.OccurredTime == 0 {
		event.OccurredTime = clock.NowMillis(s.clk)
	}

	if err := s.auditDAO.Create(ctx, event); err != nil {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"request_id": event.RequestID,
			"event_type": event.EventType,
		}).Error("Failed to record audit event")
	}
}

// Event is a convenience constructor for audit events
func Event(requestID, orgID, eventType string) *models.AuditEvent {
	return &models.AuditEvent{
		RequestID: requestID,
		OrgID:     orgID,
		EventType: eventType,
	}
}

// WithActor attaches the acting identity to the event
func WithActor(event *models.AuditEvent, actorID, actorRole string) *models.AuditEvent {
	event.ActorID = &actorID
	event.ActorRole = &actorRole
	return event
}

// WithStatusChange attaches the before and after statuses to the event
func WithStatusChange(event *models.AuditEvent, previous, current string) *models.AuditEvent {
	event.PreviousStatus = &previous
	event.CurrentStatus = &current
	return event
}

// WithMetadata attaches arbitrary structured metadata to the event.
// Marshal failures leave metadata empty rather than dropping the event.
func WithMetadata(event *models.AuditEvent, metadata map[string]interface{}) *models.AuditEvent {
	if len(metadata) == 0 {
		return event
	}
	data, err := json.Marshal(metadata)
	if err != nil {
		return event
	}
	event.Metadata = models.JSON(data)
	return event
}
