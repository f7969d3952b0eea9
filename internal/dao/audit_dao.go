package dao

import (
	"context"
	"fmt"

	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/models"
)

// AuditDAO handles database operations for intake audit events.
// The table is append-only: there are no update or delete operations.
type AuditDAO struct {
	db *database.DB
}

// NewAuditDAO creates a new AuditDAO instance
func NewAuditDAO(db *database.DB) *AuditDAO {
	return &AuditDAO{db: db}
}

// Create inserts a new audit event
func (dao *AuditDAO) Create(ctx context.Context, event *models.AuditEvent) error {
	query := `
		INSERT INTO INTAKE_AUDIT_EVENT (
			AUDIT_ID, REQUEST_ID, ACTOR_ID, ACTOR_ROLE, EVENT_TYPE,
			PREVIOUS_STATUS, CURRENT_STATUS, METADATA, OCCURRED_TIME, ORG_ID
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecWithRetry(
		ctx,
		query,
		event.AuditID,
		event.RequestID,
		event.ActorID,
		event.ActorRole,
		event.EventType,
		event.PreviousStatus,
		event.CurrentStatus,
		event.Metadata,
		event.OccurredTime,
		event.OrgID,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit event: %w", err)
	}

	return nil
}

// CreateWithTx inserts a new audit event using a transaction
func (dao *AuditDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error {
	query := `
		INSERT INTO INTAKE_AUDIT_EVENT (
			AUDIT_ID, REQUEST_ID, ACTOR_ID, ACTOR_ROLE, EVENT_TYPE,
			PREVIOUS_STATUS, CURRENT_STATUS, METADATA, OCCURRED_TIME, ORG_ID
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		event.AuditID,
		event.RequestID,
		event.ActorID,
		event.ActorRole,
		event.EventType,
		event.PreviousStatus,
		event.CurrentStatus,
		event.Metadata,
		event.OccurredTime,
		event.OrgID,
	)

	if err != nil {
		return fmt.Errorf("failed to create audit event with transaction: %w", err)
	}

	return nil
}

// GetByRequestID retrieves all audit events for a request, newest first
func (dao *AuditDAO) GetByRequestID(ctx context.Context, requestID, orgID string) ([]models.AuditEvent, error) {
	query := `
		SELECT AUDIT_ID, REQUEST_ID, ACTOR_ID, ACTOR_ROLE, EVENT_TYPE,
		       PREVIOUS_STATUS, CURRENT_STATUS, METADATA, OCCURRED_TIME, ORG_ID
		FROM INTAKE_AUDIT_EVENT
		WHERE REQUEST_ID = ? AND ORG_ID = ?
		ORDER BY OCCURRED_TIME DESC
	`

	var events []models.AuditEvent
	err := dao.db.SelectContext(ctx, &events, query, requestID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit events by request ID: %w", err)
	}

	return events, nil
}

// GetLatestByRequestID retrieves the most recent audit event for a request
func (dao *AuditDAO) GetLatestByRequestID(ctx context.Context, requestID, orgID string) (*models.AuditEvent, error) {
	query := `
		SELECT AUDIT_ID, REQUEST_ID, ACTOR_ID, ACTOR_ROLE, EVENT_TYPE,
		       PREVIOUS_STATUS, CURRENT_STATUS, METADATA, OCCURRED_TIME, ORG_ID
		FROM INTAKE_AUDIT_EVENT
		WHERE REQUEST_ID = ? AND ORG_ID = ?
		ORDER BY OCCURRED_TIME DESC
		LIMIT 1
	`

	var event models.AuditEvent
	err := dao.db.GetContext(ctx, &event, query, requestID, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest audit event: %w", err)
	}

	return &event, nil
}

// GetHistory retrieves audit events for a request within a time range
func (dao *AuditDAO) GetHistory(ctx context.Context, requestID, orgID string, fromTime, toTime int64) ([]models.AuditEvent, error) {
	query := `
		SELECT AUDIT_ID, REQUEST_ID, ACTOR_ID, ACTOR_ROLE, EVENT_TYPE,
		       PREVIOUS_STATUS, CURRENT_STATUS, METADATA, OCCURRED_TIME, ORG_ID
		FROM INTAKE_AUDIT_EVENT
		WHERE REQUEST_ID = ? AND ORG_ID = ? AND OCCURRED_TIME BETWEEN ? AND ?
		ORDER BY OCCURRED_TIME DESC
	`

	var events []models.AuditEvent
	err := dao.db.SelectContext(ctx, &events, query, requestID, orgID, fromTime, toTime)
	if err != nil {
		return nil, fmt.Errorf("failed to get audit history: %w", err)
	}

	return events, nil
}
