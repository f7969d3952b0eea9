package models

// AuditEvent represents the INTAKE_AUDIT_EVENT table. Rows are append-only:
// they are never updated or deleted once written.
type AuditEvent struct {
	AuditID        string  `db:"AUDIT_ID" json:"auditId"`
	RequestID      string  `db:"REQUEST_ID" json:"requestId"`
	ActorID        *string `db:"ACTOR_ID" json:"actorId,omitempty"`
	ActorRole      *string `db:"ACTOR_ROLE" json:"actorRole,omitempty"`
	EventType      string  `db:"EVENT_TYPE" json:"eventType"`
	PreviousStatus *string `db:"PREVIOUS_STATUS" json:"previousStatus,omitempty"`
	CurrentStatus  *string `db:"CURRENT_STATUS" json:"currentStatus,omitempty"`
	Metadata       JSON    `db:"METADATA" json:"metadata,omitempty"`
	OccurredTime   int64   `db:"OCCURRED_TIME" json:"occurredTime"`
	OrgID          string  `db:"ORG_ID" json:"orgId"`
}

// Audit event types
const (
	AuditEventSubmitted        = "request_submitted"
	AuditEventSafetyEvaluation = "safety_evaluation"
	AuditEventStatusChanged    = "status_changed"
	AuditEventClaimAcquired    = "claim_acquired"
	AuditEventClaimReleased    = "claim_released"
)

// Audit release reasons
const (
	AuditReasonReviewerBackout = "reviewer_backout"
	AuditReasonSessionTimeout  = "session_timeout"
)

// Actor roles recorded in audit events
const (
	ActorRolePatient  = "patient"
	ActorRoleReviewer = "reviewer"
	ActorRoleSystem   = "system"
)
