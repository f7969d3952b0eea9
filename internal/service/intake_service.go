package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/audit"
	"github.com/careloop/intake-review-api/internal/claims"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/lifecycle"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/safety"
	"github.com/careloop/intake-review-api/pkg/utils"
)

// RequestStore is the request persistence surface the service needs
type RequestStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, request *models.IntakeRequest) error
	GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error)
	ListUnclaimed(ctx context.Context, limit, offset int) ([]models.IntakeRequest, error)
	ListApprovedExpiring(ctx context.Context, cutoff int64) ([]models.IntakeRequest, error)
}

// AuditStore is the audit persistence surface the service needs
type AuditStore interface {
	CreateWithTx(ctx context.Context, tx *database.Transaction, event *models.AuditEvent) error
	GetByRequestID(ctx context.Context, requestID, orgID string) ([]models.AuditEvent, error)
}

// SubmissionResult is returned after an intake submission
type SubmissionResult struct {
	Request    *models.IntakeRequest
	Evaluation safety.Evaluation
	RedFlags   []string
}

// IntakeService handles business logic for intake request operations
type IntakeService struct {
	requestStore        RequestStore
	auditStore          AuditStore
	engine              *safety.Engine
	stateMachine        *lifecycle.StateMachine
	claimManager        *claims.Manager
	db                  *database.DB
	clk                 clock.Clock
	certificateValidity time.Duration
	logger              *logrus.Logger
}

// NewIntakeService creates a new intake service instance
func NewIntakeService(
	requestStore RequestStore,
	auditStore AuditStore,
	engine *safety.Engine,
	stateMachine *lifecycle.StateMachine,
	claimManager *claims.Manager,
	db *database.DB,
	clk clock.Clock,
	certificateValidity time.Duration,
	logger *logrus.Logger,
) *IntakeService {
	return &IntakeService{
		requestStore:        requestStore,
		auditStore:          auditStore,
		engine:              engine,
		stateMachine:        stateMachine,
		claimManager:        claimManager,
		db:                  db,
		clk:                 clk,
		certificateValidity: certificateValidity,
		logger:              logger,
	}
}

// Submit creates a new intake request, evaluates it against the safety rules
// and applies the initial transition: a BLOCK outcome auto-declines, anything
// else leaves the request in draft awaiting checkout. The request row and its
// submission audit event are written in one transaction.
func (s *IntakeService) Submit(ctx context.Context, apiRequest *models.IntakeAPIRequest, patientID, orgID string) (*SubmissionResult, error) {
	if err := s.validateSubmission(apiRequest, patientID, orgID); err != nil {
		return nil, err
	}

	evaluation := s.engine.Evaluate(apiRequest.ServiceType, apiRequest.Answers)
	redFlags := s.collectRedFlags(apiRequest, evaluation)

	answersJSON, err := json.Marshal(apiRequest.Answers)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal answers: %w", err)
	}

	triggeredJSON, err := json.Marshal(evaluation.TriggeredRuleIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal triggered rule IDs: %w", err)
	}

	now := clock.NowMillis(s.clk)
	request := &models.IntakeRequest{
		RequestID:        utils.GenerateRequestID(),
		PatientID:        patientID,
		ServiceType:      apiRequest.ServiceType,
		Answers:          models.JSON(answersJSON),
		CurrentStatus:    string(models.StatusDraft),
		RiskTier:         string(evaluation.RiskTier),
		SafetyOutcome:    string(evaluation.Outcome),
		TriggeredRuleIDs: models.JSON(triggeredJSON),
		CreatedTime:      now,
		UpdatedTime:      now,
		OrgID:            orgID,
	}

	submittedEvent := audit.Event(request.RequestID, orgID, models.AuditEventSubmitted)
	audit.WithActor(submittedEvent, patientID, models.ActorRolePatient)
	audit.WithStatusChange(submittedEvent, "", string(models.StatusDraft))
	audit.WithMetadata(submittedEvent, map[string]interface{}{
		"serviceType": apiRequest.ServiceType,
		"redFlags":    redFlags,
	})
	submittedEvent.AuditID = utils.GenerateAuditID()
	submittedEvent.OccurredTime = now

	err = s.db.WithTransaction(ctx, func(tx *database.Transaction) error {
		if err := s.requestStore.CreateWithTx(ctx, tx, request); err != nil {
			return err
		}
		return s.auditStore.CreateWithTx(ctx, tx, submittedEvent)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create intake request: %w", err)
	}

	// The evaluation itself is audited after the row exists; the audit sink
	// is best-effort by contract.
	s.engine.RecordEvaluation(ctx, request.RequestID, orgID, apiRequest.ServiceType, evaluation)

	if evaluation.Outcome == safety.OutcomeBlock {
		declined, err := s.stateMachine.Transition(ctx, request.RequestID, orgID, lifecycle.EventSafetyBlock, lifecycle.SystemActor)
		if err != nil {
			return nil, fmt.Errorf("failed to auto-decline blocked request: %w", err)
		}
		request = declined
	}

	s.logger.WithFields(logrus.Fields{
		"request_id":   request.RequestID,
		"service_type": request.ServiceType,
		"status":       request.CurrentStatus,
		"outcome":      evaluation.Outcome,
	}).Info("Intake request submitted")

	return &SubmissionResult{
		Request:    request,
		Evaluation: evaluation,
		RedFlags:   redFlags,
	}, nil
}

// GetRequest retrieves an intake request
func (s *IntakeService) GetRequest(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	return s.requestStore.GetByID(ctx, requestID, orgID)
}

// GetAuditTrail retrieves the audit events for a request, newest first
func (s *IntakeService) GetAuditTrail(ctx context.Context, requestID, orgID string) ([]models.AuditEvent, error) {
	if _, err := s.requestStore.GetByID(ctx, requestID, orgID); err != nil {
		return nil, err
	}
	return s.auditStore.GetByRequestID(ctx, requestID, orgID)
}

// StartCheckout moves a draft into checkout
func (s *IntakeService) StartCheckout(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error) {
	actor := lifecycle.Actor{ID: patientID, Role: models.ActorRolePatient}
	return s.stateMachine.Transition(ctx, requestID, orgID, lifecycle.EventCheckoutStarted, actor)
}

// ConfirmPayment records the external payment capture and queues the request
// for review
func (s *IntakeService) ConfirmPayment(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	return s.stateMachine.Transition(ctx, requestID, orgID, lifecycle.EventPaymentCaptured, lifecycle.SystemActor)
}

// Cancel cancels a request before payment; only the owning patient may cancel
func (s *IntakeService) Cancel(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error) {
	actor := lifecycle.Actor{ID: patientID, Role: models.ActorRolePatient}
	return s.stateMachine.Transition(ctx, requestID, orgID, lifecycle.EventCancelled, actor)
}

// Claim atomically assigns the request to the reviewer
func (s *IntakeService) Claim(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error) {
	if err := utils.ValidateReviewerID(reviewerID); err != nil {
		return nil, err
	}
	return s.claimManager.Claim(ctx, requestID, orgID, reviewerID)
}

// ReleaseClaim returns a claimed request to the queue without a decision
func (s *IntakeService) ReleaseClaim(ctx context.Context, requestID, orgID, reviewerID string) error {
	if err := utils.ValidateReviewerID(reviewerID); err != nil {
		return err
	}
	return s.claimManager.Release(ctx, requestID, orgID, reviewerID)
}

// Decide records the reviewer's approve or decline decision
func (s *IntakeService) Decide(ctx context.Context, requestID, orgID, reviewerID, decision string) (*models.IntakeRequest, error) {
	actor := lifecycle.Actor{ID: reviewerID, Role: models.ActorRoleReviewer}

	var event lifecycle.Event
	switch decision {
	case "approve":
		event = lifecycle.EventApproved
	case "decline":
		event = lifecycle.EventDeclined
	default:
		return nil, fmt.Errorf("invalid decision %q: must be approve or decline", decision)
	}

	return s.stateMachine.Transition(ctx, requestID, orgID, event, actor)
}

// RequestInfo parks the review while the patient is asked for more detail
func (s *IntakeService) RequestInfo(ctx context.Context, requestID, orgID, reviewerID string) (*models.IntakeRequest, error) {
	actor := lifecycle.Actor{ID: reviewerID, Role: models.ActorRoleReviewer}
	return s.stateMachine.Transition(ctx, requestID, orgID, lifecycle.EventInfoRequested, actor)
}

// PatientResponded resumes a review that was waiting on the patient
func (s *IntakeService) PatientResponded(ctx context.Context, requestID, orgID, patientID string) (*models.IntakeRequest, error) {
	actor := lifecycle.Actor{ID: patientID, Role: models.ActorRolePatient}
	return s.stateMachine.Transition(ctx, requestID, orgID, lifecycle.EventPatientResponded, actor)
}

// Complete closes out fulfilment after a decision
func (s *IntakeService) Complete(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	return s.stateMachine.Transition(ctx, requestID, orgID, lifecycle.EventCompleted, lifecycle.SystemActor)
}

// ListQueue returns queued, unclaimed requests oldest first
func (s *IntakeService) ListQueue(ctx context.Context, limit, offset int) ([]models.IntakeRequest, error) {
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	if offset < 0 {
		offset = 0
	}
	return s.requestStore.ListUnclaimed(ctx, limit, offset)
}

// ExpireCertificates retires approvals whose certificate validity window has
// passed. Driven by the background runner, never by a reviewer.
func (s *IntakeService) ExpireCertificates(ctx context.Context) (int, error) {
	cutoff := clock.NowMillis(s.clk) - s.certificateValidity.Milliseconds()

	expiring, err := s.requestStore.ListApprovedExpiring(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to list expiring approvals: %w", err)
	}

	expired := 0
	for _, request := range expiring {
		if _, err := s.stateMachine.Transition(ctx, request.RequestID, request.OrgID, lifecycle.EventCertificateExpired, lifecycle.SystemActor); err != nil {
			s.logger.WithError(err).WithField("request_id", request.RequestID).Error("Failed to expire certificate")
			continue
		}
		expired++
	}

	return expired, nil
}

func (s *IntakeService) validateSubmission(apiRequest *models.IntakeAPIRequest, patientID, orgID string) error {
	if err := utils.ValidateOrgID(orgID); err != nil {
		return err
	}
	if err := utils.ValidateRequired("patientId", patientID); err != nil {
		return err
	}
	if err := utils.ValidateServiceType(apiRequest.ServiceType); err != nil {
		return err
	}
	if len(apiRequest.Answers) == 0 {
		return fmt.Errorf("answers are required")
	}
	return nil
}

// collectRedFlags merges the advisory fraud signals into the evaluation's
// red flags. Signals raise attention only; the outcome is untouched.
func (s *IntakeService) collectRedFlags(apiRequest *models.IntakeAPIRequest, evaluation safety.Evaluation) []string {
	redFlags := append([]string{}, evaluation.RedFlags...)

	if apiRequest.ContactNumber != "" {
		if signal := safety.CheckIdentifierPattern(apiRequest.ContactNumber); signal != nil {
			redFlags = append(redFlags, fmt.Sprintf("%s:%s", signal.Type, signal.Severity))
		}
	}

	if apiRequest.FormStartedTime > 0 && apiRequest.FormSubmitedTime > 0 {
		signal := safety.CheckCompletionSpeed(
			utils.MillisToTime(apiRequest.FormStartedTime),
			utils.MillisToTime(apiRequest.FormSubmitedTime),
		)
		if signal != nil {
			redFlags = append(redFlags, fmt.Sprintf("%s:%s", signal.Type, signal.Severity))
		}
	}

	return redFlags
}
