// Package lifecycle enforces the intake request state machine. Every status
// mutation outside claim acquisition flows through Transition, which is the
// only writer of CURRENT_STATUS besides the claim manager.
package lifecycle

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/audit"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/dao"
	"github.com/careloop/intake-review-api/internal/models"
	"github.com/careloop/intake-review-api/internal/safety"
)

// Event names the triggers that drive requests through the lifecycle
type Event string

const (
	// EventCheckoutStarted moves a draft into checkout
	EventCheckoutStarted Event = "checkout_started"
	// EventPaymentCaptured is reported by the external payment collaborator
	EventPaymentCaptured Event = "payment_captured"
	// EventSafetyBlock auto-declines a draft on a BLOCK evaluation outcome
	EventSafetyBlock Event = "safety_block"
	// EventInfoRequested parks the review while the patient is asked for more detail
	EventInfoRequested Event = "info_requested"
	// EventPatientResponded resumes the review after the patient answers
	EventPatientResponded Event = "patient_responded"
	// EventApproved records the reviewer's approval
	EventApproved Event = "approved"
	// EventDeclined records the reviewer's decline
	EventDeclined Event = "declined"
	// EventCancelled is a patient cancellation before payment
	EventCancelled Event = "cancelled"
	// EventCertificateExpired retires an approval whose certificate end date passed
	EventCertificateExpired Event = "certificate_expired"
	// EventCompleted closes out fulfilment after a decision
	EventCompleted Event = "completed"
)

// Actor identifies who is driving a transition
type Actor struct {
	ID   string
	Role string
}

// SystemActor is the actor recorded for time-driven and engine-driven transitions
var SystemActor = Actor{ID: "system", Role: models.ActorRoleSystem}

type edge struct {
	from  models.RequestStatus
	event Event
}

type guardFunc func(request *models.IntakeRequest, actor Actor) error

type transitionSpec struct {
	to    models.RequestStatus
	guard guardFunc
	claim dao.ClaimUpdate
}

// transitions enumerates every legal edge. Anything absent from this table
// is rejected with IllegalTransitionError.
var transitions = map[edge]transitionSpec{
	{models.StatusDraft, EventCheckoutStarted}: {to: models.StatusPendingPayment},
	{models.StatusDraft, EventPaymentCaptured}: {to: models.StatusPaid},
	{models.StatusDraft, EventSafetyBlock}:     {to: models.StatusDeclined, guard: guardSafetyBlocked},
	{models.StatusDraft, EventCancelled}:       {to: models.StatusCancelled, guard: guardRequestOwner},

	{models.StatusPendingPayment, EventPaymentCaptured}: {to: models.StatusPaid},
	{models.StatusPendingPayment, EventCancelled}:       {to: models.StatusCancelled, guard: guardRequestOwner},

	{models.StatusInReview, EventInfoRequested}: {to: models.StatusPendingInfo, guard: guardClaimHolder},
	{models.StatusInReview, EventApproved}:      {to: models.StatusApproved, guard: guardClaimHolder, claim: dao.ClaimClear},
	{models.StatusInReview, EventDeclined}:      {to: models.StatusDeclined, guard: guardClaimHolder, claim: dao.ClaimClear},

	// Returning to review keeps the claim but restarts its age, so the
	// reviewer gets a full timeout window to act on the response.
	{models.StatusPendingInfo, EventPatientResponded}: {to: models.StatusInReview, claim: dao.ClaimTouch},

	{models.StatusApproved, EventCertificateExpired}: {to: models.StatusExpired, guard: guardSystemActor},
	{models.StatusApproved, EventCompleted}:          {to: models.StatusCompleted},
	{models.StatusDeclined, EventCompleted}:          {to: models.StatusCompleted},
}

// RequestStore is the persistence surface the state machine needs
type RequestStore interface {
	GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error)
	UpdateStatus(ctx context.Context, requestID, orgID, fromStatus, toStatus string, updatedTime int64, claim dao.ClaimUpdate) (bool, error)
}

// StateMachine validates and applies lifecycle transitions
type StateMachine struct {
	store  RequestStore
	sink   audit.Sink
	clk    clock.Clock
	logger *logrus.Logger
}

// NewStateMachine creates a lifecycle state machine
func NewStateMachine(store RequestStore, sink audit.Sink, clk clock.Clock, logger *logrus.Logger) *StateMachine {
	return &StateMachine{
		store:  store,
		sink:   sink,
		clk:    clk,
		logger: logger,
	}
}

// Transition applies the event to the request, enforcing the edge table and
// its guards. Re-delivered events whose target status already holds return
// the current record without writing a duplicate audit event. The status
// write is optimistic: losing a concurrent race surfaces ErrStaleVersion.
func (m *StateMachine) Transition(ctx context.Context, requestID, orgID string, event Event, actor Actor) (*models.IntakeRequest, error) {
	request, err := m.store.GetByID(ctx, requestID, orgID)
	if err != nil {
		return nil, err
	}

	current := models.RequestStatus(request.CurrentStatus)

	spec, legal := transitions[edge{current, event}]
	if !legal {
		// Idempotent re-delivery: a duplicate event whose target status
		// already holds is not an error.
		if eventTargets(event, current) {
			m.logger.WithFields(logrus.Fields{
				"request_id": requestID,
				"event":      event,
				"status":     current,
			}).Debug("Duplicate event delivery, returning current state")
			return request, nil
		}
		return nil, &IllegalTransitionError{From: current, Event: event}
	}

	if spec.guard != nil {
		if err := spec.guard(request, actor); err != nil {
			return nil, err
		}
	}

	now := clock.NowMillis(m.clk)
	updated, err := m.store.UpdateStatus(ctx, requestID, orgID, string(current), string(spec.to), now, spec.claim)
	if err != nil {
		return nil, err
	}

	if !updated {
		// The row moved underneath us. Re-read: if it landed on our target
		// the event was applied concurrently and this delivery is a duplicate.
		fresh, readErr := m.store.GetByID(ctx, requestID, orgID)
		if readErr != nil {
			return nil, readErr
		}
		if models.RequestStatus(fresh.CurrentStatus) == spec.to {
			return fresh, nil
		}
		return nil, fmt.Errorf("%w: expected %s, found %s", ErrStaleVersion, current, fresh.CurrentStatus)
	}

	m.recordTransition(ctx, request, event, actor, current, spec.to, now)

	request.CurrentStatus = string(spec.to)
	request.UpdatedTime = now
	switch spec.claim {
	case dao.ClaimClear:
		request.ClaimedBy = nil
		request.ClaimedAt = nil
	case dao.ClaimTouch:
		request.ClaimedAt = &now
	}

	m.logger.WithFields(logrus.Fields{
		"request_id": requestID,
		"event":      event,
		"from":       current,
		"to":         spec.to,
		"actor_id":   actor.ID,
	}).Info("Request transitioned")

	return request, nil
}

// Legal reports whether the edge exists in the transition table, without
// evaluating guards or touching the store
func Legal(from models.RequestStatus, event Event) bool {
	_, ok := transitions[edge{from, event}]
	return ok
}

func (m *StateMachine) recordTransition(ctx context.Context, request *models.IntakeRequest, event Event, actor Actor, from, to models.RequestStatus, occurred int64) {
	auditEvent := audit.Event(request.RequestID, request.OrgID, models.AuditEventStatusChanged)
	audit.WithActor(auditEvent, actor.ID, actor.Role)
	audit.WithStatusChange(auditEvent, string(from), string(to))
	audit.WithMetadata(auditEvent, map[string]interface{}{
		"event": string(event),
	})
	auditEvent.OccurredTime = occurred
	m.sink.Record(ctx, auditEvent)
}

// eventTargets reports whether any edge for the event lands on the status
func eventTargets(event Event, status models.RequestStatus) bool {
	for e, spec := range transitions {
		if e.event == event && spec.to == status {
			return true
		}
	}
	return false
}

func guardClaimHolder(request *models.IntakeRequest, actor Actor) error {
	if !request.Claim().HeldBy(actor.ID) {
		return &GuardError{Reason: "actor does not hold the claim on this request"}
	}
	return nil
}

func guardRequestOwner(request *models.IntakeRequest, actor Actor) error {
	if request.PatientID != actor.ID {
		return &GuardError{Reason: "only the request owner may cancel"}
	}
	return nil
}

func guardSafetyBlocked(request *models.IntakeRequest, _ Actor) error {
	if request.SafetyOutcome != string(safety.OutcomeBlock) {
		return &GuardError{Reason: "safety outcome is not BLOCK"}
	}
	return nil
}

func guardSystemActor(_ *models.IntakeRequest, actor Actor) error {
	if actor.Role != models.ActorRoleSystem {
		return &GuardError{Reason: "expiry is time-driven, not a reviewer action"}
	}
	return nil
}
