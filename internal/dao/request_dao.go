package dao

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/models"
)

// ErrRequestNotFound is returned when a request ID does not exist for the org
var ErrRequestNotFound = fmt.Errorf("intake request not found")

// ClaimUpdate selects what an optimistic status update does to the claim columns
type ClaimUpdate int

const (
	// ClaimKeep leaves CLAIMED_BY / CLAIMED_AT untouched
	ClaimKeep ClaimUpdate = iota
	// ClaimClear nulls the claim columns
	ClaimClear
	// ClaimTouch refreshes CLAIMED_AT to the update time, keeping the holder
	ClaimTouch
)

// RequestDAO handles database operations for intake requests
type RequestDAO struct {
	db *database.DB
}

// NewRequestDAO creates a new RequestDAO instance
func NewRequestDAO(db *database.DB) *RequestDAO {
	return &RequestDAO{db: db}
}

const requestColumns = `REQUEST_ID, PATIENT_ID, SERVICE_TYPE, ANSWERS, CURRENT_STATUS,
	       CLAIMED_BY, CLAIMED_AT, RISK_TIER, SAFETY_OUTCOME, TRIGGERED_RULE_IDS,
	       CREATED_TIME, UPDATED_TIME, ORG_ID`

// Create inserts a new intake request into the database
func (dao *RequestDAO) Create(ctx context.Context, request *models.IntakeRequest) error {
	query := `
		INSERT INTO INTAKE_REQUEST (
			REQUEST_ID, PATIENT_ID, SERVICE_TYPE, ANSWERS, CURRENT_STATUS,
			RISK_TIER, SAFETY_OUTCOME, TRIGGERED_RULE_IDS, CREATED_TIME,
			UPDATED_TIME, ORG_ID
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := dao.db.ExecWithRetry(
		ctx,
		query,
		request.RequestID,
		request.PatientID,
		request.ServiceType,
		request.Answers,
		request.CurrentStatus,
		request.RiskTier,
		request.SafetyOutcome,
		request.TriggeredRuleIDs,
		request.CreatedTime,
		request.UpdatedTime,
		request.OrgID,
	)

	if err != nil {
		return fmt.Errorf("failed to create intake request: %w", err)
	}

	return nil
}

// CreateWithTx inserts a new intake request using a transaction
func (dao *RequestDAO) CreateWithTx(ctx context.Context, tx *database.Transaction, request *models.IntakeRequest) error {
	query := `
		INSERT INTO INTAKE_REQUEST (
			REQUEST_ID, PATIENT_ID, SERVICE_TYPE, ANSWERS, CURRENT_STATUS,
			RISK_TIER, SAFETY_OUTCOME, TRIGGERED_RULE_IDS, CREATED_TIME,
			UPDATED_TIME, ORG_ID
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := tx.ExecContext(
		ctx,
		query,
		request.RequestID,
		request.PatientID,
		request.ServiceType,
		request.Answers,
		request.CurrentStatus,
		request.RiskTier,
		request.SafetyOutcome,
		request.TriggeredRuleIDs,
		request.CreatedTime,
		request.UpdatedTime,
		request.OrgID,
	)

	if err != nil {
		return fmt.Errorf("failed to create intake request with transaction: %w", err)
	}

	return nil
}

// GetByID retrieves an intake request by ID and organization ID
func (dao *RequestDAO) GetByID(ctx context.Context, requestID, orgID string) (*models.IntakeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM INTAKE_REQUEST
		WHERE REQUEST_ID = ? AND ORG_ID = ?
	`

	var request models.IntakeRequest
	err := dao.db.GetContext(ctx, &request, query, requestID, orgID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrRequestNotFound, requestID)
		}
		return nil, fmt.Errorf("failed to get intake request: %w", err)
	}

	return &request, nil
}

// UpdateStatus performs an optimistic status update: the row is only written
// when CURRENT_STATUS still equals fromStatus. Returns false when the
// precondition did not hold (row missing or status moved underneath us).
func (dao *RequestDAO) UpdateStatus(ctx context.Context, requestID, orgID, fromStatus, toStatus string, updatedTime int64, claim ClaimUpdate) (bool, error) {
	var query string
	args := []interface{}{toStatus, updatedTime}

	switch claim {
	case ClaimClear:
		query = `
			UPDATE INTAKE_REQUEST
			SET CURRENT_STATUS = ?, UPDATED_TIME = ?, CLAIMED_BY = NULL, CLAIMED_AT = NULL
			WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ?
		`
	case ClaimTouch:
		query = `
			UPDATE INTAKE_REQUEST
			SET CURRENT_STATUS = ?, UPDATED_TIME = ?, CLAIMED_AT = ?
			WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ?
		`
		args = append(args, updatedTime)
	default:
		query = `
			UPDATE INTAKE_REQUEST
			SET CURRENT_STATUS = ?, UPDATED_TIME = ?
			WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ?
		`
	}

	args = append(args, requestID, orgID, fromStatus)

	result, err := dao.db.ExecWithRetry(ctx, query, args...)
	if err != nil {
		return false, fmt.Errorf("failed to update request status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// AtomicClaim attempts to claim a request for a reviewer in a single
// conditional update. The claim succeeds when the request is queued and
// unclaimed, or when the existing claim started before staleBefore.
// Returns false when another reviewer holds a live claim or the request
// is not claimable.
func (dao *RequestDAO) AtomicClaim(ctx context.Context, requestID, orgID, reviewerID string, claimedAt, staleBefore int64) (bool, error) {
	query := `
		UPDATE INTAKE_REQUEST
		SET CLAIMED_BY = ?, CLAIMED_AT = ?, CURRENT_STATUS = ?, UPDATED_TIME = ?
		WHERE REQUEST_ID = ? AND ORG_ID = ?
		  AND ((CURRENT_STATUS = ? AND CLAIMED_BY IS NULL)
		       OR (CURRENT_STATUS = ? AND CLAIMED_AT IS NOT NULL AND CLAIMED_AT < ?))
	`

	result, err := dao.db.ExecWithRetry(
		ctx,
		query,
		reviewerID,
		claimedAt,
		string(models.StatusInReview),
		claimedAt,
		requestID,
		orgID,
		string(models.StatusPaid),
		string(models.StatusInReview),
		staleBefore,
	)
	if err != nil {
		return false, fmt.Errorf("failed to claim request: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ReleaseClaim clears the claim held by reviewerID and returns the request
// to the queue. Returns false when the reviewer does not hold the claim.
func (dao *RequestDAO) ReleaseClaim(ctx context.Context, requestID, orgID, reviewerID string, updatedTime int64) (bool, error) {
	query := `
		UPDATE INTAKE_REQUEST
		SET CLAIMED_BY = NULL, CLAIMED_AT = NULL, CURRENT_STATUS = ?, UPDATED_TIME = ?
		WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ? AND CLAIMED_BY = ?
	`

	result, err := dao.db.ExecWithRetry(
		ctx,
		query,
		string(models.StatusPaid),
		updatedTime,
		requestID,
		orgID,
		string(models.StatusInReview),
		reviewerID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to release claim: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected > 0, nil
}

// ReleaseClaimsOlderThan releases every live claim started before the cutoff
// in one pass and returns how many rows were released.
func (dao *RequestDAO) ReleaseClaimsOlderThan(ctx context.Context, cutoff, updatedTime int64) (int64, error) {
	query := `
		UPDATE INTAKE_REQUEST
		SET CLAIMED_BY = NULL, CLAIMED_AT = NULL, CURRENT_STATUS = ?, UPDATED_TIME = ?
		WHERE CURRENT_STATUS = ? AND CLAIMED_AT IS NOT NULL AND CLAIMED_AT < ?
	`

	result, err := dao.db.ExecWithRetry(
		ctx,
		query,
		string(models.StatusPaid),
		updatedTime,
		string(models.StatusInReview),
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to release stale claims: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}

	return rowsAffected, nil
}

// ListStaleClaims returns every claimed request whose claim started before the cutoff
func (dao *RequestDAO) ListStaleClaims(ctx context.Context, cutoff int64) ([]models.IntakeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM INTAKE_REQUEST
		WHERE CURRENT_STATUS = ? AND CLAIMED_AT IS NOT NULL AND CLAIMED_AT < ?
		ORDER BY CLAIMED_AT ASC
	`

	var requests []models.IntakeRequest
	err := dao.db.SelectContext(ctx, &requests, query, string(models.StatusInReview), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list stale claims: %w", err)
	}

	return requests, nil
}

// ListClaimed returns every request with a live claim
func (dao *RequestDAO) ListClaimed(ctx context.Context) ([]models.IntakeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM INTAKE_REQUEST
		WHERE CURRENT_STATUS = ? AND CLAIMED_BY IS NOT NULL
		ORDER BY CLAIMED_AT ASC
	`

	var requests []models.IntakeRequest
	err := dao.db.SelectContext(ctx, &requests, query, string(models.StatusInReview))
	if err != nil {
		return nil, fmt.Errorf("failed to list claimed requests: %w", err)
	}

	return requests, nil
}

// ListUnclaimed returns queued, unclaimed requests oldest first
func (dao *RequestDAO) ListUnclaimed(ctx context.Context, limit, offset int) ([]models.IntakeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM INTAKE_REQUEST
		WHERE CURRENT_STATUS = ? AND CLAIMED_BY IS NULL
		ORDER BY CREATED_TIME ASC
		LIMIT ? OFFSET ?
	`

	var requests []models.IntakeRequest
	err := dao.db.SelectContext(ctx, &requests, query, string(models.StatusPaid), limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list unclaimed requests: %w", err)
	}

	return requests, nil
}

// CountUnclaimed returns how many queued requests await a claim
func (dao *RequestDAO) CountUnclaimed(ctx context.Context) (int, error) {
	query := `
		SELECT COUNT(*)
		FROM INTAKE_REQUEST
		WHERE CURRENT_STATUS = ? AND CLAIMED_BY IS NULL
	`

	var count int
	err := dao.db.GetContext(ctx, &count, query, string(models.StatusPaid))
	if err != nil {
		return 0, fmt.Errorf("failed to count unclaimed requests: %w", err)
	}

	return count, nil
}

// OldestUnclaimed returns the longest-waiting queued request, or nil when the
// queue is empty
func (dao *RequestDAO) OldestUnclaimed(ctx context.Context) (*models.IntakeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM INTAKE_REQUEST
		WHERE CURRENT_STATUS = ? AND CLAIMED_BY IS NULL
		ORDER BY CREATED_TIME ASC
		LIMIT 1
	`

	var request models.IntakeRequest
	err := dao.db.GetContext(ctx, &request, query, string(models.StatusPaid))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get oldest unclaimed request: %w", err)
	}

	return &request, nil
}

// ListApprovedExpiring returns approved requests whose certificate validity,
// measured from the approval update time, ended before the cutoff
func (dao *RequestDAO) ListApprovedExpiring(ctx context.Context, cutoff int64) ([]models.IntakeRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM INTAKE_REQUEST
		WHERE CURRENT_STATUS = ? AND UPDATED_TIME < ?
		ORDER BY UPDATED_TIME ASC
	`

	var requests []models.IntakeRequest
	err := dao.db.SelectContext(ctx, &requests, query, string(models.StatusApproved), cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to list expiring approvals: %w", err)
	}

	return requests, nil
}

// Exists checks whether a request exists for the org
func (dao *RequestDAO) Exists(ctx context.Context, requestID, orgID string) (bool, error) {
	query := `SELECT COUNT(*) FROM INTAKE_REQUEST WHERE REQUEST_ID = ? AND ORG_ID = ?`

	var count int
	err := dao.db.GetContext(ctx, &count, query, requestID, orgID)
	if err != nil {
		return false, fmt.Errorf("failed to check request existence: %w", err)
	}

	return count > 0, nil
}
