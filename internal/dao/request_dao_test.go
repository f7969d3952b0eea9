package dao

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/careloop/intake-review-api/internal/database"
	"github.com/careloop/intake-review-api/internal/models"
)

func newMockRequestDAO(t *testing.T) (*RequestDAO, sqlmock.Sqlmock) {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })

	db := database.NewWithDB(sqlx.NewDb(mockDB, "mysql"), logrus.New())
	return NewRequestDAO(db), mock
}

func requestRows(requests ...models.IntakeRequest) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"REQUEST_ID", "PATIENT_ID", "SERVICE_TYPE", "ANSWERS", "CURRENT_STATUS",
		"CLAIMED_BY", "CLAIMED_AT", "RISK_TIER", "SAFETY_OUTCOME", "TRIGGERED_RULE_IDS",
		"CREATED_TIME", "UPDATED_TIME", "ORG_ID",
	})
	for _, r := range requests {
		rows.AddRow(
			r.RequestID, r.PatientID, r.ServiceType, []byte(r.Answers), r.CurrentStatus,
			r.ClaimedBy, r.ClaimedAt, r.RiskTier, r.SafetyOutcome, []byte(r.TriggeredRuleIDs),
			r.CreatedTime, r.UpdatedTime, r.OrgID,
		)
	}
	return rows
}

func sampleRequest() models.IntakeRequest {
	return models.IntakeRequest{
		RequestID:        "REQ-1",
		PatientID:        "patient-1",
		ServiceType:      "hair_loss",
		Answers:          models.JSON(`{"age":34}`),
		CurrentStatus:    string(models.StatusPaid),
		RiskTier:         "low",
		SafetyOutcome:    "ALLOW",
		TriggeredRuleIDs: models.JSON(`[]`),
		CreatedTime:      1700000000000,
		UpdatedTime:      1700000000000,
		OrgID:            "org-1",
	}
}

func TestRequestDAO_Create(t *testing.T) {
	dao, mock := newMockRequestDAO(t)
	request := sampleRequest()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO INTAKE_REQUEST")).
		WithArgs(
			request.RequestID, request.PatientID, request.ServiceType, request.Answers,
			request.CurrentStatus, request.RiskTier, request.SafetyOutcome,
			request.TriggeredRuleIDs, request.CreatedTime, request.UpdatedTime, request.OrgID,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := dao.Create(context.Background(), &request)

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestDAO_GetByID(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE REQUEST_ID = ? AND ORG_ID = ?")).
		WithArgs("REQ-1", "org-1").
		WillReturnRows(requestRows(sampleRequest()))

	request, err := dao.GetByID(context.Background(), "REQ-1", "org-1")

	require.NoError(t, err)
	assert.Equal(t, "REQ-1", request.RequestID)
	assert.Equal(t, string(models.StatusPaid), request.CurrentStatus)
	assert.False(t, request.Claim().IsClaimed())
}

func TestRequestDAO_GetByID_NotFound(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE REQUEST_ID = ? AND ORG_ID = ?")).
		WithArgs("REQ-404", "org-1").
		WillReturnRows(requestRows())

	_, err := dao.GetByID(context.Background(), "REQ-404", "org-1")

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrRequestNotFound))
}

func TestRequestDAO_AtomicClaim_QueryShape(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	// The claim must be one conditional update covering both the unclaimed
	// and the stale-takeover case.
	expected := regexp.QuoteMeta(
		"UPDATE INTAKE_REQUEST SET CLAIMED_BY = ?, CLAIMED_AT = ?, CURRENT_STATUS = ?, UPDATED_TIME = ? " +
			"WHERE REQUEST_ID = ? AND ORG_ID = ? " +
			"AND ((CURRENT_STATUS = ? AND CLAIMED_BY IS NULL) " +
			"OR (CURRENT_STATUS = ? AND CLAIMED_AT IS NOT NULL AND CLAIMED_AT < ?))",
	)

	mock.ExpectExec(expected).
		WithArgs(
			"reviewer-1", int64(1700000300000), string(models.StatusInReview), int64(1700000300000),
			"REQ-1", "org-1", string(models.StatusPaid), string(models.StatusInReview), int64(1700000100000),
		).
		WillReturnResult(sqlmock.NewResult(0, 1))

	claimed, err := dao.AtomicClaim(context.Background(), "REQ-1", "org-1", "reviewer-1", 1700000300000, 1700000100000)

	require.NoError(t, err)
	assert.True(t, claimed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestDAO_AtomicClaim_NoMatchingRow(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE INTAKE_REQUEST")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	claimed, err := dao.AtomicClaim(context.Background(), "REQ-1", "org-1", "reviewer-1", 1700000300000, 1700000100000)

	require.NoError(t, err)
	assert.False(t, claimed)
}

func TestRequestDAO_UpdateStatus_OptimisticPrecondition(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	expected := regexp.QuoteMeta(
		"UPDATE INTAKE_REQUEST SET CURRENT_STATUS = ?, UPDATED_TIME = ? " +
			"WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ?",
	)

	mock.ExpectExec(expected).
		WithArgs(string(models.StatusPendingPayment), int64(1700000300000), "REQ-1", "org-1", string(models.StatusDraft)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := dao.UpdateStatus(context.Background(), "REQ-1", "org-1",
		string(models.StatusDraft), string(models.StatusPendingPayment), 1700000300000, ClaimKeep)

	require.NoError(t, err)
	assert.True(t, updated)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestDAO_UpdateStatus_ClaimClear(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	expected := regexp.QuoteMeta(
		"UPDATE INTAKE_REQUEST SET CURRENT_STATUS = ?, UPDATED_TIME = ?, CLAIMED_BY = NULL, CLAIMED_AT = NULL " +
			"WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ?",
	)

	mock.ExpectExec(expected).
		WithArgs(string(models.StatusApproved), int64(1700000300000), "REQ-1", "org-1", string(models.StatusInReview)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := dao.UpdateStatus(context.Background(), "REQ-1", "org-1",
		string(models.StatusInReview), string(models.StatusApproved), 1700000300000, ClaimClear)

	require.NoError(t, err)
	assert.True(t, updated)
}

func TestRequestDAO_UpdateStatus_ClaimTouch(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	expected := regexp.QuoteMeta(
		"UPDATE INTAKE_REQUEST SET CURRENT_STATUS = ?, UPDATED_TIME = ?, CLAIMED_AT = ? " +
			"WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ?",
	)

	mock.ExpectExec(expected).
		WithArgs(string(models.StatusInReview), int64(1700000300000), int64(1700000300000),
			"REQ-1", "org-1", string(models.StatusPendingInfo)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	updated, err := dao.UpdateStatus(context.Background(), "REQ-1", "org-1",
		string(models.StatusPendingInfo), string(models.StatusInReview), 1700000300000, ClaimTouch)

	require.NoError(t, err)
	assert.True(t, updated)
}

func TestRequestDAO_UpdateStatus_PreconditionFailed(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE INTAKE_REQUEST")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	updated, err := dao.UpdateStatus(context.Background(), "REQ-1", "org-1",
		string(models.StatusDraft), string(models.StatusPendingPayment), 1700000300000, ClaimKeep)

	require.NoError(t, err)
	assert.False(t, updated)
}

func TestRequestDAO_ReleaseClaim_RequiresHolder(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	expected := regexp.QuoteMeta(
		"UPDATE INTAKE_REQUEST SET CLAIMED_BY = NULL, CLAIMED_AT = NULL, CURRENT_STATUS = ?, UPDATED_TIME = ? " +
			"WHERE REQUEST_ID = ? AND ORG_ID = ? AND CURRENT_STATUS = ? AND CLAIMED_BY = ?",
	)

	mock.ExpectExec(expected).
		WithArgs(string(models.StatusPaid), int64(1700000300000), "REQ-1", "org-1",
			string(models.StatusInReview), "reviewer-1").
		WillReturnResult(sqlmock.NewResult(0, 1))

	released, err := dao.ReleaseClaim(context.Background(), "REQ-1", "org-1", "reviewer-1", 1700000300000)

	require.NoError(t, err)
	assert.True(t, released)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRequestDAO_ReleaseClaimsOlderThan(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectExec(regexp.QuoteMeta("CLAIMED_AT IS NOT NULL AND CLAIMED_AT < ?")).
		WithArgs(string(models.StatusPaid), int64(1700000300000), string(models.StatusInReview), int64(1700000100000)).
		WillReturnResult(sqlmock.NewResult(0, 3))

	released, err := dao.ReleaseClaimsOlderThan(context.Background(), 1700000100000, 1700000300000)

	require.NoError(t, err)
	assert.Equal(t, int64(3), released)
}

func TestRequestDAO_ListUnclaimed_OldestFirst(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	expected := regexp.QuoteMeta(
		"WHERE CURRENT_STATUS = ? AND CLAIMED_BY IS NULL ORDER BY CREATED_TIME ASC LIMIT ? OFFSET ?",
	)

	first := sampleRequest()
	second := sampleRequest()
	second.RequestID = "REQ-2"
	second.CreatedTime = 1700000600000

	mock.ExpectQuery(expected).
		WithArgs(string(models.StatusPaid), 25, 0).
		WillReturnRows(requestRows(first, second))

	requests, err := dao.ListUnclaimed(context.Background(), 25, 0)

	require.NoError(t, err)
	require.Len(t, requests, 2)
	assert.Equal(t, "REQ-1", requests[0].RequestID)
}

func TestRequestDAO_CountUnclaimed(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*)")).
		WithArgs(string(models.StatusPaid)).
		WillReturnRows(sqlmock.NewRows([]string{"COUNT(*)"}).AddRow(7))

	count, err := dao.CountUnclaimed(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 7, count)
}

func TestRequestDAO_OldestUnclaimed_EmptyQueue(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY CREATED_TIME ASC LIMIT 1")).
		WithArgs(string(models.StatusPaid)).
		WillReturnRows(requestRows())

	request, err := dao.OldestUnclaimed(context.Background())

	require.NoError(t, err)
	assert.Nil(t, request)
}

func TestRequestDAO_ListApprovedExpiring(t *testing.T) {
	dao, mock := newMockRequestDAO(t)

	approved := sampleRequest()
	approved.CurrentStatus = string(models.StatusApproved)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE CURRENT_STATUS = ? AND UPDATED_TIME < ?")).
		WithArgs(string(models.StatusApproved), int64(1700000100000)).
		WillReturnRows(requestRows(approved))

	requests, err := dao.ListApprovedExpiring(context.Background(), 1700000100000)

	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, string(models.StatusApproved), requests[0].CurrentStatus)
}
