package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJSON_ScanAndValue(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan([]byte(`{"bmi": 32.5}`)))

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(j, &decoded))
	assert.Equal(t, 32.5, decoded["bmi"])

	value, err := j.Value()
	require.NoError(t, err)
	assert.JSONEq(t, `{"bmi": 32.5}`, string(value.([]byte)))
}

func TestJSON_ScanString(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan(`["wm-pregnancy"]`))
	assert.JSONEq(t, `["wm-pregnancy"]`, string(j))
}

func TestJSON_ScanNil(t *testing.T) {
	var j JSON
	require.NoError(t, j.Scan(nil))
	assert.Nil(t, j)

	value, err := j.Value()
	require.NoError(t, err)
	assert.Nil(t, value)
}

func TestJSON_ScanRejectsInvalidInput(t *testing.T) {
	var j JSON
	assert.Error(t, j.Scan([]byte(`{not json`)))
	assert.Error(t, j.Scan(42))
}

func TestJSON_MarshalNilAsNull(t *testing.T) {
	data, err := json.Marshal(struct {
		Answers JSON `json:"answers"`
	}{})
	require.NoError(t, err)
	assert.JSONEq(t, `{"answers": null}`, string(data))
}

func TestClaimState(t *testing.T) {
	since := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC)
	now := since.Add(25 * time.Minute)

	unclaimed := Unclaimed()
	assert.False(t, unclaimed.IsClaimed())
	assert.False(t, unclaimed.HeldBy("reviewer-1"))
	assert.Zero(t, unclaimed.Age(now))

	claimed := ClaimedBy("reviewer-1", since)
	assert.True(t, claimed.IsClaimed())
	assert.True(t, claimed.HeldBy("reviewer-1"))
	assert.False(t, claimed.HeldBy("reviewer-2"))
	assert.Equal(t, 25*time.Minute, claimed.Age(now))

	holder, start := claimed.Holder()
	assert.Equal(t, "reviewer-1", holder)
	assert.Equal(t, since, start)
}

func TestIntakeRequest_Claim(t *testing.T) {
	request := &IntakeRequest{RequestID: "REQ-1"}
	assert.False(t, request.Claim().IsClaimed())

	reviewer := "reviewer-1"
	claimedAt := time.Date(2026, time.March, 14, 9, 30, 0, 0, time.UTC).UnixNano() / int64(time.Millisecond)
	request.ClaimedBy = &reviewer
	request.ClaimedAt = &claimedAt

	claim := request.Claim()
	require.True(t, claim.IsClaimed())
	assert.True(t, claim.HeldBy("reviewer-1"))

	_, since := claim.Holder()
	assert.Equal(t, claimedAt, since.UnixNano()/int64(time.Millisecond))
}

func TestIntakeRequest_Claim_PartialColumnsStayUnclaimed(t *testing.T) {
	reviewer := "reviewer-1"
	request := &IntakeRequest{RequestID: "REQ-1", ClaimedBy: &reviewer}
	assert.False(t, request.Claim().IsClaimed())
}

func TestIntakeRequest_TriggeredRules(t *testing.T) {
	request := &IntakeRequest{}
	assert.Nil(t, request.TriggeredRules())

	request.TriggeredRuleIDs = JSON(`["wm-pregnancy", "wm-low-bmi"]`)
	assert.Equal(t, []string{"wm-pregnancy", "wm-low-bmi"}, request.TriggeredRules())

	request.TriggeredRuleIDs = JSON(`{not a list`)
	assert.Nil(t, request.TriggeredRules())
}

func TestIntakeRequest_ToAPIResponse(t *testing.T) {
	reviewer := "reviewer-1"
	claimedAt := int64(1700000100000)
	request := &IntakeRequest{
		RequestID:        "REQ-1",
		PatientID:        "patient-1",
		ServiceType:      "weight_management",
		CurrentStatus:    string(StatusInReview),
		ClaimedBy:        &reviewer,
		ClaimedAt:        &claimedAt,
		RiskTier:         "high",
		SafetyOutcome:    "REVIEW",
		TriggeredRuleIDs: JSON(`["wm-low-bmi"]`),
		CreatedTime:      1700000000000,
		UpdatedTime:      1700000100000,
		OrgID:            "org-1",
	}

	response := request.ToAPIResponse()
	assert.Equal(t, "REQ-1", response.ID)
	assert.Equal(t, "in_review", response.Status)
	assert.Equal(t, []string{"wm-low-bmi"}, response.TriggeredRuleIDs)
	require.NotNil(t, response.ClaimedBy)
	assert.Equal(t, "reviewer-1", *response.ClaimedBy)
	assert.Empty(t, response.RedFlags)
}

func TestRequestStatus_IsTerminal(t *testing.T) {
	terminal := []RequestStatus{StatusCompleted, StatusCancelled, StatusExpired}
	for _, status := range terminal {
		assert.True(t, status.IsTerminal(), string(status))
	}

	open := []RequestStatus{
		StatusDraft, StatusPendingPayment, StatusPaid, StatusInReview,
		StatusPendingInfo, StatusApproved, StatusDeclined,
	}
	for _, status := range open {
		assert.False(t, status.IsTerminal(), string(status))
	}
}

func TestIsValidStatus(t *testing.T) {
	assert.True(t, IsValidStatus("draft"))
	assert.True(t, IsValidStatus("pending_info"))
	assert.True(t, IsValidStatus("expired"))
	assert.False(t, IsValidStatus("archived"))
	assert.False(t, IsValidStatus(""))
	assert.False(t, IsValidStatus("DRAFT"))
}

func TestHTTPStatusForErrorCode(t *testing.T) {
	tests := []struct {
		code   string
		status int
	}{
		{ErrCodeBadRequest, 400},
		{ErrCodeValidationError, 400},
		{ErrCodeUnauthorized, 401},
		{ErrCodeForbidden, 403},
		{ErrCodeRequestBlocked, 403},
		{ErrCodeNotFound, 404},
		{ErrCodeRequestNotFound, 404},
		{ErrCodeConflict, 409},
		{ErrCodeAlreadyClaimed, 409},
		{ErrCodeInvalidTransition, 409},
		{ErrCodeInternalError, 500},
		{ErrCodeDatabaseError, 500},
		{"SOMETHING_ELSE", 500},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.status, HTTPStatusForErrorCode(tt.code), tt.code)
	}
}
