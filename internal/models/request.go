package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// IntakeRequest represents the INTAKE_REQUEST table
type IntakeRequest struct {
	RequestID        string  `db:"REQUEST_ID" json:"requestId"`
	PatientID        string  `db:"PATIENT_ID" json:"patientId"`
	ServiceType      string  `db:"SERVICE_TYPE" json:"serviceType"`
	Answers          JSON    `db:"ANSWERS" json:"answers"`
	CurrentStatus    string  `db:"CURRENT_STATUS" json:"currentStatus"`
	ClaimedBy        *string `db:"CLAIMED_BY" json:"claimedBy,omitempty"`
	ClaimedAt        *int64  `db:"CLAIMED_AT" json:"claimedAt,omitempty"`
	RiskTier         string  `db:"RISK_TIER" json:"riskTier"`
	SafetyOutcome    string  `db:"SAFETY_OUTCOME" json:"safetyOutcome"`
	TriggeredRuleIDs JSON    `db:"TRIGGERED_RULE_IDS" json:"triggeredRuleIds"`
	CreatedTime      int64   `db:"CREATED_TIME" json:"createdTime"`
	UpdatedTime      int64   `db:"UPDATED_TIME" json:"updatedTime"`
	OrgID            string  `db:"ORG_ID" json:"orgId"`
}

// JSON type for handling JSON fields in MySQL
type JSON json.RawMessage

// Scan implements the sql.Scanner interface for JSON
func (j *JSON) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return fmt.Errorf("unsupported type for JSON: %T", value)
	}

	// Validate that it's valid JSON by attempting to unmarshal and remarshal
	var temp interface{}
	if err := json.Unmarshal(bytes, &temp); err != nil {
		return fmt.Errorf("invalid JSON data: %w", err)
	}

	cleanBytes, err := json.Marshal(temp)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	*j = JSON(cleanBytes)
	return nil
}

// Value implements the driver.Valuer interface for JSON
func (j JSON) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return []byte(j), nil
}

// MarshalJSON implements json.Marshaler
func (j JSON) MarshalJSON() ([]byte, error) {
	if j == nil {
		return []byte("null"), nil
	}
	return j, nil
}

// UnmarshalJSON implements json.Unmarshaler
func (j *JSON) UnmarshalJSON(data []byte) error {
	if j == nil {
		return nil
	}
	*j = JSON(data)
	return nil
}

// ClaimState models the claim as a sum type: a request is either unclaimed
// or claimed by exactly one reviewer since a known instant. The nullable
// CLAIMED_BY / CLAIMED_AT columns never escape the models package.
type ClaimState struct {
	claimed  bool
	reviewer string
	since    time.Time
}

// Unclaimed returns the unclaimed claim state
func Unclaimed() ClaimState {
	return ClaimState{}
}

// ClaimedBy returns a claim state held by the given reviewer since the given time
func ClaimedBy(reviewer string, since time.Time) ClaimState {
	return ClaimState{claimed: true, reviewer: reviewer, since: since}
}

// IsClaimed reports whether the request is currently claimed
func (c ClaimState) IsClaimed() bool {
	return c.claimed
}

// Holder returns the claiming reviewer and claim start, valid only when IsClaimed
func (c ClaimState) Holder() (string, time.Time) {
	return c.reviewer, c.since
}

// HeldBy reports whether the claim is held by the given reviewer
func (c ClaimState) HeldBy(reviewerID string) bool {
	return c.claimed && c.reviewer == reviewerID
}

// Age returns how long the claim has been held at the given instant
func (c ClaimState) Age(now time.Time) time.Duration {
	if !c.claimed {
		return 0
	}
	return now.Sub(c.since)
}

// Claim derives the claim state from the stored columns
func (r *IntakeRequest) Claim() ClaimState {
	if r.ClaimedBy == nil || r.ClaimedAt == nil {
		return Unclaimed()
	}
	return ClaimedBy(*r.ClaimedBy, time.Unix(0, *r.ClaimedAt*int64(time.Millisecond)))
}

// GetCreatedTime returns the created time as a time.Time
func (r *IntakeRequest) GetCreatedTime() time.Time {
	return time.Unix(0, r.CreatedTime*int64(time.Millisecond))
}

// GetUpdatedTime returns the updated time as a time.Time
func (r *IntakeRequest) GetUpdatedTime() time.Time {
	return time.Unix(0, r.UpdatedTime*int64(time.Millisecond))
}

// TriggeredRules decodes the stored triggered rule ID list
func (r *IntakeRequest) TriggeredRules() []string {
	if len(r.TriggeredRuleIDs) == 0 {
		return nil
	}
	var ids []string
	if err := json.Unmarshal(r.TriggeredRuleIDs, &ids); err != nil {
		return nil
	}
	return ids
}

// IntakeAPIRequest represents the API payload for submitting an intake request
type IntakeAPIRequest struct {
	ServiceType      string                 `json:"serviceType" binding:"required"`
	Answers          map[string]interface{} `json:"answers" binding:"required"`
	FormStartedTime  int64                  `json:"formStartedTime,omitempty"`
	FormSubmitedTime int64                  `json:"formSubmittedTime,omitempty"`
	ContactNumber    string                 `json:"contactNumber,omitempty"`
}

// IntakeAPIResponse represents the API response format for an intake request
type IntakeAPIResponse struct {
	ID               string   `json:"id"`
	PatientID        string   `json:"patientId"`
	ServiceType      string   `json:"serviceType"`
	Status           string   `json:"status"`
	RiskTier         string   `json:"riskTier,omitempty"`
	SafetyOutcome    string   `json:"safetyOutcome,omitempty"`
	RedFlags         []string `json:"redFlags,omitempty"`
	TriggeredRuleIDs []string `json:"triggeredRuleIds,omitempty"`
	ClaimedBy        *string  `json:"claimedBy,omitempty"`
	ClaimedAt        *int64   `json:"claimedAt,omitempty"`
	CreatedTime      int64    `json:"createdTime"`
	UpdatedTime      int64    `json:"updatedTime"`
}

// ToAPIResponse converts the stored model to the API response format
func (r *IntakeRequest) ToAPIResponse() *IntakeAPIResponse {
	return &IntakeAPIResponse{
		ID:               r.RequestID,
		PatientID:        r.PatientID,
		ServiceType:      r.ServiceType,
		Status:           r.CurrentStatus,
		RiskTier:         r.RiskTier,
		SafetyOutcome:    r.SafetyOutcome,
		TriggeredRuleIDs: r.TriggeredRules(),
		ClaimedBy:        r.ClaimedBy,
		ClaimedAt:        r.ClaimedAt,
		CreatedTime:      r.CreatedTime,
		UpdatedTime:      r.UpdatedTime,
	}
}

// DecisionAPIRequest represents the reviewer decision payload
type DecisionAPIRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason,omitempty"`
}

// QueueSearchParams represents search parameters for queue queries
type QueueSearchParams struct {
	Statuses []string `form:"statuses"`
	Limit    int      `form:"limit"`
	Offset   int      `form:"offset"`
	OrgID    string   `form:"-"` // Extracted from header
}
