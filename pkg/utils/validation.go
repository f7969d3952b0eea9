package utils

import (
	"fmt"
)

// ValidateRequestID validates intake request ID format
func ValidateRequestID(requestID string) error {
	if requestID == "" {
		return fmt.Errorf("request ID cannot be empty")
	}
	if len(requestID) > 255 {
		return fmt.Errorf("request ID too long (max 255 characters)")
	}
	return nil
}

// ValidateReviewerID validates reviewer ID format
func ValidateReviewerID(reviewerID string) error {
	if reviewerID == "" {
		return fmt.Errorf("reviewer ID cannot be empty")
	}
	if len(reviewerID) > 255 {
		return fmt.Errorf("reviewer ID too long (max 255 characters)")
	}
	return nil
}

// ValidateOrgID validates organization ID
func ValidateOrgID(orgID string) error {
	if orgID == "" {
		return fmt.Errorf("organization ID cannot be empty")
	}
	if len(orgID) > 255 {
		return fmt.Errorf("organization ID too long (max 255 characters)")
	}
	return nil
}

// ValidateServiceType validates the clinical service type
func ValidateServiceType(serviceType string) error {
	if serviceType == "" {
		return fmt.Errorf("service type cannot be empty")
	}
	if len(serviceType) > 64 {
		return fmt.Errorf("service type too long (max 64 characters)")
	}
	return nil
}

// ValidateRequired checks that a required string field is non-empty
func ValidateRequired(fieldName, value string) error {
	if value == "" {
		return fmt.Errorf("%s is required", fieldName)
	}
	return nil
}
