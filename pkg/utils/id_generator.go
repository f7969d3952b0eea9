package utils

import (
	"github.com/google/uuid"
)

// GenerateID generates a new UUID for request or audit IDs
func GenerateID() string {
	return uuid.New().String()
}

// GenerateRequestID generates a unique intake request ID
func GenerateRequestID() string {
	return "REQ-" + uuid.New().String()
}

// GenerateAuditID generates a unique audit event ID
func GenerateAuditID() string {
	return "AUDIT-" + uuid.New().String()
}

// IsValidUUID checks if a string is a valid UUID
func IsValidUUID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
