package mocks

import (
	"context"
	"sync"

	"github.com/careloop/intake-review-api/internal/models"
)

// RecordingAuditSink captures recorded audit events in memory
type RecordingAuditSink struct {
	mu     sync.Mutex
	events []*models.AuditEvent
}

// Record appends the event to the in-memory list
func (s *RecordingAuditSink) Record(_ context.Context, event *models.AuditEvent) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
}

// Events returns a snapshot of the recorded events
func (s *RecordingAuditSink) Events() []*models.AuditEvent {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.AuditEvent{}, s.events...)
}

// EventsOfType returns the recorded events matching the event type
func (s *RecordingAuditSink) EventsOfType(eventType string) []*models.AuditEvent {
	var matched []*models.AuditEvent
	for _, event := range s.Events() {
		if event.EventType == eventType {
			matched = append(matched, event)
		}
	}
	return matched
}

// RecordedAlert is one alert captured by RecordingAlertSink
type RecordedAlert struct {
	Severity string
	Message  string
	Context  map[string]interface{}
}

// RecordingAlertSink captures alerts in memory
type RecordingAlertSink struct {
	mu     sync.Mutex
	alerts []RecordedAlert
}

// Notify appends the alert to the in-memory list
func (s *RecordingAlertSink) Notify(_ context.Context, severity, message string, alertContext map[string]interface{}) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alerts = append(s.alerts, RecordedAlert{Severity: severity, Message: message, Context: alertContext})
}

// Alerts returns a snapshot of the captured alerts
func (s *RecordingAlertSink) Alerts() []RecordedAlert {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]RecordedAlert{}, s.alerts...)
}
