// Package alert delivers queue health alerts to an external webhook.
package alert

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/config"
)

// Severity levels for alerts
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Sink receives alerts raised by the queue health monitor and the
// stale-claim sweep failure path
type Sink interface {
	Notify(ctx context.Context, severity, message string, alertContext map[string]interface{})
}

// alertPayload is the wire format posted to the webhook
type alertPayload struct {
	Severity  string                 `json:"severity"`
	Message   string                 `json:"message"`
	Context   map[string]interface{} `json:"context,omitempty"`
	Source    string                 `json:"source"`
	Timestamp int64                  `json:"timestamp"`
}

// WebhookSink posts alerts to the configured webhook URL
type WebhookSink struct {
	httpClient *http.Client
	config     *config.AlertingConfig
	logger     *logrus.Logger
}

// NewWebhookSink creates a webhook-backed alert sink
func NewWebhookSink(cfg *config.AlertingConfig, logger *logrus.Logger) *WebhookSink {
	timeout := 10 * time.Second
	if cfg.Timeout > 0 {
		timeout = cfg.Timeout
	}

	return &WebhookSink{
		httpClient: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		config: cfg,
		logger: logger,
	}
}

// Notify posts the alert to the webhook with bounded retries. Delivery is
// best-effort: failures are logged, never surfaced to the caller.
func (s *WebhookSink) Notify(ctx context.Context, severity, message string, alertContext map[string]interface{}) {
	if !s.config.Enabled || s.config.WebhookURL == "" {
		s.logger.WithFields(logrus.Fields{
			"severity": severity,
			"message":  message,
		}).Warn("Alerting disabled, alert logged only")
		return
	}

	payload := alertPayload{
		Severity:  severity,
		Message:   message,
		Context:   alertContext,
		Source:    "intake-review-api",
		Timestamp: time.Now().UnixNano() / int64(time.Millisecond),
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		s.logger.WithError(err).Error("Failed to marshal alert payload")
		return
	}

	attempts := s.config.RetryAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if lastErr = s.post(ctx, jsonData); lastErr == nil {
			return
		}

		s.logger.WithError(lastErr).WithFields(logrus.Fields{
			"attempt":  attempt,
			"severity": severity,
		}).Warn("Alert delivery failed")

		if attempt < attempts {
			select {
			case <-ctx.Done():
				return
			case <-time.After(time.Duration(attempt) * time.Second):
			}
		}
	}

	s.logger.WithError(lastErr).WithFields(logrus.Fields{
		"severity": severity,
		"message":  message,
	}).Error("Alert delivery exhausted retries")
}

func (s *WebhookSink) post(ctx context.Context, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.config.WebhookURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create alert request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to post alert: %w", err)
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("alert webhook returned status %d", resp.StatusCode)
	}

	return nil
}

// LogSink writes alerts to the application log only. Used when no webhook
// is configured and in tests.
type LogSink struct {
	logger *logrus.Logger
}

// NewLogSink creates a log-only alert sink
func NewLogSink(logger *logrus.Logger) *LogSink {
	return &LogSink{logger: logger}
}

// Notify logs the alert
func (s *LogSink) Notify(_ context.Context, severity, message string, alertContext map[string]interface{}) {
	s.logger.WithFields(logrus.Fields{
		"severity": severity,
		"context":  alertContext,
	}).Warn(message)
}
