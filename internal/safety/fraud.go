package safety

import (
	"time"
)

// Fraud signal types
const (
	SignalSuspiciousIdentifier = "suspicious_identifier"
	SignalRapidCompletion      = "rapid_completion"
)

// Completion-speed thresholds
const (
	rapidCompletionHighBound   = 10 * time.Second
	rapidCompletionMediumBound = 30 * time.Second
)

// SeverityMedium exists only on fraud signals, which grade on their own
// high/medium scale rather than the rule risk tiers.
const SeverityMedium Severity = "medium"

// Signal is an advisory fraud indicator. Signals raise reviewer attention;
// they never force a BLOCK outcome on their own.
type Signal struct {
	Type     string   `json:"type"`
	Severity Severity `json:"severity"`
}

// CheckIdentifierPattern flags identifier strings that look fabricated:
// all-identical digits or a strictly sequential run, ascending or
// descending. Anything containing a non-digit, or any mixed digit string,
// is never flagged; false positives are worse than misses here.
func CheckIdentifierPattern(identifier string) *Signal {
	if len(identifier) < 2 {
		return nil
	}

	for _, r := range identifier {
		if r < '0' || r > '9' {
			return nil
		}
	}

	identical := true
	ascending := true
	descending := true
	for i := 1; i < len(identifier); i++ {
		diff := int(identifier[i]) - int(identifier[i-1])
		if diff != 0 {
			identical = false
		}
		if diff != 1 {
			ascending = false
		}
		if diff != -1 {
			descending = false
		}
	}

	if identical || ascending || descending {
		return &Signal{Type: SignalSuspiciousIdentifier, Severity: SeverityHigh}
	}

	return nil
}

// CheckCompletionSpeed flags forms completed implausibly fast. Under 10
// seconds is high severity, 10 to just under 30 seconds is medium, and 30
// seconds or more is not flagged (the boundary is inclusive on the
// not-flagged side).
func CheckCompletionSpeed(startTime, endTime time.Time) *Signal {
	if startTime.IsZero() || endTime.IsZero() || endTime.Before(startTime) {
		return nil
	}

	elapsed := endTime.Sub(startTime)
	switch {
	case elapsed < rapidCompletionHighBound:
		return &Signal{Type: SignalRapidCompletion, Severity: SeverityHigh}
	case elapsed < rapidCompletionMediumBound:
		return &Signal{Type: SignalRapidCompletion, Severity: SeverityMedium}
	default:
		return nil
	}
}
