// Package safety implements the deterministic rule evaluation that gates
// intake requests before human review, plus the advisory fraud heuristics.
package safety

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/careloop/intake-review-api/internal/audit"
	"github.com/careloop/intake-review-api/internal/clock"
	"github.com/careloop/intake-review-api/internal/models"
)

// Outcome is the gate decision produced by an evaluation
type Outcome string

const (
	// OutcomeAllow admits the request into the review queue with no flags
	// requiring heightened attention
	OutcomeAllow Outcome = "ALLOW"
	// OutcomeReview admits the request into the review queue with flags the
	// reviewer must weigh
	OutcomeReview Outcome = "REVIEW"
	// OutcomeBlock declines the request without human review. This is the
	// only outcome that may terminate a request automatically.
	OutcomeBlock Outcome = "BLOCK"
)

// RuleOutcome records how a single rule evaluated against one request
type RuleOutcome struct {
	RuleID   string   `json:"ruleId"`
	Passed   bool     `json:"passed"`
	Reason   string   `json:"reason,omitempty"`
	Severity Severity `json:"severity"`
}

// Evaluation is the full result of evaluating one request's answers
type Evaluation struct {
	Outcome              Outcome       `json:"outcome"`
	RiskTier             Severity      `json:"riskTier"`
	RedFlags             []string      `json:"redFlags"`
	TriggeredRuleIDs     []string      `json:"triggeredRuleIds"`
	SuggestedDecision    string        `json:"suggestedDecision"`
	EvaluationDurationMs int64         `json:"evaluationDurationMs"`
	RuleOutcomes         []RuleOutcome `json:"ruleOutcomes"`
}

// Engine evaluates intake answers against the configured rule set.
// Evaluate performs no I/O; the same rule set and answers always produce
// the same result.
type Engine struct {
	rules    RuleProvider
	registry *ConditionRegistry
	sink     audit.Sink
	clk      clock.Clock
	logger   *logrus.Logger
}

// NewEngine creates a safety rule engine using the built-in condition handlers
func NewEngine(rules RuleProvider, sink audit.Sink, clk clock.Clock, logger *logrus.Logger) *Engine {
	return &Engine{
		rules:    rules,
		registry: DefaultRegistry(),
		sink:     sink,
		clk:      clk,
		logger:   logger,
	}
}

// Evaluate runs every configured rule for the service type against the
// answers. Evaluation stops early only when a knockout rule triggers.
// Any internal failure (malformed answers, unknown operator, panicking
// handler) fails closed: BLOCK at critical tier, never ALLOW.
func (e *Engine) Evaluate(serviceType string, answers map[string]interface{}) (result Evaluation) {
	started := e.clk.Now()

	defer func() {
		if p := recover(); p != nil {
			result = failClosed(fmt.Sprintf("rule evaluation panic: %v", p))
			result.EvaluationDurationMs = e.clk.Now().Sub(started).Milliseconds()
		}
	}()

	if len(answers) == 0 {
		result = failClosed("malformed answers: empty payload")
		result.EvaluationDurationMs = e.clk.Now().Sub(started).Milliseconds()
		return result
	}

	rules, known := e.rules.Current().ForServiceType(serviceType)
	if !known {
		result = failClosed(fmt.Sprintf("no rules configured for service type %q", serviceType))
		result.EvaluationDurationMs = e.clk.Now().Sub(started).Milliseconds()
		return result
	}

	result = Evaluation{
		Outcome:      OutcomeAllow,
		RiskTier:     SeverityLow,
		RedFlags:     []string{},
		RuleOutcomes: make([]RuleOutcome, 0, len(rules)),
	}

	for _, rule := range rules {
		triggered, err := e.evaluateRule(rule, answers)
		if err != nil {
			failed := failClosed(fmt.Sprintf("rule %s could not be evaluated: %v", rule.RuleID, err))
			failed.RuleOutcomes = append(result.RuleOutcomes, RuleOutcome{
				RuleID:   rule.RuleID,
				Passed:   false,
				Reason:   err.Error(),
				Severity: SeverityCritical,
			})
			failed.EvaluationDurationMs = e.clk.Now().Sub(started).Milliseconds()
			return failed
		}

		outcome := RuleOutcome{
			RuleID:   rule.RuleID,
			Passed:   !triggered,
			Severity: rule.Severity,
		}
		if triggered {
			outcome.Reason = ruleReason(rule)
		}
		result.RuleOutcomes = append(result.RuleOutcomes, outcome)

		if !triggered {
			continue
		}

		result.TriggeredRuleIDs = append(result.TriggeredRuleIDs, rule.RuleID)
		result.RedFlags = append(result.RedFlags, ruleReason(rule))

		// Knockout rules take precedence over cumulative scoring and end
		// the evaluation immediately.
		if rule.Knockout {
			result.Outcome = OutcomeBlock
			result.RiskTier = SeverityCritical
			result.SuggestedDecision = suggestedDecision(OutcomeBlock)
			result.EvaluationDurationMs = e.clk.Now().Sub(started).Milliseconds()
			return result
		}

		result.RiskTier = MaxSeverity(result.RiskTier, rule.Severity)
		if severityRank[rule.Severity] >= severityRank[SeverityModerate] {
			result.Outcome = OutcomeReview
		}
	}

	result.SuggestedDecision = suggestedDecision(result.Outcome)
	result.EvaluationDurationMs = e.clk.Now().Sub(started).Milliseconds()
	return result
}

// EvaluateAndRecord evaluates the answers and records the full outcome list
// and timing to the audit trail. The audit write is best-effort and never
// changes the evaluation result.
func (e *Engine) EvaluateAndRecord(ctx context.Context, requestID, orgID, serviceType string, answers map[string]interface{}) Evaluation {
	evaluation := e.Evaluate(serviceType, answers)
	e.RecordEvaluation(ctx, requestID, orgID, serviceType, evaluation)
	return evaluation
}

// RecordEvaluation writes the audit record for an evaluation that was
// already computed. Used when the caller needs the result before the
// request row exists.
func (e *Engine) RecordEvaluation(ctx context.Context, requestID, orgID, serviceType string, evaluation Evaluation) {
	event := audit.Event(requestID, orgID, models.AuditEventSafetyEvaluation)
	audit.WithActor(event, "safety-engine", models.ActorRoleSystem)
	audit.WithMetadata(event, map[string]interface{}{
		"serviceType":          serviceType,
		"outcome":              evaluation.Outcome,
		"riskTier":             evaluation.RiskTier,
		"triggeredRuleIds":     evaluation.TriggeredRuleIDs,
		"redFlags":             evaluation.RedFlags,
		"ruleOutcomes":         evaluation.RuleOutcomes,
		"evaluationDurationMs": evaluation.EvaluationDurationMs,
	})
	e.sink.Record(ctx, event)

	e.logger.WithFields(logrus.Fields{
		"request_id":   requestID,
		"service_type": serviceType,
		"outcome":      evaluation.Outcome,
		"risk_tier":    evaluation.RiskTier,
		"triggered":    len(evaluation.TriggeredRuleIDs),
	}).Info("Safety evaluation completed")
}

func (e *Engine) evaluateRule(rule Rule, answers map[string]interface{}) (bool, error) {
	handler, err := e.registry.Get(rule.Condition.Operator)
	if err != nil {
		return false, err
	}

	actual, present := answers[rule.Condition.Field]
	return handler.Evaluate(actual, present, rule.Condition.Value)
}

// failClosed builds the most restrictive evaluation result. Internal errors
// must never fail open.
func failClosed(reason string) Evaluation {
	return Evaluation{
		Outcome:           OutcomeBlock,
		RiskTier:          SeverityCritical,
		RedFlags:          []string{"evaluation_error: " + reason},
		SuggestedDecision: suggestedDecision(OutcomeBlock),
	}
}

func ruleReason(rule Rule) string {
	if rule.Reason != "" {
		return rule.Reason
	}
	return rule.RuleID
}

// suggestedDecision maps the outcome to advisory text for the reviewer UI.
// It carries no authority: only a BLOCK outcome terminates a request
// without human review.
func suggestedDecision(outcome Outcome) string {
	switch outcome {
	case OutcomeBlock:
		return "Decline: a blocking safety rule was triggered"
	case OutcomeReview:
		return "Review flagged answers carefully before deciding"
	default:
		return "No safety flags raised; approve if clinical history is consistent"
	}
}
