package safety

import (
	"fmt"
	"strings"

	"github.com/spf13/cast"
)

// ConditionHandler evaluates one condition operator against an answer value.
// actual is the raw answer value (nil when the field is absent); expected is
// the value configured on the rule.
type ConditionHandler interface {
	// Operator returns the operator identifier this handler serves
	Operator() string
	// Evaluate reports whether the condition matches. An error means the
	// condition could not be evaluated and the engine must fail closed.
	Evaluate(actual interface{}, present bool, expected interface{}) (bool, error)
}

// ConditionRegistry holds all registered condition handlers
type ConditionRegistry struct {
	handlers map[string]ConditionHandler
}

var defaultRegistry *ConditionRegistry

// init registers all built-in handlers at package init time
func init() {
	defaultRegistry = NewConditionRegistry()

	_ = defaultRegistry.Register(&EqualsHandler{})
	_ = defaultRegistry.Register(&InHandler{negate: false})
	_ = defaultRegistry.Register(&InHandler{negate: true})
	_ = defaultRegistry.Register(&CompareHandler{greater: true})
	_ = defaultRegistry.Register(&CompareHandler{greater: false})
	_ = defaultRegistry.Register(&ContainsAnyHandler{})
	_ = defaultRegistry.Register(&MissingHandler{})
}

// NewConditionRegistry creates a new registry instance
func NewConditionRegistry() *ConditionRegistry {
	return &ConditionRegistry{
		handlers: make(map[string]ConditionHandler),
	}
}

// Register adds a handler to the registry.
// Returns error if a handler for this operator is already registered.
func (r *ConditionRegistry) Register(handler ConditionHandler) error {
	op := handler.Operator()
	if _, exists := r.handlers[op]; exists {
		return fmt.Errorf("handler for operator %q already registered", op)
	}
	r.handlers[op] = handler
	return nil
}

// Get retrieves a handler by operator.
// Returns error if no handler is registered for the operator.
func (r *ConditionRegistry) Get(op string) (ConditionHandler, error) {
	handler, exists := r.handlers[op]
	if !exists {
		return nil, fmt.Errorf("no handler registered for operator %q", op)
	}
	return handler, nil
}

// DefaultRegistry returns the global registry with the built-in handlers
func DefaultRegistry() *ConditionRegistry {
	return defaultRegistry
}

// EqualsHandler matches when the answer equals the expected value.
// Comparison is string-based after coercion so "true", true and 1 compare
// the way rule authors expect.
type EqualsHandler struct{}

func (h *EqualsHandler) Operator() string { return "equals" }

func (h *EqualsHandler) Evaluate(actual interface{}, present bool, expected interface{}) (bool, error) {
	if !present {
		return false, nil
	}
	actualStr, err := cast.ToStringE(actual)
	if err != nil {
		return false, fmt.Errorf("equals: cannot compare value of type %T", actual)
	}
	expectedStr, err := cast.ToStringE(expected)
	if err != nil {
		return false, fmt.Errorf("equals: invalid expected value of type %T", expected)
	}
	return strings.EqualFold(actualStr, expectedStr), nil
}

// InHandler matches when the answer is (or is not) one of the expected values
type InHandler struct {
	negate bool
}

func (h *InHandler) Operator() string {
	if h.negate {
		return "not_in"
	}
	return "in"
}

func (h *InHandler) Evaluate(actual interface{}, present bool, expected interface{}) (bool, error) {
	if !present {
		return false, nil
	}
	actualStr, err := cast.ToStringE(actual)
	if err != nil {
		return false, fmt.Errorf("%s: cannot compare value of type %T", h.Operator(), actual)
	}
	values, err := cast.ToStringSliceE(expected)
	if err != nil {
		return false, fmt.Errorf("%s: expected value must be a list, got %T", h.Operator(), expected)
	}

	found := false
	for _, v := range values {
		if strings.EqualFold(actualStr, v) {
			found = true
			break
		}
	}

	if h.negate {
		return !found, nil
	}
	return found, nil
}

// CompareHandler matches on numeric greater-than / less-than
type CompareHandler struct {
	greater bool
}

func (h *CompareHandler) Operator() string {
	if h.greater {
		return "gt"
	}
	return "lt"
}

func (h *CompareHandler) Evaluate(actual interface{}, present bool, expected interface{}) (bool, error) {
	if !present {
		return false, nil
	}
	actualNum, err := cast.ToFloat64E(actual)
	if err != nil {
		return false, fmt.Errorf("%s: answer value %v is not numeric", h.Operator(), actual)
	}
	expectedNum, err := cast.ToFloat64E(expected)
	if err != nil {
		return false, fmt.Errorf("%s: expected value %v is not numeric", h.Operator(), expected)
	}

	if h.greater {
		return actualNum > expectedNum, nil
	}
	return actualNum < expectedNum, nil
}

// ContainsAnyHandler matches when a list-valued answer shares at least one
// element with the expected list. A scalar answer is treated as a
// single-element list.
type ContainsAnyHandler struct{}

func (h *ContainsAnyHandler) Operator() string { return "contains_any" }

func (h *ContainsAnyHandler) Evaluate(actual interface{}, present bool, expected interface{}) (bool, error) {
	if !present {
		return false, nil
	}

	var actualValues []string
	switch actual.(type) {
	case []interface{}, []string:
		values, err := cast.ToStringSliceE(actual)
		if err != nil {
			return false, fmt.Errorf("contains_any: cannot read answer list: %v", actual)
		}
		actualValues = values
	default:
		value, err := cast.ToStringE(actual)
		if err != nil {
			return false, fmt.Errorf("contains_any: cannot compare value of type %T", actual)
		}
		actualValues = []string{value}
	}

	expectedValues, err := cast.ToStringSliceE(expected)
	if err != nil {
		return false, fmt.Errorf("contains_any: expected value must be a list, got %T", expected)
	}

	for _, a := range actualValues {
		for _, e := range expectedValues {
			if strings.EqualFold(a, e) {
				return true, nil
			}
		}
	}

	return false, nil
}

// MissingHandler matches when the field is absent or empty in the answers
type MissingHandler struct{}

func (h *MissingHandler) Operator() string { return "missing" }

func (h *MissingHandler) Evaluate(actual interface{}, present bool, _ interface{}) (bool, error) {
	if !present || actual == nil {
		return true, nil
	}
	if s, ok := actual.(string); ok && strings.TrimSpace(s) == "" {
		return true, nil
	}
	return false, nil
}
