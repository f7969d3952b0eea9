package safety

import (
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Severity is the coarse risk classification attached to rules and evaluations
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityModerate Severity = "moderate"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

var severityRank = map[Severity]int{
	SeverityLow:      0,
	SeverityModerate: 1,
	SeverityHigh:     2,
	SeverityCritical: 3,
}

// IsValidSeverity reports whether the string names a known severity
func IsValidSeverity(s string) bool {
	_, ok := severityRank[Severity(s)]
	return ok
}

// MaxSeverity returns the more severe of two severities
func MaxSeverity(a, b Severity) Severity {
	if severityRank[b] > severityRank[a] {
		return b
	}
	return a
}

// Condition is a single predicate over the answers payload
type Condition struct {
	Field    string      `mapstructure:"field"`
	Operator string      `mapstructure:"operator"`
	Value    interface{} `mapstructure:"value"`
}

// Rule is one safety rule scoped to a service type. Knockout rules force a
// BLOCK outcome on their own and stop further evaluation.
type Rule struct {
	RuleID      string    `mapstructure:"ruleId"`
	ServiceType string    `mapstructure:"serviceType"`
	Priority    int       `mapstructure:"priority"`
	Knockout    bool      `mapstructure:"knockout"`
	Severity    Severity  `mapstructure:"severity"`
	Reason      string    `mapstructure:"reason"`
	Condition   Condition `mapstructure:"condition"`
}

// RuleSet is a versioned, immutable snapshot of the configured rules.
// Hot reloads replace the whole set; a loaded set is never mutated.
type RuleSet struct {
	Version        int
	rulesByService map[string][]Rule
}

// ForServiceType returns the rules for a service type in fixed priority
// order, and whether the service type is configured at all
func (rs *RuleSet) ForServiceType(serviceType string) ([]Rule, bool) {
	rules, ok := rs.rulesByService[serviceType]
	return rules, ok
}

// ServiceTypes returns the configured service types, sorted
func (rs *RuleSet) ServiceTypes() []string {
	types := make([]string, 0, len(rs.rulesByService))
	for t := range rs.rulesByService {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// ruleFile mirrors the YAML rule configuration file
type ruleFile struct {
	Version int    `mapstructure:"version"`
	Rules   []Rule `mapstructure:"rules"`
}

// NewRuleSet builds an immutable rule set from configured rules.
// Rules are grouped per service type and ordered by priority, with the
// rule ID as tiebreaker so evaluation order is fully deterministic.
func NewRuleSet(version int, rules []Rule) (*RuleSet, error) {
	byService := make(map[string][]Rule)
	seen := make(map[string]bool)

	for _, rule := range rules {
		if rule.RuleID == "" {
			return nil, fmt.Errorf("rule without ruleId")
		}
		if seen[rule.RuleID] {
			return nil, fmt.Errorf("duplicate rule ID: %s", rule.RuleID)
		}
		seen[rule.RuleID] = true

		if rule.ServiceType == "" {
			return nil, fmt.Errorf("rule %s: serviceType is required", rule.RuleID)
		}
		if !IsValidSeverity(string(rule.Severity)) {
			return nil, fmt.Errorf("rule %s: invalid severity %q", rule.RuleID, rule.Severity)
		}
		if rule.Condition.Field == "" || rule.Condition.Operator == "" {
			return nil, fmt.Errorf("rule %s: condition field and operator are required", rule.RuleID)
		}

		byService[rule.ServiceType] = append(byService[rule.ServiceType], rule)
	}

	for serviceType := range byService {
		rules := byService[serviceType]
		sort.SliceStable(rules, func(i, j int) bool {
			if rules[i].Priority != rules[j].Priority {
				return rules[i].Priority < rules[j].Priority
			}
			return rules[i].RuleID < rules[j].RuleID
		})
	}

	return &RuleSet{
		Version:        version,
		rulesByService: byService,
	}, nil
}

// RuleProvider supplies the current rule set to the engine
type RuleProvider interface {
	Current() *RuleSet
}

// StaticRuleProvider always returns the same rule set, for tests
type StaticRuleProvider struct {
	Set *RuleSet
}

// Current returns the static rule set
func (p StaticRuleProvider) Current() *RuleSet {
	return p.Set
}

// FileRuleProvider loads the rule set from a YAML file and optionally
// watches it for changes. Reloads are atomic pointer swaps; readers
// always see a complete set.
type FileRuleProvider struct {
	viper   *viper.Viper
	current atomic.Pointer[RuleSet]
	logger  *logrus.Logger
}

// LoadRules creates a file-backed rule provider from the given path
func LoadRules(path string, watch bool, logger *logrus.Logger) (*FileRuleProvider, error) {
	v := viper.New()
	v.SetConfigFile(path)

	provider := &FileRuleProvider{
		viper:  v,
		logger: logger,
	}

	if err := provider.reload(); err != nil {
		return nil, err
	}

	if watch {
		v.OnConfigChange(func(event fsnotify.Event) {
			if err := provider.reload(); err != nil {
				logger.WithError(err).Error("Failed to reload safety rules, keeping previous set")
				return
			}
			logger.WithFields(logrus.Fields{
				"file":    event.Name,
				"version": provider.Current().Version,
			}).Info("Safety rules reloaded")
		})
		v.WatchConfig()
	}

	return provider, nil
}

// Current returns the active rule set
func (p *FileRuleProvider) Current() *RuleSet {
	return p.current.Load()
}

func (p *FileRuleProvider) reload() error {
	if err := p.viper.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read rules file: %w", err)
	}

	var file ruleFile
	if err := p.viper.Unmarshal(&file); err != nil {
		return fmt.Errorf("failed to unmarshal rules file: %w", err)
	}

	ruleSet, err := NewRuleSet(file.Version, file.Rules)
	if err != nil {
		return fmt.Errorf("invalid rule set: %w", err)
	}

	p.current.Store(ruleSet)

	p.logger.WithFields(logrus.Fields{
		"version":       ruleSet.Version,
		"service_types": len(ruleSet.rulesByService),
	}).Info("Safety rules loaded")

	return nil
}
