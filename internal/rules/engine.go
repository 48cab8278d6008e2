// Package rules provides a YAML-based rules engine that assigns categories
// to imported transactions by payee.
package rules

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// MatchType defines how patterns are matched against payees
type MatchType string

const (
	// MatchTypeExact requires the pattern to match the entire payee exactly
	MatchTypeExact MatchType = "exact"
	// MatchTypeContains requires the pattern to be a substring of the payee
	MatchTypeContains MatchType = "contains"
)

// Rule represents a single categorization rule.
//
// Rules are created via YAML loading (NewEngine, LoadFromFile) or the
// NewRule constructor; both validate all invariants:
//   - Priority in range [0, 999]
//   - Pattern must not be empty after trimming
//   - MatchType must be "exact" or "contains"
//   - Tag must not be empty
type Rule struct {
	Name      string    `yaml:"name"`
	Pattern   string    `yaml:"pattern"`
	MatchType MatchType `yaml:"match_type"`
	Priority  int       `yaml:"priority"`
	// Tag is the category ID applied to matching transactions.
	Tag string `yaml:"tag"`
}

// NewRule creates a validated rule.
func NewRule(name, pattern string, matchType MatchType, priority int, tag string) (*Rule, error) {
	r := Rule{Name: name, Pattern: pattern, MatchType: matchType, Priority: priority, Tag: tag}
	if err := validateRule(&r); err != nil {
		return nil, err
	}
	return &r, nil
}

func validateRule(r *Rule) error {
	if r.Priority < 0 || r.Priority > 999 {
		return fmt.Errorf("priority must be in [0,999], got %d", r.Priority)
	}
	if r.MatchType != MatchTypeExact && r.MatchType != MatchTypeContains {
		return fmt.Errorf("invalid match_type %q (must be 'exact' or 'contains')", r.MatchType)
	}
	if strings.TrimSpace(r.Pattern) == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	if r.Tag == "" {
		return fmt.Errorf("tag cannot be empty")
	}
	return nil
}

// ruleSet represents the top-level YAML structure
type ruleSet struct {
	Rules []Rule `yaml:"rules"`
}

// Engine performs rule matching on payees
type Engine struct {
	rules []Rule // sorted by priority, highest first
}

// NewEngine creates a rules engine from YAML data
func NewEngine(rulesData []byte) (*Engine, error) {
	var set ruleSet
	if err := yaml.Unmarshal(rulesData, &set); err != nil {
		return nil, fmt.Errorf("failed to parse YAML rules (check syntax, indentation, and field names): %w", err)
	}

	for i, rule := range set.Rules {
		if err := validateRule(&rule); err != nil {
			return nil, fmt.Errorf("rule %d (%s): %w", i, rule.Name, err)
		}
	}

	// Stable sort preserves YAML file order for equal priorities, which
	// keeps matching deterministic.
	sorted := make([]Rule, len(set.Rules))
	copy(sorted, set.Rules)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Priority > sorted[j].Priority
	})

	return &Engine{rules: sorted}, nil
}

// LoadFromFile loads rules from a filesystem path
func LoadFromFile(path string) (*Engine, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read rules file: %w", err)
	}
	engine, err := NewEngine(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load rules from %q: %w", path, err)
	}
	return engine, nil
}

// Match applies rules to a payee and returns the tag of the first match.
// Rules are evaluated in priority order (highest first); equal priorities
// keep their YAML file order. Returns ("", false) if no rules match.
func (e *Engine) Match(payee string) (string, bool) {
	normalized := strings.ToLower(strings.TrimSpace(payee))

	for _, rule := range e.rules {
		pattern := strings.ToLower(strings.TrimSpace(rule.Pattern))

		matched := false
		switch rule.MatchType {
		case MatchTypeExact:
			matched = normalized == pattern
		case MatchTypeContains:
			matched = strings.Contains(normalized, pattern)
		}

		if matched {
			return rule.Tag, true
		}
	}
	return "", false
}

// Rules returns a copy of the rules in matching order, for inspection.
func (e *Engine) Rules() []Rule {
	result := make([]Rule, len(e.rules))
	copy(result, e.rules)
	return result
}
