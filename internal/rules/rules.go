// Package rules binds parsed conditions to their actions and loads rule sets
// from decoded rule-file entries.
package rules

import (
	"fmt"
	"log/slog"

	"github.com/gyaneshwarpardhi/hookrunner/internal/condition"
)

// Spec is one rule entry as it appears in the rule file.
type Spec struct {
	Condition any    `yaml:"condition"`
	Action    string `yaml:"action"`
}

// Rule pairs a condition tree with an opaque shell command. A Rule is
// immutable after construction.
type Rule struct {
	cond   condition.Node
	action string
}

// FromSpec builds a Rule from a rule-file entry. The action is stored
// verbatim and never interpreted here; the condition must parse.
func FromSpec(s Spec) (*Rule, error) {
	if s.Action == "" {
		return nil, fmt.Errorf("rule has an empty action")
	}
	cond, err := condition.Parse(s.Condition)
	if err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}
	return &Rule{cond: cond, action: s.Action}, nil
}

// Matches reports whether the rule's condition holds for data.
func (r *Rule) Matches(data map[string]string) bool {
	return condition.Eval(r.cond, data)
}

// Action returns the opaque shell command to run when the rule matches.
func (r *Rule) Action() string {
	return r.action
}

// Describe returns the condition in its rule-file form.
func (r *Rule) Describe() any {
	return condition.Serialize(r.cond)
}

// Load builds rules from specs in order. A malformed spec is logged and
// skipped; loading only fails when no rule survives.
func Load(specs []Spec, log *slog.Logger) ([]*Rule, error) {
	loaded := make([]*Rule, 0, len(specs))
	for i, s := range specs {
		rule, err := FromSpec(s)
		if err != nil {
			log.Error("skipping invalid rule", "rule", i+1, "err", err)
			continue
		}
		loaded = append(loaded, rule)
	}
	if len(loaded) == 0 {
		return nil, fmt.Errorf("no valid rules out of %d entries", len(specs))
	}
	return loaded, nil
}
