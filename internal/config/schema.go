package config

import (
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/gyaneshwarpardhi/hookrunner/internal/rules"
)

// RuleFile is the YAML rule-file document: an ordered sequence of
// {condition, action} entries. A document holding a single mapping is
// treated as a one-element sequence.
type RuleFile struct {
	Rules []rules.Spec
}

func (f *RuleFile) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		return node.Decode(&f.Rules)
	case yaml.MappingNode:
		var one rules.Spec
		if err := node.Decode(&one); err != nil {
			return err
		}
		f.Rules = []rules.Spec{one}
		return nil
	default:
		return fmt.Errorf("rule file must be a sequence of rules or a single rule mapping")
	}
}
