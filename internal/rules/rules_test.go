package rules

import (
	"io"
	"log/slog"
	"testing"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestFromSpec(t *testing.T) {
	rule, err := FromSpec(Spec{Condition: "gitlab_event=Push Hook", Action: "env > /tmp/out"})
	if err != nil {
		t.Fatalf("FromSpec error: %v", err)
	}
	if rule.Action() != "env > /tmp/out" {
		t.Errorf("Action = %q, want %q", rule.Action(), "env > /tmp/out")
	}
	if !rule.Matches(map[string]string{"gitlab_event": "Push Hook"}) {
		t.Error("rule should match its own event")
	}
	if rule.Matches(map[string]string{"gitlab_event": "Tag Push Hook"}) {
		t.Error("rule should not match a different event")
	}
	if rule.Matches(map[string]string{"path": "/hook"}) {
		t.Error("rule should not match when the key is absent")
	}
}

func TestFromSpec_Errors(t *testing.T) {
	cases := []struct {
		name string
		spec Spec
	}{
		{"bad condition syntax", Spec{Condition: "bad syntax", Action: "x"}},
		{"non-string condition", Spec{Condition: 42, Action: "x"}},
		{"empty action", Spec{Condition: "a=1", Action: ""}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := FromSpec(tc.spec); err == nil {
				t.Error("expected error, got nil")
			}
		})
	}
}

func TestLoad_SkipsInvalidRules(t *testing.T) {
	specs := []Spec{
		{Condition: "a=1", Action: "X"},
		{Condition: "bad syntax", Action: "Y"},
	}
	loaded, err := Load(specs, discard())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if len(loaded) != 1 {
		t.Fatalf("len(loaded) = %d, want 1", len(loaded))
	}
	if loaded[0].Action() != "X" {
		t.Errorf("surviving action = %q, want %q", loaded[0].Action(), "X")
	}
}

func TestLoad_AllInvalidFails(t *testing.T) {
	specs := []Spec{
		{Condition: "bad syntax", Action: "X"},
		{Condition: "also bad", Action: "Y"},
	}
	if _, err := Load(specs, discard()); err == nil {
		t.Error("expected error when no rule survives")
	}
}

func TestDescribe_RoundTrip(t *testing.T) {
	rule, err := FromSpec(Spec{
		Condition: map[string]any{"all": []any{"a=1", "b!=2"}},
		Action:    "true",
	})
	if err != nil {
		t.Fatalf("FromSpec error: %v", err)
	}
	desc, ok := rule.Describe().(map[string]any)
	if !ok {
		t.Fatalf("Describe = %T, want map", rule.Describe())
	}
	if _, ok := desc["all"]; !ok {
		t.Errorf("Describe missing all key: %v", desc)
	}
}
