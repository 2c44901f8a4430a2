// Package condition implements a small boolean-expression checker over flat
// string-to-string maps. A condition is a tree of nodes: literal comparisons
// at the leaves ("key = value", "key ~= regex", …) combined with any / all /
// not operators. Trees are built from the decoded YAML rule file with Parse
// and turned back into their source form with Serialize.
package condition

import (
	"fmt"
	"regexp"
	"strings"
)

// -----------------------------------------------------------------------
// AST nodes
// -----------------------------------------------------------------------

// Node is the common interface for all condition nodes.
// A tree is immutable after Parse; Eval never mutates it.
type Node interface {
	node()
}

// Literal is a terminal comparison of the form "key <op> operand".
type Literal struct {
	// Raw is the original source string, preserved verbatim so that
	// Serialize round-trips byte for byte.
	Raw string

	LHS string   // trimmed key
	Op  Operator //
	RHS string   // trimmed operand; regex pattern for match operators

	re *regexp.Regexp // compiled, anchored pattern; nil for = and !=
}

func (*Literal) node() {}

// Not negates exactly one child.
type Not struct {
	Child Node
}

func (*Not) node() {}

// All is a logical AND over its children. An empty All is vacuously true.
type All struct {
	Children []Node
}

func (*All) node() {}

// Any is a logical OR over its children. An empty Any is false.
type Any struct {
	Children []Node
}

func (*Any) node() {}

// Operator is the comparison operator of a Literal.
type Operator string

const (
	OpEq       Operator = "="
	OpNeq      Operator = "!="
	OpMatch    Operator = "~="
	OpNotMatch Operator = "!~="
)

// -----------------------------------------------------------------------
// Errors
// -----------------------------------------------------------------------

// InvalidExpressionError reports a malformed condition description.
type InvalidExpressionError struct {
	msg string
}

func (e *InvalidExpressionError) Error() string { return e.msg }

func invalidf(format string, args ...any) error {
	return &InvalidExpressionError{msg: fmt.Sprintf(format, args...)}
}

// -----------------------------------------------------------------------
// Parser
// -----------------------------------------------------------------------

// literalRe splits a terminal expression into key, operator, and operand.
// The key supports word characters and embedded whitespace only.
var literalRe = regexp.MustCompile(`^(?P<LHS>\w[\w\s]*)(?P<OP>=|!=|~=|!~=)(?P<RHS>.*)$`)

// Parse builds a condition tree from a decoded YAML value. The value must be
// either a literal string or a single-key mapping whose key (case-insensitive)
// is one of "any", "all", or "not"; any/all take a sequence of sub-conditions,
// not takes a one-element sequence. Depth is bounded only by the input.
func Parse(v any) (Node, error) {
	switch obj := v.(type) {
	case string:
		return parseLiteral(obj)
	case map[string]any:
		return parseCompound(obj)
	default:
		return nil, invalidf("%v (%T) needs to be either a string or a mapping", v, v)
	}
}

func parseLiteral(expr string) (*Literal, error) {
	m := literalRe.FindStringSubmatch(expr)
	if m == nil {
		return nil, invalidf("%q is not a valid key<OP>value expression", expr)
	}

	lit := &Literal{
		Raw: expr,
		LHS: strings.TrimSpace(m[1]),
		Op:  Operator(m[2]),
		RHS: strings.TrimSpace(m[3]),
	}

	if lit.Op == OpMatch || lit.Op == OpNotMatch {
		// Anchor at the start: match operators have search-from-start
		// (prefix) semantics, not full-string semantics.
		re, err := regexp.Compile("^(?:" + lit.RHS + ")")
		if err != nil {
			return nil, invalidf("%q has an invalid pattern: %v", expr, err)
		}
		lit.re = re
	}
	return lit, nil
}

func parseCompound(obj map[string]any) (Node, error) {
	if len(obj) != 1 {
		return nil, invalidf("mapping must have one key only, got %d", len(obj))
	}

	var key string
	var value any
	for k, v := range obj {
		key, value = k, v
	}

	op := strings.ToLower(key)
	if op != "any" && op != "all" && op != "not" {
		return nil, invalidf("%q is not a valid operator", key)
	}

	seq, ok := value.([]any)
	if !ok {
		return nil, invalidf("%s operator expects a sequence", op)
	}

	if op == "not" {
		if len(seq) != 1 {
			return nil, invalidf("not operator expects exactly one element, got %d", len(seq))
		}
		child, err := Parse(seq[0])
		if err != nil {
			return nil, err
		}
		return &Not{Child: child}, nil
	}

	children := make([]Node, 0, len(seq))
	for _, el := range seq {
		child, err := Parse(el)
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}

	if op == "all" {
		return &All{Children: children}, nil
	}
	return &Any{Children: children}, nil
}

// -----------------------------------------------------------------------
// Serializer
// -----------------------------------------------------------------------

// Serialize is the inverse of Parse: literals reproduce their original source
// string and compound nodes become single-key mappings keyed by the
// lower-cased operator name. Serialize(Parse(x)) == x for every valid x.
func Serialize(n Node) any {
	switch node := n.(type) {
	case *Literal:
		return node.Raw
	case *Not:
		return map[string]any{"not": []any{Serialize(node.Child)}}
	case *All:
		return map[string]any{"all": serializeChildren(node.Children)}
	case *Any:
		return map[string]any{"any": serializeChildren(node.Children)}
	default:
		return nil
	}
}

func serializeChildren(nodes []Node) []any {
	out := make([]any, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, Serialize(n))
	}
	return out
}
