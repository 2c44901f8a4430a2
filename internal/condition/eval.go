package condition

import "strings"

// Eval evaluates a condition tree against a flat string map. It is total:
// a missing key makes the enclosing literal false rather than an error, and
// the data map is never mutated.
func Eval(n Node, data map[string]string) bool {
	switch node := n.(type) {
	case *Literal:
		return evalLiteral(node, data)
	case *Not:
		return !Eval(node.Child, data)
	case *All:
		for _, child := range node.Children {
			if !Eval(child, data) {
				return false
			}
		}
		return true
	case *Any:
		for _, child := range node.Children {
			if Eval(child, data) {
				return true
			}
		}
		return false
	default:
		return false
	}
}

func evalLiteral(lit *Literal, data map[string]string) bool {
	value, ok := data[lit.LHS]
	if !ok {
		return false
	}
	value = strings.TrimSpace(value)

	switch lit.Op {
	case OpEq:
		return value == lit.RHS
	case OpNeq:
		return value != lit.RHS
	case OpMatch:
		return lit.re.MatchString(value)
	case OpNotMatch:
		return !lit.re.MatchString(value)
	}
	return false
}
