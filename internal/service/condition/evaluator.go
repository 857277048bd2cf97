package condition

import (
	"log/slog"
	"strconv"
	"strings"

	"flowengine/entity"
	"flowengine/internal/service/variables"
)

// Condition types.
const (
	Equal       = "Equal"
	NotEqual    = "NotEqual"
	Contains    = "Contains"
	NotContains = "NotContains"
	GreaterThan = "GreaterThan"
	LessThan    = "LessThan"
)

// Operators combining a node's condition list.
const (
	OperatorNone = "None"
	OperatorAnd  = "And"
	OperatorOr   = "Or"
)

// Evaluate folds a node's ordered condition list over the variable
// snapshot. With OperatorNone only the first condition counts; extra
// conditions are ignored and logged.
func Evaluate(conditions []entity.Condition, operator string, vars map[string]string, log *slog.Logger) bool {
	if len(conditions) == 0 {
		return false
	}

	switch operator {
	case OperatorAnd:
		for _, c := range conditions {
			if !evalOne(c, vars) {
				return false
			}
		}
		return true
	case OperatorOr:
		for _, c := range conditions {
			if evalOne(c, vars) {
				return true
			}
		}
		return false
	default:
		if len(conditions) > 1 && log != nil {
			log.Warn("operator None with multiple conditions, extra conditions ignored",
				slog.Int("conditions", len(conditions)),
			)
		}
		return evalOne(conditions[0], vars)
	}
}

func evalOne(c entity.Condition, vars map[string]string) bool {
	value := vars[variables.Name(c.Variable)]

	switch c.CondType {
	case Equal:
		return strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(c.Value))
	case NotEqual:
		return !strings.EqualFold(strings.TrimSpace(value), strings.TrimSpace(c.Value))
	case Contains:
		return strings.Contains(strings.ToLower(value), strings.ToLower(c.Value))
	case NotContains:
		return !strings.Contains(strings.ToLower(value), strings.ToLower(c.Value))
	case GreaterThan:
		left, right, ok := parsePair(value, c.Value)
		return ok && left > right
	case LessThan:
		left, right, ok := parsePair(value, c.Value)
		return ok && left < right
	}
	return false
}

// parsePair coerces both sides to numbers; a non-numeric side makes the
// comparison false.
func parsePair(a, b string) (float64, float64, bool) {
	left, err := strconv.ParseFloat(strings.TrimSpace(a), 64)
	if err != nil {
		return 0, 0, false
	}
	right, err := strconv.ParseFloat(strings.TrimSpace(b), 64)
	if err != nil {
		return 0, 0, false
	}
	return left, right, true
}
