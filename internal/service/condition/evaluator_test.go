package condition

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"

	"flowengine/entity"
)

var testLog = slog.New(slog.NewTextHandler(io.Discard, nil))

func cond(condType, variable, value string) entity.Condition {
	return entity.Condition{CondType: condType, Variable: variable, Value: value}
}

func TestEvaluateSingleCondition(t *testing.T) {
	vars := map[string]string{
		"answer": "Myes",
		"age":    "25",
		"city":   " Kyiv ",
	}

	cases := []struct {
		name string
		c    entity.Condition
		want bool
	}{
		{"equal case insensitive", cond(Equal, "@city", "kyiv"), true},
		{"equal trims", cond(Equal, "city", "Kyiv"), true},
		{"equal miss", cond(Equal, "@answer", "yes"), false},
		{"not equal", cond(NotEqual, "@answer", "no"), true},
		{"contains", cond(Contains, "@answer", "yes"), true},
		{"contains case insensitive", cond(Contains, "@answer", "YES"), true},
		{"not contains", cond(NotContains, "@answer", "maybe"), true},
		{"greater than", cond(GreaterThan, "@age", "18"), true},
		{"greater than miss", cond(GreaterThan, "@age", "30"), false},
		{"less than", cond(LessThan, "@age", "30"), true},
		{"non numeric comparison", cond(GreaterThan, "@answer", "18"), false},
		{"missing variable", cond(Equal, "@unknown", "x"), false},
		{"unknown type", cond("Matches", "@answer", "Myes"), false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.Equal(t, c.want, Evaluate([]entity.Condition{c.c}, OperatorNone, vars, testLog))
		})
	}
}

func TestEvaluateOperators(t *testing.T) {
	vars := map[string]string{"a": "1", "b": "2"}
	pass := cond(Equal, "@a", "1")
	fail := cond(Equal, "@b", "9")

	assert.True(t, Evaluate([]entity.Condition{pass, pass}, OperatorAnd, vars, testLog))
	assert.False(t, Evaluate([]entity.Condition{pass, fail}, OperatorAnd, vars, testLog))
	assert.True(t, Evaluate([]entity.Condition{fail, pass}, OperatorOr, vars, testLog))
	assert.False(t, Evaluate([]entity.Condition{fail, fail}, OperatorOr, vars, testLog))

	// None takes the first condition only
	assert.True(t, Evaluate([]entity.Condition{pass, fail}, OperatorNone, vars, testLog))
	assert.False(t, Evaluate([]entity.Condition{fail, pass}, OperatorNone, vars, testLog))
}

func TestEvaluateEmptyList(t *testing.T) {
	assert.False(t, Evaluate(nil, OperatorAnd, map[string]string{}, testLog))
}
