package rules

import (
	"strings"

	"github.com/tidwall/gjson"

	"github.com/moonwalker/assetwatch/pkg/parse"
)

// Variables looks up a user variable value by key.
type Variables interface {
	Lookup(userID, key string) (interface{}, bool)
}

// ResolveValue returns the value a condition compares against. Literal values
// are returned unchanged; VARIABLE values are treated as a key into the
// owner's variables. ok is false when the variable does not exist.
func ResolveValue(vars Variables, value interface{}, valueType string, userID string) (interface{}, bool) {
	if valueType != VALUETYPE_VARIABLE {
		return value, true
	}
	if vars == nil {
		return nil, false
	}
	return vars.Lookup(userID, parse.ParseString(value))
}

// EvaluateCondition tests one record against one condition. Missing fields,
// missing variables and unknown operators all evaluate to false.
func EvaluateCondition(vars Variables, condition *Condition, record Facts, userID string) bool {
	if condition == nil {
		return false
	}

	fv := record.Field(condition.Field)
	if !fv.Exists() || fv.Type == gjson.Null {
		return false
	}

	target, ok := ResolveValue(vars, condition.Value, condition.ValueType, userID)
	if !ok {
		return false
	}

	return Compare(fv.Value(), target, condition.Operator)
}

// Compare applies a condition operator to two decoded values. Equality and
// CONTAINS work on lower-cased string forms; ordering works on numeric forms.
func Compare(a, b interface{}, c string) bool {
	switch c {
	case COMPARER_EQUAL:
		return lowerString(a) == lowerString(b)
	case COMPARER_NOT_EQUAL:
		return lowerString(a) != lowerString(b)
	case COMPARER_CONTAINS:
		return strings.Contains(lowerString(a), lowerString(b))
	case COMPARER_GREATER, COMPARER_GREATER_OR_EQUAL, COMPARER_LESS, COMPARER_LESS_OR_EQUAL:
		return CompareFloat(parse.ParseNumber(a), parse.ParseNumber(b), c)
	}
	return false
}

// NaN on either side makes every comparison false.
func CompareFloat(a, b float64, c string) bool {
	switch c {
	case COMPARER_EQUAL:
		return a == b
	case COMPARER_NOT_EQUAL:
		return a != b
	case COMPARER_GREATER:
		return a > b
	case COMPARER_GREATER_OR_EQUAL:
		return a >= b
	case COMPARER_LESS:
		return a < b
	case COMPARER_LESS_OR_EQUAL:
		return a <= b
	}
	return false
}

func compareInt(a, b int, c string) bool {
	switch c {
	case COMPARER_EQUAL:
		return a == b
	case COMPARER_GREATER:
		return a > b
	case COMPARER_GREATER_OR_EQUAL:
		return a >= b
	case COMPARER_LESS:
		return a < b
	case COMPARER_LESS_OR_EQUAL:
		return a <= b
	}
	return false
}

func lowerString(v interface{}) string {
	return strings.ToLower(parse.ParseString(v))
}
