package visibility

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/goliatone/go-formflow/pkg/model"
)

// Evaluator determines whether a field should be visible for the current
// value snapshot. Implementations must not cache: any field may depend on any
// other field's value.
type Evaluator interface {
	Visible(field model.FormField, values model.Values) bool
}

// EvaluatorFunc adapts a function into an Evaluator.
type EvaluatorFunc func(field model.FormField, values model.Values) bool

// Visible delegates to the underlying function.
func (fn EvaluatorFunc) Visible(field model.FormField, values model.Values) bool {
	return fn(field, values)
}

// Default evaluates the field's conditional_logic block.
var Default Evaluator = EvaluatorFunc(IsVisible)

// IsVisible applies the field's conditional logic to values. Fields without
// logic, or with an empty condition list, are always visible.
func IsVisible(field model.FormField, values model.Values) bool {
	logic := field.ConditionalLogic
	if logic == nil || len(logic.Conditions) == 0 {
		return true
	}

	var combined bool
	if strings.EqualFold(strings.TrimSpace(logic.Logic), model.LogicAny) {
		combined = false
		for _, cond := range logic.Conditions {
			if EvaluateCondition(cond, values) {
				combined = true
				break
			}
		}
	} else {
		combined = true
		for _, cond := range logic.Conditions {
			if !EvaluateCondition(cond, values) {
				combined = false
				break
			}
		}
	}

	if strings.EqualFold(strings.TrimSpace(logic.Action), model.ActionHide) {
		return !combined
	}
	return combined
}

// EvaluateCondition checks a single condition against the snapshot. Unknown
// operators evaluate to true.
func EvaluateCondition(cond model.Condition, values model.Values) bool {
	current := values[cond.Field]

	switch strings.TrimSpace(cond.Operator) {
	case model.OperatorEquals:
		return Equal(current, cond.Value)
	case model.OperatorNotEquals:
		return !Equal(current, cond.Value)
	case model.OperatorIn:
		list, ok := asList(cond.Value)
		return ok && contains(list, current)
	case model.OperatorNotIn:
		list, ok := asList(cond.Value)
		return ok && !contains(list, current)
	default:
		return true
	}
}

// Equal is strict, type-aware equality: "1" and 1 differ, while numbers of
// different Go types compare by value. Lists compare element-wise.
func Equal(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}

	if na, ok := number(a); ok {
		nb, ok := number(b)
		return ok && na == nb
	}

	switch ta := a.(type) {
	case string:
		tb, ok := b.(string)
		return ok && ta == tb
	case bool:
		tb, ok := b.(bool)
		return ok && ta == tb
	}

	if la, ok := asList(a); ok {
		lb, ok := asList(b)
		if !ok || len(la) != len(lb) {
			return false
		}
		for i := range la {
			if !Equal(la[i], lb[i]) {
				return false
			}
		}
		return true
	}

	return reflect.DeepEqual(a, b)
}

func contains(list []any, value any) bool {
	for _, item := range list {
		if Equal(item, value) {
			return true
		}
	}
	return false
}

func asList(value any) ([]any, bool) {
	switch typed := value.(type) {
	case []any:
		return typed, true
	case []string:
		out := make([]any, len(typed))
		for i, s := range typed {
			out[i] = s
		}
		return out, true
	}

	rv := reflect.ValueOf(value)
	if !rv.IsValid() || (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

func number(value any) (float64, bool) {
	switch typed := value.(type) {
	case int:
		return float64(typed), true
	case int8:
		return float64(typed), true
	case int16:
		return float64(typed), true
	case int32:
		return float64(typed), true
	case int64:
		return float64(typed), true
	case uint:
		return float64(typed), true
	case uint8:
		return float64(typed), true
	case uint16:
		return float64(typed), true
	case uint32:
		return float64(typed), true
	case uint64:
		return float64(typed), true
	case float32:
		return float64(typed), true
	case float64:
		return typed, true
	case json.Number:
		f, err := typed.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
