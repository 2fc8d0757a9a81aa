package visibility

import (
	"encoding/json"
	"testing"

	"github.com/goliatone/go-formflow/pkg/model"
)

func countryField(action string) model.FormField {
	return model.FormField{
		FieldName: "state",
		ConditionalLogic: &model.ConditionalLogic{
			Action: action,
			Logic:  model.LogicAll,
			Conditions: []model.Condition{
				{Field: "country", Operator: model.OperatorIn, Value: []any{"US", "CA"}},
			},
		},
	}
}

func TestIsVisibleWithoutLogic(t *testing.T) {
	t.Parallel()

	if !IsVisible(model.FormField{FieldName: "name"}, nil) {
		t.Fatalf("expected field without logic to be visible")
	}

	empty := model.FormField{FieldName: "name", ConditionalLogic: &model.ConditionalLogic{Action: model.ActionHide}}
	if !IsVisible(empty, model.Values{}) {
		t.Fatalf("expected empty condition list to be visible")
	}
}

func TestIsVisibleInShowAndHide(t *testing.T) {
	t.Parallel()

	cases := []struct {
		country any
		show    bool
	}{
		{country: "US", show: true},
		{country: "CA", show: true},
		{country: "MX", show: false},
		{country: nil, show: false},
	}

	for _, tc := range cases {
		values := model.Values{"country": tc.country}
		if got := IsVisible(countryField(model.ActionShow), values); got != tc.show {
			t.Fatalf("show country=%v: expected %v, got %v", tc.country, tc.show, got)
		}
		if got := IsVisible(countryField(model.ActionHide), values); got != !tc.show {
			t.Fatalf("hide country=%v: expected %v, got %v", tc.country, !tc.show, got)
		}
	}
}

func TestIsVisibleAnyCombinator(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName: "company_name",
		ConditionalLogic: &model.ConditionalLogic{
			Action: model.ActionShow,
			Logic:  model.LogicAny,
			Conditions: []model.Condition{
				{Field: "account_type", Operator: model.OperatorEquals, Value: "business"},
				{Field: "has_company", Operator: model.OperatorEquals, Value: true},
			},
		},
	}

	if IsVisible(field, model.Values{"account_type": "personal", "has_company": false}) {
		t.Fatalf("expected hidden when no condition matches")
	}
	if !IsVisible(field, model.Values{"account_type": "personal", "has_company": true}) {
		t.Fatalf("expected visible when one condition matches")
	}
}

func TestEvaluateConditionOperators(t *testing.T) {
	t.Parallel()

	values := model.Values{"age": 30, "tier": "gold"}

	cases := []struct {
		name string
		cond model.Condition
		want bool
	}{
		{"equals number across types", model.Condition{Field: "age", Operator: "equals", Value: 30.0}, true},
		{"equals json number", model.Condition{Field: "age", Operator: "equals", Value: json.Number("30")}, true},
		{"equals is strict", model.Condition{Field: "age", Operator: "equals", Value: "30"}, false},
		{"not_equals", model.Condition{Field: "tier", Operator: "not_equals", Value: "silver"}, true},
		{"in requires a list", model.Condition{Field: "tier", Operator: "in", Value: "gold"}, false},
		{"not_in requires a list", model.Condition{Field: "tier", Operator: "not_in", Value: "gold"}, false},
		{"not_in list", model.Condition{Field: "tier", Operator: "not_in", Value: []string{"silver", "bronze"}}, true},
		{"unknown operator fails open", model.Condition{Field: "tier", Operator: "matches", Value: "x"}, true},
		{"missing field equals nil", model.Condition{Field: "absent", Operator: "equals", Value: nil}, true},
	}

	for _, tc := range cases {
		if got := EvaluateCondition(tc.cond, values); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}

func TestEqualLists(t *testing.T) {
	t.Parallel()

	if !Equal([]any{"a", 1}, []any{"a", 1.0}) {
		t.Fatalf("expected lists to compare element-wise")
	}
	if Equal([]any{"a"}, []any{"a", "b"}) {
		t.Fatalf("expected lists of different length to differ")
	}
}

func TestEvaluatorFuncOverridesDefault(t *testing.T) {
	t.Parallel()

	var eval Evaluator = EvaluatorFunc(func(field model.FormField, _ model.Values) bool {
		return field.FieldName != "secret"
	})
	if eval.Visible(model.FormField{FieldName: "secret"}, nil) {
		t.Fatalf("expected custom evaluator to hide field")
	}
	if !Default.Visible(model.FormField{FieldName: "secret"}, nil) {
		t.Fatalf("expected default evaluator to show field without logic")
	}
}
