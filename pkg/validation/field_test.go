package validation

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

func intPtr(v int) *int           { return &v }
func floatPtr(v float64) *float64 { return &v }
func strPtr(v string) *string     { return &v }

func TestValidateFieldRequired(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName:  "name",
		FieldType:  model.FieldTypeText,
		Label:      model.Text("en", "Full name", "fr", "Nom complet"),
		IsRequired: true,
		ValidationRules: model.ValidationRules{
			MinLength: intPtr(5),
			Pattern:   strPtr(`[a-z]+`),
		},
	}

	for _, value := range []any{nil, "", "   ", []any{}} {
		got := ValidateField(field, value)
		want := []string{"Full name is required"}
		if diff := cmp.Diff(want, got); diff != "" {
			t.Fatalf("value %#v mismatch (-want +got):\n%s", value, diff)
		}
	}
}

func TestValidateFieldOptionalAbsent(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName: "nickname",
		FieldType: model.FieldTypeEmail,
		ValidationRules: model.ValidationRules{
			Required:  true,
			MinLength: intPtr(3),
		},
	}
	if got := ValidateField(field, nil); len(got) != 0 {
		t.Fatalf("expected no errors for absent optional value, got %v", got)
	}
}

func TestValidateFieldRequiredFallsBackToFieldName(t *testing.T) {
	t.Parallel()

	got := ValidateField(model.FormField{FieldName: "tax_id", IsRequired: true}, nil)
	if diff := cmp.Diff([]string{"tax_id is required"}, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldEmail(t *testing.T) {
	t.Parallel()

	field := model.FormField{FieldName: "email", FieldType: model.FieldTypeEmail}
	if got := ValidateField(field, "ada@example.com"); len(got) != 0 {
		t.Fatalf("expected valid email, got %v", got)
	}
	if diff := cmp.Diff([]string{"Invalid email format"}, ValidateField(field, "ada@example")); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldTextCollectsAllViolations(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName: "code",
		FieldType: model.FieldTypeText,
		ValidationRules: model.ValidationRules{
			MinLength: intPtr(4),
			MaxLength: intPtr(8),
			Pattern:   strPtr(`[A-Z]+`),
		},
	}

	got := ValidateField(field, "ab")
	want := []string{"Must be at least 4 characters", "Invalid format"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	got = ValidateField(field, "ABCDEFGHIJ")
	want = []string{"Must be at most 8 characters"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if got := ValidateField(field, "ABCDE"); len(got) != 0 {
		t.Fatalf("expected valid code, got %v", got)
	}
}

func TestValidateFieldPatternIsAnchored(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName:       "zip",
		FieldType:       model.FieldTypeText,
		ValidationRules: model.ValidationRules{Pattern: strPtr(`\d{5}`)},
	}
	if got := ValidateField(field, "123456"); len(got) != 1 {
		t.Fatalf("expected partial match to fail, got %v", got)
	}

	broken := model.FormField{
		FieldName:       "broken",
		FieldType:       model.FieldTypeTextarea,
		ValidationRules: model.ValidationRules{Pattern: strPtr(`(`)},
	}
	if diff := cmp.Diff([]string{"Invalid format"}, ValidateField(broken, "x")); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldNumber(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName: "age",
		FieldType: model.FieldTypeNumber,
		ValidationRules: model.ValidationRules{
			Min: floatPtr(0),
			Max: floatPtr(120),
		},
	}

	cases := []struct {
		value any
		want  []string
	}{
		{value: 30, want: nil},
		{value: "42", want: nil},
		{value: json.Number("7.5"), want: nil},
		{value: uint8(5), want: nil},
		{value: uint16(121), want: []string{"Must be at most 120"}},
		{value: 200, want: []string{"Must be at most 120"}},
		{value: -1.5, want: []string{"Must be at least 0"}},
		{value: "abc", want: []string{"Must be a valid number"}},
	}

	for _, tc := range cases {
		if diff := cmp.Diff(tc.want, ValidateField(field, tc.value)); diff != "" {
			t.Fatalf("value %#v mismatch (-want +got):\n%s", tc.value, diff)
		}
	}
}

func TestValidateFieldCurrencyFractionalBound(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName:       "amount",
		FieldType:       model.FieldTypeCurrency,
		ValidationRules: model.ValidationRules{Min: floatPtr(0.5)},
	}
	if diff := cmp.Diff([]string{"Must be at least 0.5"}, ValidateField(field, 0.25)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldCheckbox(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName: "consents",
		FieldType: model.FieldTypeCheckbox,
		Options: &model.FieldOptions{
			Static: []model.Option{
				{Value: "terms", Label: model.PlainText("Terms")},
				{Value: "privacy", Label: model.PlainText("Privacy")},
				{Value: "marketing", Label: model.PlainText("Marketing")},
			},
		},
		ValidationRules: model.ValidationRules{
			MinItems:    intPtr(2),
			AllRequired: true,
		},
	}

	got := ValidateField(field, []any{"terms"})
	want := []string{"Select at least 2 options", "All options must be selected"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	// The count is compared, not the members.
	if got := ValidateField(field, []string{"terms", "terms", "other"}); len(got) != 0 {
		t.Fatalf("expected count-based all_required to pass, got %v", got)
	}

	if diff := cmp.Diff([]string{"All options must be selected"}, ValidateField(field, true)); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldUnknownTypeTreatedAsText(t *testing.T) {
	t.Parallel()

	field := model.FormField{
		FieldName:       "handle",
		FieldType:       "slug",
		ValidationRules: model.ValidationRules{MaxLength: intPtr(3)},
	}
	if diff := cmp.Diff([]string{"Must be at most 3 characters"}, ValidateField(field, "abcd")); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}
}

func TestValidateFieldOtherTypesSkipChecks(t *testing.T) {
	t.Parallel()

	for _, kind := range []model.FieldType{model.FieldTypeSelect, model.FieldTypeRadio, model.FieldTypeDate, model.FieldTypeFile, model.FieldTypeFiles} {
		field := model.FormField{
			FieldName:       "x",
			FieldType:       kind,
			ValidationRules: model.ValidationRules{MinLength: intPtr(100)},
		}
		if got := ValidateField(field, "short"); len(got) != 0 {
			t.Fatalf("type %s: expected no errors, got %v", kind, got)
		}
	}
}
