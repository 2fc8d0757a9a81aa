package schema

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-formflow/pkg/model"
)

const envelopeJSON = `{
  "message": "ok",
  "data": {
    "form_definition": {"id": "kyc", "name": "KYC", "is_multi_step": true},
    "steps": [
      {"id": "s1", "step_number": 1, "name": "Basics"},
      {"id": "s2", "step_number": 2, "name": "Docs", "is_optional": true}
    ],
    "fields": [
      {
        "field_name": "age",
        "field_type": "number",
        "form_step_id": "s1",
        "label": {"en": "Age", "fr": "Âge"},
        "validation_rules": {"min": 18},
        "display_order": 2,
        "is_required": true
      },
      {
        "field_name": "residency",
        "field_type": "radio",
        "form_step_id": "s1",
        "options": {"type": "static", "static": [{"value": "yes", "label": "Yes"}]},
        "conditional_logic": {
          "action": "show",
          "logic": "all",
          "conditions": [{"field": "age", "operator": "equals", "value": 21}]
        },
        "display_order": 1
      }
    ],
    "submission_id": "sub-9",
    "step_progress": [{"step_number": 1, "status": "completed"}],
    "current_step": 2,
    "completion_percentage": 50
  }
}`

const formYAML = `
form_definition:
  id: contact
  name: Contact
fields:
  - field_name: email
    field_type: email
    label:
      en: Email
      de: E-Mail
    is_required: true
    display_order: 1
`

func TestDecode_UnwrapsEnvelope(t *testing.T) {
	data, err := DecodeBytes("kyc.json", []byte(envelopeJSON), Strict())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	if data.FormDefinition.ID != "kyc" || !data.FormDefinition.IsMultiStep {
		t.Fatalf("unexpected definition %#v", data.FormDefinition)
	}
	if data.SubmissionID != "sub-9" || data.CurrentStep != 2 || data.CompletionPercentage != 50 {
		t.Fatalf("unexpected session fields %#v", data)
	}
	if diff := cmp.Diff([]model.StepProgress{{StepNumber: 1, Status: model.StepStatusCompleted}}, data.StepProgress); diff != "" {
		t.Fatalf("step progress mismatch (-want +got):\n%s", diff)
	}

	age, ok := data.Field("age")
	if !ok {
		t.Fatalf("expected age field")
	}
	if got := age.Label.Resolve("fr"); got != "Âge" {
		t.Fatalf("expected french label, got %q", got)
	}
	if age.ValidationRules.Min == nil || *age.ValidationRules.Min != 18 {
		t.Fatalf("expected min rule, got %#v", age.ValidationRules)
	}

	residency, _ := data.Field("residency")
	if residency.ConditionalLogic == nil || len(residency.ConditionalLogic.Conditions) != 1 {
		t.Fatalf("expected conditional logic, got %#v", residency.ConditionalLogic)
	}
	if got := residency.StaticOptions()[0].Label.Resolve("en"); got != "Yes" {
		t.Fatalf("expected plain string label to decode, got %q", got)
	}
}

func TestDecode_YAML(t *testing.T) {
	doc := MustNewDocument(SourceFromFile("forms/contact.yaml"), []byte(formYAML))
	if doc.Format() != FormatYAML {
		t.Fatalf("expected yaml format, got %s", doc.Format())
	}

	data, err := Decode(doc, Strict())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := model.Text("en", "Email", "de", "E-Mail")
	if diff := cmp.Diff(want, data.Fields[0].Label); diff != "" {
		t.Fatalf("label mismatch (-want +got):\n%s", diff)
	}
	if data.Fields[0].Type() != model.FieldTypeEmail || !data.Fields[0].IsRequired {
		t.Fatalf("unexpected field %#v", data.Fields[0])
	}
}

func TestDecode_StrictReportsIssues(t *testing.T) {
	raw := []byte(`{"form_definition": {"id": "x"}, "fields": [{"field_name": "a"}]}`)

	_, err := DecodeBytes("broken.json", raw, Strict())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument in chain")
	}
	if len(verr.Issues) == 0 {
		t.Fatalf("expected issues")
	}

	if _, err := DecodeBytes("broken.json", raw); err != nil {
		t.Fatalf("lenient decode should accept the payload: %v", err)
	}
}

func TestDecode_StrictStructuralCheck(t *testing.T) {
	raw := []byte(`{
  "form_definition": {"id": "x"},
  "fields": [
    {"field_name": "a", "field_type": "text"},
    {"field_name": "a", "field_type": "text"}
  ]
}`)
	_, err := DecodeBytes("dupes.json", raw, Strict())
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError for duplicate names, got %v", err)
	}
}

func TestDecode_Malformed(t *testing.T) {
	if _, err := DecodeBytes("bad.json", []byte(`{"form_definition":`)); !errors.Is(err, ErrInvalidDocument) {
		t.Fatalf("expected ErrInvalidDocument, got %v", err)
	}
	if _, err := DecodeBytes("empty", []byte("  ")); err == nil {
		t.Fatalf("expected error for empty payload")
	}
}

func TestDocumentFormat(t *testing.T) {
	cases := []struct {
		name string
		src  Source
		raw  string
		want Format
	}{
		{name: "json extension", src: SourceFromFile("a.json"), raw: "a: 1", want: FormatJSON},
		{name: "yml extension", src: SourceFromFS("forms/a.yml"), raw: "{}", want: FormatYAML},
		{name: "sniff json", src: SourceInline(""), raw: "  {\"a\":1}", want: FormatJSON},
		{name: "sniff yaml", src: SourceInline("x"), raw: "a: 1", want: FormatYAML},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc := MustNewDocument(tc.src, []byte(tc.raw))
			if got := doc.Format(); got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
