package model

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"gopkg.in/yaml.v3"
)

func TestLocalize_FallbackChain(t *testing.T) {
	cases := []struct {
		name   string
		bundle I18nText
		locale string
		want   string
	}{
		{name: "exact", bundle: Text("en", "Name", "fr", "Nom"), locale: "fr", want: "Nom"},
		{name: "english fallback", bundle: Text("fr", "Nom", "en", "Name"), locale: "de", want: "Name"},
		{name: "first declared", bundle: Text("de", "C"), locale: "fr", want: "C"},
		{name: "empty locale means english", bundle: Text("fr", "Nom", "en", "Name"), locale: "", want: "Name"},
		{name: "blank entry falls through", bundle: Text("fr", "", "en", "Name"), locale: "fr", want: "Name"},
		{name: "nil bundle", bundle: nil, locale: "", want: ""},
		{name: "nil bundle with locale", bundle: nil, locale: "fr", want: ""},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Localize(tc.bundle, tc.locale); got != tc.want {
				t.Fatalf("Localize(%v, %q) = %q, want %q", tc.bundle, tc.locale, got, tc.want)
			}
		})
	}
}

func TestI18nText_UnmarshalJSONKeepsOrder(t *testing.T) {
	var text I18nText
	if err := json.Unmarshal([]byte(`{"zu":"Igama","fr":"Nom","count":3}`), &text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	want := I18nText{{Locale: "zu", Text: "Igama"}, {Locale: "fr", Text: "Nom"}, {Locale: "count", Text: "3"}}
	if diff := cmp.Diff(want, text); diff != "" {
		t.Fatalf("bundle mismatch (-want +got):\n%s", diff)
	}
	if got := text.Resolve("de"); got != "Igama" {
		t.Fatalf("expected first declared entry, got %q", got)
	}

	if err := json.Unmarshal([]byte(`"Company"`), &text); err != nil {
		t.Fatalf("unmarshal string: %v", err)
	}
	if diff := cmp.Diff(PlainText("Company"), text); diff != "" {
		t.Fatalf("plain text mismatch (-want +got):\n%s", diff)
	}

	if err := json.Unmarshal([]byte(`null`), &text); err != nil || text != nil {
		t.Fatalf("expected nil bundle for null, got %v (%v)", text, err)
	}
	if err := json.Unmarshal([]byte(`[1]`), &text); err == nil {
		t.Fatalf("expected error for array")
	}
}

func TestI18nText_UnmarshalYAMLKeepsOrder(t *testing.T) {
	var doc struct {
		Label I18nText `yaml:"label"`
		Help  I18nText `yaml:"help"`
	}
	src := "label:\n  pt: Nome\n  fr: Nom\nhelp: Plain help\n"
	if err := yaml.Unmarshal([]byte(src), &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if diff := cmp.Diff(Text("pt", "Nome", "fr", "Nom"), doc.Label); diff != "" {
		t.Fatalf("label mismatch (-want +got):\n%s", diff)
	}
	if got := Localize(doc.Label, "es"); got != "Nome" {
		t.Fatalf("expected first declared entry, got %q", got)
	}
	if diff := cmp.Diff(PlainText("Plain help"), doc.Help); diff != "" {
		t.Fatalf("help mismatch (-want +got):\n%s", diff)
	}
}

func TestI18nText_MarshalJSONPreservesOrder(t *testing.T) {
	data, err := json.Marshal(Text("fr", "Nom", "en", "Name"))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"fr":"Nom","en":"Name"}` {
		t.Fatalf("unexpected encoding %s", data)
	}
}

func TestI18nText_WithReplacesInPlace(t *testing.T) {
	base := Text("en", "Name", "fr", "Nom")
	updated := base.With("en", "Full name")
	if diff := cmp.Diff(Text("en", "Full name", "fr", "Nom"), updated); diff != "" {
		t.Fatalf("updated mismatch (-want +got):\n%s", diff)
	}
	if text, _ := base.Get("en"); text != "Name" {
		t.Fatalf("expected original bundle to be unchanged, got %q", text)
	}
}
