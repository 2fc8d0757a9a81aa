package loader

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/goliatone/go-formflow/pkg/schema"
)

const minimalForm = `{"form_definition":{"id":"contact"},"fields":[{"field_name":"email","field_type":"email"}]}`

func TestLoader_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "contact.json")
	if err := os.WriteFile(path, []byte(minimalForm), 0o600); err != nil {
		t.Fatalf("write fixture: %v", err)
	}

	doc, err := New(schema.NewLoaderOptions()).Load(context.Background(), schema.SourceFromFile(path))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if string(doc.Raw()) != minimalForm {
		t.Fatalf("unexpected payload %q", doc.Raw())
	}
	if doc.Format() != schema.FormatJSON {
		t.Fatalf("expected json format")
	}
}

func TestLoader_FS(t *testing.T) {
	files := fstest.MapFS{"forms/contact.yaml": {Data: []byte("form_definition:\n  id: contact\nfields: []\n")}}
	l := New(schema.NewLoaderOptions(schema.WithFileSystem(files)))

	doc, err := l.Load(context.Background(), schema.SourceFromFS("forms/contact.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if doc.Location() != "forms/contact.yaml" || doc.Format() != schema.FormatYAML {
		t.Fatalf("unexpected document %q %s", doc.Location(), doc.Format())
	}

	if _, err := New(schema.NewLoaderOptions()).Load(context.Background(), schema.SourceFromFS("forms/contact.yaml")); err == nil {
		t.Fatalf("expected error without a file system")
	}
}

func TestLoader_HTTP(t *testing.T) {
	var gotAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		if r.URL.Path == "/missing" {
			http.Error(w, `{"message":"not found"}`, http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(minimalForm))
	}))
	defer server.Close()

	l := New(schema.NewLoaderOptions(
		schema.WithHTTPFallback(2*time.Second),
		schema.WithBearerToken("secret"),
	))

	doc, err := l.Load(context.Background(), schema.SourceFromURL(server.URL+"/forms/contact"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if gotAuth != "Bearer secret" {
		t.Fatalf("expected bearer token, got %q", gotAuth)
	}
	if _, err := schema.Decode(doc); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if _, err := l.Load(context.Background(), schema.SourceFromURL(server.URL+"/missing")); err == nil {
		t.Fatalf("expected error for 404")
	}
}

func TestLoader_HTTPDisabled(t *testing.T) {
	_, err := New(schema.NewLoaderOptions()).Load(context.Background(), schema.SourceFromURL("https://example.com/form.json"))
	if err == nil {
		t.Fatalf("expected http to be disabled by default")
	}
}

func TestLoader_RejectsInline(t *testing.T) {
	if _, err := New(schema.NewLoaderOptions()).Load(context.Background(), schema.SourceInline("x")); err == nil {
		t.Fatalf("expected error for inline source")
	}
}
