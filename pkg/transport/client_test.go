package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-formflow/pkg/engine"
	"github.com/goliatone/go-formflow/pkg/model"
)

// recordedRequest captures what the fake backend received.
type recordedRequest struct {
	method   string
	path     string
	query    string
	auth     string
	idemKey  string
	values   map[string][]string
	files    map[string][]string
	fileData map[string]string
}

type fakeBackend struct {
	requests     []recordedRequest
	statusCode   int
	responseBody string
}

func (b *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rec := recordedRequest{
		method:  r.Method,
		path:    r.URL.Path,
		query:   r.URL.RawQuery,
		auth:    r.Header.Get("Authorization"),
		idemKey: r.Header.Get(IdempotencyHeader),
	}
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if err := r.ParseMultipartForm(1 << 20); err == nil {
			rec.values = r.MultipartForm.Value
			rec.files = map[string][]string{}
			rec.fileData = map[string]string{}
			for name, headers := range r.MultipartForm.File {
				for _, header := range headers {
					rec.files[name] = append(rec.files[name], header.Filename)
					f, _ := header.Open()
					data, _ := io.ReadAll(f)
					_ = f.Close()
					rec.fileData[header.Filename] = string(data)
				}
			}
		}
	}
	b.requests = append(b.requests, rec)

	w.Header().Set("Content-Type", "application/json")
	if b.statusCode != 0 {
		w.WriteHeader(b.statusCode)
	}
	_, _ = w.Write([]byte(b.responseBody))
}

func newTestClient(t *testing.T, backend *fakeBackend) *Client {
	t.Helper()
	srv := httptest.NewServer(backend)
	t.Cleanup(srv.Close)

	client, err := New(srv.URL+"/", WithToken("jwt"), WithIdempotencyKeys(func() string { return "key-1" }))
	require.NoError(t, err)
	return client
}

func TestNew_RequiresBaseURL(t *testing.T) {
	_, err := New("  ")
	require.Error(t, err)

	_, err = New("not a url")
	require.Error(t, err)
}

func TestClient_FormWithProgress(t *testing.T) {
	backend := &fakeBackend{responseBody: `{
		"message": "Form retrieved successfully",
		"data": {
			"form_definition": {"id": "kyb", "name": "KYB", "is_multi_step": true},
			"steps": [{"id": "s1", "step_number": 1, "name": "Company"}],
			"fields": [{"field_name": "company", "field_type": "text", "label": {"en": "Company"}}],
			"submission_id": "sub-7",
			"current_step": 1,
			"completion_percentage": 0
		}
	}`}
	client := newTestClient(t, backend)

	data, err := client.FormWithProgress(context.Background(), "kyb")
	require.NoError(t, err)

	assert.Equal(t, "kyb", data.FormDefinition.ID)
	assert.Equal(t, "sub-7", data.SubmissionID)
	require.Len(t, data.Fields, 1)
	assert.Equal(t, "Company", data.Fields[0].Label.Resolve("de"))

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, http.MethodGet, req.method)
	assert.Equal(t, "/forms/progress", req.path)
	assert.Equal(t, "type=kyb", req.query)
	assert.Equal(t, "Bearer jwt", req.auth)
	assert.Empty(t, req.idemKey)
}

func TestClient_NewFormAndEdit(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"ok","data":{"form_definition":{"id":"contact"},"fields":[]}}`}
	client := newTestClient(t, backend)

	_, err := client.NewForm(context.Background(), "contact")
	require.NoError(t, err)
	_, err = client.SubmissionForEdit(context.Background(), "sub-1")
	require.NoError(t, err)
	_, err = client.NewForm(context.Background(), "")
	require.Error(t, err)

	require.Len(t, backend.requests, 2)
	assert.Equal(t, "/forms/", backend.requests[0].path)
	assert.Equal(t, "/forms/submissions/sub-1/edit", backend.requests[1].path)
}

func TestClient_SubmitNew(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"Form submitted successfully","data":{"id":"sub-42","status":"submitted"}}`}
	client := newTestClient(t, backend)

	result, err := client.Submit(context.Background(), engine.Submission{
		FormID: "contact",
		Values: model.Values{
			"name":      "Ada",
			"age":       36,
			"interests": []any{"math", "poetry"},
			"agree":     true,
			"address":   map[string]any{"city": "London"},
			"skipped":   nil,
		},
	})
	require.NoError(t, err)
	assert.Equal(t, engine.SubmitResult{SubmissionID: "sub-42", Status: "submitted", Message: "Form submitted successfully"}, result)

	require.Len(t, backend.requests, 1)
	req := backend.requests[0]
	assert.Equal(t, http.MethodPost, req.method)
	assert.Equal(t, "/forms/contact/submit", req.path)
	assert.Equal(t, "key-1", req.idemKey)
	assert.Equal(t, []string{"Ada"}, req.values["name"])
	assert.Equal(t, []string{"36"}, req.values["age"])
	assert.Equal(t, []string{"math", "poetry"}, req.values["interests"])
	assert.Equal(t, []string{"true"}, req.values["agree"])
	assert.Equal(t, []string{`{"city":"London"}`}, req.values["address"])
	assert.Equal(t, []string{"submitted"}, req.values[MetaStatus])
	assert.NotContains(t, req.values, "skipped")
	assert.NotContains(t, req.values, MetaPartial)
}

func TestClient_SubmitDraftEnvelope(t *testing.T) {
	backend := &fakeBackend{
		statusCode:   http.StatusCreated,
		responseBody: `{"message":"Draft created successfully","data":{"submission":{"id":"sub-9","status":"draft"},"status":"draft"}}`,
	}
	client := newTestClient(t, backend)

	result, err := client.Submit(context.Background(), engine.Submission{
		FormID:      "kyc",
		IsDraft:     true,
		CurrentStep: 2,
		Values:      model.Values{"name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-9", result.SubmissionID)
	assert.Equal(t, "draft", result.Status)

	req := backend.requests[0]
	assert.Equal(t, "/forms/kyc/draft", req.path)
	assert.Equal(t, []string{"draft"}, req.values[MetaStatus])
	assert.Equal(t, []string{"2"}, req.values[MetaStep])
}

func TestClient_SubmitExistingUsesPut(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"updated","data":null}`}
	client := newTestClient(t, backend)

	result, err := client.Submit(context.Background(), engine.Submission{
		FormID:       "kyc",
		SubmissionID: "sub-3",
		IsDraft:      true,
		Values:       model.Values{"name": "Ada"},
	})
	require.NoError(t, err)
	assert.Equal(t, "sub-3", result.SubmissionID)
	assert.Equal(t, "draft", result.Status)

	req := backend.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/forms/submissions/sub-3", req.path)
	assert.Equal(t, []string{"true"}, req.values[MetaPartial])
}

func TestClient_APIError(t *testing.T) {
	backend := &fakeBackend{
		statusCode:   http.StatusBadRequest,
		responseBody: `{"error":"validation failed","errors":{"email":["is invalid"],"name":"is required"}}`,
	}
	client := newTestClient(t, backend)

	_, err := client.Submit(context.Background(), engine.Submission{FormID: "contact", Values: model.Values{}})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Equal(t, "validation failed", apiErr.Message)
	assert.Equal(t, map[string][]string{"email": {"is invalid"}, "name": {"is required"}}, apiErr.Fields)
	assert.True(t, strings.HasPrefix(err.Error(), "HTTP 400: {"))
}

func TestClient_SaveStep(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"Step progress saved","data":{}}`}
	client := newTestClient(t, backend)

	err := client.SaveStep(context.Background(), engine.StepSave{FormID: "kyc", StepNumber: 1, Values: model.Values{"a": "b"}})
	require.NoError(t, err)
	assert.Empty(t, backend.requests, "no submission id means nothing to save against")

	err = client.SaveStep(context.Background(), engine.StepSave{
		FormID:       "kyc",
		SubmissionID: "sub-1",
		StepNumber:   2,
		Values:       model.Values{"company": "Acme"},
	})
	require.NoError(t, err)
	require.Len(t, backend.requests, 1)

	req := backend.requests[0]
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/forms/submissions/sub-1/steps/2", req.path)
	assert.Equal(t, "status=completed", req.query)
	assert.Equal(t, []string{"Acme"}, req.values["company"])
	assert.Equal(t, []string{"completed"}, req.values[MetaStatus])
}

func TestClient_OptionsAndDelete(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"ok","data":[{"value":"gtb","label":"GTBank"},{"value":"uba","label":{"en":"UBA"}}]}`}
	client := newTestClient(t, backend)

	options, err := client.Options(context.Background(), "banks", map[string]string{"country": "NG"})
	require.NoError(t, err)
	require.Len(t, options, 2)
	assert.Equal(t, "GTBank", options[0].Label.Resolve("en"))
	assert.Equal(t, "/forms/options/banks", backend.requests[0].path)
	assert.Equal(t, "country=NG", backend.requests[0].query)

	require.NoError(t, client.DeleteFile(context.Background(), "sub-1", "file-2"))
	assert.Equal(t, http.MethodDelete, backend.requests[1].method)
	assert.Equal(t, "/forms/submissions/sub-1/files/file-2", backend.requests[1].path)

	require.Error(t, client.DeleteFile(context.Background(), "", "file-2"))
}

func TestClient_Complete(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"Form completed","data":{"id":"sub-1","status":"submitted"}}`}
	client := newTestClient(t, backend)

	result, err := client.Complete(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Equal(t, "submitted", result.Status)
	assert.Equal(t, "/forms/submissions/sub-1/complete", backend.requests[0].path)
	assert.Equal(t, []string{"submitted"}, backend.requests[0].values[MetaStatus])
}

func TestClient_EngineIntegration(t *testing.T) {
	backend := &fakeBackend{responseBody: `{"message":"ok","data":{"id":"sub-5","status":"submitted"}}`}
	client := newTestClient(t, backend)

	e := engine.New(model.FormData{
		FormDefinition: model.FormDefinition{ID: "contact"},
		Fields: []model.FormField{
			{FieldName: "email", FieldType: model.FieldTypeEmail, IsRequired: true, Label: model.PlainText("Email")},
		},
	}, client.EngineOptions()...)

	require.NoError(t, e.SetFieldValue("email", "ada@example.com"))
	result, err := e.Submit(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, "sub-5", result.SubmissionID)
	assert.Equal(t, engine.StatusSubmitted, e.Status())
	assert.Equal(t, []string{"ada@example.com"}, backend.requests[0].values["email"])
}
