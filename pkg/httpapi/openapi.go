package httpapi

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"mime"
	"net/http"
	"regexp"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
)

//go:embed openapi.yaml
var openapiDocument []byte

var pathParamPattern = regexp.MustCompile(`\{([^}.]+)(?:\.\.\.)?\}`)

// Document returns the embedded OpenAPI description of the session API.
func Document() []byte {
	return append([]byte(nil), openapiDocument...)
}

func loadDocument(ctx context.Context) (*openapi3.T, error) {
	loader := openapi3.NewLoader()
	doc, err := loader.LoadFromData(openapiDocument)
	if err != nil {
		return nil, fmt.Errorf("httpapi: load openapi document: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("httpapi: invalid openapi document: %w", err)
	}
	return doc, nil
}

// validated binds rt to its OpenAPI operation and checks path, query and
// JSON bodies before the handler runs. Browser form bodies are left to the
// handler, which parses them with upload limits applied.
func (s *Server) validated(rt route, next http.Handler) (http.Handler, error) {
	item := s.doc.Paths.Value(rt.path)
	if item == nil {
		return nil, fmt.Errorf("httpapi: openapi document has no path %s", rt.path)
	}
	operation := item.GetOperation(rt.method)
	if operation == nil {
		return nil, fmt.Errorf("httpapi: openapi document has no operation %s %s", rt.method, rt.path)
	}
	if !s.validateRequests {
		return next, nil
	}

	bound := &routers.Route{
		Spec:      s.doc,
		Path:      rt.path,
		PathItem:  item,
		Method:    rt.method,
		Operation: operation,
	}
	names := pathParamNames(rt.path)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string, len(names))
		for _, name := range names {
			params[name] = r.PathValue(name)
		}

		input := &openapi3filter.RequestValidationInput{
			Request:    r,
			PathParams: params,
			Route:      bound,
			Options: &openapi3filter.Options{
				ExcludeRequestBody: !isJSONRequest(r),
			},
		}
		if err := openapi3filter.ValidateRequest(r.Context(), input); err != nil {
			writeProblem(w, r, http.StatusBadRequest, "invalid_request", validationDetail(err))
			return
		}
		next.ServeHTTP(w, r)
	}), nil
}

func pathParamNames(path string) []string {
	matches := pathParamPattern.FindAllStringSubmatch(path, -1)
	names := make([]string, 0, len(matches))
	for _, match := range matches {
		names = append(names, match[1])
	}
	return names
}

func isJSONRequest(r *http.Request) bool {
	if r.ContentLength == 0 && r.Header.Get("Content-Type") == "" {
		return true
	}
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json"
}

func validationDetail(err error) string {
	var requestErr *openapi3filter.RequestError
	if errors.As(err, &requestErr) {
		if requestErr.Parameter != nil {
			return fmt.Sprintf("parameter %q: %s", requestErr.Parameter.Name, requestErr.Reason)
		}
		if requestErr.RequestBody != nil {
			return "request body: " + requestErr.Reason
		}
		if requestErr.Reason != "" {
			return requestErr.Reason
		}
	}
	return err.Error()
}
