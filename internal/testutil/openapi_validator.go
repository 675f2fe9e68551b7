// Package testutil provides helpers for the HTTP integration tests.
package testutil

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
)

// Endpoints outside the JSON contract.
var unvalidatedPaths = map[string]bool{
	"/healthz": true,
	"/readyz":  true,
	"/ws":      true,
}

// OpenAPIValidator checks traffic against api/openapi/openapi.yaml.
type OpenAPIValidator struct {
	router routers.Router
}

// LoadOpenAPIValidator parses and validates the document at specPath.
func LoadOpenAPIValidator(specPath string) (*OpenAPIValidator, error) {
	loader := openapi3.NewLoader()

	doc, err := loader.LoadFromFile(specPath)
	if err != nil {
		return nil, fmt.Errorf("load OpenAPI document %s: %w", specPath, err)
	}
	if err := doc.Validate(context.Background()); err != nil {
		return nil, fmt.Errorf("invalid OpenAPI document: %w", err)
	}

	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("build OpenAPI router: %w", err)
	}
	return &OpenAPIValidator{router: router}, nil
}

// Validate reports through t every way the exchange deviates from the
// contract: an undocumented route, an accepted request the operation does
// not describe, or a response status, header or body it does not declare.
// Rejected requests are not checked so tests can send malformed input.
// resp.Body is read and replaced so callers can still decode it.
func (v *OpenAPIValidator) Validate(t *testing.T, method, path string, header http.Header, reqBody []byte, resp *http.Response) {
	t.Helper()

	path, _, _ = strings.Cut(path, "?")
	if unvalidatedPaths[path] {
		return
	}

	// The legacy router matches on the path alone, without scheme or host.
	req, err := http.NewRequest(method, path, bytes.NewReader(reqBody))
	if err != nil {
		t.Errorf("OpenAPI: build request: %v", err)
		return
	}
	req.Header = header.Clone()

	route, pathParams, err := v.router.FindRoute(req)
	if err != nil {
		t.Errorf("OpenAPI: %s %s is not documented: %v", method, path, err)
		return
	}

	input := &openapi3filter.RequestValidationInput{
		Request:    req,
		PathParams: pathParams,
		Route:      route,
		Options: &openapi3filter.Options{
			MultiError:         true,
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
		},
	}
	if resp.StatusCode < http.StatusBadRequest {
		if err := openapi3filter.ValidateRequest(context.Background(), input); err != nil {
			t.Errorf("OpenAPI: request %s %s: %v", method, path, err)
		}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Errorf("OpenAPI: read response body: %v", err)
		return
	}
	_ = resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(body))

	respInput := &openapi3filter.ResponseValidationInput{
		RequestValidationInput: input,
		Status:                 resp.StatusCode,
		Header:                 resp.Header,
		Body:                   io.NopCloser(bytes.NewReader(body)),
		Options: &openapi3filter.Options{
			MultiError:            true,
			IncludeResponseStatus: true,
		},
	}
	if err := openapi3filter.ValidateResponse(context.Background(), respInput); err != nil {
		t.Errorf("OpenAPI: response %s %s (%d): %s\nbody: %s",
			method, path, resp.StatusCode, truncate(err.Error(), 500), truncate(string(body), 200))
	}
}

func truncate(s string, n int) string {
	s = strings.TrimSpace(s)
	if len(s) > n {
		return s[:n] + "..."
	}
	return s
}
