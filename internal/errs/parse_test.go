package errs

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"
)

func TestParse_HTTPErrorInChain(t *testing.T) {
	base := NewNotFoundError("Not Found", nil)
	wrapped := fmt.Errorf("resolve link: %w", base)

	got, ok := Parse(wrapped)
	if !ok {
		t.Fatal("expected wrapped HTTPError to be recovered")
	}
	if got != base {
		t.Errorf("Parse returned a different error: %+v", got)
	}
	if got.Status != http.StatusNotFound || got.ErrorCode != CodeNotFound {
		t.Errorf("unexpected shape: %+v", got)
	}
}

func TestParse_JSONText(t *testing.T) {
	doc := `{"message":"Need Auth","status":401,"error_code":401}`

	got, ok := Parse(errors.New(doc))
	if !ok {
		t.Fatal("expected JSON error text to be recovered")
	}
	if got.Status != http.StatusUnauthorized {
		t.Errorf("status = %d", got.Status)
	}
	if got.Message != "Need Auth" || got.ErrorCode != CodeNeedAuth {
		t.Errorf("unexpected fields: %+v", got)
	}
	if got.Code != "UNAUTHORIZED" {
		t.Errorf("code = %q, want UNAUTHORIZED", got.Code)
	}

	body, err := got.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}
	if string(body) != doc {
		t.Errorf("body = %s, want the original document", body)
	}
}

func TestParse_Rejects(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"nil", nil},
		{"plain text", errors.New("boom")},
		{"broken json", errors.New(`{"message":`)},
		{"missing status", errors.New(`{"message":"x"}`)},
		{"status out of range", errors.New(`{"message":"x","status":42}`)},
		{"json array", errors.New(`[1,2,3]`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got, ok := Parse(tt.err); ok {
				t.Errorf("expected rejection, got %+v", got)
			}
		})
	}
}

func TestHTTPError_Body(t *testing.T) {
	e := NewBadRequestError("The TTL must be greater than 60 seconds.", CodeTTLTooShort, nil, nil)

	body, err := e.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}
	if decoded["status"] != float64(400) {
		t.Errorf("status = %v", decoded["status"])
	}
	if decoded["error_code"] != float64(CodeTTLTooShort) {
		t.Errorf("error_code = %v", decoded["error_code"])
	}
	if decoded["message"] != "The TTL must be greater than 60 seconds." {
		t.Errorf("message = %v", decoded["message"])
	}
	if _, present := decoded["errors"]; present {
		t.Error("empty field errors should be omitted")
	}
}

func TestNewMethodNotAllowedError(t *testing.T) {
	e := NewMethodNotAllowedError()
	if e.Status != http.StatusUnsupportedMediaType {
		t.Errorf("status = %d, want 415", e.Status)
	}
	if e.ErrorCode != CodeMethodNotAllowed {
		t.Errorf("error_code = %d", e.ErrorCode)
	}
	if e.Message != "Method Not Allowed" {
		t.Errorf("message = %q", e.Message)
	}
}

func TestHTTPError_Is(t *testing.T) {
	err := fmt.Errorf("wrap: %w", NewInternalServerError())
	if !errors.Is(err, &HTTPError{}) {
		t.Error("errors.Is should match any *HTTPError")
	}
}

func TestHTTPError_BodyFields(t *testing.T) {
	e := NewBadRequestError("Validation failed", CodeInvalidBody, nil, []FieldError{{Field: "url", Error: "is required"}})

	body, err := e.Body()
	if err != nil {
		t.Fatalf("Body: %v", err)
	}

	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("body is not JSON: %v", err)
	}

	want := map[string]bool{"code": true, "message": true, "status": true, "error_code": true, "errors": true}
	for field := range decoded {
		if !want[field] {
			t.Errorf("unexpected field %q in %s", field, body)
		}
	}
	if len(decoded) != len(want) {
		t.Errorf("body = %s, want fields %v", body, want)
	}
}
