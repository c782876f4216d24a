package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/storefront/pkg/errors"
)

type sampleLine struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type samplePayload struct {
	Email string       `json:"email" validate:"required,email"`
	Items []sampleLine `json:"items" validate:"required,min=1,dive"`
}

func TestDecodeJSONBodyReportsFieldPaths(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"bad","items":[{"quantity":0}]}`))
	var dest samplePayload
	err := DecodeJSONBody(req, &dest)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	fields := typed.Details().(map[string]any)["fields"].([]pkgerrors.FieldError)
	got := map[string]string{}
	for _, f := range fields {
		got[f.Field] = f.Message
	}
	if got["email"] != "must be a valid email" {
		t.Fatalf("unexpected email message %q", got["email"])
	}
	if _, ok := got["items[0].quantity"]; !ok {
		t.Fatalf("expected nested path, got %v", got)
	}
}

func TestDecodeJSONBodyRejectsUnknownFields(t *testing.T) {
	req := httptest.NewRequest("POST", "/", strings.NewReader(`{"email":"a@example.com","items":[{"quantity":1}],"extra":true}`))
	var dest samplePayload
	if err := DecodeJSONBody(req, &dest); pkgerrors.CodeOf(err) != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error for unknown field, got %v", err)
	}
}
