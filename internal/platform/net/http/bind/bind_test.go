package bind

import (
	"net/http/httptest"
	"strings"
	"testing"

	perr "meterbox/internal/platform/errors"
)

type confirmBody struct {
	MeasureUUID    string `json:"measure_uuid"    validate:"required,uuid4"`
	ConfirmedValue *int64 `json:"confirmed_value" validate:"required,gte=0"`
}

func TestParseJSONHappyPath(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("PATCH", "/confirm",
		strings.NewReader(`{"measure_uuid":"5f1e2d3c-0000-4000-8000-000000000001","confirmed_value":0}`))

	got, err := ParseJSON[confirmBody](r)
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if got.ConfirmedValue == nil || *got.ConfirmedValue != 0 {
		t.Fatalf("explicit zero should survive required validation: %+v", got)
	}
}

func TestParseJSONEmptyBody(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("POST", "/upload", strings.NewReader(""))
	if _, err := ParseJSON[confirmBody](r); !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v, want json error", err)
	}

	// safe methods tolerate an empty body
	g := httptest.NewRequest("GET", "/list", strings.NewReader(""))
	if _, err := ParseJSON[confirmBody](g); err != nil {
		t.Fatalf("GET with empty body should pass: %v", err)
	}
}

func TestParseJSONRejectsUnknownFields(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("PATCH", "/confirm",
		strings.NewReader(`{"measure_uuid":"5f1e2d3c-0000-4000-8000-000000000001","confirmed_value":1,"extra":true}`))
	if _, err := ParseJSON[confirmBody](r); !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v, want json error", err)
	}
}

func TestParseJSONRejectsNonIntegerValue(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("PATCH", "/confirm",
		strings.NewReader(`{"measure_uuid":"5f1e2d3c-0000-4000-8000-000000000001","confirmed_value":12.5}`))
	if _, err := ParseJSON[confirmBody](r); !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v, want json error", err)
	}
}

func TestParseJSONValidationAttachesField(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("PATCH", "/confirm",
		strings.NewReader(`{"measure_uuid":"not-a-uuid","confirmed_value":1}`))

	_, err := ParseJSON[confirmBody](r)
	if !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("err = %v, want validation", err)
	}
	e, _ := perr.As(err)
	if e.Field() != "measure_uuid" {
		t.Fatalf("field = %q, want measure_uuid", e.Field())
	}
}

func TestParseJSONTrailingData(t *testing.T) {
	t.Parallel()

	r := httptest.NewRequest("PATCH", "/confirm",
		strings.NewReader(`{"measure_uuid":"5f1e2d3c-0000-4000-8000-000000000001","confirmed_value":1}{"again":true}`))
	if _, err := ParseJSON[confirmBody](r); !perr.IsCode(err, perr.ErrorCodeJSON) {
		t.Fatalf("err = %v, want json error", err)
	}
}
