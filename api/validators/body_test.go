package validators

import (
	"net/http/httptest"
	"strings"
	"testing"

	pkgerrors "github.com/angelmondragon/marketplace-cart/pkg/errors"
)

type productBody struct {
	ID    string  `json:"id" validate:"required,max=8"`
	Price float64 `json:"price" validate:"gte=0"`
}

func TestDecodeJSONBodyAcceptsValidPayload(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"id":"p1","price":2.5}`))
	var body productBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if body.ID != "p1" || body.Price != 2.5 {
		t.Fatalf("unexpected body %+v", body)
	}
}

func TestDecodeJSONBodyRejectsUnknownFieldsAndSyntax(t *testing.T) {
	for _, raw := range []string{`{"id":"p1","qty":3}`, `{"id":`, ``} {
		r := httptest.NewRequest("POST", "/", strings.NewReader(raw))
		var body productBody
		err := DecodeJSONBody(r, &body)
		if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeValidation {
			t.Fatalf("payload %q: expected validation error, got %v", raw, err)
		}
	}
}

func TestDecodeJSONBodyReportsFieldErrors(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"price":-1}`))
	var body productBody
	err := DecodeJSONBody(r, &body)
	typed := pkgerrors.As(err)
	if typed == nil || typed.Code() != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("expected field details, got %T", typed.Details())
	}
	if details["id"] != "is required" {
		t.Fatalf("unexpected id detail %q", details["id"])
	}
	if details["price"] != "must be greater than or equal to 0" {
		t.Fatalf("unexpected price detail %q", details["price"])
	}
}

func TestDecodeJSONBodyCountsRunesForMax(t *testing.T) {
	r := httptest.NewRequest("POST", "/", strings.NewReader(`{"id":"éééééééé","price":1}`))
	var body productBody
	if err := DecodeJSONBody(r, &body); err != nil {
		t.Fatalf("eight two-byte characters must fit max=8: %v", err)
	}
}
