package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

func TestRequestID_GeneratesNew(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var seen string
	next := func(c echo.Context) error {
		seen, _ = c.Get("request_id").(string)
		return nil
	}

	mw := RequestID()
	if err := mw(next)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if seen == "" {
		t.Error("expected request_id to be set on context")
	}
	if rec.Header().Get(RequestIDHeader) == "" {
		t.Error("expected request id in response header")
	}
}

func TestRequestID_PreservesExisting(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "my-custom-id")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return nil }

	mw := RequestID()
	if err := mw(next)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.Header().Get(RequestIDHeader) != "my-custom-id" {
		t.Errorf("expected my-custom-id in response header, got %s", rec.Header().Get(RequestIDHeader))
	}
}

func TestSecurityHeaders(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { return nil }
	if err := SecurityHeaders()(next)(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	expected := map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Cache-Control":          "no-store",
	}
	for header, want := range expected {
		if got := rec.Header().Get(header); got != want {
			t.Errorf("expected %s: %s, got %s", header, want, got)
		}
	}
}

func TestRecovery_CatchesPanic(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	next := func(c echo.Context) error { panic("boom") }

	err := Recovery(zerolog.Nop())(next)(c)
	if err == nil {
		t.Fatal("expected error after panic")
	}

	he, ok := err.(*echo.HTTPError)
	if !ok {
		t.Fatalf("expected *echo.HTTPError, got %T", err)
	}
	if he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", he.Code)
	}
}

func TestErrorHandler_SuppressesDetailInProduction(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := ErrorHandler(zerolog.Nop(), true)
	h(errors.New("pq: connection refused on 10.0.0.3"), c)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", rec.Code)
	}
	body := rec.Body.String()
	if body == "" {
		t.Fatal("expected a response body")
	}
	if strings.Contains(body, "10.0.0.3") {
		t.Errorf("expected internal detail to be suppressed, got %s", body)
	}
}

func TestErrorHandler_ExposesDetailInDevelopment(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := ErrorHandler(zerolog.Nop(), false)
	h(errors.New("pq: connection refused"), c)

	if !strings.Contains(rec.Body.String(), "connection refused") {
		t.Errorf("expected error detail in development mode, got %s", rec.Body.String())
	}
}

func TestErrorHandler_PassesThroughHTTPErrors(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := ErrorHandler(zerolog.Nop(), true)
	h(echo.NewHTTPError(http.StatusConflict, "email already in use"), c)

	if rec.Code != http.StatusConflict {
		t.Errorf("expected 409, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "email already in use") {
		t.Errorf("expected HTTPError message to pass through, got %s", rec.Body.String())
	}
}
