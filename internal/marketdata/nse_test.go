package marketdata

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	apperrors "github.com/FaizanQureshiFinzome/simple-algo/internal/errors"
)

func TestUnderlyingValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("symbol"); got != "NIFTY" {
			t.Errorf("symbol query = %q, want NIFTY", got)
		}
		if got := r.Header.Get("User-Agent"); got == "" {
			t.Error("missing User-Agent header")
		}
		w.Write([]byte(`{"records":{"underlyingValue":24532.65,"expiryDates":["03-Sep-2026"]}}`))
	}))
	defer server.Close()

	client := NewNSEClient(WithBaseURL(server.URL))

	value, err := client.UnderlyingValue(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("UnderlyingValue returned error: %v", err)
	}
	if value != 24532.65 {
		t.Errorf("value = %v, want 24532.65", value)
	}
}

func TestUnderlyingValueRetriesTransientFailure(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Write([]byte(`{"records":{"underlyingValue":24532.65}}`))
	}))
	defer server.Close()

	client := NewNSEClient(WithBaseURL(server.URL))

	value, err := client.UnderlyingValue(context.Background(), "NIFTY")
	if err != nil {
		t.Fatalf("UnderlyingValue returned error: %v", err)
	}
	if value != 24532.65 {
		t.Errorf("value = %v, want 24532.65", value)
	}
	if calls != 3 {
		t.Errorf("server saw %d calls, want 3", calls)
	}
}

func TestUnderlyingValueHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	client := NewNSEClient(WithBaseURL(server.URL))

	_, err := client.UnderlyingValue(context.Background(), "NIFTY")
	if !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestUnderlyingValueMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>blocked</html>`))
	}))
	defer server.Close()

	client := NewNSEClient(WithBaseURL(server.URL))

	_, err := client.UnderlyingValue(context.Background(), "NIFTY")
	if !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestUnderlyingValueMissingValue(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"records":{}}`))
	}))
	defer server.Close()

	client := NewNSEClient(WithBaseURL(server.URL))

	_, err := client.UnderlyingValue(context.Background(), "NIFTY")
	if !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}

func TestUnderlyingValueUnreachable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // connection refused from here on

	client := NewNSEClient(WithBaseURL(server.URL))

	_, err := client.UnderlyingValue(context.Background(), "NIFTY")
	if !errors.Is(err, apperrors.ErrNoData) {
		t.Errorf("error = %v, want ErrNoData", err)
	}
}
