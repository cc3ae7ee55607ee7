package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"
)

func TestHTTPTransport(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Accept") != "application/json" {
			t.Errorf("Expected JSON Accept header, got '%s'", r.Header.Get("Accept"))
		}
		if r.URL.Query().Get("lat") == "" {
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"lat required"}`))
			return
		}
		w.Write([]byte(`{"lat":` + r.URL.Query().Get("lat") + `}`))
	}))
	defer server.Close()

	transport := NewHTTPTransport(time.Second)
	ctx := context.Background()

	t.Run("Decodes JSON body", func(t *testing.T) {
		var out struct {
			Lat float64 `json:"lat"`
		}
		if err := transport.GetJSON(ctx, server.URL, url.Values{"lat": {"35.1"}}, &out); err != nil {
			t.Fatalf("GetJSON failed: %v", err)
		}
		if out.Lat != 35.1 {
			t.Errorf("Expected lat 35.1, got %v", out.Lat)
		}
	})

	t.Run("Non 2xx status is an error", func(t *testing.T) {
		var out map[string]interface{}
		if err := transport.GetJSON(ctx, server.URL, url.Values{}, &out); err == nil {
			t.Errorf("Expected error for 400 response")
		}
	})

	t.Run("Close releases idle connections", func(t *testing.T) {
		if err := transport.Close(); err != nil {
			t.Errorf("Expected Close to succeed, got %v", err)
		}
	})
}
