package ipgeo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestServer(t *testing.T, countries map[string]string) *httptest.Server {
	t.Helper()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("apiKey") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		if r.URL.Query().Get("fields") != "country_code2" {
			t.Errorf("fields = %q", r.URL.Query().Get("fields"))
		}
		ip := r.URL.Query().Get("ip")
		if ip == "10.0.0.99" {
			time.Sleep(200 * time.Millisecond)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"ip":"` + ip + `","country_code2":"` + countries[ip] + `"}`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestQualifies(t *testing.T) {
	srv := newTestServer(t, map[string]string{
		"5.160.0.1": "IR",
		"8.8.8.8":   "US",
	})

	client, err := NewClient(Config{URL: srv.URL, APIKey: "secret", Country: "ir", Timeout: 50 * time.Millisecond})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}
	defer client.Close()

	tests := []struct {
		name    string
		ip      string
		want    bool
		wantErr bool
	}{
		{"in country", "5.160.0.1", true, false},
		{"outside country", "8.8.8.8", false, false},
		{"malformed", "not-an-ip", false, false},
		{"padded", " 5.160.0.1 ", true, false},
		{"timeout", "10.0.0.99", false, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := client.Qualifies(context.Background(), tt.ip)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Qualifies() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("Qualifies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLookupBadStatus(t *testing.T) {
	srv := newTestServer(t, nil)

	client, err := NewClient(Config{URL: srv.URL, APIKey: "wrong"})
	if err != nil {
		t.Fatalf("NewClient() error = %v", err)
	}

	if _, err := client.Lookup(context.Background(), &LookupRequest{IP: "1.1.1.1"}); err == nil {
		t.Fatal("expected error for unauthorized lookup")
	}
}
