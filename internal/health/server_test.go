package health

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

type fakePinger struct{ err error }

func (f fakePinger) Ping(context.Context) error { return f.err }

func TestHandler(t *testing.T) {
	tests := []struct {
		name   string
		store  Pinger
		path   string
		status int
	}{
		{"health", nil, "/health", http.StatusOK},
		{"ready", fakePinger{}, "/ready", http.StatusOK},
		{"not ready", fakePinger{err: errors.New("down")}, "/ready", http.StatusServiceUnavailable},
		{"metrics", nil, "/metrics", http.StatusOK},
		{"unknown", nil, "/nope", http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			NewHandler(tt.store).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			if rec.Code != tt.status {
				t.Errorf("GET %s = %d, want %d", tt.path, rec.Code, tt.status)
			}
		})
	}
}
