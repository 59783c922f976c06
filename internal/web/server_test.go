package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
)

type fakeRegistrar struct {
	err       error
	serviceID string
	owner     int64
	ip        string
}

func (f *fakeRegistrar) Register(_ context.Context, serviceID string, owner int64, ip string) error {
	f.serviceID, f.owner, f.ip = serviceID, owner, ip
	return f.err
}

func TestRegisterPage(t *testing.T) {
	router := NewRouter(&fakeRegistrar{})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/register/svc-1/42", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"svc-1"`) || !strings.Contains(body, `"42"`) {
		t.Errorf("page does not embed ids: %s", body)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/register/svc-1/abc", nil))
	if rec.Code != http.StatusNotFound {
		t.Errorf("non-numeric owner status = %d, want 404", rec.Code)
	}
}

func TestGetClientIP(t *testing.T) {
	router := NewRouter(&fakeRegistrar{})

	tests := []struct {
		name   string
		remote string
		header string
		want   string
	}{
		{"remote addr", "5.160.0.1:4321", "", "5.160.0.1"},
		{"forwarded", "10.0.0.1:80", "5.160.0.9", "5.160.0.9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/get_client_ip", nil)
			req.RemoteAddr = tt.remote
			if tt.header != "" {
				req.Header.Set("X-Forwarded-For", tt.header)
			}
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			var resp map[string]string
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp["ip"] != tt.want {
				t.Errorf("ip = %q, want %q", resp["ip"], tt.want)
			}
		})
	}
}

func TestRegisterIP(t *testing.T) {
	tests := []struct {
		name        string
		body        string
		err         error
		wantStatus  int
		wantSuccess bool
		wantOwner   int64
	}{
		{"success", `{"ip":"5.160.0.1","service_id":"svc-1","telegram_id":"42"}`, nil, http.StatusOK, true, 42},
		{"numeric id", `{"ip":"5.160.0.1","service_id":"svc-1","telegram_id":42}`, nil, http.StatusOK, true, 42},
		{"foreign ip", `{"ip":"8.8.8.8","service_id":"svc-1","telegram_id":42}`, domain.ErrBadIP, http.StatusOK, false, 42},
		{"not found", `{"ip":"5.160.0.1","service_id":"svc-9","telegram_id":42}`, domain.ErrNotFound, http.StatusOK, false, 42},
		{"validator down", `{"ip":"5.160.0.1","service_id":"svc-1","telegram_id":42}`, domain.ErrUpstreamUnavailable, http.StatusOK, false, 42},
		{"bad json", `{`, nil, http.StatusBadRequest, false, 0},
		{"missing service", `{"ip":"5.160.0.1","telegram_id":42}`, nil, http.StatusBadRequest, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := &fakeRegistrar{err: tt.err}
			router := NewRouter(reg)

			req := httptest.NewRequest(http.MethodPost, "/api/register_ip", strings.NewReader(tt.body))
			req.Header.Set("Content-Type", "application/json")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			var resp registerResponse
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Success != tt.wantSuccess {
				t.Errorf("success = %v, want %v (%s)", resp.Success, tt.wantSuccess, resp.Message)
			}
			if resp.Message == "" {
				t.Error("empty message")
			}
			if reg.owner != tt.wantOwner {
				t.Errorf("owner = %d, want %d", reg.owner, tt.wantOwner)
			}
		})
	}
}

func TestMetricsEndpointExposesWebRegistrations(t *testing.T) {
	metrics.MustRegister()
	router := NewRouter(&fakeRegistrar{})

	body := strings.NewReader(`{"ip":"5.160.0.1","service_id":"svc-1","telegram_id":42}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/register_ip", body))
	if rec.Code != http.StatusOK {
		t.Fatalf("register status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("metrics status = %d, want 200", rec.Code)
	}
	if want := `dnsbot_ip_registrations_total{result="ok",source="web"}`; !strings.Contains(rec.Body.String(), want) {
		t.Errorf("metrics output missing %s", want)
	}
}
