// Package web serves the browser form that registers a client's IP for a service.
package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"dnsbot/internal/domain"
	"dnsbot/internal/metrics"
)

// Registrar is the IP registration operation shared with the chat flow.
type Registrar interface {
	Register(ctx context.Context, serviceID string, owner int64, ip string) error
}

type Server struct {
	server *http.Server
}

func NewServer(addr string, reg Registrar) *Server {
	return &Server{
		server: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(reg),
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
}

func (s *Server) Start() error {
	slog.Info("Registration web server started", "addr", s.server.Addr)
	return s.server.ListenAndServe()
}

func (s *Server) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func NewRouter(reg Registrar) http.Handler {
	h := &handler{reg: reg}

	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Handle("/metrics", promhttp.Handler())
	r.Get("/register/{service_id}/{telegram_id}", h.registerPage)
	r.Route("/api", func(r chi.Router) {
		r.Get("/get_client_ip", h.clientIP)
		r.Post("/register_ip", h.registerIP)
	})
	return r
}

type handler struct {
	reg Registrar
}

// ownerID accepts the telegram id as a JSON number or string.
type ownerID int64

func (o *ownerID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(b), `"`)
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return err
	}
	*o = ownerID(id)
	return nil
}

type registerRequest struct {
	IP         string  `json:"ip"`
	ServiceID  string  `json:"service_id"`
	TelegramID ownerID `json:"telegram_id"`
}

type registerResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

func (h *handler) registerPage(w http.ResponseWriter, r *http.Request) {
	data := struct {
		ServiceID  string
		TelegramID string
	}{
		ServiceID:  chi.URLParam(r, "service_id"),
		TelegramID: chi.URLParam(r, "telegram_id"),
	}
	if _, err := strconv.ParseInt(data.TelegramID, 10, 64); err != nil {
		http.NotFound(w, r)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := registerTmpl.Execute(w, data); err != nil {
		slog.Error("Failed to render register page", "error", err)
	}
}

func (h *handler) clientIP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"ip": remoteIP(r)})
}

func (h *handler) registerIP(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 4096)).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, registerResponse{Message: "Invalid request."})
		return
	}
	if req.ServiceID == "" || req.TelegramID == 0 {
		writeJSON(w, http.StatusBadRequest, registerResponse{Message: "Service or user is missing."})
		return
	}
	if req.IP == "" {
		req.IP = remoteIP(r)
	}

	err := h.reg.Register(r.Context(), req.ServiceID, int64(req.TelegramID), req.IP)
	if err != nil {
		slog.Warn("Web IP registration failed",
			"service_id", req.ServiceID,
			"user_id", int64(req.TelegramID),
			"ip", req.IP,
			"error", err,
		)
		metrics.IncIPRegistration("web", resultLabel(err))
		writeJSON(w, http.StatusOK, registerResponse{Message: failureMessage(err)})
		return
	}

	metrics.IncIPRegistration("web", "ok")
	writeJSON(w, http.StatusOK, registerResponse{Success: true, Message: "IP registered successfully!"})
}

func failureMessage(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "Service or user not found!"
	case errors.Is(err, domain.ErrBadIP):
		return "This IP does not qualify. If you are connected to a VPN, turn it off and try again."
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "Could not verify your IP right now. Please try again in a moment."
	default:
		return "Server error! Please try again."
	}
}

func resultLabel(err error) string {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return "not_found"
	case errors.Is(err, domain.ErrBadIP):
		return "rejected"
	case errors.Is(err, domain.ErrUpstreamUnavailable):
		return "upstream_error"
	default:
		return "error"
	}
}

func remoteIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to write response", "error", err)
	}
}
