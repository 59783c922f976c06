package config

import (
	"log/slog"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("BOT_TOKEN", "token")
	t.Setenv("ADMIN_ID", "42")
	t.Setenv("IPDNS1", "10.0.0.1")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.AdminID != 42 {
		t.Errorf("AdminID = %d, want 42", cfg.AdminID)
	}
	if cfg.DNS1 != "10.0.0.1" {
		t.Errorf("DNS1 = %q, want 10.0.0.1", cfg.DNS1)
	}
	if cfg.SweepInterval != 30*time.Minute {
		t.Errorf("SweepInterval = %v, want 30m", cfg.SweepInterval)
	}
	if cfg.SessionTTL != 24*time.Hour {
		t.Errorf("SessionTTL = %v, want 24h", cfg.SessionTTL)
	}
	if cfg.IPGeoTimeout != 5*time.Second {
		t.Errorf("IPGeoTimeout = %v, want 5s", cfg.IPGeoTimeout)
	}
	if cfg.IPGeoCountry != "IR" {
		t.Errorf("IPGeoCountry = %q, want IR", cfg.IPGeoCountry)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "complete", cfg: Config{BotToken: "t", AdminID: 1}},
		{name: "missing token", cfg: Config{AdminID: 1}, wantErr: true},
		{name: "missing admin", cfg: Config{BotToken: "t"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestIsAdmin(t *testing.T) {
	cfg := &Config{AdminID: 7}
	if !cfg.IsAdmin(7) {
		t.Error("IsAdmin(7) = false, want true")
	}
	if cfg.IsAdmin(8) {
		t.Error("IsAdmin(8) = true, want false")
	}
	if (&Config{}).IsAdmin(0) {
		t.Error("unset admin must not match id 0")
	}
}

func TestRegisterURL(t *testing.T) {
	cfg := &Config{ServerHost: "dns.example.com/"}
	got := cfg.RegisterURL("abc", 12)
	want := "https://dns.example.com/register/abc/12"
	if got != want {
		t.Errorf("RegisterURL() = %q, want %q", got, want)
	}
}

func TestSlogLevel(t *testing.T) {
	if got := (&Config{LogLevel: "DEBUG"}).SlogLevel(); got != slog.LevelDebug {
		t.Errorf("SlogLevel() = %v, want debug", got)
	}
	if got := (&Config{LogLevel: "bogus"}).SlogLevel(); got != slog.LevelInfo {
		t.Errorf("SlogLevel() = %v, want info", got)
	}
}
