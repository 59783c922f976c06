package ipreg

import (
	"context"
	"errors"
	"testing"
	"time"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
)

type fakeValidator struct {
	allowed map[string]bool
	err     error
	calls   int
}

func (f *fakeValidator) Qualifies(_ context.Context, ip string) (bool, error) {
	f.calls++
	if f.err != nil {
		return false, f.err
	}
	return f.allowed[ip], nil
}

func setupTestRepo(t *testing.T) *db.Repository {
	t.Helper()

	repo, err := db.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	now := time.Now().UTC()
	for _, svc := range []*db.Service{
		{ServiceID: "svc-1", OwnerID: 1, Name: "home", PurchaseDate: now, ExpiryDate: now.AddDate(0, 0, 30), Duration: 30, Status: "active"},
		{ServiceID: "svc-2", OwnerID: 1, Name: "old", PurchaseDate: now, ExpiryDate: now.AddDate(0, 0, 30), Duration: 30, Status: "active", Deleted: true},
	} {
		if err := repo.CreateService(context.Background(), svc); err != nil {
			t.Fatalf("CreateService() error = %v", err)
		}
	}
	return repo
}

func storedIP(t *testing.T, repo *db.Repository, serviceID string) *string {
	t.Helper()

	var svc db.Service
	if err := repo.DB().First(&svc, "service_id = ?", serviceID).Error; err != nil {
		t.Fatalf("load service: %v", err)
	}
	return svc.IPAddress
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name      string
		serviceID string
		owner     int64
		ip        string
		validator *fakeValidator
		wantErr   error
		wantIP    string
		wantCalls int
	}{
		{
			name: "qualifying ip", serviceID: "svc-1", owner: 1, ip: "5.160.0.1",
			validator: &fakeValidator{allowed: map[string]bool{"5.160.0.1": true}},
			wantIP:    "5.160.0.1", wantCalls: 1,
		},
		{
			name: "foreign ip", serviceID: "svc-1", owner: 1, ip: "8.8.8.8",
			validator: &fakeValidator{},
			wantErr:   domain.ErrBadIP, wantCalls: 1,
		},
		{
			name: "validator down", serviceID: "svc-1", owner: 1, ip: "5.160.0.1",
			validator: &fakeValidator{err: errors.New("timeout")},
			wantErr:   domain.ErrUpstreamUnavailable, wantCalls: 1,
		},
		{
			name: "not owner", serviceID: "svc-1", owner: 2, ip: "5.160.0.1",
			validator: &fakeValidator{allowed: map[string]bool{"5.160.0.1": true}},
			wantErr:   domain.ErrNotFound,
		},
		{
			name: "deleted service", serviceID: "svc-2", owner: 1, ip: "5.160.0.1",
			validator: &fakeValidator{allowed: map[string]bool{"5.160.0.1": true}},
			wantErr:   domain.ErrNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := setupTestRepo(t)
			r := New(repo, tt.validator)

			err := r.Register(context.Background(), tt.serviceID, tt.owner, tt.ip)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("Register() error = %v, want %v", err, tt.wantErr)
				}
			} else if err != nil {
				t.Fatalf("Register() unexpected error: %v", err)
			}

			if tt.validator.calls != tt.wantCalls {
				t.Errorf("validator calls = %d, want %d", tt.validator.calls, tt.wantCalls)
			}

			ip := storedIP(t, repo, tt.serviceID)
			switch {
			case tt.wantIP == "" && ip != nil:
				t.Errorf("ip = %q, want unset", *ip)
			case tt.wantIP != "" && (ip == nil || *ip != tt.wantIP):
				t.Errorf("ip = %v, want %q", ip, tt.wantIP)
			}
		})
	}
}

func TestRegisterSharedIP(t *testing.T) {
	v := &fakeValidator{allowed: map[string]bool{"5.160.0.1": true}}
	repo := setupTestRepo(t)
	r := New(repo, v)
	ctx := context.Background()

	now := time.Now().UTC()
	repo.CreateService(ctx, &db.Service{ServiceID: "svc-3", OwnerID: 1, Name: "work", PurchaseDate: now, ExpiryDate: now.AddDate(0, 0, 30), Duration: 30, Status: "active"})

	for _, id := range []string{"svc-1", "svc-3"} {
		if err := r.Register(ctx, id, 1, "5.160.0.1"); err != nil {
			t.Fatalf("Register(%s) error = %v", id, err)
		}
	}
}
