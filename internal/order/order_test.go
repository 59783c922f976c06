package order

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
)

func setupTestService(t *testing.T) (*Service, *db.Repository) {
	t.Helper()

	repo, err := db.NewRepository(":memory:")
	if err != nil {
		t.Fatalf("failed to create test repository: %v", err)
	}
	if err := repo.AutoMigrate(); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}
	t.Cleanup(func() { repo.Close() })

	svc := New(repo)
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return now }

	var mu sync.Mutex
	n := 0
	svc.newID = func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("00000000-0000-0000-0000-%012d", n)
	}
	return svc, repo
}

func submit(t *testing.T, s *Service, owner int64, name string, days int) *db.PendingPayment {
	t.Helper()

	q, err := s.ChooseDuration(days)
	if err != nil {
		t.Fatalf("ChooseDuration(%d) error = %v", days, err)
	}
	p, err := s.SubmitReceipt(context.Background(), Receipt{
		Owner:       owner,
		ServiceID:   q.ServiceID,
		ServiceName: name,
		Duration:    q.Duration,
		Price:       q.Price,
		ImageID:     "photo-1",
	})
	if err != nil {
		t.Fatalf("SubmitReceipt() error = %v", err)
	}
	return p
}

func TestChooseDuration(t *testing.T) {
	s, _ := setupTestService(t)

	tests := []struct {
		days    int
		price   int
		wantErr error
	}{
		{30, 75000, nil},
		{60, 139000, nil},
		{90, 195000, nil},
		{45, 0, domain.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d days", tt.days), func(t *testing.T) {
			q, err := s.ChooseDuration(tt.days)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if q.Price != tt.price {
				t.Errorf("price = %d, want %d", q.Price, tt.price)
			}
			if q.ServiceID == "" {
				t.Error("expected a fresh service id")
			}
		})
	}
}

func TestValidateName(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	err := repo.CreateService(ctx, &db.Service{
		ServiceID: "existing", OwnerID: 1, Name: "home",
		PurchaseDate: s.now(), ExpiryDate: s.now().Add(time.Hour),
		Duration: 30, Status: domain.ServiceActive.String(),
	})
	if err != nil {
		t.Fatalf("CreateService() error = %v", err)
	}

	tests := []struct {
		name    string
		owner   int64
		input   string
		wantErr error
	}{
		{"valid", 1, "abc123", nil},
		{"empty", 1, "", domain.ErrBadName},
		{"space", 1, "my vpn", domain.ErrBadName},
		{"underscore", 1, "a_b", domain.ErrBadName},
		{"non ascii", 1, "سرویس", domain.ErrBadName},
		{"taken", 1, "home", domain.ErrNameTaken},
		{"taken by other owner", 2, "home", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidateName(ctx, tt.owner, tt.input)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestRandomNameAlwaysValid(t *testing.T) {
	s, _ := setupTestService(t)

	for _, username := range []string{"", "@john_doe", "علی", "Bob.Smith-1"} {
		name := s.RandomName(42, username)
		if !domain.ValidName(name) {
			t.Errorf("RandomName(%q) = %q, not a valid name", username, name)
		}
	}
}

func TestStartPurchaseConflicts(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	if err := s.StartPurchase(ctx, 1); err != nil {
		t.Fatalf("StartPurchase() error = %v", err)
	}

	submit(t, s, 1, "abc123", 60)

	err := s.StartPurchase(ctx, 1)
	if !errors.Is(err, domain.ErrPendingPayment) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("StartPurchase() with pending payment error = %v, want ErrPendingPayment", err)
	}

	if _, err := repo.RejectPayment(ctx, "00000000-0000-0000-0000-000000000002", 1, "fake", true); err != nil {
		t.Fatalf("RejectPayment() error = %v", err)
	}
	if err := s.StartPurchase(ctx, 1); !errors.Is(err, domain.ErrBlocked) {
		t.Fatalf("StartPurchase() for blocked user error = %v, want ErrBlocked", err)
	}
}

func TestSubmitReceiptConcurrentSingleWinner(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	const workers = 8
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		ok       int
		conflict int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			q, _ := s.ChooseDuration(30)
			_, err := s.SubmitReceipt(ctx, Receipt{
				Owner: 7, ServiceID: q.ServiceID, ServiceName: fmt.Sprintf("n%d", i),
				Duration: q.Duration, Price: q.Price, ImageID: "img",
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrConflict):
				conflict++
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}(i)
	}
	wg.Wait()

	if ok != 1 || conflict != workers-1 {
		t.Errorf("ok = %d, conflict = %d; want 1 and %d", ok, conflict, workers-1)
	}

	var count int64
	repo.DB().Model(&db.PendingPayment{}).Where("owner_id = ? AND status = ?", 7, "pending").Count(&count)
	if count != 1 {
		t.Errorf("pending payments = %d, want 1", count)
	}
}

func TestSubmitReceipt(t *testing.T) {
	s, _ := setupTestService(t)
	ctx := context.Background()

	q, _ := s.ChooseDuration(30)
	_, err := s.SubmitReceipt(ctx, Receipt{Owner: 1, ServiceID: q.ServiceID, ServiceName: "a", Duration: 30, Price: q.Price})
	if !errors.Is(err, domain.ErrNoReceipt) || !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("missing image error = %v, want ErrNoReceipt", err)
	}

	p, err := s.SubmitReceipt(ctx, Receipt{Owner: 1, ServiceID: q.ServiceID, ServiceName: "a", Duration: 30, Price: q.Price, ImageID: "img", Caption: "  "})
	if err != nil {
		t.Fatalf("SubmitReceipt() error = %v", err)
	}
	if p.Caption != domain.DefaultCaption {
		t.Errorf("caption = %q, want %q", p.Caption, domain.DefaultCaption)
	}
	if p.Status != "pending" || p.ServiceID != q.ServiceID {
		t.Errorf("payment = %+v", p)
	}
}

func TestPurchaseApproveRoundTrip(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	p := submit(t, s, 1, "abc123", 30)

	_, svc, err := repo.ApprovePayment(ctx, p.PaymentID, 1, s.now())
	if err != nil {
		t.Fatalf("ApprovePayment() error = %v", err)
	}
	if svc.ServiceID != p.ServiceID {
		t.Errorf("service id = %q, want payment's %q", svc.ServiceID, p.ServiceID)
	}
	if !svc.ExpiryDate.Equal(svc.PurchaseDate.AddDate(0, 0, 30)) {
		t.Errorf("expiry = %v, want purchase + 30 days (%v)", svc.ExpiryDate, svc.PurchaseDate)
	}
	if svc.Status != "active" || svc.IsTest {
		t.Errorf("service = %+v", svc)
	}
}

func TestIssueTest(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	svc, err := s.IssueTest(ctx, 5)
	if err != nil {
		t.Fatalf("IssueTest() error = %v", err)
	}
	if !svc.IsTest || svc.Duration != 1 || !svc.ExpiryDate.Equal(s.now().Add(24*time.Hour)) {
		t.Errorf("trial = %+v", svc)
	}
	if !domain.ValidName(svc.Name) {
		t.Errorf("trial name %q is not a valid name", svc.Name)
	}

	// still capped after expiry and soft delete
	repo.DB().Model(&db.Service{}).Where("service_id = ?", svc.ServiceID).
		Updates(map[string]interface{}{"status": "expired", "deleted": true})

	if _, err := s.IssueTest(ctx, 5); !errors.Is(err, domain.ErrTestUsed) || !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("second IssueTest() error = %v, want ErrTestUsed", err)
	}

	repo.DB().Model(&db.User{}).Create(&db.User{ID: 6, Blocked: true})
	if _, err := s.IssueTest(ctx, 6); !errors.Is(err, domain.ErrBlocked) {
		t.Fatalf("IssueTest() for blocked user error = %v, want ErrBlocked", err)
	}
}

func TestStartRenewal(t *testing.T) {
	s, repo := setupTestService(t)
	ctx := context.Background()

	expired := &db.Service{
		ServiceID: "svc-1", OwnerID: 1, Name: "home",
		PurchaseDate: s.now().AddDate(0, 0, -40), ExpiryDate: s.now().AddDate(0, 0, -10),
		Duration: 30, Status: domain.ServiceExpired.String(),
	}
	deleted := &db.Service{
		ServiceID: "svc-2", OwnerID: 1, Name: "gone",
		PurchaseDate: s.now(), ExpiryDate: s.now().AddDate(0, 0, 30),
		Duration: 30, Status: domain.ServiceActive.String(), Deleted: true,
	}
	for _, svc := range []*db.Service{expired, deleted} {
		if err := repo.CreateService(ctx, svc); err != nil {
			t.Fatalf("CreateService() error = %v", err)
		}
	}

	tests := []struct {
		name      string
		owner     int64
		serviceID string
		wantErr   error
	}{
		{"expired service renews", 1, "svc-1", nil},
		{"other owner", 2, "svc-1", domain.ErrNotFound},
		{"deleted", 1, "svc-2", domain.ErrNotFound},
		{"absent", 1, "nope", domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := s.StartRenewal(ctx, tt.owner, tt.serviceID)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if svc.ServiceID != tt.serviceID {
				t.Errorf("service = %q, want %q", svc.ServiceID, tt.serviceID)
			}
		})
	}

	q, err := s.ChooseRenewalDuration("svc-1", 90)
	if err != nil {
		t.Fatalf("ChooseRenewalDuration() error = %v", err)
	}
	if q.ServiceID != "svc-1" || q.Price != 195000 {
		t.Errorf("quote = %+v", q)
	}

	p, err := s.SubmitReceipt(ctx, Receipt{
		Owner: 1, ServiceID: q.ServiceID, ServiceName: "home",
		Duration: q.Duration, Price: q.Price, ImageID: "img", IsRenewal: true,
	})
	if err != nil {
		t.Fatalf("SubmitReceipt(renewal) error = %v", err)
	}
	if _, err := s.StartRenewal(ctx, 1, "svc-1"); !errors.Is(err, domain.ErrPendingPayment) {
		t.Fatalf("StartRenewal() with pending payment error = %v, want ErrPendingPayment", err)
	}

	_, renewed, err := repo.ApprovePayment(ctx, p.PaymentID, 1, s.now())
	if err != nil {
		t.Fatalf("ApprovePayment(renewal) error = %v", err)
	}
	if renewed.ServiceID != "svc-1" || renewed.Status != "active" || !renewed.ExpiryDate.Equal(s.now().AddDate(0, 0, 90)) {
		t.Errorf("renewed = %+v", renewed)
	}
}
