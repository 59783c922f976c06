// Package order implements the purchase, renewal and trial flows.
package order

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
)

type Service struct {
	repo  *db.Repository
	now   func() time.Time
	newID func() string
}

func New(repo *db.Repository) *Service {
	return &Service{
		repo:  repo,
		now:   func() time.Time { return time.Now().UTC() },
		newID: uuid.NewString,
	}
}

// Quote is the priced selection held in the session until a receipt arrives.
type Quote struct {
	ServiceID string
	Duration  int
	Price     int
}

// Receipt is a payment proof submitted for a quote.
type Receipt struct {
	Owner       int64
	ServiceID   string
	ServiceName string
	Duration    int
	Price       int
	Caption     string
	ImageID     string
	IsRenewal   bool
}

// StartPurchase checks that owner may open a new purchase flow.
func (s *Service) StartPurchase(ctx context.Context, owner int64) error {
	return s.checkCanPay(ctx, owner)
}

func (s *Service) checkCanPay(ctx context.Context, owner int64) error {
	blocked, err := s.repo.IsBlocked(ctx, owner)
	if err != nil {
		return err
	}
	if blocked {
		return domain.ErrBlocked
	}

	hasPending, err := s.repo.HasPendingPayment(ctx, owner)
	if err != nil {
		return err
	}
	if hasPending {
		return domain.ErrPendingPayment
	}
	return nil
}

// ValidateName accepts ASCII alphanumerics not used by another live service of owner.
func (s *Service) ValidateName(ctx context.Context, owner int64, name string) error {
	if !domain.ValidName(name) {
		return domain.ErrBadName
	}

	taken, err := s.repo.NameTaken(ctx, owner, name)
	if err != nil {
		return err
	}
	if taken {
		return domain.ErrNameTaken
	}
	return nil
}

// RandomName derives a valid name from the username (or id) plus a random suffix.
func (s *Service) RandomName(owner int64, username string) string {
	base := sanitizeName(strings.TrimPrefix(username, "@"))
	if base == "" {
		base = fmt.Sprintf("user%d", owner)
	}
	suffix := strings.ReplaceAll(s.newID(), "-", "")[:8]
	return base + suffix
}

func sanitizeName(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// ChooseDuration prices a new purchase and mints the service id it will use.
func (s *Service) ChooseDuration(days int) (*Quote, error) {
	price, err := domain.Price(days)
	if err != nil {
		return nil, err
	}
	return &Quote{ServiceID: s.newID(), Duration: days, Price: price}, nil
}

// ChooseRenewalDuration prices a renewal of an existing service id.
func (s *Service) ChooseRenewalDuration(serviceID string, days int) (*Quote, error) {
	price, err := domain.Price(days)
	if err != nil {
		return nil, err
	}
	return &Quote{ServiceID: serviceID, Duration: days, Price: price}, nil
}

// SubmitReceipt records a pending payment for the quoted service.
func (s *Service) SubmitReceipt(ctx context.Context, r Receipt) (*db.PendingPayment, error) {
	if r.ImageID == "" {
		return nil, domain.ErrNoReceipt
	}
	if r.ServiceID == "" || r.ServiceName == "" {
		return nil, domain.ErrNotFound
	}
	if _, err := domain.Price(r.Duration); err != nil {
		return nil, err
	}

	caption := strings.TrimSpace(r.Caption)
	if caption == "" {
		caption = domain.DefaultCaption
	}

	payment := &db.PendingPayment{
		PaymentID:   s.newID(),
		OwnerID:     r.Owner,
		ServiceID:   r.ServiceID,
		ServiceName: r.ServiceName,
		Duration:    r.Duration,
		Price:       r.Price,
		Caption:     caption,
		Status:      domain.PaymentPending.String(),
		IsRenewal:   r.IsRenewal,
	}
	if err := s.repo.CreatePendingPayment(ctx, payment); err != nil {
		return nil, err
	}

	slog.Info("Payment submitted",
		"payment_id", payment.PaymentID,
		"user_id", r.Owner,
		"service_id", r.ServiceID,
		"renewal", r.IsRenewal,
	)
	return payment, nil
}

// IssueTest grants the one-time 24h trial and reads it back before reporting success.
func (s *Service) IssueTest(ctx context.Context, owner int64) (*db.Service, error) {
	blocked, err := s.repo.IsBlocked(ctx, owner)
	if err != nil {
		return nil, err
	}
	if blocked {
		return nil, domain.ErrBlocked
	}

	used, err := s.repo.HasTestService(ctx, owner)
	if err != nil {
		return nil, err
	}
	if used {
		return nil, domain.ErrTestUsed
	}

	now := s.now()
	svc := &db.Service{
		ServiceID:    s.newID(),
		OwnerID:      owner,
		Name:         fmt.Sprintf("Test%d%s", owner, strings.ReplaceAll(s.newID(), "-", "")[:8]),
		PurchaseDate: now,
		ExpiryDate:   now.Add(domain.TestDuration),
		Duration:     domain.TestDays,
		Status:       domain.ServiceActive.String(),
		IsTest:       true,
	}
	if err := s.repo.CreateService(ctx, svc); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, domain.ErrTestUsed
		}
		return nil, err
	}

	stored, err := s.repo.FindService(ctx, svc.ServiceID, owner)
	if err != nil {
		slog.Error("Trial insert not readable", "service_id", svc.ServiceID, "user_id", owner, "error", err)
		return nil, fmt.Errorf("%w: verify trial: %v", domain.ErrStoreUnavailable, err)
	}

	slog.Info("Trial issued", "service_id", stored.ServiceID, "user_id", owner)
	return stored, nil
}

// StartRenewal checks the service belongs to owner and that owner may pay now.
func (s *Service) StartRenewal(ctx context.Context, owner int64, serviceID string) (*db.Service, error) {
	svc, err := s.repo.FindService(ctx, serviceID, owner)
	if err != nil {
		return nil, err
	}
	if err := s.checkCanPay(ctx, owner); err != nil {
		return nil, err
	}
	return svc, nil
}
