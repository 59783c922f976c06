// Package moderation applies the administrator's decisions on submitted payments.
package moderation

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
	"dnsbot/internal/session"
)

type Service struct {
	repo     *db.Repository
	sessions session.Store
	adminID  int64
	now      func() time.Time
}

func New(repo *db.Repository, sessions session.Store, adminID int64) *Service {
	return &Service{
		repo:     repo,
		sessions: sessions,
		adminID:  adminID,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Decision is the outcome of a finalized moderation action.
type Decision struct {
	Action  session.Action
	Payment *db.PendingPayment
}

// Blocked reports whether the decision also blocked the owner.
func (d *Decision) Blocked() bool {
	return d.Action == session.ActionBlock
}

func (s *Service) authorize(actor int64) error {
	if actor != s.adminID {
		slog.Warn("Moderation attempt by non-admin", "user_id", actor)
		return domain.ErrUnauthorized
	}
	return nil
}

// Approve creates or extends the service for a pending payment and marks it approved.
func (s *Service) Approve(ctx context.Context, actor int64, paymentID string, owner int64) (*db.PendingPayment, *db.Service, error) {
	if err := s.authorize(actor); err != nil {
		return nil, nil, err
	}

	payment, svc, err := s.repo.ApprovePayment(ctx, paymentID, owner, s.now())
	if err != nil {
		slog.Error("Failed to approve payment", "payment_id", paymentID, "user_id", owner, "error", err)
		return nil, nil, err
	}

	slog.Info("Payment approved",
		"payment_id", paymentID,
		"user_id", owner,
		"service_id", svc.ServiceID,
		"renewal", payment.IsRenewal,
		"expires", svc.ExpiryDate,
	)
	return payment, svc, nil
}

// BeginReason opens the administrator's reason step for a reject or block decision.
// Nothing is mutated until FinalizeReason receives the text.
func (s *Service) BeginReason(ctx context.Context, actor int64, action session.Action, paymentID string, owner int64) error {
	if err := s.authorize(actor); err != nil {
		return err
	}

	state := session.StateAwaitingRejectNote
	if action == session.ActionBlock {
		state = session.StateAwaitingBlockNote
	}

	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return err
	}
	if payment.OwnerID != owner || payment.Status != domain.PaymentPending.String() {
		return domain.ErrNotFound
	}

	sess, err := session.Open(ctx, s.sessions, actor, state)
	if err != nil {
		return err
	}
	sess.Action = action
	sess.PaymentID = paymentID
	sess.TargetOwner = owner
	return s.sessions.Set(ctx, actor, sess)
}

// Pending reports whether actor is the administrator with a reason step open.
func (s *Service) Pending(ctx context.Context, actor int64) (bool, error) {
	if actor != s.adminID {
		return false, nil
	}
	sess, err := s.sessions.Get(ctx, actor)
	if err != nil {
		return false, err
	}
	return sess != nil && sess.Owner == actor && sess.State.AwaitsReason(), nil
}

// FinalizeReason rejects (and for block, blocks the owner of) the payment recorded
// in the administrator's session. The session is cleared whatever the outcome.
func (s *Service) FinalizeReason(ctx context.Context, actor int64, reason string) (*Decision, error) {
	if err := s.authorize(actor); err != nil {
		return nil, err
	}

	sess, err := s.sessions.Get(ctx, actor)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := s.sessions.Clear(ctx, actor); err != nil {
			slog.Error("Failed to clear admin session", "user_id", actor, "error", err)
		}
	}()

	if sess == nil || sess.Owner != actor || !sess.State.AwaitsReason() {
		return nil, domain.ErrNotFound
	}

	action := session.ActionReject
	if sess.State == session.StateAwaitingBlockNote {
		action = session.ActionBlock
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, domain.ErrNoReason
	}

	payment, err := s.repo.RejectPayment(ctx, sess.PaymentID, sess.TargetOwner, reason, action == session.ActionBlock)
	if err != nil {
		slog.Error("Failed to finalize payment decision",
			"payment_id", sess.PaymentID,
			"user_id", sess.TargetOwner,
			"action", action,
			"error", err,
		)
		return nil, err
	}

	slog.Info("Payment rejected",
		"payment_id", payment.PaymentID,
		"user_id", payment.OwnerID,
		"blocked", action == session.ActionBlock,
	)
	return &Decision{Action: action, Payment: payment}, nil
}
