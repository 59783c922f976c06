// Package ipreg binds a client IP to a service after geo validation.
package ipreg

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"dnsbot/internal/db"
	"dnsbot/internal/domain"
)

// Validator decides whether an IP literal qualifies for registration.
type Validator interface {
	Qualifies(ctx context.Context, ip string) (bool, error)
}

type Registrar struct {
	repo      *db.Repository
	validator Validator
}

func New(repo *db.Repository, validator Validator) *Registrar {
	return &Registrar{repo: repo, validator: validator}
}

// Register overwrites the IP of serviceID when ip passes validation.
// Absent, foreign and deleted services all yield ErrNotFound.
func (r *Registrar) Register(ctx context.Context, serviceID string, owner int64, ip string) error {
	if _, err := r.repo.FindService(ctx, serviceID, owner); err != nil {
		return err
	}

	ip = strings.TrimSpace(ip)
	ok, err := r.validator.Qualifies(ctx, ip)
	if err != nil {
		slog.Error("IP validation failed", "service_id", serviceID, "user_id", owner, "ip", ip, "error", err)
		return fmt.Errorf("%w: %v", domain.ErrUpstreamUnavailable, err)
	}
	if !ok {
		slog.Info("IP rejected", "service_id", serviceID, "user_id", owner, "ip", ip)
		return domain.ErrBadIP
	}

	if err := r.repo.UpdateServiceIP(ctx, serviceID, owner, ip); err != nil {
		return err
	}

	slog.Info("IP registered", "service_id", serviceID, "user_id", owner, "ip", ip)
	return nil
}
