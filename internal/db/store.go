package db

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"dnsbot/internal/domain"
)

// EnsureUser inserts the user if absent.
func (r *Repository) EnsureUser(ctx context.Context, id int64) (*User, error) {
	user := &User{ID: id}
	if err := r.db.WithContext(ctx).Where(User{ID: id}).FirstOrCreate(user).Error; err != nil {
		return nil, storeErr(err)
	}
	return user, nil
}

func (r *Repository) GetUser(ctx context.Context, id int64) (*User, error) {
	var user User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return nil, storeErr(err)
	}
	return &user, nil
}

// IsBlocked treats unknown users as not blocked.
func (r *Repository) IsBlocked(ctx context.Context, id int64) (bool, error) {
	user, err := r.GetUser(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return user.Blocked, nil
}

func (r *Repository) HasPendingPayment(ctx context.Context, owner int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&PendingPayment{}).
		Where("owner_id = ? AND status = ?", owner, domain.PaymentPending.String()).
		Count(&count).Error
	if err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}

func (r *Repository) NameTaken(ctx context.Context, owner int64, name string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Service{}).
		Where("owner_id = ? AND name = ? AND deleted = ?", owner, name, false).
		Count(&count).Error
	if err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}

// HasTestService counts soft-deleted trials too.
func (r *Repository) HasTestService(ctx context.Context, owner int64) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&Service{}).
		Where("owner_id = ? AND is_test = ?", owner, true).
		Count(&count).Error
	if err != nil {
		return false, storeErr(err)
	}
	return count > 0, nil
}

func (r *Repository) CreateService(ctx context.Context, svc *Service) error {
	return storeErr(r.db.WithContext(ctx).Create(svc).Error)
}

// FindService returns a non-deleted service owned by owner.
func (r *Repository) FindService(ctx context.Context, serviceID string, owner int64) (*Service, error) {
	var svc Service
	err := r.db.WithContext(ctx).
		Where("service_id = ? AND owner_id = ? AND deleted = ?", serviceID, owner, false).
		First(&svc).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return &svc, nil
}

func (r *Repository) ListServices(ctx context.Context, owner int64) ([]Service, error) {
	var services []Service
	err := r.db.WithContext(ctx).
		Where("owner_id = ? AND deleted = ?", owner, false).
		Order("purchase_date ASC").
		Find(&services).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return services, nil
}

func (r *Repository) CreatePendingPayment(ctx context.Context, p *PendingPayment) error {
	if err := r.db.WithContext(ctx).Create(p).Error; err != nil {
		err = storeErr(err)
		if errors.Is(err, domain.ErrConflict) {
			return domain.ErrPendingPayment
		}
		return err
	}
	return nil
}

func (r *Repository) GetPayment(ctx context.Context, paymentID string) (*PendingPayment, error) {
	var p PendingPayment
	if err := r.db.WithContext(ctx).First(&p, "payment_id = ?", paymentID).Error; err != nil {
		return nil, storeErr(err)
	}
	return &p, nil
}

// ApprovePayment creates or extends the service and marks the payment approved
// in one transaction. A payment that is no longer pending yields ErrNotFound.
func (r *Repository) ApprovePayment(ctx context.Context, paymentID string, owner int64, now time.Time) (*PendingPayment, *Service, error) {
	var (
		payment PendingPayment
		svc     Service
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("payment_id = ? AND owner_id = ? AND status = ?",
			paymentID, owner, domain.PaymentPending.String()).
			First(&payment).Error
		if err != nil {
			return err
		}

		if payment.IsRenewal {
			err := tx.Where("service_id = ? AND owner_id = ? AND deleted = ?", payment.ServiceID, owner, false).
				First(&svc).Error
			if err != nil {
				return err
			}

			start := now
			if svc.ExpiryDate.After(now) {
				start = svc.ExpiryDate
			}
			svc.ExpiryDate = domain.ExpiryFor(start, payment.Duration)
			svc.Status = domain.ServiceActive.String()
			svc.Duration = payment.Duration

			result := tx.Model(&Service{}).
				Where("service_id = ? AND owner_id = ? AND deleted = ?", payment.ServiceID, owner, false).
				Updates(map[string]interface{}{
					"expiry_date": svc.ExpiryDate,
					"status":      svc.Status,
					"duration":    svc.Duration,
				})
			if result.Error != nil {
				return result.Error
			}
			if result.RowsAffected != 1 {
				return domain.ErrNotFound
			}
		} else {
			svc = Service{
				ServiceID:    payment.ServiceID,
				OwnerID:      owner,
				Name:         payment.ServiceName,
				PurchaseDate: now,
				ExpiryDate:   domain.ExpiryFor(now, payment.Duration),
				Duration:     payment.Duration,
				Status:       domain.ServiceActive.String(),
			}
			if err := tx.Create(&svc).Error; err != nil {
				return err
			}
		}

		result := tx.Model(&PendingPayment{}).
			Where("payment_id = ? AND owner_id = ? AND status = ?", paymentID, owner, domain.PaymentPending.String()).
			Update("status", domain.PaymentApproved.String())
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return domain.ErrNotFound
		}
		payment.Status = domain.PaymentApproved.String()
		return nil
	})
	if err != nil {
		return nil, nil, storeErr(err)
	}
	return &payment, &svc, nil
}

// RejectPayment finalizes a pending payment as rejected and optionally blocks its owner.
func (r *Repository) RejectPayment(ctx context.Context, paymentID string, owner int64, reason string, block bool) (*PendingPayment, error) {
	var payment PendingPayment

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		err := tx.Where("payment_id = ? AND owner_id = ? AND status = ?",
			paymentID, owner, domain.PaymentPending.String()).
			First(&payment).Error
		if err != nil {
			return err
		}

		result := tx.Model(&PendingPayment{}).
			Where("payment_id = ? AND owner_id = ? AND status = ?", paymentID, owner, domain.PaymentPending.String()).
			Updates(map[string]interface{}{
				"status": domain.PaymentRejected.String(),
				"reason": reason,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected != 1 {
			return domain.ErrNotFound
		}

		if block {
			user := &User{ID: owner}
			if err := tx.Where(User{ID: owner}).FirstOrCreate(user).Error; err != nil {
				return err
			}
			if err := tx.Model(&User{}).Where("id = ?", owner).Update("blocked", true).Error; err != nil {
				return err
			}
		}

		payment.Status = domain.PaymentRejected.String()
		payment.Reason = &reason
		return nil
	})
	if err != nil {
		return nil, storeErr(err)
	}
	return &payment, nil
}

// UpdateServiceIP overwrites the IP of a non-deleted service owned by owner.
func (r *Repository) UpdateServiceIP(ctx context.Context, serviceID string, owner int64, ip string) error {
	result := r.db.WithContext(ctx).Model(&Service{}).
		Where("service_id = ? AND owner_id = ? AND deleted = ?", serviceID, owner, false).
		Update("ip_address", ip)
	if result.Error != nil {
		return storeErr(result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ExpireServices moves due active services to expired and clears their IP.
func (r *Repository) ExpireServices(ctx context.Context, now time.Time) (int64, error) {
	result := r.db.WithContext(ctx).Model(&Service{}).
		Where("status = ? AND deleted = ? AND expiry_date <= ?", domain.ServiceActive.String(), false, now).
		Updates(map[string]interface{}{
			"status":     domain.ServiceExpired.String(),
			"ip_address": nil,
		})
	return result.RowsAffected, storeErr(result.Error)
}

// PurgeExpired hard-deletes expired paid services whose expiry is at or before cutoff.
func (r *Repository) PurgeExpired(ctx context.Context, cutoff time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Where("status = ? AND deleted = ? AND is_test = ? AND expiry_date <= ?",
			domain.ServiceExpired.String(), false, false, cutoff).
		Delete(&Service{})
	return result.RowsAffected, storeErr(result.Error)
}

func (r *Repository) ExpiredTestServices(ctx context.Context) ([]Service, error) {
	var services []Service
	err := r.db.WithContext(ctx).
		Where("status = ? AND deleted = ? AND is_test = ?", domain.ServiceExpired.String(), false, true).
		Find(&services).Error
	if err != nil {
		return nil, storeErr(err)
	}
	return services, nil
}

func (r *Repository) Stats(ctx context.Context) (*Stats, error) {
	stats := &Stats{ByDuration: make(map[int]int64)}
	db := r.db.WithContext(ctx)

	if err := db.Model(&User{}).Count(&stats.Users).Error; err != nil {
		return nil, storeErr(err)
	}
	err := db.Model(&Service{}).
		Where("is_test = ? AND deleted = ?", true, false).
		Count(&stats.TestServices).Error
	if err != nil {
		return nil, storeErr(err)
	}

	for _, days := range domain.Durations {
		var n int64
		err := db.Model(&Service{}).
			Where("duration = ? AND is_test = ?", days, false).
			Count(&n).Error
		if err != nil {
			return nil, storeErr(err)
		}
		stats.ByDuration[days] = n
	}
	return stats, nil
}
