package db

import "time"

// User - chat users; created on first contact, never deleted
type User struct {
	ID        int64     `gorm:"primaryKey;autoIncrement:false"`
	Blocked   bool      `gorm:"not null;default:false"`
	CreatedAt time.Time `gorm:"autoCreateTime"`
}

// Service - purchased or trial DNS services
type Service struct {
	ServiceID    string    `gorm:"primaryKey;size:36"`
	OwnerID      int64     `gorm:"not null;index"`
	Name         string    `gorm:"not null;size:128"`
	PurchaseDate time.Time `gorm:"not null"`
	ExpiryDate   time.Time `gorm:"not null;index"`
	Duration     int       `gorm:"not null"`
	Status       string    `gorm:"not null;size:16;check:status IN ('active','expired')"`
	IsTest       bool      `gorm:"not null;default:false"`
	IPAddress    *string   `gorm:"size:64"`
	Deleted      bool      `gorm:"not null;default:false"`
}

// PendingPayment - submitted receipts waiting for the administrator
type PendingPayment struct {
	PaymentID   string    `gorm:"primaryKey;size:36"`
	OwnerID     int64     `gorm:"not null;index"`
	ServiceID   string    `gorm:"not null;size:36"`
	ServiceName string    `gorm:"not null;size:128"`
	Duration    int       `gorm:"not null"`
	Price       int       `gorm:"not null"`
	Caption     string    `gorm:"type:text"`
	Status      string    `gorm:"not null;size:16;check:status IN ('pending','approved','rejected')"`
	Reason      *string   `gorm:"type:text"`
	IsRenewal   bool      `gorm:"not null;default:false"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// Stats - administrator counters
type Stats struct {
	Users        int64
	TestServices int64
	ByDuration   map[int]int64
}

func (s *Service) Active() bool {
	return s.Status == "active"
}

// RemainingDays is zero for expired services.
func (s *Service) RemainingDays(now time.Time) int {
	if !s.Active() {
		return 0
	}
	d := int(s.ExpiryDate.Sub(now).Hours() / 24)
	if d < 0 {
		return 0
	}
	return d
}
