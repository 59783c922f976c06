// Package session keeps the per-user conversation step between chat events.
//
// Sessions are transient: the in-memory store loses them on restart and the
// Redis store expires them after a TTL. A lost session only means the user has
// to restart the step from the menu.
package session

import (
	"context"
	"time"
)

// State names the input a session is waiting for.
type State string

const (
	StateNone               State = ""
	StateAwaitingName       State = "awaiting_service_name"
	StateAwaitingDuration   State = "awaiting_duration"
	StateAwaitingReceipt    State = "awaiting_receipt"
	StateAwaitingRenewal    State = "awaiting_renew_duration"
	StateAwaitingRenewRcpt  State = "awaiting_renew_receipt"
	StateAwaitingIP         State = "awaiting_ip"
	StateAwaitingRejectNote State = "awaiting_reject_reason"
	StateAwaitingBlockNote  State = "awaiting_block_reason"
)

func (s State) String() string {
	return string(s)
}

// AwaitsReceipt reports whether an image is the expected input.
func (s State) AwaitsReceipt() bool {
	return s == StateAwaitingReceipt || s == StateAwaitingRenewRcpt
}

// AwaitsReason reports whether the administrator is expected to type a reason.
func (s State) AwaitsReason() bool {
	return s == StateAwaitingRejectNote || s == StateAwaitingBlockNote
}

// Action is the moderation decision recorded in the administrator's session.
type Action string

const (
	ActionReject Action = "reject"
	ActionBlock  Action = "block"
)

// Session is the resumable payload of one conversation.
type Session struct {
	Owner int64 `json:"owner"`
	State State `json:"state"`

	ServiceID   string `json:"service_id,omitempty"`
	ServiceName string `json:"service_name,omitempty"`
	Duration    int    `json:"duration,omitempty"`
	Price       int    `json:"price,omitempty"`
	IsRenewal   bool   `json:"is_renewal,omitempty"`

	Action      Action `json:"action,omitempty"`
	PaymentID   string `json:"payment_id,omitempty"`
	TargetOwner int64  `json:"target_owner,omitempty"`

	UpdatedAt time.Time `json:"updated_at"`
}

// Matches reports whether the session is at state and belongs to owner.
func (s *Session) Matches(state State, owner int64) bool {
	return s != nil && s.State == state && s.Owner == owner
}

// Store is keyed by owner. Get returns nil, nil when no session exists.
type Store interface {
	Get(ctx context.Context, owner int64) (*Session, error)
	Set(ctx context.Context, owner int64, s *Session) error
	Clear(ctx context.Context, owner int64) error
}

// Resume returns the owner's session only when it is waiting for state.
func Resume(ctx context.Context, store Store, state State, owner int64) (*Session, bool, error) {
	s, err := store.Get(ctx, owner)
	if err != nil {
		return nil, false, err
	}
	if !s.Matches(state, owner) {
		return nil, false, nil
	}
	return s, true, nil
}

// Open clears whatever the owner had in flight and starts a new session.
func Open(ctx context.Context, store Store, owner int64, state State) (*Session, error) {
	if err := store.Clear(ctx, owner); err != nil {
		return nil, err
	}
	s := &Session{Owner: owner, State: state}
	if err := store.Set(ctx, owner, s); err != nil {
		return nil, err
	}
	return s, nil
}
