package auth

import (
	"context"
	"fmt"
	"time"
)

// LockoutRecord is an administrative, role wide login block
type LockoutRecord struct {
	Role          Role
	TotalBlock    bool
	UnblockAtUnix int64
}

// LockoutStore reads lockout records. A role without a record is reported
// as (nil, nil).
type LockoutStore interface {
	FindLockout(ctx context.Context, role Role) (*LockoutRecord, error)
}

// LockoutStoreFunc adapts a function to the LockoutStore interface
type LockoutStoreFunc func(ctx context.Context, role Role) (*LockoutRecord, error)

// FindLockout implements LockoutStore
func (f LockoutStoreFunc) FindLockout(ctx context.Context, role Role) (*LockoutRecord, error) {
	if f == nil {
		return nil, nil
	}
	return f(ctx, role)
}

// LockState enumerates lockout gate answers
type LockState int

const (
	NotLocked LockState = iota
	LockedPermanently
	LockedUntil
)

// LockoutStatus is the answer of the lockout gate for a role
type LockoutStatus struct {
	State     LockState
	UnblockAt int64
	Now       int64
}

// Locked reports whether logins for the role are blocked
func (s LockoutStatus) Locked() bool {
	switch s.State {
	case LockedPermanently:
		return true
	case LockedUntil:
		return s.UnblockAt > s.Now
	default:
		return false
	}
}

// Permanent reports whether the block has no end
func (s LockoutStatus) Permanent() bool {
	return s.State == LockedPermanently
}

// Remaining returns the time left until the block ends
func (s LockoutStatus) Remaining() time.Duration {
	if s.State != LockedUntil || s.UnblockAt <= s.Now {
		return 0
	}
	return time.Duration(s.UnblockAt-s.Now) * time.Second
}

// RemainingText renders the remaining time as whole hours and minutes,
// e.g. "1h 0m", or "Permanente" for permanent blocks.
func (s LockoutStatus) RemainingText() string {
	if s.Permanent() {
		return "Permanente"
	}
	secs := int64(s.Remaining() / time.Second)
	return fmt.Sprintf("%dh %dm", secs/3600, (secs%3600)/60)
}

// Details returns the payload reported to clients for a locked role
func (s LockoutStatus) Details() map[string]any {
	unblockDate := "No definida"
	if !s.Permanent() && s.UnblockAt > 0 {
		unblockDate = time.Unix(s.UnblockAt, 0).UTC().Format("02/01/2006 15:04")
	}
	return map[string]any{
		"permanent":   s.Permanent(),
		"unblockAt":   s.UnblockAt,
		"remaining":   s.RemainingText(),
		"unblockDate": unblockDate,
		"now":         s.Now,
	}
}

// LockoutGate answers whether a role is administratively blocked
type LockoutGate struct {
	store  LockoutStore
	now    func() time.Time
	logger Logger
}

// NewLockoutGate creates a gate reading from store
func NewLockoutGate(store LockoutStore) *LockoutGate {
	return &LockoutGate{
		store:  store,
		now:    time.Now,
		logger: defLogger{},
	}
}

// WithClock overrides the gate clock
func (g *LockoutGate) WithClock(now func() time.Time) *LockoutGate {
	if now != nil {
		g.now = now
	}
	return g
}

// WithLogger sets the gate logger
func (g *LockoutGate) WithLogger(logger Logger) *LockoutGate {
	if logger != nil {
		g.logger = logger
	}
	return g
}

// Check returns the lockout status of role. A store failure degrades to
// NotLocked so logins stay available while the lockout store is down.
func (g *LockoutGate) Check(ctx context.Context, role Role) LockoutStatus {
	now := g.now().Unix()
	status := LockoutStatus{State: NotLocked, Now: now}

	if g.store == nil {
		return status
	}

	record, err := g.store.FindLockout(ctx, role)
	if err != nil {
		g.logger.Warn("lockout lookup failed, allowing access", "role", role, "error", err)
		return status
	}

	if record == nil || !record.TotalBlock {
		return status
	}

	status.UnblockAt = record.UnblockAtUnix
	if record.UnblockAtUnix <= 0 || record.UnblockAtUnix <= now {
		status.State = LockedPermanently
		return status
	}

	status.State = LockedUntil
	return status
}
