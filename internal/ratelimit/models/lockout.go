// Package models holds rate limiting state shared by services and stores.
package models

import (
	"strings"
	"time"
)

// AuthLockout tracks failed sign-in attempts for one identifier and client IP.
type AuthLockout struct {
	Identifier    string
	FailureCount  int
	LockedUntil   *time.Time
	LastFailureAt time.Time
}

// NewAuthLockoutKey scopes failures to an email and IP pair, so one attacker
// cannot lock a student out from every network.
func NewAuthLockoutKey(identifier, ip string) string {
	return strings.ToLower(strings.TrimSpace(identifier)) + "|" + ip
}

func (l *AuthLockout) IsLockedAt(now time.Time) bool {
	return l.LockedUntil != nil && now.Before(*l.LockedUntil)
}

// StartsNewWindow reports whether the next failure should restart counting:
// the previous failure fell before cutoff, or an earlier lock has expired.
func (l *AuthLockout) StartsNewWindow(now, cutoff time.Time) bool {
	if l.LockedUntil != nil && !now.Before(*l.LockedUntil) {
		return true
	}
	return l.LastFailureAt.Before(cutoff)
}

// RetryAfter is the remaining lock time rounded up to whole seconds.
func (l *AuthLockout) RetryAfter(now time.Time) time.Duration {
	if !l.IsLockedAt(now) {
		return 0
	}
	return l.LockedUntil.Sub(now).Round(time.Second)
}
