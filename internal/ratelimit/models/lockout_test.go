package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAuthLockoutWindow(t *testing.T) {
	now := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)
	cutoff := now.Add(-15 * time.Minute)

	t.Run("recent failure continues the window", func(t *testing.T) {
		l := &AuthLockout{FailureCount: 2, LastFailureAt: now.Add(-time.Minute)}
		assert.False(t, l.StartsNewWindow(now, cutoff))
		assert.False(t, l.IsLockedAt(now))
	})

	t.Run("stale failure restarts the window", func(t *testing.T) {
		l := &AuthLockout{FailureCount: 4, LastFailureAt: now.Add(-16 * time.Minute)}
		assert.True(t, l.StartsNewWindow(now, cutoff))
	})

	t.Run("active lock", func(t *testing.T) {
		until := now.Add(90 * time.Second)
		l := &AuthLockout{FailureCount: 5, LastFailureAt: now, LockedUntil: &until}
		assert.True(t, l.IsLockedAt(now))
		assert.False(t, l.StartsNewWindow(now, cutoff))
		assert.Equal(t, 90*time.Second, l.RetryAfter(now))
	})

	t.Run("expired lock restarts the window", func(t *testing.T) {
		until := now.Add(-time.Second)
		l := &AuthLockout{FailureCount: 5, LastFailureAt: now.Add(-time.Minute), LockedUntil: &until}
		assert.False(t, l.IsLockedAt(now))
		assert.True(t, l.StartsNewWindow(now, cutoff))
		assert.Zero(t, l.RetryAfter(now))
	})
}

func TestNewAuthLockoutKeyNormalizesIdentifier(t *testing.T) {
	assert.Equal(t, NewAuthLockoutKey("student@uni.test", "10.0.0.1"), NewAuthLockoutKey(" Student@Uni.TEST ", "10.0.0.1"))
	assert.NotEqual(t, NewAuthLockoutKey("student@uni.test", "10.0.0.1"), NewAuthLockoutKey("student@uni.test", "10.0.0.2"))
}
