package revocation

import (
	"fmt"
	"time"

	"campusvote/pkg/platform/sentinel"
)

type Clock func() time.Time

// TTLFor is how long a token expiring at expiresAt has to stay on the list
// as of now. It rounds up to the second, the resolution of Redis key expiry,
// so an entry never lapses before its token. Expired tokens get zero.
func TTLFor(expiresAt, now time.Time) time.Duration {
	ttl := expiresAt.Sub(now)
	if ttl <= 0 {
		return 0
	}
	if rem := ttl % time.Second; rem != 0 {
		ttl += time.Second - rem
	}
	return ttl
}

func validateTTL(ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("revocation ttl %s is not positive: %w", ttl, sentinel.ErrInvalidState)
	}
	return nil
}
