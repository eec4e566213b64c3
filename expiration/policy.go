package expiration

import (
	"time"
)

// IsExpired reports whether an entry last touched at last has outlived ttl
// at now. The boundary is exclusive: an entry aged exactly ttl is still
// live.
func IsExpired(ttl time.Duration, now, last time.Time) bool {
	return now.Sub(last) > ttl
}
