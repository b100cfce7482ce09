// Package staleguard tracks recently released native handle values.
//
// Operating systems recycle handle values quickly: a completion notification
// that was in flight when a handle was released can be delivered after the
// same value has been reassigned to an unrelated socket. Completion delivery
// code consults a Guard before dispatching so events for recycled handles
// are dropped instead of corrupting the new owner.
package staleguard

import (
	"strconv"
	"time"

	"github.com/patrickmn/go-cache"
)

// DefaultQuarantine is how long a released handle value is considered stale
// when no explicit quarantine is given. It comfortably exceeds the delivery
// delay of any completion already queued at release time.
const DefaultQuarantine = 30 * time.Second

// Guard remembers raw handle values that were recently released. Entries
// expire after the quarantine period, after which the value is trusted
// again. Guard is safe for concurrent use.
type Guard struct {
	quarantine time.Duration
	cache      *cache.Cache
}

// New creates a Guard with the given quarantine period. A non-positive
// quarantine falls back to DefaultQuarantine.
//
// Parameters:
//   - quarantine: How long a released handle value stays flagged
//
// Returns:
//   - A new Guard instance
func New(quarantine time.Duration) *Guard {
	if quarantine <= 0 {
		quarantine = DefaultQuarantine
	}

	return &Guard{
		quarantine: quarantine,
		cache:      cache.New(quarantine, quarantine),
	}
}

// MarkReleased records that the raw handle value has been released. The
// value is flagged for the quarantine period; marking an already flagged
// value restarts its quarantine.
//
// Parameters:
//   - raw: The native handle value that was released
func (g *Guard) MarkReleased(raw uintptr) {
	g.cache.Set(key(raw), time.Now(), g.quarantine)
}

// WasRecentlyReleased reports whether the raw handle value was released
// within the quarantine period.
//
// Parameters:
//   - raw: The native handle value to check
//
// Returns:
//   - true if the value is still under quarantine
func (g *Guard) WasRecentlyReleased(raw uintptr) bool {
	_, found := g.cache.Get(key(raw))
	return found
}

// Forget clears the flag for a raw handle value before its quarantine
// expires, for dispatchers that positively know the value was reassigned.
//
// Parameters:
//   - raw: The native handle value to clear
func (g *Guard) Forget(raw uintptr) {
	g.cache.Delete(key(raw))
}

// FlaggedCount returns the number of handle values currently under
// quarantine, including entries that expired but were not yet swept.
//
// Returns:
//   - The number of flagged handle values
func (g *Guard) FlaggedCount() int {
	return g.cache.ItemCount()
}

func key(raw uintptr) string {
	return strconv.FormatUint(uint64(raw), 16)
}
