// Package idgenerator provides concurrency-safe generation of unique
// operation identifiers. Identifiers are uint64 so that a long-lived process
// issuing asynchronous operations at a high rate never wraps.
package idgenerator

import "sync/atomic"

// IdGenerator generates monotonically increasing uint64 IDs in a concurrency-safe
// manner. Each call to Id returns the next ID. The starting value is set at
// construction and the first Id() returns startValue+1.
type IdGenerator struct {
	start uint64
	id    atomic.Uint64
}

// NewIdGenerator creates an IdGenerator that will generate IDs starting from
// startValue+1. The generator is safe for concurrent use.
//
// Parameters:
//   - startValue: The value to initialize the counter to; the first Id() will
//     return startValue+1
//
// Returns:
//   - A new IdGenerator instance
func NewIdGenerator(startValue uint64) *IdGenerator {
	gen := &IdGenerator{
		start: startValue,
	}
	gen.id.Store(startValue)
	return gen
}

// Id returns the next unique ID by atomically incrementing the internal counter.
// It is safe for concurrent use by multiple goroutines.
//
// Returns:
//   - The next uint64 ID
func (l *IdGenerator) Id() uint64 {
	return l.id.Add(1)
}
