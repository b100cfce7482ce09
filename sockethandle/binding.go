package sockethandle

import (
	"sync"

	"github.com/cyberinferno/socket-utils/idgenerator"
	"github.com/cyberinferno/socket-utils/logger"
	"github.com/cyberinferno/socket-utils/opmap"
)

// Operation name constants for the records tracked by a Binding.
const (
	OpRead    = "read"
	OpWrite   = "write"
	OpAccept  = "accept"
	OpConnect = "connect"
)

// Binding is the association between a socket handle and the external
// completion dispatcher. It owns the dispatcher's registration record and
// tracks the operation records issued under it.
//
// A Binding is created at most once per handle, by SocketHandle.BindIfAbsent,
// and disposed during handle teardown. Disposal is a tombstone, not an
// invalidation: Begin fails after Dispose, but reading the binding and
// finalizing operation records issued before disposal remain legal
// indefinitely.
type Binding struct {
	inner          DispatcherBinding
	log            logger.Logger
	skipSyncNotify bool

	mu       sync.RWMutex
	disposed bool

	ids     *idgenerator.IdGenerator
	pending *opmap.Map[uint64, *Operation]
}

// newBinding wraps a dispatcher registration record. The caller configures
// skipSyncNotify before publishing the binding; the field is read-only after
// publication.
func newBinding(inner DispatcherBinding, log logger.Logger) *Binding {
	return &Binding{
		inner:   inner,
		log:     log,
		ids:     idgenerator.NewIdGenerator(0),
		pending: opmap.NewMap[uint64, *Operation](),
	}
}

// SkipsSyncNotification reports whether the dispatcher confirmed that
// synchronously completing operations on this binding post no completion
// notification. Synchronous-success paths consult this flag to avoid waiting
// for a notification that will never arrive.
//
// Returns:
//   - true if the skip-on-synchronous-success optimization is in effect
func (b *Binding) SkipsSyncNotification() bool {
	return b.skipSyncNotify
}

// Disposed reports whether the binding has been disposed.
//
// Returns:
//   - true once Dispose has run
func (b *Binding) Disposed() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.disposed
}

// Begin issues a new operation record under this binding. It fails once the
// binding has been disposed; records issued earlier are unaffected.
//
// Parameters:
//   - name: The operation name (e.g. OpRead, OpWrite)
//
// Returns:
//   - The new operation record, or ErrBindingDisposed after disposal
func (b *Binding) Begin(name string) (*Operation, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.disposed {
		return nil, ErrBindingDisposed
	}

	op := &Operation{
		id:      b.ids.Id(),
		name:    name,
		binding: b,
	}
	b.pending.Store(op.id, op)
	return op, nil
}

// PendingCount returns the number of operation records issued and not yet
// finalized.
//
// Returns:
//   - The number of pending operations
func (b *Binding) PendingCount() int {
	return b.pending.Len()
}

// Dispose releases the dispatcher registration and aborts every pending
// operation record with ErrOperationAborted. It is idempotent; only the
// first call performs the release. The binding remains readable afterward so
// that completion callbacks holding records issued before disposal can still
// finalize them.
//
// Returns:
//   - true if any pending operation was forcibly aborted by this call
func (b *Binding) Dispose() bool {
	b.mu.Lock()
	if b.disposed {
		b.mu.Unlock()
		return false
	}

	b.disposed = true
	b.mu.Unlock()

	forced := false
	for _, op := range b.pending.Drain() {
		if op.finish(0, ErrOperationAborted) {
			forced = true
			b.log.Debug("aborted pending operation",
				logger.Field{Key: "op", Value: op.Name()},
				logger.Field{Key: "id", Value: op.ID()})
		}
	}

	b.inner.Dispose()
	return forced
}

// Operation is one asynchronous operation record issued under a Binding. A
// record is finalized exactly once, either by the completion path calling
// Complete or by Binding.Dispose aborting it. Finalizing a record remains
// legal after the binding's disposal.
type Operation struct {
	id      uint64
	name    string
	binding *Binding

	mu       sync.Mutex
	finished bool
	result   int
	err      error
}

// ID returns the operation's unique identifier within its binding.
func (o *Operation) ID() uint64 {
	return o.id
}

// Name returns the operation name the record was issued with.
func (o *Operation) Name() string {
	return o.name
}

// Complete finalizes the operation with the given outcome. Only the first
// finalization wins; later calls, including completions racing with a
// teardown abort, are no-ops.
//
// Parameters:
//   - result: The number of bytes transferred, or 0
//   - err: The operation error, or nil on success
//
// Returns:
//   - true if this call finalized the record, false if it was already final
func (o *Operation) Complete(result int, err error) bool {
	if !o.finish(result, err) {
		return false
	}

	o.binding.pending.Delete(o.id)
	return true
}

// Done reports whether the operation has been finalized.
func (o *Operation) Done() bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.finished
}

// Outcome returns the recorded result of a finalized operation.
//
// Returns:
//   - The recorded transfer count
//   - true if the operation has been finalized, false otherwise
//   - The recorded operation error, nil on success or when not finalized
func (o *Operation) Outcome() (int, bool, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if !o.finished {
		return 0, false, nil
	}

	return o.result, true, o.err
}

// finish records the outcome without touching the pending table. Dispose uses
// it directly after draining the table.
func (o *Operation) finish(result int, err error) bool {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.finished {
		return false
	}

	o.finished = true
	o.result = result
	o.err = err
	return true
}
