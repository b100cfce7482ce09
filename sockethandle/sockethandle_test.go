package sockethandle

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

// callLog records the order of calls observed across the fake collaborators.
type callLog struct {
	mu      sync.Mutex
	entries []string
}

func (l *callLog) add(entry string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, entry)
}

func (l *callLog) snapshot() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.entries...)
}

func (l *callLog) indexOf(entry string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, e := range l.entries {
		if e == entry {
			return i
		}
	}
	return -1
}

func (l *callLog) count(entry string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := 0
	for _, e := range l.entries {
		if e == entry {
			n++
		}
	}
	return n
}

// fakePlatform is a scripted Platform. Close pops results from closeResults;
// an exhausted script returns success.
type fakePlatform struct {
	log *callLog

	mu             sync.Mutex
	closeResults   []Result
	blockingResult Result
	lingerResult   Result
	cancelReturns  bool
}

func (p *fakePlatform) Close(raw uintptr) Result {
	p.log.add("close")
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.closeResults) == 0 {
		return Result{Code: CodeSuccess}
	}

	res := p.closeResults[0]
	p.closeResults = p.closeResults[1:]
	return res
}

func (p *fakePlatform) SetBlockingMode(raw uintptr, blocking bool) Result {
	p.log.add(fmt.Sprintf("setblocking:%v", blocking))
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.blockingResult
}

func (p *fakePlatform) SetLinger(raw uintptr, on bool, timeoutSeconds int) Result {
	p.log.add(fmt.Sprintf("setlinger:%v:%d", on, timeoutSeconds))
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lingerResult
}

func (p *fakePlatform) CancelAllPendingIO(raw uintptr) bool {
	p.log.add("cancel")
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancelReturns
}

// fakeDispatcher counts Bind calls and hands out fakeDispatcherBindings.
type fakeDispatcher struct {
	log *callLog

	mu            sync.Mutex
	bindCalls     int
	bindErr       error
	skipSupported bool
	bindings      []*fakeDispatcherBinding
}

func (d *fakeDispatcher) Bind(raw uintptr) (DispatcherBinding, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.bindCalls++
	if d.bindErr != nil {
		return nil, d.bindErr
	}

	b := &fakeDispatcherBinding{log: d.log}
	d.bindings = append(d.bindings, b)
	return b, nil
}

func (d *fakeDispatcher) TrySkipSyncNotification(binding DispatcherBinding) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.skipSupported
}

func (d *fakeDispatcher) calls() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.bindCalls
}

type fakeDispatcherBinding struct {
	log          *callLog
	disposeCalls atomic.Int32
}

func (b *fakeDispatcherBinding) Dispose() {
	b.log.add("dispose")
	b.disposeCalls.Add(1)
}

// newFakes builds a dispatcher and platform sharing one call log.
func newFakes() (*fakeDispatcher, *fakePlatform, *callLog) {
	log := &callLog{}
	return &fakeDispatcher{log: log}, &fakePlatform{log: log}, log
}

func newTestHandle(t *testing.T, mutate func(*Config)) (*SocketHandle, *fakeDispatcher, *fakePlatform, *callLog) {
	t.Helper()

	dispatcher, plat, log := newFakes()
	cfg := DefaultConfig(dispatcher, plat)
	cfg.Finalizer = false
	if mutate != nil {
		mutate(&cfg)
	}

	h, err := New(7, cfg)
	require.NoError(t, err)
	return h, dispatcher, plat, log
}

func TestNew(t *testing.T) {
	dispatcher, plat, _ := newFakes()

	t.Run("requires a dispatcher", func(t *testing.T) {
		_, err := New(1, Config{Platform: plat})
		assert.Error(t, err)
	})

	t.Run("requires a platform", func(t *testing.T) {
		_, err := New(1, Config{Dispatcher: dispatcher})
		assert.Error(t, err)
	})

	t.Run("starts open and unreleased", func(t *testing.T) {
		h, err := New(1, DefaultConfig(dispatcher, plat))
		require.NoError(t, err)
		assert.Equal(t, StateOpen, h.State())
		assert.False(t, h.Released())
		_, ok := h.Binding()
		assert.False(t, ok)
	})
}

func TestSocketHandle_Raw(t *testing.T) {
	h, _, _, _ := newTestHandle(t, nil)

	raw, err := h.Raw()
	require.NoError(t, err)
	assert.Equal(t, uintptr(7), raw)

	require.NoError(t, h.Close())
	_, err = h.Raw()
	assert.ErrorIs(t, err, ErrHandleDisposed)
}

func TestBindIfAbsent_CreatesBindingOnce(t *testing.T) {
	h, dispatcher, _, _ := newTestHandle(t, nil)

	first, err := h.BindIfAbsent(false)
	require.NoError(t, err)
	require.NotNil(t, first)
	assert.Equal(t, 1, dispatcher.calls())

	second, err := h.BindIfAbsent(false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, dispatcher.calls())

	got, ok := h.Binding()
	assert.True(t, ok)
	assert.Same(t, first, got)
}

func TestBindIfAbsent_AfterClose(t *testing.T) {
	h, dispatcher, _, _ := newTestHandle(t, nil)
	require.NoError(t, h.Close())

	_, err := h.BindIfAbsent(false)
	assert.ErrorIs(t, err, ErrHandleDisposed)
	assert.Equal(t, 0, dispatcher.calls())
}

func TestBindIfAbsent_Concurrent(t *testing.T) {
	h, dispatcher, _, _ := newTestHandle(t, nil)

	const binders = 16
	results := make([]*Binding, binders)

	var g errgroup.Group
	for i := 0; i < binders; i++ {
		slot := i
		g.Go(func() error {
			b, err := h.BindIfAbsent(false)
			if err != nil {
				return err
			}
			results[slot] = b
			return nil
		})
	}
	require.NoError(t, g.Wait())

	assert.Equal(t, 1, dispatcher.calls())
	for _, b := range results {
		assert.Same(t, results[0], b)
	}
}

func TestBindIfAbsent_AlreadyBound(t *testing.T) {
	h, dispatcher, _, log := newTestHandle(t, nil)
	dispatcher.bindErr = fmt.Errorf("registration rejected: %w", ErrAlreadyBound)

	_, err := h.BindIfAbsent(false)
	assert.ErrorIs(t, err, ErrConcurrentBind)

	// A handle that cannot deliver completions is torn down on the spot.
	assert.True(t, h.Released())
	assert.Equal(t, StateReleased, h.State())
	assert.Equal(t, 1, log.count("close"))
	assert.Equal(t, 0, log.count("setlinger:true:0"))
}

func TestBindIfAbsent_OtherErrorPassesThrough(t *testing.T) {
	h, dispatcher, _, log := newTestHandle(t, nil)
	bindErr := errors.New("dispatcher capacity exhausted")
	dispatcher.bindErr = bindErr

	_, err := h.BindIfAbsent(false)
	assert.ErrorIs(t, err, bindErr)
	assert.NotErrorIs(t, err, ErrConcurrentBind)
	assert.True(t, h.Released())
	assert.Equal(t, 1, log.count("close"))
}

func TestBindIfAbsent_FailedBindThenBindAgain(t *testing.T) {
	h, dispatcher, _, _ := newTestHandle(t, nil)
	dispatcher.bindErr = errors.New("transient")

	_, err := h.BindIfAbsent(false)
	require.Error(t, err)

	// The failed bind tore the handle down, so later attempts see that.
	_, err = h.BindIfAbsent(false)
	assert.ErrorIs(t, err, ErrHandleDisposed)
	assert.Equal(t, 1, dispatcher.calls())
}

func TestBindIfAbsent_SkipNotification(t *testing.T) {
	t.Run("recorded when requested and supported", func(t *testing.T) {
		h, dispatcher, _, _ := newTestHandle(t, nil)
		dispatcher.skipSupported = true

		b, err := h.BindIfAbsent(true)
		require.NoError(t, err)
		assert.True(t, b.SkipsSyncNotification())
	})

	t.Run("not recorded when unsupported", func(t *testing.T) {
		h, dispatcher, _, _ := newTestHandle(t, nil)
		dispatcher.skipSupported = false

		b, err := h.BindIfAbsent(true)
		require.NoError(t, err)
		assert.False(t, b.SkipsSyncNotification())
	})

	t.Run("not recorded when not requested", func(t *testing.T) {
		h, dispatcher, _, _ := newTestHandle(t, nil)
		dispatcher.skipSupported = true

		b, err := h.BindIfAbsent(false)
		require.NoError(t, err)
		assert.False(t, b.SkipsSyncNotification())
	})
}

func TestLifecycleState_String(t *testing.T) {
	assert.Equal(t, "Open", StateOpen.String())
	assert.Equal(t, "Closing", StateClosing.String())
	assert.Equal(t, "Released", StateReleased.String())
	assert.Equal(t, "Unknown", LifecycleState(99).String())
}

func TestCode_String(t *testing.T) {
	assert.Equal(t, "Success", CodeSuccess.String())
	assert.Equal(t, "WouldBlock", CodeWouldBlock.String())
	assert.Equal(t, "InvalidArgument", CodeInvalidArgument.String())
	assert.Equal(t, "UnsupportedOption", CodeUnsupportedOption.String())
	assert.Equal(t, "Other", CodeOther.String())
}

func TestResult_Err(t *testing.T) {
	t.Run("success converts to nil", func(t *testing.T) {
		assert.NoError(t, Result{Code: CodeSuccess}.Err())
	})

	t.Run("failure converts to PlatformError", func(t *testing.T) {
		osErr := errors.New("errno 104")
		err := Result{Code: CodeOther, Errno: osErr}.Err()
		require.Error(t, err)

		var perr *PlatformError
		require.ErrorAs(t, err, &perr)
		assert.Equal(t, CodeOther, perr.Code)
		assert.ErrorIs(t, err, osErr)
		assert.Contains(t, err.Error(), "Other")
	})
}
