package sockethandle

// LifecycleState represents the current lifecycle phase of a socket handle.
// The only legal progression is Open → Closing → Released; Released is
// terminal.
type LifecycleState int32

const (
	StateOpen     LifecycleState = iota // The handle is usable
	StateClosing                        // Teardown has begun; cancellation and native close in progress
	StateReleased                       // Teardown finished; the handle must not be used
)

// String returns a human-readable name for the lifecycle state.
func (s LifecycleState) String() string {
	switch s {
	case StateOpen:
		return "Open"
	case StateClosing:
		return "Closing"
	case StateReleased:
		return "Released"
	default:
		return "Unknown"
	}
}
