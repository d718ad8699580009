package imagecache

import (
	"image"
	"sync"
)

// State is the lifecycle state of a Future.
type State uint8

// Future states. A future starts Pending and moves exactly once to Ready or
// Failed.
const (
	Pending State = iota
	Ready
	Failed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Pending:
		return "pending"
	case Ready:
		return "ready"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Future is a drawable that may not have arrived yet. A pending future is
// not an error: callers skip what they cannot draw and try again later.
type Future struct {
	mu    sync.Mutex
	state State
	img   image.Image
	err   error
	done  chan struct{}

	// delivered is set once Poll has handed the image to subscribers.
	delivered bool
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// State returns the current state.
func (f *Future) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Get returns the image and true once Ready.
func (f *Future) Get() (image.Image, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.img, f.state == Ready
}

// Err returns the load error once Failed.
func (f *Future) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

// Done is closed when the future leaves Pending.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

func (f *Future) resolve(img image.Image, err error) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state != Pending {
		return false
	}
	if err != nil {
		f.state, f.err = Failed, err
	} else {
		f.state, f.img = Ready, img
	}
	close(f.done)
	return true
}

func (f *Future) markDelivered() {
	f.mu.Lock()
	f.delivered = true
	f.mu.Unlock()
}

func (f *Future) wasDelivered() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.delivered
}
