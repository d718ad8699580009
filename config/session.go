package config

import (
	"image"
	"math"
	"sync"
)

// Camera is the externally owned pan/zoom state. The engine only reads it.
type Camera struct {
	OffsetX float64
	OffsetY float64
	Scale   float64
}

// DefaultCamera has no offset and unit scale.
var DefaultCamera = Camera{Scale: 1}

// Valid reports whether the camera can place pixels: a positive, finite
// scale and finite offsets.
func (c Camera) Valid() bool {
	for _, v := range []float64{c.OffsetX, c.OffsetY, c.Scale} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return c.Scale > 0
}

// ChangeKind identifies what changed in a Session.
type ChangeKind int

// Change kinds delivered to subscribers.
const (
	OptionsChanged ChangeKind = iota
	CameraChanged
	DisplayResized
)

// String returns the change kind name.
func (k ChangeKind) String() string {
	switch k {
	case OptionsChanged:
		return "options"
	case CameraChanged:
		return "camera"
	case DisplayResized:
		return "display"
	default:
		return "unknown"
	}
}

// Change is delivered to subscribers after a Session field is replaced.
// Only the fields matching Kind are meaningful.
type Change struct {
	Kind ChangeKind

	OldOptions, NewOptions Options
	OldCamera, NewCamera   Camera
	OldSize, NewSize       image.Point
}

// Session is the explicit state shared by all components of one engine:
// options, camera, and display size. Components never read ambient globals;
// they are handed a *Session and subscribe to its changes.
//
// Session is safe for concurrent use. Subscribers are called synchronously on
// the goroutine that made the change, after the internal lock is released.
type Session struct {
	mu      sync.Mutex
	options Options
	camera  Camera
	display image.Point

	nextID int
	subs   map[int]func(Change)
}

// NewSession creates a session with the given options, DefaultCamera and a
// zero display size.
func NewSession(opts Options) *Session {
	return &Session{
		options: opts,
		camera:  DefaultCamera,
		subs:    make(map[int]func(Change)),
	}
}

// Options returns a copy of the current options.
func (s *Session) Options() Options {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.options
}

// Camera returns the current camera.
func (s *Session) Camera() Camera {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.camera
}

// DisplaySize returns the current display size in pixels.
func (s *Session) DisplaySize() image.Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.display
}

// SetOptions replaces the options and notifies subscribers.
func (s *Session) SetOptions(opts Options) {
	s.mu.Lock()
	old := s.options
	s.options = opts
	s.mu.Unlock()
	s.notify(Change{Kind: OptionsChanged, OldOptions: old, NewOptions: opts})
}

// UpdateOptions applies fn to a copy of the options and stores the result.
func (s *Session) UpdateOptions(fn func(*Options)) {
	s.mu.Lock()
	old := s.options
	cur := old
	fn(&cur)
	s.options = cur
	s.mu.Unlock()
	s.notify(Change{Kind: OptionsChanged, OldOptions: old, NewOptions: cur})
}

// SetCamera replaces the camera and notifies subscribers.
func (s *Session) SetCamera(c Camera) {
	s.mu.Lock()
	old := s.camera
	s.camera = c
	s.mu.Unlock()
	s.notify(Change{Kind: CameraChanged, OldCamera: old, NewCamera: c})
}

// SetDisplaySize replaces the display size and notifies subscribers.
func (s *Session) SetDisplaySize(width, height int) {
	size := image.Pt(width, height)
	s.mu.Lock()
	old := s.display
	s.display = size
	s.mu.Unlock()
	s.notify(Change{Kind: DisplayResized, OldSize: old, NewSize: size})
}

// Subscribe registers fn for every future change and returns a function that
// removes it. The returned function is idempotent.
func (s *Session) Subscribe(fn func(Change)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Session) notify(c Change) {
	s.mu.Lock()
	fns := make([]func(Change), 0, len(s.subs))
	for id := 0; id < s.nextID; id++ {
		if fn, ok := s.subs[id]; ok {
			fns = append(fns, fn)
		}
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(c)
	}
}
