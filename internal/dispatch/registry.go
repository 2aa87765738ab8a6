package dispatch

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/google/uuid"

	"github.com/lowaak/smart-trainer/sensor-core/internal/events"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

var ErrNoRoute = errors.New("no decoder registered for frame origin")

// Kind names a decoded measurement or page type. Handlers are registered per Kind.
type Kind string

// Decoder turns a frame into a value of the Kind it is routed to
type Decoder func(frame gatt.RawFrame) (any, error)

// Decode adapts a plain byte decoder into a Decoder
func Decode[T any](fn func([]byte) (T, error)) Decoder {
	return func(frame gatt.RawFrame) (any, error) {
		v, err := fn(frame.Data)
		if err != nil {
			return nil, err
		}
		return v, nil
	}
}

// Key selects a decoder. Page is gatt.NoPage for characteristic-addressed frames.
type Key struct {
	Characteristic uuid.UUID
	Page           int
}

func ForCharacteristic(u uuid.UUID) Key {
	return Key{Characteristic: u, Page: gatt.NoPage}
}

func ForPage(u uuid.UUID, page uint8) Key {
	return Key{Characteristic: u, Page: int(page)}
}

// Failure describes a frame that could not be decoded
type Failure struct {
	Frame gatt.RawFrame
	Kind  Kind
	Err   error
}

type route struct {
	kind   Kind
	decode Decoder
}

// Registry routes frames to decoders and decoded values to handlers.
// At most one handler is active per Kind.
type Registry struct {
	mu       sync.RWMutex
	routes   map[Key]route
	handlers map[Kind]*events.Slot[any]
	failures *events.Event[Failure]
	logger   *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	if logger == nil {
		panic("Registry: logger cannot be nil")
	}
	return &Registry{
		routes:   make(map[Key]route),
		handlers: make(map[Kind]*events.Slot[any]),
		failures: events.NewEvent[Failure](false),
		logger:   logger,
	}
}

// Route installs the decoder for key, replacing any earlier route
func (r *Registry) Route(key Key, kind Kind, decode Decoder) {
	if decode == nil {
		panic("Registry: decoder cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.routes[key] = route{kind: kind, decode: decode}
}

func (r *Registry) slot(kind Kind) *events.Slot[any] {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.handlers[kind]
	if !ok {
		s = &events.Slot[any]{}
		r.handlers[kind] = s
	}
	return s
}

// SetHandler installs fn for kind. A later call replaces it; nil removes it.
func (r *Registry) SetHandler(kind Kind, fn func(any)) {
	if r.slot(kind).Set(fn) {
		r.logger.Printf("Registry: replaced handler for %s", kind)
	}
}

// HasHandler reports whether a handler is installed for kind
func (r *Registry) HasHandler(kind Kind) bool {
	return r.slot(kind).IsSet()
}

// Handle installs a typed handler for kind. A nil fn removes the handler.
func Handle[T any](r *Registry, kind Kind, fn func(T)) {
	if fn == nil {
		r.SetHandler(kind, nil)
		return
	}
	r.SetHandler(kind, func(v any) {
		typed, ok := v.(T)
		if !ok {
			r.logger.Printf("Registry: handler for %s expects %T, got %T", kind, *new(T), v)
			return
		}
		fn(typed)
	})
}

// OnFailure registers a listener for frames that failed to decode.
// Returns a deregistration function.
func (r *Registry) OnFailure(fn func(Failure)) func() {
	return r.failures.Listen(fn)
}

func (r *Registry) lookup(origin gatt.Origin) (route, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if origin.Page != gatt.NoPage {
		if rt, ok := r.routes[Key{Characteristic: origin.Characteristic, Page: origin.Page}]; ok {
			return rt, true
		}
	}
	rt, ok := r.routes[Key{Characteristic: origin.Characteristic, Page: gatt.NoPage}]
	return rt, ok
}

// Dispatch decodes frame and hands the result to the handler for its Kind.
// The handler runs on the calling goroutine before Dispatch returns.
// A decoded value without a handler is dropped.
func (r *Registry) Dispatch(frame gatt.RawFrame) error {
	rt, ok := r.lookup(frame.Origin)
	if !ok {
		return fmt.Errorf("%w: %s page %d", ErrNoRoute, frame.Origin.Characteristic, frame.Origin.Page)
	}

	value, err := rt.decode(frame)
	if err != nil {
		r.failures.Notify(Failure{Frame: frame, Kind: rt.kind, Err: err})
		return err
	}

	r.slot(rt.kind).Deliver(value)
	return nil
}

// FrameHandler returns a callback suitable for gatt.Transport.Subscribe.
// Errors are reported through OnFailure listeners and the logger.
func (r *Registry) FrameHandler() func(gatt.RawFrame) {
	return func(frame gatt.RawFrame) {
		if err := r.Dispatch(frame); err != nil {
			r.logger.Printf("Registry: dropped frame from %s: %v (raw: % X)", frame.Origin.Characteristic, err, frame.Data)
		}
	}
}
