// Package gatttest provides an in-memory gatt.Transport for tests and for
// running the monitor without hardware.
package gatttest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// maxWrittenValues bounds the write history
const maxWrittenValues = 100

var ErrNotSubscribed = errors.New("characteristic not subscribed")

// WrittenValue records a value written to a characteristic
type WrittenValue struct {
	Timestamp      time.Time
	Characteristic gatt.Characteristic
	Data           []byte
	DataHex        string
}

// WriteHook is called after every write, outside the transport lock.
// It may call Trigger to answer the write.
type WriteHook func(m *MockTransport, ch gatt.Characteristic, data []byte)

// MockTransport implements gatt.Transport without Bluetooth hardware
type MockTransport struct {
	logger *log.Logger

	mu          sync.RWMutex
	subscribers map[uuid.UUID]func(gatt.RawFrame)
	reads       map[uuid.UUID][]byte
	failures    map[string]error
	hooks       []WriteHook

	writtenMu     sync.RWMutex
	writtenValues []WrittenValue
}

func NewMockTransport(logger *log.Logger) *MockTransport {
	if logger == nil {
		panic("MockTransport: logger cannot be nil")
	}
	return &MockTransport{
		logger:      logger,
		subscribers: make(map[uuid.UUID]func(gatt.RawFrame)),
		reads:       make(map[uuid.UUID][]byte),
		failures:    make(map[string]error),
	}
}

// SetReadValue sets the value returned by ReadOnce for ch
func (m *MockTransport) SetReadValue(ch gatt.Characteristic, data []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[ch.UUID] = append([]byte(nil), data...)
}

// FailOp makes every later call of op ("write", "subscribe", "unsubscribe",
// "read") fail with err. A nil err clears the failure.
func (m *MockTransport) FailOp(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.failures, op)
		return
	}
	m.failures[op] = err
}

func (m *MockTransport) fail(op string, ch gatt.Characteristic) error {
	m.mu.RLock()
	err, ok := m.failures[op]
	m.mu.RUnlock()
	if !ok {
		return nil
	}
	return &gatt.TransportError{Op: op, Characteristic: ch, Err: err}
}

// OnWrite adds a hook that runs after each write
func (m *MockTransport) OnWrite(hook WriteHook) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hooks = append(m.hooks, hook)
}

// --- gatt.Transport ---

func (m *MockTransport) Write(ch gatt.Characteristic, data []byte) error {
	if err := m.fail("write", ch); err != nil {
		return err
	}
	copied := append([]byte(nil), data...)
	m.logger.Printf("MockTransport: write %s % X", ch, copied)

	m.writtenMu.Lock()
	m.writtenValues = append(m.writtenValues, WrittenValue{
		Timestamp:      time.Now(),
		Characteristic: ch,
		Data:           copied,
		DataHex:        hex.EncodeToString(copied),
	})
	if len(m.writtenValues) > maxWrittenValues {
		m.writtenValues = m.writtenValues[len(m.writtenValues)-maxWrittenValues:]
	}
	m.writtenMu.Unlock()

	m.mu.RLock()
	hooks := append([]WriteHook(nil), m.hooks...)
	m.mu.RUnlock()
	for _, hook := range hooks {
		hook(m, ch, copied)
	}
	return nil
}

func (m *MockTransport) Subscribe(ch gatt.Characteristic, onFrame func(gatt.RawFrame)) error {
	if err := m.fail("subscribe", ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.subscribers[ch.UUID] = onFrame
	m.logger.Printf("MockTransport: notifications enabled for %s", ch)
	return nil
}

func (m *MockTransport) Unsubscribe(ch gatt.Characteristic) error {
	if err := m.fail("unsubscribe", ch); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.subscribers, ch.UUID)
	m.logger.Printf("MockTransport: notifications disabled for %s", ch)
	return nil
}

func (m *MockTransport) ReadOnce(ch gatt.Characteristic) (gatt.RawFrame, error) {
	if err := m.fail("read", ch); err != nil {
		return gatt.RawFrame{}, err
	}
	m.mu.RLock()
	data, ok := m.reads[ch.UUID]
	m.mu.RUnlock()
	if !ok {
		return gatt.RawFrame{}, &gatt.TransportError{Op: "read", Characteristic: ch, Err: fmt.Errorf("no value for %s", ch.UUID)}
	}
	return gatt.NewFrame(ch.UUID, append([]byte(nil), data...)), nil
}

// --- test helpers ---

// Trigger delivers data to the subscriber of ch as a notification
func (m *MockTransport) Trigger(ch gatt.Characteristic, data []byte) error {
	m.mu.RLock()
	onFrame, ok := m.subscribers[ch.UUID]
	m.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotSubscribed, ch)
	}
	onFrame(gatt.NewFrame(ch.UUID, data))
	return nil
}

// IsSubscribed reports whether something is listening on ch
func (m *MockTransport) IsSubscribed(ch gatt.Characteristic) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.subscribers[ch.UUID]
	return ok
}

// Writes returns the recorded writes, oldest first
func (m *MockTransport) Writes() []WrittenValue {
	m.writtenMu.RLock()
	defer m.writtenMu.RUnlock()
	return append([]WrittenValue(nil), m.writtenValues...)
}

// WritesTo returns the payloads written to ch, oldest first
func (m *MockTransport) WritesTo(ch gatt.Characteristic) [][]byte {
	var out [][]byte
	for _, w := range m.Writes() {
		if w.Characteristic.UUID == ch.UUID {
			out = append(out, w.Data)
		}
	}
	return out
}

// FTMSResponder answers every FTMS control point write with a success
// indication, the way a cooperative trainer does
func FTMSResponder(m *MockTransport, ch gatt.Characteristic, data []byte) {
	if ch.UUID != gatt.CharFitnessMachineControl || len(data) == 0 {
		return
	}
	if err := m.Trigger(ch, []byte{0x80, data[0], 0x01}); err != nil {
		m.logger.Printf("MockTransport: no control point subscriber for response: %v", err)
	}
}
