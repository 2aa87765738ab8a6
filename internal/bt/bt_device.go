package bt

import (
	"context"
	"errors"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
	"github.com/lowaak/smart-trainer/sensor-core/internal/safe_map"
)

var ErrNotConnected = errors.New("device not connected")

type DeviceState int

const (
	Disconnected DeviceState = iota
	Connecting
	Connected
)

func (s DeviceState) String() string {
	switch s {
	case Connected:
		return "Connected"
	case Connecting:
		return "Connecting"
	case Disconnected:
		return "Disconnected"
	default:
		return "Unknown"
	}
}

// Device is one BLE peripheral. Once connected it is a gatt.Transport.
type Device struct {
	address     bluetooth.Address
	scanTimeout time.Duration
	logger      *log.Logger

	mu           sync.RWMutex
	state        DeviceState
	scanLastSeen time.Time
	scanResult   *bluetooth.ScanResult
	connected    *bluetooth.Device // nil unless connected
	serviceUUIDs []uuid.UUID
	discovered   bool // all services of the current connection are known

	bleMu                  sync.Mutex // Serializes BLE characteristic operations
	services               *safe_map.SafeMap[uuid.UUID, *bluetooth.DeviceService]
	characteristics        *safe_map.SafeMap[charKey, *bluetooth.DeviceCharacteristic]
	serviceCharsDiscovered *safe_map.SafeMap[uuid.UUID, bool]
}

type charKey struct {
	service uuid.UUID
	char    uuid.UUID
}

var _ gatt.Transport = (*Device)(nil)

func newDevice(logger *log.Logger, address bluetooth.Address, scanTimeout time.Duration) *Device {
	if logger == nil {
		panic("Device: logger cannot be nil")
	}
	if scanTimeout <= 0 {
		panic("Device: scanTimeout must be > 0")
	}
	return &Device{
		address:                address,
		scanTimeout:            scanTimeout,
		logger:                 logger,
		scanLastSeen:           time.Unix(0, 0),
		services:               safe_map.NewSafeMap[uuid.UUID, *bluetooth.DeviceService](),
		characteristics:        safe_map.NewSafeMap[charKey, *bluetooth.DeviceCharacteristic](),
		serviceCharsDiscovered: safe_map.NewSafeMap[uuid.UUID, bool](),
	}
}

func (d *Device) Address() string {
	return d.address.String()
}

func (d *Device) LocalName() string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.scanResult != nil {
		if name := d.scanResult.LocalName(); name != "" {
			return name
		}
	}
	return "Unknown"
}

func (d *Device) RSSI() (int16, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.scanResult == nil {
		return 0, false
	}
	return d.scanResult.RSSI, true
}

func (d *Device) State() DeviceState {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.state
}

func (d *Device) IsConnected() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected != nil
}

// ServiceUUIDs are the services seen in the advertisement
func (d *Device) ServiceUUIDs() []uuid.UUID {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return slices.Clone(d.serviceUUIDs)
}

func (d *Device) HasService(u uuid.UUID) bool {
	return slices.Contains(d.ServiceUUIDs(), u)
}

func (d *Device) IsRecentlyScanned() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scanResult != nil && time.Since(d.scanLastSeen) <= d.scanTimeout
}

// WaitForConnection polls until the connect handler has reported the device
// as connected or ctx ends
func (d *Device) WaitForConnection(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		if d.IsConnected() {
			return nil
		}
		select {
		case <-ticker.C:
		case <-ctx.Done():
			return fmt.Errorf("waiting for connection to %s: %w", d.Address(), ctx.Err())
		}
	}
}

func (d *Device) seen(result bluetooth.ScanResult, now time.Time) (first bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	first = d.scanResult == nil
	d.scanResult = &result
	d.scanLastSeen = now
	if first {
		for _, u := range result.ServiceUUIDs() {
			if parsed, err := uuid.Parse(u.String()); err == nil {
				d.serviceUUIDs = append(d.serviceUUIDs, parsed)
			}
		}
	}
	return first
}

func (d *Device) lastSeen() time.Time {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.scanLastSeen
}

func (d *Device) setConnected(device *bluetooth.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.connected = device
	if device != nil {
		d.state = Connected
		return
	}
	d.state = Disconnected
	// handles are only valid for one connection
	d.services.Clear()
	d.characteristics.Clear()
	d.serviceCharsDiscovered.Clear()
	d.discovered = false
}

func (d *Device) setState(state DeviceState) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = state
}

func (d *Device) servicesDiscovered() bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.discovered
}

// markServicesDiscovered is a no-op when device is no longer the current
// connection
func (d *Device) markServicesDiscovered(device *bluetooth.Device) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.connected == device {
		d.discovered = true
	}
}

func (d *Device) connectedDevice() *bluetooth.Device {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.connected
}

func (d *Device) transportError(op string, ch gatt.Characteristic, err error) error {
	d.logger.Printf("Device %s: %s %s failed: %v", d.Address(), op, ch, err)
	return &gatt.TransportError{Op: op, Characteristic: ch, Err: err}
}

// --- gatt.Transport ---

// Write uses write-with-response so control point writes are acknowledged
// before the indication arrives
func (d *Device) Write(ch gatt.Characteristic, data []byte) error {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	c, err := d.characteristic(ch)
	if err != nil {
		return d.transportError("write", ch, err)
	}
	if _, err := c.Write(data); err != nil {
		return d.transportError("write", ch, err)
	}
	return nil
}

func (d *Device) Subscribe(ch gatt.Characteristic, onFrame func(gatt.RawFrame)) error {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	c, err := d.characteristic(ch)
	if err != nil {
		return d.transportError("subscribe", ch, err)
	}
	err = c.EnableNotifications(func(buf []byte) {
		// the stack reuses buf after the callback returns
		onFrame(gatt.NewFrame(ch.UUID, slices.Clone(buf)))
	})
	if err != nil {
		return d.transportError("subscribe", ch, err)
	}
	d.logger.Printf("Device %s: notifications enabled for %s", d.Address(), ch)
	return nil
}

func (d *Device) Unsubscribe(ch gatt.Characteristic) error {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	c, err := d.characteristic(ch)
	if err != nil {
		return d.transportError("unsubscribe", ch, err)
	}
	// nil callback disables notifications
	if err := c.EnableNotifications(nil); err != nil {
		return d.transportError("unsubscribe", ch, err)
	}
	d.logger.Printf("Device %s: notifications disabled for %s", d.Address(), ch)
	return nil
}

func (d *Device) ReadOnce(ch gatt.Characteristic) (gatt.RawFrame, error) {
	d.bleMu.Lock()
	defer d.bleMu.Unlock()

	c, err := d.characteristic(ch)
	if err != nil {
		return gatt.RawFrame{}, d.transportError("read", ch, err)
	}
	buf := make([]byte, 512)
	n, err := c.Read(buf)
	if err != nil {
		return gatt.RawFrame{}, d.transportError("read", ch, err)
	}
	return gatt.NewFrame(ch.UUID, buf[:n]), nil
}

// --- discovery ---

// service discovers every service on first use. Discovering services one by
// one interrupts notifications on services found earlier.
func (d *Device) service(u uuid.UUID) (*bluetooth.DeviceService, error) {
	if svc, ok := d.services.Load(u); ok {
		return svc, nil
	}
	device := d.connectedDevice()
	if device == nil {
		return nil, ErrNotConnected
	}

	if !d.servicesDiscovered() {
		d.logger.Printf("Device %s: discovering all services", d.Address())
		found, err := device.DiscoverServices(nil)
		if err != nil {
			return nil, fmt.Errorf("discovering services: %w", err)
		}
		for i := range found {
			parsed, err := uuid.Parse(found[i].UUID().String())
			if err != nil {
				continue
			}
			d.services.Store(parsed, &found[i])
		}
		d.markServicesDiscovered(device)
	}

	svc, ok := d.services.Load(u)
	if !ok {
		return nil, fmt.Errorf("service %s not found on device", u)
	}
	return svc, nil
}

func (d *Device) characteristic(ch gatt.Characteristic) (*bluetooth.DeviceCharacteristic, error) {
	if d.connectedDevice() == nil {
		return nil, ErrNotConnected
	}
	key := charKey{service: ch.Service, char: ch.UUID}
	if c, ok := d.characteristics.Load(key); ok {
		return c, nil
	}

	if discovered, _ := d.serviceCharsDiscovered.Load(ch.Service); !discovered {
		svc, err := d.service(ch.Service)
		if err != nil {
			return nil, err
		}
		d.logger.Printf("Device %s: discovering characteristics of %s", d.Address(), ch.Service)
		found, err := svc.DiscoverCharacteristics(nil)
		if err != nil {
			return nil, fmt.Errorf("discovering characteristics of %s: %w", ch.Service, err)
		}
		for i := range found {
			parsed, err := uuid.Parse(found[i].UUID().String())
			if err != nil {
				continue
			}
			d.characteristics.Store(charKey{service: ch.Service, char: parsed}, &found[i])
		}
		d.serviceCharsDiscovered.Store(ch.Service, true)
	}

	c, ok := d.characteristics.Load(key)
	if !ok {
		return nil, fmt.Errorf("characteristic %s not found in service %s", ch.UUID, ch.Service)
	}
	return c, nil
}
