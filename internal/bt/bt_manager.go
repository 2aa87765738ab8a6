package bt

import (
	"context"
	"fmt"
	"log"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/smart-trainer/sensor-core/internal/events"
	"github.com/lowaak/smart-trainer/sensor-core/internal/go_func_utils"
	"github.com/lowaak/smart-trainer/sensor-core/internal/safe_map"
)

const defaultScanTimeout = 10 * time.Second

// Manager owns the adapter: scanning, connecting and the device table
type Manager struct {
	adapter     *bluetooth.Adapter
	devices     *safe_map.SafeMap[string, *Device]
	scanTimeout time.Duration
	logger      *log.Logger

	scanDevicesEvent      *events.ChannelEvent[[]*Device]
	connectedDevicesEvent *events.ChannelEvent[[]*Device]

	mu         sync.Mutex
	scanning   bool
	scanCancel context.CancelFunc

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func NewManager(adapter *bluetooth.Adapter, logger *log.Logger, scanTimeout time.Duration) *Manager {
	if adapter == nil {
		panic("Manager: adapter cannot be nil")
	}
	if logger == nil {
		panic("Manager: logger cannot be nil")
	}
	if scanTimeout <= 0 {
		scanTimeout = defaultScanTimeout
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		adapter:               adapter,
		devices:               safe_map.NewSafeMap[string, *Device](),
		scanTimeout:           scanTimeout,
		logger:                logger,
		scanDevicesEvent:      events.NewChannelEvent[[]*Device](true),
		connectedDevicesEvent: events.NewChannelEvent[[]*Device](true),
		ctx:                   ctx,
		cancel:                cancel,
	}
}

func (m *Manager) device(address bluetooth.Address) (*Device, bool) {
	d, loaded := m.devices.LoadOrStore(address.String(), func() *Device {
		return newDevice(m.logger, address, m.scanTimeout)
	})
	return d, !loaded
}

// Device returns a known device by address
func (m *Manager) Device(address string) (*Device, bool) {
	return m.devices.Load(address)
}

// Enable powers the adapter and tracks connects and disconnects
func (m *Manager) Enable() error {
	m.adapter.SetConnectHandler(func(device bluetooth.Device, connected bool) {
		d, _ := m.device(device.Address)
		if connected {
			m.logger.Printf("Manager: device connected: %s", d.Address())
			d.setConnected(&device)
		} else {
			m.logger.Printf("Manager: device disconnected: %s", d.Address())
			d.setConnected(nil)
		}
		m.connectedDevicesEvent.Notify(m.ConnectedDevices())
	})
	return m.adapter.Enable()
}

// StartScan scans for peripherals advertising any of services (all
// peripherals when services is empty). The device list is published once a
// second until StopScan.
func (m *Manager) StartScan(services []uuid.UUID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.scanning && m.scanCancel != nil {
		m.logger.Printf("Manager: restarting running scan")
		m.scanCancel()
	}
	m.scanning = true
	var scanCtx context.Context
	scanCtx, m.scanCancel = context.WithCancel(m.ctx)
	m.logger.Printf("Manager: starting scan, service filter %v", services)

	m.wg.Add(3)
	go_func_utils.SafeGo(m.logger, func() {
		defer m.wg.Done()
		m.cleanupStaleDevices(scanCtx)
	})

	go_func_utils.SafeGo(m.logger, func() {
		defer m.wg.Done()
		err := m.adapter.Scan(func(_ *bluetooth.Adapter, result bluetooth.ScanResult) {
			if scanCtx.Err() != nil {
				return
			}
			if !advertisesAny(result, services) {
				return
			}
			d, _ := m.device(result.Address)
			if d.seen(result, time.Now()) {
				m.logger.Printf("Manager: found %s (%s) [RSSI: %d]", d.LocalName(), d.Address(), result.RSSI)
			}
		})
		if err != nil {
			m.logger.Printf("Manager: scan error: %v", err)
		}
	})

	go_func_utils.SafeGo(m.logger, func() {
		defer m.wg.Done()
		ticker := time.NewTicker(time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-scanCtx.Done():
				return
			case <-ticker.C:
				m.scanDevicesEvent.Notify(m.ScanDevices())
			}
		}
	})
}

func advertisesAny(result bluetooth.ScanResult, services []uuid.UUID) bool {
	if len(services) == 0 {
		return true
	}
	for _, advertised := range result.ServiceUUIDs() {
		parsed, err := uuid.Parse(advertised.String())
		if err == nil && slices.Contains(services, parsed) {
			return true
		}
	}
	return false
}

func (m *Manager) cleanupStaleDevices(ctx context.Context) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			removed := m.devices.DeleteFunc(func(_ string, d *Device) bool {
				return !d.IsConnected() && time.Since(d.lastSeen()) > m.scanTimeout
			})
			for _, addr := range removed {
				m.logger.Printf("Manager: device timeout: %s (not seen for %v)", addr, m.scanTimeout)
			}
		}
	}
}

func (m *Manager) StopScan() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.scanning = false
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
	return m.adapter.StopScan()
}

func (m *Manager) IsScanning() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.scanning
}

// Connect connects to d and waits until the connect handler reports it
func (m *Manager) Connect(ctx context.Context, d *Device) error {
	m.logger.Printf("Manager: connecting to %s", d.Address())
	d.setState(Connecting)

	device, err := m.adapter.Connect(d.address, bluetooth.ConnectionParams{})
	if err != nil {
		d.setState(Disconnected)
		return fmt.Errorf("connect %s: %w", d.Address(), err)
	}
	// some platforms never call the connect handler for outgoing connections
	if !d.IsConnected() {
		d.setConnected(&device)
	}
	return d.WaitForConnection(ctx)
}

func (m *Manager) Disconnect(d *Device) error {
	device := d.connectedDevice()
	if device == nil {
		return nil
	}
	m.logger.Printf("Manager: disconnecting from %s", d.Address())
	if err := device.Disconnect(); err != nil {
		return fmt.Errorf("disconnect %s: %w", d.Address(), err)
	}
	d.setConnected(nil)
	return nil
}

func (m *Manager) ConnectedDevices() []*Device {
	var out []*Device
	for _, d := range m.devices.Values() {
		if d.IsConnected() {
			out = append(out, d)
		}
	}
	return out
}

func (m *Manager) ScanDevices() []*Device {
	var out []*Device
	for _, d := range m.devices.Values() {
		if d.IsRecentlyScanned() {
			out = append(out, d)
		}
	}
	return out
}

// ListenToDeviceList registers ch for the scan results published each
// second. Returns a deregistration function.
func (m *Manager) ListenToDeviceList(ch chan<- []*Device) func() {
	return m.scanDevicesEvent.Listen(ch)
}

// ListenToConnectedDevices registers ch for connection changes. Returns a
// deregistration function.
func (m *Manager) ListenToConnectedDevices(ch chan<- []*Device) func() {
	return m.connectedDevicesEvent.Listen(ch)
}

// WaitForDevice scans until a device advertising service shows up or ctx ends
func (m *Manager) WaitForDevice(ctx context.Context, service uuid.UUID) (*Device, error) {
	found := make(chan []*Device, 1)
	stop := m.ListenToDeviceList(found)
	defer stop()
	m.StartScan([]uuid.UUID{service})
	defer func() {
		if err := m.StopScan(); err != nil {
			m.logger.Printf("Manager: stop scan: %v", err)
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("no device advertising %s: %w", service, ctx.Err())
		case devices := <-found:
			for _, d := range devices {
				if d.HasService(service) {
					return d, nil
				}
			}
		}
	}
}

// Shutdown disconnects everything and waits for the scan goroutines
func (m *Manager) Shutdown() {
	m.logger.Println("Manager: shutting down")
	for _, d := range m.ConnectedDevices() {
		if err := m.Disconnect(d); err != nil {
			m.logger.Printf("Manager: %v", err)
		}
	}
	if m.IsScanning() {
		if err := m.StopScan(); err != nil {
			m.logger.Printf("Manager: stop scan: %v", err)
		}
	}
	m.cancel()
	m.wg.Wait()
	m.logger.Println("Manager: shutdown complete")
}
