package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"tinygo.org/x/bluetooth"

	"github.com/lowaak/smart-trainer/sensor-core/internal/bt"
	"github.com/lowaak/smart-trainer/sensor-core/internal/capture"
	"github.com/lowaak/smart-trainer/sensor-core/internal/config"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt/gatttest"
)

// source is where frames come from: a bluetooth device, a replayed capture
// or the simulator. run, if set, drives the source until ctx ends.
type source struct {
	transport gatt.Transport
	run       func(ctx context.Context) error
	close     func()
}

var sensorServices = map[string]uuid.UUID{
	config.SensorHeartRate:    gatt.ServiceHeartRate,
	config.SensorCyclingPower: gatt.ServiceCyclingPower,
	config.SensorCSC:          gatt.ServiceCyclingSpeedCadence,
	config.SensorBattery:      gatt.ServiceBattery,
	config.SensorRadar:        gatt.ServiceRadar,
	config.SensorFTMS:         gatt.ServiceFitnessMachine,
	config.SensorFEC:          gatt.ServiceTacxFEC,
	config.SensorSteering:     gatt.ServiceSteering,
	config.SensorRizer:        gatt.ServiceSteering,
}

func openSource(ctx context.Context, cfg *config.Config, logger *log.Logger) (*source, error) {
	switch {
	case cfg.Simulate:
		return simulatedSource(logger), nil
	case cfg.Capture.Replay != "":
		return replaySource(cfg, logger)
	default:
		return bluetoothSource(ctx, cfg, logger)
	}
}

func simulatedSource(logger *log.Logger) *source {
	mock := gatttest.NewMockTransport(logger)
	mock.SetReadValue(gatt.BatteryLevel, []byte{87})
	mock.SetReadValue(gatt.CyclingPowerFeature, []byte{0x0C, 0x00, 0x00, 0x00})
	mock.SetReadValue(gatt.SensorLocation, []byte{0x05})

	trainer := gatttest.NewFECTrainer()
	mock.OnWrite(trainer.Respond)
	mock.OnWrite(gatttest.FTMSResponder)

	sim := gatttest.NewSimulator(mock, gatttest.SimulatedRider{
		HeartRate:  128,
		PowerWatts: 210,
		CadenceRpm: 88,
		SpeedKmh:   31.5,
	})
	return &source{
		transport: mock,
		run: func(ctx context.Context) error {
			sim.Run(ctx, time.Second)
			return ctx.Err()
		},
		close: func() {},
	}
}

func replaySource(cfg *config.Config, logger *log.Logger) (*source, error) {
	replayer, err := capture.LoadReplayer(cfg.Capture.Replay, logger)
	if err != nil {
		return nil, err
	}
	return &source{
		transport: replayer,
		run: func(ctx context.Context) error {
			_, err := replayer.Run(ctx, cfg.Capture.ReplaySpeed)
			return err
		},
		close: func() {},
	}, nil
}

func bluetoothSource(ctx context.Context, cfg *config.Config, logger *log.Logger) (*source, error) {
	manager := bt.NewManager(bluetooth.DefaultAdapter, logger, cfg.Device.ScanTimeout)
	if err := manager.Enable(); err != nil {
		return nil, fmt.Errorf("enable bluetooth: %w", err)
	}

	var services []uuid.UUID
	for _, name := range cfg.Device.Sensors {
		services = append(services, sensorServices[name])
	}
	if len(services) == 0 {
		manager.Shutdown()
		return nil, fmt.Errorf("no sensors enabled")
	}

	manager.StartScan(services)
	device, err := findDevice(ctx, manager, cfg, services[0])
	_ = manager.StopScan()
	if err != nil {
		manager.Shutdown()
		return nil, err
	}

	if err := manager.Connect(ctx, device); err != nil {
		manager.Shutdown()
		return nil, err
	}
	logger.Printf("sensor-monitor: connected to %s (%s)", device.LocalName(), device.Address())
	return &source{
		transport: device,
		close: func() {
			if err := manager.Disconnect(device); err != nil {
				logger.Printf("sensor-monitor: disconnect: %v", err)
			}
			manager.Shutdown()
		},
	}, nil
}

// findDevice waits for the configured address, or for the first device
// advertising service when no address is set
func findDevice(ctx context.Context, manager *bt.Manager, cfg *config.Config, service uuid.UUID) (*bt.Device, error) {
	scanCtx, cancel := context.WithTimeout(ctx, cfg.Device.ScanTimeout)
	defer cancel()

	if cfg.Device.Address == "" {
		return manager.WaitForDevice(scanCtx, service)
	}

	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		if d, ok := manager.Device(cfg.Device.Address); ok {
			return d, nil
		}
		select {
		case <-scanCtx.Done():
			return nil, fmt.Errorf("device %s not found: %w", cfg.Device.Address, scanCtx.Err())
		case <-ticker.C:
		}
	}
}
