package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/lowaak/smart-trainer/sensor-core/internal/config"
	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/events"
	"github.com/lowaak/smart-trainer/sensor-core/internal/fec"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
	"github.com/lowaak/smart-trainer/sensor-core/internal/sensors"
)

type reading struct {
	sensor string
	value  string
}

type notifier interface {
	EnableNotifications() error
	DisableNotifications() error
}

// monitor enables the configured sensors and turns their values into log
// lines
type monitor struct {
	transport gatt.Transport
	registry  *dispatch.Registry
	logger    *log.Logger

	readings *events.ChannelEvent[reading]
	out      chan reading
	enabled  []notifier
	trainer  *fec.Controller
	cadence  sensors.CadenceCalculator
	closers  []io.Closer
}

func newMonitor(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *monitor {
	m := &monitor{
		transport: transport,
		registry:  registry,
		logger:    logger,
		readings:  events.NewChannelEvent[reading](false),
		out:       make(chan reading, 64),
	}
	m.readings.Listen(m.out)
	return m
}

func (m *monitor) emit(sensor, format string, args ...any) {
	m.readings.Notify(reading{sensor: sensor, value: fmt.Sprintf(format, args...)})
}

func (m *monitor) enable(cfg *config.Config) error {
	for _, name := range cfg.Device.Sensors {
		n, err := m.sensor(name, cfg)
		if err != nil {
			return err
		}
		if err := n.EnableNotifications(); err != nil {
			return fmt.Errorf("enable %s: %w", name, err)
		}
		m.enabled = append(m.enabled, n)
	}
	return nil
}

func (m *monitor) disable() {
	var errs []error
	for _, n := range m.enabled {
		errs = append(errs, n.DisableNotifications())
	}
	if err := errors.Join(errs...); err != nil {
		m.logger.Printf("sensor-monitor: disable notifications: %v", err)
	}
}

// close releases files opened for the sensors
func (m *monitor) close() {
	for _, c := range m.closers {
		if err := c.Close(); err != nil {
			m.logger.Printf("sensor-monitor: %v", err)
		}
	}
	m.closers = nil
}

func (m *monitor) sensor(name string, cfg *config.Config) (notifier, error) {
	switch name {
	case config.SensorHeartRate:
		hr := sensors.NewHeartRate(m.transport, m.registry, m.logger)
		hr.SetHandler(func(v sensors.HeartRateMeasurement) {
			m.emit(name, "%d bpm", v.BPM)
		})
		return hr, nil

	case config.SensorCyclingPower:
		cp := sensors.NewCyclingPower(m.transport, m.registry, m.logger)
		if caps, err := cp.GetCapabilities(); err == nil {
			m.logger.Printf("sensor-monitor: power meter at %s", caps.Location)
		}
		cp.SetHandler(func(v sensors.CyclingPowerMeasurement) {
			m.emit(name, "%d W balance=%s", v.InstantaneousPower, v.PedalPowerBalance)
		})
		return cp, nil

	case config.SensorCSC:
		csc := sensors.NewCyclingSpeedCadence(m.transport, m.registry, m.logger)
		csc.SetHandler(func(v sensors.CSCMeasurement) {
			if crank, ok := v.CrankRevolutions.Get(); ok {
				m.emit(name, "cadence=%s rpm", m.cadence.Update(crank))
			}
		})
		return csc, nil

	case config.SensorBattery:
		b := sensors.NewBattery(m.transport, m.registry, m.logger)
		if level, err := b.ReadLevel(); err == nil {
			m.emit(name, "%d%%", level)
		}
		b.SetHandler(func(v sensors.BatteryLevel) {
			m.emit(name, "%d%%", v)
		})
		return b, nil

	case config.SensorRadar:
		r := sensors.NewRadar(m.transport, m.registry, m.logger)
		r.SetHandler(func(v sensors.RadarMeasurement) {
			parts := make([]string, 0, len(v.Threats))
			for _, t := range v.Threats {
				parts = append(parts, fmt.Sprintf("#%d %dm %dkm/h", t.ID, t.DistanceMeters, t.SpeedKmh))
			}
			if len(parts) == 0 {
				parts = append(parts, "clear")
			}
			m.emit(name, "%s", strings.Join(parts, ", "))
		})
		return r, nil

	case config.SensorFTMS:
		f := sensors.NewFitnessMachine(m.transport, m.registry, m.logger)
		f.SetHandler(func(v sensors.IndoorBikeData) {
			m.emit(name, "speed=%s km/h cadence=%s rpm power=%s W", v.InstantaneousSpeedKmh, v.InstantaneousCadenceRpm, v.InstantaneousPowerWatts)
		})
		f.SetResponseHandler(func(v sensors.FitnessMachineResponse) {
			m.emit(name, "control point response %+v", v)
		})
		f.SetStatusHandler(func(v sensors.FitnessMachineStatus) {
			m.emit(name, "status %s", v)
		})
		f.SetTrainingStatusHandler(func(v sensors.TrainingStatus) {
			if text, ok := v.Text.Get(); ok {
				m.emit(name, "training %s: %s", v.Status, text)
				return
			}
			m.emit(name, "training %s", v.Status)
		})
		return ftmsNotifier{f, m.logger}, nil

	case config.SensorFEC:
		c := fec.NewController(m.transport, m.registry, m.logger)
		c.SetGeneralFEDataHandler(func(v fec.GeneralFEData) {
			m.emit(name, "%s %s speed=%s m/s hr=%s", v.EquipmentType, v.State, v.SpeedMps, v.HeartRateBpm)
		})
		c.SetSpecificTrainerDataHandler(func(v fec.SpecificTrainerData) {
			m.emit(name, "power=%s W cadence=%s rpm", v.InstantaneousPowerWatts, v.CadenceRpm)
		})
		c.SetCommandStatusHandler(func(v fec.CommandStatusData) {
			m.emit(name, "command %s: %s", v.LastCommand, v.Status)
		})
		c.SetUnknownPageHandler(func(v fec.UnknownPage) {
			m.emit(name, "page %d % X", v.Number, v.Data)
		})
		c.OnProtocolViolation(func(err *fec.ProtocolViolationError) {
			m.logger.Printf("sensor-monitor: %v", err)
		})
		m.trainer = c
		return c, nil

	case config.SensorSteering:
		table, err := os.Open(cfg.Steering.ChallengeFile)
		if err != nil {
			return nil, fmt.Errorf("steering challenge table: %w", err)
		}
		m.closers = append(m.closers, table)
		s := sensors.NewSteering(m.transport, m.registry, m.logger, sensors.TableResolver(table))
		s.SetHandler(func(v sensors.SteeringMeasurement) {
			m.emit(name, "%.1f°", v.AngleDegrees)
		})
		s.SetActivationHandler(func(err error) {
			if err != nil {
				m.logger.Printf("sensor-monitor: steering not activated: %v", err)
			}
		})
		return s, nil

	case config.SensorRizer:
		r := sensors.NewRizer(m.transport, m.registry, m.logger)
		r.SetHandler(func(v sensors.SteeringMeasurement) {
			m.emit(name, "%.1f°", v.AngleDegrees)
		})
		return r, nil
	}
	return nil, fmt.Errorf("%w: unknown sensor %q", config.ErrInvalid, name)
}

// ftmsNotifier also enables the status streams, which not every machine
// exposes
type ftmsNotifier struct {
	*sensors.FitnessMachine
	logger *log.Logger
}

func (f ftmsNotifier) EnableNotifications() error {
	if err := f.FitnessMachine.EnableNotifications(); err != nil {
		return err
	}
	if err := f.EnableStatusNotifications(); err != nil {
		f.logger.Printf("sensor-monitor: ftms status unavailable: %v", err)
	}
	return nil
}

// loop logs readings until ctx ends
func (m *monitor) loop(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case r := <-m.out:
			m.logger.Printf("%s: %s", r.sensor, r.value)
		}
	}
}
