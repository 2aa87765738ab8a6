package sensors

import (
	"log"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// HeartRate is a heart rate monitor
type HeartRate struct {
	*service
}

func NewHeartRate(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *HeartRate {
	return &HeartRate{newService("HeartRate", transport, registry, logger, gatt.HeartRateMeasurement)}
}

// SetHandler installs the measurement callback. nil removes it.
func (h *HeartRate) SetHandler(fn func(HeartRateMeasurement)) {
	dispatch.Handle(h.registry, KindHeartRate, fn)
}

// CyclingPowerCapabilities is what a power meter reports about itself
type CyclingPowerCapabilities struct {
	Feature  CyclingPowerFeature
	Location SensorLocation
}

// CyclingPower is a power meter. The power vector stream is enabled
// separately since few meters support it.
type CyclingPower struct {
	*service
}

func NewCyclingPower(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *CyclingPower {
	return &CyclingPower{newService("CyclingPower", transport, registry, logger, gatt.CyclingPowerMeasurement)}
}

func (p *CyclingPower) SetHandler(fn func(CyclingPowerMeasurement)) {
	dispatch.Handle(p.registry, KindCyclingPower, fn)
}

func (p *CyclingPower) SetVectorHandler(fn func(CyclingPowerVector)) {
	dispatch.Handle(p.registry, KindCyclingPowerVector, fn)
}

func (p *CyclingPower) EnableVectorNotifications() error {
	return p.subscribe(gatt.CyclingPowerVector, nil)
}

func (p *CyclingPower) DisableVectorNotifications() error {
	return p.unsubscribe(gatt.CyclingPowerVector)
}

// GetCapabilities reads the feature and sensor location characteristics
func (p *CyclingPower) GetCapabilities() (CyclingPowerCapabilities, error) {
	feature, err := readValue(p.service, gatt.CyclingPowerFeature, DecodeCyclingPowerFeature)
	if err != nil {
		return CyclingPowerCapabilities{}, err
	}
	location, err := readValue(p.service, gatt.SensorLocation, DecodeSensorLocation)
	if err != nil {
		return CyclingPowerCapabilities{}, err
	}
	return CyclingPowerCapabilities{Feature: feature, Location: location}, nil
}

// CyclingSpeedCadence is a speed and/or cadence sensor
type CyclingSpeedCadence struct {
	*service
}

func NewCyclingSpeedCadence(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *CyclingSpeedCadence {
	return &CyclingSpeedCadence{newService("CyclingSpeedCadence", transport, registry, logger, gatt.CSCMeasurement)}
}

func (c *CyclingSpeedCadence) SetHandler(fn func(CSCMeasurement)) {
	dispatch.Handle(c.registry, KindCSC, fn)
}

func (c *CyclingSpeedCadence) GetCapabilities() (CSCFeature, error) {
	return readValue(c.service, gatt.CSCFeature, DecodeCSCFeature)
}

// Battery is the battery service most sensors carry alongside their main one
type Battery struct {
	*service
}

func NewBattery(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *Battery {
	return &Battery{newService("Battery", transport, registry, logger, gatt.BatteryLevel)}
}

func (b *Battery) SetHandler(fn func(BatteryLevel)) {
	dispatch.Handle(b.registry, KindBatteryLevel, fn)
}

// ReadLevel reads the battery level once
func (b *Battery) ReadLevel() (BatteryLevel, error) {
	return readValue(b.service, gatt.BatteryLevel, DecodeBatteryLevel)
}

// Radar is a rear view radar
type Radar struct {
	*service
}

func NewRadar(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *Radar {
	return &Radar{newService("Radar", transport, registry, logger, gatt.RadarMeasurement)}
}

func (r *Radar) SetHandler(fn func(RadarMeasurement)) {
	dispatch.Handle(r.registry, KindRadar, fn)
}

// FitnessMachineCapabilities holds the feature flags plus the target ranges
// the machine advertises. A range is only read when the matching target
// setting is supported.
type FitnessMachineCapabilities struct {
	Feature         FitnessMachineFeature
	PowerRange      codec.Optional[SupportedPowerRange]
	ResistanceRange codec.Optional[SupportedResistanceRange]
}

// FitnessMachine is an FTMS smart trainer. Control point responses arrive as
// indications and are routed like any other notification.
type FitnessMachine struct {
	*service
}

func NewFitnessMachine(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *FitnessMachine {
	return &FitnessMachine{newService("FitnessMachine", transport, registry, logger,
		gatt.IndoorBikeData, gatt.FitnessMachineControlPoint)}
}

func (f *FitnessMachine) SetHandler(fn func(IndoorBikeData)) {
	dispatch.Handle(f.registry, KindIndoorBikeData, fn)
}

func (f *FitnessMachine) SetResponseHandler(fn func(FitnessMachineResponse)) {
	dispatch.Handle(f.registry, KindFitnessMachineResponse, fn)
}

func (f *FitnessMachine) SetStatusHandler(fn func(FitnessMachineStatus)) {
	dispatch.Handle(f.registry, KindFitnessMachineStatus, fn)
}

func (f *FitnessMachine) SetTrainingStatusHandler(fn func(TrainingStatus)) {
	dispatch.Handle(f.registry, KindTrainingStatus, fn)
}

// EnableStatusNotifications subscribes to the optional Fitness Machine Status
// and Training Status characteristics, which EnableNotifications skips.
func (f *FitnessMachine) EnableStatusNotifications() error {
	if err := f.subscribe(gatt.FitnessMachineStatus, nil); err != nil {
		return err
	}
	return f.subscribe(gatt.TrainingStatus, nil)
}

func (f *FitnessMachine) GetCapabilities() (FitnessMachineCapabilities, error) {
	feature, err := readValue(f.service, gatt.FitnessMachineFeature, DecodeFitnessMachineFeature)
	if err != nil {
		return FitnessMachineCapabilities{}, err
	}
	caps := FitnessMachineCapabilities{Feature: feature}
	if feature.PowerTarget {
		pr, err := readValue(f.service, gatt.SupportedPowerRange, DecodeSupportedPowerRange)
		if err != nil {
			return FitnessMachineCapabilities{}, err
		}
		caps.PowerRange = codec.Some(pr)
	}
	if feature.ResistanceTarget {
		rr, err := readValue(f.service, gatt.SupportedResistanceRange, DecodeSupportedResistanceRange)
		if err != nil {
			return FitnessMachineCapabilities{}, err
		}
		caps.ResistanceRange = codec.Some(rr)
	}
	return caps, nil
}

// RequestControl must be sent before any other control point command
func (f *FitnessMachine) RequestControl() error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSRequestControl())
}

func (f *FitnessMachine) Reset() error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSReset())
}

func (f *FitnessMachine) StartOrResume() error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSStartOrResume())
}

func (f *FitnessMachine) StopOrPause(mode FTMSStopMode) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSStopOrPause(mode))
}

// SetTargetPower puts the trainer in ERG mode at watts
func (f *FitnessMachine) SetTargetPower(watts int16) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSTargetPower(watts))
}

func (f *FitnessMachine) SetTargetResistance(level float64) error {
	data, err := EncodeFTMSTargetResistance(level)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

func (f *FitnessMachine) SetTargetSpeed(kmh float64) error {
	data, err := EncodeFTMSTargetSpeed(kmh)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

func (f *FitnessMachine) SetTargetInclination(percent float64) error {
	data, err := EncodeFTMSTargetInclination(percent)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

func (f *FitnessMachine) SetSimulation(sim IndoorBikeSimulation) error {
	data, err := EncodeFTMSSimulation(sim)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

func (f *FitnessMachine) SetTargetHeartRate(bpm uint8) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSTargetHeartRate(bpm))
}

func (f *FitnessMachine) SetTargetedEnergy(kcal uint16) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSTargetedEnergy(kcal))
}

func (f *FitnessMachine) SetTargetedSteps(steps uint16) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSTargetedSteps(steps))
}

func (f *FitnessMachine) SetTargetedStrides(strides uint16) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSTargetedStrides(strides))
}

func (f *FitnessMachine) SetTargetedDistance(meters uint32) error {
	data, err := EncodeFTMSTargetedDistance(meters)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

func (f *FitnessMachine) SetTargetedTime(seconds uint16) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSTargetedTime(seconds))
}

func (f *FitnessMachine) SetTargetedZoneTime(seconds []uint16) error {
	data, err := EncodeFTMSTargetedZoneTime(seconds)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

func (f *FitnessMachine) SetWheelCircumference(mm float64) error {
	data, err := EncodeFTMSWheelCircumference(mm)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}

// SpinDown starts or cancels a spin down calibration. Progress is reported
// through the status handler.
func (f *FitnessMachine) SpinDown(c FTMSSpinDown) error {
	return f.write(gatt.FitnessMachineControlPoint, EncodeFTMSSpinDownControl(c))
}

func (f *FitnessMachine) SetTargetedCadence(rpm float64) error {
	data, err := EncodeFTMSTargetedCadence(rpm)
	if err != nil {
		return err
	}
	return f.write(gatt.FitnessMachineControlPoint, data)
}
