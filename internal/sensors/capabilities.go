package sensors

import (
	"fmt"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// Cycling Power Feature bit positions (Cycling Power Service 1.1, table 3.1)
const (
	cpfBitPedalPowerBalance           = 0
	cpfBitAccumulatedTorque           = 1
	cpfBitWheelRevolutionData         = 2
	cpfBitCrankRevolutionData         = 3
	cpfBitExtremeMagnitudes           = 4
	cpfBitExtremeAngles               = 5
	cpfBitDeadSpotAngles              = 6
	cpfBitAccumulatedEnergy           = 7
	cpfBitOffsetCompensationIndicator = 8
	cpfBitOffsetCompensation          = 9
	cpfBitContentMasking              = 10
	cpfBitMultipleSensorLocations     = 11
	cpfBitCrankLengthAdjustment       = 12
	cpfBitChainLengthAdjustment       = 13
	cpfBitChainWeightAdjustment       = 14
	cpfBitSpanLengthAdjustment        = 15
	cpfBitSensorMeasurementContext    = 16
	cpfBitMeasurementDirection        = 17
	cpfBitFactoryCalibrationDate      = 18
	cpfBitEnhancedOffsetCompensation  = 19
	cpfDistributedSystemPos           = 20
	cpfDistributedSystemWidth         = 2
)

// MeasurementContext says whether a power sensor measures force or torque
type MeasurementContext uint8

const (
	ContextForceBased  MeasurementContext = 0
	ContextTorqueBased MeasurementContext = 1
)

func (c MeasurementContext) String() string {
	if c == ContextTorqueBased {
		return "torque based"
	}
	return "force based"
}

// DistributedSystemSupport describes multi-sensor power systems (e.g. one per pedal)
type DistributedSystemSupport uint8

const (
	DistributedSystemUnspecified  DistributedSystemSupport = 0
	DistributedSystemNotSupported DistributedSystemSupport = 1
	DistributedSystemSupported    DistributedSystemSupport = 2
	DistributedSystemReserved     DistributedSystemSupport = 3
)

func (d DistributedSystemSupport) String() string {
	switch d {
	case DistributedSystemUnspecified:
		return "unspecified"
	case DistributedSystemNotSupported:
		return "not supported"
	case DistributedSystemSupported:
		return "supported"
	default:
		return "reserved"
	}
}

// CyclingPowerFeature lists what a power sensor can report
type CyclingPowerFeature struct {
	Raw codec.Flags32

	PedalPowerBalance           bool
	AccumulatedTorque           bool
	WheelRevolutionData         bool
	CrankRevolutionData         bool
	ExtremeMagnitudes           bool
	ExtremeAngles               bool
	TopAndBottomDeadSpotAngles  bool
	AccumulatedEnergy           bool
	OffsetCompensationIndicator bool
	OffsetCompensation          bool
	MeasurementContentMasking   bool
	MultipleSensorLocations     bool
	CrankLengthAdjustment       bool
	ChainLengthAdjustment       bool
	ChainWeightAdjustment       bool
	SpanLengthAdjustment        bool

	SensorMeasurementContext          MeasurementContext
	InstantaneousMeasurementDirection bool
	FactoryCalibrationDate            bool
	EnhancedOffsetCompensation        bool
	DistributedSystemSupport          DistributedSystemSupport
}

func DecodeCyclingPowerFeature(data []byte) (CyclingPowerFeature, error) {
	raw, err := codec.NewReader(data).Flags32("cycling power feature")
	if err != nil {
		return CyclingPowerFeature{}, err
	}
	f := CyclingPowerFeature{
		Raw:                               raw,
		PedalPowerBalance:                 raw.Has(cpfBitPedalPowerBalance),
		AccumulatedTorque:                 raw.Has(cpfBitAccumulatedTorque),
		WheelRevolutionData:               raw.Has(cpfBitWheelRevolutionData),
		CrankRevolutionData:               raw.Has(cpfBitCrankRevolutionData),
		ExtremeMagnitudes:                 raw.Has(cpfBitExtremeMagnitudes),
		ExtremeAngles:                     raw.Has(cpfBitExtremeAngles),
		TopAndBottomDeadSpotAngles:        raw.Has(cpfBitDeadSpotAngles),
		AccumulatedEnergy:                 raw.Has(cpfBitAccumulatedEnergy),
		OffsetCompensationIndicator:       raw.Has(cpfBitOffsetCompensationIndicator),
		OffsetCompensation:                raw.Has(cpfBitOffsetCompensation),
		MeasurementContentMasking:         raw.Has(cpfBitContentMasking),
		MultipleSensorLocations:           raw.Has(cpfBitMultipleSensorLocations),
		CrankLengthAdjustment:             raw.Has(cpfBitCrankLengthAdjustment),
		ChainLengthAdjustment:             raw.Has(cpfBitChainLengthAdjustment),
		ChainWeightAdjustment:             raw.Has(cpfBitChainWeightAdjustment),
		SpanLengthAdjustment:              raw.Has(cpfBitSpanLengthAdjustment),
		InstantaneousMeasurementDirection: raw.Has(cpfBitMeasurementDirection),
		FactoryCalibrationDate:            raw.Has(cpfBitFactoryCalibrationDate),
		EnhancedOffsetCompensation:        raw.Has(cpfBitEnhancedOffsetCompensation),
		DistributedSystemSupport:          DistributedSystemSupport(raw.Field(cpfDistributedSystemPos, cpfDistributedSystemWidth)),
	}
	if raw.Has(cpfBitSensorMeasurementContext) {
		f.SensorMeasurementContext = ContextTorqueBased
	}
	return f, nil
}

// SensorLocation is where a sensor is mounted
type SensorLocation uint8

const (
	LocationOther SensorLocation = iota
	LocationTopOfShoe
	LocationInShoe
	LocationHip
	LocationFrontWheel
	LocationLeftCrank
	LocationRightCrank
	LocationLeftPedal
	LocationRightPedal
	LocationFrontHub
	LocationRearDropout
	LocationChainstay
	LocationRearWheel
	LocationRearHub
	LocationChest
	LocationSpider
	LocationChainRing
	LocationUnknown SensorLocation = 0xFF
)

var sensorLocationNames = map[SensorLocation]string{
	LocationOther:       "other",
	LocationTopOfShoe:   "top of shoe",
	LocationInShoe:      "in shoe",
	LocationHip:         "hip",
	LocationFrontWheel:  "front wheel",
	LocationLeftCrank:   "left crank",
	LocationRightCrank:  "right crank",
	LocationLeftPedal:   "left pedal",
	LocationRightPedal:  "right pedal",
	LocationFrontHub:    "front hub",
	LocationRearDropout: "rear dropout",
	LocationChainstay:   "chainstay",
	LocationRearWheel:   "rear wheel",
	LocationRearHub:     "rear hub",
	LocationChest:       "chest",
	LocationSpider:      "spider",
	LocationChainRing:   "chain ring",
	LocationUnknown:     "unknown",
}

func (l SensorLocation) String() string {
	if name, ok := sensorLocationNames[l]; ok {
		return name
	}
	return fmt.Sprintf("SensorLocation(%d)", uint8(l))
}

// ParseSensorLocation maps a location code, returning LocationUnknown for
// codes outside the assigned range
func ParseSensorLocation(code uint8) SensorLocation {
	if code > uint8(LocationChainRing) {
		return LocationUnknown
	}
	return SensorLocation(code)
}

func DecodeSensorLocation(data []byte) (SensorLocation, error) {
	code, err := codec.NewReader(data).Uint8("sensor location")
	if err != nil {
		return LocationUnknown, err
	}
	return ParseSensorLocation(code), nil
}

// CSC Feature bit positions
const (
	cscfBitWheelRevolutionData     = 0
	cscfBitCrankRevolutionData     = 1
	cscfBitMultipleSensorLocations = 2
)

type CSCFeature struct {
	Raw                     codec.Flags16
	WheelRevolutionData     bool
	CrankRevolutionData     bool
	MultipleSensorLocations bool
}

func DecodeCSCFeature(data []byte) (CSCFeature, error) {
	raw, err := codec.NewReader(data).Flags16("csc feature")
	if err != nil {
		return CSCFeature{}, err
	}
	return CSCFeature{
		Raw:                     raw,
		WheelRevolutionData:     raw.Has(cscfBitWheelRevolutionData),
		CrankRevolutionData:     raw.Has(cscfBitCrankRevolutionData),
		MultipleSensorLocations: raw.Has(cscfBitMultipleSensorLocations),
	}, nil
}

// Fitness Machine Feature bit positions (FTMS 1.0, 4.3.1.1 and 4.3.1.2)
const (
	fmfBitAverageSpeed         = 0
	fmfBitCadence              = 1
	fmfBitTotalDistance        = 2
	fmfBitInclination          = 3
	fmfBitResistanceLevel      = 7
	fmfBitHeartRate            = 10
	fmfBitElapsedTime          = 12
	fmfBitPowerMeasurement     = 14
	tsfBitSpeedTarget          = 0
	tsfBitInclinationTarget    = 1
	tsfBitResistanceTarget     = 2
	tsfBitPowerTarget          = 3
	tsfBitIndoorBikeSimulation = 13
	tsfBitWheelCircumference   = 14
	tsfBitSpinDownControl      = 15
	tsfBitTargetedCadence      = 16
)

type FitnessMachineFeature struct {
	MachineFeatures codec.Flags32
	TargetSettings  codec.Flags32

	AverageSpeed     bool
	Cadence          bool
	TotalDistance    bool
	Inclination      bool
	ResistanceLevel  bool
	HeartRate        bool
	ElapsedTime      bool
	PowerMeasurement bool

	SpeedTarget          bool
	InclinationTarget    bool
	ResistanceTarget     bool
	PowerTarget          bool
	IndoorBikeSimulation bool
	WheelCircumference   bool
	SpinDownControl      bool
	TargetedCadence      bool
}

func DecodeFitnessMachineFeature(data []byte) (FitnessMachineFeature, error) {
	r := codec.NewReader(data)
	machine, err := r.Flags32("fitness machine features")
	if err != nil {
		return FitnessMachineFeature{}, err
	}
	target, err := r.Flags32("target setting features")
	if err != nil {
		return FitnessMachineFeature{}, err
	}
	return FitnessMachineFeature{
		MachineFeatures:      machine,
		TargetSettings:       target,
		AverageSpeed:         machine.Has(fmfBitAverageSpeed),
		Cadence:              machine.Has(fmfBitCadence),
		TotalDistance:        machine.Has(fmfBitTotalDistance),
		Inclination:          machine.Has(fmfBitInclination),
		ResistanceLevel:      machine.Has(fmfBitResistanceLevel),
		HeartRate:            machine.Has(fmfBitHeartRate),
		ElapsedTime:          machine.Has(fmfBitElapsedTime),
		PowerMeasurement:     machine.Has(fmfBitPowerMeasurement),
		SpeedTarget:          target.Has(tsfBitSpeedTarget),
		InclinationTarget:    target.Has(tsfBitInclinationTarget),
		ResistanceTarget:     target.Has(tsfBitResistanceTarget),
		PowerTarget:          target.Has(tsfBitPowerTarget),
		IndoorBikeSimulation: target.Has(tsfBitIndoorBikeSimulation),
		WheelCircumference:   target.Has(tsfBitWheelCircumference),
		SpinDownControl:      target.Has(tsfBitSpinDownControl),
		TargetedCadence:      target.Has(tsfBitTargetedCadence),
	}, nil
}

// SupportedPowerRange is the target power range of a fitness machine in watts
type SupportedPowerRange struct {
	Min       int16
	Max       int16
	Increment uint16
}

func DecodeSupportedPowerRange(data []byte) (SupportedPowerRange, error) {
	r := codec.NewReader(data)
	minPower, err := r.Int16("minimum power")
	if err != nil {
		return SupportedPowerRange{}, err
	}
	maxPower, err := r.Int16("maximum power")
	if err != nil {
		return SupportedPowerRange{}, err
	}
	inc, err := r.Uint16("power increment")
	if err != nil {
		return SupportedPowerRange{}, err
	}
	return SupportedPowerRange{Min: minPower, Max: maxPower, Increment: inc}, nil
}

// SupportedResistanceRange is the resistance level range, unitless with 0.1 resolution
type SupportedResistanceRange struct {
	Min       float64
	Max       float64
	Increment float64
}

func DecodeSupportedResistanceRange(data []byte) (SupportedResistanceRange, error) {
	r := codec.NewReader(data)
	minLevel, err := r.Int16("minimum resistance level")
	if err != nil {
		return SupportedResistanceRange{}, err
	}
	maxLevel, err := r.Int16("maximum resistance level")
	if err != nil {
		return SupportedResistanceRange{}, err
	}
	inc, err := r.Uint16("resistance increment")
	if err != nil {
		return SupportedResistanceRange{}, err
	}
	return SupportedResistanceRange{
		Min:       float64(minLevel) / 10,
		Max:       float64(maxLevel) / 10,
		Increment: float64(inc) / 10,
	}, nil
}

// BatteryLevel is the remaining charge in percent
type BatteryLevel uint8

func DecodeBatteryLevel(data []byte) (BatteryLevel, error) {
	v, err := codec.NewReader(data).Uint8("battery level")
	return BatteryLevel(v), err
}
