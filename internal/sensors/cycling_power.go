package sensors

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// Cycling Power Measurement flag bit positions (Cycling Power Service 1.1)
const (
	cpBitPedalPowerBalance          = 0
	cpBitPedalPowerBalanceReference = 1
	cpBitAccumulatedTorque          = 2
	cpBitAccumulatedTorqueSource    = 3
	cpBitWheelRevolutions           = 4
	cpBitCrankRevolutions           = 5
	cpBitExtremeForce               = 6
	cpBitExtremeTorque              = 7
	cpBitExtremeAngles              = 8
	cpBitTopDeadSpotAngle           = 9
	cpBitBottomDeadSpotAngle        = 10
	cpBitAccumulatedEnergy          = 11
	cpBitOffsetCompensation         = 12
)

// TorqueSource tells whether accumulated torque is measured at the wheel or the crank
type TorqueSource uint8

const (
	TorqueSourceWheel TorqueSource = 0
	TorqueSourceCrank TorqueSource = 1
)

func (s TorqueSource) String() string {
	if s == TorqueSourceCrank {
		return "crank"
	}
	return "wheel"
}

// ExtremeForce holds maximum and minimum force magnitudes in newtons
type ExtremeForce struct {
	Max int16
	Min int16
}

// ExtremeTorque holds maximum and minimum torque magnitudes in newton metres
type ExtremeTorque struct {
	Max float64
	Min float64
}

// ExtremeAngles holds the crank angles, in degrees, at which the extreme
// magnitudes were measured
type ExtremeAngles struct {
	Max uint16
	Min uint16
}

// CyclingPowerMeasurement is one Cycling Power Measurement notification
type CyclingPowerMeasurement struct {
	Flags              codec.Flags16
	InstantaneousPower int16 // W

	// Percentage of power from the reference pedal
	PedalPowerBalance codec.Optional[float64]
	// The balance is referenced to the left pedal; otherwise unknown
	PedalPowerBalanceLeft bool

	AccumulatedTorque       codec.Optional[float64] // Nm
	AccumulatedTorqueSource TorqueSource

	WheelRevolutions codec.Optional[WheelRevolutionData]
	CrankRevolutions codec.Optional[CrankRevolutionData]

	ExtremeForce  codec.Optional[ExtremeForce]
	ExtremeTorque codec.Optional[ExtremeTorque]
	ExtremeAngles codec.Optional[ExtremeAngles]

	TopDeadSpotAngle    codec.Optional[uint16] // degrees
	BottomDeadSpotAngle codec.Optional[uint16] // degrees
	AccumulatedEnergy   codec.Optional[uint16] // kJ

	OffsetCompensationIndicator bool
}

// DecodeCyclingPowerMeasurement decodes the Cycling Power Measurement characteristic
// See: https://www.bluetooth.com/specifications/specs/cycling-power-service-1-1/
func DecodeCyclingPowerMeasurement(data []byte) (CyclingPowerMeasurement, error) {
	var m CyclingPowerMeasurement
	if err := m.decode(codec.NewReader(data)); err != nil {
		return CyclingPowerMeasurement{}, err
	}
	return m, nil
}

func (m *CyclingPowerMeasurement) decode(r *codec.Reader) error {
	flags, err := r.Flags16("cycling power flags")
	if err != nil {
		return err
	}
	m.Flags = flags

	if flags.Has(cpBitExtremeForce) && flags.Has(cpBitExtremeTorque) {
		return codec.NewDecodeError("extreme magnitudes", 0, codec.ErrInconsistentFlags)
	}

	if m.InstantaneousPower, err = r.Int16("instantaneous power"); err != nil {
		return err
	}

	m.PedalPowerBalanceLeft = flags.Has(cpBitPedalPowerBalanceReference)
	if flags.Has(cpBitAccumulatedTorqueSource) {
		m.AccumulatedTorqueSource = TorqueSourceCrank
	}
	m.OffsetCompensationIndicator = flags.Has(cpBitOffsetCompensation)

	if flags.Has(cpBitPedalPowerBalance) {
		v, err := r.Uint8("pedal power balance")
		if err != nil {
			return err
		}
		m.PedalPowerBalance = codec.Some(float64(v) / 2)
	}

	if flags.Has(cpBitAccumulatedTorque) {
		v, err := r.Uint16("accumulated torque")
		if err != nil {
			return err
		}
		m.AccumulatedTorque = codec.Some(float64(v) / 32)
	}

	if flags.Has(cpBitWheelRevolutions) {
		v, err := readWheelRevolutions(r, 2048)
		if err != nil {
			return err
		}
		m.WheelRevolutions = codec.Some(v)
	}

	if flags.Has(cpBitCrankRevolutions) {
		v, err := readCrankRevolutions(r)
		if err != nil {
			return err
		}
		m.CrankRevolutions = codec.Some(v)
	}

	if flags.Has(cpBitExtremeForce) {
		maxForce, err := r.Int16("maximum force magnitude")
		if err != nil {
			return err
		}
		minForce, err := r.Int16("minimum force magnitude")
		if err != nil {
			return err
		}
		m.ExtremeForce = codec.Some(ExtremeForce{Max: maxForce, Min: minForce})
	}

	if flags.Has(cpBitExtremeTorque) {
		maxTorque, err := r.Int16("maximum torque magnitude")
		if err != nil {
			return err
		}
		minTorque, err := r.Int16("minimum torque magnitude")
		if err != nil {
			return err
		}
		m.ExtremeTorque = codec.Some(ExtremeTorque{Max: float64(maxTorque) / 32, Min: float64(minTorque) / 32})
	}

	if flags.Has(cpBitExtremeAngles) {
		// two 12-bit angles packed into three bytes, maximum first
		packed, err := r.Uint24("extreme angles")
		if err != nil {
			return err
		}
		m.ExtremeAngles = codec.Some(ExtremeAngles{
			Max: uint16(codec.Field(packed, 0, 12)),
			Min: uint16(codec.Field(packed, 12, 12)),
		})
	}

	if flags.Has(cpBitTopDeadSpotAngle) {
		v, err := r.Uint16("top dead spot angle")
		if err != nil {
			return err
		}
		m.TopDeadSpotAngle = codec.Some(v)
	}

	if flags.Has(cpBitBottomDeadSpotAngle) {
		v, err := r.Uint16("bottom dead spot angle")
		if err != nil {
			return err
		}
		m.BottomDeadSpotAngle = codec.Some(v)
	}

	if flags.Has(cpBitAccumulatedEnergy) {
		v, err := r.Uint16("accumulated energy")
		if err != nil {
			return err
		}
		m.AccumulatedEnergy = codec.Some(v)
	}

	return nil
}
