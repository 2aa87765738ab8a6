package sensors

import (
	"fmt"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// Cycling Power Vector flag bit positions
const (
	pvBitCrankRevolutions = 0
	pvBitFirstCrankAngle  = 1
	pvBitForceArray       = 2
	pvBitTorqueArray      = 3
	pvDirectionPos        = 4
	pvDirectionWidth      = 2
)

// MeasurementDirection is the direction of the instantaneous magnitudes
type MeasurementDirection uint8

const (
	DirectionUnknown    MeasurementDirection = 0
	DirectionTangential MeasurementDirection = 1
	DirectionRadial     MeasurementDirection = 2
	DirectionLateral    MeasurementDirection = 3
)

func (d MeasurementDirection) String() string {
	switch d {
	case DirectionUnknown:
		return "unknown"
	case DirectionTangential:
		return "tangential"
	case DirectionRadial:
		return "radial"
	case DirectionLateral:
		return "lateral"
	default:
		return fmt.Sprintf("MeasurementDirection(%d)", uint8(d))
	}
}

// CyclingPowerVector is one Cycling Power Vector notification
type CyclingPowerVector struct {
	Flags                      codec.Flags8
	CrankRevolutions           codec.Optional[CrankRevolutionData]
	FirstCrankMeasurementAngle codec.Optional[uint16] // degrees
	// Force samples in newtons, evenly spaced from the first crank angle
	InstantaneousForce codec.Optional[[]int16]
	// Torque samples in newton metres
	InstantaneousTorque codec.Optional[[]float64]
	Direction           MeasurementDirection
}

// DecodeCyclingPowerVector decodes the Cycling Power Vector characteristic.
// The magnitude array takes the rest of the frame, two bytes per sample.
func DecodeCyclingPowerVector(data []byte) (CyclingPowerVector, error) {
	var v CyclingPowerVector
	if err := v.decode(codec.NewReader(data)); err != nil {
		return CyclingPowerVector{}, err
	}
	return v, nil
}

func (v *CyclingPowerVector) decode(r *codec.Reader) error {
	flags, err := r.Flags8("power vector flags")
	if err != nil {
		return err
	}
	v.Flags = flags
	v.Direction = MeasurementDirection(flags.Field(pvDirectionPos, pvDirectionWidth))

	if flags.Has(pvBitForceArray) && flags.Has(pvBitTorqueArray) {
		return codec.NewDecodeError("magnitude array", 0, codec.ErrInconsistentFlags)
	}

	if flags.Has(pvBitCrankRevolutions) {
		c, err := readCrankRevolutions(r)
		if err != nil {
			return err
		}
		v.CrankRevolutions = codec.Some(c)
	}

	if flags.Has(pvBitFirstCrankAngle) {
		a, err := r.Uint16("first crank measurement angle")
		if err != nil {
			return err
		}
		v.FirstCrankMeasurementAngle = codec.Some(a)
	}

	switch {
	case flags.Has(pvBitForceArray):
		samples, err := r.Int16Array("instantaneous force magnitudes")
		if err != nil {
			return err
		}
		v.InstantaneousForce = codec.Some(samples)
	case flags.Has(pvBitTorqueArray):
		samples, err := r.Int16Array("instantaneous torque magnitudes")
		if err != nil {
			return err
		}
		torque := make([]float64, len(samples))
		for i, s := range samples {
			torque[i] = float64(s) / 32
		}
		v.InstantaneousTorque = codec.Some(torque)
	}

	return nil
}
