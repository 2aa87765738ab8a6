package sensors

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// Indoor Bike Data flag bit positions (FTMS 1.0, 4.9.1.1)
const (
	ibdBitMoreData             = 0 // inverted: clear means instantaneous speed is present
	ibdBitAverageSpeed         = 1
	ibdBitInstantaneousCadence = 2
	ibdBitAverageCadence       = 3
	ibdBitTotalDistance        = 4
	ibdBitResistanceLevel      = 5
	ibdBitInstantaneousPower   = 6
	ibdBitAveragePower         = 7
	ibdBitExpendedEnergy       = 8
	ibdBitHeartRate            = 9
	ibdBitMetabolicEquivalent  = 10
	ibdBitElapsedTime          = 11
	ibdBitRemainingTime        = 12
)

// ExpendedEnergy groups the three energy fields, which always travel together
type ExpendedEnergy struct {
	TotalKcal     uint16
	PerHourKcal   uint16
	PerMinuteKcal uint8
}

// IndoorBikeData is one FTMS Indoor Bike Data notification, scaled to
// human-readable units
type IndoorBikeData struct {
	Flags codec.Flags16

	InstantaneousSpeedKmh   codec.Optional[float64]
	AverageSpeedKmh         codec.Optional[float64]
	InstantaneousCadenceRpm codec.Optional[float64]
	AverageCadenceRpm       codec.Optional[float64]
	TotalDistanceMeters     codec.Optional[uint32]
	ResistanceLevel         codec.Optional[int16]
	InstantaneousPowerWatts codec.Optional[int16]
	AveragePowerWatts       codec.Optional[int16]
	ExpendedEnergy          codec.Optional[ExpendedEnergy]
	HeartRateBpm            codec.Optional[uint8]
	MetabolicEquivalent     codec.Optional[float64]
	ElapsedTimeSeconds      codec.Optional[uint16]
	RemainingTimeSeconds    codec.Optional[uint16]
}

// DecodeIndoorBikeData parses all fields from the FTMS Indoor Bike Data characteristic
// See: https://www.bluetooth.com/specifications/specs/fitness-machine-service-1-0/
func DecodeIndoorBikeData(data []byte) (IndoorBikeData, error) {
	var d IndoorBikeData
	if err := d.decode(codec.NewReader(data)); err != nil {
		return IndoorBikeData{}, err
	}
	return d, nil
}

func (d *IndoorBikeData) decode(r *codec.Reader) error {
	flags, err := r.Flags16("indoor bike data flags")
	if err != nil {
		return err
	}
	d.Flags = flags

	scaled := func(field string, scale float64) (codec.Optional[float64], error) {
		v, err := r.Uint16(field)
		if err != nil {
			return codec.None[float64](), err
		}
		return codec.Some(float64(v) * scale), nil
	}
	signed := func(field string) (codec.Optional[int16], error) {
		v, err := r.Int16(field)
		if err != nil {
			return codec.None[int16](), err
		}
		return codec.Some(v), nil
	}
	seconds := func(field string) (codec.Optional[uint16], error) {
		v, err := r.Uint16(field)
		if err != nil {
			return codec.None[uint16](), err
		}
		return codec.Some(v), nil
	}

	if !flags.Has(ibdBitMoreData) {
		if d.InstantaneousSpeedKmh, err = scaled("instantaneous speed", 0.01); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitAverageSpeed) {
		if d.AverageSpeedKmh, err = scaled("average speed", 0.01); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitInstantaneousCadence) {
		if d.InstantaneousCadenceRpm, err = scaled("instantaneous cadence", 0.5); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitAverageCadence) {
		if d.AverageCadenceRpm, err = scaled("average cadence", 0.5); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitTotalDistance) {
		v, err := r.Uint24("total distance")
		if err != nil {
			return err
		}
		d.TotalDistanceMeters = codec.Some(v)
	}
	if flags.Has(ibdBitResistanceLevel) {
		if d.ResistanceLevel, err = signed("resistance level"); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitInstantaneousPower) {
		if d.InstantaneousPowerWatts, err = signed("instantaneous power"); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitAveragePower) {
		if d.AveragePowerWatts, err = signed("average power"); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitExpendedEnergy) {
		var e ExpendedEnergy
		if e.TotalKcal, err = r.Uint16("total energy"); err != nil {
			return err
		}
		if e.PerHourKcal, err = r.Uint16("energy per hour"); err != nil {
			return err
		}
		if e.PerMinuteKcal, err = r.Uint8("energy per minute"); err != nil {
			return err
		}
		d.ExpendedEnergy = codec.Some(e)
	}
	if flags.Has(ibdBitHeartRate) {
		v, err := r.Uint8("heart rate")
		if err != nil {
			return err
		}
		d.HeartRateBpm = codec.Some(v)
	}
	if flags.Has(ibdBitMetabolicEquivalent) {
		v, err := r.Uint8("metabolic equivalent")
		if err != nil {
			return err
		}
		d.MetabolicEquivalent = codec.Some(float64(v) * 0.1)
	}
	if flags.Has(ibdBitElapsedTime) {
		if d.ElapsedTimeSeconds, err = seconds("elapsed time"); err != nil {
			return err
		}
	}
	if flags.Has(ibdBitRemainingTime) {
		if d.RemainingTimeSeconds, err = seconds("remaining time"); err != nil {
			return err
		}
	}
	return nil
}
