package sensors

import (
	"time"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// Heart Rate Measurement flag bit positions (Heart Rate Service 1.0)
const (
	hrBitValueUint16      = 0
	hrBitContactDetected  = 1
	hrBitContactSupported = 2
	hrBitEnergyExpended   = 3
	hrBitRRInterval       = 4
)

// HeartRateMeasurement is one Heart Rate Measurement notification
type HeartRateMeasurement struct {
	Flags codec.Flags8
	BPM   uint16
	// Set only when the sensor reports contact detection as supported
	SensorContact    codec.Optional[bool]
	EnergyExpendedKJ codec.Optional[uint16]
	// RR intervals in 1/1024 s, oldest first
	RRIntervals codec.Optional[[]uint16]
}

// RRDurations converts the RR intervals to durations
func (m HeartRateMeasurement) RRDurations() []time.Duration {
	raw, ok := m.RRIntervals.Get()
	if !ok {
		return nil
	}
	out := make([]time.Duration, len(raw))
	for i, v := range raw {
		out[i] = time.Duration(v) * time.Second / 1024
	}
	return out
}

// DecodeHeartRateMeasurement decodes the Heart Rate Measurement characteristic
// See: https://www.bluetooth.com/specifications/specs/heart-rate-service-1-0/
func DecodeHeartRateMeasurement(data []byte) (HeartRateMeasurement, error) {
	var m HeartRateMeasurement
	if err := m.decode(codec.NewReader(data)); err != nil {
		return HeartRateMeasurement{}, err
	}
	return m, nil
}

func (m *HeartRateMeasurement) decode(r *codec.Reader) error {
	flags, err := r.Flags8("heart rate flags")
	if err != nil {
		return err
	}
	m.Flags = flags

	if flags.Has(hrBitValueUint16) {
		m.BPM, err = r.Uint16("heart rate (uint16)")
	} else {
		var bpm uint8
		bpm, err = r.Uint8("heart rate (uint8)")
		m.BPM = uint16(bpm)
	}
	if err != nil {
		return err
	}

	if flags.Has(hrBitContactSupported) {
		m.SensorContact = codec.Some(flags.Has(hrBitContactDetected))
	}

	if flags.Has(hrBitEnergyExpended) {
		energy, err := r.Uint16("energy expended")
		if err != nil {
			return err
		}
		m.EnergyExpendedKJ = codec.Some(energy)
	}

	if flags.Has(hrBitRRInterval) {
		rr, err := r.Uint16Array("rr intervals")
		if err != nil {
			return err
		}
		m.RRIntervals = codec.Some(rr)
	}

	return nil
}
