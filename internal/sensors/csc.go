package sensors

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// CSC Measurement flag bit positions
const (
	cscBitWheelRevolutions = 0
	cscBitCrankRevolutions = 1
)

// CSCMeasurement is one Cycling Speed and Cadence Measurement notification
type CSCMeasurement struct {
	Flags            codec.Flags8
	WheelRevolutions codec.Optional[WheelRevolutionData]
	CrankRevolutions codec.Optional[CrankRevolutionData]
}

// DecodeCSCMeasurement decodes the CSC Measurement characteristic
// See: https://www.bluetooth.com/specifications/specs/cycling-speed-and-cadence-service-1-0/
func DecodeCSCMeasurement(data []byte) (CSCMeasurement, error) {
	r := codec.NewReader(data)
	flags, err := r.Flags8("csc flags")
	if err != nil {
		return CSCMeasurement{}, err
	}
	m := CSCMeasurement{Flags: flags}

	if flags.Has(cscBitWheelRevolutions) {
		w, err := readWheelRevolutions(r, 1024)
		if err != nil {
			return CSCMeasurement{}, err
		}
		m.WheelRevolutions = codec.Some(w)
	}

	if flags.Has(cscBitCrankRevolutions) {
		c, err := readCrankRevolutions(r)
		if err != nil {
			return CSCMeasurement{}, err
		}
		m.CrankRevolutions = codec.Some(c)
	}

	return m, nil
}
