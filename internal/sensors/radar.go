package sensors

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

const radarRecordSize = 3

// RadarThreat is one vehicle tracked by a rear view radar
type RadarThreat struct {
	ID             uint8
	DistanceMeters uint8
	SpeedKmh       uint8
}

// RadarMeasurement lists the vehicles currently tracked. An empty list means
// the road behind is clear.
type RadarMeasurement struct {
	PacketID uint8
	Threats  []RadarThreat
}

func DecodeRadarMeasurement(data []byte) (RadarMeasurement, error) {
	r := codec.NewReader(data)
	id, err := r.Uint8("radar packet id")
	if err != nil {
		return RadarMeasurement{}, err
	}
	if r.Remaining()%radarRecordSize != 0 {
		return RadarMeasurement{}, &codec.DecodeError{
			Field:  "radar threats",
			Offset: r.Offset(),
			Have:   r.Remaining(),
			Cause:  codec.ErrNonIntegralArray,
		}
	}

	m := RadarMeasurement{PacketID: id, Threats: make([]RadarThreat, 0, r.Remaining()/radarRecordSize)}
	for r.Remaining() > 0 {
		rec, err := r.Bytes("radar threat", radarRecordSize)
		if err != nil {
			return RadarMeasurement{}, err
		}
		m.Threats = append(m.Threats, RadarThreat{ID: rec[0], DistanceMeters: rec[1], SpeedKmh: rec[2]})
	}
	return m, nil
}
