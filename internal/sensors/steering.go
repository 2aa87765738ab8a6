package sensors

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// SteeringMeasurement is the handlebar angle reported by a steering sensor
type SteeringMeasurement struct {
	AngleDegrees float32
}

// DecodeSteeringMeasurement decodes a little-endian float32 angle. The frame
// must be exactly four bytes.
func DecodeSteeringMeasurement(data []byte) (SteeringMeasurement, error) {
	r := codec.NewReader(data)
	angle, err := r.Float32("steering angle")
	if err != nil {
		return SteeringMeasurement{}, err
	}
	if r.Remaining() != 0 {
		return SteeringMeasurement{}, codec.NewDecodeError("steering angle", r.Offset(), codec.ErrMalformed)
	}
	return SteeringMeasurement{AngleDegrees: angle}, nil
}

// SteeringChallenge is the code a Sterzo sends before it will stream angles
type SteeringChallenge struct {
	Code uint16
}

// DecodeSteeringChallenge reads the big-endian challenge at bytes 2-3
func DecodeSteeringChallenge(data []byte) (SteeringChallenge, error) {
	r := codec.NewReader(data)
	if err := r.Skip("challenge header", 2); err != nil {
		return SteeringChallenge{}, err
	}
	b, err := r.Bytes("challenge code", 2)
	if err != nil {
		return SteeringChallenge{}, err
	}
	return SteeringChallenge{Code: binary.BigEndian.Uint16(b)}, nil
}

// Sterzo control point commands
var (
	sterzoRequestChallenge = []byte{0x03, 0x10}
	sterzoStartStreaming   = []byte{0x02, 0x02}
)

const sterzoChallengeResponse = 0x11

// EncodeSterzoChallengeResponse answers a challenge with the two code bytes
// looked up by the caller
func EncodeSterzoChallengeResponse(code1, code2 byte) []byte {
	return []byte{0x03, sterzoChallengeResponse, code1, code2}
}

// RizerRate is the Rizer notification rate
type RizerRate uint8

const (
	RizerRate8Hz  RizerRate = 0
	RizerRate16Hz RizerRate = 1
	RizerRate32Hz RizerRate = 2
)

var ErrInvalidRizerRate = errors.New("rizer rate must be 0, 1 or 2")

const (
	rizerOpSetCenter        = 0x01
	rizerOpTransmissionRate = 0x02
)

func EncodeRizerSetCenter() []byte {
	return []byte{rizerOpSetCenter}
}

func EncodeRizerTransmissionRate(rate RizerRate) ([]byte, error) {
	if rate > RizerRate32Hz {
		return nil, fmt.Errorf("%w: got %d", ErrInvalidRizerRate, rate)
	}
	return []byte{rizerOpTransmissionRate, byte(rate)}, nil
}
