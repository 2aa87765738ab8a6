package sensors

import (
	"errors"
	"fmt"
	"math"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// FTMSOpCode is a Fitness Machine Control Point op code (FTMS 1.0, 4.16.1)
type FTMSOpCode uint8

const (
	FTMSOpRequestControl        FTMSOpCode = 0x00
	FTMSOpReset                 FTMSOpCode = 0x01
	FTMSOpSetTargetSpeed        FTMSOpCode = 0x02
	FTMSOpSetTargetInclination  FTMSOpCode = 0x03
	FTMSOpSetTargetResistance   FTMSOpCode = 0x04
	FTMSOpSetTargetPower        FTMSOpCode = 0x05
	FTMSOpSetTargetHeartRate    FTMSOpCode = 0x06
	FTMSOpStartOrResume         FTMSOpCode = 0x07
	FTMSOpStopOrPause           FTMSOpCode = 0x08
	FTMSOpSetTargetedEnergy     FTMSOpCode = 0x09
	FTMSOpSetTargetedSteps      FTMSOpCode = 0x0A
	FTMSOpSetTargetedStrides    FTMSOpCode = 0x0B
	FTMSOpSetTargetedDistance   FTMSOpCode = 0x0C
	FTMSOpSetTargetedTime       FTMSOpCode = 0x0D
	FTMSOpSetTwoZoneTime        FTMSOpCode = 0x0E
	FTMSOpSetThreeZoneTime      FTMSOpCode = 0x0F
	FTMSOpSetFiveZoneTime       FTMSOpCode = 0x10
	FTMSOpSetSimulation         FTMSOpCode = 0x11
	FTMSOpSetWheelCircumference FTMSOpCode = 0x12
	FTMSOpSpinDownControl       FTMSOpCode = 0x13
	FTMSOpSetTargetedCadence    FTMSOpCode = 0x14
	FTMSOpResponseCode          FTMSOpCode = 0x80
)

var ftmsOpNames = map[FTMSOpCode]string{
	FTMSOpRequestControl:        "Request Control",
	FTMSOpReset:                 "Reset",
	FTMSOpSetTargetSpeed:        "Set Target Speed",
	FTMSOpSetTargetInclination:  "Set Target Inclination",
	FTMSOpSetTargetResistance:   "Set Target Resistance",
	FTMSOpSetTargetPower:        "Set Target Power",
	FTMSOpSetTargetHeartRate:    "Set Target Heart Rate",
	FTMSOpStartOrResume:         "Start/Resume",
	FTMSOpStopOrPause:           "Stop/Pause",
	FTMSOpSetTargetedEnergy:     "Set Targeted Expended Energy",
	FTMSOpSetTargetedSteps:      "Set Targeted Number of Steps",
	FTMSOpSetTargetedStrides:    "Set Targeted Number of Strides",
	FTMSOpSetTargetedDistance:   "Set Targeted Distance",
	FTMSOpSetTargetedTime:       "Set Targeted Training Time",
	FTMSOpSetTwoZoneTime:        "Set Targeted Time in Two Heart Rate Zones",
	FTMSOpSetThreeZoneTime:      "Set Targeted Time in Three Heart Rate Zones",
	FTMSOpSetFiveZoneTime:       "Set Targeted Time in Five Heart Rate Zones",
	FTMSOpSetSimulation:         "Set Indoor Bike Simulation",
	FTMSOpSetWheelCircumference: "Set Wheel Circumference",
	FTMSOpSpinDownControl:       "Spin Down Control",
	FTMSOpSetTargetedCadence:    "Set Targeted Cadence",
	FTMSOpResponseCode:          "Response Code",
}

func (o FTMSOpCode) String() string {
	if name, ok := ftmsOpNames[o]; ok {
		return name
	}
	return fmt.Sprintf("OpCode 0x%02X", uint8(o))
}

// FTMSResult is the result code carried in a control point response
type FTMSResult uint8

const (
	FTMSResultUnknown             FTMSResult = 0x00
	FTMSResultSuccess             FTMSResult = 0x01
	FTMSResultOpCodeNotSupported  FTMSResult = 0x02
	FTMSResultInvalidParameter    FTMSResult = 0x03
	FTMSResultOperationFailed     FTMSResult = 0x04
	FTMSResultControlNotPermitted FTMSResult = 0x05
)

func (r FTMSResult) String() string {
	switch r {
	case FTMSResultSuccess:
		return "Success"
	case FTMSResultOpCodeNotSupported:
		return "Op Code Not Supported"
	case FTMSResultInvalidParameter:
		return "Invalid Parameter"
	case FTMSResultOperationFailed:
		return "Operation Failed"
	case FTMSResultControlNotPermitted:
		return "Control Not Permitted"
	default:
		return fmt.Sprintf("Result 0x%02X", uint8(r))
	}
}

// FTMSStopMode selects between stopping and pausing a session
type FTMSStopMode uint8

const (
	FTMSStop  FTMSStopMode = 0x01
	FTMSPause FTMSStopMode = 0x02
)

// FitnessMachineResponse is the indication sent after every control point write
type FitnessMachineResponse struct {
	RequestOpCode FTMSOpCode
	Result        FTMSResult
	Parameter     []byte
}

func (r FitnessMachineResponse) Succeeded() bool {
	return r.Result == FTMSResultSuccess
}

// DecodeFitnessMachineResponse decodes [0x80, request op code, result, ...]
func DecodeFitnessMachineResponse(data []byte) (FitnessMachineResponse, error) {
	r := codec.NewReader(data)
	op, err := r.Uint8("response op code")
	if err != nil {
		return FitnessMachineResponse{}, err
	}
	if FTMSOpCode(op) != FTMSOpResponseCode {
		return FitnessMachineResponse{}, codec.NewDecodeError("response op code", 0, codec.ErrMalformed)
	}
	req, err := r.Uint8("request op code")
	if err != nil {
		return FitnessMachineResponse{}, err
	}
	result, err := r.Uint8("result code")
	if err != nil {
		return FitnessMachineResponse{}, err
	}
	return FitnessMachineResponse{
		RequestOpCode: FTMSOpCode(req),
		Result:        FTMSResult(result),
		Parameter:     r.Rest(),
	}, nil
}

var ErrFTMSParameter = errors.New("ftms parameter out of range")

func EncodeFTMSRequestControl() []byte { return []byte{byte(FTMSOpRequestControl)} }
func EncodeFTMSReset() []byte          { return []byte{byte(FTMSOpReset)} }
func EncodeFTMSStartOrResume() []byte  { return []byte{byte(FTMSOpStartOrResume)} }

func EncodeFTMSStopOrPause(mode FTMSStopMode) []byte {
	return []byte{byte(FTMSOpStopOrPause), byte(mode)}
}

// EncodeFTMSTargetPower encodes a target power in watts (ERG mode)
func EncodeFTMSTargetPower(watts int16) []byte {
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetPower)).PutInt16(watts).Bytes()
}

// EncodeFTMSTargetResistance encodes a unitless resistance level with 0.1 resolution
func EncodeFTMSTargetResistance(level float64) ([]byte, error) {
	raw := math.Round(level * 10)
	if raw < 0 || raw > math.MaxUint8 {
		return nil, fmt.Errorf("%w: resistance level %.1f", ErrFTMSParameter, level)
	}
	return []byte{byte(FTMSOpSetTargetResistance), uint8(raw)}, nil
}

// EncodeFTMSTargetSpeed encodes a target speed in km/h with 0.01 resolution
func EncodeFTMSTargetSpeed(kmh float64) ([]byte, error) {
	raw := math.Round(kmh * 100)
	if raw < 0 || raw > math.MaxUint16 {
		return nil, fmt.Errorf("%w: speed %.2f km/h", ErrFTMSParameter, kmh)
	}
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetSpeed)).PutUint16(uint16(raw)).Bytes(), nil
}

// EncodeFTMSTargetInclination encodes a grade in percent with 0.1 resolution
func EncodeFTMSTargetInclination(percent float64) ([]byte, error) {
	raw, err := scaleInt16(percent, 10, "inclination")
	if err != nil {
		return nil, err
	}
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetInclination)).PutInt16(raw).Bytes(), nil
}

// IndoorBikeSimulation holds the parameters of the Set Indoor Bike Simulation
// procedure
type IndoorBikeSimulation struct {
	WindSpeedMps            float64 // 0.001 m/s
	GradePercent            float64 // 0.01 %
	RollingResistanceCoeff  float64 // 0.0001
	WindResistanceCoeffKgPM float64 // 0.01 kg/m
}

func EncodeFTMSSimulation(s IndoorBikeSimulation) ([]byte, error) {
	wind, err := scaleInt16(s.WindSpeedMps, 1000, "wind speed")
	if err != nil {
		return nil, err
	}
	grade, err := scaleInt16(s.GradePercent, 100, "grade")
	if err != nil {
		return nil, err
	}
	crr := math.Round(s.RollingResistanceCoeff * 10000)
	if crr < 0 || crr > math.MaxUint8 {
		return nil, fmt.Errorf("%w: rolling resistance %.4f", ErrFTMSParameter, s.RollingResistanceCoeff)
	}
	cw := math.Round(s.WindResistanceCoeffKgPM * 100)
	if cw < 0 || cw > math.MaxUint8 {
		return nil, fmt.Errorf("%w: wind resistance %.2f", ErrFTMSParameter, s.WindResistanceCoeffKgPM)
	}
	return codec.NewWriter(7).
		PutUint8(uint8(FTMSOpSetSimulation)).
		PutInt16(wind).
		PutInt16(grade).
		PutUint8(uint8(crr)).
		PutUint8(uint8(cw)).
		Bytes(), nil
}

func scaleInt16(v, scale float64, name string) (int16, error) {
	raw := math.Round(v * scale)
	if raw < math.MinInt16 || raw > math.MaxInt16 {
		return 0, fmt.Errorf("%w: %s %v", ErrFTMSParameter, name, v)
	}
	return int16(raw), nil
}

func EncodeFTMSTargetHeartRate(bpm uint8) []byte {
	return []byte{byte(FTMSOpSetTargetHeartRate), bpm}
}

// EncodeFTMSTargetedEnergy encodes the expended energy goal in kcal
func EncodeFTMSTargetedEnergy(kcal uint16) []byte {
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetedEnergy)).PutUint16(kcal).Bytes()
}

func EncodeFTMSTargetedSteps(steps uint16) []byte {
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetedSteps)).PutUint16(steps).Bytes()
}

func EncodeFTMSTargetedStrides(strides uint16) []byte {
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetedStrides)).PutUint16(strides).Bytes()
}

// EncodeFTMSTargetedDistance encodes a distance goal in meters on 24 bits
func EncodeFTMSTargetedDistance(meters uint32) ([]byte, error) {
	if meters > 0xFFFFFF {
		return nil, fmt.Errorf("%w: distance %d m", ErrFTMSParameter, meters)
	}
	return codec.NewWriter(4).PutUint8(uint8(FTMSOpSetTargetedDistance)).PutUint24(meters).Bytes(), nil
}

func EncodeFTMSTargetedTime(seconds uint16) []byte {
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetedTime)).PutUint16(seconds).Bytes()
}

// EncodeFTMSTargetedZoneTime encodes the seconds to spend in each heart rate
// zone, lowest zone first. Two, three or five zones are accepted.
func EncodeFTMSTargetedZoneTime(seconds []uint16) ([]byte, error) {
	var op FTMSOpCode
	switch len(seconds) {
	case 2:
		op = FTMSOpSetTwoZoneTime
	case 3:
		op = FTMSOpSetThreeZoneTime
	case 5:
		op = FTMSOpSetFiveZoneTime
	default:
		return nil, fmt.Errorf("%w: %d heart rate zones", ErrFTMSParameter, len(seconds))
	}
	w := codec.NewWriter(1 + 2*len(seconds)).PutUint8(uint8(op))
	for _, s := range seconds {
		w.PutUint16(s)
	}
	return w.Bytes(), nil
}

// EncodeFTMSWheelCircumference encodes a circumference in mm with 0.1 resolution
func EncodeFTMSWheelCircumference(mm float64) ([]byte, error) {
	raw := math.Round(mm * 10)
	if raw < 0 || raw > math.MaxUint16 {
		return nil, fmt.Errorf("%w: wheel circumference %.1f mm", ErrFTMSParameter, mm)
	}
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetWheelCircumference)).PutUint16(uint16(raw)).Bytes(), nil
}

// FTMSSpinDown is the parameter of the Spin Down Control procedure
type FTMSSpinDown uint8

const (
	FTMSSpinDownStart  FTMSSpinDown = 0x01
	FTMSSpinDownIgnore FTMSSpinDown = 0x02
)

func EncodeFTMSSpinDownControl(c FTMSSpinDown) []byte {
	return []byte{byte(FTMSOpSpinDownControl), byte(c)}
}

// EncodeFTMSTargetedCadence encodes a cadence in rpm with 0.5 resolution
func EncodeFTMSTargetedCadence(rpm float64) ([]byte, error) {
	raw := math.Round(rpm * 2)
	if raw < 0 || raw > math.MaxUint16 {
		return nil, fmt.Errorf("%w: cadence %.1f rpm", ErrFTMSParameter, rpm)
	}
	return codec.NewWriter(3).PutUint8(uint8(FTMSOpSetTargetedCadence)).PutUint16(uint16(raw)).Bytes(), nil
}
