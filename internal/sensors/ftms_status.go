package sensors

import (
	"fmt"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// FTMSStatusCode is the op code of a Fitness Machine Status notification
// (FTMS 1.0, 4.17)
type FTMSStatusCode uint8

const (
	FTMSStatusReset                    FTMSStatusCode = 0x01
	FTMSStatusStoppedOrPaused          FTMSStatusCode = 0x02
	FTMSStatusStoppedBySafetyKey       FTMSStatusCode = 0x03
	FTMSStatusStartedOrResumed         FTMSStatusCode = 0x04
	FTMSStatusTargetSpeedChanged       FTMSStatusCode = 0x05
	FTMSStatusTargetInclineChanged     FTMSStatusCode = 0x06
	FTMSStatusTargetResistanceChanged  FTMSStatusCode = 0x07
	FTMSStatusTargetPowerChanged       FTMSStatusCode = 0x08
	FTMSStatusTargetHeartRateChanged   FTMSStatusCode = 0x09
	FTMSStatusTargetedEnergyChanged    FTMSStatusCode = 0x0A
	FTMSStatusTargetedStepsChanged     FTMSStatusCode = 0x0B
	FTMSStatusTargetedStridesChanged   FTMSStatusCode = 0x0C
	FTMSStatusTargetedDistanceChanged  FTMSStatusCode = 0x0D
	FTMSStatusTargetedTimeChanged      FTMSStatusCode = 0x0E
	FTMSStatusTwoZoneTimeChanged       FTMSStatusCode = 0x0F
	FTMSStatusThreeZoneTimeChanged     FTMSStatusCode = 0x10
	FTMSStatusFiveZoneTimeChanged      FTMSStatusCode = 0x11
	FTMSStatusSimulationChanged        FTMSStatusCode = 0x12
	FTMSStatusWheelCircumferenceChange FTMSStatusCode = 0x13
	FTMSStatusSpinDown                 FTMSStatusCode = 0x14
	FTMSStatusTargetedCadenceChanged   FTMSStatusCode = 0x15
	FTMSStatusUnknown                  FTMSStatusCode = 0xFE
	FTMSStatusControlPermissionLost    FTMSStatusCode = 0xFF
)

var ftmsStatusNames = map[FTMSStatusCode]string{
	FTMSStatusReset:                    "reset",
	FTMSStatusStoppedOrPaused:          "stopped or paused by user",
	FTMSStatusStoppedBySafetyKey:       "stopped by safety key",
	FTMSStatusStartedOrResumed:         "started or resumed by user",
	FTMSStatusTargetSpeedChanged:       "target speed changed",
	FTMSStatusTargetInclineChanged:     "target incline changed",
	FTMSStatusTargetResistanceChanged:  "target resistance changed",
	FTMSStatusTargetPowerChanged:       "target power changed",
	FTMSStatusTargetHeartRateChanged:   "target heart rate changed",
	FTMSStatusTargetedEnergyChanged:    "targeted expended energy changed",
	FTMSStatusTargetedStepsChanged:     "targeted steps changed",
	FTMSStatusTargetedStridesChanged:   "targeted strides changed",
	FTMSStatusTargetedDistanceChanged:  "targeted distance changed",
	FTMSStatusTargetedTimeChanged:      "targeted training time changed",
	FTMSStatusTwoZoneTimeChanged:       "targeted time in two heart rate zones changed",
	FTMSStatusThreeZoneTimeChanged:     "targeted time in three heart rate zones changed",
	FTMSStatusFiveZoneTimeChanged:      "targeted time in five heart rate zones changed",
	FTMSStatusSimulationChanged:        "indoor bike simulation parameters changed",
	FTMSStatusWheelCircumferenceChange: "wheel circumference changed",
	FTMSStatusSpinDown:                 "spin down status",
	FTMSStatusTargetedCadenceChanged:   "targeted cadence changed",
	FTMSStatusControlPermissionLost:    "control permission lost",
}

// ParseFTMSStatusCode maps reserved op codes to FTMSStatusUnknown
func ParseFTMSStatusCode(code uint8) FTMSStatusCode {
	if _, ok := ftmsStatusNames[FTMSStatusCode(code)]; ok {
		return FTMSStatusCode(code)
	}
	return FTMSStatusUnknown
}

func (c FTMSStatusCode) String() string {
	if name, ok := ftmsStatusNames[c]; ok {
		return name
	}
	return "unknown"
}

// statusScalar describes the single-number parameter some status codes carry
type statusScalar struct {
	bits   int
	signed bool
	scale  float64
	unit   string
}

var ftmsStatusScalars = map[FTMSStatusCode]statusScalar{
	FTMSStatusTargetSpeedChanged:       {16, false, 0.01, "km/h"},
	FTMSStatusTargetInclineChanged:     {16, true, 0.1, "%"},
	FTMSStatusTargetResistanceChanged:  {8, false, 0.1, ""},
	FTMSStatusTargetPowerChanged:       {16, true, 1, "W"},
	FTMSStatusTargetHeartRateChanged:   {8, false, 1, "bpm"},
	FTMSStatusTargetedEnergyChanged:    {16, false, 1, "kcal"},
	FTMSStatusTargetedStepsChanged:     {16, false, 1, "steps"},
	FTMSStatusTargetedStridesChanged:   {16, false, 1, "strides"},
	FTMSStatusTargetedDistanceChanged:  {24, false, 1, "m"},
	FTMSStatusTargetedTimeChanged:      {16, false, 1, "s"},
	FTMSStatusWheelCircumferenceChange: {16, false, 0.1, "mm"},
	FTMSStatusTargetedCadenceChanged:   {16, false, 0.5, "rpm"},
}

var ftmsStatusZones = map[FTMSStatusCode]int{
	FTMSStatusTwoZoneTimeChanged:   2,
	FTMSStatusThreeZoneTimeChanged: 3,
	FTMSStatusFiveZoneTimeChanged:  5,
}

// Unit of FitnessMachineStatus.Value for this code, empty when unitless or
// when the code carries no scalar
func (c FTMSStatusCode) Unit() string {
	return ftmsStatusScalars[c].unit
}

// SpinDownStatus is reported while a spin down calibration runs
type SpinDownStatus uint8

const (
	SpinDownRequested    SpinDownStatus = 0x01
	SpinDownSuccess      SpinDownStatus = 0x02
	SpinDownError        SpinDownStatus = 0x03
	SpinDownStopPedaling SpinDownStatus = 0x04
	SpinDownUnknown      SpinDownStatus = 0xFF
)

func ParseSpinDownStatus(code uint8) SpinDownStatus {
	if s := SpinDownStatus(code); s >= SpinDownRequested && s <= SpinDownStopPedaling {
		return s
	}
	return SpinDownUnknown
}

func (s SpinDownStatus) String() string {
	switch s {
	case SpinDownRequested:
		return "spin down requested"
	case SpinDownSuccess:
		return "success"
	case SpinDownError:
		return "error"
	case SpinDownStopPedaling:
		return "stop pedaling"
	default:
		return "unknown"
	}
}

// FitnessMachineStatus is one Fitness Machine Status notification. Which
// parameter field is set depends on Code.
type FitnessMachineStatus struct {
	Code FTMSStatusCode
	Raw  uint8

	StopMode    codec.Optional[FTMSStopMode]
	// Scalar parameter in Code.Unit()
	Value       codec.Optional[float64]
	// Target seconds per heart rate zone, lowest zone first
	ZoneSeconds codec.Optional[[]uint16]
	Simulation  codec.Optional[IndoorBikeSimulation]
	SpinDown    codec.Optional[SpinDownStatus]
}

func (s FitnessMachineStatus) String() string {
	if v, ok := s.Value.Get(); ok {
		return fmt.Sprintf("%s: %g %s", s.Code, v, s.Code.Unit())
	}
	return s.Code.String()
}

// DecodeFitnessMachineStatus decodes the Fitness Machine Status
// characteristic. Reserved op codes decode to FTMSStatusUnknown with no
// parameter; bytes after the parameter are ignored.
func DecodeFitnessMachineStatus(data []byte) (FitnessMachineStatus, error) {
	r := codec.NewReader(data)
	op, err := r.Uint8("status op code")
	if err != nil {
		return FitnessMachineStatus{}, err
	}
	s := FitnessMachineStatus{Code: ParseFTMSStatusCode(op), Raw: op}

	if p, ok := ftmsStatusScalars[s.Code]; ok {
		raw, err := r.Uint("status parameter", p.bits)
		if err != nil {
			return FitnessMachineStatus{}, err
		}
		v := float64(raw)
		if p.signed {
			v = float64(codec.SignExtend(raw, p.bits))
		}
		s.Value = codec.Some(v * p.scale)
		return s, nil
	}
	if n, ok := ftmsStatusZones[s.Code]; ok {
		zones := make([]uint16, n)
		for i := range zones {
			if zones[i], err = r.Uint16("heart rate zone time"); err != nil {
				return FitnessMachineStatus{}, err
			}
		}
		s.ZoneSeconds = codec.Some(zones)
		return s, nil
	}

	switch s.Code {
	case FTMSStatusStoppedOrPaused:
		mode, err := r.Uint8("stop or pause")
		if err != nil {
			return FitnessMachineStatus{}, err
		}
		s.StopMode = codec.Some(FTMSStopMode(mode))
	case FTMSStatusSimulationChanged:
		sim, err := readSimulation(r)
		if err != nil {
			return FitnessMachineStatus{}, err
		}
		s.Simulation = codec.Some(sim)
	case FTMSStatusSpinDown:
		v, err := r.Uint8("spin down status")
		if err != nil {
			return FitnessMachineStatus{}, err
		}
		s.SpinDown = codec.Some(ParseSpinDownStatus(v))
	}
	return s, nil
}

// readSimulation reads the layout written by EncodeFTMSSimulation, without
// the op code
func readSimulation(r *codec.Reader) (IndoorBikeSimulation, error) {
	wind, err := r.Int16("wind speed")
	if err != nil {
		return IndoorBikeSimulation{}, err
	}
	grade, err := r.Int16("grade")
	if err != nil {
		return IndoorBikeSimulation{}, err
	}
	crr, err := r.Uint8("rolling resistance")
	if err != nil {
		return IndoorBikeSimulation{}, err
	}
	cw, err := r.Uint8("wind resistance")
	if err != nil {
		return IndoorBikeSimulation{}, err
	}
	return IndoorBikeSimulation{
		WindSpeedMps:            float64(wind) * 0.001,
		GradePercent:            float64(grade) * 0.01,
		RollingResistanceCoeff:  float64(crr) * 0.0001,
		WindResistanceCoeffKgPM: float64(cw) * 0.01,
	}, nil
}

// Training Status flag bits (FTMS 1.0, 4.10.1.1)
const (
	tsBitStringPresent   = 0
	tsBitExtendedPresent = 1
)

// TrainingStatusCode is the machine's view of the current training phase
type TrainingStatusCode uint8

const (
	TrainingOther                TrainingStatusCode = 0x00
	TrainingIdle                 TrainingStatusCode = 0x01
	TrainingWarmingUp            TrainingStatusCode = 0x02
	TrainingLowIntensityInterval TrainingStatusCode = 0x03
	TrainingHighIntensity        TrainingStatusCode = 0x04
	TrainingRecoveryInterval     TrainingStatusCode = 0x05
	TrainingIsometric            TrainingStatusCode = 0x06
	TrainingHeartRateControl     TrainingStatusCode = 0x07
	TrainingFitnessTest          TrainingStatusCode = 0x08
	TrainingSpeedTooLow          TrainingStatusCode = 0x09
	TrainingSpeedTooHigh         TrainingStatusCode = 0x0A
	TrainingCoolDown             TrainingStatusCode = 0x0B
	TrainingWattControl          TrainingStatusCode = 0x0C
	TrainingManualMode           TrainingStatusCode = 0x0D
	TrainingPreWorkout           TrainingStatusCode = 0x0E
	TrainingPostWorkout          TrainingStatusCode = 0x0F
	TrainingUnknown              TrainingStatusCode = 0xFF
)

var trainingStatusNames = [...]string{
	"other", "idle", "warming up", "low intensity interval", "high intensity interval",
	"recovery interval", "isometric", "heart rate control", "fitness test",
	"speed below control region", "speed above control region", "cool down",
	"watt control", "manual mode", "pre-workout", "post-workout",
}

func ParseTrainingStatusCode(code uint8) TrainingStatusCode {
	if int(code) < len(trainingStatusNames) {
		return TrainingStatusCode(code)
	}
	return TrainingUnknown
}

func (c TrainingStatusCode) String() string {
	if int(c) < len(trainingStatusNames) {
		return trainingStatusNames[c]
	}
	return "unknown"
}

// TrainingStatus is one Training Status notification
type TrainingStatus struct {
	Flags    codec.Flags8
	Status   TrainingStatusCode
	// Free text from the machine, when it sends one
	Text     codec.Optional[string]
	// The text continues in a read of the characteristic
	Extended bool
}

// DecodeTrainingStatus decodes [flags, status, text...]. The status byte is
// always present; the text runs to the end of the frame.
func DecodeTrainingStatus(data []byte) (TrainingStatus, error) {
	r := codec.NewReader(data)
	flags, err := r.Flags8("training status flags")
	if err != nil {
		return TrainingStatus{}, err
	}
	code, err := r.Uint8("training status")
	if err != nil {
		return TrainingStatus{}, err
	}
	ts := TrainingStatus{
		Flags:    flags,
		Status:   ParseTrainingStatusCode(code),
		Extended: flags.Has(tsBitExtendedPresent),
	}
	if flags.Has(tsBitStringPresent) {
		ts.Text = codec.Some(string(r.Rest()))
	}
	return ts, nil
}
