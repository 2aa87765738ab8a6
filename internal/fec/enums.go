package fec

import "fmt"

// EquipmentType is the 5-bit fitness equipment type of page 16
type EquipmentType uint8

const (
	EquipmentGeneral     EquipmentType = 16
	EquipmentTreadmill   EquipmentType = 19
	EquipmentElliptical  EquipmentType = 20
	EquipmentReserved    EquipmentType = 21
	EquipmentRower       EquipmentType = 22
	EquipmentClimber     EquipmentType = 23
	EquipmentNordicSkier EquipmentType = 24
	EquipmentTrainer     EquipmentType = 25
	EquipmentUnknown     EquipmentType = 0xFF
)

var equipmentTypeNames = map[EquipmentType]string{
	EquipmentGeneral:     "general",
	EquipmentTreadmill:   "treadmill",
	EquipmentElliptical:  "elliptical",
	EquipmentReserved:    "reserved",
	EquipmentRower:       "rower",
	EquipmentClimber:     "climber",
	EquipmentNordicSkier: "nordic skier",
	EquipmentTrainer:     "trainer",
	EquipmentUnknown:     "unknown",
}

func ParseEquipmentType(code uint8) EquipmentType {
	t := EquipmentType(code & 0x1F)
	if _, ok := equipmentTypeNames[t]; !ok {
		return EquipmentUnknown
	}
	return t
}

func (t EquipmentType) String() string {
	if name, ok := equipmentTypeNames[t]; ok {
		return name
	}
	return fmt.Sprintf("EquipmentType(%d)", uint8(t))
}

// FEState is the 3-bit fitness equipment state
type FEState uint8

const (
	FEStateReserved FEState = 0
	FEStateAsleep   FEState = 1
	FEStateReady    FEState = 2
	FEStateInUse    FEState = 3
	FEStateFinished FEState = 4
)

func ParseFEState(code uint8) FEState {
	s := FEState(code & 0x7)
	if s > FEStateFinished {
		return FEStateReserved
	}
	return s
}

func (s FEState) String() string {
	switch s {
	case FEStateAsleep:
		return "asleep"
	case FEStateReady:
		return "ready"
	case FEStateInUse:
		return "in use"
	case FEStateFinished:
		return "finished"
	default:
		return "reserved"
	}
}

// TargetPowerLimit reports whether the trainer can hold the target power
type TargetPowerLimit uint8

const (
	TargetPowerAtTarget     TargetPowerLimit = 0
	TargetPowerSpeedTooLow  TargetPowerLimit = 1
	TargetPowerSpeedTooHigh TargetPowerLimit = 2
	TargetPowerLimitReached TargetPowerLimit = 3
	TargetPowerLimitUnknown TargetPowerLimit = 0xFF
)

func ParseTargetPowerLimit(code uint8) TargetPowerLimit {
	if code > uint8(TargetPowerLimitReached) {
		return TargetPowerLimitUnknown
	}
	return TargetPowerLimit(code)
}

func (l TargetPowerLimit) String() string {
	switch l {
	case TargetPowerAtTarget:
		return "at target or no target set"
	case TargetPowerSpeedTooLow:
		return "speed too low"
	case TargetPowerSpeedTooHigh:
		return "speed too high"
	case TargetPowerLimitReached:
		return "limit reached"
	default:
		return "unknown"
	}
}

// CommandStatus is the status byte of page 71
type CommandStatus uint8

const (
	CommandPass          CommandStatus = 0
	CommandFail          CommandStatus = 1
	CommandNotSupported  CommandStatus = 2
	CommandRejected      CommandStatus = 3
	CommandPending       CommandStatus = 4
	CommandStatusUnknown CommandStatus = 0xFE
	CommandUninitialized CommandStatus = 0xFF
)

func ParseCommandStatus(code uint8) CommandStatus {
	switch s := CommandStatus(code); s {
	case CommandPass, CommandFail, CommandNotSupported, CommandRejected, CommandPending, CommandUninitialized:
		return s
	default:
		return CommandStatusUnknown
	}
}

func (s CommandStatus) String() string {
	switch s {
	case CommandPass:
		return "pass"
	case CommandFail:
		return "fail"
	case CommandNotSupported:
		return "not supported"
	case CommandRejected:
		return "rejected"
	case CommandPending:
		return "pending"
	case CommandUninitialized:
		return "uninitialized"
	default:
		return "unknown"
	}
}

// RoadSurface is a Tacx NEO road feel pattern
type RoadSurface uint8

const (
	RoadSimulationOff  RoadSurface = 0
	RoadConcretePlates RoadSurface = 1
	RoadCattleGrid     RoadSurface = 2
	RoadCobblesHard    RoadSurface = 3
	RoadCobblesSoft    RoadSurface = 4
	RoadBrick          RoadSurface = 5
	RoadOffRoad        RoadSurface = 6
	RoadGravel         RoadSurface = 7
	RoadIce            RoadSurface = 8
	RoadWoodenBoards   RoadSurface = 9
	RoadSurfaceUnknown RoadSurface = 0xFF
)

var roadSurfaceNames = [...]string{
	"simulation off",
	"concrete plates",
	"cattle grid",
	"cobblestones hard",
	"cobblestones soft",
	"brick road",
	"off road",
	"gravel",
	"ice",
	"wooden boards",
}

func ParseRoadSurface(code uint8) RoadSurface {
	if int(code) >= len(roadSurfaceNames) {
		return RoadSurfaceUnknown
	}
	return RoadSurface(code)
}

func (s RoadSurface) String() string {
	if int(s) < len(roadSurfaceNames) {
		return roadSurfaceNames[s]
	}
	return "unknown"
}

// HeartRateSource is where a trainer gets the heart rate it reports
type HeartRateSource uint8

const (
	HeartRateSourceInvalid     HeartRateSource = 0
	HeartRateSourceANT         HeartRateSource = 1
	HeartRateSourceEM          HeartRateSource = 2
	HeartRateSourceHandContact HeartRateSource = 3
)

func (s HeartRateSource) String() string {
	switch s {
	case HeartRateSourceANT:
		return "ANT+ monitor"
	case HeartRateSourceEM:
		return "EM monitor"
	case HeartRateSourceHandContact:
		return "hand contact"
	default:
		return "invalid"
	}
}
