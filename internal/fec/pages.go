package fec

import (
	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// Data page numbers
const (
	PageGeneralFEData       uint8 = 16
	PageSpecificTrainerData uint8 = 25
	PageCommandStatus       uint8 = 71
)

// DataPage is any decoded inbound page
type DataPage interface {
	PageNumber() uint8
}

// FECapabilities is the low nibble of byte 7 of page 16
type FECapabilities struct {
	HeartRateSource         HeartRateSource
	DistanceTraveledEnabled bool
	VirtualSpeed            bool
}

// GeneralFEData is page 16
type GeneralFEData struct {
	EquipmentType  EquipmentType
	ElapsedSeconds float64 // rolls over every 64 s
	DistanceMeters uint8   // rolls over every 256 m
	SpeedMps       codec.Optional[float64]
	HeartRateBpm   codec.Optional[uint8]
	Capabilities   FECapabilities
	State          FEState
	LapToggle      bool
}

func (GeneralFEData) PageNumber() uint8 { return PageGeneralFEData }

// SpecificTrainerData is page 25
type SpecificTrainerData struct {
	EventCount                    uint8
	CadenceRpm                    codec.Optional[uint8]
	AccumulatedPowerWatts         uint16
	InstantaneousPowerWatts       codec.Optional[uint16]
	PowerCalibrationRequired      bool
	ResistanceCalibrationRequired bool
	UserConfigurationRequired     bool
	TargetPowerLimit              TargetPowerLimit
	State                         FEState
	LapToggle                     bool
}

func (SpecificTrainerData) PageNumber() uint8 { return PageSpecificTrainerData }

// CommandStatusData is page 71
type CommandStatusData struct {
	LastCommand codec.Optional[uint8] // absent until the trainer has seen a command
	Sequence    uint8
	Status      CommandStatus
	Data        [4]byte // bytes 4-7 of the last command
}

func (CommandStatusData) PageNumber() uint8 { return PageCommandStatus }

// UnknownPage carries any page this package does not decode
type UnknownPage struct {
	Number uint8
	Data   []byte
}

func (p UnknownPage) PageNumber() uint8 { return p.Number }

func pageReader(payload []byte, number uint8, name string) (*codec.Reader, error) {
	if len(payload) < pageSize {
		return nil, &codec.DecodeError{Field: name, Need: pageSize, Have: len(payload), Cause: codec.ErrInsufficientData}
	}
	if payload[0] != number {
		return nil, codec.NewDecodeError(name+" page number", 0, codec.ErrMalformed)
	}
	r := codec.NewReader(payload[:pageSize])
	_ = r.Skip("page number", 1)
	return r, nil
}

// stateNibble splits the upper nibble of byte 7 into FE state and lap toggle
func stateNibble(b uint8) (FEState, bool) {
	return ParseFEState(b >> 4 & 0x7), b&0x80 != 0
}

func DecodeGeneralFEData(payload []byte) (GeneralFEData, error) {
	r, err := pageReader(payload, PageGeneralFEData, "general FE data")
	if err != nil {
		return GeneralFEData{}, err
	}
	equipment, _ := r.Uint8("equipment type")
	elapsed, _ := r.Uint8("elapsed time")
	distance, _ := r.Uint8("distance")
	speed, _ := r.Uint16("speed")
	hr, _ := r.Uint8("heart rate")
	flags, _ := r.Flags8("capabilities and state")

	page := GeneralFEData{
		EquipmentType:  ParseEquipmentType(equipment),
		ElapsedSeconds: float64(elapsed) * 0.25,
		DistanceMeters: distance,
		Capabilities: FECapabilities{
			HeartRateSource:         HeartRateSource(flags.Field(0, 2)),
			DistanceTraveledEnabled: flags.Has(2),
			VirtualSpeed:            flags.Has(3),
		},
	}
	if speed != 0xFFFF {
		page.SpeedMps = codec.Some(float64(speed) * 0.001)
	}
	if hr != 0xFF {
		page.HeartRateBpm = codec.Some(hr)
	}
	page.State, page.LapToggle = stateNibble(uint8(flags))
	return page, nil
}

func DecodeSpecificTrainerData(payload []byte) (SpecificTrainerData, error) {
	r, err := pageReader(payload, PageSpecificTrainerData, "specific trainer data")
	if err != nil {
		return SpecificTrainerData{}, err
	}
	events, _ := r.Uint8("update event count")
	cadence, _ := r.Uint8("cadence")
	accumulated, _ := r.Uint16("accumulated power")
	powerLow, _ := r.Uint8("instantaneous power")
	mixed, _ := r.Uint8("instantaneous power and trainer status")
	last, _ := r.Uint8("flags and state")

	page := SpecificTrainerData{
		EventCount:                    events,
		AccumulatedPowerWatts:         accumulated,
		PowerCalibrationRequired:      mixed&0x10 != 0,
		ResistanceCalibrationRequired: mixed&0x20 != 0,
		UserConfigurationRequired:     mixed&0x40 != 0,
		TargetPowerLimit:              ParseTargetPowerLimit(last & 0x3),
	}
	if cadence != 0xFF {
		page.CadenceRpm = codec.Some(cadence)
	}
	if power := uint16(powerLow) | uint16(mixed&0xF)<<8; power != 0xFFF {
		page.InstantaneousPowerWatts = codec.Some(power)
	}
	page.State, page.LapToggle = stateNibble(last)
	return page, nil
}

func DecodeCommandStatusData(payload []byte) (CommandStatusData, error) {
	r, err := pageReader(payload, PageCommandStatus, "command status")
	if err != nil {
		return CommandStatusData{}, err
	}
	last, _ := r.Uint8("last received command")
	seq, _ := r.Uint8("sequence number")
	status, _ := r.Uint8("command status")
	data, _ := r.Bytes("data", 4)

	page := CommandStatusData{Sequence: seq, Status: ParseCommandStatus(status)}
	if last != reserved {
		page.LastCommand = codec.Some(last)
	}
	copy(page.Data[:], data)
	return page, nil
}

func DecodeUnknownPage(payload []byte) (UnknownPage, error) {
	if len(payload) == 0 {
		return UnknownPage{}, &codec.DecodeError{Field: "page number", Need: 1, Cause: codec.ErrInsufficientData}
	}
	return UnknownPage{Number: payload[0], Data: append([]byte(nil), payload[1:]...)}, nil
}

// DecodeDataPage decodes a message payload by its page number
func DecodeDataPage(payload []byte) (DataPage, error) {
	if len(payload) == 0 {
		return nil, &codec.DecodeError{Field: "page number", Need: 1, Cause: codec.ErrInsufficientData}
	}
	switch payload[0] {
	case PageGeneralFEData:
		return asDataPage(DecodeGeneralFEData(payload))
	case PageSpecificTrainerData:
		return asDataPage(DecodeSpecificTrainerData(payload))
	case PageCommandStatus:
		return asDataPage(DecodeCommandStatusData(payload))
	default:
		return asDataPage(DecodeUnknownPage(payload))
	}
}

func asDataPage[T DataPage](page T, err error) (DataPage, error) {
	if err != nil {
		return nil, err
	}
	return page, nil
}
