package gatt

import (
	"fmt"

	"github.com/google/uuid"
)

// Mode defines how a characteristic is used
type Mode int

const (
	ModeNotify Mode = iota // Subscribe to notifications or indications
	ModeRead               // One-time read
	ModeWrite              // Write commands
)

func (m Mode) String() string {
	switch m {
	case ModeNotify:
		return "notify"
	case ModeRead:
		return "read"
	case ModeWrite:
		return "write"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// CharacteristicID is a stable, human readable key for a characteristic
type CharacteristicID string

const (
	IDHeartRate                CharacteristicID = "heart_rate"
	IDBatteryLevel             CharacteristicID = "battery_level"
	IDCSCMeasurement           CharacteristicID = "csc_measurement"
	IDCSCFeature               CharacteristicID = "csc_feature"
	IDCyclingPower             CharacteristicID = "cycling_power"
	IDCyclingPowerVector       CharacteristicID = "cycling_power_vector"
	IDCyclingPowerFeature      CharacteristicID = "cycling_power_feature"
	IDSensorLocation           CharacteristicID = "sensor_location"
	IDIndoorBikeData           CharacteristicID = "indoor_bike_data"
	IDFitnessMachineControl    CharacteristicID = "ftms_control"
	IDFitnessMachineFeature    CharacteristicID = "ftms_feature"
	IDFitnessMachineStatus     CharacteristicID = "ftms_status"
	IDTrainingStatus           CharacteristicID = "ftms_training_status"
	IDSupportedPowerRange      CharacteristicID = "supported_power_range"
	IDSupportedResistanceRange CharacteristicID = "supported_resistance_range"
	IDTacxFECNotify            CharacteristicID = "tacx_fec_notify"
	IDTacxFECWrite             CharacteristicID = "tacx_fec_write"
	IDSteeringAngle            CharacteristicID = "steering_angle"
	IDSteeringControl          CharacteristicID = "steering_control"
	IDSteeringChallenge        CharacteristicID = "steering_challenge"
	IDRadar                    CharacteristicID = "radar"
)

// Characteristic is a service/characteristic pair plus how it is used
type Characteristic struct {
	ID          CharacteristicID
	DisplayName string
	Service     uuid.UUID
	UUID        uuid.UUID
	Mode        Mode
}

func (c Characteristic) String() string {
	if c.DisplayName != "" {
		return c.DisplayName
	}
	return c.UUID.String()
}

var (
	HeartRateMeasurement = Characteristic{
		ID:          IDHeartRate,
		DisplayName: "Heart Rate Measurement",
		Service:     ServiceHeartRate,
		UUID:        CharHeartRateMeasurement,
		Mode:        ModeNotify,
	}
	BatteryLevel = Characteristic{
		ID:          IDBatteryLevel,
		DisplayName: "Battery Level",
		Service:     ServiceBattery,
		UUID:        CharBatteryLevel,
		Mode:        ModeRead,
	}
	CSCMeasurement = Characteristic{
		ID:          IDCSCMeasurement,
		DisplayName: "CSC Measurement",
		Service:     ServiceCyclingSpeedCadence,
		UUID:        CharCSCMeasurement,
		Mode:        ModeNotify,
	}
	CSCFeature = Characteristic{
		ID:          IDCSCFeature,
		DisplayName: "CSC Feature",
		Service:     ServiceCyclingSpeedCadence,
		UUID:        CharCSCFeature,
		Mode:        ModeRead,
	}
	CyclingPowerMeasurement = Characteristic{
		ID:          IDCyclingPower,
		DisplayName: "Cycling Power Measurement",
		Service:     ServiceCyclingPower,
		UUID:        CharCyclingPowerMeasurement,
		Mode:        ModeNotify,
	}
	CyclingPowerVector = Characteristic{
		ID:          IDCyclingPowerVector,
		DisplayName: "Cycling Power Vector",
		Service:     ServiceCyclingPower,
		UUID:        CharCyclingPowerVector,
		Mode:        ModeNotify,
	}
	CyclingPowerFeature = Characteristic{
		ID:          IDCyclingPowerFeature,
		DisplayName: "Cycling Power Feature",
		Service:     ServiceCyclingPower,
		UUID:        CharCyclingPowerFeature,
		Mode:        ModeRead,
	}
	SensorLocation = Characteristic{
		ID:          IDSensorLocation,
		DisplayName: "Sensor Location",
		Service:     ServiceCyclingPower,
		UUID:        CharSensorLocation,
		Mode:        ModeRead,
	}
	IndoorBikeData = Characteristic{
		ID:          IDIndoorBikeData,
		DisplayName: "Indoor Bike Data",
		Service:     ServiceFitnessMachine,
		UUID:        CharIndoorBikeData,
		Mode:        ModeNotify,
	}
	FitnessMachineControlPoint = Characteristic{
		ID:          IDFitnessMachineControl,
		DisplayName: "Fitness Machine Control Point",
		Service:     ServiceFitnessMachine,
		UUID:        CharFitnessMachineControl,
		Mode:        ModeWrite,
	}
	FitnessMachineStatus = Characteristic{
		ID:          IDFitnessMachineStatus,
		DisplayName: "Fitness Machine Status",
		Service:     ServiceFitnessMachine,
		UUID:        CharFitnessMachineStatus,
		Mode:        ModeNotify,
	}
	TrainingStatus = Characteristic{
		ID:          IDTrainingStatus,
		DisplayName: "Training Status",
		Service:     ServiceFitnessMachine,
		UUID:        CharFitnessMachineTrainStatus,
		Mode:        ModeNotify,
	}
	FitnessMachineFeature = Characteristic{
		ID:          IDFitnessMachineFeature,
		DisplayName: "Fitness Machine Feature",
		Service:     ServiceFitnessMachine,
		UUID:        CharFitnessMachineFeature,
		Mode:        ModeRead,
	}
	SupportedPowerRange = Characteristic{
		ID:          IDSupportedPowerRange,
		DisplayName: "Supported Power Range",
		Service:     ServiceFitnessMachine,
		UUID:        CharSupportedPowerRange,
		Mode:        ModeRead,
	}
	SupportedResistanceRange = Characteristic{
		ID:          IDSupportedResistanceRange,
		DisplayName: "Supported Resistance Level Range",
		Service:     ServiceFitnessMachine,
		UUID:        CharSupportedResistanceRange,
		Mode:        ModeRead,
	}
	TacxFECNotify = Characteristic{
		ID:          IDTacxFECNotify,
		DisplayName: "FE-C Notify",
		Service:     ServiceTacxFEC,
		UUID:        CharTacxFECNotify,
		Mode:        ModeNotify,
	}
	TacxFECWrite = Characteristic{
		ID:          IDTacxFECWrite,
		DisplayName: "FE-C Write",
		Service:     ServiceTacxFEC,
		UUID:        CharTacxFECWrite,
		Mode:        ModeWrite,
	}
	SteeringAngle = Characteristic{
		ID:          IDSteeringAngle,
		DisplayName: "Steering Angle",
		Service:     ServiceSteering,
		UUID:        CharSteeringAngle,
		Mode:        ModeNotify,
	}
	SteeringControlPoint = Characteristic{
		ID:          IDSteeringControl,
		DisplayName: "Steering Control Point",
		Service:     ServiceSteering,
		UUID:        CharSteeringControl,
		Mode:        ModeWrite,
	}
	SteeringChallenge = Characteristic{
		ID:          IDSteeringChallenge,
		DisplayName: "Steering Challenge",
		Service:     ServiceSteering,
		UUID:        CharSteeringChallenge,
		Mode:        ModeNotify,
	}
	RadarMeasurement = Characteristic{
		ID:          IDRadar,
		DisplayName: "Radar Measurement",
		Service:     ServiceRadar,
		UUID:        CharRadarMeasurement,
		Mode:        ModeNotify,
	}
)

// AllCharacteristics lists every characteristic the core knows how to use
var AllCharacteristics = []Characteristic{
	HeartRateMeasurement,
	BatteryLevel,
	CSCMeasurement,
	CSCFeature,
	CyclingPowerMeasurement,
	CyclingPowerVector,
	CyclingPowerFeature,
	SensorLocation,
	IndoorBikeData,
	FitnessMachineControlPoint,
	FitnessMachineStatus,
	TrainingStatus,
	FitnessMachineFeature,
	SupportedPowerRange,
	SupportedResistanceRange,
	TacxFECNotify,
	TacxFECWrite,
	SteeringAngle,
	SteeringControlPoint,
	SteeringChallenge,
	RadarMeasurement,
}

// GetCharacteristicByID returns a characteristic by its ID
func GetCharacteristicByID(id CharacteristicID) (Characteristic, bool) {
	for _, c := range AllCharacteristics {
		if c.ID == id {
			return c, true
		}
	}
	return Characteristic{}, false
}

// GetCharacteristicByUUID returns the known characteristic with the given UUID
func GetCharacteristicByUUID(u uuid.UUID) (Characteristic, bool) {
	for _, c := range AllCharacteristics {
		if c.UUID == u {
			return c, true
		}
	}
	return Characteristic{}, false
}
