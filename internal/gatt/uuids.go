package gatt

import (
	"encoding/binary"

	"github.com/google/uuid"
)

// bluetoothBase is the Bluetooth SIG base UUID 00000000-0000-1000-8000-00805f9b34fb
var bluetoothBase = uuid.MustParse("00000000-0000-1000-8000-00805f9b34fb")

// SIG expands a 16-bit assigned number into its full 128-bit UUID
func SIG(short uint16) uuid.UUID {
	u := bluetoothBase
	binary.BigEndian.PutUint16(u[2:4], short)
	return u
}

// ShortForm returns the 16-bit assigned number of a SIG UUID
func ShortForm(u uuid.UUID) (uint16, bool) {
	base := u
	base[2], base[3] = 0, 0
	if base != bluetoothBase {
		return 0, false
	}
	return binary.BigEndian.Uint16(u[2:4]), true
}

// Services
var (
	ServiceHeartRate           = SIG(0x180D)
	ServiceBattery             = SIG(0x180F)
	ServiceCyclingSpeedCadence = SIG(0x1816)
	ServiceCyclingPower        = SIG(0x1818)
	ServiceFitnessMachine      = SIG(0x1826)

	// Tacx FE-C over BLE (Nordic UART style service)
	ServiceTacxFEC = uuid.MustParse("6e40fec1-b5a3-f393-e0a9-e50e24dcca9e")

	// Elite Sterzo and Rizer share the same vendor service
	ServiceSteering = uuid.MustParse("347b0001-7635-408b-8918-8ff3949ce592")

	// Garmin Varia style rear view radar
	ServiceRadar = uuid.MustParse("6a4e3200-667b-11e3-949a-0800200c9a66")
)

// Characteristics
var (
	CharHeartRateMeasurement = SIG(0x2A37)
	CharBatteryLevel         = SIG(0x2A19)

	CharCSCMeasurement = SIG(0x2A5B)
	CharCSCFeature     = SIG(0x2A5C)

	CharSensorLocation          = SIG(0x2A5D)
	CharCyclingPowerMeasurement = SIG(0x2A63)
	CharCyclingPowerVector      = SIG(0x2A64)
	CharCyclingPowerFeature     = SIG(0x2A65)

	CharFitnessMachineFeature     = SIG(0x2ACC)
	CharIndoorBikeData            = SIG(0x2AD2)
	CharSupportedResistanceRange  = SIG(0x2AD6)
	CharSupportedPowerRange       = SIG(0x2AD8)
	CharFitnessMachineControl     = SIG(0x2AD9)
	CharFitnessMachineStatus      = SIG(0x2ADA)
	CharFitnessMachineTrainStatus = SIG(0x2AD3)

	// Trainer -> host
	CharTacxFECNotify = uuid.MustParse("6e40fec2-b5a3-f393-e0a9-e50e24dcca9e")
	// Host -> trainer
	CharTacxFECWrite = uuid.MustParse("6e40fec3-b5a3-f393-e0a9-e50e24dcca9e")

	CharSteeringAngle     = uuid.MustParse("347b0030-7635-408b-8918-8ff3949ce592")
	CharSteeringControl   = uuid.MustParse("347b0031-7635-408b-8918-8ff3949ce592")
	CharSteeringChallenge = uuid.MustParse("347b0032-7635-408b-8918-8ff3949ce592")

	CharRadarMeasurement = uuid.MustParse("6a4e3203-667b-11e3-949a-0800200c9a66")
)
