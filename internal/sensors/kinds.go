package sensors

import "github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"

// Kinds of values produced by the decoders in this package
const (
	KindHeartRate                dispatch.Kind = "heart_rate_measurement"
	KindCyclingPower             dispatch.Kind = "cycling_power_measurement"
	KindCyclingPowerVector       dispatch.Kind = "cycling_power_vector"
	KindCSC                      dispatch.Kind = "csc_measurement"
	KindSteering                 dispatch.Kind = "steering_measurement"
	KindSteeringChallenge        dispatch.Kind = "steering_challenge"
	KindRadar                    dispatch.Kind = "radar_measurement"
	KindIndoorBikeData           dispatch.Kind = "indoor_bike_data"
	KindFitnessMachineResponse   dispatch.Kind = "ftms_control_response"
	KindFitnessMachineStatus     dispatch.Kind = "ftms_status"
	KindTrainingStatus           dispatch.Kind = "ftms_training_status"
	KindBatteryLevel             dispatch.Kind = "battery_level"
	KindCyclingPowerFeature      dispatch.Kind = "cycling_power_feature"
	KindSensorLocation           dispatch.Kind = "sensor_location"
	KindCSCFeature               dispatch.Kind = "csc_feature"
	KindFitnessMachineFeature    dispatch.Kind = "ftms_feature"
	KindSupportedPowerRange      dispatch.Kind = "supported_power_range"
	KindSupportedResistanceRange dispatch.Kind = "supported_resistance_range"
)
