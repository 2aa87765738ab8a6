package sensors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

func TestDecodeCyclingPowerFeature(t *testing.T) {
	raw := uint32(1<<0 | 1<<3 | 1<<7 | 1<<15 | 1<<16 | 1<<17 | 1<<19 | 2<<20)
	f, err := DecodeCyclingPowerFeature(codec.NewWriter(4).PutUint32(raw).Bytes())
	require.NoError(t, err)

	assert.True(t, f.PedalPowerBalance)
	assert.False(t, f.AccumulatedTorque)
	assert.False(t, f.WheelRevolutionData)
	assert.True(t, f.CrankRevolutionData)
	assert.True(t, f.AccumulatedEnergy)
	assert.True(t, f.SpanLengthAdjustment)
	assert.False(t, f.ChainWeightAdjustment)
	assert.Equal(t, ContextTorqueBased, f.SensorMeasurementContext)
	assert.True(t, f.InstantaneousMeasurementDirection)
	assert.False(t, f.FactoryCalibrationDate)
	assert.True(t, f.EnhancedOffsetCompensation)
	assert.Equal(t, DistributedSystemSupported, f.DistributedSystemSupport)
	assert.Equal(t, "supported", f.DistributedSystemSupport.String())
	assert.Equal(t, codec.Flags32(raw), f.Raw)
}

func TestDecodeCyclingPowerFeature_Empty(t *testing.T) {
	f, err := DecodeCyclingPowerFeature([]byte{0, 0, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, ContextForceBased, f.SensorMeasurementContext)
	assert.Equal(t, DistributedSystemUnspecified, f.DistributedSystemSupport)
	assert.Equal(t, "force based", f.SensorMeasurementContext.String())

	_, err = DecodeCyclingPowerFeature([]byte{0, 0, 0})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeSensorLocation(t *testing.T) {
	tests := []struct {
		data []byte
		want SensorLocation
		name string
	}{
		{[]byte{0x05}, LocationLeftCrank, "left crank"},
		{[]byte{0x0F}, LocationSpider, "spider"},
		{[]byte{0x10}, LocationChainRing, "chain ring"},
		{[]byte{0x11}, LocationUnknown, "unknown"},
		{[]byte{0xFE}, LocationUnknown, "unknown"},
	}
	for _, tt := range tests {
		got, err := DecodeSensorLocation(tt.data)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
		assert.Equal(t, tt.name, got.String())
	}

	_, err := DecodeSensorLocation(nil)
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeCSCFeature(t *testing.T) {
	f, err := DecodeCSCFeature([]byte{0x06, 0x00})
	require.NoError(t, err)
	assert.False(t, f.WheelRevolutionData)
	assert.True(t, f.CrankRevolutionData)
	assert.True(t, f.MultipleSensorLocations)

	_, err = DecodeCSCFeature([]byte{0x06})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeFitnessMachineFeature(t *testing.T) {
	data := codec.NewWriter(8).
		PutUint32(1<<1 | 1<<14).
		PutUint32(1<<2 | 1<<3 | 1<<13).
		Bytes()
	f, err := DecodeFitnessMachineFeature(data)
	require.NoError(t, err)
	assert.True(t, f.Cadence)
	assert.True(t, f.PowerMeasurement)
	assert.False(t, f.HeartRate)
	assert.True(t, f.ResistanceTarget)
	assert.True(t, f.PowerTarget)
	assert.True(t, f.IndoorBikeSimulation)
	assert.False(t, f.SpeedTarget)

	_, err = DecodeFitnessMachineFeature(data[:6])
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeSupportedRanges(t *testing.T) {
	pr, err := DecodeSupportedPowerRange([]byte{0x19, 0x00, 0xD0, 0x07, 0x01, 0x00})
	require.NoError(t, err)
	assert.Equal(t, SupportedPowerRange{Min: 25, Max: 2000, Increment: 1}, pr)

	rr, err := DecodeSupportedResistanceRange([]byte{0x00, 0x00, 0xC8, 0x00, 0x0A, 0x00})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, rr.Min, 1e-9)
	assert.InDelta(t, 20.0, rr.Max, 1e-9)
	assert.InDelta(t, 1.0, rr.Increment, 1e-9)

	_, err = DecodeSupportedPowerRange([]byte{0x19, 0x00, 0xD0, 0x07})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeBatteryLevel(t *testing.T) {
	level, err := DecodeBatteryLevel([]byte{87})
	require.NoError(t, err)
	assert.Equal(t, BatteryLevel(87), level)

	_, err = DecodeBatteryLevel(nil)
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}
