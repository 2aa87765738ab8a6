package sensors

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

func TestDecodeHeartRateMeasurement(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		bpm     uint16
		contact codec.Optional[bool]
		energy  codec.Optional[uint16]
		rr      codec.Optional[[]uint16]
	}{
		{
			name: "uint8 value only",
			data: []byte{0x00, 0x48},
			bpm:  72,
		},
		{
			name: "uint16 value",
			data: []byte{0x01, 0x2C, 0x01},
			bpm:  300,
		},
		{
			name:    "contact supported and detected, trailing bytes ignored",
			data:    []byte{0x06, 0x3C, 0x00, 0x64},
			bpm:     60,
			contact: codec.Some(true),
		},
		{
			name:    "contact supported but lost",
			data:    []byte{0x04, 0x3C},
			bpm:     60,
			contact: codec.Some(false),
		},
		{
			name:    "energy expended",
			data:    []byte{0x0E, 0x3C, 0x64, 0x00},
			bpm:     60,
			contact: codec.Some(true),
			energy:  codec.Some[uint16](100),
		},
		{
			name: "rr intervals",
			data: []byte{0x10, 0x3C, 0x00, 0x04, 0x00, 0x02},
			bpm:  60,
			rr:   codec.Some([]uint16{1024, 512}),
		},
		{
			name: "rr flag with no samples",
			data: []byte{0x10, 0x3C},
			bpm:  60,
			rr:   codec.Some([]uint16{}),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := DecodeHeartRateMeasurement(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.bpm, m.BPM)
			assert.Equal(t, tt.contact, m.SensorContact)
			assert.Equal(t, tt.energy, m.EnergyExpendedKJ)
			assert.Equal(t, tt.rr, m.RRIntervals)
		})
	}
}

func TestDecodeHeartRateMeasurement_Errors(t *testing.T) {
	_, err := DecodeHeartRateMeasurement(nil)
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	_, err = DecodeHeartRateMeasurement([]byte{0x01, 0x3C})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	_, err = DecodeHeartRateMeasurement([]byte{0x08, 0x3C, 0x64})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	m, err := DecodeHeartRateMeasurement([]byte{0x10, 0x3C, 0x00, 0x04, 0x00})
	assert.ErrorIs(t, err, codec.ErrNonIntegralArray)
	assert.Equal(t, HeartRateMeasurement{}, m)

	var decodeErr *codec.DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, 2, decodeErr.Offset)
}

func TestHeartRateMeasurement_RRDurations(t *testing.T) {
	m, err := DecodeHeartRateMeasurement([]byte{0x10, 0x3C, 0x00, 0x04, 0x00, 0x02})
	require.NoError(t, err)
	assert.Equal(t, []time.Duration{time.Second, 500 * time.Millisecond}, m.RRDurations())

	m, err = DecodeHeartRateMeasurement([]byte{0x00, 0x3C})
	require.NoError(t, err)
	assert.Nil(t, m.RRDurations())
}

func TestDecodeCyclingPowerMeasurement_PowerOnly(t *testing.T) {
	m, err := DecodeCyclingPowerMeasurement([]byte{0x00, 0x00, 0xFA, 0x00})
	require.NoError(t, err)
	assert.Equal(t, int16(250), m.InstantaneousPower)
	assert.False(t, m.PedalPowerBalance.IsSet())
	assert.False(t, m.AccumulatedTorque.IsSet())
	assert.False(t, m.WheelRevolutions.IsSet())
	assert.False(t, m.CrankRevolutions.IsSet())
	assert.False(t, m.ExtremeForce.IsSet())
	assert.False(t, m.ExtremeTorque.IsSet())
	assert.False(t, m.ExtremeAngles.IsSet())
	assert.False(t, m.AccumulatedEnergy.IsSet())
}

func TestDecodeCyclingPowerMeasurement_NegativePower(t *testing.T) {
	m, err := DecodeCyclingPowerMeasurement([]byte{0x00, 0x00, 0xF6, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, int16(-10), m.InstantaneousPower)
}

func TestDecodeCyclingPowerMeasurement_AllFields(t *testing.T) {
	// balance, balance ref, torque, torque source, wheel, crank, extreme force,
	// extreme angles, top + bottom dead spot, energy, offset compensation
	flags := uint16(1<<0 | 1<<1 | 1<<2 | 1<<3 | 1<<4 | 1<<5 | 1<<6 | 1<<8 | 1<<9 | 1<<10 | 1<<11 | 1<<12)
	data := codec.NewWriter(40).
		PutUint16(flags).
		PutInt16(300).       // power
		PutUint8(100).       // balance 50 %
		PutUint16(64).       // torque 2 Nm
		PutUint32(1000).     // wheel revs
		PutUint16(4096).     // wheel time, 2 s at 2048
		PutUint16(50).       // crank revs
		PutUint16(2048).     // crank time, 2 s
		PutInt16(400).       // max force
		PutInt16(-20).       // min force
		PutUint24(0x0B405A). // max 90 deg, min 180 deg
		PutUint16(10).       // top dead spot
		PutUint16(190).      // bottom dead spot
		PutUint16(12).       // energy
		Bytes()

	m, err := DecodeCyclingPowerMeasurement(data)
	require.NoError(t, err)

	assert.Equal(t, int16(300), m.InstantaneousPower)
	assert.Equal(t, codec.Some(50.0), m.PedalPowerBalance)
	assert.True(t, m.PedalPowerBalanceLeft)
	assert.Equal(t, codec.Some(2.0), m.AccumulatedTorque)
	assert.Equal(t, TorqueSourceCrank, m.AccumulatedTorqueSource)

	wheel, ok := m.WheelRevolutions.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(1000), wheel.CumulativeRevolutions)
	assert.InDelta(t, 2.0, wheel.LastEventSeconds(), 1e-9)

	crank, ok := m.CrankRevolutions.Get()
	require.True(t, ok)
	assert.Equal(t, uint16(50), crank.CumulativeRevolutions)
	assert.InDelta(t, 2.0, crank.LastEventSeconds(), 1e-9)

	assert.Equal(t, codec.Some(ExtremeForce{Max: 400, Min: -20}), m.ExtremeForce)
	assert.False(t, m.ExtremeTorque.IsSet())
	assert.Equal(t, codec.Some(ExtremeAngles{Max: 90, Min: 180}), m.ExtremeAngles)
	assert.Equal(t, codec.Some[uint16](10), m.TopDeadSpotAngle)
	assert.Equal(t, codec.Some[uint16](190), m.BottomDeadSpotAngle)
	assert.Equal(t, codec.Some[uint16](12), m.AccumulatedEnergy)
	assert.True(t, m.OffsetCompensationIndicator)
}

func TestDecodeCyclingPowerMeasurement_ExtremeTorque(t *testing.T) {
	data := codec.NewWriter(8).PutUint16(1 << 7).PutInt16(100).PutInt16(96).PutInt16(-32).Bytes()
	m, err := DecodeCyclingPowerMeasurement(data)
	require.NoError(t, err)
	assert.Equal(t, codec.Some(ExtremeTorque{Max: 3, Min: -1}), m.ExtremeTorque)
}

func TestDecodeCyclingPowerMeasurement_Errors(t *testing.T) {
	_, err := DecodeCyclingPowerMeasurement([]byte{0x00, 0x00, 0xFA})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	// crank flag set without the crank bytes
	m, err := DecodeCyclingPowerMeasurement([]byte{0x20, 0x00, 0xFA, 0x00, 0x01})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
	assert.Equal(t, CyclingPowerMeasurement{}, m)

	// extreme force and extreme torque together
	data := codec.NewWriter(12).PutUint16(1<<6 | 1<<7).PutInt16(100).Fill(0, 8).Bytes()
	_, err = DecodeCyclingPowerMeasurement(data)
	assert.ErrorIs(t, err, codec.ErrInconsistentFlags)
}

func TestDecodeCyclingPowerVector(t *testing.T) {
	// crank data, first angle, force array, tangential direction
	flags := uint8(1<<0 | 1<<1 | 1<<2 | 1<<4)
	data := codec.NewWriter(16).
		PutUint8(flags).
		PutUint16(7).
		PutUint16(1024).
		PutUint16(45).
		PutInt16(100).
		PutInt16(-5).
		PutInt16(300).
		Bytes()

	v, err := DecodeCyclingPowerVector(data)
	require.NoError(t, err)
	assert.Equal(t, codec.Some(CrankRevolutionData{CumulativeRevolutions: 7, LastEventTime: 1024}), v.CrankRevolutions)
	assert.Equal(t, codec.Some[uint16](45), v.FirstCrankMeasurementAngle)
	assert.Equal(t, codec.Some([]int16{100, -5, 300}), v.InstantaneousForce)
	assert.False(t, v.InstantaneousTorque.IsSet())
	assert.Equal(t, DirectionTangential, v.Direction)
	assert.Equal(t, "tangential", v.Direction.String())
}

func TestDecodeCyclingPowerVector_Torque(t *testing.T) {
	data := codec.NewWriter(5).PutUint8(1<<3 | 3<<4).PutInt16(64).PutInt16(-16).Bytes()
	v, err := DecodeCyclingPowerVector(data)
	require.NoError(t, err)
	assert.Equal(t, codec.Some([]float64{2, -0.5}), v.InstantaneousTorque)
	assert.Equal(t, DirectionLateral, v.Direction)
}

func TestDecodeCyclingPowerVector_Errors(t *testing.T) {
	_, err := DecodeCyclingPowerVector([]byte{0x04, 0x01, 0x02, 0x03})
	assert.ErrorIs(t, err, codec.ErrNonIntegralArray)

	_, err = DecodeCyclingPowerVector([]byte{0x0C, 0x01, 0x00})
	assert.ErrorIs(t, err, codec.ErrInconsistentFlags)

	_, err = DecodeCyclingPowerVector([]byte{0x02, 0x2D})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	_, err = DecodeCyclingPowerVector(nil)
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeCSCMeasurement(t *testing.T) {
	data := codec.NewWriter(11).
		PutUint8(0x03).
		PutUint32(0x01020304).
		PutUint16(1024).
		PutUint16(33).
		PutUint16(512).
		Bytes()

	m, err := DecodeCSCMeasurement(data)
	require.NoError(t, err)

	wheel, ok := m.WheelRevolutions.Get()
	require.True(t, ok)
	assert.Equal(t, uint32(0x01020304), wheel.CumulativeRevolutions)
	assert.Equal(t, uint16(1024), wheel.TimeBase)
	assert.InDelta(t, 1.0, wheel.LastEventSeconds(), 1e-9)

	assert.Equal(t, codec.Some(CrankRevolutionData{CumulativeRevolutions: 33, LastEventTime: 512}), m.CrankRevolutions)
}

func TestDecodeCSCMeasurement_CrankOnly(t *testing.T) {
	m, err := DecodeCSCMeasurement([]byte{0x02, 0x10, 0x00, 0x00, 0x04})
	require.NoError(t, err)
	assert.False(t, m.WheelRevolutions.IsSet())
	assert.Equal(t, codec.Some(CrankRevolutionData{CumulativeRevolutions: 16, LastEventTime: 1024}), m.CrankRevolutions)

	_, err = DecodeCSCMeasurement([]byte{0x01, 0x10, 0x00, 0x00})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestCadenceCalculator(t *testing.T) {
	var calc CadenceCalculator

	assert.False(t, calc.Update(CrankRevolutionData{CumulativeRevolutions: 10, LastEventTime: 0}).IsSet())

	// 1 revolution in 0.75 s = 80 rpm
	rpm, ok := calc.Update(CrankRevolutionData{CumulativeRevolutions: 11, LastEventTime: 768}).Get()
	require.True(t, ok)
	assert.InDelta(t, 80.0, rpm, 1e-9)

	// same event repeated: no time elapsed
	assert.False(t, calc.Update(CrankRevolutionData{CumulativeRevolutions: 11, LastEventTime: 768}).IsSet())

	// rollover of both counters
	calc.Reset()
	calc.Update(CrankRevolutionData{CumulativeRevolutions: 0xFFFF, LastEventTime: 0xFF00})
	rpm, ok = calc.Update(CrankRevolutionData{CumulativeRevolutions: 0, LastEventTime: 0x0200}).Get()
	require.True(t, ok)
	assert.InDelta(t, 60.0*1024/768, rpm, 1e-9)

	// implausible jump
	assert.False(t, calc.Update(CrankRevolutionData{CumulativeRevolutions: 100, LastEventTime: 0x0300}).IsSet())
}

func TestDecodeSteeringMeasurement(t *testing.T) {
	data := codec.NewWriter(4).PutUint32(math.Float32bits(-12.5)).Bytes()
	m, err := DecodeSteeringMeasurement(data)
	require.NoError(t, err)
	assert.Equal(t, float32(-12.5), m.AngleDegrees)

	_, err = DecodeSteeringMeasurement(data[:3])
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	_, err = DecodeSteeringMeasurement(append(data, 0x00))
	assert.ErrorIs(t, err, codec.ErrMalformed)
}

func TestDecodeSteeringChallenge(t *testing.T) {
	c, err := DecodeSteeringChallenge([]byte{0x03, 0x10, 0x12, 0x34})
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), c.Code)

	_, err = DecodeSteeringChallenge([]byte{0x03, 0x10, 0x12})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestSteeringEncoders(t *testing.T) {
	assert.Equal(t, []byte{0x03, 0x11, 0xAB, 0xCD}, EncodeSterzoChallengeResponse(0xAB, 0xCD))
	assert.Equal(t, []byte{0x01}, EncodeRizerSetCenter())

	data, err := EncodeRizerTransmissionRate(RizerRate32Hz)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0x02}, data)

	_, err = EncodeRizerTransmissionRate(3)
	assert.ErrorIs(t, err, ErrInvalidRizerRate)
}

func TestDecodeRadarMeasurement(t *testing.T) {
	m, err := DecodeRadarMeasurement([]byte{0x40, 0x01, 0x32, 0x28, 0x02, 0x64, 0x3C})
	require.NoError(t, err)
	assert.Equal(t, uint8(0x40), m.PacketID)
	assert.Equal(t, []RadarThreat{
		{ID: 1, DistanceMeters: 50, SpeedKmh: 40},
		{ID: 2, DistanceMeters: 100, SpeedKmh: 60},
	}, m.Threats)

	m, err = DecodeRadarMeasurement([]byte{0x41})
	require.NoError(t, err)
	assert.Empty(t, m.Threats)

	_, err = DecodeRadarMeasurement([]byte{0x40, 0x01, 0x32})
	require.NoError(t, err)

	_, err = DecodeRadarMeasurement([]byte{0x40, 0x01, 0x32, 0x28, 0x02})
	assert.ErrorIs(t, err, codec.ErrNonIntegralArray)
}

func TestDecodeIndoorBikeData(t *testing.T) {
	// speed (bit 0 clear), cadence, power
	data := codec.NewWriter(8).PutUint16(0x0044).PutUint16(2500).PutUint16(160).PutInt16(200).Bytes()
	d, err := DecodeIndoorBikeData(data)
	require.NoError(t, err)

	speed, ok := d.InstantaneousSpeedKmh.Get()
	require.True(t, ok)
	assert.InDelta(t, 25.0, speed, 1e-9)
	cadence, ok := d.InstantaneousCadenceRpm.Get()
	require.True(t, ok)
	assert.InDelta(t, 80.0, cadence, 1e-9)
	assert.Equal(t, codec.Some[int16](200), d.InstantaneousPowerWatts)
	assert.False(t, d.AverageSpeedKmh.IsSet())
	assert.False(t, d.HeartRateBpm.IsSet())
}

func TestDecodeIndoorBikeData_AllFields(t *testing.T) {
	flags := uint16(0x1FFF) // every field; bit 0 set drops instantaneous speed
	data := codec.NewWriter(32).
		PutUint16(flags).
		PutUint16(2000).  // average speed
		PutUint16(170).   // cadence
		PutUint16(160).   // average cadence
		PutUint24(12345). // distance
		PutInt16(-3).     // resistance
		PutInt16(250).    // power
		PutInt16(210).    // average power
		PutUint16(300).   // total energy
		PutUint16(600).   // per hour
		PutUint8(10).     // per minute
		PutUint8(140).    // heart rate
		PutUint8(85).     // MET
		PutUint16(3600).  // elapsed
		PutUint16(60).    // remaining
		Bytes()

	d, err := DecodeIndoorBikeData(data)
	require.NoError(t, err)
	assert.False(t, d.InstantaneousSpeedKmh.IsSet())
	assert.InDelta(t, 20.0, d.AverageSpeedKmh.OrElse(0), 1e-9)
	assert.InDelta(t, 85.0, d.InstantaneousCadenceRpm.OrElse(0), 1e-9)
	assert.InDelta(t, 80.0, d.AverageCadenceRpm.OrElse(0), 1e-9)
	assert.Equal(t, codec.Some[uint32](12345), d.TotalDistanceMeters)
	assert.Equal(t, codec.Some[int16](-3), d.ResistanceLevel)
	assert.Equal(t, codec.Some[int16](250), d.InstantaneousPowerWatts)
	assert.Equal(t, codec.Some[int16](210), d.AveragePowerWatts)
	assert.Equal(t, codec.Some(ExpendedEnergy{TotalKcal: 300, PerHourKcal: 600, PerMinuteKcal: 10}), d.ExpendedEnergy)
	assert.Equal(t, codec.Some[uint8](140), d.HeartRateBpm)
	assert.InDelta(t, 8.5, d.MetabolicEquivalent.OrElse(0), 1e-9)
	assert.Equal(t, codec.Some[uint16](3600), d.ElapsedTimeSeconds)
	assert.Equal(t, codec.Some[uint16](60), d.RemainingTimeSeconds)
}

func TestDecodeIndoorBikeData_Short(t *testing.T) {
	_, err := DecodeIndoorBikeData([]byte{0x00})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	// speed expected but missing
	_, err = DecodeIndoorBikeData([]byte{0x00, 0x00, 0x10})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)

	// expended energy truncated
	d, err := DecodeIndoorBikeData([]byte{0x01, 0x01, 0x2C, 0x01, 0x58, 0x02})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
	assert.Equal(t, IndoorBikeData{}, d)
}

func TestFitnessMachineControlEncoders(t *testing.T) {
	assert.Equal(t, []byte{0x00}, EncodeFTMSRequestControl())
	assert.Equal(t, []byte{0x01}, EncodeFTMSReset())
	assert.Equal(t, []byte{0x07}, EncodeFTMSStartOrResume())
	assert.Equal(t, []byte{0x08, 0x02}, EncodeFTMSStopOrPause(FTMSPause))
	assert.Equal(t, []byte{0x05, 0xFA, 0x00}, EncodeFTMSTargetPower(250))

	data, err := EncodeFTMSTargetResistance(12.5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x04, 125}, data)
	_, err = EncodeFTMSTargetResistance(30)
	assert.ErrorIs(t, err, ErrFTMSParameter)

	data, err = EncodeFTMSTargetSpeed(25)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x02, 0xC4, 0x09}, data)

	data, err = EncodeFTMSTargetInclination(-2.5)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x03, 0xE7, 0xFF}, data)

	data, err = EncodeFTMSSimulation(IndoorBikeSimulation{
		WindSpeedMps:            1.5,
		GradePercent:            4,
		RollingResistanceCoeff:  0.004,
		WindResistanceCoeffKgPM: 0.51,
	})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x11, 0xDC, 0x05, 0x90, 0x01, 40, 51}, data)

	_, err = EncodeFTMSSimulation(IndoorBikeSimulation{GradePercent: 400})
	assert.ErrorIs(t, err, ErrFTMSParameter)
}

func TestDecodeFitnessMachineResponse(t *testing.T) {
	r, err := DecodeFitnessMachineResponse([]byte{0x80, 0x05, 0x01})
	require.NoError(t, err)
	assert.Equal(t, FTMSOpSetTargetPower, r.RequestOpCode)
	assert.True(t, r.Succeeded())
	assert.Equal(t, "Set Target Power", r.RequestOpCode.String())

	r, err = DecodeFitnessMachineResponse([]byte{0x80, 0x00, 0x05})
	require.NoError(t, err)
	assert.Equal(t, FTMSResultControlNotPermitted, r.Result)
	assert.Equal(t, "Control Not Permitted", r.Result.String())
	assert.Equal(t, "Result 0x09", FTMSResult(9).String())

	_, err = DecodeFitnessMachineResponse([]byte{0x05, 0x01, 0x01})
	assert.ErrorIs(t, err, codec.ErrMalformed)

	_, err = DecodeFitnessMachineResponse([]byte{0x80, 0x05})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestDecodeFitnessMachineStatus(t *testing.T) {
	tests := []struct {
		name  string
		data  []byte
		code  FTMSStatusCode
		value codec.Optional[float64]
	}{
		{name: "reset", data: []byte{0x01}, code: FTMSStatusReset},
		{name: "started", data: []byte{0x04}, code: FTMSStatusStartedOrResumed},
		{name: "target speed", data: []byte{0x05, 0xC4, 0x09}, code: FTMSStatusTargetSpeedChanged, value: codec.Some(25.0)},
		{name: "negative incline", data: []byte{0x06, 0xE7, 0xFF}, code: FTMSStatusTargetInclineChanged, value: codec.Some(-2.5)},
		{name: "resistance", data: []byte{0x07, 125}, code: FTMSStatusTargetResistanceChanged, value: codec.Some(12.5)},
		{name: "power", data: []byte{0x08, 0xFA, 0x00}, code: FTMSStatusTargetPowerChanged, value: codec.Some(250.0)},
		{name: "heart rate", data: []byte{0x09, 140}, code: FTMSStatusTargetHeartRateChanged, value: codec.Some(140.0)},
		{name: "distance", data: []byte{0x0D, 0x39, 0x30, 0x00}, code: FTMSStatusTargetedDistanceChanged, value: codec.Some(12345.0)},
		{name: "wheel circumference", data: []byte{0x13, 0x7C, 0x54}, code: FTMSStatusWheelCircumferenceChange, value: codec.Some(2162.8)},
		{name: "cadence, trailing bytes ignored", data: []byte{0x15, 0xB4, 0x00, 0xFF}, code: FTMSStatusTargetedCadenceChanged, value: codec.Some(90.0)},
		{name: "control lost", data: []byte{0xFF}, code: FTMSStatusControlPermissionLost},
		{name: "reserved", data: []byte{0x42, 0x01, 0x02}, code: FTMSStatusUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := DecodeFitnessMachineStatus(tt.data)
			require.NoError(t, err)
			assert.Equal(t, tt.code, s.Code)
			assert.Equal(t, tt.data[0], s.Raw)
			v, ok := s.Value.Get()
			assert.Equal(t, tt.value.IsSet(), ok)
			assert.InDelta(t, tt.value.OrElse(0), v, 1e-9)
		})
	}
}

func TestDecodeFitnessMachineStatus_Parameters(t *testing.T) {
	s, err := DecodeFitnessMachineStatus([]byte{0x02, 0x02})
	require.NoError(t, err)
	assert.Equal(t, codec.Some(FTMSPause), s.StopMode)
	assert.False(t, s.Value.IsSet())

	s, err = DecodeFitnessMachineStatus([]byte{0x10, 0x3C, 0x00, 0x78, 0x00, 0xB4, 0x00})
	require.NoError(t, err)
	assert.Equal(t, codec.Some([]uint16{60, 120, 180}), s.ZoneSeconds)

	sim, err := EncodeFTMSSimulation(IndoorBikeSimulation{WindSpeedMps: -1.5, GradePercent: 4, RollingResistanceCoeff: 0.004, WindResistanceCoeffKgPM: 0.51})
	require.NoError(t, err)
	sim[0] = byte(FTMSStatusSimulationChanged)
	s, err = DecodeFitnessMachineStatus(sim)
	require.NoError(t, err)
	got, ok := s.Simulation.Get()
	require.True(t, ok)
	assert.InDelta(t, -1.5, got.WindSpeedMps, 1e-9)
	assert.InDelta(t, 4.0, got.GradePercent, 1e-9)
	assert.InDelta(t, 0.004, got.RollingResistanceCoeff, 1e-9)
	assert.InDelta(t, 0.51, got.WindResistanceCoeffKgPM, 1e-9)

	s, err = DecodeFitnessMachineStatus([]byte{0x14, 0x04})
	require.NoError(t, err)
	assert.Equal(t, codec.Some(SpinDownStopPedaling), s.SpinDown)
	s, err = DecodeFitnessMachineStatus([]byte{0x14, 0x09})
	require.NoError(t, err)
	assert.Equal(t, codec.Some(SpinDownUnknown), s.SpinDown)
	assert.Equal(t, "unknown", SpinDownUnknown.String())
}

func TestDecodeFitnessMachineStatus_Short(t *testing.T) {
	for _, data := range [][]byte{
		nil,
		{0x02},
		{0x05, 0xC4},
		{0x0D, 0x39, 0x30},
		{0x11, 0x3C, 0x00, 0x78, 0x00},
		{0x12, 0x00, 0x00, 0x90, 0x01, 40},
		{0x14},
	} {
		s, err := DecodeFitnessMachineStatus(data)
		assert.ErrorIs(t, err, codec.ErrInsufficientData, "% X", data)
		assert.Equal(t, FitnessMachineStatus{}, s)
	}
}

func TestFTMSStatusCode_String(t *testing.T) {
	assert.Equal(t, "target power changed", FTMSStatusTargetPowerChanged.String())
	assert.Equal(t, "W", FTMSStatusTargetPowerChanged.Unit())
	assert.Equal(t, "", FTMSStatusReset.Unit())
	assert.Equal(t, FTMSStatusUnknown, ParseFTMSStatusCode(0x16))
	assert.Equal(t, "unknown", FTMSStatusUnknown.String())

	s, err := DecodeFitnessMachineStatus([]byte{0x08, 0xB4, 0x00})
	require.NoError(t, err)
	assert.Equal(t, "target power changed: 180 W", s.String())
}

func TestDecodeTrainingStatus(t *testing.T) {
	ts, err := DecodeTrainingStatus([]byte{0x00, 0x0C})
	require.NoError(t, err)
	assert.Equal(t, TrainingWattControl, ts.Status)
	assert.False(t, ts.Text.IsSet())
	assert.False(t, ts.Extended)

	ts, err = DecodeTrainingStatus(append([]byte{0x03, 0x02}, "warm up 10'"...))
	require.NoError(t, err)
	assert.Equal(t, TrainingWarmingUp, ts.Status)
	assert.Equal(t, "warming up", ts.Status.String())
	assert.Equal(t, codec.Some("warm up 10'"), ts.Text)
	assert.True(t, ts.Extended)

	ts, err = DecodeTrainingStatus([]byte{0x01, 0x10})
	require.NoError(t, err)
	assert.Equal(t, TrainingUnknown, ts.Status)
	assert.Equal(t, codec.Some(""), ts.Text)

	_, err = DecodeTrainingStatus([]byte{0x01})
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
	_, err = DecodeTrainingStatus(nil)
	assert.ErrorIs(t, err, codec.ErrInsufficientData)
}

func TestFitnessMachineTargetedEncoders(t *testing.T) {
	assert.Equal(t, []byte{0x06, 150}, EncodeFTMSTargetHeartRate(150))
	assert.Equal(t, []byte{0x09, 0xF4, 0x01}, EncodeFTMSTargetedEnergy(500))
	assert.Equal(t, []byte{0x0A, 0x10, 0x27}, EncodeFTMSTargetedSteps(10000))
	assert.Equal(t, []byte{0x0B, 0x88, 0x13}, EncodeFTMSTargetedStrides(5000))
	assert.Equal(t, []byte{0x0D, 0x10, 0x0E}, EncodeFTMSTargetedTime(3600))
	assert.Equal(t, []byte{0x13, 0x01}, EncodeFTMSSpinDownControl(FTMSSpinDownStart))
	assert.Equal(t, "Spin Down Control", FTMSOpSpinDownControl.String())

	data, err := EncodeFTMSTargetedDistance(40000)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0C, 0x40, 0x9C, 0x00}, data)
	_, err = EncodeFTMSTargetedDistance(0x1000000)
	assert.ErrorIs(t, err, ErrFTMSParameter)

	data, err = EncodeFTMSTargetedZoneTime([]uint16{60, 120})
	require.NoError(t, err)
	assert.Equal(t, []byte{0x0E, 0x3C, 0x00, 0x78, 0x00}, data)
	data, err = EncodeFTMSTargetedZoneTime([]uint16{1, 2, 3, 4, 5})
	require.NoError(t, err)
	assert.Equal(t, byte(FTMSOpSetFiveZoneTime), data[0])
	assert.Len(t, data, 11)
	_, err = EncodeFTMSTargetedZoneTime([]uint16{1, 2, 3, 4})
	assert.ErrorIs(t, err, ErrFTMSParameter)

	data, err = EncodeFTMSWheelCircumference(2105)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x12, 0x3A, 0x52}, data)
	_, err = EncodeFTMSWheelCircumference(-1)
	assert.ErrorIs(t, err, ErrFTMSParameter)

	data, err = EncodeFTMSTargetedCadence(90)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x14, 0xB4, 0x00}, data)
	_, err = EncodeFTMSTargetedCadence(40000)
	assert.ErrorIs(t, err, ErrFTMSParameter)
}

// flagField pairs a flag bit with the bytes it adds to a frame and a check
// that the decoded value reports the field present
type flagField[T any] struct {
	bit     uint
	size    int
	present func(T) bool
}

// buildFrame appends size filler bytes for every set bit, in bit order
func buildFrame[T any](head *codec.Writer, flags uint32, fields []flagField[T]) []byte {
	for _, f := range fields {
		if flags&(1<<f.bit) != 0 {
			head.Fill(0x01, f.size)
		}
	}
	return head.Bytes()
}

func assertPresence[T any](t *testing.T, v T, flags uint32, fields []flagField[T]) {
	t.Helper()
	for _, f := range fields {
		assert.Equal(t, flags&(1<<f.bit) != 0, f.present(v), "flags %#04x bit %d", flags, f.bit)
	}
}

func TestDecodeCyclingPowerMeasurement_EveryFlagCombination(t *testing.T) {
	fields := []flagField[CyclingPowerMeasurement]{
		{0, 1, func(m CyclingPowerMeasurement) bool { return m.PedalPowerBalance.IsSet() }},
		{1, 0, func(m CyclingPowerMeasurement) bool { return m.PedalPowerBalanceLeft }},
		{2, 2, func(m CyclingPowerMeasurement) bool { return m.AccumulatedTorque.IsSet() }},
		{3, 0, func(m CyclingPowerMeasurement) bool { return m.AccumulatedTorqueSource == TorqueSourceCrank }},
		{4, 6, func(m CyclingPowerMeasurement) bool { return m.WheelRevolutions.IsSet() }},
		{5, 4, func(m CyclingPowerMeasurement) bool { return m.CrankRevolutions.IsSet() }},
		{6, 4, func(m CyclingPowerMeasurement) bool { return m.ExtremeForce.IsSet() }},
		{7, 4, func(m CyclingPowerMeasurement) bool { return m.ExtremeTorque.IsSet() }},
		{8, 3, func(m CyclingPowerMeasurement) bool { return m.ExtremeAngles.IsSet() }},
		{9, 2, func(m CyclingPowerMeasurement) bool { return m.TopDeadSpotAngle.IsSet() }},
		{10, 2, func(m CyclingPowerMeasurement) bool { return m.BottomDeadSpotAngle.IsSet() }},
		{11, 2, func(m CyclingPowerMeasurement) bool { return m.AccumulatedEnergy.IsSet() }},
		{12, 0, func(m CyclingPowerMeasurement) bool { return m.OffsetCompensationIndicator }},
	}
	for flags := uint32(0); flags < 1<<13; flags++ {
		if flags&(1<<6) != 0 && flags&(1<<7) != 0 {
			continue
		}
		data := buildFrame(codec.NewWriter(32).PutUint16(uint16(flags)).PutInt16(150), flags, fields)

		m, err := DecodeCyclingPowerMeasurement(data)
		require.NoError(t, err, "flags %#04x", flags)
		assert.Equal(t, int16(150), m.InstantaneousPower)
		assertPresence(t, m, flags, fields)

		_, err = DecodeCyclingPowerMeasurement(data[:len(data)-1])
		require.ErrorIs(t, err, codec.ErrInsufficientData, "flags %#04x", flags)
	}
}

func TestDecodeIndoorBikeData_EveryFlagCombination(t *testing.T) {
	fields := []flagField[IndoorBikeData]{
		{1, 2, func(d IndoorBikeData) bool { return d.AverageSpeedKmh.IsSet() }},
		{2, 2, func(d IndoorBikeData) bool { return d.InstantaneousCadenceRpm.IsSet() }},
		{3, 2, func(d IndoorBikeData) bool { return d.AverageCadenceRpm.IsSet() }},
		{4, 3, func(d IndoorBikeData) bool { return d.TotalDistanceMeters.IsSet() }},
		{5, 2, func(d IndoorBikeData) bool { return d.ResistanceLevel.IsSet() }},
		{6, 2, func(d IndoorBikeData) bool { return d.InstantaneousPowerWatts.IsSet() }},
		{7, 2, func(d IndoorBikeData) bool { return d.AveragePowerWatts.IsSet() }},
		{8, 5, func(d IndoorBikeData) bool { return d.ExpendedEnergy.IsSet() }},
		{9, 1, func(d IndoorBikeData) bool { return d.HeartRateBpm.IsSet() }},
		{10, 1, func(d IndoorBikeData) bool { return d.MetabolicEquivalent.IsSet() }},
		{11, 2, func(d IndoorBikeData) bool { return d.ElapsedTimeSeconds.IsSet() }},
		{12, 2, func(d IndoorBikeData) bool { return d.RemainingTimeSeconds.IsSet() }},
	}
	for flags := uint32(0); flags < 1<<13; flags++ {
		head := codec.NewWriter(32).PutUint16(uint16(flags))
		speed := flags&1 == 0
		if speed {
			head.PutUint16(2500)
		}
		data := buildFrame(head, flags, fields)

		d, err := DecodeIndoorBikeData(data)
		require.NoError(t, err, "flags %#04x", flags)
		assert.Equal(t, speed, d.InstantaneousSpeedKmh.IsSet(), "flags %#04x", flags)
		assertPresence(t, d, flags, fields)

		_, err = DecodeIndoorBikeData(data[:len(data)-1])
		require.ErrorIs(t, err, codec.ErrInsufficientData, "flags %#04x", flags)
	}
}

func TestDecodeCSCMeasurement_EveryFlagCombination(t *testing.T) {
	fields := []flagField[CSCMeasurement]{
		{0, 6, func(m CSCMeasurement) bool { return m.WheelRevolutions.IsSet() }},
		{1, 4, func(m CSCMeasurement) bool { return m.CrankRevolutions.IsSet() }},
	}
	for flags := uint32(0); flags < 1<<2; flags++ {
		data := buildFrame(codec.NewWriter(11).PutUint8(uint8(flags)), flags, fields)

		m, err := DecodeCSCMeasurement(data)
		require.NoError(t, err, "flags %#02x", flags)
		assertPresence(t, m, flags, fields)

		_, err = DecodeCSCMeasurement(data[:len(data)-1])
		require.ErrorIs(t, err, codec.ErrInsufficientData, "flags %#02x", flags)
	}
}

func TestDecodeHeartRateMeasurement_EveryFlagCombination(t *testing.T) {
	fields := []flagField[HeartRateMeasurement]{
		{0, 1, func(m HeartRateMeasurement) bool { return m.BPM > 0xFF }},
		{2, 0, func(m HeartRateMeasurement) bool { return m.SensorContact.IsSet() }},
		{3, 2, func(m HeartRateMeasurement) bool { return m.EnergyExpendedKJ.IsSet() }},
		{4, 4, func(m HeartRateMeasurement) bool { return m.RRIntervals.IsSet() }},
	}
	for flags := uint32(0); flags < 1<<5; flags++ {
		// 0x0101 as uint16, 0x01 as uint8; fill adds the second byte
		data := buildFrame(codec.NewWriter(9).PutUint8(uint8(flags)).PutUint8(0x01), flags, fields)

		m, err := DecodeHeartRateMeasurement(data)
		require.NoError(t, err, "flags %#02x", flags)
		assertPresence(t, m, flags, fields)
		if contact, ok := m.SensorContact.Get(); ok {
			assert.Equal(t, flags&(1<<1) != 0, contact)
		}
		if rr, ok := m.RRIntervals.Get(); ok {
			assert.Len(t, rr, 2)
		}

		_, err = DecodeHeartRateMeasurement(data[:len(data)-1])
		if flags&(1<<4) != 0 {
			// a cut RR interval leaves an odd trailing byte
			require.ErrorIs(t, err, codec.ErrNonIntegralArray, "flags %#02x", flags)
		} else {
			require.ErrorIs(t, err, codec.ErrInsufficientData, "flags %#02x", flags)
		}
	}
}
