package sensors

import (
	"sync"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
)

// WheelRevolutionData is a cumulative wheel count and the time of its last event.
// TimeBase is the event clock in ticks per second: 2048 for cycling power,
// 1024 for speed and cadence sensors.
type WheelRevolutionData struct {
	CumulativeRevolutions uint32
	LastEventTime         uint16
	TimeBase              uint16
}

func (w WheelRevolutionData) LastEventSeconds() float64 {
	return float64(w.LastEventTime) / float64(w.TimeBase)
}

// CrankRevolutionData is a cumulative crank count and the time of its last
// event in 1/1024 s
type CrankRevolutionData struct {
	CumulativeRevolutions uint16
	LastEventTime         uint16
}

func (c CrankRevolutionData) LastEventSeconds() float64 {
	return float64(c.LastEventTime) / 1024
}

func readWheelRevolutions(r *codec.Reader, timeBase uint16) (WheelRevolutionData, error) {
	revs, err := r.Uint32("cumulative wheel revolutions")
	if err != nil {
		return WheelRevolutionData{}, err
	}
	t, err := r.Uint16("last wheel event time")
	if err != nil {
		return WheelRevolutionData{}, err
	}
	return WheelRevolutionData{CumulativeRevolutions: revs, LastEventTime: t, TimeBase: timeBase}, nil
}

func readCrankRevolutions(r *codec.Reader) (CrankRevolutionData, error) {
	revs, err := r.Uint16("cumulative crank revolutions")
	if err != nil {
		return CrankRevolutionData{}, err
	}
	t, err := r.Uint16("last crank event time")
	if err != nil {
		return CrankRevolutionData{}, err
	}
	return CrankRevolutionData{CumulativeRevolutions: revs, LastEventTime: t}, nil
}

// maxPlausibleCadence filters out readings produced by sensor resets
const maxPlausibleCadence = 300.0

// CadenceCalculator derives cadence from consecutive crank revolution samples.
// It is safe for concurrent use.
type CadenceCalculator struct {
	mu      sync.Mutex
	last    CrankRevolutionData
	hasLast bool
}

// Update feeds the next sample. The result is absent for the first sample,
// when no time has elapsed, or when the value is implausible.
func (c *CadenceCalculator) Update(sample CrankRevolutionData) codec.Optional[float64] {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.hasLast {
		c.last = sample
		c.hasLast = true
		return codec.None[float64]()
	}

	// uint16 arithmetic handles counter rollover
	revDiff := sample.CumulativeRevolutions - c.last.CumulativeRevolutions
	timeDiff := sample.LastEventTime - c.last.LastEventTime
	c.last = sample

	if timeDiff == 0 {
		return codec.None[float64]()
	}

	rpm := float64(revDiff) * 60.0 * 1024.0 / float64(timeDiff)
	if rpm > maxPlausibleCadence {
		return codec.None[float64]()
	}
	return codec.Some(rpm)
}

// Reset forgets the previous sample
func (c *CadenceCalculator) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hasLast = false
}
