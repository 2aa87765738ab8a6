package gatttest

import (
	"context"
	"sync"
	"time"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// SimulatedRider holds the values a Simulator reports
type SimulatedRider struct {
	HeartRate  uint8
	PowerWatts int16
	CadenceRpm float64
	SpeedKmh   float64
}

// Simulator produces measurement notifications on a MockTransport
type Simulator struct {
	transport *MockTransport

	mu    sync.Mutex
	rider SimulatedRider

	// CSC cumulative values
	crankRevolutions uint16
	crankEventTime   uint16
	crankRemainder   float64
	lastUpdate       time.Time

	// FE-C page 25 counters
	fecEvents           uint8
	fecAccumulatedPower uint16
}

func NewSimulator(transport *MockTransport, rider SimulatedRider) *Simulator {
	if transport == nil {
		panic("Simulator: transport cannot be nil")
	}
	return &Simulator{transport: transport, rider: rider}
}

// Set replaces the simulated values
func (s *Simulator) Set(rider SimulatedRider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rider = rider
}

// Run sends one round of notifications every interval until ctx is done
func (s *Simulator) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			s.Tick(now)
		}
	}
}

// Tick sends one notification to every subscribed measurement characteristic.
// Characteristics nobody listens to are skipped.
func (s *Simulator) Tick(now time.Time) {
	s.mu.Lock()
	rider := s.rider
	crank := s.advanceCrank(now, rider.CadenceRpm)
	s.fecEvents++
	s.fecAccumulatedPower += uint16(rider.PowerWatts)
	trainer := s.trainerPage(rider)
	s.mu.Unlock()

	frames := []struct {
		ch   gatt.Characteristic
		data []byte
	}{
		{gatt.HeartRateMeasurement, []byte{0x00, rider.HeartRate}},
		{gatt.CyclingPowerMeasurement, codec.NewWriter(4).PutUint16(0).PutInt16(rider.PowerWatts).Bytes()},
		{gatt.CSCMeasurement, codec.NewWriter(5).PutUint8(0x02).PutUint16(crank.CumulativeRevolutions).PutUint16(crank.LastEventTime).Bytes()},
		{gatt.IndoorBikeData, codec.NewWriter(8).
			PutUint16(0x0044). // speed, cadence and power present
			PutUint16(uint16(rider.SpeedKmh * 100)).
			PutUint16(uint16(rider.CadenceRpm * 2)).
			PutInt16(rider.PowerWatts).
			Bytes()},
		{gatt.TacxFECNotify, ANTMessage(generalPage(rider))},
		{gatt.TacxFECNotify, ANTMessage(trainer)},
	}
	for _, f := range frames {
		if s.transport.IsSubscribed(f.ch) {
			_ = s.transport.Trigger(f.ch, f.data)
		}
	}
}

type crankSample struct {
	CumulativeRevolutions uint16
	LastEventTime         uint16
}

// advanceCrank accumulates whole crank revolutions since the last tick.
// Event time is in 1/1024 s and wraps like a real sensor.
func (s *Simulator) advanceCrank(now time.Time, rpm float64) crankSample {
	if s.lastUpdate.IsZero() {
		s.lastUpdate = now
	}
	elapsed := now.Sub(s.lastUpdate).Seconds()
	if rpm > 0 && elapsed > 0 {
		revs := rpm/60*elapsed + s.crankRemainder
		whole := uint16(revs)
		s.crankRemainder = revs - float64(whole)
		s.crankRevolutions += whole
		s.crankEventTime += uint16(elapsed * 1024)
	}
	s.lastUpdate = now
	return crankSample{CumulativeRevolutions: s.crankRevolutions, LastEventTime: s.crankEventTime}
}

// generalPage is FE-C page 16 for a trainer in use
func generalPage(rider SimulatedRider) [8]byte {
	speed := codec.NewWriter(2).PutUint16(uint16(rider.SpeedKmh / 3.6 * 1000)).Bytes()
	return [8]byte{16, 25, 0, 0, speed[0], speed[1], rider.HeartRate, 0x30}
}

// trainerPage is FE-C page 25. Callers hold s.mu.
func (s *Simulator) trainerPage(rider SimulatedRider) [8]byte {
	acc := codec.NewWriter(2).PutUint16(s.fecAccumulatedPower).Bytes()
	power := uint16(rider.PowerWatts) & 0xFFF
	return [8]byte{25, s.fecEvents, uint8(rider.CadenceRpm), acc[0], acc[1], uint8(power), uint8(power >> 8), 0x30}
}
