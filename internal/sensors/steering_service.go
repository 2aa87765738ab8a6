package sensors

import (
	"errors"
	"fmt"
	"io"
	"log"
	"sync"

	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/events"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
	"github.com/lowaak/smart-trainer/sensor-core/internal/go_func_utils"
)

// ChallengeResolver maps a Sterzo challenge to the two response bytes.
// The lookup table ships with vendor software and is not part of this module.
type ChallengeResolver func(challenge uint16) (code1, code2 byte, err error)

var ErrNoChallengeResolver = errors.New("no challenge resolver configured")

// TableResolver answers challenges from a lookup table holding two bytes
// per challenge value, the pair for challenge c at offset 2*c
func TableResolver(table io.ReaderAt) ChallengeResolver {
	return func(challenge uint16) (byte, byte, error) {
		var pair [2]byte
		n, err := table.ReadAt(pair[:], int64(challenge)*2)
		if n < len(pair) {
			if err == nil || errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			return 0, 0, fmt.Errorf("challenge 0x%04X: %w", challenge, err)
		}
		return pair[0], pair[1], nil
	}
}

// Steering is an Elite Sterzo. Angles only stream after the challenge
// handshake: request a challenge, answer it, then start streaming.
type Steering struct {
	*service
	resolver  ChallengeResolver
	activated events.Slot[error]

	mu        sync.Mutex
	challenge *SteeringChallenge
	active    bool
}

func NewSteering(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger, resolver ChallengeResolver) *Steering {
	return &Steering{
		service:  newService("Steering", transport, registry, logger, gatt.SteeringAngle),
		resolver: resolver,
	}
}

func (s *Steering) SetHandler(fn func(SteeringMeasurement)) {
	dispatch.Handle(s.registry, KindSteering, fn)
}

// SetActivationHandler is called once the handshake finishes, with nil on
// success
func (s *Steering) SetActivationHandler(fn func(error)) {
	s.activated.Set(fn)
}

// IsActive reports whether the handshake has completed
func (s *Steering) IsActive() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// EnableNotifications subscribes to the challenge and angle characteristics
// and asks the sensor for a challenge. The rest of the handshake runs when
// the challenge indication arrives.
func (s *Steering) EnableNotifications() error {
	if s.resolver == nil {
		return ErrNoChallengeResolver
	}
	if err := s.subscribe(gatt.SteeringChallenge, s.onChallenge); err != nil {
		return err
	}
	if err := s.subscribe(gatt.SteeringAngle, nil); err != nil {
		return err
	}
	return s.write(gatt.SteeringControlPoint, sterzoRequestChallenge)
}

// DisableNotifications stops the angle stream. The handshake has to be
// repeated after the next EnableNotifications.
func (s *Steering) DisableNotifications() error {
	s.mu.Lock()
	s.active = false
	s.challenge = nil
	s.mu.Unlock()
	return s.service.DisableNotifications()
}

func (s *Steering) onChallenge(frame gatt.RawFrame) {
	_ = s.registry.Dispatch(frame)

	challenge, err := DecodeSteeringChallenge(frame.Data)
	if err != nil {
		s.logger.Printf("Steering: bad challenge % X: %v", frame.Data, err)
		return
	}

	s.mu.Lock()
	if s.challenge != nil {
		s.mu.Unlock()
		return
	}
	s.challenge = &challenge
	s.mu.Unlock()

	s.logger.Printf("Steering: received challenge 0x%04X", challenge.Code)
	// No writes from inside a transport callback
	go_func_utils.SafeGoErr(s.logger, "Steering: handshake", func() error {
		return s.activate(challenge)
	}, s.finishActivation)
}

func (s *Steering) activate(challenge SteeringChallenge) error {
	code1, code2, err := s.resolver(challenge.Code)
	if err != nil {
		return fmt.Errorf("resolve challenge 0x%04X: %w", challenge.Code, err)
	}
	if err := s.write(gatt.SteeringControlPoint, EncodeSterzoChallengeResponse(code1, code2)); err != nil {
		return err
	}
	return s.write(gatt.SteeringControlPoint, sterzoStartStreaming)
}

func (s *Steering) finishActivation(err error) {
	s.mu.Lock()
	s.active = err == nil
	if err != nil {
		s.challenge = nil
	}
	s.mu.Unlock()
	s.activated.Deliver(err)
}

// Rizer is an Elite Rizer. It streams angles on the same characteristic as
// the Sterzo but needs no handshake.
type Rizer struct {
	*service
}

func NewRizer(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *Rizer {
	return &Rizer{newService("Rizer", transport, registry, logger, gatt.SteeringAngle)}
}

func (r *Rizer) SetHandler(fn func(SteeringMeasurement)) {
	dispatch.Handle(r.registry, KindSteering, fn)
}

// SetCenter makes the current handlebar position the zero angle
func (r *Rizer) SetCenter() error {
	return r.write(gatt.SteeringControlPoint, EncodeRizerSetCenter())
}

func (r *Rizer) SetTransmissionRate(rate RizerRate) error {
	data, err := EncodeRizerTransmissionRate(rate)
	if err != nil {
		return err
	}
	return r.write(gatt.SteeringControlPoint, data)
}
