package sensors

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// RegisterRoutes installs a decoder for every characteristic this package
// understands. Page-addressed trainer frames are routed by the fec package.
func RegisterRoutes(reg *dispatch.Registry) {
	reg.Route(dispatch.ForCharacteristic(gatt.CharHeartRateMeasurement), KindHeartRate, dispatch.Decode(DecodeHeartRateMeasurement))
	reg.Route(dispatch.ForCharacteristic(gatt.CharCyclingPowerMeasurement), KindCyclingPower, dispatch.Decode(DecodeCyclingPowerMeasurement))
	reg.Route(dispatch.ForCharacteristic(gatt.CharCyclingPowerVector), KindCyclingPowerVector, dispatch.Decode(DecodeCyclingPowerVector))
	reg.Route(dispatch.ForCharacteristic(gatt.CharCSCMeasurement), KindCSC, dispatch.Decode(DecodeCSCMeasurement))
	reg.Route(dispatch.ForCharacteristic(gatt.CharSteeringAngle), KindSteering, dispatch.Decode(DecodeSteeringMeasurement))
	reg.Route(dispatch.ForCharacteristic(gatt.CharSteeringChallenge), KindSteeringChallenge, dispatch.Decode(DecodeSteeringChallenge))
	reg.Route(dispatch.ForCharacteristic(gatt.CharRadarMeasurement), KindRadar, dispatch.Decode(DecodeRadarMeasurement))
	reg.Route(dispatch.ForCharacteristic(gatt.CharIndoorBikeData), KindIndoorBikeData, dispatch.Decode(DecodeIndoorBikeData))
	reg.Route(dispatch.ForCharacteristic(gatt.CharFitnessMachineControl), KindFitnessMachineResponse, dispatch.Decode(DecodeFitnessMachineResponse))
	reg.Route(dispatch.ForCharacteristic(gatt.CharFitnessMachineStatus), KindFitnessMachineStatus, dispatch.Decode(DecodeFitnessMachineStatus))
	reg.Route(dispatch.ForCharacteristic(gatt.CharFitnessMachineTrainStatus), KindTrainingStatus, dispatch.Decode(DecodeTrainingStatus))
	reg.Route(dispatch.ForCharacteristic(gatt.CharBatteryLevel), KindBatteryLevel, dispatch.Decode(DecodeBatteryLevel))

	reg.Route(dispatch.ForCharacteristic(gatt.CharCyclingPowerFeature), KindCyclingPowerFeature, dispatch.Decode(DecodeCyclingPowerFeature))
	reg.Route(dispatch.ForCharacteristic(gatt.CharSensorLocation), KindSensorLocation, dispatch.Decode(DecodeSensorLocation))
	reg.Route(dispatch.ForCharacteristic(gatt.CharCSCFeature), KindCSCFeature, dispatch.Decode(DecodeCSCFeature))
	reg.Route(dispatch.ForCharacteristic(gatt.CharFitnessMachineFeature), KindFitnessMachineFeature, dispatch.Decode(DecodeFitnessMachineFeature))
	reg.Route(dispatch.ForCharacteristic(gatt.CharSupportedPowerRange), KindSupportedPowerRange, dispatch.Decode(DecodeSupportedPowerRange))
	reg.Route(dispatch.ForCharacteristic(gatt.CharSupportedResistanceRange), KindSupportedResistanceRange, dispatch.Decode(DecodeSupportedResistanceRange))
}

// service is the plumbing shared by every sensor: it subscribes the
// registry to a set of characteristics and forwards writes and reads
// to the transport.
type service struct {
	name      string
	transport gatt.Transport
	registry  *dispatch.Registry
	logger    *log.Logger
	streams   []gatt.Characteristic

	mu         sync.Mutex
	subscribed map[gatt.CharacteristicID]gatt.Characteristic
}

func newService(name string, transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger, streams ...gatt.Characteristic) *service {
	if transport == nil {
		panic(name + ": transport cannot be nil")
	}
	if registry == nil {
		panic(name + ": registry cannot be nil")
	}
	if logger == nil {
		panic(name + ": logger cannot be nil")
	}
	return &service{
		name:       name,
		transport:  transport,
		registry:   registry,
		logger:     logger,
		streams:    streams,
		subscribed: make(map[gatt.CharacteristicID]gatt.Characteristic),
	}
}

// subscribe routes notifications from ch through onFrame, or through the
// registry when onFrame is nil. Subscribing twice is a no-op.
func (s *service) subscribe(ch gatt.Characteristic, onFrame func(gatt.RawFrame)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribed[ch.ID]; ok {
		return nil
	}
	if onFrame == nil {
		onFrame = s.registry.FrameHandler()
	}
	if err := s.transport.Subscribe(ch, onFrame); err != nil {
		return err
	}
	s.subscribed[ch.ID] = ch
	s.logger.Printf("%s: subscribed to %s", s.name, ch)
	return nil
}

func (s *service) unsubscribe(ch gatt.Characteristic) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subscribed[ch.ID]; !ok {
		return nil
	}
	if err := s.transport.Unsubscribe(ch); err != nil {
		return err
	}
	delete(s.subscribed, ch.ID)
	s.logger.Printf("%s: unsubscribed from %s", s.name, ch)
	return nil
}

// EnableNotifications subscribes to the measurement characteristics of the sensor
func (s *service) EnableNotifications() error {
	for _, ch := range s.streams {
		if err := s.subscribe(ch, nil); err != nil {
			return err
		}
	}
	return nil
}

// DisableNotifications unsubscribes from every characteristic this sensor
// subscribed to. All unsubscribes are attempted; their errors are joined.
func (s *service) DisableNotifications() error {
	s.mu.Lock()
	chars := make([]gatt.Characteristic, 0, len(s.subscribed))
	for _, ch := range s.subscribed {
		chars = append(chars, ch)
	}
	s.mu.Unlock()

	var errs []error
	for _, ch := range chars {
		if err := s.unsubscribe(ch); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// IsSubscribed reports whether notifications from ch are currently routed
func (s *service) IsSubscribed(ch gatt.Characteristic) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.subscribed[ch.ID]
	return ok
}

func (s *service) write(ch gatt.Characteristic, data []byte) error {
	if err := s.transport.Write(ch, data); err != nil {
		return err
	}
	s.logger.Printf("%s: wrote % X to %s", s.name, data, ch)
	return nil
}

// readValue reads ch once and decodes it
func readValue[T any](s *service, ch gatt.Characteristic, decode func([]byte) (T, error)) (T, error) {
	frame, err := s.transport.ReadOnce(ch)
	if err != nil {
		var zero T
		return zero, err
	}
	v, err := decode(frame.Data)
	if err != nil {
		var zero T
		return zero, fmt.Errorf("%s: read %s: %w", s.name, ch, err)
	}
	return v, nil
}
