package fec

import (
	"bytes"
	"context"
	"errors"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt/gatttest"
)

func newTestController(t *testing.T) (*Controller, *gatttest.MockTransport, *dispatch.Registry) {
	t.Helper()
	logger := log.New(&bytes.Buffer{}, "", 0)
	transport := gatttest.NewMockTransport(logger)
	registry := dispatch.NewRegistry(logger)
	RegisterRoutes(registry)
	c := NewController(transport, registry, logger)
	require.NoError(t, c.EnableNotifications())
	return c, transport, registry
}

func statusFrame(last, seq uint8, status CommandStatus) []byte {
	return gatttest.ANTMessage([8]byte{PageCommandStatus, last, seq, uint8(status), 0xFF, 0xFF, 0xFF, 0xFF})
}

func notifyFrame(data []byte) gatt.RawFrame {
	return gatt.NewFrame(gatt.CharTacxFECNotify, data)
}

func receive(t *testing.T, p *Pending) Result {
	t.Helper()
	select {
	case r := <-p.Done():
		return r
	case <-time.After(time.Second):
		t.Fatal("command never resolved")
		return Result{}
	}
}

func assertWaiting(t *testing.T, p *Pending) {
	t.Helper()
	select {
	case r := <-p.Done():
		t.Fatalf("command resolved early: %+v", r)
	default:
	}
}

func TestNewController_PanicsOnNil(t *testing.T) {
	logger := log.New(&bytes.Buffer{}, "", 0)
	transport := gatttest.NewMockTransport(logger)
	registry := dispatch.NewRegistry(logger)
	assert.PanicsWithValue(t, "Controller: transport cannot be nil", func() { NewController(nil, registry, logger) })
	assert.PanicsWithValue(t, "Controller: registry cannot be nil", func() { NewController(transport, nil, logger) })
	assert.PanicsWithValue(t, "Controller: logger cannot be nil", func() { NewController(transport, registry, nil) })
}

func TestController_TargetPowerAcknowledged(t *testing.T) {
	c, transport, _ := newTestController(t)
	trainer := gatttest.NewFECTrainer()
	transport.OnWrite(trainer.Respond)

	var statuses []CommandStatusData
	c.SetCommandStatusHandler(func(s CommandStatusData) { statuses = append(statuses, s) })

	p, err := c.SendCommand(TargetPower{Watts: 250})
	require.NoError(t, err)
	assert.Equal(t, PageTargetPower, p.Page())

	r := receive(t, p)
	require.NoError(t, r.Err)
	assert.Equal(t, CommandPass, r.Status)
	assert.Equal(t, [4]byte{0xFF, 0xFF, 0xE8, 0x03}, r.Page.Data)
	assert.Equal(t, StateIdle, c.State())

	// the echoed bytes carry the 1000 units that were written
	echoed, err := DecodeCommandPage(Page{PageTargetPower, 0xFF, 0xFF, 0xFF, r.Page.Data[0], r.Page.Data[1], r.Page.Data[2], r.Page.Data[3]})
	require.NoError(t, err)
	assert.Equal(t, TargetPower{Watts: 250}, echoed)

	require.Len(t, statuses, 1)
	writes := transport.WritesTo(gatt.TacxFECWrite)
	require.Len(t, writes, 1)
	assert.Equal(t, []byte{0xE8, 0x03}, writes[0][10:12])
}

func TestController_SecondCommandWhileOutstanding(t *testing.T) {
	c, transport, _ := newTestController(t)

	p, err := c.SendCommand(TargetPower{Watts: 200})
	require.NoError(t, err)
	assert.Equal(t, StateCommandSent, c.State())

	_, err = c.SendCommand(BasicResistance{Percent: 10})
	assert.ErrorIs(t, err, ErrCommandOutstanding)
	assert.Len(t, transport.WritesTo(gatt.TacxFECWrite), 1, "nothing written for the refused command")

	page, ok := c.Outstanding()
	assert.True(t, ok)
	assert.Equal(t, PageTargetPower, page)

	p.Abandon()
	r := receive(t, p)
	assert.ErrorIs(t, r.Err, ErrAbandoned)
	assert.Equal(t, StateIdle, c.State())

	// abandoning twice is harmless
	p.Abandon()

	_, err = c.SendCommand(BasicResistance{Percent: 10})
	require.NoError(t, err)
}

func TestController_PendingStatusKeepsWaiting(t *testing.T) {
	c, transport, _ := newTestController(t)

	p, err := c.SendCommand(TrackResistance{GradePercent: 4})
	require.NoError(t, err)

	require.NoError(t, transport.Trigger(gatt.TacxFECNotify, statusFrame(PageTrackResistance, 1, CommandPending)))
	assertWaiting(t, p)
	assert.Equal(t, StateCommandSent, c.State())

	require.NoError(t, transport.Trigger(gatt.TacxFECNotify, statusFrame(PageTrackResistance, 1, CommandRejected)))
	r := receive(t, p)
	require.NoError(t, r.Err)
	assert.Equal(t, CommandRejected, r.Status)
	assert.Equal(t, StateIdle, c.State())
}

func TestController_NeverSentCommandIsViolation(t *testing.T) {
	c, _, _ := newTestController(t)

	var delivered int
	c.SetCommandStatusHandler(func(CommandStatusData) { delivered++ })
	var violations []*ProtocolViolationError
	c.OnProtocolViolation(func(v *ProtocolViolationError) { violations = append(violations, v) })

	p, err := c.SendCommand(TargetPower{Watts: 100})
	require.NoError(t, err)

	err = c.HandleFrame(notifyFrame(statusFrame(PageWindResistance, 1, CommandPass)))
	require.ErrorIs(t, err, ErrProtocolViolation)

	var pv *ProtocolViolationError
	require.ErrorAs(t, err, &pv)
	assert.Equal(t, PageWindResistance, pv.LastCommand)
	outstanding, ok := pv.Outstanding.Get()
	assert.True(t, ok)
	assert.Equal(t, PageTargetPower, outstanding)

	assert.Equal(t, 1, delivered)
	assert.Len(t, violations, 1)
	assertWaiting(t, p)
	assert.Equal(t, StateCommandSent, c.State())
}

func TestController_StaleStatusGoesToHandlerOnly(t *testing.T) {
	c, transport, _ := newTestController(t)
	trainer := gatttest.NewFECTrainer()
	transport.OnWrite(trainer.Respond)

	var delivered []CommandStatusData
	c.SetCommandStatusHandler(func(s CommandStatusData) { delivered = append(delivered, s) })

	first, err := c.SendCommand(TargetPower{Watts: 150})
	require.NoError(t, err)
	receive(t, first)

	trainer.SetReply(0, false)
	second, err := c.SendCommand(BasicResistance{Percent: 20})
	require.NoError(t, err)

	// a status for the earlier command arrives late
	require.NoError(t, c.HandleFrame(notifyFrame(statusFrame(PageTargetPower, 1, CommandPass))))
	assertWaiting(t, second)
	assert.Len(t, delivered, 2)

	require.NoError(t, c.RequestDataPage(PageCommandStatus))
	r := receive(t, second)
	assert.Equal(t, CommandPass, r.Status)
	assert.Equal(t, uint8(2), r.Page.Sequence)
}

func TestController_RepeatedPageNeedsNewSequence(t *testing.T) {
	c, transport, _ := newTestController(t)
	trainer := gatttest.NewFECTrainer()
	transport.OnWrite(trainer.Respond)

	first, err := c.SendCommand(TargetPower{Watts: 150})
	require.NoError(t, err)
	assert.Equal(t, uint8(1), receive(t, first).Page.Sequence)

	trainer.SetReply(0, false)
	second, err := c.SendCommand(TargetPower{Watts: 160})
	require.NoError(t, err)

	// same page number, old sequence: still the first command's status
	require.NoError(t, c.HandleFrame(notifyFrame(statusFrame(PageTargetPower, 1, CommandPass))))
	assertWaiting(t, second)

	trainer.Push(transport)
	assert.Equal(t, uint8(2), receive(t, second).Page.Sequence)
}

func TestController_RequestDataPageLeavesStateAlone(t *testing.T) {
	c, transport, _ := newTestController(t)

	require.NoError(t, c.RequestDataPage(PageGeneralFEData))
	assert.Equal(t, StateIdle, c.State())

	p, err := c.SendCommand(BasicResistance{Percent: 50})
	require.NoError(t, err)
	require.NoError(t, c.RequestDataPage(PageCommandStatus))
	assert.Equal(t, StateCommandSent, c.State())
	assertWaiting(t, p)

	writes := transport.WritesTo(gatt.TacxFECWrite)
	require.Len(t, writes, 3)
	assert.Equal(t, EncodeMessage(Page{70, 0xFF, 0xFF, 0xFF, 0xFF, 0x80, 16, 0x01}), writes[0])
	assert.Equal(t, uint8(71), writes[2][10])

	// trainers may report page 70 as the last command
	require.NoError(t, c.HandleFrame(notifyFrame(statusFrame(PageRequestData, 0, CommandPass))))
}

func TestController_WriteFailureLeavesIdle(t *testing.T) {
	c, transport, _ := newTestController(t)
	cause := errors.New("link lost")
	transport.FailOp("write", cause)

	_, err := c.SendCommand(TargetPower{Watts: 100})
	require.ErrorIs(t, err, cause)
	var te *gatt.TransportError
	assert.ErrorAs(t, err, &te)
	assert.Equal(t, StateIdle, c.State())
}

func TestController_OutOfRangeWritesNothing(t *testing.T) {
	c, transport, _ := newTestController(t)
	_, err := c.SendCommand(TargetPower{Watts: -5})
	assert.ErrorIs(t, err, ErrOutOfRange)
	assert.Empty(t, transport.WritesTo(gatt.TacxFECWrite))
	assert.Equal(t, StateIdle, c.State())
}

func TestPending_WaitTimesOut(t *testing.T) {
	c, _, _ := newTestController(t)
	p, err := c.SendCommand(UserConfiguration{UserWeightKg: 70, BicycleWeightKg: 9, WheelDiameterM: 0.7, GearRatio: 1})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	_, err = p.Wait(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StateIdle, c.State())
}

func TestController_DataPagesDispatched(t *testing.T) {
	c, transport, _ := newTestController(t)

	var general []GeneralFEData
	var trainer []SpecificTrainerData
	var unknown []UnknownPage
	c.SetGeneralFEDataHandler(func(p GeneralFEData) { general = append(general, p) })
	c.SetSpecificTrainerDataHandler(func(p SpecificTrainerData) { trainer = append(trainer, p) })
	c.SetUnknownPageHandler(func(p UnknownPage) { unknown = append(unknown, p) })

	require.NoError(t, transport.Trigger(gatt.TacxFECNotify, gatttest.ANTMessage([8]byte{0x10, 0x19, 0x28, 0x64, 0xE8, 0x03, 0x8C, 0x34})))
	require.NoError(t, transport.Trigger(gatt.TacxFECNotify, gatttest.ANTMessage([8]byte{0x19, 0x05, 0x5A, 0x10, 0x27, 0xFA, 0x20, 0x31})))
	require.NoError(t, transport.Trigger(gatt.TacxFECNotify, gatttest.ANTMessage([8]byte{0x50, 0xFF, 0xFF, 0x01, 0x59, 0x00, 0x05, 0x00})))

	require.Len(t, general, 1)
	assert.Equal(t, EquipmentTrainer, general[0].EquipmentType)
	require.Len(t, trainer, 1)
	assert.Equal(t, uint16(10000), trainer[0].AccumulatedPowerWatts)
	require.Len(t, unknown, 1)
	assert.Equal(t, uint8(0x50), unknown[0].Number)

	corrupt := gatttest.ANTMessage([8]byte{0x10, 0x19, 0x28, 0x64, 0xE8, 0x03, 0x8C, 0x34})
	corrupt[5] ^= 0xFF
	assert.Error(t, c.HandleFrame(notifyFrame(corrupt)))
	assert.Len(t, general, 1)

	require.NoError(t, c.DisableNotifications())
	assert.False(t, transport.IsSubscribed(gatt.TacxFECNotify))
}

func TestController_FullSession(t *testing.T) {
	c, transport, _ := newTestController(t)
	transport.OnWrite(gatttest.NewFECTrainer().Respond)

	ctx := context.Background()
	for _, cmd := range []Command{
		UserConfiguration{UserWeightKg: 72, BicycleWeightKg: 8, WheelDiameterM: 0.7, GearRatio: 2},
		TrackResistance{GradePercent: 3.5, RollingResistance: 0.004},
		WindResistance{CoefficientKgPerM: 0.51, DraftingFactor: 1},
		TargetPower{Watts: 220},
		NeoModes{Surface: RoadCobblesSoft, Intensity: 60},
	} {
		p, err := c.SendCommand(cmd)
		require.NoError(t, err)
		r, err := p.Wait(ctx)
		require.NoError(t, err)
		assert.Equal(t, CommandPass, r.Status, "page %d", cmd.PageNumber())
	}
	assert.Equal(t, StateIdle, c.State())
}
