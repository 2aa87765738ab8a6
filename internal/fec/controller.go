package fec

import (
	"context"
	"log"
	"sync"

	"github.com/lowaak/smart-trainer/sensor-core/internal/codec"
	"github.com/lowaak/smart-trainer/sensor-core/internal/dispatch"
	"github.com/lowaak/smart-trainer/sensor-core/internal/events"
	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// State of the command exchange with the trainer
type State int

const (
	StateIdle State = iota
	StateCommandSent
)

func (s State) String() string {
	if s == StateCommandSent {
		return "command sent"
	}
	return "idle"
}

// Result is how an outstanding command ended. Err is set when the command was
// abandoned; otherwise Status carries the trainer's verdict.
type Result struct {
	Status CommandStatus
	Page   CommandStatusData
	Err    error
}

// Pending is a command waiting for its status page
type Pending struct {
	controller *Controller
	page       uint8
	// sequence number of the last status page seen before this command
	// went out, so a repeat of the same page is not mistaken for the answer
	seenSequence codec.Optional[uint8]
	done         chan Result
	once         sync.Once
}

// Done delivers exactly one Result
func (p *Pending) Done() <-chan Result {
	return p.done
}

// Page is the page number of the command
func (p *Pending) Page() uint8 {
	return p.page
}

// Abandon stops waiting. The controller goes back to Idle and Done yields
// ErrAbandoned. Abandoning a resolved command does nothing.
func (p *Pending) Abandon() {
	p.controller.release(p)
	p.resolve(Result{Err: ErrAbandoned})
}

// Wait blocks until the command resolves or ctx ends. When ctx ends first the
// command is abandoned and ctx.Err() returned.
func (p *Pending) Wait(ctx context.Context) (Result, error) {
	select {
	case r := <-p.done:
		return r, r.Err
	case <-ctx.Done():
		p.Abandon()
		return Result{}, ctx.Err()
	}
}

func (p *Pending) resolve(r Result) {
	p.once.Do(func() {
		p.done <- r
		close(p.done)
	})
}

// Controller drives one FE-C trainer connection. At most one command is in
// flight; its status page (71) moves the controller back to Idle.
type Controller struct {
	transport gatt.Transport
	registry  *dispatch.Registry
	logger    *log.Logger

	violations *events.Event[*ProtocolViolationError]

	mu           sync.Mutex
	state        State
	pending      *Pending
	sent         map[uint8]bool
	lastSequence codec.Optional[uint8]
	subscribed   bool
}

func NewController(transport gatt.Transport, registry *dispatch.Registry, logger *log.Logger) *Controller {
	if transport == nil {
		panic("Controller: transport cannot be nil")
	}
	if registry == nil {
		panic("Controller: registry cannot be nil")
	}
	if logger == nil {
		panic("Controller: logger cannot be nil")
	}
	return &Controller{
		transport:  transport,
		registry:   registry,
		logger:     logger,
		violations: events.NewEvent[*ProtocolViolationError](false),
		sent:       make(map[uint8]bool),
	}
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Outstanding returns the page number of the command in flight, if any
func (c *Controller) Outstanding() (uint8, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return 0, false
	}
	return c.pending.page, true
}

func (c *Controller) SetGeneralFEDataHandler(fn func(GeneralFEData)) {
	dispatch.Handle(c.registry, KindGeneralFEData, fn)
}

func (c *Controller) SetSpecificTrainerDataHandler(fn func(SpecificTrainerData)) {
	dispatch.Handle(c.registry, KindSpecificTrainerData, fn)
}

// SetCommandStatusHandler receives every page 71, including the ones that
// resolve a Pending
func (c *Controller) SetCommandStatusHandler(fn func(CommandStatusData)) {
	dispatch.Handle(c.registry, KindCommandStatus, fn)
}

func (c *Controller) SetUnknownPageHandler(fn func(UnknownPage)) {
	dispatch.Handle(c.registry, KindUnknownPage, fn)
}

// OnProtocolViolation registers a listener for status pages naming commands
// that were never sent. Returns a deregistration function.
func (c *Controller) OnProtocolViolation(fn func(*ProtocolViolationError)) func() {
	return c.violations.Listen(fn)
}

// EnableNotifications subscribes to the trainer's data pages
func (c *Controller) EnableNotifications() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.subscribed {
		return nil
	}
	if err := c.transport.Subscribe(gatt.TacxFECNotify, c.onFrame); err != nil {
		return err
	}
	c.subscribed = true
	c.logger.Printf("Controller: notifications enabled for %s", gatt.TacxFECNotify)
	return nil
}

func (c *Controller) DisableNotifications() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.subscribed {
		return nil
	}
	if err := c.transport.Unsubscribe(gatt.TacxFECNotify); err != nil {
		return err
	}
	c.subscribed = false
	return nil
}

// SendCommand validates and writes cmd. Out-of-range values fail before
// anything is written. While a command is outstanding it fails with
// ErrCommandOutstanding.
func (c *Controller) SendCommand(cmd Command) (*Pending, error) {
	page, err := EncodePage(cmd)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.state == StateCommandSent {
		outstanding := c.pending.page
		c.mu.Unlock()
		c.logger.Printf("Controller: page %d refused, page %d still outstanding", page.Number(), outstanding)
		return nil, ErrCommandOutstanding
	}
	p := &Pending{
		controller:   c,
		page:         page.Number(),
		seenSequence: c.lastSequence,
		done:         make(chan Result, 1),
	}
	c.pending = p
	c.state = StateCommandSent
	c.sent[p.page] = true
	c.mu.Unlock()

	// The status page may arrive before Write returns
	if err := c.write(page); err != nil {
		c.release(p)
		return nil, err
	}
	return p, nil
}

// RequestDataPage asks the trainer to send page. The command state is left
// alone, so it can be used to poll page 71 while a command is outstanding.
func (c *Controller) RequestDataPage(page uint8) error {
	p, err := EncodePage(NewRequestDataPage(page))
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.sent[PageRequestData] = true
	c.mu.Unlock()
	return c.write(p)
}

func (c *Controller) write(p Page) error {
	msg := EncodeMessage(p)
	if err := c.transport.Write(gatt.TacxFECWrite, msg); err != nil {
		return err
	}
	c.logger.Printf("Controller: wrote page %d (% X)", p.Number(), msg)
	return nil
}

// release returns to Idle if p is still the command in flight
func (c *Controller) release(p *Pending) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == p {
		c.pending = nil
		c.state = StateIdle
	}
}

func (c *Controller) onFrame(frame gatt.RawFrame) {
	if err := c.HandleFrame(frame); err != nil {
		c.logger.Printf("Controller: frame % X: %v", frame.Data, err)
	}
}

// HandleFrame unwraps an ANT message from the notify characteristic, updates
// the command state for status pages and dispatches the page. A status page
// naming a command never sent on this connection returns a
// *ProtocolViolationError after the page has been dispatched.
func (c *Controller) HandleFrame(frame gatt.RawFrame) error {
	msg, err := DecodeMessage(frame.Data)
	if err != nil {
		return err
	}
	if len(msg.Payload) == 0 {
		return codec.NewDecodeError("page number", 4, codec.ErrInsufficientData)
	}
	number := msg.Payload[0]

	var violation *ProtocolViolationError
	if number == PageCommandStatus {
		status, err := DecodeCommandStatusData(msg.Payload)
		if err != nil {
			return err
		}
		violation = c.handleStatus(status)
	}

	if err := c.registry.Dispatch(frame.WithPage(int(number), msg.Payload)); err != nil {
		return err
	}
	if violation != nil {
		c.violations.Notify(violation)
		return violation
	}
	return nil
}

func (c *Controller) handleStatus(status CommandStatusData) *ProtocolViolationError {
	c.mu.Lock()
	prevSequence := c.lastSequence
	c.lastSequence = codec.Some(status.Sequence)

	last, ok := status.LastCommand.Get()
	if !ok {
		c.mu.Unlock()
		return nil
	}

	if p := c.pending; p != nil && p.page == last && !sameSequence(p.seenSequence, status.Sequence) {
		if status.Status == CommandPending {
			c.mu.Unlock()
			return nil
		}
		c.pending = nil
		c.state = StateIdle
		c.mu.Unlock()
		c.logger.Printf("Controller: page %d finished with status %s", last, status.Status)
		p.resolve(Result{Status: status.Status, Page: status})
		return nil
	}

	if !c.sent[last] {
		v := &ProtocolViolationError{LastCommand: last, Reason: "command never sent on this connection"}
		if c.pending != nil {
			v.Outstanding = codec.Some(c.pending.page)
		}
		c.mu.Unlock()
		return v
	}
	c.mu.Unlock()

	if !sameSequence(prevSequence, status.Sequence) {
		c.logger.Printf("Controller: stale status for page %d (%s)", last, status.Status)
	}
	return nil
}

func sameSequence(seen codec.Optional[uint8], seq uint8) bool {
	v, ok := seen.Get()
	return ok && v == seq
}
