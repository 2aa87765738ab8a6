package gatttest

import (
	"sync"

	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// FECTrainer plays the trainer side of the FE-C command exchange: every
// control page written is acknowledged with a command status page (71).
type FECTrainer struct {
	mu        sync.Mutex
	sequence  uint8
	last      uint8
	status    uint8
	data      [4]byte
	reply     uint8
	autoReply bool
}

func NewFECTrainer() *FECTrainer {
	return &FECTrainer{last: 0xFF, status: 0xFF, autoReply: true}
}

// SetReply sets the status given to later commands (0 pass, 1 fail, ...)
// and whether a status page is pushed right after each write. Without
// auto reply the status only goes out when page 71 is requested or Push is
// called.
func (f *FECTrainer) SetReply(status uint8, autoReply bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reply = status
	f.autoReply = autoReply
}

// Respond is a WriteHook
func (f *FECTrainer) Respond(m *MockTransport, ch gatt.Characteristic, data []byte) {
	if ch.UUID != gatt.CharTacxFECWrite || len(data) < 13 {
		return
	}
	page := data[4]

	f.mu.Lock()
	if page == 70 {
		f.mu.Unlock()
		if data[10] == 71 {
			f.Push(m)
		}
		return
	}
	f.sequence++
	f.last = page
	f.status = f.reply
	copy(f.data[:], data[8:12])
	auto := f.autoReply
	f.mu.Unlock()

	if auto {
		f.Push(m)
	}
}

// Push sends the current command status page
func (f *FECTrainer) Push(m *MockTransport) {
	f.mu.Lock()
	page := [8]byte{71, f.last, f.sequence, f.status, f.data[0], f.data[1], f.data[2], f.data[3]}
	f.mu.Unlock()
	_ = m.Trigger(gatt.TacxFECNotify, ANTMessage(page))
}

// ANTMessage wraps a page the way a trainer broadcasts it
func ANTMessage(page [8]byte) []byte {
	msg := append([]byte{0xA4, 0x09, 0x4E, 0x05}, page[:]...)
	var sum byte
	for _, b := range msg {
		sum ^= b
	}
	return append(msg, sum)
}
