package capture

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// Replayer is a gatt.Transport backed by a capture. Reads answer with the
// last captured value, writes are accepted and logged, and Run plays the
// captured notifications to whoever has subscribed.
type Replayer struct {
	records []Record
	reads   map[uuid.UUID][]byte
	logger  *log.Logger

	mu          sync.RWMutex
	subscribers map[uuid.UUID]func(gatt.RawFrame)
	writes      []Record
}

var _ gatt.Transport = (*Replayer)(nil)

func NewReplayer(records []Record, logger *log.Logger) *Replayer {
	if logger == nil {
		panic("Replayer: logger cannot be nil")
	}
	reads := make(map[uuid.UUID][]byte)
	for _, rec := range records {
		if rec.Op == OpRead {
			reads[rec.Characteristic] = rec.Data
		}
	}
	return &Replayer{
		records:     records,
		reads:       reads,
		logger:      logger,
		subscribers: make(map[uuid.UUID]func(gatt.RawFrame)),
	}
}

// LoadReplayer reads a whole capture file
func LoadReplayer(path string, logger *log.Logger) (*Replayer, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := NewReader(f).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	logger.Printf("Replayer: loaded %d records from %s", len(records), path)
	return NewReplayer(records, logger), nil
}

func describe(u uuid.UUID) string {
	if ch, ok := gatt.GetCharacteristicByUUID(u); ok {
		return ch.String()
	}
	return u.String()
}

// Run delivers the captured notifications in order. speed scales the
// captured gaps (1 is real time, 2 twice as fast); speed <= 0 replays
// without pauses. Returns the number of frames delivered.
func (p *Replayer) Run(ctx context.Context, speed float64) (int, error) {
	delivered := 0
	var prev time.Time
	for _, rec := range p.records {
		if rec.Op != OpNotify {
			continue
		}
		if speed > 0 && !prev.IsZero() {
			if gap := rec.Time.Sub(prev); gap > 0 {
				timer := time.NewTimer(time.Duration(float64(gap) / speed))
				select {
				case <-ctx.Done():
					timer.Stop()
					return delivered, ctx.Err()
				case <-timer.C:
				}
			}
		}
		prev = rec.Time
		if err := ctx.Err(); err != nil {
			return delivered, err
		}

		p.mu.RLock()
		onFrame, ok := p.subscribers[rec.Characteristic]
		p.mu.RUnlock()
		if !ok {
			continue
		}
		onFrame(gatt.NewFrame(rec.Characteristic, slices.Clone(rec.Data)))
		delivered++
	}
	p.logger.Printf("Replayer: delivered %d notifications", delivered)
	return delivered, nil
}

// Writes returns what was written during replay, oldest first
func (p *Replayer) Writes() []Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return slices.Clone(p.writes)
}

func (p *Replayer) Write(ch gatt.Characteristic, data []byte) error {
	p.mu.Lock()
	p.writes = append(p.writes, Record{Time: time.Now(), Op: OpWrite, Characteristic: ch.UUID, Data: slices.Clone(data)})
	p.mu.Unlock()
	p.logger.Printf("Replayer: write to %s % X ignored", ch, data)
	return nil
}

func (p *Replayer) Subscribe(ch gatt.Characteristic, onFrame func(gatt.RawFrame)) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.subscribers[ch.UUID] = onFrame
	return nil
}

func (p *Replayer) Unsubscribe(ch gatt.Characteristic) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.subscribers, ch.UUID)
	return nil
}

func (p *Replayer) ReadOnce(ch gatt.Characteristic) (gatt.RawFrame, error) {
	data, ok := p.reads[ch.UUID]
	if !ok {
		return gatt.RawFrame{}, &gatt.TransportError{Op: "read", Characteristic: ch, Err: fmt.Errorf("no captured value for %s", describe(ch.UUID))}
	}
	return gatt.NewFrame(ch.UUID, slices.Clone(data)), nil
}

// Dump writes a one-line summary of every record to w
func Dump(w io.Writer, records []Record) error {
	for _, rec := range records {
		if _, err := fmt.Fprintf(w, "%s %-6s %s % X\n", rec.Time.Format(time.RFC3339Nano), rec.Op, describe(rec.Characteristic), rec.Data); err != nil {
			return err
		}
	}
	return nil
}
