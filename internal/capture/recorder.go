package capture

import (
	"io"
	"log"
	"os"
	"slices"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/lowaak/smart-trainer/sensor-core/internal/gatt"
)

// Recorder is a gatt.Transport that passes everything through to another
// transport and appends each frame that crosses it to a capture
type Recorder struct {
	inner  gatt.Transport
	logger *log.Logger
	now    func() time.Time

	mu      sync.Mutex
	encoder *cbor.Encoder
	closer  io.Closer
	closed  bool
	count   int
}

var _ gatt.Transport = (*Recorder)(nil)

func NewRecorder(inner gatt.Transport, w io.Writer, logger *log.Logger) *Recorder {
	if inner == nil {
		panic("Recorder: transport cannot be nil")
	}
	if logger == nil {
		panic("Recorder: logger cannot be nil")
	}
	return &Recorder{
		inner:   inner,
		logger:  logger,
		now:     time.Now,
		encoder: encMode.NewEncoder(w),
	}
}

// NewFileRecorder appends to the capture at path, creating it if needed
func NewFileRecorder(inner gatt.Transport, path string, logger *log.Logger) (*Recorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	r := NewRecorder(inner, f, logger)
	r.closer = f
	logger.Printf("Recorder: capturing frames to %s", path)
	return r, nil
}

func (r *Recorder) record(op Op, ch gatt.Characteristic, data []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return
	}
	rec := Record{Time: r.now(), Op: op, Characteristic: ch.UUID, Data: slices.Clone(data)}
	if err := r.encoder.Encode(rec); err != nil {
		r.logger.Printf("Recorder: dropped %s frame from %s: %v", op, ch, err)
		return
	}
	r.count++
}

// Count is the number of records written
func (r *Recorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// Close stops recording and closes the file opened by NewFileRecorder. The
// wrapped transport stays usable.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil
	}
	r.closed = true
	r.logger.Printf("Recorder: closed after %d records", r.count)
	if r.closer != nil {
		return r.closer.Close()
	}
	return nil
}

func (r *Recorder) Write(ch gatt.Characteristic, data []byte) error {
	if err := r.inner.Write(ch, data); err != nil {
		return err
	}
	r.record(OpWrite, ch, data)
	return nil
}

func (r *Recorder) Subscribe(ch gatt.Characteristic, onFrame func(gatt.RawFrame)) error {
	return r.inner.Subscribe(ch, func(frame gatt.RawFrame) {
		r.record(OpNotify, ch, frame.Data)
		onFrame(frame)
	})
}

func (r *Recorder) Unsubscribe(ch gatt.Characteristic) error {
	return r.inner.Unsubscribe(ch)
}

func (r *Recorder) ReadOnce(ch gatt.Characteristic) (gatt.RawFrame, error) {
	frame, err := r.inner.ReadOnce(ch)
	if err != nil {
		return frame, err
	}
	r.record(OpRead, ch, frame.Data)
	return frame, nil
}
