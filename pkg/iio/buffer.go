package iio

import (
	"github.com/pkg/errors"
	"go.uber.org/atomic"
	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// BufferState is the lifecycle position of a Buffer.
type BufferState int32

const (
	BufferCreated BufferState = iota
	BufferActive
	BufferCancelled
	BufferClosed
)

var bufferStateNames = map[BufferState]string{
	BufferCreated:   "created",
	BufferActive:    "active",
	BufferCancelled: "cancelled",
	BufferClosed:    "closed",
}

func (s BufferState) String() string {
	if n, ok := bufferStateNames[s]; ok {
		return n
	}
	return "unknown"
}

// Buffer holds the multiplexed sample memory of one device. It owns a
// reference to its session, so it stays usable after every Context value is
// closed, until Close.
//
// Refill, Push and iteration must be serialized by the caller. Cancel may be
// called from any goroutine.
type Buffer struct {
	h        *handle
	dev      Device
	eng      engine.Buffer
	channels []Channel
	samples  int
	cyclic   bool
	state    atomic.Int32
	// gen counts refills; iterators created before the last one are stale.
	gen      atomic.Int64
}

func newBuffer(d Device, eb engine.Buffer, channels []Channel, samples int, cyclic bool) *Buffer {
	return &Buffer{
		h:        d.h,
		dev:      d,
		eng:      eb,
		channels: channels,
		samples:  samples,
		cyclic:   cyclic,
	}
}

func (b *Buffer) State() BufferState { return BufferState(b.state.Load()) }

func (b *Buffer) check() error {
	if b == nil || b.State() == BufferClosed {
		return ErrClosed
	}
	return nil
}

// ioCheck gates Refill and Push.
func (b *Buffer) ioCheck(op string) error {
	switch b.State() {
	case BufferClosed:
		return errors.Wrapf(ErrClosed, "%s on %s", op, b.dev)
	case BufferCancelled:
		return errors.Wrapf(ErrCancelled, "%s on %s", op, b.dev)
	}
	return nil
}

// ioResult maps an engine failure, reporting ErrCancelled for I/O aborted
// by Cancel.
func (b *Buffer) ioResult(n int, err error, op string) (int, error) {
	if err != nil {
		if b.State() == BufferCancelled && IsErrno(err, unix.EBADF) {
			return 0, errors.Wrapf(ErrCancelled, "%s on %s", op, b.dev)
		}
		return 0, wrapEngine(err, op+" on "+b.dev.String())
	}
	b.state.CompareAndSwap(int32(BufferCreated), int32(BufferActive))
	return n, nil
}

// Refill blocks until the enabled input channels have fresh samples, the
// context timeout elapses or the buffer is cancelled. It returns the number
// of bytes transferred. Failures are returned as is; nothing is retried.
func (b *Buffer) Refill() (int, error) {
	if err := b.ioCheck("refill"); err != nil {
		return 0, err
	}
	b.gen.Inc()
	n, err := b.eng.Refill()
	return b.ioResult(n, err, "refill")
}

// Push hands the whole buffer to the hardware and returns the bytes
// accepted.
func (b *Buffer) Push() (int, error) {
	if err := b.ioCheck("push"); err != nil {
		return 0, err
	}
	n, err := b.eng.Push()
	return b.ioResult(n, err, "push")
}

// PushPartial pushes the first samples rows only.
func (b *Buffer) PushPartial(samples int) (int, error) {
	if err := b.ioCheck("push"); err != nil {
		return 0, err
	}
	if samples <= 0 || samples > b.samples {
		return 0, errors.Wrapf(ErrInvalidArgument, "push %d of %d samples on %s", samples, b.samples, b.dev)
	}
	n, err := b.eng.PushPartial(samples)
	return b.ioResult(n, err, "push")
}

// Cancel aborts pending and future Refill and Push calls. It can be called
// from any goroutine; calls after the first do nothing. A cancelled buffer
// cannot be used for I/O again; close it and create a new one.
func (b *Buffer) Cancel() {
	for {
		s := b.state.Load()
		if s == int32(BufferCancelled) || s == int32(BufferClosed) {
			return
		}
		if b.state.CompareAndSwap(s, int32(BufferCancelled)) {
			break
		}
	}
	b.eng.Cancel()
	b.h.logger.Debug("buffer cancelled", zap.Stringer("device", b.dev))
}

// Close releases the sample memory and the buffer's reference to the
// session. It is safe to call more than once.
func (b *Buffer) Close() error {
	if b == nil {
		return nil
	}
	if BufferState(b.state.Swap(int32(BufferClosed))) == BufferClosed {
		return nil
	}
	b.eng.Destroy()
	b.h.logger.Debug("buffer closed", zap.Stringer("device", b.dev))
	b.h.release()
	return nil
}

// PollFD returns a descriptor that polls readable when the buffer has work,
// for event loops that must not block in Refill.
func (b *Buffer) PollFD() (int, error) {
	if err := b.check(); err != nil {
		return -1, err
	}
	fd, err := b.eng.PollFD()
	if err != nil {
		return -1, wrapEngine(err, "poll fd of "+b.dev.String())
	}
	return fd, nil
}

// SetBlockingMode chooses whether Refill and Push block. Buffers block by
// default.
func (b *Buffer) SetBlockingMode(blocking bool) error {
	if err := b.check(); err != nil {
		return err
	}
	return wrapEngine(b.eng.SetBlockingMode(blocking), "set blocking mode of "+b.dev.String())
}

// Step is the byte distance between two sample rows.
func (b *Buffer) Step() int {
	if b.check() != nil {
		return 0
	}
	return b.eng.Step()
}

// Capacity is the sample count the buffer was created with.
func (b *Buffer) Capacity() int  { return b.samples }
func (b *Buffer) IsCyclic() bool { return b.cyclic }
func (b *Buffer) Device() Device { return b.dev }

// Channels lists the channels enabled when the buffer was created.
func (b *Buffer) Channels() []Channel {
	return append([]Channel(nil), b.channels...)
}

// Attrs returns the buffer attributes of the device.
func (b *Buffer) Attrs() Attrs {
	if b.check() != nil {
		return Attrs{}
	}
	return b.dev.BufferAttrs()
}

// Len is the number of bytes of valid sample memory, as of the last
// Refill.
func (b *Buffer) Len() int {
	if b.check() != nil {
		return 0
	}
	return len(b.eng.Data())
}
