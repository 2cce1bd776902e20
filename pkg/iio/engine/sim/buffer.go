package sim

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"go.uber.org/atomic"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Buffer is a simulated sample buffer. Input buffers are filled from the
// device queue, output buffers record every push on the device.
type Buffer struct {
	dev     *Device
	chans   []*Channel
	offsets map[*Channel]int
	step    int
	samples int
	cyclic  bool
	output  bool
	data    []byte

	valid     int
	blocking  atomic.Bool
	pushes    atomic.Int64
	cancelled atomic.Bool
	cancelCh  chan struct{}
	once      sync.Once

	pollMu sync.Mutex
	poll   *poller
}

var _ engine.Buffer = (*Buffer)(nil)

func newBuffer(dev *Device, chans []*Channel, samples int, cyclic bool) *Buffer {
	offsets, step := layout(chans)
	b := &Buffer{
		dev:      dev,
		chans:    chans,
		offsets:  offsets,
		step:     step,
		samples:  samples,
		cyclic:   cyclic,
		data:     make([]byte, step*samples),
		cancelCh: make(chan struct{}),
	}
	for _, ch := range chans {
		if ch.output {
			b.output = true
		}
	}
	if b.output {
		b.valid = len(b.data)
	}
	b.blocking.Store(true)
	return b
}

// Refill moves one buffer worth of queued rows into sample memory. It blocks
// until enough rows are queued, Flush is called, the context timeout fires
// (ETIMEDOUT) or the buffer is cancelled (EBADF).
func (b *Buffer) Refill() (int, error) {
	if b.output {
		return 0, unix.EINVAL
	}
	need := len(b.data)
	ctx := b.dev.ctx
	start := ctx.clock.Now()
	for {
		if b.cancelled.Load() {
			return 0, unix.EBADF
		}

		b.dev.mu.Lock()
		n, ready := 0, false
		switch {
		case len(b.dev.queue) >= need:
			n, ready = need, true
		case b.dev.flushed:
			n, ready = len(b.dev.queue)-len(b.dev.queue)%b.step, true
			b.dev.flushed = false
		}
		if ready {
			copy(b.data, b.dev.queue[:n])
			b.dev.queue = append(b.dev.queue[:0], b.dev.queue[n:]...)
			b.valid = n
			b.drainLocked()
			b.dev.mu.Unlock()
			return n, nil
		}
		if !b.blocking.Load() {
			b.dev.mu.Unlock()
			return 0, unix.EAGAIN
		}
		fed := b.dev.fed
		b.dev.mu.Unlock()

		timeout, retimed := ctx.timeoutState()
		var expired <-chan time.Time
		var timer *clock.Timer
		if timeout > 0 {
			left := timeout - ctx.clock.Since(start)
			if left <= 0 {
				return 0, unix.ETIMEDOUT
			}
			timer = ctx.clock.Timer(left)
			expired = timer.C
		}

		select {
		case <-fed:
		case <-retimed:
		case <-b.cancelCh:
		case <-expired:
			return 0, unix.ETIMEDOUT
		}
		if timer != nil {
			timer.Stop()
		}
	}
}

// Push hands the whole buffer to the device.
func (b *Buffer) Push() (int, error) {
	return b.push(len(b.data))
}

// PushPartial hands the first samples rows to the device.
func (b *Buffer) PushPartial(samples int) (int, error) {
	if samples <= 0 || samples > b.samples {
		return 0, unix.EINVAL
	}
	return b.push(samples * b.step)
}

func (b *Buffer) push(n int) (int, error) {
	if !b.output {
		return 0, unix.EINVAL
	}
	if b.cancelled.Load() {
		return 0, unix.EBADF
	}
	if b.cyclic && b.pushes.Load() > 0 {
		return 0, unix.EBUSY
	}
	b.pushes.Inc()
	block := append([]byte(nil), b.data[:n]...)
	b.dev.mu.Lock()
	b.dev.pushed = append(b.dev.pushed, block)
	b.dev.mu.Unlock()
	return n, nil
}

func (b *Buffer) Cancel() {
	b.once.Do(func() {
		b.cancelled.Store(true)
		close(b.cancelCh)
		b.pollMu.Lock()
		if b.poll != nil {
			b.poll.signal()
		}
		b.pollMu.Unlock()
	})
}

// Cancelled reports whether Cancel has run.
func (b *Buffer) Cancelled() bool { return b.cancelled.Load() }

// PollFD returns a descriptor that becomes readable when a refill would not
// block or the buffer is cancelled.
func (b *Buffer) PollFD() (int, error) {
	b.pollMu.Lock()
	if b.poll != nil {
		fd := b.poll.fd
		b.pollMu.Unlock()
		return fd, nil
	}
	p, err := newPoller()
	if err != nil {
		b.pollMu.Unlock()
		return -1, err
	}
	b.poll = p
	if b.cancelled.Load() {
		p.signal()
	}
	b.pollMu.Unlock()

	b.dev.mu.Lock()
	b.notifyLocked()
	b.dev.mu.Unlock()
	return p.fd, nil
}

func (b *Buffer) SetBlockingMode(blocking bool) error {
	b.blocking.Store(blocking)
	return nil
}

func (b *Buffer) Data() []byte { return b.data[:b.valid] }

func (b *Buffer) First(ch engine.Channel) (int, error) {
	c, ok := ch.(*Channel)
	if !ok {
		return 0, unix.EINVAL
	}
	off, ok := b.offsets[c]
	if !ok {
		return 0, unix.ENOENT
	}
	return off, nil
}

func (b *Buffer) Step() int { return b.step }

func (b *Buffer) Destroy() {
	b.Cancel()
	b.pollMu.Lock()
	if b.poll != nil {
		b.poll.close()
		b.poll = nil
	}
	b.pollMu.Unlock()
	b.dev.release(b)
}

// notifyLocked signals the poll descriptor if a refill would now succeed.
// The caller holds dev.mu.
func (b *Buffer) notifyLocked() {
	if b.output || len(b.dev.queue) < len(b.data) && !b.dev.flushed {
		return
	}
	b.pollMu.Lock()
	if b.poll != nil {
		b.poll.signal()
	}
	b.pollMu.Unlock()
}

// drainLocked clears the poll descriptor after a refill and re-arms it if
// another refill is already possible. The caller holds dev.mu.
func (b *Buffer) drainLocked() {
	b.pollMu.Lock()
	if b.poll != nil {
		b.poll.drain()
	}
	b.pollMu.Unlock()
	b.notifyLocked()
}
