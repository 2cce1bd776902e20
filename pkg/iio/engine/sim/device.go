package sim

import (
	"sort"
	"sync"

	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// Device is a simulated function block. Setup methods (AddChannel, AddAttr,
// RequireTrigger...) are meant to run before the context is handed out.
type Device struct {
	ctx   *Context
	id    string
	name  string
	label string

	isTrigger    bool
	needsTrigger bool

	attrs    *AttrSet
	bufAttrs *AttrSet
	dbgAttrs *AttrSet
	channels []*Channel

	mu            sync.Mutex
	trigger       *Device
	regs          map[uint32]uint32
	kernelBuffers uint
	queue         []byte
	flushed       bool
	fed           chan struct{} // closed and replaced whenever queue changes
	pushed        [][]byte
	active        *Buffer
}

var _ engine.Device = (*Device)(nil)

func newDevice(ctx *Context, id, name string) *Device {
	return &Device{
		ctx:           ctx,
		id:            id,
		name:          name,
		attrs:         newAttrSet(),
		bufAttrs:      newAttrSet(),
		dbgAttrs:      newAttrSet(),
		regs:          make(map[uint32]uint32),
		kernelBuffers: 4,
		fed:           make(chan struct{}),
	}
}

// SetLabel sets the device label.
func (d *Device) SetLabel(label string) *Device {
	d.label = label
	return d
}

// RequireTrigger makes CreateBuffer fail until a trigger is associated.
func (d *Device) RequireTrigger() *Device {
	d.needsTrigger = true
	return d
}

// AddAttr declares a device attribute.
func (d *Device) AddAttr(name, value string) *Device {
	d.attrs.Add(name, value)
	return d
}

// AddBufferAttr declares a buffer attribute.
func (d *Device) AddBufferAttr(name, value string) *Device {
	d.bufAttrs.Add(name, value)
	return d
}

// AddDebugAttr declares a debug attribute.
func (d *Device) AddDebugAttr(name, value string) *Device {
	d.dbgAttrs.Add(name, value)
	return d
}

// AddChannel adds a channel that cannot take part in buffered I/O.
func (d *Device) AddChannel(id string, output bool) *Channel {
	ch := newChannel(d, id, output, -1, engine.DataFormat{})
	d.channels = append(d.channels, ch)
	return ch
}

// AddScanChannel adds a scan element with the given scan index and format.
func (d *Device) AddScanChannel(id string, output bool, index int, f engine.DataFormat) *Channel {
	ch := newChannel(d, id, output, index, f)
	d.channels = append(d.channels, ch)
	return ch
}

// Chan returns the channel with the given ID or name, input channels first.
func (d *Device) Chan(name string) *Channel {
	if ch := d.findChannel(name, false); ch != nil {
		return ch
	}
	return d.findChannel(name, true)
}

// Feed queues raw multiplexed rows for the next refills. rows must use the
// layout of the buffer that will consume them (see Buffer.Step).
func (d *Device) Feed(rows []byte) {
	d.mu.Lock()
	d.queue = append(d.queue, rows...)
	d.wakeLocked()
	d.mu.Unlock()
}

// Flush makes the next refill return whatever whole rows are queued, even if
// that is less than a full buffer.
func (d *Device) Flush() {
	d.mu.Lock()
	d.flushed = true
	d.wakeLocked()
	d.mu.Unlock()
}

// Queued reports the number of bytes waiting for a refill.
func (d *Device) Queued() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.queue)
}

// Pushed returns a copy of every block pushed through this device's buffers.
func (d *Device) Pushed() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.pushed))
	for i, p := range d.pushed {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// KernelBuffersCount reports the last value set by SetKernelBuffersCount.
func (d *Device) KernelBuffersCount() uint {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.kernelBuffers
}

func (d *Device) wakeLocked() {
	close(d.fed)
	d.fed = make(chan struct{})
	if d.active != nil {
		d.active.notifyLocked()
	}
}

func (d *Device) ID() string      { return d.id }
func (d *Device) Name() string    { return d.name }
func (d *Device) Label() string   { return d.label }
func (d *Device) IsTrigger() bool { return d.isTrigger }

func (d *Device) Trigger() (engine.Device, error) {
	if t := d.currentTrigger(); t != nil {
		return t, nil
	}
	return nil, nil
}

func (d *Device) currentTrigger() *Device {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.trigger
}

func (d *Device) SetTrigger(trig engine.Device) error {
	if trig == nil {
		d.mu.Lock()
		d.trigger = nil
		d.mu.Unlock()
		return nil
	}
	t, ok := trig.(*Device)
	if !ok || !t.isTrigger || t.ctx != d.ctx {
		return unix.EINVAL
	}
	d.mu.Lock()
	d.trigger = t
	d.mu.Unlock()
	return nil
}

func (d *Device) Attrs() engine.AttrSet       { return d.attrs }
func (d *Device) BufferAttrs() engine.AttrSet { return d.bufAttrs }
func (d *Device) DebugAttrs() engine.AttrSet  { return d.dbgAttrs }

func (d *Device) NumChannels() int { return len(d.channels) }

func (d *Device) Channel(idx int) engine.Channel {
	if idx < 0 || idx >= len(d.channels) {
		return nil
	}
	return d.channels[idx]
}

func (d *Device) FindChannel(name string, output bool) engine.Channel {
	if ch := d.findChannel(name, output); ch != nil {
		return ch
	}
	return nil
}

func (d *Device) findChannel(name string, output bool) *Channel {
	for _, ch := range d.channels {
		if ch.output == output && (ch.id == name || ch.name == name) {
			return ch
		}
	}
	return nil
}

func (d *Device) SampleSize() (int, error) {
	_, step := layout(d.enabledChannels())
	return step, nil
}

func (d *Device) SetKernelBuffersCount(n uint) error {
	if n == 0 {
		return unix.EINVAL
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return unix.EBUSY
	}
	d.kernelBuffers = n
	return nil
}

func (d *Device) RegRead(addr uint32) (uint32, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs[addr], nil
}

func (d *Device) RegWrite(addr, value uint32) error {
	d.mu.Lock()
	d.regs[addr] = value
	d.mu.Unlock()
	return nil
}

func (d *Device) CreateBuffer(samples int, cyclic bool) (engine.Buffer, error) {
	if samples <= 0 {
		return nil, unix.EINVAL
	}
	chans := d.enabledChannels()
	if len(chans) == 0 {
		return nil, unix.EINVAL
	}
	if d.needsTrigger && d.currentTrigger() == nil {
		return nil, engine.ErrTriggerRequired
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.active != nil {
		return nil, unix.EBUSY
	}
	b := newBuffer(d, chans, samples, cyclic)
	d.active = b
	return b, nil
}

// enabledChannels returns enabled scan elements in scan index order.
func (d *Device) enabledChannels() []*Channel {
	var out []*Channel
	for _, ch := range d.channels {
		if ch.IsScanElement() && ch.IsEnabled() {
			out = append(out, ch)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].index < out[j].index })
	return out
}

// layout places each channel at an offset aligned to its own byte length
// and pads the row to the widest alignment, like the kernel scan layout.
func layout(chans []*Channel) (offsets map[*Channel]int, step int) {
	offsets = make(map[*Channel]int, len(chans))
	maxAlign := 1
	for _, ch := range chans {
		n := ch.format.ByteLength()
		align := ch.format.ElementLength()
		if align < 1 {
			align = 1
		}
		if step%align != 0 {
			step += align - step%align
		}
		offsets[ch] = step
		step += n
		if align > maxAlign {
			maxAlign = align
		}
	}
	if step%maxAlign != 0 {
		step += maxAlign - step%maxAlign
	}
	return offsets, step
}

func (d *Device) release(b *Buffer) {
	d.mu.Lock()
	if d.active == b {
		d.active = nil
	}
	d.mu.Unlock()
}

func (d *Device) cancelActive() {
	d.mu.Lock()
	b := d.active
	d.mu.Unlock()
	if b != nil {
		b.Cancel()
	}
}

func (d *Device) clone(ctx *Context) *Device {
	n := newDevice(ctx, d.id, d.name)
	n.label = d.label
	n.isTrigger = d.isTrigger
	n.needsTrigger = d.needsTrigger
	n.attrs = d.attrs.clone()
	n.bufAttrs = d.bufAttrs.clone()
	n.dbgAttrs = d.dbgAttrs.clone()
	d.mu.Lock()
	for k, v := range d.regs {
		n.regs[k] = v
	}
	n.kernelBuffers = d.kernelBuffers
	d.mu.Unlock()
	for _, ch := range d.channels {
		n.channels = append(n.channels, ch.clone(n))
	}
	return n
}
