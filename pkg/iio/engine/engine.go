// Package engine defines the boundary between the iio bindings and the engine
// that actually reaches hardware. The native libiio binding and the in-memory
// simulator both implement these interfaces; nothing above this package knows
// which one is in use.
//
// Engine objects are not safe for concurrent use. A Context and everything
// reached through it must be driven from one goroutine at a time, except for
// Buffer.Cancel which may be called from any goroutine.
package engine

import (
	"errors"
	"fmt"
	"time"
)

// Version identifies an engine or library release.
type Version struct {
	Major uint
	Minor uint
	Git   string
}

func (v Version) String() string {
	if v.Git == "" {
		return fmt.Sprintf("%d.%d", v.Major, v.Minor)
	}
	return fmt.Sprintf("%d.%d (git tag: %s)", v.Major, v.Minor, v.Git)
}

// Attr is a context attribute. Context attributes are read-only and always
// come back as name/value pairs.
type Attr struct {
	Name  string
	Value string
}

// AttrSet is a named group of string-typed attributes (device, buffer, debug
// or channel attributes). Values always cross the boundary as text; the
// numeric helpers are fast paths that skip the text round trip where the
// engine supports it.
type AttrSet interface {
	Names() []string
	Read(name string) (string, error)
	Write(name, value string) error
	ReadAll() (map[string]string, error)

	ReadInt64(name string) (int64, error)
	ReadFloat64(name string) (float64, error)
	WriteInt64(name string, v int64) error
	WriteFloat64(name string, v float64) error
}

// Context is one engine session.
type Context interface {
	Name() string
	Description() string
	XML() (string, error)
	Version() (Version, error)

	// Attrs returns every context attribute in one round trip.
	Attrs() ([]Attr, error)

	// SetTimeout applies to every blocking call made through this context.
	// Zero disables the timeout.
	SetTimeout(d time.Duration) error

	NumDevices() int
	// Device returns nil when idx is out of range.
	Device(idx int) Device
	// FindDevice matches an ID, a name or a label. It returns nil when
	// nothing matches.
	FindDevice(name string) Device

	// Clone opens an independent session to the same backend.
	Clone() (Context, error)
	// Destroy releases the session. It is called exactly once.
	Destroy()
}

// Device is one hardware function block.
type Device interface {
	ID() string
	Name() string
	Label() string

	IsTrigger() bool
	// Trigger returns the associated trigger device, or nil.
	Trigger() (Device, error)
	// SetTrigger associates trig with the device; nil removes the trigger.
	SetTrigger(trig Device) error

	Attrs() AttrSet
	BufferAttrs() AttrSet
	DebugAttrs() AttrSet

	NumChannels() int
	// Channel returns nil when idx is out of range.
	Channel(idx int) Channel
	// FindChannel returns nil when nothing matches.
	FindChannel(name string, output bool) Channel

	// SampleSize is the byte size of one row of samples for the currently
	// enabled channels.
	SampleSize() (int, error)
	SetKernelBuffersCount(n uint) error

	RegRead(addr uint32) (uint32, error)
	RegWrite(addr, value uint32) error

	// CreateBuffer snapshots the enabled channels and allocates sample
	// memory for samples rows.
	CreateBuffer(samples int, cyclic bool) (Buffer, error)
}

// Channel is one data lane of a device.
type Channel interface {
	ID() string
	Name() string
	IsOutput() bool
	IsScanElement() bool
	// Index is the scan index, or -1 for channels that are not scan elements.
	Index() int
	Type() ChanType

	Attrs() AttrSet

	Enable()
	Disable()
	IsEnabled() bool

	// DataFormat is derived on every call.
	DataFormat() DataFormat

	// Read demultiplexes this channel out of buf into dst, converting each
	// sample to host layout unless raw is set. It returns the byte count
	// written to dst.
	Read(buf Buffer, dst []byte, raw bool) (int, error)
	// Write multiplexes src into buf, converting from host layout unless raw
	// is set. It returns the byte count consumed from src.
	Write(buf Buffer, src []byte, raw bool) (int, error)
}

// Buffer owns the raw sample memory of one device.
type Buffer interface {
	Refill() (int, error)
	Push() (int, error)
	PushPartial(samples int) (int, error)
	// Cancel may be called from any goroutine and more than once.
	Cancel()
	PollFD() (int, error)
	SetBlockingMode(blocking bool) error

	// Data is the whole sample memory currently valid, from the first byte
	// of the first row to the buffer end.
	Data() []byte
	// First is the byte offset of ch's first sample inside Data.
	First(ch Channel) (int, error)
	// Step is the byte distance between two rows.
	Step() int

	// Destroy releases the sample memory. It is called exactly once.
	Destroy()
}

var (
	// ErrTriggerRequired is returned by CreateBuffer when the device can only
	// capture with a trigger and none is associated.
	ErrTriggerRequired = errors.New("engine: trigger required")

	// ErrNotImplemented lets engines signal a capability they do not offer.
	ErrNotImplemented = errors.New("engine: not implemented")
)
