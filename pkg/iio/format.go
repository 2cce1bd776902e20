package iio

import "github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"

type (
	// DataFormat describes how a channel's samples are stored.
	DataFormat = engine.DataFormat
	// ChanType is the physical quantity of a channel.
	ChanType = engine.ChanType
	// Version identifies a library or engine release.
	Version = engine.Version
)

// SampleType is the Go integer type that holds one sample of a channel.
type SampleType int

const (
	UnknownSample SampleType = iota
	Int8
	Uint8
	Int16
	Uint16
	Int32
	Uint32
	Int64
	Uint64
)

var sampleTypeNames = [...]string{
	UnknownSample: "unknown",
	Int8:          "int8",
	Uint8:         "uint8",
	Int16:         "int16",
	Uint16:        "uint16",
	Int32:         "int32",
	Uint32:        "uint32",
	Int64:         "int64",
	Uint64:        "uint64",
}

func (s SampleType) String() string {
	if s < 0 || int(s) >= len(sampleTypeNames) {
		return sampleTypeNames[UnknownSample]
	}
	return sampleTypeNames[s]
}

// Size is the byte width of the type, 0 for UnknownSample.
func (s SampleType) Size() int {
	switch s {
	case Int8, Uint8:
		return 1
	case Int16, Uint16:
		return 2
	case Int32, Uint32:
		return 4
	case Int64, Uint64:
		return 8
	}
	return 0
}

// Signed reports whether the type is a signed integer.
func (s SampleType) Signed() bool {
	switch s {
	case Int8, Int16, Int32, Int64:
		return true
	}
	return false
}

// SampleTypeOf picks the integer type whose width equals the format's byte
// length (repeat included). Widths other than 1, 2, 4 and 8 bytes have no
// Go type and yield UnknownSample.
func SampleTypeOf(f DataFormat) SampleType {
	var t SampleType
	switch f.ByteLength() {
	case 1:
		t = Uint8
	case 2:
		t = Uint16
	case 4:
		t = Uint32
	case 8:
		t = Uint64
	default:
		return UnknownSample
	}
	if f.Signed {
		t--
	}
	return t
}

// Sample is the closed set of Go types a channel sample can be read as.
type Sample interface {
	int8 | uint8 | int16 | uint16 | int32 | uint32 | int64 | uint64
}

// SampleTypeFor returns the SampleType of T.
func SampleTypeFor[T Sample]() SampleType {
	var zero T
	switch any(zero).(type) {
	case int8:
		return Int8
	case uint8:
		return Uint8
	case int16:
		return Int16
	case uint16:
		return Uint16
	case int32:
		return Int32
	case uint32:
		return Uint32
	case int64:
		return Int64
	case uint64:
		return Uint64
	}
	return UnknownSample
}
