package iio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSampleTypeOf(t *testing.T) {
	tests := []struct {
		f    DataFormat
		want SampleType
	}{
		{DataFormat{Length: 8, Bits: 8}, Uint8},
		{DataFormat{Length: 8, Bits: 6, Signed: true}, Int8},
		{DataFormat{Length: 16, Bits: 12, Signed: true}, Int16},
		{DataFormat{Length: 32, Bits: 24}, Uint32},
		{DataFormat{Length: 64, Bits: 64, Signed: true}, Int64},
		{DataFormat{Length: 16, Bits: 16, Repeat: 2}, Uint32},
		{DataFormat{Length: 8, Bits: 8, Repeat: 3}, UnknownSample},
		{DataFormat{Length: 128, Bits: 128}, UnknownSample},
	}
	for _, tt := range tests {
		t.Run(tt.f.String(), func(t *testing.T) {
			assert.Equal(t, tt.want, SampleTypeOf(tt.f))
		})
	}
}

func TestSampleTypeFor(t *testing.T) {
	assert.Equal(t, Int8, SampleTypeFor[int8]())
	assert.Equal(t, Uint16, SampleTypeFor[uint16]())
	assert.Equal(t, Int64, SampleTypeFor[int64]())
	assert.Equal(t, 4, Uint32.Size())
	assert.True(t, Int32.Signed())
	assert.False(t, Uint8.Signed())
	assert.Equal(t, "unknown", SampleType(42).String())
}
