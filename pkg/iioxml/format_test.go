package iioxml

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in   string
		want engine.DataFormat
	}{
		{"le:u8/8>>0", engine.DataFormat{Length: 8, Bits: 8, FullyDefined: true, Repeat: 1}},
		{"le:s12/16>>4", engine.DataFormat{Length: 16, Bits: 12, Shift: 4, Signed: true, Repeat: 1}},
		{"be:S24/32>>0", engine.DataFormat{Length: 32, Bits: 24, Signed: true, FullyDefined: true, BigEndian: true, Repeat: 1}},
		{"le:U10/16X4>>2", engine.DataFormat{Length: 16, Bits: 10, Shift: 2, FullyDefined: true, Repeat: 4}},
		{"be:u16/16", engine.DataFormat{Length: 16, Bits: 16, FullyDefined: true, BigEndian: true, Repeat: 1}},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseFormatErrors(t *testing.T) {
	for _, in := range []string{"", "xe:u8/8>>0", "le:q8/8>>0", "le:u8/12>>0", "le:u16/8>>0", "le:u8/0>>0", "le:u8"} {
		t.Run(in, func(t *testing.T) {
			_, err := ParseFormat(in)
			assert.Error(t, err)
		})
	}
}

func TestScanElementDataFormat(t *testing.T) {
	f, err := ScanElement{Format: "le:s12/16>>4", Scale: "0.250000"}.DataFormat()
	require.NoError(t, err)
	assert.True(t, f.WithScale)
	assert.InDelta(t, 0.25, f.Scale, 1e-9)

	f, err = ScanElement{Format: "le:u8/8>>0"}.DataFormat()
	require.NoError(t, err)
	assert.False(t, f.WithScale)

	_, err = ScanElement{Format: "le:u8/8>>0", Scale: "big"}.DataFormat()
	assert.Error(t, err)
}

func TestParseFormatMatchesString(t *testing.T) {
	for _, in := range []string{"le:s12/16>>4", "be:U16/16X2>>0"} {
		f, err := ParseFormat(in)
		require.NoError(t, err)
		assert.Equal(t, in, f.String())
	}
}
