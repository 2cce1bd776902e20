package iioxml

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// FormatLexer tokenizes a scan-element format such as "le:S12/16>>4" or
// "be:u16/16X2>>0".
var FormatLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Endian", Pattern: `[bl]e`},
	{Name: "Sign", Pattern: `[sSuU]`},
	{Name: "Int", Pattern: `[0-9]+`},
	{Name: "Punct", Pattern: `>>|[:/X]`},
	{Name: "Whitespace", Pattern: `\s+`},
})

// FormatSpec is the parsed form of a scan-element format string.
type FormatSpec struct {
	Endian string `parser:"@Endian \":\""`
	Sign   string `parser:"@Sign"`
	Bits   uint   `parser:"@Int \"/\""`
	Length uint   `parser:"@Int"`
	Repeat uint   `parser:"( \"X\" @Int )?"`
	Shift  uint   `parser:"( \">>\" @Int )?"`
}

var formatParser = participle.MustBuild[FormatSpec](
	participle.Lexer(FormatLexer),
	participle.Elide("Whitespace"),
)

// ParseFormat parses a scan-element format string into a data format. The
// scale is not part of the string; see ScanElement.DataFormat.
func ParseFormat(s string) (engine.DataFormat, error) {
	spec, err := formatParser.ParseString("", s)
	if err != nil {
		return engine.DataFormat{}, fmt.Errorf("format %q: %w", s, err)
	}
	if spec.Length == 0 || spec.Length%8 != 0 {
		return engine.DataFormat{}, fmt.Errorf("format %q: storage length %d is not a whole number of bytes", s, spec.Length)
	}
	if spec.Bits > spec.Length {
		return engine.DataFormat{}, fmt.Errorf("format %q: %d valid bits exceed %d storage bits", s, spec.Bits, spec.Length)
	}
	repeat := spec.Repeat
	if repeat == 0 {
		repeat = 1
	}
	upper := spec.Sign == "S" || spec.Sign == "U"
	return engine.DataFormat{
		Length:       spec.Length,
		Bits:         spec.Bits,
		Shift:        spec.Shift,
		Signed:       strings.EqualFold(spec.Sign, "s"),
		FullyDefined: upper || spec.Bits == spec.Length,
		BigEndian:    spec.Endian == "be",
		Repeat:       repeat,
	}, nil
}

// DataFormat parses the element's format and scale.
func (s ScanElement) DataFormat() (engine.DataFormat, error) {
	f, err := ParseFormat(s.Format)
	if err != nil {
		return f, err
	}
	if s.Scale != "" {
		scale, err := strconv.ParseFloat(s.Scale, 64)
		if err != nil {
			return f, fmt.Errorf("scale %q: %w", s.Scale, err)
		}
		f.WithScale = true
		f.Scale = scale
	}
	return f, nil
}
