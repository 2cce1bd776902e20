package iio

import (
	"iter"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"golang.org/x/sys/unix"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio/engine"
)

// MaxAttrLen bounds one attribute read in engines that copy into a fixed
// buffer.
const MaxAttrLen = 16 * 1024

// AttrValue is the set of Go types attributes convert to and from. *big.Int
// covers 128 bit and wider values.
type AttrValue interface {
	bool | string |
		int | int8 | int16 | int32 | int64 |
		uint | uint8 | uint16 | uint32 | uint64 |
		float32 | float64 |
		*big.Int
}

// attrCodec converts attribute text for one reflect.Kind.
type attrCodec struct {
	parse  func(s string, t reflect.Type) (reflect.Value, error)
	format func(v reflect.Value) string
}

var (
	bigIntType = reflect.TypeOf((*big.Int)(nil))

	intCodec = attrCodec{
		parse: func(s string, t reflect.Type) (reflect.Value, error) {
			n, err := cast.ToInt64E(s)
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			if v.OverflowInt(n) {
				return reflect.Value{}, errors.Errorf("%d overflows %s", n, t)
			}
			v.SetInt(n)
			return v, nil
		},
		format: func(v reflect.Value) string { return strconv.FormatInt(v.Int(), 10) },
	}

	uintCodec = attrCodec{
		parse: func(s string, t reflect.Type) (reflect.Value, error) {
			n, err := cast.ToUint64E(s)
			if err != nil {
				// cast goes through ParseInt; the top half of uint64 needs ParseUint.
				var perr error
				if n, perr = strconv.ParseUint(s, 0, 64); perr != nil {
					return reflect.Value{}, err
				}
			}
			v := reflect.New(t).Elem()
			if v.OverflowUint(n) {
				return reflect.Value{}, errors.Errorf("%d overflows %s", n, t)
			}
			v.SetUint(n)
			return v, nil
		},
		format: func(v reflect.Value) string { return strconv.FormatUint(v.Uint(), 10) },
	}

	floatCodec = attrCodec{
		parse: func(s string, t reflect.Type) (reflect.Value, error) {
			f, err := cast.ToFloat64E(s)
			if err != nil {
				return reflect.Value{}, err
			}
			v := reflect.New(t).Elem()
			if v.OverflowFloat(f) {
				return reflect.Value{}, errors.Errorf("%g overflows %s", f, t)
			}
			v.SetFloat(f)
			return v, nil
		},
		format: func(v reflect.Value) string {
			return strconv.FormatFloat(v.Float(), 'f', -1, v.Type().Bits())
		},
	}

	// attrCodecs is the conversion table. Booleans read as any integer
	// (non-zero is true) or a boolean word, and always write as "1" or "0".
	attrCodecs = map[reflect.Kind]attrCodec{
		reflect.Bool: {
			parse: func(s string, _ reflect.Type) (reflect.Value, error) {
				if n, err := cast.ToInt64E(s); err == nil {
					return reflect.ValueOf(n != 0), nil
				}
				b, err := cast.ToBoolE(s)
				if err != nil {
					return reflect.Value{}, err
				}
				return reflect.ValueOf(b), nil
			},
			format: func(v reflect.Value) string {
				if v.Bool() {
					return "1"
				}
				return "0"
			},
		},
		reflect.String: {
			parse:  func(s string, _ reflect.Type) (reflect.Value, error) { return reflect.ValueOf(s), nil },
			format: func(v reflect.Value) string { return v.String() },
		},
		reflect.Int:     intCodec,
		reflect.Int8:    intCodec,
		reflect.Int16:   intCodec,
		reflect.Int32:   intCodec,
		reflect.Int64:   intCodec,
		reflect.Uint:    uintCodec,
		reflect.Uint8:   uintCodec,
		reflect.Uint16:  uintCodec,
		reflect.Uint32:  uintCodec,
		reflect.Uint64:  uintCodec,
		reflect.Float32: floatCodec,
		reflect.Float64: floatCodec,
	}
)

// ParseAttr converts attribute text to T. Surrounding whitespace, such as
// the trailing newline of sysfs reads, is ignored except for strings.
// Text that is not valid UTF-8 fails for every T.
func ParseAttr[T AttrValue](s string) (T, error) {
	var zero T
	if !utf8.ValidString(s) {
		return zero, errors.Wrapf(ErrStringConversion, "parse %q: not valid UTF-8", s)
	}
	t := reflect.TypeOf(&zero).Elem()
	if t == bigIntType {
		n, ok := new(big.Int).SetString(strings.TrimSpace(s), 0)
		if !ok {
			return zero, errors.Wrapf(ErrStringConversion, "parse %q as integer", s)
		}
		return any(n).(T), nil
	}
	codec := attrCodecs[t.Kind()]
	if t.Kind() != reflect.String {
		s = strings.TrimSpace(s)
	}
	v, err := codec.parse(s, t)
	if err != nil {
		return zero, errors.Wrapf(ErrStringConversion, "parse %q as %s: %v", s, t, err)
	}
	return v.Interface().(T), nil
}

// FormatAttr converts v to attribute text.
func FormatAttr[T AttrValue](v T) (string, error) {
	if n, ok := any(v).(*big.Int); ok {
		if n == nil {
			return "", errors.Wrap(ErrStringConversion, "format nil *big.Int")
		}
		return n.String(), nil
	}
	rv := reflect.ValueOf(v)
	return attrCodecs[rv.Kind()].format(rv), nil
}

// ReadAttr reads attribute name and converts it to T.
func ReadAttr[T AttrValue](a Attrs, name string) (T, error) {
	var zero T
	s, err := a.Read(name)
	if err != nil {
		return zero, err
	}
	v, err := ParseAttr[T](s)
	if err != nil {
		return zero, errors.Wrapf(err, "%s attribute %q", a.owner, name)
	}
	return v, nil
}

// WriteAttr converts v to text and writes it to attribute name.
func WriteAttr[T AttrValue](a Attrs, name string, v T) error {
	s, err := FormatAttr(v)
	if err != nil {
		return errors.Wrapf(err, "%s attribute %q", a.owner, name)
	}
	return a.Write(name, s)
}

// Attrs is one attribute group: a device's, buffer or debug attributes, or
// a channel's attributes. The zero value has no attributes.
type Attrs struct {
	h     *handle
	set   engine.AttrSet
	owner string
}

func newAttrs(h *handle, set engine.AttrSet, owner string) Attrs {
	return Attrs{h: h, set: set, owner: owner}
}

func (a Attrs) check() error {
	if a.set == nil || a.h == nil || !a.h.alive() {
		return ErrClosed
	}
	return nil
}

// String names the owner of the group, such as "device dummydev".
func (a Attrs) String() string { return a.owner + " attributes" }

// Names lists the attribute names, nil once the session is gone.
func (a Attrs) Names() []string {
	if a.check() != nil {
		return nil
	}
	return a.set.Names()
}

// Len is the number of attributes.
func (a Attrs) Len() int { return len(a.Names()) }

// Name returns the name of attribute i.
func (a Attrs) Name(i int) (string, error) {
	if err := a.check(); err != nil {
		return "", err
	}
	names := a.set.Names()
	if i < 0 || i >= len(names) {
		return "", errors.Wrapf(ErrInvalidIndex, "%s attribute %d of %d", a.owner, i, len(names))
	}
	return names[i], nil
}

// Has reports whether an attribute exists.
func (a Attrs) Has(name string) bool {
	for _, n := range a.Names() {
		if n == name {
			return true
		}
	}
	return false
}

// All yields the attribute names. The list is taken when iteration starts.
func (a Attrs) All() iter.Seq[string] {
	return func(yield func(string) bool) {
		for _, n := range a.Names() {
			if !yield(n) {
				return
			}
		}
	}
}

func (a Attrs) Read(name string) (string, error) {
	if err := a.check(); err != nil {
		return "", err
	}
	s, err := a.set.Read(name)
	if err != nil {
		return "", wrapEngine(err, "read "+a.owner+" attribute "+strconv.Quote(name))
	}
	return s, nil
}

func (a Attrs) Write(name, value string) error {
	if err := a.check(); err != nil {
		return err
	}
	if err := a.set.Write(name, value); err != nil {
		return wrapEngine(err, "write "+a.owner+" attribute "+strconv.Quote(name))
	}
	return nil
}

// ReadAll reads every attribute in one engine round trip where the engine
// supports it.
func (a Attrs) ReadAll() (map[string]string, error) {
	if err := a.check(); err != nil {
		return nil, err
	}
	m, err := a.set.ReadAll()
	if err != nil {
		return nil, wrapEngine(err, "read all "+a.owner+" attributes")
	}
	return m, nil
}

func (a Attrs) ReadString(name string) (string, error) { return a.Read(name) }
func (a Attrs) ReadBool(name string) (bool, error)     { return ReadAttr[bool](a, name) }

// ReadInt uses the engine's int64 fast path.
func (a Attrs) ReadInt(name string) (int64, error) {
	if err := a.check(); err != nil {
		return 0, err
	}
	v, err := a.set.ReadInt64(name)
	if err != nil {
		return 0, a.numericErr(err, "read", name)
	}
	return v, nil
}

// ReadFloat uses the engine's float64 fast path.
func (a Attrs) ReadFloat(name string) (float64, error) {
	if err := a.check(); err != nil {
		return 0, err
	}
	v, err := a.set.ReadFloat64(name)
	if err != nil {
		return 0, a.numericErr(err, "read", name)
	}
	return v, nil
}

func (a Attrs) WriteString(name, value string) error { return a.Write(name, value) }
func (a Attrs) WriteBool(name string, v bool) error  { return WriteAttr(a, name, v) }

// WriteInt uses the engine's int64 fast path.
func (a Attrs) WriteInt(name string, v int64) error {
	if err := a.check(); err != nil {
		return err
	}
	if err := a.set.WriteInt64(name, v); err != nil {
		return a.numericErr(err, "write", name)
	}
	return nil
}

// WriteFloat uses the engine's float64 fast path.
func (a Attrs) WriteFloat(name string, v float64) error {
	if err := a.check(); err != nil {
		return err
	}
	if err := a.set.WriteFloat64(name, v); err != nil {
		return a.numericErr(err, "write", name)
	}
	return nil
}

// numericErr reports EINVAL from a fast path as a conversion failure; the
// engines use it for text that does not parse as a number.
func (a Attrs) numericErr(err error, op, name string) error {
	wrapped := wrapEngine(err, op+" "+a.owner+" attribute "+strconv.Quote(name))
	if IsErrno(err, unix.EINVAL) {
		return errors.Wrap(ErrStringConversion, wrapped.Error())
	}
	return wrapped
}
