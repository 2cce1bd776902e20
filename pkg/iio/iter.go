package iio

import (
	"iter"

	"github.com/pkg/errors"
)

// Iter walks one channel's samples in buffer memory without copying the
// buffer. It is bound to the data of the Refill it was created after: once
// the buffer is refilled or closed, Next reports false and Len is zero, so
// create a new Iter for every block. Values are raw: neither layout
// conversion nor scale and offset are applied.
type Iter[T Sample] struct {
	buf  *Buffer
	gen  int64
	data []byte
	off  int
	step int
}

// ChannelIter creates an iterator over ch's samples in buf. T must be as
// wide as one sample of the channel, otherwise ErrWrongDataType is returned
// before buffer memory is touched.
func ChannelIter[T Sample](buf *Buffer, ch Channel) (*Iter[T], error) {
	if err := ch.ioCheck(buf); err != nil {
		return nil, err
	}
	if want := ch.DataFormat().ByteLength(); sizeOf[T]() != want {
		return nil, errors.Wrapf(ErrWrongDataType, "iterate %s as %s, samples are %d bytes",
			ch, SampleTypeFor[T](), want)
	}
	first, err := buf.eng.First(ch.eng)
	if err != nil {
		return nil, wrapEngine(err, "locate "+ch.String())
	}
	step := buf.eng.Step()
	if step <= 0 {
		return nil, errors.Wrapf(ErrBadReturnSize, "iterate %s: step %d", ch, step)
	}
	return &Iter[T]{buf: buf, gen: buf.gen.Load(), data: buf.eng.Data(), off: first, step: step}, nil
}

// stale reports whether the memory behind data was refilled or released.
func (it *Iter[T]) stale() bool {
	return it.buf.State() == BufferClosed || it.buf.gen.Load() != it.gen
}

// Next returns the next sample, or false once the next row would not fit
// in the buffer.
func (it *Iter[T]) Next() (T, bool) {
	if it.stale() {
		var zero T
		return zero, false
	}
	v, ok := load[T](it.data, it.off)
	if ok {
		it.off += it.step
	}
	return v, ok
}

// Len is the number of samples Next has yet to return.
func (it *Iter[T]) Len() int {
	if it.stale() {
		return 0
	}
	end := len(it.data) - sizeOf[T]()
	if it.off > end {
		return 0
	}
	return (end-it.off)/it.step + 1
}

// All drains the iterator.
func (it *Iter[T]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}

// Samples is ChannelIter for range loops.
func Samples[T Sample](buf *Buffer, ch Channel) (iter.Seq[T], error) {
	it, err := ChannelIter[T](buf, ch)
	if err != nil {
		return nil, err
	}
	return it.All(), nil
}
