package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var (
	readSamples int
	readBuffers int
	readText    bool
	readScale   bool
)

var readdevCmd = &cobra.Command{
	Use:   "readdev <device> [channel...]",
	Short: "Capture samples from an input device",
	Long: `Enable the named input channels (all input scan elements by default),
capture buffers and write the samples to stdout.

Binary output is the demultiplexed samples in host byte order, packed row by
row with the channels in buffer order. --text prints one row per line.

Examples:
  iio readdev -u ip:pluto.local -s 1024 -b 4 cf-ad9361-lpc > iq.bin
  iio readdev --text --scale dummydev voltage0 voltage1`,
	Args: cobra.MinimumNArgs(1),
	RunE: runReaddev,
}

func init() {
	rootCmd.AddCommand(readdevCmd)
	f := readdevCmd.Flags()
	f.IntVarP(&readSamples, "samples", "s", 0, "samples per buffer (default from config)")
	f.IntVarP(&readBuffers, "buffers", "b", 1, "buffers to capture, 0 for no limit")
	f.BoolVarP(&readText, "text", "t", false, "print samples as text")
	f.BoolVar(&readScale, "scale", false, "with --text, apply scale and offset")
}

func runReaddev(cmd *cobra.Command, args []string) error {
	samples := readSamples
	if samples == 0 {
		samples = cfg.BufferSize
	}
	ctx, err := openContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	dev, err := findDevice(ctx, args[0])
	if err != nil {
		return err
	}
	chans, err := scanChannels(dev, iio.Input, args[1:])
	if err != nil {
		return err
	}
	if err := enableOnly(dev, chans); err != nil {
		return err
	}
	buf, err := dev.CreateBuffer(samples, false)
	if err != nil {
		return err
	}
	defer buf.Close()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer cancelOnDone(sigCtx, buf)()

	log := logging.Component("readdev")
	out := cmd.OutOrStdout()
	for n := 0; readBuffers == 0 || n < readBuffers; n++ {
		if _, err := buf.Refill(); err != nil {
			if errors.Is(err, iio.ErrCancelled) {
				return nil
			}
			return err
		}
		if readText {
			err = writeText(out, buf)
		} else {
			err = writeBinary(out, buf)
		}
		if err != nil {
			return err
		}
		log.Debug("buffer captured", zap.Int("index", n), zap.Int("bytes", buf.Len()))
	}
	return nil
}

// cancelOnDone cancels buf when ctx ends, unblocking a pending Refill or
// Push. The returned func stops the watch and must run before buf is closed.
func cancelOnDone(ctx context.Context, buf *iio.Buffer) func() {
	done := make(chan struct{})
	exited := make(chan struct{})
	go func() {
		defer close(exited)
		select {
		case <-ctx.Done():
			buf.Cancel()
		case <-done:
		}
	}()
	return func() {
		close(done)
		<-exited
	}
}

func writeBinary(out io.Writer, buf *iio.Buffer) error {
	chans := buf.Channels()
	cols := make([][]byte, len(chans))
	widths := make([]int, len(chans))
	rows := -1
	for i, ch := range chans {
		col, err := ch.ReadBytes(buf, false)
		if err != nil {
			return err
		}
		cols[i] = col
		widths[i] = ch.DataFormat().ByteLength()
		if r := len(col) / widths[i]; rows < 0 || r < rows {
			rows = r
		}
	}
	var row []byte
	for r := 0; r < rows; r++ {
		row = row[:0]
		for i, col := range cols {
			row = append(row, col[r*widths[i]:(r+1)*widths[i]]...)
		}
		if _, err := out.Write(row); err != nil {
			return err
		}
	}
	return nil
}

func writeText(out io.Writer, buf *iio.Buffer) error {
	chans := buf.Channels()
	cols := make([][]string, len(chans))
	rows := -1
	for i, ch := range chans {
		col, err := channelText(ch, buf, readScale)
		if err != nil {
			return err
		}
		cols[i] = col
		if rows < 0 || len(col) < rows {
			rows = len(col)
		}
	}
	fields := make([]string, len(cols))
	for r := 0; r < rows; r++ {
		for i, col := range cols {
			fields[i] = col[r]
		}
		if _, err := fmt.Fprintln(out, strings.Join(fields, " ")); err != nil {
			return err
		}
	}
	return nil
}

// channelText reads a channel with the Go type matching its format. With
// scale set, scale and offset are read once for the whole block.
func channelText(ch iio.Channel, buf *iio.Buffer, scale bool) ([]string, error) {
	var conv func(int64) float64
	if scale {
		var err error
		if conv, err = ch.Converter(); err != nil {
			return nil, err
		}
	}
	switch ch.SampleType() {
	case iio.Int8:
		return formatSamples[int8](ch, buf, conv)
	case iio.Uint8:
		return formatSamples[uint8](ch, buf, conv)
	case iio.Int16:
		return formatSamples[int16](ch, buf, conv)
	case iio.Uint16:
		return formatSamples[uint16](ch, buf, conv)
	case iio.Int32:
		return formatSamples[int32](ch, buf, conv)
	case iio.Uint32:
		return formatSamples[uint32](ch, buf, conv)
	case iio.Int64:
		return formatSamples[int64](ch, buf, conv)
	case iio.Uint64:
		return formatSamples[uint64](ch, buf, conv)
	}
	return nil, errors.Wrapf(iio.ErrWrongDataType, "%s: no integer type holds %s", ch, ch.DataFormat())
}

// formatSamples prints raw values, or conv applied to them when conv is set.
func formatSamples[T iio.Sample](ch iio.Channel, buf *iio.Buffer, conv func(int64) float64) ([]string, error) {
	values, err := iio.Read[T](ch, buf)
	if err != nil {
		return nil, err
	}
	out := make([]string, len(values))
	for i, v := range values {
		if conv == nil {
			out[i] = fmt.Sprint(v)
			continue
		}
		out[i] = strconv.FormatFloat(conv(int64(v)), 'f', -1, 64)
	}
	return out, nil
}
