package cmd

import (
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var (
	writeSamples int
	writeCyclic  bool
)

var writedevCmd = &cobra.Command{
	Use:   "writedev <device> [channel...]",
	Short: "Stream samples from stdin to an output device",
	Long: `Enable the named output channels (all output scan elements by default) and
push samples read from stdin. Input uses the layout readdev writes: host byte
order, one packed row per sample with the channels in buffer order.

A short final read is pushed as a partial buffer. With --cyclic the first
buffer is pushed once and repeated by the hardware until interrupted.

Examples:
  iio writedev -u ip:pluto.local -s 4096 cf-ad9361-dds-core-lpc < tone.bin
  iio writedev --cyclic dummydac < pattern.bin`,
	Args: cobra.MinimumNArgs(1),
	RunE: runWritedev,
}

func init() {
	rootCmd.AddCommand(writedevCmd)
	f := writedevCmd.Flags()
	f.IntVarP(&writeSamples, "samples", "s", 0, "samples per buffer (default from config)")
	f.BoolVarP(&writeCyclic, "cyclic", "c", false, "push one buffer and let the hardware repeat it")
}

func runWritedev(cmd *cobra.Command, args []string) error {
	samples := writeSamples
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
	chans, err := scanChannels(dev, iio.Output, args[1:])
	if err != nil {
		return err
	}
	if err := enableOnly(dev, chans); err != nil {
		return err
	}
	buf, err := dev.CreateBuffer(samples, writeCyclic)
	if err != nil {
		return err
	}
	defer buf.Close()

	sigCtx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	defer cancelOnDone(sigCtx, buf)()

	log := logging.Component("writedev")
	widths := make([]int, 0, len(buf.Channels()))
	rowSize := 0
	for _, ch := range buf.Channels() {
		w := ch.DataFormat().ByteLength()
		widths = append(widths, w)
		rowSize += w
	}

	in := cmd.InOrStdin()
	block := make([]byte, samples*rowSize)
	for n := 0; ; n++ {
		got, err := io.ReadFull(in, block)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
			return errors.Wrap(err, "read stdin")
		}
		rows := got / rowSize
		if rows == 0 {
			return nil
		}
		if err := fillBuffer(buf, block[:rows*rowSize], widths); err != nil {
			return err
		}
		if rows < samples {
			_, err = buf.PushPartial(rows)
		} else {
			_, err = buf.Push()
		}
		if err != nil {
			if errors.Is(err, iio.ErrCancelled) {
				return nil
			}
			return err
		}
		log.Debug("buffer pushed", zap.Int("index", n), zap.Int("samples", rows))
		if writeCyclic {
			<-sigCtx.Done()
			return nil
		}
		if rows < samples {
			return nil
		}
	}
}

// fillBuffer splits packed rows into one column per channel and writes each
// column into the buffer.
func fillBuffer(buf *iio.Buffer, rows []byte, widths []int) error {
	rowSize := 0
	for _, w := range widths {
		rowSize += w
	}
	n := len(rows) / rowSize
	off := 0
	for i, ch := range buf.Channels() {
		w := widths[i]
		col := make([]byte, 0, n*w)
		for r := 0; r < n; r++ {
			start := r*rowSize + off
			col = append(col, rows[start:start+w]...)
		}
		if _, err := ch.WriteBytes(buf, col, false); err != nil {
			return err
		}
		off += w
	}
	return nil
}
