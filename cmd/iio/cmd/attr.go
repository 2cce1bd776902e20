package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var (
	attrChannel string
	attrOutput  bool
	attrBuffer  bool
	attrDebug   bool
	attrContext bool
)

var attrCmd = &cobra.Command{
	Use:   "attr [device] [attr [value]]",
	Short: "Read or write attributes",
	Long: `Read or write device, channel, buffer, debug or context attributes.

With only a device, every attribute of the selected group is listed. With an
attribute name its value is printed. With a value the attribute is written
and read back.

Examples:
  iio attr dummydev
  iio attr dummydev sampling_frequency 200
  iio attr dummydev -c voltage1 scale
  iio attr --context`,
	Args: cobra.MaximumNArgs(3),
	RunE: runAttr,
}

func init() {
	rootCmd.AddCommand(attrCmd)
	f := attrCmd.Flags()
	f.StringVarP(&attrChannel, "channel", "c", "", "channel attributes of this channel")
	f.BoolVarP(&attrOutput, "output", "o", false, "with --channel, pick the output channel")
	f.BoolVarP(&attrBuffer, "buffer", "B", false, "buffer attributes")
	f.BoolVarP(&attrDebug, "debug", "D", false, "debug attributes")
	f.BoolVarP(&attrContext, "context", "C", false, "context attributes")
}

func runAttr(cmd *cobra.Command, args []string) error {
	ctx, err := openContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()
	out := cmd.OutOrStdout()

	if attrContext {
		if len(args) > 1 {
			return errors.New("context attributes are read-only")
		}
		for name, value := range ctx.Attributes() {
			if len(args) == 1 && name != args[0] {
				continue
			}
			fmt.Fprintf(out, "%s: %s\n", name, value)
		}
		return nil
	}

	if len(args) == 0 {
		return errors.New("a device is required")
	}
	dev, err := findDevice(ctx, args[0])
	if err != nil {
		return err
	}
	attrs, err := selectAttrs(dev)
	if err != nil {
		return err
	}

	switch len(args) {
	case 1:
		return printAttrs(out, attrs.String(), attrs)
	case 2:
		value, err := attrs.Read(args[1])
		if err != nil {
			return err
		}
		fmt.Fprintln(out, value)
		return nil
	}
	if err := attrs.Write(args[1], args[2]); err != nil {
		return err
	}
	value, err := attrs.Read(args[1])
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "wrote %s: %s\n", args[1], value)
	return nil
}

func selectAttrs(dev iio.Device) (iio.Attrs, error) {
	switch {
	case attrChannel != "":
		dir := iio.Input
		if attrOutput {
			dir = iio.Output
		}
		ch, ok := dev.FindChannel(attrChannel, dir)
		if !ok {
			return iio.Attrs{}, errors.Errorf("%s has no %s channel %q", dev, dir, attrChannel)
		}
		return ch.Attrs(), nil
	case attrBuffer:
		return dev.BufferAttrs(), nil
	case attrDebug:
		return dev.DebugAttrs(), nil
	}
	return dev.Attrs(), nil
}
