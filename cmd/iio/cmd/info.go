package cmd

import (
	"fmt"
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var infoAttrs bool

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Describe a context, its devices and channels",
	Long: `Open a context and print its attributes, devices, channels and scan element
formats.

Examples:
  iio info -u xml:ctx.xml
  iio info -u ip:pluto.local --attrs`,
	Args: cobra.NoArgs,
	RunE: runInfo,
}

func init() {
	rootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVarP(&infoAttrs, "attrs", "a", false, "also print device and channel attribute values")
}

func runInfo(cmd *cobra.Command, _ []string) error {
	ctx, err := openContext(cfg)
	if err != nil {
		return err
	}
	defer ctx.Close()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Library version: %s\n", iio.LibraryVersion())
	fmt.Fprintf(out, "Backend: %s\n", ctx.Backend())
	fmt.Fprintf(out, "IIO context: %s\n", ctx.Name())
	if desc := ctx.Description(); desc != "" {
		fmt.Fprintf(out, "Description: %s\n", desc)
	}
	if v, err := ctx.Version(); err == nil {
		fmt.Fprintf(out, "Backend version: %s\n", v)
	}

	if ctx.NumAttrs() > 0 {
		t := table.NewWriter()
		t.SetTitle("Context attributes")
		t.AppendHeader(table.Row{"Name", "Value"})
		for name, value := range ctx.Attributes() {
			t.AppendRow(table.Row{name, value})
		}
		fmt.Fprintln(out, t.Render())
	}

	fmt.Fprintf(out, "%d device(s) found:\n", ctx.NumDevices())
	for d := range ctx.Devices() {
		if err := printDevice(out, d); err != nil {
			return err
		}
	}
	return nil
}

func printDevice(out io.Writer, d iio.Device) error {
	title := d.ID() + ": " + d.Name()
	if d.Label() != "" {
		title += " (" + d.Label() + ")"
	}
	if d.IsTrigger() {
		title += " [trigger]"
	} else if d.IsBufferCapable() {
		title += " [buffer capable]"
	}
	fmt.Fprintln(out, title)

	if d.NumChannels() > 0 {
		t := table.NewWriter()
		t.AppendHeader(table.Row{"Channel", "Name", "Direction", "Type", "Index", "Format", "Attributes"})
		for ch := range d.Channels() {
			index, format := "", ""
			if ch.IsScanElement() {
				index = strconv.Itoa(ch.Index())
				format = ch.DataFormat().String()
			}
			t.AppendRow(table.Row{ch.ID(), ch.Name(), ch.Direction(), ch.Type(), index, format, ch.NumAttrs()})
		}
		fmt.Fprintln(out, t.Render())
		if infoAttrs {
			for ch := range d.Channels() {
				if err := printAttrs(out, "channel "+ch.ID(), ch.Attrs()); err != nil {
					return err
				}
			}
		}
	}

	groups := []struct {
		name  string
		attrs iio.Attrs
	}{
		{"device", d.Attrs()},
		{"buffer", d.BufferAttrs()},
		{"debug", d.DebugAttrs()},
	}
	for _, g := range groups {
		if g.attrs.Len() == 0 {
			continue
		}
		if !infoAttrs {
			fmt.Fprintf(out, "  %d %s attribute(s)\n", g.attrs.Len(), g.name)
			continue
		}
		if err := printAttrs(out, g.name+" attributes", g.attrs); err != nil {
			return err
		}
	}
	return nil
}

func printAttrs(out io.Writer, title string, attrs iio.Attrs) error {
	if attrs.Len() == 0 {
		return nil
	}
	t := table.NewWriter()
	t.SetTitle(title)
	t.AppendHeader(table.Row{"Attribute", "Value"})
	for name := range attrs.All() {
		value, err := attrs.Read(name)
		if err != nil {
			value = "ERROR: " + err.Error()
		}
		t.AppendRow(table.Row{name, value})
	}
	fmt.Fprintln(out, t.Render())
	return nil
}
