package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/config"
	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var (
	// Global flags
	verbose bool
	uriFlag string
	timeout time.Duration
	cfgFile string

	// cfg is loaded before any command runs.
	cfg = config.DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:   "iio",
	Short: "Industrial I/O context browser and streaming tool",
	Long: `Inspect IIO contexts, read and write attributes and registers, and stream
samples from or to buffer capable devices. Contexts are opened from a URI
(local:, ip:<host>, usb:<bus>.<addr>.<intf>, serial:<port>,<baud>, xml:<file>);
without one the IIOD_REMOTE environment variable selects a network context.

Examples:
  iio scan                                      # List reachable contexts
  iio info -u ip:192.168.2.1                    # Describe a remote context
  iio attr -u xml:ctx.xml dummydev              # List device attributes
  iio readdev -u local: -s 1024 adc voltage0    # Stream one channel to stdout`,
	Version:           "0.3.0",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVarP(&verbose, "verbose", "v", false, "verbose output")
	flags.StringVarP(&uriFlag, "uri", "u", "", "context URI")
	flags.DurationVarP(&timeout, "timeout", "T", 0, "I/O timeout, 0 blocks forever (default from config)")
	flags.StringVar(&cfgFile, "config", "", "YAML config file")
}

// setup loads the config, lets flags override it and installs the logger.
func setup(cmd *cobra.Command, _ []string) error {
	c, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("uri") {
		c.URI = uriFlag
	}
	if cmd.Flags().Changed("timeout") {
		c.Timeout = timeout
	}
	if verbose {
		c.LogLevel = "debug"
	}
	if err := c.Validate(); err != nil {
		return err
	}
	logger, err := logging.New("iio", c.LogLevel, logging.Format(c.LogFormat))
	if err != nil {
		return err
	}
	logging.ReplaceGlobal(logger)
	cfg = c
	return nil
}

// openContext opens the configured context. Tests replace it.
var openContext = func(c *config.Config) (*iio.Context, error) {
	opts := []iio.Option{iio.WithTimeout(c.Timeout)}
	if c.URI == "" {
		return iio.NewDefaultContext(opts...)
	}
	return iio.NewContextFromURI(c.URI, opts...)
}

func findDevice(ctx *iio.Context, name string) (iio.Device, error) {
	d, ok := ctx.FindDevice(name)
	if !ok {
		return iio.Device{}, errors.Errorf("device %q not found", name)
	}
	return d, nil
}

// scanChannels resolves names to channels of one direction. No names means
// every scan element of that direction.
func scanChannels(d iio.Device, dir iio.Direction, names []string) ([]iio.Channel, error) {
	if len(names) == 0 {
		var out []iio.Channel
		for ch := range d.Channels() {
			if ch.IsScanElement() && ch.Direction() == dir {
				out = append(out, ch)
			}
		}
		if len(out) == 0 {
			return nil, errors.Errorf("device %s has no %s scan elements", d, dir)
		}
		return out, nil
	}
	out := make([]iio.Channel, 0, len(names))
	for _, name := range names {
		ch, ok := d.FindChannel(name, dir)
		if !ok {
			return nil, errors.Errorf("%s channel %q not found on %s", dir, name, d)
		}
		out = append(out, ch)
	}
	return out, nil
}

// enableOnly enables exactly chans among the device's channels.
func enableOnly(d iio.Device, chans []iio.Channel) error {
	for ch := range d.Channels() {
		if ch.IsScanElement() {
			if err := ch.Disable(); err != nil {
				return err
			}
		}
	}
	for _, ch := range chans {
		if err := ch.Enable(); err != nil {
			return err
		}
	}
	return nil
}
