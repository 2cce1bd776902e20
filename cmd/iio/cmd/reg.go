package cmd

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/spf13/cast"
	"github.com/spf13/cobra"
)

var regCmd = &cobra.Command{
	Use:   "reg <device> <address> [value]",
	Short: "Read or write a device register",
	Long: `Access a device register through the debug interface. Address and value
accept decimal, 0x hex and 0 octal.

Examples:
  iio reg ad9361-phy 0x37
  iio reg ad9361-phy 0x37 0x1f`,
	Args: cobra.RangeArgs(2, 3),
	RunE: runReg,
}

func init() {
	rootCmd.AddCommand(regCmd)
}

func runReg(cmd *cobra.Command, args []string) error {
	addr, err := cast.ToUint32E(args[1])
	if err != nil {
		return errors.Wrapf(err, "address %q", args[1])
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

	if len(args) == 3 {
		value, err := cast.ToUint32E(args[2])
		if err != nil {
			return errors.Wrapf(err, "value %q", args[2])
		}
		if err := dev.RegWrite(addr, value); err != nil {
			return err
		}
	}
	value, err := dev.RegRead(addr)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "0x%x: 0x%08x\n", addr, value)
	return nil
}
