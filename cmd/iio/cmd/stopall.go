package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var stopAllCmd = &cobra.Command{
	Use:   "stop-all",
	Short: "Stop streaming on every buffer capable device",
	Long: `Stop every buffer capable device of the context so a fresh session can claim
it. Useful after a client died with a buffer still open.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, err := openContext(cfg)
		if err != nil {
			return err
		}
		defer ctx.Close()
		if err := iio.StopAll(ctx); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "All devices stopped.")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(stopAllCmd)
}
