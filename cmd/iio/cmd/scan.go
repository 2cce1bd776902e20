package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/OpenTraceLab/OpenTraceIIO/internal/logging"
	"github.com/OpenTraceLab/OpenTraceIIO/pkg/iio"
)

var (
	scanBackends string
	scanWait     time.Duration
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "List reachable IIO contexts",
	Long: `Scan local sysfs, the network (ZeroConf), USB and serial ports for IIO
contexts and print their URIs. Nothing is opened or modified.

Examples:
  iio scan
  iio scan --backends ip --wait 5s`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVarP(&scanBackends, "backends", "b", "", "comma separated backends: local, ip, usb, serial (default from config)")
	scanCmd.Flags().DurationVarP(&scanWait, "wait", "w", 3*time.Second, "how long to wait for network answers")
}

func runScan(cmd *cobra.Command, _ []string) error {
	backends := scanBackends
	if backends == "" {
		backends = strings.Join(cfg.Scan, ",")
	}
	ctx, cancel := context.WithTimeout(cmd.Context(), scanWait)
	defer cancel()

	sc, err := iio.NewScanContext(ctx, backends)
	if sc == nil {
		return err
	}
	if err != nil {
		// Backends that answered are still listed.
		logging.Component("scan").Warn("scan incomplete", zap.Error(err))
	}

	out := cmd.OutOrStdout()
	if sc.Len() == 0 {
		fmt.Fprintln(out, "No IIO context found.")
		return nil
	}
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "URI", "Description"})
	i := 0
	for uri, desc := range sc.All() {
		t.AppendRow(table.Row{i, uri, desc})
		i++
	}
	fmt.Fprintf(out, "%d context(s) found:\n", sc.Len())
	fmt.Fprintln(out, t.Render())
	return nil
}
