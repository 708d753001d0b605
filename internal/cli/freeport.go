package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"lawmcp/internal/netutil"
)

func (a *app) newFreePortCmd() *cobra.Command {
	var start, end int
	cmd := &cobra.Command{
		Use:   "freeport",
		Short: "Print the first bindable port in a range",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("start") {
				start = a.cfg.Server.PortRangeStart
			}
			if !cmd.Flags().Changed("end") {
				end = a.cfg.Server.PortRangeEnd
			}
			port, err := netutil.FreePort(start, end)
			if err != nil {
				if errors.Is(err, netutil.ErrNoFreePort) {
					return withExitCode(ExitBindFailure, err)
				}
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), port)
			return nil
		},
	}
	cmd.Flags().IntVar(&start, "start", netutil.DefaultPortRangeStart, "first port to probe")
	cmd.Flags().IntVar(&end, "end", netutil.DefaultPortRangeEnd, "end of range (exclusive)")
	return cmd
}
