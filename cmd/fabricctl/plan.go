package main

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/danmuck/fabricctl/internal/fabric"
	"github.com/danmuck/fabricctl/internal/server"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newPlanCmd() *cobra.Command {
	var (
		fabricOpts fabricFlags
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "plan <dpid> <dst>",
		Short: "Dry-run the rules a switch would install for a destination",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := fabricOpts.engine(cmd.Flags())
			if err != nil {
				return err
			}
			dpid, err := strconv.ParseUint(args[0], 0, 64)
			if err != nil {
				return err
			}
			dst, err := fabric.ParseAddress(args[1])
			if err != nil {
				return err
			}
			plan, err := server.Plan(engine, dpid, dst)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(plan)
			}

			coord := plan.Switch.Coordinate
			if coord == "" {
				coord = plan.Switch.Class
			}
			fmt.Fprintf(out, "switch %d %s -> %s: %s", plan.Switch.DPID, coord, plan.Dst, plan.Verdict)
			if plan.Reason != "" {
				fmt.Fprintf(out, " (%s)", plan.Reason)
			}
			fmt.Fprintln(out)

			if len(plan.Rules) > 0 {
				table := tablewriter.NewWriter(out)
				table.SetHeader([]string{"#", "Match", "Range", "Priority", "Port", "Buffered"})
				table.SetAutoFormatHeaders(false)
				for i, rule := range plan.Rules {
					table.Append([]string{
						strconv.Itoa(i + 1),
						rule.Match,
						dash(rule.Range),
						strconv.Itoa(int(rule.Priority)),
						strconv.FormatUint(uint64(rule.OutPort), 10),
						strconv.FormatBool(rule.Buffered),
					})
				}
				table.Render()
			}
			if po := plan.PacketOut; po != nil {
				port := strconv.FormatUint(uint64(po.OutPort), 10)
				if po.Flood {
					port = "ALL"
				}
				fmt.Fprintf(out, "packet-out: port %s\n", port)
			}
			return nil
		},
	}
	fabricOpts.register(cmd.Flags())
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the plan as JSON")
	return cmd
}
