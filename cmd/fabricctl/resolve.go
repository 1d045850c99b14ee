package main

import (
	"strconv"

	"github.com/danmuck/fabricctl/internal/server"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

func newResolveCmd() *cobra.Command {
	var fabric fabricFlags
	cmd := &cobra.Command{
		Use:   "resolve <dpid>...",
		Short: "Show where datapath ids sit in the tree",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			engine, err := fabric.engine(cmd.Flags())
			if err != nil {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.SetHeader([]string{"DPID", "Class", "Coordinate", "Level", "Subtree"})
			table.SetAutoFormatHeaders(false)
			for _, arg := range args {
				dpid, err := strconv.ParseUint(arg, 0, 64)
				if err != nil {
					return err
				}
				view, err := server.Resolve(engine, dpid)
				if err != nil {
					return err
				}
				level := "-"
				if view.Coordinate != "" {
					level = strconv.Itoa(view.Level)
				}
				table.Append([]string{
					strconv.FormatUint(view.DPID, 10),
					view.Class,
					dash(view.Coordinate),
					level,
					dash(view.Subtree),
				})
			}
			table.Render()
			return nil
		},
	}
	fabric.register(cmd.Flags())
	return cmd
}

func dash(v string) string {
	if v == "" {
		return "-"
	}
	return v
}
