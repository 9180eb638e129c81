package main

import (
	"fmt"
	"text/tabwriter"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orrn/printqueue/internal/printer"
)

func newPrintersCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "printers",
		Short: "List configured printers and whether they can take jobs now",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd.Flags(), opts)
			if err != nil {
				return err
			}

			directory := printer.NewDirectory(cfg.Printers.Devices, cfg.Printers.ConnectionTimeout, zerolog.Nop())
			infos := directory.ListInfo()
			if len(infos) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "no printers configured")
				return nil
			}

			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "NAME\tSTATUS\tVALID\tDEFAULT\tNETWORK\tDPI")
			for _, p := range infos {
				fmt.Fprintf(w, "%s\t%s\t%t\t%t\t%t\t%v\n",
					p.Name, p.Status, p.IsValid, p.IsDefault, p.IsNetworkPrinter, p.SupportedResolutions)
			}
			return w.Flush()
		},
	}
}
