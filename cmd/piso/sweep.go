package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

func sweepCommand(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Run one reminder sweep and print the report as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDatabase(c.cfg)
			if err != nil {
				return err
			}
			defer database.Close()

			report, err := newSweeper(c.cfg, database, nil).Run(cmd.Context(), time.Now())
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return fmt.Errorf("writing report: %w", err)
			}
			return nil
		},
	}
}
