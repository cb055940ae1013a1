package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/piso3/piso/internal/household"
)

func initCommand(c *cli) *cobra.Command {
	var householdPath string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create the database and provision the household",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return initHousehold(cmd.Context(), c, householdPath, cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVar(&householdPath, "household", "", "YAML file listing roommates and supplies")
	cmd.MarkFlagRequired("household")
	return cmd
}

func initHousehold(ctx context.Context, c *cli, householdPath string, out io.Writer) error {
	dbPath := c.cfg.DatabasePath
	if _, err := os.Stat(dbPath); err == nil {
		return fmt.Errorf("database file %s already exists", dbPath)
	}

	f, err := household.Load(householdPath)
	if err != nil {
		return err
	}

	database, err := openDatabase(c.cfg)
	if err != nil {
		return err
	}

	creds, err := household.Apply(ctx, database, f)
	database.Close()
	if err != nil {
		for _, suffix := range []string{"", "-wal", "-shm"} {
			os.Remove(dbPath + suffix)
		}
		return fmt.Errorf("provisioning household: %w", err)
	}

	printInitResult(out, dbPath, f, creds)
	return nil
}

// printInitResult prints the provisioned accounts. Generated passwords are
// shown only here.
func printInitResult(out io.Writer, dbPath string, f *household.File, creds []household.Credential) {
	fmt.Fprintf(out, "Database created: %s\n", dbPath)
	fmt.Fprintf(out, "Roommates: %d, supplies: %d\n", len(f.Roommates), len(f.Supplies))
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Accounts:")
	for _, cred := range creds {
		if cred.Generated {
			fmt.Fprintf(out, "  %-16s %s\n", cred.Username, cred.Password)
		} else {
			fmt.Fprintf(out, "  %-16s (password from household file)\n", cred.Username)
		}
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, "Save the generated passwords, they cannot be recovered.")
	fmt.Fprintln(out, "Everyone can change their password under Settings.")
}
