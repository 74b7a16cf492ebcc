package main

import (
	"fmt"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func migrateCmd(logger *zap.Logger) *cobra.Command {
	var statusOnly bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the orders and payment audit schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			dsn, err := primaryDSN(cmd)
			if err != nil {
				return err
			}
			if !statusOnly {
				if err = database.RunMigrations(logger, dsn); err != nil {
					return err
				}
			}
			version, dirty, err := database.SchemaVersion(dsn)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (dirty=%t)\n", version, dirty)
			return nil
		},
	}
	cmd.Flags().BoolVar(&statusOnly, "status", false, "only print the applied schema version")
	return cmd
}
