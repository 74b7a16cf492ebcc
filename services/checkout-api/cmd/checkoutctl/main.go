// Command checkoutctl is the operator tool of the checkout reconciler: schema migrations,
// order seeding, checkout link previews and audit log inspection.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg"
	"github.com/nimeshabuddhika/hosted-checkout-reconciler/pkg/database"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var Version = "dev"

func main() {
	pkg.InitLogger("checkoutctl")
	defer func() { _ = pkg.Logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(pkg.Logger).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd(logger *zap.Logger) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "checkoutctl",
		Short:         "Operate the hosted checkout reconciler",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().String("dsn", "", "primary database DSN without the postgres:// prefix (env APP_PRIMARY_DB_ADDR)")

	rootCmd.AddCommand(migrateCmd(logger))
	rootCmd.AddCommand(seedCmd(logger))
	rootCmd.AddCommand(linkCmd(logger))
	rootCmd.AddCommand(auditCmd(logger))
	return rootCmd
}

// primaryDSN prefers the flag and falls back to the service's environment variable.
func primaryDSN(cmd *cobra.Command) (string, error) {
	dsn, _ := cmd.Flags().GetString("dsn")
	if dsn == "" {
		v := viper.New()
		v.SetEnvPrefix("app")
		_ = v.BindEnv("PRIMARY_DB_ADDR")
		dsn = v.GetString("PRIMARY_DB_ADDR")
	}
	if dsn == "" {
		return "", fmt.Errorf("database DSN is required: pass --dsn or set APP_PRIMARY_DB_ADDR")
	}
	return dsn, nil
}

func openDB(ctx context.Context, cmd *cobra.Command, logger *zap.Logger) (*database.DB, func(), error) {
	dsn, err := primaryDSN(cmd)
	if err != nil {
		return nil, nil, err
	}
	return database.New(ctx, logger, database.Config{PrimaryDSN: dsn, MaxConns: 4, MinConns: 1})
}
