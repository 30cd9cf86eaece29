package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spry/internal/cli"
	"spry/internal/log"
	"spry/internal/services"
	"spry/internal/storage"
)

// Config keys double as environment variable names once upper-cased.
const (
	keyDBPath    = "sqlite_db_path"
	keyJWTSecret = "jwt_secret"
	keyTokenTTL  = "token_ttl"
	keyLogLevel  = "log_level"
	keyLogFormat = "log_format"
)

type app struct {
	v *viper.Viper
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:               "spryctl",
		Short:             "Operator tools for the spry budgeting service",
		SilenceUsage:      true,
		PersistentPreRunE: a.initConfig,
	}

	flags := root.PersistentFlags()
	flags.String("db", "./data/spry.db", "SQLite database path")
	flags.String("log-level", "warn", "log level (debug, info, warn, error)")
	flags.String("log-format", "text", "log format (text, json)")
	_ = a.v.BindPFlag(keyDBPath, flags.Lookup("db"))
	_ = a.v.BindPFlag(keyLogLevel, flags.Lookup("log-level"))
	_ = a.v.BindPFlag(keyLogFormat, flags.Lookup("log-format"))

	root.AddCommand(
		a.migrateCmd(),
		a.tokenCmd(),
		a.reconcileCmd(),
		a.summaryCmd(),
	)
	return root
}

// initConfig layers flags over environment variables, including those from
// a local .env file.
func (a *app) initConfig(_ *cobra.Command, _ []string) error {
	cli.LoadEnvFile()
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	a.v.AutomaticEnv()
	a.v.SetDefault(keyTokenTTL, "24h")

	logger, err := log.Setup(a.v.GetString(keyLogLevel), strings.ToLower(a.v.GetString(keyLogFormat)))
	if err != nil {
		return fmt.Errorf("setup logging: %w", err)
	}
	logger.Debug("Configuration loaded", "db", a.v.GetString(keyDBPath))
	return nil
}

// openServices opens the database and builds the service set without an
// event publisher.
func (a *app) openServices() (*services.Services, error) {
	repo, err := storage.NewSQLiteRepository(a.v.GetString(keyDBPath))
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	return services.New(repo, services.Options{}), nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()

	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
