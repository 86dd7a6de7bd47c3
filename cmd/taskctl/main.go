// Command taskctl runs maintenance tasks against the configured store.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/fastygo/taskflow/internal/config"
	"github.com/fastygo/taskflow/internal/infrastructure/buffer"
	"github.com/fastygo/taskflow/internal/infrastructure/monitor"
	pgInfra "github.com/fastygo/taskflow/internal/infrastructure/postgres"
	"github.com/fastygo/taskflow/internal/infrastructure/storage"
	"github.com/fastygo/taskflow/internal/services"
	"github.com/fastygo/taskflow/pkg/credential"
	"github.com/fastygo/taskflow/pkg/logger"
	authUC "github.com/fastygo/taskflow/usecase/auth"
	"github.com/fastygo/taskflow/usecase/policy"
)

func main() {
	if err := run(context.Background(), os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

type globals struct {
	driver     string
	sqlitePath string
	verbose    bool
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	root := newRootCommand(stdout, stderr)
	root.SetArgs(args)
	return root.ExecuteContext(ctx)
}

func newRootCommand(stdout, stderr io.Writer) *cobra.Command {
	var g globals
	root := &cobra.Command{
		Use:           "taskctl",
		Short:         "Maintenance commands for the taskflow backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().StringVar(&g.driver, "driver", "", "storage driver override (postgres or sqlite)")
	root.PersistentFlags().StringVar(&g.sqlitePath, "sqlite-path", "", "sqlite database path override")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "log at debug level")

	root.AddCommand(
		newMigrateCommand(&g),
		newUserCommand(&g),
		newOutboxCommand(&g),
	)
	return root
}

func (g *globals) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if g.driver != "" {
		cfg.Storage.Driver = g.driver
	}
	if g.sqlitePath != "" {
		cfg.Storage.SQLitePath = g.sqlitePath
	}
	level := "warn"
	if g.verbose {
		level = "debug"
	}
	log, err := logger.New(logger.Config{Level: level, Encoding: "console"})
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func newMigrateCommand(g *globals) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Apply or revert schema migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{string(pgInfra.Up), string(pgInfra.Down)},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			direction := pgInfra.Up
			if len(args) == 1 {
				direction = pgInfra.Direction(args[0])
			}

			switch cfg.Storage.Driver {
			case config.DriverPostgres:
				version, err := pgInfra.Migrate(cfg.Database, cfg.Migrations.Path, direction, log)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "postgres schema at version %d\n", version)
				return nil
			case config.DriverSQLite:
				if direction != pgInfra.Up {
					return fmt.Errorf("sqlite schema cannot be reverted")
				}
				backend, err := storage.Open(cmd.Context(), cfg, log)
				if err != nil {
					return err
				}
				backend.Close()
				fmt.Fprintf(cmd.OutOrStdout(), "sqlite schema applied at %s\n", cfg.Storage.SQLitePath)
				return nil
			default:
				return fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
			}
		},
	}
}

func newUserCommand(g *globals) *cobra.Command {
	userCmd := &cobra.Command{
		Use:   "user",
		Short: "Manage accounts",
	}

	var input authUC.SignUpInput
	create := &cobra.Command{
		Use:   "create",
		Short: "Create an account, for example the first admin",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			backend, err := storage.Open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer backend.Close()

			tokens, err := credential.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.Issuer, cfg.Auth.TokenTTL)
			if err != nil {
				return err
			}
			uc := authUC.New(backend.Users, credential.NewHasher(cfg.Auth.BcryptCost), tokens, log)
			result, err := uc.SignUp(cmd.Context(), input)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s %s (%s)\n", result.User.Role, result.User.Email, result.User.ID)
			return nil
		},
	}
	create.Flags().StringVar(&input.Name, "name", "", "display name")
	create.Flags().StringVar(&input.Email, "email", "", "login email")
	create.Flags().StringVar(&input.Password, "password", "", "initial password")
	create.Flags().StringVar(&input.Role, "role", "user", "one of "+roleNames())
	_ = create.MarkFlagRequired("email")
	_ = create.MarkFlagRequired("password")

	userCmd.AddCommand(create)
	return userCmd
}

func newOutboxCommand(g *globals) *cobra.Command {
	outboxCmd := &cobra.Command{
		Use:   "outbox",
		Short: "Inspect and replay buffered activity entries",
	}

	status := &cobra.Command{
		Use:   "status",
		Short: "Show how many entries are waiting",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			outbox, err := buffer.Open(cfg.Buffer.Path, buffer.DefaultBucket)
			if err != nil {
				return err
			}
			defer outbox.Close()

			size, err := outbox.Len()
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d entries buffered in %s\n", size, cfg.Buffer.Path)
			return nil
		},
	}

	drain := &cobra.Command{
		Use:   "drain",
		Short: "Replay buffered entries into the activity log",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := g.load()
			if err != nil {
				return err
			}
			defer log.Sync()

			backend, err := storage.Open(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer backend.Close()

			outbox, err := buffer.Open(cfg.Buffer.Path, buffer.DefaultBucket)
			if err != nil {
				return err
			}
			defer outbox.Close()

			mon := monitor.New(backend.Pinger, nil, outbox, 0, log)
			if !mon.Check(cmd.Context()).Healthy() {
				return fmt.Errorf("%s store is not reachable", backend.Driver)
			}

			processor := services.NewBufferProcessor(outbox, mon, backend.Activity, log, services.ProcessorConfig{
				BatchSize:  cfg.Buffer.BatchSize,
				MaxRetries: cfg.Buffer.MaxRetry,
				Retention:  cfg.Buffer.Retention,
			})

			var total services.DrainStats
			for {
				stats, err := processor.Drain(cmd.Context())
				total.Replayed += stats.Replayed
				total.Retried += stats.Retried
				total.Dropped += stats.Dropped
				if err != nil {
					return err
				}
				if stats.Replayed+stats.Dropped == 0 {
					break
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "replayed %d, retried %d, dropped %d, remaining %d\n",
				total.Replayed, total.Retried, total.Dropped, processor.Size())
			return nil
		},
	}

	outboxCmd.AddCommand(status, drain)
	return outboxCmd
}

func roleNames() string {
	roles := policy.Roles()
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	return strings.Join(names, ", ")
}
