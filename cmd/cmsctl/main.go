// Command cmsctl administers CMS content directly against the document store:
// seeding collections, fixing their order, and creating admin accounts.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"ridepool/cms/internal/authpw"
	"ridepool/cms/internal/config"
	"ridepool/cms/internal/logging"
	"ridepool/cms/internal/persist"
	"ridepool/cms/internal/store"
)

// cliStore is what the commands need from a store.
type cliStore interface {
	persist.DocumentStore
	authpw.UserStore
	ListUsers(ctx context.Context) ([]store.User, error)
}

type cli struct {
	cfg     config.Config
	logger  *zap.Logger
	timeout time.Duration

	// open overrides the configured store; tests use it to inject memory.
	open func(ctx context.Context) (cliStore, func(), error)
}

func main() {
	c := &cli{cfg: config.Load()}
	if err := newRootCmd(c).Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(c *cli) *cobra.Command {
	verbose := false
	root := &cobra.Command{
		Use:          "cmsctl",
		Short:        "Administer ride-pool CMS content",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if c.logger != nil {
				return nil
			}
			level := "warn"
			if verbose {
				level = "debug"
			}
			logger, err := logging.New(level, "console")
			if err != nil {
				return err
			}
			c.logger = logger
			return nil
		},
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&c.cfg.Namespace, "namespace", c.cfg.Namespace, "Content namespace (default from CMS_NAMESPACE)")
	root.PersistentFlags().StringVar(&c.cfg.DatabaseURL, "database-url", c.cfg.DatabaseURL, "PostgreSQL URL (default from DATABASE_URL)")
	root.PersistentFlags().StringVar(&c.cfg.HistoryDir, "history-dir", c.cfg.HistoryDir, "Revision history directory (default from CMS_HISTORY_DIR)")
	root.PersistentFlags().DurationVar(&c.timeout, "timeout", time.Minute, "Operation timeout")

	root.AddCommand(
		newListCmd(c),
		newSeedCmd(c),
		newMoveCmd(c),
		newDropCmd(c),
		newReorderCmd(c),
		newRemoveCmd(c),
		newHistoryCmd(c),
		newAdminCmd(c),
		newMigrateCmd(c),
	)
	return root
}

func (c *cli) context(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	timeout := c.timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	return context.WithTimeout(cmd.Context(), timeout)
}

func (c *cli) openStore(ctx context.Context) (cliStore, func(), error) {
	if c.open != nil {
		return c.open(ctx)
	}
	if c.cfg.StoreKind != "postgres" {
		return nil, nil, fmt.Errorf("cmsctl needs CMS_STORE=postgres, got %q", c.cfg.StoreKind)
	}
	db, err := store.Open(ctx, c.cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	return store.NewPostgresStore(db), func() { _ = db.Close() }, nil
}

func newMigrateCmd(c *cli) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := c.context(cmd)
			defer cancel()
			db, err := store.Open(ctx, c.cfg.DatabaseURL)
			if err != nil {
				return err
			}
			defer db.Close()
			if err := store.ApplyMigrations(ctx, db, store.Migrations()); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "migrations applied")
			return nil
		},
	}
}
