// Package cli implements the dailytasks command line.
package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"dailytasks/internal/config"
	"dailytasks/internal/store"
	"dailytasks/internal/taskstore"
)

// version is the application version.
var version = "0.1.0"

// app carries state shared by every subcommand of one invocation.
type app struct {
	v       *viper.Viper
	cfgFile string
	verbose bool
	cfg     *config.Config
	log     *slog.Logger
}

// NewRootCmd builds the command tree. Each call returns an independent tree
// with its own configuration.
func NewRootCmd() *cobra.Command {
	a := &app{v: viper.New()}

	root := &cobra.Command{
		Use:           "dailytasks",
		Short:         "Manage a local task list",
		Long:          "dailytasks keeps a prioritized to-do list in a local store and serves it over HTTP.",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd.ErrOrStderr())
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "config file (default is ./.dailytasks.yaml or $HOME/.dailytasks.yaml)")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.String("driver", "", "storage driver: sqlite, file, redis or memory")
	pf.String("db", "", "SQLite database path")
	pf.String("data-dir", "", "directory for the file driver")
	pf.String("redis-addr", "", "Redis address for the redis driver")

	_ = a.v.BindPFlag("storage.driver", pf.Lookup("driver"))
	_ = a.v.BindPFlag("storage.path", pf.Lookup("db"))
	_ = a.v.BindPFlag("storage.dir", pf.Lookup("data-dir"))
	_ = a.v.BindPFlag("storage.redis.addr", pf.Lookup("redis-addr"))

	root.AddCommand(
		a.newAddCmd(),
		a.newEditCmd(),
		a.newDoneCmd(),
		a.newRmCmd(),
		a.newClearCmd(),
		a.newListCmd(),
		a.newStatsCmd(),
		a.newExportCmd(),
		a.newImportCmd(),
		a.newServeCmd(),
	)

	return root
}

// Execute runs the CLI and exits non-zero on failure.
func Execute() {
	root := NewRootCmd()
	if err := root.Execute(); err != nil {
		fmt.Fprintln(root.ErrOrStderr(), "Error:", err)
		os.Exit(1)
	}
}

func (a *app) init(stderr io.Writer) error {
	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	level := cfg.SlogLevel()
	if a.verbose {
		level = slog.LevelDebug
	}
	a.log = slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	return nil
}

// withTasks opens the configured store for the duration of fn.
func (a *app) withTasks(ctx context.Context, fn func(*taskstore.TaskStore) error, opts ...taskstore.Option) error {
	slot, err := store.Open(ctx, a.cfg.StoreOptions())
	if err != nil {
		return fmt.Errorf("failed to open %s store: %w", a.cfg.Storage.Driver, err)
	}
	defer slot.Close()

	a.log.Debug("store opened", "driver", a.cfg.Storage.Driver)

	tasks, err := taskstore.Open(ctx, slot, append([]taskstore.Option{taskstore.WithLogger(a.log)}, opts...)...)
	if err != nil {
		return err
	}

	return fn(tasks)
}

func parseTaskID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid task id %q", s)
	}
	return id, nil
}
