package service

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"blogfront/app/config"
	"blogfront/app/logging"
	"blogfront/app/repositories"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// DefaultBackupDir is where backup writes when no file is given.
const DefaultBackupDir = "data/backups"

type rootOptions struct {
	configPath string
	debug      bool
}

// load reads the configuration and builds the logger for a command.
func (o *rootOptions) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}
	if o.debug {
		cfg.Debug = true
	}
	logger, err := logging.New(cfg.Debug)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

// NewRootCommand builds the blogfront command tree.
func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "blogfront",
		Short: "Serve a blog's public pages from a relational or embedded store",
		Long: `blogfront renders the homepage, post pages, tag listings and contacts page
of a blog, as HTML or as JSON under /api.

Configuration comes from an optional YAML file (--config) and BLOGFRONT_*
environment variables, e.g. BLOGFRONT_DATABASE_DRIVER=sqlite.`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.configPath, "config", "", "path to a YAML config file")
	root.PersistentFlags().BoolVar(&opts.debug, "debug", false, "enable debug logging")

	root.AddCommand(
		newServeCommand(opts),
		newSeedCommand(opts),
		newBackupCommand(opts),
		newRestoreCommand(opts),
		newCleanCommand(opts),
		newVersionCommand(version),
	)
	return root
}

func newServeCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the blog HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			app, err := NewApp(cfg, logger)
			if err != nil {
				return err
			}
			defer app.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return app.Run(ctx)
		},
	}
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "seed <fixture.yaml>",
		Short: "Load a YAML fixture into the configured store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := opts.load()
			if err != nil {
				return err
			}
			defer logger.Sync()

			ds, err := repositories.LoadDataset(args[0])
			if err != nil {
				return err
			}
			store, err := OpenBackend(cfg.Database, cfg.Debug, true)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Import(cmd.Context(), ds); err != nil {
				return fmt.Errorf("seed: %w", err)
			}
			logger.Info("fixture loaded", zap.String("file", args[0]), zap.Int("posts", len(ds.Posts)))
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d authors, %d tags, %d posts, %d comments, %d likes\n",
				len(ds.Authors), len(ds.Tags), len(ds.Posts), len(ds.Comments), len(ds.Likes))
			return nil
		},
	}
}

// openBadger opens the configured store and rejects non-badger drivers.
func openBadger(cfg *config.Config) (*repositories.BadgerStore, error) {
	if cfg.Database.Driver != "badger" {
		return nil, fmt.Errorf("backup and restore need the badger driver, configured driver is %q", cfg.Database.Driver)
	}
	return repositories.OpenBadgerStore(cfg.Database.DSN)
}

func newBackupCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "backup [file]",
		Short: "Write a full backup of the badger store",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			if cfg.Database.DSN != "" {
				if _, err := os.Stat(cfg.Database.DSN); os.IsNotExist(err) {
					return fmt.Errorf("no database exists to backup at %s", cfg.Database.DSN)
				}
			}

			backupFile := filepath.Join(DefaultBackupDir, fmt.Sprintf("backup_%d.db", time.Now().Unix()))
			if len(args) == 1 {
				backupFile = args[0]
			}
			if err := os.MkdirAll(filepath.Dir(backupFile), 0755); err != nil {
				return fmt.Errorf("create backup directory: %w", err)
			}

			store, err := openBadger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			f, err := os.Create(backupFile)
			if err != nil {
				return fmt.Errorf("create backup file: %w", err)
			}
			defer f.Close()

			if err := store.Backup(f); err != nil {
				return fmt.Errorf("backup: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Database backed up successfully to %s\n", backupFile)
			return nil
		},
	}
}

func newRestoreCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <file>",
		Short: "Load a backup into the badger store",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}

			f, err := os.Open(args[0])
			if os.IsNotExist(err) {
				return fmt.Errorf("backup file does not exist: %s", args[0])
			}
			if err != nil {
				return fmt.Errorf("open backup file: %w", err)
			}
			defer f.Close()

			fi, err := f.Stat()
			if err != nil {
				return fmt.Errorf("stat backup file: %w", err)
			}
			if fi.Size() == 0 {
				return fmt.Errorf("backup file is empty: %s", args[0])
			}

			store, err := openBadger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Restore(f); err != nil {
				return fmt.Errorf("restore: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Database restored successfully")
			return nil
		},
	}
}

func newCleanCommand(opts *rootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Drop every record from the badger store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := opts.load()
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if !yes && !confirm(cmd.InOrStdin(), out, "Are you sure you want to clean the database? This cannot be undone. [y/N] ") {
				fmt.Fprintln(out, "Operation cancelled")
				return nil
			}

			store, err := openBadger(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.Clear(); err != nil {
				return fmt.Errorf("clean: %w", err)
			}
			fmt.Fprintln(out, "Database cleaned successfully")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func newVersionCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "blogfront version %s\n", version)
		},
	}
}

func confirm(in io.Reader, out io.Writer, prompt string) bool {
	fmt.Fprint(out, prompt)
	answer, _ := bufio.NewReader(in).ReadString('\n')
	answer = strings.TrimSpace(answer)
	return answer == "y" || answer == "Y"
}

// Execute runs the command tree with ctx and returns a process exit code.
func Execute(ctx context.Context, root *cobra.Command) int {
	if err := root.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}
