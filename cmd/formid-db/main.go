package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/config"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/logging"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/orchestrator"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/internal/storage"
	"github.com/evildarkarchon/FormID-Database-Manager-sub001/pkg/types"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	// Shut down cleanly on Ctrl-C: the orchestrator rolls back the
	// in-flight plugin and reports the run as cancelled.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		dbPath     string
		logLevel   string
		logFormat  string
	)

	root := &cobra.Command{
		Use:           "formid-db",
		Short:         "Scan Bethesda plugin files into a queryable FormID database",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "Config file path")
	root.PersistentFlags().StringVar(&dbPath, "db", "", "Database file path (overrides config)")
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")

	// loadConfig resolves config file, env, and flag overrides for the
	// command being run.
	loadConfig := func() (*config.Config, error) {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		if dbPath != "" {
			cfg.DatabasePath = dbPath
		}
		if logLevel != "" {
			cfg.Log.Level = logLevel
		}
		if logFormat != "" {
			cfg.Log.Format = logFormat
		}
		for _, w := range cfg.Validate() {
			fmt.Fprintf(os.Stderr, "Warning: %s\n", w)
		}
		return cfg, nil
	}

	root.AddCommand(
		newScanCmd(loadConfig),
		newImportCmd(loadConfig),
		newQueryCmd(loadConfig),
		newGamesCmd(),
		newOptimizeCmd(loadConfig),
		newVersionCmd(),
	)
	return root
}

func newScanCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		game    string
		dir     string
		plugins []string
		all     bool
		update  bool
		dryRun  bool
		watch   bool
	)

	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Scan binary plugin files and extract FormID entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			release, err := types.ParseGameRelease(game)
			if err != nil {
				return err
			}

			selected := plugins
			if all {
				selected, err = discoverPlugins(dir)
				if err != nil {
					return err
				}
			}

			params := orchestrator.Params{
				Game:              release,
				GameDir:           dir,
				Plugins:           selected,
				UpdateMode:        update,
				DryRun:            dryRun,
				DBPath:            cfg.DatabasePath,
				ScanBatchSize:     cfg.Scan.BatchSize,
				IgnorablePatterns: cfg.Scan.IgnorablePatterns,
				StringsLanguage:   cfg.StringsLanguage,
				RecentErrors:      cfg.Scan.RecentErrors,
			}

			runner := orchestrator.NewRunner(logger)
			if watch {
				return orchestrator.NewWatcher(runner, logger).Watch(cmd.Context(), params, printProgress)
			}

			summary, err := runner.Run(cmd.Context(), params, printProgress)
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game release (see 'formid-db games')")
	cmd.Flags().StringVar(&dir, "dir", "", "Game data directory")
	cmd.Flags().StringSliceVar(&plugins, "plugins", nil, "Plugin file names to scan, in order")
	cmd.Flags().BoolVar(&all, "all", false, "Scan every plugin in the data directory")
	cmd.Flags().BoolVar(&update, "update", false, "Clear each plugin's existing rows before inserting")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be processed without writing")
	cmd.Flags().BoolVar(&watch, "watch", false, "Keep running and rescan plugins when their files change")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("dir")
	return cmd
}

func newImportCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		game   string
		file   string
		update bool
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a pre-extracted pipe-delimited FormID list file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			logger, err := logging.Setup(os.Stderr, cfg.Log.Level, cfg.Log.Format)
			if err != nil {
				return err
			}

			release, err := types.ParseGameRelease(game)
			if err != nil {
				return err
			}

			params := orchestrator.Params{
				Game:             release,
				FormIDListPath:   file,
				UpdateMode:       update,
				DryRun:           dryRun,
				DBPath:           cfg.DatabasePath,
				ImportBatchSize:  cfg.Import.BatchSize,
				ProgressInterval: cfg.Import.ProgressInterval,
				RecentErrors:     cfg.Scan.RecentErrors,
			}

			summary, err := orchestrator.NewRunner(logger).Run(cmd.Context(), params, printProgress)
			if err != nil {
				return err
			}
			printSummary(summary)
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game release (see 'formid-db games')")
	cmd.Flags().StringVar(&file, "file", "", "FormID list file (pluginName|formIDHex|label per line)")
	cmd.Flags().BoolVar(&update, "update", false, "Clear each plugin's existing rows before inserting")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Report what would be processed without writing")
	_ = cmd.MarkFlagRequired("game")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newQueryCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	var (
		game   string
		formID string
		plugin string
		name   string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the FormID database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			release, err := types.ParseGameRelease(game)
			if err != nil {
				return err
			}

			store, err := storage.New(cfg.DatabasePath, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()

			ctx := cmd.Context()
			switch {
			case formID != "":
				id, err := types.ParseFormID(formID)
				if err != nil {
					return err
				}
				entries, err := store.LookupFormID(ctx, release, id.String())
				if err != nil {
					return err
				}
				printEntries(entries)
			case name != "":
				entries, err := store.SearchByName(ctx, release, name, limit)
				if err != nil {
					return err
				}
				printEntries(entries)
			case plugin != "":
				count, err := store.CountByPlugin(ctx, release, plugin)
				if err != nil {
					return err
				}
				fmt.Printf("%s: %d records\n", plugin, count)
			default:
				plugins, err := store.ListPlugins(ctx, release)
				if err != nil {
					return err
				}
				for _, p := range plugins {
					fmt.Println(p)
				}
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&game, "game", "", "Game release (see 'formid-db games')")
	cmd.Flags().StringVar(&formID, "formid", "", "Look up one form id (hex)")
	cmd.Flags().StringVar(&plugin, "plugin", "", "Count records for one plugin")
	cmd.Flags().StringVar(&name, "name", "", "Search record names by substring")
	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum rows for name search")
	_ = cmd.MarkFlagRequired("game")
	return cmd
}

func newGamesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "games",
		Short: "List supported game releases",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("%-12s %s\n", "RELEASE", "TABLE")
			for _, g := range types.AllReleases {
				table, _ := g.TableName()
				fmt.Printf("%-12s %s\n", g, table)
			}
		},
	}
}

func newOptimizeCmd(loadConfig func() (*config.Config, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "optimize",
		Short: "Run database maintenance",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.DatabasePath, nil)
			if err != nil {
				return err
			}
			defer func() { _ = store.Close() }()
			return store.Optimize(cmd.Context())
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version and build information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("FormID Database Manager\n")
			fmt.Printf("Version: %s\n", version)
			fmt.Printf("Build Time: %s\n", buildTime)
			fmt.Printf("Build Mode: %s\n", storage.BuildMode)
			fmt.Printf("SQLite Driver: %s\n", storage.DriverName)
		},
	}
}

// discoverPlugins lists *.esm/*.esp/*.esl files in dir. os.ReadDir
// returns entries sorted by name.
func discoverPlugins(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading game directory: %w", err)
	}
	var plugins []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".esm", ".esp", ".esl":
			plugins = append(plugins, e.Name())
		}
	}
	return plugins, nil
}

func printProgress(p orchestrator.Progress) {
	if p.Percent != nil {
		fmt.Printf("[%5.1f%%] %s\n", *p.Percent, p.Message)
		return
	}
	fmt.Println(p.Message)
}

func printSummary(s *orchestrator.Summary) {
	fmt.Println(s.Message)
	for _, e := range s.RecentErrors {
		fmt.Fprintf(os.Stderr, "  warning: %s\n", e)
	}
}

func printEntries(entries []types.Entry) {
	for _, e := range entries {
		fmt.Printf("%-30s %s  %s\n", e.Plugin, e.FormID, e.Name)
	}
}
