package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/metrics"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/migration"
)

var (
	configFile  string
	debugMode   bool
	metricsFile string
	dryRun      bool
	migrateAll  bool
	limit       int
)

var rootCmd = &cobra.Command{
	Use:           "desk-migrate",
	Short:         "Migrate Zoho Desk knowledge-base articles between departments",
	Long:          `Copies knowledge-base articles from one Zoho Desk department to another, remapping each article's category through the table in settings.yaml.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

var migrateCmd = &cobra.Command{
	Use:   "migrate [article-id...]",
	Short: "Migrate articles by id, or every source-department article with --all",
	RunE: func(cmd *cobra.Command, args []string) error {
		switch {
		case migrateAll && len(args) > 0:
			return fmt.Errorf("pass article ids or --all, not both")
		case !migrateAll && len(args) == 0:
			return fmt.Errorf("pass at least one article id, or --all")
		}

		return run(cmd, true, func(ctx context.Context, p *MigrationProcessor) error {
			var results []migration.MigrationResult
			if migrateAll {
				report, err := p.MigrateAll(ctx, dryRun, limit)
				if err != nil {
					return err
				}
				results = report.Results
			} else {
				var err error
				if results, err = p.MigrateIDs(ctx, args, dryRun); err != nil {
					return err
				}
			}

			failed := 0
			for _, r := range results {
				if r.Status == migration.StatusFailed {
					failed++
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d migrations failed", failed, len(results))
			}
			return nil
		})
	},
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List articles visible to the organization",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, false, func(ctx context.Context, p *MigrationProcessor) error {
			articles, err := p.ListArticles(ctx, limit)
			printArticles(cmd.OutOrStdout(), articles)
			return err
		})
	},
}

var categoriesCmd = &cobra.Command{
	Use:   "categories",
	Short: "Show both category trees and suggest a category table",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return run(cmd, false, func(ctx context.Context, p *MigrationProcessor) error {
			source, destination, err := p.CategoryTrees(ctx)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			printCategoryTree(out, "Source", source)
			printCategoryTree(out, "Destination", destination)

			fmt.Fprintln(out, "\n# Suggested category table for settings.yaml")
			return writeMappingYAML(out, migration.SuggestMapping(source, destination))
		})
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to settings file (default .desk-migrate/settings.yaml)")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&metricsFile, "metrics-file", "", "Write Prometheus metrics to this file on exit")

	migrateCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Transform and preview without creating articles")
	migrateCmd.Flags().BoolVar(&migrateAll, "all", false, "Migrate every article of the source department")
	migrateCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of articles to attempt with --all")

	listCmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of articles to list")

	rootCmd.AddCommand(migrateCmd, listCmd, categoriesCmd)
}

// run loads configuration, builds a processor and calls fn with it
func run(cmd *cobra.Command, openLedger bool, fn func(context.Context, *MigrationProcessor) error) error {
	logger, err := newLogger(debugMode)
	if err != nil {
		return fmt.Errorf("creating logger: %w", err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	cfg, err := NewConfig(configFile)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	collector := metrics.NewCollector()
	processor, err := NewMigrationProcessor(ctx, cfg, ProcessorOptions{
		Logger:     logger,
		Metrics:    collector,
		Out:        cmd.OutOrStdout(),
		OpenLedger: openLedger,
	})
	if err != nil {
		return err
	}
	defer processor.Close()

	runErr := fn(ctx, processor)

	path := metricsFile
	if path == "" {
		path = cfg.Settings.MetricsFile
	}
	if path != "" {
		if err := collector.WriteToTextfile(path); err != nil {
			logger.Error("failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}
	return runErr
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	return cfg.Build()
}

func main() {
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
