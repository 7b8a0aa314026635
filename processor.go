package main

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/ledger"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/metrics"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/migration"
)

// MigrationProcessor handles the main workflow of one CLI run
type MigrationProcessor struct {
	settings *Settings
	client   *desk.Client
	migrator *migration.Migrator
	ledger   *ledger.Ledger
	metrics  *metrics.Collector
	logger   *zap.Logger
	out      io.Writer
}

// ProcessorOptions controls what NewMigrationProcessor opens
type ProcessorOptions struct {
	Logger     *zap.Logger
	Metrics    *metrics.Collector
	Out        io.Writer
	OpenLedger bool
}

// NewMigrationProcessor creates the desk client, migrator and (optionally)
// the ledger from cfg
func NewMigrationProcessor(ctx context.Context, cfg *Config, opts ProcessorOptions) (*MigrationProcessor, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Credentials.OrgID == "" {
		return nil, apperrors.NewValidation("ZOHO_ORG_ID is not set")
	}

	credentials, err := cfg.CredentialProvider(logger)
	if err != nil {
		return nil, fmt.Errorf("creating credential provider: %w", err)
	}

	s := cfg.Settings
	client, err := desk.NewClient(desk.ClientConfig{
		BaseURL: s.Desk.BaseURL,
		OrgID:   cfg.Credentials.OrgID,
		Timeout: s.Desk.Timeout,
		Breaker: s.Breaker,
		Logger:  logger,
		Metrics: opts.Metrics,
	}, credentials)
	if err != nil {
		return nil, fmt.Errorf("creating desk client: %w", err)
	}

	mapper, err := migration.NewCategoryMapper(s.Categories)
	if err != nil {
		return nil, fmt.Errorf("loading category table: %w", err)
	}

	p := &MigrationProcessor{
		settings: s,
		client:   client,
		metrics:  opts.Metrics,
		logger:   logger,
		out:      opts.Out,
	}
	if p.out == nil {
		p.out = io.Discard
	}

	migratorCfg := migration.Config{
		Source:  client,
		Mapper:  mapper,
		Logger:  logger,
		Metrics: opts.Metrics,
	}
	if opts.OpenLedger {
		p.ledger, err = ledger.Open(ctx, s.Ledger.Driver, s.Ledger.DSN)
		if err != nil {
			return nil, fmt.Errorf("opening ledger: %w", err)
		}
		migratorCfg.Ledger = p.ledger
	}

	p.migrator, err = migration.NewMigrator(migratorCfg)
	if err != nil {
		p.Close()
		return nil, err
	}

	if placeholders := mapper.Placeholders(); len(placeholders) > 0 {
		logger.Warn("category table has unresolved placeholders",
			zap.Int("count", len(placeholders)), zap.Strings("source_categories", placeholders))
	}
	return p, nil
}

// Close releases the ledger, if open
func (p *MigrationProcessor) Close() error {
	if p.ledger == nil {
		return nil
	}
	return p.ledger.Close()
}

func (p *MigrationProcessor) pager() *migration.Pager {
	return migration.NewPager(p.client,
		migration.WithPageSize(p.settings.Desk.PageSize),
		migration.WithMaxPages(p.settings.Desk.MaxPages),
		migration.WithPagerLogger(p.logger),
		migration.WithPagerMetrics(p.metrics))
}

// MigrateIDs migrates the given articles in order. It stops early only when
// authentication fails.
func (p *MigrationProcessor) MigrateIDs(ctx context.Context, ids []string, dryRun bool) ([]migration.MigrationResult, error) {
	results := make([]migration.MigrationResult, 0, len(ids))
	destination := p.settings.Departments.Destination

	fmt.Fprintf(p.out, "Migrating %d articles (run %s)...\n", len(ids), p.migrator.RunID())
	for i, id := range ids {
		fmt.Fprintf(p.out, "[%d/%d] %s\n", i+1, len(ids), id)

		result := p.migrator.MigrateArticle(ctx, id, destination, dryRun)
		results = append(results, result)
		printResult(p.out, result)

		if result.Status == migration.StatusFailed && apperrors.Is(result.Err, apperrors.KindAuth) {
			return results, fmt.Errorf("aborting run: %w", result.Err)
		}
	}

	printSummary(p.out, results, nil)
	return results, nil
}

// MigrateAll migrates every source-department article
func (p *MigrationProcessor) MigrateAll(ctx context.Context, dryRun bool, limit int) (migration.BulkReport, error) {
	fmt.Fprintf(p.out, "Listing articles of department %s (run %s)...\n",
		p.settings.Departments.Source, p.migrator.RunID())

	report, err := p.migrator.MigrateAll(ctx, p.pager(), migration.BulkOptions{
		SourceDepartmentID:      p.settings.Departments.Source,
		DestinationDepartmentID: p.settings.Departments.Destination,
		DryRun:                  dryRun,
		Limit:                   limit,
	})

	fmt.Fprintf(p.out, "Listed %d articles, %d in the source department\n", report.Listed, report.Eligible)
	for _, result := range report.Results {
		printResult(p.out, result)
	}
	printSummary(p.out, report.Results, report.Skipped)
	return report, err
}

// ListArticles returns up to limit articles (all when limit is 0)
func (p *MigrationProcessor) ListArticles(ctx context.Context, limit int) ([]desk.Article, error) {
	var articles []desk.Article
	for items, err := range p.pager().Pages(ctx) {
		if err != nil {
			return articles, err
		}
		for _, a := range items {
			if limit > 0 && len(articles) >= limit {
				return articles, nil
			}
			articles = append(articles, a)
		}
	}
	return articles, nil
}

// CategoryTrees fetches and flattens the source and destination trees
func (p *MigrationProcessor) CategoryTrees(ctx context.Context) (source, destination []desk.FlatCategory, err error) {
	roots := p.settings.CategoryRoots
	if roots.Source == "" || roots.Destination == "" {
		return nil, nil, apperrors.NewValidation("category_roots.source and category_roots.destination must be set")
	}

	sourceTree, err := p.client.GetCategoryTree(ctx, roots.Source)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching source category tree: %w", err)
	}
	destinationTree, err := p.client.GetCategoryTree(ctx, roots.Destination)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching destination category tree: %w", err)
	}
	return desk.FlattenCategoryTree(sourceTree), desk.FlattenCategoryTree(destinationTree), nil
}
