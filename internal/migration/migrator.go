// Package migration moves knowledge-base articles from one department to
// another: category remapping, payload transformation, paging through the
// source listing and recording one result per attempt.
package migration

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/metrics"
)

// Config wires the migrator dependencies
type Config struct {
	Source      ArticleGetter
	Destination ArticleCreator // defaults to Source when it can create
	Mapper      *CategoryMapper
	Ledger      Ledger // optional
	Logger      *zap.Logger
	Metrics     *metrics.Collector
	RunID       string // generated when empty
}

// Migrator migrates articles one attempt at a time and keeps an
// append-only log of every attempt. The log lives as long as the Migrator.
type Migrator struct {
	source      ArticleGetter
	destination ArticleCreator
	transformer *Transformer
	ledger      Ledger
	logger      *zap.Logger
	metrics     *metrics.Collector
	runID       string
	now         func() time.Time

	mu  sync.Mutex
	log []MigrationResult
}

// NewMigrator creates a Migrator from cfg
func NewMigrator(cfg Config) (*Migrator, error) {
	if cfg.Source == nil {
		return nil, apperrors.NewValidation("source article store is required")
	}
	if cfg.Mapper == nil {
		return nil, apperrors.NewValidation("category mapper is required")
	}

	destination := cfg.Destination
	if destination == nil {
		creator, ok := cfg.Source.(ArticleCreator)
		if !ok {
			return nil, apperrors.NewValidation("destination article store is required")
		}
		destination = creator
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.NewString()
	}

	return &Migrator{
		source:      cfg.Source,
		destination: destination,
		transformer: NewTransformer(cfg.Mapper),
		ledger:      cfg.Ledger,
		logger:      logger.With(zap.String("run_id", runID)),
		metrics:     cfg.Metrics,
		runID:       runID,
		now:         time.Now,
	}, nil
}

// RunID identifies this migrator's results in the ledger
func (m *Migrator) RunID() string {
	return m.runID
}

// MigrateArticle fetches, transforms and (unless dryRun) creates one
// article. It never retries and always appends exactly one result.
func (m *Migrator) MigrateArticle(ctx context.Context, articleID, destinationDepartmentID string, dryRun bool) MigrationResult {
	logger := m.logger.With(zap.String("article_id", articleID), zap.Bool("dry_run", dryRun))
	logger.Info("migrating article")

	source, err := m.source.GetArticle(ctx, articleID)
	if err != nil {
		return m.record(ctx, logger, m.failed(articleID, "",
			apperrors.Wrap(apperrors.KindSourceFetchFailed, err, "fetching source article")))
	}

	logger.Debug("fetched source article",
		zap.String("title", source.Title),
		zap.String("category_id", source.CategoryID),
		zap.String("department_id", source.DepartmentID),
		zap.Strings("tags", source.Tags))

	transformed, err := m.transformer.Transform(source, destinationDepartmentID)
	if err != nil {
		return m.record(ctx, logger, m.failed(articleID, source.Title, err))
	}

	logger.Debug("transformed article",
		zap.String("category_id", transformed.CategoryID),
		zap.String("department_id", transformed.DepartmentID))

	if dryRun {
		return m.record(ctx, logger, MigrationResult{
			RunID:       m.runID,
			ArticleID:   articleID,
			Title:       source.Title,
			Status:      StatusDryRun,
			Source:      &source,
			Transformed: &transformed,
			Timestamp:   m.now(),
		})
	}

	created, err := m.destination.CreateArticle(ctx, transformed)
	if err != nil {
		return m.record(ctx, logger, m.failed(articleID, source.Title,
			apperrors.Wrap(apperrors.KindDestinationCreateFailed, err, "creating destination article")))
	}

	return m.record(ctx, logger, MigrationResult{
		RunID:        m.runID,
		ArticleID:    articleID,
		Title:        source.Title,
		Status:       StatusSuccess,
		NewArticleID: created.ID,
		NewPermalink: created.Permalink,
		Timestamp:    m.now(),
	})
}

func (m *Migrator) failed(articleID, title string, err error) MigrationResult {
	return MigrationResult{
		RunID:     m.runID,
		ArticleID: articleID,
		Title:     title,
		Status:    StatusFailed,
		Error:     err.Error(),
		ErrorKind: apperrors.KindOf(err),
		Cause:     apperrors.RootKind(err),
		Timestamp: m.now(),
		Err:       err,
	}
}

// record appends result to the log, then reports it to metrics and the
// ledger. Ledger failures are logged and leave the result untouched.
func (m *Migrator) record(ctx context.Context, logger *zap.Logger, result MigrationResult) MigrationResult {
	m.mu.Lock()
	m.log = append(m.log, result)
	m.mu.Unlock()

	m.metrics.ObserveResult(string(result.Status), string(result.ErrorKind))

	switch result.Status {
	case StatusFailed:
		logger.Warn("migration failed",
			zap.String("error_kind", string(result.ErrorKind)),
			zap.String("cause", string(result.Cause)),
			zap.Error(result.Err))
	case StatusDryRun:
		logger.Info("dry run complete", zap.String("category_id", result.Transformed.CategoryID))
	default:
		logger.Info("article migrated",
			zap.String("new_article_id", result.NewArticleID),
			zap.String("permalink", result.NewPermalink))
	}

	if m.ledger != nil {
		if err := m.ledger.Record(ctx, result); err != nil {
			logger.Error("recording result in ledger", zap.Error(err))
		}
	}
	return result
}

// Log returns a copy of every result recorded so far, in attempt order
func (m *Migrator) Log() []MigrationResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]MigrationResult(nil), m.log...)
}
