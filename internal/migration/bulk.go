package migration

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

// BulkOptions controls MigrateAll
type BulkOptions struct {
	SourceDepartmentID      string // only migrate articles of this department when set
	DestinationDepartmentID string
	DryRun                  bool
	Limit                   int // maximum attempts, 0 for no limit
}

// BulkReport summarises a MigrateAll run
type BulkReport struct {
	Listed   int
	Eligible int
	Skipped  []string // ids the ledger already records as migrated
	Results  []MigrationResult
}

// Counts tallies results by status
func (r BulkReport) Counts() map[Status]int {
	counts := make(map[Status]int)
	for _, result := range r.Results {
		counts[result.Status]++
	}
	return counts
}

// MigrateAll lists every article with pager and migrates those belonging to
// the source department, one at a time. Articles the ledger already records
// as migrated are skipped without an attempt. An authentication failure
// stops the run; other failures only affect their own article. When the
// listing fails part way, the partial set is migrated and the listing error
// is returned with the report.
func (m *Migrator) MigrateAll(ctx context.Context, pager *Pager, opts BulkOptions) (BulkReport, error) {
	var report BulkReport

	articles, listErr := pager.FetchAll(ctx)
	report.Listed = len(articles)
	if listErr != nil {
		if apperrors.Is(listErr, apperrors.KindAuth) {
			return report, fmt.Errorf("listing source articles: %w", listErr)
		}
		listErr = fmt.Errorf("article listing incomplete after %d articles: %w", len(articles), listErr)
	}

	if opts.SourceDepartmentID != "" {
		articles = ArticlesInDepartment(articles, opts.SourceDepartmentID)
	}
	report.Eligible = len(articles)

	for _, article := range articles {
		if opts.Limit > 0 && len(report.Results) >= opts.Limit {
			break
		}

		if m.ledger != nil {
			done, err := m.ledger.Succeeded(ctx, article.ID)
			if err != nil {
				return report, errors.Join(fmt.Errorf("checking ledger for article %s: %w", article.ID, err), listErr)
			}
			if done {
				m.logger.Info("skipping article already migrated", zap.String("article_id", article.ID))
				report.Skipped = append(report.Skipped, article.ID)
				continue
			}
		}

		result := m.MigrateArticle(ctx, article.ID, opts.DestinationDepartmentID, opts.DryRun)
		report.Results = append(report.Results, result)

		if result.Status == StatusFailed && apperrors.Is(result.Err, apperrors.KindAuth) {
			return report, errors.Join(fmt.Errorf("aborting run: %w", result.Err), listErr)
		}
	}

	return report, listErr
}

// ArticlesInDepartment filters articles down to one department
func ArticlesInDepartment(articles []desk.Article, departmentID string) []desk.Article {
	var out []desk.Article
	for _, a := range articles {
		if a.DepartmentID == departmentID {
			out = append(out, a)
		}
	}
	return out
}
