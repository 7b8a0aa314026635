package migration

import (
	"context"
	"time"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
)

// TransformedArticle is the creation payload for the destination department
type TransformedArticle = desk.ArticleDraft

// Status represents the outcome of a migration attempt
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
	StatusDryRun  Status = "dry_run"
)

// MigrationResult records one migration attempt
type MigrationResult struct {
	RunID        string              `json:"run_id,omitempty"`
	ArticleID    string              `json:"article_id"`
	Title        string              `json:"title,omitempty"`
	Status       Status              `json:"status"`
	Error        string              `json:"error,omitempty"`
	ErrorKind    apperrors.Kind      `json:"error_kind,omitempty"`
	Cause        apperrors.Kind      `json:"cause,omitempty"`
	NewArticleID string              `json:"new_article_id,omitempty"`
	NewPermalink string              `json:"new_permalink,omitempty"`
	Source       *desk.Article       `json:"source,omitempty"`
	Transformed  *TransformedArticle `json:"transformed,omitempty"`
	Timestamp    time.Time           `json:"timestamp"`

	// Err is the error behind a failed attempt
	Err error `json:"-"`
}

// ArticleGetter fetches source articles by id
type ArticleGetter interface {
	GetArticle(ctx context.Context, id string) (desk.Article, error)
}

// ArticleLister lists articles one window at a time
type ArticleLister interface {
	ListArticles(ctx context.Context, limit, from int) (desk.ArticlePage, error)
}

// ArticleCreator creates articles in the destination
type ArticleCreator interface {
	CreateArticle(ctx context.Context, draft desk.ArticleDraft) (desk.CreatedArticle, error)
}

// Ledger persists migration results across runs
type Ledger interface {
	Record(ctx context.Context, result MigrationResult) error
	Succeeded(ctx context.Context, articleID string) (bool, error)
}
