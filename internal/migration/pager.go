package migration

import (
	"context"
	"fmt"
	"iter"

	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/desk"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/metrics"
)

const (
	DefaultPageSize = desk.MaxPageSize
	DefaultMaxPages = 1000
)

// Pager walks the article listing in fixed windows until it runs dry
type Pager struct {
	store    ArticleLister
	pageSize int
	maxPages int
	logger   *zap.Logger
	metrics  *metrics.Collector
}

// PagerOption configures a Pager
type PagerOption func(*Pager)

// WithPageSize sets the window size, clamped to 1..desk.MaxPageSize
func WithPageSize(n int) PagerOption {
	return func(p *Pager) {
		switch {
		case n <= 0:
			p.pageSize = DefaultPageSize
		case n > desk.MaxPageSize:
			p.pageSize = desk.MaxPageSize
		default:
			p.pageSize = n
		}
	}
}

// WithMaxPages caps the number of non-empty pages. A listing of exactly
// n full pages still completes: one more request is made, and the cap is
// reported only if it returns articles.
func WithMaxPages(n int) PagerOption {
	return func(p *Pager) {
		if n > 0 {
			p.maxPages = n
		}
	}
}

// WithPagerLogger sets the logger
func WithPagerLogger(logger *zap.Logger) PagerOption {
	return func(p *Pager) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithPagerMetrics sets the metrics collector
func WithPagerMetrics(c *metrics.Collector) PagerOption {
	return func(p *Pager) {
		p.metrics = c
	}
}

// NewPager creates a pager over store
func NewPager(store ArticleLister, opts ...PagerOption) *Pager {
	p := &Pager{
		store:    store,
		pageSize: DefaultPageSize,
		maxPages: DefaultMaxPages,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// PageSize returns the window size in use
func (p *Pager) PageSize() int {
	return p.pageSize
}

// Pages yields each non-empty page in order. Offsets are one-indexed and
// advance by the number of items returned. A short or empty page ends the
// walk. A failed request, or a page beyond the cap, yields a final error.
// Every call starts again from offset 1.
func (p *Pager) Pages(ctx context.Context) iter.Seq2[[]desk.Article, error] {
	return func(yield func([]desk.Article, error) bool) {
		offset := 1
		for requests := 0; ; requests++ {
			page, err := p.store.ListArticles(ctx, p.pageSize, offset)
			if err != nil {
				yield(nil, fmt.Errorf("fetching page at offset %d: %w", offset, err))
				return
			}

			n := len(page.Items)
			p.metrics.ObservePage(n)
			p.logger.Debug("fetched article page", zap.Int("offset", offset), zap.Int("count", n))

			if n == 0 {
				return
			}
			if requests >= p.maxPages {
				yield(nil, apperrors.Newf(apperrors.KindPageLimitExceeded,
					"stopped after %d pages at offset %d; the listing has more articles", requests, offset))
				return
			}
			if !yield(page.Items, nil) {
				return
			}
			if n < p.pageSize {
				return
			}
			offset += n
		}
	}
}

// FetchAll collects every article. On failure it returns the articles
// gathered before the failing request together with the error.
func (p *Pager) FetchAll(ctx context.Context) ([]desk.Article, error) {
	var articles []desk.Article
	for items, err := range p.Pages(ctx) {
		if err != nil {
			p.logger.Warn("article listing incomplete",
				zap.Int("collected", len(articles)),
				zap.Error(err))
			return articles, err
		}
		articles = append(articles, items...)
	}
	p.logger.Info("article listing complete", zap.Int("count", len(articles)))
	return articles, nil
}
