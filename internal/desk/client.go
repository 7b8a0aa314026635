// Package desk is a small client for the Zoho Desk knowledge-base API:
// article get/list/create/update and category trees.
package desk

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
	"github.com/ian-melchior/zoho-desk-article-migration/internal/metrics"
)

// DefaultBaseURL is the Zoho Desk API root for the US data center
const DefaultBaseURL = "https://desk.zoho.com/api/v1"

// MaxPageSize is the largest limit the list endpoint accepts
const MaxPageSize = 100

// DefaultTimeout bounds each HTTP request when no timeout is configured
const DefaultTimeout = 30 * time.Second

const maxErrorBody = 4096

// HTTPError represents a non-2xx response
type HTTPError struct {
	StatusCode int
	URL        string
	Body       string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("HTTP %d for %s", e.StatusCode, e.URL)
	}
	return fmt.Sprintf("HTTP %d for %s: %s", e.StatusCode, e.URL, e.Body)
}

// BreakerConfig configures the circuit breaker in front of the API
type BreakerConfig struct {
	MaxRequests      uint32        `yaml:"max_requests"`
	Interval         time.Duration `yaml:"interval"`
	Timeout          time.Duration `yaml:"timeout"`
	FailureThreshold float64       `yaml:"failure_threshold"`
	MinRequests      uint32        `yaml:"min_requests"`
}

// DefaultBreakerConfig returns thresholds that only trip on sustained failure
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// ClientConfig holds connection settings for a Client
type ClientConfig struct {
	BaseURL    string
	OrgID      string
	Timeout    time.Duration
	Breaker    BreakerConfig
	HTTPClient *http.Client
	Logger     *zap.Logger
	Metrics    *metrics.Collector
}

// Client talks to one Zoho Desk organization
type Client struct {
	baseURL     string
	orgID       string
	credentials CredentialProvider
	client      *http.Client
	breaker     *gobreaker.CircuitBreaker
	logger      *zap.Logger
	metrics     *metrics.Collector
}

// NewClient creates a client for the organization in cfg
func NewClient(cfg ClientConfig, credentials CredentialProvider) (*Client, error) {
	if cfg.OrgID == "" {
		return nil, apperrors.NewValidation("organization id is required")
	}
	if credentials == nil {
		return nil, apperrors.NewValidation("credential provider is required")
	}

	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	breakerCfg := cfg.Breaker
	if breakerCfg.MinRequests == 0 {
		breakerCfg = DefaultBreakerConfig()
	}

	return &Client{
		baseURL:     baseURL,
		orgID:       cfg.OrgID,
		credentials: credentials,
		client:      httpClient,
		breaker:     newBreaker(breakerCfg, logger),
		logger:      logger,
		metrics:     cfg.Metrics,
	}, nil
}

func newBreaker(cfg BreakerConfig, logger *zap.Logger) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "zoho-desk",
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return failureRatio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		// 4xx responses are answers, not outages
		IsSuccessful: func(err error) bool {
			var httpErr *HTTPError
			if errors.As(err, &httpErr) {
				return httpErr.StatusCode < http.StatusInternalServerError
			}
			return err == nil
		},
	})
}

// GetArticle fetches a single article with its full body
func (c *Client) GetArticle(ctx context.Context, id string) (Article, error) {
	var article Article
	err := c.do(ctx, "get_article", http.MethodGet, "/articles/"+url.PathEscape(id), nil, nil, &article)
	if err != nil {
		return Article{}, fmt.Errorf("fetching article %s: %w", id, err)
	}
	return article, nil
}

// ListArticles fetches one page of articles. from is one-indexed.
func (c *Client) ListArticles(ctx context.Context, limit, from int) (ArticlePage, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	if from > 0 {
		query.Set("from", strconv.Itoa(from))
	}

	var page ArticlePage
	if err := c.do(ctx, "list_articles", http.MethodGet, "/articles", query, nil, &page); err != nil {
		return ArticlePage{}, fmt.Errorf("listing articles (limit=%d, from=%d): %w", limit, from, err)
	}
	page.Count = len(page.Items)
	return page, nil
}

// CreateArticle creates an article from draft
func (c *Client) CreateArticle(ctx context.Context, draft ArticleDraft) (CreatedArticle, error) {
	var created CreatedArticle
	if err := c.do(ctx, "create_article", http.MethodPost, "/articles", nil, draft, &created); err != nil {
		return CreatedArticle{}, fmt.Errorf("creating article %q: %w", draft.Title, err)
	}
	return created, nil
}

// UpdateArticle patches only the given fields of an article
func (c *Client) UpdateArticle(ctx context.Context, id string, fields map[string]any) (Article, error) {
	var article Article
	err := c.do(ctx, "update_article", http.MethodPatch, "/articles/"+url.PathEscape(id), nil, fields, &article)
	if err != nil {
		return Article{}, fmt.Errorf("updating article %s: %w", id, err)
	}
	return article, nil
}

// GetCategoryTree fetches a category together with all of its descendants
func (c *Client) GetCategoryTree(ctx context.Context, id string) (Category, error) {
	var category Category
	err := c.do(ctx, "get_category", http.MethodGet, "/categories/"+url.PathEscape(id), nil, nil, &category)
	if err != nil {
		return Category{}, fmt.Errorf("fetching category tree %s: %w", id, err)
	}
	return category, nil
}

// do runs one request through the breaker and maps failures onto error kinds
func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body, out any) error {
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return err
	}

	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	start := time.Now()
	_, err = c.breaker.Execute(func() (any, error) {
		return nil, c.send(ctx, method, endpoint, token, body, out)
	})
	elapsed := time.Since(start)

	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	c.metrics.ObserveRequest(op, outcome, elapsed)
	c.logger.Debug("desk request",
		zap.String("op", op),
		zap.String("method", method),
		zap.String("url", endpoint),
		zap.Duration("elapsed", elapsed),
		zap.Error(err))

	if err == nil {
		return nil
	}
	return c.classify(err)
}

func (c *Client) send(ctx context.Context, method, endpoint, token string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Zoho-oauthtoken "+token)
	req.Header.Set("orgId", c.orgID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &HTTPError{
			StatusCode: resp.StatusCode,
			URL:        endpoint,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	// Listing an empty collection answers 204 without a body
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decoding response from %s: %w", endpoint, err)
	}
	return nil
}

type invalidator interface {
	Invalidate()
}

func (c *Client) classify(err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperrors.Wrap(apperrors.KindTransport, err, "zoho desk circuit breaker rejected request")
	}

	var httpErr *HTTPError
	if !errors.As(err, &httpErr) {
		return apperrors.Wrap(apperrors.KindTransport, err, "request failed")
	}

	switch httpErr.StatusCode {
	case http.StatusUnauthorized:
		if inv, ok := c.credentials.(invalidator); ok {
			inv.Invalidate()
		}
		return apperrors.Wrap(apperrors.KindAuth, err, "access token rejected")
	case http.StatusNotFound:
		return apperrors.Wrap(apperrors.KindNotFound, err, "resource not found")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperrors.Wrap(apperrors.KindValidation, err, "request rejected")
	default:
		return apperrors.Wrap(apperrors.KindTransport, err, "unexpected response")
	}
}
