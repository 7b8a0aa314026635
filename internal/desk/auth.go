package desk

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"

	"github.com/ian-melchior/zoho-desk-article-migration/internal/apperrors"
)

// DefaultAccountsURL is the Zoho accounts server for the US data center
const DefaultAccountsURL = "https://accounts.zoho.com"

// CredentialProvider supplies an access token for each API call
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

// StaticToken is a fixed access token, for scripts and tests
type StaticToken string

func (s StaticToken) Token(ctx context.Context) (string, error) {
	if s == "" {
		return "", apperrors.New(apperrors.KindAuth, "empty access token")
	}
	return string(s), nil
}

// OAuthConfig holds the refresh-token grant credentials
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RefreshToken string
	AccountsURL  string
	// Timeout bounds each refresh request when HTTPClient is nil
	Timeout    time.Duration
	HTTPClient *http.Client
}

// OAuthProvider exchanges a long-lived refresh token for access tokens,
// caching each access token until it expires or is invalidated.
type OAuthProvider struct {
	config       *oauth2.Config
	refreshToken string
	httpClient   *http.Client
	logger       *zap.Logger

	mu     sync.Mutex
	source oauth2.TokenSource
}

// NewOAuthProvider validates the credentials and builds a provider
func NewOAuthProvider(cfg OAuthConfig, logger *zap.Logger) (*OAuthProvider, error) {
	var missing []string
	if cfg.ClientID == "" {
		missing = append(missing, "client id")
	}
	if cfg.ClientSecret == "" {
		missing = append(missing, "client secret")
	}
	if cfg.RefreshToken == "" {
		missing = append(missing, "refresh token")
	}
	if len(missing) > 0 {
		return nil, apperrors.Newf(apperrors.KindAuth, "missing OAuth credentials: %s", strings.Join(missing, ", "))
	}

	accountsURL := strings.TrimSuffix(cfg.AccountsURL, "/")
	if accountsURL == "" {
		accountsURL = DefaultAccountsURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	p := &OAuthProvider{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				TokenURL:  accountsURL + "/oauth/v2/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		refreshToken: cfg.RefreshToken,
		httpClient:   httpClient,
		logger:       logger,
	}
	p.source = p.newSource()
	return p, nil
}

func (p *OAuthProvider) newSource() oauth2.TokenSource {
	ctx := context.WithValue(context.Background(), oauth2.HTTPClient, p.httpClient)
	return oauth2.ReuseTokenSource(nil, p.config.TokenSource(ctx, &oauth2.Token{RefreshToken: p.refreshToken}))
}

// Token returns a cached access token, refreshing it when needed
func (p *OAuthProvider) Token(ctx context.Context) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", apperrors.Wrap(apperrors.KindAuth, err, "acquiring access token")
	}

	type result struct {
		tok *oauth2.Token
		err error
	}
	done := make(chan result, 1)
	source := p.source
	go func() {
		tok, err := source.Token()
		done <- result{tok, err}
	}()

	// A refresh left behind by a cancelled ctx is still bounded by the
	// HTTP client timeout.
	select {
	case <-ctx.Done():
		return "", apperrors.Wrap(apperrors.KindAuth, ctx.Err(), "refreshing access token")
	case r := <-done:
		if r.err != nil {
			return "", apperrors.Wrap(apperrors.KindAuth, r.err, "refreshing access token")
		}
		p.logger.Debug("access token ready", zap.Time("expiry", r.tok.Expiry))
		return r.tok.AccessToken, nil
	}
}

// Invalidate discards the cached access token so the next call refreshes
func (p *OAuthProvider) Invalidate() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.source = p.newSource()
	p.logger.Info("access token invalidated")
}
