package google

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-push-scheduler/internal/domain"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"
)

const (
	// MessagingScope grants send access to the FCM HTTP v1 API.
	MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

	jwtBearerGrant    = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	assertionLifetime = time.Hour
)

type tokenResponse struct {
	AccessToken      string `json:"access_token"`
	ExpiresIn        int64  `json:"expires_in"`
	TokenType        string `json:"token_type"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Minter exchanges a self-signed service-account assertion for a bearer token.
// It implements oauth2.TokenSource; wrap it with NewTokenSource to cache.
type Minter struct {
	key      domain.ServiceAccountKey
	tokenURL string
	client   *http.Client
	timeout  time.Duration
	now      func() time.Time
}

// DefaultTokenURL is used when neither the configuration nor the key file
// names a token endpoint.
const DefaultTokenURL = "https://oauth2.googleapis.com/token"

// NewMinter resolves the token endpoint from tokenURL, then key.TokenURI,
// then DefaultTokenURL.
func NewMinter(key domain.ServiceAccountKey, tokenURL string, client *http.Client, timeout time.Duration) *Minter {
	if client == nil {
		client = http.DefaultClient
	}
	if tokenURL == "" {
		tokenURL = key.TokenURI
	}
	if tokenURL == "" {
		tokenURL = DefaultTokenURL
	}
	return &Minter{key: key, tokenURL: tokenURL, client: client, timeout: timeout, now: time.Now}
}

// Mint signs a fresh assertion and exchanges it. Every failure, from an
// unparsable key to a revoked account, is reported as domain.ErrCredential.
func (m *Minter) Mint(ctx context.Context) (domain.BearerToken, error) {
	privKey, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(m.key.PrivateKeyPEM))
	if err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: parse private key: %w", domain.ErrCredential, err)
	}

	now := m.now()
	assertion, err := SignAssertion(
		assertionHeader{Alg: "RS256", Typ: "JWT"},
		assertionClaims{
			Iss:   m.key.ClientEmail,
			Scope: MessagingScope,
			Aud:   m.tokenURL,
			Iat:   now.Unix(),
			Exp:   now.Add(assertionLifetime).Unix(),
		},
		privKey,
	)
	if err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: %w", domain.ErrCredential, err)
	}

	if m.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, m.timeout)
		defer cancel()
	}

	form := url.Values{"grant_type": {jwtBearerGrant}, "assertion": {assertion}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: build token request: %w", domain.ErrCredential, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := m.client.Do(req)
	if err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: token exchange: %w", domain.ErrCredential, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: read token response: %w", domain.ErrCredential, err)
	}
	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: decode token response (status %d): %w", domain.ErrCredential, resp.StatusCode, err)
	}
	if tr.AccessToken == "" {
		return domain.BearerToken{}, fmt.Errorf("%w: no access token (status %d): %s %s",
			domain.ErrCredential, resp.StatusCode, tr.Error, tr.ErrorDescription)
	}

	lifetime := time.Duration(tr.ExpiresIn) * time.Second
	if lifetime <= 0 {
		lifetime = assertionLifetime
	}
	slog.Info("minted push bearer token", "client_email", m.key.ClientEmail, "expires_in", lifetime)
	return domain.BearerToken{Value: tr.AccessToken, ExpiresAt: now.Add(lifetime).Unix()}, nil
}

// Token implements oauth2.TokenSource.
func (m *Minter) Token() (*oauth2.Token, error) {
	bt, err := m.Mint(context.Background())
	if err != nil {
		return nil, err
	}
	return &oauth2.Token{
		AccessToken: bt.Value,
		TokenType:   "Bearer",
		Expiry:      time.Unix(bt.ExpiresAt, 0),
	}, nil
}

// NewTokenSource caches minted tokens until expiry minus skew, so a burst of
// runs in one process shares a single exchange.
func NewTokenSource(m *Minter, skew time.Duration) oauth2.TokenSource {
	return oauth2.ReuseTokenSourceWithExpiry(nil, m, skew)
}

// Bearer converts a cached oauth2 token back into the domain type.
func Bearer(t *oauth2.Token) domain.BearerToken {
	return domain.BearerToken{Value: t.AccessToken, ExpiresAt: t.Expiry.Unix()}
}

// CachedMinter serves Mint from a caching token source. The exchange itself is
// bounded by the Minter's timeout rather than ctx.
type CachedMinter struct {
	src oauth2.TokenSource
}

func NewCachedMinter(m *Minter, skew time.Duration) *CachedMinter {
	return &CachedMinter{src: NewTokenSource(m, skew)}
}

func (c *CachedMinter) Mint(ctx context.Context) (domain.BearerToken, error) {
	if err := ctx.Err(); err != nil {
		return domain.BearerToken{}, fmt.Errorf("%w: %w", domain.ErrCredential, err)
	}
	t, err := c.src.Token()
	if err != nil {
		return domain.BearerToken{}, err
	}
	return Bearer(t), nil
}
