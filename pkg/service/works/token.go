package works

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/secmon-lab/kakehashi/pkg/domain/model"
	"github.com/secmon-lab/kakehashi/pkg/utils/logging"
	"github.com/secmon-lab/kakehashi/pkg/utils/safe"
	"golang.org/x/sync/singleflight"
)

const (
	// DefaultTokenEndpoint is the LINE WORKS OAuth token endpoint
	DefaultTokenEndpoint = "https://auth.worksmobile.com/b/common/api/v1/oauth/token"

	grantTypeJWTBearer = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	tokenScope         = "bot directory.read"

	// assertionTTL is the lifetime of the signed assertion (exp - iat)
	assertionTTL = time.Hour

	// expiryMargin pre-expires cached tokens to tolerate clock skew and
	// request latency against the remote expiry
	expiryMargin = 5 * time.Minute
)

// TokenSource exchanges a signed JWT assertion for a LINE WORKS access token
// and caches it until shortly before expiry. Concurrent refreshes are
// collapsed into a single exchange.
type TokenSource struct {
	clientID       string
	clientSecret   string
	serviceAccount string
	signKey        jwk.Key

	endpoint   string
	httpClient *http.Client
	now        func() time.Time

	mu     sync.RWMutex
	cached *model.AccessToken
	group  singleflight.Group
}

// TokenOption is a functional option for TokenSource
type TokenOption func(*TokenSource)

// WithTokenEndpoint overrides the OAuth token endpoint
func WithTokenEndpoint(endpoint string) TokenOption {
	return func(x *TokenSource) {
		x.endpoint = endpoint
	}
}

// WithTokenHTTPClient overrides the HTTP client used for the exchange
func WithTokenHTTPClient(client *http.Client) TokenOption {
	return func(x *TokenSource) {
		x.httpClient = client
	}
}

// WithTokenClock overrides the clock. For tests.
func WithTokenClock(now func() time.Time) TokenOption {
	return func(x *TokenSource) {
		x.now = now
	}
}

// NewTokenSource creates a TokenSource. privateKeyPEM must be a PEM-encoded
// RSA private key used to sign the RS256 assertion.
func NewTokenSource(clientID, clientSecret, serviceAccount string, privateKeyPEM []byte, opts ...TokenOption) (*TokenSource, error) {
	if clientID == "" || clientSecret == "" || serviceAccount == "" {
		return nil, goerr.New("client ID, client secret and service account are required")
	}

	key, err := jwk.ParseKey(privateKeyPEM, jwk.WithPEM(true))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to parse RSA private key")
	}

	x := &TokenSource{
		clientID:       clientID,
		clientSecret:   clientSecret,
		serviceAccount: serviceAccount,
		signKey:        key,
		endpoint:       DefaultTokenEndpoint,
		httpClient:     &http.Client{Timeout: 10 * time.Second},
		now:            time.Now,
	}

	for _, opt := range opts {
		opt(x)
	}

	return x, nil
}

// AccessToken returns a valid access token, reusing the cached one when it
// has not reached its pre-expiry margin. On cache miss the JWT-bearer
// exchange is performed once even under concurrent callers.
func (x *TokenSource) AccessToken(ctx context.Context) (string, error) {
	if token, ok := x.cachedToken(); ok {
		return token, nil
	}

	v, err, _ := x.group.Do("token", func() (any, error) {
		// A racing caller may have refreshed the cache already
		if token, ok := x.cachedToken(); ok {
			return token, nil
		}

		logging.From(ctx).Info("exchanging JWT assertion for access token")

		token, err := x.exchange(ctx)
		if err != nil {
			return nil, err
		}

		x.mu.Lock()
		x.cached = token
		x.mu.Unlock()

		return token.Token, nil
	})
	if err != nil {
		return "", err
	}

	return v.(string), nil
}

func (x *TokenSource) cachedToken() (string, bool) {
	x.mu.RLock()
	defer x.mu.RUnlock()

	if x.cached.Valid(x.now()) {
		return x.cached.Token, true
	}
	return "", false
}

// buildAssertion creates the RS256-signed JWT assertion for the exchange
func (x *TokenSource) buildAssertion() (string, error) {
	now := x.now()

	token, err := jwt.NewBuilder().
		Issuer(x.clientID).
		Subject(x.serviceAccount).
		IssuedAt(now).
		Expiration(now.Add(assertionTTL)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build assertion claims")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.RS256, x.signKey))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign assertion")
	}

	return string(signed), nil
}

func (x *TokenSource) exchange(ctx context.Context) (*model.AccessToken, error) {
	assertion, err := x.buildAssertion()
	if err != nil {
		return nil, err
	}

	form := url.Values{}
	form.Set("grant_type", grantTypeJWTBearer)
	form.Set("assertion", assertion)
	form.Set("client_id", x.clientID)
	form.Set("client_secret", x.clientSecret)
	form.Set("scope", tokenScope)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, x.endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, goerr.Wrap(err, "failed to create token request")
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	issuedAt := x.now()
	resp, err := x.httpClient.Do(req)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to request access token")
	}
	defer safe.Close(ctx, resp.Body)

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, goerr.Wrap(err, "failed to read token response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, goerr.New("token endpoint returned an error",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", string(body)),
		)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, goerr.Wrap(err, "failed to parse token response")
	}
	if tokenResp.AccessToken == "" {
		return nil, goerr.New("token response has no access_token")
	}

	return &model.AccessToken{
		Token:     tokenResp.AccessToken,
		ExpiresAt: issuedAt.Add(time.Duration(tokenResp.ExpiresIn)*time.Second - expiryMargin),
	}, nil
}
