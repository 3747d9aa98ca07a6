package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/christopherhouse/azure-devops-ai-agent/internal/core"
)

const (
	grantTypeJWTBearer   = "urn:ietf:params:oauth:grant-type:jwt-bearer"
	requestedTokenUseOBO = "on_behalf_of"

	// DefaultAuthority is the Entra ID login endpoint.
	DefaultAuthority = "https://login.microsoftonline.com"
)

// DelegationError is a fatal server-side failure talking to the identity
// provider (network error, invalid client credential, expired secret).
// The caller cannot recover it; the error boundary maps it to a generic 500.
type DelegationError struct {
	// ProviderError is the OAuth2 error string, if the provider returned one.
	ProviderError string

	// Description is the provider's error description. Logged, never echoed.
	Description string

	// StatusCode is the HTTP status of the token endpoint response, if any.
	StatusCode int

	// Err is the underlying transport or decoding error, if any.
	Err error
}

func (e *DelegationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("token exchange failed: %v", e.Err)
	}
	return fmt.Sprintf("token exchange failed: %s (status %d)", e.ProviderError, e.StatusCode)
}

func (e *DelegationError) Unwrap() error {
	return e.Err
}

// OnBehalfOfConfig binds a factory to one confidential client registration.
// The config is immutable for the process lifetime and safe to read from
// concurrent requests without locking.
type OnBehalfOfConfig struct {
	TenantID     string
	ClientID     string
	ClientSecret string

	// Authority overrides the login endpoint, mainly for tests.
	Authority string
}

// OnBehalfOfFactory mints delegated credentials bound to a caller's assertion.
type OnBehalfOfFactory struct {
	cfg        OnBehalfOfConfig
	httpClient *http.Client
}

func NewOnBehalfOfFactory(cfg OnBehalfOfConfig, httpClient *http.Client) (*OnBehalfOfFactory, error) {
	if cfg.TenantID == "" {
		return nil, fmt.Errorf("on-behalf-of factory requires a tenant id")
	}
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("on-behalf-of factory requires a client id")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("on-behalf-of factory requires a client secret")
	}
	if cfg.Authority == "" {
		cfg.Authority = DefaultAuthority
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &OnBehalfOfFactory{cfg: cfg, httpClient: httpClient}, nil
}

// Mint returns a credential that exchanges the given user assertion for
// downstream-scoped access tokens on demand.
func (f *OnBehalfOfFactory) Mint(userAssertion string) (core.TokenCredential, error) {
	if userAssertion == "" {
		return nil, fmt.Errorf("minting requires a user assertion")
	}
	return &OnBehalfOfCredential{
		cfg:        f.cfg,
		assertion:  userAssertion,
		httpClient: f.httpClient,
		cache:      make(map[string]core.AccessToken),
	}, nil
}

// OnBehalfOfCredential performs the OAuth2 on-behalf-of grant against the
// Entra ID v2.0 token endpoint. It is stateless between calls except for
// token caching, which is an optimization only: every underlying request to
// the provider is idempotent and safely repeatable.
type OnBehalfOfCredential struct {
	cfg        OnBehalfOfConfig
	assertion  string
	httpClient *http.Client

	mu    sync.Mutex
	cache map[string]core.AccessToken
}

// tokenResponse is the success body of the v2.0 token endpoint.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// tokenErrorResponse is the failure body of the v2.0 token endpoint.
type tokenErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
	ErrorCodes       []int  `json:"error_codes"`
	Suberror         string `json:"suberror"`
	CorrelationID    string `json:"correlation_id"`

	// Claims is the opaque claims challenge. It must be forwarded verbatim,
	// never parsed or re-encoded.
	Claims string `json:"claims"`
}

func (c *OnBehalfOfCredential) GetToken(ctx context.Context, scopes []string) (core.AccessToken, error) {
	if len(scopes) == 0 {
		return core.AccessToken{}, fmt.Errorf("token request requires at least one scope")
	}

	key := cacheKey(scopes)
	c.mu.Lock()
	cached, ok := c.cache[key]
	c.mu.Unlock()
	if ok && cached.Valid(time.Now()) {
		return cached, nil
	}

	token, err := c.exchange(ctx, scopes)
	if err != nil {
		return core.AccessToken{}, err
	}

	// a result for an abandoned request must never leak into a later one
	if ctx.Err() != nil {
		return core.AccessToken{}, ctx.Err()
	}

	c.mu.Lock()
	c.cache[key] = token
	c.mu.Unlock()
	return token, nil
}

// cacheKey is order independent so reordered scope lists share one entry.
func cacheKey(scopes []string) string {
	sorted := append([]string(nil), scopes...)
	sort.Strings(sorted)
	return strings.Join(sorted, " ")
}

// exchange performs one round trip of the on-behalf-of grant. No lock is held
// while the network call is in flight.
func (c *OnBehalfOfCredential) exchange(ctx context.Context, scopes []string) (core.AccessToken, error) {
	form := url.Values{}
	form.Set("grant_type", grantTypeJWTBearer)
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)
	form.Set("assertion", c.assertion)
	form.Set("scope", strings.Join(scopes, " "))
	form.Set("requested_token_use", requestedTokenUseOBO)

	endpoint := fmt.Sprintf("%s/%s/oauth2/v2.0/token", strings.TrimSuffix(c.cfg.Authority, "/"), c.cfg.TenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return core.AccessToken{}, &DelegationError{Err: fmt.Errorf("creating token request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return core.AccessToken{}, &DelegationError{Err: fmt.Errorf("calling token endpoint: %w", err)}
	}
	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return core.AccessToken{}, c.classifyFailure(resp, scopes)
	}

	var result tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return core.AccessToken{}, &DelegationError{Err: fmt.Errorf("decoding token response: %w", err)}
	}
	if result.AccessToken == "" {
		return core.AccessToken{}, &DelegationError{Err: fmt.Errorf("token endpoint returned an empty access token")}
	}

	tokenType := result.TokenType
	if tokenType == "" {
		tokenType = core.TokenTypeBearer
	}
	return core.AccessToken{
		Token:     result.AccessToken,
		Type:      tokenType,
		ExpiresOn: time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
	}, nil
}

// classifyFailure decides whether a token endpoint failure is a step-up
// challenge the caller can resolve, or a fatal delegation error. The two must
// never be conflated: conflating them would send the user through an
// interactive prompt for what is actually a server misconfiguration.
func (c *OnBehalfOfCredential) classifyFailure(resp *http.Response, scopes []string) error {
	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &DelegationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("reading error response: %w", err)}
	}

	var provider tokenErrorResponse
	if err := json.Unmarshal(body, &provider); err != nil {
		return &DelegationError{StatusCode: resp.StatusCode, Err: fmt.Errorf("unparseable error response: %w", err)}
	}

	if !isInteractionRequired(provider.Error, provider.ErrorCodes) {
		return &DelegationError{
			ProviderError: provider.Error,
			Description:   provider.ErrorDescription,
			StatusCode:    resp.StatusCode,
		}
	}

	errorCode := provider.Error
	if len(provider.ErrorCodes) > 0 {
		errorCode = fmt.Sprintf("AADSTS%d", provider.ErrorCodes[0])
	}
	challenge, err := NewStepUpChallenge(scopes, StepUpDetail{
		ErrorCode:       errorCode,
		ClaimsChallenge: provider.Claims,
		CorrelationID:   provider.CorrelationID,
		Classification:  provider.Suberror,
	})
	if err != nil {
		return &DelegationError{StatusCode: resp.StatusCode, Err: err}
	}
	return challenge
}
