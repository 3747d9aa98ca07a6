package client

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/microsoft"
)

const defaultRedirectAddr = "localhost:8400"

// EntraConfig configures token acquisition against a Microsoft Entra ID
// tenant using the authorization code flow with PKCE.
type EntraConfig struct {
	TenantID string
	ClientID string
	Scopes   []string

	// RedirectAddr is the local address the authorization code is delivered
	// to. Defaults to localhost:8400; it must match the app registration.
	RedirectAddr string

	// RefreshToken seeds the silent acquisition path, typically loaded from
	// a previous session.
	RefreshToken string
}

// EntraAuthenticator implements Authenticator against Entra ID. Claims
// challenges are passed through to the authorize and token endpoints
// unmodified.
type EntraAuthenticator struct {
	oauth        *oauth2.Config
	httpClient   *http.Client
	redirectAddr string

	mu           sync.Mutex
	refreshToken string

	// Prompt is called with the URL the user must open to sign in. It must
	// be set before Interactive is used.
	Prompt func(authURL string)

	// OnToken, if set, is called with every freshly acquired token so the
	// caller can persist it.
	OnToken func(token *oauth2.Token)
}

func NewEntraAuthenticator(cfg EntraConfig) (*EntraAuthenticator, error) {
	if cfg.TenantID == "" {
		return nil, errors.New("tenant id is required")
	}
	if cfg.ClientID == "" {
		return nil, errors.New("client id is required")
	}
	if cfg.RedirectAddr == "" {
		cfg.RedirectAddr = defaultRedirectAddr
	}

	return &EntraAuthenticator{
		oauth: &oauth2.Config{
			ClientID:    cfg.ClientID,
			Endpoint:    microsoft.AzureADEndpoint(cfg.TenantID),
			RedirectURL: "http://" + cfg.RedirectAddr + "/callback",
			Scopes:      withIdentityScopes(cfg.Scopes),
		},
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		redirectAddr: cfg.RedirectAddr,
		refreshToken: cfg.RefreshToken,
	}, nil
}

// withIdentityScopes ensures the identity scopes required for sign-in and
// refresh tokens are always requested.
func withIdentityScopes(scopes []string) []string {
	out := append([]string(nil), scopes...)
	for _, required := range []string{"openid", "offline_access"} {
		found := false
		for _, s := range out {
			if s == required {
				found = true
				break
			}
		}
		if !found {
			out = append(out, required)
		}
	}
	return out
}

// requestScopes resolves the scopes for one acquisition: a challenge's
// scopes take precedence over the configured ones.
func (a *EntraAuthenticator) requestScopes(scopes []string) []string {
	if len(scopes) == 0 {
		return a.oauth.Scopes
	}
	return withIdentityScopes(scopes)
}

type entraTokenResponse struct {
	AccessToken      string `json:"access_token"`
	RefreshToken     string `json:"refresh_token"`
	ExpiresIn        int    `json:"expires_in"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// Silent redeems the cached refresh token. The refresh grant is sent as a
// raw form POST because the claims parameter has to ride along, which the
// oauth2 token source cannot express.
func (a *EntraAuthenticator) Silent(ctx context.Context, scopes []string, claims string) (string, error) {
	a.mu.Lock()
	refreshToken := a.refreshToken
	a.mu.Unlock()

	if refreshToken == "" {
		return "", ErrInteractionRequired
	}

	form := url.Values{
		"client_id":     {a.oauth.ClientID},
		"grant_type":    {"refresh_token"},
		"refresh_token": {refreshToken},
		"scope":         {strings.Join(a.requestScopes(scopes), " ")},
	}
	if claims != "" {
		form.Set("claims", claims)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", a.oauth.Endpoint.TokenURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	var result entraTokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decoding token response: %w", err)
	}

	if resp.StatusCode >= 400 || result.Error != "" {
		switch result.Error {
		case "interaction_required", "invalid_grant":
			// an expired or revoked refresh token also means sign in again
			return "", fmt.Errorf("%w: %s", ErrInteractionRequired, result.Error)
		default:
			return "", fmt.Errorf("token endpoint returned %q: %s", result.Error, result.ErrorDescription)
		}
	}

	a.store(result)
	return result.AccessToken, nil
}

// Interactive runs the authorization code flow: it opens a one-shot
// listener for the redirect, hands the sign-in URL to Prompt and blocks
// until the code arrives or ctx expires.
func (a *EntraAuthenticator) Interactive(ctx context.Context, scopes []string, claims string) (string, error) {
	if a.Prompt == nil {
		return "", errors.New("no prompt configured for interactive sign-in")
	}

	conf := *a.oauth
	conf.Scopes = a.requestScopes(scopes)

	state, err := randomState()
	if err != nil {
		return "", err
	}
	verifier := oauth2.GenerateVerifier()

	authOpts := []oauth2.AuthCodeOption{oauth2.S256ChallengeOption(verifier)}
	if claims != "" {
		authOpts = append(authOpts, oauth2.SetAuthURLParam("claims", claims))
	}

	listener, err := net.Listen("tcp", a.redirectAddr)
	if err != nil {
		return "", fmt.Errorf("listening on %s: %w", a.redirectAddr, err)
	}
	defer func() {
		_ = listener.Close()
	}()

	type callbackResult struct {
		code string
		err  error
	}
	results := make(chan callbackResult, 1)

	server := &http.Server{Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/callback" {
			http.NotFound(w, r)
			return
		}
		query := r.URL.Query()
		if query.Get("state") != state {
			http.Error(w, "state mismatch", http.StatusBadRequest)
			results <- callbackResult{err: errors.New("authorization response state mismatch")}
			return
		}
		if errCode := query.Get("error"); errCode != "" {
			http.Error(w, "sign-in failed", http.StatusBadRequest)
			results <- callbackResult{err: fmt.Errorf("authorization failed: %s (%s)",
				errCode, query.Get("error_description"))}
			return
		}
		_, _ = fmt.Fprintln(w, "Signed in. You can close this window.")
		results <- callbackResult{code: query.Get("code")}
	})}
	go func() {
		_ = server.Serve(listener)
	}()
	defer func() {
		_ = server.Close()
	}()

	a.Prompt(conf.AuthCodeURL(state, authOpts...))

	var code string
	select {
	case result := <-results:
		if result.err != nil {
			return "", result.err
		}
		code = result.code
	case <-ctx.Done():
		return "", fmt.Errorf("waiting for sign-in: %w", ctx.Err())
	}

	token, err := conf.Exchange(
		context.WithValue(ctx, oauth2.HTTPClient, a.httpClient),
		code, oauth2.VerifierOption(verifier))
	if err != nil {
		return "", fmt.Errorf("exchanging authorization code: %w", err)
	}

	a.mu.Lock()
	a.refreshToken = token.RefreshToken
	a.mu.Unlock()
	if a.OnToken != nil {
		a.OnToken(token)
	}
	return token.AccessToken, nil
}

func (a *EntraAuthenticator) store(result entraTokenResponse) {
	a.mu.Lock()
	if result.RefreshToken != "" {
		a.refreshToken = result.RefreshToken
	}
	a.mu.Unlock()

	if a.OnToken != nil {
		a.OnToken(&oauth2.Token{
			AccessToken:  result.AccessToken,
			RefreshToken: result.RefreshToken,
			Expiry:       time.Now().Add(time.Duration(result.ExpiresIn) * time.Second),
		})
	}
}

func randomState() (string, error) {
	raw := make([]byte, 24)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}
