package client

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	defaultInteractiveTimeout = 5 * time.Minute
	defaultReplayTimeout      = 30 * time.Second
)

// Client is an HTTP client for the agent API. When an Authenticator is
// configured, it transparently handles step-up challenges: a challenged
// request is replayed exactly once after the token has been reacquired.
type Client struct {
	baseURL            string
	httpClient         *http.Client
	auth               Authenticator
	interactiveTimeout time.Duration
	replayTimeout      time.Duration

	mu        sync.Mutex
	authToken string
}

type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithAuthToken sets the initial bearer token.
func WithAuthToken(token string) Option {
	return func(c *Client) {
		c.authToken = token
	}
}

// WithAuthenticator enables transparent step-up handling.
func WithAuthenticator(a Authenticator) Option {
	return func(c *Client) {
		c.auth = a
	}
}

// WithInteractiveTimeout bounds how long an interactive sign-in triggered by
// a step-up challenge may take.
func WithInteractiveTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.interactiveTimeout = d
	}
}

// WithReplayTimeout bounds the replay of a challenged request. The replay
// does not inherit the original request's deadline.
func WithReplayTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.replayTimeout = d
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:            strings.TrimSuffix(baseURL, "/"),
		httpClient:         http.DefaultClient,
		interactiveTimeout: defaultInteractiveTimeout,
		replayTimeout:      defaultReplayTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Token returns the bearer token currently in use.
func (c *Client) Token() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.authToken
}

func (c *Client) setToken(token string) {
	c.mu.Lock()
	c.authToken = token
	c.mu.Unlock()
}

type urlBuilder struct {
	base  string
	path  string
	query url.Values
}

func (c *Client) url() *urlBuilder {
	return &urlBuilder{base: c.baseURL, query: url.Values{}}
}

func (b *urlBuilder) setPath(path string) *urlBuilder {
	b.path = path
	return b
}

func (b *urlBuilder) addQueryParam(key string, value any) *urlBuilder {
	b.query.Set(key, fmt.Sprint(value))
	return b
}

func (b *urlBuilder) build() string {
	u := b.base + b.path
	if len(b.query) > 0 {
		u += "?" + b.query.Encode()
	}
	return u
}
