// Package box is the outbound client for the Box API: the OAuth2 token
// endpoint and the folder read endpoint the relay proxies.
package box

import (
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// DefaultAPIBase is the production Box API root.
const DefaultAPIBase = "https://api.box.com"

// Config holds the statically configured OAuth client credentials.
type Config struct {
	APIBase      string // defaults to DefaultAPIBase; override for tests
	ClientID     string
	ClientSecret string
}

// Client talks to the Box API. It is stateless: callers supply the access
// or refresh token for every operation.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient validates the configuration and builds a client with sane
// outbound timeouts.
func NewClient(cfg Config) (*Client, error) {
	if cfg.ClientID == "" {
		return nil, fmt.Errorf("client ID is required")
	}
	if cfg.ClientSecret == "" {
		return nil, fmt.Errorf("client secret is required")
	}
	if cfg.APIBase == "" {
		cfg.APIBase = DefaultAPIBase
	}
	cfg.APIBase = strings.TrimRight(cfg.APIBase, "/")

	return &Client{
		cfg:  cfg,
		http: newHTTPClient(),
	}, nil
}

// AuthorizeURL returns the provider consent page the browser is sent to
// at the start of the authorization-code flow.
func (c *Client) AuthorizeURL() string {
	q := url.Values{}
	q.Set("response_type", "code")
	q.Set("client_id", c.cfg.ClientID)
	return c.cfg.APIBase + "/oauth2/authorize?" + q.Encode()
}

// newHTTPClient builds the outbound HTTP client with explicit timeouts.
// A timeout surfaces as an ordinary transport error to the caller.
func newHTTPClient() *http.Client {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	}

	return &http.Client{
		Timeout:   15 * time.Second,
		Transport: transport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return fmt.Errorf("too many redirects")
			}
			return nil
		},
	}
}
