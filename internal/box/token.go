package box

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrTokenExchange marks any failure to obtain tokens from the provider:
// transport errors, unparseable responses, or responses missing required
// fields. Callers match it with errors.Is.
var ErrTokenExchange = errors.New("token exchange failed")

// maxTokenResponseSize bounds how much of a token response is read.
const maxTokenResponseSize = 1 << 20

// TokenResponse is the provider's token-endpoint reply. AccessToken,
// RefreshToken and ExpiresIn are required; everything else is passed
// through as issued.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
}

// ExchangeCode trades an authorization code for a fresh credential set.
func (c *Client) ExchangeCode(ctx context.Context, code string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	return c.token(ctx, form)
}

// RefreshToken trades a refresh token for a fresh credential set.
func (c *Client) RefreshToken(ctx context.Context, refreshToken string) (*TokenResponse, error) {
	form := url.Values{}
	form.Set("grant_type", "refresh_token")
	form.Set("refresh_token", refreshToken)
	return c.token(ctx, form)
}

// token posts a form-encoded grant to the token endpoint and validates the
// response shape. It never touches session storage; callers persist the
// result.
func (c *Client) token(ctx context.Context, form url.Values) (*TokenResponse, error) {
	form.Set("client_id", c.cfg.ClientID)
	form.Set("client_secret", c.cfg.ClientSecret)

	endpoint := c.cfg.APIBase + "/oauth2/token"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("%w: build request: %v", ErrTokenExchange, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenExchange, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxTokenResponseSize))
	if err != nil {
		return nil, fmt.Errorf("%w: read response: %v", ErrTokenExchange, err)
	}

	var tok TokenResponse
	if err := json.Unmarshal(body, &tok); err != nil {
		return nil, fmt.Errorf("%w: malformed response (status %d): %v", ErrTokenExchange, resp.StatusCode, err)
	}

	// Uncontrolled external input: validate the shape instead of trusting it.
	if tok.AccessToken == "" || tok.RefreshToken == "" || tok.ExpiresIn <= 0 {
		return nil, fmt.Errorf("%w: response (status %d) missing required fields", ErrTokenExchange, resp.StatusCode)
	}

	return &tok, nil
}
