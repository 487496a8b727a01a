package box

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// APIResult is the uninterpreted outcome of a proxied Box call: the HTTP
// status and the raw response body, error bodies included.
type APIResult struct {
	Status int
	Body   json.RawMessage
}

// GetFolder fetches folder metadata by id with the given bearer token.
// No error checking on the response: non-2xx statuses and their bodies are
// returned as-is for the caller to render.
func (c *Client) GetFolder(ctx context.Context, accessToken, folderID string) (*APIResult, error) {
	endpoint := fmt.Sprintf("%s/2.0/folders/%s", c.cfg.APIBase, url.PathEscape(folderID))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build folder request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch folder %s: %w", folderID, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read folder response: %w", err)
	}

	return &APIResult{Status: resp.StatusCode, Body: body}, nil
}
