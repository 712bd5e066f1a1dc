// Package resolve turns user-entered barcode identifiers into loadable image
// URLs via the lookup endpoint, with a fast path for direct URLs.
package resolve

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ResolutionError reports that a token could not be resolved to a loadable
// URL. It is scoped to a single group and never aborts the page render.
type ResolutionError struct {
	Token  string
	Reason string
	Err    error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("resolve %q: %s: %v", e.Token, e.Reason, e.Err)
	}
	return fmt.Sprintf("resolve %q: %s", e.Token, e.Reason)
}

func (e *ResolutionError) Unwrap() error { return e.Err }

// Client queries the resolver endpoint.
type Client struct {
	base   string
	client *http.Client
}

// New creates a client for the resolver at base (e.g. "http://localhost:8080").
// A nil client gets a default with a sane timeout.
func New(base string, client *http.Client) *Client {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{base: strings.TrimRight(base, "/"), client: client}
}

type resolveResponse struct {
	ImageURL string `json:"imageUrl"`
	Error    string `json:"error"`
}

// Resolve maps a token to a loadable image URL. Tokens that already are
// http(s) URLs skip the lookup endpoint: a HEAD existence check against the
// URL itself decides validity. Any non-2xx status or malformed lookup body
// is a ResolutionError.
func (c *Client) Resolve(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", &ResolutionError{Token: token, Reason: "empty identifier"}
	}
	if strings.HasPrefix(token, "http://") || strings.HasPrefix(token, "https://") {
		return c.checkDirect(ctx, token)
	}
	return c.lookup(ctx, token)
}

func (c *Client) checkDirect(ctx context.Context, target string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, target, nil)
	if err != nil {
		return "", &ResolutionError{Token: target, Reason: "invalid URL", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ResolutionError{Token: target, Reason: "URL unreachable", Err: err}
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", &ResolutionError{Token: target, Reason: fmt.Sprintf("unexpected status %s", resp.Status)}
	}
	return target, nil
}

func (c *Client) lookup(ctx context.Context, token string) (string, error) {
	if c.base == "" {
		return "", &ResolutionError{Token: token, Reason: "no resolver endpoint configured"}
	}
	endpoint := fmt.Sprintf("%s/resolve?number=%s", c.base, url.QueryEscape(token))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", &ResolutionError{Token: token, Reason: "invalid resolver URL", Err: err}
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "", &ResolutionError{Token: token, Reason: "lookup service unreachable", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", &ResolutionError{Token: token, Reason: "reading lookup response", Err: err}
	}

	var decoded resolveResponse
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		reason := fmt.Sprintf("lookup failed with status %s", resp.Status)
		if json.Unmarshal(body, &decoded) == nil && decoded.Error != "" {
			reason = decoded.Error
		}
		return "", &ResolutionError{Token: token, Reason: reason}
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		return "", &ResolutionError{Token: token, Reason: "malformed lookup response", Err: err}
	}
	if decoded.ImageURL == "" {
		return "", &ResolutionError{Token: token, Reason: "malformed lookup response: imageUrl missing"}
	}
	return decoded.ImageURL, nil
}
