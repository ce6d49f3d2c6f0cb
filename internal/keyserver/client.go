// Package keyserver implements the HTTP client for the remote
// authenticator: registering a wrapped key on init, and fetching it
// back on open given a TOTP token. The server side is out of scope;
// only the wire contract this client speaks lives here.
package keyserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const requestTimeout = 15 * time.Second

// Client talks to the key server over TLS only; a non-https URL is
// rejected before any request is attempted.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// New builds a Client for baseURL, which must use the https scheme.
func New(baseURL string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server url: %w", err)
	}
	if u.Scheme != "https" {
		return nil, fmt.Errorf("server url must use https, got %q", u.Scheme)
	}
	return &Client{
		httpClient: &http.Client{Timeout: requestTimeout},
		baseURL:    baseURL,
	}, nil
}

type registerRequest struct {
	UID        string `json:"uid"`
	AuthParams string `json:"auth_params"`
	WrappedKey []byte `json:"wrapped_key"`
}

type fetchRequest struct {
	UID  string `json:"uid"`
	TOTP string `json:"totp"`
}

type fetchResponse struct {
	WrappedKey []byte `json:"wrapped_key"`
}

// Register posts the envelope-wrapped key during vault init. A non-2xx
// response (conflict, auth setup failure) is reported as an error and
// the caller must not proceed to write the metadata file.
func (c *Client) Register(ctx context.Context, uidHex, authParams string, wrappedKey []byte) error {
	body, err := json.Marshal(registerRequest{UID: uidHex, AuthParams: authParams, WrappedKey: wrappedKey})
	if err != nil {
		return fmt.Errorf("marshal register request: %w", err)
	}
	resp, err := c.doWithRetry(ctx, http.MethodPost, "/register", body)
	if err != nil {
		return fmt.Errorf("register with key server: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("key server register failed: status %d", resp.StatusCode)
	}
	return nil
}

// Fetch presents uid and a TOTP token and, on success, returns the
// wrapped key. A 401 or similar is an authentication failure, not a
// transport error, and is never retried.
func (c *Client) Fetch(ctx context.Context, uidHex, totp string) ([]byte, error) {
	body, err := json.Marshal(fetchRequest{UID: uidHex, TOTP: totp})
	if err != nil {
		return nil, fmt.Errorf("marshal fetch request: %w", err)
	}
	resp, err := c.doWithRetry(ctx, http.MethodPost, "/fetch", body)
	if err != nil {
		return nil, fmt.Errorf("fetch from key server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return nil, fmt.Errorf("key server authentication failed")
	}
	if resp.StatusCode/100 != 2 {
		return nil, fmt.Errorf("key server fetch failed: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read fetch response: %w", err)
	}
	var out fetchResponse
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("parse fetch response: %w", err)
	}
	return out.WrappedKey, nil
}

// doWithRetry performs a single transparent retry on a transport-level
// error (connection refused, timeout, DNS failure); HTTP-level
// authentication failures (which the caller inspects via status code)
// are never retried here.
func (c *Client) doWithRetry(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var lastErr error
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := c.httpClient.Do(req)
		if err == nil {
			return resp, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
