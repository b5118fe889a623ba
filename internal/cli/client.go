// internal/cli/client.go
package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// APIError is a non-2xx answer from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("(%d) %s", e.Status, e.Message)
}

// Raw is a decoded JSON object answer.
type Raw map[string]json.RawMessage

// Extract decodes the value at key into v.
func (r Raw) Extract(key string, v interface{}) error {
	value, ok := r[key]
	if !ok {
		return errors.Errorf("response has no %q", key)
	}
	return errors.Wrapf(json.Unmarshal(value, v), "decode %q", key)
}

// Client calls the backend HTTP API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

// Get issues a GET and returns the status and decoded body.
func (c *Client) Get(ctx context.Context, path string) (int, Raw, error) {
	return c.do(ctx, http.MethodGet, path, nil, "")
}

// Post issues a POST with a JSON body. token, when set, binds the request
// to a wallet session.
func (c *Client) Post(ctx context.Context, path string, body interface{}, token string) (int, Raw, error) {
	return c.do(ctx, http.MethodPost, path, body, token)
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, token string) (int, Raw, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, nil, errors.Wrap(err, "encode request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return 0, nil, errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logrus.WithFields(logrus.Fields{"method": method, "path": path}).Debug("API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, errors.Wrapf(err, "%s %s", method, path)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, errors.Wrap(err, "read response")
	}

	logrus.WithFields(logrus.Fields{
		"method": method,
		"path":   path,
		"status": resp.StatusCode,
	}).Debug("API response")

	var decoded Raw
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return resp.StatusCode, nil, errors.Wrapf(err, "decode %s %s response", method, path)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var message string
		_ = decoded.Extract("error", &message)
		if message == "" {
			message = http.StatusText(resp.StatusCode)
		}
		return resp.StatusCode, decoded, &APIError{Status: resp.StatusCode, Message: message}
	}

	return resp.StatusCode, decoded, nil
}

// Envelope unwraps {"success":true,"response":...} answers.
func Envelope(raw Raw, v interface{}) error {
	return raw.Extract("response", v)
}
