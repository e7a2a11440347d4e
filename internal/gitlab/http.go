package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/oauth2"

	. "glclone/internal/log"
)

const apiPrefix = "/api/v4"

/* Client manages access to the Gitlab API.
It adheres to the Repository pattern as well - it is at the boundary to external data (Gitlab API).
All methods are synchronous - channels and pipes are handled by the Lister and the clone command.
*/
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the GitLab instance at baseURL (for example
// https://gitlab.com). The token is sent as an OAuth2 bearer token, which
// GitLab accepts for personal access tokens.
func NewClient(baseURL, token string) *Client {
	transport := http.DefaultTransport
	if Log.IsLevelEnabled(logrus.TraceLevel) {
		transport = &loggingRoundTripper{base: transport}
	}
	if token != "" {
		ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
		transport = &oauth2.Transport{Source: ts, Base: transport}
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    &http.Client{Transport: transport, Timeout: 60 * time.Second},
	}
}

// loggingRoundTripper logs one line per request and response at trace level.
type loggingRoundTripper struct {
	base http.RoundTripper
}

func (t *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()
	Log.Tracef("gitlab api: %s %s", req.Method, req.URL.Redacted())
	resp, err := t.base.RoundTrip(req)
	dur := time.Since(start).Truncate(time.Millisecond)
	if err != nil {
		Log.Tracef("gitlab api: error after %s: %v", dur, err)
	} else {
		Log.Tracef("gitlab api: %d %s (%s)", resp.StatusCode, http.StatusText(resp.StatusCode), dur)
	}
	return resp, err
}

// APIError is returned for any non-2xx answer from the GitLab API.
type APIError struct {
	Method     string
	URL        string
	StatusCode int
	Status     string
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("GitLab API request %s %s failed with status: %s", e.Method, e.URL, e.Status)
	}
	return fmt.Sprintf("GitLab API request %s %s failed with status: %s: %s", e.Method, e.URL, e.Status, e.Message)
}

func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

func IsConflict(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict
}

// IsAlreadyTaken reports whether a create request lost a race against another
// creator of the same group or project.
func IsAlreadyTaken(err error) bool {
	if IsConflict(err) {
		return true
	}
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusBadRequest && strings.Contains(apiErr.Message, "has already been taken")
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body any) (*http.Request, error) {
	u := c.baseURL + apiPrefix + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func gitlabDo[T any](ctx context.Context, c *Client, method, path string, query url.Values, body any) (T, http.Header, error) {
	var emptyResult T
	req, err := c.newRequest(ctx, method, path, query, body)
	if err != nil {
		return emptyResult, nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return emptyResult, nil, err
	}
	defer func(body io.ReadCloser) {
		err := body.Close()
		if err != nil {
			Log.Errorf("Failed to close response body: %v", err)
		}
	}(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return emptyResult, resp.Header, &APIError{
			Method:     method,
			URL:        req.URL.Redacted(),
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Message:    readErrorMessage(resp.Body),
		}
	}

	var decodedResult T
	if err := json.NewDecoder(resp.Body).Decode(&decodedResult); err != nil {
		return emptyResult, resp.Header, fmt.Errorf("failed to decode response from %s: %w", req.URL.Redacted(), err)
	}
	return decodedResult, resp.Header, nil
}

// readErrorMessage extracts the "message" (or "error") member of a GitLab
// error body. The member is either a string or an object of field errors, so
// it is kept as compact JSON text in the latter case.
func readErrorMessage(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, 64*1024))
	if err != nil || len(data) == 0 {
		return ""
	}
	var envelope struct {
		Message json.RawMessage `json:"message"`
		Error   string          `json:"error"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return strings.TrimSpace(string(data))
	}
	if len(envelope.Message) > 0 {
		var text string
		if json.Unmarshal(envelope.Message, &text) == nil {
			return text
		}
		return string(envelope.Message)
	}
	return envelope.Error
}
