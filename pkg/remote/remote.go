package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Bodies are limited to 5MB to prevent abuse.
const maxBodySize = 5 * 1024 * 1024

// APIError is a non-2xx response from a remote API. The body is kept so the
// caller can surface the server's own explanation.
type APIError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("remote API returned %s: %s", e.Status, e.Body)
}

// NewClient returns the HTTP client used for every remote call.
// The timeout is 30 seconds.
func NewClient() *http.Client {
	return &http.Client{
		Timeout: 30 * time.Second,
	}
}

// DoJSON issues a request with an optional JSON body and decodes a JSON
// response into out. Non-2xx responses are returned as *APIError.
func DoJSON(ctx context.Context, client *http.Client, method, url string, headers http.Header, in, out any) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return err
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	buf, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return err
	}

	// Azure DevOps answers unauthenticated requests with 203 and an HTML
	// sign-in page, so 203 is a failure despite being 2xx.
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices ||
		resp.StatusCode == http.StatusNonAuthoritativeInfo {
		return &APIError{StatusCode: resp.StatusCode, Status: resp.Status, Body: string(buf)}
	}

	if out != nil {
		if err := json.Unmarshal(buf, out); err != nil {
			return fmt.Errorf("decoding response from %s: %w", url, err)
		}
	}
	return nil
}
