package health

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"
)

// maxBodySnippet bounds how much of a failing response is quoted in the result
const maxBodySnippet = 256

// HTTPChecker probes an HTTP health endpoint such as the sentinel agent's
type HTTPChecker struct {
	URL string

	// Status codes in [ExpectedStatusMin, ExpectedStatusMax] are healthy (default 200-399)
	ExpectedStatusMin int
	ExpectedStatusMax int

	// Header is added to every request, e.g. an agent token
	Header http.Header

	Client *http.Client
}

// NewHTTPChecker creates a checker with a 10 second client timeout
func NewHTTPChecker(url string) *HTTPChecker {
	return &HTTPChecker{
		URL:               url,
		ExpectedStatusMin: 200,
		ExpectedStatusMax: 399,
		Client:            &http.Client{Timeout: 10 * time.Second},
	}
}

// Check issues a GET and judges the status code. For unhealthy responses the
// start of the body is included in the message.
func (h *HTTPChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return failed(CheckTypeHTTP, h.URL, start, "invalid request: %v", err)
	}
	for k, values := range h.Header {
		for _, v := range values {
			req.Header.Add(k, v)
		}
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return failed(CheckTypeHTTP, h.URL, start, "request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < h.ExpectedStatusMin || resp.StatusCode > h.ExpectedStatusMax {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodySnippet))
		body := strings.TrimSpace(string(snippet))
		if body == "" {
			body = http.StatusText(resp.StatusCode)
		}
		return failed(CheckTypeHTTP, h.URL, start, "HTTP %d, expected %d-%d: %s",
			resp.StatusCode, h.ExpectedStatusMin, h.ExpectedStatusMax, body)
	}
	return passed(CheckTypeHTTP, h.URL, start, "HTTP "+resp.Status)
}

// Type returns CheckTypeHTTP
func (h *HTTPChecker) Type() CheckType {
	return CheckTypeHTTP
}

// WithTimeout sets the client timeout
func (h *HTTPChecker) WithTimeout(timeout time.Duration) *HTTPChecker {
	h.Client.Timeout = timeout
	return h
}
