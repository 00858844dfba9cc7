package health

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"
)

// healthzBodyLimit caps how much of a peer's health payload is read.
const healthzBodyLimit = 64 << 10

// PeerChecker probes a federation node's /healthz endpoint. The status
// code decides reachability; when the payload carries the node's status
// block, a self-reported "unhealthy" overrides an accepting status code
// and the failing components are named in the result message.
type PeerChecker struct {
	// URL is the full probe URL, derived from the peer's base URL.
	URL string

	// Headers are extra HTTP headers sent with each probe.
	Headers map[string]string

	// StatusMin and StatusMax bound the accepted status codes.
	StatusMin int
	StatusMax int

	// Client is the HTTP client to use (allows custom configuration)
	Client *http.Client
}

// healthzPayload is the body a node serves on /healthz.
type healthzPayload struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// NewPeerChecker creates a checker probing the node at baseURL.
func NewPeerChecker(baseURL string) *PeerChecker {
	return &PeerChecker{
		URL:       strings.TrimSuffix(baseURL, "/") + "/healthz",
		Headers:   make(map[string]string),
		StatusMin: 200,
		StatusMax: 299,
		Client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Check performs one probe against the peer.
func (c *PeerChecker) Check(ctx context.Context) Result {
	start := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("building probe request: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	for key, value := range c.Headers {
		req.Header.Set(key, value)
	}

	resp, err := c.Client.Do(req)
	if err != nil {
		return Result{
			Healthy:   false,
			Message:   fmt.Sprintf("peer unreachable: %v", err),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}
	defer resp.Body.Close()

	healthy := resp.StatusCode >= c.StatusMin && resp.StatusCode <= c.StatusMax
	message := fmt.Sprintf("HTTP %d %s", resp.StatusCode, http.StatusText(resp.StatusCode))
	if !healthy {
		message = fmt.Sprintf("%s (expected %d-%d)", message, c.StatusMin, c.StatusMax)
	}

	var payload healthzPayload
	if err := json.NewDecoder(io.LimitReader(resp.Body, healthzBodyLimit)).Decode(&payload); err == nil && payload.Status != "" {
		message = fmt.Sprintf("%s, node reports %s", message, payload.Status)
		if payload.Status == "unhealthy" {
			healthy = false
			if failing := failingComponents(payload.Components); failing != "" {
				message = fmt.Sprintf("%s (%s)", message, failing)
			}
		}
	}

	return Result{
		Healthy:   healthy,
		Message:   message,
		CheckedAt: start,
		Duration:  time.Since(start),
	}
}

// failingComponents lists the components a node reported as unhealthy.
func failingComponents(components map[string]string) string {
	var failing []string
	for name, state := range components {
		if strings.HasPrefix(state, "unhealthy") {
			failing = append(failing, name)
		}
	}
	sort.Strings(failing)
	return strings.Join(failing, ", ")
}

// Type returns the health check type
func (c *PeerChecker) Type() CheckType {
	return CheckTypeHTTP
}

// WithHeader adds a custom HTTP header to every probe
func (c *PeerChecker) WithHeader(key, value string) *PeerChecker {
	c.Headers[key] = value
	return c
}

// WithStatusRange sets the accepted status code range
func (c *PeerChecker) WithStatusRange(min, max int) *PeerChecker {
	c.StatusMin = min
	c.StatusMax = max
	return c
}

// WithTimeout sets the HTTP client timeout
func (c *PeerChecker) WithTimeout(timeout time.Duration) *PeerChecker {
	c.Client.Timeout = timeout
	return c
}
