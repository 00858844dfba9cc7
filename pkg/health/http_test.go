package health

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

// healthzNode serves the payload a node emits on /healthz.
func healthzNode(t *testing.T, code int, status string, components map[string]string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/healthz" {
			t.Errorf("unexpected probe path %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":     status,
			"components": components,
			"timestamp":  time.Now(),
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestPeerCheckerHealthyNode(t *testing.T) {
	srv := healthzNode(t, http.StatusOK, "healthy", map[string]string{
		"registry": "healthy",
		"api":      "healthy",
	})

	result := NewPeerChecker(srv.URL).Check(context.Background())

	if !result.Healthy {
		t.Errorf("expected healthy, got: %s", result.Message)
	}
	if !strings.Contains(result.Message, "node reports healthy") {
		t.Errorf("message should carry the node's self-report, got: %s", result.Message)
	}
	if result.Duration <= 0 {
		t.Error("expected positive duration")
	}
}

func TestPeerCheckerUnhealthyNode(t *testing.T) {
	srv := healthzNode(t, http.StatusServiceUnavailable, "unhealthy", map[string]string{
		"registry": "unhealthy: database locked",
		"api":      "healthy",
	})

	result := NewPeerChecker(srv.URL).Check(context.Background())

	if result.Healthy {
		t.Errorf("expected unhealthy, got: %s", result.Message)
	}
	if !strings.Contains(result.Message, "registry") {
		t.Errorf("message should name the failing component, got: %s", result.Message)
	}
}

// A node answering 200 while reporting itself unhealthy is treated as
// unhealthy: the self-report wins over the status code.
func TestPeerCheckerSelfReportOverridesStatusCode(t *testing.T) {
	srv := healthzNode(t, http.StatusOK, "unhealthy", map[string]string{
		"registry": "unhealthy: ingest wedged",
	})

	result := NewPeerChecker(srv.URL).Check(context.Background())

	if result.Healthy {
		t.Errorf("expected unhealthy from self-report, got: %s", result.Message)
	}
}

// Non-JSON bodies fall back to status-code probing so that a peer
// behind a plain load balancer health page still counts as up.
func TestPeerCheckerToleratesOpaqueBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	defer srv.Close()

	result := NewPeerChecker(srv.URL).Check(context.Background())

	if !result.Healthy {
		t.Errorf("expected healthy from status code alone, got: %s", result.Message)
	}
}

func TestPeerCheckerProbePath(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// Trailing slashes on the registered peer URL must not double up.
	NewPeerChecker(srv.URL + "/").Check(context.Background())

	if gotPath != "/healthz" {
		t.Errorf("expected probe on /healthz, got %s", gotPath)
	}
}

func TestPeerCheckerCustomHeaders(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer probe-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewPeerChecker(srv.URL).WithHeader("Authorization", "Bearer probe-token")
	result := checker.Check(context.Background())

	if !result.Healthy {
		t.Errorf("expected healthy with forwarded header, got: %s", result.Message)
	}
}

func TestPeerCheckerUnreachablePeer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // nothing listens anymore

	result := NewPeerChecker(srv.URL).Check(context.Background())

	if result.Healthy {
		t.Errorf("expected unhealthy for a downed peer, got: %s", result.Message)
	}
	if !strings.Contains(result.Message, "peer unreachable") {
		t.Errorf("message should say the peer is unreachable, got: %s", result.Message)
	}
}

func TestPeerCheckerTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	checker := NewPeerChecker(srv.URL).WithTimeout(50 * time.Millisecond)
	result := checker.Check(context.Background())

	if result.Healthy {
		t.Errorf("expected unhealthy on timeout, got: %s", result.Message)
	}
}

func TestPeerCheckerContextCancellation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := NewPeerChecker(srv.URL).Check(ctx)

	if result.Healthy {
		t.Errorf("expected unhealthy on cancelled context, got: %s", result.Message)
	}
}

func TestPeerCheckerType(t *testing.T) {
	checker := NewPeerChecker("http://peer-a.example.org")
	if checker.Type() != CheckTypeHTTP {
		t.Errorf("expected type %s, got %s", CheckTypeHTTP, checker.Type())
	}
}
