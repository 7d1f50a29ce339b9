package app

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(http.MethodGet, "/api/health", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	response := decodeJSON[map[string]any](t, rr)
	if ok, exists := response["ok"]; !exists || ok != true {
		t.Errorf("expected ok=true, got %v", ok)
	}
	if rr.Header().Get("X-Request-ID") == "" {
		t.Errorf("expected a generated X-Request-ID header")
	}
}

func TestReadyEndpointHealthy(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(http.MethodGet, "/api/ready", "", "")

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d body=%s", rr.Code, rr.Body.String())
	}
	response := decodeJSON[map[string]any](t, rr)
	if response["status"] != "ready" {
		t.Errorf("expected status=ready, got %v", response["status"])
	}
	checks, _ := response["checks"].(map[string]any)
	storeCheck, _ := checks["store"].(map[string]any)
	if storeCheck["status"] != "ok" {
		t.Errorf("expected store status ok, got %v", storeCheck["status"])
	}
}

func TestReadyEndpointStoreDown(t *testing.T) {
	e := newTestEnv(t)
	e.store.failPing.Store(true)
	rr := e.do(http.MethodGet, "/api/ready", "", "")

	if rr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected status 503, got %d", rr.Code)
	}
	response := decodeJSON[map[string]any](t, rr)
	if response["ok"] != false || response["status"] != "not_ready" {
		t.Errorf("expected not_ready, got %v", response)
	}
	checks, _ := response["checks"].(map[string]any)
	storeCheck, _ := checks["store"].(map[string]any)
	if storeCheck["status"] != "error" || storeCheck["error"] != errStoreDown.Error() {
		t.Errorf("expected store error, got %v", storeCheck)
	}
}

func TestRequestIDIsEchoed(t *testing.T) {
	e := newTestEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.Header.Set("X-Request-ID", "req-123")
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, req)

	if got := rr.Header().Get("X-Request-ID"); got != "req-123" {
		t.Errorf("expected X-Request-ID req-123, got %q", got)
	}
}

func TestPreflightSetsCORSHeaders(t *testing.T) {
	e := newTestEnv(t)
	rr := e.do(http.MethodOptions, "/api/content/environment", "", "")

	if rr.Code != http.StatusNoContent {
		t.Fatalf("expected preflight 204, got %d", rr.Code)
	}
	if got := rr.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("expected CORS origin *, got %q", got)
	}
}
