package remote_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"unified-control/internal/domain"
	"unified-control/internal/infra/remote"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func staticStatus() map[domain.Role]domain.LinkState {
	return map[domain.Role]domain.LinkState{
		domain.RoleActuator: domain.LinkConnected,
		domain.RoleLighting: domain.LinkDisconnected,
	}
}

func TestSource_CommandReachesNextCommand(t *testing.T) {
	source := remote.NewSource("127.0.0.1:0", "", 30, staticStatus, nil, testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	if err := source.Start(ctx); err != nil {
		t.Fatalf("starting source: %v", err)
	}
	defer source.Stop()

	resp, err := http.Post("http://"+source.Addr()+"/command", "text/plain", strings.NewReader("  f,50 \n"))
	if err != nil {
		t.Fatalf("posting command: %v", err)
	}
	resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("status code: got %d, want %d", resp.StatusCode, http.StatusAccepted)
	}

	cmd, err := source.NextCommand(ctx)
	if err != nil {
		t.Fatalf("next command: %v", err)
	}
	if cmd != "f,50" {
		t.Errorf("command: got %q, want f,50", cmd)
	}
}

func TestSource_StopEndsCommands(t *testing.T) {
	source := remote.NewSource("127.0.0.1:0", "", 30, nil, nil, testLogger())
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("starting source: %v", err)
	}
	if err := source.Stop(); err != nil {
		t.Fatalf("stopping source: %v", err)
	}

	if _, err := source.NextCommand(context.Background()); err != io.EOF {
		t.Errorf("after stop: got %v, want io.EOF", err)
	}
}

func TestSource_RejectsEmptyCommand(t *testing.T) {
	source := remote.NewSource(":0", "", 30, nil, nil, testLogger())

	req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("   "))
	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status code: got %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestSource_CommandWithToken(t *testing.T) {
	authToken := "test-secret-token-123"
	source := remote.NewSource(":0", authToken, 30, nil, nil, testLogger())
	handler := source.Handler()

	tests := []struct {
		name       string
		token      string
		method     string
		wantStatus int
	}{
		{name: "valid token in header", token: authToken, method: "header", wantStatus: http.StatusAccepted},
		{name: "valid token in query", token: authToken, method: "query", wantStatus: http.StatusAccepted},
		{name: "invalid token", token: "wrong-token", method: "header", wantStatus: http.StatusUnauthorized},
		{name: "missing token", token: "", method: "header", wantStatus: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var req *http.Request
			if tt.method == "query" {
				req = httptest.NewRequest(http.MethodPost, "/command?token="+tt.token, strings.NewReader("s"))
			} else {
				req = httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("s"))
				if tt.token != "" {
					req.Header.Set("X-Auth-Token", tt.token)
				}
			}

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status code: got %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestSource_RateLimited(t *testing.T) {
	source := remote.NewSource(":0", "", 2, nil, nil, testLogger())
	handler := source.Handler()

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		req := httptest.NewRequest(http.MethodPost, "/command", strings.NewReader("s"))
		req.RemoteAddr = "10.0.0.7:5555"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}

	if codes[0] != http.StatusAccepted || codes[1] != http.StatusAccepted {
		t.Errorf("first two requests: got %v", codes[:2])
	}
	if codes[2] != http.StatusTooManyRequests {
		t.Errorf("third request: got %d, want %d", codes[2], http.StatusTooManyRequests)
	}
}

func TestSource_HealthReportsLinks(t *testing.T) {
	source := remote.NewSource(":0", "", 30, staticStatus, nil, testLogger())

	rec := httptest.NewRecorder()
	source.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status before start: got %d, want %d", rec.Code, http.StatusServiceUnavailable)
	}

	var body struct {
		Status string            `json:"status"`
		Links  map[string]string `json:"links"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("decoding health: %v", err)
	}
	if body.Links["actuator"] != "connected" || body.Links["lighting"] != "disconnected" {
		t.Errorf("links: got %v", body.Links)
	}
}

func TestRateLimiter_ResetsAfterWindow(t *testing.T) {
	rl := remote.NewRateLimiter(1, 10*time.Millisecond)

	if !rl.Allow("a") {
		t.Fatal("first request should pass")
	}
	if rl.Allow("a") {
		t.Fatal("second request should be limited")
	}
	if !rl.Allow("b") {
		t.Error("other clients have their own bucket")
	}

	time.Sleep(20 * time.Millisecond)
	if !rl.Allow("a") {
		t.Error("bucket should refill after the window")
	}
}

func TestRateLimiter_PrunesExpiredClients(t *testing.T) {
	rl := remote.NewRateLimiter(5, 10*time.Millisecond)

	for _, client := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		rl.Allow(client)
	}
	if got := rl.Len(); got != 3 {
		t.Fatalf("tracked clients: got %d, want 3", got)
	}

	time.Sleep(20 * time.Millisecond)
	rl.Allow("10.0.0.4")

	if got := rl.Len(); got != 1 {
		t.Errorf("tracked clients after window: got %d, want 1", got)
	}
}

func TestSource_StopDoesNotWaitOnHealth(t *testing.T) {
	var source *remote.Source
	entered := make(chan struct{})

	// Serves /health from inside an in-flight request, so the request is
	// still running when Stop begins.
	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		time.Sleep(50 * time.Millisecond)
		source.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	})

	source = remote.NewSource("127.0.0.1:0", "", 30, staticStatus, slow, testLogger())
	if err := source.Start(context.Background()); err != nil {
		t.Fatalf("starting source: %v", err)
	}

	go func() {
		resp, err := http.Get("http://" + source.Addr() + "/metrics")
		if err == nil {
			resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatal("request never reached the handler")
	}

	start := time.Now()
	if err := source.Stop(); err != nil {
		t.Fatalf("stopping source: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("stop took %v while a request was in flight", elapsed)
	}
}
