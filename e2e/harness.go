// CLAUDE:SUMMARY E2E test harness — spawns etsotracker subprocess on a free port with seeded traffic mirror and HTTP helpers
package e2e

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"syscall"
	"testing"
	"time"
)

// TestHarness manages an etsotracker subprocess and provides HTTP helpers.
type TestHarness struct {
	BaseURL   string
	DataDir   string
	ClaimsDB  string
	TrafficDB string

	cmd    *exec.Cmd
	client *http.Client
	port   int
}

// NewHarness seeds a traffic mirror, builds a config, starts etsotracker
// serve, and waits for readiness. The sandbox row cap is lowered to 5 so
// truncation is testable with a small fixture set.
func NewHarness(t *testing.T) *TestHarness {
	t.Helper()

	// Find free port
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("finding free port: %v", err)
	}
	port := ln.Addr().(*net.TCPAddr).Port
	ln.Close()

	// Data directory (manual cleanup — t.TempDir() would delete files when
	// the first test finishes, breaking shared DBAssert across tests)
	dataDir, err := os.MkdirTemp("", "etsotracker-e2e-*")
	if err != nil {
		t.Fatalf("creating temp dir: %v", err)
	}
	claimsDB := filepath.Join(dataDir, "claims.db")
	trafficDB := filepath.Join(dataDir, "traffic.db")

	if err := SeedTraffic(trafficDB); err != nil {
		t.Fatalf("seeding traffic mirror: %v", err)
	}

	config := fmt.Sprintf(`[server]
addr = ":%d"

[database]
path = %q
traffic_path = %q

[sandbox]
row_limit = 5
timeout_sec = 5
queries_per_sec = 100
query_burst = 20

[scoring]
execution_weight = 0.4
volume_weight = 0.6
volume_saturation = 10
truncation_penalty = 0.15

[research]
workers = 2
max_claims = 6

[llm]
anthropic_api_key = ""
openai_api_key = ""
model = ""

[instance]
id = "e2e-test"
name = "etsotracker-e2e"
`, port, claimsDB, trafficDB)

	configPath := filepath.Join(dataDir, "config.toml")
	if err := os.WriteFile(configPath, []byte(config), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	// Locate binary using absolute path
	wd, _ := os.Getwd()
	binary, _ := filepath.Abs(filepath.Join(wd, "..", "etsotracker"))
	if _, err := os.Stat(binary); os.IsNotExist(err) {
		t.Fatalf("binary not found at %s — run: go build -o etsotracker .", binary)
	}

	parentDir, _ := filepath.Abs(filepath.Join(wd, ".."))
	cmd := exec.Command(binary, "serve", "--config", configPath)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Dir = parentDir

	if err := cmd.Start(); err != nil {
		t.Fatalf("starting etsotracker: %v", err)
	}

	h := &TestHarness{
		BaseURL:   fmt.Sprintf("http://127.0.0.1:%d", port),
		DataDir:   dataDir,
		ClaimsDB:  claimsDB,
		TrafficDB: trafficDB,
		cmd:       cmd,
		port:      port,
		client:    &http.Client{Timeout: 60 * time.Second},
	}

	// Readiness check
	deadline := time.Now().Add(15 * time.Second)
	backoff := 100 * time.Millisecond
	for time.Now().Before(deadline) {
		resp, err := h.client.Get(h.BaseURL + "/api/themes")
		if err == nil {
			resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				t.Logf("etsotracker ready on port %d", port)
				return h
			}
		}
		time.Sleep(backoff)
		if backoff < 2*time.Second {
			backoff = backoff * 3 / 2
		}
	}

	h.Stop()
	t.Fatalf("etsotracker did not become ready within 15s on port %d", port)
	return nil
}

// Stop sends SIGTERM, waits 5s, then SIGKILL. Cleans up the data directory.
func (h *TestHarness) Stop() {
	if h.cmd == nil || h.cmd.Process == nil {
		return
	}
	h.cmd.Process.Signal(syscall.SIGTERM)

	done := make(chan error, 1)
	go func() { done <- h.cmd.Wait() }()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		h.cmd.Process.Kill()
		<-done
	}

	if h.DataDir != "" {
		os.RemoveAll(h.DataDir)
	}
}

// Do executes an HTTP request and returns the response.
func (h *TestHarness) Do(method, path string, body interface{}) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshaling body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequest(method, h.BaseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return h.client.Do(req)
}

// JSON executes a request and decodes the JSON response into dst.
func (h *TestHarness) JSON(method, path string, body interface{}, dst interface{}) (*http.Response, error) {
	resp, err := h.Do(method, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp, fmt.Errorf("reading body: %w", err)
	}

	// Reset body so caller can inspect status
	resp.Body = io.NopCloser(bytes.NewReader(data))

	if dst != nil && len(data) > 0 {
		if err := json.Unmarshal(data, dst); err != nil {
			return resp, fmt.Errorf("decoding JSON (status %d, body: %s): %w", resp.StatusCode, truncate(string(data), 500), err)
		}
	}
	return resp, nil
}

// rawBody executes a request and returns the raw response body as bytes.
func (h *TestHarness) rawBody(method, path string, body interface{}) ([]byte, *http.Response, error) {
	resp, err := h.Do(method, path, body)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	return data, resp, err
}

// CreateTheme creates a theme and returns its ID.
func (h *TestHarness) CreateTheme(t *testing.T, title, quarter, guidance string) string {
	t.Helper()
	var theme map[string]interface{}
	resp, err := h.JSON("POST", "/api/themes", map[string]string{
		"title":    title,
		"quarter":  quarter,
		"guidance": guidance,
	}, &theme)
	if err != nil {
		t.Fatalf("create theme: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create theme: expected 201, got %d", resp.StatusCode)
	}
	return theme["id"].(string)
}

// CreateClaim creates a claim under a theme and returns its ID.
func (h *TestHarness) CreateClaim(t *testing.T, themeID, text, query, logic string) string {
	t.Helper()
	var claim map[string]interface{}
	resp, err := h.JSON("POST", "/api/claims", map[string]string{
		"theme_id":         themeID,
		"claim_text":       text,
		"validation_query": query,
		"validation_logic": logic,
	}, &claim)
	if err != nil {
		t.Fatalf("create claim: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create claim: expected 201, got %d", resp.StatusCode)
	}
	return claim["id"].(string)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
