package blackbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"
)

// freePort asks the kernel for an unused localhost port and releases it.
func freePort(t *testing.T) int {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	defer ln.Close()
	return ln.Addr().(*net.TCPAddr).Port
}

func projectRoot(t *testing.T) string {
	t.Helper()
	_, thisFile, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatal("runtime.Caller failed")
	}
	// <root>/tests/blackbox/blackbox_test.go
	return filepath.Dir(filepath.Dir(filepath.Dir(thisFile)))
}

func buildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("builds the binary; skipped in -short mode")
	}
	bin := filepath.Join(t.TempDir(), "ollamadash")
	cmd := exec.Command("go", "build", "-o", bin, "./cmd/ollamadash")
	cmd.Dir = projectRoot(t)
	cmd.Env = append(os.Environ(), "CGO_ENABLED=0")
	if out, err := cmd.CombinedOutput(); err != nil {
		t.Fatalf("go build failed: %v\n%s", err, out)
	}
	return bin
}

// fakeDaemon serves the subset of the daemon API the dashboard reads.
func fakeDaemon(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[{"name":"alpha:latest","modified_at":"2024-01-01T00:00:00Z"},{"name":"beta:7b","modified_at":"2024-02-01T00:00:00Z"}]}`)
	})
	mux.HandleFunc("/api/show", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"modelfile":"FROM alpha\n","details":{"family":"llama"},"modified_at":"2024-03-01T00:00:00Z"}`)
	})
	mux.HandleFunc("/api/ps", func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"models":[]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

// startServer runs "ollamadash serve" and waits for /healthz.
func startServer(t *testing.T, bin, daemonURL string) string {
	t.Helper()
	port := freePort(t)
	base := fmt.Sprintf("http://127.0.0.1:%d", port)
	cmd := exec.Command(bin, "serve", "--addr", fmt.Sprintf("127.0.0.1:%d", port), "--server-url", daemonURL, "--log-format", "json")
	cmd.Dir = t.TempDir()
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		t.Fatalf("start server: %v", err)
	}
	t.Cleanup(func() { _ = cmd.Process.Kill(); _ = cmd.Wait() })

	deadline := time.Now().Add(5 * time.Second)
	for {
		resp, err := http.Get(base + "/healthz")
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return base
			}
		}
		if time.Now().After(deadline) {
			t.Fatalf("server did not become healthy in time")
		}
		time.Sleep(50 * time.Millisecond)
	}
}

func do(t *testing.T, method, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), method, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do: %v", err)
	}
	b, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, b
}

func TestBlackbox_Flow(t *testing.T) {
	bin := buildBinary(t)
	daemon := fakeDaemon(t)
	base := startServer(t, bin, daemon.URL)

	resp, body := do(t, http.MethodGet, base+"/api/server/url", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), daemon.URL) {
		t.Fatalf("/api/server/url %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, base+"/api/server/status", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"running"`) {
		t.Fatalf("/api/server/status %d %s", resp.StatusCode, body)
	}

	resp, body = do(t, http.MethodGet, base+"/api/models", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/models %d %s", resp.StatusCode, body)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.Contains(ct, "application/json") {
		t.Fatalf("/api/models content-type=%s", ct)
	}
	var list struct {
		Models []struct {
			Name       string `json:"name"`
			ModifiedAt string `json:"modified_at"`
		} `json:"models"`
	}
	if err := json.Unmarshal(body, &list); err != nil {
		t.Fatalf("/api/models json: %v body=%s", err, body)
	}
	if len(list.Models) != 2 {
		t.Fatalf("expected 2 models, got %d", len(list.Models))
	}
	if list.Models[0].ModifiedAt != "2024-03-01T00:00:00Z" {
		t.Fatalf("expected enriched modified_at, got %q", list.Models[0].ModifiedAt)
	}

	resp, body = do(t, http.MethodGet, base+"/api/models/running", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("/api/models/running %d %s", resp.StatusCode, body)
	}
}

func TestBlackbox_StopWithoutName_400(t *testing.T) {
	bin := buildBinary(t)
	base := startServer(t, bin, fakeDaemon(t).URL)

	resp, body := do(t, http.MethodPost, base+"/api/models/stop", []byte(`{}`))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d body=%s", resp.StatusCode, body)
	}
	if !strings.Contains(string(body), "validation_error") {
		t.Fatalf("expected validation_error status, got %s", body)
	}
}

func TestBlackbox_UnreachableDaemonStopped(t *testing.T) {
	bin := buildBinary(t)
	gone := httptest.NewServer(http.NotFoundHandler())
	gone.Close()
	base := startServer(t, bin, gone.URL)

	resp, body := do(t, http.MethodGet, base+"/api/server/status", nil)
	if resp.StatusCode != http.StatusOK || !strings.Contains(string(body), `"stopped"`) {
		t.Fatalf("/api/server/status %d %s", resp.StatusCode, body)
	}
}

func TestBlackbox_CLIModelsList(t *testing.T) {
	bin := buildBinary(t)
	daemon := fakeDaemon(t)
	cmd := exec.Command(bin, "models", "list", "--server-url", daemon.URL, "--log-level", "off")
	cmd.Dir = t.TempDir()
	out, err := cmd.Output()
	if err != nil {
		t.Fatalf("models list: %v", err)
	}
	if !bytes.Contains(out, []byte("beta:7b")) {
		t.Fatalf("unexpected output: %s", out)
	}
}
