package daemon

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"
)

// fakeDaemon is a minimal in-memory stand-in for the daemon HTTP API.
type fakeDaemon struct {
	mu          sync.Mutex
	tags        []map[string]any
	running     map[string]bool
	unloadWorks bool
	show        map[string]map[string]any
	showStatus  map[string]int
	pullLines   []string
	createLines []string

	hits   map[string]int
	bodies map[string][]map[string]any

	srv *httptest.Server
}

func newFakeDaemon(t *testing.T) *fakeDaemon {
	t.Helper()
	f := &fakeDaemon{
		running:     map[string]bool{},
		unloadWorks: true,
		show:        map[string]map[string]any{},
		showStatus:  map[string]int{},
		hits:        map[string]int{},
		bodies:      map[string][]map[string]any{},
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/api/tags", f.record(func(w http.ResponseWriter, _ map[string]any) {
		writeJSON(w, map[string]any{"models": f.tags})
	}))
	mux.HandleFunc("/api/ps", f.record(func(w http.ResponseWriter, _ map[string]any) {
		models := []map[string]any{}
		for name, ok := range f.running {
			if ok {
				models = append(models, map[string]any{"name": name, "model": name})
			}
		}
		writeJSON(w, map[string]any{"models": models})
	}))
	mux.HandleFunc("/api/generate", f.record(func(w http.ResponseWriter, body map[string]any) {
		name, _ := body["model"].(string)
		if body["keep_alive"] == "0s" && f.unloadWorks {
			delete(f.running, name)
		}
		writeJSON(w, map[string]any{"model": name, "done": true})
	}))
	mux.HandleFunc("/api/delete", f.record(func(w http.ResponseWriter, _ map[string]any) {
		w.WriteHeader(http.StatusOK)
	}))
	mux.HandleFunc("/api/show", f.record(func(w http.ResponseWriter, body map[string]any) {
		name, _ := body["name"].(string)
		if code, ok := f.showStatus[name]; ok {
			w.WriteHeader(code)
			return
		}
		writeJSON(w, f.show[name])
	}))
	mux.HandleFunc("/api/pull", f.record(func(w http.ResponseWriter, _ map[string]any) {
		writeLines(w, f.pullLines)
	}))
	mux.HandleFunc("/api/create", f.record(func(w http.ResponseWriter, _ map[string]any) {
		writeLines(w, f.createLines)
	}))
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeDaemon) record(h func(http.ResponseWriter, map[string]any)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		defer f.mu.Unlock()
		key := r.Method + " " + r.URL.Path
		f.hits[key]++
		f.bodies[key] = append(f.bodies[key], body)
		h(w, body)
	}
}

func (f *fakeDaemon) hitCount(key string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[key]
}

func (f *fakeDaemon) lastBody(key string) map[string]any {
	f.mu.Lock()
	defer f.mu.Unlock()
	b := f.bodies[key]
	if len(b) == 0 {
		return nil
	}
	return b[len(b)-1]
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeLines(w http.ResponseWriter, lines []string) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	for _, l := range lines {
		_, _ = w.Write([]byte(l + "\n"))
		if fl, ok := w.(http.Flusher); ok {
			fl.Flush()
		}
	}
}

// newTestGateway builds a gateway whose backoff and settle waits return
// immediately.
func newTestGateway(t *testing.T, cfg Config) *Gateway {
	t.Helper()
	g := New(cfg)
	g.sleep = noSleep
	g.transport.sleep = noSleep
	return g
}

func noSleep(context.Context, time.Duration) error { return nil }

// recordSleeps returns a sleep func that appends each requested wait to out.
func recordSleeps(out *[]time.Duration) func(context.Context, time.Duration) error {
	var mu sync.Mutex
	return func(_ context.Context, d time.Duration) error {
		mu.Lock()
		*out = append(*out, d)
		mu.Unlock()
		return nil
	}
}

// closedURL returns the address of a server that is no longer listening.
func closedURL(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(http.NotFoundHandler())
	u := ts.URL
	ts.Close()
	return u
}
