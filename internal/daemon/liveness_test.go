package daemon

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCheckLiveness_CachesForWindow(t *testing.T) {
	f := newFakeDaemon(t)
	g := newTestGateway(t, Config{BaseURL: f.srv.URL})

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.liveness.now = func() time.Time { return now }
	ctx := context.Background()

	assert.True(t, g.CheckLiveness(ctx))
	now = now.Add(4 * time.Second)
	assert.True(t, g.CheckLiveness(ctx))
	assert.Equal(t, 1, f.hitCount("GET /api/tags"))

	now = now.Add(2 * time.Second)
	assert.True(t, g.CheckLiveness(ctx))
	assert.Equal(t, 2, f.hitCount("GET /api/tags"))
}

func TestCheckLiveness_Unreachable(t *testing.T) {
	g := newTestGateway(t, Config{BaseURL: closedURL(t)})
	assert.False(t, g.CheckLiveness(context.Background()))
}

func TestCheckLiveness_NonOKIsDown(t *testing.T) {
	var hits int
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	g := newTestGateway(t, Config{BaseURL: ts.URL})
	assert.False(t, g.CheckLiveness(context.Background()))
	// A negative result is cached too, and the probe never retries.
	assert.False(t, g.CheckLiveness(context.Background()))
	assert.Equal(t, 1, hits)
}

func TestCheckLiveness_ConcurrentCallersShareOneProbe(t *testing.T) {
	f := newFakeDaemon(t)
	g := newTestGateway(t, Config{BaseURL: f.srv.URL})
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	g.liveness.now = func() time.Time { return now }

	const callers = 32
	results := make([]bool, callers)
	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			results[i] = g.CheckLiveness(context.Background())
		}(i)
	}
	close(start)
	wg.Wait()

	for i, ok := range results {
		assert.True(t, ok, "caller %d", i)
	}
	assert.Equal(t, 1, f.hitCount("GET /api/tags"))
}
