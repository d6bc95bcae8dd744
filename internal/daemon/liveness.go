package daemon

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// livenessCache remembers the last reachability probe for a fixed window.
// The read-check-write sequence runs under mu, so concurrent callers of one
// gateway share a single probe.
type livenessCache struct {
	mu        sync.Mutex
	known     bool
	value     bool
	checkedAt time.Time

	window time.Duration
	now    func() time.Time
	probe  func(context.Context) bool
}

func newLivenessCache(window time.Duration, probe func(context.Context) bool) *livenessCache {
	return &livenessCache{window: window, now: time.Now, probe: probe}
}

func (c *livenessCache) check(ctx context.Context) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.now()
	if c.known && now.Sub(c.checkedAt) < c.window {
		livenessChecksTotal.WithLabelValues("cache", strconv.FormatBool(c.value)).Inc()
		return c.value
	}
	c.value = c.probe(ctx)
	c.known = true
	c.checkedAt = now
	livenessChecksTotal.WithLabelValues("probe", strconv.FormatBool(c.value)).Inc()
	return c.value
}

// probe issues a single GET api/tags with a short deadline and no retries.
// Anything but 200 counts as unreachable.
func (t *Transport) probe(ctx context.Context, timeout time.Duration) bool {
	pctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	req, err := http.NewRequestWithContext(pctx, http.MethodGet, t.url("api/tags"), nil)
	if err != nil {
		t.log.Debug().Err(err).Msg("liveness probe request")
		return false
	}
	t.setHeaders(req, nil)
	resp, err := t.httpClient.Do(req)
	if err != nil {
		t.log.Info().Err(err).Msg("server check failed")
		return false
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	return resp.StatusCode == http.StatusOK
}
