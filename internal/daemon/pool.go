package daemon

import (
	"strings"
	"sync"

	lru "github.com/hashicorp/golang-lru"
)

const defaultPoolSize = 32

// Pool hands out one Gateway per daemon address. Requests naming a different
// address get a different Gateway (and thus fresh liveness state) instead of
// reconfiguring a shared one.
type Pool struct {
	mu       sync.RWMutex
	defaults Config
	cache    *lru.Cache
}

// NewPool returns a pool that builds gateways from defaults. size bounds the
// number of distinct addresses kept; 0 uses the package default.
func NewPool(defaults Config, size int) (*Pool, error) {
	if size <= 0 {
		size = defaultPoolSize
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	defaults.BaseURL = NormalizeBaseURL(defaults.BaseURL)
	return &Pool{defaults: defaults, cache: cache}, nil
}

// Get returns the gateway for rawURL, or for the default address when rawURL
// is empty.
func (p *Pool) Get(rawURL string) *Gateway {
	p.mu.RLock()
	defer p.mu.RUnlock()
	key := p.defaults.BaseURL
	if strings.TrimSpace(rawURL) != "" {
		key = NormalizeBaseURL(rawURL)
	}
	if v, ok := p.cache.Get(key); ok {
		return v.(*Gateway)
	}
	cfg := p.defaults
	cfg.BaseURL = key
	g := New(cfg)
	if prev, ok, _ := p.cache.PeekOrAdd(key, g); ok {
		return prev.(*Gateway)
	}
	return g
}

// DefaultURL returns the address used when a request names none.
func (p *Pool) DefaultURL() string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.defaults.BaseURL
}

// SetDefaults replaces the configuration for new gateways and drops every
// cached one.
func (p *Pool) SetDefaults(cfg Config) {
	cfg.BaseURL = NormalizeBaseURL(cfg.BaseURL)
	p.mu.Lock()
	defer p.mu.Unlock()
	p.defaults = cfg
	p.cache.Purge()
}

// NormalizeBaseURL trims trailing slashes and assumes http:// when no scheme
// is given. An empty address yields DefaultBaseURL.
func NormalizeBaseURL(raw string) string {
	u := strings.TrimSpace(raw)
	if u == "" {
		return DefaultBaseURL
	}
	u = strings.TrimRight(u, "/")
	if !strings.HasPrefix(u, "http") {
		u = "http://" + u
	}
	return u
}
