package daemon

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newNotFoundURL(t *testing.T) string {
	t.Helper()
	ts := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func TestNormalizeBaseURL(t *testing.T) {
	cases := map[string]string{
		"":                        DefaultBaseURL,
		"   ":                     DefaultBaseURL,
		"localhost:11434":         "http://localhost:11434",
		"http://host:1/":          "http://host:1",
		"https://example.com//":   "https://example.com",
		" http://10.0.0.2:11434 ": "http://10.0.0.2:11434",
	}
	for in, want := range cases {
		assert.Equal(t, want, NormalizeBaseURL(in), "input %q", in)
	}
}

func TestPool_ReusesPerAddress(t *testing.T) {
	p, err := NewPool(Config{BaseURL: "gpu-box:11434"}, 0)
	require.NoError(t, err)
	assert.Equal(t, "http://gpu-box:11434", p.DefaultURL())

	a := p.Get("")
	assert.Equal(t, "http://gpu-box:11434", a.BaseURL())
	assert.Same(t, a, p.Get("http://gpu-box:11434/"))

	b := p.Get("other:11434")
	assert.NotSame(t, a, b)
	assert.Equal(t, "http://other:11434", b.BaseURL())
	assert.Same(t, b, p.Get("http://other:11434"))
}

func TestPool_SetDefaultsDropsCachedGateways(t *testing.T) {
	p, err := NewPool(Config{}, 2)
	require.NoError(t, err)
	a := p.Get("")
	assert.Equal(t, DefaultBaseURL, a.BaseURL())

	p.SetDefaults(Config{BaseURL: "new-host"})
	assert.Equal(t, "http://new-host", p.DefaultURL())
	assert.Equal(t, "http://new-host", p.Get("").BaseURL())
	assert.NotSame(t, a, p.Get(DefaultBaseURL))
}

func TestPool_EvictsBeyondSize(t *testing.T) {
	p, err := NewPool(Config{}, 1)
	require.NoError(t, err)
	a := p.Get("h1")
	p.Get("h2")
	assert.NotSame(t, a, p.Get("h1"))
}
