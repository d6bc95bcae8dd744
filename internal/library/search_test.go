package library

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const page = `<ul><li><span>llama3</span></li><li><span>Mistral</span></li>
<li><span>llama3</span></li><li><span> </span></li><li><span>codellama</span></li></ul>`

func TestExtractNames_DistinctInOrder(t *testing.T) {
	assert.Equal(t, []string{"llama3", "Mistral", "codellama"}, ExtractNames(page))
}

func TestFilter_CaseInsensitive(t *testing.T) {
	got := Filter([]string{"llama3", "Mistral", "codellama"}, "LLAMA")
	require.Len(t, got, 2)
	assert.Equal(t, "llama3", got[0].Name)
	assert.Equal(t, "codellama", got[1].Name)
	assert.Equal(t, SizeTags, got[0].Tags)

	assert.Len(t, Filter([]string{"a", "b"}, ""), 2)
}

func TestClientSearch(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(page))
	}))
	defer ts.Close()

	got, err := NewClient(ts.URL, zerolog.Nop()).Search(context.Background(), "mis")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "Mistral", got[0].Name)
}

func TestClientSearch_HTTPError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := NewClient(ts.URL, zerolog.Nop()).Search(context.Background(), "")
	require.Error(t, err)
}
