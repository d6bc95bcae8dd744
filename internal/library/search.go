// Package library searches the public model library page for model names.
package library

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/rs/zerolog"
)

// DefaultURL is the library index scraped by Search.
const DefaultURL = "https://ollama.com/library"

// SizeTags are attached to every result; the index page does not list them.
var SizeTags = []string{"1b", "1.5b", "2b", "3b", "7b", "8b", "9b", "13b", "34b", "70b"}

var spanPattern = regexp.MustCompile(`<span>(.*?)</span>`)

// Model is one search hit.
type Model struct {
	Name string   `json:"name"`
	Tags []string `json:"tags"`
}

// Client fetches the library index.
type Client struct {
	http *resty.Client
	url  string
	log  zerolog.Logger
}

// NewClient returns a client for url (DefaultURL when empty).
func NewClient(url string, log zerolog.Logger) *Client {
	if url == "" {
		url = DefaultURL
	}
	return &Client{
		http: resty.New().
			SetHeader("User-Agent", "ollamadash/1.0").
			SetTimeout(15 * time.Second),
		url: url,
		log: log.With().Str("component", "library").Logger(),
	}
}

// Search returns library models whose name contains keyword, case-insensitively.
// An empty keyword matches everything.
func (c *Client) Search(ctx context.Context, keyword string) ([]Model, error) {
	resp, err := c.http.R().SetContext(ctx).Get(c.url)
	if err != nil {
		return nil, fmt.Errorf("fetch model library: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("fetch model library: status %d", resp.StatusCode())
	}
	names := ExtractNames(resp.String())
	out := Filter(names, keyword)
	c.log.Debug().Str("keyword", keyword).Int("found", len(names)).Int("matched", len(out)).Msg("library search")
	return out, nil
}

// ExtractNames returns the distinct <span> contents of page in order.
func ExtractNames(page string) []string {
	seen := make(map[string]struct{})
	var names []string
	for _, m := range spanPattern.FindAllStringSubmatch(page, -1) {
		name := strings.TrimSpace(m[1])
		if name == "" {
			continue
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		names = append(names, name)
	}
	return names
}

// Filter keeps names containing keyword and attaches SizeTags.
func Filter(names []string, keyword string) []Model {
	kw := strings.ToLower(keyword)
	out := make([]Model, 0, len(names))
	for _, n := range names {
		if !strings.Contains(strings.ToLower(n), kw) {
			continue
		}
		out = append(out, Model{Name: n, Tags: append([]string(nil), SizeTags...)})
	}
	return out
}
