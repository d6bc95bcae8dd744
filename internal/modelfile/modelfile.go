// Package modelfile builds and parses the daemon's plain-text model
// configuration format (FROM / PARAMETER / SYSTEM / TEMPLATE).
//
// Build writes SYSTEM and TEMPLATE inside triple quotes, which allows embedded
// newlines; Parse only looks at the first line of each block. Multi-line
// values therefore do not survive a round trip.
package modelfile

import (
	"strings"
)

// Parameter is a single PARAMETER line.
type Parameter struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Config is the user-editable part of a model file.
type Config struct {
	System     string
	Template   string
	Parameters []Parameter
}

// Set assigns key, replacing an existing value in place or appending.
func (c *Config) Set(key, value string) {
	for i := range c.Parameters {
		if c.Parameters[i].Key == key {
			c.Parameters[i].Value = value
			return
		}
	}
	c.Parameters = append(c.Parameters, Parameter{Key: key, Value: value})
}

// ParameterMap returns the parameters as a map; later keys win.
func (c Config) ParameterMap() map[string]string {
	m := make(map[string]string, len(c.Parameters))
	for _, p := range c.Parameters {
		m[p.Key] = p.Value
	}
	return m
}

const tripleQuote = `"""`

// Build renders cfg on top of the base model.
func Build(model string, cfg Config) string {
	var b strings.Builder
	b.WriteString("FROM " + model + "\n")
	for _, p := range cfg.Parameters {
		b.WriteString("PARAMETER " + p.Key + " " + p.Value + "\n")
	}
	if cfg.System != "" {
		b.WriteString("SYSTEM " + tripleQuote + cfg.System + tripleQuote + "\n")
	}
	if cfg.Template != "" {
		b.WriteString("TEMPLATE " + tripleQuote + cfg.Template + tripleQuote + "\n")
	}
	return b.String()
}

// Parse extracts parameters, system prompt and template from model-file text.
func Parse(text string) Config {
	var cfg Config
	lines := strings.Split(text, "\n")
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, "PARAMETER") {
			continue
		}
		parts := strings.SplitN(line, " ", 3)
		if len(parts) < 3 {
			continue
		}
		cfg.Set(parts[1], strings.Trim(parts[2], `"`))
	}
	if rest, ok := firstKeywordLine(lines, "SYSTEM"); ok {
		cfg.System = unquote(strings.TrimSpace(rest))
	}
	if rest, ok := firstKeywordLine(lines, "TEMPLATE"); ok {
		cfg.Template = templateValue(strings.TrimSpace(rest))
	}
	return cfg
}

// firstKeywordLine returns what follows keyword on the first line that starts
// with it.
func firstKeywordLine(lines []string, keyword string) (string, bool) {
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if !strings.HasPrefix(line, keyword) {
			continue
		}
		rest := line[len(keyword):]
		if rest != "" && rest[0] != ' ' && rest[0] != '\t' {
			continue
		}
		return rest, true
	}
	return "", false
}

// unquote strips one level of triple or single double-quotes.
func unquote(s string) string {
	if len(s) >= 2*len(tripleQuote) && strings.HasPrefix(s, tripleQuote) && strings.HasSuffix(s, tripleQuote) {
		return s[len(tripleQuote) : len(s)-len(tripleQuote)]
	}
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	return s
}

// templateValue takes the first quoted segment of a TEMPLATE line.
func templateValue(s string) string {
	if strings.HasPrefix(s, tripleQuote) {
		inner := s[len(tripleQuote):]
		if end := strings.Index(inner, tripleQuote); end >= 0 {
			return inner[:end]
		}
		return inner
	}
	start := strings.IndexByte(s, '"')
	if start < 0 {
		return s
	}
	inner := s[start+1:]
	if end := strings.IndexByte(inner, '"'); end >= 0 {
		return inner[:end]
	}
	return inner
}
