package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Endpoint describes one logical daemon call.
type Endpoint struct {
	Method string
	Path   string
	Body   any
	Header http.Header
	// Timeout overrides the per-attempt deadline (or the whole stream deadline
	// when Stream is set).
	Timeout time.Duration
	Stream  bool
	// OnEvent receives progress events of a streaming call.
	OnEvent func(StreamEvent)
}

// Transport issues daemon requests with bounded retries and exponential backoff.
type Transport struct {
	baseURL       string
	apiKey        string
	httpClient    *http.Client
	timeout       time.Duration
	streamTimeout time.Duration
	maxAttempts   int
	retryDelay    time.Duration
	log           zerolog.Logger

	// sleep waits between attempts; replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// NewTransport constructs a Transport from cfg, applying defaults.
func NewTransport(cfg Config) *Transport {
	cfg = cfg.withDefaults()
	return &Transport{
		baseURL:       cfg.BaseURL,
		apiKey:        cfg.APIKey,
		httpClient:    cfg.HTTPClient,
		timeout:       cfg.Timeout,
		streamTimeout: cfg.StreamTimeout,
		maxAttempts:   cfg.MaxAttempts,
		retryDelay:    cfg.RetryDelay,
		log:           cfg.Logger.With().Str("component", "transport").Str("daemon", cfg.BaseURL).Logger(),
		sleep:         sleepCtx,
	}
}

// BaseURL returns the daemon address this transport talks to.
func (t *Transport) BaseURL() string { return t.baseURL }

// newHTTPClient mirrors the dialer settings used for llama servers. The client
// has no global timeout; every request carries a context deadline instead.
func newHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   5 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}
	return &http.Client{Transport: tr, Timeout: 0}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (t *Transport) url(endpoint string) string {
	return t.baseURL + "/" + strings.TrimPrefix(endpoint, "/")
}

func (t *Transport) setHeaders(req *http.Request, extra http.Header) {
	req.Header.Set("Content-Type", "application/json")
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}
	for k, vs := range extra {
		req.Header.Del(k)
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
}

// Execute performs ep against the daemon. It returns the decoded-as-raw JSON
// body on success and a *Error otherwise; it never returns a bare transport
// error. Every failure kind is retried the same way: up to maxAttempts
// attempts, waiting retryDelay*2^n after failure n.
func (t *Transport) Execute(ctx context.Context, ep Endpoint) (json.RawMessage, error) {
	endpoint := strings.TrimPrefix(ep.Path, "/")
	start := time.Now()
	var last *Error
	for attempt := 0; attempt < t.maxAttempts; attempt++ {
		if attempt > 0 {
			retriesTotal.WithLabelValues(endpoint).Inc()
		}
		body, retry, err := t.attempt(ctx, endpoint, ep)
		if err == nil {
			t.observe(endpoint, start, nil)
			return body, nil
		}
		last = err
		t.log.Debug().Str("endpoint", endpoint).Int("attempt", attempt+1).Str("kind", string(err.Kind)).Err(err).Msg("daemon request failed")
		if !retry {
			break
		}
		if ctx.Err() != nil {
			last = &Error{Kind: KindCanceled, Op: endpoint, Message: "request canceled", Err: ctx.Err()}
			break
		}
		if attempt < t.maxAttempts-1 {
			wait := t.retryDelay << attempt
			t.log.Warn().Str("endpoint", endpoint).Dur("backoff", wait).Int("attempt", attempt+1).Msg("retrying daemon request")
			if serr := t.sleep(ctx, wait); serr != nil {
				last = &Error{Kind: KindCanceled, Op: endpoint, Message: "request canceled", Err: serr}
				break
			}
		}
	}
	t.observe(endpoint, start, last)
	return nil, last
}

func (t *Transport) observe(endpoint string, start time.Time, err error) {
	requestsTotal.WithLabelValues(endpoint, outcomeLabel(err)).Inc()
	requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
}

// attempt runs a single HTTP exchange. The bool result reports whether the
// failure may be retried.
func (t *Transport) attempt(ctx context.Context, endpoint string, ep Endpoint) (json.RawMessage, bool, *Error) {
	timeout := ep.Timeout
	if timeout <= 0 {
		timeout = t.timeout
		if ep.Stream {
			timeout = t.streamTimeout
		}
	}
	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var reader io.Reader
	if ep.Body != nil {
		b, err := json.Marshal(ep.Body)
		if err != nil {
			return nil, false, &Error{Kind: KindValidation, Op: endpoint, Message: "invalid request body", Err: err}
		}
		reader = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(actx, ep.Method, t.url(endpoint), reader)
	if err != nil {
		return nil, false, &Error{Kind: KindValidation, Op: endpoint, Message: "invalid daemon request: " + err.Error(), Err: err}
	}
	t.setHeaders(req, ep.Header)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, true, classify(endpoint, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound && !ep.Stream:
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		return notFoundShape(endpoint), false, nil
	case resp.StatusCode == http.StatusServiceUnavailable:
		return nil, true, errUnavailable(endpoint)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, true, errServer(endpoint, resp.StatusCode, strings.TrimSpace(string(b)))
	}

	if ep.Stream {
		out, serr := Interpret(resp.Body, ep.OnEvent)
		if serr != nil {
			if actx.Err() != nil && KindOf(serr) == KindConnection {
				return nil, false, errTimeout(endpoint, actx.Err())
			}
			var de *Error
			errors.As(serr, &de)
			de.Op = endpoint
			return nil, false, de
		}
		b, _ := json.Marshal(map[string]any{"status": out.Status, "terminated": out.Terminated})
		return b, false, nil
	}

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, true, classify(endpoint, err)
	}
	if len(bytes.TrimSpace(b)) == 0 {
		return json.RawMessage(`{}`), false, nil
	}
	if !json.Valid(b) {
		return nil, true, errMalformed(endpoint, nil)
	}
	return b, false, nil
}

// notFoundShape tolerates daemons that 404 an empty collection.
func notFoundShape(endpoint string) json.RawMessage {
	switch path.Base(endpoint) {
	case "tags", "ps":
		return json.RawMessage(`{"models":[]}`)
	}
	return json.RawMessage(`{}`)
}

func classify(op string, err error) *Error {
	var ne net.Error
	switch {
	case errors.Is(err, context.Canceled):
		return &Error{Kind: KindCanceled, Op: op, Message: "request canceled", Err: err}
	case errors.Is(err, context.DeadlineExceeded), errors.As(err, &ne) && ne.Timeout():
		return errTimeout(op, err)
	default:
		return errConnection(op, err)
	}
}
