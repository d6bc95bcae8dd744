package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"ollamadash/internal/daemon"
	"ollamadash/internal/library"
	"ollamadash/internal/modelfile"
	"ollamadash/internal/usage"
)

// HeaderDaemonURL selects the daemon address for a single request.
const HeaderDaemonURL = "X-Ollama-URL"

// Gateway defines the daemon operations required by the HTTP API layer.
type Gateway interface {
	BaseURL() string
	CheckLiveness(ctx context.Context) bool
	ListModels(ctx context.Context) (daemon.ModelList, error)
	ListRunning(ctx context.Context) (daemon.RunningList, error)
	StopModel(ctx context.Context, name string) (daemon.Result, error)
	DeleteModel(ctx context.Context, name string) (daemon.Result, error)
	PullModel(ctx context.Context, name string, onProgress func(daemon.PullProgress)) (daemon.Result, error)
	GetModelConfig(ctx context.Context, name string) (daemon.ModelConfig, error)
	SaveModelConfig(ctx context.Context, name string, cfg modelfile.Config) (daemon.Result, error)
	GetModelStats(name string) usage.Stats
}

// Resolver returns the gateway for a daemon address; "" means the default.
type Resolver interface {
	Gateway(rawURL string) Gateway
}

// Searcher looks up models in the public library.
type Searcher interface {
	Search(ctx context.Context, keyword string) ([]library.Model, error)
}

// UsageRecorder receives one event per model operation.
type UsageRecorder interface {
	Record(e usage.Event) usage.Event
}

type poolResolver struct{ pool *daemon.Pool }

func (p poolResolver) Gateway(rawURL string) Gateway { return p.pool.Get(rawURL) }

// NewPoolResolver adapts a daemon.Pool to Resolver.
func NewPoolResolver(p *daemon.Pool) Resolver { return poolResolver{pool: p} }

// Deps are the collaborators of the HTTP API. Library and Usage are optional.
type Deps struct {
	Daemons Resolver
	Library Searcher
	Usage   UsageRecorder
}

type api struct {
	daemons Resolver
	library Searcher
	usage   UsageRecorder
}

// NewMux builds the dashboard API router.
func NewMux(d Deps) http.Handler {
	a := &api{daemons: d.Daemons, library: d.Library, usage: d.Usage}

	r := chi.NewRouter()
	// Basic middlewares: request id, real ip, recoverer
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(MetricsMiddleware)
	// Compression for JSON endpoints
	r.Use(middleware.Compress(5))
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/server/url", a.serverURL)
		r.Get("/server/status", a.serverStatus)

		r.Get("/models", a.listModels)
		r.Get("/models/running", a.listRunning)
		r.Get("/models/stats", a.allStats)
		r.Post("/models/stop", a.stopModel)
		r.Post("/models/delete", a.deleteModel)
		r.Post("/models/pull", a.pullModel)
		r.Post("/models/search", a.searchModels)
		r.Get("/models/{name}/config", a.getModelConfig)
		r.Post("/models/{name}/config", a.saveModelConfig)
		r.Get("/models/{name}/stats", a.modelStats)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// gateway picks the daemon for r: the X-Ollama-URL header when present,
// otherwise the configured default.
func (a *api) gateway(r *http.Request) Gateway {
	return a.daemons.Gateway(r.Header.Get(HeaderDaemonURL))
}
