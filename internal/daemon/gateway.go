package daemon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"ollamadash/internal/modelfile"
	"ollamadash/internal/usage"
)

// StatsSource provides usage statistics recorded outside the gateway.
type StatsSource interface {
	Stats(model string) usage.Stats
}

// Gateway implements the daemon operations on top of a Transport. Apart from
// the liveness cache it holds no mutable state, so one instance may serve
// concurrent callers.
type Gateway struct {
	transport         *Transport
	liveness          *livenessCache
	livenessTimeout   time.Duration
	stopSettle        time.Duration
	enrichConcurrency int
	stats             StatsSource
	log               zerolog.Logger

	// sleep waits for the daemon to settle after an unload; replaced in tests.
	sleep func(context.Context, time.Duration) error
}

// New constructs a Gateway for cfg.BaseURL, applying defaults.
func New(cfg Config) *Gateway {
	cfg = cfg.withDefaults()
	g := &Gateway{
		transport:         NewTransport(cfg),
		livenessTimeout:   cfg.LivenessTimeout,
		stopSettle:        cfg.StopSettle,
		enrichConcurrency: cfg.EnrichConcurrency,
		stats:             cfg.Stats,
		log:               cfg.Logger.With().Str("component", "gateway").Str("daemon", cfg.BaseURL).Logger(),
		sleep:             sleepCtx,
	}
	g.liveness = newLivenessCache(cfg.LivenessWindow, func(ctx context.Context) bool {
		return g.transport.probe(ctx, g.livenessTimeout)
	})
	g.log.Debug().Msg("initialized daemon gateway")
	return g
}

// BaseURL returns the daemon address.
func (g *Gateway) BaseURL() string { return g.transport.BaseURL() }

// CheckLiveness reports whether the daemon answered its last probe. Results
// are reused for the liveness window.
func (g *Gateway) CheckLiveness(ctx context.Context) bool {
	return g.liveness.check(ctx)
}

// ListModels returns the catalog with modified_at refreshed from each model's
// detail lookup. A failed lookup leaves that model as listed.
func (g *Gateway) ListModels(ctx context.Context) (ModelList, error) {
	var list ModelList
	if err := g.call(ctx, Endpoint{Method: http.MethodGet, Path: "api/tags"}, &list); err != nil {
		return ModelList{Models: []Model{}}, err
	}
	if list.Models == nil {
		list.Models = []Model{}
	}

	var grp errgroup.Group
	grp.SetLimit(g.enrichConcurrency)
	for i := range list.Models {
		m := &list.Models[i]
		grp.Go(func() error {
			d, err := g.GetModelDetails(ctx, m.Name)
			if err != nil {
				g.log.Debug().Str("model", m.Name).Err(err).Msg("skipping model enrichment")
				return nil
			}
			if d.ModifiedAt != "" {
				m.ModifiedAt = d.ModifiedAt
			}
			return nil
		})
	}
	_ = grp.Wait()
	return list, nil
}

// ListRunning returns the models currently loaded by the daemon.
func (g *Gateway) ListRunning(ctx context.Context) (RunningList, error) {
	var list RunningList
	if err := g.call(ctx, Endpoint{Method: http.MethodGet, Path: "api/ps"}, &list); err != nil {
		return RunningList{Models: []RunningModel{}}, err
	}
	if list.Models == nil {
		list.Models = []RunningModel{}
	}
	return list, nil
}

type generateRequest struct {
	Model     string `json:"model"`
	Prompt    string `json:"prompt"`
	KeepAlive string `json:"keep_alive"`
}

// StopModel unloads a running model. The daemon does not acknowledge unloads,
// so the running set is re-read after a short pause and the model must be
// gone from it. Stopping a model that is not running succeeds without a
// request.
func (g *Gateway) StopModel(ctx context.Context, name string) (Result, error) {
	if err := requireName("stop", name); err != nil {
		return Result{}, err
	}
	running, err := g.ListRunning(ctx)
	if err != nil {
		return Result{}, err
	}
	if !running.Has(name) {
		return Result{Success: true, Message: fmt.Sprintf("The model %s is not running", name)}, nil
	}

	req := generateRequest{Model: name, Prompt: "", KeepAlive: "0s"}
	if err := g.call(ctx, Endpoint{Method: http.MethodPost, Path: "api/generate", Body: req}, nil); err != nil {
		return Result{}, err
	}
	if err := g.sleep(ctx, g.stopSettle); err != nil {
		return Result{}, &Error{Kind: KindCanceled, Op: "stop", Message: "request canceled", Err: err}
	}

	running, err = g.ListRunning(ctx)
	if err != nil {
		return Result{}, err
	}
	if running.Has(name) {
		return Result{}, &Error{Kind: KindServer, Op: "stop", Message: fmt.Sprintf("Unable to stop model %s", name)}
	}
	g.log.Info().Str("model", name).Msg("model stopped")
	return Result{Success: true, Message: fmt.Sprintf("The model %s has been stopped successfully", name)}, nil
}

type nameRequest struct {
	Name string `json:"name"`
}

// DeleteModel removes a model from the daemon catalog.
func (g *Gateway) DeleteModel(ctx context.Context, name string) (Result, error) {
	if err := requireName("delete", name); err != nil {
		return Result{}, err
	}
	if err := g.call(ctx, Endpoint{Method: http.MethodDelete, Path: "api/delete", Body: nameRequest{Name: name}}, nil); err != nil {
		return Result{}, err
	}
	g.log.Info().Str("model", name).Msg("model deleted")
	return Result{Success: true, Message: fmt.Sprintf("The model %s was successfully deleted", name)}, nil
}

// PullModel downloads a model, forwarding progress events to onProgress when
// it is non-nil. A stream that ends without a status marker counts as done.
func (g *Gateway) PullModel(ctx context.Context, name string, onProgress func(PullProgress)) (Result, error) {
	if err := requireName("pull", name); err != nil {
		return Result{}, err
	}
	ep := Endpoint{Method: http.MethodPost, Path: "api/pull", Body: nameRequest{Name: name}, Stream: true, OnEvent: onProgress}
	if err := g.call(ctx, ep, nil); err != nil {
		return Result{}, err
	}
	g.log.Info().Str("model", name).Msg("model pulled")
	return Result{Success: true, Message: fmt.Sprintf("Successfully pulled model %s", name)}, nil
}

// GetModelConfig fetches the model file and splits it into its fields.
func (g *Gateway) GetModelConfig(ctx context.Context, name string) (ModelConfig, error) {
	if err := requireName("show", name); err != nil {
		return ModelConfig{}, err
	}
	var show showResponse
	if err := g.call(ctx, Endpoint{Method: http.MethodPost, Path: "api/show", Body: nameRequest{Name: name}}, &show); err != nil {
		return ModelConfig{}, err
	}
	return newModelConfig(show.Modelfile), nil
}

type createRequest struct {
	Name      string `json:"name"`
	Modelfile string `json:"modelfile"`
}

// SaveModelConfig rebuilds the model from a generated model file.
func (g *Gateway) SaveModelConfig(ctx context.Context, name string, cfg modelfile.Config) (Result, error) {
	if err := requireName("create", name); err != nil {
		return Result{}, err
	}
	text := modelfile.Build(name, cfg)
	g.log.Debug().Str("model", name).Str("modelfile", text).Msg("creating model")
	ep := Endpoint{Method: http.MethodPost, Path: "api/create", Body: createRequest{Name: name, Modelfile: text}, Stream: true}
	if err := g.call(ctx, ep, nil); err != nil {
		return Result{}, err
	}
	g.log.Info().Str("model", name).Int("parameters", len(cfg.Parameters)).Msg("model configuration saved")
	return Result{Success: true, Message: fmt.Sprintf("Configuration for %s saved successfully", name)}, nil
}

// GetModelDetails fetches the details bag and modification time of a model.
func (g *Gateway) GetModelDetails(ctx context.Context, name string) (ModelDetails, error) {
	if err := requireName("show", name); err != nil {
		return ModelDetails{}, err
	}
	var show showResponse
	if err := g.call(ctx, Endpoint{Method: http.MethodPost, Path: "api/show", Body: nameRequest{Name: name}}, &show); err != nil {
		return ModelDetails{}, err
	}
	if show.Details == nil {
		show.Details = map[string]any{}
	}
	return ModelDetails{Details: show.Details, ModifiedAt: show.ModifiedAt}, nil
}

// GetModelStats returns usage statistics for one model, or for all models
// when name is empty.
func (g *Gateway) GetModelStats(name string) usage.Stats {
	if g.stats == nil {
		return usage.Stats{Model: name, Actions: map[string]int{}, Recent: []usage.Activity{}}
	}
	return g.stats.Stats(name)
}

func (g *Gateway) call(ctx context.Context, ep Endpoint, out any) error {
	body, err := g.transport.Execute(ctx, ep)
	if err != nil {
		return err
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return errMalformed(ep.Path, err)
	}
	return nil
}

func requireName(op, name string) error {
	if strings.TrimSpace(name) == "" {
		return errValidation(op, "model name is required")
	}
	return nil
}
