package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"ollamadash/internal/daemon"
	"ollamadash/internal/modelfile"
	"ollamadash/internal/usage"
	"ollamadash/pkg/types"
)

// serverURL reports the configured default daemon, ignoring X-Ollama-URL.
func (a *api) serverURL(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, types.ServerURLResponse{URL: a.daemons.Gateway("").BaseURL()})
}

func (a *api) serverStatus(w http.ResponseWriter, r *http.Request) {
	status := types.ServerStopped
	if a.gateway(r).CheckLiveness(r.Context()) {
		status = types.ServerRunning
	}
	writeJSON(w, http.StatusOK, types.ServerStatusResponse{Status: status})
}

// List endpoints report every failure as 503: the dashboard treats an
// unusable listing as "daemon unavailable".
func (a *api) listModels(w http.ResponseWriter, r *http.Request) {
	list, err := a.gateway(r).ListModels(r.Context())
	if err != nil {
		a.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) listRunning(w http.ResponseWriter, r *http.Request) {
	list, err := a.gateway(r).ListRunning(r.Context())
	if err != nil {
		a.fail(w, r, http.StatusServiceUnavailable, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

func (a *api) stopModel(w http.ResponseWriter, r *http.Request) {
	a.modelOperation(w, r, "stop", Gateway.StopModel)
}

func (a *api) deleteModel(w http.ResponseWriter, r *http.Request) {
	a.modelOperation(w, r, "delete", Gateway.DeleteModel)
}

// modelOperation runs a {name}-bodied mutating call and records its usage.
func (a *api) modelOperation(w http.ResponseWriter, r *http.Request, action string, op func(Gateway, context.Context, string) (daemon.Result, error)) {
	var req types.ModelNameRequest
	if _, ok := decodeJSON(w, r, &req); !ok {
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()

	start := time.Now()
	res, err := op(a.gateway(r), ctx, req.Name)
	a.track(req.Name, action, start, err)
	if err != nil {
		a.fail(w, r, httpStatus(err), err)
		return
	}
	logEvent(r, false).Str("model", req.Name).Str("action", action).Dur("dur", time.Since(start)).Msg(res.Message)
	writeJSON(w, http.StatusOK, types.ResultResponse{Success: res.Success, Message: res.Message})
}

// pullModel downloads a model. With "stream": true progress events are
// written as NDJSON and the final line is either the result or an error.
func (a *api) pullModel(w http.ResponseWriter, r *http.Request) {
	var req types.ModelNameRequest
	if _, ok := decodeJSON(w, r, &req); !ok {
		return
	}
	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	gw := a.gateway(r)
	start := time.Now()

	if !req.Stream {
		res, err := gw.PullModel(ctx, req.Name, nil)
		a.track(req.Name, "pull", start, err)
		if err != nil {
			a.fail(w, r, httpStatus(err), err)
			return
		}
		writeJSON(w, http.StatusOK, types.ResultResponse{Success: res.Success, Message: res.Message})
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}
	out := io.Writer(w)
	if requestLogLevel(r) >= LevelDebug {
		out = io.MultiWriter(w, &loggingLineWriter{stream: "pull"})
	}
	enc := json.NewEncoder(out)
	emit := func(v any) {
		_ = enc.Encode(v)
		if flush != nil {
			flush()
		}
	}
	res, err := gw.PullModel(ctx, req.Name, func(p daemon.PullProgress) { emit(p) })
	a.track(req.Name, "pull", start, err)
	if err != nil {
		if r.Context().Err() != nil {
			return
		}
		code := httpStatus(err)
		logEvent(r, true).Str("model", req.Name).Int("status", code).Err(err).Msg("pull failed")
		emit(types.ErrorResponse{Error: err.Error(), Status: statusLabel(code), Code: code})
		return
	}
	emit(types.ResultResponse{Success: res.Success, Message: res.Message})
}

func (a *api) searchModels(w http.ResponseWriter, r *http.Request) {
	var req types.SearchRequest
	if _, ok := decodeJSON(w, r, &req); !ok {
		return
	}
	if a.library == nil {
		writeJSONError(w, http.StatusNotImplemented, "library search is not configured")
		return
	}
	found, err := a.library.Search(r.Context(), req.Keyword)
	if err != nil {
		a.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	resp := types.SearchResponse{Models: make([]types.LibraryModel, 0, len(found))}
	for _, m := range found {
		resp.Models = append(resp.Models, types.LibraryModel{Name: m.Name, Tags: m.Tags})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) getModelConfig(w http.ResponseWriter, r *http.Request) {
	name := modelName(r)
	cfg, err := a.gateway(r).GetModelConfig(r.Context(), name)
	if err != nil {
		a.fail(w, r, httpStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (a *api) saveModelConfig(w http.ResponseWriter, r *http.Request) {
	name := modelName(r)
	var req types.ModelConfigRequest
	body, ok := decodeJSON(w, r, &req)
	if !ok {
		return
	}
	cfg := modelfile.Config{System: req.System, Template: req.Template}
	for _, p := range orderedParameters(body) {
		cfg.Set(p.Key, p.Value)
	}

	ctx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	start := time.Now()
	res, err := a.gateway(r).SaveModelConfig(ctx, name, cfg)
	a.track(name, "configure", start, err)
	if err != nil {
		a.fail(w, r, httpStatus(err), err)
		return
	}
	writeJSON(w, http.StatusOK, types.ResultResponse{Success: res.Success, Message: res.Message})
}

func (a *api) modelStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.gateway(r).GetModelStats(modelName(r)))
}

func (a *api) allStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.gateway(r).GetModelStats(""))
}

// modelName returns the {name} path segment, unescaped ("llama3%3A8b" is
// "llama3:8b").
func modelName(r *http.Request) string {
	raw := chi.URLParam(r, "name")
	if name, err := url.PathUnescape(raw); err == nil {
		return strings.TrimSpace(name)
	}
	return strings.TrimSpace(raw)
}

func (a *api) track(model, action string, start time.Time, err error) {
	modelOperationsTotal.WithLabelValues(action, resultLabel(err)).Inc()
	if a.usage == nil || daemon.IsValidation(err) {
		return
	}
	ev := a.usage.Record(usage.Event{Model: model, Action: action, Success: err == nil, Duration: time.Since(start)})
	zlog.Debug().Str("event_id", ev.ID).Str("model", model).Str("action", action).Bool("success", ev.Success).Msg("usage recorded")
}

// fail logs err and writes it with the given status. Nothing is written when
// the client has already gone away.
func (a *api) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	if r.Context().Err() != nil {
		return
	}
	logEvent(r, true).Int("status", status).Str("kind", string(daemon.KindOf(err))).Err(err).Msg("request failed")
	writeJSONError(w, status, err.Error())
}
