// Package usage keeps per-model operation statistics in memory.
package usage

import (
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is one completed model operation.
type Event struct {
	ID       string
	Model    string
	Action   string
	Success  bool
	Duration time.Duration
	At       time.Time
}

// RecentLimit bounds the activity kept per model and returned by Stats.
const RecentLimit = 10

// Activity is one entry of a model's recent-operation history.
type Activity struct {
	ID         string    `json:"id"`
	Model      string    `json:"model"`
	Action     string    `json:"action"`
	Success    bool      `json:"success"`
	DurationMS int64     `json:"duration_ms"`
	At         time.Time `json:"at"`
}

// Stats summarizes recorded events for one model, or for all models when
// Model is empty.
type Stats struct {
	Model           string         `json:"model,omitempty"`
	TotalOperations int            `json:"total_operations"`
	Failures        int            `json:"failures"`
	Actions         map[string]int `json:"actions"`
	LastUsed        *time.Time     `json:"last_used,omitempty"`
	AvgDurationMS   float64        `json:"avg_duration_ms"`
	Models          []string       `json:"models,omitempty"`
	// Recent lists the newest operations first.
	Recent          []Activity     `json:"recent"`
}

type aggregate struct {
	total    int
	failures int
	actions  map[string]int
	lastUsed time.Time
	duration time.Duration
	// recent is a ring of the last RecentLimit activities; next is the
	// slot the following write goes to.
	recent   []Activity
	next     int
}

func (a *aggregate) push(act Activity) {
	if len(a.recent) < RecentLimit {
		a.recent = append(a.recent, act)
		return
	}
	a.recent[a.next] = act
	a.next = (a.next + 1) % RecentLimit
}

// Tracker is safe for concurrent use.
type Tracker struct {
	mu       sync.RWMutex
	perModel map[string]*aggregate
	now      func() time.Time
}

func NewTracker() *Tracker {
	return &Tracker{perModel: make(map[string]*aggregate), now: time.Now}
}

// Record stores e and returns it with ID and At filled in.
func (t *Tracker) Record(e Event) Event {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = t.now()
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.perModel[e.Model]
	if !ok {
		a = &aggregate{actions: make(map[string]int)}
		t.perModel[e.Model] = a
	}
	a.total++
	if !e.Success {
		a.failures++
	}
	a.actions[e.Action]++
	a.duration += e.Duration
	if e.At.After(a.lastUsed) {
		a.lastUsed = e.At
	}
	a.push(Activity{
		ID:         e.ID,
		Model:      e.Model,
		Action:     e.Action,
		Success:    e.Success,
		DurationMS: e.Duration.Milliseconds(),
		At:         e.At,
	})
	return e
}

// Stats aggregates events for model, or across every model when model is "".
func (t *Tracker) Stats(model string) Stats {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := Stats{Model: model, Actions: map[string]int{}, Recent: []Activity{}}
	var dur time.Duration
	var last time.Time
	add := func(a *aggregate) {
		out.TotalOperations += a.total
		out.Failures += a.failures
		for k, v := range a.actions {
			out.Actions[k] += v
		}
		dur += a.duration
		if a.lastUsed.After(last) {
			last = a.lastUsed
		}
		out.Recent = append(out.Recent, a.recent...)
	}
	if model != "" {
		if a, ok := t.perModel[model]; ok {
			add(a)
		}
	} else {
		for name, a := range t.perModel {
			add(a)
			out.Models = append(out.Models, name)
		}
		sort.Strings(out.Models)
	}
	if !last.IsZero() {
		out.LastUsed = &last
	}
	sort.SliceStable(out.Recent, func(i, j int) bool { return out.Recent[i].At.After(out.Recent[j].At) })
	if len(out.Recent) > RecentLimit {
		out.Recent = out.Recent[:RecentLimit]
	}
	if out.TotalOperations > 0 {
		out.AvgDurationMS = float64(dur.Milliseconds()) / float64(out.TotalOperations)
	}
	return out
}
