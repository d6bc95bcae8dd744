package daemon

import (
	"encoding/json"

	"github.com/tidwall/sjson"

	"ollamadash/internal/modelfile"
)

// Model is one entry of the daemon catalog (GET api/tags). Fields the daemon
// sends that are not modelled here survive a decode/encode round trip.
type Model struct {
	Name       string         `json:"name"`
	ModifiedAt string         `json:"modified_at"`
	Size       int64          `json:"size,omitempty"`
	Digest     string         `json:"digest,omitempty"`
	Details    map[string]any `json:"details,omitempty"`

	raw json.RawMessage
}

func (m *Model) UnmarshalJSON(data []byte) error {
	type alias Model
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = Model(aux)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

// MarshalJSON re-emits the object received from the daemon with modified_at
// replaced by the current value.
func (m Model) MarshalJSON() ([]byte, error) {
	type alias Model
	if len(m.raw) == 0 {
		return json.Marshal(alias(m))
	}
	return sjson.SetBytes(m.raw, "modified_at", m.ModifiedAt)
}

// ModelList is the payload of GET api/tags.
type ModelList struct {
	Models []Model `json:"models"`
}

// RunningModel is one entry of GET api/ps.
type RunningModel struct {
	Name      string         `json:"name"`
	Model     string         `json:"model,omitempty"`
	Size      int64          `json:"size,omitempty"`
	SizeVRAM  int64          `json:"size_vram,omitempty"`
	Digest    string         `json:"digest,omitempty"`
	ExpiresAt string         `json:"expires_at,omitempty"`
	Details   map[string]any `json:"details,omitempty"`

	raw json.RawMessage
}

func (m *RunningModel) UnmarshalJSON(data []byte) error {
	type alias RunningModel
	var aux alias
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*m = RunningModel(aux)
	m.raw = append(json.RawMessage(nil), data...)
	return nil
}

func (m RunningModel) MarshalJSON() ([]byte, error) {
	type alias RunningModel
	if len(m.raw) == 0 {
		return json.Marshal(alias(m))
	}
	return m.raw, nil
}

// RunningList is the payload of GET api/ps.
type RunningList struct {
	Models []RunningModel `json:"models"`
}

// Has reports whether a model with the given name is loaded.
func (l RunningList) Has(name string) bool {
	for _, m := range l.Models {
		if m.Name == name {
			return true
		}
	}
	return false
}

// showResponse is the subset of POST api/show we consume.
type showResponse struct {
	Modelfile  string         `json:"modelfile"`
	Parameters string         `json:"parameters"`
	Template   string         `json:"template"`
	Details    map[string]any `json:"details"`
	ModifiedAt string         `json:"modified_at"`
}

// ModelDetails is the detail lookup used to enrich listings.
type ModelDetails struct {
	Details    map[string]any `json:"details"`
	ModifiedAt string         `json:"modified_at"`
}

// ModelConfig is a model's configuration as read back from the daemon.
type ModelConfig struct {
	Modelfile  string            `json:"modelfile"`
	Parameters map[string]string `json:"parameters"`
	Template   string            `json:"template"`
	System     string            `json:"system"`
}

func newModelConfig(text string) ModelConfig {
	c := modelfile.Parse(text)
	return ModelConfig{
		Modelfile:  text,
		Parameters: c.ParameterMap(),
		Template:   c.Template,
		System:     c.System,
	}
}

// Result is the outcome of a mutating operation.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// PullProgress is forwarded to pull callers as the daemon reports progress.
type PullProgress = StreamEvent
