package usage

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_PerModelAndAggregate(t *testing.T) {
	tr := NewTracker()
	base := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	tr.now = func() time.Time { return base }

	e := tr.Record(Event{Model: "llama3", Action: "stop", Success: true, Duration: 20 * time.Millisecond})
	require.NotEmpty(t, e.ID)
	assert.Equal(t, base, e.At)

	tr.Record(Event{Model: "llama3", Action: "pull", Success: false, Duration: 40 * time.Millisecond, At: base.Add(time.Minute)})
	tr.Record(Event{Model: "phi3", Action: "delete", Success: true, Duration: 30 * time.Millisecond})

	s := tr.Stats("llama3")
	assert.Equal(t, "llama3", s.Model)
	assert.Equal(t, 2, s.TotalOperations)
	assert.Equal(t, 1, s.Failures)
	assert.Equal(t, map[string]int{"stop": 1, "pull": 1}, s.Actions)
	require.NotNil(t, s.LastUsed)
	assert.Equal(t, base.Add(time.Minute), *s.LastUsed)
	assert.InDelta(t, 30.0, s.AvgDurationMS, 0.001)

	all := tr.Stats("")
	assert.Equal(t, 3, all.TotalOperations)
	assert.Equal(t, []string{"llama3", "phi3"}, all.Models)
	assert.Equal(t, 1, all.Actions["delete"])
}

func TestTracker_UnknownModel(t *testing.T) {
	s := NewTracker().Stats("missing")
	assert.Equal(t, 0, s.TotalOperations)
	assert.Nil(t, s.LastUsed)
	assert.NotNil(t, s.Actions)
}

func TestTracker_RecentCarriesEventIDs(t *testing.T) {
	tr := NewTracker()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	var ids []string
	for i := 0; i < RecentLimit+3; i++ {
		e := tr.Record(Event{Model: "llama3", Action: "pull", Success: i%2 == 0, At: base.Add(time.Duration(i) * time.Second)})
		ids = append(ids, e.ID)
	}
	other := tr.Record(Event{Model: "phi3", Action: "stop", Success: true, At: base.Add(time.Hour)})

	s := tr.Stats("llama3")
	require.Len(t, s.Recent, RecentLimit)
	assert.Equal(t, ids[len(ids)-1], s.Recent[0].ID)
	assert.Equal(t, ids[3], s.Recent[RecentLimit-1].ID)
	seen := map[string]bool{}
	for _, a := range s.Recent {
		assert.False(t, seen[a.ID], "duplicate id %s", a.ID)
		seen[a.ID] = true
	}

	all := tr.Stats("")
	require.Len(t, all.Recent, RecentLimit)
	assert.Equal(t, other.ID, all.Recent[0].ID)
	assert.Equal(t, "phi3", all.Recent[0].Model)

	assert.Empty(t, tr.Stats("missing").Recent)
}
