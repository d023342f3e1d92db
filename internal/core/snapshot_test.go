package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/comalice/hsmx/internal/primitives"
)

func TestMachine_SnapshotRestore(t *testing.T) {
	m := newRunning(t, deepConfig(), WithInstanceID("orig"))
	m.Ext().Set("count", 3)
	send(t, m, "nextA")
	send(t, m, "nextB")
	send(t, m, "out")

	snap := m.Snapshot()
	assert.Equal(t, "orig", snap.MachineID)
	assert.Equal(t, "deep", snap.ChartID)
	assert.Equal(t, StatusRunning, snap.Status)
	assert.Equal(t, []string{"Out"}, snap.Active)

	restored, err := NewMachine(deepConfig())
	require.NoError(t, err)
	require.NoError(t, restored.Restore(snap))
	assert.Equal(t, "orig", restored.ID())
	assert.Equal(t, StatusRunning, restored.Status())
	assert.Equal(t, []string{"Out"}, restored.ActiveLeaves())
	assert.Equal(t, 3, restored.Ext().Int("count"))

	send(t, restored, "deep")
	assert.Equal(t, []string{"a2", "b21"}, restored.ActiveLeaves())
}

func TestMachine_SnapshotEncodings(t *testing.T) {
	m := newRunning(t, deepConfig())
	send(t, m, "nextA")
	snap := m.Snapshot()

	data, err := json.Marshal(snap)
	require.NoError(t, err)
	var fromJSON MachineSnapshot
	require.NoError(t, json.Unmarshal(data, &fromJSON))

	out, err := yaml.Marshal(snap)
	require.NoError(t, err)
	var fromYAML MachineSnapshot
	require.NoError(t, yaml.Unmarshal(out, &fromYAML))

	for _, decoded := range []MachineSnapshot{fromJSON, fromYAML} {
		other, err := NewMachine(deepConfig())
		require.NoError(t, err)
		require.NoError(t, other.Restore(decoded))
		assert.Equal(t, []string{"a2", "b1"}, other.ActiveLeaves())
	}
}

func TestMachine_RestoreRejectsMismatch(t *testing.T) {
	m := newRunning(t, deepConfig())
	good := m.Snapshot()

	tests := []struct {
		name   string
		mutate func(s *MachineSnapshot)
	}{
		{"version", func(s *MachineSnapshot) { s.Version = "other" }},
		{"chart", func(s *MachineSnapshot) { s.ChartID = "other" }},
		{"unknown leaf", func(s *MachineSnapshot) { s.Active = []string{"ghost"} }},
		{"incomplete configuration", func(s *MachineSnapshot) { s.Active = []string{"a1"} }},
		{"running without states", func(s *MachineSnapshot) { s.Active = nil }},
		{"terminated with states", func(s *MachineSnapshot) { s.Status = StatusTerminated }},
		{"bad deferred state", func(s *MachineSnapshot) {
			s.Deferred = []DeferredEvent{{Event: primitives.NewEvent("e", nil), State: "ghost"}}
		}},
		{"history on undeclared kind", func(s *MachineSnapshot) {
			s.History = HistorySnapshot{Shallow: map[string][]string{"D": {"O"}}}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := good
			snap.Active = append([]string(nil), good.Active...)
			tt.mutate(&snap)

			other, err := NewMachine(deepConfig())
			require.NoError(t, err)
			err = other.Restore(snap)
			assert.ErrorIs(t, err, ErrSnapshotMismatch)
			assert.Equal(t, StatusConstructed, other.Status())
			assert.Empty(t, other.ActiveLeaves())
		})
	}
}
