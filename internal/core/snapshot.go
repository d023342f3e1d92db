package core

import (
	"fmt"
	"time"

	"github.com/comalice/hsmx/internal/primitives"
)

// DeferredEvent is a deferred event together with the state that deferred it. Released
// events wait for redelivery because their state has exited since deferring them.
type DeferredEvent struct {
	Event    primitives.Event `json:"event" yaml:"event"`
	State    string           `json:"state" yaml:"state"`
	Released bool             `json:"released,omitempty" yaml:"released,omitempty"`
}

// MachineSnapshot is the serializable snapshot of machine runtime state.
type MachineSnapshot struct {
	MachineID string          `json:"machineID" yaml:"machineID"`
	ChartID   string          `json:"chartID" yaml:"chartID"`
	Version   string          `json:"version" yaml:"version"`
	Status    Status          `json:"status" yaml:"status"`
	Active    []string        `json:"active" yaml:"active"`
	History   HistorySnapshot `json:"history" yaml:"history"`
	Context   map[string]any  `json:"context,omitempty" yaml:"context,omitempty"`
	Deferred  []DeferredEvent `json:"deferred,omitempty" yaml:"deferred,omitempty"`
	Timestamp time.Time       `json:"timestamp" yaml:"timestamp"`
}

// Snapshot captures the active leaves, history, extended state and deferred events.
func (m *Machine) Snapshot() MachineSnapshot {
	return MachineSnapshot{
		MachineID: m.id,
		ChartID:   m.config.ID,
		Version:   m.version,
		Status:    m.status,
		Active:    m.ActiveLeaves(),
		History:   m.history.Snapshot(),
		Context:   m.ext.Snapshot(),
		Deferred:  m.Deferred(),
		Timestamp: time.Now(),
	}
}

// Restore replaces the runtime state with snap without running any action. The snapshot
// must come from the same definition (same version) and describe a complete configuration.
// The machine takes over the snapshot's instance ID.
func (m *Machine) Restore(snap MachineSnapshot) error {
	if snap.ChartID != m.config.ID || snap.Version != m.version {
		return fmt.Errorf("%w: have %s@%s, snapshot %s@%s",
			ErrSnapshotMismatch, m.config.ID, m.version, snap.ChartID, snap.Version)
	}

	leaves := make([]*node, 0, len(snap.Active))
	for _, id := range snap.Active {
		n, err := m.tree.lookup(id)
		if err != nil {
			return fmt.Errorf("%w: active %w", ErrSnapshotMismatch, err)
		}
		leaves = append(leaves, n)
	}
	switch snap.Status {
	case StatusRunning:
		if len(leaves) == 0 {
			return fmt.Errorf("%w: running snapshot without active states", ErrSnapshotMismatch)
		}
	case StatusConstructed, StatusTerminated:
		if len(leaves) > 0 {
			return fmt.Errorf("%w: %s snapshot with active states", ErrSnapshotMismatch, snap.Status)
		}
	default:
		return fmt.Errorf("%w: unknown status %q", ErrSnapshotMismatch, snap.Status)
	}

	conf := newConfiguration(m.tree)
	if err := conf.rebuild(leaves); err != nil {
		return fmt.Errorf("%w: %w", ErrSnapshotMismatch, err)
	}
	history := NewHistoryStore()
	if err := history.restore(m.tree, snap.History); err != nil {
		return fmt.Errorf("%w: history: %w", ErrSnapshotMismatch, err)
	}
	deferred := make([]deferredEvent, 0, len(snap.Deferred))
	for _, d := range snap.Deferred {
		n, err := m.tree.lookup(d.State)
		if err != nil {
			return fmt.Errorf("%w: deferred %w", ErrSnapshotMismatch, err)
		}
		deferred = append(deferred, deferredEvent{evt: d.Event, state: n, released: d.Released || !conf.isActive(n)})
	}

	if snap.MachineID != "" {
		m.id = snap.MachineID
	}
	m.conf = conf
	m.history = history
	m.deferred = deferred
	m.posted = nil
	m.status = snap.Status
	if snap.Context != nil {
		m.ext.Restore(snap.Context)
	}
	m.logger.Debug("machine restored", "machine", m.id, "active", snap.Active)
	return nil
}
