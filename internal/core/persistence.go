package core

import (
	"context"
	"errors"
	"time"

	"github.com/comalice/hsmx/internal/primitives"
)

// ErrNotFound is returned by a Persister that holds no snapshot for a machine.
var ErrNotFound = errors.New("snapshot not found")

// Persister stores machine snapshots keyed by machine instance ID.
type Persister interface {
	Save(ctx context.Context, snapshot MachineSnapshot) error
	Load(ctx context.Context, machineID string) (MachineSnapshot, error)
	// List returns the IDs of every stored machine.
	List(ctx context.Context) ([]string, error)
}

// MachineMetadata accompanies every published event.
type MachineMetadata struct {
	MachineID string    `json:"machineID" yaml:"machineID"`
	Outcome   Outcome   `json:"outcome" yaml:"outcome"`
	Active    []string  `json:"active" yaml:"active"`
	Error     string    `json:"error,omitempty" yaml:"error,omitempty"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
}

// EventPublisher announces processed events.
type EventPublisher interface {
	Publish(ctx context.Context, event primitives.Event, metadata MachineMetadata) error
	Close() error
}

// EventSource feeds events into a Runner.
type EventSource interface {
	Events() <-chan primitives.Event
}
