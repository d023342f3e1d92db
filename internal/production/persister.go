// Package production provides production integrations: persistence, event publishing,
// metrics, visualization, chart loading and an HTTP adapter.
package production

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hsmx/internal/core"
)

// ErrMachineID is returned by the file persisters for IDs that cannot name a file in their
// directory.
var ErrMachineID = errors.New("invalid machine ID")

type codec struct {
	ext       string
	marshal   func(any) ([]byte, error)
	unmarshal func([]byte, any) error
}

var (
	jsonCodec = codec{
		ext:       ".json",
		marshal:   func(v any) ([]byte, error) { return json.MarshalIndent(v, "", "  ") },
		unmarshal: json.Unmarshal,
	}
	yamlCodec = codec{ext: ".yaml", marshal: yaml.Marshal, unmarshal: yaml.Unmarshal}
)

// filePersister stores one file per machine in dir.
type filePersister struct {
	dir   string
	codec codec
}

func newFilePersister(dir string, c codec) (filePersister, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return filePersister{}, fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return filePersister{dir: dir, codec: c}, nil
}

func (p filePersister) path(machineID string) (string, error) {
	if machineID == "" || strings.ContainsAny(machineID, `/\`) || strings.Contains(machineID, "..") {
		return "", fmt.Errorf("%w: %q", ErrMachineID, machineID)
	}
	return filepath.Join(p.dir, machineID+p.codec.ext), nil
}

// Save writes the snapshot through a temp file so readers never see a partial document.
func (p filePersister) Save(_ context.Context, snapshot core.MachineSnapshot) error {
	fn, err := p.path(snapshot.MachineID)
	if err != nil {
		return err
	}
	data, err := p.codec.marshal(snapshot)
	if err != nil {
		return fmt.Errorf("marshal snapshot %q: %w", snapshot.MachineID, err)
	}
	tmp := fn + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, fn); err != nil {
		return fmt.Errorf("rename %s: %w", fn, err)
	}
	return nil
}

func (p filePersister) Load(_ context.Context, machineID string) (core.MachineSnapshot, error) {
	fn, err := p.path(machineID)
	if err != nil {
		return core.MachineSnapshot{}, err
	}
	data, err := os.ReadFile(fn)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return core.MachineSnapshot{}, fmt.Errorf("machine %q: %w", machineID, core.ErrNotFound)
		}
		return core.MachineSnapshot{}, fmt.Errorf("read %s: %w", fn, err)
	}

	var snapshot core.MachineSnapshot
	if err := p.codec.unmarshal(data, &snapshot); err != nil {
		return core.MachineSnapshot{}, fmt.Errorf("unmarshal %s: %w", fn, err)
	}
	snapshot.MachineID = machineID
	return snapshot, nil
}

func (p filePersister) List(context.Context) ([]string, error) {
	entries, err := os.ReadDir(p.dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", p.dir, err)
	}
	var ids []string
	for _, e := range entries {
		if id, ok := strings.CutSuffix(e.Name(), p.codec.ext); ok && !e.IsDir() {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)
	return ids, nil
}

// JSONPersister is a file-based persister using JSON serialization.
type JSONPersister struct {
	filePersister
}

// NewJSONPersister creates a JSONPersister, ensuring the directory exists.
func NewJSONPersister(dir string) (*JSONPersister, error) {
	fp, err := newFilePersister(dir, jsonCodec)
	if err != nil {
		return nil, err
	}
	return &JSONPersister{fp}, nil
}

// YAMLPersister is a file-based persister using YAML serialization.
type YAMLPersister struct {
	filePersister
}

// NewYAMLPersister creates a YAMLPersister, ensuring the directory exists.
func NewYAMLPersister(dir string) (*YAMLPersister, error) {
	fp, err := newFilePersister(dir, yamlCodec)
	if err != nil {
		return nil, err
	}
	return &YAMLPersister{fp}, nil
}

var (
	_ core.Persister = (*JSONPersister)(nil)
	_ core.Persister = (*YAMLPersister)(nil)
)
