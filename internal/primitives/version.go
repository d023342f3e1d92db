// Package primitives provides versioning utilities for MachineConfig.
package primitives

import (
	"crypto/sha256"
	"fmt"
	"strings"
)

// ComputeVersion returns config.Version when set, else a fingerprint of the topology
// (IDs, types, initial children, history kinds and reaction targets). Snapshots carry it
// so a restore against a different tree is rejected.
func ComputeVersion(config *MachineConfig) string {
	if config.Version != "" {
		return config.Version
	}

	var b strings.Builder
	fmt.Fprintf(&b, "initial=%s\n", config.Initial)
	config.Walk(func(s *StateConfig, path []string) bool {
		fmt.Fprintf(&b, "%s|%s|%s|%s\n", strings.Join(path, "/"), s.EffectiveType(), s.Initial, s.History)
		for _, r := range s.Reactions {
			fmt.Fprintf(&b, "  %s|%s|%s|%s\n", r.Event, r.EffectiveKind(), r.Target, r.History)
		}
		return true
	})

	hash := sha256.Sum256([]byte(b.String()))
	return fmt.Sprintf("%x", hash[:8])
}
