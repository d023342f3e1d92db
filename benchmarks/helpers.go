// Package benchmarks provides shared chart generators and cross-package benchmarks.
package benchmarks

import (
	"context"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// GenFlatConfig creates a flat machine with n atomic states cycling via "tick" events.
func GenFlatConfig(n int) primitives.MachineConfig {
	n = max(n, 1)
	mb := primitives.NewMachineBuilder(fmt.Sprintf("flat_%d", n))
	for i := range n {
		mb.Atomic(fmt.Sprintf("s%d", i)).On("tick", fmt.Sprintf("s%d", (i+1)%n))
	}
	return mb.MustBuild()
}

// GenDeepConfig nests depth compound states; the innermost one flips between two leaves
// on "tick" and the outermost declares deep history, restored by "back" from "out".
func GenDeepConfig(depth int) primitives.MachineConfig {
	depth = max(depth, 1)
	mb := primitives.NewMachineBuilder(fmt.Sprintf("deep_%d", depth))
	sb := mb.Compound("c0").WithHistory(primitives.DeepHistory).On("leave", "out")
	for i := 1; i < depth; i++ {
		sb = sb.Compound(fmt.Sprintf("c%d", i))
	}
	sb.Atomic("leaf1").On("tick", "leaf2")
	sb.Atomic("leaf2").On("tick", "leaf1")
	mb.Atomic("out").OnHistory("back", "c0", primitives.DeepHistory)
	return mb.MustBuild()
}

// GenParallelConfig creates an orthogonal state with n regions, each toggling on "tick".
func GenParallelConfig(n int) primitives.MachineConfig {
	n = max(n, 2)
	mb := primitives.NewMachineBuilder(fmt.Sprintf("parallel_%d", n))
	o := mb.Orthogonal("p")
	for i := range n {
		r := o.Compound(fmt.Sprintf("r%d", i))
		a, b := fmt.Sprintf("r%d_a", i), fmt.Sprintf("r%d_b", i)
		r.Atomic(a).On("tick", b)
		r.Atomic(b).On("tick", a)
	}
	return mb.MustBuild()
}

// GenGuardedConfig gives one state n guarded "tick" reactions of which only the last
// passes, so every event evaluates n guards.
func GenGuardedConfig(n int) primitives.MachineConfig {
	n = max(n, 1)
	never := primitives.Guard(func(context.Context, *primitives.ExtendedState, primitives.Event) bool { return false })
	mb := primitives.NewMachineBuilder(fmt.Sprintf("guarded_%d", n))
	main := mb.Atomic("main")
	for i := range n - 1 {
		main.On("tick", fmt.Sprintf("t%d", i), primitives.WithGuard(never))
	}
	main.OnInternal("tick")
	for i := range n - 1 {
		mb.Atomic(fmt.Sprintf("t%d", i))
	}
	return mb.MustBuild()
}

// MustRunning builds and initiates a machine, panicking on error.
func MustRunning(config primitives.MachineConfig, opts ...core.Option) *core.Machine {
	m, err := core.NewMachine(config, opts...)
	if err != nil {
		panic(err)
	}
	if err := m.Initiate(context.Background()); err != nil {
		panic(err)
	}
	return m
}

// GenSnapshotYAML marshals the snapshot of a machine that processed one "tick".
func GenSnapshotYAML(config primitives.MachineConfig) []byte {
	m := MustRunning(config)
	if _, err := m.ProcessEvent(context.Background(), primitives.NewEvent("tick", nil)); err != nil {
		panic(err)
	}
	data, err := yaml.Marshal(m.Snapshot())
	if err != nil {
		panic(err)
	}
	return data
}
