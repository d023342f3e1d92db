package production

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/comalice/hsmx/internal/primitives"
)

// DOTVisualizer renders a chart as Graphviz DOT source. Composite states become clusters
// holding an anchor node that edges attach to.
type DOTVisualizer struct{}

// ExportDOT renders config. States listed in active (any level) are filled.
func (v *DOTVisualizer) ExportDOT(config primitives.MachineConfig, active []string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "digraph %q {\n", config.ID)
	b.WriteString("  compound=true;\n  rankdir=LR;\n")
	b.WriteString("  node [shape=box, fontsize=10, style=rounded];\n  edge [fontsize=9];\n")

	on := make(map[string]bool, len(active))
	for _, id := range active {
		on[id] = true
	}
	if initial := config.InitialState(); initial != nil {
		b.WriteString("  \"__start\" [shape=point];\n")
		fmt.Fprintf(&b, "  \"__start\" -> %q;\n", initial.ID)
	}
	for _, s := range config.States {
		renderState(&b, s, on, "  ")
	}
	terminal := false
	config.Walk(func(s *primitives.StateConfig, _ []string) bool {
		for _, r := range s.Reactions {
			renderEdge(&b, s, r)
			terminal = terminal || r.EffectiveKind() == primitives.ReactionTerminate
		}
		return true
	})
	if terminal {
		b.WriteString("  \"__end\" [shape=doublecircle, label=\"\"];\n")
	}
	b.WriteString("}\n")
	return b.String()
}

// ExportJSON serializes the structural part of the chart.
func (v *DOTVisualizer) ExportJSON(config primitives.MachineConfig) ([]byte, error) {
	return json.MarshalIndent(config, "", "  ")
}

func renderState(b *strings.Builder, s *primitives.StateConfig, on map[string]bool, indent string) {
	fill := ""
	if on[s.ID] {
		fill = ", style=\"rounded,filled\", fillcolor=lightgreen"
	}
	label := s.ID + historyMarker(s.History)

	if len(s.Children) == 0 {
		fmt.Fprintf(b, "%s%q [label=%q%s];\n", indent, s.ID, label, fill)
		return
	}

	fmt.Fprintf(b, "%ssubgraph %q {\n", indent, "cluster_"+s.ID)
	inner := indent + "  "
	fmt.Fprintf(b, "%slabel=%q;\n", inner, fmt.Sprintf("%s (%s)", label, s.EffectiveType()))
	if s.EffectiveType() == primitives.Orthogonal {
		fmt.Fprintf(b, "%sstyle=dashed;\n", inner)
	}
	fmt.Fprintf(b, "%s%q [label=%q, shape=ellipse%s];\n", inner, s.ID, s.ID, fill)
	if c := s.InitialChild(); c != nil && s.EffectiveType() == primitives.Compound {
		fmt.Fprintf(b, "%s%q -> %q [style=dotted, arrowhead=none];\n", inner, s.ID, c.ID)
	}
	for _, c := range s.Children {
		renderState(b, c, on, inner)
	}
	fmt.Fprintf(b, "%s}\n", indent)
}

func renderEdge(b *strings.Builder, s *primitives.StateConfig, r primitives.ReactionConfig) {
	label := r.Event
	if g, ok := r.Guard.(string); ok && g != "" {
		label += " [" + g + "]"
	}
	switch r.EffectiveKind() {
	case primitives.ReactionTransition:
		label += historyMarker(r.History)
		fmt.Fprintf(b, "  %q -> %q [label=%q];\n", s.ID, r.Target, label)
	case primitives.ReactionInternal, primitives.ReactionDiscard, primitives.ReactionDefer, primitives.ReactionCustom:
		label += " / " + string(r.EffectiveKind())
		fmt.Fprintf(b, "  %q -> %q [label=%q, style=dashed];\n", s.ID, s.ID, label)
	case primitives.ReactionTerminate:
		fmt.Fprintf(b, "  %q -> \"__end\" [label=%q];\n", s.ID, label)
	}
}

func historyMarker(h primitives.HistoryType) string {
	switch h {
	case primitives.ShallowHistory:
		return " (H)"
	case primitives.DeepHistory:
		return " (H*)"
	case primitives.FullHistory:
		return " (H, H*)"
	}
	return ""
}
