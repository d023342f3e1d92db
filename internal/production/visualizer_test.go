package production

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/comalice/hsmx/internal/primitives"
)

func TestDOTVisualizer_ExportDOT(t *testing.T) {
	v := &DOTVisualizer{}
	dot := v.ExportDOT(loadDoor(t), []string{"opened", "wide"})

	assert.True(t, strings.HasPrefix(dot, `digraph "door" {`))
	assert.Contains(t, dot, `subgraph "cluster_opened" {`)
	assert.Contains(t, dot, `label="opened (H) (compound)"`)
	assert.Contains(t, dot, `"wide" [label="wide", style="rounded,filled", fillcolor=lightgreen];`)
	assert.Contains(t, dot, `"ajar" [label="ajar"];`)
	assert.Contains(t, dot, `"__start" -> "closed";`)
	assert.Contains(t, dot, `"locked" -> "opened" [label="unlock (H)"];`)
	assert.Contains(t, dot, `"locked" -> "closed" [label="kick [force > 3]"];`)
	assert.Contains(t, dot, `"opened" -> "opened" [label="knock / internal", style=dashed];`)
	assert.True(t, strings.HasSuffix(dot, "}\n"))
}

func TestDOTVisualizer_TerminalNodeOnce(t *testing.T) {
	mb := primitives.NewMachineBuilder("shutdown")
	mb.Atomic("a").On("next", "b").OnTerminate("halt")
	mb.Atomic("b").OnTerminate("halt").OnTerminate("abort")
	config, err := mb.Build()
	require.NoError(t, err)

	dot := (&DOTVisualizer{}).ExportDOT(config, nil)
	assert.Equal(t, 1, strings.Count(dot, `"__end" [shape=doublecircle`))
	assert.Equal(t, 3, strings.Count(dot, `-> "__end"`))
	assert.True(t, strings.HasSuffix(dot, "  \"__end\" [shape=doublecircle, label=\"\"];\n}\n"))

	dot = (&DOTVisualizer{}).ExportDOT(loadDoor(t), nil)
	assert.NotContains(t, dot, "__end")
}

func TestDOTVisualizer_ExportJSON(t *testing.T) {
	v := &DOTVisualizer{}
	data, err := v.ExportJSON(loadDoor(t))
	require.NoError(t, err)

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, "door", decoded["id"])
	assert.Len(t, decoded["states"], 3)
}
