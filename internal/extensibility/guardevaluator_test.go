package extensibility

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/comalice/hsmx/internal/primitives"
)

func TestExpressionGuardEvaluator(t *testing.T) {
	ext := primitives.NewExtendedState()
	ext.Set("temp", 35)
	ext.Set("ratio", 0.5)
	ext.Set("name", "alpha")
	ext.Set("ready", true)
	evt := primitives.NewEvent("reading", map[string]any{"value": 7})

	tests := []struct {
		expr string
		want bool
	}{
		{"temp > 30", true},
		{"temp < 30", false},
		{"temp >= 35", true},
		{"temp <= 34", false},
		{"temp == 35", true},
		{"temp != 35", false},
		{"ratio < 1", true},
		{"ratio == 0.5", true},
		{"name == alpha", true},
		{"name != beta", true},
		{"name > 3", false},
		{"ready == true", true},
		{"ready == false", false},
		{"event.value == 7", true},
		{"event.value > 10", false},
		{"event.missing == 7", false},
		{"missing == 1", false},
		{"temp > abc", false},
		{"temp ~ 3", false},
		{"malformed", false},
	}
	e := NewExpressionGuardEvaluator()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, e.Eval(context.Background(), ext, tt.expr, evt))
		})
	}

	assert.True(t, e.Eval(context.Background(), ext, nil, evt))
	assert.False(t, e.Eval(context.Background(), ext, 12, evt))
}

func TestNamedGuardEvaluator(t *testing.T) {
	ctx := context.Background()
	ext := primitives.NewExtendedState()
	ext.Set("n", 2)
	evt := primitives.NewEvent("e", nil)

	e := NewNamedGuardEvaluator().
		Register("even", func(_ context.Context, ext *primitives.ExtendedState, _ primitives.Event) bool {
			return ext.Int("n")%2 == 0
		})

	assert.True(t, e.Eval(ctx, ext, "even", evt))
	assert.True(t, e.Eval(ctx, ext, nil, evt))
	assert.False(t, e.Eval(ctx, ext, "n > 1", evt), "unknown names fail closed without a fallback")
	assert.False(t, e.Eval(ctx, ext, 3.5, evt))

	e.WithFallback(NewExpressionGuardEvaluator())
	assert.True(t, e.Eval(ctx, ext, "n > 1", evt))
	assert.True(t, e.Eval(ctx, ext, primitives.Guard(func(context.Context, *primitives.ExtendedState, primitives.Event) bool {
		return true
	}), evt))
	assert.True(t, e.Has("even"))
}
