package production

import (
	"errors"
	"fmt"
	"maps"
	"os"
	"slices"

	"github.com/mitchellh/mapstructure"
	"gopkg.in/yaml.v3"

	"github.com/comalice/hsmx/internal/extensibility"
	"github.com/comalice/hsmx/internal/primitives"
)

// ErrChart is wrapped by every chart document error.
var ErrChart = errors.New("invalid chart document")

// ChartLoader decodes YAML chart documents into a MachineConfig. Actions and guards stay
// string references resolved at run time by the machine's ActionRunner and GuardEvaluator;
// custom handlers are Go functions and must be registered with the loader.
//
//	id: door
//	states:
//	  - id: closed
//	    entry: [lock]
//	    on:
//	      open: opened                       # transition shorthand
//	      knock: {kind: internal, actions: [log]}
//	      kick:
//	        - {target: broken, guard: "force > 3"}
//	        - {kind: discard}
//	  - id: opened
//	    history: deep
//	    children: [...]
type ChartLoader struct {
	actions  *extensibility.NamedActionRunner
	handlers map[string]primitives.Handler
}

// LoaderOption configures a ChartLoader.
type LoaderOption func(*ChartLoader)

// WithActionRegistry makes Load reject action names the registry does not know.
func WithActionRegistry(r *extensibility.NamedActionRunner) LoaderOption {
	return func(l *ChartLoader) {
		l.actions = r
	}
}

// WithHandler registers a custom reaction handler under name.
func WithHandler(name string, h primitives.Handler) LoaderOption {
	return func(l *ChartLoader) {
		l.handlers[name] = h
	}
}

// NewChartLoader creates a loader.
func NewChartLoader(opts ...LoaderOption) *ChartLoader {
	l := &ChartLoader{handlers: make(map[string]primitives.Handler)}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

type rawChart struct {
	ID      string     `mapstructure:"id"`
	Version string     `mapstructure:"version"`
	Initial string     `mapstructure:"initial"`
	States  []rawState `mapstructure:"states"`
}

type rawState struct {
	ID       string         `mapstructure:"id"`
	Type     string         `mapstructure:"type"`
	Initial  string         `mapstructure:"initial"`
	History  string         `mapstructure:"history"`
	Entry    []string       `mapstructure:"entry"`
	Exit     []string       `mapstructure:"exit"`
	On       map[string]any `mapstructure:"on"`
	Children []rawState     `mapstructure:"children"`
}

type rawReaction struct {
	Kind    string   `mapstructure:"kind"`
	Target  string   `mapstructure:"target"`
	History string   `mapstructure:"history"`
	Guard   string   `mapstructure:"guard"`
	Actions []string `mapstructure:"actions"`
	Handler string   `mapstructure:"handler"`
}

// LoadFile reads and decodes the chart at path.
func (l *ChartLoader) LoadFile(path string) (primitives.MachineConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return primitives.MachineConfig{}, fmt.Errorf("read chart: %w", err)
	}
	return l.Load(data)
}

// Load decodes a chart document and validates the resulting definition.
func (l *ChartLoader) Load(data []byte) (primitives.MachineConfig, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return primitives.MachineConfig{}, fmt.Errorf("%w: %v", ErrChart, err)
	}
	var raw rawChart
	if err := decode(doc, &raw); err != nil {
		return primitives.MachineConfig{}, fmt.Errorf("%w: %v", ErrChart, err)
	}

	config := primitives.MachineConfig{ID: raw.ID, Version: raw.Version, Initial: raw.Initial}
	for _, rs := range raw.States {
		s, err := l.state(rs)
		if err != nil {
			return primitives.MachineConfig{}, err
		}
		config.States = append(config.States, s)
	}
	if err := config.Validate(); err != nil {
		return primitives.MachineConfig{}, err
	}
	return config, nil
}

func decode(input, out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		ErrorUnused:      true,
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	return dec.Decode(input)
}

func (l *ChartLoader) state(rs rawState) (*primitives.StateConfig, error) {
	history, err := primitives.ParseHistoryType(rs.History)
	if err != nil {
		return nil, fmt.Errorf("%w: state %q: %v", ErrChart, rs.ID, err)
	}
	s := primitives.NewStateConfig(rs.ID, primitives.StateType(rs.Type)).WithHistory(history)
	s.Initial = rs.Initial

	for _, a := range rs.Entry {
		if err := l.checkAction(rs.ID, a); err != nil {
			return nil, err
		}
		s.AddEntry(a)
	}
	for _, a := range rs.Exit {
		if err := l.checkAction(rs.ID, a); err != nil {
			return nil, err
		}
		s.AddExit(a)
	}

	// Map order is random; sort so repeated loads produce the same definition.
	for _, event := range slices.Sorted(maps.Keys(rs.On)) {
		reactions, err := l.reactions(rs.ID, event, rs.On[event])
		if err != nil {
			return nil, err
		}
		for _, r := range reactions {
			s.AddReaction(r)
		}
	}

	for _, rc := range rs.Children {
		c, err := l.state(rc)
		if err != nil {
			return nil, err
		}
		s.AddChild(c)
	}
	return s, nil
}

func (l *ChartLoader) reactions(state, event string, v any) ([]primitives.ReactionConfig, error) {
	switch v := v.(type) {
	case string:
		return []primitives.ReactionConfig{{Event: event, Target: v}}, nil
	case map[string]any:
		r, err := l.reaction(state, event, v)
		if err != nil {
			return nil, err
		}
		return []primitives.ReactionConfig{r}, nil
	case []any:
		var out []primitives.ReactionConfig
		for _, item := range v {
			rs, err := l.reactions(state, event, item)
			if err != nil {
				return nil, err
			}
			out = append(out, rs...)
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: state %q event %q: unexpected reaction %T", ErrChart, state, event, v)
}

func (l *ChartLoader) reaction(state, event string, m map[string]any) (primitives.ReactionConfig, error) {
	var raw rawReaction
	if err := decode(m, &raw); err != nil {
		return primitives.ReactionConfig{}, fmt.Errorf("%w: state %q event %q: %v", ErrChart, state, event, err)
	}
	history, err := primitives.ParseHistoryType(raw.History)
	if err != nil {
		return primitives.ReactionConfig{}, fmt.Errorf("%w: state %q event %q: %v", ErrChart, state, event, err)
	}

	r := primitives.ReactionConfig{
		Event:   event,
		Kind:    primitives.ReactionKind(raw.Kind),
		Target:  raw.Target,
		History: history,
	}
	if raw.Guard != "" {
		r.Guard = raw.Guard
	}
	for _, a := range raw.Actions {
		if err := l.checkAction(state, a); err != nil {
			return primitives.ReactionConfig{}, err
		}
		r.Actions = append(r.Actions, a)
	}
	if raw.Handler != "" {
		h, ok := l.handlers[raw.Handler]
		if !ok {
			return primitives.ReactionConfig{}, fmt.Errorf("%w: state %q event %q: unknown handler %q", ErrChart, state, event, raw.Handler)
		}
		r.Kind = primitives.ReactionCustom
		r.Handler = h
	}
	return r, nil
}

func (l *ChartLoader) checkAction(state, name string) error {
	if l.actions == nil || l.actions.Has(name) {
		return nil
	}
	return fmt.Errorf("%w: state %q: %w %q", ErrChart, state, extensibility.ErrUnknownAction, name)
}
