package production

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/comalice/hsmx/internal/core"
	"github.com/comalice/hsmx/internal/primitives"
)

// PrometheusObserver counts dispatch outcomes, transitions, state entries and history
// inconsistencies.
type PrometheusObserver struct {
	dispatches      *prometheus.CounterVec
	transitions     *prometheus.CounterVec
	entries         *prometheus.CounterVec
	inconsistencies *prometheus.CounterVec
}

// NewPrometheusObserver creates the collectors and registers them with reg.
func NewPrometheusObserver(reg prometheus.Registerer) (*PrometheusObserver, error) {
	o := &PrometheusObserver{
		dispatches: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsmx_dispatch_outcomes_total",
			Help: "Per-region dispatch outcomes by event type.",
		}, []string{"machine", "event", "outcome"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsmx_transitions_total",
			Help: "Executed transitions.",
		}, []string{"machine", "source", "target"}),
		entries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsmx_state_entries_total",
			Help: "State entries.",
		}, []string{"machine", "state"}),
		inconsistencies: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "hsmx_history_inconsistencies_total",
			Help: "History operations rejected because the state does not declare the kind.",
		}, []string{"machine", "state", "op"}),
	}
	for _, c := range []prometheus.Collector{o.dispatches, o.transitions, o.entries, o.inconsistencies} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return o, nil
}

func (o *PrometheusObserver) OnEntry(machineID, state string) {
	o.entries.WithLabelValues(machineID, state).Inc()
}

func (o *PrometheusObserver) OnExit(string, string) {}

func (o *PrometheusObserver) OnTransition(rec core.TransitionRecord) {
	o.transitions.WithLabelValues(rec.MachineID, rec.Source, rec.Target).Inc()
}

func (o *PrometheusObserver) OnDispatch(machineID string, evt primitives.Event, region core.RegionOutcome) {
	o.dispatches.WithLabelValues(machineID, evt.Type, string(region.Outcome)).Inc()
}

func (o *PrometheusObserver) OnInconsistency(machineID string, err *primitives.HistoryInconsistencyError) {
	o.inconsistencies.WithLabelValues(machineID, err.State, string(err.Op)).Inc()
}

// LogObserver logs runtime notifications: entries, exits and dispatches at debug,
// transitions at info, inconsistencies at warn.
type LogObserver struct {
	logger *slog.Logger
}

// NewLogObserver creates a LogObserver.
func NewLogObserver(logger *slog.Logger) *LogObserver {
	return &LogObserver{logger: logger}
}

func (o *LogObserver) OnEntry(machineID, state string) {
	o.logger.Debug("state entered", "machine", machineID, "state", state)
}

func (o *LogObserver) OnExit(machineID, state string) {
	o.logger.Debug("state exited", "machine", machineID, "state", state)
}

func (o *LogObserver) OnTransition(rec core.TransitionRecord) {
	o.logger.Info("transition",
		"machine", rec.MachineID,
		"event", rec.Event.Type,
		"source", rec.Source,
		"target", rec.Target,
		"history", rec.History,
		"entered", rec.Entered,
	)
}

func (o *LogObserver) OnDispatch(machineID string, evt primitives.Event, region core.RegionOutcome) {
	o.logger.Debug("dispatch", "machine", machineID, "event", evt.Type, "leaf", region.Leaf, "outcome", region.Outcome)
}

func (o *LogObserver) OnInconsistency(machineID string, err *primitives.HistoryInconsistencyError) {
	o.logger.Warn("history inconsistency", "machine", machineID, "state", err.State, "error", err)
}

var (
	_ core.Observer = (*PrometheusObserver)(nil)
	_ core.Observer = (*LogObserver)(nil)
)
