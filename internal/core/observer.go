package core

import (
	"github.com/comalice/hsmx/internal/primitives"
)

// TransitionRecord describes one executed transition.
type TransitionRecord struct {
	MachineID string                 `json:"machineID" yaml:"machineID"`
	Event     primitives.Event       `json:"event" yaml:"event"`
	Source    string                 `json:"source" yaml:"source"`
	Target    string                 `json:"target" yaml:"target"`
	History   primitives.HistoryType `json:"history,omitempty" yaml:"history,omitempty"`
	Exited    []string               `json:"exited" yaml:"exited"`
	Entered   []string               `json:"entered" yaml:"entered"`
}

// Observer receives runtime notifications. Callbacks run synchronously on the processing
// goroutine and must not call back into the machine.
type Observer interface {
	OnEntry(machineID, state string)
	OnExit(machineID, state string)
	OnTransition(rec TransitionRecord)
	OnDispatch(machineID string, evt primitives.Event, region RegionOutcome)
	OnInconsistency(machineID string, err *primitives.HistoryInconsistencyError)
}

// NopObserver implements Observer with no-ops; embed it to override a subset.
type NopObserver struct{}

func (NopObserver) OnEntry(string, string) {}
func (NopObserver) OnExit(string, string) {}
func (NopObserver) OnTransition(TransitionRecord) {}
func (NopObserver) OnDispatch(string, primitives.Event, RegionOutcome) {}
func (NopObserver) OnInconsistency(string, *primitives.HistoryInconsistencyError) {}

type observers []Observer

func (o observers) OnEntry(id, state string) {
	for _, ob := range o {
		ob.OnEntry(id, state)
	}
}

func (o observers) OnExit(id, state string) {
	for _, ob := range o {
		ob.OnExit(id, state)
	}
}

func (o observers) OnTransition(rec TransitionRecord) {
	for _, ob := range o {
		ob.OnTransition(rec)
	}
}

func (o observers) OnDispatch(id string, evt primitives.Event, region RegionOutcome) {
	for _, ob := range o {
		ob.OnDispatch(id, evt, region)
	}
}

func (o observers) OnInconsistency(id string, err *primitives.HistoryInconsistencyError) {
	for _, ob := range o {
		ob.OnInconsistency(id, err)
	}
}
