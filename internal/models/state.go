package models

import "time"

// ConnectivityState classifies whether the device currently has an
// internet-capable network path. It is a closed two-variant value: anything
// that is not Available is Unavailable.
type ConnectivityState string

const (
	StateAvailable   ConnectivityState = "available"
	StateUnavailable ConnectivityState = "unavailable"
)

// Normalize folds unknown values into StateUnavailable, so decoded or
// externally supplied strings always resolve to a valid state.
func (s ConnectivityState) Normalize() ConnectivityState {
	if s == StateAvailable {
		return StateAvailable
	}
	return StateUnavailable
}

func (s ConnectivityState) String() string {
	return string(s.Normalize())
}

// Label returns the display text the dashboard renders for the state:
// "Connected" for Available, "Unavailable" for everything else.
func (s ConnectivityState) Label() string {
	if s == StateAvailable {
		return "Connected"
	}
	return "Unavailable"
}

// StateOf converts a boolean availability answer into a state value.
func StateOf(available bool) ConnectivityState {
	if available {
		return StateAvailable
	}
	return StateUnavailable
}

// Transition records one observed connectivity change.
type Transition struct {
	State ConnectivityState `json:"state"`
	At    time.Time         `json:"at"`
	Cause string            `json:"cause,omitempty"`
}
