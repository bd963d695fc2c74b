package submission

import (
	"fmt"

	"github.com/bullrushinvestments/carbonclicks/pkg/field"
)

// Phase tags the active variant of a State.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseValidating
	PhaseSubmitting
	PhaseSucceeded
	PhaseFailed
)

var phaseNames = [...]string{
	PhaseIdle:       "idle",
	PhaseValidating: "validating",
	PhaseSubmitting: "submitting",
	PhaseSucceeded:  "succeeded",
	PhaseFailed:     "failed",
}

func (p Phase) String() string {
	if p < 0 || int(p) >= len(phaseNames) {
		return fmt.Sprintf("phase(%d)", int(p))
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("submission: unknown phase %q", text)
}

// State is the controller's tagged variant. Only the fields that belong to
// Phase are populated:
//
//   - Idle: Validation holds the issues of a rejected submit, if any.
//   - Submitting: Payload is the snapshot handed to the boundary.
//   - Succeeded: Payload echoes what was sent and Data is the boundary result.
//   - Failed: Message is the form-level error, Payload what was sent.
//
// Seq increases by one on every transition of a controller.
type State struct {
	Phase      Phase                  `json:"phase"`
	Seq        uint64                 `json:"seq"`
	Payload    field.Values           `json:"payload,omitempty"`
	Data       any                    `json:"data,omitempty"`
	Message    string                 `json:"message,omitempty"`
	Validation field.ValidationResult `json:"validation"`
}

func (s State) IsIdle() bool       { return s.Phase == PhaseIdle }
func (s State) IsSubmitting() bool { return s.Phase == PhaseSubmitting }
func (s State) IsSucceeded() bool  { return s.Phase == PhaseSucceeded }
func (s State) IsFailed() bool     { return s.Phase == PhaseFailed }

// Busy reports whether a submit is under way.
func (s State) Busy() bool {
	return s.Phase == PhaseValidating || s.Phase == PhaseSubmitting
}

// Settled reports whether the last submit reached a terminal outcome.
func (s State) Settled() bool {
	return s.Phase == PhaseSucceeded || s.Phase == PhaseFailed
}

// clone detaches Payload so callers can't mutate the controller's copy.
func (s State) clone() State {
	s.Payload = s.Payload.Clone()
	return s
}

func idle(validation field.ValidationResult) State {
	return State{Phase: PhaseIdle, Validation: validation}
}

func validating() State {
	return State{Phase: PhaseValidating}
}

func submitting(payload field.Values) State {
	return State{Phase: PhaseSubmitting, Payload: payload.Clone()}
}

func succeeded(payload field.Values, data any) State {
	return State{Phase: PhaseSucceeded, Payload: payload.Clone(), Data: data}
}

func failed(payload field.Values, message string) State {
	return State{Phase: PhaseFailed, Payload: payload.Clone(), Message: message}
}
