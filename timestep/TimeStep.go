// Package timestep implements timesteps of the agent-environment interaction
package timestep

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
)

// StepType denotes the type of step that a TimeStep can be, either the
// first environmental step, a middle step, or a last step
type StepType int

const (
	First StepType = iota
	Mid
	Last
)

func (s StepType) String() string {
	switch s {
	case First:
		return "First"
	case Last:
		return "Last"
	default:
		return "Mid"
	}
}

// EndType denotes the way in which an episode ended, distinguishing
// ends at terminal states from ends at episode cutoffs
type EndType int

const (
	// NilEnd is the EndType of a step that does not end its episode
	NilEnd EndType = iota

	// TerminalEnd denotes an episode that ended in a terminal state
	TerminalEnd

	// TimeoutEnd denotes an episode that was cut off, for example by
	// a step limit
	TimeoutEnd
)

func (e EndType) String() string {
	switch e {
	case TerminalEnd:
		return "Terminal"
	case TimeoutEnd:
		return "Timeout"
	default:
		return "Nil"
	}
}

// TimeStep packages together a single timestep in an environment. The
// Observation is the state feature vector that an agent acts on at
// this step, and the Reward is the reward for the transition that led
// into this step.
type TimeStep struct {
	StepType    StepType
	Reward      float64
	Discount    float64
	Observation *mat.VecDense
	Number      int
	endType     EndType
}

// New returns a new TimeStep with the argument fields. The EndType of
// the new TimeStep is NilEnd and should be set with SetEnd by
// whichever Ender ends the episode.
func New(t StepType, r, d float64, o *mat.VecDense, n int) TimeStep {
	return TimeStep{t, r, d, o, n, NilEnd}
}

// SetEnd sets the way in which the episode ended at this TimeStep
func (t *TimeStep) SetEnd(e EndType) {
	t.endType = e
}

// TerminalEnd returns whether the TimeStep ended its episode in a
// terminal state
func (t TimeStep) TerminalEnd() bool {
	return t.endType == TerminalEnd
}

// TimeoutEnd returns whether the TimeStep ended its episode at a
// cutoff
func (t TimeStep) TimeoutEnd() bool {
	return t.endType == TimeoutEnd
}

// First returns whether a TimeStep is the first in an environment
func (t TimeStep) First() bool {
	return t.StepType == First
}

// Mid returns whether a TimeStep is a middle step in an environment
func (t TimeStep) Mid() bool {
	return t.StepType == Mid
}

// Last returns whether a TimeStep is the last step in an environment
func (t TimeStep) Last() bool {
	return t.StepType == Last
}

func (t TimeStep) String() string {
	str := "TimeStep | Type: %v  |  Reward:  %.2f  |  Discount: %.2f  |  " +
		"Step Number:  %v"

	return fmt.Sprintf(str, t.StepType, t.Reward, t.Discount, t.Number)
}
