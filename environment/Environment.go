// Package environment outlines the interfaces and structs needed to
// implement concrete environments
package environment

import (
	"gonum.org/v1/gonum/mat"
	"github.com/samuelfneumann/reinforce/timestep"
)

// Starter implements a distribution of starting states and samples
// starting states for environments
type Starter interface {
	Start() *mat.VecDense
}

// Ender determines when and how episodes end
type Ender interface {
	// End takes the last TimeStep in the current episode and modifies
	// its StepType and EndType fields to reflect the episode ending,
	// returning whether or not the episode has ended
	End(*timestep.TimeStep) bool
}

// Task implements the reward scheme, the starting state distribution,
// and the ending conditions for completing some objective in an
// environment. Environments can use different Tasks to implement
// different objectives over shared dynamics.
type Task interface {
	Starter
	Ender

	// GetReward returns the reward for a transition from state to
	// nextState when taking action
	GetReward(state mat.Vector, action mat.Vector, nextState mat.Vector) float64

	// AtGoal returns whether or not a state is a goal state
	AtGoal(state mat.Matrix) bool

	// Min and Max return the minimum and maximum possible rewards
	Min() float64
	Max() float64

	RewardSpec() Spec
}

// Environment implements a simulated environment, which includes a
// Task to complete.
//
// Reset starts a new episode, returning the first TimeStep of the
// episode. Step takes one environmental step given an action,
// returning the next TimeStep and whether or not the episode has
// ended. Errors from the underlying simulation are returned unchanged
// to the caller, which should stop the current run.
type Environment interface {
	Task

	Reset() (timestep.TimeStep, error)
	Step(action *mat.VecDense) (timestep.TimeStep, bool, error)

	DiscountSpec() Spec
	ObservationSpec() Spec
	ActionSpec() Spec

	// CurrentTimeStep returns the last TimeStep of the environment
	CurrentTimeStep() timestep.TimeStep
}
