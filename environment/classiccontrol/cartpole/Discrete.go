package cartpole

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	env "github.com/samuelfneumann/reinforce/environment"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

// Discrete implements the classic control environment Cartpole with
// discrete actions. Actions are discrete, consisting of the direction
// to apply horizontal force to the cart. Legal actions are in
// {0, 1, 2}:
//
//	Action		Meaning
//	  0			Apply force left
//	  1			Do nothing
//	  2			Apply force right
//
// Illegal actions result in an error from Step.
//
// Discrete implements the environment.Environment interface
type Discrete struct {
	*base
}

// NewDiscrete constructs a new Cartpole environment with discrete
// actions
func NewDiscrete(t env.Task, discount float64) (env.Environment,
	ts.TimeStep, error) {
	base, firstStep, err := newBase(t, discount)
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newDiscrete: %v", err)
	}

	return &Discrete{base}, firstStep, nil
}

// ActionSpec returns the action specification of the environment
func (c *Discrete) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound,
		upperBound, env.Discrete)
}

// Step takes one environmental step given action a and returns the
// next timestep as a timestep.TimeStep and a bool indicating whether
// or not the episode has ended. Legal actions are in the set
// {0, 1, 2}. Actions outside this range result in an error.
func (c *Discrete) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	// Ensure action is 1-dimensional
	if a.Len() > ActionDims {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	// Discrete action in {0, 1, 2}
	direction := a.AtVec(0)

	// Ensure a legal action was selected
	intAction := int(direction)
	if intAction < MinDiscreteAction || intAction > MaxDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", intAction)
	}

	// Convert action (0, 1, 2) to a direction (-1, 0, 1)
	direction--

	// Calculate the next state given the direction to apply force
	nextState := c.nextState(direction)

	// Update the embedded base Cartpole environment
	nextStep, last := c.update(a, nextState)
	return nextStep, last, nil
}
