// Package catch implements the Catch visual environment
package catch

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	env "github.com/samuelfneumann/reinforce/environment"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

const (
	// Default frame dimensions
	DefaultRows int = 10
	DefaultCols int = 5

	// Discrete Actions
	ActionDims        int = 1
	MinDiscreteAction int = 0
	MaxDiscreteAction int = 2
)

// Catch implements the Catch environment, a small visual game played
// on a grid of pixels. A ball starts in the top row of the frame and
// falls one row on every step. A one-pixel paddle moves along the
// bottom row of the frame. The agent must move the paddle so that it
// is below the ball when the ball reaches the bottom row.
//
// Observations are flattened (rows × cols) binary frames in row-major
// order. The ball's pixel and the paddle's pixel are set to 1 and all
// other pixels are 0. When the ball lands on the paddle, the two
// pixels overlap.
//
// Actions are discrete, consisting of the direction to move the
// paddle. Legal actions are in {0, 1, 2}:
//
//	Action		Meaning
//	  0			Move left
//	  1			Do nothing
//	  2			Move right
//
// Moving into a wall leaves the paddle in place. Illegal actions
// result in an error from Step.
//
// Catch implements the environment.Environment interface
type Catch struct {
	env.Task
	rows, cols int
	ballRow    int
	ballCol    int
	paddleCol  int
	discount   float64
	lastStep   ts.TimeStep
}

// New constructs a new Catch environment with frames of the given
// dimensions. The task t must describe frames of the same dimensions.
// The task's Start() method should return vectors of the form
// (ball column, paddle column).
func New(t env.Task, rows, cols int, discount float64) (env.Environment,
	ts.TimeStep, error) {
	if rows < 2 {
		return nil, ts.TimeStep{}, fmt.Errorf("new: frames need at least "+
			"2 rows, got %v", rows)
	}
	if cols < 1 {
		return nil, ts.TimeStep{}, fmt.Errorf("new: frames need at least "+
			"1 column, got %v", cols)
	}

	catch := Catch{Task: t, rows: rows, cols: cols, discount: discount}

	firstStep, err := catch.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("new: %v", err)
	}

	return &catch, firstStep, nil
}

// Reset resets the environment, drawing the ball and paddle columns
// from the environment Starter, and returns a starting timestep
func (c *Catch) Reset() (ts.TimeStep, error) {
	start := c.Start()
	if start.Len() != 2 {
		return ts.TimeStep{}, fmt.Errorf("reset: starting state should "+
			"be (ball column, paddle column), got %v features", start.Len())
	}

	ballCol, paddleCol := int(start.AtVec(0)), int(start.AtVec(1))
	if ballCol < 0 || ballCol >= c.cols {
		return ts.TimeStep{}, fmt.Errorf("reset: illegal ball column %v "+
			"∉ [0, %v)", ballCol, c.cols)
	}
	if paddleCol < 0 || paddleCol >= c.cols {
		return ts.TimeStep{}, fmt.Errorf("reset: illegal paddle column %v "+
			"∉ [0, %v)", paddleCol, c.cols)
	}

	c.ballRow = 0
	c.ballCol = ballCol
	c.paddleCol = paddleCol

	startStep := ts.New(ts.First, 0, c.discount, c.observation(), 0)
	c.lastStep = startStep

	return startStep, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (c *Catch) CurrentTimeStep() ts.TimeStep {
	return c.lastStep
}

// Step takes one environmental step given action a and returns the
// next timestep as a timestep.TimeStep and a bool indicating whether
// or not the episode has ended. Legal actions are in the set
// {0, 1, 2}. Actions outside this range result in an error.
func (c *Catch) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	if a.Len() > ActionDims {
		return ts.TimeStep{}, true, fmt.Errorf("step: actions should be " +
			"1-dimensional")
	}

	action := int(a.AtVec(0))
	if action < MinDiscreteAction || action > MaxDiscreteAction {
		return ts.TimeStep{}, true, fmt.Errorf("step: illegal action %v "+
			"∉ (0, 1, 2)", action)
	}

	// Convert action (0, 1, 2) to a paddle movement (-1, 0, 1),
	// leaving the paddle in place at the walls
	c.paddleCol += action - 1
	if c.paddleCol < 0 {
		c.paddleCol = 0
	} else if c.paddleCol >= c.cols {
		c.paddleCol = c.cols - 1
	}

	// The ball falls one row per step
	c.ballRow++

	nextObs := c.observation()
	reward := c.GetReward(c.lastStep.Observation, a, nextObs)
	nextStep := ts.New(ts.Mid, reward, c.discount, nextObs,
		c.lastStep.Number+1)

	// Check if the step is the last in the episode and adjust the
	// step type if necessary
	c.End(&nextStep)

	c.lastStep = nextStep
	return nextStep, nextStep.Last(), nil
}

// ObservationSpec returns the observation specification of the
// environment
func (c *Catch) ObservationSpec() env.Spec {
	pixels := c.rows * c.cols
	shape := mat.NewVecDense(pixels, nil)

	lowerBound := mat.NewVecDense(pixels, nil)

	upper := make([]float64, pixels)
	for i := range upper {
		upper[i] = 1.0
	}
	upperBound := mat.NewVecDense(pixels, upper)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Discrete)
}

// ActionSpec returns the action specification of the environment
func (c *Catch) ActionSpec() env.Spec {
	shape := mat.NewVecDense(ActionDims, nil)
	lowerBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MinDiscreteAction)})
	upperBound := mat.NewVecDense(ActionDims,
		[]float64{float64(MaxDiscreteAction)})

	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

// DiscountSpec returns the discounting specification of the
// environment
func (c *Catch) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{c.discount})

	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

// String returns a string representation of the environment
func (c *Catch) String() string {
	msg := "Catch  |  Ball: (%v, %v)  |  Paddle: (%v, %v)"
	return fmt.Sprintf(msg, c.ballRow, c.ballCol, c.rows-1, c.paddleCol)
}

// observation constructs the current frame as a flattened row-major
// binary vector
func (c *Catch) observation() *mat.VecDense {
	frame := mat.NewVecDense(c.rows*c.cols, nil)
	frame.SetVec(c.ballRow*c.cols+c.ballCol, 1.0)
	frame.SetVec((c.rows-1)*c.cols+c.paddleCol, 1.0)
	return frame
}
