package catch

import (
	"gonum.org/v1/gonum/mat"
	env "github.com/samuelfneumann/reinforce/environment"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

// CatchBall implements the classic Catch task. The goal of the agent
// is to have the paddle below the ball when the ball reaches the
// bottom row of the frame.
//
// The rewards are 0 on every timestep while the ball is falling. When
// the ball reaches the bottom row, the reward is +1 if the ball
// landed on the paddle and -1 otherwise.
//
// Episodes end when the ball reaches the bottom row of the frame.
type CatchBall struct {
	env.Starter
	ender      env.Ender
	rows, cols int
}

// NewCatchBall creates and returns a new CatchBall task for frames of
// the given dimensions. Starting ball and paddle columns are drawn
// uniformly from the legal columns of the frame.
func NewCatchBall(rows, cols int, seed uint64) *CatchBall {
	starter := env.NewCategoricalStarter([]int{cols, cols}, seed)

	// The ball has reached the bottom row exactly when no pixel above
	// the bottom row is set
	ender := env.NewFunctionEnder(func(frame *mat.VecDense) bool {
		for i := 0; i < (rows-1)*cols; i++ {
			if frame.AtVec(i) != 0 {
				return false
			}
		}
		return true
	}, ts.TerminalEnd)

	return &CatchBall{starter, ender, rows, cols}
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType and end type and returns true.
// Otherwise, the function does not adjust the TimeStep and returns
// false.
func (c *CatchBall) End(t *ts.TimeStep) bool {
	return c.ender.End(t)
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState. States are
// interpreted as flattened binary frames.
func (c *CatchBall) GetReward(_ mat.Vector, _ mat.Vector,
	nextState mat.Vector) float64 {
	// No reward while the ball is still falling
	for i := 0; i < (c.rows-1)*c.cols; i++ {
		if nextState.AtVec(i) != 0 {
			return 0.0
		}
	}

	// The ball is on the bottom row. A single set pixel means the
	// ball landed on the paddle.
	set := 0
	for i := (c.rows - 1) * c.cols; i < c.rows*c.cols; i++ {
		if nextState.AtVec(i) != 0 {
			set++
		}
	}
	if set == 1 {
		return 1.0
	}
	return -1.0
}

// AtGoal returns whether or not the goal state has been reached: the
// ball has reached the bottom row and landed on the paddle
func (c *CatchBall) AtGoal(state mat.Matrix) bool {
	set := 0
	for i := 0; i < c.rows*c.cols; i++ {
		if state.At(0, i) != 0 {
			if i < (c.rows-1)*c.cols {
				return false
			}
			set++
		}
	}
	return set == 1
}

// Min returns the minimum possible reward that can be received in the
// environment
func (c *CatchBall) Min() float64 {
	return -1.0
}

// Max returns the maximum possible reward that can be received in the
// environment
func (c *CatchBall) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification for the environment
func (c *CatchBall) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{c.Min()})
	upperBound := mat.NewVecDense(1, []float64{c.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
