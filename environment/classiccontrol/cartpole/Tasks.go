package cartpole

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r1"
	env "github.com/samuelfneumann/reinforce/environment"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

const (
	// FailAngle is the pole angle at which the Balance task fails
	FailAngle float64 = 12 * 2 * math.Pi / 360

	// FailPosition is the cart position at which the Balance task
	// fails
	FailPosition float64 = 2.4
)

// Balance implements the classic control Cartpole Balance task. In
// this task, the goal of the agent is to balance the pole on the cart
// in an upright position for as long as possible, while keeping the
// cart near the centre of the track.
//
// The rewards are +1 for every timestep that the pole is balanced
// within the failing angle threshold θ and the cart is within the
// failing position, and -1 otherwise.
//
// Episodes end after a step limit, after the pole has fallen below
// the angle threshold θ, or after the cart has left the legal region
// of the track.
type Balance struct {
	env.Starter
	stepLimiter   env.Ender
	boundsLimiter env.Ender
	failAngle     float64
	failPosition  float64
}

// NewBalance creates and returns a new Balance task
func NewBalance(s env.Starter, episodeSteps int, failAngle float64) *Balance {
	stepLimiter := env.NewStepLimit(episodeSteps)

	// Episodes fail when the cart position or the pole angle leave
	// their legal intervals
	legal := []r1.Interval{
		{Min: -FailPosition, Max: FailPosition},
		{Min: -failAngle, Max: failAngle},
	}
	featureIndices := []int{0, 2}

	boundsLimiter := env.NewIntervalLimit(legal, featureIndices,
		ts.TerminalEnd)

	return &Balance{s, stepLimiter, boundsLimiter, failAngle, FailPosition}
}

// End checks if a TimeStep is the last in an episode. If so, it
// adjusts the TimeStep's StepType and end type and returns true.
// Otherwise, the function does not adjust the TimeStep and returns
// false.
func (b *Balance) End(t *ts.TimeStep) bool {
	if end := b.boundsLimiter.End(t); end {
		return true
	}
	if end := b.stepLimiter.End(t); end {
		return true
	}
	return false
}

// GetReward returns the reward for an action taken in some state,
// resulting in a transition to the next state nextState.
func (b *Balance) GetReward(_ mat.Vector, _ mat.Vector,
	nextState mat.Vector) float64 {
	position := math.Abs(nextState.AtVec(0))
	angle := math.Abs(nextState.AtVec(2))

	// Angle of 0 is pointing straight up, so we want angles to be
	// less than the failAngle
	if angle < b.failAngle && position < b.failPosition {
		return 1.0
	}
	return -1.0
}

// AtGoal returns whether or not the goal state has been reached. The
// Balance task has no goal state, only failure states, so any state
// where the task has not yet failed is considered a goal state.
func (b *Balance) AtGoal(state mat.Matrix) bool {
	return math.Abs(state.At(0, 2)) < b.failAngle &&
		math.Abs(state.At(0, 0)) < b.failPosition
}

// Min returns the minimum possible reward that can be received in the
// environment
func (b *Balance) Min() float64 {
	return -1.0
}

// Max returns the maximum possible reward that can be received in the
// environment
func (b *Balance) Max() float64 {
	return 1.0
}

// RewardSpec returns the reward specification for the environment
func (b *Balance) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{b.Min()})
	upperBound := mat.NewVecDense(1, []float64{b.Max()})

	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}
