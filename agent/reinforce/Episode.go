package reinforce

import "fmt"

// Episode stores the trajectory of a single episode as three aligned
// sequences. Index i holds the observation the agent saw on step i of
// the episode, the action it took there, and the reward it received
// for taking it. Data is appended as the episode unfolds and consumed
// once, when the episode ends.
type Episode struct {
	features     int
	observations []float64 // Row major, one row per step
	actions      []float64
	rewards      []float64
}

// NewEpisode returns a new Episode for trajectories of observations
// with the given number of features
func NewEpisode(features int) *Episode {
	return &Episode{features: features}
}

// Add appends the data of a single step to the episode
func (e *Episode) Add(obs []float64, action, reward float64) error {
	if len(obs) != e.features {
		return fmt.Errorf("add: invalid observation size\n\twant(%v)"+
			"\n\thave(%v)", e.features, len(obs))
	}

	e.observations = append(e.observations, obs...)
	e.actions = append(e.actions, action)
	e.rewards = append(e.rewards, reward)
	return nil
}

// Len returns the number of steps stored in the episode
func (e *Episode) Len() int {
	return len(e.rewards)
}

// Observations returns the observations of the episode in row major
// order, one row per step
func (e *Episode) Observations() []float64 {
	return e.observations
}

// Actions returns the action taken at each step of the episode
func (e *Episode) Actions() []float64 {
	return e.actions
}

// Rewards returns the reward received at each step of the episode
func (e *Episode) Rewards() []float64 {
	return e.rewards
}

// Returns computes the discounted return-to-go at each step of the
// episode, folding the rewards from the end of the episode backwards
func (e *Episode) Returns(discount float64) []float64 {
	returns := make([]float64, e.Len())

	currentReturn := 0.0
	for i := e.Len() - 1; i >= 0; i-- {
		currentReturn = e.rewards[i] + discount*currentReturn
		returns[i] = currentReturn
	}

	return returns
}

// reset clears the episode for reuse, keeping its backing storage
func (e *Episode) reset() {
	e.observations = e.observations[:0]
	e.actions = e.actions[:0]
	e.rewards = e.rewards[:0]
}
