// Package reinforce implements the episodic REINFORCE algorithm with
// a mean return baseline.
package reinforce

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/reinforce/agent"
	"github.com/samuelfneumann/reinforce/environment"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

// Reinforce implements the episodic REINFORCE algorithm, also known
// as the Monte-Carlo policy gradient. This implementation is adapted
// from:
//
// Williams, R. J. (1992). Simple statistical gradient-following
// algorithms for connectionist reinforcement learning.
//
// The agent collects a full episode under a softmax policy, computes
// the discounted return-to-go at each step of the episode, and takes
// a single gradient step on the negative return-weighted
// log-likelihood of the episode's actions. The mean return of the
// episode is subtracted from the returns as a baseline to reduce the
// variance of the gradient.
//
// Because updates happen once per episode, no replay buffer is needed
// and each episode's data is used exactly once, then discarded.
type Reinforce struct {
	behaviour agent.LogProber // Behaviour policy with its own VM
	solver    G.Solver

	episode  *Episode
	features int
	gamma    float64
	lastLoss float64

	prevStep ts.TimeStep
	eval     bool
}

// New creates and returns a new REINFORCE agent.
func New(e environment.Environment, c agent.Config,
	seed uint64) (agent.Agent, error) {
	if !c.ValidAgent(&Reinforce{}) {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	config, ok := c.(Config)
	if !ok {
		return nil, fmt.Errorf("new: invalid configuration type: %T", c)
	}

	err := config.Validate()
	if err != nil {
		return nil, fmt.Errorf("new: %v", err)
	}

	if e.ActionSpec().Cardinality != environment.Discrete {
		return nil, fmt.Errorf("new: REINFORCE requires discrete actions")
	}

	if config.behaviour == nil {
		return nil, fmt.Errorf("new: config has no behaviour policy, " +
			"agents should be created with Config.CreateAgent")
	}

	features := e.ObservationSpec().Shape.Len()

	return &Reinforce{
		behaviour: config.behaviour,
		solver:    config.Solver,
		episode:   NewEpisode(features),
		features:  features,
		gamma:     config.Gamma,
		lastLoss:  math.NaN(),
	}, nil
}

// SelectAction samples an action from the behaviour policy at the
// given timestep.
func (r *Reinforce) SelectAction(t ts.TimeStep) (*mat.VecDense, error) {
	if t != r.prevStep {
		return nil, fmt.Errorf("selectaction: timestep is different from " +
			"that previously recorded")
	}
	return r.behaviour.SelectAction(t)
}

// ObserveFirst records the first timestep of an episode
func (r *Reinforce) ObserveFirst(t ts.TimeStep) error {
	if !t.First() {
		return fmt.Errorf("observefirst: timestep is not the first of "+
			"its episode (timestep = %v)", t.Number)
	}
	r.prevStep = t
	return nil
}

// Observe records that the argument action taken in the previously
// observed state led to the argument timestep.
func (r *Reinforce) Observe(action mat.Vector, nextStep ts.TimeStep) error {
	if r.eval {
		r.prevStep = nextStep
		return nil
	}

	if action.Len() != 1 {
		return fmt.Errorf("observe: invalid action dimensions\n\twant(1)"+
			"\n\thave(%v)", action.Len())
	}

	obs := r.prevStep.Observation.RawVector().Data
	err := r.episode.Add(obs, action.AtVec(0), nextStep.Reward)
	if err != nil {
		return fmt.Errorf("observe: could not record step: %v", err)
	}

	r.prevStep = nextStep
	return nil
}

// Step updates the agent's policy. REINFORCE updates once per
// episode, so this method does nothing until the last timestep of the
// episode has been observed.
func (r *Reinforce) Step() error {
	if r.eval || !r.prevStep.Last() || r.episode.Len() == 0 {
		return nil
	}
	return r.update()
}

// update performs a single gradient step on the data of the episode
// just finished, then discards it.
func (r *Reinforce) update() error {
	episodeLength := r.episode.Len()

	// Discounted return-to-go at each step, with the episode's mean
	// return subtracted as a baseline
	returns := r.episode.Returns(r.gamma)
	baseline := stat.Mean(returns, nil)
	floats.AddConst(-baseline, returns)

	// Clone the behaviour policy so that the log probability of every
	// step of the episode is computed in a single batch
	cloned, err := r.behaviour.CloneWithBatch(episodeLength)
	if err != nil {
		return fmt.Errorf("update: could not clone policy: %v", err)
	}
	trainPolicy, ok := cloned.(agent.LogProber)
	if !ok {
		return fmt.Errorf("update: cloned policy cannot compute log " +
			"probabilities")
	}
	defer trainPolicy.Close()

	// Loss is the negative mean of the return-weighted log-likelihood
	// of the episode's actions
	graph := trainPolicy.Network().Graph()
	returnsNode := G.NewVector(
		graph,
		tensor.Float64,
		G.WithShape(episodeLength),
		G.WithName("returns"),
	)
	loss := G.Must(G.HadamardProd(trainPolicy.LogProbNode(), returnsNode))
	loss = G.Must(G.Mean(loss))
	loss = G.Must(G.Neg(loss))

	var lossVal G.Value
	G.Read(loss, &lossVal)

	_, err = G.Grad(loss, trainPolicy.Network().Learnables()...)
	if err != nil {
		return fmt.Errorf("update: could not compute gradient: %v", err)
	}

	vm := G.NewTapeMachine(
		graph,
		G.BindDualValues(trainPolicy.Network().Learnables()...),
	)
	defer vm.Close()

	returnsTensor := tensor.New(
		tensor.WithBacking(returns),
		tensor.WithShape(episodeLength),
	)
	if err := G.Let(returnsNode, returnsTensor); err != nil {
		return fmt.Errorf("update: could not set returns: %v", err)
	}

	_, err = trainPolicy.LogProbOf(r.episode.Observations(),
		r.episode.Actions())
	if err != nil {
		return fmt.Errorf("update: could not set episode data: %v", err)
	}

	if err := vm.RunAll(); err != nil {
		return fmt.Errorf("update: could not run update: %v", err)
	}
	if err := r.solver.Step(trainPolicy.Network().Model()); err != nil {
		return fmt.Errorf("update: could not step solver: %v", err)
	}
	r.lastLoss = lossVal.Data().(float64)

	// Copy the updated weights back into the behaviour policy
	err = r.behaviour.Network().Set(trainPolicy.Network())
	if err != nil {
		return fmt.Errorf("update: could not update behaviour policy: %v",
			err)
	}

	r.episode.reset()
	return nil
}

// EndEpisode performs cleanup at the end of an episode
func (r *Reinforce) EndEpisode() {
	r.episode.reset()
}

// Loss returns the loss of the most recent policy update. Before the
// first update, the loss is NaN.
func (r *Reinforce) Loss() float64 {
	return r.lastLoss
}

// Eval sets the agent into evaluation mode, where no data is recorded
// and no updates happen
func (r *Reinforce) Eval() {
	r.eval = true
	r.behaviour.Eval()
}

// Train sets the agent into training mode
func (r *Reinforce) Train() {
	r.eval = false
	r.behaviour.Train()
}

// IsEval returns whether the agent is in evaluation mode
func (r *Reinforce) IsEval() bool {
	return r.eval
}

// Close closes the agent's policy
func (r *Reinforce) Close() error {
	return r.behaviour.Close()
}
