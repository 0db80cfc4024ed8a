package reinforce

import (
	"fmt"

	G "gorgonia.org/gorgonia"

	"github.com/samuelfneumann/reinforce/agent"
	"github.com/samuelfneumann/reinforce/agent/policy"
	env "github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/initwfn"
	"github.com/samuelfneumann/reinforce/network"
	"github.com/samuelfneumann/reinforce/solver"
)

func init() {
	agent.Register(agent.CategoricalReinforceMLP, Config{})
}

// Config implements a configuration for a REINFORCE agent
type Config struct {
	PolicyLayers []int                 // Layer sizes in neural net
	Biases       []bool                // Whether each layer should have a bias
	Activations  []*network.Activation // Activation of each layer
	Solver       *solver.Solver        // Solver for learning weights

	// Initialization algorithm for weights
	InitWFn *initwfn.InitWFn

	// Discount factor applied when computing the return-to-go
	Gamma float64

	behaviour agent.LogProber // Action selection
}

// Validate checks a Config to ensure it is a valid configuration of a
// REINFORCE agent.
func (c Config) Validate() error {
	if len(c.PolicyLayers) != len(c.Biases) {
		return fmt.Errorf("new: invalid number of biases\n\twant(%v)"+
			"\n\thave(%v)", len(c.PolicyLayers), len(c.Biases))
	}

	if len(c.PolicyLayers) != len(c.Activations) {
		return fmt.Errorf("new: invalid number of activations\n\twant(%v)"+
			"\n\thave(%v)", len(c.PolicyLayers), len(c.Activations))
	}

	if c.Gamma < 0.0 || c.Gamma > 1.0 {
		return fmt.Errorf("new: discount must be in [0, 1]\n\thave(%v)",
			c.Gamma)
	}

	if c.Solver == nil {
		return fmt.Errorf("new: no solver")
	}

	if c.InitWFn == nil {
		return fmt.Errorf("new: no weight initializer")
	}

	return nil
}

// ValidAgent returns whether the agent is valid for the configuration.
// That is, whether Agent a can be constructed with Config c.
func (c Config) ValidAgent(a agent.Agent) bool {
	_, ok := a.(*Reinforce)
	return ok
}

// CreateAgent creates a new REINFORCE agent based on the configuration
func (c Config) CreateAgent(e env.Environment, seed uint64) (agent.Agent,
	error) {
	if err := c.Validate(); err != nil {
		return &Reinforce{}, fmt.Errorf("createagent: %v", err)
	}

	// Behaviour policy, selecting actions in single states
	g := G.NewGraph()
	behaviour, err := policy.NewCategoricalMLP(
		e,
		1,
		g,
		c.PolicyLayers,
		c.Biases,
		c.Activations,
		c.InitWFn.InitWFn(),
		seed,
	)
	if err != nil {
		return &Reinforce{}, fmt.Errorf("createagent: could not create "+
			"behaviour policy: %v", err)
	}

	c.behaviour = behaviour

	return New(e, c, seed)
}
