// Package policy implements policies for agents to select actions
package policy

import (
	"fmt"

	"golang.org/x/exp/rand"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat/distuv"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"

	"github.com/samuelfneumann/reinforce/agent"
	"github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/network"
	"github.com/samuelfneumann/reinforce/timestep"
	"github.com/samuelfneumann/reinforce/utils/floatutils"
	"github.com/samuelfneumann/reinforce/utils/op"
)

// probClip bounds action probabilities away from 0 and 1 so that
// their log stays finite
const probClip float64 = 1e-6

// CategoricalMLP implements a softmax policy over a discrete action
// space, parameterized by a multi-layered perceptron. Actions are
// sampled from the softmax distribution over the network's output
// logits.
//
// The policy computes the log probability of externally inputted
// actions taken in externally inputted states, so that the gradient
// of the log-likelihood can be computed with respect to the network
// weights. Action probabilities along this path are clipped to
// [1e-6, 1 - 1e-6] before the log is taken.
type CategoricalMLP struct {
	network.NeuralNet
	vm G.VM // Non-nil only for policies predicting on single observations

	logits     *G.Node
	logitsVals G.Value

	probs     *G.Node
	probsVals G.Value

	logProbInputActions    *G.Node
	logProbInputActionsVal G.Value
	actionIndices          *G.Node

	batchForLogProb int
	numActions      int

	seed   uint64
	source rand.Source
	eval   bool
}

// NewCategoricalMLP creates and returns a new CategoricalMLP policy
// on the computational graph g. The policy's network has hidden
// layers of sizes hiddenSizes, with bias units determined by biases
// and activations determined by activations, and one output logit
// per action of env. Weights are initialized with init.
//
// The batchForLogProb parameter determines how many (state, action)
// pairs the log probability is computed for at a time. A policy with
// batchForLogProb equal to 1 owns a VM and can select actions in
// single states with SelectAction.
func NewCategoricalMLP(env environment.Environment, batchForLogProb int,
	g *G.ExprGraph, hiddenSizes []int, biases []bool,
	activations []*network.Activation, init G.InitWFn,
	seed uint64) (agent.LogProber, error) {
	if env.ActionSpec().Cardinality == environment.Continuous {
		err := fmt.Errorf("newcategoricalmlp: softmax policy cannot be " +
			"used with continuous actions")
		return &CategoricalMLP{}, err
	}

	features := env.ObservationSpec().Shape.Len()
	numActions := int(env.ActionSpec().UpperBound.AtVec(0)) + 1

	net, err := network.NewMultiHeadMLP(features, batchForLogProb,
		numActions, g, hiddenSizes, biases, activations, init)
	if err != nil {
		return &CategoricalMLP{}, fmt.Errorf("newcategoricalmlp: could "+
			"not create policy network: %v", err)
	}

	return newCategoricalMLPFromNetwork(net, numActions, batchForLogProb,
		seed)
}

// newCategoricalMLPFromNetwork returns a new CategoricalMLP that uses
// net to compute action logits.
func newCategoricalMLPFromNetwork(net network.NeuralNet, numActions,
	batchForLogProb int, seed uint64) (*CategoricalMLP, error) {
	logits := net.Prediction()

	// Action probabilities, bounded away from 0 and 1 so that the
	// log-likelihood stays finite
	logSumExp := op.LogSumExp(logits, 1)
	logProbs := G.Must(G.BroadcastSub(logits, logSumExp, nil, []byte{1}))
	probs := G.Must(G.Exp(logProbs))
	probs, err := op.Clip(probs, probClip, 1.0-probClip)
	if err != nil {
		return nil, fmt.Errorf("newcategoricalmlp: could not clip "+
			"action probabilities: %v", err)
	}
	clippedLogProbs := G.Must(G.Log(probs))

	// Log probability of actions inputted by user with LogProbOf().
	// The inputted actions mask the matrix of log probabilities, and
	// summing over rows leaves the log probability of the single
	// action taken in each state of the batch.
	actionIndices := G.NewMatrix(
		net.Graph(),
		tensor.Float64,
		G.WithShape(logits.Shape()...),
		G.WithInit(G.Zeroes()),
		G.WithName("actionIndices"),
	)
	logProbInputActions := G.Must(G.HadamardProd(actionIndices,
		clippedLogProbs))
	logProbInputActions = G.Must(G.Sum(logProbInputActions, 1))

	pol := &CategoricalMLP{
		NeuralNet: net,
		logits:    logits,
		probs:     probs,

		actionIndices:       actionIndices,
		logProbInputActions: logProbInputActions,

		batchForLogProb: batchForLogProb,
		numActions:      numActions,

		seed:   seed,
		source: rand.NewSource(seed),
	}
	G.Read(pol.logits, &pol.logitsVals)
	G.Read(pol.probs, &pol.probsVals)
	G.Read(pol.logProbInputActions, &pol.logProbInputActionsVal)

	if batchForLogProb == 1 {
		pol.vm = G.NewTapeMachine(net.Graph())
	}

	return pol, nil
}

// SelectAction samples an action from the policy's softmax
// distribution in the state observed at the given timestep. Actions
// are always sampled, never selected greedily, so that a softmax
// policy explores by construction.
func (c *CategoricalMLP) SelectAction(t timestep.TimeStep) (*mat.VecDense,
	error) {
	if c.vm == nil {
		return nil, fmt.Errorf("selectaction: policy can only select " +
			"actions in single states")
	}

	obs := t.Observation.RawVector().Data
	if err := c.Network().SetInput(obs); err != nil {
		return nil, fmt.Errorf("selectaction: could not set input: %v", err)
	}
	if err := c.vm.RunAll(); err != nil {
		return nil, fmt.Errorf("selectaction: could not run policy "+
			"network: %v", err)
	}
	logits := c.logitsVals.Data().([]float64)
	c.vm.Reset()

	probs := floatutils.Softmax(logits)
	dist := distuv.NewCategorical(probs, c.source)
	action := dist.Rand()

	return mat.NewVecDense(1, []float64{action}), nil
}

// LogProbOf sets the computational graph to compute the log
// probability of taking actions a in states s when the graph is next
// run, returning the log probability node. Inputs should be
// constructed in row major order.
func (c *CategoricalMLP) LogProbOf(s, a []float64) (*G.Node, error) {
	if err := c.Network().SetInput(s); err != nil {
		return nil, fmt.Errorf("logprobof: could not set input: %v", err)
	}

	if len(a) != c.batchForLogProb {
		return nil, fmt.Errorf("logprobof: invalid number of actions"+
			"\n\twant(%v)\n\thave(%v)", c.batchForLogProb, len(a))
	}

	// One-hot encode the actions to mask the log probability matrix
	actionIndices := make([]float64, 0, c.numActions*c.batchForLogProb)
	for i := range a {
		index := int(a[i])
		if index < 0 || index >= c.numActions {
			return nil, fmt.Errorf("logprobof: illegal action %v ∉ [0, %v)",
				a[i], c.numActions)
		}
		row := make([]float64, c.numActions)
		row[index] = 1.0
		actionIndices = append(actionIndices, row...)
	}
	actionIndicesTensor := tensor.NewDense(tensor.Float64,
		[]int{c.batchForLogProb, c.numActions},
		tensor.WithBacking(actionIndices),
	)
	if err := G.Let(c.actionIndices, actionIndicesTensor); err != nil {
		return nil, fmt.Errorf("logprobof: could not set actions: %v", err)
	}

	return c.LogProbNode(), nil
}

// LogProbNode returns the node that computes the log probability of
// the actions inputted with LogProbOf
func (c *CategoricalMLP) LogProbNode() *G.Node {
	return c.logProbInputActions
}

// LogProbVal returns the value of the node returned by LogProbNode
// after the graph has been run
func (c *CategoricalMLP) LogProbVal() G.Value {
	return c.logProbInputActionsVal
}

// Logits returns the value of the network's output logits after the
// graph has been run
func (c *CategoricalMLP) Logits() G.Value {
	return c.logitsVals
}

// Probabilities returns the clipped action probabilities of the
// policy after the graph has been run. Row i holds the probabilities
// of each action in state i of the batch.
func (c *CategoricalMLP) Probabilities() G.Value {
	return c.probsVals
}

// Clone clones the policy to a new computational graph
func (c *CategoricalMLP) Clone() (agent.NNPolicy, error) {
	return c.CloneWithBatch(c.batchForLogProb)
}

// CloneWithBatch clones the policy to a new computational graph with
// a new batch size for the log probability computation
func (c *CategoricalMLP) CloneWithBatch(batch int) (agent.NNPolicy, error) {
	net, err := c.Network().CloneWithBatch(batch)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not clone policy "+
			"network: %v", err)
	}

	return newCategoricalMLPFromNetwork(net, c.numActions, batch, c.seed)
}

// Network returns the network of the policy
func (c *CategoricalMLP) Network() network.NeuralNet {
	return c.NeuralNet
}

// Close closes the policy's VM, if the policy has one
func (c *CategoricalMLP) Close() error {
	if c.vm == nil {
		return nil
	}
	return c.vm.Close()
}

// Eval sets the policy to evaluation mode
func (c *CategoricalMLP) Eval() { c.eval = true }

// Train sets the policy to training mode
func (c *CategoricalMLP) Train() { c.eval = false }

// IsEval returns whether the policy is in evaluation mode
func (c *CategoricalMLP) IsEval() bool { return c.eval }
