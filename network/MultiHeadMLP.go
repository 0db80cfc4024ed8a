package network

import (
	"fmt"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// multiHeadMLP implements a multi-layered perceptron with multiple
// output nodes, one for each value that should be predicted.
type multiHeadMLP struct {
	g          *G.ExprGraph
	layers     []Layer
	input      *G.Node
	numOutputs int
	numInputs  int
	batchSize  int

	learnables G.Nodes
	model      []G.ValueGrad

	prediction *G.Node
	predVal    G.Value
}

// NewMultiHeadMLP creates and returns a new multi-head MLP on the
// computational graph g. The MLP has features input features and
// outputs output heads, and predicts on batches of batch rows at a
// time. For index i, hiddenSizes[i] is the number of hidden units in
// layer i, biases[i] is whether or not layer i has bias units, and
// activations[i] is the activation function of layer i. A final
// linear layer mapping to the output heads is always added, so that
// hiddenSizes, biases, and activations describe the hidden layers
// only. Hidden weights are initialized with init, bias weights with 0.
func NewMultiHeadMLP(features, batch, outputs int, g *G.ExprGraph,
	hiddenSizes []int, biases []bool, activations []*Activation,
	init G.InitWFn) (NeuralNet, error) {
	if features <= 0 {
		return nil, fmt.Errorf("newmultiheadmlp: features must be positive")
	}
	if batch <= 0 {
		return nil, fmt.Errorf("newmultiheadmlp: batch must be positive")
	}
	if outputs <= 0 {
		return nil, fmt.Errorf("newmultiheadmlp: outputs must be positive")
	}

	// Ensure we have one activation per layer
	if len(hiddenSizes) != len(activations) {
		msg := "newmultiheadmlp: invalid number of activations" +
			"\n\twant(%d)\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(activations))
	}

	// Ensure one bias bool per layer
	if len(hiddenSizes) != len(biases) {
		msg := "newmultiheadmlp: invalid number of biases\n\twant(%d)" +
			"\n\thave(%d)"
		return nil, fmt.Errorf(msg, len(hiddenSizes), len(biases))
	}

	input := G.NewMatrix(
		g,
		tensor.Float64,
		G.WithShape(batch, features),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	// The final layer maps to the output heads and is always linear
	hiddenSizes = append(hiddenSizes, outputs)
	biases = append(biases, true)
	activations = append(activations, Identity())

	layers := addfcLayers(g, hiddenSizes, biases, activations, init,
		features, "", "")

	network := &multiHeadMLP{
		g:          g,
		layers:     layers,
		input:      input,
		numOutputs: outputs,
		numInputs:  features,
		batchSize:  batch,
	}

	// Compute the forward pass
	err := network.fwd(input)
	if err != nil {
		return nil, fmt.Errorf("newmultiheadmlp: could not compute "+
			"forward pass: %v", err)
	}

	return network, nil
}

// fwd computes the forward pass of the MLP on the input node
func (e *multiHeadMLP) fwd(input *G.Node) error {
	pred := input
	for i, l := range e.layers {
		var err error
		if pred, err = l.fwd(pred); err != nil {
			return fmt.Errorf("fwd: could not compute forward pass of "+
				"layer %d: %v", i, err)
		}
	}
	e.prediction = pred
	G.Read(e.prediction, &e.predVal)

	return nil
}

// Graph returns the computational graph of the MLP
func (e *multiHeadMLP) Graph() *G.ExprGraph {
	return e.g
}

// BatchSize returns the number of rows the MLP predicts on at a time
func (e *multiHeadMLP) BatchSize() int {
	return e.batchSize
}

// Features returns the number of input features of the MLP
func (e *multiHeadMLP) Features() int {
	return e.numInputs
}

// Outputs returns the number of output heads of the MLP
func (e *multiHeadMLP) Outputs() int {
	return e.numOutputs
}

// SetInput sets the value of the input node before running the
// computational graph. The input slice must hold BatchSize x Features
// values in row-major order, one row per sample in the batch.
func (e *multiHeadMLP) SetInput(input []float64) error {
	if len(input) != e.numInputs*e.batchSize {
		msg := "setinput: invalid number of inputs\n\twant(%v)\n\thave(%v)"
		return fmt.Errorf(msg, e.numInputs*e.batchSize, len(input))
	}
	inputTensor := tensor.New(
		tensor.WithBacking(input),
		tensor.WithShape(e.batchSize, e.numInputs),
	)
	return G.Let(e.input, inputTensor)
}

// Set sets the weights of the MLP to those of another MLP
func (e *multiHeadMLP) Set(source NeuralNet) error {
	sourceNodes := source.Learnables()
	nodes := e.Learnables()
	for i, node := range nodes {
		// Clone the source node value to avoid aliasing the source's
		// backing tensor
		sourceLearnable := sourceNodes[i].Clone()
		err := G.Let(node, sourceLearnable.(*G.Node).Value())
		if err != nil {
			return err
		}
	}
	return nil
}

// Clone clones the MLP to a new computational graph
func (e *multiHeadMLP) Clone() (NeuralNet, error) {
	return e.CloneWithBatch(e.batchSize)
}

// CloneWithBatch clones the MLP to a new computational graph, but
// with a new input batch size
func (e *multiHeadMLP) CloneWithBatch(batchSize int) (NeuralNet, error) {
	if batchSize <= 0 {
		return nil, fmt.Errorf("clonewithbatch: batch must be positive")
	}

	graph := G.NewGraph()
	input := G.NewMatrix(
		graph,
		tensor.Float64,
		G.WithShape(batchSize, e.numInputs),
		G.WithName("input"),
		G.WithInit(G.Zeroes()),
	)

	layers := make([]Layer, len(e.layers))
	for i := range e.layers {
		layers[i] = e.layers[i].CloneTo(graph)
	}

	network := &multiHeadMLP{
		g:          graph,
		layers:     layers,
		input:      input,
		numOutputs: e.numOutputs,
		numInputs:  e.numInputs,
		batchSize:  batchSize,
	}

	err := network.fwd(input)
	if err != nil {
		return nil, fmt.Errorf("clonewithbatch: could not compute "+
			"forward pass: %v", err)
	}

	return network, nil
}

// Learnables returns the learnable nodes of the MLP
func (e *multiHeadMLP) Learnables() G.Nodes {
	if e.learnables == nil {
		e.learnables = e.computeLearnables()
	}
	return e.learnables
}

// computeLearnables gathers the learnable nodes from each layer
func (e *multiHeadMLP) computeLearnables() G.Nodes {
	learnables := make([]*G.Node, 0, 2*len(e.layers))
	for _, layer := range e.layers {
		if layer.Weights() != nil {
			learnables = append(learnables, layer.Weights())
		}
		if layer.Bias() != nil {
			learnables = append(learnables, layer.Bias())
		}
	}
	return G.Nodes(learnables)
}

// Model returns the learnable nodes of the MLP with their gradients
func (e *multiHeadMLP) Model() []G.ValueGrad {
	if e.model == nil {
		e.model = e.computeModel()
	}
	return e.model
}

// computeModel gathers the learnable nodes with their gradients
func (e *multiHeadMLP) computeModel() []G.ValueGrad {
	model := make([]G.ValueGrad, 0, len(e.Learnables()))
	for _, learnable := range e.Learnables() {
		model = append(model, learnable)
	}
	return model
}

// Output returns the value of the prediction node after the graph has
// been run
func (e *multiHeadMLP) Output() G.Value {
	return e.predVal
}

// Prediction returns the prediction node of the computational graph
func (e *multiHeadMLP) Prediction() *G.Node {
	return e.prediction
}
