// Package op provides extended Gorgonia graph operations.
//
// Adapted from aunum/gold on GitHub
package op

import (
	G "gorgonia.org/gorgonia"
)

// Clip clips the values of a node to within [min, max]. Values at the
// boundaries are left unchanged, so clipping an already clipped node
// is a no-op.
func Clip(value *G.Node, min, max float64) (*G.Node, error) {
	// Construct clipping nodes
	var minNode, maxNode *G.Node
	switch value.Dtype() {
	case G.Float32:
		minNode = G.NewScalar(
			value.Graph(),
			G.Float32,
			G.WithValue(float32(min)),
			G.WithName("clip_min"),
		)
		maxNode = G.NewScalar(
			value.Graph(),
			G.Float32,
			G.WithValue(float32(max)),
			G.WithName("clip_max"),
		)
	case G.Float64:
		minNode = G.NewScalar(
			value.Graph(),
			G.Float64,
			G.WithValue(min),
			G.WithName("clip_min"),
		)
		maxNode = G.NewScalar(
			value.Graph(),
			G.Float64,
			G.WithValue(max),
			G.WithName("clip_max"),
		)
	}

	// Mask of values below the lower bound
	lowerMask, err := G.Lt(value, minNode, true)
	if err != nil {
		return nil, err
	}
	lowerVal, err := G.HadamardProd(minNode, lowerMask)
	if err != nil {
		return nil, err
	}

	// Mask of values within bounds, inclusive at both ends
	geMask, err := G.Gte(value, minNode, true)
	if err != nil {
		return nil, err
	}
	leMask, err := G.Lte(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	middleMask, err := G.HadamardProd(geMask, leMask)
	if err != nil {
		return nil, err
	}
	middleVal, err := G.HadamardProd(value, middleMask)
	if err != nil {
		return nil, err
	}

	// Mask of values above the upper bound
	upperMask, err := G.Gt(value, maxNode, true)
	if err != nil {
		return nil, err
	}
	upperVal, err := G.HadamardProd(maxNode, upperMask)
	if err != nil {
		return nil, err
	}

	return G.ReduceAdd(G.Nodes{lowerVal, middleVal, upperVal})
}

// LogSumExp calculates the log of the summation of exponentials of
// all logits along the given axis.
//
// Use this in place of Gorgonia's LogSumExp, which has the final sum
// and log interchanged, which is incorrect.
func LogSumExp(logits *G.Node, along int) *G.Node {
	max := G.Must(G.Max(logits, along))

	exponent := G.Must(G.BroadcastSub(logits, max, nil, []byte{1}))
	exponent = G.Must(G.Exp(exponent))

	sum := G.Must(G.Sum(exponent, along))
	log := G.Must(G.Log(sum))

	return G.Must(G.Add(max, log))
}
