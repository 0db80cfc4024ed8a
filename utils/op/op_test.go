package op

import (
	"math"
	"testing"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

const tolerance float64 = 1e-12

func TestClip(t *testing.T) {
	min, max := 1e-6, 1.0-1e-6
	backing := []float64{0.0, 1e-7, 1e-6, 0.5, 1.0 - 1e-6, 1.0, 2.5}
	want := []float64{1e-6, 1e-6, 1e-6, 0.5, 1.0 - 1e-6, 1.0 - 1e-6,
		1.0 - 1e-6}

	g := G.NewGraph()
	in := G.NewVector(g, tensor.Float64, G.WithShape(len(backing)),
		G.WithName("in"))

	clipped, err := Clip(in, min, max)
	if err != nil {
		t.Fatalf("could not clip node: %v", err)
	}

	// Clipping a clipped node should leave every value unchanged
	clippedTwice, err := Clip(clipped, min, max)
	if err != nil {
		t.Fatalf("could not clip clipped node: %v", err)
	}

	var clippedVal, clippedTwiceVal G.Value
	G.Read(clipped, &clippedVal)
	G.Read(clippedTwice, &clippedTwiceVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()

	err = G.Let(in, tensor.New(
		tensor.WithBacking(backing),
		tensor.WithShape(len(backing)),
	))
	if err != nil {
		t.Fatalf("could not set input: %v", err)
	}

	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run clip graph: %v", err)
	}

	got := clippedVal.Data().([]float64)
	gotTwice := clippedTwiceVal.Data().([]float64)

	for i := range want {
		if math.Abs(got[i]-want[i]) > tolerance {
			t.Errorf("clip at index %d \n\twant(%v) \n\thave(%v)", i, want[i],
				got[i])
		}
		if got[i] != gotTwice[i] {
			t.Errorf("clip is not idempotent at index %d: %v != %v", i,
				got[i], gotTwice[i])
		}
	}
}

func TestLogSumExp(t *testing.T) {
	backing := []float64{1.0, 2.0, 3.0, -1.0, 0.0, 1.0}
	rows, cols := 2, 3

	g := G.NewGraph()
	logits := G.NewMatrix(g, tensor.Float64, G.WithShape(rows, cols),
		G.WithName("logits"))

	lse := LogSumExp(logits, 1)

	var lseVal G.Value
	G.Read(lse, &lseVal)

	vm := G.NewTapeMachine(g)
	defer vm.Close()

	err := G.Let(logits, tensor.New(
		tensor.WithBacking(backing),
		tensor.WithShape(rows, cols),
	))
	if err != nil {
		t.Fatalf("could not set logits: %v", err)
	}

	if err := vm.RunAll(); err != nil {
		t.Fatalf("could not run logSumExp graph: %v", err)
	}

	got := lseVal.Data().([]float64)
	if len(got) != rows {
		t.Fatalf("logSumExp output length \n\twant(%v) \n\thave(%v)", rows,
			len(got))
	}

	for i := 0; i < rows; i++ {
		sum := 0.0
		for j := 0; j < cols; j++ {
			sum += math.Exp(backing[i*cols+j])
		}
		want := math.Log(sum)

		if math.Abs(got[i]-want) > 1e-6 {
			t.Errorf("logSumExp at row %d \n\twant(%v) \n\thave(%v)", i, want,
				got[i])
		}
	}
}
