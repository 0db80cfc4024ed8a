// Package wrappers provides wrappers for environments
package wrappers

import (
	"fmt"

	"gonum.org/v1/gonum/mat"
	env "github.com/samuelfneumann/reinforce/environment"
	ts "github.com/samuelfneumann/reinforce/timestep"
	"github.com/samuelfneumann/reinforce/utils/matutils"
)

// FrameDiff wraps a visual environment whose observations are
// flattened (rows × cols) frames in row-major order and returns as
// observations the difference between consecutive processed frames.
//
// Raw frames are processed in three steps. First, cropTop rows are
// removed from the top of the frame and cropBottom rows are removed
// from the bottom. Second, the cropped frame is downsampled, keeping
// every stride'th pixel along both axes. Third, pixels taking any of
// the background values are set to 0 and all other non-zero pixels
// are set to 1. The observation is then the processed frame minus the
// previously seen processed frame. The first frame of every episode
// is differenced against a frame of all 0's.
//
// Observations of the wrapped environment therefore have
// (processed rows × processed columns) features taking values in
// {-1, 0, 1}. Motion shows up as paired -1 and +1 pixels, and
// anything stationary between two frames vanishes.
//
// FrameDiff itself implements the environment.Environment interface
// and is therefore itself an environment. Rewards, episode ends, and
// errors of the wrapped environment pass through unchanged.
type FrameDiff struct {
	env.Environment
	rows, cols          int
	cropTop, cropBottom int
	stride              int
	background          []float64
	processedRows       int
	processedCols       int
	previous            *mat.VecDense
	lastStep            ts.TimeStep
}

// NewFrameDiff creates and returns a new FrameDiff environment,
// wrapping an existing visual environment whose observations are
// flattened (rows × cols) frames. The wrapped environment is reset
// when wrapped by the FrameDiff environment.
func NewFrameDiff(e env.Environment, rows, cols, cropTop, cropBottom,
	stride int, background []float64) (env.Environment, ts.TimeStep, error) {
	if pixels := e.ObservationSpec().Shape.Len(); pixels != rows*cols {
		return nil, ts.TimeStep{}, fmt.Errorf("newFrameDiff: wrapped "+
			"environment produces %v pixels per frame, expected %v", pixels,
			rows*cols)
	}
	if cropTop < 0 || cropBottom < 0 {
		return nil, ts.TimeStep{}, fmt.Errorf("newFrameDiff: cannot crop a "+
			"negative number of rows (%v, %v)", cropTop, cropBottom)
	}
	croppedRows := rows - cropTop - cropBottom
	if croppedRows < 1 {
		return nil, ts.TimeStep{}, fmt.Errorf("newFrameDiff: cropping %v "+
			"rows leaves no frame", cropTop+cropBottom)
	}
	if stride < 1 {
		return nil, ts.TimeStep{}, fmt.Errorf("newFrameDiff: stride should "+
			"be positive, got %v", stride)
	}

	frameDiff := FrameDiff{
		Environment:   e,
		rows:          rows,
		cols:          cols,
		cropTop:       cropTop,
		cropBottom:    cropBottom,
		stride:        stride,
		background:    background,
		processedRows: (croppedRows + stride - 1) / stride,
		processedCols: (cols + stride - 1) / stride,
	}

	firstStep, err := frameDiff.Reset()
	if err != nil {
		return nil, ts.TimeStep{}, fmt.Errorf("newFrameDiff: %v", err)
	}

	return &frameDiff, firstStep, nil
}

// Reset resets the wrapped environment and the frame memory and
// returns a starting timestep
func (f *FrameDiff) Reset() (ts.TimeStep, error) {
	step, err := f.Environment.Reset()
	if err != nil {
		return step, err
	}

	f.previous = nil
	step.Observation = f.diff(step.Observation)
	f.lastStep = step

	return step, nil
}

// Step takes one environmental step given action a and returns the
// next timestep as a timestep.TimeStep and a bool indicating whether
// or not the episode has ended
func (f *FrameDiff) Step(a *mat.VecDense) (ts.TimeStep, bool, error) {
	step, last, err := f.Environment.Step(a)
	if err != nil {
		return step, last, err
	}

	step.Observation = f.diff(step.Observation)
	f.lastStep = step

	return step, last, nil
}

// CurrentTimeStep returns the current timestep in the environment
func (f *FrameDiff) CurrentTimeStep() ts.TimeStep {
	return f.lastStep
}

// ObservationSpec returns the observation specification of the
// environment
func (f *FrameDiff) ObservationSpec() env.Spec {
	length := f.processedRows * f.processedCols
	shape := mat.NewVecDense(length, nil)

	upperBound := matutils.VecOnes(length)
	lowerBound := mat.NewVecDense(length, nil)
	lowerBound.ScaleVec(-1, upperBound)

	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Discrete)
}

// String returns a string representation of the FrameDiff environment
func (f *FrameDiff) String() string {
	return fmt.Sprintf("FrameDiff: %v", f.Environment)
}

// diff processes a raw frame and differences it against the previous
// processed frame, updating the frame memory
func (f *FrameDiff) diff(raw *mat.VecDense) *mat.VecDense {
	processed := processFrame(raw, f.rows, f.cols, f.cropTop, f.cropBottom,
		f.stride, f.background)

	var diffed mat.VecDense
	if f.previous != nil {
		diffed.SubVec(processed, f.previous)
	} else {
		diffed.CloneFromVec(processed)
	}
	f.previous = processed

	return &diffed
}

// processFrame crops, downsamples, and binarizes a flattened
// row-major frame. The returned frame keeps every stride'th pixel
// along both axes of the rows remaining after cropping, with pixels
// matching a background value zeroed and all other non-zero pixels
// set to 1.
func processFrame(raw *mat.VecDense, rows, cols, cropTop, cropBottom,
	stride int, background []float64) *mat.VecDense {
	croppedRows := rows - cropTop - cropBottom
	processedRows := (croppedRows + stride - 1) / stride
	processedCols := (cols + stride - 1) / stride

	processed := mat.NewVecDense(processedRows*processedCols, nil)
	for i := 0; i < processedRows; i++ {
		for j := 0; j < processedCols; j++ {
			v := raw.AtVec((cropTop+i*stride)*cols + j*stride)
			if v != 0 && !isBackground(v, background) {
				processed.SetVec(i*processedCols+j, 1.0)
			}
		}
	}

	return processed
}

// isBackground returns whether v is one of the background values
func isBackground(v float64, background []float64) bool {
	for _, b := range background {
		if v == b {
			return true
		}
	}
	return false
}
