package catch_test

import (
	"testing"

	"gonum.org/v1/gonum/mat"
	env "github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/environment/catch"
)

// framePositions returns the ball column shown in the top rows of a
// frame and the paddle column shown in the bottom row, returning -1
// for positions with no set pixel
func framePositions(frame *mat.VecDense, rows, cols int) (int, int) {
	ballCol, paddleCol := -1, -1
	for i := 0; i < (rows-1)*cols; i++ {
		if frame.AtVec(i) != 0 {
			ballCol = i % cols
		}
	}
	for i := 0; i < cols; i++ {
		if frame.AtVec((rows-1)*cols+i) != 0 {
			paddleCol = i
		}
	}
	return ballCol, paddleCol
}

func TestNew(t *testing.T) {
	rows, cols := catch.DefaultRows, catch.DefaultCols
	task := catch.NewCatchBall(rows, cols, 42)
	c, firstStep, err := catch.New(task, rows, cols, 1.0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if !firstStep.First() {
		t.Error("first timestep should have step type First")
	}
	if firstStep.Observation.Len() != rows*cols {
		t.Errorf("frame should have %v pixels, got %v", rows*cols,
			firstStep.Observation.Len())
	}

	// The first frame shows the ball in the top row and the paddle in
	// the bottom row
	set := 0
	for i := 0; i < rows*cols; i++ {
		if v := firstStep.Observation.AtVec(i); v != 0 && v != 1 {
			t.Errorf("pixel %v should be binary, got %v", i, v)
		} else if v == 1 {
			set++
			if i >= cols && i < (rows-1)*cols {
				t.Errorf("pixel %v set outside the top and bottom rows", i)
			}
		}
	}
	if set != 2 {
		t.Errorf("first frame should have 2 set pixels, got %v", set)
	}

	actionSpec := c.ActionSpec()
	if actionSpec.Cardinality != env.Discrete {
		t.Error("action spec should be discrete")
	}
	if int(actionSpec.UpperBound.AtVec(0)) != catch.MaxDiscreteAction {
		t.Errorf("action spec upper bound should be %v, got %v",
			catch.MaxDiscreteAction, int(actionSpec.UpperBound.AtVec(0)))
	}
	if c.ObservationSpec().Shape.Len() != rows*cols {
		t.Errorf("observation spec should have %v features, got %v",
			rows*cols, c.ObservationSpec().Shape.Len())
	}

	if _, _, err := catch.New(task, 1, cols, 1.0); err == nil {
		t.Error("expected an error for frames with a single row")
	}
}

func TestCatchEpisode(t *testing.T) {
	rows, cols := catch.DefaultRows, catch.DefaultCols
	task := catch.NewCatchBall(rows, cols, 42)
	c, firstStep, err := catch.New(task, rows, cols, 1.0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ballCol, paddleCol := framePositions(firstStep.Observation, rows, cols)
	if ballCol < 0 || paddleCol < 0 {
		t.Fatal("first frame should show the ball and the paddle")
	}

	// Move the paddle under the ball on every step. The paddle can
	// always reach the ball in time on default frames.
	step := firstStep
	done := false
	steps := 0
	for !done {
		action := 1.0
		if paddleCol < ballCol {
			action = 2.0
			paddleCol++
		} else if paddleCol > ballCol {
			action = 0.0
			paddleCol--
		}

		step, done, err = c.Step(mat.NewVecDense(1, []float64{action}))
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		steps++

		if !done && step.Reward != 0 {
			t.Errorf("reward should be 0 while the ball falls, got %v",
				step.Reward)
		}
		if steps > rows {
			t.Fatal("episode should end when the ball reaches the bottom row")
		}
	}

	if steps != rows-1 {
		t.Errorf("episode should last %v steps, got %v", rows-1, steps)
	}
	if step.Reward != 1.0 {
		t.Errorf("catching the ball should give reward 1.0, got %v",
			step.Reward)
	}
	if !step.TerminalEnd() {
		t.Error("the ball reaching the bottom row should terminate the " +
			"episode")
	}
}

func TestMissEpisode(t *testing.T) {
	rows, cols := catch.DefaultRows, catch.DefaultCols
	task := catch.NewCatchBall(rows, cols, 42)
	c, firstStep, err := catch.New(task, rows, cols, 1.0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ballCol, _ := framePositions(firstStep.Observation, rows, cols)

	// Run the paddle into the wall farthest from the ball
	action := 0.0
	if ballCol < cols/2 {
		action = 2.0
	}

	var step = firstStep
	done := false
	for !done {
		step, done, err = c.Step(mat.NewVecDense(1, []float64{action}))
		if err != nil {
			t.Fatalf("step: %v", err)
		}
	}

	if step.Reward != -1.0 {
		t.Errorf("missing the ball should give reward -1.0, got %v",
			step.Reward)
	}
}

func TestBallFalls(t *testing.T) {
	rows, cols := catch.DefaultRows, catch.DefaultCols
	task := catch.NewCatchBall(rows, cols, 14)
	c, firstStep, err := catch.New(task, rows, cols, 1.0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	ballCol, _ := framePositions(firstStep.Observation, rows, cols)

	// Without paddle movement the ball falls straight down its column
	for row := 1; row < rows-1; row++ {
		step, done, err := c.Step(mat.NewVecDense(1, []float64{1}))
		if err != nil {
			t.Fatalf("step: %v", err)
		}
		if done {
			t.Fatalf("episode ended with the ball on row %v", row)
		}
		if step.Observation.AtVec(row*cols+ballCol) != 1 {
			t.Errorf("ball pixel should be at row %v column %v", row, ballCol)
		}
		if step.Number != row {
			t.Errorf("timestep number should be %v, got %v", row, step.Number)
		}
	}
}

func TestIllegalAction(t *testing.T) {
	rows, cols := catch.DefaultRows, catch.DefaultCols
	task := catch.NewCatchBall(rows, cols, 42)
	c, _, err := catch.New(task, rows, cols, 1.0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	if _, _, err := c.Step(mat.NewVecDense(1, []float64{3})); err == nil {
		t.Error("expected an error when stepping with illegal action 3")
	}
	if _, _, err := c.Step(mat.NewVecDense(1, []float64{-1})); err == nil {
		t.Error("expected an error when stepping with illegal action -1")
	}
}
