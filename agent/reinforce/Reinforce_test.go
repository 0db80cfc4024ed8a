package reinforce_test

import (
	"encoding/json"
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"

	"github.com/samuelfneumann/reinforce/agent"
	"github.com/samuelfneumann/reinforce/agent/reinforce"
	env "github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/initwfn"
	"github.com/samuelfneumann/reinforce/network"
	"github.com/samuelfneumann/reinforce/solver"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

// twoStepEnv is a deterministic environment whose episodes last
// exactly two steps, each giving a reward of 1. Observations have two
// features and any of three actions is legal.
type twoStepEnv struct {
	current ts.TimeStep
}

func (e *twoStepEnv) Reset() (ts.TimeStep, error) {
	obs := mat.NewVecDense(2, []float64{1.0, 0.0})
	e.current = ts.New(ts.First, 0.0, 0.99, obs, 0)
	return e.current, nil
}

func (e *twoStepEnv) Step(_ *mat.VecDense) (ts.TimeStep, bool, error) {
	number := e.current.Number + 1
	obs := mat.NewVecDense(2, []float64{0.0, float64(number)})

	stepType := ts.Mid
	if number >= 2 {
		stepType = ts.Last
	}

	step := ts.New(stepType, 1.0, 0.99, obs, number)
	if step.Last() {
		step.SetEnd(ts.TerminalEnd)
	}

	e.current = step
	return step, step.Last(), nil
}

func (e *twoStepEnv) CurrentTimeStep() ts.TimeStep { return e.current }

func (e *twoStepEnv) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(2, nil)
	lowerBound := mat.NewVecDense(2, []float64{0.0, 0.0})
	upperBound := mat.NewVecDense(2, []float64{1.0, 2.0})
	return env.NewSpec(shape, env.Observation, lowerBound, upperBound,
		env.Continuous)
}

func (e *twoStepEnv) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{0.0})
	upperBound := mat.NewVecDense(1, []float64{2.0})
	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

func (e *twoStepEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{0.99})
	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

func (e *twoStepEnv) Start() *mat.VecDense {
	return mat.NewVecDense(2, []float64{1.0, 0.0})
}

func (e *twoStepEnv) End(t *ts.TimeStep) bool { return t.Last() }

func (e *twoStepEnv) GetReward(_, _, _ mat.Vector) float64 { return 1.0 }

func (e *twoStepEnv) AtGoal(_ mat.Matrix) bool { return false }

func (e *twoStepEnv) Min() float64 { return 1.0 }

func (e *twoStepEnv) Max() float64 { return 1.0 }

func (e *twoStepEnv) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{1.0})
	return env.NewSpec(shape, env.Reward, bound, bound, env.Continuous)
}

// bestActionEnv rewards action 0 on every step and nothing otherwise.
// Episodes last exactly five steps, and the single-feature observation
// never changes, so the best policy is to always take action 0.
type bestActionEnv struct {
	current ts.TimeStep
}

func (e *bestActionEnv) Reset() (ts.TimeStep, error) {
	e.current = ts.New(ts.First, 0.0, 0.99, e.Start(), 0)
	return e.current, nil
}

func (e *bestActionEnv) Step(action *mat.VecDense) (ts.TimeStep, bool,
	error) {
	reward := 0.0
	if int(action.AtVec(0)) == 0 {
		reward = 1.0
	}

	number := e.current.Number + 1
	stepType := ts.Mid
	if number >= 5 {
		stepType = ts.Last
	}

	step := ts.New(stepType, reward, 0.99, e.Start(), number)
	if step.Last() {
		step.SetEnd(ts.TerminalEnd)
	}

	e.current = step
	return step, step.Last(), nil
}

func (e *bestActionEnv) CurrentTimeStep() ts.TimeStep { return e.current }

func (e *bestActionEnv) ObservationSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{1.0})
	return env.NewSpec(shape, env.Observation, bound, bound,
		env.Continuous)
}

func (e *bestActionEnv) ActionSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, []float64{0.0})
	upperBound := mat.NewVecDense(1, []float64{1.0})
	return env.NewSpec(shape, env.Action, lowerBound, upperBound,
		env.Discrete)
}

func (e *bestActionEnv) DiscountSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	bound := mat.NewVecDense(1, []float64{0.99})
	return env.NewSpec(shape, env.Discount, bound, bound, env.Continuous)
}

func (e *bestActionEnv) Start() *mat.VecDense {
	return mat.NewVecDense(1, []float64{1.0})
}

func (e *bestActionEnv) End(t *ts.TimeStep) bool { return t.Last() }

func (e *bestActionEnv) GetReward(_, action, _ mat.Vector) float64 {
	if int(action.AtVec(0)) == 0 {
		return 1.0
	}
	return 0.0
}

func (e *bestActionEnv) AtGoal(_ mat.Matrix) bool { return false }

func (e *bestActionEnv) Min() float64 { return 0.0 }

func (e *bestActionEnv) Max() float64 { return 1.0 }

func (e *bestActionEnv) RewardSpec() env.Spec {
	shape := mat.NewVecDense(1, nil)
	lowerBound := mat.NewVecDense(1, nil)
	upperBound := mat.NewVecDense(1, []float64{1.0})
	return env.NewSpec(shape, env.Reward, lowerBound, upperBound,
		env.Continuous)
}

// newConfig returns a valid REINFORCE configuration for testing
func newConfig(t *testing.T) reinforce.Config {
	adam, err := solver.NewDefaultAdam(0.001, 1)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	init, err := initwfn.NewGlorotN(math.Sqrt(2))
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}

	return reinforce.Config{
		PolicyLayers: []int{5},
		Biases:       []bool{true},
		Activations:  []*network.Activation{network.TanH()},
		Solver:       adam,
		InitWFn:      init,
		Gamma:        0.99,
	}
}

// TestEpisodeReturns checks the discounted return-to-go against
// hand-computed values.
func TestEpisodeReturns(t *testing.T) {
	episode := reinforce.NewEpisode(1)
	for i := 0; i < 3; i++ {
		if err := episode.Add([]float64{0.0}, 0.0, 1.0); err != nil {
			t.Fatalf("could not add step: %v", err)
		}
	}

	returns := episode.Returns(0.99)
	expected := []float64{2.9701, 1.99, 1.0}
	if len(returns) != len(expected) {
		t.Fatalf("expected %v returns, got %v", len(expected), len(returns))
	}
	for i := range expected {
		if math.Abs(returns[i]-expected[i]) > 1e-6 {
			t.Errorf("return %d: expected %v, got %v", i, expected[i],
				returns[i])
		}
	}
}

// TestEpisodeBaseline checks that subtracting the mean return leaves
// zero-mean returns and the expected values for a two-step episode.
func TestEpisodeBaseline(t *testing.T) {
	episode := reinforce.NewEpisode(1)
	for i := 0; i < 2; i++ {
		if err := episode.Add([]float64{0.0}, 0.0, 1.0); err != nil {
			t.Fatalf("could not add step: %v", err)
		}
	}

	returns := episode.Returns(0.99)
	mean := 0.0
	for _, g := range returns {
		mean += g
	}
	mean /= float64(len(returns))
	for i := range returns {
		returns[i] -= mean
	}

	expected := []float64{0.495, -0.495}
	for i := range expected {
		if math.Abs(returns[i]-expected[i]) > 1e-9 {
			t.Errorf("adjusted return %d: expected %v, got %v", i,
				expected[i], returns[i])
		}
	}

	sum := 0.0
	for _, g := range returns {
		sum += g
	}
	if math.Abs(sum) > 1e-10 {
		t.Errorf("adjusted returns should have zero mean, got mean %v",
			sum/float64(len(returns)))
	}
}

// TestEpisodeAdd ensures the three sequences of an episode stay
// aligned and that malformed observations are rejected.
func TestEpisodeAdd(t *testing.T) {
	episode := reinforce.NewEpisode(2)

	if err := episode.Add([]float64{1.0, 2.0}, 1.0, 0.5); err != nil {
		t.Fatalf("could not add step: %v", err)
	}
	if err := episode.Add([]float64{3.0, 4.0}, 2.0, -0.5); err != nil {
		t.Fatalf("could not add step: %v", err)
	}
	if err := episode.Add([]float64{1.0}, 0.0, 0.0); err == nil {
		t.Error("expected an error for an observation of the wrong size")
	}

	if episode.Len() != 2 {
		t.Fatalf("expected 2 steps, got %v", episode.Len())
	}
	if len(episode.Observations()) != 4 {
		t.Errorf("expected 4 observation values, got %v",
			len(episode.Observations()))
	}
	if episode.Actions()[1] != 2.0 {
		t.Errorf("expected action 2, got %v", episode.Actions()[1])
	}
	if episode.Rewards()[1] != -0.5 {
		t.Errorf("expected reward -0.5, got %v", episode.Rewards()[1])
	}
}

// TestConfigValidate ensures malformed configurations are rejected.
func TestConfigValidate(t *testing.T) {
	config := newConfig(t)
	if err := config.Validate(); err != nil {
		t.Errorf("expected no error for a valid config: %v", err)
	}

	invalid := newConfig(t)
	invalid.Biases = []bool{true, false}
	if err := invalid.Validate(); err == nil {
		t.Error("expected an error for mismatched biases")
	}

	invalid = newConfig(t)
	invalid.Activations = nil
	if err := invalid.Validate(); err == nil {
		t.Error("expected an error for mismatched activations")
	}

	invalid = newConfig(t)
	invalid.Gamma = 1.5
	if err := invalid.Validate(); err == nil {
		t.Error("expected an error for a discount outside [0, 1]")
	}

	invalid = newConfig(t)
	invalid.Solver = nil
	if err := invalid.Validate(); err == nil {
		t.Error("expected an error for a missing solver")
	}
}

// TestConfigJSON ensures a configuration survives a JSON round trip.
func TestConfigJSON(t *testing.T) {
	config := newConfig(t)

	encoded, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("could not marshal config: %v", err)
	}

	decoded := new(reinforce.Config)
	if err := json.Unmarshal(encoded, decoded); err != nil {
		t.Fatalf("could not unmarshal config: %v", err)
	}

	if decoded.Gamma != config.Gamma {
		t.Errorf("expected discount %v, got %v", config.Gamma,
			decoded.Gamma)
	}
	if len(decoded.PolicyLayers) != 1 || decoded.PolicyLayers[0] != 5 {
		t.Errorf("expected policy layers [5], got %v", decoded.PolicyLayers)
	}
	if decoded.Activations[0].String() != config.Activations[0].String() {
		t.Errorf("expected activation %v, got %v", config.Activations[0],
			decoded.Activations[0])
	}
	if decoded.Solver == nil || decoded.Solver.Type != solver.Adam {
		t.Error("solver did not survive the round trip")
	}
	if decoded.InitWFn == nil || decoded.InitWFn.Type != initwfn.GlorotN {
		t.Error("weight initializer did not survive the round trip")
	}

	if err := decoded.Validate(); err != nil {
		t.Errorf("decoded config should be valid: %v", err)
	}
}

// TestTypedConfigJSON ensures a typed configuration deserializes into
// the registered concrete configuration type.
func TestTypedConfigJSON(t *testing.T) {
	typed := agent.NewTypedConfig(agent.CategoricalReinforceMLP,
		newConfig(t))

	encoded, err := json.Marshal(typed)
	if err != nil {
		t.Fatalf("could not marshal typed config: %v", err)
	}

	var decoded agent.TypedConfig
	if err := json.Unmarshal(encoded, &decoded); err != nil {
		t.Fatalf("could not unmarshal typed config: %v", err)
	}

	if decoded.Type != agent.CategoricalReinforceMLP {
		t.Errorf("expected type %v, got %v", agent.CategoricalReinforceMLP,
			decoded.Type)
	}

	config, ok := decoded.Config.(reinforce.Config)
	if !ok {
		t.Fatalf("expected a reinforce.Config, got %T", decoded.Config)
	}
	if config.Gamma != 0.99 {
		t.Errorf("expected discount 0.99, got %v", config.Gamma)
	}

	a, err := decoded.CreateAgent(&twoStepEnv{}, 14)
	if err != nil {
		t.Fatalf("could not create agent from typed config: %v", err)
	}
	if !config.ValidAgent(a) {
		t.Error("typed config created an agent of the wrong type")
	}
}

// runEpisode runs a single episode of the agent-environment
// interaction, as an experiment would, and returns the episode's
// cumulative reward.
func runEpisode(t *testing.T, environment env.Environment,
	a *reinforce.Reinforce) float64 {
	step, err := environment.Reset()
	if err != nil {
		t.Fatalf("could not reset environment: %v", err)
	}
	if err := a.ObserveFirst(step); err != nil {
		t.Fatalf("could not observe first timestep: %v", err)
	}

	total := 0.0
	for !step.Last() {
		action, err := a.SelectAction(step)
		if err != nil {
			t.Fatalf("could not select action: %v", err)
		}

		var done bool
		step, done, err = environment.Step(action)
		if err != nil {
			t.Fatalf("could not step environment: %v", err)
		}
		total += step.Reward

		if err := a.Observe(action, step); err != nil {
			t.Fatalf("could not observe timestep: %v", err)
		}
		if err := a.Step(); err != nil {
			t.Fatalf("could not step agent: %v", err)
		}

		if done {
			break
		}
	}

	a.EndEpisode()
	return total
}

// TestReinforceTwoStepEpisode runs full episodes of a two-step
// environment through the agent and checks that the update leaves a
// finite loss.
func TestReinforceTwoStepEpisode(t *testing.T) {
	environment := &twoStepEnv{}
	config := newConfig(t)

	created, err := config.CreateAgent(environment, 42)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	a := created.(*reinforce.Reinforce)
	defer a.Close()

	if !math.IsNaN(a.Loss()) {
		t.Errorf("expected a NaN loss before the first update, got %v",
			a.Loss())
	}

	runEpisode(t, environment, a)

	loss := a.Loss()
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Fatalf("expected a finite loss after an update, got %v", loss)
	}

	// A second episode reuses the agent's episode storage
	runEpisode(t, environment, a)
	loss = a.Loss()
	if math.IsNaN(loss) || math.IsInf(loss, 0) {
		t.Fatalf("expected a finite loss after an update, got %v", loss)
	}
}

// TestReinforceObserveFirst ensures only first timesteps can start an
// episode.
func TestReinforceObserveFirst(t *testing.T) {
	environment := &twoStepEnv{}
	config := newConfig(t)

	created, err := config.CreateAgent(environment, 13)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	a := created.(*reinforce.Reinforce)
	defer a.Close()

	step, err := environment.Reset()
	if err != nil {
		t.Fatalf("could not reset environment: %v", err)
	}
	midStep := ts.New(ts.Mid, 1.0, 0.99, mat.NewVecDense(2, nil), 1)
	if err := a.ObserveFirst(midStep); err == nil {
		t.Error("expected an error observing a non-first timestep")
	}
	if err := a.ObserveFirst(step); err != nil {
		t.Errorf("expected no error observing a first timestep: %v", err)
	}

	// Actions can only be selected for the last observed timestep
	if _, err := a.SelectAction(midStep); err == nil {
		t.Error("expected an error selecting an action for an unobserved " +
			"timestep")
	}
	if _, err := a.SelectAction(step); err != nil {
		t.Errorf("expected no error selecting an action: %v", err)
	}
}

// TestReinforceLearningProgress trains on an environment where one
// action is always better and checks that average returns improve.
// The returns of single episodes are noisy, so returns are compared
// between windows of many episodes.
func TestReinforceLearningProgress(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping slow learning test")
	}

	environment := &bestActionEnv{}

	adam, err := solver.NewDefaultAdam(0.01, 1)
	if err != nil {
		t.Fatalf("could not create solver: %v", err)
	}
	init, err := initwfn.NewGlorotN(math.Sqrt(2))
	if err != nil {
		t.Fatalf("could not create weight initializer: %v", err)
	}
	config := reinforce.Config{
		PolicyLayers: []int{5},
		Biases:       []bool{true},
		Activations:  []*network.Activation{network.TanH()},
		Solver:       adam,
		InitWFn:      init,
		Gamma:        0.99,
	}

	created, err := config.CreateAgent(environment, 37)
	if err != nil {
		t.Fatalf("could not create agent: %v", err)
	}
	a := created.(*reinforce.Reinforce)
	defer a.Close()

	const episodes = 600
	const window = 100

	returns := make([]float64, episodes)
	for i := range returns {
		returns[i] = runEpisode(t, environment, a)
		if loss := a.Loss(); math.IsNaN(loss) || math.IsInf(loss, 0) {
			t.Fatalf("episode %v: expected a finite loss, got %v", i, loss)
		}
	}

	first := 0.0
	last := 0.0
	for i := 0; i < window; i++ {
		first += returns[i]
		last += returns[episodes-window+i]
	}
	first /= window
	last /= window

	// A uniform random policy averages 2.5 per five-step episode
	if last <= 3.0 {
		t.Errorf("expected the last %v episodes to average above 3.0, "+
			"got %.3f", window, last)
	}
	if last < first-0.5 {
		t.Errorf("average return degraded: first %v episodes averaged "+
			"%.3f, last %v averaged %.3f", window, first, window, last)
	}
}
