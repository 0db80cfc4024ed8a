package envconfig_test

import (
	"encoding/json"
	"testing"

	"github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/environment/envconfig"
)

// TestConfigCreateCartpole ensures a Cartpole Config creates a
// Cart-Pole environment with discrete actions.
func TestConfigCreateCartpole(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Cartpole, envconfig.Balance,
		500, 0.99)

	env, step, err := config.Create(13)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	if !step.First() {
		t.Error("created environment did not return a starting timestep")
	}
	if env.ObservationSpec().Shape.Len() != 4 {
		t.Errorf("expected 4 state features, got %v",
			env.ObservationSpec().Shape.Len())
	}
	if env.ActionSpec().Cardinality != environment.Discrete {
		t.Error("expected a discrete action environment")
	}
}

// TestConfigCreateCatch ensures a Catch Config creates a Catch
// environment with default frame dimensions.
func TestConfigCreateCatch(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Catch, envconfig.CatchBall,
		0, 1.0)

	env, _, err := config.Create(13)
	if err != nil {
		t.Fatalf("could not create environment: %v", err)
	}

	pixels := 10 * 5
	if env.ObservationSpec().Shape.Len() != pixels {
		t.Errorf("expected %v pixels per frame, got %v", pixels,
			env.ObservationSpec().Shape.Len())
	}
}

// TestConfigIllegalTask ensures environments reject tasks they do not
// implement.
func TestConfigIllegalTask(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Cartpole, envconfig.CatchBall,
		500, 0.99)
	if _, _, err := config.Create(13); err == nil {
		t.Error("expected an error creating Cartpole with a Catch task")
	}

	config = envconfig.NewConfig("Acrobot", envconfig.Balance, 500, 0.99)
	if _, _, err := config.Create(13); err == nil {
		t.Error("expected an error creating an unknown environment")
	}
}

// TestConfigJSON ensures an environment Config survives a JSON round
// trip.
func TestConfigJSON(t *testing.T) {
	config := envconfig.NewConfig(envconfig.Cartpole, envconfig.Balance,
		500, 0.99)

	data, err := json.Marshal(config)
	if err != nil {
		t.Fatalf("could not marshal config: %v", err)
	}

	var decoded envconfig.Config
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("could not unmarshal config: %v", err)
	}

	if decoded != config {
		t.Errorf("expected %v, got %v", config, decoded)
	}

	if _, _, err := decoded.Create(13); err != nil {
		t.Errorf("could not create environment from decoded config: %v", err)
	}
}
