package initwfn_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/samuelfneumann/reinforce/initwfn"
)

// TestInitWFnJSON ensures weight initializers survive a JSON round
// trip with their hyperparameters intact.
func TestInitWFnJSON(t *testing.T) {
	glorot, err := initwfn.NewGlorotN(math.Sqrt(2))
	if err != nil {
		t.Fatalf("could not create GlorotN initializer: %v", err)
	}
	constant, err := initwfn.NewConstant(0.5)
	if err != nil {
		t.Fatalf("could not create Constant initializer: %v", err)
	}
	gaussian, err := initwfn.NewGaussian(0.0, 1.0)
	if err != nil {
		t.Fatalf("could not create Gaussian initializer: %v", err)
	}
	uniform, err := initwfn.NewUniform(-0.1, 0.1)
	if err != nil {
		t.Fatalf("could not create Uniform initializer: %v", err)
	}
	zeroes, err := initwfn.NewZeroes()
	if err != nil {
		t.Fatalf("could not create Zeroes initializer: %v", err)
	}

	inits := []*initwfn.InitWFn{glorot, constant, gaussian, uniform, zeroes}
	for _, init := range inits {
		encoded, err := json.Marshal(init)
		if err != nil {
			t.Fatalf("could not marshal %v: %v", init, err)
		}

		decoded := new(initwfn.InitWFn)
		if err := json.Unmarshal(encoded, decoded); err != nil {
			t.Fatalf("could not unmarshal %v: %v", init, err)
		}

		if decoded.Type != init.Type {
			t.Errorf("expected type %v, got %v", init.Type, decoded.Type)
		}
		if decoded.Config != init.Config {
			t.Errorf("expected config %v, got %v", init.Config,
				decoded.Config)
		}
		if decoded.InitWFn() == nil {
			t.Errorf("%v: expected a Gorgonia InitWFn to be created on "+
				"unmarshalling", init)
		}
	}
}

// TestInitWFnConfigs ensures each config reports the type it creates.
func TestInitWFnConfigs(t *testing.T) {
	glorot, err := initwfn.NewGlorotN(1.0)
	if err != nil {
		t.Fatalf("could not create GlorotN initializer: %v", err)
	}
	if glorot.Type != initwfn.GlorotN {
		t.Errorf("expected type %v, got %v", initwfn.GlorotN, glorot.Type)
	}
	config, ok := glorot.Config.(initwfn.GlorotNConfig)
	if !ok {
		t.Fatalf("expected a GlorotNConfig, got %T", glorot.Config)
	}
	if config.Gain != 1.0 {
		t.Errorf("expected gain 1.0, got %v", config.Gain)
	}

	constant, err := initwfn.NewConstant(3.0)
	if err != nil {
		t.Fatalf("could not create Constant initializer: %v", err)
	}
	if constant.Type != initwfn.Constant {
		t.Errorf("expected type %v, got %v", initwfn.Constant, constant.Type)
	}
}
