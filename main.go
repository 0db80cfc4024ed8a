package main

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/spatial/r1"

	"github.com/samuelfneumann/reinforce/agent/reinforce"
	"github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/reinforce/experiment"
	"github.com/samuelfneumann/reinforce/experiment/tracker"
	"github.com/samuelfneumann/reinforce/initwfn"
	"github.com/samuelfneumann/reinforce/network"
	"github.com/samuelfneumann/reinforce/solver"
)

func main() {
	var seed uint64 = 192382

	// Create the environment
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	starter := environment.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)
	task := cartpole.NewBalance(starter, 500, cartpole.FailAngle)
	env, _, err := cartpole.NewDiscrete(task, 0.99)
	if err != nil {
		panic(err)
	}

	// Create the learning algorithm
	policySolver, err := solver.NewDefaultAdam(1e-3, 1)
	if err != nil {
		panic(err)
	}
	initWFn, err := initwfn.NewGlorotN(math.Sqrt(2.0))
	if err != nil {
		panic(err)
	}
	nonlinearity := network.TanH()
	config := reinforce.Config{
		PolicyLayers: []int{64, 64},
		Biases:       []bool{true, true},
		Activations:  []*network.Activation{nonlinearity, nonlinearity},

		Solver:  policySolver,
		InitWFn: initWFn,
		Gamma:   0.99,
	}
	agent, err := config.CreateAgent(env, seed)
	if err != nil {
		panic(err)
	}

	// Experiment
	episodes := 1500
	returns := tracker.NewReturn("./data.bin")
	progress := tracker.NewAverageReturn("./average.bin", 0.99, 100)
	e := experiment.NewOnline(env, agent, episodes, 0, returns, progress)

	start := time.Now()
	if err := e.Run(); err != nil {
		panic(err)
	}
	fmt.Println("Elapsed:", time.Since(start))
	e.Save()

	data := tracker.LoadData("./data.bin")
	fmt.Println(data[len(data)-10:])
}
