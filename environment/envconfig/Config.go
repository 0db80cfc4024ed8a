// Package envconfig provides configuration structs for configuring
// environments with default physical parameters and tasks. Environment
// configurations in this package are JSON serializable.
package envconfig

import (
	"fmt"

	"gonum.org/v1/gonum/spatial/r1"

	env "github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/environment/catch"
	"github.com/samuelfneumann/reinforce/environment/classiccontrol/cartpole"
	"github.com/samuelfneumann/reinforce/environment/gym"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

// EnvName stores the name of environments that can be configured with
// this package
type EnvName string

// Environments available for configuration
const (
	Cartpole EnvName = "Cartpole"
	Catch    EnvName = "Catch"
	Gym      EnvName = "Gym"
)

// TaskName stores the tasks that can be configured with this package.
// Note that not all tasks can be used with all environments. The tasks
// that can be used with each environment are as follows:
//
//	Environment			Task
//	Cartpole			Balance
//	Catch				CatchBall
//	Gym					(fixed by the gym environment name)
type TaskName string

// Tasks available for configuration
const (
	Balance   TaskName = "Balance"
	CatchBall TaskName = "CatchBall"
)

// Config implements a specific configuration of a specific environment
// and specific task. Not all environments can have all tasks.
type Config struct {
	Environment   EnvName
	Task          TaskName
	EpisodeCutoff uint
	Discount      float64

	// GymName is the name of the environment in the OpenAI Gym suite
	// to create when Environment is Gym
	GymName string
}

// NewConfig returns a new environment Config
func NewConfig(envName EnvName, taskName TaskName, episodeCutoff uint,
	discount float64) Config {
	return Config{
		Environment:   envName,
		Task:          taskName,
		EpisodeCutoff: episodeCutoff,
		Discount:      discount,
	}
}

// Create returns the environment described by the Config as well as
// the first timestep of the environment.
func (c Config) Create(seed uint64) (env.Environment, ts.TimeStep, error) {
	switch c.Environment {
	case Cartpole:
		return CreateCartpole(c.Task, int(c.EpisodeCutoff), seed, c.Discount)

	case Catch:
		return CreateCatch(c.Task, seed, c.Discount)

	case Gym:
		return gym.New(c.GymName, c.Discount, seed)
	}

	return nil, ts.TimeStep{}, fmt.Errorf("create: cannot create "+
		"environment %v, no such environment", c.Environment)
}

// CreateCartpole is a factory for creating the Cartpole environment
// with default physical parameters and default task parameters.
func CreateCartpole(taskName TaskName, cutoff int, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	bounds := r1.Interval{Min: -0.05, Max: 0.05}
	s := env.NewUniformStarter([]r1.Interval{
		bounds,
		bounds,
		bounds,
		bounds,
	}, seed)

	var task env.Task
	switch taskName {
	case Balance:
		task = cartpole.NewBalance(s, cutoff, cartpole.FailAngle)

	default:
		return nil, ts.TimeStep{}, fmt.Errorf("createCartpole: Cartpole "+
			"environment has no task %v", taskName)
	}

	return cartpole.NewDiscrete(task, discount)
}

// CreateCatch is a factory for creating the Catch environment with
// default frame dimensions and default task parameters. Episodes in
// Catch always end when the ball reaches the bottom row of the frame,
// so no episode cutoff is needed.
func CreateCatch(taskName TaskName, seed uint64,
	discount float64) (env.Environment, ts.TimeStep, error) {
	var task env.Task
	switch taskName {
	case CatchBall:
		task = catch.NewCatchBall(catch.DefaultRows, catch.DefaultCols, seed)

	default:
		return nil, ts.TimeStep{}, fmt.Errorf("createCatch: Catch "+
			"environment has no task %v", taskName)
	}

	return catch.New(task, catch.DefaultRows, catch.DefaultCols, discount)
}
