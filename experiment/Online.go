package experiment

import (
	"time"

	"github.com/samuelfneumann/progressbar"

	"github.com/samuelfneumann/reinforce/agent"
	env "github.com/samuelfneumann/reinforce/environment"
	"github.com/samuelfneumann/reinforce/experiment/tracker"
	ts "github.com/samuelfneumann/reinforce/timestep"
)

// progressBarWidth is the terminal width of the progress bar drawn by
// Run
const progressBarWidth int = 50

// Online is an Experiment that runs an agent online only. No offline
// evaluation is performed.
type Online struct {
	env.Environment
	agent.Agent
	maxEpisodes    int
	currentEpisode int
	stepLimit      int
	trackers       []tracker.Tracker
}

// NewOnline creates and returns a new online experiment on a given
// environment with a given agent. The episodes parameter determines
// how many episodes the experiment is run for, and stepLimit caps the
// number of timesteps in a single episode, with values <= 0 meaning
// no cap. The t parameter is a slice of tracker.Tracker which
// determine what data is saved.
func NewOnline(e env.Environment, a agent.Agent, episodes, stepLimit int,
	t ...tracker.Tracker) *Online {
	return &Online{e, a, episodes, 0, stepLimit, t}
}

// Register registers a tracker.Tracker with an Experiment so that data
// generated during the experiment can be tracked and saved
func (o *Online) Register(t tracker.Tracker) {
	o.trackers = append(o.trackers, t)
}

// RunEpisode runs a single episode of the experiment, returning
// whether or not the experiment has finished. The first error from
// the environment or the agent stops the episode and is returned
// unchanged.
func (o *Online) RunEpisode() (bool, error) {
	step, err := o.Environment.Reset()
	if err != nil {
		return false, err
	}
	if err := o.Agent.ObserveFirst(step); err != nil {
		return false, err
	}
	o.track(step)

	// Run the episode to completion
	for !step.Last() && (o.stepLimit <= 0 || step.Number < o.stepLimit) {
		// Select action, step in environment
		action, err := o.Agent.SelectAction(step)
		if err != nil {
			return false, err
		}
		step, _, err = o.Environment.Step(action)
		if err != nil {
			return false, err
		}

		// Cache the environment step in each Tracker
		o.track(step)

		// Observe the timestep and step the agent
		if err := o.Agent.Observe(action, step); err != nil {
			return false, err
		}
		if err := o.Agent.Step(); err != nil {
			return false, err
		}
	}
	o.Agent.EndEpisode()
	o.currentEpisode++

	// Return whether or not the episode limit has been reached
	return o.currentEpisode >= o.maxEpisodes, nil
}

// Run runs the entire experiment for all episodes, displaying a
// progress bar over episodes. The first error encountered stops the
// experiment and is returned unchanged.
func (o *Online) Run() error {
	bar := progressbar.New(progressBarWidth, o.maxEpisodes,
		time.Second, false)
	bar.Display()
	defer bar.Close()

	ended := false
	for !ended {
		var err error
		ended, err = o.RunEpisode()
		if err != nil {
			return err
		}
		bar.Increment()
	}
	return nil
}

// Save saves all the data cached by the Trackers to disk
func (o *Online) Save() {
	for _, tr := range o.trackers {
		tr.Save()
	}
}

// track tracks the current timestep by caching its data in each
// Tracker
func (o *Online) track(t ts.TimeStep) {
	for _, tr := range o.trackers {
		tr.Track(t)
	}
}
