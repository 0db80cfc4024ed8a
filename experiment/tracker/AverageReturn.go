package tracker

import (
	"encoding/gob"
	"fmt"
	"log"
	"os"

	ts "github.com/samuelfneumann/reinforce/timestep"
)

// AverageReturn tracks an exponential moving average of the episodic
// return in an experiment. The first episode's return initializes the
// average, and each later episode moves the average towards its
// return:
//
//	average = decay*average + (1 - decay)*return
//
// This may be useful for monitoring learning progress during long
// experiments, where per-episode returns are noisy.
type AverageReturn struct {
	decay         float64
	currentReturn float64
	average       float64
	episodes      int
	averages      []float64
	printEvery    int
	filename      string
}

// NewAverageReturn returns a new AverageReturn Tracker which will
// save its data at the specified location filename. The decay
// parameter controls how quickly the average moves and should be in
// (0, 1). If printEvery is positive, the tracker prints the episode
// number, the episode's return, and the moving average every
// printEvery episodes.
func NewAverageReturn(filename string, decay float64,
	printEvery int) Tracker {
	return &AverageReturn{
		decay:      decay,
		printEvery: printEvery,
		filename:   filename,
	}
}

// Track accumulates the rewards seen on each timestep of an episode
// and folds the episode's return into the moving average when the
// episode's last timestep is tracked.
func (a *AverageReturn) Track(step ts.TimeStep) {
	if step.First() {
		a.currentReturn = 0.0
		return
	}

	a.currentReturn += step.Reward
	if !step.Last() {
		return
	}

	if a.episodes == 0 {
		a.average = a.currentReturn
	} else {
		a.average = a.decay*a.average + (1.0-a.decay)*a.currentReturn
	}
	a.episodes++
	a.averages = append(a.averages, a.average)

	if a.printEvery > 0 && a.episodes%a.printEvery == 0 {
		fmt.Printf("Episode %v  |  Return: %.2f  |  Average Return: %.2f\n",
			a.episodes, a.currentReturn, a.average)
	}
	a.currentReturn = 0.0
}

// Average returns the current moving average of the episodic return
func (a *AverageReturn) Average() float64 {
	return a.average
}

// Episodes returns the number of episodes tracked so far
func (a *AverageReturn) Episodes() int {
	return a.episodes
}

// Save saves the moving average after each episode to disk.
func (a *AverageReturn) Save() {
	// Open the file to save to
	file, err := os.Create(a.filename)
	if err != nil {
		log.Fatalf("could not open save file: %v", err)
	}
	defer file.Close()

	// Encode and save the file
	en := gob.NewEncoder(file)
	if err = en.Encode(a.averages); err != nil {
		log.Fatalf("could not encode average return data: %v", err)
	}
}
