package main

import (
	"flag"
	"fmt"
	"log"

	"github.com/personalrobotics/d3rlpy/agent/random"
	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/environment/classiccontrol/mountaincar"
	"github.com/personalrobotics/d3rlpy/experiment"
	"github.com/personalrobotics/d3rlpy/explorer"
	"github.com/personalrobotics/d3rlpy/expreplay"
	"github.com/personalrobotics/d3rlpy/logger"
)

func main() {
	flag.Parse()

	var seed uint64 = 192382

	// Create the environment with a 200-step episode cap
	env, err := environment.NewStepLimit(mountaincar.New(seed), 200)
	if err != nil {
		log.Fatal(err)
	}

	algo := random.New(random.Config{BatchSize: 32, Gamma: 0.99}, seed)

	// Collect a short uniformly random trace
	collectBuffer, err := expreplay.New(10_000, seed)
	if err != nil {
		log.Fatal(err)
	}

	collectConf := experiment.NewCollectConfig()
	collectConf.NSteps = 2_000
	collectConf.Seed = seed

	c, err := experiment.NewCollect(algo, env, collectBuffer, nil, collectConf)
	if err != nil {
		log.Fatal(err)
	}
	if err := c.Run(); err != nil {
		log.Fatal(err)
	}
	fmt.Printf("collected %v transitions\n", collectBuffer.Len())

	// Train online with epsilon-greedy exploration
	buffer, err := expreplay.New(100_000, seed+1)
	if err != nil {
		log.Fatal(err)
	}

	expl, err := explorer.NewLinearDecayEpsilonGreedy(1.0, 0.1, 5_000, seed)
	if err != nil {
		log.Fatal(err)
	}

	fileLogger, err := logger.NewFileLogger("d3rlpy_logs", "random_online",
		true)
	if err != nil {
		log.Fatal(err)
	}

	evalEnv, err := environment.NewStepLimit(mountaincar.New(seed+2), 200)
	if err != nil {
		log.Fatal(err)
	}

	conf := experiment.NewTrainConfig()
	conf.NSteps = 10_000
	conf.NStepsPerEpoch = 1_000
	conf.RandomSteps = 500
	conf.Seed = seed
	conf.ShowProgress = true

	t, err := experiment.NewTrain(algo, env, buffer, fileLogger, expl,
		evalEnv, conf)
	if err != nil {
		log.Fatal(err)
	}
	if err := t.Run(); err != nil {
		log.Fatal(err)
	}

	fmt.Printf("\ntrained for %v steps, buffer length %v\n", conf.NSteps,
		buffer.Len())
}
