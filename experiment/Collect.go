package experiment

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/agent"
	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/explorer"
	"github.com/personalrobotics/d3rlpy/expreplay"
	"github.com/personalrobotics/d3rlpy/preprocessing"
	"github.com/personalrobotics/d3rlpy/utils/progressbar"
)

// CollectConfig configures a data-collection run.
type CollectConfig struct {
	// NSteps is the total number of interaction steps to collect.
	NSteps int

	// RandomSteps is the length of the initial uniformly random
	// phase, as in training.
	RandomSteps int

	// Deterministic forces greedy action selection on every step,
	// overriding the random phase and any explorer.
	Deterministic bool

	// TimelimitAware converts time-limit truncation into a clipped,
	// non-terminal episode boundary.
	TimelimitAware bool

	ShowProgress bool
	Seed         uint64
}

// NewCollectConfig returns a CollectConfig with defaults
func NewCollectConfig() CollectConfig {
	return CollectConfig{
		NSteps:         1_000_000,
		TimelimitAware: true,
	}
}

// Collect harvests a fixed-length interaction trace into a buffer with
// no learning side effects: no updates, no evaluation, no metric
// logging. Action selection and episode-boundary handling match the
// training loop.
type Collect struct {
	algo   agent.Algorithm
	env    environment.Environment
	buffer expreplay.Buffer
	expl   explorer.Explorer
	config CollectConfig

	actionSampler environment.UniformActionSampler
	stacker       *preprocessing.StackedObservation
	observation   mat.Vector
}

// NewCollect creates a collection loop. The expl collaborator is
// optional and may be nil.
func NewCollect(algo agent.Algorithm, env environment.Environment,
	buffer expreplay.Buffer, expl explorer.Explorer,
	config CollectConfig) (*Collect, error) {
	if algo == nil {
		return nil, errors.New("newCollect: no algorithm given")
	}
	if env == nil {
		return nil, errors.New("newCollect: no environment given")
	}
	if buffer == nil {
		return nil, errors.New("newCollect: no buffer given")
	}
	if config.NSteps < 1 {
		return nil, errors.Errorf("newCollect: NSteps must be positive, "+
			"got %d", config.NSteps)
	}

	return &Collect{
		algo:   algo,
		env:    env,
		buffer: buffer,
		expl:   expl,
		config: config,
	}, nil
}

// Run executes the collection loop. The trailing episode is finalized
// in the buffer on every exit path.
func (c *Collect) Run() (err error) {
	if err := setupAlgo(c.algo, c.env); err != nil {
		return errors.Wrap(err, "run")
	}

	c.stacker, err = newStacker(c.env, c.algo.NFrames())
	if err != nil {
		return errors.Wrap(err, "run")
	}
	c.actionSampler = environment.NewUniformActionSampler(c.env.ActionSpec(),
		c.config.Seed)

	c.observation, err = c.env.Reset()
	if err != nil {
		return errors.Wrap(err, "run: could not reset environment")
	}

	defer c.buffer.ClipEpisode()

	var bar *progressbar.ProgressBar
	if c.config.ShowProgress {
		bar = progressbar.New(50, c.config.NSteps)
	}

	for totalStep := 1; totalStep <= c.config.NSteps; totalStep++ {
		if err := c.step(totalStep); err != nil {
			return err
		}
		if bar != nil {
			bar.Increment()
			bar.Display()
		}
	}
	return nil
}

// selectAction mirrors the training loop's selection states, with the
// deterministic override forcing greedy prediction
func (c *Collect) selectAction(fed mat.Vector,
	totalStep int) (*mat.VecDense, *mat.VecDense, error) {
	space := c.env.ActionSpec()

	if !c.config.Deterministic && totalStep < c.config.RandomSteps {
		unscaled := c.actionSampler.Sample()
		return preprocessing.Scale(space, unscaled), unscaled, nil
	}

	var actions *mat.Dense
	var err error
	switch {
	case c.config.Deterministic:
		actions, err = c.algo.Predict(rowMatrix(fed))
	case c.expl != nil:
		actions, err = c.expl.Sample(c.algo, rowMatrix(fed), totalStep)
	default:
		actions, err = c.algo.SampleAction(rowMatrix(fed))
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "selectAction")
	}

	action := firstRow(actions)
	return action, preprocessing.Unscale(space, action), nil
}

// step runs one collection iteration
func (c *Collect) step(totalStep int) error {
	fed := c.observation
	if c.stacker != nil {
		c.stacker.Append(c.observation)
		data := c.stacker.Eval().Data().([]float64)
		fed = mat.NewVecDense(len(data), data)
	}

	action, unscaled, err := c.selectAction(fed, totalStep)
	if err != nil {
		return errors.Wrap(err, "step")
	}

	next, reward, terminal, info, err := c.env.Step(unscaled)
	if err != nil {
		return errors.Wrap(err, "step: environment step failed")
	}

	clipEpisode := terminal
	if c.config.TimelimitAware && info.Truncated() {
		clipEpisode = true
		terminal = false
	}

	err = c.buffer.Append(c.observation, action, reward, next, terminal,
		clipEpisode)
	if err != nil {
		return errors.Wrap(err, "step: could not store transition")
	}

	if clipEpisode {
		c.observation, err = c.env.Reset()
		if err != nil {
			return errors.Wrap(err, "step: could not reset environment")
		}
		if c.stacker != nil {
			c.stacker.Clear()
		}
	} else {
		c.observation = next
	}
	return nil
}
