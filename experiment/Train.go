package experiment

import (
	"github.com/golang/glog"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/personalrobotics/d3rlpy/agent"
	"github.com/personalrobotics/d3rlpy/demo"
	"github.com/personalrobotics/d3rlpy/environment"
	"github.com/personalrobotics/d3rlpy/explorer"
	"github.com/personalrobotics/d3rlpy/expreplay"
	"github.com/personalrobotics/d3rlpy/logger"
	"github.com/personalrobotics/d3rlpy/preprocessing"
	"github.com/personalrobotics/d3rlpy/utils/progressbar"
)

// TrainConfig configures a training run.
type TrainConfig struct {
	// NSteps is the total interaction budget and NStepsPerEpoch the
	// granularity of pseudo-epochs (evaluation, checkpointing, and
	// metric commits happen on epoch boundaries).
	NSteps         int
	NStepsPerEpoch int

	// An update fires iff totalStep > UpdateStartStep, the buffer
	// holds more than the algorithm's batch size, and totalStep is a
	// multiple of UpdateInterval.
	UpdateInterval  int
	UpdateStartStep int

	// RandomSteps is the length of the initial uniformly random
	// exploration phase.
	RandomSteps int

	// EvalEpsilon is the epsilon-greedy factor of evaluation rollouts.
	EvalEpsilon float64

	// SaveInterval is the number of epochs between model checkpoints.
	SaveInterval int

	// TimelimitAware converts an environment's time-limit truncation
	// into a clipped, non-terminal episode boundary.
	TimelimitAware bool

	// DemoPath optionally points at a demonstration dataset loaded at
	// setup. With BCLoss false all demonstration transitions are
	// merged into the primary buffer; with BCLoss true they fill a
	// separate demonstration buffer of DemoBufferCapacity, and every
	// update draws an auxiliary batch of DemoBatchSize from it.
	DemoPath           string
	BCLoss             bool
	DemoBatchSize      int
	DemoBufferCapacity int

	// UTD is forwarded to Update as the update-to-data ratio. The
	// loop itself always performs a single Update call per trigger.
	UTD int

	ShowProgress bool
	Seed         uint64

	// Callback, if set, is invoked once per step after any update
	// with (algo, epoch, totalStep).
	Callback func(algo agent.Algorithm, epoch, totalStep int)
}

// NewTrainConfig returns a TrainConfig with the default cadence
func NewTrainConfig() TrainConfig {
	return TrainConfig{
		NSteps:             1_000_000,
		NStepsPerEpoch:     10_000,
		UpdateInterval:     1,
		UpdateStartStep:    0,
		RandomSteps:        0,
		EvalEpsilon:        0.0,
		SaveInterval:       1,
		TimelimitAware:     true,
		DemoBatchSize:      128,
		DemoBufferCapacity: 1_000_000,
		UTD:                1,
	}
}

// validate checks config invariants
func (c TrainConfig) validate() error {
	if c.NSteps < 1 {
		return errors.Errorf("NSteps must be positive, got %d", c.NSteps)
	}
	if c.NStepsPerEpoch < 1 {
		return errors.Errorf("NStepsPerEpoch must be positive, got %d",
			c.NStepsPerEpoch)
	}
	if c.UpdateInterval < 1 {
		return errors.Errorf("UpdateInterval must be positive, got %d",
			c.UpdateInterval)
	}
	if c.SaveInterval < 1 {
		return errors.Errorf("SaveInterval must be positive, got %d",
			c.SaveInterval)
	}
	if c.UTD < 1 {
		return errors.Errorf("UTD must be positive, got %d", c.UTD)
	}
	if c.BCLoss && c.DemoPath == "" {
		return errors.New("BCLoss requires DemoPath")
	}
	if c.BCLoss && c.DemoBatchSize < 1 {
		return errors.Errorf("DemoBatchSize must be positive, got %d",
			c.DemoBatchSize)
	}
	return nil
}

// Train drives online training on a single environment: each step it
// selects an action, steps the environment, stores the transition,
// and fires parameter updates, evaluation rollouts, and checkpoints on
// their configured cadence.
type Train struct {
	algo       agent.Algorithm
	env        environment.Environment
	evalEnv    environment.Environment
	buffer     expreplay.Buffer
	demoBuffer expreplay.Buffer
	expl       explorer.Explorer
	log        logger.Logger
	config     TrainConfig

	actionSampler environment.UniformActionSampler
	stacker       *preprocessing.StackedObservation
	observation   mat.Vector
	rolloutReturn float64
}

// NewTrain creates a training loop. The expl and evalEnv collaborators
// are optional and may be nil: without an explorer the algorithm's own
// SampleAction drives exploration, and without an evaluation
// environment evaluation rollouts are skipped.
func NewTrain(algo agent.Algorithm, env environment.Environment,
	buffer expreplay.Buffer, log logger.Logger, expl explorer.Explorer,
	evalEnv environment.Environment, config TrainConfig) (*Train, error) {
	if algo == nil {
		return nil, errors.New("newTrain: no algorithm given")
	}
	if env == nil {
		return nil, errors.New("newTrain: no environment given")
	}
	if buffer == nil {
		return nil, errors.New("newTrain: no buffer given")
	}
	if log == nil {
		return nil, errors.New("newTrain: no logger given")
	}
	if err := config.validate(); err != nil {
		return nil, errors.Wrap(err, "newTrain: invalid config")
	}

	return &Train{
		algo:    algo,
		env:     env,
		evalEnv: evalEnv,
		buffer:  buffer,
		expl:    expl,
		log:     log,
		config:  config,
	}, nil
}

// DemoBuffer returns the demonstration buffer, which is non-nil only
// after Run has started with behavior cloning enabled
func (t *Train) DemoBuffer() expreplay.Buffer {
	return t.demoBuffer
}

// Run executes the training loop for the configured number of steps.
// Whatever ends the loop, the trailing episode is finalized in the
// buffer and the logger is closed.
func (t *Train) Run() (err error) {
	t.algo.SetActiveLogger(t.log)

	// The trailing episode is finalized and the logger closed on every
	// exit of the run, including setup failures and errors part way
	// through the loop. Clipping an empty buffer is a no-op.
	defer func() {
		t.buffer.ClipEpisode()
		if closeErr := t.log.Close(); closeErr != nil && err == nil {
			err = errors.Wrap(closeErr, "run: could not close logger")
		}
	}()

	if err := setupAlgo(t.algo, t.env); err != nil {
		return errors.Wrap(err, "run")
	}

	t.stacker, err = newStacker(t.env, t.algo.NFrames())
	if err != nil {
		return errors.Wrap(err, "run")
	}
	t.actionSampler = environment.NewUniformActionSampler(t.env.ActionSpec(),
		t.config.Seed)

	if err := t.algo.SaveParams(t.log); err != nil {
		return errors.Wrap(err, "run: could not save params")
	}

	if err := t.loadDemos(); err != nil {
		return errors.Wrap(err, "run")
	}

	t.observation, err = t.env.Reset()
	if err != nil {
		return errors.Wrap(err, "run: could not reset environment")
	}
	t.rolloutReturn = 0.0

	var bar *progressbar.ProgressBar
	if t.config.ShowProgress {
		bar = progressbar.New(50, t.config.NSteps)
	}

	for totalStep := 1; totalStep <= t.config.NSteps; totalStep++ {
		epoch, err := t.step(totalStep)
		if err != nil {
			return err
		}

		if bar != nil {
			bar.Increment()
			bar.Display()
		}

		if epoch > 0 && totalStep%t.config.NStepsPerEpoch == 0 {
			if err := t.endEpoch(epoch, totalStep); err != nil {
				return err
			}
		}
	}
	return nil
}

// loadDemos seeds buffers from the configured demonstration dataset
func (t *Train) loadDemos() error {
	if t.config.DemoPath == "" {
		return nil
	}

	blender, err := demo.NewBlender(t.config.DemoPath)
	if err != nil {
		return err
	}

	if t.config.BCLoss {
		demoBuffer, err := expreplay.New(t.config.DemoBufferCapacity,
			t.config.Seed+1)
		if err != nil {
			return errors.Wrap(err, "loadDemos: could not create demo buffer")
		}
		if err := blender.MergeInto(demoBuffer, t.env.ActionSpec()); err != nil {
			return err
		}
		t.demoBuffer = demoBuffer
		glog.V(1).Infof("Demo buffer created with %d transitions",
			demoBuffer.Len())
	} else {
		if err := blender.MergeInto(t.buffer, t.env.ActionSpec()); err != nil {
			return err
		}
		glog.V(1).Infof("Merged %d demo transitions into the primary buffer",
			blender.NumTransitions())
	}
	return nil
}

// fedObservation returns the observation fed to the policy this step:
// the frame-stacked window for image observations, the raw observation
// otherwise
func (t *Train) fedObservation() mat.Vector {
	if t.stacker == nil {
		return t.observation
	}
	t.stacker.Append(t.observation)
	stacked := t.stacker.Eval()
	data := stacked.Data().([]float64)
	return mat.NewVecDense(len(data), data)
}

// selectAction returns the normalized action to store and the
// env-native action to step with, according to the current
// action-selection state: random while within the random-step phase,
// the explorer when one is configured, and the algorithm's stochastic
// policy otherwise.
func (t *Train) selectAction(fed mat.Vector,
	totalStep int) (*mat.VecDense, *mat.VecDense, error) {
	space := t.env.ActionSpec()

	if totalStep < t.config.RandomSteps {
		unscaled := t.actionSampler.Sample()
		return preprocessing.Scale(space, unscaled), unscaled, nil
	}

	var actions *mat.Dense
	var err error
	if t.expl != nil {
		actions, err = t.expl.Sample(t.algo, rowMatrix(fed), totalStep)
	} else {
		actions, err = t.algo.SampleAction(rowMatrix(fed))
	}
	if err != nil {
		return nil, nil, errors.Wrap(err, "selectAction")
	}

	action := firstRow(actions)
	return action, preprocessing.Unscale(space, action), nil
}

// step runs one iteration of the loop and returns the pseudo-epoch it
// belongs to
func (t *Train) step(totalStep int) (epoch int, err error) {
	defer t.log.MeasureTime("step")()

	fed := t.fedObservation()

	stop := t.log.MeasureTime("inference")
	action, unscaled, err := t.selectAction(fed, totalStep)
	stop()
	if err != nil {
		return 0, errors.Wrap(err, "step")
	}

	stop = t.log.MeasureTime("environment_step")
	next, reward, terminal, info, err := t.env.Step(unscaled)
	stop()
	if err != nil {
		return 0, errors.Wrap(err, "step: environment step failed")
	}
	t.rolloutReturn += reward

	// A time-limit truncation clips the episode without marking the
	// transition terminal.
	clipEpisode := terminal
	if t.config.TimelimitAware && info.Truncated() {
		clipEpisode = true
		terminal = false
	}

	err = t.buffer.Append(t.observation, action, reward, next, terminal,
		clipEpisode)
	if err != nil {
		return 0, errors.Wrap(err, "step: could not store transition")
	}

	if clipEpisode {
		t.observation, err = t.env.Reset()
		if err != nil {
			return 0, errors.Wrap(err, "step: could not reset environment")
		}
		t.log.AddMetric("rollout_return", t.rolloutReturn)
		t.rolloutReturn = 0.0
		if t.stacker != nil {
			t.stacker.Clear()
		}
	} else {
		t.observation = next
	}

	epoch = totalStep / t.config.NStepsPerEpoch

	if totalStep > t.config.UpdateStartStep &&
		t.buffer.Len() > t.algo.BatchSize() &&
		totalStep%t.config.UpdateInterval == 0 {
		if err := t.update(); err != nil {
			return epoch, err
		}
	}

	if t.config.Callback != nil {
		t.config.Callback(t.algo, epoch, totalStep)
	}
	return epoch, nil
}

// update samples a batch (blended with demonstrations when behavior
// cloning is active), performs a single parameter update, and records
// the returned metrics
func (t *Train) update() error {
	nFrames := t.algo.NFrames()
	nSteps := t.algo.NSteps()
	gamma := t.algo.Gamma()

	stop := t.log.MeasureTime("sample_batch")
	var batch, demoBatch *expreplay.MiniBatch
	var err error
	if t.config.BCLoss {
		batch, demoBatch, err = t.sampleBlended(nFrames, nSteps, gamma)
	} else {
		batch, err = t.buffer.Sample(t.algo.BatchSize(), nFrames, nSteps,
			gamma)
	}
	stop()
	if err != nil {
		return errors.Wrap(err, "update: could not sample batch")
	}

	stop = t.log.MeasureTime("algorithm_update")
	metrics, err := t.algo.Update(batch, demoBatch, t.config.UTD)
	stop()
	if err != nil {
		return errors.Wrap(err, "update")
	}

	for name, value := range metrics {
		t.log.AddMetric(name, value)
	}
	return nil
}

// sampleBlended draws the primary and demonstration samples for a
// behavior-cloning update. The primary batch is the concatenation of
// an online sample and the demonstration sample; the demonstration
// sample alone forms the auxiliary batch.
func (t *Train) sampleBlended(nFrames, nSteps int,
	gamma float64) (*expreplay.MiniBatch, *expreplay.MiniBatch, error) {
	online, err := t.buffer.SampleTransitions(t.algo.BatchSize(), nFrames,
		nSteps, gamma)
	if err != nil {
		return nil, nil, err
	}
	demos, err := t.demoBuffer.SampleTransitions(t.config.DemoBatchSize,
		nFrames, nSteps, gamma)
	if err != nil {
		return nil, nil, err
	}

	batch, err := t.buffer.ToMiniBatch(append(online, demos...), nFrames,
		nSteps, gamma)
	if err != nil {
		return nil, nil, err
	}
	demoBatch, err := t.demoBuffer.ToMiniBatch(demos, nFrames, nSteps, gamma)
	if err != nil {
		return nil, nil, err
	}
	return batch, demoBatch, nil
}

// endEpoch runs the epoch-boundary duties: an evaluation rollout if an
// evaluation environment is configured, a model checkpoint on the save
// interval, and the metric commit for the epoch
func (t *Train) endEpoch(epoch, totalStep int) error {
	if t.evalEnv != nil {
		score, err := Evaluate(t.algo, t.evalEnv, t.config.EvalEpsilon,
			t.config.Seed)
		if err != nil {
			return errors.Wrap(err, "endEpoch: evaluation failed")
		}
		t.log.AddMetric("evaluation", score)
	}

	if epoch%t.config.SaveInterval == 0 {
		if err := t.log.SaveModel(totalStep, t.algo); err != nil {
			return errors.Wrap(err, "endEpoch: could not save model")
		}
	}

	return errors.Wrap(t.log.Commit(epoch, totalStep),
		"endEpoch: could not commit metrics")
}
