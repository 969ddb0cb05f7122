package simulation

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/rs/xid"
	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/datarecording"
	"github.com/sarchlab/showcase/idgen"
	"github.com/sarchlab/showcase/showcase"
	"github.com/sarchlab/showcase/timing"
	"github.com/sarchlab/showcase/tracing"
)

// Builder can be used to build a simulation.
type Builder struct {
	cfg            *config.Config
	script         Script
	logger         *log.Logger
	recordOn       bool
	outputFileName string
}

// MakeBuilder creates a new builder. Recording is off by default.
func MakeBuilder() Builder {
	return Builder{}
}

// WithConfig sets the showcase to simulate.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	return b
}

// WithScript sets the renderer actions to replay.
func (b Builder) WithScript(script Script) Builder {
	b.script = script
	return b
}

// WithLogger logs every transition through logger.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithRecording stores the transitions in a SQLite file. Without an output
// file name, a unique one is picked.
func (b Builder) WithRecording() Builder {
	b.recordOn = true
	return b
}

// WithOutputFileName sets the custom output file name for the data recorder.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.recordOn = true
	b.outputFileName = filename

	return b
}

func (b Builder) parametersMustBeValid() error {
	if b.cfg == nil {
		return fmt.Errorf("simulation: no configuration given")
	}

	return b.cfg.Validate()
}

// Build builds the simulation. The showcase starts at virtual time zero.
func (b Builder) Build() (*Simulation, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	s := &Simulation{
		id:      xid.New().String(),
		engine:  timing.NewSerialEngine(),
		counter: tracing.NewCountTracer(nil),
		script:  b.script,
	}
	s.timeline.clock = s.engine

	// Queued before the first tick so that steps win ties with ticks.
	s.scheduleScript()

	sb := showcase.MakeBuilder[config.Item]().
		WithItems(b.cfg.Items).
		WithInterval(b.cfg.Interval()).
		WithScheduler(s.engine).
		WithIDGenerator(idgen.NewSequential()).
		WithHook(s.counter).
		WithHook(&s.timeline)

	if b.cfg.CountedInteractions {
		sb = sb.WithCountedInteractions()
	}

	if b.logger != nil {
		items := b.cfg.Items
		sb = sb.WithHook(tracing.NewLogTracer(b.logger).
			WithLabel(func(i int) string { return items[i].Title }))
	}

	if b.recordOn {
		outputPath := b.outputFileName
		if outputPath == "" {
			outputPath = "showcase_sim_" + s.id
		}

		var opts []datarecording.Option
		if b.logger != nil {
			opts = append(opts, datarecording.WithLogger(b.logger))
		}

		recorder, err := datarecording.New(outputPath, opts...)
		if err != nil {
			return nil, err
		}

		dbTracer, err := tracing.NewDBTracer(s.engine, recorder)
		if err != nil {
			_ = recorder.Close()
			return nil, err
		}

		s.dataRecorder = recorder
		s.outputFile = outputPath + ".sqlite3"
		sb = sb.WithHook(dbTracer)
	}

	ctrl, err := sb.Build()
	if err != nil {
		_ = s.Terminate()
		return nil, err
	}

	s.ctrl = ctrl

	return s, nil
}

// DefaultDuration is how long a simulation runs when no duration is given.
const DefaultDuration = 30 * time.Second
