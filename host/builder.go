package host

import (
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/sarchlab/showcase/config"
	"github.com/sarchlab/showcase/datarecording"
	"github.com/sarchlab/showcase/idgen"
	"github.com/sarchlab/showcase/monitoring"
	"github.com/sarchlab/showcase/timing"
	"github.com/sarchlab/showcase/tracing"
)

// Builder can be used to build a host.
type Builder struct {
	cfg            *config.Config
	configPath     string
	logger         *log.Logger
	monitorOn      bool
	monitorPort    int
	openBrowser    bool
	outputFileName string
	redisAddr      string
	redisChannel   string
	publisher      tracing.Publisher
	idGenerator    idgen.Generator
}

// MakeBuilder creates a new builder with monitoring turned off.
func MakeBuilder() Builder {
	return Builder{
		logger: log.Default(),
	}
}

// WithConfig sets the items and interval of the showcase. The monitor,
// record and redis sections of cfg are applied as well.
func (b Builder) WithConfig(cfg *config.Config) Builder {
	b.cfg = cfg
	b.monitorOn = cfg.Monitor.Enabled || cfg.Monitor.Port != 0
	b.monitorPort = cfg.Monitor.Port
	b.openBrowser = cfg.Monitor.OpenBrowser
	b.outputFileName = cfg.Record.Path
	b.redisAddr = cfg.Redis.Addr
	b.redisChannel = cfg.Redis.Channel

	return b
}

// WithConfigPath makes Run reload the showcase whenever the file changes.
func (b Builder) WithConfigPath(path string) Builder {
	b.configPath = path
	return b
}

// WithLogger sets the logger of the host and its log tracer.
func (b Builder) WithLogger(logger *log.Logger) Builder {
	b.logger = logger
	return b
}

// WithMonitor turns the HTTP monitor on.
func (b Builder) WithMonitor() Builder {
	b.monitorOn = true
	return b
}

// WithoutMonitoring turns the HTTP monitor off.
func (b Builder) WithoutMonitoring() Builder {
	b.monitorOn = false
	b.monitorPort = 0

	return b
}

// WithMonitorPort sets the port number for the monitoring server.
func (b Builder) WithMonitorPort(port int) Builder {
	b.monitorPort = port
	return b
}

// WithOutputFileName records transitions into the given SQLite file.
func (b Builder) WithOutputFileName(filename string) Builder {
	b.outputFileName = filename
	return b
}

// WithRedis publishes transitions on a Redis channel.
func (b Builder) WithRedis(addr, channel string) Builder {
	b.redisAddr = addr
	b.redisChannel = channel

	return b
}

// WithPublisher publishes transitions through p instead of a client dialed
// from the Redis address.
func (b Builder) WithPublisher(p tracing.Publisher) Builder {
	b.publisher = p
	return b
}

// WithIDGenerator sets where showcase IDs come from.
func (b Builder) WithIDGenerator(g idgen.Generator) Builder {
	b.idGenerator = g
	return b
}

func (b Builder) parametersMustBeValid() error {
	if b.cfg == nil {
		return fmt.Errorf("host: no configuration given")
	}

	if !b.monitorOn && b.monitorPort != 0 {
		return fmt.Errorf("host: monitor port cannot be set when monitoring is disabled")
	}

	return b.cfg.Validate()
}

// Build builds the host and its first showcase. Nothing runs until Run is
// called.
func (b Builder) Build() (*Host, error) {
	if err := b.parametersMustBeValid(); err != nil {
		return nil, err
	}

	h := &Host{
		engine:      timing.NewRealTimeEngine().WithLogger(b.logger),
		logger:      b.logger,
		counter:     tracing.NewCountTracer(nil),
		configPath:  b.configPath,
		idGenerator: b.idGenerator,
	}

	if h.idGenerator == nil {
		h.idGenerator = idgen.NewXID()
	}
	h.id = h.idGenerator.Generate()

	if err := b.buildRecorder(h); err != nil {
		return nil, err
	}

	b.buildPublisher(h)

	if b.monitorOn {
		h.monitor = monitoring.NewMonitor().
			WithLogger(b.logger).
			WithPortNumber(b.monitorPort).
			WithBrowser(b.openBrowser)
		h.monitor.RegisterEngine(h.engine)
		h.monitor.RegisterCounter(h.counter)
	}

	if err := h.install(b.cfg); err != nil {
		h.closeBackends()
		return nil, err
	}

	return h, nil
}

func (b Builder) buildRecorder(h *Host) error {
	if b.outputFileName == "" {
		return nil
	}

	recorder, err := datarecording.New(b.outputFileName,
		datarecording.WithLogger(b.logger))
	if err != nil {
		return err
	}

	dbTracer, err := tracing.NewDBTracer(h.engine, recorder)
	if err != nil {
		_ = recorder.Close()
		return err
	}

	h.dataRecorder = recorder
	h.dbTracer = dbTracer

	return nil
}

func (b Builder) buildPublisher(h *Host) {
	client := b.publisher
	if client == nil && b.redisAddr != "" {
		redisClient := tracing.NewRedisClient(b.redisAddr)
		h.redisClient = redisClient
		client = redisClient
	}

	if client == nil {
		return
	}

	h.publisher = tracing.NewRedisPublisher(client, b.logger).
		WithClock(h.engine.CurrentTime)
	if b.redisChannel != "" {
		h.publisher.WithChannel(b.redisChannel)
	}
}
