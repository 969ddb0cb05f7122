package tracing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"
	"github.com/sarchlab/showcase/hooking"
	"github.com/sarchlab/showcase/idgen"
	"github.com/sarchlab/showcase/showcase"
	"github.com/sarchlab/showcase/timing"
)

func buildController(
	engine *timing.SerialEngine,
	hooks ...hooking.Hook,
) *showcase.Controller[string] {
	b := showcase.MakeBuilder[string]().
		WithItems([]string{"fluent", "mapper", "template"}).
		WithInterval(time.Second).
		WithScheduler(engine).
		WithIDGenerator(idgen.NewSequential())

	for _, h := range hooks {
		b = b.WithHook(h)
	}

	ctrl, err := b.Build()
	Expect(err).ToNot(HaveOccurred())

	return ctrl
}

var _ = Describe("LogTracer", func() {
	var (
		buf    *bytes.Buffer
		logger *log.Logger
		engine *timing.SerialEngine
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		logger = log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
		engine = timing.NewSerialEngine()
	})

	It("should log moves with the item label", func() {
		var ctrl *showcase.Controller[string]
		tracer := NewLogTracer(logger).WithLabel(func(i int) string {
			return ctrl.Item(i)
		})
		ctrl = buildController(engine)
		ctrl.AcceptHook(tracer)

		Expect(engine.Advance(time.Second)).To(Succeed())

		out := buf.String()
		Expect(out).To(ContainSubstring("showcase transition"))
		Expect(out).To(ContainSubstring("reason=tick"))
		Expect(out).To(ContainSubstring("to=1"))
		Expect(out).To(ContainSubstring("item=mapper"))
	})

	It("should log suppressed ticks at debug level only", func() {
		logger.SetLevel(log.InfoLevel)
		ctrl := buildController(engine, NewLogTracer(logger))
		ctrl.InteractionStart()

		Expect(engine.Advance(time.Second)).To(Succeed())

		Expect(buf.String()).To(ContainSubstring("reason=start"))
		Expect(buf.String()).ToNot(ContainSubstring("tick_suppressed"))
	})

	It("should honor the filter", func() {
		ctrl := buildController(engine,
			NewLogTracer(logger).WithFilter(OnlyMoves))
		ctrl.InteractionStart()

		Expect(buf.String()).To(BeEmpty())
	})

	It("should ignore other hook positions", func() {
		tracer := NewLogTracer(logger)

		tracer.Func(hooking.HookCtx{Pos: timing.HookPosBeforeEvent})

		Expect(buf.String()).To(BeEmpty())
	})
})

var _ = Describe("CountTracer", func() {
	It("should count transitions per reason", func() {
		engine := timing.NewSerialEngine()
		tracer := NewCountTracer(nil)
		ctrl := buildController(engine, tracer)

		Expect(engine.Advance(2 * time.Second)).To(Succeed())
		ctrl.InteractionStart()
		Expect(engine.Advance(time.Second)).To(Succeed())
		Expect(ctrl.Select(0)).To(Succeed())
		ctrl.InteractionEnd()
		ctrl.Dispose()

		Expect(tracer.Count(showcase.ReasonStart)).To(Equal(uint64(1)))
		Expect(tracer.Count(showcase.ReasonTick)).To(Equal(uint64(2)))
		Expect(tracer.Count(showcase.ReasonTickSuppressed)).To(Equal(uint64(1)))
		Expect(tracer.Moves()).To(Equal(uint64(3)))
		Expect(tracer.Counts()).To(HaveKeyWithValue("dispose", uint64(1)))
	})
})

type memoryRecorder struct {
	tables  map[string]any
	entries map[string][]any
	flushed int
}

func newMemoryRecorder() *memoryRecorder {
	return &memoryRecorder{
		tables:  make(map[string]any),
		entries: make(map[string][]any),
	}
}

func (r *memoryRecorder) CreateTable(tableName string, sample any) error {
	if _, ok := r.tables[tableName]; ok {
		return errors.New("exists")
	}

	r.tables[tableName] = sample

	return nil
}

func (r *memoryRecorder) InsertData(tableName string, entry any) {
	r.entries[tableName] = append(r.entries[tableName], entry)
}

func (r *memoryRecorder) ListTables() []string {
	names := make([]string, 0, len(r.tables))
	for name := range r.tables {
		names = append(names, name)
	}

	return names
}

func (r *memoryRecorder) Flush() error {
	r.flushed++
	return nil
}

func (r *memoryRecorder) Close() error { return nil }

var _ = Describe("DBTracer", func() {
	It("should store transitions with engine time", func() {
		engine := timing.NewSerialEngine()
		recorder := newMemoryRecorder()

		tracer, err := NewDBTracer(engine, recorder)
		Expect(err).ToNot(HaveOccurred())

		ctrl := buildController(engine, tracer)
		Expect(engine.Advance(time.Second)).To(Succeed())
		Expect(ctrl.Select(2)).To(Succeed())
		Expect(tracer.Flush()).To(Succeed())

		entries := recorder.entries[TransitionTable]
		Expect(entries).To(HaveLen(3))
		Expect(entries[1]).To(Equal(TransitionEntry{
			ControllerID: "1",
			Seq:          2,
			Time:         1,
			Reason:       "tick",
			FromIndex:    0,
			ToIndex:      1,
			TimerPending: true,
		}))
		Expect(entries[2].(TransitionEntry).Paused).To(BeTrue())
		Expect(recorder.flushed).To(Equal(1))
	})

	It("should fail when the table cannot be created", func() {
		recorder := newMemoryRecorder()
		Expect(recorder.CreateTable(TransitionTable, TransitionEntry{})).
			To(Succeed())

		_, err := NewDBTracer(nil, recorder)

		Expect(err).To(HaveOccurred())
	})
})

type fakePublisher struct {
	mu       sync.Mutex
	channels []string
	messages [][]byte
	err      error
}

func (p *fakePublisher) Publish(
	ctx context.Context,
	channel string,
	message any,
) *redis.IntCmd {
	p.mu.Lock()
	defer p.mu.Unlock()

	cmd := redis.NewIntCmd(ctx, "publish", channel, message)
	if p.err != nil {
		cmd.SetErr(p.err)
		return cmd
	}

	p.channels = append(p.channels, channel)
	p.messages = append(p.messages, message.([]byte))
	cmd.SetVal(1)

	return cmd
}

func (p *fakePublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	return len(p.messages)
}

var _ = Describe("RedisPublisher", func() {
	var (
		buf       *bytes.Buffer
		logger    *log.Logger
		publisher *fakePublisher
	)

	BeforeEach(func() {
		buf = new(bytes.Buffer)
		logger = log.NewWithOptions(buf, log.Options{Level: log.DebugLevel})
		publisher = &fakePublisher{}
	})

	It("should publish queued transitions as JSON", func() {
		engine := timing.NewSerialEngine()
		tracer := NewRedisPublisher(publisher, logger).
			WithChannel("home").
			WithClock(engine.CurrentTime)
		buildController(engine, tracer)
		Expect(engine.Advance(time.Second)).To(Succeed())

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tracer.Run(ctx)

		Expect(publisher.count()).To(Equal(2))
		Expect(publisher.channels).To(ConsistOf("home", "home"))

		var msg TransitionMessage
		Expect(json.Unmarshal(publisher.messages[1], &msg)).To(Succeed())
		Expect(msg.Reason).To(Equal("tick"))
		Expect(msg.To).To(Equal(1))
		Expect(msg.Time).To(Equal(1.0))
	})

	It("should log publish failures", func() {
		publisher.err = errors.New("connection refused")
		engine := timing.NewSerialEngine()
		tracer := NewRedisPublisher(publisher, logger)
		buildController(engine, tracer)

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		tracer.Run(ctx)

		Expect(buf.String()).To(ContainSubstring("connection refused"))
	})

	It("should drop messages when the queue is full", func() {
		engine := timing.NewSerialEngine()
		tracer := NewRedisPublisher(publisher, logger)
		ctrl := buildController(engine, tracer)

		for i := 0; i < 300; i++ {
			ctrl.InteractionStart()
		}

		Expect(buf.String()).To(ContainSubstring("publish queue full"))
	})
})
