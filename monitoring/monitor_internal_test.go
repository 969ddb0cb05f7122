package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"reflect"
	"time"

	"github.com/charmbracelet/log"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/showcase/idgen"
	"github.com/sarchlab/showcase/showcase"
	"github.com/sarchlab/showcase/timing"
	"github.com/sarchlab/showcase/tracing"
)

type sampleStruct struct {
	Field1 int
	Field2 string
	Field3 *sampleStruct
	Field4 []sampleStruct
	hidden int
}

type slide struct {
	Title string `json:"title"`
	Body  string `json:"body"`
}

// inlineEngine runs posted work immediately on the calling goroutine.
type inlineEngine struct {
	*timing.SerialEngine
}

func (e inlineEngine) Do(_ context.Context, f func()) error {
	f()
	return nil
}

type stoppedEngine struct {
	*timing.SerialEngine
}

func (e stoppedEngine) Do(context.Context, func()) error {
	return timing.ErrEngineStopped
}

var _ = Describe("Monitor", func() {
	var (
		m       *Monitor
		engine  *timing.SerialEngine
		ctrl    *showcase.Controller[slide]
		counter *tracing.CountTracer
		handler http.Handler
	)

	do := func(method, path string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(method, path, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		return rec
	}

	decodeState := func(rec *httptest.ResponseRecorder) showcase.State {
		var state showcase.State
		Expect(json.Unmarshal(rec.Body.Bytes(), &state)).To(Succeed())

		return state
	}

	BeforeEach(func() {
		engine = timing.NewSerialEngine()
		counter = tracing.NewCountTracer(nil)

		var err error
		ctrl, err = showcase.MakeBuilder[slide]().
			WithItems([]slide{
				{"Fluent", "queries"},
				{"Mapper", "rows"},
				{"Template", "statements"},
			}).
			WithInterval(5 * time.Second).
			WithScheduler(engine).
			WithIDGenerator(idgen.NewSequential()).
			WithHook(counter).
			Build()
		Expect(err).ToNot(HaveOccurred())

		m = NewMonitor().WithLogger(log.New(io.Discard))
		m.RegisterEngine(inlineEngine{engine})
		m.RegisterCounter(counter)
		m.RegisterShowcase(ctrl, []string{"Fluent", "Mapper", "Template"})
		handler = m.Handler()
	})

	It("should report the state", func() {
		Expect(engine.Advance(5 * time.Second)).To(Succeed())

		rec := do(http.MethodGet, "/api/state")

		Expect(rec.Code).To(Equal(http.StatusOK))
		state := decodeState(rec)
		Expect(state.ActiveIndex).To(Equal(1))
		Expect(state.Len).To(Equal(3))
		Expect(state.TimerPending).To(BeTrue())
		Expect(state.Active).To(HaveKeyWithValue("title", "Mapper"))
	})

	It("should list item labels", func() {
		rec := do(http.MethodGet, "/api/items")

		Expect(rec.Body.String()).To(MatchJSON(`["Fluent","Mapper","Template"]`))
	})

	It("should select an item", func() {
		rec := do(http.MethodPost, "/api/select/2")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(decodeState(rec).ActiveIndex).To(Equal(2))
		Expect(ctrl.Paused()).To(BeTrue())
	})

	It("should reject out of range selections", func() {
		rec := do(http.MethodPost, "/api/select/3")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
		Expect(ctrl.ActiveIndex()).To(Equal(0))
	})

	It("should reject malformed indexes", func() {
		rec := do(http.MethodPost, "/api/select/first")

		Expect(rec.Code).To(Equal(http.StatusBadRequest))
	})

	It("should report conflicts after dispose", func() {
		ctrl.Dispose()

		rec := do(http.MethodPost, "/api/select/1")

		Expect(rec.Code).To(Equal(http.StatusConflict))
	})

	It("should pause and resume through interactions", func() {
		rec := do(http.MethodPost, "/api/interaction/start")
		Expect(decodeState(rec).Paused).To(BeTrue())

		Expect(engine.Advance(10 * time.Second)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(0))

		rec = do(http.MethodPost, "/api/interaction/end")
		Expect(decodeState(rec).Paused).To(BeFalse())

		Expect(engine.Advance(5 * time.Second)).To(Succeed())
		Expect(ctrl.ActiveIndex()).To(Equal(1))
	})

	It("should tick on demand", func() {
		rec := do(http.MethodPost, "/api/tick")

		Expect(decodeState(rec).ActiveIndex).To(Equal(1))
		Expect(engine.Pending()).To(Equal(1))
	})

	It("should report transition counts", func() {
		do(http.MethodPost, "/api/tick")

		rec := do(http.MethodGet, "/api/transitions")

		var rsp transitionsRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Moves).To(Equal(uint64(1)))
		Expect(rsp.Counts).To(HaveKeyWithValue("start", uint64(1)))
		Expect(rsp.Counts).To(HaveKeyWithValue("tick", uint64(1)))
	})

	It("should report the engine time", func() {
		Expect(engine.Advance(1500 * time.Millisecond)).To(Succeed())

		rec := do(http.MethodGet, "/api/now")

		Expect(rec.Body.String()).To(MatchJSON(`{"now":1.5}`))
	})

	It("should serialize the controller in detail", func() {
		rec := do(http.MethodGet, "/api/detail")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.Len()).To(BeNumerically(">", 0))
	})

	It("should read a single field", func() {
		rec := do(http.MethodGet, "/api/field/Active.Title")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(Equal(`"Fluent"`))
	})

	It("should report missing fields", func() {
		rec := do(http.MethodGet, "/api/field/Nope")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should report process resources", func() {
		rec := do(http.MethodGet, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("memory_size"))
	})

	It("should serve the page", func() {
		rec := do(http.MethodGet, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should follow a replaced showcase", func() {
		next, err := showcase.MakeBuilder[int]().
			WithItems([]int{7}).
			WithScheduler(engine).
			Build()
		Expect(err).ToNot(HaveOccurred())

		m.RegisterShowcase(next, []string{"seven"})

		Expect(decodeState(do(http.MethodGet, "/api/state")).Len).To(Equal(1))
	})

	It("should fail when the engine is stopped", func() {
		m.RegisterEngine(stoppedEngine{engine})

		rec := do(http.MethodPost, "/api/tick")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
		Expect(ctrl.ActiveIndex()).To(Equal(0))
	})

	It("should fail without a showcase", func() {
		m = NewMonitor().WithLogger(log.New(io.Discard))
		m.RegisterEngine(inlineEngine{engine})
		handler = m.Handler()

		rec := do(http.MethodGet, "/api/state")

		Expect(rec.Code).To(Equal(http.StatusServiceUnavailable))
	})

	It("should replace low port numbers", func() {
		buf := new(bytes.Buffer)
		m = NewMonitor().WithLogger(log.New(buf)).WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
		Expect(buf.String()).To(ContainSubstring("port"))
	})

	It("should serve on a real listener", func() {
		m.portNumber = 0
		url, err := m.StartServer()
		Expect(err).ToNot(HaveOccurred())
		defer func() { Expect(m.Shutdown(context.Background())).To(Succeed()) }()

		rsp, err := http.Get(url + "/api/items")
		Expect(err).ToNot(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("walkFields", func() {
	It("should walk int fields", func() {
		s := &sampleStruct{Field1: 1}

		elem, err := walkFields(s, "Field1")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Int))
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should walk string fields", func() {
		s := &sampleStruct{Field2: "abc"}

		elem, err := walkFields(s, "Field2")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.String))
		Expect(elem.String()).To(Equal("abc"))
	})

	It("should walk struct", func() {
		s := &sampleStruct{Field3: &sampleStruct{}}

		elem, err := walkFields(s, "Field3")

		Expect(err).To(BeNil())
		Expect(elem.Kind()).To(Equal(reflect.Struct))
		Expect(elem.Type().Name()).To(Equal("sampleStruct"))
	})

	It("should walk slice recursively", func() {
		s := &sampleStruct{
			Field4: []sampleStruct{{
				Field4: []sampleStruct{{Field1: 1}},
			}, {}},
		}

		elem, err := walkFields(s, "Field4.0.Field4.0.Field1")

		Expect(err).To(BeNil())
		Expect(elem.Int()).To(Equal(int64(1)))
	})

	It("should refuse unexported fields", func() {
		_, err := walkFields(&sampleStruct{hidden: 1}, "hidden")

		Expect(err).To(HaveOccurred())
	})

	It("should refuse bad slice indexes", func() {
		s := &sampleStruct{Field4: []sampleStruct{{}}}

		_, err := walkFields(s, "Field4.5")

		Expect(err).To(HaveOccurred())
	})

	It("should refuse nil pointers", func() {
		_, err := walkFields(&sampleStruct{}, "Field3.Field1")

		Expect(err).To(HaveOccurred())
	})
})
