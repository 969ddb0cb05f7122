// Package monitoring serves a showcase over HTTP so that it can be observed
// and driven from a browser or a script.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"reflect"
	"runtime/pprof"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/sarchlab/showcase/monitoring/web"
	"github.com/sarchlab/showcase/showcase"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Engine is the event loop the monitored showcase runs on. Do must run f on
// the goroutine that owns the showcase.
type Engine interface {
	CurrentTime() time.Duration
	Do(ctx context.Context, f func()) error
}

// TransitionCounter reports how many transitions happened per reason.
type TransitionCounter interface {
	Counts() map[string]uint64
	Moves() uint64
}

// Monitor turns a running showcase into a web server.
type Monitor struct {
	engine      Engine
	counter     TransitionCounter
	portNumber  int
	openBrowser bool
	logger      *log.Logger

	lock     sync.RWMutex
	showcase showcase.Showcase
	labels   []string

	server   *http.Server
	listener net.Listener
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger: log.Default(),
	}
}

// WithPortNumber sets the port number of the monitor. Ports below 1000 are
// replaced by a random port.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 && portNumber != 0 {
		m.logger.Warn("monitor port not allowed, using a random port",
			"port", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithBrowser makes StartServer open the page in the default browser.
func (m *Monitor) WithBrowser(open bool) *Monitor {
	m.openBrowser = open
	return m
}

// WithLogger sets the logger used for server messages.
func (m *Monitor) WithLogger(logger *log.Logger) *Monitor {
	m.logger = logger
	return m
}

// RegisterEngine registers the loop the showcase runs on.
func (m *Monitor) RegisterEngine(e Engine) {
	m.engine = e
}

// RegisterCounter registers the source of /api/transitions.
func (m *Monitor) RegisterCounter(c TransitionCounter) {
	m.counter = c
}

// RegisterShowcase sets the showcase to serve. It replaces the previous one,
// which happens when the configuration is reloaded. Labels name the items
// in order.
func (m *Monitor) RegisterShowcase(s showcase.Showcase, labels []string) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.showcase = s
	m.labels = labels
}

func (m *Monitor) current() (showcase.Showcase, []string) {
	m.lock.RLock()
	defer m.lock.RUnlock()

	return m.showcase, m.labels
}

// Handler returns the router with every route of the monitor.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/state", m.state).Methods(http.MethodGet)
	api.HandleFunc("/items", m.items).Methods(http.MethodGet)
	api.HandleFunc("/detail", m.detail).Methods(http.MethodGet)
	api.HandleFunc("/field/{path}", m.field).Methods(http.MethodGet)
	api.HandleFunc("/now", m.now).Methods(http.MethodGet)
	api.HandleFunc("/transitions", m.transitions).Methods(http.MethodGet)
	api.HandleFunc("/resource", m.listResources).Methods(http.MethodGet)
	api.HandleFunc("/profile", m.collectProfile).Methods(http.MethodGet)

	api.HandleFunc("/select/{index}", m.selectItem).Methods(http.MethodPost)
	api.HandleFunc("/interaction/start", m.act(func(s showcase.Showcase) {
		s.InteractionStart()
	})).Methods(http.MethodPost)
	api.HandleFunc("/interaction/end", m.act(func(s showcase.Showcase) {
		s.InteractionEnd()
	})).Methods(http.MethodPost)
	api.HandleFunc("/tick", m.act(func(s showcase.Showcase) {
		s.Tick()
	})).Methods(http.MethodPost)

	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts serving in the background and returns the URL of the
// page.
func (m *Monitor) StartServer() (string, error) {
	listener, err := net.Listen("tcp", ":"+strconv.Itoa(m.portNumber))
	if err != nil {
		return "", fmt.Errorf("monitoring: %w", err)
	}

	m.listener = listener
	m.server = &http.Server{
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	url := fmt.Sprintf("http://localhost:%d", listener.Addr().(*net.TCPAddr).Port)
	m.logger.Info("monitoring showcase", "url", url)

	go func() {
		err := m.server.Serve(listener)
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			m.logger.Error("monitor server stopped", "err", err)
		}
	}()

	if m.openBrowser {
		if err := browser.OpenURL(url); err != nil {
			m.logger.Warn("cannot open browser", "err", err)
		}
	}

	return url, nil
}

// Shutdown stops the server started by StartServer.
func (m *Monitor) Shutdown(ctx context.Context) error {
	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

// onLoop runs f with the current showcase on the engine loop. It writes the
// error response itself and reports whether f ran.
func (m *Monitor) onLoop(
	w http.ResponseWriter,
	r *http.Request,
	f func(s showcase.Showcase),
) bool {
	s, _ := m.current()
	if s == nil || m.engine == nil {
		http.Error(w, "no showcase registered", http.StatusServiceUnavailable)
		return false
	}

	if err := m.engine.Do(r.Context(), func() { f(s) }); err != nil {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return false
	}

	return true
}

func (m *Monitor) state(w http.ResponseWriter, r *http.Request) {
	var state showcase.State
	if !m.onLoop(w, r, func(s showcase.Showcase) { state = s.State() }) {
		return
	}

	m.writeJSON(w, http.StatusOK, state)
}

func (m *Monitor) items(w http.ResponseWriter, _ *http.Request) {
	_, labels := m.current()
	if labels == nil {
		labels = []string{}
	}

	m.writeJSON(w, http.StatusOK, labels)
}

func (m *Monitor) detail(w http.ResponseWriter, r *http.Request) {
	buf := new(bytes.Buffer)

	var err error
	ok := m.onLoop(w, r, func(s showcase.Showcase) {
		serializer := goseth.NewSerializer()
		serializer.SetRoot(s)
		serializer.SetMaxDepth(1)
		err = serializer.Serialize(buf)
	})
	if !ok {
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(buf.Bytes())
}

func (m *Monitor) field(w http.ResponseWriter, r *http.Request) {
	path := mux.Vars(r)["path"]

	var (
		value any
		err   error
	)

	ok := m.onLoop(w, r, func(s showcase.Showcase) {
		var elem reflect.Value

		elem, err = walkFields(s.State(), path)
		if err == nil {
			value = elem.Interface()
		}
	})
	if !ok {
		return
	}

	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}

	m.writeJSON(w, http.StatusOK, value)
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	if m.engine == nil {
		http.Error(w, "no engine registered", http.StatusServiceUnavailable)
		return
	}

	m.writeJSON(w, http.StatusOK, map[string]float64{
		"now": m.engine.CurrentTime().Seconds(),
	})
}

type transitionsRsp struct {
	Counts map[string]uint64 `json:"counts"`
	Moves  uint64            `json:"moves"`
}

func (m *Monitor) transitions(w http.ResponseWriter, _ *http.Request) {
	if m.counter == nil {
		http.Error(w, "transitions are not counted", http.StatusNotFound)
		return
	}

	m.writeJSON(w, http.StatusOK, transitionsRsp{
		Counts: m.counter.Counts(),
		Moves:  m.counter.Moves(),
	})
}

func (m *Monitor) selectItem(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(mux.Vars(r)["index"])
	if err != nil {
		http.Error(w, "index must be an integer", http.StatusBadRequest)
		return
	}

	var (
		state     showcase.State
		selectErr error
	)

	ok := m.onLoop(w, r, func(s showcase.Showcase) {
		selectErr = s.Select(index)
		state = s.State()
	})
	if !ok {
		return
	}

	switch {
	case errors.Is(selectErr, showcase.ErrOutOfRange):
		http.Error(w, selectErr.Error(), http.StatusBadRequest)
	case errors.Is(selectErr, showcase.ErrDisposed):
		http.Error(w, selectErr.Error(), http.StatusConflict)
	case selectErr != nil:
		http.Error(w, selectErr.Error(), http.StatusInternalServerError)
	default:
		m.writeJSON(w, http.StatusOK, state)
	}
}

func (m *Monitor) act(f func(s showcase.Showcase)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var state showcase.State

		ok := m.onLoop(w, r, func(s showcase.Showcase) {
			f(s)
			state = s.State()
		})
		if !ok {
			return
		}

		m.writeJSON(w, http.StatusOK, state)
	}
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	cpuPercent, err := proc.CPUPercent()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	memoryInfo, err := proc.MemoryInfo()
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memoryInfo.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("seconds"); s != "" {
		secs, err := strconv.ParseFloat(s, 64)
		if err != nil || secs <= 0 {
			http.Error(w, "seconds must be a positive number",
				http.StatusBadRequest)
			return
		}

		duration = time.Duration(secs * float64(time.Second))
	}

	buf := bytes.NewBuffer(nil)
	if err := pprof.StartCPUProfile(buf); err != nil {
		http.Error(w, err.Error(), http.StatusConflict)
		return
	}

	select {
	case <-time.After(duration):
	case <-r.Context().Done():
	}

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	m.writeJSON(w, http.StatusOK, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		m.logger.Error("encoding response", "err", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

type fieldFormatError struct {
	field string
}

func (e fieldFormatError) Error() string {
	return fmt.Sprintf("cannot walk into %q", e.field)
}

// walkFields follows a dot separated path of struct field names and slice
// indexes, starting from v.
func walkFields(v any, fields string) (reflect.Value, error) {
	elem := reflect.ValueOf(v)
	fieldNames := strings.Split(fields, ".")

	for len(fieldNames) > 0 {
		switch elem.Kind() {
		case reflect.Ptr, reflect.Interface:
			if elem.IsNil() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			elem = elem.Elem()
		case reflect.Struct:
			next := elem.FieldByName(fieldNames[0])
			if !next.IsValid() || !next.CanInterface() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			elem = next
			fieldNames = fieldNames[1:]
		case reflect.Slice:
			index, err := strconv.Atoi(fieldNames[0])
			if err != nil || index < 0 || index >= elem.Len() {
				return elem, fieldFormatError{field: fieldNames[0]}
			}

			elem = elem.Index(index)
			fieldNames = fieldNames[1:]
		default:
			return elem, fieldFormatError{field: fieldNames[0]}
		}
	}

	if elem.Kind() == reflect.Ptr {
		elem = elem.Elem()
	}

	return elem, nil
}
