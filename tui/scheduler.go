// Package tui renders a showcase in the terminal with bubbletea. Hovering
// the tab strip or the content pane pauses the rotation; clicking a tab
// selects it.
package tui

import (
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/sarchlab/showcase/timing"
)

// TimerMsg tells the model that a timer created by Scheduler has elapsed.
type TimerMsg struct {
	id uint64
}

// Scheduler delivers timers as bubbletea messages, so that timer callbacks
// run inside Update like every other event.
type Scheduler struct {
	mu      sync.Mutex
	send    func(tea.Msg)
	backlog []tea.Msg
	nextID  uint64
	timers  map[uint64]*timer
}

// NewScheduler creates a Scheduler. Messages are held until Attach is
// called; the held ones are handed over by Held once the program runs.
func NewScheduler() *Scheduler {
	return &Scheduler{
		timers: make(map[uint64]*timer),
	}
}

// Attach sets where later messages go, usually (*tea.Program).Send. It
// never sends by itself, since Send blocks until the program runs.
func (s *Scheduler) Attach(send func(tea.Msg)) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.send = send
}

// Held returns a command delivering the messages of timers that elapsed
// before Attach, or nil if there are none. Model.Init returns it.
func (s *Scheduler) Held() tea.Cmd {
	s.mu.Lock()
	backlog := s.backlog
	s.backlog = nil
	s.mu.Unlock()

	cmds := make([]tea.Cmd, 0, len(backlog))
	for _, msg := range backlog {
		cmds = append(cmds, func() tea.Msg { return msg })
	}

	return tea.Batch(cmds...)
}

// AfterFunc arranges for f to run in Update once d has elapsed.
func (s *Scheduler) AfterFunc(d time.Duration, f func()) timing.Timer {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	t := &timer{scheduler: s, id: s.nextID, f: f}
	s.timers[t.id] = t
	t.timer = time.AfterFunc(d, func() { s.deliver(TimerMsg{id: t.id}) })

	return t
}

// Pending returns the number of timers that have neither fired nor been
// stopped.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.timers)
}

// Fire runs the callback of the timer named by msg. Timers stopped after
// their message was sent are ignored.
func (s *Scheduler) Fire(msg TimerMsg) {
	s.mu.Lock()
	t, ok := s.timers[msg.id]
	delete(s.timers, msg.id)
	s.mu.Unlock()

	if ok {
		t.f()
	}
}

func (s *Scheduler) deliver(msg tea.Msg) {
	s.mu.Lock()
	send := s.send
	if send == nil {
		s.backlog = append(s.backlog, msg)
	}
	s.mu.Unlock()

	if send != nil {
		send(msg)
	}
}

type timer struct {
	scheduler *Scheduler
	id        uint64
	timer     *time.Timer
	f         func()
}

func (t *timer) Stop() bool {
	s := t.scheduler

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.timers[t.id]; !ok {
		return false
	}

	delete(s.timers, t.id)
	t.timer.Stop()

	return true
}

var _ timing.Scheduler = (*Scheduler)(nil)
