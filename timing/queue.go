package timing

import (
	"container/heap"
	"sync"
)

// futureEvent is a queued event. Events at the same time keep their
// scheduling order.
type futureEvent struct {
	ScheduledEvent

	seq   uint64
	index int
}

type futureEventQueue struct {
	sync.Mutex
	events  futureEventHeap
	nextSeq uint64
}

func newFutureEventQueue() *futureEventQueue {
	q := &futureEventQueue{}
	q.events = make([]*futureEvent, 0)
	heap.Init(&q.events)

	return q
}

func (q *futureEventQueue) Push(evt ScheduledEvent) *futureEvent {
	q.Lock()
	defer q.Unlock()

	fe := &futureEvent{ScheduledEvent: evt, seq: q.nextSeq}
	q.nextSeq++
	heap.Push(&q.events, fe)

	return fe
}

func (q *futureEventQueue) Pop() *futureEvent {
	q.Lock()
	defer q.Unlock()

	if q.events.Len() == 0 {
		return nil
	}

	return heap.Pop(&q.events).(*futureEvent)
}

func (q *futureEventQueue) Peek() *futureEvent {
	q.Lock()
	defer q.Unlock()

	if q.events.Len() == 0 {
		return nil
	}

	return q.events[0]
}

// Remove takes evt out of the queue. It returns false if evt is no longer
// queued.
func (q *futureEventQueue) Remove(evt *futureEvent) bool {
	q.Lock()
	defer q.Unlock()

	if evt.index < 0 || evt.index >= len(q.events) || q.events[evt.index] != evt {
		return false
	}

	heap.Remove(&q.events, evt.index)

	return true
}

func (q *futureEventQueue) Len() int {
	q.Lock()
	defer q.Unlock()

	return q.events.Len()
}

type futureEventHeap []*futureEvent

func (h futureEventHeap) Len() int { return len(h) }

func (h futureEventHeap) Less(i, j int) bool {
	if h[i].Time != h[j].Time {
		return h[i].Time < h[j].Time
	}

	return h[i].seq < h[j].seq
}

func (h futureEventHeap) Swap(i, j int) {
	h[i], h[j] = h[j], h[i]
	h[i].index = i
	h[j].index = j
}

func (h *futureEventHeap) Push(x any) {
	evt := x.(*futureEvent)
	evt.index = len(*h)
	*h = append(*h, evt)
}

func (h *futureEventHeap) Pop() any {
	old := *h
	n := len(old)
	evt := old[n-1]
	old[n-1] = nil
	evt.index = -1
	*h = old[:n-1]

	return evt
}
