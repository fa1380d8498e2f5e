package herd

import (
	"container/heap"
	"time"
)

// EventKind discriminates the events a simulation run schedules and
// consumes. The sequence number on Event breaks ties between same-day
// events so ordering is deterministic given an initial population and an
// RNG stream.
type EventKind string

const (
	EventSuccessInsem EventKind = "SUCCESS_INSEM"
	EventDryoff       EventKind = "DRYOFF"
	EventCalving      EventKind = "CALVING"
	EventCull         EventKind = "CULL"
	EventPurchaseIn   EventKind = "PURCHASE_IN"
	EventHeiferIntro  EventKind = "HEIFER_INTRO"
)

// Event is a scheduled occurrence on the simulated clock.
type Event struct {
	Date     time.Time
	Sequence int64
	Kind     EventKind
	AnimalID int
	HasAnimalID bool
	Payload  interface{}
}

// EventQueue is a min-heap of Events ordered by (Date, Sequence).
type EventQueue struct {
	items []Event
	next  int64
}

// NewEventQueue returns an empty queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{}
	heap.Init(q)
	return q
}

// Schedule enqueues an event, assigning the next monotonic sequence number.
func (q *EventQueue) Schedule(date time.Time, kind EventKind, animalID int, hasAnimalID bool, payload interface{}) {
	e := Event{
		Date:        date,
		Sequence:    q.next,
		Kind:        kind,
		AnimalID:    animalID,
		HasAnimalID: hasAnimalID,
		Payload:     payload,
	}
	q.next++
	heap.Push(q, e)
}

// PopBefore removes and returns every event with Date <= day, in
// (Date, Sequence) order.
func (q *EventQueue) PopBefore(day time.Time) []Event {
	var out []Event
	for q.Len() > 0 && !q.items[0].Date.After(day) {
		out = append(out, heap.Pop(q).(Event))
	}
	return out
}

// Len implements heap.Interface.
func (q *EventQueue) Len() int { return len(q.items) }

// Less implements heap.Interface: earlier date first, then lower sequence.
func (q *EventQueue) Less(i, j int) bool {
	if q.items[i].Date.Equal(q.items[j].Date) {
		return q.items[i].Sequence < q.items[j].Sequence
	}
	return q.items[i].Date.Before(q.items[j].Date)
}

// Swap implements heap.Interface.
func (q *EventQueue) Swap(i, j int) { q.items[i], q.items[j] = q.items[j], q.items[i] }

// Push implements heap.Interface's low-level slice append; use the exported
// Schedule method above for normal enqueueing.
func (q *EventQueue) Push(x any) { q.items = append(q.items, x.(Event)) }

// Pop implements heap.Interface.
func (q *EventQueue) Pop() any {
	old := q.items
	n := len(old)
	item := old[n-1]
	q.items = old[:n-1]
	return item
}
