package sim

import "container/heap"

// queuedEvent pairs an event with its insertion sequence number.
type queuedEvent struct {
	event Event
	seq   uint64
}

// EventQueue is a min-heap of pending events with deterministic ordering.
// Ordering: timestamp → insertion sequence (FIFO among equal timestamps).
type EventQueue struct {
	events  []queuedEvent
	nextSeq uint64
}

// NewEventQueue creates an empty event queue.
func NewEventQueue() *EventQueue {
	q := &EventQueue{events: make([]queuedEvent, 0)}
	heap.Init(q)
	return q
}

// Len implements heap.Interface
func (q *EventQueue) Len() int {
	return len(q.events)
}

// Less implements heap.Interface
func (q *EventQueue) Less(i, j int) bool {
	ei, ej := q.events[i], q.events[j]
	if ei.event.Timestamp() != ej.event.Timestamp() {
		return ei.event.Timestamp() < ej.event.Timestamp()
	}
	return ei.seq < ej.seq
}

// Swap implements heap.Interface
func (q *EventQueue) Swap(i, j int) {
	q.events[i], q.events[j] = q.events[j], q.events[i]
}

// Push implements heap.Interface. Use Schedule instead.
func (q *EventQueue) Push(x interface{}) {
	q.events = append(q.events, x.(queuedEvent))
}

// Pop implements heap.Interface. Use PopNext instead.
func (q *EventQueue) Pop() interface{} {
	old := q.events
	n := len(old)
	item := old[n-1]
	q.events = old[0 : n-1]
	return item
}

// Schedule adds an event, stamping it with the next sequence number.
func (q *EventQueue) Schedule(e Event) {
	heap.Push(q, queuedEvent{event: e, seq: q.nextSeq})
	q.nextSeq++
}

// PopNext removes and returns the earliest event, or nil if the queue is empty.
func (q *EventQueue) PopNext() Event {
	if q.Len() == 0 {
		return nil
	}
	return heap.Pop(q).(queuedEvent).event
}

// peek returns the earliest event without removing it
func (q *EventQueue) peek() Event {
	if q.Len() == 0 {
		return nil
	}
	return q.events[0].event
}
