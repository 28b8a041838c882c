package sim

import (
	"fmt"

	"github.com/market-sim/market-sim/sim/workload"
)

// RequestorID identifies a requestor within one repetition, in construction order.
type RequestorID int

// Requestor is a runtime requestor agent. At most one task is in flight at a time.
type Requestor struct {
	ID      RequestorID
	Spec    RequestorSpec
	Defence DefenceMechanism

	queue   []*Task
	Current *Task // the task being advertised or computed; nil when idle

	unassigned         []*Subtask // subtasks of Current waiting for a provider
	readvertisePending bool
	nextSeq            int
	settledForMeanCost int

	TasksAdvertised    int
	TasksComputed      int
	Readvertisements   int
	SubtasksAdvertised int
	SubtasksComputed   int
	SubtasksCancelled  int
	MeanCost           float64 // running mean of settled cost / budget
}

func newRequestor(id RequestorID, spec RequestorSpec, defence DefenceMechanism) *Requestor {
	return &Requestor{ID: id, Spec: spec, Defence: defence}
}

// enqueue instantiates spec as the next task in the queue.
func (r *Requestor) enqueue(spec TaskSpec, s *workload.Sampler) error {
	t, err := newTask(r.ID, r.nextSeq, spec, r.Spec.MaxPrice, r.Spec.BudgetFactor, s)
	if err != nil {
		return fmt.Errorf("requestor %d task %d: %w", r.ID, r.nextSeq, err)
	}
	r.nextSeq++
	r.queue = append(r.queue, t)
	return nil
}

// popTask makes the head of the queue current. Returns nil when the queue is empty.
func (r *Requestor) popTask() *Task {
	if r.Current != nil && !r.Current.isDone() {
		panic(fmt.Sprintf("requestor %d: cannot start a new task while %s is in flight", r.ID, r.Current))
	}
	if len(r.queue) == 0 {
		r.Current = nil
		return nil
	}
	t := r.queue[0]
	r.queue = r.queue[1:]
	r.Current = t
	return t
}

// recordCost folds one settled subtask's cost into MeanCost.
func (r *Requestor) recordCost(cost, budget float64) {
	if budget <= 0 {
		return
	}
	r.settledForMeanCost++
	r.MeanCost += (cost/budget - r.MeanCost) / float64(r.settledForMeanCost)
}

// outstanding counts advertised subtasks that are not yet terminal.
func (r *Requestor) outstanding() int {
	if r.Current == nil || r.Current.State == TaskPending {
		return 0
	}
	return r.Current.outstanding()
}
