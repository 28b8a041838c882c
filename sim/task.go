package sim

import (
	"fmt"

	"github.com/market-sim/market-sim/sim/workload"
)

// TaskState is the lifecycle state of a Task.
type TaskState string

const (
	TaskPending           TaskState = "pending"
	TaskAdvertised        TaskState = "advertised"
	TaskPartiallyAssigned TaskState = "partially_assigned"
	TaskCompleted         TaskState = "completed"
)

// SubtaskState is the lifecycle state of a Subtask.
type SubtaskState string

const (
	SubtaskUnassigned SubtaskState = "unassigned"
	SubtaskAssigned   SubtaskState = "assigned"
	SubtaskComputing  SubtaskState = "computing"
	SubtaskCompleted  SubtaskState = "completed"
	SubtaskCancelled  SubtaskState = "cancelled"
)

// Task is one unit of work of a requestor, split into subtasks.
type Task struct {
	Requestor RequestorID
	Seq       int // position in the requestor's task stream, starting at 0
	Spec      TaskSpec
	Subtasks  []*Subtask
	State     TaskState
}

// Subtask is an indivisible unit of work. NominalUsage and Budget are fixed
// at creation.
type Subtask struct {
	Task         *Task
	Index        int
	NominalUsage float64
	Budget       float64
	State        SubtaskState

	// Valid from assignment on.
	Provider    ProviderID
	AssignedAt  float64
	AgreedPrice float64

	// Valid once computed.
	ReportedUsage float64
}

// newTask instantiates spec, sampling one nominal usage per subtask.
// Budget per subtask is budgetFactor·maxPrice·nominalUsage.
func newTask(r RequestorID, seq int, spec TaskSpec, maxPrice, budgetFactor float64, s *workload.Sampler) (*Task, error) {
	t := &Task{
		Requestor: r,
		Seq:       seq,
		Spec:      spec,
		Subtasks:  make([]*Subtask, spec.SubtaskCount),
		State:     TaskPending,
	}
	for i := range t.Subtasks {
		usage := spec.NominalUsage.Sample(s)
		if !(usage > 0) {
			return nil, fmt.Errorf("sampled nominal_usage %f from %s must be positive", usage, spec.NominalUsage)
		}
		t.Subtasks[i] = &Subtask{
			Task:         t,
			Index:        i,
			NominalUsage: usage,
			Budget:       budgetFactor * maxPrice * usage,
			State:        SubtaskUnassigned,
		}
	}
	return t, nil
}

// isDone reports whether every subtask reached a terminal state.
func (t *Task) isDone() bool {
	for _, st := range t.Subtasks {
		if !st.isTerminal() {
			return false
		}
	}
	return true
}

// outstanding counts subtasks that are neither completed nor cancelled.
func (t *Task) outstanding() int {
	n := 0
	for _, st := range t.Subtasks {
		if !st.isTerminal() {
			n++
		}
	}
	return n
}

func (t *Task) String() string {
	return fmt.Sprintf("R%d/T%d", t.Requestor, t.Seq)
}

func (st *Subtask) isTerminal() bool {
	return st.State == SubtaskCompleted || st.State == SubtaskCancelled
}

func (st *Subtask) String() string {
	return fmt.Sprintf("%s/S%d", st.Task, st.Index)
}
