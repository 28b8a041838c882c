package sim

// EventKind names an event type.
type EventKind string

const (
	KindAdvertiseTask            EventKind = "AdvertiseTask"
	KindReAdvertiseTask          EventKind = "ReAdvertiseTask"
	KindProviderBecomesAvailable EventKind = "ProviderBecomesAvailable"
	KindSubtaskAssigned          EventKind = "SubtaskAssigned"
	KindSubtaskComputed          EventKind = "SubtaskComputed"
	KindBudgetVerification       EventKind = "BudgetVerification"
	KindTaskCompleted            EventKind = "TaskCompleted"
)

// Event defines the interface for all simulation events.
// Each event has a Timestamp (simulated seconds), the id of the agent it
// targets, and an Execute method that advances simulation state.
type Event interface {
	Timestamp() float64
	Kind() EventKind
	Target() int
	Execute(*Simulator)
}

// AdvertiseTaskEvent publishes a requestor's current task to the market.
type AdvertiseTaskEvent struct {
	time      float64
	Requestor RequestorID
}

func (e *AdvertiseTaskEvent) Timestamp() float64 { return e.time }
func (e *AdvertiseTaskEvent) Kind() EventKind    { return KindAdvertiseTask }
func (e *AdvertiseTaskEvent) Target() int        { return int(e.Requestor) }

// Execute puts the task's subtasks into the market and runs a matching pass.
func (e *AdvertiseTaskEvent) Execute(sim *Simulator) {
	sim.advertise(sim.requestors[e.Requestor])
}

// ReAdvertiseTaskEvent retries matching for a requestor's leftover subtasks.
type ReAdvertiseTaskEvent struct {
	time      float64
	Requestor RequestorID
}

func (e *ReAdvertiseTaskEvent) Timestamp() float64 { return e.time }
func (e *ReAdvertiseTaskEvent) Kind() EventKind    { return KindReAdvertiseTask }
func (e *ReAdvertiseTaskEvent) Target() int        { return int(e.Requestor) }

func (e *ReAdvertiseTaskEvent) Execute(sim *Simulator) {
	sim.readvertise(sim.requestors[e.Requestor])
}

// ProviderBecomesAvailableEvent returns an idle provider to the market.
type ProviderBecomesAvailableEvent struct {
	time     float64
	Provider ProviderID
}

func (e *ProviderBecomesAvailableEvent) Timestamp() float64 { return e.time }
func (e *ProviderBecomesAvailableEvent) Kind() EventKind    { return KindProviderBecomesAvailable }
func (e *ProviderBecomesAvailableEvent) Target() int        { return int(e.Provider) }

func (e *ProviderBecomesAvailableEvent) Execute(sim *Simulator) {
	sim.providerAvailable(sim.providers[e.Provider])
}

// SubtaskAssignedEvent starts computation of an assigned subtask.
type SubtaskAssignedEvent struct {
	time    float64
	Subtask *Subtask
}

func (e *SubtaskAssignedEvent) Timestamp() float64 { return e.time }
func (e *SubtaskAssignedEvent) Kind() EventKind    { return KindSubtaskAssigned }
func (e *SubtaskAssignedEvent) Target() int        { return int(e.Subtask.Provider) }

func (e *SubtaskAssignedEvent) Execute(sim *Simulator) {
	sim.startComputing(e.Subtask)
}

// SubtaskComputedEvent fires when the provider finishes; the provider's
// behaviour produces the reported usage.
type SubtaskComputedEvent struct {
	time    float64
	Subtask *Subtask
}

func (e *SubtaskComputedEvent) Timestamp() float64 { return e.time }
func (e *SubtaskComputedEvent) Kind() EventKind    { return KindSubtaskComputed }
func (e *SubtaskComputedEvent) Target() int        { return int(e.Subtask.Provider) }

func (e *SubtaskComputedEvent) Execute(sim *Simulator) {
	sim.subtaskComputed(e.Subtask)
}

// BudgetVerificationEvent settles or cancels a computed subtask.
type BudgetVerificationEvent struct {
	time    float64
	Subtask *Subtask
}

func (e *BudgetVerificationEvent) Timestamp() float64 { return e.time }
func (e *BudgetVerificationEvent) Kind() EventKind    { return KindBudgetVerification }
func (e *BudgetVerificationEvent) Target() int        { return int(e.Subtask.Task.Requestor) }

func (e *BudgetVerificationEvent) Execute(sim *Simulator) {
	sim.verify(e.Subtask)
}

// TaskCompletedEvent fires once every subtask of a task is terminal.
type TaskCompletedEvent struct {
	time float64
	Task *Task
}

func (e *TaskCompletedEvent) Timestamp() float64 { return e.time }
func (e *TaskCompletedEvent) Kind() EventKind    { return KindTaskCompleted }
func (e *TaskCompletedEvent) Target() int        { return int(e.Task.Requestor) }

func (e *TaskCompletedEvent) Execute(sim *Simulator) {
	sim.completeTask(e.Task)
}
