package sim

// ProviderStats is the final per-provider record of one repetition.
type ProviderStats struct {
	ID                int
	Behaviour         string
	MinPrice          float64
	UsageFactor       float64
	Price             float64 // agreed price, which is always MinPrice
	Revenue           float64
	SubtasksAssigned  int
	SubtasksComputed  int
	SubtasksCancelled int
}

// RequestorStats is the final per-requestor record of one repetition.
type RequestorStats struct {
	ID                  int
	MaxPrice            float64
	BudgetFactor        float64
	TasksAdvertised     int
	TasksComputed       int
	Readvertisements    int
	SubtasksAdvertised  int
	SubtasksComputed    int
	SubtasksCancelled   int
	SubtasksOutstanding int
	MeanCost            float64
}

// Snapshot is the finalized statistics of one repetition.
// Profit margin and effective price are derived by sim/report, not here.
type Snapshot struct {
	Seed            int64
	EndTime         float64 // clock of the last processed event
	EventsProcessed int
	Providers       []ProviderStats
	Requestors      []RequestorStats
}

// Snapshot reads the counters of every agent. Call after Run.
func (sim *Simulator) Snapshot() *Snapshot {
	snap := &Snapshot{
		Seed:            sim.sampler.Seed(),
		EndTime:         sim.Clock,
		EventsProcessed: sim.eventsProcessed,
		Providers:       make([]ProviderStats, len(sim.providers)),
		Requestors:      make([]RequestorStats, len(sim.requestors)),
	}
	for i, p := range sim.providers {
		snap.Providers[i] = ProviderStats{
			ID:                int(p.ID),
			Behaviour:         p.Spec.Behaviour.String(),
			MinPrice:          p.Spec.MinPrice,
			UsageFactor:       p.Spec.UsageFactor,
			Price:             p.Spec.MinPrice,
			Revenue:           p.Revenue,
			SubtasksAssigned:  p.Assigned,
			SubtasksComputed:  p.Computed,
			SubtasksCancelled: p.Cancelled,
		}
	}
	for i, r := range sim.requestors {
		snap.Requestors[i] = RequestorStats{
			ID:                  int(r.ID),
			MaxPrice:            r.Spec.MaxPrice,
			BudgetFactor:        r.Spec.BudgetFactor,
			TasksAdvertised:     r.TasksAdvertised,
			TasksComputed:       r.TasksComputed,
			Readvertisements:    r.Readvertisements,
			SubtasksAdvertised:  r.SubtasksAdvertised,
			SubtasksComputed:    r.SubtasksComputed,
			SubtasksCancelled:   r.SubtasksCancelled,
			SubtasksOutstanding: r.outstanding(),
			MeanCost:            r.MeanCost,
		}
	}
	return snap
}
