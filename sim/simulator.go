package sim

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/market-sim/market-sim/sim/trace"
	"github.com/market-sim/market-sim/sim/workload"
)

// Simulator runs one repetition. It exclusively owns its population, market,
// event queue and Sampler.
//
// Thread-safety: NOT thread-safe. Run each Simulator on one goroutine.
type Simulator struct {
	Clock float64

	config     *SimulationConfig
	sampler    *workload.Sampler
	queue      *EventQueue
	market     *Market
	providers  []*Provider
	requestors []*Requestor
	trace      *trace.SimulationTrace

	eventsProcessed int
	hasRun          bool
}

// NewSimulator builds the population of the repetition identified by key and
// seeds the event queue: every provider becomes available at time 0, then
// every requestor schedules the advertisement of its first task.
// Returns an error only for configuration problems.
func NewSimulator(cfg *SimulationConfig, key SimulationKey, level trace.TraceLevel) (*Simulator, error) {
	if !trace.IsValidTraceLevel(string(level)) {
		return nil, fmt.Errorf("unknown trace level %q; valid: none, decisions, events", level)
	}
	sampler := key.NewSampler()
	providers, requestors, err := BuildPopulation(cfg, sampler)
	if err != nil {
		return nil, err
	}
	sim := &Simulator{
		config:     cfg,
		sampler:    sampler,
		queue:      NewEventQueue(),
		market:     NewMarket(requestors),
		providers:  providers,
		requestors: requestors,
	}
	if level.Enabled() {
		sim.trace = trace.NewSimulationTrace(level)
	}
	for _, p := range providers {
		sim.Schedule(&ProviderBecomesAvailableEvent{time: 0, Provider: p.ID})
	}
	for _, r := range requestors {
		sim.startNextTask(r)
	}
	return sim, nil
}

// Schedule enqueues an event.
func (sim *Simulator) Schedule(ev Event) {
	sim.queue.Schedule(ev)
}

// Run drains the event queue. The first event past the configured duration
// is discarded and ends the run; whatever is still in flight then counts as
// outstanding.
func (sim *Simulator) Run() {
	if sim.hasRun {
		panic("Simulator.Run() called more than once")
	}
	sim.hasRun = true
	logrus.Infof("Starting repetition seed=%d: %d providers, %d requestors, duration=%.1fs",
		sim.sampler.Seed(), len(sim.providers), len(sim.requestors), sim.config.Duration)

	for {
		ev := sim.queue.PopNext()
		if ev == nil {
			break
		}
		if ev.Timestamp() > sim.config.Duration {
			logrus.Debugf("[t=%.3f] duration reached, discarding %s", ev.Timestamp(), ev.Kind())
			break
		}
		if ev.Timestamp() < sim.Clock {
			panic(fmt.Sprintf("Clock went backwards: %s at %f, clock at %f", ev.Kind(), ev.Timestamp(), sim.Clock))
		}
		sim.Clock = ev.Timestamp()
		if sim.trace != nil {
			sim.trace.RecordEvent(trace.EventRecord{
				Seq:    sim.eventsProcessed,
				Clock:  sim.Clock,
				Kind:   string(ev.Kind()),
				Target: ev.Target(),
			})
		}
		sim.eventsProcessed++
		ev.Execute(sim)
	}
	logrus.Infof("Repetition seed=%d ended at t=%.3f after %d events", sim.sampler.Seed(), sim.Clock, sim.eventsProcessed)
}

// Providers returns the provider agents in id order.
func (sim *Simulator) Providers() []*Provider {
	return sim.providers
}

// Requestors returns the requestor agents in id order.
func (sim *Simulator) Requestors() []*Requestor {
	return sim.requestors
}

// Trace returns the decision trace, or nil if tracing is disabled.
func (sim *Simulator) Trace() *trace.SimulationTrace {
	return sim.trace
}

// startNextTask takes r's next queued task and schedules its advertisement,
// or leaves r idle when the queue is empty.
func (sim *Simulator) startNextTask(r *Requestor) {
	t := r.popTask()
	if t == nil {
		logrus.Debugf("[t=%.3f] R%d idle", sim.Clock, r.ID)
		return
	}
	delay := 0.0
	if sim.config.AdvertisementDelay != nil {
		delay = sim.config.AdvertisementDelay.Sample(sim.sampler)
	}
	sim.Schedule(&AdvertiseTaskEvent{time: sim.Clock + delay, Requestor: r.ID})
}

func (sim *Simulator) advertise(r *Requestor) {
	t := r.Current
	if t == nil || t.State != TaskPending {
		panic(fmt.Sprintf("R%d: advertise without a pending task", r.ID))
	}
	t.State = TaskAdvertised
	r.TasksAdvertised++
	r.SubtasksAdvertised += len(t.Subtasks)
	logrus.Debugf("[t=%.3f] %s advertised with %d subtasks", sim.Clock, t, len(t.Subtasks))

	sim.market.AddSubtasks(r, t.Subtasks)
	sim.match()
	sim.scheduleReadvertisement(r)
}

func (sim *Simulator) readvertise(r *Requestor) {
	r.readvertisePending = false
	if len(r.unassigned) == 0 {
		return
	}
	logrus.Debugf("[t=%.3f] R%d readvertises %d subtasks", sim.Clock, r.ID, len(r.unassigned))
	sim.match()
	sim.scheduleReadvertisement(r)
}

// scheduleReadvertisement keeps at most one readvertisement pending per requestor.
func (sim *Simulator) scheduleReadvertisement(r *Requestor) {
	if len(r.unassigned) == 0 || r.readvertisePending {
		return
	}
	r.readvertisePending = true
	r.Readvertisements++
	sim.Schedule(&ReAdvertiseTaskEvent{time: sim.Clock + sim.config.retryInterval(), Requestor: r.ID})
}

func (sim *Simulator) providerAvailable(p *Provider) {
	if p.Available || p.Current != nil {
		panic(fmt.Sprintf("P%d: becomes available while available=%v current=%v", p.ID, p.Available, p.Current))
	}
	p.Available = true
	sim.market.AddProvider(p)
	sim.match()
	logrus.Debugf("[t=%.3f] P%d available, %d providers idle after matching", sim.Clock, p.ID, sim.market.Available())
}

func (sim *Simulator) match() {
	for _, m := range sim.market.Match() {
		sim.assign(m.Subtask, m.Provider)
	}
}

func (sim *Simulator) assign(st *Subtask, p *Provider) {
	if st.State != SubtaskUnassigned {
		panic(fmt.Sprintf("%s: double assignment to P%d, state %s", st, p.ID, st.State))
	}
	if !p.Available || p.Current != nil {
		panic(fmt.Sprintf("P%d: assigned %s while busy with %v", p.ID, st, p.Current))
	}
	r := sim.requestors[st.Task.Requestor]
	if p.Spec.MinPrice > r.Spec.MaxPrice {
		panic(fmt.Sprintf("P%d min price %f above R%d max price %f", p.ID, p.Spec.MinPrice, r.ID, r.Spec.MaxPrice))
	}

	st.State = SubtaskAssigned
	st.Provider = p.ID
	st.AssignedAt = sim.Clock
	st.AgreedPrice = p.Spec.MinPrice
	p.Available = false
	p.Current = st
	p.Assigned++
	if st.Task.State == TaskAdvertised {
		st.Task.State = TaskPartiallyAssigned
	}
	logrus.Debugf("[t=%.3f] %s assigned to P%d at price %g", sim.Clock, st, p.ID, st.AgreedPrice)
	if sim.trace != nil {
		sim.trace.RecordAssignment(trace.AssignmentRecord{
			Clock:       sim.Clock,
			Requestor:   int(r.ID),
			Task:        st.Task.Seq,
			Subtask:     st.Index,
			Provider:    int(p.ID),
			MinPrice:    p.Spec.MinPrice,
			MaxPrice:    r.Spec.MaxPrice,
			AgreedPrice: st.AgreedPrice,
		})
	}

	sim.Schedule(&SubtaskAssignedEvent{time: sim.Clock, Subtask: st})
	sim.Schedule(&SubtaskComputedEvent{time: sim.Clock + p.computeTime(st.NominalUsage), Subtask: st})
}

func (sim *Simulator) startComputing(st *Subtask) {
	if st.State != SubtaskAssigned {
		panic(fmt.Sprintf("%s: start computing in state %s", st, st.State))
	}
	st.State = SubtaskComputing
}

func (sim *Simulator) subtaskComputed(st *Subtask) {
	if st.State != SubtaskComputing {
		panic(fmt.Sprintf("%s: computed in state %s", st, st.State))
	}
	p := sim.providers[st.Provider]
	st.ReportedUsage = ReportUsage(p.Spec.Behaviour, st.NominalUsage, st.AgreedPrice, st.Budget)
	logrus.Debugf("[t=%.3f] %s computed by P%d, reported usage %g (nominal %g)",
		sim.Clock, st, p.ID, st.ReportedUsage, st.NominalUsage)
	sim.Schedule(&BudgetVerificationEvent{time: sim.Clock, Subtask: st})
}

func (sim *Simulator) verify(st *Subtask) {
	if st.State != SubtaskComputing {
		panic(fmt.Sprintf("%s: verified in state %s", st, st.State))
	}
	p := sim.providers[st.Provider]
	r := sim.requestors[st.Task.Requestor]
	if p.Current != st {
		panic(fmt.Sprintf("%s: verified but P%d is computing %v", st, p.ID, p.Current))
	}

	verdict := Verify(st.ReportedUsage, st)
	cost := st.ReportedUsage * st.AgreedPrice
	switch verdict {
	case Settle:
		st.State = SubtaskCompleted
		p.Revenue += cost
		p.Computed++
		r.SubtasksComputed++
		r.recordCost(cost, st.Budget)
		r.Defence.SubtaskSettled(p.ID, st.ReportedUsage/st.NominalUsage)
	case Cancel:
		st.State = SubtaskCancelled
		p.Cancelled++
		r.SubtasksCancelled++
	}
	logrus.Debugf("[t=%.3f] %s %s: cost %g, budget %g", sim.Clock, st, verdict, cost, st.Budget)
	if sim.trace != nil {
		sim.trace.RecordVerification(trace.VerificationRecord{
			Clock:         sim.Clock,
			Requestor:     int(r.ID),
			Task:          st.Task.Seq,
			Subtask:       st.Index,
			Provider:      int(p.ID),
			NominalUsage:  st.NominalUsage,
			ReportedUsage: st.ReportedUsage,
			AgreedPrice:   st.AgreedPrice,
			Budget:        st.Budget,
			Settled:       verdict == Settle,
		})
	}

	p.Current = nil
	sim.Schedule(&ProviderBecomesAvailableEvent{time: sim.Clock, Provider: p.ID})
	if st.Task.isDone() {
		sim.Schedule(&TaskCompletedEvent{time: sim.Clock, Task: st.Task})
	}
}

func (sim *Simulator) completeTask(t *Task) {
	r := sim.requestors[t.Requestor]
	if r.Current != t || t.State == TaskCompleted || !t.isDone() {
		panic(fmt.Sprintf("%s: completed in state %s", t, t.State))
	}
	t.State = TaskCompleted
	r.TasksComputed++
	r.Defence.TaskCompleted()
	logrus.Debugf("[t=%.3f] %s completed", sim.Clock, t)

	if r.Spec.Repeating {
		// Usage support was validated strictly positive, so this cannot fail.
		if err := r.enqueue(t.Spec, sim.sampler); err != nil {
			panic(fmt.Sprintf("R%d: regenerating %s: %v", r.ID, t, err))
		}
	}
	sim.startNextTask(r)
}
