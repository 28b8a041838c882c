// Package sim provides the discrete-event engine of the compute marketplace.
//
// # Reading Guide
//
// Start with these three files to understand the simulation kernel:
//   - task.go: Task and Subtask lifecycle (unassigned → assigned → computing → completed/cancelled)
//   - event.go: Event types that drive the simulation (AdvertiseTask, SubtaskComputed, BudgetVerification, etc.)
//   - simulator.go: The event loop and the handlers behind every event
//
// # Architecture
//
// The sim package defines the agents, the market and the engine; supporting
// code lives in sub-packages:
//   - sim/workload/: Seeded sampler and parameter distributions
//   - sim/defence/: Requestor-side defences against usage over-reporting (LGRola, CTasks)
//   - sim/trace/: Event and decision trace recording
//   - sim/runner/: Parallel repetitions of one scenario
//   - sim/report/: Aggregation of repetition statistics
//   - sim/store/: SQLite persistence of repetition results
//
// sim/defence registers its constructor via init(), setting NewDefenceFunc.
//
// # Key Interfaces
//
//   - Event: one timestamped state transition, executed by the Simulator
//   - DefenceMechanism: per-requestor provider blacklist fed by settled subtasks
package sim
