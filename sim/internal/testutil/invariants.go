// Package testutil provides shared test helpers for the sim sub-packages.
// Package sim's own tests cannot import it (import cycle) and inline the
// same checks.
package testutil

import (
	"math"
	"testing"

	"github.com/market-sim/market-sim/sim"
)

// AssertSnapshotInvariants checks the counters of a finished repetition:
// every advertised subtask is computed, cancelled or outstanding, and the
// provider-side and requestor-side totals agree.
func AssertSnapshotInvariants(t *testing.T, snap *sim.Snapshot) {
	t.Helper()
	computed, cancelled := 0, 0
	for _, p := range snap.Providers {
		computed += p.SubtasksComputed
		cancelled += p.SubtasksCancelled
		if p.SubtasksComputed+p.SubtasksCancelled > p.SubtasksAssigned {
			t.Errorf("provider %d: %d computed + %d cancelled > %d assigned",
				p.ID, p.SubtasksComputed, p.SubtasksCancelled, p.SubtasksAssigned)
		}
		if p.Price != p.MinPrice {
			t.Errorf("provider %d: price %v differs from min price %v", p.ID, p.Price, p.MinPrice)
		}
		if p.SubtasksComputed == 0 && p.Revenue != 0 {
			t.Errorf("provider %d: revenue %v without computed subtasks", p.ID, p.Revenue)
		}
	}
	rc, rx := 0, 0
	for _, r := range snap.Requestors {
		rc += r.SubtasksComputed
		rx += r.SubtasksCancelled
		if got := r.SubtasksComputed + r.SubtasksCancelled + r.SubtasksOutstanding; got != r.SubtasksAdvertised {
			t.Errorf("requestor %d: computed+cancelled+outstanding = %d, advertised %d", r.ID, got, r.SubtasksAdvertised)
		}
		if r.TasksComputed > r.TasksAdvertised {
			t.Errorf("requestor %d: %d tasks computed > %d advertised", r.ID, r.TasksComputed, r.TasksAdvertised)
		}
	}
	if rc != computed || rx != cancelled {
		t.Errorf("requestors report %d computed / %d cancelled, providers %d / %d", rc, rx, computed, cancelled)
	}
}

// AssertFloat64Equal compares two float64 values with relative tolerance.
func AssertFloat64Equal(t *testing.T, name string, want, got, relTol float64) {
	t.Helper()
	if want == 0 && got == 0 {
		return
	}
	diff := math.Abs(want - got)
	maxVal := math.Max(math.Abs(want), math.Abs(got))
	if diff/maxVal > relTol {
		t.Errorf("%s: got %v, want %v (diff=%v, relDiff=%v)", name, got, want, diff, diff/maxVal)
	}
}
