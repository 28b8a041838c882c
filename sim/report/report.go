// Package report aggregates per-repetition statistics into cross-repetition
// estimates: per provider behaviour and per requestor budget-factor band.
// Derived quantities such as the effective price live here, not in the engine.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"

	"github.com/market-sim/market-sim/sim"
)

// DefaultConfidence is the confidence level of the reported intervals.
const DefaultConfidence = 0.95

// budgetFactorBands partition requestors by budget factor.
var budgetFactorBands = []float64{0.5, 1.5}

// ProviderGroup aggregates providers sharing a behaviour.
type ProviderGroup struct {
	Behaviour string
	// ComputedShare is the percentage of all computed subtasks computed by the group.
	ComputedShare Estimate
	Price         Estimate
	// EffectivePrice is price·usage_factor, the price per second of wall-clock time.
	EffectivePrice Estimate
	Revenue        Estimate
	Cancelled      Estimate
}

// RequestorGroup aggregates requestors within a budget-factor band.
type RequestorGroup struct {
	Band string
	// MeanCost is the settled cost as a percentage of the budget.
	MeanCost Estimate
	// CancelledShare is the percentage of verified subtasks that were cancelled.
	CancelledShare Estimate
	Readvertisements Estimate
	Outstanding      Estimate
}

// Report is the cross-repetition summary of one batch.
type Report struct {
	Repetitions int
	Confidence  float64
	// RevenueRatio is the revenue of all non-regular providers over that of
	// regular ones. Repetitions without regular revenue are skipped.
	RevenueRatio Estimate
	Providers    []ProviderGroup
	Requestors   []RequestorGroup
}

// Build aggregates snapshots. Within a repetition each group is reduced to
// the mean over its agents; the estimates are then taken across repetitions.
func Build(snapshots map[int]*sim.Snapshot, confidence float64) *Report {
	keys := make([]int, 0, len(snapshots))
	for k := range snapshots {
		keys = append(keys, k)
	}
	sort.Ints(keys)

	type providerSamples struct{ share, price, effective, revenue, cancelled []float64 }
	type requestorSamples struct{ cost, cancelled, readvertised, outstanding []float64 }
	providers := make(map[string]*providerSamples)
	requestors := make(map[string]*requestorSamples)
	var ratios []float64

	for _, k := range keys {
		snap := snapshots[k]

		totalComputed := 0
		honest, dishonest := 0.0, 0.0
		byBehaviour := make(map[string][]sim.ProviderStats)
		for _, p := range snap.Providers {
			totalComputed += p.SubtasksComputed
			byBehaviour[p.Behaviour] = append(byBehaviour[p.Behaviour], p)
			if p.Behaviour == sim.Regular().String() {
				honest += p.Revenue
			} else {
				dishonest += p.Revenue
			}
		}
		if honest > 0 {
			ratios = append(ratios, dishonest/honest)
		}
		for behaviour, group := range byBehaviour {
			s := providers[behaviour]
			if s == nil {
				s = &providerSamples{}
				providers[behaviour] = s
			}
			computed := 0
			var price, effective, revenue, cancelled []float64
			for _, p := range group {
				computed += p.SubtasksComputed
				price = append(price, p.Price)
				effective = append(effective, p.Price*p.UsageFactor)
				revenue = append(revenue, p.Revenue)
				cancelled = append(cancelled, float64(p.SubtasksCancelled))
			}
			s.share = append(s.share, percentage(computed, totalComputed))
			s.price = append(s.price, meanOf(price))
			s.effective = append(s.effective, meanOf(effective))
			s.revenue = append(s.revenue, meanOf(revenue))
			s.cancelled = append(s.cancelled, meanOf(cancelled))
		}

		byBand := make(map[string][]sim.RequestorStats)
		for _, r := range snap.Requestors {
			band := bandOf(r.BudgetFactor)
			byBand[band] = append(byBand[band], r)
		}
		for band, group := range byBand {
			s := requestors[band]
			if s == nil {
				s = &requestorSamples{}
				requestors[band] = s
			}
			var cost, cancelled, readvertised, outstanding []float64
			for _, r := range group {
				if r.SubtasksComputed > 0 {
					cost = append(cost, r.MeanCost*100)
				}
				cancelled = append(cancelled, percentage(r.SubtasksCancelled, r.SubtasksCancelled+r.SubtasksComputed))
				readvertised = append(readvertised, float64(r.Readvertisements))
				outstanding = append(outstanding, float64(r.SubtasksOutstanding))
			}
			s.cost = append(s.cost, meanOf(cost))
			s.cancelled = append(s.cancelled, meanOf(cancelled))
			s.readvertised = append(s.readvertised, meanOf(readvertised))
			s.outstanding = append(s.outstanding, meanOf(outstanding))
		}
	}

	rep := &Report{
		Repetitions:  len(snapshots),
		Confidence:   confidence,
		RevenueRatio: MeanCI(ratios, confidence),
	}
	for _, behaviour := range sortedKeys(providers) {
		s := providers[behaviour]
		rep.Providers = append(rep.Providers, ProviderGroup{
			Behaviour:      behaviour,
			ComputedShare:  MeanCI(s.share, confidence),
			Price:          MeanCI(s.price, confidence),
			EffectivePrice: MeanCI(s.effective, confidence),
			Revenue:        MeanCI(s.revenue, confidence),
			Cancelled:      MeanCI(s.cancelled, confidence),
		})
	}
	for _, band := range bandOrder(requestors) {
		s := requestors[band]
		rep.Requestors = append(rep.Requestors, RequestorGroup{
			Band:             band,
			MeanCost:         MeanCI(s.cost, confidence),
			CancelledShare:   MeanCI(s.cancelled, confidence),
			Readvertisements: MeanCI(s.readvertised, confidence),
			Outstanding:      MeanCI(s.outstanding, confidence),
		})
	}
	return rep
}

// Print writes the report as indented text.
func (r *Report) Print(w io.Writer) error {
	pw := &printer{w: w}
	pw.printf("Repetitions: %d (%.0f%% confidence intervals)\n", r.Repetitions, r.Confidence*100)

	pw.section("Share of subtasks computed [%]")
	for _, g := range r.Providers {
		pw.row(g.Behaviour, g.ComputedShare)
	}
	pw.section("Ratio of revenue of dishonest and honest providers")
	pw.row("all", r.RevenueRatio)
	pw.section("Mean price")
	for _, g := range r.Providers {
		pw.row(g.Behaviour, g.Price)
	}
	pw.section("Mean effective price")
	for _, g := range r.Providers {
		pw.row(g.Behaviour, g.EffectivePrice)
	}
	pw.section("Mean revenue")
	for _, g := range r.Providers {
		pw.row(g.Behaviour, g.Revenue)
	}
	pw.section("Mean subtasks cancelled per provider")
	for _, g := range r.Providers {
		pw.row(g.Behaviour, g.Cancelled)
	}

	pw.section("Mean cost wrt budget [%] by budget factor")
	for _, g := range r.Requestors {
		pw.row(g.Band, g.MeanCost)
	}
	pw.section("Share of subtasks cancelled [%] by budget factor")
	for _, g := range r.Requestors {
		pw.row(g.Band, g.CancelledShare)
	}
	pw.section("Mean readvertisements by budget factor")
	for _, g := range r.Requestors {
		pw.row(g.Band, g.Readvertisements)
	}
	pw.section("Mean subtasks outstanding by budget factor")
	for _, g := range r.Requestors {
		pw.row(g.Band, g.Outstanding)
	}
	return pw.err
}

// printer keeps the first write error.
type printer struct {
	w   io.Writer
	err error
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) section(title string) {
	p.printf("\n%s\n", title)
}

func (p *printer) row(label string, e Estimate) {
	switch {
	case e.N == 0:
		p.printf("\t%s => n/a\n", label)
	case math.IsNaN(e.HalfWidth):
		p.printf("\t%s => %.3f\n", label, e.Mean)
	default:
		p.printf("\t%s => %.3f +/- %.3f\n", label, e.Mean, e.HalfWidth)
	}
}

func percentage(part, whole int) float64 {
	if whole == 0 {
		return math.NaN()
	}
	return float64(part) / float64(whole) * 100
}

// bandOf names the half-open budget-factor band containing bf.
func bandOf(bf float64) string {
	lower := math.Inf(-1)
	for _, upper := range budgetFactorBands {
		if bf < upper {
			return bandName(lower, upper)
		}
		lower = upper
	}
	return bandName(lower, math.Inf(1))
}

func bandName(lower, upper float64) string {
	return fmt.Sprintf("%g - %g", lower, upper)
}

// bandOrder returns the present bands in ascending order.
func bandOrder[T any](m map[string]T) []string {
	var out []string
	lower := math.Inf(-1)
	for _, upper := range append(append([]float64{}, budgetFactorBands...), math.Inf(1)) {
		if _, ok := m[bandName(lower, upper)]; ok {
			out = append(out, bandName(lower, upper))
		}
		lower = upper
	}
	return out
}

func sortedKeys[T any](m map[string]T) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
