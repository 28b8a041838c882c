package trace

// TraceSummary aggregates statistics from a SimulationTrace.
type TraceSummary struct {
	TotalEvents      int
	EventsByKind     map[string]int
	Assignments      int
	SettledCount     int
	CancelledCount   int
	MeanAgreedPrice  float64
	MeanCostToBudget float64 // over settled verifications with a positive budget
	MaxOverage       float64 // max(cost - budget) over cancelled verifications
	ProvidersUsed    int
	ProviderLoad     map[int]int // provider id → number of assignments
}

// Summarize computes aggregate statistics from a SimulationTrace.
// Safe for nil or empty traces (returns zero-value fields).
func Summarize(st *SimulationTrace) *TraceSummary {
	summary := &TraceSummary{
		EventsByKind: make(map[string]int),
		ProviderLoad: make(map[int]int),
	}
	if st == nil {
		return summary
	}

	summary.TotalEvents = len(st.Events)
	for _, e := range st.Events {
		summary.EventsByKind[e.Kind]++
	}

	summary.Assignments = len(st.Assignments)
	if len(st.Assignments) > 0 {
		totalPrice := 0.0
		for _, a := range st.Assignments {
			summary.ProviderLoad[a.Provider]++
			totalPrice += a.AgreedPrice
		}
		summary.MeanAgreedPrice = totalPrice / float64(len(st.Assignments))
	}
	summary.ProvidersUsed = len(summary.ProviderLoad)

	ratioSum, ratioCount := 0.0, 0
	for _, v := range st.Verifications {
		if !v.Settled {
			summary.CancelledCount++
			if over := v.Cost() - v.Budget; over > summary.MaxOverage {
				summary.MaxOverage = over
			}
			continue
		}
		summary.SettledCount++
		if v.Budget > 0 {
			ratioSum += v.Cost() / v.Budget
			ratioCount++
		}
	}
	if ratioCount > 0 {
		summary.MeanCostToBudget = ratioSum / float64(ratioCount)
	}

	return summary
}
