package sim

// Verdict is the outcome of budget verification.
type Verdict int

const (
	Settle Verdict = iota
	Cancel
)

func (v Verdict) String() string {
	if v == Settle {
		return "settle"
	}
	return "cancel"
}

// Verify settles a subtask if the reported usage at the agreed price fits the
// subtask's budget (budget_factor·max_price·nominal_usage), and cancels it otherwise.
func Verify(reported float64, st *Subtask) Verdict {
	if reported*st.AgreedPrice <= st.Budget {
		return Settle
	}
	return Cancel
}
