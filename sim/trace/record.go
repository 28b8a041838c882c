// Package trace provides decision-trace recording for market simulations.
// This package has no dependencies on sim/; it stores pure data types.
package trace

// EventRecord captures one processed event.
type EventRecord struct {
	Seq    int // processing order, starting at 0
	Clock  float64
	Kind   string
	Target int // requestor or provider id, depending on Kind
}

// AssignmentRecord captures a single market matching decision.
type AssignmentRecord struct {
	Clock       float64
	Requestor   int
	Task        int
	Subtask     int
	Provider    int
	MinPrice    float64
	MaxPrice    float64
	AgreedPrice float64
}

// VerificationRecord captures a single budget verification.
type VerificationRecord struct {
	Clock         float64
	Requestor     int
	Task          int
	Subtask       int
	Provider      int
	NominalUsage  float64
	ReportedUsage float64
	AgreedPrice   float64
	Budget        float64
	Settled       bool
}

// Cost is the payment the reported usage would incur.
func (v VerificationRecord) Cost() float64 {
	return v.ReportedUsage * v.AgreedPrice
}
