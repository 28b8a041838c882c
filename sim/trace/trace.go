package trace

// TraceLevel controls the verbosity of decision tracing.
type TraceLevel string

const (
	// TraceLevelNone disables tracing (zero overhead).
	TraceLevelNone TraceLevel = "none"
	// TraceLevelDecisions captures all assignments and budget verifications.
	TraceLevelDecisions TraceLevel = "decisions"
	// TraceLevelEvents additionally captures every processed event.
	TraceLevelEvents TraceLevel = "events"
)

// validTraceLevels maps accepted trace level strings.
var validTraceLevels = map[TraceLevel]bool{
	TraceLevelNone:      true,
	TraceLevelDecisions: true,
	TraceLevelEvents:    true,
	"":                  true, // empty defaults to none
}

// IsValidTraceLevel returns true if the given level string is a recognized trace level.
func IsValidTraceLevel(level string) bool {
	return validTraceLevels[TraceLevel(level)]
}

// Enabled reports whether the level records anything.
func (l TraceLevel) Enabled() bool {
	return l != "" && l != TraceLevelNone
}

// SimulationTrace collects decision records during one repetition.
type SimulationTrace struct {
	Level         TraceLevel
	Events        []EventRecord
	Assignments   []AssignmentRecord
	Verifications []VerificationRecord
}

// NewSimulationTrace creates a SimulationTrace ready for recording.
func NewSimulationTrace(level TraceLevel) *SimulationTrace {
	return &SimulationTrace{
		Level:         level,
		Events:        make([]EventRecord, 0),
		Assignments:   make([]AssignmentRecord, 0),
		Verifications: make([]VerificationRecord, 0),
	}
}

// RecordEvent appends an event record. Ignored below TraceLevelEvents.
func (st *SimulationTrace) RecordEvent(record EventRecord) {
	if st.Level != TraceLevelEvents {
		return
	}
	st.Events = append(st.Events, record)
}

// RecordAssignment appends an assignment record.
func (st *SimulationTrace) RecordAssignment(record AssignmentRecord) {
	st.Assignments = append(st.Assignments, record)
}

// RecordVerification appends a verification record.
func (st *SimulationTrace) RecordVerification(record VerificationRecord) {
	st.Verifications = append(st.Verifications, record)
}
