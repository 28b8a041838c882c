package sim

// DefenceType selects the requestor-side defence against providers that
// over-report usage.
type DefenceType string

const (
	DefenceNone   DefenceType = "none"
	DefenceLGRola DefenceType = "lgrola"
	DefenceCTasks DefenceType = "ctasks"
)

var validDefenceTypes = map[DefenceType]bool{
	DefenceNone:   true,
	DefenceLGRola: true,
	DefenceCTasks: true,
	"":            true, // empty defaults to none
}

// IsValidDefenceType returns true if name is a recognized defence type.
func IsValidDefenceType(name string) bool {
	return validDefenceTypes[DefenceType(name)]
}

// DefenceMechanism is owned by one requestor. The market consults Banned
// before every assignment; the engine reports settled subtasks and completed
// tasks so the mechanism can update its blacklist.
type DefenceMechanism interface {
	// Banned reports whether the provider must not receive this requestor's subtasks.
	Banned(provider ProviderID) bool
	// SubtaskSettled records the reported/nominal usage ratio of a settled subtask.
	SubtaskSettled(provider ProviderID, usageRatio float64)
	// TaskCompleted closes the current observation window.
	TaskCompleted()
}

// NewDefenceFunc creates the defence mechanism for one requestor.
// Set by sim/defence's init(); nil means only DefenceNone is available.
var NewDefenceFunc func(kind DefenceType, requestor RequestorID) DefenceMechanism

// noDefence never bans anyone.
type noDefence struct{}

func (noDefence) Banned(ProviderID) bool             { return false }
func (noDefence) SubtaskSettled(ProviderID, float64) {}
func (noDefence) TaskCompleted()                     {}

func newDefence(kind DefenceType, requestor RequestorID) DefenceMechanism {
	if kind == "" || kind == DefenceNone {
		return noDefence{}
	}
	if NewDefenceFunc == nil {
		panic("NewDefenceFunc not registered: import sim/defence to register it")
	}
	return NewDefenceFunc(kind, requestor)
}
