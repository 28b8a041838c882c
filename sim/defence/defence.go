// Package defence implements requestor-side defences against providers that
// over-report usage. Each requestor owns one mechanism; it observes the
// reported/nominal usage ratio of every settled subtask and, at the end of
// each task, decides which providers to blacklist.
package defence

import (
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/market-sim/market-sim/sim"
)

// New creates the mechanism of the given kind for one requestor.
// Panics on kinds that sim.SimulationConfig.Validate rejects.
func New(kind sim.DefenceType, requestor sim.RequestorID) sim.DefenceMechanism {
	switch kind {
	case sim.DefenceLGRola:
		return NewLGRola(requestor)
	case sim.DefenceCTasks:
		return NewCTasks(requestor)
	default:
		panic(fmt.Sprintf("defence: unsupported kind %q", kind))
	}
}

// ban is a blacklist entry. remaining < 0 means indefinitely.
type ban struct {
	remaining int
}

const indefinitely = -1

// common holds the per-task observations and the blacklist shared by all mechanisms.
type common struct {
	requestor sim.RequestorID
	ratios    map[sim.ProviderID][]float64 // settled usage ratios of the current task
	banned    map[sim.ProviderID]*ban
}

func newCommon(requestor sim.RequestorID) common {
	return common{
		requestor: requestor,
		ratios:    make(map[sim.ProviderID][]float64),
		banned:    make(map[sim.ProviderID]*ban),
	}
}

// Banned implements sim.DefenceMechanism.
func (c *common) Banned(p sim.ProviderID) bool {
	_, ok := c.banned[p]
	return ok
}

// SubtaskSettled implements sim.DefenceMechanism.
func (c *common) SubtaskSettled(p sim.ProviderID, usageRatio float64) {
	c.ratios[p] = append(c.ratios[p], usageRatio)
}

func (c *common) ban(p sim.ProviderID, tasks int) {
	logrus.Debugf("R%d: P%d blacklisted for %d tasks (-1 = indefinitely)", c.requestor, p, tasks)
	c.banned[p] = &ban{remaining: tasks}
}

// observedProviders returns the providers seen in the current task in id
// order, so that map iteration never leaks into results.
func (c *common) observedProviders() []sim.ProviderID {
	ids := make([]sim.ProviderID, 0, len(c.ratios))
	for id := range c.ratios {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
