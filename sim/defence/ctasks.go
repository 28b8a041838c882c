package defence

import (
	"math"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"github.com/market-sim/market-sim/sim"
)

// maxRating is the CTasks rating above which a provider is banned indefinitely.
const maxRating = 2.0

// CTasks keeps a usage rating per provider, starting at 1. After each task
// the rating of every provider that settled work moves towards its usage
// relative to the other providers:
//
//	rating *= sqrt((usage/meanUsage) / (rating/meanRating))
//
// where usage is the geometric mean of the provider's ratios in this task and
// both means are geometric means over the providers seen in this task.
type CTasks struct {
	common
	ratings map[sim.ProviderID]float64
}

// NewCTasks creates a CTasks mechanism for one requestor.
func NewCTasks(requestor sim.RequestorID) *CTasks {
	return &CTasks{
		common:  newCommon(requestor),
		ratings: make(map[sim.ProviderID]float64),
	}
}

// Rating returns the provider's current rating.
func (c *CTasks) Rating(p sim.ProviderID) float64 {
	if r, ok := c.ratings[p]; ok {
		return r
	}
	return 1.0
}

// TaskCompleted implements sim.DefenceMechanism.
func (c *CTasks) TaskCompleted() {
	defer clear(c.ratios)
	ids := c.observedProviders()
	if len(ids) == 0 {
		return
	}
	usages := make([]float64, len(ids))
	ratings := make([]float64, len(ids))
	for i, id := range ids {
		usages[i] = stat.GeometricMean(c.ratios[id], nil)
		ratings[i] = c.Rating(id)
	}
	meanUsage := stat.GeometricMean(usages, nil)
	meanRating := stat.GeometricMean(ratings, nil)
	if !(meanUsage > 0) || !(meanRating > 0) {
		logrus.Debugf("R%d: skipping rating update, mean usage %g, mean rating %g", c.requestor, meanUsage, meanRating)
		return
	}

	for i, id := range ids {
		rating := ratings[i] * math.Sqrt((usages[i]/meanUsage)/(ratings[i]/meanRating))
		c.ratings[id] = rating
		if rating > maxRating && !c.Banned(id) {
			c.ban(id, indefinitely)
		}
	}
}
