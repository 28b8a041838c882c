package defence

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/market-sim/market-sim/sim"
)

// LGRola bans statistical outliers. After each task every provider's usage
// ratios are reduced to a geometric mean; means above Q3 + 1.5·IQR collide.
// A provider with c collisions is banned for ceil(e^c) further tasks, and
// each non-colliding task lowers its collision count by one.
type LGRola struct {
	common
	collisions map[sim.ProviderID]int
}

// NewLGRola creates an LGRola mechanism for one requestor.
func NewLGRola(requestor sim.RequestorID) *LGRola {
	return &LGRola{
		common:     newCommon(requestor),
		collisions: make(map[sim.ProviderID]int),
	}
}

// TaskCompleted implements sim.DefenceMechanism.
func (l *LGRola) TaskCompleted() {
	for id, b := range l.banned {
		if b.remaining == 0 {
			delete(l.banned, id)
			continue
		}
		if b.remaining > 0 {
			b.remaining--
		}
	}

	ids := l.observedProviders()
	if len(ids) == 0 {
		return
	}
	means := make([]float64, len(ids))
	for i, id := range ids {
		means[i] = stat.GeometricMean(l.ratios[id], nil)
	}
	sorted := append([]float64(nil), means...)
	sort.Float64s(sorted)
	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	threshold := q3 + 1.5*(q3-q1)

	for i, id := range ids {
		if means[i] > threshold {
			l.collisions[id]++
			l.ban(id, int(math.Ceil(math.Exp(float64(l.collisions[id])))))
		} else if l.collisions[id] > 0 {
			l.collisions[id]--
		}
	}
	clear(l.ratios)
}
