package defence

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/market-sim/market-sim/sim"
	"github.com/market-sim/market-sim/sim/internal/testutil"
	"github.com/market-sim/market-sim/sim/workload"
)

func TestNew_ReturnsMechanismPerKind(t *testing.T) {
	assert.IsType(t, &LGRola{}, New(sim.DefenceLGRola, 0))
	assert.IsType(t, &CTasks{}, New(sim.DefenceCTasks, 0))
	assert.Panics(t, func() { New(sim.DefenceNone, 0) })
}

func TestRegister_SetsFactory(t *testing.T) {
	require.NotNil(t, sim.NewDefenceFunc)
	assert.IsType(t, &CTasks{}, sim.NewDefenceFunc(sim.DefenceCTasks, 3))
}

func TestLGRola_BansOutlier(t *testing.T) {
	// GIVEN 25 providers reporting nominal usage and one reporting 40x
	l := NewLGRola(0)
	for id := 0; id < 25; id++ {
		l.SubtaskSettled(sim.ProviderID(id), 1.0)
	}
	outlier := sim.ProviderID(25)
	l.SubtaskSettled(outlier, 40.0)

	// WHEN the task completes
	l.TaskCompleted()

	// THEN only the outlier is banned, for ceil(e^1) = 3 tasks
	assert.Len(t, l.banned, 1)
	assert.True(t, l.Banned(outlier))
	assert.Equal(t, 3, l.banned[outlier].remaining)
	assert.Equal(t, 1, l.collisions[outlier])
	assert.False(t, l.Banned(0))
	assert.Empty(t, l.ratios, "observations are reset per task")
}

func TestLGRola_BanExpiresAfterItsDuration(t *testing.T) {
	// GIVEN an outlier banned for 3 tasks
	l := NewLGRola(0)
	for id := 0; id < 5; id++ {
		l.SubtaskSettled(sim.ProviderID(id), 1.0)
	}
	l.SubtaskSettled(9, 10.0)
	l.TaskCompleted()
	require.True(t, l.Banned(9))

	// WHEN three tasks complete without observations the ban counts down to zero
	for i := 0; i < 3; i++ {
		l.TaskCompleted()
		assert.True(t, l.Banned(9), "still banned after %d tasks", i+1)
	}

	// THEN the next task completion lifts it
	l.TaskCompleted()
	assert.False(t, l.Banned(9))
}

func TestLGRola_RepeatCollisionsGrowBan(t *testing.T) {
	l := NewLGRola(0)
	report := func() {
		for id := 0; id < 5; id++ {
			l.SubtaskSettled(sim.ProviderID(id), 1.0)
		}
		l.SubtaskSettled(9, 10.0)
		l.TaskCompleted()
	}
	report()
	report()

	// ceil(e^2) = 8
	assert.Equal(t, 2, l.collisions[9])
	assert.Equal(t, 8, l.banned[9].remaining)
}

func TestLGRola_HonestTaskDecaysCollisions(t *testing.T) {
	l := NewLGRola(0)
	l.collisions[3] = 2
	l.SubtaskSettled(3, 1.0)
	l.SubtaskSettled(4, 1.0)
	l.TaskCompleted()
	assert.Equal(t, 1, l.collisions[3])
	assert.False(t, l.Banned(3))
}

func TestCTasks_RatingUpdate(t *testing.T) {
	// GIVEN known ratings
	c := NewCTasks(0)
	c.ratings[1] = 0.5
	c.ratings[2] = 0.1
	c.ratings[3] = 0.75

	// WHEN providers 1 and 3 report usages proportional to their ratings
	c.SubtaskSettled(1, 50)
	c.SubtaskSettled(1, 50)
	c.SubtaskSettled(3, 75)
	c.TaskCompleted()

	// THEN ratings are unchanged
	assert.InDelta(t, 0.5, c.Rating(1), 1e-3)
	assert.InDelta(t, 0.75, c.Rating(3), 1e-3)

	// WHEN provider 2 reports a far larger usage
	c.SubtaskSettled(1, 50)
	c.SubtaskSettled(2, 2020)
	c.SubtaskSettled(3, 75)
	c.TaskCompleted()

	// THEN every rating moves relative to the new means
	assert.InDelta(t, 0.2064, c.Rating(1), 1e-3)
	assert.InDelta(t, 0.5867, c.Rating(2), 1e-3)
	assert.InDelta(t, 0.3096, c.Rating(3), 1e-3)
	assert.Empty(t, c.banned)
}

func TestCTasks_BansAboveMaxRating(t *testing.T) {
	// GIVEN three honest providers and one reporting 8x usage
	c := NewCTasks(0)
	for task := 0; task < 20 && !c.Banned(3); task++ {
		for id := 0; id < 3; id++ {
			c.SubtaskSettled(sim.ProviderID(id), 1.0)
		}
		c.SubtaskSettled(3, 8.0)
		c.TaskCompleted()
	}

	// THEN the inflating provider's rating crosses 2 and it is banned for good
	assert.True(t, c.Banned(3))
	assert.Greater(t, c.Rating(3), maxRating)
	assert.Equal(t, indefinitely, c.banned[3].remaining)
	for id := 0; id < 3; id++ {
		assert.False(t, c.Banned(sim.ProviderID(id)))
	}
}

func TestCTasks_NoObservations_NoChange(t *testing.T) {
	c := NewCTasks(0)
	c.TaskCompleted()
	assert.Empty(t, c.ratings)
	assert.Equal(t, 1.0, c.Rating(7))
}

func TestLGRola_InSimulation_StopsAssigningToInflatingProvider(t *testing.T) {
	// GIVEN four honest providers, one cheaper provider that inflates usage 3x,
	// and a repeating requestor with a generous budget so nothing is cancelled
	cfg := &sim.SimulationConfig{
		Duration: 5000,
		Defence:  sim.DefenceLGRola,
		Providers: []sim.ProviderSpec{
			{MinPrice: 0.5, UsageFactor: 1, Behaviour: sim.LinearInflation(2)},
			{MinPrice: 1, UsageFactor: 1},
			{MinPrice: 1, UsageFactor: 1},
			{MinPrice: 1, UsageFactor: 1},
			{MinPrice: 1, UsageFactor: 1},
		},
		Requestors: []sim.RequestorSpec{{
			MaxPrice:     1,
			BudgetFactor: 10,
			Repeating:    true,
			Tasks:        []sim.TaskSpec{{SubtaskCount: 5, NominalUsage: workload.Fixed(10)}},
		}},
	}
	s, err := sim.NewSimulator(cfg, sim.NewSimulationKey(1, 0), "")
	require.NoError(t, err)

	// WHEN the simulation runs
	s.Run()
	snap := s.Snapshot()
	testutil.AssertSnapshotInvariants(t, snap)

	// THEN the inflating provider was banned after the first task and served
	// far fewer subtasks than an honest one
	req := snap.Requestors[0]
	require.Greater(t, req.TasksComputed, 10)
	assert.True(t, s.Requestors()[0].Defence.Banned(0) || snap.Providers[0].SubtasksAssigned < snap.Providers[1].SubtasksAssigned)
	assert.Less(t, snap.Providers[0].SubtasksAssigned, req.TasksComputed)
}
