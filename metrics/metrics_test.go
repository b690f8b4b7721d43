package metrics

import (
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sul31man/bacteria"
)

func TestCollector(t *testing.T) {
	s := new(bacteria.Stats)
	s.Steps.Add(10)
	s.Reflections.Add(2)
	s.Slides.Inc()
	s.WallHitsY.Add(3)

	c := NewCollector(s)
	reg := prometheus.NewPedanticRegistry()
	require.NoError(t, reg.Register(c))

	expected := `
# HELP bacteria_agent_steps_total Number of agent steps taken.
# TYPE bacteria_agent_steps_total counter
bacteria_agent_steps_total 10
# HELP bacteria_obstacle_events_total Number of obstacle collisions by resolution.
# TYPE bacteria_obstacle_events_total counter
bacteria_obstacle_events_total{resolution="freeze"} 0
bacteria_obstacle_events_total{resolution="reflection"} 2
bacteria_obstacle_events_total{resolution="slide"} 1
# HELP bacteria_wall_hits_total Number of wall clamps by axis.
# TYPE bacteria_wall_hits_total counter
bacteria_wall_hits_total{axis="x"} 0
bacteria_wall_hits_total{axis="y"} 3
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected)))
	assert.Equal(t, 6, testutil.CollectAndCount(c))
}

func TestCollectorFollowsSimulation(t *testing.T) {
	f := bacteria.NewFlowField(2.2, 0.41, 0.2, 0.2, 0.05)
	sim, err := bacteria.NewSimulation(f, 3, 0.0001, bacteria.WithSeed(1))
	require.NoError(t, err)
	sim.Run(10, 0.001)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(NewCollector(sim.Stats)))
	expected := `
# HELP bacteria_agent_steps_total Number of agent steps taken.
# TYPE bacteria_agent_steps_total counter
bacteria_agent_steps_total 30
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "bacteria_agent_steps_total"))
}
