package hdf5

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/hdf5"

	"github.com/sul31man/bacteria"
)

type meta struct {
	Agents int
	Dt     float64
	Note   string
}

func TestRunAndLoad(t *testing.T) {
	f := bacteria.NewFlowField(2.2, 0.41, 0.2, 0.2, 0.05)
	s, err := bacteria.NewSimulation(f, 4, 0.0001, bacteria.WithSeed(8))
	require.NoError(t, err)

	const steps = 25
	path := filepath.Join(t.TempDir(), "out", "run.h5")
	err = Run(context.Background(), s, &Config{
		Output:   path,
		Steps:    steps,
		Step:     func() { s.Step(0.001) },
		Meta:     &meta{Agents: 4, Dt: 0.001, Note: "test"},
		Datasets: []*Dataset{Positions(4)},
		Summaries: []*Summary{{
			Name: "mean_x",
			Dims: []int{1},
			Data: func(s *bacteria.Simulation) []float64 {
				var m float64
				for _, p := range s.Positions() {
					m += p.X / 4
				}
				return []float64{m}
			},
		}},
	})
	require.NoError(t, err)
	assert.Equal(t, steps, s.Steps())

	l, err := NewLoader(path)
	require.NoError(t, err)
	defer func() { require.NoError(t, l.Close()) }()

	assert.Equal(t, steps+1, l.Steps())

	trajs, err := l.Trajectories()
	require.NoError(t, err)
	assert.Equal(t, s.Trajectories(), trajs)

	g, err := l.Field()
	require.NoError(t, err)
	assert.Equal(t, *f, *g)

	// loading cycles back to the first step
	p, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, s.Trajectories()[2][0], p[2])
}

// seeded mimics a command config holding a requested seed.
type seeded struct {
	Seed  uint64
	Steps int
}

func TestRunMetaSharesAttributeName(t *testing.T) {
	f := bacteria.NewFlowField(2.2, 0.41, 0.2, 0.2, 0.05)
	s, err := bacteria.NewSimulation(f, 2, 0.0001, bacteria.WithSeed(42))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "run.h5")
	err = Run(context.Background(), s, &Config{
		Output:   path,
		Steps:    3,
		Step:     func() { s.Step(0.001) },
		Meta:     &seeded{Seed: 0, Steps: 3},
		Datasets: []*Dataset{Positions(2)},
	})
	require.NoError(t, err)

	file, err := hdf5.OpenFile(path, hdf5.F_ACC_RDONLY)
	require.NoError(t, err)
	defer file.Close()
	dset, err := file.OpenDataset(ConfigName)
	require.NoError(t, err)
	defer dset.Close()
	attr, err := dset.OpenAttribute("Seed")
	require.NoError(t, err)
	defer attr.Close()

	var seed uint64
	require.NoError(t, attr.Read(&seed, hdf5.T_NATIVE_UINT64))
	assert.Equal(t, uint64(42), seed, "the effective seed is recorded")
}

func TestRunCanceled(t *testing.T) {
	f := bacteria.NewFlowField(2.2, 0.41, 0.2, 0.2, 0.05)
	s, err := bacteria.NewSimulation(f, 2, 0.0001, bacteria.WithSeed(1))
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	steps := 0
	err = Run(ctx, s, &Config{
		Output: filepath.Join(t.TempDir(), "run.h5"),
		Steps:  10,
		Step: func() {
			s.Step(0.001)
			if steps++; steps == 4 {
				cancel()
			}
		},
		Datasets: []*Dataset{Positions(2)},
	})
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 4, s.Steps())
}
