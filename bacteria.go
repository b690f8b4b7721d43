// Package bacteria simulates self-propelled rod-like swimmers in a
// two-dimensional channel flow around a circular obstacle.
//
// The flow is a closed-form approximation. Each agent rotates according to
// Jeffery's equation with rotational noise, is advected by the flow, swims
// along its orientation, and is reflected by the obstacle and clamped by the
// channel walls. Agents do not interact with each other.
package bacteria

import (
	"context"
	"time"

	"github.com/golang/geo/r2"
	"github.com/google/uuid"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
	"golang.org/x/exp/rand"
	"golang.org/x/sync/errgroup"

	"github.com/sul31man/bacteria/logging"
)

// A Simulation contains a set of independent agents sharing one flow field.
type Simulation struct {
	ID     uuid.UUID
	Seed   uint64
	Field  *FlowField
	Agents []*Agent
	Stats  *Stats

	logger     logging.Logger
	agentOpts  []options.Option[Agent]
	seeded     bool
	stepsTaken int
}

// NewSimulation places n agents swimming at the given speed in f.
// Every agent draws from its own random stream, derived in agent order
// from the simulation seed, so results only depend on the seed.
func NewSimulation(f *FlowField, n int, speed float64, opts ...options.Option[Simulation]) (*Simulation, error) {
	s := options.Apply(&Simulation{
		ID:     uuid.New(),
		Field:  f,
		Stats:  new(Stats),
		logger: logging.NoOpLogger{},
	}, opts)

	if !s.seeded {
		s.Seed = uint64(time.Now().UnixNano())
	}

	master := rand.New(rand.NewSource(s.Seed))
	agentOpts := append([]options.Option[Agent]{WithStats(s.Stats)}, s.agentOpts...)
	s.Agents = make([]*Agent, n)
	for i := range s.Agents {
		rng := rand.New(rand.NewSource(master.Uint64()))
		a, err := NewAgent(f, speed, rng, agentOpts...)
		if err != nil {
			return nil, ierrors.Wrapf(err, "failed to place agent %d", i)
		}
		s.Agents[i] = a
	}

	s.logger.Info("simulation initialized", "id", s.ID, "agents", n, "seed", s.Seed)
	return s, nil
}

// WithSeed sets the seed of the simulation.
func WithSeed(seed uint64) options.Option[Simulation] {
	return func(s *Simulation) {
		s.Seed = seed
		s.seeded = true
	}
}

// WithLogger sets the logger used to report progress. A nil logger discards everything.
func WithLogger(l logging.Logger) options.Option[Simulation] {
	return func(s *Simulation) {
		if l == nil {
			l = logging.NoOpLogger{}
		}
		s.logger = l
	}
}

// WithAgentOptions applies opts to every agent of the simulation.
func WithAgentOptions(opts ...options.Option[Agent]) options.Option[Simulation] {
	return func(s *Simulation) {
		s.agentOpts = append(s.agentOpts, opts...)
	}
}

// Step advances every agent by dt, in agent order.
func (s *Simulation) Step(dt float64) {
	for _, a := range s.Agents {
		a.Advance(dt)
	}
	s.stepsTaken++
}

// Steps returns the number of ticks taken so far.
func (s *Simulation) Steps() int {
	return s.stepsTaken
}

// Run advances all agents by steps ticks of duration dt,
// reporting progress every tenth of the run.
func (s *Simulation) Run(steps int, dt float64) {
	s.logger.Info("running simulation", "id", s.ID, "steps", steps, "dt", dt)
	every := max(1, steps/10)
	for i := 0; i < steps; i++ {
		s.Step(dt)
		if (i+1)%every == 0 {
			s.logger.Info("progress", "step", i+1, "steps", steps, "percent", 100*float64(i+1)/float64(steps))
		}
	}
	s.logger.Info("simulation completed", "id", s.ID, "stats", s.Stats.Snapshot())
}

// RunParallel is like Run but advances agents concurrently, using at most
// workers goroutines (no limit if workers <= 0). Trajectories are identical
// to those of Run for the same seed. It stops early if ctx is canceled.
func (s *Simulation) RunParallel(ctx context.Context, steps int, dt float64, workers int) error {
	s.logger.Info("running simulation", "id", s.ID, "steps", steps, "dt", dt, "workers", workers)
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, a := range s.Agents {
		a := a
		g.Go(func() error {
			for i := 0; i < steps; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				a.Advance(dt)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ierrors.Wrap(err, "parallel run interrupted")
	}
	s.stepsTaken += steps
	s.logger.Info("simulation completed", "id", s.ID, "stats", s.Stats.Snapshot())
	return nil
}

// StepParallel is like Step but advances agents concurrently,
// using at most workers goroutines.
func (s *Simulation) StepParallel(ctx context.Context, dt float64, workers int) error {
	g, ctx := errgroup.WithContext(ctx)
	if workers > 0 {
		g.SetLimit(workers)
	}
	for _, a := range s.Agents {
		a := a
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			a.Advance(dt)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ierrors.Wrapf(err, "step %d interrupted", s.stepsTaken+1)
	}
	s.stepsTaken++
	return nil
}

// Positions returns the current position of every agent.
func (s *Simulation) Positions() []r2.Point {
	p := make([]r2.Point, len(s.Agents))
	for i, a := range s.Agents {
		p[i] = a.Pos
	}
	return p
}

// Trajectories returns the trajectory of every agent.
// The returned slices must not be modified.
func (s *Simulation) Trajectories() [][]r2.Point {
	t := make([][]r2.Point, len(s.Agents))
	for i, a := range s.Agents {
		t[i] = a.Trajectory()
	}
	return t
}
