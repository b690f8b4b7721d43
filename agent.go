package bacteria

import (
	"math"
	"time"

	"github.com/golang/geo/r2"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
	"golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	// DefaultNoise is the default rotational noise amplitude.
	DefaultNoise = 0.1

	// MaxPlacementTries bounds the rejection sampling of initial positions.
	MaxPlacementTries = 10000

	// startBand is the fraction of the domain length where agents are placed.
	startBand = 0.2
)

// ErrExhaustedInitialPlacement is returned when no initial position outside
// the obstacle could be drawn within MaxPlacementTries attempts.
var ErrExhaustedInitialPlacement = ierrors.New("exhausted initial placement")

// State contains the kinematic state of an agent.
type State struct {
	Pos r2.Point // position in domain units
	Dir float64  // orientation in radians, never wrapped
}

// Parameters contains the parameters of an agent.
type Parameters struct {
	Speed      float64 // self-propulsion speed
	SigmaNoise float64 // rotational noise per square root of unit time
}

// An Agent is a self-propelled rod advected by a FlowField.
type Agent struct {
	State
	Parameters

	field      *FlowField
	rng        *rand.Rand
	stats      *Stats
	trajectory []r2.Point

	start    *r2.Point
	startDir *float64
}

// NewAgent returns an agent swimming at the given speed in f.
// Unless set through options, its position is drawn uniformly in the left
// part of the domain outside the obstacle and its orientation uniformly
// in [0, 2π). A nil rng is replaced by a time-seeded one.
func NewAgent(f *FlowField, speed float64, rng *rand.Rand, opts ...options.Option[Agent]) (*Agent, error) {
	if rng == nil {
		rng = rand.New(rand.NewSource(uint64(time.Now().UnixNano())))
	}

	a := options.Apply(&Agent{
		Parameters: Parameters{
			Speed:      speed,
			SigmaNoise: DefaultNoise,
		},
		field: f,
		rng:   rng,
	}, opts)

	if a.start != nil {
		a.Pos = *a.start
	} else {
		pos, err := a.place()
		if err != nil {
			return nil, err
		}
		a.Pos = pos
	}

	if a.startDir != nil {
		a.Dir = *a.startDir
	} else {
		a.Dir = a.uniform(0, 2*math.Pi)
	}

	a.trajectory = []r2.Point{a.Pos}
	return a, nil
}

// WithStart sets the initial position of the agent.
func WithStart(x, y float64) options.Option[Agent] {
	return func(a *Agent) {
		a.start = &r2.Point{X: x, Y: y}
	}
}

// WithDir sets the initial orientation of the agent.
func WithDir(θ float64) options.Option[Agent] {
	return func(a *Agent) {
		a.startDir = &θ
	}
}

// WithNoise sets the rotational noise amplitude. Zero disables noise.
func WithNoise(σ float64) options.Option[Agent] {
	return func(a *Agent) {
		a.SigmaNoise = σ
	}
}

// WithStats makes the agent record its collision events in s.
func WithStats(s *Stats) options.Option[Agent] {
	return func(a *Agent) {
		a.stats = s
	}
}

// place draws a position in the starting band that is outside the obstacle.
func (a *Agent) place() (r2.Point, error) {
	f := a.field
	for i := 0; i < MaxPlacementTries; i++ {
		x := a.uniform(0, f.L*startBand)
		y := a.uniform(0, f.H)
		if !f.IsInsideObstacle(x, y) {
			return r2.Point{X: x, Y: y}, nil
		}
	}
	return r2.Point{}, ierrors.Wrapf(ErrExhaustedInitialPlacement, "no position found after %d draws", MaxPlacementTries)
}

// Field returns the flow field the agent swims in.
func (a *Agent) Field() *FlowField {
	return a.field
}

// Trajectory returns all positions visited by the agent, starting with
// the initial one. The returned slice must not be modified.
func (a *Agent) Trajectory() []r2.Point {
	return a.trajectory
}

// Advance moves the agent by one time step dt and returns its new position.
func (a *Agent) Advance(dt float64) r2.Point {
	f := a.field
	x, y := a.Pos.X, a.Pos.Y
	u := f.Velocity(x, y)
	g := f.Gradient(x, y)
	D, W := g.StrainRate(), g.Vorticity()

	// Jeffery's equation; the angle of the director change is used as a rate
	e := r2.Point{X: math.Cos(a.Dir), Y: math.Sin(a.Dir)}
	De := D.Apply(e)
	de := W.Apply(e).Add(De.Sub(e.Mul(e.Dot(De))).Mul(0.5))
	rate := math.Atan2(de.Y, de.X)
	a.Dir = a.Dir + rate*dt + a.normal(a.SigmaNoise*math.Sqrt(dt))

	// advection plus self-propulsion
	sin, cos := math.Sincos(a.Dir)
	nx := x + u.X*dt + a.Speed*cos*dt
	ny := y + u.Y*dt + a.Speed*sin*dt

	if f.IsInsideObstacle(nx, ny) {
		self := r2.Point{X: a.Speed * cos, Y: a.Speed * sin}
		a.collide(u.Add(self), f.ObstacleNormal(nx, ny), dt)
	} else {
		a.clamp(nx, ny)
	}

	a.stats.inc(steps)
	a.trajectory = append(a.trajectory, a.Pos)
	return a.Pos
}

// collide resolves a step that would end inside the obstacle,
// given the total velocity and the outward normal at the tentative position.
func (a *Agent) collide(vel, n r2.Point, dt float64) {
	f := a.field
	vn := vel.Dot(n)
	if vn < 0 {
		// reflect and back away from the obstacle
		vel = vel.Sub(n.Mul(2 * vn))
		a.Dir = math.Atan2(vel.Y, vel.X)
		a.stats.inc(reflections)

		d := a.Speed * dt
		safe := r2.Point{X: a.Pos.X + n.X*d, Y: a.Pos.Y + n.Y*d}
		if f.IsInsideObstacle(safe.X, safe.Y) {
			a.stats.inc(freezes)
			return
		}
		a.Pos = safe
		return
	}

	// slide along the boundary; a grazing slide can end up inside,
	// in which case the agent stays put like a rejected nudge
	t := n.Ortho()
	vt := vel.Dot(t)
	slid := r2.Point{X: a.Pos.X + vt*t.X*dt, Y: a.Pos.Y + vt*t.Y*dt}
	if f.IsInsideObstacle(slid.X, slid.Y) {
		a.stats.inc(freezes)
		return
	}
	a.Pos = slid
	a.stats.inc(slides)
}

// clamp keeps a tentative position inside the domain walls and turns
// the agent away from any wall it hit. The y walls are checked last.
func (a *Agent) clamp(x, y float64) {
	f := a.field
	if x < 0 {
		x = 0
		a.Dir = a.uniform(-math.Pi/2, math.Pi/2)
		a.stats.inc(wallHitsX)
	}
	if x > f.L {
		x = f.L
		a.Dir = a.uniform(math.Pi/2, 3*math.Pi/2)
		a.stats.inc(wallHitsX)
	}
	if y < 0 {
		y = 0
		a.Dir = a.uniform(0, math.Pi)
		a.stats.inc(wallHitsY)
	}
	if y > f.H {
		y = f.H
		a.Dir = a.uniform(math.Pi, 2*math.Pi)
		a.stats.inc(wallHitsY)
	}
	a.Pos = r2.Point{X: x, Y: y}
}

func (a *Agent) uniform(min, max float64) float64 {
	return distuv.Uniform{Min: min, Max: max, Src: a.rng}.Rand()
}

func (a *Agent) normal(σ float64) float64 {
	return distuv.Normal{Mu: 0, Sigma: σ, Src: a.rng}.Rand()
}
