package bacteria

import (
	"math"
	"testing"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/rand"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

func TestNewAgentPlacement(t *testing.T) {
	f := channel()
	rng := newRand(1)
	for i := 0; i < 200; i++ {
		a, err := NewAgent(f, 0.0001, rng)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, a.Pos.X, 0.0)
		assert.Less(t, a.Pos.X, 0.2*f.L)
		assert.GreaterOrEqual(t, a.Pos.Y, 0.0)
		assert.Less(t, a.Pos.Y, f.H)
		assert.False(t, f.IsInsideObstacle(a.Pos.X, a.Pos.Y))
		assert.GreaterOrEqual(t, a.Dir, 0.0)
		assert.Less(t, a.Dir, 2*math.Pi)
		assert.Equal(t, DefaultNoise, a.SigmaNoise)
		require.Len(t, a.Trajectory(), 1)
		assert.Equal(t, a.Pos, a.Trajectory()[0])
	}
}

func TestNewAgentOptions(t *testing.T) {
	f := channel()
	a, err := NewAgent(f, 0.5, newRand(1), WithStart(0.7, 0.3), WithDir(1.25), WithNoise(0))
	require.NoError(t, err)
	assert.Equal(t, 0.7, a.Pos.X)
	assert.Equal(t, 0.3, a.Pos.Y)
	assert.Equal(t, 1.25, a.Dir)
	assert.Equal(t, 0.5, a.Speed)
	assert.Zero(t, a.SigmaNoise)
	assert.Same(t, f, a.Field())
}

func TestNewAgentExhaustedPlacement(t *testing.T) {
	// the obstacle covers the whole starting band
	f := NewFlowField(1, 1, 0.1, 0.5, 10)
	_, err := NewAgent(f, 0.0001, newRand(1))
	require.Error(t, err)
	assert.True(t, ierrors.Is(err, ErrExhaustedInitialPlacement))

	// an explicit start skips placement
	_, err = NewAgent(f, 0.0001, newRand(1), WithStart(5, 5))
	require.NoError(t, err)
}

func TestAdvanceTrajectory(t *testing.T) {
	f := channel()
	a, err := NewAgent(f, 0.0001, newRand(7))
	require.NoError(t, err)
	start := a.Pos

	for k := 1; k <= 100; k++ {
		p := a.Advance(0.001)
		require.Len(t, a.Trajectory(), k+1)
		assert.Equal(t, p, a.Trajectory()[k])
		assert.Equal(t, p, a.Pos)
	}
	assert.Equal(t, start, a.Trajectory()[0])
}

func TestAdvanceSingleStep(t *testing.T) {
	f := channel()
	a, err := NewAgent(f, 0, newRand(1), WithStart(0, 0.2), WithDir(0), WithNoise(0))
	require.NoError(t, err)

	u := f.Velocity(0, 0.2)
	p := a.Advance(0.001)

	assert.InDelta(t, u.X*0.001, p.X, 1e-15)
	assert.InDelta(t, 0.2+u.Y*0.001, p.Y, 1e-15)
	assert.False(t, math.IsNaN(p.X) || math.IsInf(p.X, 0))
	assert.False(t, math.IsNaN(p.Y) || math.IsInf(p.Y, 0))
	assert.GreaterOrEqual(t, p.Y, 0.0)
	assert.LessOrEqual(t, p.Y, f.H)
}

func TestAdvanceJefferyRotation(t *testing.T) {
	// sheared point near the bottom wall, downstream of the obstacle
	const (
		x, y  = 0.3, 0.1
		theta = 0.7
		dt    = 0.01
	)
	f := channel()
	a, err := NewAgent(f, 0, newRand(1), WithStart(x, y), WithDir(theta), WithNoise(0))
	require.NoError(t, err)

	D, W := f.StrainRateTensor(x, y), f.VorticityTensor(x, y)
	require.NotZero(t, D[0][1])
	require.NotZero(t, W[0][1])

	ex, ey := math.Cos(theta), math.Sin(theta)
	dex, dey := D[0][0]*ex+D[0][1]*ey, D[1][0]*ex+D[1][1]*ey
	eDe := ex*dex + ey*dey
	rx := W[0][0]*ex + W[0][1]*ey + (dex-ex*eDe)*0.5
	ry := W[1][0]*ex + W[1][1]*ey + (dey-ey*eDe)*0.5
	want := theta + math.Atan2(ry, rx)*dt

	a.Advance(dt)
	assert.InDelta(t, want, a.Dir, 1e-12)
	assert.Greater(t, math.Abs(a.Dir-theta), 1e-4)
}

func TestAdvanceLeftWall(t *testing.T) {
	f := channel()
	for seed := uint64(1); seed <= 20; seed++ {
		s := new(Stats)
		a, err := NewAgent(f, 10, newRand(seed), WithStart(0.001, 0.3), WithDir(math.Pi), WithNoise(0), WithStats(s))
		require.NoError(t, err)

		p := a.Advance(0.001)
		assert.Equal(t, 0.0, p.X)
		assert.Greater(t, p.Y, 0.0)
		assert.Less(t, p.Y, f.H)
		assert.GreaterOrEqual(t, a.Dir, -math.Pi/2)
		assert.Less(t, a.Dir, math.Pi/2)
		assert.Equal(t, uint64(1), s.Snapshot().WallHitsX)
	}
}

func TestAdvanceWalls(t *testing.T) {
	f := channel()
	tests := []struct {
		name     string
		x, y     float64
		dir      float64
		wantX    float64
		wantY    float64
		min, max float64
	}{
		{"right", f.L - 0.001, 0.2, 0, f.L, math.NaN(), math.Pi / 2, 3 * math.Pi / 2},
		{"bottom", 1, 0.001, -math.Pi / 2, math.NaN(), 0, 0, math.Pi},
		{"top", 1, f.H - 0.001, math.Pi / 2, math.NaN(), f.H, math.Pi, 2 * math.Pi},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := NewAgent(f, 10, newRand(3), WithStart(tt.x, tt.y), WithDir(tt.dir), WithNoise(0))
			require.NoError(t, err)
			p := a.Advance(0.001)
			if !math.IsNaN(tt.wantX) {
				assert.Equal(t, tt.wantX, p.X)
			}
			if !math.IsNaN(tt.wantY) {
				assert.Equal(t, tt.wantY, p.Y)
			}
			assert.GreaterOrEqual(t, a.Dir, tt.min)
			assert.Less(t, a.Dir, tt.max)
		})
	}
}

func TestAdvanceCornerRedrawsTwice(t *testing.T) {
	f := channel()
	s := new(Stats)
	a, err := NewAgent(f, 10, newRand(5), WithStart(0.001, 0.001), WithDir(-3*math.Pi/4), WithNoise(0), WithStats(s))
	require.NoError(t, err)

	p := a.Advance(0.001)
	assert.Equal(t, 0.0, p.X)
	assert.Equal(t, 0.0, p.Y)

	// the bottom wall is resolved last
	assert.GreaterOrEqual(t, a.Dir, 0.0)
	assert.Less(t, a.Dir, math.Pi)
	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.WallHitsX)
	assert.Equal(t, uint64(1), snap.WallHitsY)
}

func TestAdvanceObstacleReflection(t *testing.T) {
	f := channel()
	s := new(Stats)
	a, err := NewAgent(f, 30, newRand(1), WithStart(0.14, 0.2), WithDir(0), WithNoise(0), WithStats(s))
	require.NoError(t, err)

	p := a.Advance(0.001)
	assert.False(t, f.IsInsideObstacle(p.X, p.Y))

	// pushed back out along the normal by speed*dt
	assert.InDelta(t, 0.14-0.03, p.X, 1e-3)
	assert.InDelta(t, 0.2, p.Y, 1e-3)
	assert.Less(t, math.Cos(a.Dir), 0.0)

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Reflections)
	assert.Zero(t, snap.Freezes)
	assert.Equal(t, uint64(1), snap.Steps)
}

func TestAdvanceObstacleSlide(t *testing.T) {
	f := channel()
	s := new(Stats)

	// overshoots into the far half of the obstacle, moving away from its center
	a, err := NewAgent(f, 100, newRand(1), WithStart(0.14, 0.2), WithDir(0), WithNoise(0), WithStats(s))
	require.NoError(t, err)

	p := a.Advance(0.001)
	assert.False(t, f.IsInsideObstacle(p.X, p.Y))
	assert.InDelta(t, 0.14, p.X, 1e-3)
	assert.Equal(t, uint64(1), s.Snapshot().Slides)
}

func TestAdvanceObstacleGrazingSlideStaysPut(t *testing.T) {
	f := NewFlowField(4, 2, 1, 1, 0.5)
	s := new(Stats)

	// cuts a shallow chord across the top of the obstacle
	a, err := NewAgent(f, 100, newRand(1), WithStart(0.9, 1.49), WithDir(0.05), WithNoise(0), WithStats(s))
	require.NoError(t, err)
	require.False(t, f.IsInsideObstacle(0.9, 1.49))

	p := a.Advance(0.001)
	assert.Equal(t, 0.9, p.X)
	assert.Equal(t, 1.49, p.Y)
	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Freezes)
	assert.Zero(t, snap.Slides)
	assert.Zero(t, snap.Reflections)
}

func TestAdvanceNeverEntersObstacle(t *testing.T) {
	f := channel()
	for seed := uint64(1); seed <= 10; seed++ {
		a, err := NewAgent(f, 0.5, newRand(seed), WithStart(0.1, 0.2+0.01*float64(seed)-0.05))
		require.NoError(t, err)
		for k := 0; k < 2000; k++ {
			p := a.Advance(0.001)
			require.False(t, f.IsInsideObstacle(p.X, p.Y), "seed %d step %d at %v", seed, k, p)
			require.GreaterOrEqual(t, p.X, 0.0)
			require.LessOrEqual(t, p.X, f.L)
			require.GreaterOrEqual(t, p.Y, 0.0)
			require.LessOrEqual(t, p.Y, f.H)
		}
	}
}

func TestAdvanceDeterministic(t *testing.T) {
	f := channel()
	a, err := NewAgent(f, 0.01, newRand(42))
	require.NoError(t, err)
	b, err := NewAgent(f, 0.01, newRand(42))
	require.NoError(t, err)
	for k := 0; k < 500; k++ {
		a.Advance(0.001)
		b.Advance(0.001)
	}
	assert.Equal(t, a.Trajectory(), b.Trajectory())
	assert.Equal(t, a.Dir, b.Dir)
}
