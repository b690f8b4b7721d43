package bacteria

import "go.uber.org/atomic"

// Stats counts the events resolved while stepping agents.
// It is safe for concurrent use; a nil *Stats discards everything.
type Stats struct {
	// The number of agent steps taken.
	Steps atomic.Uint64
	// The number of steps where an agent heading into the obstacle was reflected.
	Reflections atomic.Uint64
	// The number of obstacle hits where the resolved position was itself
	// inside the obstacle and the agent stayed put.
	Freezes atomic.Uint64
	// The number of steps where an agent slid along the obstacle boundary.
	Slides atomic.Uint64
	// The number of clamps against the left or right wall.
	WallHitsX atomic.Uint64
	// The number of clamps against the bottom or top wall.
	WallHitsY atomic.Uint64
}

// Snapshot is a plain copy of the counters in Stats.
type Snapshot struct {
	Steps       uint64
	Reflections uint64
	Freezes     uint64
	Slides      uint64
	WallHitsX   uint64
	WallHitsY   uint64
}

// Snapshot returns the current value of all counters.
func (s *Stats) Snapshot() Snapshot {
	if s == nil {
		return Snapshot{}
	}
	return Snapshot{
		Steps:       s.Steps.Load(),
		Reflections: s.Reflections.Load(),
		Freezes:     s.Freezes.Load(),
		Slides:      s.Slides.Load(),
		WallHitsX:   s.WallHitsX.Load(),
		WallHitsY:   s.WallHitsY.Load(),
	}
}

func (s *Stats) inc(c func(*Stats) *atomic.Uint64) {
	if s != nil {
		c(s).Inc()
	}
}

func steps(s *Stats) *atomic.Uint64       { return &s.Steps }
func reflections(s *Stats) *atomic.Uint64 { return &s.Reflections }
func freezes(s *Stats) *atomic.Uint64     { return &s.Freezes }
func slides(s *Stats) *atomic.Uint64      { return &s.Slides }
func wallHitsX(s *Stats) *atomic.Uint64   { return &s.WallHitsX }
func wallHitsY(s *Stats) *atomic.Uint64   { return &s.WallHitsY }
