// Package analysis reduces trajectories and flow fields to the gridded data
// used for density maps, position histograms and velocity plots.
package analysis

import (
	"math"
	"sort"

	"github.com/golang/geo/r2"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"github.com/sul31man/bacteria"
)

// Default grid sizes.
const (
	DensityBinsX  = 50
	DensityBinsY  = 20
	HistogramBins = 50
	VelocityRes   = 100
)

// dividers returns n+1 evenly spaced bin edges over [lo, hi].
// The last edge is nudged up so that hi falls in the last bin.
func dividers(lo, hi float64, n int) []float64 {
	d := floats.Span(make([]float64, n+1), lo, hi)
	d[n] = math.Nextafter(hi, math.Inf(1))
	return d
}

// bin returns the index of the bin of div containing v.
func bin(div []float64, v float64) int {
	i := sort.SearchFloat64s(div, v)
	if i == len(div) || div[i] > v {
		i--
	}
	return i
}

// within reports whether p lies in [0, l]x[0, h].
func within(p r2.Point, l, h float64) bool {
	return p.X >= 0 && p.X <= l && p.Y >= 0 && p.Y <= h
}

// Density counts the trajectory points falling in each cell of an nx by ny
// grid over [0, l]x[0, h]. Row j of the result is the j-th band in y.
// Points outside the domain are ignored.
func Density(trajs [][]r2.Point, l, h float64, nx, ny int) *mat.Dense {
	xdiv := dividers(0, l, nx)
	ydiv := dividers(0, h, ny)

	// y values per column
	cols := make([][]float64, nx)
	for _, tr := range trajs {
		for _, p := range tr {
			if !within(p, l, h) {
				continue
			}
			i := bin(xdiv, p.X)
			cols[i] = append(cols[i], p.Y)
		}
	}

	m := mat.NewDense(ny, nx, nil)
	for i, ys := range cols {
		sort.Float64s(ys)
		m.SetCol(i, stat.Histogram(nil, ydiv, ys, nil))
	}
	return m
}

// Marginals returns histograms of the x and y coordinates of all
// trajectory points over [0, l] and [0, h] with the given number of bins.
func Marginals(trajs [][]r2.Point, l, h float64, bins int) (hx, hy []float64) {
	var xs, ys []float64
	for _, tr := range trajs {
		for _, p := range tr {
			if !within(p, l, h) {
				continue
			}
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
	}
	sort.Float64s(xs)
	sort.Float64s(ys)
	hx = stat.Histogram(nil, dividers(0, l, bins), xs, nil)
	hy = stat.Histogram(nil, dividers(0, h, bins), ys, nil)
	return hx, hy
}

// VelocityGrid samples the velocity magnitude of f on a res by res grid
// spanning the whole domain, walls included. Row j is the j-th value of y.
func VelocityGrid(f *bacteria.FlowField, res int) *mat.Dense {
	xs := floats.Span(make([]float64, res), 0, f.L)
	ys := floats.Span(make([]float64, res), 0, f.H)
	m := mat.NewDense(res, res, nil)
	for j, y := range ys {
		for i, x := range xs {
			m.Set(j, i, f.Velocity(x, y).Norm())
		}
	}
	return m
}

// Summary holds simple statistics over all trajectory points.
type Summary struct {
	Points     int
	MeanX      float64
	MeanY      float64
	StdX       float64
	StdY       float64
	Downstream float64 // fraction of final positions past the obstacle
}

// Summarize computes a Summary of trajs in field f.
func Summarize(trajs [][]r2.Point, f *bacteria.FlowField) Summary {
	var xs, ys []float64
	var past int
	for _, tr := range trajs {
		for _, p := range tr {
			xs = append(xs, p.X)
			ys = append(ys, p.Y)
		}
		if len(tr) > 0 && tr[len(tr)-1].X > f.Center.X+f.R {
			past++
		}
	}
	s := Summary{Points: len(xs)}
	if len(xs) == 0 {
		return s
	}
	s.MeanX, s.StdX = stat.MeanStdDev(xs, nil)
	s.MeanY, s.StdY = stat.MeanStdDev(ys, nil)
	s.Downstream = float64(past) / float64(len(trajs))
	return s
}
