// Package opengl displays simulations interactively.
//
// Space pauses and resumes, the right arrow performs a single step while
// paused, R resets the view, scrolling zooms and Esc quits.
// Building with the nogl tag replaces the viewer with a stub.
package opengl

import "github.com/golang/geo/r2"

// A Source provides the trajectories to draw.
type Source interface {
	Trajectories() [][]r2.Point
}

// Config holds the parameters of the OpenGL driver.
type Config struct {
	Step       func() // go to next step, nil for a static source
	ForcePause bool   // step manually only?

	// bounds of default viewport
	Xmin float64
	Ymin float64
	Xmax float64
	Ymax float64
}
