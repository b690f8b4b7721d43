// Command replay summarizes and plays back a run saved by swim.
//
// Usage
//
//	replay [--view [--paused]] [--log-level level] file.h5
//
// The summary statistics of the trajectories are always logged.
// With --view, the recorded trajectories are replayed in an OpenGL window,
// one step per frame. With --paused, the replay only advances when the
// right arrow is pressed.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/golang/geo/r2"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/spf13/pflag"

	"github.com/sul31man/bacteria"
	"github.com/sul31man/bacteria/analysis"
	"github.com/sul31man/bacteria/hdf5"
	"github.com/sul31man/bacteria/logging"
	"github.com/sul31man/bacteria/opengl"
)

func init() {
	// Most OpenGL functions have to run from the main thread.
	runtime.LockOSThread()
}

func main() {
	fs := pflag.NewFlagSet("replay", pflag.ContinueOnError)
	view := fs.Bool("view", false, "replay the trajectories in an OpenGL window")
	paused := fs.Bool("paused", false, "step the replay manually with the right arrow")
	lvl := fs.String("log-level", "info", "log level: debug, info, warn or error")
	err := fs.Parse(os.Args[1:])
	if ierrors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		Fatal(err)
	}
	if fs.NArg() != 1 {
		Fatal(ierrors.Errorf("%d arguments provided (1 required)", fs.NArg()))
	}

	level, err := logging.ParseLevel(*lvl)
	if err != nil {
		Fatal(err)
	}
	logger := logging.New(os.Stderr, level)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		// restore the default handling: a second signal terminates at once
		<-ctx.Done()
		cancel()
	}()

	if err := run(ctx, fs.Arg(0), *view, *paused, logger); err != nil {
		Fatal(err)
	}
}

// Fatal prints an error on the standard output and exits with a non-zero status.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

func run(ctx context.Context, path string, view, paused bool, logger logging.Logger) (err error) {
	l, err := hdf5.NewLoader(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := l.Close(); err == nil {
			err = cerr
		}
	}()

	f, err := l.Field()
	if err != nil {
		return err
	}
	trajs, err := l.Trajectories()
	if err != nil {
		return err
	}

	s := analysis.Summarize(trajs, f)
	logger.Info("trajectories loaded", "path", path, "agents", len(trajs), "steps", l.Steps(),
		"points", s.Points, "mean_x", s.MeanX, "mean_y", s.MeanY,
		"std_x", s.StdX, "std_y", s.StdY, "downstream", s.Downstream)

	if !view {
		return nil
	}
	p := newPlayback(trajs)
	return opengl.Run(ctx, p, f, viewerConfig(p, f, paused))
}

// viewerConfig frames the whole domain with a small margin.
func viewerConfig(p *playback, f *bacteria.FlowField, paused bool) *opengl.Config {
	const margin = 0.05
	return &opengl.Config{
		Step:       p.step,
		ForcePause: paused,
		Xmin:       -margin * f.L,
		Ymin:       -margin * f.L,
		Xmax:       (1 + margin) * f.L,
		Ymax:       f.H + margin*f.L,
	}
}

// A playback reveals recorded trajectories one step at a time.
type playback struct {
	all [][]r2.Point
	out [][]r2.Point
	k   int // number of steps shown
	n   int // number of recorded steps
}

func newPlayback(trajs [][]r2.Point) *playback {
	p := &playback{all: trajs, out: make([][]r2.Point, len(trajs)), k: 1}
	if len(trajs) > 0 {
		p.n = len(trajs[0])
	}
	return p
}

// step shows one more step, restarting after the last one.
func (p *playback) step() {
	p.k++
	if p.k > p.n {
		p.k = 1
	}
}

// Trajectories implements opengl.Source.
func (p *playback) Trajectories() [][]r2.Point {
	for i, tr := range p.all {
		p.out[i] = tr[:min(p.k, len(tr))]
	}
	return p.out
}
