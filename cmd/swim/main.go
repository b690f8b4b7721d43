// Command swim runs bacteria: microswimmers advected by a channel flow
// past a circular obstacle.
//
// Usage
//
//	swim [--config file.toml] [flags]
//
// Parameters come from the defaults, then the TOML config file if any,
// then the flags explicitly given on the command line.
// When the output is empty, the simulation runs interactively in an
// OpenGL window instead of being saved to an HDF5 file.
//
// Interactive mode
//
// In interactive mode, the simulation can be paused/resumed with space.
// While in pause, pressing right arrow will perform a single step.
// R resets the view, scrolling zooms in and out.
// Pressing Esc or closing the window will quit.
//
// HDF5 output
//
// The output file holds the positions of all agents at every step, the
// domain geometry, the density and marginal histograms of the trajectories,
// the flow velocity magnitude on a grid, and the configuration as
// attributes of the "config" dataset.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"runtime"
	"syscall"

	"github.com/iotaledger/hive.go/ierrors"
	"github.com/iotaledger/hive.go/runtime/options"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/pflag"

	"github.com/sul31man/bacteria"
	"github.com/sul31man/bacteria/logging"
	"github.com/sul31man/bacteria/metrics"
)

func init() {
	// Most OpenGL functions have to run from the main thread.
	// This is needed to arrange that main() runs on main thread.
	// See https://github.com/golang/go/wiki/LockOSThread for more info.
	runtime.LockOSThread()
}

func main() {
	conf, err := Load(os.Args[1:])
	if ierrors.Is(err, pflag.ErrHelp) {
		return
	}
	if err != nil {
		Fatal(err)
	}

	level, err := logging.ParseLevel(conf.LogLevel)
	if err != nil {
		Fatal(err)
	}
	logger := logging.New(os.Stderr, level)

	sim, err := setup(conf, logger)
	if err != nil {
		Fatal(err)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()
	go func() {
		// restore the default handling: a second signal terminates at once
		<-ctx.Done()
		cancel()
	}()

	if conf.Metrics != "" {
		reg := prometheus.NewRegistry()
		reg.MustRegister(metrics.NewCollector(sim.Stats))
		go func() {
			if err := metrics.Serve(ctx, conf.Metrics, reg); err != nil {
				logger.Error("metrics endpoint stopped", "err", err)
			}
		}()
		logger.Info("serving metrics", "addr", conf.Metrics)
	}

	// run interactively or not depending on config
	if conf.Output == "" {
		err = RunOpenGL(ctx, conf, sim)
	} else {
		err = RunHDF5(ctx, conf, sim, logger)
	}
	if err != nil {
		Fatal(err)
	}
}

// Fatal prints an error on the standard output and exits with a non-zero status.
func Fatal(err error) {
	fmt.Fprintf(os.Stderr, "Error: %s\n", err)
	os.Exit(1)
}

// setup builds the flow field and places all agents.
func setup(conf *Config, logger logging.Logger) (*bacteria.Simulation, error) {
	f := bacteria.NewFlowField(conf.Length, conf.Height, conf.ObstacleX, conf.ObstacleY, conf.ObstacleRadius)

	opts := []options.Option[bacteria.Simulation]{
		bacteria.WithLogger(logger),
		bacteria.WithAgentOptions(bacteria.WithNoise(conf.RotationalNoise)),
	}
	if conf.Seed != 0 {
		opts = append(opts, bacteria.WithSeed(conf.Seed))
	}
	return bacteria.NewSimulation(f, conf.NumBacteria, conf.Speed, opts...)
}
