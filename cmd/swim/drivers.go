package main

import (
	"context"

	"github.com/iotaledger/hive.go/ierrors"

	"github.com/sul31man/bacteria"
	"github.com/sul31man/bacteria/analysis"
	"github.com/sul31man/bacteria/hdf5"
	"github.com/sul31man/bacteria/logging"
	"github.com/sul31man/bacteria/opengl"
)

// RunHDF5 runs a simulation and saves data to an HDF5 file.
func RunHDF5(ctx context.Context, conf *Config, sim *bacteria.Simulation, logger logging.Logger) error {
	var stepErr error
	step := func() { sim.Step(conf.Dt) }
	if conf.Workers > 1 {
		step = func() {
			if stepErr == nil {
				stepErr = sim.StepParallel(ctx, conf.Dt, conf.Workers)
			}
		}
	}

	err := hdf5.Run(ctx, sim, &hdf5.Config{
		Output:    conf.Output,
		Steps:     conf.Steps,
		Step:      step,
		Meta:      conf,
		Datasets:  []*hdf5.Dataset{hdf5.Positions(conf.NumBacteria)},
		Summaries: summaries(conf),
		Logger:    logger,
	})
	if err != nil {
		return err
	}
	if stepErr != nil {
		return ierrors.Wrap(stepErr, "results are incomplete")
	}
	logger.Info("simulation completed", "id", sim.ID, "stats", sim.Stats.Snapshot())
	return nil
}

// summaries returns the analysis datasets written after the last step.
func summaries(conf *Config) []*hdf5.Summary {
	return []*hdf5.Summary{
		{
			Name: "density",
			Dims: []int{analysis.DensityBinsY, analysis.DensityBinsX},
			Data: func(s *bacteria.Simulation) []float64 {
				d := analysis.Density(s.Trajectories(), conf.Length, conf.Height, analysis.DensityBinsX, analysis.DensityBinsY)
				return d.RawMatrix().Data
			},
		},
		{
			Name: "hist_x",
			Dims: []int{analysis.HistogramBins},
			Data: func(s *bacteria.Simulation) []float64 {
				hx, _ := analysis.Marginals(s.Trajectories(), conf.Length, conf.Height, analysis.HistogramBins)
				return hx
			},
		},
		{
			Name: "hist_y",
			Dims: []int{analysis.HistogramBins},
			Data: func(s *bacteria.Simulation) []float64 {
				_, hy := analysis.Marginals(s.Trajectories(), conf.Length, conf.Height, analysis.HistogramBins)
				return hy
			},
		},
		{
			Name: "velocity",
			Dims: []int{analysis.VelocityRes, analysis.VelocityRes},
			Data: func(s *bacteria.Simulation) []float64 {
				return analysis.VelocityGrid(s.Field, analysis.VelocityRes).RawMatrix().Data
			},
		},
	}
}

// RunOpenGL runs a simulation interactively in an OpenGL window until it
// is closed or ctx is canceled.
func RunOpenGL(ctx context.Context, conf *Config, sim *bacteria.Simulation) error {
	const margin = 0.05
	return opengl.Run(ctx, sim, sim.Field, &opengl.Config{
		Step: func() { sim.Step(conf.Dt) },
		Xmin: -margin * conf.Length,
		Ymin: -margin * conf.Length,
		Xmax: (1 + margin) * conf.Length,
		Ymax: conf.Height + margin*conf.Length,
	})
}
