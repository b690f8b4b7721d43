package main

import (
	"github.com/BurntSushi/toml"
	"github.com/iotaledger/hive.go/ierrors"
	"github.com/spf13/pflag"
)

// Config holds the various parameters required for running a simulation.
// Fields must stay scalar: they are saved as HDF5 attributes.
type Config struct {
	// Output is either a filename (path) for the HDF5 output file,
	// or the empty string for an interactive OpenGL simulation.
	Output string `toml:"output"`

	NumBacteria int     `toml:"num_bacteria"` // number of agents
	Steps       int     `toml:"steps"`        // number of time steps (hdf5 only)
	Dt          float64 `toml:"dt"`           // duration of time steps
	Seed        uint64  `toml:"seed"`         // 0 picks a seed from the clock
	Workers     int     `toml:"workers"`      // agents stepped concurrently, 1 for sequential

	// Agent parameters
	Speed           float64 `toml:"bacteria_speed"`   // unit: length/time
	RotationalNoise float64 `toml:"rotational_noise"` // unit: rad/sqrt(time)

	// Domain and obstacle geometry
	Length         float64 `toml:"length"`
	Height         float64 `toml:"height"`
	ObstacleX      float64 `toml:"obstacle_x"`
	ObstacleY      float64 `toml:"obstacle_y"`
	ObstacleRadius float64 `toml:"obstacle_radius"`

	// Ambient
	Metrics  string `toml:"metrics"`   // address of the Prometheus endpoint, empty to disable
	LogLevel string `toml:"log_level"` // debug, info, warn or error
}

// DefaultConf returns the default parameters.
func DefaultConf() *Config {
	return &Config{
		Output:          "results/bacteria.h5",
		NumBacteria:     20,
		Steps:           1000,
		Dt:              0.001,
		Workers:         1,
		Speed:           0.0001,
		RotationalNoise: 0.1,
		Length:          2.2,
		Height:          0.41,
		ObstacleX:       0.2,
		ObstacleY:       0.2,
		ObstacleRadius:  0.05,
		LogLevel:        "info",
	}
}

// ParseConfig parses the TOML config file whose path is provided.
func ParseConfig(path string) (*Config, error) {
	// config file overwrites default parameters
	conf := DefaultConf()
	if _, err := toml.DecodeFile(path, conf); err != nil {
		return nil, ierrors.Wrapf(err, "failed to parse %s", path)
	}
	return conf, nil
}

// Load builds the configuration from the command-line arguments:
// defaults, then the TOML file given by --config, then explicit flags.
func Load(args []string) (*Config, error) {
	fs := pflag.NewFlagSet("swim", pflag.ContinueOnError)
	path := fs.String("config", "", "path to a TOML config file")

	def := DefaultConf()
	var flags Config
	fs.IntVar(&flags.NumBacteria, "num_bacteria", def.NumBacteria, "number of bacteria")
	fs.IntVar(&flags.Steps, "steps", def.Steps, "number of time steps")
	fs.Float64Var(&flags.Dt, "dt", def.Dt, "duration of time steps")
	fs.StringVar(&flags.Output, "output", def.Output, "HDF5 output file, empty for the interactive viewer")
	fs.Float64Var(&flags.Speed, "bacteria_speed", def.Speed, "self-propulsion speed")
	fs.Uint64Var(&flags.Seed, "seed", def.Seed, "random seed, 0 for a clock seed")
	fs.IntVar(&flags.Workers, "workers", def.Workers, "number of agents stepped concurrently")
	fs.StringVar(&flags.Metrics, "metrics", def.Metrics, "address serving Prometheus metrics, e.g. :9090")
	fs.StringVar(&flags.LogLevel, "log-level", def.LogLevel, "log level: debug, info, warn or error")
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	if fs.NArg() > 0 {
		return nil, ierrors.Errorf("unexpected arguments %q", fs.Args())
	}

	conf := def
	if *path != "" {
		var err error
		if conf, err = ParseConfig(*path); err != nil {
			return nil, err
		}
	}

	// explicit flags overwrite the config file
	fs.Visit(func(f *pflag.Flag) {
		switch f.Name {
		case "num_bacteria":
			conf.NumBacteria = flags.NumBacteria
		case "steps":
			conf.Steps = flags.Steps
		case "dt":
			conf.Dt = flags.Dt
		case "output":
			conf.Output = flags.Output
		case "bacteria_speed":
			conf.Speed = flags.Speed
		case "seed":
			conf.Seed = flags.Seed
		case "workers":
			conf.Workers = flags.Workers
		case "metrics":
			conf.Metrics = flags.Metrics
		case "log-level":
			conf.LogLevel = flags.LogLevel
		}
	})

	if err := conf.Validate(); err != nil {
		return nil, err
	}
	return conf, nil
}

// Validate checks that the parameters describe a runnable simulation.
func (c *Config) Validate() error {
	switch {
	case c.NumBacteria < 0:
		return ierrors.Errorf("num_bacteria must be non-negative, got %d", c.NumBacteria)
	case c.Steps <= 0:
		return ierrors.Errorf("steps must be positive, got %d", c.Steps)
	case c.Dt <= 0:
		return ierrors.Errorf("dt must be positive, got %g", c.Dt)
	case c.Workers < 1:
		return ierrors.Errorf("workers must be at least 1, got %d", c.Workers)
	case c.RotationalNoise < 0:
		return ierrors.Errorf("rotational_noise must be non-negative, got %g", c.RotationalNoise)
	case c.Length <= 0 || c.Height <= 0:
		return ierrors.Errorf("domain must have positive sizes, got %gx%g", c.Length, c.Height)
	case c.ObstacleRadius <= 0:
		return ierrors.Errorf("obstacle_radius must be positive, got %g", c.ObstacleRadius)
	case c.ObstacleX-c.ObstacleRadius <= 0 || c.ObstacleX+c.ObstacleRadius >= c.Length ||
		c.ObstacleY-c.ObstacleRadius <= 0 || c.ObstacleY+c.ObstacleRadius >= c.Height:
		return ierrors.New("obstacle must lie strictly inside the domain")
	}
	return nil
}
