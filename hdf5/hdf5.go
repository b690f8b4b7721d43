// Package hdf5 records simulations in HDF5 files and loads them back.
package hdf5

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/golang/geo/r2"
	"github.com/iotaledger/hive.go/ierrors"
	"gonum.org/v1/hdf5"

	"github.com/sul31man/bacteria"
	"github.com/sul31man/bacteria/logging"
)

// Names of the datasets written by Run for a simulation.
const (
	PositionsName = "positions"
	DomainName    = "domain"
	ConfigName    = "config"
)

// A Dataset stipulates how to generate per-step data and where to store them in the HDF5 file.
type Dataset struct {
	// Name the name of the dataset in the HDF5 file.
	Name string

	// Val is a value of the same concrete type as the underlying type of the data.
	Val interface{}

	// Dims are the dimensions of the data for a single step.
	Dims []int

	// Data is a function that produces the data
	// as a pointer to a slice of row-major concrete values.
	Data func(s *bacteria.Simulation) interface{}

	dset   *hdf5.Dataset
	fspace *hdf5.Dataspace
	mspace *hdf5.Dataspace
}

// A Summary is a float64 dataset written once, after the last step.
type Summary struct {
	Name string
	Dims []int
	Data func(s *bacteria.Simulation) []float64
}

// Config holds the parameters of the HDF5 driver.
type Config struct {
	Output    string         // path of output file
	Steps     int            // total number of steps
	Step      func()         // go to next step
	Meta      interface{}    // pointer to a struct whose fields are saved as attributes of "config"
	Datasets  []*Dataset     // recorded before the first step and after each step
	Summaries []*Summary     // recorded at the end
	Logger    logging.Logger // progress reports, optional
}

// Positions returns the dataset of agent positions of a simulation with n agents.
func Positions(n int) *Dataset {
	return &Dataset{
		Name: PositionsName,
		Val:  r2.Point{},
		Dims: []int{n},
		Data: func(s *bacteria.Simulation) interface{} {
			p := s.Positions()
			return &p
		},
	}
}

// Run runs a simulation and saves data to an HDF5 file.
// Per-step datasets hold Steps+1 records, the first one being the initial state.
// When ctx is canceled, Run stops between two steps and closes the file,
// leaving the remaining records unwritten.
func Run(ctx context.Context, s *bacteria.Simulation, conf *Config) (err error) {
	logger := conf.Logger
	if logger == nil {
		logger = logging.NoOpLogger{}
	}

	if err := os.MkdirAll(filepath.Dir(conf.Output), 0755); err != nil {
		return ierrors.Wrap(err, "failed to create output directory")
	}

	file, err := hdf5.CreateFile(conf.Output, hdf5.F_ACC_TRUNC)
	if err != nil {
		return ierrors.Wrapf(err, "failed to create %s", conf.Output)
	}
	defer checkClose(&err, file)

	if err := saveConfig(file, s, conf); err != nil {
		return ierrors.Wrap(err, "failed to save config")
	}

	if err := writeFloats(file, DomainName, []int{5}, domain(s.Field)); err != nil {
		return err
	}

	for _, d := range conf.Datasets {
		if err := d.init(file, conf); err != nil {
			return ierrors.Wrapf(err, "failed to create dataset %s", d.Name)
		}
		defer checkClose(&err, d)
	}

	every := max(1, conf.Steps/10)
	for k := uint(0); k <= uint(conf.Steps); k++ {
		for _, d := range conf.Datasets {
			start := make([]uint, len(d.Dims)+1)
			start[0] = k
			if err := d.fspace.SetOffset(start); err != nil {
				return err
			}
			if err := d.dset.WriteSubset(d.Data(s), d.mspace, d.fspace); err != nil {
				return ierrors.Wrapf(err, "failed to write step %d of %s", k, d.Name)
			}
		}

		if k == uint(conf.Steps) {
			break
		}
		if err := ctx.Err(); err != nil {
			return ierrors.Wrapf(err, "interrupted after step %d of %d, results are incomplete", k, conf.Steps)
		}
		conf.Step()
		if (k+1)%uint(every) == 0 {
			logger.Info("progress", "step", k+1, "steps", conf.Steps, "percent", 100*float64(k+1)/float64(conf.Steps))
		}
	}

	for _, sum := range conf.Summaries {
		if err := writeFloats(file, sum.Name, sum.Dims, sum.Data(s)); err != nil {
			return err
		}
	}

	logger.Info("results saved", "path", conf.Output)
	return nil
}

// domain returns the domain and obstacle geometry of f as L, H, cx, cy, r.
func domain(f *bacteria.FlowField) []float64 {
	return []float64{f.L, f.H, f.Center.X, f.Center.Y, f.R}
}

// writeFloats writes data as a float64 dataset of the given dimensions.
func writeFloats(file *hdf5.File, name string, dims []int, data []float64) (err error) {
	dtype, err := hdf5.NewDatatypeFromValue(0.0)
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)

	udims := make([]uint, len(dims))
	for i, n := range dims {
		udims[i] = uint(n)
	}
	space, err := hdf5.CreateSimpleDataspace(udims, nil)
	if err != nil {
		return err
	}
	defer checkClose(&err, space)

	dset, err := file.CreateDataset(name, dtype, space)
	if err != nil {
		return ierrors.Wrapf(err, "failed to create dataset %s", name)
	}
	defer checkClose(&err, dset)

	if err := dset.Write(&data); err != nil {
		return ierrors.Wrapf(err, "failed to write dataset %s", name)
	}
	return nil
}

// saveConfig creates a "config" dataset with a null dataspace whose attributes
// reflect the whole configuration plus some other appropriate metadata.
func saveConfig(file *hdf5.File, s *bacteria.Simulation, conf *Config) (err error) {
	null, err := hdf5.CreateDataspace(hdf5.S_NULL)
	if err != nil {
		return err
	}
	defer checkClose(&err, null)

	anytype, err := hdf5.NewDatatypeFromValue(0)
	if err != nil {
		return err
	}
	defer checkClose(&err, anytype)

	dset, err := file.CreateDataset(ConfigName, anytype, null)
	if err != nil {
		return err
	}
	defer checkClose(&err, dset)

	scalar, err := hdf5.CreateDataspace(hdf5.S_SCALAR)
	if err != nil {
		return err
	}
	defer checkClose(&err, scalar)

	now := time.Now().String()
	id := s.ID.String()
	seed := s.Seed
	fixed := []struct {
		name string
		ptr  interface{}
	}{
		{"Time", &now},
		{"RunID", &id},
		{"Seed", &seed},
	}
	written := make(map[string]bool, len(fixed))
	for _, a := range fixed {
		if err := writeAttr(dset, scalar, a.name, a.ptr); err != nil {
			return err
		}
		written[a.name] = true
	}

	if conf.Meta == nil {
		return nil
	}
	// Meta fields named like an attribute above are skipped: the effective
	// value of the run wins over the requested one.
	v := reflect.ValueOf(conf.Meta).Elem()
	for i := 0; i < v.NumField(); i++ {
		name := v.Type().Field(i).Name
		if written[name] {
			continue
		}
		if err := writeAttr(dset, scalar, name, v.Field(i).Addr().Interface()); err != nil {
			return err
		}
		written[name] = true
	}
	return nil
}

// writeAttr writes the scalar pointed to by ptr as an attribute of dset.
func writeAttr(dset *hdf5.Dataset, scalar *hdf5.Dataspace, name string, ptr interface{}) (err error) {
	dtype, err := hdf5.NewDatatypeFromValue(reflect.ValueOf(ptr).Elem().Interface())
	if err != nil {
		return ierrors.Wrapf(err, "unsupported type for attribute %s", name)
	}
	defer checkClose(&err, dtype)

	attr, err := dset.CreateAttribute(name, dtype, scalar)
	if err != nil {
		return err
	}
	defer checkClose(&err, attr)

	return attr.Write(ptr, dtype)
}

// init creates the dataset and its dataspaces.
func (d *Dataset) init(file *hdf5.File, conf *Config) (err error) {
	dtype, err := hdf5.NewDatatypeFromValue(d.Val)
	if err != nil {
		return err
	}
	defer checkClose(&err, dtype)

	udims := make([]uint, len(d.Dims)+1)
	udims[0] = uint(conf.Steps + 1)
	for i, n := range d.Dims {
		udims[i+1] = uint(n)
	}

	d.fspace, err = hdf5.CreateSimpleDataspace(udims, nil)
	if err != nil {
		return err
	}

	start := make([]uint, len(udims))
	count := make([]uint, len(udims))
	copy(count, udims)
	count[0] = 1

	if err := d.fspace.SelectHyperslab(start, nil, count, nil); err != nil {
		checkClose(&err, d.fspace)
		return err
	}

	if len(d.Dims) == 0 {
		d.mspace, err = hdf5.CreateDataspace(hdf5.S_SCALAR)
	} else {
		d.mspace, err = hdf5.CreateSimpleDataspace(udims[1:], nil)
	}
	if err != nil {
		checkClose(&err, d.fspace)
		return err
	}

	d.dset, err = file.CreateDataset(d.Name, dtype, d.fspace)
	if err != nil {
		checkClose(&err, d.fspace)
		checkClose(&err, d.mspace)
	}

	return err
}

// Close closes the HDF5 dataset and Dataspaces.
func (d *Dataset) Close() error {
	if err := d.dset.Close(); err != nil {
		return err
	}
	if err := d.mspace.Close(); err != nil {
		return err
	}
	if err := d.fspace.Close(); err != nil {
		return err
	}
	return nil
}

// checkClose checks for errors in deferred calls.
func checkClose(err *error, c io.Closer) {
	if cerr := c.Close(); *err == nil {
		*err = cerr
	}
}
