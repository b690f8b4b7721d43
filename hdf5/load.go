package hdf5

import (
	"github.com/golang/geo/r2"
	"github.com/iotaledger/hive.go/ierrors"
	"gonum.org/v1/hdf5"

	"github.com/sul31man/bacteria"
)

// A Loader sequentially loads agent positions from an HDF5 file written by Run.
type Loader struct {
	i uint // index of current slice
	n uint // total number of slices

	data []r2.Point // data buffer

	file   *hdf5.File
	dset   *hdf5.Dataset
	fspace *hdf5.Dataspace
	mspace *hdf5.Dataspace
}

// NewLoader opens the positions dataset in an HDF5 file and returns an initialized loader.
func NewLoader(filepath string) (*Loader, error) {
	l := new(Loader)
	var err error
	l.file, err = hdf5.OpenFile(filepath, hdf5.F_ACC_RDONLY)
	if err != nil {
		return nil, ierrors.Wrapf(err, "failed to open %s", filepath)
	}
	l.dset, err = l.file.OpenDataset(PositionsName)
	if err != nil {
		checkClose(&err, l.file)
		return nil, err
	}
	l.fspace = l.dset.Space()
	dims, _, err := l.fspace.SimpleExtentDims()
	if err != nil {
		l.closeAll(&err)
		return nil, err
	}
	if len(dims) != 2 {
		l.closeAll(&err)
		return nil, ierrors.Errorf("loader: expected 2 dimensions, got %d", len(dims))
	}
	l.n = dims[0]

	l.mspace, err = hdf5.CreateSimpleDataspace(dims[1:], nil)
	if err != nil {
		l.closeAll(&err)
		return nil, err
	}

	start := []uint{0, 0}
	count := []uint{1, dims[1]}
	if err := l.fspace.SelectHyperslab(start, nil, count, nil); err != nil {
		checkClose(&err, l.mspace)
		l.closeAll(&err)
		return nil, err
	}

	l.data = make([]r2.Point, dims[1])

	return l, nil
}

// Steps returns the number of recorded steps, the initial one included.
func (l *Loader) Steps() int {
	return int(l.n)
}

// Load loads the positions of the next step
// and cycles when everything has already been loaded.
// The returned slice is reused by the next call.
func (l *Loader) Load() ([]r2.Point, error) {
	start := []uint{l.i, 0}
	if err := l.fspace.SetOffset(start); err != nil {
		return nil, err
	}
	l.i = (l.i + 1) % l.n

	if err := l.dset.ReadSubset(&l.data, l.mspace, l.fspace); err != nil {
		return nil, ierrors.Wrap(err, "failed to read positions")
	}
	return l.data, nil
}

// Trajectories rewinds the loader and loads every step,
// returning one trajectory per agent.
func (l *Loader) Trajectories() ([][]r2.Point, error) {
	l.i = 0
	trajs := make([][]r2.Point, len(l.data))
	for i := range trajs {
		trajs[i] = make([]r2.Point, 0, l.n)
	}
	for k := uint(0); k < l.n; k++ {
		p, err := l.Load()
		if err != nil {
			return nil, err
		}
		for i, v := range p {
			trajs[i] = append(trajs[i], v)
		}
	}
	return trajs, nil
}

// Field rebuilds the flow field recorded alongside the positions.
func (l *Loader) Field() (f *bacteria.FlowField, err error) {
	dset, err := l.file.OpenDataset(DomainName)
	if err != nil {
		return nil, err
	}
	defer checkClose(&err, dset)

	g := make([]float64, 5)
	if err := dset.Read(&g); err != nil {
		return nil, ierrors.Wrap(err, "failed to read domain")
	}
	return bacteria.NewFlowField(g[0], g[1], g[2], g[3], g[4]), nil
}

// Close releases all HDF5 resources held by the loader.
func (l *Loader) Close() (err error) {
	checkClose(&err, l.mspace)
	l.closeAll(&err)
	return err
}

func (l *Loader) closeAll(err *error) {
	checkClose(err, l.fspace)
	checkClose(err, l.dset)
	checkClose(err, l.file)
}
