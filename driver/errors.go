package driver

import "github.com/pkg/errors"

// Sentinel errors returned by the driver. Callers should compare with
// errors.Is; construction- and bind-time failures are wrapped with
// additional context via errors.Wrapf before being returned.
var (
	// ErrUnsupportedMode is returned when ModeHeterogeneous is requested
	// in a build without the "gpu" tag. A node whose kernel has no device
	// implementation runs on the host instead and does not cause it.
	ErrUnsupportedMode = errors.New("driver: unsupported execution mode")

	// ErrGraphCycle is returned by the analyzer when the servers of a
	// node transitively depend on the node itself.
	ErrGraphCycle = errors.New("driver: graph contains a cycle")

	// ErrUnboundRequiredObservable is returned by BindData when a dataset
	// column is supplied with no values. A leaf with no column at all is
	// not an error: it falls back to its current scalar value or index.
	ErrUnboundRequiredObservable = errors.New("driver: required observable has no bound data and no value")

	// ErrShapeMismatch is returned by BindData when dataset columns for
	// the same evaluation disagree on their batch length.
	ErrShapeMismatch = errors.New("driver: dataset columns disagree on batch size")

	// ErrNotBound is returned by GetValue/GetValues when called before
	// BindData.
	ErrNotBound = errors.New("driver: driver has not been bound to data")
)
