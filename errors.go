package voyagebed

import (
	"errors"
	"fmt"
)

var (
	// ErrPlaceNotFound is returned by PlaceByName when no place matches.
	ErrPlaceNotFound = errors.New("place not found")

	// ErrEmptyStore indicates the store holds no places or no voyages.
	ErrEmptyStore = errors.New("store is empty")

	// ErrNotAPort is returned when a non-port place is flattened into a
	// PortCandidate.
	ErrNotAPort = errors.New("place is not a port")
)

// InvalidPlaceTypeError is returned when a stored place_type is not one of
// Port, SpecificRegion or BroadRegion.
type InvalidPlaceTypeError struct {
	Value string
}

func (e *InvalidPlaceTypeError) Error() string {
	return fmt.Sprintf("invalid place type: %q", e.Value)
}

// QueryError wraps a store access failure.
//
// The underlying error can be accessed via errors.Unwrap.
type QueryError struct {
	Op  string
	Err error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("%s: query failed: %v", e.Op, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// LoadError is a structural failure while loading source data. It aborts
// the whole load; malformed rows are skipped instead.
type LoadError struct {
	Source string
	Line   int
	Err    error
}

func (e *LoadError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("loading %s line %d: %v", e.Source, e.Line, e.Err)
	}
	return fmt.Sprintf("loading %s: %v", e.Source, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }

// MissingFieldError reports a hierarchy reference a place is required to carry.
type MissingFieldError struct {
	Place string
	Field string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("place %q: missing required field %s", e.Place, e.Field)
}

// queryErr wraps err in a *QueryError unless it is already a typed engine
// error that the caller should see as is.
func queryErr(op string, err error) error {
	if err == nil {
		return nil
	}
	var ipt *InvalidPlaceTypeError
	if errors.As(err, &ipt) {
		return err
	}
	return &QueryError{Op: op, Err: err}
}
