package lblaug

// The internal annotation row representation.

import "fmt"

// Row is one annotation in internal form: the coordinate columns of its
// kind, followed by one label column per declared label field, in
// declaration order. The effective row length is
// len(Coords) + len(Labels).
type Row struct {
	Coords []float64
	Labels []interface{}
}

// clone returns a deep copy of the row.
func (r Row) clone() Row {
	out := Row{Coords: make([]float64, len(r.Coords))}
	copy(out.Coords, r.Coords)
	if r.Labels != nil {
		out.Labels = make([]interface{}, len(r.Labels))
		copy(out.Labels, r.Labels)
	}
	return out
}

// Rows is the annotation batch for one data field of one image.
type Rows []Row

// CheckConsistency verifies that all rows share the same coordinate arity
// and the same number of label columns. Transform pipelines must hand back
// batches that satisfy this contract.
func (rows Rows) CheckConsistency() error {
	if len(rows) == 0 {
		return nil
	}
	arity := len(rows[0].Coords)
	labels := len(rows[0].Labels)
	for i, r := range rows[1:] {
		if len(r.Coords) != arity {
			return fmt.Errorf("%w: row %d has %d coordinates, row 0 has %d",
				ErrInconsistentRows, i+1, len(r.Coords), arity)
		}
		if len(r.Labels) != labels {
			return fmt.Errorf("%w: row %d has %d label values, row 0 has %d",
				ErrInconsistentRows, i+1, len(r.Labels), labels)
		}
	}
	return nil
}

// TransformFunc is a geometric transform over one canonical batch. The
// image height and width describe the image the rows belong to.
type TransformFunc func(rows Rows, height, width int) (Rows, error)

// EnsureConsistent wraps a transform so that the returned batch is checked
// for internal consistency before it is handed back to the caller.
func EnsureConsistent(fn TransformFunc) TransformFunc {
	return func(rows Rows, height, width int) (Rows, error) {
		out, err := fn(rows, height, width)
		if err != nil {
			return nil, err
		}
		if err := out.CheckConsistency(); err != nil {
			return nil, err
		}
		return out, nil
	}
}
