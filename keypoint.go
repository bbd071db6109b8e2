package lblaug

// Keypoint specific functionality.

import "fmt"

// Keypoint coordinate formats. The canonical representation is absolute
// pixel (x, y, angle, scale) with the angle in radians. Columns missing
// from the external format default to zero on the way in and are dropped on
// the way out.
const (
	FormatXY   = "xy"
	FormatYX   = "yx"
	FormatXYA  = "xya"
	FormatXYS  = "xys"
	FormatXYAS = "xyas"
)

// KeypointOps implements the keypoint annotation kind.
//
// Filter drops keypoints that lie outside the image bounds; keypoints are
// never clipped. Check rejects keypoints outside [0,w]x[0,h] and negative
// scales.
type KeypointOps struct {
	Format string
}

// NewKeypointProcessor builds a Processor for keypoints in the format named
// by params.
func NewKeypointProcessor(params FormatParams, additionalTargets map[string]string) *Processor {
	return NewProcessor(params, &KeypointOps{Format: params.Format}, additionalTargets)
}

// DefaultDataName returns the canonical data-field name for keypoints.
func (o *KeypointOps) DefaultDataName() string { return "keypoints" }

// keypointArity returns the coordinate column count of an external format.
func keypointArity(format string) (int, error) {
	switch format {
	case FormatXY, FormatYX:
		return 2, nil
	case FormatXYA, FormatXYS:
		return 3, nil
	case FormatXYAS:
		return 4, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
}

// Check validates canonical keypoints against the image bounds.
func (o *KeypointOps) Check(rows Rows, height, width int) error {
	w, h := float64(width), float64(height)
	for i, r := range rows {
		if len(r.Coords) < 2 {
			return fmt.Errorf("%w: keypoint %d has %d coordinates, want at least 2",
				ErrInvalidRow, i, len(r.Coords))
		}
		x, y := r.Coords[0], r.Coords[1]
		if x < 0 || x > w || y < 0 || y > h {
			return fmt.Errorf("%w: keypoint %d (%g, %g) outside image bounds %dx%d",
				ErrInvalidRow, i, x, y, width, height)
		}
		if len(r.Coords) >= 4 && r.Coords[3] < 0 {
			return fmt.Errorf("%w: keypoint %d has negative scale %g",
				ErrInvalidRow, i, r.Coords[3])
		}
	}
	return nil
}

// ToCanonical converts keypoints from the external format to canonical
// (x, y, angle, scale) and validates the result.
func (o *KeypointOps) ToCanonical(rows Rows, height, width int) (Rows, error) {
	arity, err := keypointArity(o.Format)
	if err != nil {
		return nil, err
	}

	out := make(Rows, len(rows))
	for i, r := range rows {
		if len(r.Coords) < arity {
			return nil, fmt.Errorf("%w: keypoint %d has %d coordinates, want %d",
				ErrInvalidRow, i, len(r.Coords), arity)
		}
		row := r.clone()
		c := row.Coords
		coords := make([]float64, 4)
		switch o.Format {
		case FormatXY:
			coords[0], coords[1] = c[0], c[1]
		case FormatYX:
			coords[0], coords[1] = c[1], c[0]
		case FormatXYA:
			coords[0], coords[1], coords[2] = c[0], c[1], c[2]
		case FormatXYS:
			coords[0], coords[1], coords[3] = c[0], c[1], c[2]
		case FormatXYAS:
			copy(coords, c)
		}
		row.Coords = coords
		out[i] = row
	}

	if err := o.Check(out, height, width); err != nil {
		return nil, err
	}
	return out, nil
}

// FromCanonical validates canonical keypoints and converts them to the
// external format.
func (o *KeypointOps) FromCanonical(rows Rows, height, width int) (Rows, error) {
	arity, err := keypointArity(o.Format)
	if err != nil {
		return nil, err
	}
	if err := o.Check(rows, height, width); err != nil {
		return nil, err
	}

	out := make(Rows, len(rows))
	for i, r := range rows {
		if len(r.Coords) < 4 {
			return nil, fmt.Errorf("%w: keypoint %d has %d coordinates, want 4",
				ErrInvalidRow, i, len(r.Coords))
		}
		row := r.clone()
		c := row.Coords
		coords := make([]float64, arity)
		switch o.Format {
		case FormatXY:
			coords[0], coords[1] = c[0], c[1]
		case FormatYX:
			coords[0], coords[1] = c[1], c[0]
		case FormatXYA:
			coords[0], coords[1], coords[2] = c[0], c[1], c[2]
		case FormatXYS:
			coords[0], coords[1], coords[2] = c[0], c[1], c[3]
		case FormatXYAS:
			copy(coords, c)
		}
		row.Coords = coords
		out[i] = row
	}
	return out, nil
}

// Filter drops keypoints outside the image bounds.
func (o *KeypointOps) Filter(rows Rows, height, width int, target string) Rows {
	w, h := float64(width), float64(height)
	out := make(Rows, 0, len(rows))
	for _, r := range rows {
		if len(r.Coords) < 2 {
			continue
		}
		x, y := r.Coords[0], r.Coords[1]
		if x < 0 || x > w || y < 0 || y > h {
			continue
		}
		out = append(out, r.clone())
	}
	return out
}
