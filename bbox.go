package lblaug

// Bounding box specific functionality.

import "fmt"

// Bounding box coordinate formats. The canonical representation is absolute
// pixel corners x1, y1, x2, y2 from the top-left image corner.
const (
	FormatPascalVOC  = "pascal_voc" // absolute pixel corners x1, y1, x2, y2
	FormatCOCO       = "coco"       // absolute pixel x, y, width, height
	FormatYOLO       = "yolo"       // normalized centre x, centre y, width, height
	FormatNormalized = "normalized" // corner coords scaled to [0, 1]
)

// BboxOps implements the bounding box annotation kind.
//
// Filter clips boxes to the image bounds and drops rows whose clipped width
// or height is zero or below the configured minimums. Check rejects boxes
// with corners outside the image or with negative size.
type BboxOps struct {
	Format    string
	MinWidth  float64 // Minimum clipped box width in pixels to keep a row.
	MinHeight float64 // Minimum clipped box height in pixels to keep a row.
}

// NewBboxProcessor builds a Processor for bounding boxes in the format
// named by params.
func NewBboxProcessor(params FormatParams, additionalTargets map[string]string) *Processor {
	return NewProcessor(params, &BboxOps{Format: params.Format}, additionalTargets)
}

// DefaultDataName returns the canonical data-field name for boxes.
func (o *BboxOps) DefaultDataName() string { return "bboxes" }

// Check validates canonical pixel-corner boxes against the image bounds.
func (o *BboxOps) Check(rows Rows, height, width int) error {
	w, h := float64(width), float64(height)
	for i, r := range rows {
		if len(r.Coords) < 4 {
			return fmt.Errorf("%w: box %d has %d coordinates, want 4",
				ErrInvalidRow, i, len(r.Coords))
		}
		x1, y1, x2, y2 := r.Coords[0], r.Coords[1], r.Coords[2], r.Coords[3]
		if x2 < x1 || y2 < y1 {
			return fmt.Errorf("%w: box %d [%g %g %g %g] has negative size",
				ErrInvalidRow, i, x1, y1, x2, y2)
		}
		if x1 < 0 || y1 < 0 || x2 > w || y2 > h {
			return fmt.Errorf("%w: box %d [%g %g %g %g] exceeds image bounds %dx%d",
				ErrInvalidRow, i, x1, y1, x2, y2, width, height)
		}
	}
	return nil
}

// ToCanonical converts boxes from the external format to pixel corners and
// validates the result.
func (o *BboxOps) ToCanonical(rows Rows, height, width int) (Rows, error) {
	out, err := o.convert(rows, height, width, true)
	if err != nil {
		return nil, err
	}
	if err := o.Check(out, height, width); err != nil {
		return nil, err
	}
	return out, nil
}

// FromCanonical validates pixel-corner boxes and converts them to the
// external format.
func (o *BboxOps) FromCanonical(rows Rows, height, width int) (Rows, error) {
	if err := o.Check(rows, height, width); err != nil {
		return nil, err
	}
	return o.convert(rows, height, width, false)
}

func (o *BboxOps) convert(rows Rows, height, width int, toCanonical bool) (Rows, error) {
	w, h := float64(width), float64(height)
	out := make(Rows, len(rows))
	for i, r := range rows {
		if len(r.Coords) < 4 {
			return nil, fmt.Errorf("%w: box %d has %d coordinates, want 4",
				ErrInvalidRow, i, len(r.Coords))
		}
		row := r.clone()
		c := row.Coords

		switch o.Format {
		case FormatPascalVOC:
			// Pixel corners, identical to the canonical layout.
		case FormatCOCO:
			if toCanonical {
				c[2], c[3] = c[0]+c[2], c[1]+c[3]
			} else {
				c[2], c[3] = c[2]-c[0], c[3]-c[1]
			}
		case FormatYOLO:
			if toCanonical {
				cx, cy, bw, bh := c[0]*w, c[1]*h, c[2]*w, c[3]*h
				c[0], c[1], c[2], c[3] = cx-bw/2, cy-bh/2, cx+bw/2, cy+bh/2
			} else {
				bw, bh := c[2]-c[0], c[3]-c[1]
				c[0], c[1] = (c[0]+bw/2)/w, (c[1]+bh/2)/h
				c[2], c[3] = bw/w, bh/h
			}
		case FormatNormalized:
			if toCanonical {
				c[0], c[2] = c[0]*w, c[2]*w
				c[1], c[3] = c[1]*h, c[3]*h
			} else {
				c[0], c[2] = c[0]/w, c[2]/w
				c[1], c[3] = c[1]/h, c[3]/h
			}
		default:
			return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, o.Format)
		}
		out[i] = row
	}
	return out, nil
}

// Filter clips boxes to the image bounds and drops degenerate or too-small
// results. The policy is the same for every bounding box field.
func (o *BboxOps) Filter(rows Rows, height, width int, target string) Rows {
	w, h := float64(width), float64(height)
	out := make(Rows, 0, len(rows))
	for _, r := range rows {
		if len(r.Coords) < 4 {
			continue
		}
		row := r.clone()
		c := row.Coords
		c[0] = clamp(c[0], 0, w)
		c[2] = clamp(c[2], 0, w)
		c[1] = clamp(c[1], 0, h)
		c[3] = clamp(c[3], 0, h)

		bw, bh := c[2]-c[0], c[3]-c[1]
		if bw <= 0 || bh <= 0 || bw < o.MinWidth || bh < o.MinHeight {
			continue
		}
		out = append(out, row)
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
