package lblaug

// Orchestration of annotation conversion around a geometric transform
// pipeline: label merge -> convert to canonical -> (external transform) ->
// filter -> convert back -> label split.

import (
	"fmt"
	"reflect"
	"sort"
)

// ImageField is the key in the per-image data mapping that holds the image.
const ImageField = "image"

// Conversion directions accepted by CheckAndConvert.
const (
	DirectionTo   = "to"
	DirectionFrom = "from"
)

// Data is the per-image mapping handed to Preprocess and Postprocess. It
// holds the image under ImageField, one or more annotation collections and
// zero or more label-field collections, all keyed by name.
type Data map[string]interface{}

// Ops defines the geometry-specific operations of one annotation kind.
type Ops interface {
	// DefaultDataName is the canonical data-field name for this kind.
	DefaultDataName() string
	// Filter drops or clips rows that fall outside the image bounds. The
	// target names the data field being filtered, for policies that depend
	// on it.
	Filter(rows Rows, height, width int, target string) Rows
	// Check validates canonical rows against the image bounds. It reports
	// violations and never corrects them.
	Check(rows Rows, height, width int) error
	// ToCanonical converts rows from the external format to canonical form.
	ToCanonical(rows Rows, height, width int) (Rows, error)
	// FromCanonical is the inverse of ToCanonical.
	FromCanonical(rows Rows, height, width int) (Rows, error)
}

// Processor orchestrates preprocessing and postprocessing for all data
// fields of one annotation kind that share a single FormatParams.
//
// A Processor holds no per-image state. It may be shared by concurrent
// callers as long as each call operates on its own Data mapping.
type Processor struct {
	params     FormatParams
	ops        Ops
	dataFields []string
}

// NewProcessor builds a Processor for the given params and kind operations.
//
// additionalTargets maps extra data-field names to the kind they alias
// (e.g. {"bboxes2": "bboxes"}). Names whose value equals the kind's default
// data name are processed alongside it with the same params; other entries
// are ignored. The alias list is fixed at construction.
func NewProcessor(params FormatParams, ops Ops, additionalTargets map[string]string) *Processor {
	fields := []string{ops.DefaultDataName()}
	aliases := make([]string, 0, len(additionalTargets))
	for name, kind := range additionalTargets {
		if kind == ops.DefaultDataName() {
			aliases = append(aliases, name)
		}
	}
	sort.Strings(aliases)
	return &Processor{
		params:     params,
		ops:        ops,
		dataFields: append(fields, aliases...),
	}
}

// Params returns the format parameters enforced by this processor.
func (p *Processor) Params() FormatParams { return p.params }

// DataFields returns the data-field names handled by this processor, the
// kind's default name first.
func (p *Processor) DataFields() []string {
	fields := make([]string, len(p.dataFields))
	copy(fields, p.dataFields)
	return fields
}

// Preprocess converts every data field of the mapping to the canonical
// representation and merges the declared label fields into the rows. The
// mapping is updated in place.
func (p *Processor) Preprocess(data Data) error {
	for _, name := range p.dataFields {
		rows, err := toInternal(data[name])
		if err != nil {
			return fmt.Errorf("lblaug: field %q: %w", name, err)
		}
		data[name] = rows
	}
	if err := p.AddLabelFields(data); err != nil {
		return err
	}

	height, width, err := GetShape(data[ImageField])
	if err != nil {
		return err
	}
	for _, name := range p.dataFields {
		rows, err := p.CheckAndConvert(data[name].(Rows), height, width, DirectionTo)
		if err != nil {
			return fmt.Errorf("lblaug: field %q: %w", name, err)
		}
		data[name] = rows
	}
	return nil
}

// Postprocess filters the canonical rows of every data field against the
// image bounds, converts them back to the external format, splits the label
// columns out into their own entries and restores the caller's original
// in-memory representation. It returns the updated mapping.
func (p *Processor) Postprocess(data Data) (Data, error) {
	height, width, err := GetShape(data[ImageField])
	if err != nil {
		return nil, err
	}

	for _, name := range p.dataFields {
		rows, err := toInternal(data[name])
		if err != nil {
			return nil, fmt.Errorf("lblaug: field %q: %w", name, err)
		}
		rows = p.ops.Filter(rows, height, width, name)
		rows, err = p.CheckAndConvert(rows, height, width, DirectionFrom)
		if err != nil {
			return nil, fmt.Errorf("lblaug: field %q: %w", name, err)
		}
		data[name] = rows
	}

	if err := p.RemoveLabelFields(data); err != nil {
		return nil, err
	}
	for _, name := range p.dataFields {
		data[name] = toOriginal(data[name].(Rows))
	}
	return data, nil
}

// CheckAndConvert routes rows through the kind's converter for the given
// direction. When the format is already canonical the rows are validated
// and returned unchanged for both directions.
func (p *Processor) CheckAndConvert(rows Rows, height, width int, direction string) (Rows, error) {
	if p.params.Format == FormatCanonical {
		if err := p.ops.Check(rows, height, width); err != nil {
			return nil, err
		}
		return rows, nil
	}

	switch direction {
	case DirectionTo:
		return p.ops.ToCanonical(rows, height, width)
	case DirectionFrom:
		return p.ops.FromCanonical(rows, height, width)
	}
	return nil, fmt.Errorf("%w: got %q", ErrInvalidDirection, direction)
}

// AddLabelFields appends the per-row values of every declared label field
// as trailing label columns to each row of every data field, in LabelFields
// order. Each label collection must hold exactly one value per row.
func (p *Processor) AddLabelFields(data Data) error {
	if len(p.params.LabelFields) == 0 {
		return nil
	}
	for _, name := range p.dataFields {
		rows, err := toInternal(data[name])
		if err != nil {
			return fmt.Errorf("lblaug: field %q: %w", name, err)
		}
		for _, field := range p.params.LabelFields {
			values, err := labelValues(data[field])
			if err != nil {
				return fmt.Errorf("lblaug: label field %q: %w", field, err)
			}
			if len(values) != len(rows) {
				return fmt.Errorf("%w: field %q has %d values, %q has %d rows",
					ErrLabelLengthMismatch, field, len(values), name, len(rows))
			}
			for i := range rows {
				rows[i].Labels = append(rows[i].Labels, values[i])
			}
		}
		data[name] = rows
	}
	return nil
}

// RemoveLabelFields splits the trailing label columns of every data field
// back into their own entries in the mapping, in LabelFields order, and
// truncates the rows. Rows pass through untouched when no label fields are
// declared.
func (p *Processor) RemoveLabelFields(data Data) error {
	n := len(p.params.LabelFields)
	if n == 0 {
		return nil
	}
	for _, name := range p.dataFields {
		rows, err := toInternal(data[name])
		if err != nil {
			return fmt.Errorf("lblaug: field %q: %w", name, err)
		}
		for idx, field := range p.params.LabelFields {
			values := make([]interface{}, len(rows))
			for i, r := range rows {
				if len(r.Labels) < n {
					return fmt.Errorf("%w: row %d of %q carries %d label values, want %d",
						ErrInconsistentRows, i, name, len(r.Labels), n)
				}
				values[i] = r.Labels[len(r.Labels)-n+idx]
			}
			data[field] = values
		}
		for i := range rows {
			rows[i].Labels = rows[i].Labels[:len(rows[i].Labels)-n]
		}
		data[name] = rows
	}
	return nil
}

// toInternal converts a caller-supplied annotation collection into Rows.
// Collections already in internal form pass through unchanged.
func toInternal(v interface{}) (Rows, error) {
	switch t := v.(type) {
	case Rows:
		return t, nil
	case [][]float64:
		rows := make(Rows, len(t))
		for i, c := range t {
			coords := make([]float64, len(c))
			copy(coords, c)
			rows[i] = Row{Coords: coords}
		}
		return rows, nil
	case nil:
		return nil, fmt.Errorf("missing annotation collection")
	}
	return nil, fmt.Errorf("unsupported annotation collection type %T", v)
}

// toOriginal converts rows back to the caller's [][]float64 representation.
// Label columns must already have been split off.
func toOriginal(rows Rows) [][]float64 {
	out := make([][]float64, len(rows))
	for i, r := range rows {
		coords := make([]float64, len(r.Coords))
		copy(coords, r.Coords)
		out[i] = coords
	}
	return out
}

// labelValues normalises a label collection of any slice or array type into
// a slice of opaque values, preserving order.
func labelValues(v interface{}) ([]interface{}, error) {
	if v == nil {
		return nil, fmt.Errorf("missing label collection")
	}
	if values, ok := v.([]interface{}); ok {
		return values, nil
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, fmt.Errorf("unsupported label collection type %T", v)
	}
	values := make([]interface{}, rv.Len())
	for i := range values {
		values[i] = rv.Index(i).Interface()
	}
	return values, nil
}
