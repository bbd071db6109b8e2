package lblaug

// Coordinate format parameters shared by all annotation kinds.

// FormatCanonical is the reserved format name for rows that are already in
// the canonical representation. Conversion is bypassed for it; only
// validation runs.
const FormatCanonical = "canonical"

// FormatParams describes the external coordinate format of one annotation
// stream and the label fields attached to its rows.
//
// LabelFields order is authoritative: it defines the order of the trailing
// label columns appended to each row on merge and is applied symmetrically
// on split. FormatParams is immutable after construction and is owned by
// exactly one Processor.
type FormatParams struct {
	Format      string   `json:"format"`
	LabelFields []string `json:"label_fields,omitempty"`
}

// NewFormatParams returns FormatParams for the given format name and label
// fields. A copy of labelFields is taken so later mutation by the caller
// cannot affect the params.
func NewFormatParams(format string, labelFields []string) FormatParams {
	var fields []string
	if len(labelFields) > 0 {
		fields = make([]string, len(labelFields))
		copy(fields, labelFields)
	}
	return FormatParams{Format: format, LabelFields: fields}
}

// ToDict returns the serializable form of the params. Only the format name
// and the label fields are persisted; no validation of the format name is
// performed here.
func (p FormatParams) ToDict() map[string]interface{} {
	return map[string]interface{}{
		"format":       p.Format,
		"label_fields": p.LabelFields,
	}
}
