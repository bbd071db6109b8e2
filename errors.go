package lblaug

import "errors"

var (
	// ErrLabelLengthMismatch indicates a label-field collection whose length
	// disagrees with the annotation collection it is attached to.
	ErrLabelLengthMismatch = errors.New("lblaug: label field length does not match annotation count")
	// ErrInvalidDirection indicates a conversion direction other than "to" or "from".
	ErrInvalidDirection = errors.New("lblaug: invalid direction, must be \"to\" or \"from\"")
	// ErrUnsupportedImage indicates an image representation whose shape cannot
	// be determined.
	ErrUnsupportedImage = errors.New("lblaug: unsupported image type")
	// ErrInvalidRow indicates a row that violates the canonical format.
	ErrInvalidRow = errors.New("lblaug: row violates the canonical format")
	// ErrInconsistentRows indicates rows with mixed coordinate arity or label
	// counts within one batch.
	ErrInconsistentRows = errors.New("lblaug: inconsistent rows in batch")
	// ErrUnknownFormat indicates an unrecognised coordinate format name.
	ErrUnknownFormat = errors.New("lblaug: unknown coordinate format")
)
