package lblaug

// Image shape introspection.

import (
	"fmt"
	"image"
)

// Tensor is the minimal surface of a tensor-backed image. Shape returns the
// dimension sizes with height and width in the last two positions (e.g.
// CHW or NCHW layouts).
type Tensor interface {
	Shape() []int
}

// GetShape returns the height and width of an image given either a decoded
// image.Image or a Tensor. Any other representation fails with an error
// naming the offending type.
func GetShape(img interface{}) (height, width int, err error) {
	switch v := img.(type) {
	case image.Image:
		b := v.Bounds()
		return b.Dy(), b.Dx(), nil
	case Tensor:
		s := v.Shape()
		if len(s) < 2 {
			return 0, 0, fmt.Errorf("%w: tensor shape %v has fewer than two dimensions",
				ErrUnsupportedImage, s)
		}
		return s[len(s)-2], s[len(s)-1], nil
	}
	return 0, 0, fmt.Errorf("%w: %T", ErrUnsupportedImage, img)
}
