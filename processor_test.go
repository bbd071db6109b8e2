package lblaug

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testImage returns a decoded image with the given height and width.
func testImage(height, width int) image.Image {
	return image.NewRGBA(image.Rect(0, 0, width, height))
}

func TestProcessorEndToEnd(t *testing.T) {
	// One 100x200 (h x w) image, canonical-format boxes, one label field.
	params := NewFormatParams(FormatCanonical, []string{"class_id"})
	proc := NewBboxProcessor(params, nil)

	data := Data{
		ImageField: testImage(100, 200),
		"bboxes":   [][]float64{{10, 10, 50, 50}},
		"class_id": []int{3},
	}

	require.NoError(t, proc.Preprocess(data))

	rows, ok := data["bboxes"].(Rows)
	require.True(t, ok, "preprocess must store the internal representation")
	require.Len(t, rows, 1)
	assert.Equal(t, []float64{10, 10, 50, 50}, rows[0].Coords)
	assert.Equal(t, []interface{}{3}, rows[0].Labels)

	// Identity transform between preprocess and postprocess.
	out, err := proc.Postprocess(data)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{10, 10, 50, 50}}, out["bboxes"])
	assert.Equal(t, []interface{}{3}, out["class_id"])
}

func TestProcessorLabelRoundTrip(t *testing.T) {
	// Merge followed by split must restore rows and label collections when no
	// geometric conversion runs in between.
	params := NewFormatParams(FormatPascalVOC, []string{"class_id", "score"})
	proc := NewBboxProcessor(params, nil)

	data := Data{
		"bboxes":   [][]float64{{1, 2, 3, 4}, {5, 6, 7, 8}},
		"class_id": []int{7, 9},
		"score":    []float64{0.25, 0.75},
	}
	require.NoError(t, proc.AddLabelFields(data))

	rows := data["bboxes"].(Rows)
	require.Len(t, rows, 2)
	assert.Equal(t, []interface{}{7, 0.25}, rows[0].Labels)
	assert.Equal(t, []interface{}{9, 0.75}, rows[1].Labels)

	require.NoError(t, proc.RemoveLabelFields(data))

	rows = data["bboxes"].(Rows)
	assert.Equal(t, []float64{1, 2, 3, 4}, rows[0].Coords)
	assert.Equal(t, []float64{5, 6, 7, 8}, rows[1].Coords)
	assert.Empty(t, rows[0].Labels)
	assert.Empty(t, rows[1].Labels)
	assert.Equal(t, []interface{}{7, 9}, data["class_id"])
	assert.Equal(t, []interface{}{0.25, 0.75}, data["score"])
}

func TestCheckAndConvertCanonicalIdentity(t *testing.T) {
	// With the canonical sentinel only validation runs; rows pass through
	// unchanged for both directions, including unknown ones.
	proc := NewBboxProcessor(NewFormatParams(FormatCanonical, nil), nil)
	rows := Rows{{Coords: []float64{10, 10, 50, 50}}}

	for _, direction := range []string{DirectionTo, DirectionFrom, "sideways"} {
		out, err := proc.CheckAndConvert(rows, 100, 200, direction)
		require.NoError(t, err, "direction %q", direction)
		assert.Equal(t, rows, out, "direction %q", direction)
	}
}

func TestCheckAndConvertInvalidDirection(t *testing.T) {
	rows := Rows{{Coords: []float64{10, 10, 50, 50}}}
	for _, format := range []string{FormatPascalVOC, FormatCOCO, FormatYOLO, FormatNormalized} {
		proc := NewBboxProcessor(NewFormatParams(format, nil), nil)
		for _, direction := range []string{"", "sideways", "TO", "both"} {
			_, err := proc.CheckAndConvert(rows, 100, 200, direction)
			assert.ErrorIs(t, err, ErrInvalidDirection, "format %q direction %q", format, direction)
		}
	}
}

func TestAddLabelFieldsLengthMismatch(t *testing.T) {
	params := NewFormatParams(FormatCanonical, []string{"class_id"})
	proc := NewBboxProcessor(params, nil)

	data := Data{
		ImageField: testImage(100, 200),
		"bboxes":   [][]float64{{10, 10, 50, 50}},
		"class_id": []int{3, 4},
	}
	assert.ErrorIs(t, proc.Preprocess(data), ErrLabelLengthMismatch)
}

func TestProcessorPositionalCorrespondence(t *testing.T) {
	// Labels must stay attached to their rows through a full conversion
	// cycle with a non-canonical format.
	params := NewFormatParams(FormatCOCO, []string{"class_id", "score"})
	proc := NewBboxProcessor(params, nil)

	data := Data{
		ImageField: testImage(100, 200),
		"bboxes":   [][]float64{{10, 10, 40, 40}, {60, 20, 20, 30}, {100, 50, 50, 40}},
		"class_id": []string{"cat", "dog", "bird"},
		"score":    []float64{0.9, 0.8, 0.7},
	}
	require.NoError(t, proc.Preprocess(data))

	out, err := proc.Postprocess(data)
	require.NoError(t, err)

	assert.Equal(t, [][]float64{{10, 10, 40, 40}, {60, 20, 20, 30}, {100, 50, 50, 40}}, out["bboxes"])
	assert.Equal(t, []interface{}{"cat", "dog", "bird"}, out["class_id"])
	assert.Equal(t, []interface{}{0.9, 0.8, 0.7}, out["score"])
}

func TestProcessorAdditionalTargets(t *testing.T) {
	params := NewFormatParams(FormatCanonical, []string{"class_id"})
	proc := NewBboxProcessor(params, map[string]string{
		"bboxes2":   "bboxes",
		"keypoints": "keypoints", // different kind, must be ignored
	})
	assert.Equal(t, []string{"bboxes", "bboxes2"}, proc.DataFields())

	data := Data{
		ImageField: testImage(100, 200),
		"bboxes":   [][]float64{{10, 10, 50, 50}},
		"bboxes2":  [][]float64{{20, 20, 60, 60}},
		"class_id": []int{1},
	}
	require.NoError(t, proc.Preprocess(data))

	out, err := proc.Postprocess(data)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{10, 10, 50, 50}}, out["bboxes"])
	assert.Equal(t, [][]float64{{20, 20, 60, 60}}, out["bboxes2"])
}

func TestProcessorUnsupportedImage(t *testing.T) {
	proc := NewBboxProcessor(NewFormatParams(FormatCanonical, nil), nil)
	data := Data{
		ImageField: "not an image",
		"bboxes":   [][]float64{{10, 10, 50, 50}},
	}
	err := proc.Preprocess(data)
	require.ErrorIs(t, err, ErrUnsupportedImage)
	assert.Contains(t, err.Error(), "string")
}

func TestProcessorValidationFailure(t *testing.T) {
	// Canonical rows outside the image bounds fail check during preprocess
	// and are never silently corrected.
	proc := NewBboxProcessor(NewFormatParams(FormatCanonical, nil), nil)
	data := Data{
		ImageField: testImage(100, 200),
		"bboxes":   [][]float64{{10, 10, 250, 50}},
	}
	assert.ErrorIs(t, proc.Preprocess(data), ErrInvalidRow)
}

func TestProcessorMissingField(t *testing.T) {
	proc := NewBboxProcessor(NewFormatParams(FormatCanonical, nil), nil)
	data := Data{ImageField: testImage(100, 200)}
	err := proc.Preprocess(data)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"bboxes"`)
}

func TestProcessorFilterInPostprocess(t *testing.T) {
	// Boxes partially outside the image are clipped, fully outside dropped,
	// and their labels follow them.
	params := NewFormatParams(FormatCanonical, []string{"class_id"})
	proc := NewBboxProcessor(params, nil)

	data := Data{
		ImageField: testImage(100, 200),
		"bboxes":   [][]float64{{10, 10, 50, 50}},
		"class_id": []int{1},
	}
	require.NoError(t, proc.Preprocess(data))

	// A transform moved the boxes; one is now partially outside, one fully.
	data["bboxes"] = Rows{
		{Coords: []float64{150, 50, 250, 90}, Labels: []interface{}{1}},
		{Coords: []float64{300, 120, 350, 160}, Labels: []interface{}{2}},
	}

	out, err := proc.Postprocess(data)
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{150, 50, 200, 90}}, out["bboxes"])
	assert.Equal(t, []interface{}{1}, out["class_id"])
}
