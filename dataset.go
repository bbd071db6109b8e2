package lblaug

// JSON dataset files: per-image bounding box collections with attached
// label-field collections, in the external representation.

import (
	"encoding/json"
	"fmt"
	"image"
	"io/ioutil"

	"github.com/disintegration/imaging"
)

// FileAnnotations holds the annotations of a single image file.
//
// Bboxes carries coordinate rows in the dataset's external format. Labels
// maps each label-field name to its per-row values; positional
// correspondence with Bboxes is assumed.
type FileAnnotations struct {
	FilePath string                   `json:"filename"`
	Bboxes   [][]float64              `json:"bboxes"`
	Labels   map[string][]interface{} `json:"labels,omitempty"`
}

// ReadDataset reads and parses the dataset file at path.
func ReadDataset(path string) ([]FileAnnotations, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var data []FileAnnotations
	if err := json.Unmarshal(enc, &data); err != nil {
		return nil, fmt.Errorf("lblaug: failed to parse dataset from %q: %w", path, err)
	}
	return data, nil
}

// WriteDataset writes the dataset to outFile.
func WriteDataset(outFile string, data []FileAnnotations) error {
	enc, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(outFile, enc, 0644); err != nil {
		return fmt.Errorf("lblaug: cannot write file %q: %w", outFile, err)
	}
	return nil
}

// LoadImage reads and decodes the image referenced by the annotations.
func (f FileAnnotations) LoadImage() (image.Image, error) {
	return imaging.Open(f.FilePath)
}

// Data builds the per-image processing mapping from the annotations of f
// and the decoded image.
func (f FileAnnotations) Data(img image.Image) Data {
	data := Data{ImageField: img, "bboxes": f.Bboxes}
	for field, values := range f.Labels {
		data[field] = values
	}
	return data
}

// FromData replaces the box and label collections of f with the processed
// values from the mapping. labelFields names the label entries to copy
// back.
func (f *FileAnnotations) FromData(data Data, labelFields []string) error {
	boxes, ok := data["bboxes"].([][]float64)
	if !ok {
		return fmt.Errorf("lblaug: field \"bboxes\" has unexpected type %T", data["bboxes"])
	}
	f.Bboxes = boxes

	f.Labels = nil
	if len(labelFields) > 0 {
		f.Labels = make(map[string][]interface{}, len(labelFields))
		for _, field := range labelFields {
			values, err := labelValues(data[field])
			if err != nil {
				return fmt.Errorf("lblaug: label field %q: %w", field, err)
			}
			f.Labels[field] = values
		}
	}
	return nil
}
