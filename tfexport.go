package lblaug

// TFRecord object detection export.
//
// Boxes are converted to the canonical representation first and emitted as
// normalized corner coordinates, the layout the TensorFlow object detection
// tooling expects.

import (
	"encoding/json"
	"fmt"
	"image"
	"io"
	"io/ioutil"
	"log"
	"math"
	"os"

	"github.com/golang/protobuf/proto"
	"github.com/ryszard/tfutils/go/example"
	"github.com/ryszard/tfutils/go/tfrecord"
	"github.com/ryszard/tfutils/proto/tensorflow/core/example" // package tensorflow
)

// TFFeatureMap maps feature names to their values. Values must be
// convertible to tensorflow.Feature.
type TFFeatureMap map[string]interface{}

// WriteTFRecord converts the annotations to tensorflow.Example records and
// writes them to one or more TFRecord files under recordPath (with shard
// suffixes added when numShards > 1).
//
// format names the coordinate format of the box rows in data. classField
// selects the label field holding the class of each box; its values are
// emitted as class text and mapped to integer ids. The string-to-id map is
// loaded from and saved to labelMapPath as JSON, so repeated exports keep
// ids stable.
func WriteTFRecord(recordPath, labelMapPath string, data []FileAnnotations,
	format, classField string, numShards int) (err error) {
	defer func() {
		if e := recover(); e != nil {
			err = fmt.Errorf("lblaug: conversion to TensorFlow Example failed: %v", e)
		}
	}()

	if numShards <= 0 {
		numShards = 1
	}

	// Try to load an existing label map. A missing file starts a new map.
	labelMap, maxID, err := loadLabelMap(labelMapPath)
	if err == nil {
		log.Print("Label map loaded successfully")
	} else if os.IsNotExist(err) {
		log.Print("Creating a new label map")
		labelMap = make(map[string]int32)
	} else {
		return fmt.Errorf("lblaug: failed to read the label map from %q: %w", labelMapPath, err)
	}
	nextID := maxID + 1

	proc := NewBboxProcessor(NewFormatParams(format, nil), nil)

	var shardFile *os.File
	shardSize := int(math.Ceil(float64(len(data)) / float64(numShards)))
	shardIdx := -1

	// Convert and serialise one data element at a time.
	for i, fileData := range data {
		// Check if a new shard file needs to be opened for writing.
		if i%shardSize == 0 {
			shardIdx++
			if shardFile != nil {
				_ = shardFile.Close()
				shardFile = nil
			}

			shardPath := recordPath
			if numShards > 1 {
				shardPath += fmt.Sprintf("-%05d-of-%05d", shardIdx, numShards)
			}
			f, err := os.Create(shardPath)
			if err != nil {
				return fmt.Errorf("lblaug: failed to create shard at %q: %w", shardPath, err)
			}
			shardFile = f
		}

		features, err := toTFFeatures(proc, fileData, classField, labelMap, &nextID)
		if err != nil {
			log.Printf("Failed to convert %q: %v", fileData.FilePath, err)
			continue
		}
		tfExample := example.New(features)

		if err := writeTFRecordExample(shardFile, tfExample); err != nil {
			log.Print("Failed to write example: ", err)
			break
		}
	}

	if shardFile != nil {
		shardFile.Close()
	}

	return saveLabelMap(labelMapPath, labelMap)
}

// toTFFeatures builds the feature map for a single annotated file. New
// class names are assigned ids from *nextID.
func toTFFeatures(proc *Processor, f FileAnnotations, classField string,
	labelMap map[string]int32, nextID *int32) (TFFeatureMap, error) {
	// Get the image width and height.
	img, format, err := decodeImageConfig(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to decode the image metadata: %w", err)
	}

	// Read the image data.
	imgData, err := ioutil.ReadFile(f.FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read the image: %w", err)
	}

	// Convert the boxes to normalized corner coordinates via the canonical
	// representation.
	rows, err := toInternal(f.Bboxes)
	if err != nil {
		return nil, err
	}
	canonical, err := proc.CheckAndConvert(rows, img.Height, img.Width, DirectionTo)
	if err != nil {
		return nil, err
	}
	norm, err := (&BboxOps{Format: FormatNormalized}).FromCanonical(canonical, img.Height, img.Width)
	if err != nil {
		return nil, err
	}

	features := make(TFFeatureMap, 16)
	features["image/height"] = img.Height
	features["image/width"] = img.Width
	features["image/filename"] = f.FilePath
	features["image/source_id"] = f.FilePath
	features["image/encoded"] = imgData
	features["image/format"] = format

	numBoxes := len(norm)
	xmins := make([]float32, numBoxes)
	ymins := make([]float32, numBoxes)
	xmaxs := make([]float32, numBoxes)
	ymaxs := make([]float32, numBoxes)
	for i, r := range norm {
		xmins[i] = float32(r.Coords[0])
		ymins[i] = float32(r.Coords[1])
		xmaxs[i] = float32(r.Coords[2])
		ymaxs[i] = float32(r.Coords[3])
	}
	features["image/object/bbox/xmin"] = xmins
	features["image/object/bbox/ymin"] = ymins
	features["image/object/bbox/xmax"] = xmaxs
	features["image/object/bbox/ymax"] = ymaxs

	if classField != "" {
		values := f.Labels[classField]
		if len(values) != numBoxes {
			return nil, fmt.Errorf("%w: field %q has %d values, want %d",
				ErrLabelLengthMismatch, classField, len(values), numBoxes)
		}
		classes := make([]string, numBoxes)
		classIDs := make([]int64, numBoxes)
		for i, v := range values {
			classes[i] = fmt.Sprint(v)

			// Assign the id for the class name, selecting a new one if no
			// mapping exists.
			id := labelMap[classes[i]]
			if id == 0 {
				id = *nextID
				labelMap[classes[i]] = id
				*nextID++
			}
			classIDs[i] = int64(id)
		}
		features["image/object/class/text"] = classes
		features["image/object/class/label"] = classIDs
	}

	return features, nil
}

// writeTFRecordExample serialises the example and writes it as a TFRecord
// to w.
func writeTFRecordExample(w io.Writer, e *tensorflow.Example) error {
	enc, err := proto.Marshal(e)
	if err != nil {
		return err
	}
	return tfrecord.Write(w, enc)
}

// decodeImageConfig opens the file at path and returns the results of
// image.DecodeConfig.
func decodeImageConfig(path string) (config image.Config, format string, err error) {
	file, err := os.Open(path)
	if err != nil {
		return image.Config{}, "", err
	}
	defer file.Close()

	return image.DecodeConfig(file)
}

// saveLabelMap writes the class-name-to-id map to path as JSON.
func saveLabelMap(path string, labelMap map[string]int32) error {
	enc, err := json.MarshalIndent(labelMap, "", "  ")
	if err != nil {
		return err
	}
	if err := ioutil.WriteFile(path, enc, 0644); err != nil {
		return fmt.Errorf("lblaug: failed to write the label map %q: %w", path, err)
	}
	return nil
}

// loadLabelMap loads the class-name-to-id map from path. It also returns
// the largest id in the map.
//
// If an error occurs because the file does not exist, os.IsNotExist returns
// true for it.
func loadLabelMap(path string) (map[string]int32, int32, error) {
	enc, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, 0, err
	}

	var labelMap map[string]int32
	if err := json.Unmarshal(enc, &labelMap); err != nil {
		return nil, 0, err
	}

	var maxID int32
	for k, v := range labelMap {
		if k == "" || v <= 0 {
			return nil, 0, fmt.Errorf("lblaug: invalid label map entry: %q: %d", k, v)
		}
		if v > maxID {
			maxID = v
		}
	}
	return labelMap, maxID, nil
}
