// Converts per-image bounding box annotations between coordinate formats
// (canonical pixel corners, pascal_voc, coco, yolo, normalized) by routing
// them through the canonical representation, keeping label fields attached,
// and optionally exports TFRecord files for TensorFlow object detection.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/sensorable/lblaug"
)

var (
	convertFrom string // The source coordinate format.
	convertTo   string // The target coordinate format, or "tfrecord".

	labelFilePath    string   // The input dataset file.
	labelOutFilePath string   // The output dataset or TFRecord file.
	imageDirPath     string   // Optional directory the image paths are relative to.
	labelFields      []string // The label fields attached to each box.

	minBboxWidth  float64 // The minimum clipped box width to keep a row.
	minBboxHeight float64 // The minimum clipped box height to keep a row.

	tfRecordLabelMapFilePath string // The TFRecord label map file.
	numShardFiles            int    // The number of TFRecord shard files to create.
)

// validFormat reports whether s names a known bounding box format.
func validFormat(s string) bool {
	switch s {
	case lblaug.FormatCanonical, lblaug.FormatPascalVOC, lblaug.FormatCOCO,
		lblaug.FormatYOLO, lblaug.FormatNormalized:
		return true
	}
	return false
}

func init() {
	flag.Usage = func() {
		_, _ = fmt.Fprintf(os.Stderr, "Usage of %s:\n", filepath.Base(os.Args[0]))
		_, _ = fmt.Fprintln(os.Stderr, "  formats:\t\tcanonical, pascal_voc, coco, yolo, normalized")
		_, _ = fmt.Fprintln(os.Stderr, "  tfrecord output:\t-to tfrecord -tfrecord-label-map-file <path>"+
			" [-num-shards]; the first -label-fields entry is used as the class field")
		_, _ = fmt.Fprintln(os.Stderr)
		flag.PrintDefaults()
	}

	printUsageAndExit := func(msg ...interface{}) {
		log.Print(msg...)
		flag.Usage()
		os.Exit(1)
	}

	// Format arguments.
	from := flag.String("from", "", "The source coordinate `format`")
	to := flag.String("to", "", "The target coordinate `format` or \"tfrecord\"")

	// Path arguments.
	flag.StringVar(&labelFilePath, "labels", labelFilePath,
		"The `path` to the input dataset file")
	flag.StringVar(&labelOutFilePath, "labels-out", labelOutFilePath,
		"The `path` to the output dataset or TFRecord file")
	flag.StringVar(&imageDirPath, "images", imageDirPath,
		"The `path` to the directory the image file names are relative to (optional)")
	flag.StringVar(&tfRecordLabelMapFilePath, "tfrecord-label-map-file", tfRecordLabelMapFilePath,
		"The TFRecord label map file `path`")
	flag.IntVar(&numShardFiles, "num-shards", 1,
		"The number of shard files to create (tfrecord only)")

	// Label and filter arguments.
	fields := flag.String("label-fields", "",
		"Comma-separated list (`name[,...]`) of label fields attached to each box")
	flag.Float64Var(&minBboxWidth, "min-bbox-width", minBboxWidth,
		"The min. required width in `pixels` for boxes after clipping to the image bounds")
	flag.Float64Var(&minBboxHeight, "min-bbox-height", minBboxHeight,
		"The min. required height in `pixels` for boxes after clipping to the image bounds")

	flag.Parse()

	convertFrom = *from
	convertTo = *to

	if !validFormat(convertFrom) {
		printUsageAndExit("Unsupported input format")
	}
	if !validFormat(convertTo) && convertTo != "tfrecord" {
		printUsageAndExit("Unsupported output format")
	}

	if labelFilePath == "" || labelOutFilePath == "" {
		printUsageAndExit("Missing label input or output path argument")
	}
	labelFilePath = filepath.Clean(labelFilePath)
	labelOutFilePath = filepath.Clean(labelOutFilePath)
	if labelFilePath == labelOutFilePath {
		printUsageAndExit("The label input and output paths cannot be identical")
	}
	if imageDirPath != "" {
		imageDirPath = filepath.Clean(imageDirPath)
	}

	if *fields != "" {
		labelFields = strings.Split(*fields, ",")
	}

	if convertTo == "tfrecord" {
		if tfRecordLabelMapFilePath == "" {
			printUsageAndExit("Missing TFRecord label map path argument")
		}
		tfRecordLabelMapFilePath = filepath.Clean(tfRecordLabelMapFilePath)
	}

	if minBboxWidth < 0 || minBboxHeight < 0 {
		printUsageAndExit("Invalid minimum bounding box size")
	}
}

// imagePath resolves the image path of f against the -images directory.
func imagePath(f lblaug.FileAnnotations) string {
	if imageDirPath == "" {
		return f.FilePath
	}
	return filepath.Join(imageDirPath, f.FilePath)
}

func main() {
	data, err := lblaug.ReadDataset(labelFilePath)
	if err != nil {
		log.Fatal("Failed to parse the input: ", err)
	}
	log.Printf("Read annotations for %d files", len(data))

	// TFRecord export works directly from the external representation.
	if convertTo == "tfrecord" {
		classField := ""
		if len(labelFields) > 0 {
			classField = labelFields[0]
		}
		if imageDirPath != "" {
			for i := range data {
				data[i].FilePath = imagePath(data[i])
			}
		}
		err := lblaug.WriteTFRecord(labelOutFilePath, tfRecordLabelMapFilePath, data,
			convertFrom, classField, numShardFiles)
		if err != nil {
			log.Fatal("TFRecord export failed: ", err)
		}
		log.Printf("Successfully wrote TFRecords for %d files to %s", len(data), labelOutFilePath)
		return
	}

	params := lblaug.NewFormatParams(convertFrom, labelFields)
	procIn := lblaug.NewBboxProcessor(params, nil)
	procOut := lblaug.NewProcessor(lblaug.NewFormatParams(convertTo, labelFields),
		&lblaug.BboxOps{Format: convertTo, MinWidth: minBboxWidth, MinHeight: minBboxHeight}, nil)

	converted := make([]lblaug.FileAnnotations, 0, len(data))
	for _, f := range data {
		img, err := imaging.Open(imagePath(f))
		if err != nil {
			log.Printf("Failed to load the image, skipping %q: %v", f.FilePath, err)
			continue
		}

		d := f.Data(img)
		if err := procIn.Preprocess(d); err != nil {
			log.Printf("Error while converting, skipping %q: %v", f.FilePath, err)
			continue
		}
		if _, err := procOut.Postprocess(d); err != nil {
			log.Printf("Error while converting, skipping %q: %v", f.FilePath, err)
			continue
		}
		if err := f.FromData(d, labelFields); err != nil {
			log.Printf("Error while converting, skipping %q: %v", f.FilePath, err)
			continue
		}
		converted = append(converted, f)
	}

	if err := lblaug.WriteDataset(labelOutFilePath, converted); err != nil {
		log.Fatal("Failed to write the output: ", err)
	}
	log.Printf("Successfully wrote labels for %d files to %s", len(converted), labelOutFilePath)
}
