package workflow

import (
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/imaging"
)

const (
	DataImage           = "image"
	DataObjectDetection = "object_detection"
	DataDict            = "data_dict"
)

// IO is a task input or output container.
type IO interface {
	DataType() string
}

type ImageIO struct {
	image *imaging.Image
}

func NewImageIO() *ImageIO {
	return &ImageIO{}
}

func (io *ImageIO) DataType() string {
	return DataImage
}

func (io *ImageIO) SetImage(img *imaging.Image) {
	io.image = img
}

func (io *ImageIO) Image() *imaging.Image {
	return io.image
}

type ObjectDetectionIO struct {
	names      []string
	registered []string
	objects    []entity.DetectionBox
}

func NewObjectDetectionIO() *ObjectDetectionIO {
	return &ObjectDetectionIO{}
}

func (io *ObjectDetectionIO) DataType() string {
	return DataObjectDetection
}

// SetNames replaces the class-name table. Every call is also appended to the
// registration log, so repeated registrations of the same label stay visible.
func (io *ObjectDetectionIO) SetNames(names ...string) {
	io.names = append([]string(nil), names...)
	io.registered = append(io.registered, names...)
}

// AddObject appends a detection box. The label is resolved from the
// class-name table as it stands at call time.
func (io *ObjectDetectionIO) AddObject(id, classIndex int, confidence, x, y, width, height float64) {
	var label string
	if classIndex >= 0 && classIndex < len(io.names) {
		label = io.names[classIndex]
	}

	io.objects = append(io.objects, entity.DetectionBox{
		ID:         id,
		Label:      label,
		ClassIndex: classIndex,
		Confidence: confidence,
		X:          x,
		Y:          y,
		Width:      width,
		Height:     height,
	})
}

func (io *ObjectDetectionIO) Objects() []entity.DetectionBox {
	return io.objects
}

func (io *ObjectDetectionIO) ClassNames() []string {
	return io.names
}

func (io *ObjectDetectionIO) RegisteredNames() []string {
	return io.registered
}

func (io *ObjectDetectionIO) Clear() {
	io.names = nil
	io.registered = nil
	io.objects = nil
}

type DataDictIO struct {
	data map[string]string
}

func NewDataDictIO() *DataDictIO {
	return &DataDictIO{data: make(map[string]string)}
}

func (io *DataDictIO) DataType() string {
	return DataDict
}

func (io *DataDictIO) Set(key, value string) {
	io.data[key] = value
}

func (io *DataDictIO) Get(key string) (string, bool) {
	value, ok := io.data[key]
	return value, ok
}

func (io *DataDictIO) Data() map[string]string {
	return io.data
}
