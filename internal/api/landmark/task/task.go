package landmarkTask

import (
	"fmt"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/workflow"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/imaging"
	visionPkg "github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/vision"
)

const (
	TaskName = "infer_google_vision_landmark_detection"

	auxOutputKey       = "Landmarks"
	landmarkClassIndex = 0
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Task wraps the Cloud Vision landmark detector as a workflow task. Slot
// layout on top of the detection base: output 2 holds the raw landmark list
// as a data dictionary.
type Task struct {
	workflow.ObjectDetectionTask
	annotator visionPkg.IAnnotator
	params    Params
	log       *logrus.Logger
	landmarks []entity.Landmark
}

func New(annotator visionPkg.IAnnotator, params Params, log *logrus.Logger) *Task {
	t := &Task{
		ObjectDetectionTask: *workflow.NewObjectDetectionTask(TaskName, log),
		annotator:           annotator,
		params:              params,
		log:                 log,
	}
	t.AddOutput(workflow.NewDataDictIO())

	return t
}

func (t *Task) Params() Params {
	return t.params
}

// Landmarks returns the full translated annotation list of the last run,
// before confidence filtering.
func (t *Task) Landmarks() []entity.Landmark {
	return t.landmarks
}

func (t *Task) AuxOutput() *workflow.DataDictIO {
	out, _ := t.Output(2).(*workflow.DataDictIO)
	return out
}

func (t *Task) Run(ctx context.Context) error {
	t.BeginTaskRun()

	input := t.InputImage()
	if input == nil || input.Image().Empty() {
		return landmark.ErrMissingImage
	}

	if t.annotator == nil {
		return landmark.ErrAnnotatorNotConfigured
	}

	// The detector expects BGR byte order on the wire.
	encoded, err := imaging.EncodeJPEG(input.Image().ReverseChannels(), imaging.DefaultJPEGQuality)
	if err != nil {
		return fmt.Errorf("encode input image: %w", err)
	}

	resp, err := t.annotator.DetectLandmarks(ctx, encoded)
	if err != nil {
		return err
	}

	if err := visionPkg.ResponseError(resp); err != nil {
		return err
	}

	annotations := resp.GetLandmarkAnnotations()
	t.landmarks = translateAnnotations(annotations)

	if len(annotations) == 0 {
		t.log.Info("No landmark detected")
	}

	for i, annotation := range annotations {
		score := float64(annotation.GetScore())
		if score < t.params.ConfThres {
			continue
		}

		vertices := annotation.GetBoundingPoly().GetVertices()
		if len(vertices) < 3 {
			t.log.WithFields(logrus.Fields{
				"index":       i,
				"description": annotation.GetDescription(),
			}).Warn("Skipping annotation with incomplete bounding polygon")
			continue
		}

		x := float64(vertices[0].GetX())
		y := float64(vertices[0].GetY())
		width := float64(vertices[1].GetX()) - x
		height := float64(vertices[2].GetY()) - y

		t.SetNames(annotation.GetDescription())
		t.AddObject(i, landmarkClassIndex, score, x, y, width, height)

		for _, location := range annotation.GetLocations() {
			t.log.WithFields(logrus.Fields{
				"landmark":  annotation.GetDescription(),
				"latitude":  location.GetLatLng().GetLatitude(),
				"longitude": location.GetLatLng().GetLongitude(),
			}).Debug("Landmark location")
		}
	}

	if err := t.writeAuxOutput(); err != nil {
		return err
	}

	t.EmitStepProgress()
	t.EndTaskRun()

	return nil
}

// writeAuxOutput publishes the unfiltered landmark list on output slot 2.
// An empty list renders as "[]".
func (t *Task) writeAuxOutput() error {
	rendered, err := json.MarshalToString(t.landmarks)
	if err != nil {
		return fmt.Errorf("render landmarks payload: %w", err)
	}

	if out := t.AuxOutput(); out != nil {
		out.Set(auxOutputKey, rendered)
	}

	return nil
}

func translateAnnotations(annotations []*visionpb.EntityAnnotation) []entity.Landmark {
	landmarks := make([]entity.Landmark, 0, len(annotations))

	for _, annotation := range annotations {
		lm := entity.Landmark{
			Description: annotation.GetDescription(),
			Score:       float64(annotation.GetScore()),
		}

		for _, vertex := range annotation.GetBoundingPoly().GetVertices() {
			lm.Polygon = append(lm.Polygon, entity.Vertex{X: vertex.GetX(), Y: vertex.GetY()})
		}

		for _, location := range annotation.GetLocations() {
			lm.Locations = append(lm.Locations, entity.GeoPoint{
				Latitude:  location.GetLatLng().GetLatitude(),
				Longitude: location.GetLatLng().GetLongitude(),
			})
		}

		landmarks = append(landmarks, lm)
	}

	return landmarks
}

// Factory builds landmark tasks around the process-wide annotator.
type Factory struct {
	annotator visionPkg.IAnnotator
	log       *logrus.Logger
}

func NewFactory(annotator visionPkg.IAnnotator, log *logrus.Logger) *Factory {
	return &Factory{
		annotator: annotator,
		log:       log,
	}
}

func (f *Factory) Info() workflow.TaskInfo {
	return workflow.TaskInfo{
		Name:              TaskName,
		ShortDescription:  "Landmark Detection detects popular natural and human-made structures within an image.",
		Path:              "Plugins/Go/Detection",
		Version:           "1.0.0",
		IconPath:          "images/cloud.png",
		Authors:           "Google",
		Year:              2023,
		License:           "Apache License 2.0",
		DocumentationLink: "https://cloud.google.com/vision/docs/detecting-landmarks",
		Repository:        "https://github.com/googleapis/google-cloud-go",
		Keywords:          "Landmark detection,Cloud,Vision AI",
		AlgoType:          workflow.AlgoInfer,
		AlgoTasks:         []string{workflow.TaskObjectDetection},
	}
}

func (f *Factory) Create(values map[string]string) (workflow.Task, error) {
	params := DefaultParams()
	if err := params.SetValues(values); err != nil {
		return nil, err
	}

	return New(f.annotator, params, f.log), nil
}
