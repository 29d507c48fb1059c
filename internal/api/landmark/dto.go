package landmark

import (
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/workflow"
)

type DetectionRequest struct {
	ImageBase64 string `json:"image_base64" validate:"required"`
	ConfThres   string `json:"conf_thres,omitempty"`
}

type DetectionInput struct {
	RequestID string
	Image     []byte
	Params    map[string]string
}

type DetectionResult struct {
	RunID           string                `json:"run_id"`
	Task            string                `json:"task"`
	Boxes           []entity.DetectionBox `json:"boxes"`
	Landmarks       []entity.Landmark     `json:"landmarks"`
	Outputs         map[string]string     `json:"outputs"`
	AnnotationCount int                   `json:"annotation_count"`
	BoxCount        int                   `json:"box_count"`
	ElapsedMS       int64                 `json:"elapsed_ms"`
}

type DetectionResponse struct {
	Data  *DetectionResult `json:"data,omitempty"`
	Error string           `json:"error,omitempty"`
}

type AlgorithmResponse struct {
	Data workflow.TaskInfo `json:"data"`
}

type RunResponse struct {
	Data  *entity.LandmarkRun `json:"data,omitempty"`
	Error string              `json:"error,omitempty"`
}

type RunListResponse struct {
	Data  []entity.LandmarkRun `json:"data"`
	Error string               `json:"error,omitempty"`
}
