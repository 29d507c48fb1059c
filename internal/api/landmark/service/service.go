package landmarkService

import (
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark"
	landmarkRepository "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/repository"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/workflow"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/s3"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/utils"
)

type ILandmarkService interface {
	Detect(ctx context.Context, input landmark.DetectionInput) (*landmark.DetectionResult, error)
	ProcessFrame(frame []byte) (*landmark.DetectionResult, error)
	AlgorithmInfo() (workflow.TaskInfo, error)
	GetRun(ctx context.Context, id string) (entity.LandmarkRun, error)
	ListRuns(ctx context.Context, limit int) ([]entity.LandmarkRun, error)
}

type landmarkService struct {
	registry   *workflow.Registry
	repository landmarkRepository.Repository
	s3         s3.ItfS3
	utils      utils.IUtils
	log        *logrus.Logger
}

// NewLandmarkService wires the detection domain. repository and s3Client may
// be nil; run history and archiving are then disabled.
func NewLandmarkService(
	registry *workflow.Registry,
	repository landmarkRepository.Repository,
	s3Client s3.ItfS3,
	utils utils.IUtils,
	log *logrus.Logger,
) ILandmarkService {
	return &landmarkService{
		registry:   registry,
		repository: repository,
		s3:         s3Client,
		utils:      utils,
		log:        log,
	}
}
