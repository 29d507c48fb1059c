package landmarkService

import (
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark"
	landmarkTask "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/task"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/workflow"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/imaging"
)

const (
	defaultRunListLimit = 20
	maxRunListLimit     = 100
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// progressLogger reports task progress steps to the service log.
type progressLogger struct {
	log       *logrus.Logger
	requestID string
	task      string
	steps     int
}

func (p *progressLogger) Step() {
	p.steps++
	p.log.WithFields(logrus.Fields{
		"request_id": p.requestID,
		"task":       p.task,
		"step":       p.steps,
	}).Debug("Task progress step")
}

// Detect plays the workflow host for one request: it builds a task from the
// registered factory, feeds it the decoded image and runs it, then collects
// the detection and dictionary outputs.
func (s *landmarkService) Detect(ctx context.Context, input landmark.DetectionInput) (*landmark.DetectionResult, error) {
	runID, err := s.utils.NewULIDFromTimestamp(time.Now())
	if err != nil {
		return nil, err
	}

	requestID := input.RequestID
	if requestID == "" {
		requestID = runID
	}

	factory, ok := s.registry.Factory(landmarkTask.TaskName)
	if !ok {
		return nil, landmark.ErrUnknownAlgorithm
	}

	created, err := factory.Create(input.Params)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", landmark.ErrInvalidParams, err)
	}

	task, ok := created.(*landmarkTask.Task)
	if !ok {
		return nil, landmark.ErrInternalServerError
	}

	img, err := imaging.Decode(input.Image)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", landmark.ErrInvalidImagePayload, err)
	}

	task.InputImage().SetImage(img)
	task.SetProgressSink(&progressLogger{
		log:       s.log,
		requestID: requestID,
		task:      task.Name(),
	})

	started := time.Now()
	runErr := task.Run(ctx)
	elapsed := time.Since(started)

	run := entity.LandmarkRun{
		ID:              runID,
		RequestID:       requestID,
		Status:          entity.RunStatusCompleted,
		ConfThres:       task.Params().ConfThres,
		ImageBytes:      int64(len(input.Image)),
		AnnotationCount: len(task.Landmarks()),
		BoxCount:        len(task.Detections().Objects()),
		DurationMS:      elapsed.Milliseconds(),
	}

	if runErr != nil {
		run.Status = entity.RunStatusFailed
		run.ErrorMessage = runErr.Error()
		s.saveRun(ctx, run)

		return nil, runErr
	}

	result := &landmark.DetectionResult{
		RunID:           runID,
		Task:            task.Name(),
		Boxes:           task.Detections().Objects(),
		Landmarks:       task.Landmarks(),
		Outputs:         task.AuxOutput().Data(),
		AnnotationCount: run.AnnotationCount,
		BoxCount:        run.BoxCount,
		ElapsedMS:       run.DurationMS,
	}

	run.ArchiveURL = s.archiveRun(requestID, runID, input.Image, result)
	s.saveRun(ctx, run)

	s.log.WithFields(logrus.Fields{
		"request_id":  requestID,
		"run_id":      runID,
		"annotations": run.AnnotationCount,
		"boxes":       run.BoxCount,
		"elapsed_ms":  run.DurationMS,
	}).Info("Landmark detection completed")

	return result, nil
}

// ProcessFrame runs one detection over a streamed frame with default
// parameters.
func (s *landmarkService) ProcessFrame(frame []byte) (*landmark.DetectionResult, error) {
	return s.Detect(context.Background(), landmark.DetectionInput{Image: frame})
}

func (s *landmarkService) AlgorithmInfo() (workflow.TaskInfo, error) {
	factory, ok := s.registry.Factory(landmarkTask.TaskName)
	if !ok {
		return workflow.TaskInfo{}, landmark.ErrUnknownAlgorithm
	}

	return factory.Info(), nil
}

func (s *landmarkService) GetRun(ctx context.Context, id string) (entity.LandmarkRun, error) {
	if s.repository == nil {
		return entity.LandmarkRun{}, landmark.ErrRunHistoryDisabled
	}

	client, err := s.repository.NewClient(false)
	if err != nil {
		return entity.LandmarkRun{}, err
	}

	run, err := client.Runs.GetRunByID(ctx, id)
	if err != nil {
		return entity.LandmarkRun{}, err
	}

	// Archive objects are private; hand out a short-lived link instead of
	// the raw bucket URL.
	if run.ArchiveURL != "" && s.s3 != nil {
		if presigned, err := s.s3.PresignUrl(run.ArchiveURL); err == nil {
			run.ArchiveURL = presigned
		}
	}

	return run, nil
}

func (s *landmarkService) ListRuns(ctx context.Context, limit int) ([]entity.LandmarkRun, error) {
	if s.repository == nil {
		return nil, landmark.ErrRunHistoryDisabled
	}

	if limit <= 0 || limit > maxRunListLimit {
		limit = defaultRunListLimit
	}

	client, err := s.repository.NewClient(false)
	if err != nil {
		return nil, err
	}

	return client.Runs.ListRuns(ctx, limit)
}

// saveRun persists the run record when history is enabled. Failures are
// logged and do not affect the caller.
func (s *landmarkService) saveRun(ctx context.Context, run entity.LandmarkRun) {
	if s.repository == nil {
		return
	}

	client, err := s.repository.NewClient(false)
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": run.RequestID,
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Warn("Run history unavailable")
		return
	}

	if err := client.Runs.CreateRun(ctx, run); err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": run.RequestID,
			"run_id":     run.ID,
			"error":      err.Error(),
		}).Warn("Failed to persist run record")
	}
}

// archiveRun copies the submitted image and the rendered result to the
// archive bucket. Failures are logged and leave the archive URL empty.
func (s *landmarkService) archiveRun(requestID, runID string, image []byte, result *landmark.DetectionResult) string {
	if s.s3 == nil {
		return ""
	}

	location, err := s.s3.UploadBytes(fmt.Sprintf("runs/%s/input.jpg", runID), image, "image/jpeg")
	if err != nil {
		s.log.WithFields(logrus.Fields{
			"request_id": requestID,
			"run_id":     runID,
			"error":      err.Error(),
		}).Warn("Failed to archive run input")
		return ""
	}

	payload, err := json.Marshal(result)
	if err == nil {
		if _, err := s.s3.UploadBytes(fmt.Sprintf("runs/%s/result.json", runID), payload, "application/json"); err != nil {
			s.log.WithFields(logrus.Fields{
				"request_id": requestID,
				"run_id":     runID,
				"error":      err.Error(),
			}).Warn("Failed to archive run result")
		}
	}

	return location
}
