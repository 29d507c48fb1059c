package landmarkService

import (
	"context"
	"errors"
	"io"
	"testing"

	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	statuspb "google.golang.org/genproto/googleapis/rpc/status"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark"
	landmarkRepository "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/repository"
	landmarkTask "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/task"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/entity"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/workflow"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/imaging"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/s3"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/utils"
	visionPkg "github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/vision"
)

type fakeAnnotator struct {
	resp  *visionpb.AnnotateImageResponse
	err   error
	calls int
}

func (f *fakeAnnotator) DetectLandmarks(_ context.Context, _ []byte) (*visionpb.AnnotateImageResponse, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.resp, nil
}

func (f *fakeAnnotator) Close() error { return nil }

type fakeRuns struct {
	created   []entity.LandmarkRun
	createErr error
	getRun    entity.LandmarkRun
	getErr    error
	listed    []entity.LandmarkRun
	listErr   error
	lastLimit int
}

func (f *fakeRuns) CreateRun(_ context.Context, run entity.LandmarkRun) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, run)
	return nil
}

func (f *fakeRuns) GetRunByID(_ context.Context, _ string) (entity.LandmarkRun, error) {
	if f.getErr != nil {
		return entity.LandmarkRun{}, f.getErr
	}
	return f.getRun, nil
}

func (f *fakeRuns) ListRuns(_ context.Context, limit int) ([]entity.LandmarkRun, error) {
	f.lastLimit = limit
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.listed, nil
}

type fakeRepository struct {
	runs      *fakeRuns
	clientErr error
}

func (f *fakeRepository) NewClient(_ bool) (landmarkRepository.Client, error) {
	if f.clientErr != nil {
		return landmarkRepository.Client{}, f.clientErr
	}

	return landmarkRepository.Client{
		Runs:     f.runs,
		Commit:   func() error { return nil },
		Rollback: func() error { return nil },
	}, nil
}

type fakeS3 struct {
	uploads    map[string][]byte
	types      map[string]string
	uploadErr  error
	presignErr error
}

func (f *fakeS3) UploadBytes(key string, payload []byte, contentType string) (string, error) {
	if f.uploadErr != nil {
		return "", f.uploadErr
	}

	if f.uploads == nil {
		f.uploads = make(map[string][]byte)
		f.types = make(map[string]string)
	}
	f.uploads[key] = append([]byte(nil), payload...)
	f.types[key] = contentType

	return "https://bucket.s3.amazonaws.com/" + key, nil
}

func (f *fakeS3) PresignUrl(fileURL string) (string, error) {
	if f.presignErr != nil {
		return "", f.presignErr
	}
	return fileURL + "?signed", nil
}

func (f *fakeS3) DeleteFile(_ string) error { return nil }

func newTestLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newService(t *testing.T, annotator visionPkg.IAnnotator, repo landmarkRepository.Repository, s3Client s3.ItfS3) ILandmarkService {
	t.Helper()

	registry := workflow.NewRegistry()
	require.NoError(t, registry.Register(landmarkTask.NewFactory(annotator, newTestLogger())))

	return NewLandmarkService(registry, repo, s3Client, utils.New(), newTestLogger())
}

func testJPEG(t *testing.T) []byte {
	t.Helper()

	payload, err := imaging.EncodeJPEG(imaging.New(2, 2), imaging.DefaultJPEGQuality)
	require.NoError(t, err)

	return payload
}

func makeResponse(annotations ...*visionpb.EntityAnnotation) *visionpb.AnnotateImageResponse {
	return &visionpb.AnnotateImageResponse{LandmarkAnnotations: annotations}
}

func makeAnnotation(description string, score float32) *visionpb.EntityAnnotation {
	return &visionpb.EntityAnnotation{
		Description: description,
		Score:       score,
		BoundingPoly: &visionpb.BoundingPoly{
			Vertices: []*visionpb.Vertex{
				{X: 0, Y: 0}, {X: 10, Y: 0}, {X: 10, Y: 10}, {X: 0, Y: 10},
			},
		},
	}
}

// TestDetect tests the full host flow with persistence and archiving.
func TestDetect(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	archive := &fakeS3{}
	payload := testJPEG(t)
	service := newService(t, &fakeAnnotator{resp: makeResponse(makeAnnotation("Eiffel Tower", 0.9))}, &fakeRepository{runs: runs}, archive)

	result, err := service.Detect(context.Background(), landmark.DetectionInput{
		RequestID: "req-1",
		Image:     payload,
	})
	require.NoError(t, err)

	assert.Len(t, result.RunID, 26)
	assert.Equal(t, landmarkTask.TaskName, result.Task)
	assert.Equal(t, 1, result.AnnotationCount)
	assert.Equal(t, 1, result.BoxCount)
	require.Len(t, result.Boxes, 1)
	assert.Equal(t, "Eiffel Tower", result.Boxes[0].Label)
	assert.NotEmpty(t, result.Outputs["Landmarks"])

	require.Len(t, runs.created, 1)
	run := runs.created[0]
	assert.Equal(t, result.RunID, run.ID)
	assert.Equal(t, "req-1", run.RequestID)
	assert.Equal(t, entity.RunStatusCompleted, run.Status)
	assert.Equal(t, 0.2, run.ConfThres)
	assert.Equal(t, int64(len(payload)), run.ImageBytes)
	assert.Equal(t, 1, run.AnnotationCount)
	assert.Equal(t, 1, run.BoxCount)
	assert.Equal(t, "https://bucket.s3.amazonaws.com/runs/"+run.ID+"/input.jpg", run.ArchiveURL)

	assert.Equal(t, payload, archive.uploads["runs/"+run.ID+"/input.jpg"])
	assert.Equal(t, "image/jpeg", archive.types["runs/"+run.ID+"/input.jpg"])

	archived := archive.uploads["runs/"+run.ID+"/result.json"]
	require.NotEmpty(t, archived)
	assert.Equal(t, "application/json", archive.types["runs/"+run.ID+"/result.json"])

	var archivedResult landmark.DetectionResult
	require.NoError(t, json.Unmarshal(archived, &archivedResult))
	assert.Equal(t, result.RunID, archivedResult.RunID)
}

// TestDetectAppliesParams tests threshold overrides from the request.
func TestDetectAppliesParams(t *testing.T) {
	t.Parallel()

	service := newService(t, &fakeAnnotator{resp: makeResponse(makeAnnotation("Eiffel Tower", 0.5))}, nil, nil)

	result, err := service.Detect(context.Background(), landmark.DetectionInput{
		Image:  testJPEG(t),
		Params: map[string]string{landmarkTask.KeyConfThres: "0.95"},
	})
	require.NoError(t, err)

	assert.Equal(t, 1, result.AnnotationCount)
	assert.Zero(t, result.BoxCount)
	assert.Empty(t, result.Boxes)
}

// TestDetectInvalidParams tests rejection of malformed parameter values.
func TestDetectInvalidParams(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	service := newService(t, &fakeAnnotator{resp: makeResponse()}, &fakeRepository{runs: runs}, nil)

	_, err := service.Detect(context.Background(), landmark.DetectionInput{
		Image:  testJPEG(t),
		Params: map[string]string{landmarkTask.KeyConfThres: "high"},
	})
	assert.ErrorIs(t, err, landmark.ErrInvalidParams)
	assert.Empty(t, runs.created)
}

// TestDetectInvalidImage tests rejection of undecodable payloads.
func TestDetectInvalidImage(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	annotator := &fakeAnnotator{resp: makeResponse()}
	service := newService(t, annotator, &fakeRepository{runs: runs}, nil)

	_, err := service.Detect(context.Background(), landmark.DetectionInput{
		Image: []byte("not an image"),
	})
	assert.ErrorIs(t, err, landmark.ErrInvalidImagePayload)
	assert.Zero(t, annotator.calls)
	assert.Empty(t, runs.created)
}

// TestDetectServiceErrorRecorded tests persistence of failed runs.
func TestDetectServiceErrorRecorded(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	annotator := &fakeAnnotator{resp: &visionpb.AnnotateImageResponse{
		Error: &statuspb.Status{Code: 3, Message: "Invalid image."},
	}}
	service := newService(t, annotator, &fakeRepository{runs: runs}, nil)

	_, err := service.Detect(context.Background(), landmark.DetectionInput{Image: testJPEG(t)})
	require.Error(t, err)

	var svcErr *visionPkg.ServiceError
	require.ErrorAs(t, err, &svcErr)

	require.Len(t, runs.created, 1)
	assert.Equal(t, entity.RunStatusFailed, runs.created[0].Status)
	assert.Contains(t, runs.created[0].ErrorMessage, "Invalid image.")
	assert.Contains(t, runs.created[0].ErrorMessage, "https://cloud.google.com/apis/design/errors")
}

// TestDetectGeneratesRequestID tests the request id fallback.
func TestDetectGeneratesRequestID(t *testing.T) {
	t.Parallel()

	runs := &fakeRuns{}
	service := newService(t, &fakeAnnotator{resp: makeResponse()}, &fakeRepository{runs: runs}, nil)

	result, err := service.Detect(context.Background(), landmark.DetectionInput{Image: testJPEG(t)})
	require.NoError(t, err)

	require.Len(t, runs.created, 1)
	assert.Equal(t, result.RunID, runs.created[0].RequestID)
}

// TestDetectBestEffortPersistence tests that storage failures never fail a detection.
func TestDetectBestEffortPersistence(t *testing.T) {
	t.Parallel()

	t.Run("create failure", func(t *testing.T) {
		t.Parallel()
		runs := &fakeRuns{createErr: errors.New("connection refused")}
		service := newService(t, &fakeAnnotator{resp: makeResponse()}, &fakeRepository{runs: runs}, nil)

		_, err := service.Detect(context.Background(), landmark.DetectionInput{Image: testJPEG(t)})
		assert.NoError(t, err)
	})

	t.Run("archive failure leaves the url empty", func(t *testing.T) {
		t.Parallel()
		runs := &fakeRuns{}
		archive := &fakeS3{uploadErr: errors.New("access denied")}
		service := newService(t, &fakeAnnotator{resp: makeResponse()}, &fakeRepository{runs: runs}, archive)

		_, err := service.Detect(context.Background(), landmark.DetectionInput{Image: testJPEG(t)})
		require.NoError(t, err)
		require.Len(t, runs.created, 1)
		assert.Empty(t, runs.created[0].ArchiveURL)
	})

	t.Run("client failure", func(t *testing.T) {
		t.Parallel()
		service := newService(t, &fakeAnnotator{resp: makeResponse()}, &fakeRepository{clientErr: errors.New("pool exhausted")}, nil)

		_, err := service.Detect(context.Background(), landmark.DetectionInput{Image: testJPEG(t)})
		assert.NoError(t, err)
	})
}

// TestDetectWithoutRegisteredFactory tests lookup of an unregistered algorithm.
func TestDetectWithoutRegisteredFactory(t *testing.T) {
	t.Parallel()

	service := NewLandmarkService(workflow.NewRegistry(), nil, nil, utils.New(), newTestLogger())

	_, err := service.Detect(context.Background(), landmark.DetectionInput{Image: testJPEG(t)})
	assert.ErrorIs(t, err, landmark.ErrUnknownAlgorithm)

	_, err = service.AlgorithmInfo()
	assert.ErrorIs(t, err, landmark.ErrUnknownAlgorithm)
}

// TestProcessFrame tests streamed-frame detection with default parameters.
func TestProcessFrame(t *testing.T) {
	t.Parallel()

	service := newService(t, &fakeAnnotator{resp: makeResponse()}, nil, nil)

	result, err := service.ProcessFrame(testJPEG(t))
	require.NoError(t, err)
	assert.Zero(t, result.BoxCount)
	assert.Equal(t, "[]", result.Outputs["Landmarks"])
}

// TestAlgorithmInfo tests the published catalog entry.
func TestAlgorithmInfo(t *testing.T) {
	t.Parallel()

	service := newService(t, &fakeAnnotator{}, nil, nil)

	info, err := service.AlgorithmInfo()
	require.NoError(t, err)
	assert.Equal(t, landmarkTask.TaskName, info.Name)
}

// TestRunHistory tests run lookups through the repository client.
func TestRunHistory(t *testing.T) {
	t.Parallel()

	t.Run("get run", func(t *testing.T) {
		t.Parallel()
		runs := &fakeRuns{getRun: entity.LandmarkRun{ID: "01ARZ", Status: entity.RunStatusCompleted}}
		service := newService(t, &fakeAnnotator{}, &fakeRepository{runs: runs}, nil)

		run, err := service.GetRun(context.Background(), "01ARZ")
		require.NoError(t, err)
		assert.Equal(t, "01ARZ", run.ID)
	})

	t.Run("get run presigns the archive url", func(t *testing.T) {
		t.Parallel()
		runs := &fakeRuns{getRun: entity.LandmarkRun{
			ID:         "01ARZ",
			ArchiveURL: "https://bucket.s3.amazonaws.com/runs/01ARZ/input.jpg",
		}}
		service := newService(t, &fakeAnnotator{}, &fakeRepository{runs: runs}, &fakeS3{})

		run, err := service.GetRun(context.Background(), "01ARZ")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.s3.amazonaws.com/runs/01ARZ/input.jpg?signed", run.ArchiveURL)
	})

	t.Run("presign failures fall back to the stored url", func(t *testing.T) {
		t.Parallel()
		runs := &fakeRuns{getRun: entity.LandmarkRun{
			ID:         "01ARZ",
			ArchiveURL: "https://bucket.s3.amazonaws.com/runs/01ARZ/input.jpg",
		}}
		service := newService(t, &fakeAnnotator{}, &fakeRepository{runs: runs}, &fakeS3{presignErr: errors.New("missing object")})

		run, err := service.GetRun(context.Background(), "01ARZ")
		require.NoError(t, err)
		assert.Equal(t, "https://bucket.s3.amazonaws.com/runs/01ARZ/input.jpg", run.ArchiveURL)
	})

	t.Run("get run propagates repository errors", func(t *testing.T) {
		t.Parallel()
		runs := &fakeRuns{getErr: landmark.ErrRunNotFound}
		service := newService(t, &fakeAnnotator{}, &fakeRepository{runs: runs}, nil)

		_, err := service.GetRun(context.Background(), "missing")
		assert.ErrorIs(t, err, landmark.ErrRunNotFound)
	})

	t.Run("list clamps the limit", func(t *testing.T) {
		t.Parallel()
		for _, tc := range []struct {
			limit int
			want  int
		}{
			{limit: 0, want: 20},
			{limit: -5, want: 20},
			{limit: 101, want: 20},
			{limit: 100, want: 100},
			{limit: 50, want: 50},
		} {
			runs := &fakeRuns{}
			service := newService(t, &fakeAnnotator{}, &fakeRepository{runs: runs}, nil)

			_, err := service.ListRuns(context.Background(), tc.limit)
			require.NoError(t, err)
			assert.Equal(t, tc.want, runs.lastLimit)
		}
	})

	t.Run("disabled without a repository", func(t *testing.T) {
		t.Parallel()
		service := newService(t, &fakeAnnotator{}, nil, nil)

		_, err := service.GetRun(context.Background(), "01ARZ")
		assert.ErrorIs(t, err, landmark.ErrRunHistoryDisabled)

		_, err = service.ListRuns(context.Background(), 10)
		assert.ErrorIs(t, err, landmark.ErrRunHistoryDisabled)
	})
}
