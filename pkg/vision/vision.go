package vision

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"

	vision "cloud.google.com/go/vision/apiv1"
	"cloud.google.com/go/vision/v2/apiv1/visionpb"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
)

const (
	defaultMaxResults = 10
	cloudScope        = "https://www.googleapis.com/auth/cloud-platform"
	errorDocsURL      = "https://cloud.google.com/apis/design/errors"
)

type IAnnotator interface {
	DetectLandmarks(ctx context.Context, image []byte) (*visionpb.AnnotateImageResponse, error)
	Close() error
}

type annotatorClient struct {
	client     *vision.ImageAnnotatorClient
	maxResults int32
}

// New builds the process-wide image annotator. GOOGLE_APPLICATION_CREDENTIALS
// selects a service-account file; when unset the SDK falls back to
// application-default credentials. VISION_MAX_RESULTS caps the annotations
// asked for per request.
func New(ctx context.Context) (IAnnotator, error) {
	maxResults := defaultMaxResults
	if raw := os.Getenv("VISION_MAX_RESULTS"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid VISION_MAX_RESULTS %q", raw)
		}
		maxResults = n
	}

	var opts []option.ClientOption
	if credentialsPath := os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"); credentialsPath != "" {
		if err := preflightCredentials(ctx, credentialsPath); err != nil {
			return nil, err
		}
		opts = append(opts, option.WithCredentialsFile(credentialsPath))
	}

	client, err := vision.NewImageAnnotatorClient(ctx, opts...)
	if err != nil {
		return nil, err
	}

	return &annotatorClient{
		client:     client,
		maxResults: int32(maxResults),
	}, nil
}

// preflightCredentials rejects unreadable or malformed service-account files
// before the first request hits the service.
func preflightCredentials(ctx context.Context, path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read credentials file: %w", err)
	}

	if _, err := google.CredentialsFromJSON(ctx, raw, cloudScope); err != nil {
		return fmt.Errorf("parse credentials file %s: %w", path, err)
	}

	return nil
}

func (a *annotatorClient) DetectLandmarks(ctx context.Context, image []byte) (*visionpb.AnnotateImageResponse, error) {
	if len(image) == 0 {
		return nil, errors.New("empty image payload")
	}

	img, err := vision.NewImageFromReader(bytes.NewReader(image))
	if err != nil {
		return nil, err
	}

	req := &visionpb.AnnotateImageRequest{
		Image: img,
		Features: []*visionpb.Feature{
			{
				Type:       visionpb.Feature_LANDMARK_DETECTION,
				MaxResults: a.maxResults,
			},
		},
	}

	return a.client.AnnotateImage(ctx, req)
}

func (a *annotatorClient) Close() error {
	if a.client == nil {
		return nil
	}
	return a.client.Close()
}

// ServiceError is an error the vision service reported inside an otherwise
// successful annotation response.
type ServiceError struct {
	Message string
}

func (e *ServiceError) Error() string {
	return fmt.Sprintf("%s\nFor more info on error messages, check: %s", e.Message, errorDocsURL)
}

// ResponseError returns the error the service attached to resp, or nil when
// the response carries none.
func ResponseError(resp *visionpb.AnnotateImageResponse) error {
	if resp.GetError().GetMessage() == "" {
		return nil
	}

	return &ServiceError{Message: resp.GetError().GetMessage()}
}
