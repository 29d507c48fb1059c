package landmark

import (
	"net/http"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/response"
)

var (
	ErrInternalServerError    = response.NewError(http.StatusInternalServerError, "internal server error")
	ErrBadRequest             = response.NewError(http.StatusBadRequest, "bad request")
	ErrMissingImage           = response.NewError(http.StatusBadRequest, "no image set on task input")
	ErrInvalidImagePayload    = response.NewError(http.StatusBadRequest, "image payload could not be decoded")
	ErrInvalidParams          = response.NewError(http.StatusBadRequest, "invalid task parameters")
	ErrAnnotatorNotConfigured = response.NewError(http.StatusServiceUnavailable, "vision annotator is not configured")
	ErrRunNotFound            = response.NewError(http.StatusNotFound, "run not found")
	ErrRunHistoryDisabled     = response.NewError(http.StatusNotFound, "run history is not enabled")
	ErrUnknownAlgorithm       = response.NewError(http.StatusNotFound, "unknown algorithm")
)
