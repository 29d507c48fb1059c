package landmarkHandler

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"golang.org/x/net/context"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark"
	landmarkTask "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/task"
	contextPkg "github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/context"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/handlerUtil"
	jwtPkg "github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/jwt"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/log"
)

func (h *LandmarkHandler) Detect(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c := contextPkg.FromFiberCtx(ctx)

	errHandler := handlerUtil.New(h.log)

	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"path":       ctx.Path(),
	}).Debug("Processing landmark detection request")

	var imageBytes []byte
	params := make(map[string]string)

	file, err := ctx.FormFile("image")
	if err == nil {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
			"file_name":  file.Filename,
			"file_size":  file.Size,
		}).Debug("Processing file upload")

		if err := h.utils.ValidateImageFile(file); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "validate_image_file")
		}

		fileContent, err := file.Open()
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "open_file")
		}
		defer fileContent.Close()

		imageBytes, err = h.utils.ReadFileBytes(fileContent)
		if err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "read_file")
		}

		if confThres := ctx.FormValue("conf_thres"); confThres != "" {
			params[landmarkTask.KeyConfThres] = confThres
		}
	} else {
		h.log.WithFields(log.Fields{
			"request_id": requestID,
			"path":       ctx.Path(),
		}).Debug("Processing JSON request")

		var req landmark.DetectionRequest
		if err := ctx.BodyParser(&req); err != nil {
			return errHandler.Handle(ctx, requestID, err, ctx.Path(), "parse_request_body")
		}

		if err := h.validator.Struct(req); err != nil {
			return errHandler.HandleValidationError(ctx, requestID, err, ctx.Path())
		}

		imageBytes, err = h.utils.DecodeBase64Image(req.ImageBase64)
		if err != nil {
			return errHandler.Handle(ctx, requestID,
				fmt.Errorf("%w: %v", landmark.ErrInvalidImagePayload, err), ctx.Path(), "decode_base64_image")
		}

		if req.ConfThres != "" {
			params[landmarkTask.KeyConfThres] = req.ConfThres
		}
	}

	result, err := h.landmarkService.Detect(c, landmark.DetectionInput{
		RequestID: requestID,
		Image:     imageBytes,
		Params:    params,
	})
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "detect_landmarks")
	}

	client, _ := jwtPkg.GetAPIClient(ctx)
	h.log.WithFields(log.Fields{
		"request_id": requestID,
		"client":     client.Name,
		"path":       ctx.Path(),
		"run_id":     result.RunID,
		"boxes":      result.BoxCount,
	}).Info("Landmark detection successful")

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, landmark.DetectionResponse{
		Data: result,
	})
}

func (h *LandmarkHandler) Algorithm(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	errHandler := handlerUtil.New(h.log)

	info, err := h.landmarkService.AlgorithmInfo()
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "algorithm_info")
	}

	return errHandler.HandleSuccess(ctx, fiber.StatusOK, landmark.AlgorithmResponse{
		Data: info,
	})
}

func (h *LandmarkHandler) GetRun(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	run, err := h.landmarkService.GetRun(c, ctx.Params("id"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "get_run")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, landmark.RunResponse{
			Data: &run,
		})
	}
}

func (h *LandmarkHandler) ListRuns(ctx *fiber.Ctx) error {
	requestID := h.middleware.GetRequestID(ctx)
	c, cancel := context.WithTimeout(contextPkg.FromFiberCtx(ctx), 10*time.Second)
	defer cancel()

	errHandler := handlerUtil.New(h.log)

	runs, err := h.landmarkService.ListRuns(c, ctx.QueryInt("limit"))
	if err != nil {
		return errHandler.Handle(ctx, requestID, err, ctx.Path(), "list_runs")
	}

	select {
	case <-c.Done():
		return errHandler.HandleRequestTimeout(ctx)
	default:
		return errHandler.HandleSuccess(ctx, fiber.StatusOK, landmark.RunListResponse{
			Data: runs,
		})
	}
}

func (h *LandmarkHandler) handleWebSocket(c *websocket.Conn) {
	h.log.Info("Landmark detection WebSocket client connected")
	defer h.log.Info("Landmark detection WebSocket client disconnected")

	c.SetPingHandler(func(data string) error {
		if err := c.WriteControl(websocket.PongMessage, []byte(data), time.Now().Add(5*time.Second)); err != nil {
			h.log.Errorf("Error sending pong: %v", err)
		}
		return nil
	})

	maxReadTimeout := 60 * time.Second

	for {
		if err := c.SetReadDeadline(time.Now().Add(maxReadTimeout)); err != nil {
			h.log.Errorf("Error setting read deadline: %v", err)
			break
		}

		messageType, message, err := c.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				h.log.Errorf("Landmark WebSocket error: %v", err)
			} else {
				h.log.Info("Landmark WebSocket connection closed")
			}
			break
		}

		if messageType != websocket.BinaryMessage {
			h.log.Warnf("Received unexpected message type: %d", messageType)
			continue
		}

		result, err := h.landmarkService.ProcessFrame(message)
		if err != nil {
			h.log.Errorf("Error processing landmark frame: %v", err)
			if writeErr := c.WriteJSON(map[string]string{"error": err.Error()}); writeErr != nil {
				h.log.Errorf("Error sending error response: %v", writeErr)
				break
			}
			continue
		}

		if err := c.SetWriteDeadline(time.Now().Add(10 * time.Second)); err != nil {
			h.log.Errorf("Error setting write deadline: %v", err)
			break
		}

		if err := c.WriteJSON(result); err != nil {
			h.log.Errorf("Error writing JSON response: %v", err)
			break
		}

		if err := c.SetWriteDeadline(time.Time{}); err != nil {
			h.log.Errorf("Error resetting write deadline: %v", err)
			break
		}
	}
}
