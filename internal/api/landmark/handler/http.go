package landmarkHandler

import (
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	landmarkService "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/service"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/middleware"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/utils"
)

type LandmarkHandler struct {
	log             *logrus.Logger
	validator       *validator.Validate
	middleware      middleware.Middleware
	landmarkService landmarkService.ILandmarkService
	utils           utils.IUtils
}

func New(
	log *logrus.Logger,
	validator *validator.Validate,
	middleware middleware.Middleware,
	ls landmarkService.ILandmarkService,
	utils utils.IUtils,
) *LandmarkHandler {
	return &LandmarkHandler{
		landmarkService: ls,
		log:             log,
		validator:       validator,
		middleware:      middleware,
		utils:           utils,
	}
}

func (h *LandmarkHandler) Start(srv fiber.Router) {
	wsMiddleware := func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}

	landmarks := srv.Group("/landmarks")
	landmarks.Use("/ws", wsMiddleware)
	landmarks.Get("/ws", websocket.New(h.handleWebSocket))
	landmarks.Post("/detect", h.middleware.NewRateLimiter, h.middleware.NewTokenMiddleware, h.Detect)
	landmarks.Get("/algorithm", h.Algorithm)
	landmarks.Get("/runs", h.middleware.NewTokenMiddleware, h.ListRuns)
	landmarks.Get("/runs/:id", h.middleware.NewTokenMiddleware, h.GetRun)
}
