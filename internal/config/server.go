package config

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jmoiron/sqlx"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/context"

	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/database/postgres"
	landmarkHandler "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/handler"
	landmarkRepository "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/repository"
	landmarkService "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/service"
	landmarkTask "github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/api/landmark/task"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/middleware"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/internal/workflow"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/s3"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/utils"
	"github.com/Ikomia-hub/infer-google-vision-landmark-detection/pkg/vision"
)

type ServerOption func(*Server) error

type Server struct {
	engine     *fiber.App
	db         *sqlx.DB
	log        *logrus.Logger
	middleware middleware.Middleware
	validator  *validator.Validate
	utils      utils.IUtils
	handlers   []handler
	annotator  vision.IAnnotator
	s3Client   s3.ItfS3
	registry   *workflow.Registry
}

type handler interface {
	Start(srv fiber.Router)
}

func NewServer(options ...ServerOption) (*Server, error) {
	server := &Server{}

	for _, option := range options {
		if err := option(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	if server.engine == nil {
		return nil, fmt.Errorf("fiber app is required")
	}
	if server.log == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if server.annotator == nil {
		return nil, fmt.Errorf("vision annotator is required")
	}

	return server, nil
}

func WithFiber(fiberApp *fiber.App) ServerOption {
	return func(s *Server) error {
		s.engine = fiberApp
		return nil
	}
}

func WithLogger(logger *logrus.Logger) ServerOption {
	return func(s *Server) error {
		s.log = logger
		return nil
	}
}

func WithValidator(validator *validator.Validate) ServerOption {
	return func(s *Server) error {
		s.validator = validator
		return nil
	}
}

func WithDatabase() ServerOption {
	return func(s *Server) error {
		db, err := postgres.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to connect to database: %v", err)
			}
			return fmt.Errorf("failed to create database connection: %w", err)
		}
		s.db = db
		return nil
	}
}

// WithAnnotator constructs the process-wide vision client. Every task run
// shares it; tasks never build their own.
func WithAnnotator(ctx context.Context) ServerOption {
	return func(s *Server) error {
		annotator, err := vision.New(ctx)
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to create vision annotator: %v", err)
			}
			return fmt.Errorf("failed to create vision annotator: %w", err)
		}
		s.annotator = annotator
		return nil
	}
}

func WithMiddleware() ServerOption {
	return func(s *Server) error {
		if s.log == nil {
			return fmt.Errorf("logger must be initialized before middleware")
		}
		s.middleware = middleware.New(s.log)
		return nil
	}
}

func WithS3Client() ServerOption {
	return func(s *Server) error {
		client, err := s3.New()
		if err != nil {
			if s.log != nil {
				s.log.Errorf("Failed to initialize S3 client: %v", err)
			}
			return fmt.Errorf("failed to create S3 client: %w", err)
		}
		s.s3Client = client
		return nil
	}
}

func WithUtils() ServerOption {
	return func(s *Server) error {
		s.utils = utils.New()
		return nil
	}
}

func (s *Server) RegisterHandler() error {
	registry := workflow.NewRegistry()
	if err := registry.Register(landmarkTask.NewFactory(s.annotator, s.log)); err != nil {
		return fmt.Errorf("failed to register landmark task factory: %w", err)
	}
	s.registry = registry

	// Landmark Detection Domain
	var landmarkRepo landmarkRepository.Repository
	if s.db != nil {
		landmarkRepo = landmarkRepository.New(s.db, s.log)
	}

	landmarkServices := landmarkService.NewLandmarkService(registry, landmarkRepo, s.s3Client, s.utils, s.log)
	landmarkHandlers := landmarkHandler.New(s.log, s.validator, s.middleware, landmarkServices, s.utils)

	s.setupHealthCheck()
	s.handlers = append(s.handlers, landmarkHandlers)

	return nil
}

func (s *Server) Run() error {
	s.engine.Use(s.middleware.NewRequestIDMiddleware())
	s.engine.Use(middleware.LoggerConfig())

	router := s.engine.Group("/api/v1")

	for _, h := range s.handlers {
		h.Start(router)
	}

	port := os.Getenv("APP_PORT")
	if port == "" {
		port = "3000"
	}

	if err := s.engine.Listen(fmt.Sprintf(":%s", port)); err != nil {
		return err
	}

	return nil
}

func (s *Server) Shutdown() {
	if err := s.engine.Shutdown(); err != nil {
		s.log.Errorf("Failed to shut down server: %v", err)
	}

	if s.annotator != nil {
		if err := s.annotator.Close(); err != nil {
			s.log.Errorf("Failed to close vision annotator: %v", err)
		}
	}

	if s.db != nil {
		if err := s.db.Close(); err != nil {
			s.log.Errorf("Failed to close database: %v", err)
		}
	}
}

func (s *Server) setupHealthCheck() {
	s.engine.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.JSON(fiber.Map{
			"message": "Server is Healthy!",
		})
	})
}
