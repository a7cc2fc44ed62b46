package http

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/compress"
	fiberSwagger "github.com/swaggo/fiber-swagger"
	"go.uber.org/zap"

	"github.com/geopin-service/internal/config"
	"github.com/geopin-service/internal/delivery/http/handler"
	"github.com/geopin-service/internal/delivery/http/middleware"
	apperrors "github.com/geopin-service/internal/pkg/errors"
	"github.com/geopin-service/internal/pkg/metrics"
	"github.com/geopin-service/internal/pkg/utils"
)

// Server - HTTP сервер на основе Fiber
type Server struct {
	app    *fiber.App
	config *config.Config
	logger *zap.Logger

	// Handlers
	sessionHandler *handler.SessionHandler
	searchHandler  *handler.SearchHandler
	offlineHandler *handler.OfflineHandler
	tileHandler    *handler.TileHandler
}

// NewServer - создание нового HTTP сервера
func NewServer(
	cfg *config.Config,
	logger *zap.Logger,
	sessionHandler *handler.SessionHandler,
	searchHandler *handler.SearchHandler,
	offlineHandler *handler.OfflineHandler,
	tileHandler *handler.TileHandler,
) *Server {
	app := fiber.New(fiber.Config{
		AppName:      "Geopin Service",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
		ErrorHandler: customErrorHandler(logger),
	})

	s := &Server{
		app:            app,
		config:         cfg,
		logger:         logger,
		sessionHandler: sessionHandler,
		searchHandler:  searchHandler,
		offlineHandler: offlineHandler,
		tileHandler:    tileHandler,
	}

	s.setupMiddlewares()
	s.setupRoutes()

	return s
}

// App returns the underlying fiber application.
func (s *Server) App() *fiber.App {
	return s.app
}

// setupMiddlewares - настройка middleware
func (s *Server) setupMiddlewares() {
	s.app.Use(middleware.Recovery(s.logger))
	s.app.Use(middleware.Logger(s.logger))
	s.app.Use(middleware.CORS(s.config.Server.CORSOrigins))
	s.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
	}))
}

// setupRoutes - настройка маршрутов
func (s *Server) setupRoutes() {
	// Swagger documentation route
	s.app.Get("/swagger/*", fiberSwagger.WrapHandler)

	// Prometheus
	s.app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := s.app.Group("/api/v1")

	// Health check
	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now(),
		})
	})

	// Session routes
	api.Post("/sessions", s.sessionHandler.Create)
	sessions := api.Group("/sessions/:id")
	sessions.Get("", s.sessionHandler.Get)
	sessions.Delete("", s.sessionHandler.Delete)
	sessions.Put("/view", s.sessionHandler.SetView)
	sessions.Post("/zoom", s.sessionHandler.UserZoom)
	sessions.Post("/interaction", s.sessionHandler.Interaction)
	sessions.Put("/region", s.sessionHandler.SetRegion)
	sessions.Put("/size", s.sessionHandler.SetSize)
	sessions.Put("/style", s.sessionHandler.SetStyle)
	sessions.Put("/marker", s.sessionHandler.SetMarker)

	// Search and address resolution
	sessions.Post("/search/input", s.searchHandler.Input)
	sessions.Get("/search/suggestions", s.searchHandler.Suggestions)
	sessions.Post("/search/select", s.searchHandler.Select)
	sessions.Post("/search-and-center", s.searchHandler.SearchAndCenter)
	sessions.Post("/click", s.searchHandler.Click)
	sessions.Post("/pending/select", s.searchHandler.SelectCandidate)
	sessions.Post("/pending/cancel", s.searchHandler.CancelPending)

	// Offline download
	sessions.Post("/offline", s.offlineHandler.Trigger)
	sessions.Get("/offline", s.offlineHandler.Status)
	sessions.Delete("/offline", s.offlineHandler.Cancel)
	sessions.Post("/offline/confirm", s.offlineHandler.Confirm)

	// Offline tiles
	api.Get("/tiles/:style/:z/:x/:y", s.tileHandler.GetTile)
}

// Start - запуск HTTP сервера
func (s *Server) Start() error {
	addr := s.config.GetServerAddr()
	s.logger.Info("Starting HTTP server", zap.String("address", addr))
	return s.app.Listen(addr)
}

// Shutdown - graceful shutdown HTTP сервера
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	return s.app.ShutdownWithContext(ctx)
}

// customErrorHandler - ошибки, не обработанные в хендлерах (неизвестный маршрут, паника, таймаут)
func customErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		status := fiber.StatusInternalServerError
		var fe *fiber.Error
		var appErr *apperrors.AppError
		switch {
		case stderrors.As(err, &appErr):
			status = appErr.StatusCode
		case stderrors.As(err, &fe):
			status = fe.Code
		}

		if status >= fiber.StatusInternalServerError {
			logger.Error("HTTP Error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Int("status", status),
				zap.Error(err),
			)
		}

		return utils.SendError(c, err)
	}
}
