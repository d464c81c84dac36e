package api

import (
	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/docbook/booking-system/docs"
	"github.com/docbook/booking-system/internal/api/handler"
	"github.com/docbook/booking-system/internal/api/middleware"
	"github.com/docbook/booking-system/internal/core/domain"
	"github.com/docbook/booking-system/internal/core/ports"
)

// Dependencies are the collaborators the HTTP host is built from.
type Dependencies struct {
	Auth     ports.AuthService
	Doctors  ports.DoctorService
	Sessions ports.SessionResolver
	Verifier middleware.TokenVerifier
	Denylist ports.TokenDenylist
	Checks   map[string]handler.Check
	Logger   zerolog.Logger

	// Registerer and Gatherer default to the global Prometheus registry.
	Registerer prometheus.Registerer
	Gatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(deps Dependencies) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = NewHTTPErrorHandler(deps.Logger)

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(deps.Logger))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "docbook",
		Registerer: deps.Registerer,
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(deps.Auth)
	doctorHandler := handler.NewDoctorHandler(deps.Doctors)
	appointmentHandler := handler.NewAppointmentHandler(deps.Doctors)
	profileHandler := handler.NewProfileHandler()
	healthHandler := handler.NewHealthHandler()
	healthDepsHandler := handler.NewHealthDependenciesHandler(deps.Checks)

	authMiddleware := middleware.Auth(deps.Verifier, deps.Denylist, deps.Logger)
	sessionMiddleware := middleware.Session(deps.Sessions)

	// --- Public routes ---
	e.POST("/auth/register", authHandler.Register)
	e.POST("/auth/login", authHandler.Login)
	e.POST("/auth/google", authHandler.Google)

	e.GET("/health", healthHandler.Liveness)            // liveness  – is the process alive?
	e.GET("/health/ready", healthDepsHandler.Readiness) // readiness – are dependencies up?
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: deps.Gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	// --- Authenticated routes ---
	e.POST("/v1/auth/logout", authHandler.Logout, authMiddleware)

	s := e.Group("/v1", authMiddleware, sessionMiddleware)
	s.GET("/me", profileHandler.Me)
	s.PATCH("/me", profileHandler.Update)

	s.GET("/doctors", doctorHandler.List)
	s.GET("/doctors/:id", doctorHandler.Get)
	s.POST("/doctors", doctorHandler.Create, middleware.RBAC(domain.RoleAdmin))

	s.GET("/appointments", appointmentHandler.List)
	s.POST("/appointments", appointmentHandler.Book)
	s.POST("/appointments/refresh", appointmentHandler.Refresh)
	s.POST("/appointments/:id/cancel", appointmentHandler.Cancel)

	return e
}

func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Error != nil {
				evt = log.Warn().Err(v.Error)
			}
			evt.Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Msg("request")
			return nil
		},
	})
}
