package api

import (
	"fmt"

	"github.com/labstack/echo-contrib/echoprometheus"
	"github.com/labstack/echo/v4"
	echomiddleware "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	echoSwagger "github.com/swaggo/echo-swagger"

	_ "github.com/storefront/identity-service/docs"
	"github.com/storefront/identity-service/internal/api/handler"
	"github.com/storefront/identity-service/internal/api/middleware"
	"github.com/storefront/identity-service/internal/core/domain"
	"github.com/storefront/identity-service/internal/core/ports"
)

// Deps carries everything the router wires into handlers.
type Deps struct {
	Log zerolog.Logger
	// ExposeErrorDetail adds the wrapped cause to error responses.
	ExposeErrorDetail bool
	PhoneRegion       string
	MaxImageBytes     int64

	Onboarding ports.OnboardingService
	Admin      ports.AdminService
	Gate       ports.AccessGate
	Readiness  []handler.DependencyCheck

	// Nil means the default Prometheus registry.
	MetricsRegisterer prometheus.Registerer
	MetricsGatherer   prometheus.Gatherer
}

// NewRouter builds and returns the Echo instance with all routes registered.
func NewRouter(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator(d.PhoneRegion)
	e.HTTPErrorHandler = NewHTTPErrorHandler(d.Log, d.ExposeErrorDetail)

	registerer, gatherer := d.MetricsRegisterer, d.MetricsGatherer
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}

	// --- Global middleware ---
	e.Use(echomiddleware.Recover())
	e.Use(echomiddleware.RequestID())
	e.Use(requestLogger(d.Log))
	e.Use(echoprometheus.NewMiddlewareWithConfig(echoprometheus.MiddlewareConfig{
		Subsystem:  "identity_http",
		Registerer: registerer,
		Skipper: func(c echo.Context) bool {
			return c.Path() == "/metrics" || c.Path() == "/health" || c.Path() == "/health/ready"
		},
	}))

	// --- Handlers ---
	authHandler := handler.NewAuthHandler(d.Onboarding)
	adminHandler := handler.NewAdminHandler(d.Admin, d.MaxImageBytes)
	requireAuth := middleware.Auth(d.Gate)

	// --- Auth routes ---
	auth := e.Group("/auth")
	auth.POST("/signup", authHandler.Signup)
	auth.POST("/verify-otp", authHandler.VerifyOTP)
	auth.POST("/resend-otp", authHandler.ResendOTP)
	auth.POST("/login", authHandler.Login)
	auth.POST("/forgot-password", authHandler.ForgotPassword)
	auth.POST("/reset-password", authHandler.ResetPassword)
	auth.GET("/me", authHandler.Me, requireAuth, middleware.RBAC(d.Gate))

	// --- Admin routes ---
	maxImage := d.MaxImageBytes
	if maxImage <= 0 {
		maxImage = handler.DefaultMaxImageBytes
	}
	// Room for the form fields around the image.
	bodyLimit := fmt.Sprintf("%dK", maxImage/1024+64)

	admin := e.Group("/admin", requireAuth, middleware.RBAC(d.Gate, domain.RoleAdmin))
	admin.POST("/create-seller", adminHandler.CreateSeller, echomiddleware.BodyLimit(bodyLimit))
	admin.PUT("/approve-seller/:id", adminHandler.ApproveSeller)
	admin.PUT("/reject-seller/:id", adminHandler.RejectSeller)
	admin.GET("/pending-sellers", adminHandler.PendingSellers)
	admin.DELETE("/accounts/:id", adminHandler.DeactivateAccount)

	// --- Health probes (no auth required) ---
	healthHandler := handler.NewHealthHandler()
	readinessHandler := handler.NewReadinessHandler(d.Readiness...)

	e.GET("/health", healthHandler.Liveness)
	e.GET("/health/ready", readinessHandler.Readiness)

	// --- Operations ---
	e.GET("/metrics", echoprometheus.NewHandlerWithConfig(echoprometheus.HandlerConfig{Gatherer: gatherer}))
	e.GET("/swagger/*", echoSwagger.WrapHandler)

	return e
}

// requestLogger forwards Echo's access log to zerolog.
func requestLogger(log zerolog.Logger) echo.MiddlewareFunc {
	return echomiddleware.RequestLoggerWithConfig(echomiddleware.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogRemoteIP:  true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(_ echo.Context, v echomiddleware.RequestLoggerValues) error {
			evt := log.Info()
			if v.Status >= 500 {
				evt = log.Error().Err(v.Error)
			} else if v.Status >= 400 {
				evt = log.Warn()
			}
			evt.
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("request_id", v.RequestID).
				Str("remote_ip", v.RemoteIP).
				Msg("request")
			return nil
		},
	})
}
