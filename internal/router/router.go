package router // package router builds the echo instance and registers the API routes

import (
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/fitness-tracker/internal/config"
	"github.com/iliyamo/fitness-tracker/internal/database"
	"github.com/iliyamo/fitness-tracker/internal/handler"
	"github.com/iliyamo/fitness-tracker/internal/middleware"
	"github.com/iliyamo/fitness-tracker/internal/repository"
	"github.com/iliyamo/fitness-tracker/internal/service"
	"github.com/iliyamo/fitness-tracker/internal/utils"
)

// Deps are the process-wide clients the routes are built from. They are
// created once at startup and owned by the caller.
type Deps struct {
	Cfg     config.Config
	DB      *sql.DB
	Dialect database.Dialect
	Redis   *redis.Client // nil disables rate limiting and caching
	Events  service.EventPublisher
}

// New returns a fully wired echo instance.
func New(d Deps) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.Logger.SetLevel(ParseLevel(d.Cfg.LogLevel))
	e.Logger.SetHeader(`{"time":"${time_rfc3339}","level":"${level}","file":"${short_file}","line":"${line}"}`)
	e.Validator = handler.NewValidator()
	e.HTTPErrorHandler = handler.ErrorHandler

	e.Use(echomw.Recover())
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return uuid.NewString() },
	}))
	e.Use(echomw.RequestLoggerWithConfig(echomw.RequestLoggerConfig{
		LogMethod:    true,
		LogURI:       true,
		LogStatus:    true,
		LogLatency:   true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v echomw.RequestLoggerValues) error {
			entry := log.JSON{
				"id":      v.RequestID,
				"method":  v.Method,
				"uri":     v.URI,
				"status":  v.Status,
				"latency": v.Latency.String(),
			}
			if v.Error != nil {
				entry["error"] = v.Error.Error()
			}
			c.Logger().Infoj(entry)
			return nil
		},
	}))
	if d.Cfg.RequestTimeout > 0 {
		e.Use(echomw.ContextTimeoutWithConfig(echomw.ContextTimeoutConfig{Timeout: d.Cfg.RequestTimeout}))
	}

	RegisterRoutes(e, d.DB)
	RegisterAPI(e, d)
	return e
}

// RegisterRoutes registers the unauthenticated health checks.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Health)
	if db != nil {
		e.GET("/readyz", handler.Ready(db))
	}
}

// RegisterAPI mounts the JSON API under /api. Every route except register
// and login runs JWTAuth first, so no body is parsed and no query runs for
// an unauthenticated request.
func RegisterAPI(e *echo.Echo, d Deps) {
	events := d.Events
	if events == nil {
		events = service.NoopPublisher{}
	}
	tokens := utils.NewTokenService(d.Cfg.JWTSecret, d.Cfg.TokenTTL())
	limiter := middleware.NewTokenBucket(d.Cfg.RateLimit, d.Redis)
	cache := middleware.NewResponseCache(d.Cfg.Cache, d.Redis)
	protected := []echo.MiddlewareFunc{middleware.JWTAuth(tokens), limiter, cache.Middleware()}

	auth := handler.NewAuthHandler(d.Cfg, repository.NewUserRepo(d.DB), tokens, events)
	exercises := handler.NewExerciseHandler(repository.NewExerciseRepo(d.DB, d.Dialect), events)
	routines := handler.NewRoutineHandler(repository.NewRoutineRepo(d.DB, d.Dialect), events)
	workouts := handler.NewWorkoutHandler(repository.NewWorkoutRepo(d.DB), events)

	api := e.Group("/api")

	api.POST("/user/register", auth.Register, limiter)
	api.POST("/user/login", auth.Login, limiter)
	api.GET("/user/me", auth.Me, protected...)

	api.GET("/exercises", exercises.List, protected...)
	api.POST("/exercises", exercises.Create, protected...)
	api.DELETE("/exercises/:id", exercises.Delete, protected...)

	api.GET("/routines", routines.List, protected...)
	api.POST("/routines", routines.Create, protected...)
	api.DELETE("/routines/:id", routines.Delete, protected...)

	api.GET("/workouts", workouts.List, protected...)
	api.POST("/workouts", workouts.Create, protected...)

	api.GET("/stats/progress", workouts.Progress, protected...)
}

// ParseLevel maps LOG_LEVEL to a gommon level; unknown values mean INFO.
func ParseLevel(s string) log.Lvl {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return log.DEBUG
	case "warn", "warning":
		return log.WARN
	case "error":
		return log.ERROR
	case "off":
		return log.OFF
	default:
		return log.INFO
	}
}
