package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"horse.fit/aidesk/internal/auth"
	"horse.fit/aidesk/internal/export"
	"horse.fit/aidesk/internal/metrics"
	"horse.fit/aidesk/internal/reader"
	"horse.fit/aidesk/internal/training"
	"horse.fit/aidesk/internal/translation"
	"horse.fit/aidesk/internal/voice"
	"horse.fit/aidesk/internal/workflow"
)

type Options struct {
	Host               string
	Port               int
	ReadTimeout        time.Duration
	WriteTimeout       time.Duration
	ShutdownTimeout    time.Duration
	CORSAllowedOrigins []string
	// RateLimitRPS caps requests per client IP on the API. Zero disables limiting.
	RateLimitRPS float64
}

// Deps are the services the API exposes. Runner is required; a nil optional
// dependency disables its routes' functionality with a 503.
type Deps struct {
	Runner       *workflow.Runner
	Translations *translation.Registry
	Exporter     export.Exporter
	Voice        *voice.Bridge
	Trainer      *training.Trainer
	Reader       *reader.Fetcher
	Metrics      *metrics.Collector
	Credentials  *auth.Credentials
}

type Server struct {
	deps   Deps
	logger zerolog.Logger
	opts   Options
	now    func() time.Time
}

func NewServer(deps Deps, logger zerolog.Logger, opts Options) *Server {
	host := strings.TrimSpace(opts.Host)
	if host == "" {
		host = "0.0.0.0"
	}
	port := opts.Port
	if port <= 0 {
		port = 8090
	}
	readTimeout := opts.ReadTimeout
	if readTimeout <= 0 {
		readTimeout = 10 * time.Second
	}
	writeTimeout := opts.WriteTimeout
	if writeTimeout <= 0 {
		// Model downloads can hold a request open for minutes.
		writeTimeout = 10 * time.Minute
	}
	shutdownTimeout := opts.ShutdownTimeout
	if shutdownTimeout <= 0 {
		shutdownTimeout = 10 * time.Second
	}

	return &Server{
		deps:   deps,
		logger: logger,
		opts: Options{
			Host:               host,
			Port:               port,
			ReadTimeout:        readTimeout,
			WriteTimeout:       writeTimeout,
			ShutdownTimeout:    shutdownTimeout,
			CORSAllowedOrigins: opts.CORSAllowedOrigins,
			RateLimitRPS:       opts.RateLimitRPS,
		},
		now: time.Now,
	}
}

// Handler builds the echo instance with every route registered.
func (s *Server) Handler() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.HTTPErrorHandler = s.httpErrorHandler

	allowOrigins := s.opts.CORSAllowedOrigins
	if len(allowOrigins) == 0 {
		allowOrigins = []string{"*"}
	}

	e.Use(middleware.Recover())
	e.Use(middleware.RequestID())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       3600,
	}))
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogStatus:    true,
		LogURI:       true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			if v.Error != nil {
				s.logger.Error().
					Err(v.Error).
					Str("method", v.Method).
					Str("uri", v.URI).
					Int("status", v.Status).
					Dur("latency", v.Latency).
					Str("remote_ip", v.RemoteIP).
					Str("request_id", v.RequestID).
					Msg("http request failed")
				return nil
			}

			s.logger.Info().
				Str("method", v.Method).
				Str("uri", v.URI).
				Int("status", v.Status).
				Dur("latency", v.Latency).
				Str("remote_ip", v.RemoteIP).
				Str("request_id", v.RequestID).
				Msg("http request")
			return nil
		},
	}))

	if s.deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(s.deps.Metrics.Handler()))
	}

	api := e.Group("/api/v1")
	api.GET("/health", s.handleHealth)

	protected := api.Group("")
	if s.deps.Credentials != nil {
		protected.Use(middleware.BasicAuthWithConfig(middleware.BasicAuthConfig{
			Realm: "aidesk",
			Validator: func(username, password string, _ echo.Context) (bool, error) {
				return s.deps.Credentials.Verify(username, password), nil
			},
		}))
	}
	if s.opts.RateLimitRPS > 0 {
		protected.Use(middleware.RateLimiterWithConfig(s.rateLimiterConfig()))
	}

	protected.GET("/capabilities", s.handleCapabilities)
	protected.GET("/languages", s.handleLanguages)
	protected.GET("/state", s.handleState)
	protected.GET("/events", s.handleEvents)
	protected.GET("/export", s.handleExport)

	protected.POST("/translate", s.handleTranslate)
	protected.POST("/detect", s.handleDetect)
	protected.POST("/summarize", s.handleSummarize)
	protected.POST("/batch/translate", s.handleBatchTranslate)

	protected.GET("/voice", s.handleVoiceStatus)
	protected.PUT("/voice/active", s.handleVoiceActive)
	protected.POST("/voice/listen", s.handleVoiceStart)
	protected.DELETE("/voice/listen", s.handleVoiceStop)
	protected.POST("/voice/audio", s.handleVoiceAudio)
	protected.POST("/voice/speak", s.handleVoiceSpeak)

	protected.POST("/training", s.handleTraining)

	return e
}

func (s *Server) rateLimiterConfig() middleware.RateLimiterConfig {
	burst := int(s.opts.RateLimitRPS)
	if burst < 1 {
		burst = 1
	}
	return middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(s.opts.RateLimitRPS),
			Burst:     burst,
			ExpiresIn: 3 * time.Minute,
		}),
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return fail(c, http.StatusForbidden, "Client could not be identified", nil)
		},
		DenyHandler: func(c echo.Context, _ string, _ error) error {
			return fail(c, http.StatusTooManyRequests, "Too many requests", nil)
		},
	}
}

func (s *Server) Start(ctx context.Context) error {
	if s == nil || s.deps.Runner == nil {
		return fmt.Errorf("server is not initialized")
	}

	e := s.Handler()
	addr := fmt.Sprintf("%s:%d", s.opts.Host, s.opts.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      e,
		ReadTimeout:  s.opts.ReadTimeout,
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.opts.ShutdownTimeout)
		defer cancel()
		if shutdownErr := e.Shutdown(shutdownCtx); shutdownErr != nil {
			s.logger.Error().Err(shutdownErr).Msg("server shutdown failed")
		}
	}()

	s.logger.Info().Str("addr", addr).Msg("aidesk web server started")

	if err := e.StartServer(httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("start server: %w", err)
	}
	s.logger.Info().Msg("aidesk web server stopped")
	return nil
}

func (s *Server) httpErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	status := http.StatusInternalServerError
	message := "Internal server error"
	var he *echo.HTTPError
	if errors.As(err, &he) {
		status = he.Code
		switch v := he.Message.(type) {
		case string:
			if strings.TrimSpace(v) != "" {
				message = v
			}
		default:
			if text := strings.TrimSpace(http.StatusText(status)); text != "" {
				message = text
			}
		}
	} else if err != nil {
		message = err.Error()
	}

	if strings.HasPrefix(c.Request().URL.Path, "/api/") {
		if status >= 500 {
			_ = internalError(c, "Internal server error")
			return
		}
		if status == http.StatusUnauthorized {
			_ = unauthorizedResponse(c)
			return
		}
		_ = fail(c, status, message, nil)
		return
	}

	_ = c.String(status, message)
}

func (s *Server) handleHealth(c echo.Context) error {
	return success(c, map[string]any{
		"service": "aidesk",
		"time":    s.now().UTC(),
	})
}
