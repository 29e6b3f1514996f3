package panel

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/sync/errgroup"

	"crazypanel/internal/config"
	"crazypanel/internal/logging"
	"crazypanel/internal/services"
	"crazypanel/internal/workflow"
)

//go:embed templates/index.html
var templateFS embed.FS

const shutdownTimeout = 5 * time.Second

// ErrAlreadyRunning reports that another panel holds the state directory lock.
var ErrAlreadyRunning = errors.New("another crazypanel instance is already running")

// Server is the browser control panel.
type Server struct {
	bind        string
	uploadsHint string
	logsHint    string
	coord       *workflow.Coordinator
	logger      *slog.Logger
	page        *template.Template
	echo        *echo.Echo

	lockPath string
	lock     *flock.Flock

	mu       sync.Mutex
	listener net.Listener
	ready    chan struct{}
}

// New constructs the panel server. It does not bind or lock anything until Run.
func New(cfg *config.Config, coord *workflow.Coordinator, logger *slog.Logger) (*Server, error) {
	if cfg == nil || coord == nil {
		return nil, services.Wrap(services.ErrConfiguration, "panel", "init", "config and coordinator are required", nil)
	}
	page, err := template.ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse panel template: %w", err)
	}

	s := &Server{
		bind:        strings.TrimSpace(cfg.Panel.Bind),
		uploadsHint: cfg.Panel.UploadsHint,
		logsHint:    cfg.Panel.LogsHint,
		coord:       coord,
		logger:      logging.NewComponentLogger(logger, "panel"),
		page:        page,
		lockPath:    cfg.LockPath(),
		ready:       make(chan struct{}),
	}
	s.lock = flock.New(s.lockPath)
	s.echo = s.routes()
	return s, nil
}

// Handler exposes the HTTP routes without binding a listener.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Ready is closed once the listener is bound.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the bound listener address, or "" before Run binds.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run acquires the instance lock, probes the backend once, and serves until
// ctx is cancelled. Dispatched submissions are allowed to settle before Run
// returns.
func (s *Server) Run(ctx context.Context) error {
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("acquire lock: %w", err)
	}
	if !ok {
		return ErrAlreadyRunning
	}
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Warn("failed to release panel lock", logging.Error(err))
		}
	}()

	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "panel", "listen", s.bind, err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()
	close(s.ready)

	server := &http.Server{
		Handler:           s.echo,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("panel listening",
			logging.String("address", "http://"+listener.Addr().String()),
			logging.String("lock", s.lockPath),
		)
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("panel serve: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		s.coord.Mount(gctx)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("panel shutdown incomplete", logging.Error(err))
			_ = server.Close()
		}
		return nil
	})

	err = g.Wait()
	s.coord.Wait()
	s.logger.Info("panel stopped")
	return err
}

func (s *Server) routes() *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		HandleError: true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []logging.Attr{
				logging.String("method", v.Method),
				logging.String("uri", v.URI),
				logging.Int("status", v.Status),
				logging.Duration("latency", v.Latency),
			}
			if v.Error != nil {
				attrs = append(attrs, logging.Error(v.Error))
				s.logger.Warn("request failed", logging.Args(attrs...)...)
				return nil
			}
			s.logger.Debug("request", logging.Args(attrs...)...)
			return nil
		},
	}))

	e.GET("/", s.handleIndex)
	e.GET("/api/view", s.handleView)
	e.POST("/upload", s.handleUpload)
	e.POST("/run", s.handleRun)
	e.POST("/schedule", s.handleSchedule)
	return e
}
