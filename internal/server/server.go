package server

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

// ServerConfig holds the HTTP surface settings.
type ServerConfig struct {
	Addr    string // bind address, e.g. ":8090"
	DevMode bool   // verbose echo errors plus handler error details
	APIKey  string // non-empty enables X-API-Key auth
}

// ServerDeps wires the handler set into a Server.
type ServerDeps struct {
	Handlers *Handlers
	Config   ServerConfig
}

// Server wraps echo with shutdown signalling so main can wait for in-flight
// confirmation polls to drain.
type Server struct {
	e      *echo.Echo
	cfg    ServerConfig
	closed chan struct{}
}

func NewServer(deps ServerDeps) (*Server, error) {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Debug = deps.Config.DevMode

	e.Use(middleware.Recover())
	e.Use(middleware.Logger())

	// Requests are small GETs, but the confirm endpoints hold the response
	// open while polling the chain for up to 15s.
	e.Server.ReadTimeout = 5 * time.Second
	e.Server.WriteTimeout = 30 * time.Second
	e.Server.IdleTimeout = 90 * time.Second

	RegisterRoutes(e, deps.Handlers, deps.Config)

	return &Server{e: e, cfg: deps.Config, closed: make(chan struct{})}, nil
}

// Start serves until Shutdown or a listener error.
func (s *Server) Start() error {
	return s.e.Start(s.cfg.Addr)
}

// Shutdown stops accepting connections and drains in-flight requests, giving
// up after 10 seconds.
func (s *Server) Shutdown(ctx context.Context) error {
	defer close(s.closed)
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.e.Shutdown(ctx)
}

// WaitClosed blocks until shutdown completes or ctx expires.
func (s *Server) WaitClosed(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.closed:
		return nil
	}
}

// SetNoCacheHeaders keeps intermediaries from serving stale quotes or
// reserve snapshots.
func SetNoCacheHeaders(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set("Cache-Control", "no-store")
		return next(c)
	}
}

// SetJSONContentType forces the JSON content type on every response.
func SetJSONContentType(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		c.Response().Header().Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return next(c)
	}
}
