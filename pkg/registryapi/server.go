// Package registryapi exposes pkg/registry's Service over the HTTP surface
// described in spec.md §6 ("Registry HTTP surface"), built on Echo v5
// following teacher pkg/api/server.go's shape.
package registryapi

import (
	"context"
	"net/http"
	"time"

	echo "github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"

	"github.com/bankx/agent-fabric/pkg/registry"
)

// Server is the registry's HTTP API.
type Server struct {
	echo *echo.Echo
	svc  *registry.Service
	auth *Authenticator // nil when registry.auth_enabled is false
}

// NewServer builds a Server over svc. auth may be nil to disable bearer
// token enforcement (spec.md §6 registry.auth_enabled).
func NewServer(svc *registry.Service, auth *Authenticator) *Server {
	e := echo.New()
	e.Use(middleware.Recover())
	e.Use(middleware.BodyLimit(1 << 20))

	s := &Server{echo: e, svc: svc, auth: auth}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.echo.GET("/health", s.healthHandler)
	s.echo.GET("/api/v1/agents/metrics", s.metricsHandler)

	v1 := s.echo.Group("/api/v1/agents")
	v1.POST("/register", s.registerHandler)
	v1.GET("/discover", s.discoverHandler)
	v1.GET("", s.listHandler)
	v1.GET("/:agent_id", s.getAgentHandler)
	v1.POST("/:agent_id/heartbeat", s.heartbeatHandler)
	v1.PUT("/:agent_id/status", s.authRequired(s.updateStatusHandler))
	v1.DELETE("/:agent_id", s.authRequired(s.deregisterHandler))
}

// authRequired wraps h with bearer-token enforcement when auth is
// configured; a no-op wrapper otherwise (spec.md §4.4 "all mutating calls
// except register require a token...").
func (s *Server) authRequired(h echo.HandlerFunc) echo.HandlerFunc {
	if s.auth == nil {
		return h
	}
	return func(c *echo.Context) error {
		agentID := c.PathParam("agent_id")
		claims, err := s.auth.Authenticate(c.Request())
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, err.Error())
		}
		if !claims.Admin && claims.AgentID != agentID {
			return echo.NewHTTPError(http.StatusForbidden, "token does not authorize this agent")
		}
		return h(c)
	}
}

// ServeHTTP allows the server to be used directly as an http.Handler (e.g.
// in httptest or when embedded in another Echo instance).
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.echo.ServeHTTP(w, r)
}

// Start runs the HTTP server until ctx is cancelled.
func (s *Server) Start(ctx context.Context, addr string) error {
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = s.echo.Shutdown(shutdownCtx)
	}()
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
