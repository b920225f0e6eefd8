package registryapi

import (
	"errors"
	"net/http"
	"strings"

	echo "github.com/labstack/echo/v5"

	"github.com/bankx/agent-fabric/pkg/registry"
)

type registerRequest struct {
	AgentName    string              `json:"agent_name"`
	AgentType    registry.AgentType  `json:"agent_type"`
	Version      string              `json:"version"`
	Capabilities []string            `json:"capabilities"`
	Endpoints    registry.Endpoints  `json:"endpoints"`
	Tags         []string            `json:"tags"`
	Metadata     map[string]any      `json:"metadata"`
}

type registerResponse struct {
	AgentID      string `json:"agent_id"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
	Token        string `json:"token,omitempty"`
}

func (s *Server) registerHandler(c *echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "malformed registration request")
	}

	reg, err := s.svc.Register(c.Request().Context(), registry.RegistrationRequest{
		AgentName:    req.AgentName,
		AgentType:    req.AgentType,
		Version:      req.Version,
		Capabilities: req.Capabilities,
		Endpoints:    req.Endpoints,
		Tags:         req.Tags,
		Metadata:     req.Metadata,
	})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	resp := registerResponse{AgentID: reg.AgentID, Status: string(reg.Status), RegisteredAt: reg.RegisteredAt.Format(timeFormat)}
	if s.auth != nil {
		token, err := s.auth.IssueToken(reg.AgentID, false)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "failed to issue token")
		}
		resp.Token = token
	}
	return c.JSON(http.StatusCreated, resp)
}

func (s *Server) discoverHandler(c *echo.Context) error {
	f := registry.Filter{
		Capability: c.QueryParam("capability"),
		AgentType:  registry.AgentType(c.QueryParam("agent_type")),
		Status:     registry.Status(c.QueryParam("status")),
	}
	if tags := c.QueryParam("tags"); tags != "" {
		f.Tags = strings.Split(tags, ",")
	}

	regs, err := s.svc.Discover(c.Request().Context(), f)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"agents": regs, "count": len(regs)})
}

func (s *Server) listHandler(c *echo.Context) error {
	regs, err := s.svc.Discover(c.Request().Context(), registry.Filter{Status: ""})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"agents": regs, "count": len(regs)})
}

func (s *Server) getAgentHandler(c *echo.Context) error {
	reg, err := s.svc.GetAgent(c.Request().Context(), c.PathParam("agent_id"))
	if errors.Is(err, registry.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "agent not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, reg)
}

type heartbeatRequest struct {
	Status *registry.Status `json:"status,omitempty"`
}

func (s *Server) heartbeatHandler(c *echo.Context) error {
	var req heartbeatRequest
	_ = c.Bind(&req) // heartbeat body is optional; best-effort per spec.md §4.4

	ts, err := s.svc.Heartbeat(c.Request().Context(), c.PathParam("agent_id"), req.Status)
	if errors.Is(err, registry.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "agent not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"last_heartbeat": ts.Format(timeFormat)})
}

func (s *Server) updateStatusHandler(c *echo.Context) error {
	newStatus := registry.Status(c.QueryParam("new_status"))
	if newStatus == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "new_status is required")
	}
	if err := s.svc.UpdateStatus(c.Request().Context(), c.PathParam("agent_id"), newStatus); err != nil {
		if errors.Is(err, registry.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "agent not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"new_status": string(newStatus)})
}

func (s *Server) deregisterHandler(c *echo.Context) error {
	err := s.svc.Deregister(c.Request().Context(), c.PathParam("agent_id"))
	if errors.Is(err, registry.ErrNotFound) {
		return echo.NewHTTPError(http.StatusNotFound, "agent not found")
	}
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "deregistered"})
}

func (s *Server) healthHandler(c *echo.Context) error {
	if err := s.svc.Health(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": err.Error()})
	}
	return c.JSON(http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) metricsHandler(c *echo.Context) error {
	total, byStatus, byType, err := s.svc.Metrics(c.Request().Context())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, map[string]any{"total": total, "by_status": byStatus, "by_type": byType})
}

const timeFormat = "2006-01-02T15:04:05.000Z07:00"
