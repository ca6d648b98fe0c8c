package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/salasbeats/marketplace/internal/authorization"
	hostdomain "github.com/salasbeats/marketplace/internal/host/domain"
	"github.com/salasbeats/marketplace/internal/identity"
)

type onboardHostRequest struct {
	Email       string `json:"email" binding:"required"`
	DisplayName string `json:"display_name"`
	Country     string `json:"country"`
}

func (s *Server) OnboardHost(c *gin.Context) {
	var req onboardHostRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("email", "invalid_request", "email is required"))
		return
	}

	caller, _ := identity.CallerFromContext(c.Request.Context())
	host, err := s.hostSvc.Onboard(c.Request.Context(), hostdomain.OnboardRequest{
		HostID:      caller.ID,
		Email:       req.Email,
		DisplayName: req.DisplayName,
		Country:     req.Country,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": host})
}

func (s *Server) GetHost(c *gin.Context) {
	hostID, ok := s.ownHostID(c)
	if !ok {
		return
	}

	host, err := s.hostSvc.Get(c.Request.Context(), hostID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": host})
}

func (s *Server) VerifyHostAccount(c *gin.Context) {
	hostID, ok := s.ownHostID(c)
	if !ok {
		return
	}

	host, err := s.hostSvc.VerifyAccount(c.Request.Context(), hostID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": host})
}

type updateHostStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Reason string `json:"reason"`
}

func (s *Server) UpdateHostStatus(c *gin.Context) {
	hostID := strings.TrimSpace(c.Param("id"))
	if hostID == "" {
		AbortWithError(c, newValidationError("id", "invalid_id", "host id is required"))
		return
	}
	var req updateHostStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, newValidationError("status", "invalid_request", "status is required"))
		return
	}
	status, ok := hostdomain.ParseHostStatus(req.Status)
	if !ok {
		AbortWithError(c, hostdomain.ErrInvalidStatus)
		return
	}

	host, err := s.hostSvc.UpdateStatus(c.Request.Context(), hostdomain.UpdateStatusRequest{
		HostID: hostID,
		Status: status,
		Reason: req.Reason,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": host})
}

// ownHostID resolves the :id path param and rejects callers reaching for a
// host record that is not theirs, unless they are an admin.
func (s *Server) ownHostID(c *gin.Context) (string, bool) {
	hostID := strings.TrimSpace(c.Param("id"))
	if hostID == "" {
		AbortWithError(c, newValidationError("id", "invalid_id", "host id is required"))
		return "", false
	}
	caller, _ := identity.CallerFromContext(c.Request.Context())
	if caller.Role != identity.RoleAdmin && caller.ID != hostID {
		AbortWithError(c, authorization.ErrPermissionDenied)
		return "", false
	}
	return hostID, true
}
