package ui

import (
	"bytes"
	"net/http"
	"strings"

	"milkportal/adapters/excel"
	"milkportal/domain/ingestion"
	"milkportal/domain/submission"
	"milkportal/internal/errors"

	"github.com/gin-gonic/gin"
)

// TemplateFilename is the download name of the empty results workbook
const TemplateFilename = "milk_yield_template.xlsx"

type profileRequest struct {
	Name         string `json:"name" form:"name"`
	Organization string `json:"organization" form:"organization"`
}

func (s *Server) handleGetProfile(c *gin.Context) {
	c.JSON(http.StatusOK, mustUser(c))
}

// handleUpdateProfile changes the caller's name or organization. Blank
// fields leave the stored value as is.
func (s *Server) handleUpdateProfile(c *gin.Context) {
	user := mustUser(c)

	var req profileRequest
	if err := c.ShouldBind(&req); err != nil {
		s.respondError(c, "handleUpdateProfile", errors.InvalidInput("invalid profile: "+err.Error()))
		return
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Organization = strings.TrimSpace(req.Organization)
	if req.Name == "" && req.Organization == "" {
		s.respondError(c, "handleUpdateProfile", errors.InvalidInput("name or organization is required"))
		return
	}

	updated, err := s.deps.Users.Upsert(c.Request.Context(), &submission.User{
		Email:        user.Email,
		Name:         req.Name,
		Organization: req.Organization,
		Role:         user.Role,
	})
	if err != nil {
		s.respondError(c, "handleUpdateProfile", errors.WithCode(errors.CodeDatabaseError, err))
		return
	}
	c.JSON(http.StatusOK, updated)
}

func (s *Server) handleTemplate(c *gin.Context) {
	var buf bytes.Buffer
	if err := excel.WriteTemplate(&buf, ingestion.MilkYieldSchema); err != nil {
		s.respondError(c, "handleTemplate", errors.Wrap(err, "failed to build template"))
		return
	}
	c.Header("Content-Disposition", "attachment; filename="+TemplateFilename)
	c.Data(http.StatusOK, contentTypeFor(TemplateFilename), buf.Bytes())
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Ping != nil {
		if err := s.deps.Ping(c.Request.Context()); err != nil {
			s.logger.Warn("[handleHealth] database unavailable: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
