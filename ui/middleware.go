package ui

import (
	"fmt"

	"milkportal/internal/errors"
	"milkportal/ui/middleware"

	"github.com/gin-gonic/gin"
)

// setupMiddleware configures Gin middleware
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Logger(), gin.CustomRecovery(func(c *gin.Context, recovered any) {
		s.respondError(c, "recovery", errors.InternalError(fmt.Sprintf("panic: %v", recovered)))
		c.Abort()
	}))
	s.router.Use(middleware.RequestTimeout(s.deps.RequestTimeout))
	s.router.MaxMultipartMemory = 32 << 20
}
