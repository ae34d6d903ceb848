package ui

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"milkportal/domain/core"
	"milkportal/domain/submission"
	"milkportal/internal/errors"

	"github.com/gin-gonic/gin"
)

// handleGenerateTestSet samples a new test set for the caller
func (s *Server) handleGenerateTestSet(c *gin.Context) {
	user := mustUser(c)
	if s.deps.Generator == nil {
		s.respondError(c, "handleGenerateTestSet", errors.New(errors.CodeExternalService, "test-set generation is not configured"))
		return
	}

	ts, err := s.deps.Generator.Generate(c.Request.Context(), user.ID, s.deps.TestSetOptions)
	if err != nil {
		s.respondError(c, "handleGenerateTestSet", err)
		return
	}

	s.logger.Info("[handleGenerateTestSet] %s: generated test set %s with %d lactations", user.Email, ts.ID, len(ts.TestObjectIDs))
	c.JSON(http.StatusCreated, gin.H{
		"test_set_id":   ts.ID,
		"filename":      ts.Filename,
		"download_link": fmt.Sprintf("/api/v1/testsets/%s/download", ts.ID),
		"size":          len(ts.TestObjectIDs),
	})
}

func (s *Server) handleListTestSets(c *gin.Context) {
	user := mustUser(c)
	sets, err := s.deps.TestSets.ListByUser(c.Request.Context(), user.ID)
	if err != nil {
		s.respondError(c, "handleListTestSets", err)
		return
	}

	type entry struct {
		ID        core.TestSetID `json:"id"`
		Filename  string         `json:"filename"`
		Size      int            `json:"size"`
		CreatedAt string         `json:"created_at"`
	}
	out := make([]entry, 0, len(sets))
	for _, ts := range sets {
		out = append(out, entry{
			ID:        ts.ID,
			Filename:  ts.Filename,
			Size:      len(ts.TestObjectIDs),
			CreatedAt: ts.CreatedAt.Format(time.RFC3339),
		})
	}
	c.JSON(http.StatusOK, gin.H{"test_sets": out, "count": len(out)})
}

func (s *Server) handleDownloadTestSet(c *gin.Context) {
	ts, err := s.loadTestSet(c.Request.Context(), mustUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, "handleDownloadTestSet", err)
		return
	}
	s.streamBlob(c, "handleDownloadTestSet", ts.BlobKey, ts.Filename)
}

// loadTestSet fetches a test set the user may use
func (s *Server) loadTestSet(ctx context.Context, user *submission.User, rawID string) (*submission.TestSet, error) {
	id, err := core.ParseTestSetID(rawID)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	ts, err := s.deps.TestSets.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ts.UserID != user.ID && !user.IsAdmin() {
		return nil, errors.Forbidden(fmt.Sprintf("test set %s belongs to another user", id))
	}
	return ts, nil
}
