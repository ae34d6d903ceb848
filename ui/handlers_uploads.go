package ui

import (
	"bytes"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"milkportal/domain/ingestion"
	"milkportal/domain/submission"
	"milkportal/internal/errors"
	ingest "milkportal/internal/ingestion"
	"milkportal/ui/middleware"

	"github.com/gin-gonic/gin"
)

// upload is a multipart file read into memory, bounded one byte past the
// gate limit so the gate can still see it is oversize
type upload struct {
	meta ingestion.FileMeta
	data []byte
}

func (s *Server) readUpload(c *gin.Context) (*upload, error) {
	fh, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if stderrors.As(err, &tooLarge) {
			return nil, errors.TooLarge(fmt.Sprintf("request body exceeds %d bytes", tooLarge.Limit))
		}
		return nil, errors.InvalidInput("no file uploaded: expected multipart field \"file\"")
	}
	return s.readFileHeader(fh)
}

func (s *Server) readFileHeader(fh *multipart.FileHeader) (*upload, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, errors.Wrap(err, "failed to open uploaded file")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, s.deps.Inspector.Gate().SizeLimit()+1))
	if err != nil {
		return nil, errors.Wrap(err, "failed to read uploaded file")
	}
	size := fh.Size
	if int64(len(data)) > size {
		size = int64(len(data))
	}
	return &upload{meta: ingestion.FileMeta{Name: fh.Filename, Size: size}, data: data}, nil
}

// inspect runs the upload checks once a parse slot is free
func (s *Server) inspect(ctx context.Context, up *upload) (ingestion.Result, error) {
	if err := s.parseSlots.Acquire(ctx, 1); err != nil {
		return ingestion.Result{}, fmt.Errorf("waiting for a parse slot: %w", err)
	}
	defer s.parseSlots.Release(1)
	return s.deps.Inspector.Inspect(ctx, up.meta, bytes.NewReader(up.data)), nil
}

// sessionFor returns the upload session of the calling user
func (s *Server) sessionFor(user *submission.User) *ingest.Session {
	return s.deps.Sessions.Get(user.ID.String())
}

// handleValidateUpload inspects a file without storing it. The result becomes
// the caller's current upload unless a newer upload started meanwhile.
func (s *Server) handleValidateUpload(c *gin.Context) {
	user := mustUser(c)
	up, err := s.readUpload(c)
	if err != nil {
		s.respondError(c, "handleValidateUpload", err)
		return
	}

	session := s.sessionFor(user)
	gen := session.Begin()
	s.logger.Info("[handleValidateUpload] %s: inspecting %s (%d bytes), generation %d", user.Email, up.meta.Name, up.meta.Size, gen)

	result, err := s.inspect(c.Request.Context(), up)
	if err != nil {
		s.respondError(c, "handleValidateUpload", err)
		return
	}
	result.Generation = gen
	applied := session.Complete(gen, result)
	if !applied {
		s.logger.Debug("[handleValidateUpload] %s: generation %d superseded", user.Email, gen)
	}

	c.Header("X-Upload-Current", strconv.FormatBool(applied))
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCurrentUpload(c *gin.Context) {
	result, ok := s.sessionFor(mustUser(c)).Current()
	if !ok {
		s.respondError(c, "handleCurrentUpload", errors.NotFound("current upload"))
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleResetUpload(c *gin.Context) {
	s.releaseSession(mustUser(c))
	c.Status(http.StatusNoContent)
}

// releaseSession invalidates the caller's upload and frees its slot
func (s *Server) releaseSession(user *submission.User) {
	s.deps.Sessions.Drop(user.ID.String())
	s.logger.Debug("[releaseSession] %s: released, %d upload session(s) open", user.Email, s.deps.Sessions.Len())
}

// mustUser returns the authenticated caller. Routes using it sit behind
// middleware.Authenticate, which aborts when there is none.
func mustUser(c *gin.Context) *submission.User {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		panic("ui: handler reached without an authenticated user")
	}
	return user
}
