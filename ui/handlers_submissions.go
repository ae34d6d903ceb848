package ui

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"milkportal/adapters/storage"
	"milkportal/domain/core"
	"milkportal/domain/ingestion"
	"milkportal/domain/submission"
	"milkportal/internal/compare"
	"milkportal/internal/errors"

	"github.com/gin-gonic/gin"
)

// requiredSubmitFields must be non-blank on every submission
var requiredSubmitFields = []string{"test_set_id", "calculation_method"}

// handleSubmit re-runs the upload checks and, when the file is admitted,
// stores the original workbook and the parsed yields
func (s *Server) handleSubmit(c *gin.Context) {
	ctx := c.Request.Context()
	user := mustUser(c)

	up, err := s.readUpload(c)
	if err != nil {
		s.respondError(c, "handleSubmit", err)
		return
	}

	for _, field := range requiredSubmitFields {
		if strings.TrimSpace(c.PostForm(field)) == "" {
			s.respondError(c, "handleSubmit", errors.InvalidInput(field+" is required"))
			return
		}
	}
	ts, err := s.loadTestSet(ctx, user, strings.TrimSpace(c.PostForm("test_set_id")))
	if err != nil {
		s.respondError(c, "handleSubmit", err)
		return
	}

	result, err := s.inspect(ctx, up)
	if err != nil {
		s.respondError(c, "handleSubmit", err)
		return
	}
	if !result.Decision.Admitted {
		message := "submission blocked"
		if first, ok := result.Decision.FirstReason(); ok {
			message = first.Message
		}
		s.logger.Info("[handleSubmit] %s: %s blocked with %d reason(s)", user.Email, up.meta.Name, len(result.Decision.Reasons))
		verr := errors.ValidationError(message)
		c.JSON(http.StatusUnprocessableEntity, gin.H{
			"error":    verr.Message,
			"code":     verr.Code,
			"decision": result.Decision,
			"summary":  result.Summary,
		})
		return
	}

	ids, yields := recordValues(result.Records, ingestion.MilkYieldSchema)
	now := time.Now().UTC()
	sub := &submission.Submission{
		ID:                core.SubmissionID(core.NewID()),
		TestSetID:         ts.ID,
		UserID:            user.ID,
		Organization:      formOrDefault(c, "organization", user.Organization),
		Country:           strings.TrimSpace(c.PostForm("country")),
		Notes:             strings.TrimSpace(c.PostForm("notes")),
		CalculationMethod: strings.TrimSpace(c.PostForm("calculation_method")),
		RespondentEmail:   user.Email,
		OriginalFilename:  up.meta.Name,
		TestObjectIDs:     ids,
		CalculatedYields:  yields,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	sub.BlobKey = storage.SubmissionKey(sub.ID.String(), up.meta.Name)

	if err := s.deps.Blobs.Put(ctx, sub.BlobKey, bytes.NewReader(up.data), contentTypeFor(up.meta.Name)); err != nil {
		s.respondError(c, "handleSubmit", errors.StorageError("failed to store upload", err))
		return
	}
	if err := s.deps.Submissions.Create(ctx, sub); err != nil {
		if delErr := s.deps.Blobs.Delete(ctx, sub.BlobKey); delErr != nil {
			s.logger.Warn("[handleSubmit] failed to remove orphaned blob %s: %v", sub.BlobKey, delErr)
		}
		s.respondError(c, "handleSubmit", errors.WithCode(errors.CodeDatabaseError, errors.Wrap(err, "failed to save submission")))
		return
	}

	s.releaseSession(user)
	s.logger.Info("[handleSubmit] %s: stored submission %s with %d records", user.Email, sub.ID, len(ids))
	c.JSON(http.StatusCreated, sub)
}

func (s *Server) handleListSubmissions(c *gin.Context) {
	ctx := c.Request.Context()
	user := mustUser(c)

	var (
		subs []*submission.Submission
		err  error
	)
	if user.IsAdmin() {
		subs, err = s.deps.Submissions.ListAll(ctx)
	} else {
		subs, err = s.deps.Submissions.ListByUser(ctx, user.ID)
	}
	if err != nil {
		s.respondError(c, "handleListSubmissions", err)
		return
	}
	if subs == nil {
		subs = []*submission.Submission{}
	}
	c.JSON(http.StatusOK, gin.H{"submissions": subs, "count": len(subs)})
}

// handleDeleteSubmission removes the row first; a blob left behind by a
// failed delete is only logged
func (s *Server) handleDeleteSubmission(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := s.loadSubmission(ctx, mustUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, "handleDeleteSubmission", err)
		return
	}

	if err := s.deps.Submissions.Delete(ctx, sub.ID); err != nil {
		s.respondError(c, "handleDeleteSubmission", err)
		return
	}
	if sub.BlobKey != "" {
		if err := s.deps.Blobs.Delete(ctx, sub.BlobKey); err != nil {
			s.logger.Warn("[handleDeleteSubmission] failed to delete blob %s: %v", sub.BlobKey, err)
		}
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleDownloadSubmission(c *gin.Context) {
	ctx := c.Request.Context()
	sub, err := s.loadSubmission(ctx, mustUser(c), c.Param("id"))
	if err != nil {
		s.respondError(c, "handleDownloadSubmission", err)
		return
	}
	s.streamBlob(c, "handleDownloadSubmission", sub.BlobKey, sub.OriginalFilename)
}

// handleCompare scores a submission against its test set's reference yields
// and, when the recorded yields dataset is available, against actual yields
func (s *Server) handleCompare(c *gin.Context) {
	details, report, err := s.comparison(c)
	if err != nil {
		s.respondError(c, "handleCompare", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"submission_id": details.SubmissionID,
		"test_set_id":   details.TestSetID,
		"details":       details,
		"report":        report,
	})
}

// handleCompareReport renders the comparison as an HTML page, or as markdown
// with format=markdown. download=true serves it as an attachment.
func (s *Server) handleCompareReport(c *gin.Context) {
	details, report, err := s.comparison(c)
	if err != nil {
		s.respondError(c, "handleCompareReport", err)
		return
	}

	body, contentType, ext := compare.RenderHTML(details, report), "text/html; charset=utf-8", ".html"
	if c.Query("format") == "markdown" {
		body, contentType, ext = compare.RenderMarkdown(details, report), "text/markdown; charset=utf-8", ".md"
	}
	if download, _ := strconv.ParseBool(c.DefaultQuery("download", "false")); download {
		filename := "comparison_" + details.SubmissionID + ext
		c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filename}))
	}
	c.Data(http.StatusOK, contentType, body)
}

// comparison loads a submission with its test set and compares them
func (s *Server) comparison(c *gin.Context) (compare.Details, compare.Report, error) {
	ctx := c.Request.Context()
	sub, err := s.loadSubmission(ctx, mustUser(c), c.Param("id"))
	if err != nil {
		return compare.Details{}, compare.Report{}, err
	}
	if sub.TestSetID.String() == "" {
		return compare.Details{}, compare.Report{}, errors.InvalidInput("submission is not linked to a test set")
	}
	ts, err := s.deps.TestSets.GetByID(ctx, sub.TestSetID)
	if err != nil {
		return compare.Details{}, compare.Report{}, err
	}

	report, err := compare.Compare(ts, sub, s.actualYields(ctx))
	if err != nil {
		return compare.Details{}, compare.Report{}, errors.Wrapf(err, "comparing submission %s", sub.ID)
	}
	details := compare.Details{
		SubmissionID:      sub.ID.String(),
		TestSetID:         ts.ID.String(),
		Organization:      sub.Organization,
		Country:           sub.Country,
		CalculationMethod: sub.CalculationMethod,
		Notes:             sub.Notes,
		DateReported:      sub.CreatedAt,
	}
	return details, report, nil
}

// actualYields loads the recorded lactation totals. A missing or broken
// dataset only drops the actual-yield metrics from the report.
func (s *Server) actualYields(ctx context.Context) map[int64]float64 {
	if s.deps.Actuals == nil {
		return nil
	}
	table, err := s.deps.Actuals.Table(ctx)
	if err != nil {
		s.logger.Warn("[handleCompare] actual yields unavailable: %v", err)
		return nil
	}
	actual, err := compare.ActualYields(table)
	if err != nil {
		s.logger.Warn("[handleCompare] actual yields unusable: %v", err)
		return nil
	}
	return actual
}

// loadSubmission fetches a submission the user may act on
func (s *Server) loadSubmission(ctx context.Context, user *submission.User, rawID string) (*submission.Submission, error) {
	id, err := core.ParseSubmissionID(rawID)
	if err != nil {
		return nil, errors.InvalidInput(err.Error())
	}
	sub, err := s.deps.Submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !sub.OwnedBy(user.ID) && !user.IsAdmin() {
		return nil, errors.Forbidden(fmt.Sprintf("submission %s belongs to another user", id))
	}
	return sub, nil
}

// streamBlob sends a stored file as an attachment
func (s *Server) streamBlob(c *gin.Context, op, key, filename string) {
	rc, err := s.deps.Blobs.Get(c.Request.Context(), key)
	if err != nil {
		if core.IsNotFoundError(err) {
			s.respondError(c, op, errors.NotFound("file "+filename))
			return
		}
		s.respondError(c, op, errors.StorageError("failed to read file", err))
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": filepath.Base(filename)}))
	c.Header("Content-Type", contentTypeFor(filename))
	c.Status(http.StatusOK)
	if _, err := io.Copy(c.Writer, rc); err != nil {
		s.logger.Warn("[%s] download of %s interrupted: %v", op, key, err)
	}
}

// recordValues pulls the identity and value columns out of admitted records.
// Admission guarantees every row casts.
func recordValues(records []ingestion.CanonicalRecord, schema ingestion.Schema) ([]int64, []float64) {
	ids := make([]int64, 0, len(records))
	yields := make([]float64, 0, len(records))
	for _, rec := range records {
		id, ok := rec[schema.IdentityColumn].Int()
		if !ok {
			continue
		}
		yield, ok := rec[schema.ValueColumn].Float()
		if !ok {
			continue
		}
		ids = append(ids, id)
		yields = append(yields, yield)
	}
	return ids, yields
}

func formOrDefault(c *gin.Context, field, fallback string) string {
	if v := strings.TrimSpace(c.PostForm(field)); v != "" {
		return v
	}
	return fallback
}

func contentTypeFor(filename string) string {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx":
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	case ".xls":
		return "application/vnd.ms-excel"
	case ".csv":
		return "text/csv"
	default:
		return "application/octet-stream"
	}
}
