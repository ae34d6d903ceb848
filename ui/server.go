// Package ui serves the portal REST API.
package ui

import (
	"context"
	"net/http"
	"time"

	"milkportal/domain/ingestion"
	"milkportal/internal"
	ingest "milkportal/internal/ingestion"
	"milkportal/internal/testset"
	"milkportal/ports"
	"milkportal/ui/middleware"

	"github.com/gin-gonic/gin"
	"golang.org/x/sync/semaphore"
)

// TableSource supplies a dataset table, such as the recorded lactation yields
type TableSource interface {
	Table(ctx context.Context) (*ingestion.RawTable, error)
}

// Dependencies are the services the API handlers call into
type Dependencies struct {
	Inspector      *ingest.Inspector
	Sessions       *ingest.SessionStore
	Users          ports.UserRepository
	TestSets       ports.TestSetRepository
	Submissions    ports.SubmissionRepository
	Blobs          ports.BlobStorage
	Generator      *testset.Generator
	Actuals        TableSource // optional
	TestSetOptions testset.Options
	Auth           middleware.AuthOptions
	RequestTimeout time.Duration
	Ping           func(ctx context.Context) error // optional
	// MaxConcurrentParses bounds workbook parses across all requests
	MaxConcurrentParses int
}

// DefaultMaxConcurrentParses applies when Dependencies leaves the bound unset
const DefaultMaxConcurrentParses = 4

// multipartOverhead is the body allowance on top of the gate's file size
// limit, for form fields and part headers
const multipartOverhead = 1 << 20

// Server represents the portal web server
type Server struct {
	router     *gin.Engine
	deps       Dependencies
	parseSlots *semaphore.Weighted
	logger     *internal.Logger
}

// NewServer creates the server and registers every route
func NewServer(deps Dependencies) *Server {
	if deps.Sessions == nil {
		deps.Sessions = ingest.NewSessionStore()
	}
	if deps.TestSetOptions.Size <= 0 {
		deps.TestSetOptions = testset.DefaultOptions()
	}
	if deps.MaxConcurrentParses <= 0 {
		deps.MaxConcurrentParses = DefaultMaxConcurrentParses
	}

	s := &Server{
		router:     gin.New(),
		deps:       deps,
		parseSlots: semaphore.NewWeighted(int64(deps.MaxConcurrentParses)),
		logger:     internal.DefaultLogger.With("Server"),
	}
	s.setupMiddleware()
	s.setupRoutes()
	return s
}

// Handler exposes the router for http.Server and httptest
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start runs the server on addr until it fails
func (s *Server) Start(addr string) error {
	s.logger.Info("listening on %s", addr)
	return s.router.Run(addr)
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)

	api := s.router.Group("/api/v1")
	api.GET("/template", s.handleTemplate)

	authed := api.Group("")
	authed.Use(middleware.Authenticate(s.deps.Auth, s.deps.Users))
	{
		uploadLimit := middleware.BodyLimit(s.deps.Inspector.Gate().SizeLimit() + multipartOverhead)

		authed.POST("/uploads/validate", uploadLimit, s.handleValidateUpload)
		authed.GET("/uploads/current", s.handleCurrentUpload)
		authed.DELETE("/uploads/current", s.handleResetUpload)

		authed.POST("/submit", uploadLimit, s.handleSubmit)
		authed.GET("/submissions", s.handleListSubmissions)
		authed.DELETE("/submissions/:id", s.handleDeleteSubmission)
		authed.GET("/submissions/:id/file", s.handleDownloadSubmission)
		authed.GET("/compare/:id", s.handleCompare)
		authed.GET("/compare/:id/report", s.handleCompareReport)

		authed.POST("/testsets", s.handleGenerateTestSet)
		authed.GET("/testsets", s.handleListTestSets)
		authed.GET("/testsets/:id/download", s.handleDownloadTestSet)

		authed.GET("/profile", s.handleGetProfile)
		authed.POST("/profile", s.handleUpdateProfile)
	}
}
