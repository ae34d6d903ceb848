package container

import (
	"context"
	"fmt"
	"log"

	"milkportal/adapters/excel"
	"milkportal/adapters/postgres"
	"milkportal/adapters/storage"
	"milkportal/internal/config"
	ingest "milkportal/internal/ingestion"
	"milkportal/internal/testset"
	"milkportal/ports"
	"milkportal/ui"
	"milkportal/ui/middleware"

	"github.com/jmoiron/sqlx"
)

// Container holds all application dependencies and manages their lifecycle
type Container struct {
	Config *config.Config

	// Infrastructure
	DB    *sqlx.DB
	Blobs ports.BlobStorage

	// Repositories (data access layer)
	UserRepo       ports.UserRepository
	TestSetRepo    ports.TestSetRepository
	SubmissionRepo ports.SubmissionRepository

	// Upload checks
	Reader    ports.WorkbookReader
	Inspector *ingest.Inspector
	Sessions  *ingest.SessionStore

	// Reference datasets and test sets
	Reference *testset.ReferenceSource
	Actuals   *testset.ReferenceSource
	Generator *testset.Generator
}

// New creates a new dependency injection container
func New(cfg *config.Config) (*Container, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config cannot be nil")
	}

	c := &Container{
		Config:   cfg,
		Reader:   excel.NewWorkbookReader(excel.DefaultExcelConfig()),
		Sessions: ingest.NewSessionStore(),
	}

	gate := ingest.NewGate()
	gate.MaxFileSize = cfg.Upload.MaxBytes()
	c.Inspector = ingest.NewInspector(c.Reader,
		ingest.WithGate(gate),
		ingest.WithPreviewLimit(cfg.Upload.PreviewRows),
	)

	blobs, err := storage.New(cfg.Storage.Driver, cfg.Storage.Path, storage.S3Options{
		Endpoint: cfg.Storage.Endpoint,
		Region:   cfg.Storage.Region,
		Key:      cfg.Storage.Key,
		Secret:   cfg.Storage.Secret,
		Bucket:   cfg.Storage.Bucket,
		Prefix:   cfg.Storage.Prefix,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize blob storage: %w", err)
	}
	c.Blobs = blobs
	c.Reference = testset.NewReferenceSource(blobs, cfg.Datasets.ReferenceKey, c.Reader)
	c.Actuals = testset.NewReferenceSource(blobs, cfg.Datasets.ActualYieldsKey, c.Reader)

	return c, nil
}

// InitWithDatabase initializes components that require database access
func (c *Container) InitWithDatabase(db *sqlx.DB) error {
	if db == nil {
		return fmt.Errorf("database connection cannot be nil")
	}

	c.DB = db

	// Test database connection
	if err := db.Ping(); err != nil {
		return fmt.Errorf("database connection test failed: %w", err)
	}

	c.initRepositories()
	c.Generator = testset.NewGenerator(c.Reference, c.Blobs, c.TestSetRepo)

	log.Printf("Container initialized successfully with database connection")
	return nil
}

// initRepositories initializes data access repositories
func (c *Container) initRepositories() {
	c.UserRepo = postgres.NewUserRepository(c.DB)
	c.TestSetRepo = postgres.NewTestSetRepository(c.DB)
	c.SubmissionRepo = postgres.NewSubmissionRepository(c.DB)
}

// ServerDependencies assembles what the API server needs
func (c *Container) ServerDependencies() ui.Dependencies {
	deps := ui.Dependencies{
		Inspector:   c.Inspector,
		Sessions:    c.Sessions,
		Users:       c.UserRepo,
		TestSets:    c.TestSetRepo,
		Submissions: c.SubmissionRepo,
		Blobs:       c.Blobs,
		Generator:   c.Generator,
		Actuals:     c.Actuals,
		TestSetOptions: testset.Options{
			Size: c.Config.Datasets.TestSetSize,
			Seed: c.Config.Datasets.TestSetSeed,
		},
		Auth: middleware.AuthOptions{
			Secret:   c.Config.Auth.JWTSecret,
			Audience: c.Config.Auth.Audience,
			IsAdmin:  c.Config.Auth.IsAdmin,
		},
		RequestTimeout:      c.Config.Server.RequestTimeout,
		MaxConcurrentParses: c.Config.Upload.MaxConcurrent,
	}
	if c.DB != nil {
		deps.Ping = c.DB.PingContext
	}
	return deps
}

// Shutdown releases resources held by the container
func (c *Container) Shutdown(ctx context.Context) error {
	if c.DB != nil {
		if err := c.DB.Close(); err != nil {
			return fmt.Errorf("failed to close database: %w", err)
		}
	}
	return nil
}
