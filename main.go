package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"milkportal/adapters/postgres"
	"milkportal/internal"
	"milkportal/internal/config"
	"milkportal/internal/container"
	apperrors "milkportal/internal/errors"
	"milkportal/internal/migration"
	"milkportal/ui"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 15 * time.Second

// initDatabase connects and brings the schema up to date
func initDatabase(ctx context.Context, appConfig *config.Config) (*sqlx.DB, error) {
	db, err := postgres.Connect(ctx, appConfig.Database.Driver, appConfig.Database.URL)
	if err != nil {
		return nil, apperrors.WithCode(apperrors.CodeDatabaseError, apperrors.Wrap(err, "failed to connect to database"))
	}

	migrator := migration.NewRunner()
	if err := migrator.Run(ctx, db); err != nil {
		db.Close()
		return nil, apperrors.Wrap(err, "database migration failed")
	}
	log.Printf("Database ready (%s, schema %s)", appConfig.Database.Driver, migrator.Version())
	return db, nil
}

func main() {
	// Load environment variables from .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	internal.DefaultLogger = internal.NewLogger(internal.ParseLogLevel(appConfig.Log.Level))
	if appConfig.Log.File != "" {
		out := internal.OpenLogFile(internal.LogFileOptions{
			Path:       appConfig.Log.File,
			MaxSizeMB:  appConfig.Log.MaxSizeMB,
			MaxBackups: appConfig.Log.MaxBackups,
			MaxAgeDays: appConfig.Log.MaxAgeDays,
		})
		defer out.Close()
		gin.DefaultWriter = out
		gin.DefaultErrorWriter = out
	}
	gin.SetMode(appConfig.Server.GinMode)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := initDatabase(ctx, appConfig)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}

	appContainer, err := container.New(appConfig)
	if err != nil {
		log.Fatalf("Failed to create application container: %v", err)
	}
	defer appContainer.Shutdown(context.Background())

	if err := appContainer.InitWithDatabase(db); err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	if !appConfig.Auth.Enabled() {
		log.Printf("AUTH_JWT_SECRET not set: running in single-user mode")
	}

	server := ui.NewServer(appContainer.ServerDependencies())
	httpServer := &http.Server{
		Addr:              ":" + appConfig.Server.Port,
		Handler:           server.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Printf("Starting milk-yield portal on port %s", appConfig.Server.Port)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		log.Printf("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("Server stopped with error: %v", err)
	}
}
