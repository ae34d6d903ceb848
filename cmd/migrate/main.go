package main

import (
	"context"
	"log"
	"os"
	"time"

	"milkportal/adapters/postgres"
	"milkportal/internal/migration"

	"github.com/joho/godotenv"
)

// Usage: migrate [database_url]
// The driver comes from DATABASE_DRIVER (postgres by default); the URL falls
// back to DATABASE_URL.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment variables")
	}

	driver := os.Getenv("DATABASE_DRIVER")
	if driver == "" {
		driver = postgres.DriverPostgres
	}
	databaseURL := os.Getenv("DATABASE_URL")
	if len(os.Args) > 1 {
		databaseURL = os.Args[1]
	}
	if databaseURL == "" {
		log.Fatal("Usage: migrate <database_url> (or set DATABASE_URL)")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	db, err := postgres.Connect(ctx, driver, databaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	runner := migration.NewRunner()
	log.Printf("Applying schema %s using %s", runner.Version(), driver)
	if err := runner.Run(ctx, db); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	log.Printf("Migration complete")
}
