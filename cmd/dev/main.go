package main

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"milkportal/adapters/excel"
	"milkportal/adapters/postgres"
	"milkportal/adapters/storage"
	"milkportal/domain/core"
	"milkportal/domain/ingestion"
	"milkportal/domain/submission"
	"milkportal/internal/compare"
	"milkportal/internal/config"
	ingest "milkportal/internal/ingestion"
	"milkportal/internal/lactation"
	"milkportal/internal/migration"
	"milkportal/internal/testset"
	"milkportal/ports"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	rootCmd := &cobra.Command{
		Use:   "milkportal-dev",
		Short: "Milk-yield portal development tools",
	}

	rootCmd.AddCommand(
		newSeedCmd(),
		newSmokeTestCmd(),
		newDeterminismTestCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newSeedCmd() *cobra.Command {
	herd := lactation.DefaultHerdConfig()

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Write synthetic reference datasets into the configured blob storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			store, err := storage.New(cfg.Storage.Driver, cfg.Storage.Path, storage.S3Options{
				Endpoint: cfg.Storage.Endpoint,
				Region:   cfg.Storage.Region,
				Key:      cfg.Storage.Key,
				Secret:   cfg.Storage.Secret,
				Bucket:   cfg.Storage.Bucket,
				Prefix:   cfg.Storage.Prefix,
			})
			if err != nil {
				return err
			}
			return generateSeedData(cmd.Context(), store, cfg.Datasets, herd)
		},
	}
	cmd.Flags().IntVar(&herd.LactationCount, "count", herd.LactationCount, "Number of lactations")
	cmd.Flags().Int64Var(&herd.Seed, "seed", herd.Seed, "Random seed")
	return cmd
}

// generateSeedData stores a synthetic test-day dataset under the reference
// key and its interval totals under the actual-yields key
func generateSeedData(ctx context.Context, store ports.BlobStorage, datasets config.DatasetConfig, herd lactation.HerdGeneratorConfig) error {
	fmt.Println("Generating seed data...")

	records := lactation.NewHerdGenerator(herd).Generate()
	if err := putCSV(ctx, store, datasets.ReferenceKey, lactation.Table(records)); err != nil {
		return err
	}
	fmt.Printf("Stored %d test days at %s\n", len(records), datasets.ReferenceKey)

	totals := lactation.TestInterval(records)
	rows := [][]string{{compare.ColumnActualTestID, compare.ColumnActualTotal}}
	for _, t := range totals {
		rows = append(rows, []string{strconv.FormatInt(t.TestID, 10), strconv.FormatFloat(t.Total305, 'f', 2, 64)})
	}
	if err := putCSV(ctx, store, datasets.ActualYieldsKey, rows); err != nil {
		return err
	}
	fmt.Printf("Stored %d lactation totals at %s\n", len(totals), datasets.ActualYieldsKey)

	fmt.Println("Seed data generation completed successfully")
	return nil
}

func putCSV(ctx context.Context, store ports.BlobStorage, key string, rows [][]string) error {
	var buf bytes.Buffer
	if err := csv.NewWriter(&buf).WriteAll(rows); err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	if err := store.Put(ctx, key, &buf, "text/csv"); err != nil {
		return fmt.Errorf("failed to store %s: %w", key, err)
	}
	return nil
}

func newSmokeTestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "smoke",
		Short: "Run smoke tests against an in-memory database and temporary storage",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSmokeTests(cmd.Context())
		},
	}
	return cmd
}

// smokeEnv is a throwaway portal backend
type smokeEnv struct {
	store     ports.BlobStorage
	testSets  ports.TestSetRepository
	generator *testset.Generator
	inspector *ingest.Inspector
	user      *submission.User
	testSet   *submission.TestSet
	results   []byte
	cleanup   func()
}

func newSmokeEnv(ctx context.Context) (*smokeEnv, error) {
	dir, err := os.MkdirTemp("", "milkportal-smoke-")
	if err != nil {
		return nil, err
	}
	db, err := postgres.Connect(ctx, postgres.DriverSQLite, ":memory:")
	if err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	env := &smokeEnv{
		store: storage.NewLocalStorage(dir),
		cleanup: func() {
			db.Close()
			os.RemoveAll(dir)
		},
	}
	if err := migration.NewRunner().Run(ctx, db); err != nil {
		env.cleanup()
		return nil, err
	}

	datasets := config.DatasetConfig{ReferenceKey: "reference/TestDataSet.csv", ActualYieldsKey: "reference/ActualMilkYields.csv"}
	herd := lactation.DefaultHerdConfig()
	herd.LactationCount = 50
	if err := generateSeedData(ctx, env.store, datasets, herd); err != nil {
		env.cleanup()
		return nil, err
	}

	reader := excel.NewWorkbookReader(excel.DefaultExcelConfig())
	env.testSets = postgres.NewTestSetRepository(db)
	env.generator = testset.NewGenerator(testset.NewReferenceSource(env.store, datasets.ReferenceKey, reader), env.store, env.testSets)
	env.inspector = ingest.NewInspector(reader)
	env.user, err = postgres.NewUserRepository(db).Upsert(ctx, &submission.User{Email: "smoke@milkportal.invalid", Name: "Smoke"})
	if err != nil {
		env.cleanup()
		return nil, err
	}
	return env, nil
}

func runSmokeTests(ctx context.Context) error {
	fmt.Println("Running smoke tests...")

	env, err := newSmokeEnv(ctx)
	if err != nil {
		return fmt.Errorf("failed to initialize smoke environment: %w", err)
	}
	defer env.cleanup()

	tests := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"testset_generation", func(ctx context.Context) error {
			ts, err := env.generator.Generate(ctx, env.user.ID, testset.Options{Size: 20, Seed: 1})
			if err != nil {
				return err
			}
			env.testSet = ts
			return nil
		}},
		{"results_upload", func(ctx context.Context) error {
			if env.testSet == nil {
				return fmt.Errorf("no test set")
			}
			table := &ingestion.RawTable{SheetName: "Results", Rows: [][]ingestion.Cell{{
				ingestion.TextCell(ingestion.ColumnTestObjectID), ingestion.TextCell(ingestion.ColumnCalculatedMilkYield),
			}}}
			for i, id := range env.testSet.TestObjectIDs {
				table.Rows = append(table.Rows, []ingestion.Cell{
					ingestion.NumberCell(float64(id)), ingestion.NumberCell(env.testSet.ReferenceYields[i] * 1.02),
				})
			}
			var buf bytes.Buffer
			if err := excel.WriteTable(&buf, table); err != nil {
				return err
			}
			env.results = buf.Bytes()

			result := env.inspector.Inspect(ctx, ingestion.FileMeta{Name: "results.xlsx", Size: int64(buf.Len())}, bytes.NewReader(env.results))
			if !result.Decision.Admitted {
				return fmt.Errorf("upload blocked: %v", result.Decision.Reasons)
			}
			return nil
		}},
		{"comparison", func(ctx context.Context) error {
			if env.testSet == nil {
				return fmt.Errorf("no test set")
			}
			sub := &submission.Submission{
				ID:               core.SubmissionID(core.NewID()),
				TestSetID:        env.testSet.ID,
				TestObjectIDs:    env.testSet.TestObjectIDs,
				CalculatedYields: make([]float64, len(env.testSet.ReferenceYields)),
			}
			for i, y := range env.testSet.ReferenceYields {
				sub.CalculatedYields[i] = y * 1.02
			}
			report, err := compare.Compare(env.testSet, sub, nil)
			if err != nil {
				return err
			}
			if report.Overall.VsReference.Pairs != len(env.testSet.TestObjectIDs) {
				return fmt.Errorf("expected %d pairs, got %d", len(env.testSet.TestObjectIDs), report.Overall.VsReference.Pairs)
			}
			return nil
		}},
	}

	passed := 0
	for _, test := range tests {
		fmt.Printf("  Running %s...", test.name)
		if err := test.fn(ctx); err != nil {
			fmt.Printf(" FAILED: %v\n", err)
		} else {
			fmt.Println(" PASSED")
			passed++
		}
	}

	fmt.Printf("\nSmoke tests: %d/%d passed\n", passed, len(tests))
	if passed < len(tests) {
		return fmt.Errorf("some smoke tests failed")
	}

	return nil
}

func newDeterminismTestCmd() *cobra.Command {
	var seed int64
	var size int

	cmd := &cobra.Command{
		Use:   "determinism",
		Short: "Check that test-set sampling is reproducible for a seed",
		RunE: func(cmd *cobra.Command, args []string) error {
			return testDeterminism(testset.Options{Size: size, Seed: seed})
		},
	}
	cmd.Flags().Int64Var(&seed, "seed", testset.DefaultSeed, "Sampling seed")
	cmd.Flags().IntVar(&size, "size", testset.DefaultSize, "Lactations per test set")
	return cmd
}

func testDeterminism(opts testset.Options) error {
	fmt.Printf("Testing determinism for seed %d...\n", opts.Seed)

	records := lactation.NewHerdGenerator(lactation.DefaultHerdConfig()).Generate()
	first, err := testset.Sample(records, opts)
	if err != nil {
		return err
	}
	second, err := testset.Sample(records, opts)
	if err != nil {
		return err
	}

	a := lactation.TestInterval(first)
	b := lactation.TestInterval(second)
	if len(a) != len(b) {
		return fmt.Errorf("determinism test failed: lactation counts differ: %d vs %d", len(a), len(b))
	}
	for i := range a {
		if a[i] != b[i] {
			return fmt.Errorf("determinism test failed: lactation %d differs: %+v vs %+v", i, a[i], b[i])
		}
	}

	fmt.Printf("Determinism test passed - %d lactations identical\n", len(a))
	return nil
}
