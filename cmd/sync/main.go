package main

// Batch-sync precedents from the external legal search API:
//   go run ./cmd/sync -queries "criminal breach of trust,cheque dishonour"

import (
	"context"
	"encoding/json"
	"flag"
	"log"
	"os"
	"strings"

	"precedent-backend/internal/embedding"
	embeddingopenai "precedent-backend/internal/embedding/openai"
	"precedent-backend/internal/ingest"
	"precedent-backend/internal/kanoon"
	"precedent-backend/internal/precedents"
	"precedent-backend/internal/shared/config"
	"precedent-backend/internal/shared/ratelimit"
	"precedent-backend/internal/shared/storage/db"
	localstore "precedent-backend/internal/shared/storage/object/local"
)

func main() {
	queriesFlag := flag.String("queries", "", "comma-separated search queries (required)")
	limitFlag := flag.Int("limit", 5, "max documents fetched per query")
	reindexFlag := flag.Bool("reindex", false, "re-embed stored precedents that lack embeddings instead of syncing")
	flag.Parse()

	cfg := config.Load()
	ctx := context.Background()

	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultMigrateOptions()))
	if err != nil {
		log.Printf("failed to connect database: %v", err)
		os.Exit(1)
	}
	defer sqlDB.Close()
	if err := db.RunMigrations(ctx, sqlDB); err != nil {
		log.Printf("failed to run migrations: %v", err)
		os.Exit(1)
	}

	var embedder embedding.Client
	if cfg.OpenAIAPIKey != "" {
		client, err := embeddingopenai.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel)
		if err != nil {
			log.Printf("embedding client unavailable, new precedents stay unembedded: %v", err)
		} else {
			embedder = client
		}
	}

	repo := &precedents.PGRepo{DB: sqlDB}
	svc := ingest.NewService(
		ingest.NewMemoryJobsRepo(),
		repo,
		kanoon.NewClient(cfg.KanoonBaseURL, cfg.KanoonAPIToken),
		embedder,
		localstore.New(cfg.LocalStoreDir),
		ratelimit.NewIntervalPacer(cfg.SyncFetchDelay),
	)

	var report ingest.Report
	if *reindexFlag {
		report, err = svc.ReindexAll(ctx)
	} else {
		queries := splitQueries(*queriesFlag)
		if len(queries) == 0 {
			log.Printf("-queries is required unless -reindex is set")
			flag.Usage()
			os.Exit(2)
		}
		report, err = svc.SyncBatch(ctx, queries, *limitFlag)
	}
	if err != nil {
		log.Printf("run aborted: %v", err)
	}

	out, _ := json.MarshalIndent(report, "", "  ")
	log.Printf("report:\n%s", out)
	if err != nil {
		os.Exit(1)
	}
}

func splitQueries(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
