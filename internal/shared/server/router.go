package server

import (
	"context"
	"database/sql"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"precedent-backend/internal/analysis"
	"precedent-backend/internal/cases"
	"precedent-backend/internal/embedding"
	embeddingopenai "precedent-backend/internal/embedding/openai"
	"precedent-backend/internal/ingest"
	"precedent-backend/internal/kanoon"
	"precedent-backend/internal/lawyers"
	"precedent-backend/internal/llm"
	llmopenai "precedent-backend/internal/llm/openai"
	"precedent-backend/internal/precedents"
	"precedent-backend/internal/shared/config"
	"precedent-backend/internal/shared/metrics"
	"precedent-backend/internal/shared/ratelimit"
	"precedent-backend/internal/shared/server/middleware"
	"precedent-backend/internal/shared/server/respond"
	"precedent-backend/internal/shared/storage/db"
	"precedent-backend/internal/shared/storage/object"
	localstore "precedent-backend/internal/shared/storage/object/local"
	s3store "precedent-backend/internal/shared/storage/object/s3"
)

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(cfg config.Config) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(cfg.CORSAllowOrigin),
		middleware.RateLimit(rateLimitConfig()),
	)

	sqlDB := connectDatabase(cfg)
	store := newObjectStore(cfg)

	var precedentRepo precedents.Repo
	var jobsRepo ingest.JobsRepo
	var caseRepo cases.Repo
	var lawyerRepo lawyers.Repo
	if sqlDB != nil {
		precedentRepo = &precedents.PGRepo{DB: sqlDB}
		jobsRepo = &ingest.PGJobsRepo{DB: sqlDB}
		caseRepo = &cases.PGRepo{DB: sqlDB}
		lawyerRepo = &lawyers.PGRepo{DB: sqlDB}
	} else {
		precedentRepo = precedents.NewMemoryRepo()
		jobsRepo = ingest.NewMemoryJobsRepo()
		caseRepo = cases.NewMemoryRepo()
		lawyerRepo = lawyers.NewMemoryRepo()
	}

	var embedder embedding.Client
	var llmClient llm.Client = llm.PlaceholderClient{}
	if cfg.OpenAIAPIKey != "" {
		if client, err := embeddingopenai.NewClient(cfg.OpenAIAPIKey, cfg.EmbeddingModel); err != nil {
			log.Printf("embedding client unavailable: %v", err)
		} else {
			embedder = client
		}
		if client, err := llmopenai.NewClient(cfg.OpenAIAPIKey, cfg.LLMModel); err != nil {
			log.Printf("llm client unavailable: %v", err)
		} else {
			llmClient = client
		}
	} else {
		log.Printf("OPENAI_API_KEY not set; embedding disabled and llm responses are placeholders")
	}

	kanoonClient := kanoon.NewClient(cfg.KanoonBaseURL, cfg.KanoonAPIToken)
	index := precedents.NewBruteForceIndex(precedentRepo)

	ingestSvc := ingest.NewService(
		jobsRepo,
		precedentRepo,
		kanoonClient,
		embedder,
		store,
		ratelimit.NewIntervalPacer(cfg.SyncFetchDelay),
	)
	analysisSvc := analysis.NewService(llmClient, embedder, index, kanoonClient)
	if cfg.RetrievalTopK > 0 {
		analysisSvc.TopK = cfg.RetrievalTopK
	}
	lawyerSvc := lawyers.NewService(lawyerRepo)

	r.GET("/metrics", metrics.Handler())

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	precedents.NewHandler(precedentRepo, embedder).RegisterRoutes(api)
	ingest.NewHandler(ingestSvc).RegisterRoutes(api)
	cases.NewHandler(caseRepo, analysisSvc, lawyerSvc).RegisterRoutes(api)
	lawyers.NewHandler(lawyerSvc).RegisterRoutes(api)

	return r
}

// connectDatabase returns a ready pool, or nil to signal the in-memory
// fallback. Startup proceeds either way so dev environments work without
// Postgres.
func connectDatabase(cfg config.Config) *sql.DB {
	if cfg.DatabaseURL == "" {
		log.Printf("DATABASE_URL not set, using in-memory repositories")
		return nil
	}
	ctx := context.Background()
	conn, err := db.Connect(ctx, cfg.DatabaseURL, db.OptionsFromEnv(db.DefaultServerOptions()))
	if err != nil {
		log.Printf("database unavailable, using in-memory repositories: %v", err)
		return nil
	}
	if err := db.RunMigrations(ctx, conn); err != nil {
		log.Printf("migrations failed, using in-memory repositories: %v", err)
		conn.Close()
		return nil
	}
	return conn
}

func newObjectStore(cfg config.Config) object.ObjectStore {
	if cfg.ObjectStoreType == "s3" {
		store, err := s3store.New(context.Background(), cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix, "")
		if err != nil {
			log.Printf("s3 store unavailable, falling back to local: %v", err)
		} else {
			return store
		}
	}
	return localstore.New(cfg.LocalStoreDir)
}

// rateLimitConfig throttles the expensive analysis path and the job-status
// polling path separately from everything else.
func rateLimitConfig() middleware.RateLimitConfig {
	return middleware.RateLimitConfig{
		Rules: map[string]middleware.RateLimitRule{
			"ANALYZE": {Rate: 0.5, Burst: 3},
			"POLLING": {Rate: 2, Burst: 10},
		},
		GroupFor: func(c *gin.Context) string {
			path := c.FullPath()
			switch {
			case c.Request.Method == http.MethodPost && path == "/api/v1/analyze":
				return "ANALYZE"
			case strings.HasPrefix(path, "/api/v1/sync"):
				return "POLLING"
			default:
				return ""
			}
		},
	}
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
