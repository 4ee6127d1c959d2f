package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"ourtextscores/config"
	"ourtextscores/database"
	adminapi "ourtextscores/internal/api/admin"
	sourcesapi "ourtextscores/internal/api/sources"
	worksapi "ourtextscores/internal/api/works"
	routes "ourtextscores/internal/app/http"
	"ourtextscores/internal/catalog"
	"ourtextscores/internal/infra/blob"
	"ourtextscores/internal/infra/fossil"
	"ourtextscores/internal/infra/imslp"
	"ourtextscores/internal/infra/notify"
	"ourtextscores/internal/infra/persistence/gormstore"
	"ourtextscores/internal/infra/pipeline"
	"ourtextscores/internal/infra/search"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

func main() {
	// gin.SetMode(gin.ReleaseMode) uncomment only in production
	config.LoadEnv()
	database.InitDB()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	objects, err := blob.OpenFromEnv(context.Background())
	if err != nil {
		log.Fatal("Failed to open blob store:", err)
	}

	var fossilClient catalog.FossilClient = fossil.NewStub()
	if config.FOSSIL_BRIDGE_URL != "" {
		fossilClient = fossil.NewHTTP(config.FOSSIL_BRIDGE_URL)
	}

	var indexer catalog.SearchIndexer = search.Noop{}
	if config.SEARCH_INDEX_URL != "" {
		indexer = search.NewHTTP(config.SEARCH_INDEX_URL)
	}

	var validator pipeline.Validator = pipeline.AcceptAll{}
	if config.LINEARIZE_CMD != "" {
		validator = &pipeline.ExecValidator{Command: config.LINEARIZE_CMD}
	}

	svc := catalog.NewService(catalog.Deps{
		Repos:   gormstore.New(database.DB).Repositories(),
		Objects: objects,
		Fossil:  fossilClient,
		Search:  indexer,
		Notify:  notify.NewLog(logger),
		Logger:  logger,
		Bucket:  config.BLOB_BUCKET,
	})

	worksapi.Init(svc)
	sourcesapi.Init(svc, validator)
	adminapi.Init(svc, imslp.New())

	r := gin.Default()

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{config.CORS_ORIGIN},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	routes.RegisterRoutes(r)

	r.Run(":" + config.PORT)
}
