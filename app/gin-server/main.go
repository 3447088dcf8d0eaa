package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/jobhunt/config"
	"github.com/yoockh/jobhunt/internal/api/handlers"
	"github.com/yoockh/jobhunt/internal/api/middleware"
	"github.com/yoockh/jobhunt/internal/api/routes"
	"github.com/yoockh/jobhunt/internal/cache"
	"github.com/yoockh/jobhunt/internal/logger"
	"github.com/yoockh/jobhunt/internal/notify"
	"github.com/yoockh/jobhunt/internal/providers/llm"
	"github.com/yoockh/jobhunt/internal/providers/scraper"
	mongorepo "github.com/yoockh/jobhunt/internal/repositories/mongo"
	pgrepo "github.com/yoockh/jobhunt/internal/repositories/postgres"
	"github.com/yoockh/jobhunt/internal/services"
	"github.com/yoockh/jobhunt/internal/storage"
	"github.com/yoockh/jobhunt/internal/workers"
)

// Searches still pending this long after the poll ceiling are considered lost.
const janitorSlack = 10 * time.Minute

func main() {
	_ = godotenv.Load()

	log := logger.New()

	cfg, err := config.LoadSettings()
	if err != nil {
		log.WithError(err).Fatal("invalid configuration")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Init PostgreSQL
	if err := config.InitPostgres(); err != nil {
		log.WithError(err).Fatal("PostgreSQL init error")
	}
	log.Info("PostgreSQL connected")

	// Init Redis
	if err := config.InitRedis(); err != nil {
		log.WithError(err).Fatal("Redis init error")
	}
	log.Info("Redis connected")

	// Init MongoDB (optional event log)
	var eventRepo mongorepo.EventRepository
	switch err := config.InitMongo(); {
	case errors.Is(err, config.ErrMongoDisabled):
		log.Warn("MONGO_URI not set; pipeline events are not stored")
	case err != nil:
		log.WithError(err).Fatal("MongoDB init error")
	default:
		if err := config.EnsureMongoIndexes(); err != nil {
			log.WithError(err).Warn("failed to ensure mongo indexes")
		}
		eventRepo = mongorepo.NewEventRepo(config.MongoClient.Database(config.MongoDatabaseName()), config.PipelineEventsCollection)
		log.Info("MongoDB connected")
	}

	provider, err := llm.NewVertexGemini(ctx, cfg.LLMProjectID, cfg.LLMLocation, cfg.LLMModel)
	if err != nil {
		log.WithError(err).Fatal("Vertex AI init error")
	}
	defer provider.Close()

	var archive storage.Uploader
	if cfg.ResultsArchiveBucket != "" {
		gcsUp, err := storage.NewGCSUploader(ctx, cfg.ResultsArchiveBucket)
		if err != nil {
			log.WithError(err).Fatal("GCS init error")
		}
		defer gcsUp.Close()
		archive = gcsUp
	}

	searchRepo := pgrepo.NewSearchRepo(config.PostgresDB)
	resultRepo := pgrepo.NewResultRepo(config.PostgresDB)
	redisCache := cache.NewRedisCache(config.RedisClient, "jobhunt:")
	notifier := notify.NewRedisNotifier(config.RedisClient)
	scraperClient := scraper.NewHTTPClient(cfg.ScraperURL, cfg.ScraperTimeout)

	eventSvc := services.NewEventService(eventRepo, cfg.EventsTTL)
	resultSvc := services.NewResultService(searchRepo, resultRepo, log)
	scoringSvc := services.NewScoringService(provider, cfg.ScoringConcurrency, log)
	analyticsSvc := services.NewAnalyticsService(searchRepo, resultRepo, redisCache, time.Minute)

	pipeline := &workers.Pipeline{
		Scraper: scraperClient,
		Poller: &workers.Poller{
			Scraper:     scraperClient,
			Interval:    cfg.PollInterval,
			MaxAttempts: cfg.PollMaxAttempts,
		},
		Scoring:  scoringSvc,
		Results:  resultSvc,
		Searches: searchRepo,
		Events:   eventSvc,
		Notifier: notifier,
		Archive:  archive,
		Cache:    redisCache,
		Logger:   log,
	}

	var (
		dispatcher services.PipelineDispatcher
		inProcess  *workers.GoroutineDispatcher
		pool       *workers.PipelineWorkerPool
	)
	switch cfg.PipelineDispatch {
	case config.DispatchStream:
		pool = &workers.PipelineWorkerPool{
			Redis:       config.RedisClient,
			Runner:      pipeline,
			NumWorkers:  cfg.PipelineWorkers,
			Logger:      log,
			ReclaimIdle: cfg.PollCeiling() + janitorSlack,
		}
		if err := pool.Start(ctx); err != nil {
			log.WithError(err).Fatal("pipeline worker pool start error")
		}
		dispatcher = workers.NewStreamDispatcher(config.RedisClient, workers.DefaultPipelineStream)
	default:
		inProcess = workers.NewGoroutineDispatcher(ctx, pipeline, log)
		dispatcher = inProcess
	}
	log.WithField("dispatch", cfg.PipelineDispatch).Info("search pipeline ready")

	searchSvc := services.NewSearchService(services.SearchServiceDeps{
		Searches:   searchRepo,
		Scraper:    scraperClient,
		Dispatcher: dispatcher,
		Events:     eventSvc,
		Cache:      redisCache,
		StatusTTL:  cfg.StatusCacheTTL,
		Logger:     log,
	})

	janitor := workers.NewJanitor(searchRepo, cfg.PollCeiling()+janitorSlack, cfg.JanitorSchedule, log)
	if err := janitor.Start(ctx); err != nil {
		log.WithError(err).Fatal("janitor start error")
	}
	defer janitor.Stop()

	if os.Getenv("GIN_MODE") == "" {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log, "/ping"))

	routes.RegisterRoutes(r, routes.Deps{
		Search:    handlers.NewSearchHandler(searchSvc, resultSvc, eventSvc),
		Analytics: handlers.NewAnalyticsHandler(analyticsSvc),
		Admin:     handlers.NewAdminHandler(janitor),
		WS:        handlers.NewWSHandler(searchSvc, config.RedisClient, cfg.AllowedOrigins),
		JWT: middleware.JWTConfig{
			Secret:   cfg.JWTSecret,
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.WithField("port", cfg.Port).Info("http server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("http server error")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Warn("http server shutdown error")
	}
	if inProcess != nil {
		if err := inProcess.Wait(shutdownCtx); err != nil {
			log.WithError(err).Warn("background pipelines still running at exit")
		}
	}
	if pool != nil {
		// unfinished entries stay pending and are resumed on the next start
		if err := pool.Wait(shutdownCtx); err != nil {
			log.WithError(err).Warn("pipeline consumers still running at exit")
		}
	}
	if err := config.CloseMongo(shutdownCtx); err != nil {
		log.WithError(err).Warn("mongo disconnect error")
	}
	_ = config.RedisClient.Close()
}
