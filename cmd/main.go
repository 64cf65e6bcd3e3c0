package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/podbrah/podbrah-backend/config"
	"github.com/podbrah/podbrah-backend/controllers"
	"github.com/podbrah/podbrah-backend/logger"
	"github.com/podbrah/podbrah-backend/middleware"
	"github.com/podbrah/podbrah-backend/repository"
	"github.com/podbrah/podbrah-backend/routes"
	"github.com/podbrah/podbrah-backend/services"
	"github.com/podbrah/podbrah-backend/utils"
	"github.com/podbrah/podbrah-backend/ws"
)

func main() {
	envErr := godotenv.Load()

	log, err := logger.New(os.Getenv("APP_ENV"))
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Info("no .env file, using process environment")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal("invalid configuration", "error", err)
	}
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := config.InitDB(cfg, log)
	if err != nil {
		log.Fatal("database init failed", "error", err)
	}
	repo := repository.New(db)

	ctx, stop := context.WithCancel(context.Background())
	defer stop()
	deps, cleanup, err := buildServices(ctx, cfg, log)
	if err != nil {
		log.Fatal("service init failed", "error", err)
	}
	defer cleanup()

	var store services.SessionStore
	if cfg.RedisURL == "" {
		memory := services.NewMemorySessionStore(cfg.SessionTTL)
		services.StartSessionCleanup(ctx, memory, cfg.SessionTTL/4, log)
		store = memory
	} else {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			log.Fatal("invalid REDIS_URL", "error", err)
		}
		rdb := redis.NewClient(opts)
		defer rdb.Close()
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Fatal("redis unreachable", "error", err)
		}
		store = services.NewRedisSessionStore(rdb, cfg.SessionTTL)
		log.Info("wizard sessions stored in redis")
	}

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, cfg.TokenTTL)
	hub := ws.NewHub(log)

	var avatars services.AvatarStore
	if cfg.SupabaseURL != "" && cfg.SupabaseKey != "" {
		avatars = services.NewSupabaseAvatarStore(utils.NewSupabaseStorage(cfg.SupabaseURL, cfg.SupabaseKey), cfg.AvatarBucket)
	}
	var mailing services.Subscriber
	if cfg.ActiveCampaignURL != "" {
		mailing = services.NewActiveCampaign(cfg.ActiveCampaignURL, cfg.ActiveCampaignKey)
	}

	ctl := controllers.New(controllers.Controller{
		DB:             db,
		Repo:           repo,
		Completer:      deps.completer,
		Retriever:      services.NewVectorRetriever(db, deps.embedder, cfg.RetrievalThreshold, cfg.RetrievalCount),
		Assistant:      deps.assistant,
		Mailing:        mailing,
		Avatars:        avatars,
		Wizards:        services.NewWizardService(repo, store, deps.completer, services.WizardServiceConfig{Feedback: cfg.WizardFeedback}, log),
		Hub:            hub,
		Tokens:         tokens,
		Log:            log,
		GoogleClientID: cfg.GoogleClientID,
	})

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(log))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Auth-Token"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}
	if len(cfg.CORSOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	} else {
		corsCfg.AllowOrigins = []string{"http://localhost:3000"}
	}
	r.Use(cors.New(corsCfg))

	routes.SetupRouter(r, ctl, ws.NewHandler(hub, tokens, cfg.CORSOrigins))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server listening", "port", cfg.Port, "llm", cfg.LLMProvider, "embeddings", cfg.EmbeddingProvider)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", "error", err)
	}
	log.Info("server stopped")
}
