package main

import (
	"context"
	"log"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/yoockh/yoobuddy/config"
	"github.com/yoockh/yoobuddy/internal/api/handlers"
	"github.com/yoockh/yoobuddy/internal/api/middleware"
	"github.com/yoockh/yoobuddy/internal/api/routes"
	"github.com/yoockh/yoobuddy/internal/cache"
	"github.com/yoockh/yoobuddy/internal/logger"
	"github.com/yoockh/yoobuddy/internal/models"
	"github.com/yoockh/yoobuddy/internal/pipeline"
	"github.com/yoockh/yoobuddy/internal/providers/embed"
	"github.com/yoockh/yoobuddy/internal/providers/reasoning"
	"github.com/yoockh/yoobuddy/internal/providers/voice"
	"github.com/yoockh/yoobuddy/internal/registry"
	mongorepo "github.com/yoockh/yoobuddy/internal/repositories/mongo"
	pgrepo "github.com/yoockh/yoobuddy/internal/repositories/postgres"
	"github.com/yoockh/yoobuddy/internal/services"
	"github.com/yoockh/yoobuddy/internal/storage"
	"github.com/yoockh/yoobuddy/internal/workers"
)

func main() {
	_ = godotenv.Load()

	l := logger.New()
	ctx := context.Background()

	// Init PostgreSQL (facts, events, accounts)
	if err := config.InitPostgres(); err != nil {
		log.Fatalf("PostgreSQL init error: %v", err)
	}
	l.Info("PostgreSQL connected")
	if err := config.PostgresDB.AutoMigrate(&models.UserDetail{}, &models.UserKnowledge{}, &models.Event{}); err != nil {
		log.Fatalf("PostgreSQL migration error: %v", err)
	}

	// Init Redis (profile cache)
	if err := config.InitRedis(); err != nil {
		log.Fatalf("Redis init error: %v", err)
	}
	l.Info("Redis connected")

	// Init MongoDB (utterance archive, connection log)
	if err := config.InitMongo(); err != nil {
		log.Fatalf("MongoDB init error: %v", err)
	}
	if err := config.EnsureMongoIndexes(); err != nil {
		log.Fatalf("MongoDB index error: %v", err)
	}
	l.Info("MongoDB connected")

	mongoDBName := os.Getenv("MONGO_DB")
	if mongoDBName == "" {
		mongoDBName = "yoobuddy"
	}
	mongoDB := config.MongoClient.Database(mongoDBName)

	// Providers
	llm, err := reasoning.NewVertexGemini(ctx,
		os.Getenv("GCP_PROJECT_ID"),
		os.Getenv("GCP_LOCATION"),
		os.Getenv("REASONING_MODEL"),
	)
	if err != nil {
		log.Fatalf("reasoning provider init error: %v", err)
	}
	defer llm.Close()

	voices, err := voice.NewGoogleSpeechFactory(ctx)
	if err != nil {
		log.Fatalf("voice provider init error: %v", err)
	}
	defer voices.Close()

	var embedder embed.Embedder
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		embedder = embed.NewOpenAI(key, os.Getenv("OPENAI_BASE_URL"))
	} else {
		l.Warn("OPENAI_API_KEY not set; knowledge retrieval degrades to recency ordering")
	}

	var uploader storage.Uploader
	if bucket := os.Getenv("GCS_BUCKET"); bucket != "" {
		gcs, err := storage.NewGCSUploader(ctx, bucket)
		if err != nil {
			log.Fatalf("GCS init error: %v", err)
		}
		defer gcs.Close()
		uploader = gcs
	}

	// Repositories and services
	userRepo := pgrepo.NewUserRepo(config.PostgresDB)
	knowledgeRepo := pgrepo.NewKnowledgeRepo(config.PostgresDB)
	eventRepo := pgrepo.NewEventRepo(config.PostgresDB)
	utteranceRepo := mongorepo.NewUtteranceRepo(mongoDB)
	socketRepo := mongorepo.NewSocketSessionRepo(mongoDB)

	var backfill services.EmbedQueue
	if embedder != nil {
		queue := workers.NewQueue(config.RedisClient)
		backfill = queue

		pool := &workers.EmbedWorkerPool{
			Redis:     config.RedisClient,
			Knowledge: knowledgeRepo,
			Embedder:  embedder,
			Logger:    l,
		}
		if err := pool.Start(ctx); err != nil {
			log.Fatalf("embed worker init error: %v", err)
		}
	}

	userSvc := services.NewUserService(userRepo)
	profileSvc := services.NewProfileService(userRepo, cache.NewRedisCache(config.RedisClient))
	memorySvc := services.NewMemoryService(knowledgeRepo, eventRepo, embedder, backfill)
	logSvc := services.NewSessionLogService(socketRepo, utteranceRepo, 30*24*time.Hour)

	// Session coordination
	reg := registry.New(l)
	driver := pipeline.NewDriver(llm, memorySvc, l)
	injector := pipeline.NewInjector(memorySvc, reg, l)

	// HTTP + WS
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger(l))

	routes.RegisterRoutes(r, routes.Deps{
		Auth:      handlers.NewAuthHandler(userSvc),
		Memory:    handlers.NewMemoryHandler(memorySvc, logSvc),
		AudioWS:   handlers.NewAudioWSHandler(reg, voices, llm, driver, profileSvc, logSvc, uploader, l),
		Cognition: handlers.NewCognitionWSHandler(reg, driver, injector, profileSvc, logSvc, l),
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	if err := r.Run(":" + port); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
