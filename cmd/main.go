package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sharkteam/plantcloud-backend/internal/clients/redis"
	"github.com/sharkteam/plantcloud-backend/internal/clients/telemetry"
	"github.com/sharkteam/plantcloud-backend/internal/db"
	"github.com/sharkteam/plantcloud-backend/internal/gamification"
	"github.com/sharkteam/plantcloud-backend/internal/handlers"
	"github.com/sharkteam/plantcloud-backend/internal/jobs"
	"github.com/sharkteam/plantcloud-backend/internal/logger"
	"github.com/sharkteam/plantcloud-backend/internal/middleware"
	"github.com/sharkteam/plantcloud-backend/internal/observability"
	"github.com/sharkteam/plantcloud-backend/internal/platform/openai"
	"github.com/sharkteam/plantcloud-backend/internal/rag"
	"github.com/sharkteam/plantcloud-backend/internal/repos"
	"github.com/sharkteam/plantcloud-backend/internal/server"
	"github.com/sharkteam/plantcloud-backend/internal/services"
	"github.com/sharkteam/plantcloud-backend/internal/utils"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	accessTokenTTL := utils.GetEnvAsInt("ACCESS_TOKEN_TTL", 3600, log)
	refreshTokenTTL := utils.GetEnvAsInt("REFRESH_TOKEN_TTL", 86400, log)
	port := utils.GetEnv("PORT", "8080", log)
	seedDir := utils.GetEnv("ARTICLE_SEED_DIR", "", log)
	challengesPath := utils.GetEnv("CHALLENGES_YAML_PATH", "", log)
	forcedChallenge := utils.GetEnvAsInt("FORCED_CHALLENGE_ID", 0, log)

	// Tracing
	ctx := context.Background()
	shutdownOTel := observability.InitOTel(ctx, log, observability.OtelConfig{
		ServiceName: "plantcloud-backend",
		Environment: utils.GetEnv("APP_ENV", "development", log),
		Version:     utils.GetEnv("APP_VERSION", "dev", log),
	})
	if shutdownOTel != nil {
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdownOTel(shutdownCtx)
		}()
	}

	// Challenge configuration
	if err := gamification.LoadChallengesFromYAML(challengesPath); err != nil {
		log.Warn("Challenge config not loaded, using defaults", "error", err)
	}
	gamification.SetChallengeMode(forcedChallenge)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Fatal("Postgres init failed", "error", err)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Fatal("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	userRepo := repos.NewUserRepo(thePG, log)
	userTokenRepo := repos.NewUserTokenRepo(thePG, log)
	plantRepo := repos.NewPlantRepo(thePG, log)
	sensorRepo := repos.NewSensorRepo(thePG, log)
	actionLogRepo := repos.NewActionLogRepo(thePG, log)
	articleRepo := repos.NewArticleRepo(thePG, log)
	indexEntryRepo := repos.NewIndexEntryRepo(thePG, log)

	// External clients
	telemetryClient := telemetry.NewClient(log)
	plantCache, err := redis.NewPlantCache(log)
	if err != nil {
		log.Warn("Plant cache unavailable, running without it", "error", err)
		plantCache = nil
	}
	aiClient, err := openai.NewClient(log)
	if err != nil {
		log.Warn("Generative client unavailable, running with fallbacks", "error", err)
		aiClient = nil
	}

	// Retrieval stack
	vectorStore, storeName := rag.ResolveVectorStore(log)
	embedder, embedderName := rag.ResolveEmbedder(log, aiClient)
	generator, generatorName := rag.ResolveGenerator(log, aiClient)
	log.Info("Retrieval providers resolved",
		"vector_store", storeName,
		"embedder", embedderName,
		"generator", generatorName,
	)
	engine := rag.NewEngine(log, articleRepo, embedder, vectorStore, generator)

	// Services
	log.Info("Setting up Services from main...")
	sensorService := services.NewSensorService(thePG, log, sensorRepo, plantRepo, telemetryClient)
	scoringService := services.NewScoringService(thePG, log, userRepo, plantRepo, actionLogRepo, sensorService)
	authService := services.NewAuthService(
		thePG, log, userRepo, userTokenRepo, scoringService, plantCache,
		jwtSecretKey,
		time.Duration(accessTokenTTL)*time.Second,
		time.Duration(refreshTokenTTL)*time.Second,
	)
	var bucketService services.BucketService
	if bs, bErr := services.NewBucketService(log); bErr != nil {
		log.Warn("Bucket storage unavailable, image upload disabled", "error", bErr)
	} else {
		bucketService = bs
	}
	var plantImageService services.PlantImageService
	if pis, pErr := services.NewPlantImageService(log); pErr != nil {
		log.Warn("Placeholder images unavailable", "error", pErr)
	} else {
		plantImageService = pis
	}
	plantService := services.NewPlantService(thePG, log, plantRepo, scoringService, aiClient, plantCache, bucketService, plantImageService)
	knowledgeService := services.NewKnowledgeService(thePG, log, articleRepo, indexEntryRepo)
	vacationService := services.NewVacationService(thePG, log, plantRepo, sensorRepo, aiClient)

	// Seed articles and build the index; failures are not fatal.
	if seedDir != "" {
		if added, sErr := knowledgeService.SeedFromDir(ctx, seedDir); sErr != nil {
			log.Warn("Article seeding failed", "error", sErr)
		} else if added > 0 {
			if _, iErr := knowledgeService.BuildIndex(ctx, false); iErr != nil {
				log.Warn("Index build failed", "error", iErr)
			}
		}
	}

	// Handlers
	log.Info("Setting up Handlers from main...")
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(scoringService)
	plantHandler := handlers.NewPlantHandler(plantService)
	sensorHandler := handlers.NewSensorHandler(sensorService)
	searchHandler := handlers.NewSearchHandler(knowledgeService, engine, scoringService)
	vacationHandler := handlers.NewVacationHandler(vacationService)
	authMiddleware := middleware.NewAuthMiddleware(log, authService)

	// Background telemetry sweep
	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	sweep := jobs.NewTelemetrySweep(log, plantRepo, sensorService)
	go sweep.Start(sweepCtx)

	// Router
	router := server.NewRouter(server.RouterConfig{
		AuthHandler:     authHandler,
		AuthMiddleware:  authMiddleware,
		UserHandler:     userHandler,
		PlantHandler:    plantHandler,
		SensorHandler:   sensorHandler,
		SearchHandler:   searchHandler,
		VacationHandler: vacationHandler,
		TracingEnabled:  observability.Enabled(),
	})

	log.Info("Starting server", "port", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatal("Server stopped", "error", err)
	}
}
