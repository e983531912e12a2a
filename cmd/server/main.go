package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/songsmith/api/internal/client"
	"github.com/songsmith/api/internal/config"
	"github.com/songsmith/api/internal/handler"
	"github.com/songsmith/api/internal/middleware"
	"github.com/songsmith/api/internal/service"
	"github.com/songsmith/api/internal/store"
	"github.com/songsmith/api/internal/worker"
	ws "github.com/songsmith/api/internal/websocket"
)

const webhookPath = "/webhooks/replicate"

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()

	// Record store
	st, err := store.New(cfg.Database.Type, cfg.Database.Conn, cfg.Server.Env == "development")
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	if err := st.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Redis client (rate limiting + asynq broker)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// External clients
	replicateClient := client.NewReplicateClient(&cfg.Replicate)
	if !replicateClient.IsConfigured() {
		log.Printf("Warning: compute provider not configured, submissions will fail")
	}
	spotifyClient := client.NewSpotifyClient(&cfg.Spotify)

	var storageClient client.StorageClient
	r2Client, err := client.NewR2Client(&cfg.R2)
	if err != nil {
		// Fail closed: completions will mark tracks failed rather than
		// fabricate artifact URLs.
		log.Printf("Warning: object storage not configured: %v", err)
	} else {
		storageClient = r2Client
	}

	// Validator
	validate := validator.New()

	// WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Services
	trackService := service.NewTrackService(st, asynqClient)
	callbackService := service.NewCallbackService(st, storageClient, hub)

	// Handlers
	trackHandler := handler.NewTrackHandler(trackService, validate)
	webhookHandler := handler.NewWebhookHandler(callbackService, cfg.Replicate.WebhookSecret)
	searchHandler := handler.NewSearchHandler(spotifyClient)

	// Middleware
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    10 * 1024 * 1024, // 10MB
	})

	app.Use(recover.New())
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${status} - ${latency} ${method} ${path}\n",
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// API routes
	api := app.Group("/api")

	tracks := api.Group("/tracks")
	tracks.Post("/generate", rateLimiter.GenerateLimit(cfg.RateLimit.GeneratePerHour), trackHandler.Generate)
	tracks.Get("/", trackHandler.ListRecent)
	tracks.Post("/updates/:updateId/seen", trackHandler.MarkUpdateSeen)
	tracks.Get("/:id", trackHandler.Get)
	tracks.Get("/:id/updates", trackHandler.ListUpdates)

	search := api.Group("/search", rateLimiter.SearchLimit(cfg.RateLimit.SearchPerMin))
	search.Get("/", searchHandler.Search)
	search.Get("/tracks/:id", searchHandler.TrackDetails)

	// Provider callback, authenticated by HMAC over the raw body
	app.Post(webhookPath, webhookHandler.ProviderCallback)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws/tracks/:id", websocket.New(func(c *websocket.Conn) {
		hub.HandleConnection(c, c.Params("id"))
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, st, replicateClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(cfg *config.Config, st *store.Store, generator client.MusicGenerator, hub *ws.Hub) {
	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			Concurrency: 10,
			Queues: map[string]int{
				"generation": 10,
			},
		},
	)

	submitWorker := worker.NewSubmitWorker(st, generator, hub, cfg.Server.ApiDomain+webhookPath)

	mux := asynq.NewServeMux()
	mux.HandleFunc(service.TaskTypeSubmit, submitWorker.ProcessTask)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
