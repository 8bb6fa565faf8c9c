package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/hibiken/asynq"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron"

	config "github.com/unipost/unipost-api/configs"
	"github.com/unipost/unipost-api/internal/api/handlers"
	"github.com/unipost/unipost-api/internal/api/middleware"
	job "github.com/unipost/unipost-api/internal/jobs"
	"github.com/unipost/unipost-api/internal/queue"
	"github.com/unipost/unipost-api/internal/repository"
	"github.com/unipost/unipost-api/internal/service"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Failed to load environment variables", err)
	}

	cfg := config.LoadConfig()

	db, err := sql.Open("postgres", cfg.PostgresURI)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer closeDB(db)

	if err := db.Ping(); err != nil {
		log.Fatalf("Database is unreachable: %v", err)
	}

	redisConn := asynq.RedisClientOpt{Addr: cfg.RedisURI}
	client := asynq.NewClient(redisConn)
	defer client.Close()

	app := fiber.New(fiber.Config{
		ReadTimeout:  10 * time.Minute,
		WriteTimeout: 10 * time.Minute,
		BodyLimit:    100 * 1024 * 1024, // 100 MB
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			log.Printf("Error: %v", err)
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOriginsFunc: func(origin string) bool {
			return true
		},
		AllowMethods:     "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: true,
		MaxAge:           3600,
	}))

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	variantRepo := repository.NewVariantRepository(db)
	mediaRepo := repository.NewMediaRepository(db)
	scheduleRepo := repository.NewScheduleRepository(db)
	metricRepo := repository.NewMetricRepository(db)
	socialAccountRepo := repository.NewSocialAccountRepository(db)
	publishHistoryRepo := repository.NewPublishHistoryRepository(db)

	assetsService := service.NewAssetsService(*cfg)
	accountsService := service.NewAccountsService(*cfg, socialAccountRepo)
	postService := service.NewPostService(db, userRepo, postRepo, variantRepo, mediaRepo, scheduleRepo, assetsService)

	blueskyService := service.NewBlueskyService(*cfg)
	instagramService := service.NewInstagramService(*cfg)
	facebookService := service.NewFacebookService(*cfg)
	tiktokService := service.NewTiktokService(*cfg)
	twitterService := service.NewTwitterService(*cfg)

	registry := service.NewAdapterRegistry(
		blueskyService,
		instagramService,
		facebookService,
		tiktokService,
		twitterService,
	)

	publishService := service.NewPublishService(postRepo, variantRepo, mediaRepo, publishHistoryRepo, accountsService, registry)
	metricsService := service.NewMetricsService(userRepo, variantRepo, metricRepo, accountsService,
		blueskyService,
		instagramService,
		facebookService,
		tiktokService,
		twitterService,
	)

	authMiddleware := middleware.NewAuthMiddleware(*cfg)

	api := app.Group("/api")
	api.Use(authMiddleware.AuthMiddleware())

	post := handlers.NewPostHandler(postService, client)
	api.Post("/posts", post.CreatePost)
	api.Get("/posts", post.ListPosts)
	api.Post("/posts/remove", post.RemovePost)

	publish := handlers.NewPublishHandler(publishService)
	api.Post("/publish/variant", publish.PublishVariant)
	api.Post("/publish/post", publish.PublishPost)

	metrics := handlers.NewMetricsHandler(metricsService)
	api.Post("/metrics/refresh", metrics.RefreshMetrics)
	api.Get("/metrics/list", metrics.ListMetrics)

	// cron jobs
	sweepJob := job.NewScheduleSweepJob(scheduleRepo, client)

	// queue
	queueW := queue.NewQueue(postRepo, publishService)

	c := cron.New()
	c.AddFunc("@every 00h05m00s", sweepJob.SweepDuePosts)
	c.Start()

	go func() {
		server := asynq.NewServer(redisConn, asynq.Config{
			Concurrency: 10,
		})

		mux := asynq.NewServeMux()
		mux.HandleFunc(queue.TaskTypePublishPost, queueW.HandlePublishPostTask)

		log.Println("Starting the Asynq server...")
		if err := server.Run(mux); err != nil {
			log.Fatalf("Could not start Asynq server: %v", err)
		}
	}()

	go func() {
		if err := app.Listen(":3000"); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()
	log.Println("Server is running on http://localhost:3000")

	gracefulShutdown(app, db)
}

func closeDB(db *sql.DB) {
	fmt.Fprint(os.Stdout, "Closing database connection... ")
	if err := db.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to close database: %v", err)
		return
	}
	fmt.Fprintln(os.Stdout, "Done")
}

func gracefulShutdown(app *fiber.App, db *sql.DB) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	<-quit
	log.Println("Shutting down server...")

	if err := app.Shutdown(); err != nil {
		log.Fatalf("Failed to shut down server: %v", err)
	}

	closeDB(db)
	log.Println("Server shutdown complete.")
}
