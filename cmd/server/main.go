package main

import (
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quizlevel/quiz-service/internal/auth"
	"github.com/quizlevel/quiz-service/internal/bank"
	"github.com/quizlevel/quiz-service/internal/config"
	"github.com/quizlevel/quiz-service/internal/handlers"
	"github.com/quizlevel/quiz-service/internal/repositories/postgres"
	"github.com/quizlevel/quiz-service/internal/services"
	"github.com/quizlevel/quiz-service/internal/session"
	"github.com/quizlevel/quiz-service/internal/utils"
	"github.com/quizlevel/quiz-service/internal/validator"
	"github.com/quizlevel/quiz-service/pkg"
	"github.com/rs/cors"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var logger utils.Logger
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logger = utils.NewDefaultLogger()
	} else {
		logger = utils.NewDevelopmentLogger()
	}
	slogger := utils.ToSlogLogger(logger)

	// Database
	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	// Redis session store
	redisClient, err := pkg.NewRedisClient(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to redis: %v", err)
	}
	defer redisClient.Close()
	sessions := session.NewRedisStore(redisClient, session.DefaultTTL)

	// Question bank
	v := validator.New()
	questionBank := bank.New(cfg.QuestionBankPath, v, slogger)
	if err := questionBank.Load(); err != nil {
		log.Fatalf("Failed to load question bank: %v", err)
	}

	// Event publisher
	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		log.Fatalf("Failed to create event publisher: %v", err)
	}
	defer publisher.Close()

	// Services
	repo := postgres.NewRepository(db)
	quizService := services.NewQuizService(repo, questionBank, sessions, publisher, slogger, v, cfg.RefreshGuard)
	attemptService := services.NewAttemptService(repo, questionBank, slogger)

	// Router
	router := gin.New()
	router.Use(utils.LoggerMiddleware(logger))
	router.Use(gin.Recovery())

	verifier := auth.NewVerifier(cfg, logger)
	handlerManager := handlers.NewHandlerManager(quizService, attemptService, questionBank, verifier, logger)
	handlerManager.SetupRoutes(router)

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type", handlers.SessionHeader},
		ExposedHeaders:   []string{handlers.SessionHeader},
		AllowCredentials: true,
	})

	logger.Info("Starting quiz service",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"questions", questionBank.Size())

	if err := http.ListenAndServe(":"+cfg.Port, c.Handler(router)); err != nil {
		log.Fatalf("Server stopped: %v", err)
	}
}
