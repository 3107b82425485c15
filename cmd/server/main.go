package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/config"
	"github.com/coursiva/enroll-gateway/internal/database"
	"github.com/coursiva/enroll-gateway/internal/handler"
	"github.com/coursiva/enroll-gateway/internal/logger"
	"github.com/coursiva/enroll-gateway/internal/quiz"
	"github.com/coursiva/enroll-gateway/internal/router"
	"github.com/coursiva/enroll-gateway/internal/service"
	"github.com/coursiva/enroll-gateway/internal/store"
	"github.com/coursiva/enroll-gateway/internal/upstream"
	"github.com/coursiva/enroll-gateway/internal/validator"
	"github.com/coursiva/enroll-gateway/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("upstream", cfg.UpstreamBaseURL).
		Msg("Starting Enroll Gateway")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Upstream Platform Client + Cache ─────────────────────────────
	client := upstream.New(cfg.UpstreamBaseURL, cfg.UpstreamTimeout, log)
	enrollmentStore := store.New(client, log)

	// ─── Question Pool + Session Registry ─────────────────────────────
	pool := quiz.DefaultPool()
	if cfg.QuestionPoolPath != "" {
		pool, err = quiz.LoadPool(cfg.QuestionPoolPath)
		if err != nil {
			log.Fatal().Err(err).Str("path", cfg.QuestionPoolPath).Msg("Failed to load question pool")
		}
	}
	registry := quiz.NewRegistry(pool, cfg.QuestionsPerTest, log)

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, rdb)
	promotionQueue := worker.NewRedisPromotionQueue(rdb)
	completionService := service.NewCompletionService(client, enrollmentStore, promotionQueue, log)
	enrollmentService := service.NewEnrollmentService(client, enrollmentStore, completionService, log)
	ratingService := service.NewRatingService(client, enrollmentStore, log)
	certificateService := service.NewCertificateService(completionService, rdb, log)

	// Expired clocks complete through the same path as manual submits.
	registry.SetAutoSubmit(func(enrollmentID uuid.UUID, result quiz.ScoreResult) {
		submitCtx, submitCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer submitCancel()

		enrollment, ok := enrollmentStore.Get(enrollmentID)
		if !ok {
			log.Warn().Stringer("enrollment_id", enrollmentID).Msg("Auto-submit for unknown enrollment")
			return
		}
		if _, err := completionService.CompleteAfterTest(submitCtx, enrollment, result); err != nil {
			log.Error().Err(err).Stringer("enrollment_id", enrollmentID).Msg("Auto-submit completion failed")
		}
		registry.Teardown(enrollmentID)
	})

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Student:    handler.NewStudentHandler(enrollmentService, ratingService, certificateService),
		Test:       handler.NewTestHandler(registry, enrollmentService, completionService),
		Instructor: handler.NewInstructorHandler(enrollmentService, completionService, authService),
		WS:         handler.NewWSHandler(registry, enrollmentService, completionService, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())

	promotionWorker := worker.NewPromotionWorker(client, enrollmentStore, rdb, log)
	go promotionWorker.Start(workerCtx)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the promotion worker and give it a moment to finish the
	// in-flight payload.
	workerCancel()
	time.Sleep(2 * time.Second)

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
