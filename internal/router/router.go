package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/coursiva/enroll-gateway/internal/config"
	"github.com/coursiva/enroll-gateway/internal/handler"
	"github.com/coursiva/enroll-gateway/internal/middleware"
	"github.com/coursiva/enroll-gateway/internal/response"
	"github.com/coursiva/enroll-gateway/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Student    *handler.StudentHandler
	Test       *handler.TestHandler
	Instructor *handler.InstructorHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for endpoints that fan out to the platform or render
	// PDFs (20 requests per minute per IP).
	heavyLimiter := middleware.NewRateLimiter(20, time.Minute)

	// ─── 1. Student Group (JWT + Single Device) ────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(
		middleware.RequireStudentJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		studentAPI.GET("/enrollments", handlers.Student.ListEnrollments)
		studentAPI.POST("/enrollments", heavyLimiter.Middleware(), handlers.Student.Enroll)
		studentAPI.DELETE("/enrollments/:enrollment_id", handlers.Student.Unenroll)

		studentAPI.POST("/enrollments/:enrollment_id/rating", handlers.Student.RateCourse)
		studentAPI.GET("/enrollments/:enrollment_id/certificate/eligibility", handlers.Student.CertificateEligibility)
		studentAPI.GET("/enrollments/:enrollment_id/certificate", heavyLimiter.Middleware(), handlers.Student.DownloadCertificate)

		studentAPI.POST("/enrollments/:enrollment_id/test", handlers.Test.StartTest)
		studentAPI.GET("/enrollments/:enrollment_id/test", handlers.Test.GetState)
		studentAPI.DELETE("/enrollments/:enrollment_id/test", handlers.Test.AbandonTest)
		studentAPI.POST("/enrollments/:enrollment_id/test/answers", handlers.Test.Answer)
		studentAPI.POST("/enrollments/:enrollment_id/test/submit", handlers.Test.SubmitTest)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/enrollments/:enrollment_id/test", handlers.WS.TestStream)
	}

	// ─── 3. Instructor Group (JWT) ─────────────────────────────────────
	instructorAPI := router.Group("/api/v1/instructor")
	instructorAPI.Use(middleware.RequireInstructorJWT(authService))
	{
		instructorAPI.GET("/courses/:course_id/enrollments", handlers.Instructor.Roster)
		instructorAPI.PUT("/enrollments/:enrollment_id/complete", handlers.Instructor.MarkComplete)
		instructorAPI.POST("/students/:student_id/session/reset", handlers.Instructor.ResetStudentSession)
	}

	return router
}
