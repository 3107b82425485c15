package main

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/coursiva/enroll-gateway/internal/config"
	"github.com/coursiva/enroll-gateway/internal/logger"
	"github.com/coursiva/enroll-gateway/internal/model"
)

// stub-upstream is an in-memory stand-in for the course platform API,
// good enough for local development and the e2e suite. Every course id is
// valid: unknown ids are materialized on first read.
type platform struct {
	mu          sync.Mutex
	courses     map[uuid.UUID]*model.Course
	enrollments map[uuid.UUID]*model.Enrollment
	ratings     map[uuid.UUID][]model.Rating
	testResults map[uuid.UUID][]model.TestResult
}

func newPlatform() *platform {
	return &platform{
		courses:     make(map[uuid.UUID]*model.Course),
		enrollments: make(map[uuid.UUID]*model.Enrollment),
		ratings:     make(map[uuid.UUID][]model.Rating),
		testResults: make(map[uuid.UUID][]model.TestResult),
	}
}

func (p *platform) courseLocked(id uuid.UUID) *model.Course {
	c, ok := p.courses[id]
	if !ok {
		c = &model.Course{
			ID:             id,
			Title:          "Stub Course " + id.String()[:8],
			Category:       model.CategoryBackend,
			Price:          49.99,
			InstructorID:   uuid.New(),
			InstructorName: "Stub Instructor",
		}
		p.courses[id] = c
	}
	return c
}

func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)

	p := newPlatform()

	gin.SetMode(gin.ReleaseMode)
	r := gin.Default()
	api := r.Group("/api")

	api.GET("/courses/:id", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		p.mu.Lock()
		course := *p.courseLocked(id)
		p.mu.Unlock()
		c.JSON(http.StatusOK, course)
	})

	api.POST("/enrollments/enroll", func(c *gin.Context) {
		var req struct {
			StudentID uuid.UUID `json:"studentId"`
			CourseID  uuid.UUID `json:"courseId"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		for _, e := range p.enrollments {
			if e.StudentID == req.StudentID && e.CourseID == req.CourseID {
				c.JSON(http.StatusConflict, gin.H{"error": "already enrolled"})
				return
			}
		}
		p.courseLocked(req.CourseID)
		e := &model.Enrollment{
			EnrollmentID:   uuid.New(),
			StudentID:      req.StudentID,
			CourseID:       req.CourseID,
			EnrollmentDate: time.Now(),
		}
		p.enrollments[e.EnrollmentID] = e
		c.JSON(http.StatusCreated, e)
	})

	api.GET("/enrollments/student/:student_id", func(c *gin.Context) {
		studentID, err := uuid.Parse(c.Param("student_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		p.mu.Lock()
		out := make([]model.Enrollment, 0)
		for _, e := range p.enrollments {
			if e.StudentID == studentID {
				out = append(out, *e)
			}
		}
		p.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})

	api.GET("/enrollments/course/:course_id", func(c *gin.Context) {
		courseID, err := uuid.Parse(c.Param("course_id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		p.mu.Lock()
		out := make([]model.Enrollment, 0)
		for _, e := range p.enrollments {
			if e.CourseID == courseID {
				out = append(out, *e)
			}
		}
		p.mu.Unlock()
		c.JSON(http.StatusOK, out)
	})

	api.PUT("/enrollments/:id/complete", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		var req model.CompleteRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		e, ok := p.enrollments[id]
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		if req.Completed != nil {
			e.Completed = *req.Completed
		}
		if req.CompletionDate != nil {
			e.CompletionDate = req.CompletionDate
		}
		if req.TestScore != nil {
			e.TestScore = req.TestScore
		}
		if req.TotalQuestions != nil {
			e.TotalQuestions = req.TotalQuestions
		}
		if req.Percentage != nil {
			e.Percentage = req.Percentage
		}
		if req.Passed != nil {
			e.Passed = req.Passed
		}
		if req.Rating != nil {
			e.Rating = req.Rating
		}
		if req.Feedback != nil {
			e.Feedback = req.Feedback
		}
		c.JSON(http.StatusOK, e)
	})

	api.DELETE("/enrollments/:id", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		p.mu.Lock()
		_, ok := p.enrollments[id]
		delete(p.enrollments, id)
		p.mu.Unlock()
		if !ok {
			c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
			return
		}
		c.Status(http.StatusNoContent)
	})

	api.POST("/ratings", func(c *gin.Context) {
		var req struct {
			StudentID uuid.UUID `json:"studentId"`
			CourseID  uuid.UUID `json:"courseId"`
			Stars     int       `json:"stars"`
			Comment   string    `json:"comment"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		p.mu.Lock()
		defer p.mu.Unlock()
		rating := model.Rating{
			ID:        uuid.New(),
			StudentID: req.StudentID,
			CourseID:  req.CourseID,
			Stars:     req.Stars,
			Comment:   req.Comment,
			CreatedAt: time.Now(),
		}
		p.ratings[req.CourseID] = append(p.ratings[req.CourseID], rating)

		// Recompute the aggregate the way the real platform does.
		course := p.courseLocked(req.CourseID)
		total := 0
		for _, r := range p.ratings[req.CourseID] {
			total += r.Stars
		}
		count := len(p.ratings[req.CourseID])
		course.Rating = model.CourseRating{
			Mean:  float64(total) / float64(count),
			Count: count,
		}
		c.JSON(http.StatusCreated, rating)
	})

	api.POST("/test-results", func(c *gin.Context) {
		var tr model.TestResult
		if err := c.ShouldBindJSON(&tr); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		p.mu.Lock()
		p.testResults[tr.EnrollmentID] = append(p.testResults[tr.EnrollmentID], tr)
		p.mu.Unlock()
		c.JSON(http.StatusCreated, tr)
	})

	api.GET("/test-results/enrollment/:id", func(c *gin.Context) {
		id, err := uuid.Parse(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid id"})
			return
		}
		p.mu.Lock()
		results := p.testResults[id]
		p.mu.Unlock()
		if len(results) == 0 {
			c.JSON(http.StatusOK, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "testResult": results[len(results)-1]})
	})

	addr := ":3000"
	log.Info().Str("addr", addr).Msg("Stub platform listening")
	if err := r.Run(addr); err != nil {
		log.Fatal().Err(err).Msg("Stub platform failed")
	}
}
