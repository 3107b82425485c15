package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/certificate"
	"github.com/coursiva/enroll-gateway/internal/config"
	"github.com/coursiva/enroll-gateway/internal/model"
)

// ErrNotEligible is returned when a certificate is requested for an
// enrollment that is not completed with an explicit passing test result.
var ErrNotEligible = errors.New("not eligible for a certificate")

// CertificateService decides eligibility and renders the downloadable
// completion certificate.
type CertificateService struct {
	completion *CompletionService
	rdb        *redis.Client
	log        zerolog.Logger
}

// NewCertificateService creates a new CertificateService. rdb may be nil;
// certificate serials are then freshly generated per download.
func NewCertificateService(completion *CompletionService, rdb *redis.Client, log zerolog.Logger) *CertificateService {
	return &CertificateService{
		completion: completion,
		rdb:        rdb,
		log:        log.With().Str("component", "certificate_service").Logger(),
	}
}

// IsEligible is the pure certificate predicate: the enrollment must be
// completed AND carry an explicit passing test outcome. A course marked
// complete by an instructor without any test stays ineligible — the
// strict default.
func IsEligible(e model.Enrollment) bool {
	return e.Completed && e.HasPassed()
}

// Render produces the certificate PDF for an eligible enrollment. Before
// rejecting, it gives the self-heal promotion one chance: a passing test
// result whose completion step failed earlier may still earn the
// certificate on this very request.
func (s *CertificateService) Render(ctx context.Context, e model.Enrollment, studentName string) ([]byte, error) {
	d, err := s.details(ctx, e, studentName)
	if err != nil {
		return nil, err
	}
	return certificate.Render(d)
}

// details resolves eligibility and collects what the certificate prints.
func (s *CertificateService) details(ctx context.Context, e model.Enrollment, studentName string) (certificate.Details, error) {
	if !IsEligible(e) {
		promoted, err := s.completion.PromoteIfEligible(ctx, e)
		if err != nil || promoted == nil {
			return certificate.Details{}, ErrNotEligible
		}
		// The score printed on the certificate comes from the promoted
		// record, not the stale snapshot. The course stays local: the
		// platform's enrollment record is not enriched.
		e.Completed = true
		e.CompletionDate = promoted.CompletionDate
		e.TestScore = promoted.TestScore
		e.TotalQuestions = promoted.TotalQuestions
		e.Percentage = promoted.Percentage
		e.Passed = promoted.Passed
		if e.CompletionDate == nil {
			now := time.Now()
			e.CompletionDate = &now
		}
	}

	courseTitle := model.PlaceholderCourseTitle
	if e.Course != nil {
		courseTitle = e.Course.Title
	}
	percentage := 0
	if e.Percentage != nil {
		percentage = *e.Percentage
	}
	completedAt := time.Now()
	if e.CompletionDate != nil {
		completedAt = *e.CompletionDate
	}

	return certificate.Details{
		StudentName: studentName,
		CourseTitle: courseTitle,
		CompletedAt: completedAt,
		Percentage:  percentage,
		Serial:      s.serial(ctx, e.EnrollmentID),
	}, nil
}

// serial returns a stable serial number per enrollment, cached in Redis
// so re-downloads print the same one.
func (s *CertificateService) serial(ctx context.Context, enrollmentID uuid.UUID) string {
	fresh := uuid.New().String()
	if s.rdb == nil {
		return fresh
	}

	key := config.CacheKey.CertificateSerialKey(enrollmentID)
	claimed, err := s.rdb.SetNX(ctx, key, fresh, 0).Result()
	if err != nil {
		s.log.Warn().Err(err).Msg("Certificate serial cache unavailable")
		return fresh
	}
	if claimed {
		return fresh
	}
	stored, err := s.rdb.Get(ctx, key).Result()
	if err != nil {
		return fresh
	}
	return stored
}
