package response

// ErrCode is a typed error code enum for consistent API error identification.
type ErrCode string

const (
	// ─── Authentication ────────────────────────────────────────────────
	ErrTokenRequired      ErrCode = "TOKEN_REQUIRED"
	ErrTokenInvalid       ErrCode = "TOKEN_INVALID"
	ErrSessionInvalidated ErrCode = "SESSION_INVALIDATED"

	// ─── Authorization ─────────────────────────────────────────────────
	ErrForbidden            ErrCode = "FORBIDDEN"
	ErrStudentAccessOnly    ErrCode = "STUDENT_ACCESS_ONLY"
	ErrInstructorAccessOnly ErrCode = "INSTRUCTOR_ACCESS_ONLY"

	// ─── Validation ────────────────────────────────────────────────────
	ErrValidation     ErrCode = "VALIDATION_ERROR"
	ErrInvalidID      ErrCode = "INVALID_ID"
	ErrInvalidPayload ErrCode = "INVALID_PAYLOAD"

	// ─── Enrollment lifecycle ──────────────────────────────────────────
	ErrNotFound        ErrCode = "NOT_FOUND"
	ErrAlreadyEnrolled ErrCode = "ALREADY_ENROLLED"
	ErrNotCompleted    ErrCode = "NOT_COMPLETED"
	ErrNotEligible     ErrCode = "NOT_ELIGIBLE"

	// ─── Test sessions ─────────────────────────────────────────────────
	ErrNoTestSession    ErrCode = "NO_TEST_SESSION"
	ErrTestSubmitted    ErrCode = "TEST_ALREADY_SUBMITTED"
	ErrTestTimeExpired  ErrCode = "TEST_TIME_EXPIRED"
	ErrAnswerOutOfRange ErrCode = "ANSWER_OUT_OF_RANGE"

	// ─── Coordination ──────────────────────────────────────────────────
	ErrCompletionFailed ErrCode = "COMPLETION_FAILED"
	ErrPartialFailure   ErrCode = "PARTIAL_FAILURE"

	// ─── Upstream platform ─────────────────────────────────────────────
	ErrUpstreamUnavailable ErrCode = "UPSTREAM_UNAVAILABLE"
	ErrUpstreamError       ErrCode = "UPSTREAM_ERROR"

	// ─── Rate Limiting ─────────────────────────────────────────────────
	ErrRateLimitExceeded ErrCode = "RATE_LIMIT_EXCEEDED"

	// ─── Server ────────────────────────────────────────────────────────
	ErrInternal ErrCode = "INTERNAL_ERROR"
)

// GetMessage returns a human-readable message for a given error code.
func GetMessage(code ErrCode) string {
	switch code {
	// ─── Authentication ────────────────────────────────────────────────
	case ErrTokenRequired:
		return "An authentication token is required."
	case ErrTokenInvalid:
		return "The authentication token is invalid or expired."
	case ErrSessionInvalidated:
		return "Your session has ended. Please sign in again."

	// ─── Authorization ─────────────────────────────────────────────────
	case ErrForbidden:
		return "You do not have permission to access this resource."
	case ErrStudentAccessOnly:
		return "This resource is restricted to students."
	case ErrInstructorAccessOnly:
		return "This resource is restricted to instructors."

	// ─── Validation ────────────────────────────────────────────────────
	case ErrValidation:
		return "Validation failed. Please check your input."
	case ErrInvalidID:
		return "Invalid identifier format."
	case ErrInvalidPayload:
		return "Invalid request payload."

	// ─── Enrollment lifecycle ──────────────────────────────────────────
	case ErrNotFound:
		return "Resource not found."
	case ErrAlreadyEnrolled:
		return "You are already enrolled in this course."
	case ErrNotCompleted:
		return "This course has not been completed yet."
	case ErrNotEligible:
		return "A certificate requires a completed course with a passing test result."

	// ─── Test sessions ─────────────────────────────────────────────────
	case ErrNoTestSession:
		return "No active test session. Start the test first."
	case ErrTestSubmitted:
		return "This test has already been submitted."
	case ErrTestTimeExpired:
		return "Time is up. The test was submitted automatically."
	case ErrAnswerOutOfRange:
		return "Question or option index is out of range."

	// ─── Coordination ──────────────────────────────────────────────────
	case ErrCompletionFailed:
		return "Your test was scored but the course could not be marked complete. Please try submitting again."
	case ErrPartialFailure:
		return "Test recorded, but completion status may be stale — refresh your enrollments."

	// ─── Upstream platform ─────────────────────────────────────────────
	case ErrUpstreamUnavailable:
		return "The course platform is unreachable. Please try again."
	case ErrUpstreamError:
		return "The course platform reported an error."

	// ─── Rate Limiting ─────────────────────────────────────────────────
	case ErrRateLimitExceeded:
		return "Too many requests. Please try again later."

	// ─── Server ────────────────────────────────────────────────────────
	case ErrInternal:
		return "An internal server error occurred."
	default:
		return "An unexpected error occurred."
	}
}
