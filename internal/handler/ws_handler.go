package handler

import (
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/coursiva/enroll-gateway/internal/middleware"
	"github.com/coursiva/enroll-gateway/internal/model"
	"github.com/coursiva/enroll-gateway/internal/quiz"
	"github.com/coursiva/enroll-gateway/internal/service"
)

// buildUpgrader creates a WebSocket upgrader with origin validation.
// allowedOrigins comes from config.Config.AllowedOrigins.
// An empty slice permits all origins (development mode).
func buildUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowedOrigins) == 0 {
				return true
			}
			origin := r.Header.Get("Origin")
			for _, allowed := range allowedOrigins {
				if strings.EqualFold(allowed, origin) {
					return true
				}
			}
			return false
		},
	}
}

type wsAction string

const (
	wsActionAnswer wsAction = "answer"
	wsActionSubmit wsAction = "submit"
)

type wsRequest struct {
	Action        wsAction `json:"action"`
	QuestionIndex int      `json:"questionIndex"`
	OptionIndex   int      `json:"optionIndex"`
}

type wsResponse struct {
	Type             string            `json:"type"`
	State            quiz.State        `json:"state,omitempty"`
	RemainingSeconds int               `json:"remainingSeconds"`
	Answers          map[int]int       `json:"answers,omitempty"`
	Result           *quiz.ScoreResult `json:"result,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// wsConn serializes writes; the tick goroutine and the read loop both
// send on the same connection.
type wsConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsConn) send(msg wsResponse) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return w.conn.WriteJSON(msg)
}

// WSHandler handles the live test-session stream.
type WSHandler struct {
	registry    *quiz.Registry
	enrollments *service.EnrollmentService
	completion  *service.CompletionService
	log         zerolog.Logger
	upgrader    websocket.Upgrader
}

// NewWSHandler creates a new WSHandler.
func NewWSHandler(registry *quiz.Registry, enrollments *service.EnrollmentService, completion *service.CompletionService, log zerolog.Logger, allowedOrigins []string) *WSHandler {
	return &WSHandler{
		registry:    registry,
		enrollments: enrollments,
		completion:  completion,
		log:         log.With().Str("component", "ws_handler").Logger(),
		upgrader:    buildUpgrader(allowedOrigins),
	}
}

// TestStream godoc
// WS /ws/v1/student/enrollments/:enrollment_id/test
// Streams the countdown each second and accepts answer/submit actions.
// The session must already have been started over HTTP.
func (h *WSHandler) TestStream(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}

	enrollmentID, err := uuid.Parse(c.Param("enrollment_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid enrollment ID"})
		return
	}

	enrollment, err := h.enrollments.Find(c.Request.Context(), claims.UserID, enrollmentID)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "enrollment not found"})
		return
	}

	session, found := h.registry.Get(enrollmentID)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": "no test session"})
		return
	}

	raw, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error().Err(err).Msg("WebSocket upgrade failed")
		return
	}
	defer raw.Close()

	conn := &wsConn{conn: raw}

	wsLog := h.log.With().
		Stringer("student_id", claims.UserID).
		Stringer("enrollment_id", enrollmentID).
		Logger()
	wsLog.Info().Msg("Student connected")

	done := make(chan struct{})
	defer close(done)
	go h.tickLoop(conn, session, done)

	for {
		var msg wsRequest
		if err := raw.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				wsLog.Warn().Err(err).Msg("Unexpected close")
			} else {
				wsLog.Debug().Msg("Connection closed")
			}
			return
		}

		var sendErr error
		switch msg.Action {
		case wsActionAnswer:
			sendErr = h.handleAnswer(conn, session, &msg)
		case wsActionSubmit:
			sendErr = h.handleSubmit(c, conn, wsLog, enrollment)
		default:
			sendErr = conn.send(wsResponse{Type: "error", Error: "unknown action: " + string(msg.Action)})
		}
		if sendErr != nil {
			wsLog.Debug().Err(sendErr).Msg("Write failed, closing stream")
			return
		}
	}
}

// tickLoop pushes the countdown once per second until the connection or
// the session goes away.
func (h *WSHandler) tickLoop(conn *wsConn, session *quiz.Session, done <-chan struct{}) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			msg := wsResponse{
				Type:             "tick",
				State:            session.State(),
				RemainingSeconds: session.Remaining(),
			}
			if session.State() == quiz.StateSubmitted {
				msg.Result = session.Result()
			}
			if err := conn.send(msg); err != nil {
				return
			}
			if session.State() == quiz.StateSubmitted {
				return
			}
		}
	}
}

func (h *WSHandler) handleAnswer(conn *wsConn, session *quiz.Session, msg *wsRequest) error {
	if err := session.SelectAnswer(msg.QuestionIndex, msg.OptionIndex); err != nil {
		return conn.send(wsResponse{Type: "error", Error: err.Error(), RemainingSeconds: session.Remaining()})
	}
	return conn.send(wsResponse{
		Type:             "answered",
		Answers:          session.Answers(),
		RemainingSeconds: session.Remaining(),
	})
}

func (h *WSHandler) handleSubmit(c *gin.Context, conn *wsConn, wsLog zerolog.Logger, enrollment model.Enrollment) error {
	result, err := h.registry.Submit(enrollment.EnrollmentID)
	if err != nil {
		return conn.send(wsResponse{Type: "error", Error: err.Error()})
	}

	if _, err := h.completion.CompleteAfterTest(c.Request.Context(), enrollment, *result); err != nil {
		wsLog.Error().Err(err).Msg("Completion after WS submit failed")
	}

	return conn.send(wsResponse{
		Type:   "submitted",
		State:  quiz.StateSubmitted,
		Result: result,
	})
}
