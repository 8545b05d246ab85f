package http

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"quizgen-service/internal/app"
	"quizgen-service/internal/domain"
	"quizgen-service/internal/logger"
)

const (
	defaultQuestionCount = 5
	defaultUploadTopic   = "Uploaded document"
)

type QuizHandler struct {
	service        *app.QuizService
	log            *logger.Logger
	maxUploadBytes int
}

func NewQuizHandler(service *app.QuizService, log *logger.Logger, maxUploadBytes int) *QuizHandler {
	return &QuizHandler{service: service, log: log, maxUploadBytes: maxUploadBytes}
}

type createRequest struct {
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type uploadRequest struct {
	File       string `json:"file" binding:"required"`
	Topic      string `json:"topic"`
	Difficulty string `json:"difficulty"`
	Count      int    `json:"count"`
}

type submitRequest struct {
	QuizID  string            `json:"quizId" binding:"required"`
	Answers map[string]string `json:"answers" binding:"required"`
}

type evaluateRequest struct {
	QuizID string `json:"quizId" binding:"required"`
}

// quizResponse is the quiz as the web client reads it, keyed by quizId.
type quizResponse struct {
	QuizID     string            `json:"quizId"`
	Topic      string            `json:"topic"`
	Difficulty domain.Difficulty `json:"difficulty"`
	Questions  []domain.Question `json:"questions"`
}

func newQuizResponse(q domain.Quiz) quizResponse {
	return quizResponse{QuizID: q.ID, Topic: q.Topic, Difficulty: q.Difficulty, Questions: q.Questions}
}

func (h *QuizHandler) Create(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "topic is required"})
		return
	}
	quiz, err := h.service.CreateQuiz(c.Request.Context(), lenientConfig(topic, req.Difficulty, req.Count))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizResponse(quiz))
}

func (h *QuizHandler) Upload(c *gin.Context) {
	var req uploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file (base64) is required"})
		return
	}
	payload := stripDataURL(req.File)
	if len(payload) > h.maxUploadBytes {
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "file too large"})
		return
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "file is not valid base64"})
		return
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		topic = defaultUploadTopic
	}
	quiz, err := h.service.UploadQuiz(c.Request.Context(), data, lenientConfig(topic, req.Difficulty, req.Count))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizResponse(quiz))
}

func (h *QuizHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quizId and answers are required"})
		return
	}
	if err := h.service.SubmitAnswers(c.Request.Context(), req.QuizID, req.Answers); err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Answers submitted successfully.", "quizId": req.QuizID})
}

func (h *QuizHandler) Evaluate(c *gin.Context) {
	var req evaluateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "quizId is required"})
		return
	}
	eval, err := h.service.Evaluate(c.Request.Context(), req.QuizID)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eval)
}

// Get returns the quiz without its answer key.
func (h *QuizHandler) Get(c *gin.Context) {
	quiz, err := h.service.GetQuiz(c.Request.Context(), c.Param("id"))
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, newQuizResponse(quiz.ForAnswering()))
}

func (h *QuizHandler) writeError(c *gin.Context, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "path", c.FullPath(), "status", status, "error", err.Error())
		if status == http.StatusInternalServerError {
			msg = "internal error"
		}
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrEmptyDocument), errors.Is(err, domain.ErrExtractionFailed):
		return http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrQuizNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrNoAnswers):
		return http.StatusConflict
	case errors.Is(err, domain.ErrModelInvocation),
		errors.Is(err, domain.ErrMalformedModelOutput),
		errors.Is(err, domain.ErrUnexpectedResponseShape):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// lenientConfig mirrors what the web client expects: unknown difficulties fall back to
// beginner and out-of-range counts to five questions.
func lenientConfig(topic, difficulty string, count int) domain.QuizConfig {
	d := domain.Difficulty(strings.ToLower(strings.TrimSpace(difficulty)))
	if !d.Valid() {
		d = domain.Beginner
	}
	if count < domain.MinQuestionCount || count > domain.MaxQuestionCount {
		count = defaultQuestionCount
	}
	return domain.QuizConfig{Topic: topic, Difficulty: d, QuestionCount: count}
}

// stripDataURL accepts both raw base64 and "data:<mime>;base64,<payload>".
func stripDataURL(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "data:") {
		if i := strings.Index(s, ","); i >= 0 {
			return s[i+1:]
		}
	}
	return s
}
