package apihandlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"mailpilot/internal/app"
	"mailpilot/internal/models"
	"mailpilot/internal/triage"
)

type APIHandler struct {
	App *app.App
}

func NewAPIHandler(app *app.App) *APIHandler {
	return &APIHandler{App: app}
}

// GreetingHandler answers the root path with a static greeting.
func (h *APIHandler) GreetingHandler(c *gin.Context) {
	c.JSON(http.StatusOK, "Hola")
}

// HealthHandler reports liveness and vector store reachability.
func (h *APIHandler) HealthHandler(c *gin.Context) {
	status := "ok"
	if err := h.App.VectorStore.Ping(c.Request.Context()); err != nil {
		log.WithError(err).Warn("Health check: vector store unreachable")
		status = "degraded"
	}
	c.JSON(http.StatusOK, gin.H{"status": status})
}

// noMatchResponse is the not-found body: it references the original sender
// and subject only, never content or classification fields.
type noMatchResponse struct {
	Error   APIError `json:"error"`
	Sender  string   `json:"sender"`
	Subject string   `json:"subject"`
}

// ProcessEmailHandler runs the triage pipeline for one email.
func (h *APIHandler) ProcessEmailHandler(c *gin.Context) {
	var req models.EmailQuery
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.App.Pipeline.Process(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, triage.ErrNoMatches) {
			c.JSON(http.StatusNotFound, noMatchResponse{
				Error:   APIError{Code: "not_found", Message: "No similar emails found"},
				Sender:  req.Sender,
				Subject: req.Subject,
			})
			return
		}
		log.Errorf("ProcessEmailHandler: pipeline failed: %v", err)
		Internal(c, fmt.Sprintf("Failed to process email: %v", err))
		return
	}

	c.JSON(http.StatusOK, result)
}

// HistoryHandler lists recently processed emails.
func (h *APIHandler) HistoryHandler(c *gin.Context) {
	if h.App.HistoryStore == nil {
		Internal(c, "History store is not configured")
		return
	}

	limit := 20
	if l := c.Query("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			BadRequest(c, "Invalid limit: "+l)
			return
		}
		limit = parsed
	}

	entries, err := h.App.HistoryStore.ListProcessedEmails(c.Request.Context(), limit)
	if err != nil {
		Internal(c, fmt.Sprintf("HistoryHandler: failed to list history: %v", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"items": entries})
}
