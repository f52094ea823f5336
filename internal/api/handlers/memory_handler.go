package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yoockh/yoobuddy/internal/services"
)

// MemoryHandler exposes the stored facts, upcoming events, and the
// utterance archive for the authenticated user.
type MemoryHandler struct {
	memory services.MemoryService
	logSvc services.SessionLogService
}

func NewMemoryHandler(memory services.MemoryService, logSvc services.SessionLogService) *MemoryHandler {
	return &MemoryHandler{memory: memory, logSvc: logSvc}
}

func (h *MemoryHandler) Facts(c *gin.Context) {
	username, ok := requireUsername(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	rows, err := h.memory.RetrieveKnowledge(c.Request.Context(), username, c.Query("q"), limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"facts": rows})
}

func (h *MemoryHandler) Events(c *gin.Context) {
	username, ok := requireUsername(c)
	if !ok {
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "10"))
	rows, err := h.memory.UpcomingEvents(c.Request.Context(), username, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"events": rows})
}

func (h *MemoryHandler) History(c *gin.Context) {
	username, ok := requireUsername(c)
	if !ok {
		return
	}

	limit, _ := strconv.ParseInt(c.DefaultQuery("limit", "100"), 10, 64)
	rows, err := h.logSvc.History(c.Request.Context(), username, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"utterances": rows})
}
