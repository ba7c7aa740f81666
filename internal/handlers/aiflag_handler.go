package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/isoura4/isrobot-backend/internal/engine"
)

type AIFlagHandler struct {
	engine *engine.Engine
}

func NewAIFlagHandler(eng *engine.Engine) *AIFlagHandler {
	return &AIFlagHandler{engine: eng}
}

// Record ingests a scored message from an external analysis pipeline. The
// in-process intake worker uses the engine directly; this endpoint exists
// for gateways that run their own scoring.
func (h *AIFlagHandler) Record(c *gin.Context) {
	var req engine.RecordFlagInput
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	req.GuildID = c.Param("guild_id")

	flag, created, err := h.engine.RecordFlag(c.Request.Context(), req)
	if err != nil {
		EngineError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, gin.H{"created": false})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"created": true, "flag": flag})
}

type disposeFlagRequest struct {
	// Action is one of "warn", "reviewing", "ignore".
	Action string `json:"action" binding:"required"`
}

// Dispose applies a moderator decision to a flag
func (h *AIFlagHandler) Dispose(c *gin.Context) {
	flagID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid flag id")
		return
	}

	var req disposeFlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	actor := actorID(c)
	if actor == nil {
		ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	flag, err := h.engine.DisposeFlag(c.Request.Context(), flagID, req.Action, *actor)
	if err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, flag)
}

// ListPending returns a guild's unreviewed flags, highest score first
func (h *AIFlagHandler) ListPending(c *gin.Context) {
	flags, err := h.engine.PendingFlags(c.Param("guild_id"), queryLimit(c))
	if err != nil {
		EngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"flags": flags})
}
