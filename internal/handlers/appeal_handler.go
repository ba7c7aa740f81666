package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/isoura4/isrobot-backend/internal/engine"
)

type AppealHandler struct {
	engine *engine.Engine
}

func NewAppealHandler(eng *engine.Engine) *AppealHandler {
	return &AppealHandler{engine: eng}
}

type submitAppealRequest struct {
	UserID string `json:"user_id" binding:"required"`
	Reason string `json:"reason" binding:"required"`
}

// Submit files an appeal on behalf of a platform user. The chat gateway
// relays the user's request through this endpoint.
func (h *AppealHandler) Submit(c *gin.Context) {
	var req submitAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	appeal, err := h.engine.SubmitAppeal(c.Request.Context(), c.Param("guild_id"), req.UserID, req.Reason)
	if err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusCreated, appeal)
}

type decideAppealRequest struct {
	Decision string `json:"decision" binding:"required"`
	Reason   string `json:"reason"`
}

// Decide approves or denies a pending appeal
func (h *AppealHandler) Decide(c *gin.Context) {
	appealID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, "Invalid appeal id")
		return
	}

	var req decideAppealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	decider := actorID(c)
	if decider == nil {
		ErrorResponse(c, http.StatusUnauthorized, "Unauthorized")
		return
	}

	appeal, err := h.engine.DecideAppeal(c.Request.Context(), appealID, req.Decision, *decider, req.Reason)
	if err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, appeal)
}

// ListPending returns a guild's undecided appeals, oldest first
func (h *AppealHandler) ListPending(c *gin.Context) {
	appeals, err := h.engine.PendingAppeals(c.Param("guild_id"))
	if err != nil {
		EngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"appeals": appeals})
}
