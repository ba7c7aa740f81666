package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/isoura4/isrobot-backend/internal/engine"
)

type ModerationHandler struct {
	engine *engine.Engine
}

func NewModerationHandler(eng *engine.Engine) *ModerationHandler {
	return &ModerationHandler{engine: eng}
}

type warnRequest struct {
	Reason string `json:"reason" binding:"required"`
}

// Warn issues a warning to a user
func (h *ModerationHandler) Warn(c *gin.Context) {
	var req warnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.engine.IssueWarning(
		c.Request.Context(),
		c.Param("guild_id"),
		c.Param("user_id"),
		req.Reason,
		actorID(c),
	)
	if err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

type unwarnRequest struct {
	Reason string `json:"reason"`
}

// Unwarn removes one warning from a user
func (h *ModerationHandler) Unwarn(c *gin.Context) {
	// Reason is optional; an absent body falls back to the engine default.
	var req unwarnRequest
	_ = c.ShouldBindJSON(&req)

	result, err := h.engine.RemoveWarning(
		c.Request.Context(),
		c.Param("guild_id"),
		c.Param("user_id"),
		req.Reason,
		actorID(c),
	)
	if err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetWarnings returns a user's current warning count
func (h *ModerationHandler) GetWarnings(c *gin.Context) {
	state, err := h.engine.GetWarningState(c.Param("guild_id"), c.Param("user_id"))
	if err != nil {
		EngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

// GetHistory returns a user's moderation history
func (h *ModerationHandler) GetHistory(c *gin.Context) {
	entries, err := h.engine.GetHistory(c.Param("guild_id"), c.Param("user_id"), queryLimit(c))
	if err != nil {
		EngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// GetModLog returns the guild-wide moderation log
func (h *ModerationHandler) GetModLog(c *gin.Context) {
	entries, err := h.engine.GetModLog(c.Param("guild_id"), queryLimit(c))
	if err != nil {
		EngineError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

type muteRequest struct {
	// Duration is a human string like "30m" or "1d2h".
	Duration string `json:"duration" binding:"required"`
	Reason   string `json:"reason" binding:"required"`
}

// Mute manually mutes a user
func (h *ModerationHandler) Mute(c *gin.Context) {
	var req muteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	duration, err := engine.ParseDuration(req.Duration)
	if err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.engine.IssueMute(
		c.Request.Context(),
		c.Param("guild_id"),
		c.Param("user_id"),
		duration,
		req.Reason,
		actorID(c),
	); err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"muted": true, "duration": engine.FormatDuration(duration)})
}

type unmuteRequest struct {
	Reason string `json:"reason"`
}

// Unmute lifts a user's mute
func (h *ModerationHandler) Unmute(c *gin.Context) {
	var req unmuteRequest
	_ = c.ShouldBindJSON(&req)

	removed, err := h.engine.RemoveMute(
		c.Request.Context(),
		c.Param("guild_id"),
		c.Param("user_id"),
		req.Reason,
		actorID(c),
	)
	if err != nil {
		EngineError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// GetMute returns the user's active mute, if any
func (h *ModerationHandler) GetMute(c *gin.Context) {
	mute, err := h.engine.GetActiveMute(c.Param("guild_id"), c.Param("user_id"))
	if err != nil {
		EngineError(c, err)
		return
	}
	if mute == nil {
		c.JSON(http.StatusOK, gin.H{"muted": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"muted": true, "mute": mute})
}

func queryLimit(c *gin.Context) int {
	raw := c.Query("limit")
	if raw == "" {
		return 0
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
