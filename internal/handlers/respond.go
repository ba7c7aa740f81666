package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/isoura4/isrobot-backend/internal/engine"
)

// ErrorResponse sends a standardized error response
func ErrorResponse(c *gin.Context, status int, message string) {
	c.JSON(status, gin.H{"error": message})
}

// EngineError maps an engine error to an HTTP response. Validation becomes
// 400, conflicts 409, missing targets 404; everything else is a 500 with
// the detail kept out of the body.
func EngineError(c *gin.Context, err error) {
	switch engine.KindOf(err) {
	case engine.KindValidation:
		ErrorResponse(c, http.StatusBadRequest, err.Error())
	case engine.KindConflict:
		ErrorResponse(c, http.StatusConflict, err.Error())
	case engine.KindNotFound:
		ErrorResponse(c, http.StatusNotFound, err.Error())
	default:
		ErrorResponse(c, http.StatusInternalServerError, "Internal server error")
	}
}

// actorID returns the authenticated moderator's ID as the actor string
// recorded in history entries.
func actorID(c *gin.Context) *string {
	v, exists := c.Get("user_id")
	if !exists {
		return nil
	}
	id, ok := v.(uuid.UUID)
	if !ok {
		return nil
	}
	s := id.String()
	return &s
}
