package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/isoura4/isrobot-backend/internal/auth"
	"github.com/isoura4/isrobot-backend/internal/models"
	"github.com/isoura4/isrobot-backend/internal/repository"
)

type AuthHandler struct {
	moderatorRepo *repository.ModeratorRepository
	jwtService    *auth.JWTService
}

func NewAuthHandler(moderatorRepo *repository.ModeratorRepository, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		moderatorRepo: moderatorRepo,
		jwtService:    jwtService,
	}
}

// Register handles moderator account creation
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.CreateModeratorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	hashedPassword, err := auth.HashPassword(req.Password)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to hash password")
		return
	}

	moderator := &models.Moderator{
		ID:           uuid.New(),
		Email:        req.Email,
		DisplayName:  req.DisplayName,
		PasswordHash: hashedPassword,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := h.moderatorRepo.Create(moderator); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to create moderator")
		return
	}

	token, err := h.jwtService.GenerateToken(moderator.ID, moderator.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, models.LoginResponse{
		Token:     token,
		Moderator: *moderator,
	})
}

// Login handles moderator login
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	moderator, err := h.moderatorRepo.GetByEmail(req.Email)
	if err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if err := auth.CheckPassword(moderator.PasswordHash, req.Password); err != nil {
		ErrorResponse(c, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	token, err := h.jwtService.GenerateToken(moderator.ID, moderator.Email)
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		Moderator: *moderator,
	})
}

// GetMe returns the current moderator
func (h *AuthHandler) GetMe(c *gin.Context) {
	userID, _ := c.Get("user_id")
	id := userID.(uuid.UUID)

	moderator, err := h.moderatorRepo.GetByID(id)
	if err != nil {
		ErrorResponse(c, http.StatusNotFound, "Moderator not found")
		return
	}

	c.JSON(http.StatusOK, moderator)
}
