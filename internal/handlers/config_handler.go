package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/isoura4/isrobot-backend/internal/models"
	"github.com/isoura4/isrobot-backend/internal/repository"
)

type ConfigHandler struct {
	configRepo *repository.GuildConfigRepository
}

func NewConfigHandler(configRepo *repository.GuildConfigRepository) *ConfigHandler {
	return &ConfigHandler{configRepo: configRepo}
}

// Get returns the guild's moderation config, defaults included
func (h *ConfigHandler) Get(c *gin.Context) {
	cfg, err := h.configRepo.Get(c.Param("guild_id"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load guild config")
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type updateConfigRequest struct {
	LogChannelID    *string `json:"log_channel_id"`
	AppealChannelID *string `json:"appeal_channel_id"`
	AIFlagChannelID *string `json:"ai_flag_channel_id"`
	RulesMessageID  *string `json:"rules_message_id"`

	AIEnabled   *bool   `json:"ai_enabled"`
	AIThreshold *int    `json:"ai_confidence_threshold"`
	AIModel     *string `json:"ai_model"`
	OllamaHost  *string `json:"ollama_host"`

	Warn1DecayDays *int `json:"warn_1_decay_days"`
	Warn2DecayDays *int `json:"warn_2_decay_days"`
	Warn3DecayDays *int `json:"warn_3_decay_days"`

	MuteDurationWarn2 *int `json:"mute_duration_warn_2"`
	MuteDurationWarn3 *int `json:"mute_duration_warn_3"`
}

// Update applies a partial config change. Fields left out of the body keep
// their current values; the merged result is validated before it is saved.
func (h *ConfigHandler) Update(c *gin.Context) {
	var req updateConfigRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	cfg, err := h.configRepo.Get(c.Param("guild_id"))
	if err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to load guild config")
		return
	}

	applyConfigUpdate(cfg, &req)

	if err := cfg.Validate(); err != nil {
		ErrorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.configRepo.Upsert(cfg); err != nil {
		ErrorResponse(c, http.StatusInternalServerError, "Failed to save guild config")
		return
	}

	c.JSON(http.StatusOK, cfg)
}

func applyConfigUpdate(cfg *models.GuildConfig, req *updateConfigRequest) {
	if req.LogChannelID != nil {
		cfg.LogChannelID = req.LogChannelID
	}
	if req.AppealChannelID != nil {
		cfg.AppealChannelID = req.AppealChannelID
	}
	if req.AIFlagChannelID != nil {
		cfg.AIFlagChannelID = req.AIFlagChannelID
	}
	if req.RulesMessageID != nil {
		cfg.RulesMessageID = req.RulesMessageID
	}
	if req.AIEnabled != nil {
		cfg.AIEnabled = *req.AIEnabled
	}
	if req.AIThreshold != nil {
		cfg.AIThreshold = *req.AIThreshold
	}
	if req.AIModel != nil {
		cfg.AIModel = *req.AIModel
	}
	if req.OllamaHost != nil {
		cfg.OllamaHost = *req.OllamaHost
	}
	if req.Warn1DecayDays != nil {
		cfg.Warn1DecayDays = *req.Warn1DecayDays
	}
	if req.Warn2DecayDays != nil {
		cfg.Warn2DecayDays = *req.Warn2DecayDays
	}
	if req.Warn3DecayDays != nil {
		cfg.Warn3DecayDays = *req.Warn3DecayDays
	}
	if req.MuteDurationWarn2 != nil {
		cfg.MuteDurationWarn2 = *req.MuteDurationWarn2
	}
	if req.MuteDurationWarn3 != nil {
		cfg.MuteDurationWarn3 = *req.MuteDurationWarn3
	}
}
