package handlers

import (
	"net/http"

	"feeder_control"

	"github.com/gin-gonic/gin"
)

const errGetSettings = "failed to load settings"

// @Summary      Get feed settings
// @Description  Returns the persisted settings, or the defaults if none were saved yet.
// @Tags         settings
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/settings [get]
// @Security     BearerAuth
func (h *Handler) getSettings(c *gin.Context) {
	ctx := c.Request.Context()
	cfg, err := h.services.Settings.Get(ctx)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errGetSettings, "settings_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, cfg)
}

// @Summary      Update feed settings
// @Description  Replaces the full settings row; all parameters must be supplied. The feed schedule is reconfigured on success.
// @Tags         settings
// @Accept       json
// @Produce      json
// @Param        body  body   feeder_control.FeedSettings  true  "Settings payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/settings [put]
// @Security     BearerAuth
func (h *Handler) updateSettings(c *gin.Context) {
	var cfg feeder_control.FeedSettings
	if err := c.ShouldBindJSON(&cfg); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}
	ctx := c.Request.Context()
	if err := h.services.Settings.Update(ctx, cfg); err != nil {
		// Treat as bad request if validation failed in service; otherwise internal error.
		// (You can refine this by returning typed errors from service.)
		if h.log != nil {
			h.log.Errorw("settings_update_failed", "err", err)
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": statusOK, "settings": cfg})
}
