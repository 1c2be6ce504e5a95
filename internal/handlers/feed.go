package handlers

import (
	"errors"
	"net/http"

	"feeder_control/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK      = "ok"
	statusStarted = "started"
	statusStopped = "stopped"
	statusManual  = "manual_set"

	errStartFeeding    = "failed to start feeding"
	errStopFeeding     = "failed to stop feeding"
	errInvalidBodyPref = "invalid body: "

	maxCycleIndex = 3

	deviceAuger = "auger"
	deviceChain = "chain"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// Respond with a status string and the current snapshot.
func (h *Handler) respondWithStatus(c *gin.Context, status string, extra gin.H) {
	resp := gin.H{"status": status}
	for k, v := range extra {
		resp[k] = v
	}
	resp["state"] = h.services.Monitoring.Status()
	c.JSON(http.StatusOK, resp)
}

// Request DTO for starting a cycle.
type startRequest struct {
	Cycle int `json:"cycle"` // 0-3, which daily slot this run counts toward
}

// StartFeedingRequest is an exported model for Swagger docs of the start payload.
type StartFeedingRequest struct {
	// Daily cycle slot the run is tagged with (0-3)
	Cycle int `json:"cycle" example:"0"`
}

// Request DTO for manual relay control.
type manualRequest struct {
	Device string `json:"device" binding:"required"` // auger | chain
	On     bool   `json:"on"`
}

// SetManualRequest is an exported model for Swagger docs of the manual payload.
type SetManualRequest struct {
	// Device to drive. Allowed: auger, chain
	Device string `json:"device" example:"auger"`
	// Desired relay state
	On bool `json:"on" example:"true"`
}

// @Summary      Health check
// @Tags         system
// @Produce      json
// @Success      200  {object}  map[string]string
// @Router       /health [get]
func (h *Handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": statusOK,
	})
}

// @Summary      Start a feed cycle
// @Description  Starts a cycle with the persisted settings. Body is optional; cycle defaults to 0.
// @Tags         feed
// @Accept       json
// @Produce      json
// @Param        body  body   StartFeedingRequest  false  "Cycle tag"
// @Success      200   {object}  map[string]interface{}  "status, state"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/feed/start [post]
// @Security     BearerAuth
func (h *Handler) startFeeding(c *gin.Context) {
	var req startRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
			return
		}
	}
	if req.Cycle < 0 || req.Cycle > maxCycleIndex {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cycle must be 0-3"})
		return
	}

	ctx := c.Request.Context()
	if err := h.services.Feeding.Start(ctx, req.Cycle); err != nil {
		if errors.Is(err, service.ErrFeedingInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errStartFeeding, "feed_start_failed", err, "cycle", req.Cycle)
		return
	}
	h.respondWithStatus(c, statusStarted, gin.H{"cycle": req.Cycle})
}

// @Summary      Stop feeding
// @Description  Aborts the running cycle and releases both relays.
// @Tags         feed
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/feed/stop [post]
// @Security     BearerAuth
func (h *Handler) stopFeeding(c *gin.Context) {
	ctx := c.Request.Context()
	if err := h.services.Feeding.Stop(ctx); err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errStopFeeding, "feed_stop_failed", err)
		return
	}
	h.respondWithStatus(c, statusStopped, gin.H{})
}

// @Summary      Manual relay control
// @Description  Drives the auger or chain relay directly. Rejected while a cycle is running.
// @Tags         feed
// @Accept       json
// @Produce      json
// @Param        body  body   SetManualRequest  true  "Manual payload"
// @Success      200   {object}  map[string]interface{}
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/v1/feed/manual [post]
// @Security     BearerAuth
func (h *Handler) setManual(c *gin.Context) {
	var req manualRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBodyPref + err.Error()})
		return
	}

	var err error
	switch req.Device {
	case deviceAuger:
		err = h.services.Feeding.SetAuger(req.On)
	case deviceChain:
		err = h.services.Feeding.SetChain(req.On)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "device must be auger or chain"})
		return
	}
	if err != nil {
		if h.log != nil {
			h.log.Infow("feed_manual_rejected", "device", req.Device, "on", req.On, "err", err)
		}
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	h.respondWithStatus(c, statusManual, gin.H{"device": req.Device, "on": req.On})
}

// @Summary      Get feeder status
// @Tags         feed
// @Produce      json
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/feed/status [get]
// @Security     BearerAuth
func (h *Handler) getStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Monitoring.Status())
}
