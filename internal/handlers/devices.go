package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"smart_office/internal/service"

	"github.com/gin-gonic/gin"
)

// Common response/status constants to avoid magic strings and typos.
const (
	statusOK   = "ok"
	statusSent = "sent"

	errListDevices   = "failed to load devices"
	errLoadReading   = "failed to load readings"
	errSendCommand   = "failed to send command"
	errInvalidBody   = "invalid body: "
	errInvalidLimit  = "invalid 'limit'; use a positive integer"
	errTransportDown = "command channel unavailable"
)

// Centralized error logging and response.
func (h *Handler) logAndJSONError(c *gin.Context, httpCode int, userMsg, logKey string, err error, kv ...interface{}) {
	if h.log != nil && err != nil {
		fields := append([]interface{}{"err", err}, kv...)
		h.log.Errorw(logKey, fields...)
	}
	c.JSON(httpCode, gin.H{"error": userMsg})
}

// clientError maps domain errors callers can fix or look up to a status
// code. ok is false for anything that should be a 500.
func clientError(err error) (code int, ok bool) {
	switch {
	case errors.Is(err, service.ErrDeviceNotFound),
		errors.Is(err, service.ErrNoData),
		errors.Is(err, service.ErrAlarmNotFound),
		errors.Is(err, service.ErrConfigNotFound):
		return http.StatusNotFound, true
	case errors.Is(err, service.ErrUnknownAction),
		errors.Is(err, service.ErrInvalidConfig),
		errors.Is(err, service.ErrInvalidFilter),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrInvalidStatus):
		return http.StatusBadRequest, true
	}
	return 0, false
}

// ControlRequest is the manual control payload.
type ControlRequest struct {
	// Wire action. Allowed: rgb_on, rgb_off, buzzer_on, buzzer_off, humidifier_on, humidifier_off, ac_heat, ac_cool, ac_off
	Action string `json:"action" binding:"required" example:"ac_cool"`
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

// @Summary      List devices
// @Tags         devices
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "count, devices"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/devices [get]
// @Security     BearerAuth
func (h *Handler) listDevices(c *gin.Context) {
	devices := h.services.Devices.List(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{
		"count":   len(devices),
		"devices": devices,
	})
}

// @Summary      Get device
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  models.DeviceState
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /api/v1/devices/{id} [get]
// @Security     BearerAuth
func (h *Handler) getDevice(c *gin.Context) {
	d, err := h.services.Devices.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if code, ok := clientError(err); ok {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errListDevices, "device_get_failed", err)
		return
	}
	c.JSON(http.StatusOK, d)
}

// @Summary      Latest reading
// @Description  Served from the read cache, falling back to stored readings.
// @Tags         devices
// @Produce      json
// @Param        id   path      string  true  "Device id"
// @Success      200  {object}  models.LatestReading
// @Failure      401  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/devices/{id}/latest [get]
// @Security     BearerAuth
func (h *Handler) getLatest(c *gin.Context) {
	id := c.Param("id")
	r, err := h.services.Devices.Latest(c.Request.Context(), id)
	if err != nil {
		if code, ok := clientError(err); ok {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadReading, "device_latest_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, r)
}

// @Summary      Reading history
// @Tags         devices
// @Produce      json
// @Param        id     path   string  true   "Device id"
// @Param        limit  query  int     false  "Max rows, newest first (default 20, max 500)"
// @Success      200    {object}  map[string]interface{}  "count, readings"
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]string
// @Failure      500    {object}  map[string]string
// @Router       /api/v1/devices/{id}/history [get]
// @Security     BearerAuth
func (h *Handler) getHistory(c *gin.Context) {
	id := c.Param("id")
	limit := 0
	if qs := c.Query("limit"); qs != "" {
		n, err := strconv.Atoi(qs)
		if err != nil || n <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidLimit})
			return
		}
		limit = n
	}
	readings, err := h.services.Devices.History(c.Request.Context(), id, limit)
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errLoadReading, "device_history_failed", err, "device_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":    len(readings),
		"readings": readings,
	})
}

// @Summary      Send a manual command
// @Tags         devices
// @Accept       json
// @Produce      json
// @Param        id    path   string          true  "Device id"
// @Param        body  body   ControlRequest  true  "Command payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/devices/{id}/control [post]
// @Security     BearerAuth
func (h *Handler) controlDevice(c *gin.Context) {
	var req ControlRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	id := c.Param("id")
	err := h.services.Devices.SendCommand(c.Request.Context(), id, req.Action)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{"status": statusSent, "deviceId": id, "action": req.Action})
	case errors.Is(err, service.ErrCommandNotDelivered):
		h.logAndJSONError(c, http.StatusServiceUnavailable, errTransportDown, "device_control_failed", err, "device_id", id, "action", req.Action)
	default:
		if code, ok := clientError(err); ok {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errSendCommand, "device_control_failed", err, "device_id", id)
	}
}
