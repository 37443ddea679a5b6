package handlers

import (
	"net/http"

	"smart_office/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errListConfig   = "failed to load config"
	errUpdateConfig = "failed to update config"
)

// ConfigUpdateRequest is an exported model for Swagger docs of PUT /config.
type ConfigUpdateRequest struct {
	ConfigKey   string `json:"configKey" binding:"required" example:"temperature.high"`
	ConfigValue string `json:"configValue" binding:"required" example:"27"`
}

// @Summary      Effective thresholds
// @Tags         config
// @Produce      json
// @Success      200  {object}  service.Thresholds
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/config/thresholds [get]
// @Security     BearerAuth
func (h *Handler) getThresholds(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Config.Thresholds(c.Request.Context()))
}

// @Summary      List config entries
// @Tags         config
// @Produce      json
// @Param        type  query  string  false  "Config type, e.g. threshold or device"
// @Success      200   {object}  map[string]interface{}  "count, entries"
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/config [get]
// @Security     BearerAuth
func (h *Handler) listConfig(c *gin.Context) {
	entries, err := h.services.Config.List(c.Request.Context(), c.Query("type"))
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errListConfig, "config_list_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":   len(entries),
		"entries": entries,
	})
}

// @Summary      Update a config value
// @Description  Threshold values must be numeric. data.collect.interval is pushed to devices.
// @Tags         config
// @Accept       json
// @Produce      json
// @Param        body  body   ConfigUpdateRequest  true  "Config payload"
// @Success      200   {object}  models.ConfigEntry
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/config [put]
// @Security     BearerAuth
func (h *Handler) updateConfig(c *gin.Context) {
	var req ConfigUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	entry, err := h.services.Config.Update(c.Request.Context(), models.ConfigUpdate{
		ConfigKey:   req.ConfigKey,
		ConfigValue: req.ConfigValue,
	})
	if err != nil {
		if code, ok := clientError(err); ok {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errUpdateConfig, "config_update_failed", err, "key", req.ConfigKey)
		return
	}
	c.JSON(http.StatusOK, entry)
}
