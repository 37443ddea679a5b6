package handlers

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"smart_office/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid   = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errListAlarms  = "failed to load alarms"
	errUpdateAlarm = "failed to update alarm"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// AlarmStatusRequest moves an alarm through its handling workflow.
type AlarmStatusRequest struct {
	// Allowed: UNHANDLED, HANDLING, HANDLED, IGNORED
	Status string `json:"status" binding:"required" example:"HANDLED"`
	Remark string `json:"remark,omitempty" example:"sensor replaced"`
}

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List alarms
// @Description  Filter alarms by raise time (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). A date-only 'to' covers that whole day.
// @Tags         alarms
// @Produce      json
// @Param        from      query   string  false  "Start of range"  example(2025-08-01)
// @Param        to        query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type      query   string  false  "Alarm type"  Enums(FIRE,TEMP,HUMIDITY,LIGHT)
// @Param        status    query   string  false  "Alarm status"  Enums(UNHANDLED,HANDLING,HANDLED,IGNORED)
// @Param        deviceId  query   string  false  "Device id"
// @Success      200   {object}  map[string]interface{}  "count, alarms"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/alarms [get]
// @Security     BearerAuth
func (h *Handler) listAlarms(c *gin.Context) {
	var (
		q = service.AlarmQuery{
			Type:     c.Query("type"),
			Status:   c.Query("status"),
			DeviceID: c.Query("deviceId"),
		}
		err error
	)
	if qs := c.Query("from"); qs != "" {
		q.From, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		q.To, err = parseQueryTime(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			q.To = q.To.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	alarms, err := h.services.Alarms.List(c.Request.Context(), q)
	if err != nil {
		if code, ok := clientError(err); ok {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errListAlarms, "alarms_list_failed", err,
			"from", q.From, "to", q.To, "type", q.Type, "status", q.Status)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(alarms),
		"alarms": alarms,
	})
}

// @Summary      Update alarm status
// @Tags         alarms
// @Accept       json
// @Produce      json
// @Param        id    path   string              true  "Alarm id"
// @Param        body  body   AlarmStatusRequest  true  "Status payload"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      404   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/alarms/{id}/status [put]
// @Security     BearerAuth
func (h *Handler) updateAlarmStatus(c *gin.Context) {
	var req AlarmStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidBody + err.Error()})
		return
	}
	id := c.Param("id")
	if err := h.services.Alarms.UpdateStatus(c.Request.Context(), id, req.Status, req.Remark); err != nil {
		if code, ok := clientError(err); ok {
			c.JSON(code, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errUpdateAlarm, "alarm_update_failed", err, "alarm_id", id)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": strings.ToUpper(strings.TrimSpace(req.Status)), "id": id})
}

func parseQueryTime(s string) (time.Time, error) {
	// Try multiple accepted formats, normalizing to UTC.
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
