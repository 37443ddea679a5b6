package handlers

import (
	"net/http"
	"strings"

	"smart_office/internal/broadcast"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

var knownTopics = map[string]bool{
	broadcast.TopicSensorData:   true,
	broadcast.TopicAlarm:        true,
	broadcast.TopicDeviceStatus: true,
}

// Upgrader for HTTP -> WebSocket. Consider tightening CheckOrigin in production.
var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// parseTopics reads ?topic=/topic/alarm (repeatable or comma separated).
// Short names such as "alarm" are accepted. No topic means all topics.
func parseTopics(c *gin.Context) ([]string, bool) {
	var out []string
	for _, raw := range c.QueryArray("topic") {
		for _, t := range strings.Split(raw, ",") {
			t = strings.TrimSpace(t)
			if t == "" {
				continue
			}
			if !strings.HasPrefix(t, "/topic/") {
				t = "/topic/" + t
			}
			if !knownTopics[t] {
				return nil, false
			}
			out = append(out, t)
		}
	}
	return out, true
}

// @Summary      Live updates
// @Description  WebSocket stream of {topic, data} frames. Without ?topic= every topic is sent.
// @Tags         system
// @Param        topic  query  string  false  "Topic filter"  Enums(/topic/sensor-data,/topic/alarm,/topic/device-status)
// @Router       /ws [get]
func (h *Handler) wsConnect(c *gin.Context) {
	if h.live == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "live updates disabled"})
		return
	}
	topics, ok := parseTopics(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown topic"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		if h.log != nil {
			h.log.Errorw("ws_upgrade_failed", "err", err)
		}
		return
	}
	// Serve blocks until the client goes away and closes conn.
	h.live.Serve(conn, topics)
}
