package handlers

import (
	"net/http"

	"smart_office/internal/logger"
	"smart_office/internal/models"
	"smart_office/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// LiveServer takes over an upgraded websocket connection and streams the
// requested live-update topics to it until the peer disconnects.
type LiveServer interface {
	Serve(conn *websocket.Conn, topics []string)
}

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services    *service.Service
	log         *logger.Logger
	live        LiveServer
	metrics     http.Handler
	metricsPath string
}

type HandlerOption func(*Handler)

// WithLive enables the /ws live-update endpoint.
func WithLive(live LiveServer) HandlerOption {
	return func(h *Handler) { h.live = live }
}

// WithMetrics exposes a metrics handler at path.
func WithMetrics(path string, m http.Handler) HandlerOption {
	return func(h *Handler) {
		h.metricsPath = path
		h.metrics = m
	}
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger, opts ...HandlerOption) *Handler {
	h := &Handler{services: services, log: log}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	router.GET("/health", h.health)
	if h.metrics != nil {
		router.GET(h.metricsPath, gin.WrapH(h.metrics))
	}

	h.registerAuthRoutes(router)
	h.registerAPIRoutes(router)

	// Live updates share the HTTP port.
	router.GET("/ws", h.wsConnect)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/sign-up", h.signUp)
		auth.POST("/sign-in", h.signIn)
	}
}

func (h *Handler) registerAPIRoutes(r *gin.Engine) {
	api := r.Group("/api/v1", h.userIdMiddleware)
	{
		h.registerDeviceRoutes(api)
		h.registerAlarmRoutes(api)
		h.registerConfigRoutes(api)
		api.GET("/me", h.me)
	}
}

func (h *Handler) registerDeviceRoutes(api *gin.RouterGroup) {
	devices := api.Group("/devices")
	{
		devices.GET("", h.listDevices)
		devices.GET("/:id", h.getDevice)
		devices.GET("/:id/latest", h.getLatest)
		devices.GET("/:id/history", h.getHistory)
		// Body example: {"action":"ac_cool"}
		devices.POST("/:id/control", h.requireRole(models.RoleAdmin), h.controlDevice)
	}
}

func (h *Handler) registerAlarmRoutes(api *gin.RouterGroup) {
	alarms := api.Group("/alarms")
	{
		alarms.GET("", h.listAlarms)
		alarms.PUT("/:id/status", h.updateAlarmStatus)
	}
}

func (h *Handler) registerConfigRoutes(api *gin.RouterGroup) {
	cfg := api.Group("/config")
	{
		cfg.GET("", h.listConfig)
		cfg.GET("/thresholds", h.getThresholds)
		cfg.PUT("", h.requireRole(models.RoleAdmin), h.updateConfig)
	}
}
