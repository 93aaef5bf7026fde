package router

import (
	"log/slog"

	"github.com/hst-Sunday/SoloLink/internal/auth"
	"github.com/hst-Sunday/SoloLink/internal/config"
	"github.com/hst-Sunday/SoloLink/internal/handler"
	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/store"

	"github.com/gin-gonic/gin"
)

// Scheduler is what the HTTP layer needs from alert.Scheduler.
type Scheduler interface {
	handler.CycleRunner
	handler.Restarter
}

// Deps are the collaborators the routes are wired to.
type Deps struct {
	Store     store.RecordStore
	Guard     *auth.Guard
	Scheduler Scheduler
	Mailer    handler.Mailer
	Log       *slog.Logger
}

// SetupRouter configures the Gin engine and all API routes.
func SetupRouter(cfg *config.Config, d Deps) (*gin.Engine, error) {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	r := gin.New()
	if err := r.SetTrustedProxies(cfg.Server.TrustedProxies); err != nil {
		return nil, err
	}
	r.Use(middleware.RequestLogger(d.Log), gin.Recovery())

	r.GET("/health", handler.Health)

	// ====== API ======
	api := r.Group("/api")

	// 登录相关（不需要鉴权）
	authHandler := handler.NewAuthHandler(d.Guard, cfg.Server.SecureCookies, d.Log)
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/logout", authHandler.Logout)
	api.GET("/auth/check", authHandler.Check)

	eventHandler := handler.NewEventHandler(d.Store, cfg.App.PageSize, cfg.App.MaxPageSize, d.Log)
	alertHandler := handler.NewAlertHandler(d.Scheduler, d.Mailer, d.Store, d.Log)

	// 设备与外部 cron 调用，配置了 api_key 时校验
	device := api.Group("")
	device.Use(middleware.APIKeyAuth(d.Store, d.Log))
	device.POST("/location", eventHandler.ReportLocation)
	device.GET("/alert/check", alertHandler.Check)

	api.GET("/location", handler.LocationUsage)

	// 需要登录才能访问的接口
	protected := api.Group("")
	protected.Use(middleware.SessionAuth(d.Guard, d.Log))

	protected.GET("/events", eventHandler.ListEvents)
	protected.DELETE("/events", eventHandler.DeleteEvents)
	protected.GET("/events/export/csv", eventHandler.ExportCSV)
	protected.GET("/events/export/xlsx", eventHandler.ExportXLSX)

	settingsHandler := handler.NewSettingsHandler(d.Store, d.Scheduler, d.Log)
	protected.GET("/settings", settingsHandler.GetSettings)
	protected.POST("/settings", settingsHandler.SaveSettings)
	protected.POST("/settings/api-key", settingsHandler.RotateAPIKey)

	protected.POST("/email/test", alertHandler.TestEmail)

	return r, nil
}
