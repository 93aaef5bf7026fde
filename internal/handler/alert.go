package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hst-Sunday/SoloLink/internal/alert"
	"github.com/hst-Sunday/SoloLink/internal/mailer"
	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
)

const (
	testSubject = "测试邮件 - iOS 充电事件监控"
	testBody    = "这是一封测试邮件，如果您收到此邮件，说明邮件配置正确。"
)

// CycleRunner 立即执行一次检查，由 alert.Scheduler 实现
type CycleRunner interface {
	RunNow(ctx context.Context) (alert.Result, error)
}

// Mailer 发送邮件，由 mailer.SMTPTransport 实现
type Mailer interface {
	alert.Transport
	Configured(ctx context.Context) (bool, error)
}

// AlertHandler 手动触发检查与测试邮件
type AlertHandler struct {
	Runner   CycleRunner
	Mailer   Mailer
	Settings store.SettingStore
	Log      *slog.Logger
}

// NewAlertHandler 构造函数
func NewAlertHandler(r CycleRunner, m Mailer, s store.SettingStore, log *slog.Logger) *AlertHandler {
	return &AlertHandler{Runner: r, Mailer: m, Settings: s, Log: log}
}

// Check 立即执行一次检查，可由外部 cron 调用
// GET /api/alert/check
func (h *AlertHandler) Check(c *gin.Context) {
	ctx := c.Request.Context()
	res, err := h.Runner.RunNow(ctx)
	if err != nil {
		h.Log.Error("alert check", "error", err, "sent", res.Sent, "request_id", middleware.RequestID(c))
		// 邮件已发出但标记写入失败时仍返回发送结果
		if !res.Sent {
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
			return
		}
	}
	if res.Err != nil {
		h.Log.Warn("alert send failed", "error", res.Err, "request_id", middleware.RequestID(c))
	}

	interval, _, err := h.Settings.GetSetting(ctx, models.SettingCheckIntervalMinutes)
	if err != nil {
		h.Log.Warn("read check interval", "error", err)
	}
	if _, convErr := strconv.Atoi(interval); convErr != nil {
		interval = models.DefaultSettings[models.SettingCheckIntervalMinutes]
	}

	util.Success(c, util.Response{
		"checked":       true,
		"alert_sent":    res.Sent,
		"reason":        res.Reason,
		"next_check_in": interval + " 分钟",
	})
}

// TestEmail 用当前设置发送一封测试邮件
// POST /api/email/test
func (h *AlertHandler) TestEmail(c *gin.Context) {
	ctx := c.Request.Context()
	ok, err := h.Mailer.Configured(ctx)
	if err != nil {
		h.Log.Error("read email settings", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}
	if !ok {
		util.Error(c, http.StatusBadRequest, util.CodeConfig, "邮件配置不完整，请先完成设置")
		return
	}

	if err := h.Mailer.Send(ctx, testSubject, testBody); err != nil {
		if errors.Is(err, mailer.ErrNotConfigured) {
			util.Error(c, http.StatusBadRequest, util.CodeConfig, "邮件配置不完整，请先完成设置")
			return
		}
		// 错误详情可能含有 SMTP 凭据信息，只写日志
		h.Log.Error("send test email", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusBadGateway, util.CodeServerErr, "邮件发送失败，请检查 SMTP 设置")
		return
	}
	util.Success(c, util.Response{"message": "测试邮件已发送"})
}

// Health 存活检查
func Health(c *gin.Context) {
	util.Success(c, util.Response{"status": "ok"})
}
