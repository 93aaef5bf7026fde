package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
)

// PasswordMask 读取设置时替代 smtp_pass，写入时遇到则忽略
const PasswordMask = "••••••••"

const apiKeyLength = 32

// editableSettings 允许通过接口修改的设置键
var editableSettings = map[string]bool{
	models.SettingAPIKey:               true,
	models.SettingSMTPHost:             true,
	models.SettingSMTPPort:             true,
	models.SettingSMTPUser:             true,
	models.SettingSMTPPass:             true,
	models.SettingSMTPSecure:           true,
	models.SettingEmailFrom:            true,
	models.SettingEmailTo:              true,
	models.SettingAlertHours:           true,
	models.SettingAlertSubject:         true,
	models.SettingAlertBody:            true,
	models.SettingCheckIntervalMinutes: true,
}

// Restarter 重新读取检查间隔并重启定时任务，由 alert.Scheduler 实现
type Restarter interface {
	Restart()
}

// SettingsHandler 系统设置读写
type SettingsHandler struct {
	Store     store.SettingStore
	Scheduler Restarter
	Log       *slog.Logger
}

// NewSettingsHandler 构造函数
func NewSettingsHandler(s store.SettingStore, sched Restarter, log *slog.Logger) *SettingsHandler {
	return &SettingsHandler{Store: s, Scheduler: sched, Log: log}
}

// GetSettings 返回全部设置，smtp_pass 打码
func (h *SettingsHandler) GetSettings(c *gin.Context) {
	settings, err := h.Store.AllSettings(c.Request.Context())
	if err != nil {
		h.Log.Error("read settings", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}
	if settings[models.SettingSMTPPass] != "" {
		settings[models.SettingSMTPPass] = PasswordMask
	}
	util.Success(c, util.Response{"settings": settings})
}

type saveSettingsReq struct {
	Settings map[string]any `json:"settings"`
}

// SaveSettings 保存设置。未知键忽略；任一值校验失败则整体不写入。
func (h *SettingsHandler) SaveSettings(c *gin.Context) {
	var req saveSettingsReq
	if err := c.ShouldBindJSON(&req); err != nil || req.Settings == nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "无效的设置数据")
		return
	}

	updates, err := normalizeSettings(req.Settings)
	if err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	ctx := c.Request.Context()
	for key, value := range updates {
		if err := h.Store.SetSetting(ctx, key, value); err != nil {
			h.Log.Error("save setting", "error", err, "key", key, "request_id", middleware.RequestID(c))
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
			return
		}
	}

	// 检查间隔变化时重启定时任务
	if _, ok := updates[models.SettingCheckIntervalMinutes]; ok && h.Scheduler != nil {
		h.Scheduler.Restart()
	}

	h.Log.Info("settings saved", "keys", len(updates))
	util.Success(c, util.Response{"message": "设置已保存"})
}

// RotateAPIKey 生成新的 API Key 并立即生效
// POST /api/settings/api-key
func (h *SettingsHandler) RotateAPIKey(c *gin.Context) {
	key, err := util.RandomString(apiKeyLength)
	if err != nil {
		h.Log.Error("generate api key", "error", err)
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}
	if err := h.Store.SetSetting(c.Request.Context(), models.SettingAPIKey, key); err != nil {
		h.Log.Error("save api key", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}
	h.Log.Info("api key rotated")
	util.Success(c, util.Response{"api_key": key})
}

// normalizeSettings 过滤允许的键并把值转成字符串
func normalizeSettings(in map[string]any) (map[string]string, error) {
	out := make(map[string]string, len(in))
	for key, raw := range in {
		if !editableSettings[key] {
			continue
		}
		value, err := settingString(raw)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", key, err)
		}
		value = strings.TrimSpace(value)

		switch key {
		case models.SettingSMTPPass:
			// 打码占位符表示不修改密码
			if value == PasswordMask {
				continue
			}
		case models.SettingAlertHours, models.SettingCheckIntervalMinutes:
			if err := util.ValidatePositiveInt(key, value); err != nil {
				return nil, err
			}
		case models.SettingSMTPPort:
			if err := util.ValidatePort(value); err != nil {
				return nil, err
			}
		case models.SettingSMTPSecure:
			b, err := strconv.ParseBool(value)
			if err != nil {
				return nil, fmt.Errorf("smtp_secure must be true or false")
			}
			value = strconv.FormatBool(b)
		}
		out[key] = value
	}
	return out, nil
}

func settingString(v any) (string, error) {
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case bool:
		return strconv.FormatBool(t), nil
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), nil
	case json.Number:
		return t.String(), nil
	default:
		return "", fmt.Errorf("unsupported value type %T", v)
	}
}
