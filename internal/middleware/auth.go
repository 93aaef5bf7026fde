package middleware

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"

	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/store"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
)

// SessionCookie 管理员会话 cookie 名称
const SessionCookie = "session_id"

// SessionValidator 由 auth.Guard 实现
type SessionValidator interface {
	ValidateSession(ctx context.Context, id string) (bool, error)
}

// SessionAuth 校验 session_id cookie，未登录或会话过期返回 401。
func SessionAuth(v SessionValidator, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, _ := c.Cookie(SessionCookie)
		if id == "" {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "未授权")
			c.Abort()
			return
		}

		ok, err := v.ValidateSession(c.Request.Context(), id)
		if err != nil {
			// 存储异常时拒绝访问
			log.Error("validate session", "error", err, "request_id", RequestID(c))
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
			c.Abort()
			return
		}
		if !ok {
			util.Error(c, http.StatusUnauthorized, util.CodeAuth, "登录已失效，请重新登录")
			c.Abort()
			return
		}

		c.Next()
	}
}

// APIKeyAuth 在设置了 api_key 时要求请求携带相同的 key：
// Header X-API-Key 或 Authorization: Bearer xxx。未设置时放行。
func APIKeyAuth(settings store.SettingStore, log *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		configured, _, err := settings.GetSetting(c.Request.Context(), models.SettingAPIKey)
		if err != nil {
			log.Error("read api key", "error", err, "request_id", RequestID(c))
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
			c.Abort()
			return
		}
		if configured == "" {
			c.Next()
			return
		}

		provided := c.GetHeader("X-API-Key")
		if provided == "" {
			authHeader := c.GetHeader("Authorization")
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
				provided = strings.TrimSpace(parts[1])
			}
		}

		if subtle.ConstantTimeCompare([]byte(provided), []byte(configured)) != 1 {
			util.Error(c, http.StatusUnauthorized, util.CodeAPIKey, "无效的 API Key")
			c.Abort()
			return
		}
		c.Next()
	}
}
