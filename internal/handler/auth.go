package handler

import (
	"errors"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"

	"github.com/hst-Sunday/SoloLink/internal/auth"
	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
)

// AuthHandler 负责管理员登录/登出/会话检查
type AuthHandler struct {
	Guard         *auth.Guard
	SecureCookies bool
	Log           *slog.Logger
}

// NewAuthHandler 构造函数
func NewAuthHandler(g *auth.Guard, secureCookies bool, log *slog.Logger) *AuthHandler {
	return &AuthHandler{Guard: g, SecureCookies: secureCookies, Log: log}
}

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login 校验账号密码，成功后写入 session_id cookie。
func (h *AuthHandler) Login(c *gin.Context) {
	var req loginReq
	if err := c.ShouldBindJSON(&req); err != nil || strings.TrimSpace(req.Username) == "" || req.Password == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "用户名和密码不能为空")
		return
	}

	ip := c.ClientIP()
	res, err := h.Guard.Login(c.Request.Context(), req.Username, req.Password, ip)
	if err != nil {
		h.loginError(c, ip, err)
		return
	}

	h.setSessionCookie(c, res.SessionID, int(auth.SessionTTL.Seconds()))
	h.Log.Info("admin login", "ip", ip, "request_id", middleware.RequestID(c))
	util.Success(c, util.Response{
		"message":    "登录成功",
		"expires_at": res.ExpiresAt,
	})
}

func (h *AuthHandler) loginError(c *gin.Context, ip string, err error) {
	var locked *auth.LockedOutError
	var invalid *auth.InvalidCredentialsError
	switch {
	case errors.As(err, &locked):
		minutes := int(math.Ceil(locked.Remaining.Minutes()))
		util.ErrorWithData(c, http.StatusTooManyRequests, util.CodeLocked,
			fmt.Sprintf("登录失败次数过多，请 %d 分钟后再试", minutes),
			util.Response{
				"locked_for_seconds": int64(math.Ceil(locked.Remaining.Seconds())),
				"locked_until":       locked.Until.UTC(),
			})
	case errors.As(err, &invalid):
		h.Log.Warn("admin login failed", "ip", ip, "remaining_attempts", invalid.RemainingAttempts)
		util.ErrorWithData(c, http.StatusUnauthorized, util.CodeAuth,
			fmt.Sprintf("用户名或密码错误，还剩 %d 次尝试机会", invalid.RemainingAttempts),
			util.Response{"remaining_attempts": invalid.RemainingAttempts})
	case errors.Is(err, auth.ErrNotConfigured):
		h.Log.Error("admin login rejected: admin identity not configured")
		util.Error(c, http.StatusInternalServerError, util.CodeConfig, "管理员账号未配置")
	default:
		h.Log.Error("admin login", "error", err, "ip", ip, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
	}
}

// Logout 删除会话并清除 cookie
func (h *AuthHandler) Logout(c *gin.Context) {
	id, _ := c.Cookie(middleware.SessionCookie)
	h.setSessionCookie(c, "", -1)
	if err := h.Guard.Logout(c.Request.Context(), id); err != nil {
		h.Log.Error("logout", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}
	util.Success(c, util.Response{"message": "已退出登录"})
}

// Check 返回当前 cookie 是否对应有效会话
func (h *AuthHandler) Check(c *gin.Context) {
	id, _ := c.Cookie(middleware.SessionCookie)
	ok, err := h.Guard.ValidateSession(c.Request.Context(), id)
	if err != nil {
		h.Log.Error("check session", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}
	util.Success(c, util.Response{"authenticated": ok})
}

func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(middleware.SessionCookie, value, maxAge, "/", "", h.SecureCookies, true)
}
