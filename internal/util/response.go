package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// 通用返回结构里的 data 使用 map
type Response map[string]interface{}

// 业务错误码
const (
	CodeOK           = 0
	CodeInvalidParam = 40001
	CodeAuth         = 40101
	CodeAPIKey       = 40102
	CodeNotFound     = 40401
	CodeLocked       = 42901
	CodeServerErr    = 50001
	CodeConfig       = 50002
)

// Success 统一成功返回
func Success(c *gin.Context, data Response) {
	c.JSON(http.StatusOK, gin.H{
		"code": CodeOK,
		"data": data,
	})
}

// Error 统一错误返回
func Error(c *gin.Context, httpStatus int, code int, msg string) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
	})
}

// ErrorWithData 错误返回并附带额外字段（剩余尝试次数、锁定时间等）
func ErrorWithData(c *gin.Context, httpStatus int, code int, msg string, data Response) {
	c.JSON(httpStatus, gin.H{
		"code":    code,
		"message": msg,
		"data":    data,
	})
}
