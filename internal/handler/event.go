package handler

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/store"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
)

// EventHandler 充电事件的查询、删除、导出与上报
type EventHandler struct {
	Store       store.EventStore
	PageSize    int
	MaxPageSize int
	Log         *slog.Logger
}

// NewEventHandler 构造函数
func NewEventHandler(s store.EventStore, pageSize, maxPageSize int, log *slog.Logger) *EventHandler {
	if pageSize <= 0 {
		pageSize = 20
	}
	if maxPageSize < pageSize {
		maxPageSize = pageSize
	}
	return &EventHandler{Store: s, PageSize: pageSize, MaxPageSize: maxPageSize, Log: log}
}

// ListEvents 分页查询，最新的在前
// GET /api/events?page=1&limit=20
func (h *EventHandler) ListEvents(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	limit, _ := strconv.Atoi(c.Query("limit"))
	if limit <= 0 {
		limit = h.PageSize
	}
	if limit > h.MaxPageSize {
		limit = h.MaxPageSize
	}

	events, total, err := h.Store.ListEvents(c.Request.Context(), page, limit)
	if err != nil {
		h.Log.Error("list events", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	totalPages := (total + int64(limit) - 1) / int64(limit)
	util.Success(c, util.Response{
		"events":      events,
		"total":       total,
		"page":        page,
		"limit":       limit,
		"total_pages": totalPages,
	})
}

// DeleteEvents 删除单条（?id=N）或全部（?all=true）
func (h *EventHandler) DeleteEvents(c *gin.Context) {
	ctx := c.Request.Context()

	if c.Query("all") == "true" {
		n, err := h.Store.DeleteAllEvents(ctx)
		if err != nil {
			h.Log.Error("delete all events", "error", err, "request_id", middleware.RequestID(c))
			util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
			return
		}
		h.Log.Info("deleted all events", "count", n)
		util.Success(c, util.Response{
			"message": "已删除 " + strconv.FormatInt(n, 10) + " 条记录",
			"deleted": n,
		})
		return
	}

	idStr := c.Query("id")
	if idStr == "" {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "缺少事件 ID")
		return
	}
	id, err := strconv.ParseUint(idStr, 10, 64)
	if err != nil || id == 0 {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "无效的事件 ID")
		return
	}

	ok, err := h.Store.DeleteEvent(ctx, uint(id))
	if err != nil {
		h.Log.Error("delete event", "error", err, "id", id, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "删除失败")
		return
	}
	if !ok {
		util.Error(c, http.StatusNotFound, util.CodeNotFound, "事件不存在")
		return
	}
	util.Success(c, util.Response{"message": "事件已删除", "deleted": 1})
}
