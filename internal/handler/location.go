package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
)

const maxReportBytes = 64 << 10

// 字符串字段长度上限，与表结构一致
const (
	maxAddressLen = 255
	maxDeviceLen  = 128
)

type locationReq struct {
	Latitude     *float64 `json:"latitude"`
	Longitude    *float64 `json:"longitude"`
	Address      *string  `json:"address"`
	BatteryLevel *int     `json:"battery_level"`
	IsCharging   *bool    `json:"is_charging"`
	DeviceName   *string  `json:"device_name"`
	DeviceModel  *string  `json:"device_model"`
}

func (r *locationReq) validate() error {
	if r.Latitude != nil {
		if err := util.ValidateLatitude(*r.Latitude); err != nil {
			return err
		}
	}
	if r.Longitude != nil {
		if err := util.ValidateLongitude(*r.Longitude); err != nil {
			return err
		}
	}
	if r.BatteryLevel != nil {
		if err := util.ValidateBatteryLevel(*r.BatteryLevel); err != nil {
			return err
		}
	}
	for _, f := range []struct {
		name string
		v    *string
		max  int
	}{
		{"address", r.Address, maxAddressLen},
		{"device_name", r.DeviceName, maxDeviceLen},
		{"device_model", r.DeviceModel, maxDeviceLen},
	} {
		if f.v != nil {
			if err := util.ValidateText(f.name, *f.v, f.max); err != nil {
				return err
			}
		}
	}
	return nil
}

// ReportLocation 接收设备上报的充电事件
// POST /api/location
func (h *EventHandler) ReportLocation(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxReportBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			util.Error(c, http.StatusRequestEntityTooLarge, util.CodeInvalidParam, "请求体过大")
			return
		}
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "读取请求失败")
		return
	}

	var req locationReq
	if err := json.Unmarshal(body, &req); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, "参数错误")
		return
	}
	if err := req.validate(); err != nil {
		util.Error(c, http.StatusBadRequest, util.CodeInvalidParam, err.Error())
		return
	}

	// raw_data 保存原始请求体，压缩空白
	raw := body
	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err == nil {
		raw = compact.Bytes()
	}

	isCharging := true
	if req.IsCharging != nil {
		isCharging = *req.IsCharging
	}

	event := models.ChargingEvent{
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		Address:      req.Address,
		BatteryLevel: req.BatteryLevel,
		IsCharging:   isCharging,
		DeviceName:   req.DeviceName,
		DeviceModel:  req.DeviceModel,
		RawData:      string(raw),
	}
	if err := h.Store.CreateEvent(c.Request.Context(), &event); err != nil {
		h.Log.Error("record charging event", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "服务器内部错误")
		return
	}

	h.Log.Info("charging event recorded", "event_id", event.ID, "charging", isCharging)
	util.Success(c, util.Response{
		"message":    "充电事件已记录",
		"event_id":   event.ID,
		"created_at": event.CreatedAt,
	})
}

// LocationUsage 返回上报接口说明
// GET /api/location
func LocationUsage(c *gin.Context) {
	util.Success(c, util.Response{
		"message": "iOS 充电事件接收接口",
		"method":  http.MethodPost,
		"headers": gin.H{
			"Content-Type": "application/json",
			"X-API-Key":    "您的API密钥（如果已配置）",
		},
		"body": gin.H{
			"latitude":      "纬度（可选）",
			"longitude":     "经度（可选）",
			"address":       "地址（可选）",
			"battery_level": "电池电量（可选）",
			"is_charging":   "是否充电（可选，默认true）",
			"device_name":   "设备名称（可选）",
			"device_model":  "设备型号（可选）",
		},
	})
}
