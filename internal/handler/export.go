package handler

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/hst-Sunday/SoloLink/internal/middleware"
	"github.com/hst-Sunday/SoloLink/internal/models"
	"github.com/hst-Sunday/SoloLink/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"
)

const exportSheet = "充电事件"

var exportHeaders = []string{"ID", "时间", "类型", "纬度", "经度", "地址", "电量(%)", "充电中", "设备名称", "设备型号"}

// exportRow 把事件转换为导出的一行，空字段输出为空字符串
func exportRow(e models.ChargingEvent) []string {
	charging := "否"
	if e.IsCharging {
		charging = "是"
	}
	return []string{
		strconv.FormatUint(uint64(e.ID), 10),
		e.CreatedAt.Local().Format("2006-01-02 15:04:05"),
		e.EventType,
		optFloat(e.Latitude),
		optFloat(e.Longitude),
		optString(e.Address),
		optInt(e.BatteryLevel),
		charging,
		optString(e.DeviceName),
		optString(e.DeviceModel),
	}
}

func optFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func optInt(v *int) string {
	if v == nil {
		return ""
	}
	return strconv.Itoa(*v)
}

func optString(v *string) string {
	if v == nil {
		return ""
	}
	return *v
}

// ExportCSV 导出全部充电事件为 CSV
func (h *EventHandler) ExportCSV(c *gin.Context) {
	events, err := h.Store.AllEvents(c.Request.Context())
	if err != nil {
		h.Log.Error("export events", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	// 设置响应头
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"charging_events_%s.csv\"",
		time.Now().Format("20060102")))

	// UTF-8 BOM（让 Excel 正确识别中文）
	c.Writer.Write([]byte{0xEF, 0xBB, 0xBF})

	writer := csv.NewWriter(c.Writer)
	writer.Write(exportHeaders)
	for _, e := range events {
		writer.Write(exportRow(e))
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		h.Log.Error("write csv", "error", err)
	}
}

// ExportXLSX 导出全部充电事件为 XLSX
func (h *EventHandler) ExportXLSX(c *gin.Context) {
	events, err := h.Store.AllEvents(c.Request.Context())
	if err != nil {
		h.Log.Error("export events", "error", err, "request_id", middleware.RequestID(c))
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "查询失败")
		return
	}

	f := excelize.NewFile()
	defer f.Close()

	// 默认工作表直接改名
	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		util.Error(c, http.StatusInternalServerError, util.CodeServerErr, "创建工作表失败")
		return
	}
	sheetName := exportSheet

	// 设置表头
	for i, title := range exportHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheetName, cell, title)
	}

	// 写入数据
	for idx, e := range events {
		row := idx + 2
		for col, v := range exportRow(e) {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			f.SetCellValue(sheetName, cell, v)
		}
	}

	// 设置列宽
	f.SetColWidth(sheetName, "A", "A", 8)
	f.SetColWidth(sheetName, "B", "B", 20)
	f.SetColWidth(sheetName, "C", "E", 12)
	f.SetColWidth(sheetName, "F", "F", 36)
	f.SetColWidth(sheetName, "G", "H", 10)
	f.SetColWidth(sheetName, "I", "J", 18)

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=\"charging_events_%s.xlsx\"",
		time.Now().Format("20060102")))

	if err := f.Write(c.Writer); err != nil {
		h.Log.Error("write xlsx", "error", err)
	}
}
