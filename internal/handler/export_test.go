package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strings"
	"testing"

	"github.com/xuri/excelize/v2"
)

func TestExportCSV(t *testing.T) {
	env := newTestEnv(t, testAdmin)
	env.do(t, http.MethodPost, "/api/location", `{"latitude": 31.5, "address": "上海", "battery_level": 42}`)
	env.do(t, http.MethodPost, "/api/location", `{"is_charging": false}`)

	w := env.do(t, http.MethodGet, "/api/events/export/csv", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Disposition"), "attachment;") {
		t.Errorf("Content-Disposition = %q", w.Header().Get("Content-Disposition"))
	}

	body := w.Body.Bytes()
	if !bytes.HasPrefix(body, []byte{0xEF, 0xBB, 0xBF}) {
		t.Fatal("missing UTF-8 BOM")
	}
	rows, err := csv.NewReader(bytes.NewReader(body[3:])).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("rows = %d, want header + 2", len(rows))
	}
	if rows[0][0] != "ID" {
		t.Errorf("header = %v", rows[0])
	}
	// 最新的在前
	if rows[1][0] != "2" || rows[1][7] != "否" {
		t.Errorf("first row = %v", rows[1])
	}
	if rows[2][3] != "31.5" || rows[2][5] != "上海" || rows[2][6] != "42" || rows[2][4] != "" {
		t.Errorf("second row = %v", rows[2])
	}
}

func TestExportXLSX(t *testing.T) {
	env := newTestEnv(t, testAdmin)
	env.do(t, http.MethodPost, "/api/location", `{"device_model": "iPhone15,2"}`)

	w := env.do(t, http.MethodGet, "/api/events/export/xlsx", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}

	f, err := excelize.OpenReader(bytes.NewReader(w.Body.Bytes()))
	if err != nil {
		t.Fatalf("open xlsx: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatalf("GetRows: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(rows))
	}
	if rows[0][1] != "时间" || rows[1][9] != "iPhone15,2" {
		t.Errorf("rows = %v", rows)
	}
}
