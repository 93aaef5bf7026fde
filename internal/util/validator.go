package util

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"unicode/utf8"
)

// ValidateLatitude 验证纬度（-90 ~ 90）
func ValidateLatitude(lat float64) error {
	if math.IsNaN(lat) || lat < -90 || lat > 90 {
		return fmt.Errorf("latitude out of range, got %f", lat)
	}
	return nil
}

// ValidateLongitude 验证经度（-180 ~ 180）
func ValidateLongitude(lon float64) error {
	if math.IsNaN(lon) || lon < -180 || lon > 180 {
		return fmt.Errorf("longitude out of range, got %f", lon)
	}
	return nil
}

// ValidateBatteryLevel 验证电量百分比（0 ~ 100）
func ValidateBatteryLevel(level int) error {
	if level < 0 || level > 100 {
		return fmt.Errorf("battery_level out of range, got %d", level)
	}
	return nil
}

// ValidateText 验证字符串长度（按字符计）
func ValidateText(field, value string, max int) error {
	if utf8.RuneCountInString(value) > max {
		return fmt.Errorf("%s too long, max %d characters", field, max)
	}
	return nil
}

// ValidatePositiveInt 验证设置项为正整数
func ValidatePositiveInt(field, value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 {
		return fmt.Errorf("%s must be a positive integer", field)
	}
	return nil
}

// ValidatePort 验证端口号（1 ~ 65535）
func ValidatePort(value string) error {
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil || n <= 0 || n > 65535 {
		return fmt.Errorf("port must be between 1 and 65535")
	}
	return nil
}
