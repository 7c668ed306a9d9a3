package dto

// ── 课表模块 DTO ──

// TimetableEntry 课表条目
type TimetableEntry struct {
	SessionID   string `json:"session_id"`
	GroupID     string `json:"group_id"`
	GroupName   string `json:"group_name"`
	SubjectName string `json:"subject_name"`
	TeacherName string `json:"teacher_name,omitempty"`
	DayOfWeek   int    `json:"day_of_week"`
	DayName     string `json:"day_name"`
	StartTime   string `json:"start_time"`
	EndTime     string `json:"end_time"`
	Classroom   string `json:"classroom,omitempty"`
}

// TimetableResponse 周课表响应（条目按星期与开始时刻排序）
type TimetableResponse struct {
	Scope   string           `json:"scope"` // group | teacher | classroom
	ScopeID string           `json:"scope_id"`
	Entries []TimetableEntry `json:"entries"`
}

// ClassroomOccupancyRequest 教室占用查询参数
type ClassroomOccupancyRequest struct {
	DayOfWeek *int `form:"day_of_week" binding:"omitempty,min=1,max=7"`
}

// ClassroomOccupancyResponse 教室占用报表响应
type ClassroomOccupancyResponse struct {
	Classrooms []ClassroomOccupancyItem `json:"classrooms"`
}

// ClassroomOccupancyItem 单间教室的占用情况
type ClassroomOccupancyItem struct {
	Classroom string           `json:"classroom"`
	Entries   []TimetableEntry `json:"entries"`
}
