package dto

// ── 课次模块 DTO ──

// CreateSessionRequest 创建课次请求（归属教学班由路径参数指定）
type CreateSessionRequest struct {
	DayOfWeek int    `json:"day_of_week" binding:"required,min=1,max=7"`
	StartTime string `json:"start_time"  binding:"required"` // "16:00"
	EndTime   string `json:"end_time"    binding:"required"` // "18:00"
	Classroom string `json:"classroom"   binding:"omitempty,max=50"`
}

// UpdateSessionRequest 更新课次请求
type UpdateSessionRequest struct {
	DayOfWeek *int    `json:"day_of_week" binding:"omitempty,min=1,max=7"`
	StartTime *string `json:"start_time"`
	EndTime   *string `json:"end_time"`
	Classroom *string `json:"classroom"   binding:"omitempty,max=50"`
}

// SessionBrief 课次简要信息（嵌入教学班详情）
type SessionBrief struct {
	ID        string `json:"id"`
	DayOfWeek int    `json:"day_of_week"`
	DayName   string `json:"day_name"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Classroom string `json:"classroom,omitempty"`
}

// SessionResponse 课次信息响应
type SessionResponse struct {
	ID        string            `json:"id"`
	Group     *CourseGroupBrief `json:"group,omitempty"`
	DayOfWeek int               `json:"day_of_week"`
	DayName   string            `json:"day_name"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Classroom string            `json:"classroom,omitempty"`
	CreatedAt string            `json:"created_at"`
	UpdatedAt string            `json:"updated_at"`
}
