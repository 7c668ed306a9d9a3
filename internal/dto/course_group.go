package dto

// ── 教学班模块 DTO ──

// CreateCourseGroupRequest 创建教学班请求
type CreateCourseGroupRequest struct {
	SubjectID   string  `json:"subject_id"   binding:"required,uuid"`
	Name        string  `json:"name"         binding:"required,min=2,max=100"`
	GroupType   string  `json:"group_type"   binding:"omitempty,oneof=REGULAR INTENSIVE"`
	MaxCapacity int     `json:"max_capacity" binding:"omitempty,min=1,max=500"`
	Price       float64 `json:"price"        binding:"omitempty,min=0"`
}

// UpdateCourseGroupRequest 更新教学班请求
// 状态、教师指派走专用接口，不在此修改
type UpdateCourseGroupRequest struct {
	Name        *string  `json:"name"         binding:"omitempty,min=2,max=100"`
	GroupType   *string  `json:"group_type"   binding:"omitempty,oneof=REGULAR INTENSIVE"`
	MaxCapacity *int     `json:"max_capacity" binding:"omitempty,min=1,max=500"`
	Price       *float64 `json:"price"        binding:"omitempty,min=0"`
}

// ChangeGroupStatusRequest 变更教学班状态请求
type ChangeGroupStatusRequest struct {
	Status string `json:"status" binding:"required,oneof=PLANNED ACTIVE CLOSED"`
}

// AssignTeacherRequest 指派教师请求
// TeacherID 为 null 时取消指派
type AssignTeacherRequest struct {
	TeacherID *string `json:"teacher_id" binding:"omitempty,uuid"`
}

// CourseGroupListRequest 教学班列表查询参数
type CourseGroupListRequest struct {
	PaginationRequest
	SubjectID string `form:"subject_id" binding:"omitempty,uuid"`
	TeacherID string `form:"teacher_id" binding:"omitempty,uuid"`
	Status    string `form:"status"     binding:"omitempty,oneof=PLANNED ACTIVE CLOSED"`
}

// CourseGroupResponse 教学班信息响应
type CourseGroupResponse struct {
	ID            string         `json:"id"`
	Name          string         `json:"name"`
	Subject       *SubjectBrief  `json:"subject,omitempty"`
	Teacher       *TeacherBrief  `json:"teacher,omitempty"` // 未指派时为 null
	Status        string         `json:"status"`
	GroupType     string         `json:"group_type"`
	MaxCapacity   int            `json:"max_capacity"`
	EnrolledCount int64          `json:"enrolled_count"`
	Price         float64        `json:"price"`
	Sessions      []SessionBrief `json:"sessions,omitempty"` // 仅详情接口返回
	CreatedAt     string         `json:"created_at"`
	UpdatedAt     string         `json:"updated_at"`
}

// CourseGroupBrief 教学班简要信息（嵌入报名/课次响应）
type CourseGroupBrief struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SubjectName string `json:"subject_name,omitempty"`
	Status      string `json:"status"`
}
