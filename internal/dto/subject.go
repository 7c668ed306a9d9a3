package dto

// ── 科目模块 DTO ──

// CreateSubjectRequest 创建科目请求
type CreateSubjectRequest struct {
	Name       string `json:"name"        binding:"required,min=2,max=100"`
	Major      string `json:"major"       binding:"required,min=2,max=100"`
	CourseYear int    `json:"course_year" binding:"required,min=1,max=6"`
}

// UpdateSubjectRequest 更新科目请求
type UpdateSubjectRequest struct {
	Name       *string `json:"name"        binding:"omitempty,min=2,max=100"`
	Major      *string `json:"major"       binding:"omitempty,min=2,max=100"`
	CourseYear *int    `json:"course_year" binding:"omitempty,min=1,max=6"`
}

// SubjectListRequest 科目列表查询参数
type SubjectListRequest struct {
	PaginationRequest
	Major      string `form:"major"       binding:"omitempty,max=100"`
	CourseYear *int   `form:"course_year" binding:"omitempty,min=1,max=6"`
	Keyword    string `form:"keyword"     binding:"omitempty,max=50"`
}

// SubjectResponse 科目信息响应
type SubjectResponse struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Major      string `json:"major"`
	CourseYear int    `json:"course_year"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

// SubjectBrief 科目简要信息（嵌入教学班响应）
type SubjectBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Major string `json:"major"`
}
