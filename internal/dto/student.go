package dto

// ── 学生模块 DTO ──

// CreateStudentRequest 创建学生请求
type CreateStudentRequest struct {
	Name  string `json:"name"  binding:"required,min=2,max=100"`
	Email string `json:"email" binding:"required,email"`
	Major string `json:"major" binding:"required,min=2,max=100"`
}

// UpdateStudentRequest 更新学生请求
type UpdateStudentRequest struct {
	Name  *string `json:"name"  binding:"omitempty,min=2,max=100"`
	Email *string `json:"email" binding:"omitempty,email"`
	Major *string `json:"major" binding:"omitempty,min=2,max=100"`
}

// StudentListRequest 学生列表查询参数
type StudentListRequest struct {
	PaginationRequest
	Major   string `form:"major"   binding:"omitempty,max=100"`
	Keyword string `form:"keyword" binding:"omitempty,max=50"`
}

// StudentResponse 学生信息响应
type StudentResponse struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	Major     string `json:"major"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// StudentBrief 学生简要信息（嵌入报名响应）
type StudentBrief struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Major string `json:"major"`
}

// ImportStudentResponse 批量导入学生响应
type ImportStudentResponse struct {
	Total   int                  `json:"total"`
	Success int                  `json:"success"`
	Failed  int                  `json:"failed"`
	Errors  []ImportStudentError `json:"errors,omitempty"`
}

// ImportStudentError 导入错误详情
type ImportStudentError struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}
