package dto

// ── 报名模块 DTO ──

// EnrollStudentRequest 报名请求
type EnrollStudentRequest struct {
	StudentID     string `json:"student_id"      binding:"required,uuid"`
	CourseGroupID string `json:"course_group_id" binding:"required,uuid"`
}

// UpdatePaymentStatusRequest 更新缴费状态请求
type UpdatePaymentStatusRequest struct {
	PaymentStatus string `json:"payment_status" binding:"required,oneof=PENDING PAID FAILED"`
}

// EnrollmentListRequest 报名列表查询参数
type EnrollmentListRequest struct {
	PaginationRequest
	StudentID     string `form:"student_id"      binding:"omitempty,uuid"`
	CourseGroupID string `form:"course_group_id" binding:"omitempty,uuid"`
	PaymentStatus string `form:"payment_status"  binding:"omitempty,oneof=PENDING PAID FAILED"`
}

// EnrollmentResponse 报名信息响应
type EnrollmentResponse struct {
	ID            string            `json:"id"`
	Student       *StudentBrief     `json:"student,omitempty"`
	Group         *CourseGroupBrief `json:"group,omitempty"`
	PaymentStatus string            `json:"payment_status"`
	CreatedAt     string            `json:"created_at"`
}
