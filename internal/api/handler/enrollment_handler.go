package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/service"
	"edusched/backend/pkg/response"
)

// EnrollmentHandler 报名模块 HTTP 处理器
type EnrollmentHandler struct {
	enrollSvc service.EnrollmentService
}

// NewEnrollmentHandler 创建 EnrollmentHandler
func NewEnrollmentHandler(enrollSvc service.EnrollmentService) *EnrollmentHandler {
	return &EnrollmentHandler{enrollSvc: enrollSvc}
}

// EnrollStudent 学生报名教学班（名额闸门 + 重复报名检查）
// POST /api/v1/enrollments
func (h *EnrollmentHandler) EnrollStudent(c *gin.Context) {
	var req dto.EnrollStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollSvc.Enroll(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.Created(c, enrollment)
}

// GetEnrollment 获取报名详情
// GET /api/v1/enrollments/:id
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	enrollment, err := h.enrollSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, enrollment)
}

// ListEnrollments 获取报名列表（分页，可按学生/教学班/缴费状态过滤）
// GET /api/v1/enrollments
func (h *EnrollmentHandler) ListEnrollments(c *gin.Context) {
	var req dto.EnrollmentListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	enrollments, total, err := h.enrollSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, enrollments, total, req.GetPage(), req.GetPageSize())
}

// UpdatePaymentStatus 更新缴费状态（PENDING → PAID / FAILED，FAILED → PAID）
// PUT /api/v1/enrollments/:id/payment-status
func (h *EnrollmentHandler) UpdatePaymentStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	var req dto.UpdatePaymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	enrollment, err := h.enrollSvc.UpdatePaymentStatus(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, enrollment)
}

// CancelEnrollment 取消报名，释放名额
// DELETE /api/v1/enrollments/:id
func (h *EnrollmentHandler) CancelEnrollment(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "报名ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.enrollSvc.Cancel(c.Request.Context(), id, callerID); err != nil {
		h.handleEnrollmentError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleEnrollmentError 统一处理报名模块业务错误
func (h *EnrollmentHandler) handleEnrollmentError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrEnrollmentNotFound):
		response.NotFound(c, 18001, "报名记录不存在")
	case errors.Is(err, service.ErrEnrollmentGroupNotActive):
		response.BadRequest(c, 18002, "仅进行中的教学班可接受报名")
	case errors.Is(err, service.ErrEnrollmentAtCapacity):
		response.Conflict(c, 18003, "教学班名额已满")
	case errors.Is(err, service.ErrEnrollmentDuplicate):
		response.Conflict(c, 18004, "该学生已报名此教学班")
	case errors.Is(err, service.ErrEnrollmentMajorMismatch):
		response.BadRequest(c, 18005, "学生专业与科目专业不匹配")
	case errors.Is(err, service.ErrEnrollmentAlreadyPaid):
		response.BadRequest(c, 18006, "已缴费的报名不能直接取消")
	case errors.Is(err, service.ErrEnrollmentGroupClosed):
		response.BadRequest(c, 18007, "教学班已结课，报名记录不可变更")
	case errors.Is(err, service.ErrPaymentTransitionInvalid):
		response.BadRequest(c, 18008, "非法的缴费状态流转")
	case errors.Is(err, service.ErrStudentNotFound):
		response.NotFound(c, 15001, "学生不存在")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 16001, "教学班不存在")
	default:
		response.InternalError(c)
	}
}
