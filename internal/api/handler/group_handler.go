package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/service"
	"edusched/backend/pkg/response"
)

// GroupHandler 教学班模块 HTTP 处理器
type GroupHandler struct {
	groupSvc service.CourseGroupService
}

// NewGroupHandler 创建 GroupHandler
func NewGroupHandler(groupSvc service.CourseGroupService) *GroupHandler {
	return &GroupHandler{groupSvc: groupSvc}
}

// CreateGroup 创建教学班（初始状态 PLANNED）
// POST /api/v1/course-groups
func (h *GroupHandler) CreateGroup(c *gin.Context) {
	var req dto.CreateCourseGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	group, err := h.groupSvc.Create(c.Request.Context(), &req, callerID)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.Created(c, group)
}

// GetGroup 获取教学班详情
// GET /api/v1/course-groups/:id
func (h *GroupHandler) GetGroup(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	group, err := h.groupSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// ListGroups 获取教学班列表（分页，可按科目/教师/状态过滤）
// GET /api/v1/course-groups
func (h *GroupHandler) ListGroups(c *gin.Context) {
	var req dto.CourseGroupListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	groups, total, err := h.groupSvc.List(c.Request.Context(), &req)
	if err != nil {
		response.InternalError(c)
		return
	}

	response.OKPage(c, groups, total, req.GetPage(), req.GetPageSize())
}

// UpdateGroup 更新教学班基本信息
// PUT /api/v1/course-groups/:id
func (h *GroupHandler) UpdateGroup(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	var req dto.UpdateCourseGroupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	group, err := h.groupSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// ChangeGroupStatus 教学班状态流转（PLANNED → ACTIVE → CLOSED）
// PUT /api/v1/course-groups/:id/status
func (h *GroupHandler) ChangeGroupStatus(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	var req dto.ChangeGroupStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	group, err := h.groupSvc.ChangeStatus(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// AssignGroupTeacher 指派或撤销授课教师（teacher_id 为 null 表示撤销）
// PUT /api/v1/course-groups/:id/teacher
func (h *GroupHandler) AssignGroupTeacher(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	var req dto.AssignTeacherRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	group, err := h.groupSvc.AssignTeacher(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, group)
}

// DeleteGroup 删除教学班（仅 PLANNED 且无报名记录时允许）
// DELETE /api/v1/course-groups/:id
func (h *GroupHandler) DeleteGroup(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.groupSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleGroupError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleGroupError 统一处理教学班模块业务错误
// 状态机拒绝的迁移返回 409 并附带拒绝原因
func (h *GroupHandler) handleGroupError(c *gin.Context, err error) {
	var transErr *service.InvalidTransitionError
	if errors.As(err, &transErr) {
		response.ErrorWithDetails(c, http.StatusConflict, 16002, "教学班状态流转被拒绝", transErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 16001, "教学班不存在")
	case errors.Is(err, service.ErrGroupCapacityBelowCount):
		response.BadRequest(c, 16003, "名额上限不得低于当前报名人数")
	case errors.Is(err, service.ErrGroupTeacherLocked):
		response.BadRequest(c, 16004, "进行中的教学班必须保留授课教师")
	case errors.Is(err, service.ErrGroupDeleteNotPlanned):
		response.BadRequest(c, 16005, "仅计划中的教学班可以删除")
	case errors.Is(err, service.ErrGroupDeleteHasEnrollments):
		response.BadRequest(c, 16006, "教学班尚有报名记录，无法删除")
	case errors.Is(err, service.ErrSubjectNotFound):
		response.NotFound(c, 13001, "科目不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 14001, "教师不存在")
	default:
		response.InternalError(c)
	}
}
