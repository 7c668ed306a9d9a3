package handler

import (
	"errors"

	"github.com/gin-gonic/gin"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/service"
	"edusched/backend/pkg/response"
)

// TimetableHandler 课表查询模块 HTTP 处理器
type TimetableHandler struct {
	timetableSvc service.TimetableService
}

// NewTimetableHandler 创建 TimetableHandler
func NewTimetableHandler(timetableSvc service.TimetableService) *TimetableHandler {
	return &TimetableHandler{timetableSvc: timetableSvc}
}

// GetGroupTimetable 获取教学班周课表
// GET /api/v1/course-groups/:id/timetable
func (h *TimetableHandler) GetGroupTimetable(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	timetable, err := h.timetableSvc.GroupTimetable(c.Request.Context(), id)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, timetable)
}

// GetTeacherTimetable 获取教师跨班周课表
// GET /api/v1/teachers/:id/timetable
func (h *TimetableHandler) GetTeacherTimetable(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "教师ID不能为空")
		return
	}

	timetable, err := h.timetableSvc.TeacherTimetable(c.Request.Context(), id)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, timetable)
}

// GetClassroomTimetable 获取教室周课表
// GET /api/v1/classrooms/:name/timetable
func (h *TimetableHandler) GetClassroomTimetable(c *gin.Context) {
	name := c.Param("name")

	timetable, err := h.timetableSvc.ClassroomTimetable(c.Request.Context(), name)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, timetable)
}

// GetClassroomOccupancy 按教室聚合占用概览，可选按星期过滤
// GET /api/v1/classrooms/occupancy
func (h *TimetableHandler) GetClassroomOccupancy(c *gin.Context) {
	var req dto.ClassroomOccupancyRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	occupancy, err := h.timetableSvc.ClassroomOccupancy(c.Request.Context(), &req)
	if err != nil {
		h.handleTimetableError(c, err)
		return
	}

	response.OK(c, occupancy)
}

// handleTimetableError 统一处理课表模块业务错误
func (h *TimetableHandler) handleTimetableError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrClassroomRequired):
		response.BadRequest(c, 19001, "教室名称不能为空")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 16001, "教学班不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 14001, "教师不存在")
	default:
		response.InternalError(c)
	}
}
