package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/service"
	"edusched/backend/pkg/response"
)

// SessionHandler 课次排课模块 HTTP 处理器
type SessionHandler struct {
	sessionSvc service.SessionService
}

// NewSessionHandler 创建 SessionHandler
func NewSessionHandler(sessionSvc service.SessionService) *SessionHandler {
	return &SessionHandler{sessionSvc: sessionSvc}
}

// CreateSession 在教学班下新增每周课次
// POST /api/v1/course-groups/:id/sessions
func (h *SessionHandler) CreateSession(c *gin.Context) {
	groupID := c.Param("id")
	if groupID == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	var req dto.CreateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Create(c.Request.Context(), groupID, &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.Created(c, session)
}

// ListGroupSessions 获取教学班的全部课次
// GET /api/v1/course-groups/:id/sessions
func (h *SessionHandler) ListGroupSessions(c *gin.Context) {
	groupID := c.Param("id")
	if groupID == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	sessions, err := h.sessionSvc.ListByGroup(c.Request.Context(), groupID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, gin.H{"list": sessions})
}

// GetSession 获取课次详情
// GET /api/v1/sessions/:id
func (h *SessionHandler) GetSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	session, err := h.sessionSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// UpdateSession 调整课次时间或教室
// PUT /api/v1/sessions/:id
func (h *SessionHandler) UpdateSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	var req dto.UpdateSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, 10001, "参数校验失败")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	session, err := h.sessionSvc.Update(c.Request.Context(), id, &req, callerID)
	if err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, session)
}

// DeleteSession 删除课次
// DELETE /api/v1/sessions/:id
func (h *SessionHandler) DeleteSession(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		response.BadRequest(c, 10001, "课次ID不能为空")
		return
	}

	callerID, ok := MustGetUserID(c)
	if !ok {
		return
	}

	if err := h.sessionSvc.Delete(c.Request.Context(), id, callerID); err != nil {
		h.handleSessionError(c, err)
		return
	}

	response.OK(c, nil)
}

// handleSessionError 统一处理课次模块业务错误
// 排课冲突返回 409 并附带冲突维度与对方课次的描述
func (h *SessionHandler) handleSessionError(c *gin.Context, err error) {
	var conflictErr *service.ScheduleConflictError
	if errors.As(err, &conflictErr) {
		response.ErrorWithDetails(c, http.StatusConflict, 17010, "排课时间冲突", conflictErr.Error())
		return
	}

	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		response.NotFound(c, 17001, "课次不存在")
	case errors.Is(err, service.ErrGroupClosedForScheduling):
		response.BadRequest(c, 17002, "已结课的教学班不能调整课次")
	case errors.Is(err, service.ErrSessionTimeRequired):
		response.BadRequest(c, 17003, "开始与结束时刻不能为空")
	case errors.Is(err, service.ErrSessionTimeFormat):
		response.BadRequest(c, 17004, "时刻格式应为 HH:MM")
	case errors.Is(err, service.ErrSessionTimeOrder):
		response.BadRequest(c, 17005, "结束时刻必须晚于开始时刻")
	case errors.Is(err, service.ErrSessionTooShort):
		response.BadRequest(c, 17006, "课次时长不得少于 30 分钟")
	case errors.Is(err, service.ErrSessionTooLong):
		response.BadRequest(c, 17007, "课次时长不得超过 4 小时")
	case errors.Is(err, service.ErrSessionOutOfBounds):
		response.BadRequest(c, 17008, "课次须在 06:00 至 22:00 之间")
	case errors.Is(err, service.ErrSessionDayInvalid):
		response.BadRequest(c, 17009, "星期取值须在 1（周一）至 7（周日）之间")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 16001, "教学班不存在")
	default:
		response.InternalError(c)
	}
}
