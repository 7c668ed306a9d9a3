package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"edusched/backend/internal/service"
	"edusched/backend/pkg/response"
)

const (
	mimeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	mimeICS  = "text/calendar"
)

// ExportHandler 导出模块 HTTP 处理器
type ExportHandler struct {
	exportSvc service.ExportService
}

// NewExportHandler 创建 ExportHandler
func NewExportHandler(exportSvc service.ExportService) *ExportHandler {
	return &ExportHandler{exportSvc: exportSvc}
}

// ExportGroupExcel 导出教学班课程表与学生名单（Excel）
// GET /api/v1/course-groups/:id/export/xlsx
func (h *ExportHandler) ExportGroupExcel(c *gin.Context) {
	groupID := c.Param("id")
	if groupID == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportGroupScheduleExcel(c.Request.Context(), groupID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, buf.Bytes(), filename, mimeXLSX)
}

// ExportGroupICS 导出教学班周期课表（iCalendar）
// GET /api/v1/course-groups/:id/export/ics
func (h *ExportHandler) ExportGroupICS(c *gin.Context) {
	groupID := c.Param("id")
	if groupID == "" {
		response.BadRequest(c, 10001, "教学班ID不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportGroupScheduleICS(c.Request.Context(), groupID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, buf.Bytes(), filename, mimeICS)
}

// ExportTeacherICS 导出教师跨班周期课表（iCalendar）
// GET /api/v1/teachers/:id/export/ics
func (h *ExportHandler) ExportTeacherICS(c *gin.Context) {
	teacherID := c.Param("id")
	if teacherID == "" {
		response.BadRequest(c, 10001, "教师ID不能为空")
		return
	}

	buf, filename, err := h.exportSvc.ExportTeacherScheduleICS(c.Request.Context(), teacherID)
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, buf.Bytes(), filename, mimeICS)
}

// ExportOccupancyExcel 导出全部教学班的报名情况报表（Excel）
// GET /api/v1/enrollments/export/xlsx
func (h *ExportHandler) ExportOccupancyExcel(c *gin.Context) {
	buf, filename, err := h.exportSvc.ExportOccupancyExcel(c.Request.Context())
	if err != nil {
		h.handleExportError(c, err)
		return
	}

	writeDownload(c, buf.Bytes(), filename, mimeXLSX)
}

// writeDownload 设置下载响应头并写出文件内容
func writeDownload(c *gin.Context, data []byte, filename, mime string) {
	encodedFilename := url.QueryEscape(filename)
	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+encodedFilename)
	c.Header("Content-Type", mime)
	c.Data(http.StatusOK, mime, data)
}

// handleExportError 统一处理导出模块业务错误
func (h *ExportHandler) handleExportError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrExportNoSessions):
		response.BadRequest(c, 19101, "尚未安排课次，无法导出")
	case errors.Is(err, service.ErrGroupNotFound):
		response.NotFound(c, 16001, "教学班不存在")
	case errors.Is(err, service.ErrTeacherNotFound):
		response.NotFound(c, 14001, "教师不存在")
	case errors.Is(err, service.ErrExportGenerateFail):
		response.InternalError(c)
	default:
		response.InternalError(c)
	}
}
