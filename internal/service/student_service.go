package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/model"
	"edusched/backend/internal/repository"
)

// ── 学生模块业务错误 ──

var (
	ErrStudentNotFound       = errors.New("学生不存在")
	ErrStudentEmailDuplicate = errors.New("该邮箱已被其他学生使用")
	ErrStudentHasEnrollments = errors.New("学生存在报名记录，无法删除")
	ErrImportNoData          = errors.New("导入文件没有有效数据行")
	ErrImportBadHeader       = errors.New("导入文件缺少必要的表头列（姓名/邮箱/专业）")
	ErrImportTooManyRows     = errors.New("单次导入不能超过 500 行")
)

// 单次导入行数上限
const maxImportRows = 500

// ImportStudentRow 从 Excel 解析出的一行学生数据
type ImportStudentRow struct {
	Row   int // Excel 中的行号，从 1 开始
	Name  string
	Email string
	Major string
}

// StudentService 学生业务接口
type StudentService interface {
	Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.StudentResponse, error)
	List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateStudentRequest, callerID string) (*dto.StudentResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
	ParseImportFile(reader io.Reader) ([]ImportStudentRow, error)
	ImportStudents(ctx context.Context, rows []ImportStudentRow, callerID string) (*dto.ImportStudentResponse, error)
}

type studentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewStudentService 创建 StudentService 实例
func NewStudentService(repo *repository.Repository, logger *zap.Logger) StudentService {
	return &studentService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *studentService) Create(ctx context.Context, req *dto.CreateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	if _, err := s.repo.Student.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrStudentEmailDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询学生失败", zap.Error(err))
		return nil, err
	}

	student := &model.Student{
		Name:  req.Name,
		Email: req.Email,
		Major: req.Major,
	}
	student.CreatedBy = &callerID
	student.UpdatedBy = &callerID

	if err := s.repo.Student.Create(ctx, student); err != nil {
		s.logger.Error("创建学生失败", zap.Error(err))
		return nil, err
	}

	return s.toStudentResponse(student), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *studentService) GetByID(ctx context.Context, id string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toStudentResponse(student), nil
}

// ────────────────────── List ──────────────────────

func (s *studentService) List(ctx context.Context, req *dto.StudentListRequest) ([]dto.StudentResponse, int64, error) {
	filters := &repository.StudentListFilters{
		Major:   req.Major,
		Keyword: req.Keyword,
	}

	students, total, err := s.repo.Student.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出学生失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.StudentResponse, 0, len(students))
	for i := range students {
		result = append(result, *s.toStudentResponse(&students[i]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *studentService) Update(ctx context.Context, id string, req *dto.UpdateStudentRequest, callerID string) (*dto.StudentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Email != nil && *req.Email != student.Email {
		if existing, err := s.repo.Student.GetByEmail(ctx, *req.Email); err == nil && existing.StudentID != id {
			return nil, ErrStudentEmailDuplicate
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询学生失败", zap.Error(err))
			return nil, err
		}
		student.Email = *req.Email
	}
	if req.Name != nil {
		student.Name = *req.Name
	}
	if req.Major != nil {
		student.Major = *req.Major
	}

	student.UpdatedBy = &callerID

	if err := s.repo.Student.Update(ctx, student); err != nil {
		s.logger.Error("更新学生失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toStudentResponse(student), nil
}

// ────────────────────── Delete ──────────────────────

func (s *studentService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Student.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", id), zap.Error(err))
		return err
	}

	enrollments, err := s.repo.Enrollment.CountByStudent(ctx, id)
	if err != nil {
		s.logger.Error("统计学生报名失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if enrollments > 0 {
		return ErrStudentHasEnrollments
	}

	if err := s.repo.Student.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除学生失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ────────────────────── ParseImportFile ──────────────────────

// ParseImportFile 解析上传的 Excel 文件为学生数据行
// 表头支持中英文列名，列序不限；全空行跳过
func (s *studentService) ParseImportFile(reader io.Reader) ([]ImportStudentRow, error) {
	f, err := excelize.OpenReader(reader)
	if err != nil {
		return nil, fmt.Errorf("无法解析Excel文件: %w", err)
	}
	defer f.Close()

	sheetName := f.GetSheetName(0)
	excelRows, err := f.GetRows(sheetName)
	if err != nil {
		return nil, fmt.Errorf("读取工作表失败: %w", err)
	}

	if len(excelRows) < 2 {
		return nil, ErrImportNoData
	}

	colIndex := parseStudentHeaderIndex(excelRows[0])
	if colIndex["name"] < 0 || colIndex["email"] < 0 || colIndex["major"] < 0 {
		return nil, ErrImportBadHeader
	}

	var rows []ImportStudentRow
	for i := 1; i < len(excelRows); i++ {
		row := excelRows[i]
		item := ImportStudentRow{Row: i + 1}

		if idx := colIndex["name"]; idx < len(row) {
			item.Name = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["email"]; idx < len(row) {
			item.Email = strings.TrimSpace(row[idx])
		}
		if idx := colIndex["major"]; idx < len(row) {
			item.Major = strings.TrimSpace(row[idx])
		}

		// 跳过全空行
		if item.Name == "" && item.Email == "" && item.Major == "" {
			continue
		}

		rows = append(rows, item)
	}

	if len(rows) == 0 {
		return nil, ErrImportNoData
	}
	if len(rows) > maxImportRows {
		return nil, ErrImportTooManyRows
	}

	return rows, nil
}

// parseStudentHeaderIndex 解析 Excel 表头，返回列名 -> 列索引映射
func parseStudentHeaderIndex(header []string) map[string]int {
	idx := map[string]int{
		"name":  -1,
		"email": -1,
		"major": -1,
	}
	for i, h := range header {
		lower := strings.ToLower(strings.TrimSpace(h))
		switch {
		case lower == "姓名" || lower == "name":
			idx["name"] = i
		case lower == "邮箱" || lower == "email":
			idx["email"] = i
		case lower == "专业" || lower == "major":
			idx["major"] = i
		}
	}
	return idx
}

// ────────────────────── ImportStudents ──────────────────────

// ImportStudents 批量导入学生
// 第一阶段逐行校验并收集错误，第二阶段将通过校验的行在单个
// 事务内全部写入，任一写入失败则本批次整体回滚
func (s *studentService) ImportStudents(ctx context.Context, rows []ImportStudentRow, callerID string) (*dto.ImportStudentResponse, error) {
	resp := &dto.ImportStudentResponse{Total: len(rows)}

	seenEmails := make(map[string]bool, len(rows))
	var validRows []ImportStudentRow

	for _, row := range rows {
		if row.Name == "" || row.Email == "" || row.Major == "" {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportStudentError{
				Row: row.Row, Reason: "必填字段为空",
			})
			continue
		}
		if !strings.Contains(row.Email, "@") {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportStudentError{
				Row: row.Row, Reason: fmt.Sprintf("邮箱格式不合法: %s", row.Email),
			})
			continue
		}
		if seenEmails[row.Email] {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportStudentError{
				Row: row.Row, Reason: fmt.Sprintf("文件内邮箱重复: %s", row.Email),
			})
			continue
		}
		if _, err := s.repo.Student.GetByEmail(ctx, row.Email); err == nil {
			resp.Failed++
			resp.Errors = append(resp.Errors, dto.ImportStudentError{
				Row: row.Row, Reason: fmt.Sprintf("邮箱已存在: %s", row.Email),
			})
			continue
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("导入预校验失败", zap.Int("row", row.Row), zap.Error(err))
			return nil, err
		}

		seenEmails[row.Email] = true
		validRows = append(validRows, row)
	}

	if len(validRows) > 0 {
		err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
			for _, row := range validRows {
				student := &model.Student{
					Name:  row.Name,
					Email: row.Email,
					Major: row.Major,
				}
				student.CreatedBy = &callerID
				student.UpdatedBy = &callerID

				if err := txRepo.Student.Create(ctx, student); err != nil {
					s.logger.Error("导入学生写入失败，事务回滚",
						zap.Int("row", row.Row), zap.Error(err))
					return err
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		resp.Success = len(validRows)
	}

	s.logger.Info("学生导入完成",
		zap.Int("total", resp.Total),
		zap.Int("success", resp.Success),
		zap.Int("failed", resp.Failed),
		zap.String("operator", callerID),
	)

	return resp, nil
}

// ── 内部辅助方法 ──

func (s *studentService) toStudentResponse(student *model.Student) *dto.StudentResponse {
	return &dto.StudentResponse{
		ID:        student.StudentID,
		Name:      student.Name,
		Email:     student.Email,
		Major:     student.Major,
		CreatedAt: student.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: student.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
