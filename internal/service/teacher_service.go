package service

import (
	"context"
	"errors"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/model"
	"edusched/backend/internal/repository"
)

// ── 教师模块业务错误 ──

var (
	ErrTeacherNotFound       = errors.New("教师不存在")
	ErrTeacherEmailDuplicate = errors.New("该邮箱已被其他教师使用")
	ErrTeacherHasGroups      = errors.New("教师名下存在未结课的教学班，无法删除")
)

// TeacherService 教师业务接口
type TeacherService interface {
	Create(ctx context.Context, req *dto.CreateTeacherRequest, callerID string) (*dto.TeacherResponse, error)
	GetByID(ctx context.Context, id string) (*dto.TeacherResponse, error)
	List(ctx context.Context, req *dto.TeacherListRequest) ([]dto.TeacherResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateTeacherRequest, callerID string) (*dto.TeacherResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type teacherService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTeacherService 创建 TeacherService 实例
func NewTeacherService(repo *repository.Repository, logger *zap.Logger) TeacherService {
	return &teacherService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *teacherService) Create(ctx context.Context, req *dto.CreateTeacherRequest, callerID string) (*dto.TeacherResponse, error) {
	if _, err := s.repo.Teacher.GetByEmail(ctx, req.Email); err == nil {
		return nil, ErrTeacherEmailDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询教师失败", zap.Error(err))
		return nil, err
	}

	teacher := &model.Teacher{
		Name:  req.Name,
		Email: req.Email,
	}
	teacher.CreatedBy = &callerID
	teacher.UpdatedBy = &callerID

	if err := s.repo.Teacher.Create(ctx, teacher); err != nil {
		s.logger.Error("创建教师失败", zap.Error(err))
		return nil, err
	}

	return s.toTeacherResponse(teacher), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *teacherService) GetByID(ctx context.Context, id string) (*dto.TeacherResponse, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toTeacherResponse(teacher), nil
}

// ────────────────────── List ──────────────────────

func (s *teacherService) List(ctx context.Context, req *dto.TeacherListRequest) ([]dto.TeacherResponse, int64, error) {
	teachers, total, err := s.repo.Teacher.List(ctx, req.Keyword, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教师失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.TeacherResponse, 0, len(teachers))
	for i := range teachers {
		result = append(result, *s.toTeacherResponse(&teachers[i]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *teacherService) Update(ctx context.Context, id string, req *dto.UpdateTeacherRequest, callerID string) (*dto.TeacherResponse, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Email != nil && *req.Email != teacher.Email {
		if existing, err := s.repo.Teacher.GetByEmail(ctx, *req.Email); err == nil && existing.TeacherID != id {
			return nil, ErrTeacherEmailDuplicate
		} else if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询教师失败", zap.Error(err))
			return nil, err
		}
		teacher.Email = *req.Email
	}
	if req.Name != nil {
		teacher.Name = *req.Name
	}

	teacher.UpdatedBy = &callerID

	if err := s.repo.Teacher.Update(ctx, teacher); err != nil {
		s.logger.Error("更新教师失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toTeacherResponse(teacher), nil
}

// ────────────────────── Delete ──────────────────────

// Delete 删除教师
// 名下仍有计划中或进行中的教学班时拒绝删除；已结课的班级不阻塞
func (s *teacherService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Teacher.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", id), zap.Error(err))
		return err
	}

	activeGroups, err := s.repo.CourseGroup.CountByTeacherAndStatus(ctx, id,
		[]string{model.GroupStatusPlanned, model.GroupStatusActive})
	if err != nil {
		s.logger.Error("统计教师教学班失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if activeGroups > 0 {
		return ErrTeacherHasGroups
	}

	if err := s.repo.Teacher.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除教师失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ── 内部辅助方法 ──

func (s *teacherService) toTeacherResponse(teacher *model.Teacher) *dto.TeacherResponse {
	return &dto.TeacherResponse{
		ID:        teacher.TeacherID,
		Name:      teacher.Name,
		Email:     teacher.Email,
		CreatedAt: teacher.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: teacher.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
