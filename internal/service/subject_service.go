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

// ── 科目模块业务错误 ──

var (
	ErrSubjectNotFound  = errors.New("科目不存在")
	ErrSubjectDuplicate = errors.New("同专业下已存在同名科目")
	ErrSubjectHasGroups = errors.New("科目下存在教学班，无法删除")
)

// SubjectService 科目业务接口
type SubjectService interface {
	Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error)
	List(ctx context.Context, req *dto.SubjectListRequest) ([]dto.SubjectResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type subjectService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSubjectService 创建 SubjectService 实例
func NewSubjectService(repo *repository.Repository, logger *zap.Logger) SubjectService {
	return &subjectService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *subjectService) Create(ctx context.Context, req *dto.CreateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	if _, err := s.repo.Subject.GetByNameAndMajor(ctx, req.Name, req.Major); err == nil {
		return nil, ErrSubjectDuplicate
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		s.logger.Error("查询科目失败", zap.Error(err))
		return nil, err
	}

	subject := &model.Subject{
		Name:       req.Name,
		Major:      req.Major,
		CourseYear: req.CourseYear,
	}
	subject.CreatedBy = &callerID
	subject.UpdatedBy = &callerID

	if err := s.repo.Subject.Create(ctx, subject); err != nil {
		s.logger.Error("创建科目失败", zap.Error(err))
		return nil, err
	}

	return s.toSubjectResponse(subject), nil
}

// ────────────────────── GetByID ──────────────────────

func (s *subjectService) GetByID(ctx context.Context, id string) (*dto.SubjectResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toSubjectResponse(subject), nil
}

// ────────────────────── List ──────────────────────

func (s *subjectService) List(ctx context.Context, req *dto.SubjectListRequest) ([]dto.SubjectResponse, int64, error) {
	filters := &repository.SubjectListFilters{
		Major:      req.Major,
		CourseYear: req.CourseYear,
		Keyword:    req.Keyword,
	}

	subjects, total, err := s.repo.Subject.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出科目失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.SubjectResponse, 0, len(subjects))
	for i := range subjects {
		result = append(result, *s.toSubjectResponse(&subjects[i]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *subjectService) Update(ctx context.Context, id string, req *dto.UpdateSubjectRequest, callerID string) (*dto.SubjectResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if req.Name != nil {
		subject.Name = *req.Name
	}
	if req.Major != nil {
		subject.Major = *req.Major
	}
	if req.CourseYear != nil {
		subject.CourseYear = *req.CourseYear
	}

	// 改名或改专业后仍需保持 (name, major) 唯一
	if req.Name != nil || req.Major != nil {
		if existing, err := s.repo.Subject.GetByNameAndMajor(ctx, subject.Name, subject.Major); err == nil {
			if existing.SubjectID != id {
				return nil, ErrSubjectDuplicate
			}
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			s.logger.Error("查询科目失败", zap.Error(err))
			return nil, err
		}
	}

	subject.UpdatedBy = &callerID

	if err := s.repo.Subject.Update(ctx, subject); err != nil {
		s.logger.Error("更新科目失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toSubjectResponse(subject), nil
}

// ────────────────────── Delete ──────────────────────

func (s *subjectService) Delete(ctx context.Context, id string, callerID string) error {
	if _, err := s.repo.Subject.GetByID(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("id", id), zap.Error(err))
		return err
	}

	groupCount, err := s.repo.CourseGroup.CountBySubject(ctx, id)
	if err != nil {
		s.logger.Error("统计科目教学班失败", zap.String("id", id), zap.Error(err))
		return err
	}
	if groupCount > 0 {
		return ErrSubjectHasGroups
	}

	if err := s.repo.Subject.Delete(ctx, id, callerID); err != nil {
		s.logger.Error("删除科目失败", zap.String("id", id), zap.Error(err))
		return err
	}

	return nil
}

// ── 内部辅助方法 ──

func (s *subjectService) toSubjectResponse(subject *model.Subject) *dto.SubjectResponse {
	return &dto.SubjectResponse{
		ID:         subject.SubjectID,
		Name:       subject.Name,
		Major:      subject.Major,
		CourseYear: subject.CourseYear,
		CreatedAt:  subject.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:  subject.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
}
