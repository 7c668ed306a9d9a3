package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/model"
	"edusched/backend/internal/repository"
)

// ── 教学班模块业务错误 ──

var (
	ErrGroupNotFound             = errors.New("教学班不存在")
	ErrGroupCapacityBelowCount   = errors.New("名额上限不得低于当前报名人数")
	ErrGroupTeacherLocked        = errors.New("进行中的教学班必须保留授课教师")
	ErrGroupDeleteNotPlanned     = errors.New("仅计划中的教学班可以删除")
	ErrGroupDeleteHasEnrollments = errors.New("教学班尚有报名记录，无法删除")
)

// InvalidTransitionError 非法的教学班状态迁移
type InvalidTransitionError struct {
	From   string `json:"from"`
	To     string `json:"to"`
	Reason string `json:"reason,omitempty"` // 前置条件未满足时的说明
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("教学班状态不能从 %s 变更为 %s: %s", e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("教学班状态不能从 %s 变更为 %s", e.From, e.To)
}

// ── 状态机 ──

type statusTransition struct {
	from string
	to   string
}

// transitionGuard 迁移的前置条件
type transitionGuard struct {
	needTeacher bool // 必须已指派授课教师
	needSession bool // 必须已安排至少一个课次
}

// groupTransitions 教学班状态机的全部合法迁移
// 未列出的组合（含原状态迁回原状态）一律拒绝；
// PLANNED → CLOSED 为无条件的取消开班路径
var groupTransitions = map[statusTransition]transitionGuard{
	{model.GroupStatusPlanned, model.GroupStatusActive}: {needTeacher: true, needSession: true},
	{model.GroupStatusPlanned, model.GroupStatusClosed}: {},
	{model.GroupStatusActive, model.GroupStatusClosed}:  {},
}

// CourseGroupService 教学班业务接口
type CourseGroupService interface {
	Create(ctx context.Context, req *dto.CreateCourseGroupRequest, callerID string) (*dto.CourseGroupResponse, error)
	GetByID(ctx context.Context, id string) (*dto.CourseGroupResponse, error)
	List(ctx context.Context, req *dto.CourseGroupListRequest) ([]dto.CourseGroupResponse, int64, error)
	Update(ctx context.Context, id string, req *dto.UpdateCourseGroupRequest, callerID string) (*dto.CourseGroupResponse, error)
	ChangeStatus(ctx context.Context, id string, req *dto.ChangeGroupStatusRequest, callerID string) (*dto.CourseGroupResponse, error)
	AssignTeacher(ctx context.Context, id string, req *dto.AssignTeacherRequest, callerID string) (*dto.CourseGroupResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type courseGroupService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewCourseGroupService 创建 CourseGroupService 实例
func NewCourseGroupService(repo *repository.Repository, logger *zap.Logger) CourseGroupService {
	return &courseGroupService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *courseGroupService) Create(ctx context.Context, req *dto.CreateCourseGroupRequest, callerID string) (*dto.CourseGroupResponse, error) {
	subject, err := s.repo.Subject.GetByID(ctx, req.SubjectID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSubjectNotFound
		}
		s.logger.Error("查询科目失败", zap.String("subject_id", req.SubjectID), zap.Error(err))
		return nil, err
	}

	group := &model.CourseGroup{
		SubjectID:   subject.SubjectID,
		Name:        req.Name,
		Status:      model.GroupStatusPlanned,
		GroupType:   req.GroupType,
		MaxCapacity: req.MaxCapacity,
		Price:       req.Price,
	}
	if group.GroupType == "" {
		group.GroupType = model.GroupTypeRegular
	}
	if group.MaxCapacity == 0 {
		group.MaxCapacity = 30
	}
	group.CreatedBy = &callerID
	group.UpdatedBy = &callerID

	if err := s.repo.CourseGroup.Create(ctx, group); err != nil {
		s.logger.Error("创建教学班失败", zap.Error(err))
		return nil, err
	}

	group.Subject = subject
	return s.toCourseGroupResponse(group, 0), nil
}

// ────────────────────── GetByID ──────────────────────

// GetByID 教学班详情，附带课次列表与当前报名人数
func (s *courseGroupService) GetByID(ctx context.Context, id string) (*dto.CourseGroupResponse, error) {
	group, err := s.repo.CourseGroup.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	enrolled, err := s.repo.Enrollment.CountByGroup(ctx, id)
	if err != nil {
		s.logger.Error("统计报名人数失败", zap.String("group_id", id), zap.Error(err))
		return nil, err
	}

	sessions, err := s.repo.Session.ListByGroup(ctx, id)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("group_id", id), zap.Error(err))
		return nil, err
	}

	resp := s.toCourseGroupResponse(group, enrolled)
	for i := range sessions {
		resp.Sessions = append(resp.Sessions, dto.SessionBrief{
			ID:        sessions[i].SessionID,
			DayOfWeek: int(sessions[i].DayOfWeek),
			DayName:   sessions[i].DayOfWeek.String(),
			StartTime: normalizeClock(sessions[i].StartTime),
			EndTime:   normalizeClock(sessions[i].EndTime),
			Classroom: sessions[i].Classroom,
		})
	}
	return resp, nil
}

// ────────────────────── List ──────────────────────

func (s *courseGroupService) List(ctx context.Context, req *dto.CourseGroupListRequest) ([]dto.CourseGroupResponse, int64, error) {
	filters := &repository.CourseGroupListFilters{
		SubjectID: req.SubjectID,
		TeacherID: req.TeacherID,
		Status:    req.Status,
	}

	groups, total, err := s.repo.CourseGroup.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出教学班失败", zap.Error(err))
		return nil, 0, err
	}

	groupIDs := make([]string, 0, len(groups))
	for i := range groups {
		groupIDs = append(groupIDs, groups[i].CourseGroupID)
	}
	counts, err := s.repo.Enrollment.CountGroupedByGroup(ctx, groupIDs)
	if err != nil {
		s.logger.Error("统计报名人数失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.CourseGroupResponse, 0, len(groups))
	for i := range groups {
		result = append(result, *s.toCourseGroupResponse(&groups[i], counts[groups[i].CourseGroupID]))
	}

	return result, total, nil
}

// ────────────────────── Update ──────────────────────

func (s *courseGroupService) Update(ctx context.Context, id string, req *dto.UpdateCourseGroupRequest, callerID string) (*dto.CourseGroupResponse, error) {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		if req.Name != nil {
			group.Name = *req.Name
		}
		if req.GroupType != nil {
			group.GroupType = *req.GroupType
		}
		if req.Price != nil {
			group.Price = *req.Price
		}
		if req.MaxCapacity != nil {
			enrolled, err := txRepo.Enrollment.CountByGroup(ctx, id)
			if err != nil {
				return err
			}
			if int64(*req.MaxCapacity) < enrolled {
				return ErrGroupCapacityBelowCount
			}
			group.MaxCapacity = *req.MaxCapacity
		}
		group.UpdatedBy = &callerID

		return txRepo.CourseGroup.Update(ctx, group)
	})
	if err != nil {
		if !isGroupBusinessError(err) {
			s.logger.Error("更新教学班失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── ChangeStatus ──────────────────────

// ChangeStatus 执行教学班状态迁移
// 合法性与前置条件由 groupTransitions 状态机统一裁决；
// 迁移不回溯校验既有课次的冲突
func (s *courseGroupService) ChangeStatus(ctx context.Context, id string, req *dto.ChangeGroupStatusRequest, callerID string) (*dto.CourseGroupResponse, error) {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		guard, ok := groupTransitions[statusTransition{from: group.Status, to: req.Status}]
		if !ok {
			return &InvalidTransitionError{From: group.Status, To: req.Status}
		}
		if guard.needTeacher && group.TeacherID == nil {
			return &InvalidTransitionError{From: group.Status, To: req.Status, Reason: "未指派授课教师"}
		}
		if guard.needSession {
			sessionCount, err := txRepo.Session.CountByGroup(ctx, id)
			if err != nil {
				return err
			}
			if sessionCount == 0 {
				return &InvalidTransitionError{From: group.Status, To: req.Status, Reason: "未安排任何课次"}
			}
		}

		group.Status = req.Status
		group.UpdatedBy = &callerID

		return txRepo.CourseGroup.Update(ctx, group)
	})
	if err != nil {
		if !isGroupBusinessError(err) {
			s.logger.Error("变更教学班状态失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("教学班状态已变更",
		zap.String("group_id", id),
		zap.String("status", req.Status),
		zap.String("operator", callerID),
	)

	return s.GetByID(ctx, id)
}

// ────────────────────── AssignTeacher ──────────────────────

// AssignTeacher 指派或取消指派授课教师
// 指派不回溯检测教师既有课次的冲突，与状态迁移的语义保持一致
func (s *courseGroupService) AssignTeacher(ctx context.Context, id string, req *dto.AssignTeacherRequest, callerID string) (*dto.CourseGroupResponse, error) {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		if req.TeacherID == nil {
			// 取消指派：进行中的班级不允许处于无教师状态
			if group.Status == model.GroupStatusActive {
				return ErrGroupTeacherLocked
			}
			group.TeacherID = nil
		} else {
			if _, err := txRepo.Teacher.GetByID(ctx, *req.TeacherID); err != nil {
				if errors.Is(err, gorm.ErrRecordNotFound) {
					return ErrTeacherNotFound
				}
				return err
			}
			group.TeacherID = req.TeacherID
		}
		group.UpdatedBy = &callerID

		return txRepo.CourseGroup.Update(ctx, group)
	})
	if err != nil {
		if !isGroupBusinessError(err) {
			s.logger.Error("指派教师失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

// Delete 删除教学班
// 仅 PLANNED 且无任何报名的班级可删；课次随班级一并物理删除，
// 使其占用的教室与教师时段立即释放
func (s *courseGroupService) Delete(ctx context.Context, id string, callerID string) error {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		if group.Status != model.GroupStatusPlanned {
			return ErrGroupDeleteNotPlanned
		}
		enrolled, err := txRepo.Enrollment.CountByGroup(ctx, id)
		if err != nil {
			return err
		}
		if enrolled > 0 {
			return ErrGroupDeleteHasEnrollments
		}

		if err := txRepo.Session.DeleteByGroup(ctx, id); err != nil {
			return err
		}
		return txRepo.CourseGroup.Delete(ctx, id, callerID)
	})
	if err != nil {
		if !isGroupBusinessError(err) {
			s.logger.Error("删除教学班失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("教学班已删除", zap.String("group_id", id), zap.String("operator", callerID))
	return nil
}

// ── 内部辅助方法 ──

func (s *courseGroupService) toCourseGroupResponse(group *model.CourseGroup, enrolled int64) *dto.CourseGroupResponse {
	resp := &dto.CourseGroupResponse{
		ID:            group.CourseGroupID,
		Name:          group.Name,
		Status:        group.Status,
		GroupType:     group.GroupType,
		MaxCapacity:   group.MaxCapacity,
		EnrolledCount: enrolled,
		Price:         group.Price,
		CreatedAt:     group.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt:     group.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if group.Subject != nil {
		resp.Subject = &dto.SubjectBrief{
			ID:    group.Subject.SubjectID,
			Name:  group.Subject.Name,
			Major: group.Subject.Major,
		}
	}
	if group.Teacher != nil {
		resp.Teacher = &dto.TeacherBrief{
			ID:   group.Teacher.TeacherID,
			Name: group.Teacher.Name,
		}
	}
	return resp
}

// isGroupBusinessError 判断是否为无需记录错误日志的业务校验失败
func isGroupBusinessError(err error) bool {
	var transitionErr *InvalidTransitionError
	if errors.As(err, &transitionErr) {
		return true
	}
	return errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrGroupCapacityBelowCount) ||
		errors.Is(err, ErrGroupTeacherLocked) ||
		errors.Is(err, ErrGroupDeleteNotPlanned) ||
		errors.Is(err, ErrGroupDeleteHasEnrollments) ||
		errors.Is(err, ErrTeacherNotFound)
}
