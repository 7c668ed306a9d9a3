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

// ── 报名模块业务错误 ──

var (
	ErrEnrollmentNotFound       = errors.New("报名记录不存在")
	ErrEnrollmentGroupNotActive = errors.New("教学班未开放报名")
	ErrEnrollmentAtCapacity     = errors.New("教学班名额已满")
	ErrEnrollmentDuplicate      = errors.New("该学生已报名此教学班")
	ErrEnrollmentMajorMismatch  = errors.New("学生专业与科目专业不符")
	ErrEnrollmentAlreadyPaid    = errors.New("已缴费的报名不可退课")
	ErrEnrollmentGroupClosed    = errors.New("教学班已结课，不可退课")
	ErrPaymentTransitionInvalid = errors.New("缴费状态不允许该变更")
)

// paymentTransitions 缴费状态的合法变更
// PAID 为终态，退款流程不在本系统内
var paymentTransitions = map[string][]string{
	model.PaymentStatusPending: {model.PaymentStatusPaid, model.PaymentStatusFailed},
	model.PaymentStatusFailed:  {model.PaymentStatusPending, model.PaymentStatusPaid},
}

// EnrollmentService 报名业务接口
//
// 报名按序过闸：班级 ACTIVE → 名额未满 → 未重复报名 → 专业匹配。
// 名额校验与写入在同一事务内持有教学班行锁，并发争抢最后名额
// 时只有先到者成功；(student, group) 唯一约束兜底拦截漏网的重复。
type EnrollmentService interface {
	Enroll(ctx context.Context, req *dto.EnrollStudentRequest, callerID string) (*dto.EnrollmentResponse, error)
	GetByID(ctx context.Context, id string) (*dto.EnrollmentResponse, error)
	List(ctx context.Context, req *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, int64, error)
	UpdatePaymentStatus(ctx context.Context, id string, req *dto.UpdatePaymentStatusRequest, callerID string) (*dto.EnrollmentResponse, error)
	Cancel(ctx context.Context, id string, callerID string) error
}

type enrollmentService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewEnrollmentService 创建 EnrollmentService 实例
func NewEnrollmentService(repo *repository.Repository, logger *zap.Logger) EnrollmentService {
	return &enrollmentService{repo: repo, logger: logger}
}

// ────────────────────── Enroll ──────────────────────

func (s *enrollmentService) Enroll(ctx context.Context, req *dto.EnrollStudentRequest, callerID string) (*dto.EnrollmentResponse, error) {
	student, err := s.repo.Student.GetByID(ctx, req.StudentID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrStudentNotFound
		}
		s.logger.Error("查询学生失败", zap.String("id", req.StudentID), zap.Error(err))
		return nil, err
	}

	enrollment := &model.Enrollment{
		StudentID:     req.StudentID,
		CourseGroupID: req.CourseGroupID,
		PaymentStatus: model.PaymentStatusPending,
	}
	enrollment.CreatedBy = &callerID
	enrollment.UpdatedBy = &callerID

	err = s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, req.CourseGroupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}

		// 闸门一：班级状态
		if group.Status != model.GroupStatusActive {
			return ErrEnrollmentGroupNotActive
		}

		// 闸门二：名额（行锁保证计数到插入之间无并发写入）
		enrolled, err := txRepo.Enrollment.CountByGroup(ctx, group.CourseGroupID)
		if err != nil {
			return err
		}
		if enrolled >= int64(group.MaxCapacity) {
			return ErrEnrollmentAtCapacity
		}

		// 闸门三：重复报名
		if _, err := txRepo.Enrollment.GetByStudentAndGroup(ctx, req.StudentID, req.CourseGroupID); err == nil {
			return ErrEnrollmentDuplicate
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		// 闸门四：专业匹配
		subject, err := txRepo.Subject.GetByID(ctx, group.SubjectID)
		if err != nil {
			return err
		}
		if subject.Major != student.Major {
			return ErrEnrollmentMajorMismatch
		}

		if err := txRepo.Enrollment.Create(ctx, enrollment); err != nil {
			// 唯一约束兜底：绕过行锁的并发重复按重复报名处理
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrEnrollmentDuplicate
			}
			return err
		}
		return nil
	})
	if err != nil {
		if !isEnrollmentBusinessError(err) {
			s.logger.Error("报名失败",
				zap.String("student_id", req.StudentID),
				zap.String("group_id", req.CourseGroupID),
				zap.Error(err),
			)
		}
		return nil, err
	}

	s.logger.Info("报名成功",
		zap.String("enrollment_id", enrollment.EnrollmentID),
		zap.String("student_id", req.StudentID),
		zap.String("group_id", req.CourseGroupID),
	)

	return s.GetByID(ctx, enrollment.EnrollmentID)
}

// ────────────────────── GetByID ──────────────────────

func (s *enrollmentService) GetByID(ctx context.Context, id string) (*dto.EnrollmentResponse, error) {
	enrollment, err := s.repo.Enrollment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("查询报名记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toEnrollmentResponse(enrollment), nil
}

// ────────────────────── List ──────────────────────

func (s *enrollmentService) List(ctx context.Context, req *dto.EnrollmentListRequest) ([]dto.EnrollmentResponse, int64, error) {
	filters := &repository.EnrollmentListFilters{
		StudentID:     req.StudentID,
		CourseGroupID: req.CourseGroupID,
		PaymentStatus: req.PaymentStatus,
	}

	enrollments, total, err := s.repo.Enrollment.ListWithFilters(ctx, filters, req.GetOffset(), req.GetPageSize())
	if err != nil {
		s.logger.Error("列出报名记录失败", zap.Error(err))
		return nil, 0, err
	}

	result := make([]dto.EnrollmentResponse, 0, len(enrollments))
	for i := range enrollments {
		result = append(result, *s.toEnrollmentResponse(&enrollments[i]))
	}

	return result, total, nil
}

// ────────────────────── UpdatePaymentStatus ──────────────────────

func (s *enrollmentService) UpdatePaymentStatus(ctx context.Context, id string, req *dto.UpdatePaymentStatusRequest, callerID string) (*dto.EnrollmentResponse, error) {
	enrollment, err := s.repo.Enrollment.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEnrollmentNotFound
		}
		s.logger.Error("查询报名记录失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	if !paymentTransitionAllowed(enrollment.PaymentStatus, req.PaymentStatus) {
		return nil, ErrPaymentTransitionInvalid
	}

	enrollment.PaymentStatus = req.PaymentStatus
	if err := s.repo.Enrollment.UpdatePaymentStatus(ctx, enrollment); err != nil {
		s.logger.Error("更新缴费状态失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	s.logger.Info("缴费状态已更新",
		zap.String("enrollment_id", id),
		zap.String("payment_status", req.PaymentStatus),
		zap.String("operator", callerID),
	)

	return s.GetByID(ctx, id)
}

// ────────────────────── Cancel ──────────────────────

// Cancel 退课
// 已缴费或班级已结课的报名不可退；删除为物理删除，
// 名额与 (student, group) 唯一约束随之立即释放
func (s *enrollmentService) Cancel(ctx context.Context, id string, callerID string) error {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		enrollment, err := txRepo.Enrollment.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrEnrollmentNotFound
			}
			return err
		}

		if enrollment.PaymentStatus == model.PaymentStatusPaid {
			return ErrEnrollmentAlreadyPaid
		}

		// 行锁与状态迁移、并发报名串行化
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, enrollment.CourseGroupID)
		if err != nil {
			return err
		}
		if group.Status == model.GroupStatusClosed {
			return ErrEnrollmentGroupClosed
		}

		return txRepo.Enrollment.Delete(ctx, id)
	})
	if err != nil {
		if !isEnrollmentBusinessError(err) {
			s.logger.Error("退课失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("退课成功", zap.String("enrollment_id", id), zap.String("operator", callerID))
	return nil
}

// ── 内部辅助方法 ──

func paymentTransitionAllowed(from, to string) bool {
	for _, allowed := range paymentTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

func (s *enrollmentService) toEnrollmentResponse(enrollment *model.Enrollment) *dto.EnrollmentResponse {
	resp := &dto.EnrollmentResponse{
		ID:            enrollment.EnrollmentID,
		PaymentStatus: enrollment.PaymentStatus,
		CreatedAt:     enrollment.CreatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if enrollment.Student != nil {
		resp.Student = &dto.StudentBrief{
			ID:    enrollment.Student.StudentID,
			Name:  enrollment.Student.Name,
			Major: enrollment.Student.Major,
		}
	}
	if enrollment.Group != nil {
		resp.Group = &dto.CourseGroupBrief{
			ID:     enrollment.Group.CourseGroupID,
			Name:   enrollment.Group.Name,
			Status: enrollment.Group.Status,
		}
		if enrollment.Group.Subject != nil {
			resp.Group.SubjectName = enrollment.Group.Subject.Name
		}
	}
	return resp
}

// isEnrollmentBusinessError 判断是否为无需记录错误日志的业务校验失败
func isEnrollmentBusinessError(err error) bool {
	return errors.Is(err, ErrEnrollmentNotFound) ||
		errors.Is(err, ErrEnrollmentGroupNotActive) ||
		errors.Is(err, ErrEnrollmentAtCapacity) ||
		errors.Is(err, ErrEnrollmentDuplicate) ||
		errors.Is(err, ErrEnrollmentMajorMismatch) ||
		errors.Is(err, ErrEnrollmentAlreadyPaid) ||
		errors.Is(err, ErrEnrollmentGroupClosed) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrStudentNotFound)
}
