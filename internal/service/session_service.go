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

// ── 课次模块业务错误 ──

var (
	ErrSessionNotFound          = errors.New("课次不存在")
	ErrGroupClosedForScheduling = errors.New("已结课的教学班不可调整课次")
)

// SessionService 课次业务接口
//
// 创建与修改共用同一条校验链：时长规则 → 三维冲突检测 → 落库，
// 全程在单个事务内持有所属教学班的行锁，保证冲突判定读到的
// 课次集合与写入之间无并发插队。
type SessionService interface {
	Create(ctx context.Context, groupID string, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error)
	GetByID(ctx context.Context, id string) (*dto.SessionResponse, error)
	ListByGroup(ctx context.Context, groupID string) ([]dto.SessionResponse, error)
	Update(ctx context.Context, id string, req *dto.UpdateSessionRequest, callerID string) (*dto.SessionResponse, error)
	Delete(ctx context.Context, id string, callerID string) error
}

type sessionService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewSessionService 创建 SessionService 实例
func NewSessionService(repo *repository.Repository, logger *zap.Logger) SessionService {
	return &sessionService{repo: repo, logger: logger}
}

// ────────────────────── Create ──────────────────────

func (s *sessionService) Create(ctx context.Context, groupID string, req *dto.CreateSessionRequest, callerID string) (*dto.SessionResponse, error) {
	day := model.DayOfWeek(req.DayOfWeek)
	if !day.IsValid() {
		return nil, ErrSessionDayInvalid
	}
	interval, err := validateSessionTiming(req.StartTime, req.EndTime)
	if err != nil {
		return nil, err
	}

	session := &model.Session{
		CourseGroupID: groupID,
		DayOfWeek:     day,
		StartTime:     model.FormatClock(interval.Start),
		EndTime:       model.FormatClock(interval.End),
		Classroom:     req.Classroom,
	}
	session.CreatedBy = &callerID
	session.UpdatedBy = &callerID

	err = s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, groupID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrGroupNotFound
			}
			return err
		}
		if group.Status == model.GroupStatusClosed {
			return ErrGroupClosedForScheduling
		}

		candidate := &sessionCandidate{
			GroupID:   groupID,
			Day:       day,
			Interval:  interval,
			Classroom: req.Classroom,
		}
		if err := s.checkConflictInTx(ctx, txRepo, group, candidate); err != nil {
			return err
		}

		return txRepo.Session.Create(ctx, session)
	})
	if err != nil {
		if !isSessionBusinessError(err) {
			s.logger.Error("创建课次失败", zap.String("group_id", groupID), zap.Error(err))
		}
		return nil, err
	}

	s.logger.Info("课次已创建",
		zap.String("session_id", session.SessionID),
		zap.String("group_id", groupID),
		zap.String("day", day.String()),
		zap.String("interval", interval.String()),
	)

	return s.GetByID(ctx, session.SessionID)
}

// ────────────────────── GetByID ──────────────────────

func (s *sessionService) GetByID(ctx context.Context, id string) (*dto.SessionResponse, error) {
	session, err := s.repo.Session.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSessionNotFound
		}
		s.logger.Error("查询课次失败", zap.String("id", id), zap.Error(err))
		return nil, err
	}

	return s.toSessionResponse(session), nil
}

// ────────────────────── ListByGroup ──────────────────────

func (s *sessionService) ListByGroup(ctx context.Context, groupID string) ([]dto.SessionResponse, error) {
	if _, err := s.repo.CourseGroup.GetByID(ctx, groupID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("id", groupID), zap.Error(err))
		return nil, err
	}

	sessions, err := s.repo.Session.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("列出课次失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	result := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		result = append(result, *s.toSessionResponse(&sessions[i]))
	}
	return result, nil
}

// ────────────────────── Update ──────────────────────

func (s *sessionService) Update(ctx context.Context, id string, req *dto.UpdateSessionRequest, callerID string) (*dto.SessionResponse, error) {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		session, err := txRepo.Session.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, session.CourseGroupID)
		if err != nil {
			return err
		}
		if group.Status == model.GroupStatusClosed {
			return ErrGroupClosedForScheduling
		}

		day := session.DayOfWeek
		if req.DayOfWeek != nil {
			day = model.DayOfWeek(*req.DayOfWeek)
			if !day.IsValid() {
				return ErrSessionDayInvalid
			}
		}
		startTime := session.StartTime
		if req.StartTime != nil {
			startTime = *req.StartTime
		}
		endTime := session.EndTime
		if req.EndTime != nil {
			endTime = *req.EndTime
		}
		classroom := session.Classroom
		if req.Classroom != nil {
			classroom = *req.Classroom
		}

		interval, err := validateSessionTiming(startTime, endTime)
		if err != nil {
			return err
		}

		candidate := &sessionCandidate{
			GroupID:          session.CourseGroupID,
			Day:              day,
			Interval:         interval,
			Classroom:        classroom,
			ExcludeSessionID: session.SessionID,
		}
		if err := s.checkConflictInTx(ctx, txRepo, group, candidate); err != nil {
			return err
		}

		session.DayOfWeek = day
		session.StartTime = model.FormatClock(interval.Start)
		session.EndTime = model.FormatClock(interval.End)
		session.Classroom = classroom

		return txRepo.Session.Update(ctx, session)
	})
	if err != nil {
		if !isSessionBusinessError(err) {
			s.logger.Error("更新课次失败", zap.String("id", id), zap.Error(err))
		}
		return nil, err
	}

	return s.GetByID(ctx, id)
}

// ────────────────────── Delete ──────────────────────

// Delete 物理删除课次，占用的时段立即释放
func (s *sessionService) Delete(ctx context.Context, id string, callerID string) error {
	err := s.repo.Tx.Atomic(ctx, func(txRepo *repository.Repository) error {
		session, err := txRepo.Session.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}

		group, err := txRepo.CourseGroup.GetByIDForUpdate(ctx, session.CourseGroupID)
		if err != nil {
			return err
		}
		if group.Status == model.GroupStatusClosed {
			return ErrGroupClosedForScheduling
		}

		return txRepo.Session.Delete(ctx, id)
	})
	if err != nil {
		if !isSessionBusinessError(err) {
			s.logger.Error("删除课次失败", zap.String("id", id), zap.Error(err))
		}
		return err
	}

	s.logger.Info("课次已删除", zap.String("session_id", id), zap.String("operator", callerID))
	return nil
}

// ── 内部辅助方法 ──

// checkConflictInTx 在当前事务快照内装载三个维度的课次集合并检测冲突
func (s *sessionService) checkConflictInTx(ctx context.Context, txRepo *repository.Repository, group *model.CourseGroup, candidate *sessionCandidate) error {
	groupSessions, err := txRepo.Session.ListByGroup(ctx, candidate.GroupID)
	if err != nil {
		return err
	}

	var classroomSessions []model.Session
	if candidate.Classroom != "" {
		classroomSessions, err = txRepo.Session.ListByClassroomOnDay(ctx, candidate.Classroom, candidate.Day)
		if err != nil {
			return err
		}
	}

	var teacherSessions []model.Session
	if group.TeacherID != nil {
		teacherSessions, err = txRepo.Session.ListByTeacher(ctx, *group.TeacherID)
		if err != nil {
			return err
		}
	}

	conflict, err := findScheduleConflict(candidate, groupSessions, classroomSessions, teacherSessions)
	if err != nil {
		return err
	}
	if conflict != nil {
		return conflict
	}
	return nil
}

func (s *sessionService) toSessionResponse(session *model.Session) *dto.SessionResponse {
	resp := &dto.SessionResponse{
		ID:        session.SessionID,
		DayOfWeek: int(session.DayOfWeek),
		DayName:   session.DayOfWeek.String(),
		StartTime: normalizeClock(session.StartTime),
		EndTime:   normalizeClock(session.EndTime),
		Classroom: session.Classroom,
		CreatedAt: session.CreatedAt.Format("2006-01-02T15:04:05Z"),
		UpdatedAt: session.UpdatedAt.Format("2006-01-02T15:04:05Z"),
	}
	if session.Group != nil {
		resp.Group = &dto.CourseGroupBrief{
			ID:     session.Group.CourseGroupID,
			Name:   session.Group.Name,
			Status: session.Group.Status,
		}
		if session.Group.Subject != nil {
			resp.Group.SubjectName = session.Group.Subject.Name
		}
	}
	return resp
}

// normalizeClock 将数据库 TIME 列回读的 "HH:MM:SS" 统一为 "HH:MM"
func normalizeClock(clock string) string {
	minutes, err := model.ParseClock(clock)
	if err != nil {
		return clock
	}
	return model.FormatClock(minutes)
}

// isSessionBusinessError 判断是否为无需记录错误日志的业务校验失败
func isSessionBusinessError(err error) bool {
	var conflictErr *ScheduleConflictError
	if errors.As(err, &conflictErr) {
		return true
	}
	return errors.Is(err, ErrSessionNotFound) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrGroupClosedForScheduling) ||
		errors.Is(err, ErrSessionTimeRequired) ||
		errors.Is(err, ErrSessionTimeFormat) ||
		errors.Is(err, ErrSessionTimeOrder) ||
		errors.Is(err, ErrSessionTooShort) ||
		errors.Is(err, ErrSessionTooLong) ||
		errors.Is(err, ErrSessionOutOfBounds) ||
		errors.Is(err, ErrSessionDayInvalid)
}
