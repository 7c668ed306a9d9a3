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

// ── 课表模块业务错误 ──

var ErrClassroomRequired = errors.New("教室名称不能为空")

// TimetableService 课表查询业务接口
// 三个维度的周视图共用同一种条目结构，均按星期与开始时刻排序
type TimetableService interface {
	GroupTimetable(ctx context.Context, groupID string) (*dto.TimetableResponse, error)
	TeacherTimetable(ctx context.Context, teacherID string) (*dto.TimetableResponse, error)
	ClassroomTimetable(ctx context.Context, classroom string) (*dto.TimetableResponse, error)
	ClassroomOccupancy(ctx context.Context, req *dto.ClassroomOccupancyRequest) (*dto.ClassroomOccupancyResponse, error)
}

type timetableService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewTimetableService 创建 TimetableService 实例
func NewTimetableService(repo *repository.Repository, logger *zap.Logger) TimetableService {
	return &timetableService{repo: repo, logger: logger}
}

// ────────────────────── GroupTimetable ──────────────────────

func (s *timetableService) GroupTimetable(ctx context.Context, groupID string) (*dto.TimetableResponse, error) {
	group, err := s.repo.CourseGroup.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrGroupNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("id", groupID), zap.Error(err))
		return nil, err
	}

	sessions, err := s.repo.Session.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询班级课表失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, err
	}

	entries := make([]dto.TimetableEntry, 0, len(sessions))
	for i := range sessions {
		entry := sessionToEntry(&sessions[i])
		entry.GroupName = group.Name
		if group.Subject != nil {
			entry.SubjectName = group.Subject.Name
		}
		if group.Teacher != nil {
			entry.TeacherName = group.Teacher.Name
		}
		entries = append(entries, entry)
	}

	return &dto.TimetableResponse{Scope: "group", ScopeID: groupID, Entries: entries}, nil
}

// ────────────────────── TeacherTimetable ──────────────────────

func (s *timetableService) TeacherTimetable(ctx context.Context, teacherID string) (*dto.TimetableResponse, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", teacherID), zap.Error(err))
		return nil, err
	}

	sessions, err := s.repo.Session.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("查询教师课表失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, err
	}

	entries := make([]dto.TimetableEntry, 0, len(sessions))
	for i := range sessions {
		entry := sessionToEntry(&sessions[i])
		entry.TeacherName = teacher.Name
		entries = append(entries, entry)
	}

	return &dto.TimetableResponse{Scope: "teacher", ScopeID: teacherID, Entries: entries}, nil
}

// ────────────────────── ClassroomTimetable ──────────────────────

func (s *timetableService) ClassroomTimetable(ctx context.Context, classroom string) (*dto.TimetableResponse, error) {
	if classroom == "" {
		return nil, ErrClassroomRequired
	}

	sessions, err := s.repo.Session.ListByClassroom(ctx, classroom)
	if err != nil {
		s.logger.Error("查询教室课表失败", zap.String("classroom", classroom), zap.Error(err))
		return nil, err
	}

	entries := make([]dto.TimetableEntry, 0, len(sessions))
	for i := range sessions {
		entries = append(entries, sessionToEntry(&sessions[i]))
	}

	return &dto.TimetableResponse{Scope: "classroom", ScopeID: classroom, Entries: entries}, nil
}

// ────────────────────── ClassroomOccupancy ──────────────────────

// ClassroomOccupancy 全部已用教室的占用报表，可按星期过滤
func (s *timetableService) ClassroomOccupancy(ctx context.Context, req *dto.ClassroomOccupancyRequest) (*dto.ClassroomOccupancyResponse, error) {
	classrooms, err := s.repo.Session.ListClassrooms(ctx)
	if err != nil {
		s.logger.Error("列出教室失败", zap.Error(err))
		return nil, err
	}

	resp := &dto.ClassroomOccupancyResponse{
		Classrooms: make([]dto.ClassroomOccupancyItem, 0, len(classrooms)),
	}
	for _, classroom := range classrooms {
		var sessions []model.Session
		if req.DayOfWeek != nil {
			sessions, err = s.repo.Session.ListByClassroomOnDay(ctx, classroom, model.DayOfWeek(*req.DayOfWeek))
		} else {
			sessions, err = s.repo.Session.ListByClassroom(ctx, classroom)
		}
		if err != nil {
			s.logger.Error("查询教室课次失败", zap.String("classroom", classroom), zap.Error(err))
			return nil, err
		}

		entries := make([]dto.TimetableEntry, 0, len(sessions))
		for i := range sessions {
			entries = append(entries, sessionToEntry(&sessions[i]))
		}
		resp.Classrooms = append(resp.Classrooms, dto.ClassroomOccupancyItem{
			Classroom: classroom,
			Entries:   entries,
		})
	}

	return resp, nil
}

// ── 内部辅助方法 ──

// sessionToEntry 由课次构造课表条目，关联已预加载时带出班级与科目名
func sessionToEntry(session *model.Session) dto.TimetableEntry {
	entry := dto.TimetableEntry{
		SessionID: session.SessionID,
		GroupID:   session.CourseGroupID,
		DayOfWeek: int(session.DayOfWeek),
		DayName:   session.DayOfWeek.String(),
		StartTime: normalizeClock(session.StartTime),
		EndTime:   normalizeClock(session.EndTime),
		Classroom: session.Classroom,
	}
	if session.Group != nil {
		entry.GroupName = session.Group.Name
		if session.Group.Subject != nil {
			entry.SubjectName = session.Group.Subject.Name
		}
	}
	return entry
}
