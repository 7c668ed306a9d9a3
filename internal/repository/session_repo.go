package repository

import (
	"context"

	"gorm.io/gorm"

	"edusched/backend/internal/model"
	pkgerrors "edusched/backend/pkg/errors"
)

// SessionRepository 课次数据访问接口
//
// 课次为硬删除：删除后的时段立即释放，不参与任何冲突检测。
type SessionRepository interface {
	Create(ctx context.Context, session *model.Session) error
	GetByID(ctx context.Context, id string) (*model.Session, error)
	Update(ctx context.Context, session *model.Session) error
	Delete(ctx context.Context, id string) error
	DeleteByGroup(ctx context.Context, groupID string) error
	ListByGroup(ctx context.Context, groupID string) ([]model.Session, error)
	CountByGroup(ctx context.Context, groupID string) (int64, error)
	ListByClassroomOnDay(ctx context.Context, classroom string, day model.DayOfWeek) ([]model.Session, error)
	ListByClassroom(ctx context.Context, classroom string) ([]model.Session, error)
	ListByTeacher(ctx context.Context, teacherID string) ([]model.Session, error)
	ListClassrooms(ctx context.Context) ([]string, error)
}

// sessionRepo SessionRepository 的 GORM 实现
type sessionRepo struct {
	db *gorm.DB
}

// NewSessionRepo 创建 SessionRepository 实例
func NewSessionRepo(db *gorm.DB) SessionRepository {
	return &sessionRepo{db: db}
}

func (r *sessionRepo) Create(ctx context.Context, session *model.Session) error {
	return r.db.WithContext(ctx).Create(session).Error
}

func (r *sessionRepo) GetByID(ctx context.Context, id string) (*model.Session, error) {
	var session model.Session
	err := r.db.WithContext(ctx).
		Preload("Group").
		Preload("Group.Subject").
		Where("session_id = ?", id).
		First(&session).Error
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// Update 带乐观锁的整行更新
func (r *sessionRepo) Update(ctx context.Context, session *model.Session) error {
	oldVersion := session.Version
	result := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("session_id = ? AND version = ?", session.SessionID, oldVersion).
		Updates(map[string]interface{}{
			"day_of_week": session.DayOfWeek,
			"start_time":  session.StartTime,
			"end_time":    session.EndTime,
			"classroom":   session.Classroom,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	session.Version = oldVersion + 1
	return nil
}

func (r *sessionRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("session_id = ?", id).
		Delete(&model.Session{}).Error
}

// DeleteByGroup 删除教学班下全部课次，随班级删除级联调用
func (r *sessionRepo) DeleteByGroup(ctx context.Context, groupID string) error {
	return r.db.WithContext(ctx).
		Where("course_group_id = ?", groupID).
		Delete(&model.Session{}).Error
}

func (r *sessionRepo) ListByGroup(ctx context.Context, groupID string) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Where("course_group_id = ?", groupID).
		Order("day_of_week ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("course_group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

// ListByClassroomOnDay 查询某教室某天的全部课次，教室维度冲突检测用
func (r *sessionRepo) ListByClassroomOnDay(ctx context.Context, classroom string, day model.DayOfWeek) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Preload("Group").
		Preload("Group.Subject").
		Where("classroom = ? AND day_of_week = ?", classroom, day).
		Order("start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

func (r *sessionRepo) ListByClassroom(ctx context.Context, classroom string) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Preload("Group").
		Preload("Group.Subject").
		Where("classroom = ?", classroom).
		Order("day_of_week ASC, start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

// ListByTeacher 查询某教师名下全部教学班的课次，教师维度冲突检测与课表用
// 通过 course_groups 联表过滤，已软删除的教学班不参与
func (r *sessionRepo) ListByTeacher(ctx context.Context, teacherID string) ([]model.Session, error) {
	var sessions []model.Session
	err := r.db.WithContext(ctx).
		Preload("Group").
		Preload("Group.Subject").
		Joins("JOIN course_groups ON course_groups.course_group_id = sessions.course_group_id").
		Where("course_groups.teacher_id = ? AND course_groups.deleted_at IS NULL", teacherID).
		Order("sessions.day_of_week ASC, sessions.start_time ASC").
		Find(&sessions).Error
	return sessions, err
}

// ListClassrooms 查询所有已使用的教室名，去重排序
func (r *sessionRepo) ListClassrooms(ctx context.Context) ([]string, error) {
	var classrooms []string
	err := r.db.WithContext(ctx).
		Model(&model.Session{}).
		Where("classroom <> ''").
		Distinct("classroom").
		Order("classroom ASC").
		Pluck("classroom", &classrooms).Error
	return classrooms, err
}
