package repository

import (
	"context"

	"gorm.io/gorm"

	"edusched/backend/internal/model"
	pkgerrors "edusched/backend/pkg/errors"
)

// EnrollmentListFilters 选课记录列表过滤条件
type EnrollmentListFilters struct {
	StudentID     string
	CourseGroupID string
	PaymentStatus string
}

// EnrollmentRepository 选课数据访问接口
//
// 选课记录为硬删除：退课后 (student_id, course_group_id) 唯一约束
// 立即释放，允许重新报名。
type EnrollmentRepository interface {
	Create(ctx context.Context, enrollment *model.Enrollment) error
	GetByID(ctx context.Context, id string) (*model.Enrollment, error)
	GetByStudentAndGroup(ctx context.Context, studentID, groupID string) (*model.Enrollment, error)
	CountByGroup(ctx context.Context, groupID string) (int64, error)
	CountGroupedByGroup(ctx context.Context, groupIDs []string) (map[string]int64, error)
	CountByStudent(ctx context.Context, studentID string) (int64, error)
	UpdatePaymentStatus(ctx context.Context, enrollment *model.Enrollment) error
	Delete(ctx context.Context, id string) error
	ListWithFilters(ctx context.Context, filters *EnrollmentListFilters, offset, limit int) ([]model.Enrollment, int64, error)
	ListByGroup(ctx context.Context, groupID string) ([]model.Enrollment, error)
}

// enrollmentRepo EnrollmentRepository 的 GORM 实现
type enrollmentRepo struct {
	db *gorm.DB
}

// NewEnrollmentRepo 创建 EnrollmentRepository 实例
func NewEnrollmentRepo(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepo{db: db}
}

func (r *enrollmentRepo) Create(ctx context.Context, enrollment *model.Enrollment) error {
	return r.db.WithContext(ctx).Create(enrollment).Error
}

func (r *enrollmentRepo) GetByID(ctx context.Context, id string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Preload("Group").
		Preload("Group.Subject").
		Where("enrollment_id = ?", id).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

func (r *enrollmentRepo) GetByStudentAndGroup(ctx context.Context, studentID, groupID string) (*model.Enrollment, error) {
	var enrollment model.Enrollment
	err := r.db.WithContext(ctx).
		Where("student_id = ? AND course_group_id = ?", studentID, groupID).
		First(&enrollment).Error
	if err != nil {
		return nil, err
	}
	return &enrollment, nil
}

// CountByGroup 统计教学班当前选课人数，容量校验用
// 必须与 CourseGroup 行锁配合在同一事务内调用才能保证不超员
func (r *enrollmentRepo) CountByGroup(ctx context.Context, groupID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("course_group_id = ?", groupID).
		Count(&count).Error
	return count, err
}

// CountGroupedByGroup 批量统计多个教学班的选课人数，列表页避免逐班查询
func (r *enrollmentRepo) CountGroupedByGroup(ctx context.Context, groupIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(groupIDs))
	if len(groupIDs) == 0 {
		return result, nil
	}

	type groupCount struct {
		CourseGroupID string
		Count         int64
	}
	var rows []groupCount
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Select("course_group_id, COUNT(*) AS count").
		Where("course_group_id IN ?", groupIDs).
		Group("course_group_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	for _, row := range rows {
		result[row.CourseGroupID] = row.Count
	}
	return result, nil
}

func (r *enrollmentRepo) CountByStudent(ctx context.Context, studentID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("student_id = ?", studentID).
		Count(&count).Error
	return count, err
}

// UpdatePaymentStatus 带乐观锁更新缴费状态
func (r *enrollmentRepo) UpdatePaymentStatus(ctx context.Context, enrollment *model.Enrollment) error {
	oldVersion := enrollment.Version
	result := r.db.WithContext(ctx).
		Model(&model.Enrollment{}).
		Where("enrollment_id = ? AND version = ?", enrollment.EnrollmentID, oldVersion).
		Updates(map[string]interface{}{
			"payment_status": enrollment.PaymentStatus,
			"version":        oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return pkgerrors.ErrOptimisticLock
	}
	enrollment.Version = oldVersion + 1
	return nil
}

func (r *enrollmentRepo) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).
		Where("enrollment_id = ?", id).
		Delete(&model.Enrollment{}).Error
}

func (r *enrollmentRepo) ListWithFilters(ctx context.Context, filters *EnrollmentListFilters, offset, limit int) ([]model.Enrollment, int64, error) {
	var enrollments []model.Enrollment
	var total int64

	db := r.db.WithContext(ctx).Model(&model.Enrollment{})

	if filters != nil {
		if filters.StudentID != "" {
			db = db.Where("student_id = ?", filters.StudentID)
		}
		if filters.CourseGroupID != "" {
			db = db.Where("course_group_id = ?", filters.CourseGroupID)
		}
		if filters.PaymentStatus != "" {
			db = db.Where("payment_status = ?", filters.PaymentStatus)
		}
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := db.Preload("Student").Preload("Group").Preload("Group.Subject").
		Offset(offset).Limit(limit).
		Order("created_at DESC").
		Find(&enrollments).Error; err != nil {
		return nil, 0, err
	}

	return enrollments, total, nil
}

func (r *enrollmentRepo) ListByGroup(ctx context.Context, groupID string) ([]model.Enrollment, error) {
	var enrollments []model.Enrollment
	err := r.db.WithContext(ctx).
		Preload("Student").
		Where("course_group_id = ?", groupID).
		Order("created_at ASC").
		Find(&enrollments).Error
	return enrollments, err
}
