package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/model"
)

func setupTestTimetableService() (TimetableService, *mockRepos) {
	mocks := newMockRepos()
	svc := NewTimetableService(mocks.repo, zap.NewNop())
	return svc, mocks
}

// ── GroupTimetable 测试 ──

func TestGroupTimetable_Success(t *testing.T) {
	svc, mocks := setupTestTimetableService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedTeacher(mocks, "teach-1", "王老师")
	group := seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)
	teacherID := "teach-1"
	group.TeacherID = &teacherID

	// 故意乱序插入，验证响应按星期与开始时刻排序
	seedSession(mocks, "sess-1", "grp-1", model.DayWednesday, "14:00", "16:00", "B203")
	seedSession(mocks, "sess-2", "grp-1", model.DayMonday, "08:00", "10:00", "A101")

	result, err := svc.GroupTimetable(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("GroupTimetable 应成功: %v", err)
	}

	if result.Scope != "group" || result.ScopeID != "grp-1" {
		t.Errorf("期望 scope=group/grp-1，实际=%s/%s", result.Scope, result.ScopeID)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("期望条目 2 条，实际=%d", len(result.Entries))
	}
	if result.Entries[0].SessionID != "sess-2" {
		t.Errorf("周一课次应排在前，实际首条=%s", result.Entries[0].SessionID)
	}
	first := result.Entries[0]
	if first.DayName != "周一" || first.StartTime != "08:00" || first.EndTime != "10:00" {
		t.Errorf("条目时刻不符: %s %s-%s", first.DayName, first.StartTime, first.EndTime)
	}
	if first.SubjectName != "高等数学" {
		t.Errorf("期望 SubjectName=高等数学，实际=%s", first.SubjectName)
	}
	if first.TeacherName != "王老师" {
		t.Errorf("期望 TeacherName=王老师，实际=%s", first.TeacherName)
	}
}

func TestGroupTimetable_EmptySchedule(t *testing.T) {
	svc, mocks := setupTestTimetableService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusPlanned)

	result, err := svc.GroupTimetable(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("空课表查询应成功: %v", err)
	}
	if len(result.Entries) != 0 {
		t.Errorf("期望空条目，实际=%d", len(result.Entries))
	}
}

func TestGroupTimetable_GroupNotFound(t *testing.T) {
	svc, _ := setupTestTimetableService()

	_, err := svc.GroupTimetable(context.Background(), "nonexistent")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("期望 ErrGroupNotFound，实际: %v", err)
	}
}

// ── TeacherTimetable 测试 ──

func TestTeacherTimetable_Success(t *testing.T) {
	svc, mocks := setupTestTimetableService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedSubject(mocks, "subj-2", "线性代数", "应用数学")
	seedTeacher(mocks, "teach-1", "王老师")
	seedTeacher(mocks, "teach-2", "李老师")

	mine := seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)
	other := seedGroup(mocks, "grp-2", "subj-2", model.GroupStatusActive)
	tid1, tid2 := "teach-1", "teach-2"
	mine.TeacherID = &tid1
	other.TeacherID = &tid2

	seedSession(mocks, "sess-1", "grp-1", model.DayMonday, "08:00", "10:00", "A101")
	seedSession(mocks, "sess-2", "grp-2", model.DayMonday, "10:00", "12:00", "A101")

	result, err := svc.TeacherTimetable(context.Background(), "teach-1")
	if err != nil {
		t.Fatalf("TeacherTimetable 应成功: %v", err)
	}

	if result.Scope != "teacher" || result.ScopeID != "teach-1" {
		t.Errorf("期望 scope=teacher/teach-1，实际=%s/%s", result.Scope, result.ScopeID)
	}
	if len(result.Entries) != 1 {
		t.Fatalf("只应包含本人授课的课次，实际=%d 条", len(result.Entries))
	}
	if result.Entries[0].SessionID != "sess-1" {
		t.Errorf("期望 sess-1，实际=%s", result.Entries[0].SessionID)
	}
	if result.Entries[0].TeacherName != "王老师" {
		t.Errorf("期望 TeacherName=王老师，实际=%s", result.Entries[0].TeacherName)
	}
	if result.Entries[0].SubjectName != "高等数学" {
		t.Errorf("期望 SubjectName=高等数学，实际=%s", result.Entries[0].SubjectName)
	}
}

func TestTeacherTimetable_TeacherNotFound(t *testing.T) {
	svc, _ := setupTestTimetableService()

	_, err := svc.TeacherTimetable(context.Background(), "nonexistent")
	if !errors.Is(err, ErrTeacherNotFound) {
		t.Errorf("期望 ErrTeacherNotFound，实际: %v", err)
	}
}

// ── ClassroomTimetable 测试 ──

func TestClassroomTimetable_Success(t *testing.T) {
	svc, mocks := setupTestTimetableService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedSubject(mocks, "subj-2", "线性代数", "应用数学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)
	seedGroup(mocks, "grp-2", "subj-2", model.GroupStatusActive)

	seedSession(mocks, "sess-1", "grp-1", model.DayWednesday, "14:00", "16:00", "A101")
	seedSession(mocks, "sess-2", "grp-2", model.DayMonday, "08:00", "10:00", "A101")
	seedSession(mocks, "sess-3", "grp-1", model.DayMonday, "08:00", "10:00", "B203")

	result, err := svc.ClassroomTimetable(context.Background(), "A101")
	if err != nil {
		t.Fatalf("ClassroomTimetable 应成功: %v", err)
	}

	if result.Scope != "classroom" || result.ScopeID != "A101" {
		t.Errorf("期望 scope=classroom/A101，实际=%s/%s", result.Scope, result.ScopeID)
	}
	if len(result.Entries) != 2 {
		t.Fatalf("期望 A101 有 2 条，实际=%d", len(result.Entries))
	}
	if result.Entries[0].SessionID != "sess-2" || result.Entries[1].SessionID != "sess-1" {
		t.Errorf("条目应按星期排序，实际=%s,%s",
			result.Entries[0].SessionID, result.Entries[1].SessionID)
	}
	// 跨班查询应带出各自的班级与科目名
	if result.Entries[0].SubjectName != "线性代数" {
		t.Errorf("期望首条 SubjectName=线性代数，实际=%s", result.Entries[0].SubjectName)
	}
}

func TestClassroomTimetable_BlankRejected(t *testing.T) {
	svc, _ := setupTestTimetableService()

	_, err := svc.ClassroomTimetable(context.Background(), "")
	if !errors.Is(err, ErrClassroomRequired) {
		t.Errorf("期望 ErrClassroomRequired，实际: %v", err)
	}
}

// ── ClassroomOccupancy 测试 ──

func TestClassroomOccupancy_AllDays(t *testing.T) {
	svc, mocks := setupTestTimetableService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)

	seedSession(mocks, "sess-1", "grp-1", model.DayMonday, "08:00", "10:00", "B203")
	seedSession(mocks, "sess-2", "grp-1", model.DayMonday, "10:00", "12:00", "A101")
	seedSession(mocks, "sess-3", "grp-1", model.DayFriday, "14:00", "16:00", "A101")

	result, err := svc.ClassroomOccupancy(context.Background(), &dto.ClassroomOccupancyRequest{})
	if err != nil {
		t.Fatalf("ClassroomOccupancy 应成功: %v", err)
	}

	if len(result.Classrooms) != 2 {
		t.Fatalf("期望 2 间教室，实际=%d", len(result.Classrooms))
	}
	// 教室按名称排序
	if result.Classrooms[0].Classroom != "A101" || result.Classrooms[1].Classroom != "B203" {
		t.Errorf("教室排序不符: %s, %s",
			result.Classrooms[0].Classroom, result.Classrooms[1].Classroom)
	}
	if len(result.Classrooms[0].Entries) != 2 {
		t.Errorf("期望 A101 有 2 条，实际=%d", len(result.Classrooms[0].Entries))
	}
	if len(result.Classrooms[1].Entries) != 1 {
		t.Errorf("期望 B203 有 1 条，实际=%d", len(result.Classrooms[1].Entries))
	}
}

func TestClassroomOccupancy_DayFilter(t *testing.T) {
	svc, mocks := setupTestTimetableService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)

	seedSession(mocks, "sess-1", "grp-1", model.DayMonday, "08:00", "10:00", "A101")
	seedSession(mocks, "sess-2", "grp-1", model.DayFriday, "14:00", "16:00", "A101")
	seedSession(mocks, "sess-3", "grp-1", model.DayFriday, "08:00", "10:00", "B203")

	day := int(model.DayMonday)
	result, err := svc.ClassroomOccupancy(context.Background(), &dto.ClassroomOccupancyRequest{DayOfWeek: &day})
	if err != nil {
		t.Fatalf("ClassroomOccupancy(周一) 应成功: %v", err)
	}

	// 所有已用教室都出现在报表中，无课的教室条目为空
	if len(result.Classrooms) != 2 {
		t.Fatalf("期望 2 间教室，实际=%d", len(result.Classrooms))
	}
	if len(result.Classrooms[0].Entries) != 1 {
		t.Errorf("期望 A101 周一 1 条，实际=%d", len(result.Classrooms[0].Entries))
	}
	if result.Classrooms[0].Entries[0].SessionID != "sess-1" {
		t.Errorf("期望 sess-1，实际=%s", result.Classrooms[0].Entries[0].SessionID)
	}
	if len(result.Classrooms[1].Entries) != 0 {
		t.Errorf("B203 周一无课，条目应为空，实际=%d", len(result.Classrooms[1].Entries))
	}
}
