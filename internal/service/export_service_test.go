package service

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"edusched/backend/internal/model"
)

func setupTestExportService() (ExportService, *mockRepos) {
	mocks := newMockRepos()
	svc := NewExportService(mocks.repo, zap.NewNop())
	return svc, mocks
}

// seedExportGroup 造一个带教师、两个课次与一名学员的教学班
func seedExportGroup(mocks *mockRepos) {
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedTeacher(mocks, "teach-1", "王老师")
	group := seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)
	teacherID := "teach-1"
	group.TeacherID = &teacherID

	seedSession(mocks, "sess-1", "grp-1", model.DayWednesday, "14:00", "16:00", "")
	seedSession(mocks, "sess-2", "grp-1", model.DayMonday, "08:00", "10:00", "A101")

	seedStudent(mocks, "stu-1", "李小明", "应用数学")
	seedEnrollment(mocks, "enr-1", "stu-1", "grp-1", model.PaymentStatusPaid)
}

// ── Excel 导出测试 ──

func TestExportGroupScheduleExcel_Success(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportGroup(mocks)

	buf, filename, err := svc.ExportGroupScheduleExcel(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("ExportGroupScheduleExcel 应成功: %v", err)
	}
	if buf == nil || buf.Len() == 0 {
		t.Fatal("导出的 Excel buffer 不应为空")
	}
	if !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名应以 .xlsx 结尾，实际=%s", filename)
	}
	// Excel .xlsx 文件以 PK (0x504B) 开头
	header := buf.Bytes()[:2]
	if header[0] != 0x50 || header[1] != 0x4B {
		t.Fatal("输出内容不是有效的 xlsx 文件格式（应以 PK 开头）")
	}

	// 回读验证内容
	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("回读 Excel 失败: %v", err)
	}
	defer f.Close()

	// 课程表按星期排序：第 3 行应是周一的课次
	day, _ := f.GetCellValue("课程表", "A3")
	if day != "周一" {
		t.Errorf("期望 A3=周一，实际=%s", day)
	}
	timeRange, _ := f.GetCellValue("课程表", "B3")
	if timeRange != "08:00-10:00" {
		t.Errorf("期望 B3=08:00-10:00，实际=%s", timeRange)
	}
	classroom, _ := f.GetCellValue("课程表", "C3")
	if classroom != "A101" {
		t.Errorf("期望 C3=A101，实际=%s", classroom)
	}
	teacher, _ := f.GetCellValue("课程表", "E3")
	if teacher != "王老师" {
		t.Errorf("期望 E3=王老师，实际=%s", teacher)
	}
	// 未填教室的课次显示占位符
	blank, _ := f.GetCellValue("课程表", "C4")
	if blank != "-" {
		t.Errorf("期望 C4=-，实际=%s", blank)
	}

	// 学生名单
	name, _ := f.GetCellValue("学生名单", "A2")
	if name != "李小明" {
		t.Errorf("期望名单 A2=李小明，实际=%s", name)
	}
	payment, _ := f.GetCellValue("学生名单", "D2")
	if payment != model.PaymentStatusPaid {
		t.Errorf("期望名单 D2=PAID，实际=%s", payment)
	}
}

func TestExportGroupScheduleExcel_NoSessions(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusPlanned)

	_, _, err := svc.ExportGroupScheduleExcel(context.Background(), "grp-1")
	if !errors.Is(err, ErrExportNoSessions) {
		t.Errorf("期望 ErrExportNoSessions，实际: %v", err)
	}
}

func TestExportGroupScheduleExcel_GroupNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportGroupScheduleExcel(context.Background(), "nonexistent")
	if !errors.Is(err, ErrGroupNotFound) {
		t.Errorf("期望 ErrGroupNotFound，实际: %v", err)
	}
}

func TestExportOccupancyExcel(t *testing.T) {
	svc, mocks := setupTestExportService()

	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedTeacher(mocks, "teach-1", "王老师")
	g1 := seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusActive)
	g1.Name = "高数一班"
	teacherID := "teach-1"
	g1.TeacherID = &teacherID

	seedSubject(mocks, "subj-2", "编译原理", "计算机科学")
	g2 := seedGroup(mocks, "grp-2", "subj-2", model.GroupStatusActive)
	g2.Name = "编译一班"
	g2.MaxCapacity = 2

	seedStudent(mocks, "stu-1", "李小明", "应用数学")
	seedStudent(mocks, "stu-2", "赵小红", "计算机科学")
	seedStudent(mocks, "stu-3", "钱小刚", "计算机科学")
	seedEnrollment(mocks, "enr-1", "stu-1", "grp-1", model.PaymentStatusPaid)
	seedEnrollment(mocks, "enr-2", "stu-2", "grp-2", model.PaymentStatusPending)
	seedEnrollment(mocks, "enr-3", "stu-3", "grp-2", model.PaymentStatusPaid)

	buf, filename, err := svc.ExportOccupancyExcel(context.Background())
	if err != nil {
		t.Fatalf("ExportOccupancyExcel 应成功: %v", err)
	}
	if !strings.Contains(filename, "报名情况") || !strings.HasSuffix(filename, ".xlsx") {
		t.Errorf("文件名不符合预期，实际=%s", filename)
	}

	f, err := excelize.OpenReader(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("回读 Excel 失败: %v", err)
	}
	defer f.Close()

	// 按科目名排序：编译原理在前
	subject, _ := f.GetCellValue("报名情况", "A2")
	if subject != "编译原理" {
		t.Errorf("期望 A2=编译原理，实际=%s", subject)
	}
	teacher, _ := f.GetCellValue("报名情况", "C2")
	if teacher != "未指派" {
		t.Errorf("期望 C2=未指派，实际=%s", teacher)
	}
	enrolled, _ := f.GetCellValue("报名情况", "F2")
	if enrolled != "2" {
		t.Errorf("期望 F2=2，实际=%s", enrolled)
	}
	free, _ := f.GetCellValue("报名情况", "G2")
	if free != "0" {
		t.Errorf("期望 G2=0（满员），实际=%s", free)
	}

	name, _ := f.GetCellValue("报名情况", "B3")
	if name != "高数一班" {
		t.Errorf("期望 B3=高数一班，实际=%s", name)
	}
	free, _ = f.GetCellValue("报名情况", "G3")
	if free != "29" {
		t.Errorf("期望 G3=29，实际=%s", free)
	}
}

func TestExportOccupancyExcel_Empty(t *testing.T) {
	svc, _ := setupTestExportService()

	buf, _, err := svc.ExportOccupancyExcel(context.Background())
	if err != nil {
		t.Fatalf("无教学班时应导出空表: %v", err)
	}
	if buf == nil || buf.Len() == 0 {
		t.Fatal("导出的 Excel buffer 不应为空")
	}
}

// ── ICS 导出测试 ──

func TestExportGroupScheduleICS_Success(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportGroup(mocks)

	buf, filename, err := svc.ExportGroupScheduleICS(context.Background(), "grp-1")
	if err != nil {
		t.Fatalf("ExportGroupScheduleICS 应成功: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾，实际=%s", filename)
	}

	content := buf.String()
	if !strings.Contains(content, "BEGIN:VCALENDAR") {
		t.Error("输出应为 VCALENDAR")
	}
	if got := strings.Count(content, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("期望 2 个事件，实际=%d", got)
	}
	if !strings.Contains(content, "FREQ=WEEKLY;BYDAY=MO") {
		t.Error("周一课次应带 BYDAY=MO 的周重复规则")
	}
	if !strings.Contains(content, "FREQ=WEEKLY;BYDAY=WE") {
		t.Error("周三课次应带 BYDAY=WE 的周重复规则")
	}
	if !strings.Contains(content, "LOCATION:A101") {
		t.Error("有教室的课次应带 LOCATION")
	}
	if !strings.Contains(content, "高等数学") {
		t.Error("事件标题应包含科目名")
	}
}

func TestExportGroupScheduleICS_NoSessions(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedSubject(mocks, "subj-1", "高等数学", "应用数学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusPlanned)

	_, _, err := svc.ExportGroupScheduleICS(context.Background(), "grp-1")
	if !errors.Is(err, ErrExportNoSessions) {
		t.Errorf("期望 ErrExportNoSessions，实际: %v", err)
	}
}

func TestExportTeacherScheduleICS_Success(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedExportGroup(mocks)

	buf, filename, err := svc.ExportTeacherScheduleICS(context.Background(), "teach-1")
	if err != nil {
		t.Fatalf("ExportTeacherScheduleICS 应成功: %v", err)
	}
	if !strings.HasSuffix(filename, ".ics") {
		t.Errorf("文件名应以 .ics 结尾，实际=%s", filename)
	}
	if !strings.Contains(filename, "王老师") {
		t.Errorf("文件名应包含教师姓名，实际=%s", filename)
	}

	content := buf.String()
	if got := strings.Count(content, "BEGIN:VEVENT"); got != 2 {
		t.Errorf("期望 2 个事件，实际=%d", got)
	}
	if !strings.Contains(content, "FREQ=WEEKLY;BYDAY=MO") {
		t.Error("周一课次应带 BYDAY=MO 的周重复规则")
	}
	if !strings.Contains(content, "高等数学") {
		t.Error("事件标题应包含科目名")
	}
}

func TestExportTeacherScheduleICS_NoSessions(t *testing.T) {
	svc, mocks := setupTestExportService()
	seedTeacher(mocks, "teach-1", "王老师")

	_, _, err := svc.ExportTeacherScheduleICS(context.Background(), "teach-1")
	if !errors.Is(err, ErrExportNoSessions) {
		t.Errorf("期望 ErrExportNoSessions，实际: %v", err)
	}
}

func TestExportTeacherScheduleICS_TeacherNotFound(t *testing.T) {
	svc, _ := setupTestExportService()

	_, _, err := svc.ExportTeacherScheduleICS(context.Background(), "nonexistent")
	if !errors.Is(err, ErrTeacherNotFound) {
		t.Errorf("期望 ErrTeacherNotFound，实际: %v", err)
	}
}

// ── 辅助函数测试 ──

func TestNextOccurrence(t *testing.T) {
	// 2026-03-04 是周三，基准时刻 12:00
	from := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		day   model.DayOfWeek
		start int
		want  time.Time
	}{
		{"未来的星期", model.DayMonday, 480, time.Date(2026, 3, 9, 8, 0, 0, 0, time.UTC)},
		{"当天已过的时刻顺延一周", model.DayWednesday, 480, time.Date(2026, 3, 11, 8, 0, 0, 0, time.UTC)},
		{"当天未到的时刻", model.DayWednesday, 840, time.Date(2026, 3, 4, 14, 0, 0, 0, time.UTC)},
		{"周日映射", model.DaySunday, 600, time.Date(2026, 3, 8, 10, 0, 0, 0, time.UTC)},
	}

	for _, tt := range tests {
		got := nextOccurrence(from, tt.day, tt.start)
		if !got.Equal(tt.want) {
			t.Errorf("%s: 期望 %v，实际 %v", tt.name, tt.want, got)
		}
	}
}

func TestIcsByDay(t *testing.T) {
	tests := []struct {
		day  model.DayOfWeek
		want string
	}{
		{model.DayMonday, "MO"},
		{model.DayTuesday, "TU"},
		{model.DayWednesday, "WE"},
		{model.DayThursday, "TH"},
		{model.DayFriday, "FR"},
		{model.DaySaturday, "SA"},
		{model.DaySunday, "SU"},
	}

	for _, tt := range tests {
		if got := icsByDay(tt.day); got != tt.want {
			t.Errorf("day=%d: 期望 %s，实际 %s", tt.day, tt.want, got)
		}
	}
}
