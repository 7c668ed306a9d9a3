package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edusched/backend/internal/model"
	"edusched/backend/internal/repository"
)

// ── 导出模块业务错误 ──

var (
	ErrExportNoSessions   = errors.New("教学班尚未安排课次")
	ErrExportGenerateFail = errors.New("生成导出文件失败")
)

// ExportService 导出业务接口
//
// 设计说明：
//   - 教学班 Excel 导出含两个工作表：周课程表 + 学生名单
//   - 报名情况报表覆盖全部教学班，逐班给出已报名与名额对比
//   - ICS 导出将每个课次生成一条带 FREQ=WEEKLY 重复规则的日历事件，
//     锚定到该星期的下一次出现
//   - 均以 bytes.Buffer 返回，由 Handler 层设置响应头后写入 Response
type ExportService interface {
	ExportGroupScheduleExcel(ctx context.Context, groupID string) (*bytes.Buffer, string, error)
	ExportGroupScheduleICS(ctx context.Context, groupID string) (*bytes.Buffer, string, error)
	ExportTeacherScheduleICS(ctx context.Context, teacherID string) (*bytes.Buffer, string, error)
	ExportOccupancyExcel(ctx context.Context) (*bytes.Buffer, string, error)
}

type exportService struct {
	repo   *repository.Repository
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportGroupScheduleExcel — 导出教学班课程表为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "课程表"：标题行 + 表头（星期 | 时间 | 教室 | 科目 | 授课教师），
//     数据按星期与开始时刻排序
//   - Sheet "学生名单"：姓名 | 邮箱 | 专业 | 缴费状态 | 报名时间
//
// 返回值：buf（Excel 内容）, filename（建议文件名）, error

func (s *exportService) ExportGroupScheduleExcel(ctx context.Context, groupID string) (*bytes.Buffer, string, error) {
	group, sessions, err := s.loadGroupSchedule(ctx, groupID)
	if err != nil {
		return nil, "", err
	}

	enrollments, err := s.repo.Enrollment.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询学生名单失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, "", err
	}

	subjectName := ""
	if group.Subject != nil {
		subjectName = group.Subject.Name
	}
	teacherName := "未指派"
	if group.Teacher != nil {
		teacherName = group.Teacher.Name
	}

	f := excelize.NewFile()
	defer f.Close()

	// ── Sheet 1: 课程表 ──
	scheduleSheet := "课程表"
	idx, _ := f.NewSheet(scheduleSheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(scheduleSheet, "A", "A", 8)
	f.SetColWidth(scheduleSheet, "B", "B", 16)
	f.SetColWidth(scheduleSheet, "C", "C", 14)
	f.SetColWidth(scheduleSheet, "D", "D", 22)
	f.SetColWidth(scheduleSheet, "E", "E", 14)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(scheduleSheet, "A1", fmt.Sprintf("%s — 周课程表", group.Name))
	f.MergeCell(scheduleSheet, "A1", "E1")
	f.SetCellStyle(scheduleSheet, "A1", "A1", headerStyle)

	row := 2
	f.SetCellValue(scheduleSheet, cell("A", row), "星期")
	f.SetCellValue(scheduleSheet, cell("B", row), "时间")
	f.SetCellValue(scheduleSheet, cell("C", row), "教室")
	f.SetCellValue(scheduleSheet, cell("D", row), "科目")
	f.SetCellValue(scheduleSheet, cell("E", row), "授课教师")

	row = 3
	for i := range sessions {
		sess := &sessions[i]
		classroom := sess.Classroom
		if classroom == "" {
			classroom = "-"
		}
		f.SetCellValue(scheduleSheet, cell("A", row), sess.DayOfWeek.String())
		f.SetCellValue(scheduleSheet, cell("B", row),
			fmt.Sprintf("%s-%s", normalizeClock(sess.StartTime), normalizeClock(sess.EndTime)))
		f.SetCellValue(scheduleSheet, cell("C", row), classroom)
		f.SetCellValue(scheduleSheet, cell("D", row), subjectName)
		f.SetCellValue(scheduleSheet, cell("E", row), teacherName)
		row++
	}

	// ── Sheet 2: 学生名单 ──
	rosterSheet := "学生名单"
	f.NewSheet(rosterSheet)

	f.SetColWidth(rosterSheet, "A", "A", 14)
	f.SetColWidth(rosterSheet, "B", "B", 28)
	f.SetColWidth(rosterSheet, "C", "C", 18)
	f.SetColWidth(rosterSheet, "D", "D", 10)
	f.SetColWidth(rosterSheet, "E", "E", 20)

	f.SetCellValue(rosterSheet, "A1", "姓名")
	f.SetCellValue(rosterSheet, "B1", "邮箱")
	f.SetCellValue(rosterSheet, "C1", "专业")
	f.SetCellValue(rosterSheet, "D1", "缴费状态")
	f.SetCellValue(rosterSheet, "E1", "报名时间")
	f.SetCellStyle(rosterSheet, "A1", "E1", headerStyle)

	row = 2
	for i := range enrollments {
		e := &enrollments[i]
		if e.Student == nil {
			continue
		}
		f.SetCellValue(rosterSheet, cell("A", row), e.Student.Name)
		f.SetCellValue(rosterSheet, cell("B", row), e.Student.Email)
		f.SetCellValue(rosterSheet, cell("C", row), e.Student.Major)
		f.SetCellValue(rosterSheet, cell("D", row), e.PaymentStatus)
		f.SetCellValue(rosterSheet, cell("E", row), e.CreatedAt.Format("2006-01-02 15:04"))
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("课程表_%s.xlsx", group.Name)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportOccupancyExcel — 导出全部教学班的报名情况报表
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "报名情况"：科目 | 教学班 | 授课教师 | 状态 | 名额上限 | 已报名 | 空余
//     按科目名与班级名排序，无教学班时输出空表

func (s *exportService) ExportOccupancyExcel(ctx context.Context) (*bytes.Buffer, string, error) {
	groups, err := s.repo.CourseGroup.ListAll(ctx)
	if err != nil {
		s.logger.Error("查询教学班失败", zap.Error(err))
		return nil, "", err
	}

	groupIDs := make([]string, 0, len(groups))
	for i := range groups {
		groupIDs = append(groupIDs, groups[i].CourseGroupID)
	}
	counts, err := s.repo.Enrollment.CountGroupedByGroup(ctx, groupIDs)
	if err != nil {
		s.logger.Error("统计报名人数失败", zap.Error(err))
		return nil, "", err
	}

	sort.Slice(groups, func(i, j int) bool {
		si, sj := "", ""
		if groups[i].Subject != nil {
			si = groups[i].Subject.Name
		}
		if groups[j].Subject != nil {
			sj = groups[j].Subject.Name
		}
		if si != sj {
			return si < sj
		}
		return groups[i].Name < groups[j].Name
	})

	f := excelize.NewFile()
	defer f.Close()

	sheet := "报名情况"
	idx, _ := f.NewSheet(sheet)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	f.SetColWidth(sheet, "A", "A", 22)
	f.SetColWidth(sheet, "B", "B", 22)
	f.SetColWidth(sheet, "C", "C", 14)
	f.SetColWidth(sheet, "D", "G", 10)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	f.SetCellValue(sheet, "A1", "科目")
	f.SetCellValue(sheet, "B1", "教学班")
	f.SetCellValue(sheet, "C1", "授课教师")
	f.SetCellValue(sheet, "D1", "状态")
	f.SetCellValue(sheet, "E1", "名额上限")
	f.SetCellValue(sheet, "F1", "已报名")
	f.SetCellValue(sheet, "G1", "空余")
	f.SetCellStyle(sheet, "A1", "G1", headerStyle)

	row := 2
	for i := range groups {
		g := &groups[i]
		subjectName := ""
		if g.Subject != nil {
			subjectName = g.Subject.Name
		}
		teacherName := "未指派"
		if g.Teacher != nil {
			teacherName = g.Teacher.Name
		}
		enrolled := counts[g.CourseGroupID]

		f.SetCellValue(sheet, cell("A", row), subjectName)
		f.SetCellValue(sheet, cell("B", row), g.Name)
		f.SetCellValue(sheet, cell("C", row), teacherName)
		f.SetCellValue(sheet, cell("D", row), g.Status)
		f.SetCellValue(sheet, cell("E", row), g.MaxCapacity)
		f.SetCellValue(sheet, cell("F", row), enrolled)
		f.SetCellValue(sheet, cell("G", row), int64(g.MaxCapacity)-enrolled)
		row++
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("报名情况_%s.xlsx", time.Now().Format("20060102"))
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportGroupScheduleICS — 导出教学班课程表为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportGroupScheduleICS(ctx context.Context, groupID string) (*bytes.Buffer, string, error) {
	group, sessions, err := s.loadGroupSchedule(ctx, groupID)
	if err != nil {
		return nil, "", err
	}

	summary := group.Name
	if group.Subject != nil {
		summary = fmt.Sprintf("%s（%s）", group.Subject.Name, group.Name)
	}

	description := ""
	if group.Teacher != nil {
		description = fmt.Sprintf("授课教师: %s", group.Teacher.Name)
	}

	now := time.Now()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	for i := range sessions {
		sess := &sessions[i]
		if err := addWeeklyEvent(cal, sess, summary, description, now); err != nil {
			s.logger.Error("课次时刻无法解析", zap.String("session_id", sess.SessionID), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("课程表_%s.ics", group.Name)
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportTeacherScheduleICS — 导出教师跨班课表为 iCalendar
// ═══════════════════════════════════════════════════════════

func (s *exportService) ExportTeacherScheduleICS(ctx context.Context, teacherID string) (*bytes.Buffer, string, error) {
	teacher, err := s.repo.Teacher.GetByID(ctx, teacherID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, "", ErrTeacherNotFound
		}
		s.logger.Error("查询教师失败", zap.String("id", teacherID), zap.Error(err))
		return nil, "", err
	}

	sessions, err := s.repo.Session.ListByTeacher(ctx, teacherID)
	if err != nil {
		s.logger.Error("查询教师课次失败", zap.String("teacher_id", teacherID), zap.Error(err))
		return nil, "", err
	}
	if len(sessions) == 0 {
		return nil, "", ErrExportNoSessions
	}

	description := fmt.Sprintf("授课教师: %s", teacher.Name)

	now := time.Now()
	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)

	for i := range sessions {
		sess := &sessions[i]
		summary := ""
		if sess.Group != nil {
			summary = sess.Group.Name
			if sess.Group.Subject != nil {
				summary = fmt.Sprintf("%s（%s）", sess.Group.Subject.Name, sess.Group.Name)
			}
		}
		if err := addWeeklyEvent(cal, sess, summary, description, now); err != nil {
			s.logger.Error("课次时刻无法解析", zap.String("session_id", sess.SessionID), zap.Error(err))
			return nil, "", ErrExportGenerateFail
		}
	}

	buf := bytes.NewBufferString(cal.Serialize())
	filename := fmt.Sprintf("教师课表_%s.ics", teacher.Name)
	return buf, filename, nil
}

// ── 辅助函数 ──

// loadGroupSchedule 装载教学班与其课次，无课次视为不可导出
func (s *exportService) loadGroupSchedule(ctx context.Context, groupID string) (*model.CourseGroup, []model.Session, error) {
	group, err := s.repo.CourseGroup.GetByID(ctx, groupID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrGroupNotFound
		}
		s.logger.Error("查询教学班失败", zap.String("id", groupID), zap.Error(err))
		return nil, nil, err
	}

	sessions, err := s.repo.Session.ListByGroup(ctx, groupID)
	if err != nil {
		s.logger.Error("查询课次失败", zap.String("group_id", groupID), zap.Error(err))
		return nil, nil, err
	}
	if len(sessions) == 0 {
		return nil, nil, ErrExportNoSessions
	}

	return group, sessions, nil
}

// addWeeklyEvent 将课次写入日历，生成带 FREQ=WEEKLY 重复规则的事件
func addWeeklyEvent(cal *ics.Calendar, sess *model.Session, summary, description string, now time.Time) error {
	interval, err := sess.Interval()
	if err != nil {
		return err
	}

	start := nextOccurrence(now, sess.DayOfWeek, interval.Start)
	end := start.Add(time.Duration(interval.Minutes()) * time.Minute)

	event := cal.AddEvent(fmt.Sprintf("%s@edusched", sess.SessionID))
	event.SetCreatedTime(now)
	event.SetDtStampTime(now)
	event.SetModifiedAt(now)
	event.SetStartAt(start)
	event.SetEndAt(end)
	event.SetSummary(summary)
	if sess.Classroom != "" {
		event.SetLocation(sess.Classroom)
	}
	if description != "" {
		event.SetDescription(description)
	}
	event.AddProperty(ics.ComponentPropertyRrule, "FREQ=WEEKLY;BYDAY="+icsByDay(sess.DayOfWeek))
	return nil
}

// nextOccurrence 计算某星期几的指定时刻自 from 起的下一次出现
// 当天该时刻已过时顺延一周
func nextOccurrence(from time.Time, day model.DayOfWeek, startMinutes int) time.Time {
	target := time.Weekday(int(day) % 7) // DaySunday(7) 映射为 time.Sunday(0)
	daysAhead := (int(target) - int(from.Weekday()) + 7) % 7
	candidate := time.Date(from.Year(), from.Month(), from.Day(),
		startMinutes/60, startMinutes%60, 0, 0, from.Location()).
		AddDate(0, 0, daysAhead)
	if !candidate.After(from) {
		candidate = candidate.AddDate(0, 0, 7)
	}
	return candidate
}

// icsByDay 将星期映射为 RRULE 的 BYDAY 取值
func icsByDay(day model.DayOfWeek) string {
	switch day {
	case model.DayMonday:
		return "MO"
	case model.DayTuesday:
		return "TU"
	case model.DayWednesday:
		return "WE"
	case model.DayThursday:
		return "TH"
	case model.DayFriday:
		return "FR"
	case model.DaySaturday:
		return "SA"
	case model.DaySunday:
		return "SU"
	default:
		return "MO"
	}
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
