package service

import (
	"errors"
	"fmt"

	"edusched/backend/internal/model"
)

// ── 课次时长规则业务错误 ──

var (
	ErrSessionTimeRequired = errors.New("课次起止时间不能为空")
	ErrSessionTimeFormat   = errors.New("时刻格式不合法，应为 HH:MM")
	ErrSessionTimeOrder    = errors.New("结束时间必须晚于开始时间")
	ErrSessionTooShort     = errors.New("课次时长不得少于 30 分钟")
	ErrSessionTooLong      = errors.New("课次时长不得超过 4 小时")
	ErrSessionOutOfBounds  = errors.New("上课时间必须在 06:00 到 22:00 之间")
	ErrSessionDayInvalid   = errors.New("星期取值必须在 1（周一）到 7（周日）之间")
)

// 课次时长边界（分钟）
const (
	minSessionMinutes = 30
	maxSessionMinutes = 4 * 60
	earliestStart     = 6 * 60  // 06:00
	latestEnd         = 22 * 60 // 22:00
)

// 冲突维度
const (
	ConflictDimensionGroup     = "GROUP"
	ConflictDimensionClassroom = "CLASSROOM"
	ConflictDimensionTeacher   = "TEACHER"
)

// ScheduleConflictError 排课冲突
// 携带冲突维度与对方课次的上下文，供接口层渲染提示
type ScheduleConflictError struct {
	Dimension   string             `json:"dimension"` // GROUP | CLASSROOM | TEACHER
	SessionID   string             `json:"session_id"`
	GroupName   string             `json:"group_name,omitempty"`
	SubjectName string             `json:"subject_name,omitempty"`
	Day         model.DayOfWeek    `json:"day_of_week"`
	Interval    model.TimeInterval `json:"interval"`
	Classroom   string             `json:"classroom,omitempty"`
}

func (e *ScheduleConflictError) Error() string {
	where := e.SubjectName
	if where == "" {
		where = e.GroupName
	}
	switch e.Dimension {
	case ConflictDimensionGroup:
		return fmt.Sprintf("排课冲突[本班]: 与%s %s 的课次重叠", e.Day, e.Interval)
	case ConflictDimensionClassroom:
		return fmt.Sprintf("排课冲突[教室]: 教室 %s 在%s %s 已被《%s》占用", e.Classroom, e.Day, e.Interval, where)
	case ConflictDimensionTeacher:
		return fmt.Sprintf("排课冲突[教师]: 教师在%s %s 需为《%s》授课", e.Day, e.Interval, where)
	default:
		return fmt.Sprintf("排课冲突: %s %s", e.Day, e.Interval)
	}
}

// ────────────────────── 时长规则 ──────────────────────

// validateSessionTiming 校验课次时长与边界，按序应用，首个失败即返回：
//  1. 起止时刻均不可为空
//  2. 结束时刻必须晚于开始时刻（相等或颠倒均不合法）
//  3. 时长不少于 30 分钟
//  4. 时长不超过 4 小时
//  5. 不早于 06:00 开始、不晚于 22:00 结束
//
// 纯校验，无副作用，在冲突检测之前执行
func validateSessionTiming(startTime, endTime string) (model.TimeInterval, error) {
	if startTime == "" || endTime == "" {
		return model.TimeInterval{}, ErrSessionTimeRequired
	}

	interval, err := model.NewTimeInterval(startTime, endTime)
	if err != nil {
		return model.TimeInterval{}, ErrSessionTimeFormat
	}

	if interval.End <= interval.Start {
		return model.TimeInterval{}, ErrSessionTimeOrder
	}
	if interval.Minutes() < minSessionMinutes {
		return model.TimeInterval{}, ErrSessionTooShort
	}
	if interval.Minutes() > maxSessionMinutes {
		return model.TimeInterval{}, ErrSessionTooLong
	}
	if interval.Start < earliestStart || interval.End > latestEnd {
		return model.TimeInterval{}, ErrSessionOutOfBounds
	}

	return interval, nil
}

// ────────────────────── 冲突检测 ──────────────────────

// sessionCandidate 待检测的课次安排
// ExcludeSessionID 非空时跳过该课次自身（编辑场景）
type sessionCandidate struct {
	GroupID          string
	Day              model.DayOfWeek
	Interval         model.TimeInterval
	Classroom        string
	ExcludeSessionID string
}

// findScheduleConflict 在三个维度上检测候选课次与既有课次的重叠，
// 按 本班 → 教室 → 教师 的顺序返回首个冲突：
//
//  1. 本班维度: groupSessions 为候选所属教学班的全部课次
//  2. 教室维度: classroomSessions 为同教室同星期的全部课次；
//     候选未指定教室时整体跳过
//  3. 教师维度: teacherSessions 为授课教师名下全部课次，本班的
//     除外（本班重叠已由维度一覆盖）；未指派教师时传空集即可
//
// 纯函数：不访问存储，三个集合由调用方在同一事务快照内装载。
// 返回 (nil, nil) 表示无冲突；返回 error 仅当存量数据的时刻无法解析
func findScheduleConflict(candidate *sessionCandidate, groupSessions, classroomSessions, teacherSessions []model.Session) (*ScheduleConflictError, error) {
	// 维度一：本班内部
	for i := range groupSessions {
		s := &groupSessions[i]
		if s.SessionID == candidate.ExcludeSessionID {
			continue
		}
		if s.DayOfWeek != candidate.Day {
			continue
		}
		overlaps, err := intervalOverlaps(candidate.Interval, s)
		if err != nil {
			return nil, err
		}
		if overlaps {
			return newConflictError(ConflictDimensionGroup, s), nil
		}
	}

	// 维度二：教室
	if candidate.Classroom != "" {
		for i := range classroomSessions {
			s := &classroomSessions[i]
			if s.SessionID == candidate.ExcludeSessionID {
				continue
			}
			if s.DayOfWeek != candidate.Day || s.Classroom != candidate.Classroom {
				continue
			}
			overlaps, err := intervalOverlaps(candidate.Interval, s)
			if err != nil {
				return nil, err
			}
			if overlaps {
				return newConflictError(ConflictDimensionClassroom, s), nil
			}
		}
	}

	// 维度三：教师
	for i := range teacherSessions {
		s := &teacherSessions[i]
		if s.SessionID == candidate.ExcludeSessionID {
			continue
		}
		if s.CourseGroupID == candidate.GroupID {
			continue
		}
		if s.DayOfWeek != candidate.Day {
			continue
		}
		overlaps, err := intervalOverlaps(candidate.Interval, s)
		if err != nil {
			return nil, err
		}
		if overlaps {
			return newConflictError(ConflictDimensionTeacher, s), nil
		}
	}

	return nil, nil
}

func intervalOverlaps(candidate model.TimeInterval, existing *model.Session) (bool, error) {
	existingInterval, err := existing.Interval()
	if err != nil {
		return false, fmt.Errorf("课次 %s 的存量时刻无法解析: %w", existing.SessionID, err)
	}
	return candidate.Overlaps(existingInterval), nil
}

func newConflictError(dimension string, existing *model.Session) *ScheduleConflictError {
	conflict := &ScheduleConflictError{
		Dimension: dimension,
		SessionID: existing.SessionID,
		Day:       existing.DayOfWeek,
		Classroom: existing.Classroom,
	}
	// 时刻已在 intervalOverlaps 中解析成功
	conflict.Interval, _ = existing.Interval()
	if existing.Group != nil {
		conflict.GroupName = existing.Group.Name
		if existing.Group.Subject != nil {
			conflict.SubjectName = existing.Group.Subject.Name
		}
	}
	return conflict
}
