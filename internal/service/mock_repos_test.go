package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gorm.io/gorm"

	"edusched/backend/internal/model"
	"edusched/backend/internal/repository"
	pkgerrors "edusched/backend/pkg/errors"
)

// ── Mock TxManager ──

// mockTxManager 以互斥锁串行执行 Atomic，模拟行锁下的互斥语义。
// map 后端不支持回滚，测试验证闸门判定与最终状态。
type mockTxManager struct {
	mu   sync.Mutex
	repo *repository.Repository
}

func (m *mockTxManager) Atomic(_ context.Context, fn func(txRepo *repository.Repository) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return fn(m.repo)
}

// ── Mock 聚合 ──

// mockRepos 捆绑全部 mock 仓储，测试直接操作内部 map/slice 造数
type mockRepos struct {
	user       *mockUserRepo
	subject    *mockSubjectRepo
	teacher    *mockTeacherRepo
	student    *mockStudentRepo
	group      *mockCourseGroupRepo
	session    *mockSessionRepo
	enrollment *mockEnrollmentRepo
	repo       *repository.Repository
}

func newMockRepos() *mockRepos {
	user := newMockUserRepo()
	subject := newMockSubjectRepo()
	teacher := newMockTeacherRepo()
	student := newMockStudentRepo()
	group := newMockCourseGroupRepo(subject, teacher)
	session := newMockSessionRepo(group)
	enrollment := newMockEnrollmentRepo(student, group)

	repo := &repository.Repository{
		User:        user,
		Subject:     subject,
		Teacher:     teacher,
		Student:     student,
		CourseGroup: group,
		Session:     session,
		Enrollment:  enrollment,
	}
	repo.Tx = &mockTxManager{repo: repo}

	return &mockRepos{
		user:       user,
		subject:    subject,
		teacher:    teacher,
		student:    student,
		group:      group,
		session:    session,
		enrollment: enrollment,
		repo:       repo,
	}
}

// ── Mock UserRepository ──

type mockUserRepo struct {
	users     map[string]*model.User
	idCounter int
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{users: make(map[string]*model.User)}
}

func (m *mockUserRepo) Create(_ context.Context, user *model.User) error {
	if user.UserID == "" {
		m.idCounter++
		user.UserID = fmt.Sprintf("user-%d", m.idCounter)
	}
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id string) (*model.User, error) {
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockUserRepo) Update(_ context.Context, user *model.User) error {
	m.users[user.UserID] = user
	return nil
}

func (m *mockUserRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.users, id)
	return nil
}

func (m *mockUserRepo) ListWithFilters(_ context.Context, filters *repository.UserListFilters, offset, limit int) ([]model.User, int64, error) {
	var filtered []model.User
	for _, u := range m.users {
		if filters != nil {
			if filters.Role != "" && u.Role != filters.Role {
				continue
			}
			if filters.Keyword != "" &&
				!strings.Contains(u.Name, filters.Keyword) &&
				!strings.Contains(u.Email, filters.Keyword) {
				continue
			}
		}
		filtered = append(filtered, *u)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// ── Mock SubjectRepository ──

type mockSubjectRepo struct {
	subjects  map[string]*model.Subject
	idCounter int
}

func newMockSubjectRepo() *mockSubjectRepo {
	return &mockSubjectRepo{subjects: make(map[string]*model.Subject)}
}

func (m *mockSubjectRepo) Create(_ context.Context, subject *model.Subject) error {
	if subject.SubjectID == "" {
		m.idCounter++
		subject.SubjectID = fmt.Sprintf("subj-%d", m.idCounter)
	}
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) GetByID(_ context.Context, id string) (*model.Subject, error) {
	if s, ok := m.subjects[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) GetByNameAndMajor(_ context.Context, name, major string) (*model.Subject, error) {
	for _, s := range m.subjects {
		if s.Name == name && s.Major == major {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSubjectRepo) Update(_ context.Context, subject *model.Subject) error {
	m.subjects[subject.SubjectID] = subject
	return nil
}

func (m *mockSubjectRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.subjects, id)
	return nil
}

func (m *mockSubjectRepo) ListWithFilters(_ context.Context, filters *repository.SubjectListFilters, offset, limit int) ([]model.Subject, int64, error) {
	var filtered []model.Subject
	for _, s := range m.subjects {
		if filters != nil {
			if filters.Major != "" && s.Major != filters.Major {
				continue
			}
			if filters.CourseYear != nil && s.CourseYear != *filters.CourseYear {
				continue
			}
			if filters.Keyword != "" && !strings.Contains(s.Name, filters.Keyword) {
				continue
			}
		}
		filtered = append(filtered, *s)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// ── Mock TeacherRepository ──

type mockTeacherRepo struct {
	teachers  map[string]*model.Teacher
	idCounter int
}

func newMockTeacherRepo() *mockTeacherRepo {
	return &mockTeacherRepo{teachers: make(map[string]*model.Teacher)}
}

func (m *mockTeacherRepo) Create(_ context.Context, teacher *model.Teacher) error {
	if teacher.TeacherID == "" {
		m.idCounter++
		teacher.TeacherID = fmt.Sprintf("teach-%d", m.idCounter)
	}
	m.teachers[teacher.TeacherID] = teacher
	return nil
}

func (m *mockTeacherRepo) GetByID(_ context.Context, id string) (*model.Teacher, error) {
	if t, ok := m.teachers[id]; ok {
		return t, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) GetByEmail(_ context.Context, email string) (*model.Teacher, error) {
	for _, t := range m.teachers {
		if t.Email == email {
			return t, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockTeacherRepo) Update(_ context.Context, teacher *model.Teacher) error {
	m.teachers[teacher.TeacherID] = teacher
	return nil
}

func (m *mockTeacherRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.teachers, id)
	return nil
}

func (m *mockTeacherRepo) List(_ context.Context, keyword string, offset, limit int) ([]model.Teacher, int64, error) {
	var filtered []model.Teacher
	for _, t := range m.teachers {
		if keyword != "" && !strings.Contains(t.Name, keyword) && !strings.Contains(t.Email, keyword) {
			continue
		}
		filtered = append(filtered, *t)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// ── Mock StudentRepository ──

type mockStudentRepo struct {
	students  map[string]*model.Student
	idCounter int
}

func newMockStudentRepo() *mockStudentRepo {
	return &mockStudentRepo{students: make(map[string]*model.Student)}
}

func (m *mockStudentRepo) Create(_ context.Context, student *model.Student) error {
	if student.StudentID == "" {
		m.idCounter++
		student.StudentID = fmt.Sprintf("stu-%d", m.idCounter)
	}
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) GetByID(_ context.Context, id string) (*model.Student, error) {
	if s, ok := m.students[id]; ok {
		return s, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) GetByEmail(_ context.Context, email string) (*model.Student, error) {
	for _, s := range m.students {
		if s.Email == email {
			return s, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockStudentRepo) Update(_ context.Context, student *model.Student) error {
	m.students[student.StudentID] = student
	return nil
}

func (m *mockStudentRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.students, id)
	return nil
}

func (m *mockStudentRepo) ListWithFilters(_ context.Context, filters *repository.StudentListFilters, offset, limit int) ([]model.Student, int64, error) {
	var filtered []model.Student
	for _, s := range m.students {
		if filters != nil {
			if filters.Major != "" && s.Major != filters.Major {
				continue
			}
			if filters.Keyword != "" &&
				!strings.Contains(s.Name, filters.Keyword) &&
				!strings.Contains(s.Email, filters.Keyword) {
				continue
			}
		}
		filtered = append(filtered, *s)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

// ── Mock CourseGroupRepository ──

type mockCourseGroupRepo struct {
	groups    map[string]*model.CourseGroup
	subjects  *mockSubjectRepo
	teachers  *mockTeacherRepo
	idCounter int
}

func newMockCourseGroupRepo(subjects *mockSubjectRepo, teachers *mockTeacherRepo) *mockCourseGroupRepo {
	return &mockCourseGroupRepo{
		groups:   make(map[string]*model.CourseGroup),
		subjects: subjects,
		teachers: teachers,
	}
}

// resolve 填充关联，模拟 Preload("Subject")/Preload("Teacher")
func (m *mockCourseGroupRepo) resolve(g *model.CourseGroup) *model.CourseGroup {
	if g.Subject == nil {
		g.Subject = m.subjects.subjects[g.SubjectID]
	}
	if g.Teacher == nil && g.TeacherID != nil {
		g.Teacher = m.teachers.teachers[*g.TeacherID]
	}
	return g
}

func (m *mockCourseGroupRepo) Create(_ context.Context, group *model.CourseGroup) error {
	if group.CourseGroupID == "" {
		m.idCounter++
		group.CourseGroupID = fmt.Sprintf("grp-%d", m.idCounter)
	}
	if group.Version == 0 {
		group.Version = 1
	}
	m.groups[group.CourseGroupID] = group
	return nil
}

func (m *mockCourseGroupRepo) GetByID(_ context.Context, id string) (*model.CourseGroup, error) {
	if g, ok := m.groups[id]; ok {
		return m.resolve(g), nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseGroupRepo) GetByIDForUpdate(_ context.Context, id string) (*model.CourseGroup, error) {
	if g, ok := m.groups[id]; ok {
		return g, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockCourseGroupRepo) Update(_ context.Context, group *model.CourseGroup) error {
	existing, ok := m.groups[group.CourseGroupID]
	if !ok {
		return gorm.ErrRecordNotFound
	}
	if existing.Version != group.Version {
		return pkgerrors.ErrOptimisticLock
	}
	group.Version++
	m.groups[group.CourseGroupID] = group
	return nil
}

func (m *mockCourseGroupRepo) Delete(_ context.Context, id string, _ string) error {
	delete(m.groups, id)
	return nil
}

func (m *mockCourseGroupRepo) ListWithFilters(_ context.Context, filters *repository.CourseGroupListFilters, offset, limit int) ([]model.CourseGroup, int64, error) {
	var filtered []model.CourseGroup
	for _, g := range m.groups {
		if filters != nil {
			if filters.SubjectID != "" && g.SubjectID != filters.SubjectID {
				continue
			}
			if filters.TeacherID != "" && (g.TeacherID == nil || *g.TeacherID != filters.TeacherID) {
				continue
			}
			if filters.Status != "" && g.Status != filters.Status {
				continue
			}
		}
		filtered = append(filtered, *m.resolve(g))
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockCourseGroupRepo) ListAll(_ context.Context) ([]model.CourseGroup, error) {
	var result []model.CourseGroup
	for _, g := range m.groups {
		result = append(result, *m.resolve(g))
	}
	return result, nil
}

func (m *mockCourseGroupRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.CourseGroup, error) {
	var result []model.CourseGroup
	for _, g := range m.groups {
		if g.TeacherID != nil && *g.TeacherID == teacherID {
			result = append(result, *m.resolve(g))
		}
	}
	return result, nil
}

func (m *mockCourseGroupRepo) CountBySubject(_ context.Context, subjectID string) (int64, error) {
	var count int64
	for _, g := range m.groups {
		if g.SubjectID == subjectID {
			count++
		}
	}
	return count, nil
}

func (m *mockCourseGroupRepo) CountByTeacherAndStatus(_ context.Context, teacherID string, statuses []string) (int64, error) {
	var count int64
	for _, g := range m.groups {
		if g.TeacherID == nil || *g.TeacherID != teacherID {
			continue
		}
		for _, status := range statuses {
			if g.Status == status {
				count++
				break
			}
		}
	}
	return count, nil
}

// ── Mock SessionRepository ──

type mockSessionRepo struct {
	sessions  []model.Session
	groups    *mockCourseGroupRepo // 联表与 Preload 依赖教学班数据
	idCounter int
}

func newMockSessionRepo(groups *mockCourseGroupRepo) *mockSessionRepo {
	return &mockSessionRepo{groups: groups}
}

// resolveGroup 填充所属教学班，模拟 Preload("Group")/Preload("Group.Subject")
func (m *mockSessionRepo) resolveGroup(s *model.Session) {
	if s.Group == nil {
		if g, ok := m.groups.groups[s.CourseGroupID]; ok {
			s.Group = m.groups.resolve(g)
		}
	}
}

func (m *mockSessionRepo) Create(_ context.Context, session *model.Session) error {
	if session.SessionID == "" {
		m.idCounter++
		session.SessionID = fmt.Sprintf("sess-%d", m.idCounter)
	}
	if session.Version == 0 {
		session.Version = 1
	}
	m.sessions = append(m.sessions, *session)
	return nil
}

func (m *mockSessionRepo) GetByID(_ context.Context, id string) (*model.Session, error) {
	for i := range m.sessions {
		if m.sessions[i].SessionID == id {
			m.resolveGroup(&m.sessions[i])
			return &m.sessions[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) Update(_ context.Context, session *model.Session) error {
	for i := range m.sessions {
		if m.sessions[i].SessionID == session.SessionID {
			if m.sessions[i].Version != session.Version {
				return pkgerrors.ErrOptimisticLock
			}
			session.Version++
			m.sessions[i] = *session
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockSessionRepo) Delete(_ context.Context, id string) error {
	for i := range m.sessions {
		if m.sessions[i].SessionID == id {
			m.sessions = append(m.sessions[:i], m.sessions[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockSessionRepo) DeleteByGroup(_ context.Context, groupID string) error {
	var remaining []model.Session
	for _, s := range m.sessions {
		if s.CourseGroupID != groupID {
			remaining = append(remaining, s)
		}
	}
	m.sessions = remaining
	return nil
}

func (m *mockSessionRepo) ListByGroup(_ context.Context, groupID string) ([]model.Session, error) {
	var result []model.Session
	for _, s := range m.sessions {
		if s.CourseGroupID == groupID {
			result = append(result, s)
		}
	}
	sortSessions(result)
	return result, nil
}

func (m *mockSessionRepo) CountByGroup(_ context.Context, groupID string) (int64, error) {
	var count int64
	for _, s := range m.sessions {
		if s.CourseGroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (m *mockSessionRepo) ListByClassroomOnDay(_ context.Context, classroom string, day model.DayOfWeek) ([]model.Session, error) {
	var result []model.Session
	for i := range m.sessions {
		if m.sessions[i].Classroom == classroom && m.sessions[i].DayOfWeek == day {
			cp := m.sessions[i]
			m.resolveGroup(&cp)
			result = append(result, cp)
		}
	}
	sortSessions(result)
	return result, nil
}

func (m *mockSessionRepo) ListByClassroom(_ context.Context, classroom string) ([]model.Session, error) {
	var result []model.Session
	for i := range m.sessions {
		if m.sessions[i].Classroom == classroom {
			cp := m.sessions[i]
			m.resolveGroup(&cp)
			result = append(result, cp)
		}
	}
	sortSessions(result)
	return result, nil
}

func (m *mockSessionRepo) ListByTeacher(_ context.Context, teacherID string) ([]model.Session, error) {
	var result []model.Session
	for i := range m.sessions {
		g, ok := m.groups.groups[m.sessions[i].CourseGroupID]
		if !ok || g.TeacherID == nil || *g.TeacherID != teacherID {
			continue
		}
		cp := m.sessions[i]
		m.resolveGroup(&cp)
		result = append(result, cp)
	}
	sortSessions(result)
	return result, nil
}

func (m *mockSessionRepo) ListClassrooms(_ context.Context) ([]string, error) {
	seen := make(map[string]bool)
	var result []string
	for _, s := range m.sessions {
		if s.Classroom == "" || seen[s.Classroom] {
			continue
		}
		seen[s.Classroom] = true
		result = append(result, s.Classroom)
	}
	sort.Strings(result)
	return result, nil
}

func sortSessions(sessions []model.Session) {
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].DayOfWeek != sessions[j].DayOfWeek {
			return sessions[i].DayOfWeek < sessions[j].DayOfWeek
		}
		return sessions[i].StartTime < sessions[j].StartTime
	})
}

// ── Mock EnrollmentRepository ──

type mockEnrollmentRepo struct {
	enrollments []model.Enrollment
	students    *mockStudentRepo
	groups      *mockCourseGroupRepo
	idCounter   int
}

func newMockEnrollmentRepo(students *mockStudentRepo, groups *mockCourseGroupRepo) *mockEnrollmentRepo {
	return &mockEnrollmentRepo{students: students, groups: groups}
}

func (m *mockEnrollmentRepo) resolve(e *model.Enrollment) {
	if e.Student == nil {
		e.Student = m.students.students[e.StudentID]
	}
	if e.Group == nil {
		if g, ok := m.groups.groups[e.CourseGroupID]; ok {
			e.Group = m.groups.resolve(g)
		}
	}
}

// Create 模拟 (student_id, course_group_id) 唯一约束
func (m *mockEnrollmentRepo) Create(_ context.Context, enrollment *model.Enrollment) error {
	for _, e := range m.enrollments {
		if e.StudentID == enrollment.StudentID && e.CourseGroupID == enrollment.CourseGroupID {
			return gorm.ErrDuplicatedKey
		}
	}
	if enrollment.EnrollmentID == "" {
		m.idCounter++
		enrollment.EnrollmentID = fmt.Sprintf("enr-%d", m.idCounter)
	}
	if enrollment.Version == 0 {
		enrollment.Version = 1
	}
	m.enrollments = append(m.enrollments, *enrollment)
	return nil
}

func (m *mockEnrollmentRepo) GetByID(_ context.Context, id string) (*model.Enrollment, error) {
	for i := range m.enrollments {
		if m.enrollments[i].EnrollmentID == id {
			m.resolve(&m.enrollments[i])
			return &m.enrollments[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) GetByStudentAndGroup(_ context.Context, studentID, groupID string) (*model.Enrollment, error) {
	for i := range m.enrollments {
		if m.enrollments[i].StudentID == studentID && m.enrollments[i].CourseGroupID == groupID {
			return &m.enrollments[i], nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) CountByGroup(_ context.Context, groupID string) (int64, error) {
	var count int64
	for _, e := range m.enrollments {
		if e.CourseGroupID == groupID {
			count++
		}
	}
	return count, nil
}

func (m *mockEnrollmentRepo) CountGroupedByGroup(_ context.Context, groupIDs []string) (map[string]int64, error) {
	result := make(map[string]int64, len(groupIDs))
	for _, id := range groupIDs {
		for _, e := range m.enrollments {
			if e.CourseGroupID == id {
				result[id]++
			}
		}
	}
	return result, nil
}

func (m *mockEnrollmentRepo) CountByStudent(_ context.Context, studentID string) (int64, error) {
	var count int64
	for _, e := range m.enrollments {
		if e.StudentID == studentID {
			count++
		}
	}
	return count, nil
}

func (m *mockEnrollmentRepo) UpdatePaymentStatus(_ context.Context, enrollment *model.Enrollment) error {
	for i := range m.enrollments {
		if m.enrollments[i].EnrollmentID == enrollment.EnrollmentID {
			if m.enrollments[i].Version != enrollment.Version {
				return pkgerrors.ErrOptimisticLock
			}
			enrollment.Version++
			m.enrollments[i] = *enrollment
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (m *mockEnrollmentRepo) Delete(_ context.Context, id string) error {
	for i := range m.enrollments {
		if m.enrollments[i].EnrollmentID == id {
			m.enrollments = append(m.enrollments[:i], m.enrollments[i+1:]...)
			return nil
		}
	}
	return nil
}

func (m *mockEnrollmentRepo) ListWithFilters(_ context.Context, filters *repository.EnrollmentListFilters, offset, limit int) ([]model.Enrollment, int64, error) {
	var filtered []model.Enrollment
	for i := range m.enrollments {
		e := m.enrollments[i]
		if filters != nil {
			if filters.StudentID != "" && e.StudentID != filters.StudentID {
				continue
			}
			if filters.CourseGroupID != "" && e.CourseGroupID != filters.CourseGroupID {
				continue
			}
			if filters.PaymentStatus != "" && e.PaymentStatus != filters.PaymentStatus {
				continue
			}
		}
		m.resolve(&e)
		filtered = append(filtered, e)
	}
	total := int64(len(filtered))
	if offset >= len(filtered) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(filtered) {
		end = len(filtered)
	}
	return filtered[offset:end], total, nil
}

func (m *mockEnrollmentRepo) ListByGroup(_ context.Context, groupID string) ([]model.Enrollment, error) {
	var result []model.Enrollment
	for i := range m.enrollments {
		if m.enrollments[i].CourseGroupID == groupID {
			e := m.enrollments[i]
			m.resolve(&e)
			result = append(result, e)
		}
	}
	return result, nil
}
