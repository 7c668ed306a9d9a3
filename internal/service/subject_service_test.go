package service

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"

	"edusched/backend/internal/dto"
	"edusched/backend/internal/model"
)

func setupTestSubjectService() (SubjectService, *mockRepos) {
	mocks := newMockRepos()
	svc := NewSubjectService(mocks.repo, zap.NewNop())
	return svc, mocks
}

func TestSubjectService_Create_Success(t *testing.T) {
	svc, mocks := setupTestSubjectService()

	req := &dto.CreateSubjectRequest{Name: "编译原理", Major: "计算机科学", CourseYear: 3}
	resp, err := svc.Create(context.Background(), req, "admin-1")
	if err != nil {
		t.Fatalf("创建科目应成功: %v", err)
	}
	if resp.Name != "编译原理" || resp.Major != "计算机科学" || resp.CourseYear != 3 {
		t.Errorf("响应字段不符: %+v", resp)
	}

	created := mocks.subject.subjects[resp.ID]
	if created == nil {
		t.Fatal("科目未写入存储")
	}
	if created.CreatedBy == nil || *created.CreatedBy != "admin-1" {
		t.Error("应记录创建人")
	}
}

func TestSubjectService_Create_Duplicate(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	seedSubject(mocks, "subj-1", "编译原理", "计算机科学")

	req := &dto.CreateSubjectRequest{Name: "编译原理", Major: "计算机科学", CourseYear: 3}
	if _, err := svc.Create(context.Background(), req, "admin-1"); !errors.Is(err, ErrSubjectDuplicate) {
		t.Errorf("期望 ErrSubjectDuplicate, 实际: %v", err)
	}

	// 同名不同专业允许
	req = &dto.CreateSubjectRequest{Name: "编译原理", Major: "软件工程", CourseYear: 3}
	if _, err := svc.Create(context.Background(), req, "admin-1"); err != nil {
		t.Errorf("不同专业下同名科目应允许: %v", err)
	}
}

func TestSubjectService_Update_DuplicateGuard(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	seedSubject(mocks, "subj-1", "编译原理", "计算机科学")
	seedSubject(mocks, "subj-2", "高等数学", "计算机科学")

	// 改名撞上他科目的 (name, major)
	takenName := "高等数学"
	req := &dto.UpdateSubjectRequest{Name: &takenName}
	if _, err := svc.Update(context.Background(), "subj-1", req, "admin-1"); !errors.Is(err, ErrSubjectDuplicate) {
		t.Errorf("期望 ErrSubjectDuplicate, 实际: %v", err)
	}

	// 改回自身原名不算重复
	ownName := "编译原理"
	newYear := 4
	req = &dto.UpdateSubjectRequest{Name: &ownName, CourseYear: &newYear}
	resp, err := svc.Update(context.Background(), "subj-1", req, "admin-1")
	if err != nil {
		t.Fatalf("保持原名的更新应成功: %v", err)
	}
	if resp.CourseYear != 4 {
		t.Errorf("期望年级 4, 实际=%d", resp.CourseYear)
	}
}

func TestSubjectService_Update_NotFound(t *testing.T) {
	svc, _ := setupTestSubjectService()

	name := "编译原理"
	req := &dto.UpdateSubjectRequest{Name: &name}
	if _, err := svc.Update(context.Background(), "subj-404", req, "admin-1"); !errors.Is(err, ErrSubjectNotFound) {
		t.Errorf("期望 ErrSubjectNotFound, 实际: %v", err)
	}
}

func TestSubjectService_Delete_HasGroups(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	seedSubject(mocks, "subj-1", "编译原理", "计算机科学")
	seedGroup(mocks, "grp-1", "subj-1", model.GroupStatusPlanned)

	if err := svc.Delete(context.Background(), "subj-1", "admin-1"); !errors.Is(err, ErrSubjectHasGroups) {
		t.Errorf("期望 ErrSubjectHasGroups, 实际: %v", err)
	}

	// 教学班清空后可删
	delete(mocks.group.groups, "grp-1")
	if err := svc.Delete(context.Background(), "subj-1", "admin-1"); err != nil {
		t.Fatalf("无教学班的科目应可删除: %v", err)
	}
	if _, ok := mocks.subject.subjects["subj-1"]; ok {
		t.Error("科目应已删除")
	}
}

func TestSubjectService_List_Filters(t *testing.T) {
	svc, mocks := setupTestSubjectService()
	seedSubject(mocks, "subj-1", "编译原理", "计算机科学")
	seedSubject(mocks, "subj-2", "高等数学", "计算机科学")
	seedSubject(mocks, "subj-3", "线性代数", "软件工程")

	req := &dto.SubjectListRequest{Major: "计算机科学"}
	_, total, err := svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("列出科目应成功: %v", err)
	}
	if total != 2 {
		t.Errorf("按专业筛选应命中 2 条, 实际=%d", total)
	}

	req = &dto.SubjectListRequest{Keyword: "编译"}
	result, total, err := svc.List(context.Background(), req)
	if err != nil {
		t.Fatalf("列出科目应成功: %v", err)
	}
	if total != 1 || result[0].Name != "编译原理" {
		t.Errorf("按关键词筛选应命中编译原理, 实际 total=%d", total)
	}
}
