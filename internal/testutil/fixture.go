package testutil

import (
	"testing"
	"time"

	schoolEntity "SchoolLink/internal/modules/school/domain/entity"

	"gorm.io/gorm"
)

// MustCreate 依次插入记录，失败直接终止测试
func MustCreate(t *testing.T, db *gorm.DB, values ...interface{}) {
	t.Helper()
	for _, v := range values {
		if err := db.Create(v).Error; err != nil {
			t.Fatalf("create %T: %v", v, err)
		}
	}
}

// School 一所测试学校：班级 7-A，三名学生，每人一个家长账号；
// 学生 s2 另有自己的账号，s3 的家长通过 student_parents 登记
type School struct {
	TenantId string
	ClassId  string
	Teacher  string
	Admin    string
	Students []string
	Parents  []string
	Student2 string
}

func SeedSchool(t *testing.T, db *gorm.DB, tenantID string) School {
	t.Helper()
	now := time.Now()
	s := School{
		TenantId: tenantID,
		ClassId:  tenantID + "-class-7a",
		Teacher:  tenantID + "-teacher",
		Admin:    tenantID + "-admin",
		Students: []string{tenantID + "-s1", tenantID + "-s2", tenantID + "-s3"},
		Parents:  []string{tenantID + "-p1", tenantID + "-p2", tenantID + "-p3"},
		Student2: tenantID + "-s2-account",
	}

	MustCreate(t, db,
		&schoolEntity.Tenant{TenantId: tenantID, Name: "School " + tenantID, CreatedAt: now},
		&schoolEntity.SchoolClass{ClassId: s.ClassId, TenantId: tenantID, Name: "7", Section: "A", ClassTeacherId: s.Teacher, CreatedAt: now},
		&schoolEntity.Subject{SubjectId: tenantID + "-math", TenantId: tenantID, Name: "Math"},
		&schoolEntity.Exam{ExamId: tenantID + "-midterm", TenantId: tenantID, Name: "Midterm"},
		&schoolEntity.Account{Uuid: s.Teacher, TenantId: tenantID, Role: schoolEntity.AccountRoleTeacher, FullName: "Ms. Rao", CreatedAt: now},
		&schoolEntity.Account{Uuid: s.Admin, TenantId: tenantID, Role: schoolEntity.AccountRoleAdmin, FullName: "Admin", CreatedAt: now},
	)
	due := time.Date(2026, 3, 14, 0, 0, 0, 0, time.UTC)
	MustCreate(t, db, &schoolEntity.Homework{HomeworkId: tenantID + "-hw1", TenantId: tenantID, ClassId: s.ClassId, SubjectId: tenantID + "-math", Title: "Fractions", DueDate: &due, CreatedAt: now})

	names := []string{"Asha", "Ben", "Chen"}
	for i, sid := range s.Students {
		MustCreate(t, db, &schoolEntity.Student{StudentId: sid, TenantId: tenantID, ClassId: s.ClassId, FullName: names[i], CreatedAt: now})
	}
	// p1, p2 通过账号上的 linked_parent_of 关联
	MustCreate(t, db,
		&schoolEntity.Account{Uuid: s.Parents[0], TenantId: tenantID, Role: schoolEntity.AccountRoleParent, FullName: "Parent 1", Phone: "+10000000001", LinkedParentOf: s.Students[0], CreatedAt: now},
		&schoolEntity.Account{Uuid: s.Parents[1], TenantId: tenantID, Role: schoolEntity.AccountRoleParent, FullName: "Parent 2", LinkedParentOf: s.Students[1], CreatedAt: now},
		&schoolEntity.Account{Uuid: s.Parents[2], TenantId: tenantID, Role: schoolEntity.AccountRoleParent, FullName: "Parent 3", Phone: "+10000000003", CreatedAt: now},
		&schoolEntity.StudentParent{TenantId: tenantID, StudentId: s.Students[2], AccountId: s.Parents[2], Relation: "mother", CreatedAt: now},
		&schoolEntity.Account{Uuid: s.Student2, TenantId: tenantID, Role: schoolEntity.AccountRoleStudent, FullName: "Ben", LinkedStudentId: s.Students[1], CreatedAt: now},
	)
	return s
}
