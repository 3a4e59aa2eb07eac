package repository

import (
	"context"

	"SchoolLink/internal/modules/school/domain/entity"
)

type TenantRepository interface {
	GetByTenantID(ctx context.Context, tenantID string) (*entity.Tenant, error)
}

// AccountRepository 所有按学校查询的方法都只返回正常状态的账号
type AccountRepository interface {
	GetByUUID(ctx context.Context, uuid string) (*entity.Account, error)
	ListByUUIDs(ctx context.Context, tenantID string, uuids []string) ([]entity.Account, error)
	ListByParentOf(ctx context.Context, tenantID string, studentIDs []string) ([]entity.Account, error)
	ListByLinkedStudent(ctx context.Context, tenantID string, studentIDs []string) ([]entity.Account, error)
	ListByRole(ctx context.Context, tenantID string, role string) ([]entity.Account, error)
}

type RosterRepository interface {
	ListStudentsByIDs(ctx context.Context, tenantID string, studentIDs []string) ([]entity.Student, error)
	// ListStudentIDs classID 为空时返回整个学校的在读学生
	ListStudentIDs(ctx context.Context, tenantID string, classID string) ([]string, error)
	ListParentLinks(ctx context.Context, tenantID string, studentIDs []string) ([]entity.StudentParent, error)
}

type CatalogRepository interface {
	GetClass(ctx context.Context, tenantID, classID string) (*entity.SchoolClass, error)
	GetSubject(ctx context.Context, tenantID, subjectID string) (*entity.Subject, error)
	GetExam(ctx context.Context, tenantID, examID string) (*entity.Exam, error)
	GetHomework(ctx context.Context, tenantID, homeworkID string) (*entity.Homework, error)
}
