package service

import (
	"context"
	"strings"

	"SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/internal/modules/school/domain/repository"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

// RelationshipService 只读的学生-账号关系查询，所有结果都限定在给定学校内
type RelationshipService interface {
	ResolveRelationships(ctx context.Context, tenantID, studentID string) (*entity.Relationships, error)
	ResolveRelationshipsBatch(ctx context.Context, tenantID string, studentIDs []string) (map[string]*entity.Relationships, error)
	ClassRoster(ctx context.Context, tenantID, classID string) ([]string, error)
	StaffAccounts(ctx context.Context, tenantID, classID, role string) ([]string, error)
	ContactPhones(ctx context.Context, tenantID string, accountIDs []string) (map[string]string, error)
}

type relationshipServiceImpl struct {
	accountRepo repository.AccountRepository
	rosterRepo  repository.RosterRepository
	catalogRepo repository.CatalogRepository
}

func NewRelationshipService(accountRepo repository.AccountRepository, rosterRepo repository.RosterRepository, catalogRepo repository.CatalogRepository) RelationshipService {
	return &relationshipServiceImpl{
		accountRepo: accountRepo,
		rosterRepo:  rosterRepo,
		catalogRepo: catalogRepo,
	}
}

func (s *relationshipServiceImpl) ResolveRelationships(ctx context.Context, tenantID, studentID string) (*entity.Relationships, error) {
	m, err := s.ResolveRelationshipsBatch(ctx, tenantID, []string{studentID})
	if err != nil {
		return nil, err
	}
	if rel, ok := m[studentID]; ok {
		return rel, nil
	}
	return &entity.Relationships{StudentId: studentID}, nil
}

func (s *relationshipServiceImpl) ResolveRelationshipsBatch(ctx context.Context, tenantID string, studentIDs []string) (map[string]*entity.Relationships, error) {
	if strings.TrimSpace(tenantID) == "" {
		return nil, xerr.ErrNoTenantContext
	}
	out := make(map[string]*entity.Relationships, len(studentIDs))
	if len(studentIDs) == 0 {
		return out, nil
	}

	// 学生本身必须属于该学校，否则不展开任何关联
	students, err := s.rosterRepo.ListStudentsByIDs(ctx, tenantID, studentIDs)
	if err != nil {
		zlog.Error("relationship: list students failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	ids := make([]string, 0, len(students))
	for _, st := range students {
		if st.TenantId != tenantID {
			continue
		}
		out[st.StudentId] = &entity.Relationships{StudentId: st.StudentId, StudentName: st.FullName}
		ids = append(ids, st.StudentId)
	}
	if len(ids) == 0 {
		return out, nil
	}

	parentOf, err := s.accountRepo.ListByParentOf(ctx, tenantID, ids)
	if err != nil {
		zlog.Error("relationship: list parent-of accounts failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	for _, a := range parentOf {
		rel := out[a.LinkedParentOf]
		if rel == nil || a.TenantId != tenantID {
			continue
		}
		rel.ParentAccounts = append(rel.ParentAccounts, entity.LinkedAccount{AccountId: a.Uuid, Link: entity.LinkParentOf})
	}

	links, err := s.rosterRepo.ListParentLinks(ctx, tenantID, ids)
	if err != nil {
		zlog.Error("relationship: list parent links failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if len(links) > 0 {
		// 直接登记的家长账号也要确认是本校的有效账号
		accountIDs := make([]string, 0, len(links))
		for _, l := range links {
			accountIDs = append(accountIDs, l.AccountId)
		}
		accounts, err := s.accountRepo.ListByUUIDs(ctx, tenantID, accountIDs)
		if err != nil {
			zlog.Error("relationship: list linked accounts failed", zap.String("tenant_id", tenantID), zap.Error(err))
			return nil, xerr.ErrServerError
		}
		valid := make(map[string]struct{}, len(accounts))
		for _, a := range accounts {
			if a.TenantId == tenantID {
				valid[a.Uuid] = struct{}{}
			}
		}
		for _, l := range links {
			rel := out[l.StudentId]
			if rel == nil || l.TenantId != tenantID {
				continue
			}
			if _, ok := valid[l.AccountId]; !ok {
				continue
			}
			rel.ParentAccounts = append(rel.ParentAccounts, entity.LinkedAccount{AccountId: l.AccountId, Link: entity.LinkDirect})
		}
	}

	own, err := s.accountRepo.ListByLinkedStudent(ctx, tenantID, ids)
	if err != nil {
		zlog.Error("relationship: list student accounts failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	for _, a := range own {
		rel := out[a.LinkedStudentId]
		if rel == nil || a.TenantId != tenantID || rel.StudentAccount != nil {
			continue
		}
		rel.StudentAccount = &entity.LinkedAccount{AccountId: a.Uuid, Link: entity.LinkStudentOf}
	}

	return out, nil
}

func (s *relationshipServiceImpl) ClassRoster(ctx context.Context, tenantID, classID string) ([]string, error) {
	ids, err := s.rosterRepo.ListStudentIDs(ctx, tenantID, classID)
	if err != nil {
		zlog.Error("relationship: class roster failed", zap.String("tenant_id", tenantID), zap.String("class_id", classID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return ids, nil
}

// StaffAccounts 老师：有班级时取班主任，否则取全校老师；管理员：全校管理员
func (s *relationshipServiceImpl) StaffAccounts(ctx context.Context, tenantID, classID, role string) ([]string, error) {
	if role == entity.AccountRoleTeacher && classID != "" {
		class, err := s.catalogRepo.GetClass(ctx, tenantID, classID)
		if err != nil {
			return nil, xerr.Wrap(xerr.NotFound, "班级不存在", err)
		}
		if class.ClassTeacherId == "" {
			return []string{}, nil
		}
		accounts, err := s.accountRepo.ListByUUIDs(ctx, tenantID, []string{class.ClassTeacherId})
		if err != nil {
			zlog.Error("relationship: load class teacher failed", zap.String("class_id", classID), zap.Error(err))
			return nil, xerr.ErrServerError
		}
		return accountIDs(accounts, tenantID), nil
	}

	accounts, err := s.accountRepo.ListByRole(ctx, tenantID, role)
	if err != nil {
		zlog.Error("relationship: list staff failed", zap.String("tenant_id", tenantID), zap.String("role", role), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return accountIDs(accounts, tenantID), nil
}

func (s *relationshipServiceImpl) ContactPhones(ctx context.Context, tenantID string, ids []string) (map[string]string, error) {
	accounts, err := s.accountRepo.ListByUUIDs(ctx, tenantID, ids)
	if err != nil {
		zlog.Error("relationship: load phones failed", zap.String("tenant_id", tenantID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	out := make(map[string]string, len(accounts))
	for _, a := range accounts {
		if a.TenantId != tenantID {
			continue
		}
		out[a.Uuid] = strings.TrimSpace(a.Phone)
	}
	return out, nil
}

func accountIDs(accounts []entity.Account, tenantID string) []string {
	out := make([]string, 0, len(accounts))
	for _, a := range accounts {
		if a.TenantId == tenantID {
			out = append(out, a.Uuid)
		}
	}
	return out
}
