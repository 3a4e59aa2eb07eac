package service

import (
	"context"
	"strings"

	"SchoolLink/internal/modules/notification/domain/entity"
	schoolService "SchoolLink/internal/modules/school/application/service"
	schoolEntity "SchoolLink/internal/modules/school/domain/entity"
)

// RecipientResolver 把事件涉及的学生展开成去重后的接收账号
type RecipientResolver interface {
	Resolve(ctx context.Context, tenantID string, studentIDs []string, roles []entity.RecipientRole) ([]entity.Recipient, error)
	ResolveAudience(ctx context.Context, tenantID, classID string, roles []entity.RecipientRole) ([]entity.Recipient, error)
}

type recipientResolverImpl struct {
	relationships schoolService.RelationshipService
}

func NewRecipientResolver(relationships schoolService.RelationshipService) RecipientResolver {
	return &recipientResolverImpl{relationships: relationships}
}

// recipientSet 按插入顺序去重，同一账号先出现的角色生效
type recipientSet struct {
	seen map[string]struct{}
	out  []entity.Recipient
}

func newRecipientSet() *recipientSet {
	return &recipientSet{seen: make(map[string]struct{})}
}

func (s *recipientSet) add(accountID string, role entity.RecipientRole) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return
	}
	if _, ok := s.seen[accountID]; ok {
		return
	}
	s.seen[accountID] = struct{}{}
	s.out = append(s.out, entity.Recipient{AccountId: accountID, Role: role})
}

func roleSet(roles []entity.RecipientRole) map[entity.RecipientRole]bool {
	m := make(map[entity.RecipientRole]bool, len(roles))
	for _, r := range roles {
		m[r] = true
	}
	if len(m) == 0 {
		m[entity.RoleParent] = true
		m[entity.RoleStudent] = true
	}
	return m
}

func dedupIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func (r *recipientResolverImpl) Resolve(ctx context.Context, tenantID string, studentIDs []string, roles []entity.RecipientRole) ([]entity.Recipient, error) {
	set := newRecipientSet()
	if err := r.collect(ctx, set, tenantID, studentIDs, roleSet(roles)); err != nil {
		return nil, err
	}
	return set.out, nil
}

// collect 按关联路径分三轮收集：parent_of、direct、student_of
func (r *recipientResolverImpl) collect(ctx context.Context, set *recipientSet, tenantID string, studentIDs []string, want map[entity.RecipientRole]bool) error {
	if !want[entity.RoleParent] && !want[entity.RoleStudent] {
		return nil
	}
	ids := dedupIDs(studentIDs)
	if len(ids) == 0 {
		return nil
	}
	rels, err := r.relationships.ResolveRelationshipsBatch(ctx, tenantID, ids)
	if err != nil {
		return err
	}

	for _, pass := range []schoolEntity.LinkKind{schoolEntity.LinkParentOf, schoolEntity.LinkDirect} {
		if !want[entity.RoleParent] {
			break
		}
		for _, sid := range ids {
			rel := rels[sid]
			if rel == nil {
				continue
			}
			for _, p := range rel.ParentAccounts {
				if p.Link == pass {
					set.add(p.AccountId, entity.RoleParent)
				}
			}
		}
	}
	if want[entity.RoleStudent] {
		for _, sid := range ids {
			rel := rels[sid]
			if rel == nil || rel.StudentAccount == nil {
				continue
			}
			set.add(rel.StudentAccount.AccountId, entity.RoleStudent)
		}
	}
	return nil
}

func (r *recipientResolverImpl) ResolveAudience(ctx context.Context, tenantID, classID string, roles []entity.RecipientRole) ([]entity.Recipient, error) {
	want := roleSet(roles)
	set := newRecipientSet()

	if want[entity.RoleParent] || want[entity.RoleStudent] {
		students, err := r.relationships.ClassRoster(ctx, tenantID, classID)
		if err != nil {
			return nil, err
		}
		if err := r.collect(ctx, set, tenantID, students, want); err != nil {
			return nil, err
		}
	}
	if want[entity.RoleTeacher] {
		ids, err := r.relationships.StaffAccounts(ctx, tenantID, classID, schoolEntity.AccountRoleTeacher)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set.add(id, entity.RoleTeacher)
		}
	}
	if want[entity.RoleAdmin] {
		ids, err := r.relationships.StaffAccounts(ctx, tenantID, "", schoolEntity.AccountRoleAdmin)
		if err != nil {
			return nil, err
		}
		for _, id := range ids {
			set.add(id, entity.RoleAdmin)
		}
	}
	return set.out, nil
}
