package persistence

import (
	"context"

	"SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/internal/modules/school/domain/repository"

	"gorm.io/gorm"
)

type tenantRepositoryImpl struct {
	db *gorm.DB
}

func NewTenantRepository(db *gorm.DB) repository.TenantRepository {
	return &tenantRepositoryImpl{db: db}
}

func (r *tenantRepositoryImpl) GetByTenantID(ctx context.Context, tenantID string) (*entity.Tenant, error) {
	var t entity.Tenant
	if err := r.db.WithContext(ctx).Where("tenant_id = ?", tenantID).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

type accountRepositoryImpl struct {
	db *gorm.DB
}

func NewAccountRepository(db *gorm.DB) repository.AccountRepository {
	return &accountRepositoryImpl{db: db}
}

func (r *accountRepositoryImpl) GetByUUID(ctx context.Context, uuid string) (*entity.Account, error) {
	var a entity.Account
	if err := r.db.WithContext(ctx).Where("uuid = ?", uuid).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *accountRepositoryImpl) scoped(ctx context.Context, tenantID string) *gorm.DB {
	return r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ?", tenantID, entity.AccountStatusNormal)
}

func (r *accountRepositoryImpl) ListByUUIDs(ctx context.Context, tenantID string, uuids []string) ([]entity.Account, error) {
	if len(uuids) == 0 {
		return []entity.Account{}, nil
	}
	var out []entity.Account
	err := r.scoped(ctx, tenantID).Where("uuid IN ?", uuids).Order("id ASC").Find(&out).Error
	return out, err
}

func (r *accountRepositoryImpl) ListByParentOf(ctx context.Context, tenantID string, studentIDs []string) ([]entity.Account, error) {
	if len(studentIDs) == 0 {
		return []entity.Account{}, nil
	}
	var out []entity.Account
	err := r.scoped(ctx, tenantID).
		Where("linked_parent_of IN ?", studentIDs).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *accountRepositoryImpl) ListByLinkedStudent(ctx context.Context, tenantID string, studentIDs []string) ([]entity.Account, error) {
	if len(studentIDs) == 0 {
		return []entity.Account{}, nil
	}
	var out []entity.Account
	err := r.scoped(ctx, tenantID).
		Where("linked_student_id IN ?", studentIDs).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

func (r *accountRepositoryImpl) ListByRole(ctx context.Context, tenantID string, role string) ([]entity.Account, error) {
	var out []entity.Account
	err := r.scoped(ctx, tenantID).Where("role = ?", role).Order("id ASC").Find(&out).Error
	return out, err
}
