package service

import (
	"context"
	"errors"
	"strings"

	"SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/internal/modules/school/domain/repository"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// TenantContextService 解析调用者所属学校，失败时不做兜底。
// 账号或学校不存在、已停用返回 ErrNoTenantContext；数据库故障返回服务端错误，调用方可以重试
type TenantContextService interface {
	GetCurrentTenant(ctx context.Context, accountID string) (*entity.TenantContext, error)
}

type tenantContextServiceImpl struct {
	accountRepo repository.AccountRepository
	tenantRepo  repository.TenantRepository
}

func NewTenantContextService(accountRepo repository.AccountRepository, tenantRepo repository.TenantRepository) TenantContextService {
	return &tenantContextServiceImpl{
		accountRepo: accountRepo,
		tenantRepo:  tenantRepo,
	}
}

func (s *tenantContextServiceImpl) GetCurrentTenant(ctx context.Context, accountID string) (*entity.TenantContext, error) {
	accountID = strings.TrimSpace(accountID)
	if accountID == "" {
		return nil, xerr.ErrNoTenantContext
	}

	acc, err := s.accountRepo.GetByUUID(ctx, accountID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zlog.Error("tenant context: load account failed", zap.String("account_id", accountID), zap.Error(err))
		}
		return nil, lookupErr(err)
	}
	if acc.Status != entity.AccountStatusNormal || strings.TrimSpace(acc.TenantId) == "" {
		return nil, xerr.ErrNoTenantContext
	}

	tenant, err := s.tenantRepo.GetByTenantID(ctx, acc.TenantId)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			zlog.Error("tenant context: load tenant failed", zap.String("tenant_id", acc.TenantId), zap.Error(err))
		}
		return nil, lookupErr(err)
	}
	if tenant.Status != entity.TenantStatusActive || tenant.TenantId != acc.TenantId {
		return nil, xerr.ErrNoTenantContext
	}

	return &entity.TenantContext{
		TenantId:    tenant.TenantId,
		TenantName:  tenant.Name,
		AccountId:   acc.Uuid,
		AccountRole: acc.Role,
	}, nil
}

func lookupErr(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return xerr.Wrap(xerr.NoTenantContext, xerr.ErrNoTenantContext.Message, err)
	}
	return xerr.Wrap(xerr.InternalServerError, xerr.ErrServerError.Message, err)
}
