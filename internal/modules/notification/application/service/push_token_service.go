package service

import (
	"context"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

type PushTokenService interface {
	RegisterPushToken(ctx context.Context, callerID string, req request.RegisterPushTokenRequest) error
	UnregisterPushToken(ctx context.Context, callerID, token string) error
}

type pushTokenServiceImpl struct {
	tokenRepo repository.PushTokenRepository
	tenants   schoolService.TenantContextService
}

func NewPushTokenService(tokenRepo repository.PushTokenRepository, tenants schoolService.TenantContextService) PushTokenService {
	return &pushTokenServiceImpl{tokenRepo: tokenRepo, tenants: tenants}
}

func (s *pushTokenServiceImpl) RegisterPushToken(ctx context.Context, callerID string, req request.RegisterPushTokenRequest) error {
	token := strings.TrimSpace(req.Token)
	if token == "" {
		return xerr.ErrParam
	}
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return err
	}
	now := time.Now()
	err = s.tokenRepo.Upsert(ctx, &entity.PushToken{
		TenantId:   tc.TenantId,
		AccountId:  callerID,
		Token:      token,
		DeviceType: strings.ToLower(strings.TrimSpace(req.DeviceType)),
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if err != nil {
		zlog.Error("push token: upsert failed", zap.String("account_id", callerID), zap.Error(err))
		return xerr.ErrServerError
	}
	return nil
}

func (s *pushTokenServiceImpl) UnregisterPushToken(ctx context.Context, callerID, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return xerr.ErrParam
	}
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return err
	}
	n, err := s.tokenRepo.Deactivate(ctx, tc.TenantId, callerID, token)
	if err != nil {
		zlog.Error("push token: deactivate failed", zap.String("account_id", callerID), zap.Error(err))
		return xerr.ErrServerError
	}
	if n == 0 {
		return xerr.New(xerr.NotFound, "设备令牌不存在")
	}
	return nil
}
