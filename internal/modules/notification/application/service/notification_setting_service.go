package service

import (
	"context"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

// NotificationSettingService 只影响推送，站内信照常写入
type NotificationSettingService interface {
	GetSettings(ctx context.Context, callerID string) (*respond.NotificationSettingRespond, error)
	UpdateSettings(ctx context.Context, callerID string, req request.UpdateNotificationSettingRequest) (*respond.NotificationSettingRespond, error)
}

type notificationSettingServiceImpl struct {
	repo    repository.NotificationSettingRepository
	tenants schoolService.TenantContextService
}

func NewNotificationSettingService(repo repository.NotificationSettingRepository, tenants schoolService.TenantContextService) NotificationSettingService {
	return &notificationSettingServiceImpl{repo: repo, tenants: tenants}
}

func (s *notificationSettingServiceImpl) GetSettings(ctx context.Context, callerID string) (*respond.NotificationSettingRespond, error) {
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return nil, err
	}
	setting, err := s.load(ctx, tc.TenantId, callerID)
	if err != nil {
		return nil, err
	}
	return toSettingRespond(setting), nil
}

func (s *notificationSettingServiceImpl) UpdateSettings(ctx context.Context, callerID string, req request.UpdateNotificationSettingRequest) (*respond.NotificationSettingRespond, error) {
	var disabled []entity.NotificationType
	if req.DisabledTypes != nil {
		for _, raw := range *req.DisabledTypes {
			t := entity.NotificationType(raw)
			if !t.Valid() {
				return nil, xerr.New(xerr.BadRequest, "未知的通知类型: "+raw)
			}
			disabled = append(disabled, t)
		}
	}
	tc, err := s.tenants.GetCurrentTenant(ctx, callerID)
	if err != nil {
		return nil, err
	}
	setting, err := s.load(ctx, tc.TenantId, callerID)
	if err != nil {
		return nil, err
	}
	if req.PushEnabled != nil {
		setting.PushEnabled = *req.PushEnabled
	}
	if req.DisabledTypes != nil {
		setting.SetDisabled(disabled)
	}
	setting.UpdatedAt = time.Now()
	if err := s.repo.Upsert(ctx, setting); err != nil {
		zlog.Error("notification setting: upsert failed", zap.String("account_id", callerID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	return toSettingRespond(setting), nil
}

// load 没有记录时返回默认全部开启
func (s *notificationSettingServiceImpl) load(ctx context.Context, tenantID, accountID string) (*entity.NotificationSetting, error) {
	setting, err := s.repo.Get(ctx, tenantID, accountID)
	if err != nil {
		zlog.Error("notification setting: load failed", zap.String("account_id", accountID), zap.Error(err))
		return nil, xerr.ErrServerError
	}
	if setting == nil {
		setting = &entity.NotificationSetting{TenantId: tenantID, AccountId: accountID, PushEnabled: true}
	}
	return setting, nil
}

func toSettingRespond(s *entity.NotificationSetting) *respond.NotificationSettingRespond {
	out := &respond.NotificationSettingRespond{PushEnabled: s.PushEnabled, DisabledTypes: []string{}}
	for _, t := range s.Disabled() {
		out.DisabledTypes = append(out.DisabledTypes, string(t))
	}
	return out
}
