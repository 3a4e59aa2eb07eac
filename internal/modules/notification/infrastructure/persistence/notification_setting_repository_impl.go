package persistence

import (
	"context"
	"errors"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type notificationSettingRepositoryImpl struct {
	db *gorm.DB
}

func NewNotificationSettingRepository(db *gorm.DB) repository.NotificationSettingRepository {
	return &notificationSettingRepositoryImpl{db: db}
}

func (r *notificationSettingRepositoryImpl) Get(ctx context.Context, tenantID, accountID string) (*entity.NotificationSetting, error) {
	var s entity.NotificationSetting
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ?", tenantID, accountID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *notificationSettingRepositoryImpl) Upsert(ctx context.Context, setting *entity.NotificationSetting) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "tenant_id"}, {Name: "account_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"push_enabled", "disabled_types", "updated_at"}),
		}).
		Create(setting).Error
}
