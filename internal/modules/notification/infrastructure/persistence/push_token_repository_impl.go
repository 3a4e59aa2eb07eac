package persistence

import (
	"context"
	"time"

	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type pushTokenRepositoryImpl struct {
	db *gorm.DB
}

func NewPushTokenRepository(db *gorm.DB) repository.PushTokenRepository {
	return &pushTokenRepositoryImpl{db: db}
}

func (r *pushTokenRepositoryImpl) ListActive(ctx context.Context, tenantID, accountID string) ([]entity.PushToken, error) {
	var out []entity.PushToken
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND account_id = ? AND is_active = ?", tenantID, accountID, true).
		Order("id ASC").
		Find(&out).Error
	return out, err
}

// Upsert 同一个设备令牌换账号登录时，归属切换到新账号
func (r *pushTokenRepositoryImpl) Upsert(ctx context.Context, token *entity.PushToken) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "token"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "account_id", "device_type", "is_active", "updated_at"}),
		}).
		Create(token).Error
}

func (r *pushTokenRepositoryImpl) Deactivate(ctx context.Context, tenantID, accountID, token string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&entity.PushToken{}).
		Where("token = ? AND tenant_id = ? AND account_id = ?", token, tenantID, accountID).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()})
	return res.RowsAffected, res.Error
}

func (r *pushTokenRepositoryImpl) DeactivateToken(ctx context.Context, token string) error {
	return r.db.WithContext(ctx).Model(&entity.PushToken{}).
		Where("token = ?", token).
		Updates(map[string]interface{}{"is_active": false, "updated_at": time.Now()}).Error
}
