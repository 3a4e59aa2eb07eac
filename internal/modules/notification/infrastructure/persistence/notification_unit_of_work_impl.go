package persistence

import (
	"context"

	"SchoolLink/internal/modules/notification/domain/repository"

	"gorm.io/gorm"
)

type notificationUnitOfWorkImpl struct {
	db *gorm.DB
}

func NewNotificationUnitOfWork(db *gorm.DB) repository.NotificationUnitOfWork {
	return &notificationUnitOfWorkImpl{db: db}
}

func (u *notificationUnitOfWorkImpl) Transaction(ctx context.Context, fn func(notificationRepo repository.NotificationRepository, recipientRepo repository.RecipientRepository) error) error {
	return u.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewNotificationRepository(tx), NewRecipientRepository(tx))
	})
}
