package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// creationDraft 已校验、已解析接收人的创建请求
type creationDraft struct {
	NotificationId string
	TenantId       string
	Type           entity.NotificationType
	SenderId       string
	Mode           entity.DeliveryMode
	Message        string
	// Literal 为 true 时正文原样使用，不按类型模板拼接
	Literal        bool
	Date           string
	Recipients     []entity.Recipient
	Query          schoolService.CatalogQuery
	Payload        request.EventContext
}

func (d *creationDraft) compose(mc MessageContext) string {
	if d.Literal {
		return d.Message
	}
	return ComposeMessage(d.Type, mc)
}

func (d *creationDraft) notification(message string, now time.Time) *entity.Notification {
	return &entity.Notification{
		NotificationId: d.NotificationId,
		TenantId:       d.TenantId,
		Type:           d.Type,
		Message:        message,
		SenderId:       d.SenderId,
		DeliveryMode:   d.Mode,
		DeliveryStatus: entity.DeliveryPending,
		CreatedAt:      now,
	}
}

func (d *creationDraft) recipientRows(now time.Time) []entity.NotificationRecipient {
	rows := make([]entity.NotificationRecipient, 0, len(d.Recipients))
	for _, r := range d.Recipients {
		rows = append(rows, entity.NotificationRecipient{
			NotificationId: d.NotificationId,
			TenantId:       d.TenantId,
			RecipientId:    r.AccountId,
			RecipientRole:  r.Role,
			DeliveryStatus: entity.DeliveryPending,
			CreatedAt:      now,
		})
	}
	return rows
}

// creationResult 两种策略的共同产出
type creationResult struct {
	Notification   *entity.Notification
	RecipientCount int
	Context        MessageContext
}

type creationStrategy interface {
	Name() string
	Create(ctx context.Context, d *creationDraft) (*creationResult, error)
}

// catalogStrategy 从学校目录取上下文，通知和接收人在同一事务里写入
type catalogStrategy struct {
	catalog schoolService.CatalogService
	uow     repository.NotificationUnitOfWork
	now     func() time.Time
}

func (s *catalogStrategy) Name() string { return "catalog" }

func (s *catalogStrategy) Create(ctx context.Context, d *creationDraft) (*creationResult, error) {
	cat, err := s.catalog.LoadEventCatalog(ctx, d.TenantId, d.Query)
	if err != nil {
		return nil, err
	}
	mc := contextFromCatalog(cat, d.Message, d.Date)
	message := d.compose(mc)
	if strings.TrimSpace(message) == "" {
		return nil, xerr.New(xerr.BadRequest, "通知内容为空")
	}

	now := s.now()
	n := d.notification(message, now)
	rows := d.recipientRows(now)
	err = s.uow.Transaction(ctx, func(notificationRepo repository.NotificationRepository, recipientRepo repository.RecipientRepository) error {
		if err := notificationRepo.Create(ctx, n); err != nil {
			return err
		}
		return recipientRepo.CreateBatch(ctx, rows)
	})
	if err != nil {
		return nil, err
	}
	return &creationResult{Notification: n, RecipientCount: len(rows), Context: mc}, nil
}

// denormalizedStrategy 只用请求自带的上下文拼消息，顺序写入；
// 接收人唯一键冲突时改为忽略重复再重读落库行数
type denormalizedStrategy struct {
	notificationRepo repository.NotificationRepository
	recipientRepo    repository.RecipientRepository
	now              func() time.Time
}

func (s *denormalizedStrategy) Name() string { return "denormalized" }

func contextFromPayload(p request.EventContext, message, date string) MessageContext {
	names := p.StudentNames
	if len(names) == 0 && strings.TrimSpace(p.StudentName) != "" {
		names = []string{strings.TrimSpace(p.StudentName)}
	}
	due := strings.TrimSpace(p.DueDate)
	if d, ok := parseDate(due); ok {
		due = d
	}
	if date == "" {
		date = p.Date
	}
	return MessageContext{
		ClassName:     strings.TrimSpace(p.ClassName),
		Section:       strings.TrimSpace(p.Section),
		SubjectName:   strings.TrimSpace(p.SubjectName),
		ExamName:      strings.TrimSpace(p.ExamName),
		HomeworkTitle: strings.TrimSpace(p.HomeworkTitle),
		DueDate:       due,
		StudentNames:  names,
		ActorName:     strings.TrimSpace(p.ActorName),
		Date:          date,
		Message:       message,
	}
}

func payloadComplete(typ entity.NotificationType, mc MessageContext) bool {
	switch typ {
	case entity.TypeGradeEntered:
		return mc.SubjectName != "" && mc.ExamName != "" && len(mc.StudentNames) > 0
	case entity.TypeHomeworkUploaded:
		return mc.HomeworkTitle != "" && mc.SubjectName != ""
	case entity.TypeAttendanceAbsence:
		return len(mc.StudentNames) > 0 && mc.Date != ""
	default:
		return strings.TrimSpace(mc.Message) != ""
	}
}

func (s *denormalizedStrategy) Create(ctx context.Context, d *creationDraft) (*creationResult, error) {
	mc := contextFromPayload(d.Payload, d.Message, d.Date)
	typ := d.Type
	if d.Literal {
		typ = entity.TypeBulkCustom
	}
	if !payloadComplete(typ, mc) {
		return nil, xerr.New(xerr.BadRequest, "事件上下文不完整")
	}

	now := s.now()
	n := d.notification(d.compose(mc), now)
	if err := s.notificationRepo.Create(ctx, n); err != nil {
		return nil, err
	}

	persisted, err := s.writeRecipients(ctx, d, now)
	if err != nil {
		s.discard(ctx, d, err)
		return nil, err
	}
	return &creationResult{Notification: n, RecipientCount: persisted, Context: mc}, nil
}

func (s *denormalizedStrategy) writeRecipients(ctx context.Context, d *creationDraft, now time.Time) (int, error) {
	rows := d.recipientRows(now)
	if err := s.recipientRepo.CreateBatch(ctx, rows); err != nil {
		if !errors.Is(err, gorm.ErrDuplicatedKey) {
			return 0, err
		}
		if err := s.recipientRepo.CreateBatchIgnoreDuplicates(ctx, rows); err != nil {
			return 0, err
		}
	}
	persisted, err := s.recipientRepo.ListByNotification(ctx, d.TenantId, d.NotificationId)
	if err != nil {
		return 0, err
	}
	if len(persisted) == 0 {
		return 0, xerr.ErrNoRecipients
	}
	return len(persisted), nil
}

// discard 接收行没写成时撤销通知行，不留下没有接收人的 pending 通知
func (s *denormalizedStrategy) discard(ctx context.Context, d *creationDraft, cause error) {
	if err := s.notificationRepo.DeleteByNotificationID(context.WithoutCancel(ctx), d.TenantId, d.NotificationId); err != nil {
		zlog.Error("notification: discard partial write failed",
			zap.String("tenant_id", d.TenantId),
			zap.String("notification_id", d.NotificationId),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return
	}
	zlog.Warn("notification: partial write discarded",
		zap.String("notification_id", d.NotificationId),
		zap.Error(cause))
}
