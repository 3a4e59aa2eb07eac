package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/domain/entity"
	"SchoolLink/internal/modules/notification/domain/repository"
	schoolService "SchoolLink/internal/modules/school/application/service"
	schoolEntity "SchoolLink/internal/modules/school/domain/entity"
	"SchoolLink/pkg/util"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	defaultPushWait        = 10 * time.Second
	attendanceBulkParallel = 8
)

// NotificationFactory 校验事件、解析接收人、持久化，再做提交后的投递
type NotificationFactory interface {
	CreateNotification(ctx context.Context, req request.CreateNotificationRequest) (*respond.CreateNotificationRespond, error)
	CreateBulkNotification(ctx context.Context, req request.CreateBulkNotificationRequest) (*respond.CreateNotificationRespond, error)
	CreateAttendanceBulk(ctx context.Context, req request.AttendanceBulkRequest) (*respond.AttendanceBulkRespond, error)
}

// FactoryDeps 工厂的协作者；Channel、Broadcaster、Cache 可以为空
type FactoryDeps struct {
	Tenants          schoolService.TenantContextService
	Catalog          schoolService.CatalogService
	Resolver         RecipientResolver
	UnitOfWork       repository.NotificationUnitOfWork
	NotificationRepo repository.NotificationRepository
	RecipientRepo    repository.RecipientRepository
	Tracker          StatusTracker
	Dispatcher       PushDispatcher
	Channel          ChannelDelivery
	Broadcaster      repository.Broadcaster
	Cache            repository.ListCache
	PushWait         time.Duration
}

type notificationFactoryImpl struct {
	deps       FactoryDeps
	strategies []creationStrategy
}

func NewNotificationFactory(deps FactoryDeps) NotificationFactory {
	if deps.PushWait <= 0 {
		deps.PushWait = defaultPushWait
	}
	return &notificationFactoryImpl{
		deps: deps,
		strategies: []creationStrategy{
			&catalogStrategy{catalog: deps.Catalog, uow: deps.UnitOfWork, now: time.Now},
			&denormalizedStrategy{notificationRepo: deps.NotificationRepo, recipientRepo: deps.RecipientRepo, now: time.Now},
		},
	}
}

// rolesFor 各类事件默认通知的角色
func rolesFor(typ entity.NotificationType) []entity.RecipientRole {
	if typ == entity.TypeGradeEntered {
		return []entity.RecipientRole{entity.RoleParent}
	}
	return []entity.RecipientRole{entity.RoleParent, entity.RoleStudent}
}

func paramErr(msg string) error {
	return xerr.New(xerr.BadRequest, msg)
}

func validateCreate(typ entity.NotificationType, req *request.CreateNotificationRequest) error {
	if strings.TrimSpace(req.SenderId) == "" {
		return paramErr("缺少发送人")
	}
	switch typ {
	case entity.TypeGradeEntered:
		if req.ClassId == "" || req.SubjectId == "" || req.ExamId == "" || len(dedupIDs(req.StudentIds)) == 0 {
			return paramErr("成绩通知需要班级、科目、考试和学生")
		}
	case entity.TypeHomeworkUploaded:
		if req.HomeworkId == "" || req.ClassId == "" || req.SubjectId == "" {
			return paramErr("作业通知需要作业、班级和科目")
		}
	case entity.TypeAttendanceAbsence:
		if len(dedupIDs(req.StudentIds)) != 1 {
			return paramErr("缺勤通知只能针对一名学生")
		}
		date, ok := parseDate(req.Date)
		if !ok {
			return paramErr("缺勤日期无效")
		}
		req.Date = date
	case entity.TypeAnnouncement, entity.TypeEventCreated:
		if strings.TrimSpace(req.Message) == "" || req.ClassId == "" {
			return paramErr("公告和活动通知需要内容和班级")
		}
	case entity.TypeBulkCustom:
		return paramErr("群发通知请走批量接口")
	default:
		return paramErr("未知的通知类型")
	}
	return nil
}

// senderTenant 解析发送人所在学校，只有老师和管理员可以发通知
func (f *notificationFactoryImpl) senderTenant(ctx context.Context, senderID, payloadTenant string) (*schoolEntity.TenantContext, error) {
	tc, err := f.deps.Tenants.GetCurrentTenant(ctx, senderID)
	if err != nil {
		return nil, err
	}
	if tc.TenantId == "" {
		return nil, xerr.ErrNoTenantContext
	}
	if payloadTenant = strings.TrimSpace(payloadTenant); payloadTenant != "" && payloadTenant != tc.TenantId {
		zlog.Warn("notification: payload tenant mismatch",
			zap.String("sender_id", senderID),
			zap.String("payload_tenant", payloadTenant),
			zap.String("tenant_id", tc.TenantId))
		return nil, xerr.New(xerr.Forbidden, "学校与发送人不一致")
	}
	if tc.AccountRole != schoolEntity.AccountRoleTeacher && tc.AccountRole != schoolEntity.AccountRoleAdmin {
		return nil, xerr.New(xerr.Forbidden, "无权发送通知")
	}
	return tc, nil
}

func parseMode(s string) (entity.DeliveryMode, error) {
	if strings.TrimSpace(s) == "" {
		return entity.ModeInApp, nil
	}
	m := entity.DeliveryMode(strings.ToLower(strings.TrimSpace(s)))
	if !m.Valid() {
		return "", paramErr("不支持的投递方式")
	}
	return m, nil
}

func (f *notificationFactoryImpl) CreateNotification(ctx context.Context, req request.CreateNotificationRequest) (*respond.CreateNotificationRespond, error) {
	typ := entity.NotificationType(strings.TrimSpace(req.Type))
	if err := validateCreate(typ, &req); err != nil {
		return nil, err
	}
	mode, err := parseMode(req.DeliveryMode)
	if err != nil {
		return nil, err
	}
	tc, err := f.senderTenant(ctx, req.SenderId, req.TenantId)
	if err != nil {
		return nil, err
	}

	students := dedupIDs(req.StudentIds)
	roles := rolesFor(typ)
	var recipients []entity.Recipient
	switch typ {
	case entity.TypeAnnouncement, entity.TypeEventCreated:
		recipients, err = f.deps.Resolver.ResolveAudience(ctx, tc.TenantId, req.ClassId, roles)
	case entity.TypeHomeworkUploaded:
		// 没指定学生时通知整个班
		if len(students) == 0 {
			recipients, err = f.deps.Resolver.ResolveAudience(ctx, tc.TenantId, req.ClassId, roles)
		} else {
			recipients, err = f.deps.Resolver.Resolve(ctx, tc.TenantId, students, roles)
		}
	default:
		recipients, err = f.deps.Resolver.Resolve(ctx, tc.TenantId, students, roles)
	}
	if err != nil {
		return nil, err
	}

	draft := &creationDraft{
		NotificationId: util.GenerateUUID(),
		TenantId:       tc.TenantId,
		Type:           typ,
		SenderId:       req.SenderId,
		Mode:           mode,
		Message:        strings.TrimSpace(req.Message),
		Date:           req.Date,
		Recipients:     recipients,
		Query: schoolService.CatalogQuery{
			ClassId:    req.ClassId,
			SubjectId:  req.SubjectId,
			ExamId:     req.ExamId,
			HomeworkId: req.HomeworkId,
			StudentIds: students,
			ActorId:    req.SenderId,
		},
		Payload: req.Context,
	}
	return f.persistAndDeliver(ctx, draft)
}

func (f *notificationFactoryImpl) CreateBulkNotification(ctx context.Context, req request.CreateBulkNotificationRequest) (*respond.CreateNotificationRespond, error) {
	typ := entity.TypeBulkCustom
	if t := strings.TrimSpace(req.Type); t != "" {
		typ = entity.NotificationType(t)
		if !typ.Valid() {
			return nil, paramErr("未知的通知类型")
		}
	}
	message := strings.TrimSpace(req.Message)
	if message == "" {
		return nil, paramErr("通知内容不能为空")
	}
	if strings.TrimSpace(req.SenderId) == "" {
		return nil, paramErr("缺少发送人")
	}
	roles := make([]entity.RecipientRole, 0, len(req.RecipientRoles))
	for _, r := range req.RecipientRoles {
		role, ok := entity.ParseRecipientRole(r)
		if !ok {
			return nil, paramErr("未知的接收人角色: " + r)
		}
		roles = append(roles, role)
	}
	if len(roles) == 0 {
		roles = []entity.RecipientRole{entity.RoleParent}
	}
	mode, err := parseMode(req.DeliveryMode)
	if err != nil {
		return nil, err
	}
	tc, err := f.senderTenant(ctx, req.SenderId, "")
	if err != nil {
		return nil, err
	}

	recipients, err := f.deps.Resolver.ResolveAudience(ctx, tc.TenantId, strings.TrimSpace(req.ClassId), roles)
	if err != nil {
		return nil, err
	}
	draft := &creationDraft{
		NotificationId: util.GenerateUUID(),
		TenantId:       tc.TenantId,
		Type:           typ,
		SenderId:       req.SenderId,
		Mode:           mode,
		Message:        message,
		Literal:        true,
		Recipients:     recipients,
		Query:          schoolService.CatalogQuery{ClassId: strings.TrimSpace(req.ClassId), ActorId: req.SenderId},
	}
	return f.persistAndDeliver(ctx, draft)
}

func (f *notificationFactoryImpl) persistAndDeliver(ctx context.Context, draft *creationDraft) (*respond.CreateNotificationRespond, error) {
	if len(draft.Recipients) == 0 {
		zlog.Info("notification skipped, no recipients",
			zap.String("tenant_id", draft.TenantId),
			zap.String("type", string(draft.Type)))
		return nil, xerr.ErrNoRecipients
	}

	res, err := f.create(ctx, draft)
	if err != nil {
		return nil, err
	}
	zlog.Info("notification created",
		zap.String("tenant_id", draft.TenantId),
		zap.String("notification_id", draft.NotificationId),
		zap.String("type", string(draft.Type)),
		zap.Int("recipients", res.RecipientCount))

	report := f.afterCommit(ctx, draft, res)
	return &respond.CreateNotificationRespond{
		NotificationId: res.Notification.NotificationId,
		RecipientCount: res.RecipientCount,
		Dispatch:       report,
	}, nil
}

// create 先走目录快路径。快路径的业务拒绝（记录不存在、参数错误）直接返回；
// 只有基础设施故障才改用请求自带上下文，兜底也失败则返回错误
func (f *notificationFactoryImpl) create(ctx context.Context, draft *creationDraft) (*creationResult, error) {
	var firstErr error
	for i, s := range f.strategies {
		res, err := s.Create(ctx, draft)
		if err == nil {
			return res, nil
		}
		if i == 0 {
			if ce := userFacing(err); ce != nil {
				return nil, ce
			}
			firstErr = err
		}
		zlog.Warn("notification: creation strategy failed",
			zap.String("strategy", s.Name()),
			zap.String("notification_id", draft.NotificationId),
			zap.Error(err))
		if i == len(f.strategies)-1 {
			if ce := userFacing(err); ce != nil {
				return nil, ce
			}
			zlog.Error("notification: all creation strategies failed",
				zap.String("notification_id", draft.NotificationId),
				zap.NamedError("first", firstErr),
				zap.Error(err))
			return nil, xerr.Wrap(xerr.InternalServerError, xerr.ErrServerError.Message, err)
		}
	}
	return nil, xerr.ErrServerError
}

func userFacing(err error) *xerr.CodeError {
	var ce *xerr.CodeError
	if errors.As(err, &ce) && ce.Code != xerr.InternalServerError {
		return ce
	}
	return nil
}

func (f *notificationFactoryImpl) afterCommit(ctx context.Context, draft *creationDraft, res *creationResult) *respond.DispatchReport {
	n := res.Notification
	switch n.DeliveryMode {
	case entity.ModeInApp:
		if _, err := f.deps.Tracker.MarkSent(ctx, n.TenantId, n.NotificationId, ""); err != nil {
			zlog.Warn("notification: mark in-app sent failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
		}
	default:
		if f.deps.Channel != nil {
			stats, err := f.deps.Channel.Deliver(ctx, n)
			if err != nil {
				zlog.Warn("notification: channel delivery failed", zap.String("notification_id", n.NotificationId), zap.Error(err))
			} else {
				zlog.Info("notification: channel delivery",
					zap.String("notification_id", n.NotificationId),
					zap.Int("relayed", stats.Relayed),
					zap.Int("failed", stats.Failed),
					zap.Int("pending", stats.Pending))
			}
		}
	}

	var report *respond.DispatchReport
	if f.deps.Dispatcher != nil {
		pctx, cancel := context.WithTimeout(ctx, f.deps.PushWait)
		r, err := f.deps.Dispatcher.Dispatch(pctx, DispatchJob{
			NotificationId: n.NotificationId,
			TenantId:       n.TenantId,
			Type:           n.Type,
			Recipients:     draft.Recipients,
			Context:        res.Context,
		})
		cancel()
		if err != nil {
			zlog.Warn("notification: push dispatch returned early", zap.String("notification_id", n.NotificationId), zap.Error(err))
		}
		report = r
	}

	ids := make([]string, 0, len(draft.Recipients))
	for _, r := range draft.Recipients {
		ids = append(ids, r.AccountId)
	}
	broadcastAsync(ctx, f.deps.Broadcaster, entity.RealtimeEvent{
		Kind:             entity.RealtimeNotificationCreated,
		TenantId:         n.TenantId,
		AccountIds:       ids,
		NotificationId:   n.NotificationId,
		NotificationType: n.Type,
	})
	clearCache(ctx, f.deps.Cache, n.TenantId)
	return report
}

func (f *notificationFactoryImpl) CreateAttendanceBulk(ctx context.Context, req request.AttendanceBulkRequest) (*respond.AttendanceBulkRespond, error) {
	if strings.TrimSpace(req.SenderId) == "" {
		return nil, paramErr("缺少发送人")
	}
	date, ok := parseDate(req.Date)
	if !ok {
		return nil, paramErr("缺勤日期无效")
	}
	students := dedupIDs(req.StudentIds)
	if len(students) == 0 {
		return nil, paramErr("缺少学生")
	}
	// 先确认发送人，避免每个学生各失败一次
	if _, err := f.senderTenant(ctx, req.SenderId, ""); err != nil {
		return nil, err
	}

	out := &respond.AttendanceBulkRespond{Total: len(students), NotificationIds: []string{}}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(attendanceBulkParallel)
	for _, sid := range students {
		sid := sid
		g.Go(func() error {
			res, err := f.CreateNotification(gctx, request.CreateNotificationRequest{
				Type:       string(entity.TypeAttendanceAbsence),
				SenderId:   req.SenderId,
				ClassId:    req.ClassId,
				StudentIds: []string{sid},
				Date:       date,
			})
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				out.Succeeded++
				out.TotalRecipients += res.RecipientCount
				out.NotificationIds = append(out.NotificationIds, res.NotificationId)
			case xerr.Is(err, xerr.NoRecipients):
				zlog.Info("attendance: student has no reachable accounts", zap.String("student_id", sid))
				out.Skipped++
			default:
				zlog.Warn("attendance: notification failed", zap.String("student_id", sid), zap.Error(err))
				out.Failed++
			}
			return nil
		})
	}
	_ = g.Wait()
	return out, nil
}
