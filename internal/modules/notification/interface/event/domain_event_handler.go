package event

import (
	"context"
	"encoding/json"
	"errors"

	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/service"
	"SchoolLink/internal/modules/notification/infrastructure/mq"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"go.uber.org/zap"
)

const (
	headerKind           = "kind"
	kindAttendanceBulk   = "attendance_bulk"
	kindNotificationSend = "notification"
)

// DomainEventHandler 把学校业务事件（成绩录入、作业发布、缺勤等）转成通知
type DomainEventHandler struct {
	factory service.NotificationFactory
}

func NewDomainEventHandler(factory service.NotificationFactory) *DomainEventHandler {
	return &DomainEventHandler{factory: factory}
}

var _ mq.Handler = (*DomainEventHandler)(nil)

// Handle 业务上的拒绝（无接收人、参数错误、无权限、发送人不属于任何学校）确认掉；
// 服务端错误和未归类错误返回，不提交位点，等待重投
func (h *DomainEventHandler) Handle(ctx context.Context, msg mq.Message) error {
	kind := msg.Headers[headerKind]
	if kind == "" {
		kind = kindNotificationSend
	}

	var err error
	switch kind {
	case kindAttendanceBulk:
		var req request.AttendanceBulkRequest
		if derr := json.Unmarshal(msg.Value, &req); derr != nil {
			return h.drop(msg, kind, derr)
		}
		var res interface{}
		res, err = h.factory.CreateAttendanceBulk(ctx, req)
		if err == nil {
			zlog.Info("domain event: attendance bulk handled", zap.Any("result", res))
		}
	case kindNotificationSend:
		var req request.CreateNotificationRequest
		if derr := json.Unmarshal(msg.Value, &req); derr != nil {
			return h.drop(msg, kind, derr)
		}
		var res interface{}
		res, err = h.factory.CreateNotification(ctx, req)
		if err == nil {
			zlog.Info("domain event: notification created", zap.String("type", req.Type), zap.Any("result", res))
		}
	default:
		return h.drop(msg, kind, errors.New("unknown event kind"))
	}

	if err == nil {
		return nil
	}
	if isFinal(err) {
		zlog.Warn("domain event: rejected, acknowledged", zap.String("kind", kind), zap.Error(err))
		return nil
	}
	zlog.Error("domain event: handling failed, will retry", zap.String("kind", kind), zap.Error(err))
	return err
}

func (h *DomainEventHandler) drop(msg mq.Message, kind string, err error) error {
	zlog.Warn("domain event: undecodable, dropped",
		zap.String("topic", msg.Topic),
		zap.String("kind", kind),
		zap.Error(err))
	return nil
}

// isFinal 重试也不会成功的错误
func isFinal(err error) bool {
	var ce *xerr.CodeError
	if !errors.As(err, &ce) {
		return false
	}
	return ce.Code != xerr.InternalServerError
}
