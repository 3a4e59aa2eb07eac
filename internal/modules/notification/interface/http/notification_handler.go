package handler

import (
	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/dto/respond"
	"SchoolLink/internal/modules/notification/application/service"
	"SchoolLink/pkg/back"
	"SchoolLink/pkg/xerr"
	"SchoolLink/pkg/zlog"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type NotificationHandler struct {
	factory service.NotificationFactory
	tracker service.StatusTracker
	reader  service.TenantReader
}

func NewNotificationHandler(factory service.NotificationFactory, tracker service.StatusTracker, reader service.TenantReader) *NotificationHandler {
	return &NotificationHandler{factory: factory, tracker: tracker, reader: reader}
}

// bindSender 发送者只能是当前登录账号
func bindSender(c *gin.Context, senderID *string) bool {
	uuid := c.GetString("uuid")
	if *senderID != "" && *senderID != uuid {
		back.Error(c, xerr.Forbidden, "sender_id 不匹配")
		return false
	}
	*senderID = uuid
	return true
}

func bindError(c *gin.Context, err error) {
	zlog.Warn("bind request failed", zap.String("path", c.FullPath()), zap.Error(err))
	back.Error(c, xerr.BadRequest, xerr.ErrParam.Message)
}

func (h *NotificationHandler) Create(c *gin.Context) {
	var req request.CreateNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindSender(c, &req.SenderId) {
		return
	}
	data, err := h.factory.CreateNotification(c.Request.Context(), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) CreateBulk(c *gin.Context) {
	var req request.CreateBulkNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindSender(c, &req.SenderId) {
		return
	}
	data, err := h.factory.CreateBulkNotification(c.Request.Context(), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) AttendanceBulk(c *gin.Context) {
	var req request.AttendanceBulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	if !bindSender(c, &req.SenderId) {
		return
	}
	data, err := h.factory.CreateAttendanceBulk(c.Request.Context(), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) List(c *gin.Context) {
	var req request.ListNotificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	data, err := h.reader.ListForRecipient(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) TenantList(c *gin.Context) {
	var req request.TenantListRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	data, err := h.reader.ListForTenant(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	n, err := h.tracker.GetUnreadCount(c.Request.Context(), c.GetString("uuid"))
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.UnreadCountRespond{Count: n})
}

func (h *NotificationHandler) MarkRead(c *gin.Context) {
	var req request.MarkReadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	ok, err := h.tracker.MarkRead(c.Request.Context(), c.GetString("uuid"), req.NotificationId, req.RecipientId)
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.MarkReadRespond{Read: ok})
}

func (h *NotificationHandler) MarkAllRead(c *gin.Context) {
	n, err := h.tracker.MarkAllRead(c.Request.Context(), c.GetString("uuid"))
	if err != nil {
		back.Result(c, nil, err)
		return
	}
	back.Success(c, respond.MarkAllReadRespond{Affected: n})
}

func (h *NotificationHandler) DeliveryStatus(c *gin.Context) {
	var req request.DeliveryStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	data, err := h.tracker.GetDeliveryStatus(c.Request.Context(), c.GetString("uuid"), req.NotificationId)
	back.Result(c, data, err)
}

func (h *NotificationHandler) Stats(c *gin.Context) {
	data, err := h.reader.GetNotificationStats(c.Request.Context(), c.GetString("uuid"))
	back.Result(c, data, err)
}
