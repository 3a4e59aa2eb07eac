package handler

import (
	"SchoolLink/internal/modules/notification/application/dto/request"
	"SchoolLink/internal/modules/notification/application/service"
	"SchoolLink/pkg/back"

	"github.com/gin-gonic/gin"
)

type PushTokenHandler struct {
	svc      service.PushTokenService
	settings service.NotificationSettingService
}

func NewPushTokenHandler(svc service.PushTokenService, settings service.NotificationSettingService) *PushTokenHandler {
	return &PushTokenHandler{svc: svc, settings: settings}
}

func (h *PushTokenHandler) Register(c *gin.Context) {
	var req request.RegisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.svc.RegisterPushToken(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, nil, err)
}

func (h *PushTokenHandler) Unregister(c *gin.Context) {
	var req request.UnregisterPushTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	err := h.svc.UnregisterPushToken(c.Request.Context(), c.GetString("uuid"), req.Token)
	back.Result(c, nil, err)
}

func (h *PushTokenHandler) Settings(c *gin.Context) {
	data, err := h.settings.GetSettings(c.Request.Context(), c.GetString("uuid"))
	back.Result(c, data, err)
}

func (h *PushTokenHandler) UpdateSettings(c *gin.Context) {
	var req request.UpdateNotificationSettingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}
	data, err := h.settings.UpdateSettings(c.Request.Context(), c.GetString("uuid"), req)
	back.Result(c, data, err)
}
