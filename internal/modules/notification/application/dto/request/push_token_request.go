package request

type RegisterPushTokenRequest struct {
	Token      string `json:"token" binding:"required"`
	DeviceType string `json:"device_type"`
}

type UnregisterPushTokenRequest struct {
	Token string `json:"token" binding:"required"`
}

// UpdateNotificationSettingRequest 未传的字段保持原值
type UpdateNotificationSettingRequest struct {
	PushEnabled   *bool     `json:"push_enabled"`
	DisabledTypes *[]string `json:"disabled_types"`
}
