package respond

type UnreadCountRespond struct {
	Count int64 `json:"count"`
}

type MarkReadRespond struct {
	Read bool `json:"read"`
}

type MarkAllReadRespond struct {
	Affected int64 `json:"affected"`
}

type DeliveryStatusRespond struct {
	TenantId       string `json:"tenant_id"`
	NotificationId string `json:"notification_id"`
	Status         string `json:"status"`
	Total          int    `json:"total"`
	Sent           int    `json:"sent"`
	Pending        int    `json:"pending"`
	Failed         int    `json:"failed"`
	Read           int    `json:"read"`
	Unread         int    `json:"unread"`
}
