package respond

type NotificationItem struct {
	NotificationId string `json:"notification_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	SenderId       string `json:"sender_id"`
	DeliveryMode   string `json:"delivery_mode"`
	DeliveryStatus string `json:"delivery_status"`
	RecipientRole  string `json:"recipient_role"`
	IsRead         bool   `json:"is_read"`
	SentAt         string `json:"sent_at,omitempty"`
	ReadAt         string `json:"read_at,omitempty"`
	CreatedAt      string `json:"created_at"`
}

type TenantNotificationItem struct {
	TenantId       string `json:"tenant_id"`
	NotificationId string `json:"notification_id"`
	Type           string `json:"type"`
	Message        string `json:"message"`
	SenderId       string `json:"sender_id"`
	DeliveryMode   string `json:"delivery_mode"`
	DeliveryStatus string `json:"delivery_status"`
	RecipientCount int64  `json:"recipient_count"`
	ReadCount      int64  `json:"read_count"`
	CreatedAt      string `json:"created_at"`
}
