package request

type CreateBulkNotificationRequest struct {
	Type           string   `json:"type"`
	Message        string   `json:"message" binding:"required"`
	ClassId        string   `json:"class_id"`
	SenderId       string   `json:"sender_id"`
	RecipientRoles []string `json:"recipient_roles"`
	DeliveryMode   string   `json:"delivery_mode"`
}
