package request

type MarkReadRequest struct {
	NotificationId string `json:"notification_id" binding:"required"`
	RecipientId    string `json:"recipient_id"`
}

type DeliveryStatusRequest struct {
	NotificationId string `json:"notification_id" binding:"required"`
}
