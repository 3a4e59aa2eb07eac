package respond

type CreateNotificationRespond struct {
	NotificationId string          `json:"notification_id"`
	RecipientCount int             `json:"recipient_count"`
	Dispatch       *DispatchReport `json:"dispatch,omitempty"`
}

type AttendanceBulkRespond struct {
	Total           int      `json:"total"`
	Succeeded       int      `json:"succeeded"`
	Skipped         int      `json:"skipped"`
	Failed          int      `json:"failed"`
	TotalRecipients int      `json:"total_recipients"`
	NotificationIds []string `json:"notification_ids"`
}
