package request

type ListNotificationRequest struct {
	AccountId  string `json:"account_id"`
	UnreadOnly bool   `json:"unread_only"`
	Limit      int    `json:"limit"`
	Offset     int    `json:"offset"`
}

type TenantListRequest struct {
	Type   string `json:"type"`
	Limit  int    `json:"limit"`
	Offset int    `json:"offset"`
}
