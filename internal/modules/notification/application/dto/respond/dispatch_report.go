package respond

type RecipientDispatchResult struct {
	RecipientId  string `json:"recipient_id"`
	Role         string `json:"role"`
	Success      bool   `json:"success"`
	Destinations int    `json:"destinations"`
	Delivered    int    `json:"delivered"`
	Reason       string `json:"reason,omitempty"`
}

// DispatchReport Complete 为 false 表示调用方提前返回，只包含已完成的部分
type DispatchReport struct {
	Total     int                       `json:"total"`
	Succeeded int                       `json:"succeeded"`
	Failed    int                       `json:"failed"`
	Complete  bool                      `json:"complete"`
	Results   []RecipientDispatchResult `json:"results"`
}
