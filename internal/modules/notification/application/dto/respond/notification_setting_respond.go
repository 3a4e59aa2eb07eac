package respond

type NotificationSettingRespond struct {
	PushEnabled   bool     `json:"push_enabled"`
	DisabledTypes []string `json:"disabled_types"`
}

type NotificationStatsRespond struct {
	Total       int64            `json:"total"`
	ByType      map[string]int64 `json:"by_type"`
	ByStatus    map[string]int64 `json:"by_status"`
	RecentCount int64            `json:"recent_count"`
}
