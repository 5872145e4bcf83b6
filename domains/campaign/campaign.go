package campaign

type CreateRequest struct {
	TenantID         string   `json:"tenant_id"`
	Name             string   `json:"name"`
	MessageTemplate  string   `json:"message_template"`
	ChatsPerDispatch int      `json:"chats_per_dispatch"`
	IntervalMinutes  int      `json:"interval_minutes"`
	TagIDs           []string `json:"tag_ids,omitempty"`
	AllTrusted       bool     `json:"all_trusted"`
}

type ProgressResponse struct {
	CampaignID      string  `json:"campaign_id"`
	Status          string  `json:"status"`
	TotalTargets    int     `json:"total_targets"`
	DispatchedCount int     `json:"dispatched_count"`
	Progress        float64 `json:"progress"`
}
