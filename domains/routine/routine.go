package routine

type UpsertRequest struct {
	TenantID   string `json:"tenant_id"`
	Sequence   int    `json:"sequence"`
	Text       string `json:"text"`
	MediaURL   string `json:"media_url,omitempty"`
	HoursDelay int    `json:"hours_delay"`
}

type DeleteRequest struct {
	TenantID string `json:"tenant_id"`
	Sequence int    `json:"sequence" uri:"sequence"`
}

type ResetRequest struct {
	ConversationID string `json:"conversation_id" uri:"conversation_id"`
}
