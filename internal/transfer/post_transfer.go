package transfer

import "time"

type VariantInput struct {
	Network string `json:"network"`
	Text    string `json:"text"`
}

type ScheduleInput struct {
	RunAt    string `json:"run_at"` // RFC 3339
	Timezone string `json:"timezone"`
}

type PostCreation struct {
	Title    string         `json:"title"`
	Body     string         `json:"body"`
	Category string         `json:"category"`
	IsPublic bool           `json:"is_public"`
	Variants []VariantInput `json:"variants"`
	Schedule *ScheduleInput `json:"schedule"`
}

// RemoteMetric is one remote post's engagement snapshot in network-agnostic
// form, as returned by the per-network metrics fetchers.
type RemoteMetric struct {
	RemoteID  string
	Permalink string
	Likes     int64
	Comments  int64
	Shares    int64
	Views     int64
	CreatedAt time.Time
}

type PublishOutcome struct {
	VariantID  int64  `json:"variant_id"`
	Network    string `json:"network"`
	OK         bool   `json:"ok"`
	ExternalID string `json:"external_id,omitempty"`
	Permalink  string `json:"permalink,omitempty"`
	Error      string `json:"error,omitempty"`
}
