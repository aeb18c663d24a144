package dto

// InboxSettingsRequest is the writable surface of a pipeline inbox
// configuration.
type InboxSettingsRequest struct {
	IsEnabled           bool     `json:"isEnabled"`
	InboundEmailAddress string   `json:"inboundEmailAddress"`
	AutoExtract         bool     `json:"autoExtract"`
	AutoSubmit          bool     `json:"autoSubmit"`
	DefaultStatus       string   `json:"defaultStatus,omitempty"`
	NotifyUserIDs       []string `json:"notifyUserIds,omitempty"`
}

type InboxSettingsResponse struct {
	Pipeline            string   `json:"pipeline"`
	IsEnabled           bool     `json:"isEnabled"`
	InboundEmailAddress string   `json:"inboundEmailAddress"`
	AutoExtract         bool     `json:"autoExtract"`
	AutoSubmit          bool     `json:"autoSubmit"`
	DefaultStatus       string   `json:"defaultStatus"`
	NotifyUserIDs       []string `json:"notifyUserIds"`
}

type CheckEmailsResponse struct {
	Triggered bool `json:"triggered"`
}

type InboxCountsResponse struct {
	Pipeline string           `json:"pipeline"`
	Counts   map[string]int64 `json:"counts"`
}
