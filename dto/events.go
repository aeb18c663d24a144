package dto

// Event is the envelope published on the message bus for every terminal
// pipeline transition. Data holds the type-specific payload.
type Event struct {
	Event    EventDetails  `json:"event"`
	Metadata EventMetadata `json:"metadata"`
}

type EventDetails struct {
	Id        string      `json:"id"`
	EntityId  string      `json:"entityId"`
	Tenant    string      `json:"tenant"`
	EventType string      `json:"eventType"`
	Data      interface{} `json:"data"`
}

type EventMetadata struct {
	UberTraceId string `json:"uberTraceId"`
	UserId      string `json:"userId"`
	Timestamp   string `json:"timestamp"`
}

// EmailProcessed is emitted when an inbound email reaches a terminal status.
type EmailProcessed struct {
	EmailID         string `json:"emailId"`
	Pipeline        string `json:"pipeline"`
	Status          string `json:"status"`
	LinkedRecordID  string `json:"linkedRecordId,omitempty"`
	AttachmentCount int    `json:"attachmentCount"`
}

// DocumentCreated is emitted for every document record produced by ingestion.
type DocumentCreated struct {
	RecordID      string `json:"recordId"`
	Pipeline      string `json:"pipeline"`
	SourceEmailID string `json:"sourceEmailId"`
	Status        string `json:"status"`
	StorageKey    string `json:"storageKey,omitempty"`
}
