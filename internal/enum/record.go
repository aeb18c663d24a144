package enum

type RecordStatus string

const (
	RecordStatusDraft         RecordStatus = "draft"
	RecordStatusPendingReview RecordStatus = "pending_review"
	RecordStatusSubmitted     RecordStatus = "submitted"
)

func (t RecordStatus) String() string {
	return string(t)
}

func DecodeRecordStatus(s string) RecordStatus {
	switch s {
	case "draft":
		return RecordStatusDraft
	case "pending_review":
		return RecordStatusPendingReview
	case "submitted":
		return RecordStatusSubmitted
	default:
		return ""
	}
}
