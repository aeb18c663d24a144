package dto

// ProviderEmail is the full email detail fetched from the mail provider by
// opaque id. Payloads are validated and coerced here, at the adapter boundary;
// nothing untyped flows past this package.
type ProviderEmail struct {
	ID          string               `json:"id"`
	From        string               `json:"from"`
	To          []string             `json:"to"`
	Subject     string               `json:"subject"`
	BodyText    string               `json:"body_text"`
	BodyHTML    string               `json:"body_html"`
	Attachments []ProviderAttachment `json:"attachments"`
}

// ProviderAttachment describes one attachment of a provider email. Content is
// base64 when the provider inlines small files; larger files carry a signed
// DownloadURL instead.
type ProviderAttachment struct {
	ID          string `json:"id"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	ContentID   string `json:"content_id"`
	Disposition string `json:"disposition"`
	Size        int    `json:"size"`
	Content     string `json:"content,omitempty"`
	DownloadURL string `json:"download_url,omitempty"`
}

// IsInline reports whether the attachment is an inline body part (signature
// image, logo) rather than a real file attachment.
func (a ProviderAttachment) IsInline() bool {
	return a.ContentID != "" || a.Disposition == "inline"
}
