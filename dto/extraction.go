package dto

// ExtractionRequest is the payload sent to the structured-extraction API.
// Pages are base64-encoded PNG images; Text is set instead of Pages for the
// body-text extraction path.
type ExtractionRequest struct {
	Pages  []string `json:"pages,omitempty"`
	Text   string   `json:"text,omitempty"`
	Prompt string   `json:"prompt"`
}

// ExtractionResult is the typed result of one extraction call. The model is
// unreliable: callers must treat a decode failure of the upstream body as an
// aborted extraction, never as a pipeline failure.
type ExtractionResult struct {
	Fields    []ExtractedFieldCandidate `json:"fields"`
	LineItems []map[string]interface{}  `json:"lineItems"`
}

type ExtractedFieldCandidate struct {
	Key         string                 `json:"key"`
	Value       string                 `json:"value"`
	Confidence  float64                `json:"confidence"`
	BoundingBox map[string]interface{} `json:"boundingBox,omitempty"`
}
