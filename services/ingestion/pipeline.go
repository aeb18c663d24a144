package ingestion

import (
	"github.com/docflowhq/docstack/internal/enum"
)

// PipelineConfig parameterizes one instance of the ingestion state machine.
// The three inboxes (accounts payable, drafting, tender) share every line of
// pipeline logic and differ only in this configuration.
type PipelineConfig struct {
	Kind                enum.Pipeline
	DefaultRecordStatus enum.RecordStatus
	ExtractionPrompt    string
	// BodyTextExtraction routes emails without relevant attachments into a
	// text-based extraction attempt instead of terminating no_pdf_attachments.
	BodyTextExtraction bool
	MaxRasterPages     int
}

const (
	accountsPayablePrompt = `Extract the structured invoice fields from this document: invoice_number, invoice_date, due_date, supplier_name, total_amount, currency, tax_amount, and the line items with description, quantity, unit_price and amount. Return JSON with a "fields" array of {key, value, confidence, boundingBox} and a "lineItems" array.`

	draftingPrompt = `Extract the structured drafting-document fields from this document: document_number, document_date, drawing_title, revision, author, discipline and project_reference. Return JSON with a "fields" array of {key, value, confidence, boundingBox} and a "lineItems" array.`

	tenderPrompt = `Extract the structured tender fields from this document: tender_number, issue_date, closing_date, issuer, contract_title, estimated_value and currency. Return JSON with a "fields" array of {key, value, confidence, boundingBox} and a "lineItems" array.`
)

// DefaultPipelines returns the three production pipeline instances.
func DefaultPipelines() map[enum.Pipeline]PipelineConfig {
	return map[enum.Pipeline]PipelineConfig{
		enum.PipelineAccountsPayable: {
			Kind:                enum.PipelineAccountsPayable,
			DefaultRecordStatus: enum.RecordStatusDraft,
			ExtractionPrompt:    accountsPayablePrompt,
			BodyTextExtraction:  false,
			MaxRasterPages:      3,
		},
		enum.PipelineDrafting: {
			Kind:                enum.PipelineDrafting,
			DefaultRecordStatus: enum.RecordStatusDraft,
			ExtractionPrompt:    draftingPrompt,
			BodyTextExtraction:  true,
			MaxRasterPages:      3,
		},
		enum.PipelineTender: {
			Kind:                enum.PipelineTender,
			DefaultRecordStatus: enum.RecordStatusPendingReview,
			ExtractionPrompt:    tenderPrompt,
			BodyTextExtraction:  false,
			MaxRasterPages:      3,
		},
	}
}
