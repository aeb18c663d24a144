package ingestion

import (
	"context"
	"encoding/base64"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/internal/enum"
)

func inboundEvent(emailID string) dto.InboundEventData {
	return dto.InboundEventData{
		EmailID:        emailID,
		From:           "Supplier@Example.COM",
		To:             []string{"inbox@tenant.example"},
		Subject:        "Invoice attached",
		HasAttachments: true,
	}
}

func pdfAttachment(id, filename string, content []byte) dto.ProviderAttachment {
	return dto.ProviderAttachment{
		ID:          id,
		Filename:    filename,
		ContentType: "application/pdf",
		Content:     base64.StdEncoding.EncodeToString(content),
		Size:        len(content),
	}
}

func TestAcceptInbound_CreatesReceivedEmail(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")

	email, accepted, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))

	require.NoError(t, err)
	assert.True(t, accepted)
	assert.NotEmpty(t, email.ID)
	assert.Equal(t, enum.EmailStatusReceived, email.Status)
	assert.Equal(t, "supplier@example.com", email.FromAddress)
	assert.Equal(t, enum.EmailSourceWebhook, email.Source)
	assert.Len(t, env.activities.byType(enum.ActivityEmailReceived), 1)
}

func TestAcceptInbound_DuplicateIsNoOp(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")

	first, accepted, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)
	require.True(t, accepted)

	// Same external id delivered again, this time by the poller
	second, accepted, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourcePoller, inboundEvent("ext-1"))

	require.NoError(t, err)
	assert.False(t, accepted)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, env.emails.emails, 1)
	// No second received entry for the duplicate
	assert.Len(t, env.activities.byType(enum.ActivityEmailReceived), 1)
}

func TestAcceptInbound_SameExternalIDDifferentPipelines(t *testing.T) {
	env := newTestEnv()
	apSettings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	tenderSettings := env.withInbox(enum.PipelineTender, "tenant-1", "tender@tenant.example")

	_, accepted, err := env.service.AcceptInbound(context.Background(), apSettings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)
	require.True(t, accepted)

	// Uniqueness is per pipeline, not global
	_, accepted, err = env.service.AcceptInbound(context.Background(), tenderSettings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)
	assert.True(t, accepted)
	assert.Len(t, env.emails.emails, 2)
}

func TestProcessEmail_NoAttachments(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	event := inboundEvent("ext-1")
	event.HasAttachments = false
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, event)
	require.NoError(t, err)

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusNoAttachments, stored.Status)
	assert.NotNil(t, stored.ProcessedAt)
	assert.Empty(t, env.records.created())
	assert.Equal(t, 1, env.publisher.emailsProcessed)
}

func TestProcessEmail_NoRelevantAttachments(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID: "ext-1",
		Attachments: []dto.ProviderAttachment{
			{Filename: "logo.png", ContentType: "image/png"},
			{Filename: "terms.docx", ContentType: "application/vnd.openxmlformats-officedocument.wordprocessingml.document"},
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusNoPdfAttachments, stored.Status)
	assert.Equal(t, 2, stored.AttachmentCount)
	assert.Empty(t, env.records.created())
	assert.Nil(t, stored.LinkedRecordID)
}

func TestProcessEmail_DetailFetchFailure(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.fetchErr = errors.New("provider unavailable")

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusFailed, stored.Status)
	require.NotNil(t, stored.ProcessingError)
	assert.Contains(t, *stored.ProcessingError, "provider unavailable")
	assert.Len(t, env.activities.byType(enum.ActivityEmailFailed), 1)
}

func TestProcessEmail_PartialAttachmentFailure(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	settings.AutoExtract = false
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	// Second attachment carries only a broken download URL
	env.provider.email = &dto.ProviderEmail{
		ID: "ext-1",
		Attachments: []dto.ProviderAttachment{
			pdfAttachment("a1", "invoice-1.pdf", []byte("%PDF-1.7 one")),
			{ID: "a2", Filename: "invoice-2.pdf", ContentType: "application/pdf", DownloadURL: "https://provider.test/broken"},
			pdfAttachment("a3", "invoice-3.pdf", []byte("%PDF-1.7 three")),
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusProcessed, stored.Status)

	records := env.records.created()
	require.Len(t, records, 2)
	assert.Equal(t, "invoice-1.pdf", records[0].Filename)
	assert.Equal(t, "invoice-3.pdf", records[1].Filename)
	require.NotNil(t, stored.LinkedRecordID)
	assert.Equal(t, records[0].ID, *stored.LinkedRecordID)

	assert.Len(t, env.activities.byType(enum.ActivityAttachmentSkipped), 1)
	assert.Len(t, env.activities.byType(enum.ActivityAttachmentStored), 2)
	assert.Len(t, env.storage.uploads, 2)
}

func TestProcessEmail_AllAttachmentsFail(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID: "ext-1",
		Attachments: []dto.ProviderAttachment{
			{ID: "a1", Filename: "invoice.pdf", ContentType: "application/pdf", DownloadURL: "https://provider.test/broken"},
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusFailed, stored.Status)
	assert.Empty(t, env.records.created())
	assert.Nil(t, stored.LinkedRecordID)
}

func TestProcessEmail_EndToEnd(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("e1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID:          "e1",
		Attachments: []dto.ProviderAttachment{pdfAttachment("a1", "invoice.pdf", []byte("%PDF-1.7 body"))},
	}
	env.classifier.pages = [][]byte{[]byte("page-1"), []byte("page-2")}
	env.extractor.result = &dto.ExtractionResult{
		Fields: []dto.ExtractedFieldCandidate{
			{Key: "invoice_number", Value: "INV-100", Confidence: 0.9},
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusProcessed, stored.Status)

	records := env.records.created()
	require.Len(t, records, 1)
	require.NotNil(t, stored.LinkedRecordID)
	assert.Equal(t, records[0].ID, *stored.LinkedRecordID)

	record, _ := env.records.GetByID(context.Background(), records[0].ID)
	require.NotNil(t, record.DocumentNumber)
	assert.Equal(t, "INV-100", *record.DocumentNumber)

	require.Len(t, env.fields.fields, 1)
	assert.Equal(t, "invoice_number", env.fields.fields[0].Key)
	assert.Equal(t, record.ID, env.fields.fields[0].RecordID)

	assert.Equal(t, 1, env.extractor.imageCalls)
	assert.Len(t, env.activities.byType(enum.ActivityExtractionComplete), 1)
}

func TestProcessEmail_ExtractionOnlyForFirstRecord(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID: "ext-1",
		Attachments: []dto.ProviderAttachment{
			pdfAttachment("a1", "invoice-1.pdf", []byte("%PDF-1.7 one")),
			pdfAttachment("a2", "invoice-2.pdf", []byte("%PDF-1.7 two")),
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	assert.Len(t, env.records.created(), 2)
	assert.Equal(t, 1, env.extractor.imageCalls)
}

func TestProcessEmail_ExtractionFailureDoesNotFailEmail(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID:          "ext-1",
		Attachments: []dto.ProviderAttachment{pdfAttachment("a1", "invoice.pdf", []byte("%PDF-1.7"))},
	}
	env.extractor.err = errors.New("failed to unmarshal extraction result")

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusProcessed, stored.Status)
	assert.Len(t, env.records.created(), 1)
	assert.Empty(t, env.fields.fields)
	assert.Len(t, env.activities.byType(enum.ActivityExtractionFailed), 1)
}

func TestProcessEmail_TerminalIsIdempotent(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "inbox@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID:          "ext-1",
		Attachments: []dto.ProviderAttachment{pdfAttachment("a1", "invoice.pdf", []byte("%PDF-1.7"))},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))
	require.Len(t, env.records.created(), 1)

	// Re-driving a processed email must not create more records
	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))
	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	assert.Len(t, env.records.created(), 1)
	assert.Equal(t, 1, env.publisher.emailsProcessed)
}

func TestProcessEmail_UnknownID(t *testing.T) {
	env := newTestEnv()

	err := env.service.ProcessEmail(context.Background(), "inbem_missing")

	assert.Error(t, err)
}

func TestProcessEmail_BodyTextPathForDrafting(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineDrafting, "tenant-1", "drafting@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID:       "ext-1",
		BodyHTML: "<html><body><p>Drawing D-42 revision B attached below</p></body></html>",
		Attachments: []dto.ProviderAttachment{
			{Filename: "signature.png", ContentType: "image/png", ContentID: "sig"},
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusProcessed, stored.Status)

	records := env.records.created()
	require.Len(t, records, 1)
	assert.Empty(t, records[0].StorageKey)
	assert.Equal(t, "text/plain", records[0].ContentType)
	require.NotNil(t, stored.LinkedRecordID)

	assert.Equal(t, 1, env.extractor.textCalls)
	assert.Equal(t, 0, env.extractor.imageCalls)
}

func TestProcessEmail_NoBodyTextPathForAccountsPayable(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID:       "ext-1",
		BodyHTML: "<p>Invoice in the body, no attachment</p>",
		Attachments: []dto.ProviderAttachment{
			{Filename: "signature.png", ContentType: "image/png", ContentID: "sig"},
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	stored, _ := env.emails.GetByID(context.Background(), email.ID)
	assert.Equal(t, enum.EmailStatusNoPdfAttachments, stored.Status)
	assert.Empty(t, env.records.created())
}

func TestProcessEmail_AutoSubmitOverridesDefaultStatus(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	settings.AutoSubmit = true
	settings.AutoExtract = false
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID:          "ext-1",
		Attachments: []dto.ProviderAttachment{pdfAttachment("a1", "invoice.pdf", []byte("%PDF-1.7"))},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	records := env.records.created()
	require.Len(t, records, 1)
	assert.Equal(t, enum.RecordStatusSubmitted, records[0].Status)
}

func TestProcessEmail_ImageAttachmentStoredAndExtracted(t *testing.T) {
	env := newTestEnv()
	settings := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	email, _, err := env.service.AcceptInbound(context.Background(), settings, enum.EmailSourceWebhook, inboundEvent("ext-1"))
	require.NoError(t, err)

	env.provider.email = &dto.ProviderEmail{
		ID: "ext-1",
		Attachments: []dto.ProviderAttachment{
			{
				ID:          "a1",
				Filename:    "scanned-invoice.jpg",
				ContentType: "image/jpeg",
				Content:     base64.StdEncoding.EncodeToString([]byte("jpeg-bytes")),
			},
		},
	}

	require.NoError(t, env.service.ProcessEmail(context.Background(), email.ID))

	records := env.records.created()
	require.Len(t, records, 1)
	assert.Equal(t, "image/jpeg", records[0].ContentType)
	// Images bypass rasterization and go to the model as a single page
	assert.Equal(t, 1, env.extractor.imageCalls)
}
