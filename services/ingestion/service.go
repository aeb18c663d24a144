package ingestion

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
	"github.com/docflowhq/docstack/services/classifier"
	"github.com/docflowhq/docstack/services/extraction"
	"github.com/docflowhq/docstack/services/storage"
)

// Service owns the per-email ingestion lifecycle: dedup acceptance,
// attachment retrieval, storage hand-off, record creation and extraction
// triggering. Webhook and poller both enter through AcceptInbound; the
// dispatcher workers drive ProcessEmail to a terminal status.
type Service struct {
	log          logger.Logger
	emailRepo    interfaces.InboundEmailRepository
	recordRepo   interfaces.DocumentRecordRepository
	fieldRepo    interfaces.ExtractedFieldRepository
	activityRepo interfaces.ActivityLogRepository
	settingsRepo interfaces.InboxSettingsRepository
	provider     interfaces.MailProviderClient
	storage      interfaces.StorageService
	classifier   interfaces.AttachmentClassifier
	extractor    interfaces.ExtractionService
	publisher    interfaces.EventsPublisher
	pipelines    map[enum.Pipeline]PipelineConfig
}

type ServiceDeps struct {
	Log          logger.Logger
	EmailRepo    interfaces.InboundEmailRepository
	RecordRepo   interfaces.DocumentRecordRepository
	FieldRepo    interfaces.ExtractedFieldRepository
	ActivityRepo interfaces.ActivityLogRepository
	SettingsRepo interfaces.InboxSettingsRepository
	Provider     interfaces.MailProviderClient
	Storage      interfaces.StorageService
	Classifier   interfaces.AttachmentClassifier
	Extractor    interfaces.ExtractionService
	Publisher    interfaces.EventsPublisher
	Pipelines    map[enum.Pipeline]PipelineConfig
}

func NewService(deps ServiceDeps) *Service {
	pipelines := deps.Pipelines
	if pipelines == nil {
		pipelines = DefaultPipelines()
	}
	return &Service{
		log:          deps.Log,
		emailRepo:    deps.EmailRepo,
		recordRepo:   deps.RecordRepo,
		fieldRepo:    deps.FieldRepo,
		activityRepo: deps.ActivityRepo,
		settingsRepo: deps.SettingsRepo,
		provider:     deps.Provider,
		storage:      deps.Storage,
		classifier:   deps.Classifier,
		extractor:    deps.Extractor,
		publisher:    deps.Publisher,
		pipelines:    pipelines,
	}
}

// AcceptInbound is the single ingestion entry point for webhook deliveries
// and poller findings. It inserts the email row and relies on the
// (pipeline, external_email_id) uniqueness constraint as the dedup gate:
// a duplicate delivery returns the existing row with accepted=false and is
// a success-no-op for the caller.
func (s *Service) AcceptInbound(ctx context.Context, settings *models.InboxSettings, source enum.EmailSource, event dto.InboundEventData) (*models.InboundEmail, bool, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.AcceptInbound")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagPipeline(span, settings.Pipeline)
	span.SetTag("external-email-id", event.EmailID)

	email := &models.InboundEmail{
		Pipeline:        settings.Pipeline,
		ExternalEmailID: event.EmailID,
		TenantID:        settings.TenantID,
		FromAddress:     utils.NormalizeEmailAddress(event.From),
		ToAddresses:     event.To,
		Subject:         event.Subject,
		Status:          enum.EmailStatusReceived,
		Source:          source,
		HasAttachments:  event.HasAttachments,
	}

	err := s.emailRepo.Create(ctx, email)
	if err != nil {
		if errors.Is(err, errs.ErrDuplicateEmail) {
			span.SetTag("duplicate", true)
			existing, getErr := s.emailRepo.GetByExternalID(ctx, settings.Pipeline, event.EmailID)
			if getErr != nil {
				tracing.TraceErr(span, getErr)
				return nil, false, getErr
			}
			return existing, false, nil
		}
		tracing.TraceErr(span, err)
		return nil, false, err
	}

	s.logActivity(ctx, email.ID, enum.SubjectInboundEmail, enum.ActivityEmailReceived,
		fmt.Sprintf("email received via %s from %s", source, email.FromAddress),
		models.JSONMap{"externalEmailId": event.EmailID, "source": source.String()})

	return email, true, nil
}

// ProcessEmail drives one inbound email from received to a terminal status.
// It is safe to re-run for the same id: terminal emails and emails that
// already created records are skipped, so a spurious re-trigger never
// double-creates DocumentRecords.
func (s *Service) ProcessEmail(ctx context.Context, emailID string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.ProcessEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, emailID)

	email, err := s.emailRepo.GetByID(ctx, emailID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	if email == nil {
		return errs.ErrEmailNotFound
	}
	tracing.TagPipeline(span, email.Pipeline)
	tracing.TagTenant(span, email.TenantID)

	if email.Status.IsTerminal() {
		span.SetTag("skipped", "terminal")
		return nil
	}
	if email.LinkedRecordID != nil {
		// A previous attempt crashed after the fan-out; records exist already.
		span.SetTag("skipped", "linked-record")
		return nil
	}

	cfg, ok := s.pipelines[email.Pipeline]
	if !ok {
		err := fmt.Errorf("unknown pipeline %q", email.Pipeline)
		tracing.TraceErr(span, err)
		return err
	}

	email.Status = enum.EmailStatusProcessing
	if err := s.emailRepo.Update(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	if !email.HasAttachments {
		return s.markTerminal(ctx, email, enum.EmailStatusNoAttachments, "email has no attachments")
	}

	detail, err := s.provider.FetchEmail(ctx, email.ExternalEmailID)
	if err != nil {
		return s.markFailed(ctx, email, errors.Wrap(err, "failed to fetch email detail"))
	}
	email.BodyText = detail.BodyText
	email.BodyHTML = detail.BodyHTML

	attachments := detail.Attachments
	if len(attachments) == 0 {
		attachments, err = s.provider.FetchAttachments(ctx, email.ExternalEmailID)
		if err != nil {
			return s.markFailed(ctx, email, errors.Wrap(err, "failed to fetch attachments"))
		}
	}
	email.AttachmentCount = len(attachments)

	if len(attachments) == 0 {
		return s.markTerminal(ctx, email, enum.EmailStatusNoAttachments, "provider returned no attachments")
	}

	settings, err := s.settingsRepo.GetByPipelineAndTenant(ctx, email.Pipeline, email.TenantID)
	if err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	relevant := s.classifier.Classify(ctx, attachments)
	if len(relevant) == 0 {
		return s.processWithoutDocuments(ctx, cfg, settings, email)
	}

	return s.processAttachments(ctx, cfg, settings, email, relevant)
}

// processAttachments stores each relevant attachment, creates one record per
// stored attachment and finishes the email. Attachments are handled
// sequentially: ordering of linked_record_id stays deterministic and only one
// decoded buffer is held at a time. A single stored attachment is enough for
// the email to count as processed.
func (s *Service) processAttachments(ctx context.Context, cfg PipelineConfig, settings *models.InboxSettings, email *models.InboundEmail, relevant []dto.ProviderAttachment) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.processAttachments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("relevant", len(relevant))

	var firstRecord *models.DocumentRecord
	var firstData []byte
	var firstContentType string

	for _, attachment := range relevant {
		data, err := s.attachmentBytes(ctx, attachment)
		if err != nil {
			s.logActivity(ctx, email.ID, enum.SubjectInboundEmail, enum.ActivityAttachmentSkipped,
				fmt.Sprintf("attachment %q skipped: %v", attachment.Filename, err),
				models.JSONMap{"filename": attachment.Filename})
			continue
		}

		contentType := classifier.SniffContentType(attachment.ContentType, data)
		key := storage.AttachmentKey(email.Pipeline, email.TenantID, utils.FileExtension(attachment.Filename, extensionFor(contentType)))

		if err := s.storage.Upload(ctx, key, data, contentType); err != nil {
			s.logActivity(ctx, email.ID, enum.SubjectInboundEmail, enum.ActivityAttachmentSkipped,
				fmt.Sprintf("attachment %q skipped: storage upload failed: %v", attachment.Filename, err),
				models.JSONMap{"filename": attachment.Filename})
			continue
		}

		record := &models.DocumentRecord{
			Pipeline:      email.Pipeline,
			TenantID:      email.TenantID,
			SourceEmailID: email.ID,
			Status:        s.recordStatus(cfg, settings),
			StorageKey:    key,
			Filename:      attachment.Filename,
			ContentType:   contentType,
			Size:          len(data),
		}
		if err := s.recordRepo.Create(ctx, record); err != nil {
			tracing.TraceErr(span, err)
			return err
		}

		s.logActivity(ctx, email.ID, enum.SubjectInboundEmail, enum.ActivityAttachmentStored,
			fmt.Sprintf("attachment %q stored as %s", attachment.Filename, key),
			models.JSONMap{"recordId": record.ID, "storageKey": key})
		s.logActivity(ctx, record.ID, enum.SubjectDocumentRecord, enum.ActivityRecordCreated,
			fmt.Sprintf("record created from email %s", email.ID),
			models.JSONMap{"sourceEmailId": email.ID, "filename": attachment.Filename})
		s.publishDocumentCreated(ctx, record)

		if firstRecord == nil {
			firstRecord = record
			firstData = data
			firstContentType = contentType
		}
	}

	if firstRecord == nil {
		return s.markFailed(ctx, email, errors.New("all relevant attachments failed to download or store"))
	}

	email.LinkedRecordID = &firstRecord.ID
	if err := s.markTerminal(ctx, email, enum.EmailStatusProcessed, "email processed"); err != nil {
		return err
	}

	// Extraction is a best-effort side task for the first record only; its
	// failure never reverts the processed transition.
	if settings != nil && settings.AutoExtract {
		s.extractFromDocument(ctx, cfg, firstRecord, firstData, firstContentType)
	}

	return nil
}

// processWithoutDocuments handles emails whose attachments all failed
// relevance. Pipelines with body-text extraction still produce a record from
// the email body; everyone else terminates no_pdf_attachments with the
// attachment count recorded for visibility.
func (s *Service) processWithoutDocuments(ctx context.Context, cfg PipelineConfig, settings *models.InboxSettings, email *models.InboundEmail) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.processWithoutDocuments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	bodyText := email.BodyText
	if bodyText == "" && email.BodyHTML != "" {
		bodyText = htmlToText(email.BodyHTML)
	}

	if !cfg.BodyTextExtraction || strings.TrimSpace(bodyText) == "" {
		return s.markTerminal(ctx, email, enum.EmailStatusNoPdfAttachments, "no relevant attachments")
	}

	record := &models.DocumentRecord{
		Pipeline:      email.Pipeline,
		TenantID:      email.TenantID,
		SourceEmailID: email.ID,
		Status:        s.recordStatus(cfg, settings),
		ContentType:   "text/plain",
		Size:          len(bodyText),
	}
	if err := s.recordRepo.Create(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		return err
	}
	s.logActivity(ctx, record.ID, enum.SubjectDocumentRecord, enum.ActivityRecordCreated,
		fmt.Sprintf("record created from body text of email %s", email.ID),
		models.JSONMap{"sourceEmailId": email.ID, "bodyText": true})
	s.publishDocumentCreated(ctx, record)

	email.LinkedRecordID = &record.ID
	if err := s.markTerminal(ctx, email, enum.EmailStatusProcessed, "email processed from body text"); err != nil {
		return err
	}

	if settings != nil && settings.AutoExtract {
		s.extractFromText(ctx, cfg, record, bodyText)
	}

	return nil
}

func (s *Service) attachmentBytes(ctx context.Context, attachment dto.ProviderAttachment) ([]byte, error) {
	// Inline content is preferred; the signed URL is the fallback.
	if attachment.Content != "" {
		data, err := base64.StdEncoding.DecodeString(attachment.Content)
		if err != nil {
			return nil, errors.Wrap(err, "failed to decode inline content")
		}
		return data, nil
	}
	if attachment.DownloadURL != "" {
		return s.provider.DownloadAttachment(ctx, attachment.DownloadURL)
	}
	return nil, errors.New("attachment carries neither inline content nor a download url")
}

func (s *Service) recordStatus(cfg PipelineConfig, settings *models.InboxSettings) enum.RecordStatus {
	if settings != nil && settings.AutoSubmit {
		return enum.RecordStatusSubmitted
	}
	if settings != nil && settings.DefaultStatus != "" {
		return settings.DefaultStatus
	}
	return cfg.DefaultRecordStatus
}

func (s *Service) extractFromDocument(ctx context.Context, cfg PipelineConfig, record *models.DocumentRecord, data []byte, contentType string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.extractFromDocument")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, record.ID)

	var pages [][]byte
	if contentType == classifier.ContentTypePDF {
		rendered, err := s.classifier.Rasterize(ctx, data, cfg.MaxRasterPages)
		if err != nil {
			s.logExtractionFailed(ctx, record.ID, errors.Wrap(err, "rasterization failed"))
			return
		}
		pages = rendered
	} else {
		// Scanned images go to the model as a single page.
		pages = [][]byte{data}
	}

	result, err := s.extractor.ExtractFromImages(ctx, pages, cfg.ExtractionPrompt)
	if err != nil {
		s.logExtractionFailed(ctx, record.ID, err)
		return
	}
	s.persistExtraction(ctx, record, result)
}

func (s *Service) extractFromText(ctx context.Context, cfg PipelineConfig, record *models.DocumentRecord, text string) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.extractFromText")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagEntity(span, record.ID)

	result, err := s.extractor.ExtractFromText(ctx, text, cfg.ExtractionPrompt)
	if err != nil {
		s.logExtractionFailed(ctx, record.ID, err)
		return
	}
	s.persistExtraction(ctx, record, result)
}

func (s *Service) persistExtraction(ctx context.Context, record *models.DocumentRecord, result *dto.ExtractionResult) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.persistExtraction")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("fields", len(result.Fields))

	fields := make([]models.ExtractedField, 0, len(result.Fields))
	for _, candidate := range result.Fields {
		fields = append(fields, models.ExtractedField{
			RecordID:    record.ID,
			Key:         candidate.Key,
			Value:       candidate.Value,
			Confidence:  candidate.Confidence,
			BoundingBox: candidate.BoundingBox,
			Source:      "extraction",
		})
	}
	if err := s.fieldRepo.CreateBatch(ctx, fields); err != nil {
		s.logExtractionFailed(ctx, record.ID, errors.Wrap(err, "failed to persist extracted fields"))
		return
	}

	extraction.ApplyFieldMapping(record, result.Fields)
	if err := s.recordRepo.Update(ctx, record); err != nil {
		tracing.TraceErr(span, err)
		s.log.Errorf("failed to apply extraction mapping to record %s: %v", record.ID, err)
	}

	s.logActivity(ctx, record.ID, enum.SubjectDocumentRecord, enum.ActivityExtractionComplete,
		fmt.Sprintf("extraction returned %d fields", len(result.Fields)),
		models.JSONMap{"fields": len(result.Fields), "lineItems": len(result.LineItems)})
}

func (s *Service) markTerminal(ctx context.Context, email *models.InboundEmail, status enum.EmailStatus, message string) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.markTerminal")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("status", status.String())

	email.Status = status
	email.ProcessedAt = utils.NowPtr()
	if err := s.emailRepo.Update(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.logActivity(ctx, email.ID, enum.SubjectInboundEmail, enum.ActivityEmailProcessed, message,
		models.JSONMap{"status": status.String(), "attachmentCount": email.AttachmentCount})
	s.publishEmailProcessed(ctx, email)
	return nil
}

func (s *Service) markFailed(ctx context.Context, email *models.InboundEmail, cause error) error {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.markFailed")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TraceErr(span, cause)

	message := cause.Error()
	email.Status = enum.EmailStatusFailed
	email.ProcessingError = &message
	if err := s.emailRepo.Update(ctx, email); err != nil {
		tracing.TraceErr(span, err)
		return err
	}

	s.logActivity(ctx, email.ID, enum.SubjectInboundEmail, enum.ActivityEmailFailed, message, nil)
	s.log.Errorf("ingestion failed for email %s: %v", email.ID, cause)
	return nil
}

func (s *Service) logActivity(ctx context.Context, subjectID string, subjectType enum.SubjectType, activityType enum.ActivityType, message string, metadata models.JSONMap) {
	entry := &models.ActivityLog{
		SubjectID:   subjectID,
		SubjectType: subjectType,
		Type:        activityType,
		Message:     message,
		Metadata:    metadata,
	}
	if err := s.activityRepo.Create(ctx, entry); err != nil {
		s.log.Errorf("failed to write activity log for %s: %v", subjectID, err)
	}
}

func (s *Service) logExtractionFailed(ctx context.Context, recordID string, cause error) {
	s.log.Warnf("extraction failed for record %s: %v", recordID, cause)
	s.logActivity(ctx, recordID, enum.SubjectDocumentRecord, enum.ActivityExtractionFailed, cause.Error(), nil)
}

func (s *Service) publishEmailProcessed(ctx context.Context, email *models.InboundEmail) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishEmailProcessed(ctx, email); err != nil {
		s.log.Warnf("failed to publish email.processed for %s: %v", email.ID, err)
	}
}

func (s *Service) publishDocumentCreated(ctx context.Context, record *models.DocumentRecord) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishDocumentCreated(ctx, record); err != nil {
		s.log.Warnf("failed to publish document.created for %s: %v", record.ID, err)
	}
}

func extensionFor(contentType string) string {
	switch contentType {
	case classifier.ContentTypePDF:
		return "pdf"
	case "image/jpeg":
		return "jpg"
	case "image/png":
		return "png"
	case "image/tiff":
		return "tiff"
	default:
		return "bin"
	}
}
