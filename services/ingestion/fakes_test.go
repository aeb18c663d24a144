package ingestion

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/utils"
	"github.com/docflowhq/docstack/services/classifier"
)

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

// In-memory repositories mirroring the gorm hooks (id generation, default
// status) so service tests exercise the same shapes the real stack produces.

type fakeEmailRepo struct {
	emails map[string]*models.InboundEmail
}

func newFakeEmailRepo() *fakeEmailRepo {
	return &fakeEmailRepo{emails: map[string]*models.InboundEmail{}}
}

func (r *fakeEmailRepo) Create(ctx context.Context, email *models.InboundEmail) error {
	for _, existing := range r.emails {
		if existing.Pipeline == email.Pipeline && existing.ExternalEmailID == email.ExternalEmailID {
			return errs.ErrDuplicateEmail
		}
	}
	if email.ID == "" {
		email.ID = utils.GenerateNanoIDWithPrefix("inbem", 21)
	}
	if email.Status == "" {
		email.Status = enum.EmailStatusReceived
	}
	if email.ReceivedAt.IsZero() {
		email.ReceivedAt = utils.Now()
	}
	copied := *email
	r.emails[email.ID] = &copied
	return nil
}

func (r *fakeEmailRepo) GetByID(ctx context.Context, id string) (*models.InboundEmail, error) {
	email, ok := r.emails[id]
	if !ok {
		return nil, nil
	}
	copied := *email
	return &copied, nil
}

func (r *fakeEmailRepo) GetByExternalID(ctx context.Context, pipeline enum.Pipeline, externalEmailID string) (*models.InboundEmail, error) {
	for _, email := range r.emails {
		if email.Pipeline == pipeline && email.ExternalEmailID == externalEmailID {
			copied := *email
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *fakeEmailRepo) Update(ctx context.Context, email *models.InboundEmail) error {
	if _, ok := r.emails[email.ID]; !ok {
		return errs.ErrEmailNotFound
	}
	copied := *email
	r.emails[email.ID] = &copied
	return nil
}

func (r *fakeEmailRepo) ListByStatus(ctx context.Context, pipeline enum.Pipeline, status enum.EmailStatus, limit int) ([]*models.InboundEmail, error) {
	var result []*models.InboundEmail
	for _, email := range r.emails {
		if email.Pipeline == pipeline && email.Status == status {
			copied := *email
			result = append(result, &copied)
			if limit > 0 && len(result) >= limit {
				break
			}
		}
	}
	return result, nil
}

func (r *fakeEmailRepo) CountByStatus(ctx context.Context, pipeline enum.Pipeline, tenantID string) (map[enum.EmailStatus]int64, error) {
	counts := map[enum.EmailStatus]int64{}
	for _, email := range r.emails {
		if email.Pipeline == pipeline && email.TenantID == tenantID {
			counts[email.Status]++
		}
	}
	return counts, nil
}

type fakeRecordRepo struct {
	records map[string]*models.DocumentRecord
	order   []string
}

func newFakeRecordRepo() *fakeRecordRepo {
	return &fakeRecordRepo{records: map[string]*models.DocumentRecord{}}
}

func (r *fakeRecordRepo) Create(ctx context.Context, record *models.DocumentRecord) error {
	if record.ID == "" {
		record.ID = utils.GenerateNanoIDWithPrefix("doc", 21)
	}
	if record.Status == "" {
		record.Status = enum.RecordStatusDraft
	}
	copied := *record
	r.records[record.ID] = &copied
	r.order = append(r.order, record.ID)
	return nil
}

func (r *fakeRecordRepo) GetByID(ctx context.Context, id string) (*models.DocumentRecord, error) {
	record, ok := r.records[id]
	if !ok {
		return nil, nil
	}
	copied := *record
	return &copied, nil
}

func (r *fakeRecordRepo) Update(ctx context.Context, record *models.DocumentRecord) error {
	copied := *record
	r.records[record.ID] = &copied
	return nil
}

func (r *fakeRecordRepo) CountBySourceEmail(ctx context.Context, emailID string) (int64, error) {
	var count int64
	for _, record := range r.records {
		if record.SourceEmailID == emailID {
			count++
		}
	}
	return count, nil
}

func (r *fakeRecordRepo) created() []*models.DocumentRecord {
	result := make([]*models.DocumentRecord, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.records[id])
	}
	return result
}

type fakeFieldRepo struct {
	fields []models.ExtractedField
	err    error
}

func (r *fakeFieldRepo) CreateBatch(ctx context.Context, fields []models.ExtractedField) error {
	if r.err != nil {
		return r.err
	}
	r.fields = append(r.fields, fields...)
	return nil
}

func (r *fakeFieldRepo) ListByRecord(ctx context.Context, recordID string) ([]*models.ExtractedField, error) {
	var result []*models.ExtractedField
	for i := range r.fields {
		if r.fields[i].RecordID == recordID {
			result = append(result, &r.fields[i])
		}
	}
	return result, nil
}

type fakeActivityRepo struct {
	entries []*models.ActivityLog
}

func (r *fakeActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	copied := *entry
	r.entries = append(r.entries, &copied)
	return nil
}

func (r *fakeActivityRepo) ListBySubject(ctx context.Context, subjectID string) ([]*models.ActivityLog, error) {
	var result []*models.ActivityLog
	for _, entry := range r.entries {
		if entry.SubjectID == subjectID {
			result = append(result, entry)
		}
	}
	return result, nil
}

func (r *fakeActivityRepo) byType(activityType enum.ActivityType) []*models.ActivityLog {
	var result []*models.ActivityLog
	for _, entry := range r.entries {
		if entry.Type == activityType {
			result = append(result, entry)
		}
	}
	return result
}

type fakeSettingsRepo struct {
	settings []*models.InboxSettings
}

func (r *fakeSettingsRepo) GetByPipelineAndTenant(ctx context.Context, pipeline enum.Pipeline, tenantID string) (*models.InboxSettings, error) {
	for _, s := range r.settings {
		if s.Pipeline == pipeline && s.TenantID == tenantID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *fakeSettingsRepo) ListEnabled(ctx context.Context) ([]*models.InboxSettings, error) {
	var result []*models.InboxSettings
	for _, s := range r.settings {
		if s.IsEnabled {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeSettingsRepo) ListEnabledByPipeline(ctx context.Context, pipeline enum.Pipeline) ([]*models.InboxSettings, error) {
	var result []*models.InboxSettings
	for _, s := range r.settings {
		if s.IsEnabled && s.Pipeline == pipeline {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *fakeSettingsRepo) Upsert(ctx context.Context, settings *models.InboxSettings) error {
	for i, s := range r.settings {
		if s.Pipeline == settings.Pipeline && s.TenantID == settings.TenantID {
			r.settings[i] = settings
			return nil
		}
	}
	r.settings = append(r.settings, settings)
	return nil
}

type fakeProvider struct {
	email        *dto.ProviderEmail
	fetchErr     error
	downloads    map[string][]byte
	listed       []dto.InboundEventData
	listErr      error
	listRequests int
}

func (p *fakeProvider) FetchEmail(ctx context.Context, emailID string) (*dto.ProviderEmail, error) {
	if p.fetchErr != nil {
		return nil, p.fetchErr
	}
	return p.email, nil
}

func (p *fakeProvider) FetchAttachments(ctx context.Context, emailID string) ([]dto.ProviderAttachment, error) {
	if p.email == nil {
		return nil, nil
	}
	return p.email.Attachments, nil
}

func (p *fakeProvider) DownloadAttachment(ctx context.Context, url string) ([]byte, error) {
	data, ok := p.downloads[url]
	if !ok {
		return nil, errors.New("download failed")
	}
	return data, nil
}

func (p *fakeProvider) ListInboundEmails(ctx context.Context, address string, since time.Time) ([]dto.InboundEventData, error) {
	p.listRequests++
	if p.listErr != nil {
		return nil, p.listErr
	}
	return p.listed, nil
}

type fakeStorage struct {
	uploads   map[string][]byte
	uploadErr error
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{uploads: map[string][]byte{}}
}

func (s *fakeStorage) Upload(ctx context.Context, key string, data []byte, contentType string) error {
	if s.uploadErr != nil {
		return s.uploadErr
	}
	s.uploads[key] = data
	return nil
}

func (s *fakeStorage) Download(ctx context.Context, key string) ([]byte, error) {
	data, ok := s.uploads[key]
	if !ok {
		return nil, errors.New("not found")
	}
	return data, nil
}

func (s *fakeStorage) Delete(ctx context.Context, key string) error {
	delete(s.uploads, key)
	return nil
}

func (s *fakeStorage) GetPublicURL(key string) string {
	return "https://storage.test/" + key
}

// fakeClassifier keeps the real classification rules but replaces
// rasterization with canned page images so tests need no PDF rendering.
type fakeClassifier struct {
	pages     [][]byte
	rasterErr error
}

func (c *fakeClassifier) Classify(ctx context.Context, attachments []dto.ProviderAttachment) []dto.ProviderAttachment {
	return classifier.NewClassifierService().Classify(ctx, attachments)
}

func (c *fakeClassifier) Rasterize(ctx context.Context, pdf []byte, maxPages int) ([][]byte, error) {
	if c.rasterErr != nil {
		return nil, c.rasterErr
	}
	if len(c.pages) > maxPages {
		return c.pages[:maxPages], nil
	}
	return c.pages, nil
}

type fakeExtractor struct {
	result     *dto.ExtractionResult
	err        error
	imageCalls int
	textCalls  int
	lastPrompt string
}

func (e *fakeExtractor) ExtractFromImages(ctx context.Context, pages [][]byte, prompt string) (*dto.ExtractionResult, error) {
	e.imageCalls++
	e.lastPrompt = prompt
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

func (e *fakeExtractor) ExtractFromText(ctx context.Context, text string, prompt string) (*dto.ExtractionResult, error) {
	e.textCalls++
	e.lastPrompt = prompt
	if e.err != nil {
		return nil, e.err
	}
	return e.result, nil
}

type fakePublisher struct {
	emailsProcessed  int
	documentsCreated int
}

func (p *fakePublisher) PublishEmailProcessed(ctx context.Context, email *models.InboundEmail) error {
	p.emailsProcessed++
	return nil
}

func (p *fakePublisher) PublishDocumentCreated(ctx context.Context, record *models.DocumentRecord) error {
	p.documentsCreated++
	return nil
}

func (p *fakePublisher) Close() error {
	return nil
}

// testEnv bundles one fully wired ingestion service with its fakes.
type testEnv struct {
	service    *Service
	emails     *fakeEmailRepo
	records    *fakeRecordRepo
	fields     *fakeFieldRepo
	activities *fakeActivityRepo
	settings   *fakeSettingsRepo
	provider   *fakeProvider
	storage    *fakeStorage
	classifier *fakeClassifier
	extractor  *fakeExtractor
	publisher  *fakePublisher
}

func newTestEnv() *testEnv {
	env := &testEnv{
		emails:     newFakeEmailRepo(),
		records:    newFakeRecordRepo(),
		fields:     &fakeFieldRepo{},
		activities: &fakeActivityRepo{},
		settings:   &fakeSettingsRepo{},
		provider:   &fakeProvider{downloads: map[string][]byte{}},
		storage:    newFakeStorage(),
		classifier: &fakeClassifier{pages: [][]byte{[]byte("page-1"), []byte("page-2")}},
		extractor:  &fakeExtractor{result: &dto.ExtractionResult{}},
		publisher:  &fakePublisher{},
	}
	env.service = NewService(ServiceDeps{
		Log:          testLogger(),
		EmailRepo:    env.emails,
		RecordRepo:   env.records,
		FieldRepo:    env.fields,
		ActivityRepo: env.activities,
		SettingsRepo: env.settings,
		Provider:     env.provider,
		Storage:      env.storage,
		Classifier:   env.classifier,
		Extractor:    env.extractor,
		Publisher:    env.publisher,
	})
	return env
}

func (e *testEnv) withInbox(pipeline enum.Pipeline, tenant, address string) *models.InboxSettings {
	settings := &models.InboxSettings{
		ID:                  utils.GenerateNanoIDWithPrefix("inbox", 21),
		Pipeline:            pipeline,
		TenantID:            tenant,
		IsEnabled:           true,
		InboundEmailAddress: address,
		AutoExtract:         true,
		DefaultStatus:       enum.RecordStatusDraft,
	}
	e.settings.settings = append(e.settings.settings, settings)
	return settings
}
