package poller

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflowhq/docstack/config"
	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/utils"
	"github.com/docflowhq/docstack/services/ingestion"
)

func testLogger() logger.Logger {
	appLogger := logger.NewAppLogger(&logger.Config{
		DevMode: true,
	})
	appLogger.InitLogger()
	return appLogger
}

type memEmailRepo struct {
	emails map[string]*models.InboundEmail
}

func newMemEmailRepo() *memEmailRepo {
	return &memEmailRepo{emails: map[string]*models.InboundEmail{}}
}

func (r *memEmailRepo) Create(ctx context.Context, email *models.InboundEmail) error {
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
	copied := *email
	r.emails[email.ID] = &copied
	return nil
}

func (r *memEmailRepo) GetByID(ctx context.Context, id string) (*models.InboundEmail, error) {
	email, ok := r.emails[id]
	if !ok {
		return nil, nil
	}
	copied := *email
	return &copied, nil
}

func (r *memEmailRepo) GetByExternalID(ctx context.Context, pipeline enum.Pipeline, externalEmailID string) (*models.InboundEmail, error) {
	for _, email := range r.emails {
		if email.Pipeline == pipeline && email.ExternalEmailID == externalEmailID {
			copied := *email
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memEmailRepo) Update(ctx context.Context, email *models.InboundEmail) error {
	copied := *email
	r.emails[email.ID] = &copied
	return nil
}

func (r *memEmailRepo) ListByStatus(ctx context.Context, pipeline enum.Pipeline, status enum.EmailStatus, limit int) ([]*models.InboundEmail, error) {
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

func (r *memEmailRepo) CountByStatus(ctx context.Context, pipeline enum.Pipeline, tenantID string) (map[enum.EmailStatus]int64, error) {
	return map[enum.EmailStatus]int64{}, nil
}

type memSettingsRepo struct {
	settings []*models.InboxSettings
}

func (r *memSettingsRepo) GetByPipelineAndTenant(ctx context.Context, pipeline enum.Pipeline, tenantID string) (*models.InboxSettings, error) {
	for _, s := range r.settings {
		if s.Pipeline == pipeline && s.TenantID == tenantID {
			return s, nil
		}
	}
	return nil, nil
}

func (r *memSettingsRepo) ListEnabled(ctx context.Context) ([]*models.InboxSettings, error) {
	var result []*models.InboxSettings
	for _, s := range r.settings {
		if s.IsEnabled {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *memSettingsRepo) ListEnabledByPipeline(ctx context.Context, pipeline enum.Pipeline) ([]*models.InboxSettings, error) {
	var result []*models.InboxSettings
	for _, s := range r.settings {
		if s.IsEnabled && s.Pipeline == pipeline {
			result = append(result, s)
		}
	}
	return result, nil
}

func (r *memSettingsRepo) Upsert(ctx context.Context, settings *models.InboxSettings) error {
	r.settings = append(r.settings, settings)
	return nil
}

type memActivityRepo struct{}

func (memActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error { return nil }
func (memActivityRepo) ListBySubject(ctx context.Context, subjectID string) ([]*models.ActivityLog, error) {
	return nil, nil
}

type listProvider struct {
	byAddress map[string][]dto.InboundEventData
	errors    map[string]error
	calls     int
}

func (p *listProvider) FetchEmail(ctx context.Context, emailID string) (*dto.ProviderEmail, error) {
	return nil, errors.New("not used")
}

func (p *listProvider) FetchAttachments(ctx context.Context, emailID string) ([]dto.ProviderAttachment, error) {
	return nil, errors.New("not used")
}

func (p *listProvider) DownloadAttachment(ctx context.Context, url string) ([]byte, error) {
	return nil, errors.New("not used")
}

func (p *listProvider) ListInboundEmails(ctx context.Context, address string, since time.Time) ([]dto.InboundEventData, error) {
	p.calls++
	if err := p.errors[address]; err != nil {
		return nil, err
	}
	return p.byAddress[address], nil
}

type pollerEnv struct {
	service    *Service
	emails     *memEmailRepo
	settings   *memSettingsRepo
	provider   *listProvider
	dispatcher *ingestion.Dispatcher
}

func newPollerEnv(queueSize int) *pollerEnv {
	log := testLogger()
	emails := newMemEmailRepo()
	settings := &memSettingsRepo{}
	provider := &listProvider{byAddress: map[string][]dto.InboundEventData{}, errors: map[string]error{}}

	ingestionService := ingestion.NewService(ingestion.ServiceDeps{
		Log:          log,
		EmailRepo:    emails,
		SettingsRepo: settings,
		ActivityRepo: memActivityRepo{},
		Provider:     provider,
	})
	// Workers intentionally not started; tests inspect the queue via Enqueue
	// results and email statuses.
	dispatcher := ingestion.NewDispatcher(log, ingestionService, 1, queueSize)

	cfg := &config.PollerConfig{LookbackMinutes: 60, RequeueBatchSize: 50, StaleProcessingMinutes: 30}
	return &pollerEnv{
		service:    NewService(log, cfg, settings, emails, provider, ingestionService, dispatcher),
		emails:     emails,
		settings:   settings,
		provider:   provider,
		dispatcher: dispatcher,
	}
}

func (e *pollerEnv) withInbox(pipeline enum.Pipeline, tenant, address string) *models.InboxSettings {
	settings := &models.InboxSettings{
		ID:                  utils.GenerateNanoIDWithPrefix("inbox", 21),
		Pipeline:            pipeline,
		TenantID:            tenant,
		IsEnabled:           true,
		InboundEmailAddress: address,
	}
	e.settings.settings = append(e.settings.settings, settings)
	return settings
}

func TestTriggerNow_AcceptsOnlyUnknownEmails(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	env.provider.byAddress["ap@tenant.example"] = []dto.InboundEventData{
		{EmailID: "e1", From: "a@x.example", To: []string{"ap@tenant.example"}},
		{EmailID: "e2", From: "b@x.example", To: []string{"ap@tenant.example"}},
	}

	// e1 was already ingested by the webhook
	require.NoError(t, env.emails.Create(context.Background(), &models.InboundEmail{
		Pipeline:        enum.PipelineAccountsPayable,
		ExternalEmailID: "e1",
		TenantID:        "tenant-1",
		Status:          enum.EmailStatusProcessed,
	}))

	result, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, result.Checked)
	assert.Equal(t, 1, result.NewEmails)
	assert.Len(t, env.emails.emails, 2)
}

func TestTriggerNow_SingleFlight(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")

	require.True(t, env.service.acquire(enum.PipelineAccountsPayable))
	defer env.service.release(enum.PipelineAccountsPayable)

	_, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	assert.False(t, ran)
	assert.ErrorIs(t, err, errs.ErrPollAlreadyRunning)
}

func TestTriggerNow_PipelinesDoNotBlockEachOther(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineTender, "tenant-1", "tender@tenant.example")

	require.True(t, env.service.acquire(enum.PipelineAccountsPayable))
	defer env.service.release(enum.PipelineAccountsPayable)

	_, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineTender)

	require.NoError(t, err)
	assert.True(t, ran)
}

func TestTriggerNow_RequeuesStuckReceived(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")

	// Accepted earlier but never dispatched (full queue or crash)
	require.NoError(t, env.emails.Create(context.Background(), &models.InboundEmail{
		Pipeline:        enum.PipelineAccountsPayable,
		ExternalEmailID: "stuck-1",
		TenantID:        "tenant-1",
		Status:          enum.EmailStatusReceived,
	}))

	result, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.Requeued)
}

func TestTriggerNow_DoesNotRequeueEmailsAcceptedThisPass(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	env.provider.byAddress["ap@tenant.example"] = []dto.InboundEventData{
		{EmailID: "e1", From: "a@x.example", To: []string{"ap@tenant.example"}},
	}

	result, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.NewEmails)
	// The accepted email is still in received when the sweep runs; enqueueing
	// it a second time would hand the same id to two workers at once.
	assert.Equal(t, 0, result.Requeued)
}

func TestTriggerNow_RequeuesStaleProcessing(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")

	// A worker crashed an hour ago and left this one behind
	require.NoError(t, env.emails.Create(context.Background(), &models.InboundEmail{
		Pipeline:        enum.PipelineAccountsPayable,
		ExternalEmailID: "abandoned-1",
		TenantID:        "tenant-1",
		Status:          enum.EmailStatusProcessing,
		UpdatedAt:       time.Now().Add(-time.Hour),
	}))

	result, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 1, result.Requeued)
}

func TestTriggerNow_FreshProcessingIsLeftAlone(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")

	// A live worker is on this one right now
	require.NoError(t, env.emails.Create(context.Background(), &models.InboundEmail{
		Pipeline:        enum.PipelineAccountsPayable,
		ExternalEmailID: "in-flight-1",
		TenantID:        "tenant-1",
		Status:          enum.EmailStatusProcessing,
		UpdatedAt:       time.Now(),
	}))

	result, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 0, result.Requeued)
}

func TestTriggerNow_OneBrokenInboxDoesNotStopOthers(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "broken@tenant.example")
	env.withInbox(enum.PipelineAccountsPayable, "tenant-2", "working@tenant.example")
	env.provider.errors["broken@tenant.example"] = errors.New("provider timeout")
	env.provider.byAddress["working@tenant.example"] = []dto.InboundEventData{
		{EmailID: "e9", From: "a@x.example", To: []string{"working@tenant.example"}},
	}

	result, ran, err := env.service.TriggerNow(context.Background(), enum.PipelineAccountsPayable)

	require.NoError(t, err)
	assert.True(t, ran)
	assert.Equal(t, 2, env.provider.calls)
	assert.Equal(t, 1, result.NewEmails)
}

func TestTriggerAsync_ReportsSingleFlight(t *testing.T) {
	env := newPollerEnv(16)
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")

	require.True(t, env.service.acquire(enum.PipelineAccountsPayable))
	triggered := env.service.TriggerAsync(context.Background(), enum.PipelineAccountsPayable)
	env.service.release(enum.PipelineAccountsPayable)

	assert.False(t, triggered)
}
