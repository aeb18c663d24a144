package poller

import (
	"context"
	"sync"
	"time"

	"github.com/opentracing/opentracing-go"

	"github.com/docflowhq/docstack/config"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/logger"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
	"github.com/docflowhq/docstack/services/ingestion"
)

// PollResult summarizes one polling pass over a pipeline.
type PollResult struct {
	Checked   int `json:"checked"`
	NewEmails int `json:"newEmails"`
	Requeued  int `json:"requeued"`
}

// Service is the safety net behind the webhook: it re-scans the provider for
// emails whose webhook delivery was lost and re-enqueues emails stuck in
// received (crashed worker, full queue). Per-pipeline passes are
// single-flight; an overlapping trigger is rejected, never queued.
type Service struct {
	log        logger.Logger
	cfg        *config.PollerConfig
	settings   interfaces.InboxSettingsRepository
	emails     interfaces.InboundEmailRepository
	provider   interfaces.MailProviderClient
	ingestion  *ingestion.Service
	dispatcher *ingestion.Dispatcher

	mu      sync.Mutex
	running map[enum.Pipeline]bool
}

func NewService(
	log logger.Logger,
	cfg *config.PollerConfig,
	settings interfaces.InboxSettingsRepository,
	emails interfaces.InboundEmailRepository,
	provider interfaces.MailProviderClient,
	ingestionService *ingestion.Service,
	dispatcher *ingestion.Dispatcher,
) *Service {
	return &Service{
		log:        log,
		cfg:        cfg,
		settings:   settings,
		emails:     emails,
		provider:   provider,
		ingestion:  ingestionService,
		dispatcher: dispatcher,
		running:    make(map[enum.Pipeline]bool),
	}
}

// TriggerNow runs a polling pass for the pipeline unless one is already in
// flight. The bool reports whether the pass actually ran.
func (s *Service) TriggerNow(ctx context.Context, pipeline enum.Pipeline) (*PollResult, bool, error) {
	if !s.acquire(pipeline) {
		return nil, false, errs.ErrPollAlreadyRunning
	}
	defer s.release(pipeline)

	result, err := s.pollPipeline(ctx, pipeline)
	return result, true, err
}

// TriggerAsync starts a background polling pass and reports immediately
// whether one was started. Backs the manual check-emails endpoint.
func (s *Service) TriggerAsync(ctx context.Context, pipeline enum.Pipeline) bool {
	if !s.acquire(pipeline) {
		return false
	}

	go func() {
		defer s.release(pipeline)
		defer func() {
			if r := recover(); r != nil {
				s.log.Errorf("poll for pipeline %s panicked: %v", pipeline, r)
			}
		}()

		result, err := s.pollPipeline(ctx, pipeline)
		if err != nil {
			s.log.Errorf("manual poll for pipeline %s failed: %v", pipeline, err)
			return
		}
		s.log.Infof("manual poll pipeline=%s checked=%d new=%d requeued=%d",
			pipeline, result.Checked, result.NewEmails, result.Requeued)
	}()

	return true
}

// PollOnce is the cron entry point. An overlapping pass is skipped silently;
// the next tick covers the same window again.
func (s *Service) PollOnce(ctx context.Context, pipeline enum.Pipeline) {
	result, ran, err := s.TriggerNow(ctx, pipeline)
	if err != nil {
		if err == errs.ErrPollAlreadyRunning {
			s.log.Infof("poll for pipeline %s already running, skipping tick", pipeline)
			return
		}
		s.log.Errorf("poll for pipeline %s failed: %v", pipeline, err)
		return
	}
	if ran {
		s.log.Infof("poll pipeline=%s checked=%d new=%d requeued=%d",
			pipeline, result.Checked, result.NewEmails, result.Requeued)
	}
}

func (s *Service) pollPipeline(ctx context.Context, pipeline enum.Pipeline) (*PollResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "pollerService.pollPipeline")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	tracing.TagPipeline(span, pipeline)

	result := &PollResult{}

	settings, err := s.settings.ListEnabledByPipeline(ctx, pipeline)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}

	since := utils.Now().Add(-time.Duration(s.cfg.LookbackMinutes) * time.Minute)
	enqueuedThisPass := make(map[string]bool)
	for _, setting := range settings {
		if setting.InboundEmailAddress == "" {
			continue
		}

		events, err := s.provider.ListInboundEmails(ctx, setting.InboundEmailAddress, since)
		if err != nil {
			// One broken inbox must not stop the others in the same pass.
			tracing.TraceErr(span, err)
			s.log.Errorf("listing inbound emails for %s failed: %v", setting.InboundEmailAddress, err)
			continue
		}

		for _, event := range events {
			result.Checked++
			email, accepted, err := s.ingestion.AcceptInbound(ctx, setting, enum.EmailSourcePoller, event)
			if err != nil {
				tracing.TraceErr(span, err)
				s.log.Errorf("accepting polled email %s failed: %v", event.EmailID, err)
				continue
			}
			if !accepted {
				continue
			}
			result.NewEmails++
			if err := s.dispatcher.Enqueue(email.ID); err != nil {
				// Stays received; picked up by the requeue sweep below or the
				// next pass.
				s.log.Warnf("enqueue of polled email %s deferred: %v", email.ID, err)
			} else {
				enqueuedThisPass[email.ID] = true
			}
		}
	}

	requeued, err := s.requeueStuck(ctx, pipeline, enqueuedThisPass)
	if err != nil {
		tracing.TraceErr(span, err)
		return result, err
	}
	result.Requeued = requeued

	span.SetTag("checked", result.Checked)
	span.SetTag("new", result.NewEmails)
	span.SetTag("requeued", result.Requeued)
	return result, nil
}

// requeueStuck re-dispatches emails that were accepted on an earlier pass but
// never reached a terminal status. Emails enqueued by the current pass are
// excluded; sweeping them too would put the same id on the queue twice and
// hand it to two workers at once.
func (s *Service) requeueStuck(ctx context.Context, pipeline enum.Pipeline, enqueuedThisPass map[string]bool) (int, error) {
	stuck, err := s.emails.ListByStatus(ctx, pipeline, enum.EmailStatusReceived, s.cfg.RequeueBatchSize)
	if err != nil {
		return 0, err
	}

	// A worker crash leaves its email in processing with nobody to finish it.
	// ProcessEmail re-runs safely, so re-drive those too once they have sat
	// long enough to rule out a live worker.
	if s.cfg.StaleProcessingMinutes > 0 {
		cutoff := utils.Now().Add(-time.Duration(s.cfg.StaleProcessingMinutes) * time.Minute)
		processing, err := s.emails.ListByStatus(ctx, pipeline, enum.EmailStatusProcessing, s.cfg.RequeueBatchSize)
		if err != nil {
			return 0, err
		}
		for _, email := range processing {
			if email.UpdatedAt.Before(cutoff) {
				stuck = append(stuck, email)
			}
		}
	}

	requeued := 0
	for _, email := range stuck {
		if enqueuedThisPass[email.ID] {
			continue
		}
		if err := s.dispatcher.Enqueue(email.ID); err != nil {
			// Queue is full again; the rest of the batch would fail too.
			break
		}
		requeued++
	}
	return requeued, nil
}

func (s *Service) acquire(pipeline enum.Pipeline) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running[pipeline] {
		return false
	}
	s.running[pipeline] = true
	return true
}

func (s *Service) release(pipeline enum.Pipeline) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.running, pipeline)
}
