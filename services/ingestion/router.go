package ingestion

import (
	"context"
	"strings"

	"github.com/opentracing/opentracing-go"

	errs "github.com/docflowhq/docstack/internal/errors"
	"github.com/docflowhq/docstack/internal/models"
	"github.com/docflowhq/docstack/internal/tracing"
	"github.com/docflowhq/docstack/internal/utils"
)

// RouteInbound selects the inbox configuration that owns an inbound email by
// matching the recipient list against each enabled configuration's inbound
// address (exact or substring, normalized).
//
// Single-tenant convenience rule: when exactly one enabled configuration
// exists system-wide and nothing matches, that configuration is selected
// anyway. This is intentional and logged at WARN by the caller; a deployment
// with multiple enabled configurations never falls back, it rejects with
// ErrNoMatchingInbox.
func (s *Service) RouteInbound(ctx context.Context, toAddresses []string) (*models.InboxSettings, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "ingestionService.RouteInbound")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	candidates, err := s.settingsRepo.ListEnabled(ctx)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, errs.ErrNoMatchingInbox
	}

	recipients := make([]string, 0, len(toAddresses))
	for _, address := range toAddresses {
		recipients = append(recipients, utils.NormalizeEmailAddress(address))
	}

	for _, candidate := range candidates {
		configured := utils.NormalizeEmailAddress(candidate.InboundEmailAddress)
		if configured == "" {
			continue
		}
		for _, recipient := range recipients {
			if recipient == configured || strings.Contains(recipient, configured) {
				tracing.TagPipeline(span, candidate.Pipeline)
				return candidate, nil
			}
		}
	}

	if len(candidates) == 1 {
		span.SetTag("routing.fallback", true)
		s.log.Warnf("no recipient matched, falling back to the only enabled inbox (pipeline=%s tenant=%s)",
			candidates[0].Pipeline, candidates[0].TenantID)
		return candidates[0], nil
	}

	return nil, errs.ErrNoMatchingInbox
}
