package ingestion

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflowhq/docstack/internal/enum"
	errs "github.com/docflowhq/docstack/internal/errors"
)

func TestRouteInbound_ExactMatch(t *testing.T) {
	env := newTestEnv()
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	env.withInbox(enum.PipelineTender, "tenant-1", "tender@tenant.example")

	settings, err := env.service.RouteInbound(context.Background(), []string{"tender@tenant.example"})

	require.NoError(t, err)
	assert.Equal(t, enum.PipelineTender, settings.Pipeline)
}

func TestRouteInbound_CaseInsensitive(t *testing.T) {
	env := newTestEnv()
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	env.withInbox(enum.PipelineDrafting, "tenant-1", "drafting@tenant.example")

	settings, err := env.service.RouteInbound(context.Background(), []string{"AP@Tenant.Example "})

	require.NoError(t, err)
	assert.Equal(t, enum.PipelineAccountsPayable, settings.Pipeline)
}

func TestRouteInbound_SubstringMatch(t *testing.T) {
	env := newTestEnv()
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	env.withInbox(enum.PipelineDrafting, "tenant-1", "drafting@tenant.example")

	// Display-name form of the recipient still matches by substring
	settings, err := env.service.RouteInbound(context.Background(), []string{"accounts payable <ap@tenant.example>"})

	require.NoError(t, err)
	assert.Equal(t, enum.PipelineAccountsPayable, settings.Pipeline)
}

func TestRouteInbound_SingleInboxFallback(t *testing.T) {
	env := newTestEnv()
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")

	// Nothing matches but there is exactly one enabled inbox
	settings, err := env.service.RouteInbound(context.Background(), []string{"someone-else@other.example"})

	require.NoError(t, err)
	assert.Equal(t, enum.PipelineAccountsPayable, settings.Pipeline)
}

func TestRouteInbound_NoFallbackWithMultipleInboxes(t *testing.T) {
	env := newTestEnv()
	env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	env.withInbox(enum.PipelineTender, "tenant-2", "tender@other.example")

	_, err := env.service.RouteInbound(context.Background(), []string{"someone-else@nowhere.example"})

	assert.ErrorIs(t, err, errs.ErrNoMatchingInbox)
}

func TestRouteInbound_NoEnabledInboxes(t *testing.T) {
	env := newTestEnv()
	disabled := env.withInbox(enum.PipelineAccountsPayable, "tenant-1", "ap@tenant.example")
	disabled.IsEnabled = false

	_, err := env.service.RouteInbound(context.Background(), []string{"ap@tenant.example"})

	assert.ErrorIs(t, err, errs.ErrNoMatchingInbox)
}
