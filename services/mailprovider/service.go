package mailprovider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/config"
	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/tracing"
)

type mailProviderClient struct {
	cfg        *config.MailProviderConfig
	httpClient *http.Client
}

func NewMailProviderClient(cfg *config.MailProviderConfig) interfaces.MailProviderClient {
	return &mailProviderClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (c *mailProviderClient) FetchEmail(ctx context.Context, emailID string) (*dto.ProviderEmail, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailProviderClient.FetchEmail")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email-id", emailID)

	var email dto.ProviderEmail
	if err := c.get(ctx, "/v1/emails/"+url.PathEscape(emailID), &email); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return &email, nil
}

func (c *mailProviderClient) FetchAttachments(ctx context.Context, emailID string) ([]dto.ProviderAttachment, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailProviderClient.FetchAttachments")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("email-id", emailID)

	var response struct {
		Attachments []dto.ProviderAttachment `json:"attachments"`
	}
	if err := c.get(ctx, "/v1/emails/"+url.PathEscape(emailID)+"/attachments", &response); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return response.Attachments, nil
}

// DownloadAttachment fetches the raw bytes behind a signed download URL
// handed out by the provider. The URL already carries its own authorization.
func (c *mailProviderClient) DownloadAttachment(ctx context.Context, downloadURL string) ([]byte, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailProviderClient.DownloadAttachment")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create request")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "download request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("download failed with status code %d", resp.StatusCode)
		tracing.TraceErr(span, err)
		return nil, err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "unable to read attachment body")
	}
	return data, nil
}

func (c *mailProviderClient) ListInboundEmails(ctx context.Context, address string, since time.Time) ([]dto.InboundEventData, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "mailProviderClient.ListInboundEmails")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("address", address)

	query := url.Values{}
	query.Set("to", address)
	query.Set("since", since.UTC().Format(time.RFC3339))

	var response struct {
		Emails []dto.InboundEventData `json:"emails"`
	}
	if err := c.get(ctx, "/v1/emails?"+query.Encode(), &response); err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	return response.Emails, nil
}

func (c *mailProviderClient) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.Url+path, nil)
	if err != nil {
		return errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.ApiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return errors.Wrap(err, "failed to unmarshal response")
	}
	return nil
}
