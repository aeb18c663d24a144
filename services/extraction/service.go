package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/config"
	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/tracing"
)

type extractionService struct {
	cfg        *config.ExtractionAPIConfig
	httpClient *http.Client
}

func NewExtractionService(cfg *config.ExtractionAPIConfig) interfaces.ExtractionService {
	return &extractionService{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: time.Duration(cfg.TimeoutSeconds) * time.Second,
		},
	}
}

func (s *extractionService) ExtractFromImages(ctx context.Context, pages [][]byte, prompt string) (*dto.ExtractionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "extractionService.ExtractFromImages")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)
	span.SetTag("pages", len(pages))

	encoded := make([]string, 0, len(pages))
	for _, page := range pages {
		encoded = append(encoded, base64.StdEncoding.EncodeToString(page))
	}

	request := dto.ExtractionRequest{
		Pages:  encoded,
		Prompt: prompt,
	}
	return s.call(ctx, span, request)
}

func (s *extractionService) ExtractFromText(ctx context.Context, text string, prompt string) (*dto.ExtractionResult, error) {
	span, ctx := opentracing.StartSpanFromContext(ctx, "extractionService.ExtractFromText")
	defer span.Finish()
	tracing.SetDefaultServiceSpanTags(ctx, span)

	request := dto.ExtractionRequest{
		Text:   text,
		Prompt: prompt,
	}
	return s.call(ctx, span, request)
}

func (s *extractionService) call(ctx context.Context, span opentracing.Span, request dto.ExtractionRequest) (*dto.ExtractionResult, error) {
	payload, err := json.Marshal(request)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to marshal payload")
	}

	req, err := http.NewRequestWithContext(ctx, "POST", s.cfg.Url+"/v1/extract", bytes.NewBuffer(payload))
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to create request")
	}

	req.Header.Set("Content-Type", "application/json")
	if s.cfg.ApiKey != "" {
		req.Header.Set("X-API-KEY", s.cfg.ApiKey)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "unable to read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		err := fmt.Errorf("request failed with status code %d: %s", resp.StatusCode, string(body))
		tracing.TraceErr(span, err)
		return nil, err
	}

	result, err := decodeResult(body)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, err
	}
	span.SetTag("fields", len(result.Fields))

	return result, nil
}

// decodeResult parses the model output. The model occasionally wraps its
// JSON in markdown fences or leading prose; an unparseable body aborts the
// extraction, not the ingestion.
func decodeResult(body []byte) (*dto.ExtractionResult, error) {
	text := strings.TrimSpace(string(body))
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")

	if idx := strings.Index(text, "{"); idx > 0 {
		text = text[idx:]
	}

	var result dto.ExtractionResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal extraction result")
	}
	return &result, nil
}
