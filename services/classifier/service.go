package classifier

import (
	"context"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/opentracing/opentracing-go"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/interfaces"
	"github.com/docflowhq/docstack/internal/tracing"
)

const ContentTypePDF = "application/pdf"

var relevantImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/tiff": true,
}

// Filename patterns of decorative inline images that survive the
// content-id/disposition check in some clients.
var noiseFilenamePatterns = []string{
	"signature",
	"logo",
	"banner",
	"outlook-",
	"image0",
}

type classifierService struct{}

func NewClassifierService() interfaces.AttachmentClassifier {
	return &classifierService{}
}

// Classify returns the attachments worth ingesting: PDFs, plus scanned images
// (jpeg/png/tiff) that are not inline signature/logo noise.
func (s *classifierService) Classify(ctx context.Context, attachments []dto.ProviderAttachment) []dto.ProviderAttachment {
	span, _ := opentracing.StartSpanFromContext(ctx, "classifierService.Classify")
	defer span.Finish()
	tracing.TagComponentService(span)
	span.SetTag("attachments", len(attachments))

	var relevant []dto.ProviderAttachment
	for _, attachment := range attachments {
		if s.isRelevant(attachment) {
			relevant = append(relevant, attachment)
		}
	}
	span.SetTag("relevant", len(relevant))
	return relevant
}

func (s *classifierService) isRelevant(attachment dto.ProviderAttachment) bool {
	contentType := normalizeContentType(attachment.ContentType)

	if contentType == ContentTypePDF {
		return true
	}

	if !relevantImageTypes[contentType] {
		return false
	}

	// Scanned images qualify; inline body parts and decorative images do not.
	if attachment.IsInline() {
		return false
	}
	return !isNoiseFilename(attachment.Filename)
}

func isNoiseFilename(filename string) bool {
	name := strings.ToLower(filename)
	for _, pattern := range noiseFilenamePatterns {
		if strings.Contains(name, pattern) {
			return true
		}
	}
	return false
}

func normalizeContentType(contentType string) string {
	contentType = strings.ToLower(strings.TrimSpace(contentType))
	// Strip parameters like "; name=scan.pdf"
	if idx := strings.Index(contentType, ";"); idx >= 0 {
		contentType = strings.TrimSpace(contentType[:idx])
	}
	return contentType
}

// SniffContentType resolves the content type from the first bytes when the
// provider omits or mislabels it.
func SniffContentType(declared string, data []byte) string {
	declared = normalizeContentType(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	return mimetype.Detect(data).String()
}
