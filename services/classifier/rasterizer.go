package classifier

import (
	"bytes"
	"context"
	"image/png"

	"github.com/gen2brain/go-fitz"
	"github.com/opentracing/opentracing-go"
	"github.com/pkg/errors"

	"github.com/docflowhq/docstack/internal/tracing"
)

const (
	// RasterDPI matches what the extraction model was tuned against.
	RasterDPI = 300.0

	// MaxRasterPages caps how many pages of a PDF are sent for extraction.
	MaxRasterPages = 3
)

// Rasterize renders up to maxPages pages of a PDF into PNG page images for
// the extraction service, which accepts images only. A failure here is
// per-document: the caller skips extraction but still stores the raw bytes.
func (s *classifierService) Rasterize(ctx context.Context, pdf []byte, maxPages int) ([][]byte, error) {
	span, _ := opentracing.StartSpanFromContext(ctx, "classifierService.Rasterize")
	defer span.Finish()
	tracing.TagComponentService(span)

	if maxPages <= 0 {
		maxPages = MaxRasterPages
	}

	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		tracing.TraceErr(span, err)
		return nil, errors.Wrap(err, "failed to open pdf")
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount > maxPages {
		pageCount = maxPages
	}
	span.SetTag("pages", pageCount)

	var pages [][]byte
	for n := 0; n < pageCount; n++ {
		img, err := doc.ImageDPI(n, RasterDPI)
		if err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "failed to render page %d", n)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			tracing.TraceErr(span, err)
			return nil, errors.Wrapf(err, "failed to encode page %d", n)
		}
		pages = append(pages, buf.Bytes())
	}

	return pages, nil
}
