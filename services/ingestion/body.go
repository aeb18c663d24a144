package ingestion

import (
	"github.com/jaytaylor/html2text"
)

// htmlToText flattens an HTML email body into plain text for text-based
// extraction. Conversion failures degrade to the raw markup rather than
// losing the body.
func htmlToText(body string) string {
	text, err := html2text.FromString(body, html2text.Options{TextOnly: true})
	if err != nil {
		return body
	}
	return text
}
