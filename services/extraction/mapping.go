package extraction

import (
	"strconv"
	"strings"
	"time"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/internal/models"
)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"01/02/2006",
	"2 January 2006",
	"January 2, 2006",
	time.RFC3339,
}

// ApplyFieldMapping copies well-known extracted keys onto the record's
// first-class columns for fast querying. Everything else stays available
// through the extracted_fields rows; unknown keys are left untouched.
func ApplyFieldMapping(record *models.DocumentRecord, fields []dto.ExtractedFieldCandidate) {
	for _, field := range fields {
		value := strings.TrimSpace(field.Value)
		if value == "" {
			continue
		}

		switch normalizeKey(field.Key) {
		case "invoice_number", "document_number", "tender_number", "reference_number":
			if record.DocumentNumber == nil {
				record.DocumentNumber = &value
			}
		case "invoice_date", "document_date", "date", "issue_date":
			if record.DocumentDate == nil {
				if parsed, ok := parseDate(value); ok {
					record.DocumentDate = &parsed
				}
			}
		case "total", "total_amount", "amount_due", "grand_total":
			if record.TotalAmount == nil {
				if amount, ok := parseAmount(value); ok {
					record.TotalAmount = &amount
				}
			}
		case "currency":
			if record.Currency == nil {
				currency := strings.ToUpper(value)
				record.Currency = &currency
			}
		case "supplier_name", "vendor_name", "counterparty_name", "issuer":
			if record.CounterpartyName == nil {
				record.CounterpartyName = &value
			}
		}
	}
}

func normalizeKey(key string) string {
	key = strings.ToLower(strings.TrimSpace(key))
	return strings.ReplaceAll(key, " ", "_")
}

func parseDate(value string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, value); err == nil {
			return parsed, true
		}
	}
	return time.Time{}, false
}

func parseAmount(value string) (float64, bool) {
	cleaned := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9', r == '.', r == '-':
			return r
		case r == ',':
			return -1
		default:
			return -1
		}
	}, value)

	amount, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return amount, true
}
