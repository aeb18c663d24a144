package extraction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/docflowhq/docstack/dto"
	"github.com/docflowhq/docstack/internal/models"
)

func TestApplyFieldMapping_InvoiceFields(t *testing.T) {
	record := &models.DocumentRecord{}

	ApplyFieldMapping(record, []dto.ExtractedFieldCandidate{
		{Key: "invoice_number", Value: "INV-100"},
		{Key: "invoice_date", Value: "2026-03-15"},
		{Key: "total_amount", Value: "1,234.50"},
		{Key: "currency", Value: "eur"},
		{Key: "supplier_name", Value: "Acme Supplies Ltd"},
	})

	require.NotNil(t, record.DocumentNumber)
	assert.Equal(t, "INV-100", *record.DocumentNumber)
	require.NotNil(t, record.DocumentDate)
	assert.Equal(t, time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC), *record.DocumentDate)
	require.NotNil(t, record.TotalAmount)
	assert.Equal(t, 1234.50, *record.TotalAmount)
	require.NotNil(t, record.Currency)
	assert.Equal(t, "EUR", *record.Currency)
	require.NotNil(t, record.CounterpartyName)
	assert.Equal(t, "Acme Supplies Ltd", *record.CounterpartyName)
}

func TestApplyFieldMapping_FirstValueWins(t *testing.T) {
	record := &models.DocumentRecord{}

	ApplyFieldMapping(record, []dto.ExtractedFieldCandidate{
		{Key: "invoice_number", Value: "INV-1"},
		{Key: "document_number", Value: "INV-2"},
	})

	require.NotNil(t, record.DocumentNumber)
	assert.Equal(t, "INV-1", *record.DocumentNumber)
}

func TestApplyFieldMapping_KeyNormalization(t *testing.T) {
	record := &models.DocumentRecord{}

	ApplyFieldMapping(record, []dto.ExtractedFieldCandidate{
		{Key: " Tender Number ", Value: "T-55"},
	})

	require.NotNil(t, record.DocumentNumber)
	assert.Equal(t, "T-55", *record.DocumentNumber)
}

func TestApplyFieldMapping_UnparseableValuesSkipped(t *testing.T) {
	record := &models.DocumentRecord{}

	ApplyFieldMapping(record, []dto.ExtractedFieldCandidate{
		{Key: "invoice_date", Value: "sometime last week"},
		{Key: "total_amount", Value: "n/a"},
		{Key: "invoice_number", Value: "   "},
	})

	assert.Nil(t, record.DocumentDate)
	assert.Nil(t, record.TotalAmount)
	assert.Nil(t, record.DocumentNumber)
}

func TestApplyFieldMapping_UnknownKeysIgnored(t *testing.T) {
	record := &models.DocumentRecord{}

	ApplyFieldMapping(record, []dto.ExtractedFieldCandidate{
		{Key: "payment_terms", Value: "30 days"},
		{Key: "iban", Value: "DE89370400440532013000"},
	})

	assert.Nil(t, record.DocumentNumber)
	assert.Nil(t, record.TotalAmount)
}

func TestParseAmount(t *testing.T) {
	amount, ok := parseAmount("€ 12,345.67")
	require.True(t, ok)
	assert.Equal(t, 12345.67, amount)

	_, ok = parseAmount("free")
	assert.False(t, ok)
}
