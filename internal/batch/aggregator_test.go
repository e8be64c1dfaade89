package batch

import (
	"testing"
	"time"

	"fjacquet/cfdi-sentinel/internal/logging"
	"fjacquet/cfdi-sentinel/internal/models"

	"github.com/stretchr/testify/assert"
)

func TestDateRange_String(t *testing.T) {
	tests := []struct {
		name     string
		dr       DateRange
		expected string
	}{
		{
			name: "valid date range",
			dr: DateRange{
				Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			},
			expected: "2025-04-01_2025-06-30",
		},
		{
			name:     "zero dates",
			dr:       DateRange{},
			expected: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dr.String())
		})
	}
}

func TestDateRange_Merge(t *testing.T) {
	tests := []struct {
		name     string
		dr1      DateRange
		dr2      DateRange
		expected DateRange
	}{
		{
			name: "overlapping ranges",
			dr1: DateRange{
				Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
			},
			dr2: DateRange{
				Start: time.Date(2025, 5, 15, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			},
			expected: DateRange{
				Start: time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC),
			},
		},
		{
			name: "one range is zero",
			dr1:  DateRange{},
			dr2: DateRange{
				Start: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
			},
			expected: DateRange{
				Start: time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC),
				End:   time.Date(2025, 5, 31, 0, 0, 0, 0, time.UTC),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.dr1.Merge(tt.dr2))
		})
	}
}

func TestAggregator_Period(t *testing.T) {
	a := NewAggregator(logging.NewMockLogger())
	results := []models.Result{
		{IssueDate: "2023-05-10"},
		{IssueDate: models.NotAvailable},
		{IssueDate: "2022-12-31"},
		{IssueDate: "2023-07-01"},
	}

	dr := a.Period(results)

	assert.Equal(t, "2022-12-31_2023-07-01", dr.String())
	assert.Equal(t, DateRange{}, a.Period(nil))
}

func TestAggregator_DetectDuplicates(t *testing.T) {
	logger := logging.NewMockLogger()
	a := NewAggregator(logger)
	results := []models.Result{
		{FileName: "a.xml", UUID: "6f5c1c2e-8f4b-4a55-9c1e-1234567890ab"},
		{FileName: "b.xml", UUID: "11111111-2222-3333-4444-555555555555"},
		{FileName: "c.xml", UUID: "6F5C1C2E-8F4B-4A55-9C1E-1234567890AB"},
		{FileName: "d.xml", UUID: models.NotAvailable},
		{FileName: "e.xml", UUID: models.NotAvailable},
	}

	dups := a.DetectDuplicates(results)

	assert.Equal(t, []string{"6F5C1C2E-8F4B-4A55-9C1E-1234567890AB"}, dups)
	v, ok := logger.FieldValue("Duplicate CFDI UUID in run", logging.FieldFile)
	assert.True(t, ok)
	assert.Equal(t, "a.xml, c.xml", v)
	assert.True(t, logger.HasEntry("WARN", "Found duplicate CFDI in run"))
}

func TestAggregator_NoDuplicates(t *testing.T) {
	logger := logging.NewMockLogger()

	dups := NewAggregator(logger).DetectDuplicates([]models.Result{{UUID: "x"}, {UUID: "y"}})

	assert.Empty(t, dups)
	assert.False(t, logger.HasEntry("WARN", "Found duplicate CFDI in run"))
}

func TestOutputFilename(t *testing.T) {
	dr := DateRange{
		Start: time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2023, 3, 31, 0, 0, 0, 0, time.UTC),
	}
	tests := []struct {
		name   string
		prefix string
		dr     DateRange
		ext    string
		want   string
	}{
		{"with range", "validacion", dr, "csv", "validacion_2023-01-01_2023-03-31.csv"},
		{"without range", "validacion", DateRange{}, ".json", "validacion.json"},
		{"unsafe prefix", "ACME / Q1", dr, "csv", "ACME_Q1_2023-01-01_2023-03-31.csv"},
		{"empty prefix", "", DateRange{}, "csv", "cfdi.csv"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, OutputFilename(tt.prefix, tt.dr, tt.ext))
		})
	}
}
