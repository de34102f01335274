package businessflow

import (
	"context"
	"testing"
	"time"

	"github.com/amirphl/harga-pangan/app/services"
	"github.com/stretchr/testify/assert"
)

func TestCheckPayloadShape(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{
			name:     "data missing",
			body:     `{"request_data": {}}`,
			wantCode: ScrapeDataMissing,
		},
		{
			name:     "request_data missing",
			body:     `{"data": {}}`,
			wantCode: ScrapeRequestDataMissing,
		},
		{
			name:     "no records",
			body:     `{"request_data": {}, "data": {"2024": []}}`,
			wantCode: ScrapeNoRecords,
		},
		{
			name:     "unknown month key",
			body:     `{"request_data": {}, "data": {"2024": [{"Komoditas_id": 1, "Jan": 1, "Ags": 2, "today_province_price": {"satuan": "Rp./Kg"}}]}}`,
			wantCode: ScrapeUnknownMonthKeys,
		},
		{
			name:     "unit missing",
			body:     `{"request_data": {}, "data": {"2024": [{"Komoditas_id": 1, "Jan": 1}]}}`,
			wantCode: ScrapeUnitMissing,
		},
		{
			name:     "ok",
			body:     `{"request_data": {}, "data": {"2024": [{"Komoditas_id": 1, "Komoditas": "Beras", "Tahun": 2024, "Jan": 1, "today_province_price": {"satuan": "Rp./Kg"}}]}}`,
			wantCode: ScrapeOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := CheckPayloadShape(rawPayload(t, tt.body))
			assert.Equal(t, tt.wantCode, report.ExitCode)
			assert.Equal(t, tt.wantCode == ScrapeOK, report.OK)
			assert.NotEmpty(t, report.Message)
		})
	}
}

func TestCheckPayloadShape_SampleIsLowestYear(t *testing.T) {
	// the 2025 record lacks a unit but only the 2024 sample is inspected
	payload := rawPayload(t, `{
		"request_data": {},
		"data": {
			"2025": [{"Komoditas_id": 1, "Jan": 1}],
			"2024": [{"Komoditas_id": 1, "Jan": 1, "today_province_price": {"satuan": "Rp./Kg"}}]
		}
	}`)

	report := CheckPayloadShape(payload)
	assert.True(t, report.OK)
	assert.Equal(t, 2, report.Records)
	assert.Equal(t, []string{"2024", "2025"}, report.Years)
	assert.Equal(t, "Rp./Kg", report.Unit)
}

func TestCheckPayloadShape_MockFixture(t *testing.T) {
	client := services.NewMockUpstreamClient(nil)
	payload, err := client.Fetch(context.Background(), monthParams(2024, time.January, 3, ""))
	assert.NoError(t, err)

	report := CheckPayloadShape(payload)
	assert.True(t, report.OK, report.Message)
	assert.Equal(t, 2, report.Records)
	assert.Empty(t, report.UnknownMonthKeys)
}

func TestLooksLikeMonthKey(t *testing.T) {
	assert.True(t, looksLikeMonthKey("Jan"))
	assert.True(t, looksLikeMonthKey("Ags"))
	assert.True(t, looksLikeMonthKey("Q"))
	assert.False(t, looksLikeMonthKey(""))
	assert.False(t, looksLikeMonthKey("Tahun"))
	assert.False(t, looksLikeMonthKey("Q1"))
}
