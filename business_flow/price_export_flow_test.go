package businessflow

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/amirphl/harga-pangan/app/dto"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func TestPriceExportFlow_ExportPrices(t *testing.T) {
	repo := newMemoryPriceRepo()
	repo.records = samplePriceRecords()
	flow := NewPriceExportFlow(repo, nil)

	start := utils.Date(2024, time.January, 1)
	name, data, err := flow.ExportPrices(context.Background(), &dto.PriceQueryRequest{
		LevelHargaID: 3,
		CommodityID:  utils.ToPtr("27"),
		PeriodStart:  &start,
	})
	require.NoError(t, err)
	assert.Equal(t, "prices_level3_27_2024-01-01.xlsx", name)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(priceSheetName)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, priceExportHeader, rows[0])
	assert.Equal(t, []string{"2", "27", "Beras Premium", "NATIONAL", utils.NationalProvinceName, "3", "2024-02-01", "2024-02-29", "13487.50", "Rp./Kg"}, rows[1])
	assert.Equal(t, "13228.00", rows[2][8])
}

func TestPriceExportFlow_EmptyResultHasHeaderOnly(t *testing.T) {
	flow := NewPriceExportFlow(newMemoryPriceRepo(), nil)
	_, data, err := flow.ExportPrices(context.Background(), &dto.PriceQueryRequest{LevelHargaID: 1})
	require.NoError(t, err)

	xl, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer xl.Close()

	rows, err := xl.GetRows(priceSheetName)
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestPriceExportFlow_InvalidQuery(t *testing.T) {
	repo := newMemoryPriceRepo()
	flow := NewPriceExportFlow(repo, nil)
	_, _, err := flow.ExportPrices(context.Background(), &dto.PriceQueryRequest{LevelHargaID: 3, Limit: utils.ToPtr(0)})
	assert.True(t, IsInvalidQuery(err))
	assert.Empty(t, repo.queries)
}

func TestExportFileName(t *testing.T) {
	end := utils.Date(2024, time.December, 31)
	name := exportFileName(&dto.PriceQueryRequest{
		LevelHargaID: 2,
		ProvinceID:   utils.ToPtr("DKI Jakarta/31"),
		PeriodEnd:    &end,
	})
	assert.Equal(t, "prices_level2_DKI-Jakarta-31_2024-12-31.xlsx", name)
}
