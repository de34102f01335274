package businessflow

import (
	"testing"
	"time"

	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputePriceChecksum(t *testing.T) {
	start := utils.Date(2024, time.January, 1)
	end := utils.Date(2024, time.January, 31)

	t.Run("known digest", func(t *testing.T) {
		price := decimal.RequireFromString("9500")
		sum := ComputePriceChecksum(&price, "Rp./Kg", 3, start, end, "27")
		assert.Equal(t, "8bd976cba0a85791cc481fe23bdbc738972dcea608f7541b099f6f24bc035b54", sum)
	})

	t.Run("all fields empty", func(t *testing.T) {
		sum := ComputePriceChecksum(nil, "", 0, time.Time{}, time.Time{}, "")
		assert.Equal(t, "1867f76f89b18a0f04c72020a91ed03b5557354322022ed5b08d045d20b8689c", sum)
	})

	t.Run("lowercase hex of 64 chars", func(t *testing.T) {
		price := decimal.RequireFromString("13228.5")
		sum := ComputePriceChecksum(&price, "Rp./Kg", 3, start, end, "27")
		require.Len(t, sum, 64)
		assert.Regexp(t, "^[0-9a-f]{64}$", sum)
	})

	t.Run("trailing zeros do not change the digest", func(t *testing.T) {
		a := decimal.RequireFromString("9500")
		b := decimal.RequireFromString("9500.00")
		c := decimal.RequireFromString("9500.0")
		sa := ComputePriceChecksum(&a, "Rp./Kg", 3, start, end, "27")
		assert.Equal(t, sa, ComputePriceChecksum(&b, "Rp./Kg", 3, start, end, "27"))
		assert.Equal(t, sa, ComputePriceChecksum(&c, "Rp./Kg", 3, start, end, "27"))
	})

	t.Run("every field participates", func(t *testing.T) {
		price := decimal.RequireFromString("9500")
		other := decimal.RequireFromString("9501")
		base := ComputePriceChecksum(&price, "Rp./Kg", 3, start, end, "27")

		variants := map[string]string{
			"price":     ComputePriceChecksum(&other, "Rp./Kg", 3, start, end, "27"),
			"unit":      ComputePriceChecksum(&price, "Rp./Liter", 3, start, end, "27"),
			"level":     ComputePriceChecksum(&price, "Rp./Kg", 1, start, end, "27"),
			"start":     ComputePriceChecksum(&price, "Rp./Kg", 3, start.AddDate(0, 0, 1), end, "27"),
			"end":       ComputePriceChecksum(&price, "Rp./Kg", 3, start, end.AddDate(0, 0, -1), "27"),
			"commodity": ComputePriceChecksum(&price, "Rp./Kg", 3, start, end, "28"),
		}
		for name, sum := range variants {
			assert.NotEqual(t, base, sum, name)
		}
	})

	t.Run("deterministic", func(t *testing.T) {
		price := decimal.RequireFromString("15056")
		assert.Equal(t,
			ComputePriceChecksum(&price, "Rp./Kg", 3, start, end, "27"),
			ComputePriceChecksum(&price, "Rp./Kg", 3, start, end, "27"))
	})
}

func TestNormalizeDecimal(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"9500", "9500"},
		{"9500.00", "9500"},
		{"9500.50", "9500.5"},
		{"0.10", "0.1"},
		{"0", "0"},
		{"-0.00", "0"},
		{"1200", "1200"},
	}
	for _, tc := range cases {
		t.Run(tc.in, func(t *testing.T) {
			d := decimal.RequireFromString(tc.in)
			assert.Equal(t, tc.want, normalizeDecimal(&d))
		})
	}
	assert.Equal(t, "", normalizeDecimal(nil))
}

func TestChecksumRows(t *testing.T) {
	rows := []models.NormalizedPriceRow{
		{
			CommodityID:  "27",
			ProvinceID:   utils.NationalProvinceID,
			LevelHargaID: 3,
			PeriodStart:  utils.Date(2024, time.January, 1),
			PeriodEnd:    utils.Date(2024, time.January, 31),
			Price:        decimal.RequireFromString("9500"),
			Unit:         "Rp./Kg",
		},
		{
			CommodityID:  "28",
			ProvinceID:   utils.NationalProvinceID,
			LevelHargaID: 3,
			PeriodStart:  utils.Date(2024, time.February, 1),
			PeriodEnd:    utils.Date(2024, time.February, 29),
			Price:        decimal.RequireFromString("11821"),
			Unit:         "Rp./Kg",
		},
	}

	out := ChecksumRows(rows)
	require.Len(t, out, 2)
	assert.Equal(t, "8bd976cba0a85791cc481fe23bdbc738972dcea608f7541b099f6f24bc035b54", out[0].Checksum)
	assert.Equal(t, "28", out[1].CommodityID)
	assert.NotEqual(t, out[0].Checksum, out[1].Checksum)

	// the province is not part of the digest
	moved := rows[0]
	moved.ProvinceID = "31"
	assert.Equal(t, out[0].Checksum, ChecksumRow(moved).Checksum)
}
