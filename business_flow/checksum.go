package businessflow

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/shopspring/decimal"
)

const checksumSeparator = "|"

// ComputePriceChecksum hashes the six value-bearing fields of a price window.
// Fields are joined in the order price, unit, level, period_start, period_end, commodity_id.
// A nil price, zero level or zero date contributes an empty field.
func ComputePriceChecksum(price *decimal.Decimal, unit string, levelHargaID int, periodStart, periodEnd time.Time, commodityID string) string {
	fields := []string{
		normalizeDecimal(price),
		unit,
		normalizeLevel(levelHargaID),
		normalizeDate(periodStart),
		normalizeDate(periodEnd),
		commodityID,
	}

	sum := sha256.Sum256([]byte(strings.Join(fields, checksumSeparator)))
	return hex.EncodeToString(sum[:])
}

// ChecksumRow computes the checksum of a normalized row
func ChecksumRow(row models.NormalizedPriceRow) models.PriceUpsertRow {
	price := row.Price
	return models.PriceUpsertRow{
		NormalizedPriceRow: row,
		Checksum:           ComputePriceChecksum(&price, row.Unit, row.LevelHargaID, row.PeriodStart, row.PeriodEnd, row.CommodityID),
	}
}

// ChecksumRows computes checksums for a batch, preserving order
func ChecksumRows(rows []models.NormalizedPriceRow) []models.PriceUpsertRow {
	out := make([]models.PriceUpsertRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, ChecksumRow(row))
	}
	return out
}

// normalizeDecimal renders a fixed-point value without trailing zeros, so 9500.00 and 9500 hash the same
func normalizeDecimal(d *decimal.Decimal) string {
	if d == nil {
		return ""
	}
	s := d.String()
	if strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}

func normalizeLevel(level int) string {
	if level == 0 {
		return ""
	}
	return strconv.Itoa(level)
}

func normalizeDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(utils.DateLayout)
}
