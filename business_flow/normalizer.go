package businessflow

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/amirphl/harga-pangan/app/services"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/shopspring/decimal"
)

// MonthKeys are the upstream month columns in calendar order
var MonthKeys = [12]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

// flexString accepts a JSON string or number
type flexString struct {
	Value string
	Set   bool
}

func (f *flexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*f = flexString{}
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = flexString{Value: strings.TrimSpace(s), Set: true}
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", b)
	}
	*f = flexString{Value: n.String(), Set: true}
	return nil
}

// monthPrice is a month cell: a number, a numeric string, null or "" (the last two mean no value)
type monthPrice struct {
	Value   decimal.Decimal
	Present bool
}

func (m *monthPrice) UnmarshalJSON(b []byte) error {
	s := string(bytes.TrimSpace(b))
	if s == "null" {
		*m = monthPrice{}
		return nil
	}
	if strings.HasPrefix(s, `"`) {
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" {
			*m = monthPrice{}
			return nil
		}
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return fmt.Errorf("invalid month price %s: %w", b, err)
	}
	*m = monthPrice{Value: d, Present: true}
	return nil
}

type upstreamProvincePrice struct {
	Unit string `json:"satuan"`
}

type upstreamRecord struct {
	CommodityID   flexString             `json:"Komoditas_id"`
	CommodityName *string                `json:"Komoditas"`
	Year          flexString             `json:"Tahun"`
	ProvincePrice *upstreamProvincePrice `json:"today_province_price"`

	Jan monthPrice `json:"Jan"`
	Feb monthPrice `json:"Feb"`
	Mar monthPrice `json:"Mar"`
	Apr monthPrice `json:"Apr"`
	Mei monthPrice `json:"Mei"`
	Jun monthPrice `json:"Jun"`
	Jul monthPrice `json:"Jul"`
	Agu monthPrice `json:"Agu"`
	Sep monthPrice `json:"Sep"`
	Okt monthPrice `json:"Okt"`
	Nov monthPrice `json:"Nov"`
	Des monthPrice `json:"Des"`
}

func (r *upstreamRecord) months() [12]monthPrice {
	return [12]monthPrice{r.Jan, r.Feb, r.Mar, r.Apr, r.Mei, r.Jun, r.Jul, r.Agu, r.Sep, r.Okt, r.Nov, r.Des}
}

func (r *upstreamRecord) unit() string {
	if r.ProvincePrice == nil {
		return ""
	}
	return r.ProvincePrice.Unit
}

type yearBucket struct {
	Year    int
	Records []upstreamRecord
}

// parsedPayload is the typed view of an upstream payload
type parsedPayload struct {
	RequestData map[string]json.RawMessage
	Buckets     []yearBucket
}

// parsePayload validates the payload shape. Year keys that are not integers are dropped and the
// remaining buckets are sorted by year.
func parsePayload(payload services.Payload) (*parsedPayload, error) {
	rawRequest, ok := payload["request_data"]
	if !ok {
		return nil, fmt.Errorf("%w: missing request_data", ErrPayloadShape)
	}
	rawData, ok := payload["data"]
	if !ok {
		return nil, fmt.Errorf("%w: missing data", ErrPayloadShape)
	}

	var requestData map[string]json.RawMessage
	if err := json.Unmarshal(rawRequest, &requestData); err != nil || requestData == nil {
		return nil, fmt.Errorf("%w: request_data is not an object", ErrPayloadShape)
	}

	var data map[string][]upstreamRecord
	if err := json.Unmarshal(rawData, &data); err != nil {
		return nil, fmt.Errorf("%w: data: %v", ErrPayloadShape, err)
	}
	if data == nil {
		return nil, fmt.Errorf("%w: data is not an object", ErrPayloadShape)
	}

	parsed := &parsedPayload{RequestData: requestData}
	for key, records := range data {
		year, err := strconv.Atoi(strings.TrimSpace(key))
		if err != nil {
			continue
		}
		for i := range records {
			if !records[i].CommodityID.Set || records[i].CommodityID.Value == "" {
				return nil, fmt.Errorf("%w: record %d of year %s has no Komoditas_id", ErrPayloadShape, i, key)
			}
		}
		parsed.Buckets = append(parsed.Buckets, yearBucket{Year: year, Records: records})
	}
	sort.Slice(parsed.Buckets, func(i, j int) bool {
		return parsed.Buckets[i].Year < parsed.Buckets[j].Year
	})

	return parsed, nil
}

// NormalizePayload turns an upstream payload into one row per commodity and month.
// A month is kept only when its whole calendar range lies inside [PeriodStart, PeriodEnd].
// Absent month values produce no row. Rows are ordered by year, record, then month.
func NormalizePayload(payload services.Payload, params models.FetchParams) ([]models.NormalizedPriceRow, error) {
	parsed, err := parsePayload(payload)
	if err != nil {
		return nil, err
	}

	windowStart := utils.TruncateToDate(params.PeriodStart)
	windowEnd := utils.TruncateToDate(params.PeriodEnd)
	provinceID := utils.ProvinceOrNational(params.ProvinceID)

	rows := make([]models.NormalizedPriceRow, 0)
	for _, bucket := range parsed.Buckets {
		for i := range bucket.Records {
			rec := &bucket.Records[i]
			unit := rec.unit()
			for idx, cell := range rec.months() {
				if !cell.Present {
					continue
				}
				start, end := utils.MonthEdges(bucket.Year, time.Month(idx+1))
				if start.Before(windowStart) || end.After(windowEnd) {
					continue
				}
				rows = append(rows, models.NormalizedPriceRow{
					CommodityID:  rec.CommodityID.Value,
					ProvinceID:   provinceID,
					LevelHargaID: params.LevelHargaID,
					PeriodStart:  start,
					PeriodEnd:    end,
					Price:        cell.Value,
					Unit:         unit,
				})
			}
		}
	}

	return rows, nil
}

// ExtractCommodities returns the distinct commodities named in a payload, in first-seen order.
// A record without a name uses its id as the name.
func ExtractCommodities(payload services.Payload) ([]models.Commodity, error) {
	parsed, err := parsePayload(payload)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]int)
	out := make([]models.Commodity, 0)
	for _, bucket := range parsed.Buckets {
		for _, rec := range bucket.Records {
			id := rec.CommodityID.Value
			name := id
			if rec.CommodityName != nil && strings.TrimSpace(*rec.CommodityName) != "" {
				name = strings.TrimSpace(*rec.CommodityName)
			}
			if pos, ok := seen[id]; ok {
				out[pos].Name = name
				continue
			}
			seen[id] = len(out)
			out = append(out, models.Commodity{ID: id, Name: name})
		}
	}
	return out, nil
}
