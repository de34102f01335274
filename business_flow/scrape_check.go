package businessflow

import (
	"encoding/json"
	"sort"
	"unicode"

	"github.com/amirphl/harga-pangan/app/services"
)

// Scrape check exit codes
const (
	ScrapeOK                 = 0
	ScrapeDataMissing        = 1
	ScrapeRequestDataMissing = 2
	ScrapeNoRecords          = 3
	ScrapeUnknownMonthKeys   = 4
	ScrapeUnitMissing        = 5
	ScrapeFetchFailed        = 6
)

// ScrapeReport is the outcome of a payload shape check
type ScrapeReport struct {
	OK               bool     `json:"ok"`
	ExitCode         int      `json:"exit_code"`
	Message          string   `json:"message"`
	Records          int      `json:"records"`
	Years            []string `json:"years,omitempty"`
	UnknownMonthKeys []string `json:"unknown_month_keys,omitempty"`
	Unit             string   `json:"unit,omitempty"`
}

var monthKeySet = func() map[string]struct{} {
	set := make(map[string]struct{}, len(MonthKeys))
	for _, k := range MonthKeys {
		set[k] = struct{}{}
	}
	return set
}()

// CheckPayloadShape verifies a raw payload before anything is written: both top-level keys are
// present, at least one record exists, the sample record has no unexpected month-like keys and
// carries a unit. The sample is the first record of the lowest year key.
func CheckPayloadShape(payload services.Payload) ScrapeReport {
	if _, ok := payload["data"]; !ok {
		return ScrapeReport{ExitCode: ScrapeDataMissing, Message: "missing required key: data"}
	}
	if _, ok := payload["request_data"]; !ok {
		return ScrapeReport{ExitCode: ScrapeRequestDataMissing, Message: "missing required key: request_data"}
	}

	var buckets map[string]json.RawMessage
	if err := json.Unmarshal(payload["data"], &buckets); err != nil {
		return ScrapeReport{ExitCode: ScrapeNoRecords, Message: "data is not an object"}
	}

	years := make([]string, 0, len(buckets))
	for year := range buckets {
		years = append(years, year)
	}
	sort.Strings(years)

	report := ScrapeReport{Years: years}
	var sample map[string]json.RawMessage
	for _, year := range years {
		var records []map[string]json.RawMessage
		if err := json.Unmarshal(buckets[year], &records); err != nil {
			continue
		}
		report.Records += len(records)
		if sample == nil && len(records) > 0 {
			sample = records[0]
		}
	}

	if report.Records == 0 {
		report.ExitCode = ScrapeNoRecords
		report.Message = "no commodity records returned for the window"
		return report
	}

	for key := range sample {
		if looksLikeMonthKey(key) {
			if _, known := monthKeySet[key]; !known {
				report.UnknownMonthKeys = append(report.UnknownMonthKeys, key)
			}
		}
	}
	if len(report.UnknownMonthKeys) > 0 {
		sort.Strings(report.UnknownMonthKeys)
		report.ExitCode = ScrapeUnknownMonthKeys
		report.Message = "unknown month keys in sample record"
		return report
	}

	var price struct {
		Unit string `json:"satuan"`
	}
	if raw, ok := sample["today_province_price"]; ok {
		_ = json.Unmarshal(raw, &price)
	}
	if price.Unit == "" {
		report.ExitCode = ScrapeUnitMissing
		report.Message = "missing unit (today_province_price.satuan) in sample record"
		return report
	}

	report.OK = true
	report.Unit = price.Unit
	report.Message = "payload shape ok"
	return report
}

// looksLikeMonthKey matches short alphabetic keys, the shape of upstream month columns
func looksLikeMonthKey(key string) bool {
	if key == "" || len(key) > 3 {
		return false
	}
	for _, r := range key {
		if !unicode.IsLetter(r) {
			return false
		}
	}
	return true
}
