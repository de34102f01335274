package services

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"go.uber.org/zap"
)

// MockUpstreamClient implements UpstreamClient with an offline 2024 fixture
type MockUpstreamClient struct {
	mu     sync.Mutex
	calls  []MockUpstreamCall
	logger *zap.Logger
}

// MockUpstreamCall records one Fetch
type MockUpstreamCall struct {
	Params    models.FetchParams
	FetchedAt time.Time
}

type mockPriceRecord struct {
	CommodityID   int
	CommodityName string
	Icon          string
	Year          int
	Unit          string
	Monthly       [12]int
}

var mockMonthKeys = [12]string{"Jan", "Feb", "Mar", "Apr", "Mei", "Jun", "Jul", "Agu", "Sep", "Okt", "Nov", "Des"}

var mockPriceFixture = []mockPriceRecord{
	{
		CommodityID:   27,
		CommodityName: "Beras Premium",
		Icon:          "beras-premium.png",
		Year:          2024,
		Unit:          "Rp./Kg",
		Monthly:       [12]int{13228, 13487, 13612, 13702, 13668, 13656, 13663, 13830, 14554, 15008, 15045, 15056},
	},
	{
		CommodityID:   28,
		CommodityName: "Beras Medium",
		Icon:          "beras-medium.png",
		Year:          2024,
		Unit:          "Rp./Kg",
		Monthly:       [12]int{11609, 11821, 11891, 11962, 11934, 11906, 11969, 12145, 12908, 13280, 13236, 13254},
	},
}

// NewMockUpstreamClient creates a new mock upstream client
func NewMockUpstreamClient(logger *zap.Logger) *MockUpstreamClient {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MockUpstreamClient{
		calls:  make([]MockUpstreamCall, 0),
		logger: logger.Named("mock_upstream"),
	}
}

// TestConnection always succeeds
func (m *MockUpstreamClient) TestConnection(ctx context.Context) bool {
	return true
}

// Fetch returns the fixture years that fall inside [StartYear, EndYear] and echoes the request
func (m *MockUpstreamClient) Fetch(ctx context.Context, params models.FetchParams) (Payload, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	m.calls = append(m.calls, MockUpstreamCall{Params: params, FetchedAt: utils.UTCNow()})
	m.mu.Unlock()

	m.logger.Info("Using mock upstream data",
		zap.Int("start_year", params.StartYear),
		zap.Int("end_year", params.EndYear),
		zap.Int("level_harga_id", params.LevelHargaID))

	buckets := make(map[string][]map[string]any)
	for _, rec := range mockPriceFixture {
		if rec.Year < params.StartYear || rec.Year > params.EndYear {
			continue
		}
		key := strconv.Itoa(rec.Year)
		buckets[key] = append(buckets[key], rec.toJSON())
	}

	province := params.ProvinceID
	if params.IsNational() {
		province = ""
	}
	requestData := map[string]any{
		"start_year":     params.StartYear,
		"end_year":       params.EndYear,
		"period_date":    FormatPeriodDate(params.PeriodStart, params.PeriodEnd),
		"province_id":    province,
		"level_harga_id": params.LevelHargaID,
	}

	payload := Payload{}
	var err error
	if payload["request_data"], err = json.Marshal(requestData); err != nil {
		return nil, fmt.Errorf("failed to encode mock request data: %w", err)
	}
	if payload["data"], err = json.Marshal(buckets); err != nil {
		return nil, fmt.Errorf("failed to encode mock data: %w", err)
	}
	return payload, nil
}

// Calls returns a copy of the recorded fetches
func (m *MockUpstreamClient) Calls() []MockUpstreamCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]MockUpstreamCall, len(m.calls))
	copy(out, m.calls)
	return out
}

// ClearCalls forgets the recorded fetches
func (m *MockUpstreamClient) ClearCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = make([]MockUpstreamCall, 0)
}

func (r mockPriceRecord) toJSON() map[string]any {
	out := map[string]any{
		"Komoditas_id": r.CommodityID,
		"Komoditas":    r.CommodityName,
		"background":   "https://panelharga.badanpangan.go.id/assets/img/komoditas-ikon/" + r.Icon,
		"Tahun":        r.Year,
		"today_province_price": map[string]any{
			"satuan": r.Unit,
		},
	}
	for i, key := range mockMonthKeys {
		out[key] = r.Monthly[i]
	}
	return out
}
