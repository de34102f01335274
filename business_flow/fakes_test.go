package businessflow

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/amirphl/harga-pangan/app/services"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
)

// stubUpstream serves payloads from a function and counts calls
type stubUpstream struct {
	fetch func(ctx context.Context, params models.FetchParams) (services.Payload, error)
	calls []models.FetchParams
}

func (s *stubUpstream) TestConnection(ctx context.Context) bool { return true }

func (s *stubUpstream) Fetch(ctx context.Context, params models.FetchParams) (services.Payload, error) {
	s.calls = append(s.calls, params)
	return s.fetch(ctx, params)
}

type priceKey struct {
	commodity string
	province  string
	level     int
	start     string
	end       string
}

func keyOf(r models.NormalizedPriceRow) priceKey {
	return priceKey{r.CommodityID, r.ProvinceID, r.LevelHargaID, r.PeriodStart.Format(utils.DateLayout), r.PeriodEnd.Format(utils.DateLayout)}
}

// memoryPriceRepo mirrors the checksum-gated upsert in memory
type memoryPriceRepo struct {
	mu        sync.Mutex
	rows      map[priceKey]models.PriceUpsertRow
	upsertErr error
	queryErr  error
	records   []*models.PriceRecord
	queries   []models.PriceFilter
}

func newMemoryPriceRepo() *memoryPriceRepo {
	return &memoryPriceRepo{rows: make(map[priceKey]models.PriceUpsertRow)}
}

func (m *memoryPriceRepo) UpsertMany(ctx context.Context, rows []models.PriceUpsertRow) (models.UpsertSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.upsertErr != nil {
		return models.UpsertSummary{}, m.upsertErr
	}
	var s models.UpsertSummary
	for _, r := range rows {
		k := keyOf(r.NormalizedPriceRow)
		existing, ok := m.rows[k]
		switch {
		case !ok:
			s.Inserted++
		case existing.Checksum == r.Checksum:
			s.Unchanged++
			continue
		default:
			s.Updated++
		}
		m.rows[k] = r
	}
	return s, nil
}

func (m *memoryPriceRepo) Query(ctx context.Context, filter models.PriceFilter) ([]*models.PriceRecord, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queries = append(m.queries, filter)
	if m.queryErr != nil {
		return nil, 0, m.queryErr
	}
	return m.records, int64(len(m.records)), nil
}

func (m *memoryPriceRepo) ByNaturalKey(ctx context.Context, commodityID, provinceID string, levelHargaID int, periodStart, periodEnd time.Time) (*models.PriceMonthly, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[priceKey{commodityID, provinceID, levelHargaID, periodStart.Format(utils.DateLayout), periodEnd.Format(utils.DateLayout)}]
	if !ok {
		return nil, nil
	}
	return &models.PriceMonthly{
		CommodityID:  r.CommodityID,
		ProvinceID:   r.ProvinceID,
		LevelHargaID: r.LevelHargaID,
		PeriodStart:  r.PeriodStart,
		PeriodEnd:    r.PeriodEnd,
		Price:        r.Price,
		Unit:         r.Unit,
		Checksum:     r.Checksum,
	}, nil
}

func (m *memoryPriceRepo) CountAll(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

// memoryCommodityRepo keeps commodities by id
type memoryCommodityRepo struct {
	mu    sync.Mutex
	items map[string]models.Commodity
	err   error
}

func newMemoryCommodityRepo() *memoryCommodityRepo {
	return &memoryCommodityRepo{items: make(map[string]models.Commodity)}
}

func (m *memoryCommodityRepo) ByID(ctx context.Context, id any) (*models.Commodity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, _ := id.(string)
	c, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (m *memoryCommodityRepo) ByFilter(ctx context.Context, filter models.CommodityFilter, orderBy string, limit, offset int) ([]*models.Commodity, error) {
	return m.ListAll(ctx)
}

func (m *memoryCommodityRepo) Count(ctx context.Context, filter models.CommodityFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if filter.ID != nil {
		if _, ok := m.items[*filter.ID]; ok {
			return 1, nil
		}
		return 0, nil
	}
	return int64(len(m.items)), nil
}

func (m *memoryCommodityRepo) Exists(ctx context.Context, filter models.CommodityFilter) (bool, error) {
	n, err := m.Count(ctx, filter)
	return n > 0, err
}

func (m *memoryCommodityRepo) UpsertMany(ctx context.Context, commodities []models.Commodity) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, c := range commodities {
		m.items[c.ID] = c
	}
	return len(commodities), nil
}

func (m *memoryCommodityRepo) ListAll(ctx context.Context) ([]*models.Commodity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Commodity, 0, len(m.items))
	for _, c := range m.items {
		c := c
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// memoryProvinceRepo keeps provinces by id
type memoryProvinceRepo struct {
	mu    sync.Mutex
	items map[string]models.Province
	err   error
}

func newMemoryProvinceRepo() *memoryProvinceRepo {
	return &memoryProvinceRepo{items: make(map[string]models.Province)}
}

func (m *memoryProvinceRepo) ByID(ctx context.Context, id any) (*models.Province, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key, _ := id.(string)
	p, ok := m.items[key]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (m *memoryProvinceRepo) ByFilter(ctx context.Context, filter models.ProvinceFilter, orderBy string, limit, offset int) ([]*models.Province, error) {
	return m.ListAll(ctx)
}

func (m *memoryProvinceRepo) Count(ctx context.Context, filter models.ProvinceFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if filter.ID != nil {
		if _, ok := m.items[*filter.ID]; ok {
			return 1, nil
		}
		return 0, nil
	}
	return int64(len(m.items)), nil
}

func (m *memoryProvinceRepo) Exists(ctx context.Context, filter models.ProvinceFilter) (bool, error) {
	n, err := m.Count(ctx, filter)
	return n > 0, err
}

func (m *memoryProvinceRepo) UpsertMany(ctx context.Context, provinces []models.Province) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	for _, p := range provinces {
		m.items[p.ID] = p
	}
	return len(provinces), nil
}

func (m *memoryProvinceRepo) ListAll(ctx context.Context) ([]*models.Province, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := make([]*models.Province, 0, len(m.items))
	for _, p := range m.items {
		p := p
		out = append(out, &p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}
