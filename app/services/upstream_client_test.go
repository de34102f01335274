package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"github.com/amirphl/harga-pangan/config"
	"github.com/amirphl/harga-pangan/models"
	"github.com/amirphl/harga-pangan/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const probePeriod = "02/09/2025 - 02/09/2025"

// fakeUpstream answers the connection probe with probeStatus and hands every other request to fetch
type fakeUpstream struct {
	probeStatus int
	fetch       func(w http.ResponseWriter, r *http.Request, call int32)
	fetches     atomic.Int32
	lastQuery   atomic.Value
	lastOrigin  atomic.Value
}

func (f *fakeUpstream) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("period_date") == probePeriod {
		w.WriteHeader(f.probeStatus)
		_, _ = w.Write([]byte(`{}`))
		return
	}
	f.lastQuery.Store(r.URL.Query())
	f.lastOrigin.Store(r.Header.Get("Origin"))
	call := f.fetches.Add(1)
	f.fetch(w, r, call)
}

func newTestUpstreamClient(t *testing.T, handler http.Handler, rec *sleepRecorder) *UpstreamClientImpl {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	cfg := &config.UpstreamConfig{
		BaseURL:     server.URL,
		Origin:      DefaultUpstreamOrigin,
		Timeout:     5 * time.Second,
		MaxAttempts: 3,
		Backoffs:    DefaultBackoffs,
	}
	return NewUpstreamClient(cfg, nil).WithSleep(rec.sleep)
}

func testFetchParams() models.FetchParams {
	return models.FetchParams{
		StartYear:    2024,
		EndYear:      2024,
		PeriodStart:  utils.Date(2024, time.January, 1),
		PeriodEnd:    utils.Date(2024, time.December, 31),
		LevelHargaID: 3,
	}
}

func TestUpstreamClientFetch(t *testing.T) {
	t.Run("returns payload and sends upstream query", func(t *testing.T) {
		fake := &fakeUpstream{probeStatus: http.StatusOK, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {
			_, _ = w.Write([]byte(`{"request_data": {}, "data": {"2024": []}}`))
		}}
		rec := &sleepRecorder{}
		client := newTestUpstreamClient(t, fake, rec)

		params := testFetchParams()
		params.ProvinceID = "11"
		payload, err := client.Fetch(context.Background(), params)

		require.NoError(t, err)
		assert.Contains(t, payload, "data")
		assert.Contains(t, payload, "request_data")
		assert.Equal(t, int32(1), fake.fetches.Load())
		assert.Empty(t, rec.delays)

		query := fake.lastQuery.Load().(url.Values)
		assert.Equal(t, []string{"2024"}, query["start_year"])
		assert.Equal(t, []string{"01/01/2024 - 31/12/2024"}, query["period_date"])
		assert.Equal(t, []string{"3"}, query["level_harga_id"])
		assert.Equal(t, []string{"11"}, query["province_id"])
		assert.Equal(t, DefaultUpstreamOrigin, fake.lastOrigin.Load())
	})

	t.Run("retries transient failures and then succeeds", func(t *testing.T) {
		fake := &fakeUpstream{probeStatus: http.StatusOK, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {
			if call < 3 {
				_, _ = w.Write([]byte(`{"truncated`))
				return
			}
			_, _ = w.Write([]byte(`{"data": {}, "request_data": {}}`))
		}}
		rec := &sleepRecorder{}
		client := newTestUpstreamClient(t, fake, rec)

		_, err := client.Fetch(context.Background(), testFetchParams())

		require.NoError(t, err)
		assert.Equal(t, int32(3), fake.fetches.Load())
		assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, rec.delays)
	})

	t.Run("gives up after the attempt budget", func(t *testing.T) {
		fake := &fakeUpstream{probeStatus: http.StatusOK, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {
			_, _ = w.Write([]byte(`{"truncated`))
		}}
		rec := &sleepRecorder{}
		client := newTestUpstreamClient(t, fake, rec)

		_, err := client.Fetch(context.Background(), testFetchParams())

		require.Error(t, err)
		assert.ErrorIs(t, err, ErrUpstreamUnavailable)
		assert.Equal(t, int32(3), fake.fetches.Load())
	})

	t.Run("HTTP error status is not retried", func(t *testing.T) {
		fake := &fakeUpstream{probeStatus: http.StatusOK, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {
			w.WriteHeader(http.StatusInternalServerError)
			_, _ = w.Write([]byte(`boom`))
		}}
		rec := &sleepRecorder{}
		client := newTestUpstreamClient(t, fake, rec)

		_, err := client.Fetch(context.Background(), testFetchParams())

		var statusErr *UpstreamStatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
		assert.Equal(t, "boom", statusErr.Body)
		assert.Equal(t, int32(1), fake.fetches.Load())
		assert.Empty(t, rec.delays)
	})

	t.Run("non-object bodies are rejected without retry", func(t *testing.T) {
		for _, body := range []string{`null`, `[1, 2]`, `"text"`, `42`, ``} {
			fake := &fakeUpstream{probeStatus: http.StatusOK, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {
				_, _ = w.Write([]byte(body))
			}}
			client := newTestUpstreamClient(t, fake, &sleepRecorder{})

			_, err := client.Fetch(context.Background(), testFetchParams())

			assert.ErrorIs(t, err, ErrInvalidPayload, "body %q", body)
			assert.Equal(t, int32(1), fake.fetches.Load(), "body %q", body)
		}
	})

	t.Run("failed connection test does not use attempts", func(t *testing.T) {
		fake := &fakeUpstream{probeStatus: http.StatusServiceUnavailable, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {
			_, _ = w.Write([]byte(`{}`))
		}}
		rec := &sleepRecorder{}
		client := newTestUpstreamClient(t, fake, rec)

		_, err := client.Fetch(context.Background(), testFetchParams())

		assert.True(t, errors.Is(err, ErrUpstreamUnavailable))
		assert.Equal(t, int32(0), fake.fetches.Load())
		assert.Empty(t, rec.delays)
	})

	t.Run("inverted window is rejected before any request", func(t *testing.T) {
		fake := &fakeUpstream{probeStatus: http.StatusOK, fetch: func(w http.ResponseWriter, r *http.Request, call int32) {}}
		client := newTestUpstreamClient(t, fake, &sleepRecorder{})

		params := testFetchParams()
		params.PeriodStart, params.PeriodEnd = params.PeriodEnd, params.PeriodStart
		_, err := client.Fetch(context.Background(), params)

		require.Error(t, err)
		assert.Equal(t, int32(0), fake.fetches.Load())
	})
}

func TestUpstreamClientTestConnection(t *testing.T) {
	var probe map[string][]string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probe = r.URL.Query()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	client := NewUpstreamClient(&config.UpstreamConfig{BaseURL: server.URL}, nil)

	assert.True(t, client.TestConnection(context.Background()))
	assert.Equal(t, []string{"2023"}, probe["start_year"])
	assert.Equal(t, []string{"2025"}, probe["end_year"])
	assert.Equal(t, []string{probePeriod}, probe["period_date"])
	assert.Equal(t, []string{""}, probe["province_id"])
	assert.Equal(t, []string{"3"}, probe["level_harga_id"])

	server.Close()
	assert.False(t, client.TestConnection(context.Background()))
}

func TestBuildUpstreamQuery(t *testing.T) {
	params := testFetchParams()
	params.ProvinceID = utils.NationalProvinceID

	q := BuildUpstreamQuery(params)
	assert.Equal(t, "", q.Get("province_id"))
	assert.True(t, q.Has("province_id"))
	assert.Equal(t, "01/01/2024 - 31/12/2024", q.Get("period_date"))
}

func TestMockUpstreamClient(t *testing.T) {
	ctx := context.Background()
	mock := NewMockUpstreamClient(nil)

	assert.True(t, mock.TestConnection(ctx))

	payload, err := mock.Fetch(ctx, testFetchParams())
	require.NoError(t, err)

	var data map[string][]map[string]any
	require.NoError(t, json.Unmarshal(payload["data"], &data))
	require.Len(t, data["2024"], 2)
	assert.Equal(t, "Beras Premium", data["2024"][0]["Komoditas"])
	assert.EqualValues(t, 13228, data["2024"][0]["Jan"])
	assert.EqualValues(t, 13254, data["2024"][1]["Des"])

	var requestData map[string]any
	require.NoError(t, json.Unmarshal(payload["request_data"], &requestData))
	assert.Equal(t, "", requestData["province_id"])
	assert.EqualValues(t, 3, requestData["level_harga_id"])

	t.Run("years outside the request are left out", func(t *testing.T) {
		params := testFetchParams()
		params.StartYear, params.EndYear = 2025, 2025
		payload, err := mock.Fetch(ctx, params)
		require.NoError(t, err)

		var data map[string][]map[string]any
		require.NoError(t, json.Unmarshal(payload["data"], &data))
		assert.Empty(t, data)
	})

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, 2025, calls[1].Params.StartYear)

	mock.ClearCalls()
	assert.Empty(t, mock.Calls())
}
