package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cheertaboi/shipping-service/internal/cache"
	"github.com/Cheertaboi/shipping-service/internal/geo"
	"github.com/Cheertaboi/shipping-service/internal/metrics"
	"github.com/Cheertaboi/shipping-service/internal/models"
	"github.com/Cheertaboi/shipping-service/internal/service"
)

// memStore is a small in-memory shipping_rates table.
type memStore struct {
	mu    sync.Mutex
	rows  []models.ShippingRate
	fails bool
}

func (m *memStore) ListActive(ctx context.Context) ([]models.ShippingRate, error) {
	active := true
	return m.List(ctx, models.RateFilter{Active: &active})
}

func (m *memStore) List(_ context.Context, f models.RateFilter) ([]models.ShippingRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fails {
		return nil, errors.New("connection refused")
	}
	out := []models.ShippingRate{}
	for _, r := range m.rows {
		if f.Active != nil && r.IsActive != *f.Active {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

func (m *memStore) GetByID(_ context.Context, id uuid.UUID) (*models.ShippingRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.rows {
		if r.ID == id {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memStore) Create(_ context.Context, r *models.ShippingRate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	r.CreatedAt = time.Now().UTC()
	r.UpdatedAt = r.CreatedAt
	m.rows = append(m.rows, *r)
	return nil
}

func (m *memStore) Update(_ context.Context, id uuid.UUID, mutate func(*models.ShippingRate) error) (*models.ShippingRate, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			if err := mutate(&m.rows[i]); err != nil {
				return nil, err
			}
			r := m.rows[i]
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memStore) SetActive(_ context.Context, id uuid.UUID, active bool) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows[i].IsActive = active
			return true, nil
		}
	}
	return false, nil
}

func (m *memStore) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.rows {
		if m.rows[i].ID == id {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func newTestServer(t *testing.T, store *memStore) (*httptest.Server, *prometheus.Registry) {
	t.Helper()
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	rc := cache.NewMemoryRateCache(time.Minute)
	resolver := geo.NewResolver(nil)

	h := NewRouter(Dependencies{
		Shipping: service.NewShippingService(store, rc, resolver, nil, m),
		Rates:    service.NewRateService(store, rc, resolver.Table(), nil),
		Metrics:  m,
		Gatherer: reg,
	})
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return srv, reg
}

func doJSON(t *testing.T, method, url string, body interface{}) *http.Response {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func decode(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestCheckoutFlow(t *testing.T) {
	store := &memStore{}
	srv, _ := newTestServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/admin/shipping-rates", map[string]interface{}{
		"state": "SP", "service_type": "PAC", "flat_rate": 25, "estimated_days": 4,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, http.MethodPost, srv.URL+"/admin/shipping-rates", map[string]interface{}{
		"state": "*", "service_type": "SEDEX", "flat_rate": "40.00",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	t.Run("calculate lists both options", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/shipping/calculate", map[string]string{"zip_code": "01310-100"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var res models.CalculationResult
		decode(t, resp, &res)
		assert.Equal(t, "SP", res.State)
		require.Len(t, res.Options, 2)
		assert.Equal(t, "PAC (Convencional)", res.Options[0].Name)
		assert.True(t, decimal.NewFromInt(25).Equal(res.Options[0].Rate))
		assert.Equal(t, 4, res.Options[0].DeliveryDays)
		assert.Equal(t, "SEDEX (Express)", res.Options[1].Name)
		assert.Equal(t, 5, res.Options[1].DeliveryDays)
	})

	t.Run("calculate via query string", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/shipping/calculate?zip_code=01310100", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
	})

	t.Run("unknown prefix is an empty list", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/shipping/calculate", map[string]string{"zip_code": "00000-000"})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var res models.CalculationResult
		decode(t, resp, &res)
		assert.Empty(t, res.State)
		assert.NotNil(t, res.Options)
		assert.Empty(t, res.Options)
	})

	t.Run("missing zip code", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/shipping/calculate", map[string]string{"zip_code": "--"})
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("quote", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/shipping/quote", map[string]interface{}{
			"zip_code": "01310100", "service_type": "SEDEX", "subtotal": "100.50",
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)

		var q models.Quote
		decode(t, resp, &q)
		assert.Equal(t, "140.50", q.Total.StringFixed(2))
	})

	t.Run("quote for unavailable service", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/shipping/quote", map[string]interface{}{
			"zip_code": "00000000", "service_type": "SEDEX", "subtotal": 10,
		})
		assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	})

	t.Run("delivery time by state and by zip", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, srv.URL+"/shipping/delivery-time?state=XX", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var d geo.DeliveryTimeRange
		decode(t, resp, &d)
		assert.Equal(t, 2, d.MinDays)
		assert.Equal(t, 7, d.MaxDays)

		resp = doJSON(t, http.MethodGet, srv.URL+"/shipping/delivery-time?zip_code=01310-100", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var z struct {
			MaxDays int `json:"max_days"`
		}
		decode(t, resp, &z)
		assert.Equal(t, 3, z.MaxDays)

		resp = doJSON(t, http.MethodGet, srv.URL+"/shipping/delivery-time", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("simulate keeps input order", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, srv.URL+"/admin/shipping-rates/simulate", map[string]interface{}{
			"zip_codes": []string{"00000000", "01310100"},
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var out struct {
			Results []models.CalculationResult `json:"results"`
		}
		decode(t, resp, &out)
		require.Len(t, out.Results, 2)
		assert.Empty(t, out.Results[0].Options)
		assert.Len(t, out.Results[1].Options, 2)
	})
}

func TestAdminRates(t *testing.T) {
	store := &memStore{}
	srv, _ := newTestServer(t, store)
	base := srv.URL + "/admin/shipping-rates"

	resp := doJSON(t, http.MethodPost, base, map[string]interface{}{
		"region": "sul", "service_type": "pac", "flat_rate": 30,
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	var created models.ShippingRate
	decode(t, resp, &created)
	assert.Equal(t, geo.RegionSouth, created.Region)
	assert.Equal(t, "PAC", created.ServiceType)

	t.Run("validation errors list fields", func(t *testing.T) {
		resp := doJSON(t, http.MethodPost, base, map[string]interface{}{"state": "ZZ", "flat_rate": -1})
		require.Equal(t, http.StatusBadRequest, resp.StatusCode)
		var body struct {
			Error  string            `json:"error"`
			Fields map[string]string `json:"fields"`
		}
		decode(t, resp, &body)
		assert.Equal(t, "invalid_rate", body.Error)
		assert.Contains(t, body.Fields, "state")
		assert.Contains(t, body.Fields, "service_type")
		assert.Contains(t, body.Fields, "flat_rate")
	})

	t.Run("get, update, deactivate, delete", func(t *testing.T) {
		url := base + "/" + created.ID.String()

		resp := doJSON(t, http.MethodGet, url, nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, http.MethodPut, url, map[string]interface{}{
			"region": "Sul", "service_type": "PAC", "flat_rate": 27.5,
		})
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var updated models.ShippingRate
		decode(t, resp, &updated)
		assert.Equal(t, "27.50", updated.FlatRate.StringFixed(2))

		resp = doJSON(t, http.MethodPost, url+"/deactivate", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, base+"?active=false", nil)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var list struct {
			Rates []models.ShippingRate `json:"rates"`
		}
		decode(t, resp, &list)
		require.Len(t, list.Rates, 1)
		assert.False(t, list.Rates[0].IsActive)

		resp = doJSON(t, http.MethodDelete, url, nil)
		assert.Equal(t, http.StatusNoContent, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, url, nil)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})

	t.Run("bad id and bad filter", func(t *testing.T) {
		resp := doJSON(t, http.MethodGet, base+"/not-a-uuid", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

		resp = doJSON(t, http.MethodGet, base+"?active=maybe", nil)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})
}

func TestLookupFailureIsGeneric500(t *testing.T) {
	store := &memStore{fails: true}
	srv, _ := newTestServer(t, store)

	resp := doJSON(t, http.MethodPost, srv.URL+"/shipping/calculate", map[string]string{"zip_code": "01310100"})
	require.Equal(t, http.StatusInternalServerError, resp.StatusCode)

	var body map[string]string
	decode(t, resp, &body)
	assert.Equal(t, "shipping_lookup_failed", body["error"])
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, &memStore{})

	resp := doJSON(t, http.MethodGet, srv.URL+"/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	doJSON(t, http.MethodGet, srv.URL+"/shipping/calculate?zip_code=00000000", nil)

	resp = doJSON(t, http.MethodGet, srv.URL+"/metrics", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var buf bytes.Buffer
	_, err := buf.ReadFrom(resp.Body)
	require.NoError(t, err)
	body := buf.String()
	assert.True(t, strings.Contains(body, `shipping_rate_lookups_total{tier="unknown_zip"} 1`), body)
	assert.Contains(t, body, `route="/shipping/calculate"`)
}
