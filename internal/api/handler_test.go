package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SherClockHolmes/webpush-go"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tortoise-backend/config"
	"tortoise-backend/internal/kv"
	"tortoise-backend/internal/lease"
	"tortoise-backend/internal/model"
	"tortoise-backend/internal/notification"
	"tortoise-backend/internal/repo"
)

var apiNow = time.Date(2025, 6, 15, 12, 0, 0, 0, time.UTC)

func init() {
	gin.SetMode(gin.TestMode)
}

type testServer struct {
	router  *gin.Engine
	devices *repo.Repository
	subs    *notification.SubscriptionStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	store := kv.NewMemory()
	devices, err := repo.New(context.Background(), store)
	require.NoError(t, err)

	clock := func() time.Time { return apiNow }
	leases := lease.NewRecorder(store, devices).WithClock(clock)
	subs := notification.NewSubscriptionStore(store)

	h := NewHandler(devices, leases, subs, &webpush.Options{VAPIDPublicKey: "test-public-key"})
	h.now = clock

	cfg := &config.ServerConfig{
		RateLimitPerSec: 1000,
		RateLimitBurst:  1000,
		CacheTTLSeconds: 1,
	}
	return &testServer{router: NewRouter(h, cfg), devices: devices, subs: subs}
}

func (s *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decodeDevice(t *testing.T, w *httptest.ResponseRecorder) model.Device {
	t.Helper()
	var d model.Device
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &d))
	return d
}

func deviceBody(name string, price, stock int) gin.H {
	return gin.H{
		"name":     name,
		"brand":    "Google",
		"model":    "GA05842",
		"category": "phone",
		"price":    price,
		"stock":    stock,
		"isActive": true,
	}
}

func TestCreateAndGetDevice(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5))
	require.Equal(t, http.StatusCreated, w.Code)
	created := decodeDevice(t, w)
	assert.Contains(t, created.ID, "dev_")

	w = s.do(t, http.MethodGet, "/api/devices/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Pixel 9", decodeDevice(t, w).Name)

	w = s.do(t, http.MethodGet, "/api/devices/dev_nope", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateDeviceValidation(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPost, "/api/devices", gin.H{"name": "no brand"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body := deviceBody("Pixel 9", 3500, 5)
	body["category"] = "fridge"
	w = s.do(t, http.MethodPost, "/api/devices", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	body = deviceBody("Pixel 9", -1, 5)
	w = s.do(t, http.MethodPost, "/api/devices", body)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPatchDevice(t *testing.T) {
	s := newTestServer(t)
	created := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5)))

	w := s.do(t, http.MethodPatch, "/api/devices/"+created.ID, gin.H{"name": "Pixel 9 Pro", "price": 3900})
	require.Equal(t, http.StatusOK, w.Code)
	patched := decodeDevice(t, w)
	assert.Equal(t, "Pixel 9 Pro", patched.Name)
	assert.Equal(t, 3900, patched.Price)
	assert.Equal(t, "Google", patched.Brand)
	assert.Equal(t, 5, patched.Stock)

	w = s.do(t, http.MethodPatch, "/api/devices/dev_nope", gin.H{"name": "x"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestDeleteDeviceIsIdempotent(t *testing.T) {
	s := newTestServer(t)
	created := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5)))

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/devices/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/api/devices/"+created.ID, nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/devices/"+created.ID, nil).Code)
}

func TestUpdateStock(t *testing.T) {
	s := newTestServer(t)
	created := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5)))

	w := s.do(t, http.MethodPut, "/api/devices/"+created.ID+"/stock", gin.H{"stock": 12})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 12, decodeDevice(t, w).Stock)

	w = s.do(t, http.MethodPut, "/api/devices/"+created.ID+"/stock", gin.H{"stock": -2})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/devices/"+created.ID+"/stock", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodPut, "/api/devices/dev_nope/stock", gin.H{"stock": 1})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestOfferLifecycle(t *testing.T) {
	s := newTestServer(t)
	created := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5)))

	w := s.do(t, http.MethodPost, "/api/devices/"+created.ID+"/offers", gin.H{
		"type": "percentage", "value": 10, "validTo": "2099-01-01", "isActive": true,
	})
	require.Equal(t, http.StatusCreated, w.Code)
	d := decodeDevice(t, w)
	require.Len(t, d.Offers, 1)
	offerID := d.Offers[0].ID

	// An already expired validTo is still accepted.
	w = s.do(t, http.MethodPost, "/api/devices/"+created.ID+"/offers", gin.H{
		"type": "flat", "value": 500, "validTo": "2020-01-01", "isActive": true,
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, "/api/devices/"+created.ID+"/offers/"+offerID+"/toggle", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.False(t, decodeDevice(t, w).Offers[0].IsActive)

	w = s.do(t, http.MethodPost, "/api/devices/"+created.ID+"/offers/off_nope/toggle", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/devices/"+created.ID+"/offers/"+offerID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeDevice(t, w).Offers, 1)

	w = s.do(t, http.MethodPost, "/api/devices/"+created.ID+"/offers", gin.H{"type": "coupon", "validTo": "2099-01-01"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestMarketplaceListingAndFilters(t *testing.T) {
	s := newTestServer(t)

	pixel := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5)))
	s.do(t, http.MethodPost, "/api/devices/"+pixel.ID+"/offers", gin.H{
		"type": "percentage", "value": 10, "validTo": "2099-01-01", "isActive": true,
	})

	mac := deviceBody("MacBook Air", 4100, 3)
	mac["brand"] = "Apple"
	mac["category"] = "laptop"
	s.do(t, http.MethodPost, "/api/devices", mac)

	inactive := deviceBody("Hidden", 100, 5)
	inactive["isActive"] = false
	s.do(t, http.MethodPost, "/api/devices", inactive)

	outOfStock := deviceBody("Empty", 100, 0)
	s.do(t, http.MethodPost, "/api/devices", outOfStock)

	w := s.do(t, http.MethodGet, "/api/marketplace/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var resp marketplaceResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	require.Len(t, resp.Devices, 2)
	assert.Equal(t, []string{"Apple", "Google"}, resp.Brands)

	assert.Equal(t, 3150, resp.Devices[0].EffectivePrice)
	assert.Equal(t, 2205, resp.Devices[0].EmployeeNet)
	assert.True(t, resp.Devices[0].HasDiscount)
	assert.False(t, resp.Devices[1].HasDiscount)

	w = s.do(t, http.MethodGet, "/api/marketplace/devices?q=macbook", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, "MacBook Air", resp.Devices[0].Name)
	// Brands keep the full listable set even when the query narrows.
	assert.Equal(t, []string{"Apple", "Google"}, resp.Brands)

	w = s.do(t, http.MethodGet, "/api/marketplace/devices?brand=Google", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Devices, 1)
	assert.Equal(t, "Pixel 9", resp.Devices[0].Name)
}

func TestLeaseEndpoint(t *testing.T) {
	s := newTestServer(t)
	created := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 1)))

	w := s.do(t, http.MethodPost, "/api/marketplace/lease", gin.H{"device_id": created.ID})
	require.Equal(t, http.StatusCreated, w.Code)
	var order model.LeaseOrder
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &order))
	assert.Equal(t, created.ID, order.DeviceID)
	assert.Equal(t, model.OrderPending, order.Status)
	assert.Equal(t, 3500, order.MonthlyRental)
	assert.Equal(t, 2450, order.EffectivePrice)

	after, ok := s.devices.GetByID(context.Background(), created.ID)
	require.True(t, ok)
	assert.Equal(t, 0, after.Stock)

	w = s.do(t, http.MethodPost, "/api/marketplace/lease", gin.H{"device_id": "dev_nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodPost, "/api/marketplace/lease", gin.H{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDashboardSummary(t *testing.T) {
	s := newTestServer(t)

	s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 5))
	s.do(t, http.MethodPost, "/api/devices", deviceBody("Tab S10", 2000, 20))
	hidden := deviceBody("Hidden", 100, 1)
	hidden["isActive"] = false
	s.do(t, http.MethodPost, "/api/devices", hidden)

	w := s.do(t, http.MethodGet, "/api/dashboard/summary", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary dashboardSummary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))

	assert.Equal(t, 3, summary.TotalDevices)
	assert.Equal(t, 2, summary.ActiveListings)
	assert.Equal(t, 2, summary.LowStock)
	assert.Equal(t, 3500*5+2000*20+100*1, summary.TotalValue)
	assert.Equal(t, 0, summary.TotalLeases)
}

func TestDashboardTrend(t *testing.T) {
	s := newTestServer(t)
	created := decodeDevice(t, s.do(t, http.MethodPost, "/api/devices", deviceBody("Pixel 9", 3500, 2)))
	s.do(t, http.MethodPost, "/api/marketplace/lease", gin.H{"device_id": created.ID})

	w := s.do(t, http.MethodGet, "/api/dashboard/trend", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var points []lease.TrendPoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &points))
	require.Len(t, points, 7)
	assert.Equal(t, apiNow.Format("2006-01-02"), points[6].Date)
	assert.Equal(t, 1, points[6].Rentals)
	assert.Equal(t, 2450, points[6].Value) // employee net of the undiscounted 3500

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/dashboard/trend?days=0", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/dashboard/trend?days=90", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/dashboard/trend?days=abc", nil).Code)
}

func TestSubscriptionEndpoints(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodPut, "/api/subscriptions", gin.H{
		"endpoint":           "https://push.example/one",
		"p256dh":             "key",
		"auth":               "secret",
		"subscribed_devices": []string{"dev_1"},
	})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2Fone", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got struct {
		Devices []string `json:"subscribed_devices"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, []string{"dev_1"}, got.Devices)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodGet, "/api/subscriptions", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fnope", nil).Code)

	w = s.do(t, http.MethodDelete, "/api/subscriptions", gin.H{"endpoint": "https://push.example/one"})
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/api/subscriptions?endpoint=https%3A%2F%2Fpush.example%2Fone", nil).Code)

	assert.Equal(t, http.StatusBadRequest, s.do(t, http.MethodPut, "/api/subscriptions", gin.H{"endpoint": "x"}).Code)
}

func TestVAPIDPublicKey(t *testing.T) {
	s := newTestServer(t)

	w := s.do(t, http.MethodGet, "/api/vapid_public_key", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "test-public-key")
}
