package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vinylhouse/labelapi/internal/api/middleware"
	"github.com/vinylhouse/labelapi/internal/config"
	"github.com/vinylhouse/labelapi/internal/domain"
	"github.com/vinylhouse/labelapi/internal/lifecycle"
	"github.com/vinylhouse/labelapi/internal/metrics"
	"github.com/vinylhouse/labelapi/internal/payment"
	"github.com/vinylhouse/labelapi/internal/repository/memory"
	"github.com/vinylhouse/labelapi/internal/service"
	"github.com/vinylhouse/labelapi/pkg/errors"
)

const testAPIKey = "admin-test-key"

var (
	hashOnce    sync.Once
	testKeyHash string
	now         = time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC)
)

func keyHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		h, err := middleware.HashAPIKey(testAPIKey)
		if err != nil {
			panic(err)
		}
		testKeyHash = h
	})
	return testKeyHash
}

type stubAuthority struct {
	mu     sync.Mutex
	states map[string]string
	err    error
}

func (a *stubAuthority) LookupSession(ctx context.Context, sessionID string) (*payment.Session, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.err != nil {
		return nil, a.err
	}
	state, ok := a.states[sessionID]
	if !ok {
		return nil, &errors.ErrExternal{Service: "payment", Err: assert.AnError}
	}
	return &payment.Session{ID: sessionID, PaymentStatus: state}, nil
}

type testServer struct {
	router    *gin.Engine
	store     *memory.Store
	authority *stubAuthority
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	repos := store.Repositories()
	clock := lifecycle.NewManualClock(now)
	reg := prometheus.NewRegistry()
	collector := metrics.New(reg)
	logger := zap.NewNop()
	authority := &stubAuthority{states: map[string]string{}}

	cfg := &config.Config{Environment: "test", Admin: config.AdminConfig{APIKeyHash: keyHash(t)}}
	svc := Services{
		Orders:     service.NewOrderService(repos, clock, collector, logger),
		Reconciler: service.NewReconciler(repos, authority, time.Second, clock, collector, logger),
		Inventory:  service.NewInventoryService(repos, clock, service.InventoryOptions{BulkConcurrency: 2}, collector, logger),
	}
	return &testServer{
		router:    NewRouter(cfg, svc, collector, reg, logger),
		store:     store,
		authority: authority,
	}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		switch b := body.(type) {
		case string:
			buf.WriteString(b)
		default:
			require.NoError(t, json.NewEncoder(&buf).Encode(b))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) pendingOrder(number, session string) *domain.Order {
	o := &domain.Order{
		OrderNumber:       number,
		Status:            domain.OrderStatusPending,
		PaymentStatus:     domain.PaymentStatusPending,
		FulfillmentStatus: domain.FulfillmentStatusUnfulfilled,
		Subtotal:          3999,
		Shipping:          500,
		Total:             4499,
		Currency:          "EUR",
		CreatedAt:         now.Add(-time.Hour),
		UpdatedAt:         now.Add(-time.Hour),
	}
	if session != "" {
		o.PaymentSessionID = &session
	}
	return s.store.PutOrder(o)
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	return body
}

func TestRouter_Health(t *testing.T) {
	s := newTestServer(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_AdminAuth(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic " + testAPIKey, http.StatusUnauthorized},
		{"wrong key", "Bearer nope", http.StatusUnauthorized},
		{"valid key", "Bearer " + testAPIKey, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/admin/orders", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			s.router.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestRouter_AdminDisabledWithoutHash(t *testing.T) {
	gin.SetMode(gin.TestMode)
	repos := memory.NewStore().Repositories()
	logger := zap.NewNop()
	svc := Services{Orders: service.NewOrderService(repos, nil, nil, logger)}
	router := NewRouter(&config.Config{}, svc, nil, nil, logger)

	req := httptest.NewRequest(http.MethodGet, "/v1/admin/orders", nil)
	req.Header.Set("Authorization", "Bearer "+testAPIKey)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_GetOrderByNumber(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("VH-3001", "")
	pid := int64(77)
	s.store.PutItem(&domain.OrderItem{
		OrderID:           o.ID,
		ProductID:         &pid,
		ProductName:       "Night Drive",
		Format:            "LP",
		UnitPrice:         3999,
		Quantity:          1,
		FulfillmentStatus: domain.ItemFulfillmentUnfulfilled,
	})

	rec := s.do(t, http.MethodGet, "/v1/admin/orders/VH-3001", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		ID        int64  `json:"id"`
		Total     string `json:"total"`
		Shipping  string `json:"shipping"`
		CreatedAt string `json:"created_at"`
		Items     []struct {
			ProductName string `json:"product_name"`
			UnitPrice   string `json:"unit_price"`
		} `json:"items"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, o.ID, resp.ID)
	assert.Equal(t, "44.99", resp.Total)
	assert.Equal(t, "5.00", resp.Shipping)
	assert.Equal(t, "2026-05-04T11:00:00Z", resp.CreatedAt)
	require.Len(t, resp.Items, 1)
	assert.Equal(t, "Night Drive", resp.Items[0].ProductName)
	assert.Equal(t, "39.99", resp.Items[0].UnitPrice)

	rec = s.do(t, http.MethodGet, "/v1/admin/orders/VH-missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_WritesResolveNumericOrderNumbers(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("1001", "")
	require.NotEqual(t, int64(1001), o.ID)

	rec := s.do(t, http.MethodPatch, "/v1/admin/orders/1001/status", map[string]string{"field": "status", "value": "processing"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, float64(o.ID), body["id"])
	assert.Equal(t, "processing", body["status"])

	rec = s.do(t, http.MethodPatch, "/v1/admin/orders/1001/notes", map[string]string{"internal_notes": "numeric ref"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(t, http.MethodPatch, "/v1/admin/orders/9999/status", map[string]string{"field": "status", "value": "processing"})
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRouter_PanicResponseHidesDetails(t *testing.T) {
	s := newTestServer(t)
	s.router.GET("/v1/boom", func(c *gin.Context) {
		panic("dial postgres://app:s3cret@db/labels failed")
	})

	rec := s.do(t, http.MethodGet, "/v1/boom", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "s3cret")
	assert.Equal(t, map[string]interface{}{"error": "internal server error"}, decode(t, rec))
}

func TestCustomRecovery_LogsPanicValue(t *testing.T) {
	gin.SetMode(gin.TestMode)
	core, logs := observer.New(zap.ErrorLevel)
	router := gin.New()
	router.Use(customRecovery(zap.New(core)))
	router.GET("/boom", func(c *gin.Context) {
		panic("token=abc123")
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "abc123")

	entries := logs.FilterMessage("Panic recovered").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "token=abc123", entries[0].ContextMap()["error"])
}

func TestRouter_ListOrders(t *testing.T) {
	s := newTestServer(t)
	s.pendingOrder("VH-1", "")
	s.pendingOrder("VH-2", "")

	rec := s.do(t, http.MethodGet, "/v1/admin/orders?status=pending&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Len(t, body["orders"], 1)

	rec = s.do(t, http.MethodGet, "/v1/admin/orders?status=lost", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodGet, "/v1/admin/orders?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ChangeFieldCascades(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("VH-3002", "")
	path := "/v1/admin/orders/" + strconv.FormatInt(o.ID, 10) + "/status"

	rec := s.do(t, http.MethodPatch, path, map[string]string{"field": "fulfillment_status", "value": "fulfilled"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "delivered", body["status"])
	assert.Equal(t, "fulfilled", body["fulfillment_status"])
	assert.Equal(t, "2026-05-04T12:00:00Z", body["delivered_at"])

	rec = s.do(t, http.MethodPatch, path, map[string]string{"field": "payment_status", "value": "paid"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.Contains(t, decode(t, rec), "fields")

	rec = s.do(t, http.MethodPatch, path, `{"field":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_AttachAndClearTracking(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("VH-3003", "")

	rec := s.do(t, http.MethodPut, "/v1/admin/orders/VH-3003/tracking", map[string]string{
		"tracking_number": "1Z999",
		"tracking_url":    "https://track.example/1Z999",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, "shipped", body["status"])
	assert.Equal(t, "partial", body["fulfillment_status"])
	assert.Equal(t, "1Z999", body["tracking_number"])
	assert.Equal(t, "2026-05-04T12:00:00Z", body["shipped_at"])

	rec = s.do(t, http.MethodPut, "/v1/admin/orders/VH-3003/tracking", map[string]string{"tracking_number": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Nil(t, body["tracking_number"])
	assert.Equal(t, "shipped", body["status"])

	events, err := s.store.Repositories().OrderEvent.GetByOrderID(context.Background(), o.ID)
	require.NoError(t, err)
	require.Len(t, events, 2)
}

func TestRouter_ReconcilePayment(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("VH-3004", "cs_test_1")
	s.authority.states["cs_test_1"] = "paid"
	path := "/v1/admin/orders/" + strconv.FormatInt(o.ID, 10) + "/reconcile-payment"

	rec := s.do(t, http.MethodPost, path, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	body := decode(t, rec)
	assert.Equal(t, true, body["changed"])
	assert.Equal(t, "paid", body["remote_payment_status"])
	assert.ElementsMatch(t, []interface{}{"status", "payment_status"}, body["fields"])
	order := body["order"].(map[string]interface{})
	assert.Equal(t, "processing", order["status"])
	assert.Equal(t, "paid", order["payment_status"])

	rec = s.do(t, http.MethodPost, path, map[string]string{"session_id": "cs_test_1"})
	require.Equal(t, http.StatusOK, rec.Code)
	body = decode(t, rec)
	assert.Equal(t, false, body["changed"])
	assert.Empty(t, body["fields"])
}

func TestRouter_ReconcileProcessorFailures(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("VH-3005", "cs_test_2")
	path := "/v1/admin/orders/" + strconv.FormatInt(o.ID, 10) + "/reconcile-payment"

	s.authority.err = context.DeadlineExceeded
	rec := s.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, true, decode(t, rec)["retryable"])

	s.authority.err = nil
	rec = s.do(t, http.MethodPost, path, nil)
	assert.Equal(t, http.StatusBadGateway, rec.Code)

	stored, err := s.store.Repositories().Order.GetByID(context.Background(), o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentStatusPending, stored.PaymentStatus)

	none := s.pendingOrder("VH-3006", "")
	rec = s.do(t, http.MethodPost, "/v1/admin/orders/"+strconv.FormatInt(none.ID, 10)+"/reconcile-payment", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
}

func TestRouter_NotesAndItems(t *testing.T) {
	s := newTestServer(t)
	o := s.pendingOrder("VH-3007", "")
	item := s.store.PutItem(&domain.OrderItem{OrderID: o.ID, ProductName: "Tape", Format: "CS", UnitPrice: 900, Quantity: 2, FulfillmentStatus: domain.ItemFulfillmentUnfulfilled})

	rec := s.do(t, http.MethodPatch, "/v1/admin/orders/VH-3007/notes", map[string]string{"internal_notes": "gift wrap"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "gift wrap", decode(t, rec)["internal_notes"])

	rec = s.do(t, http.MethodPatch, "/v1/admin/orders/VH-3007/notes", map[string]string{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	itemPath := "/v1/admin/orders/VH-3007/items/" + strconv.FormatInt(item.ID, 10)
	rec = s.do(t, http.MethodPatch, itemPath, map[string]string{"fulfillment_status": "returned"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "returned", decode(t, rec)["fulfillment_status"])

	rec = s.do(t, http.MethodPatch, itemPath, map[string]string{"fulfillment_status": "lost"})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPatch, "/v1/admin/orders/VH-3007/items/abc", map[string]string{"fulfillment_status": "returned"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_BulkInventory(t *testing.T) {
	s := newTestServer(t)
	p1 := s.store.PutProduct(&domain.Product{Title: "A", InventoryTracking: true, InventoryQuantity: 0})
	p2 := s.store.PutProduct(&domain.Product{Title: "B", InventoryTracking: true, InventoryQuantity: 4})

	rec := s.do(t, http.MethodPost, "/v1/admin/inventory/bulk", map[string]interface{}{
		"items": []map[string]interface{}{
			{"product_id": p1.ID, "quantity": 12},
			{"product_id": p2.ID, "quantity": -3},
			{"product_id": 9999, "quantity": 1},
		},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Applied []int64 `json:"applied"`
		Failed  []struct {
			ProductID int64  `json:"product_id"`
			Code      string `json:"code"`
		} `json:"failed"`
		Products []struct {
			ID         int64  `json:"id"`
			Quantity   int    `json:"inventory_quantity"`
			StockLevel string `json:"stock_level"`
		} `json:"products"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []int64{p1.ID}, resp.Applied)
	require.Len(t, resp.Failed, 2)
	assert.Equal(t, p2.ID, resp.Failed[0].ProductID)
	assert.Equal(t, "validation", resp.Failed[0].Code)
	assert.Equal(t, "not_found", resp.Failed[1].Code)
	require.Len(t, resp.Products, 1)
	assert.Equal(t, 12, resp.Products[0].Quantity)
	assert.Equal(t, "good", resp.Products[0].StockLevel)

	stored, err := s.store.Repositories().Product.GetByID(context.Background(), p2.ID)
	require.NoError(t, err)
	assert.Equal(t, 4, stored.InventoryQuantity)

	rec = s.do(t, http.MethodPost, "/v1/admin/inventory/bulk", map[string]interface{}{
		"items": []map[string]interface{}{{"product_id": p1.ID}},
	})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	tooMany := make([]map[string]interface{}, 501)
	for i := range tooMany {
		tooMany[i] = map[string]interface{}{"product_id": i + 1, "quantity": 1}
	}
	rec = s.do(t, http.MethodPost, "/v1/admin/inventory/bulk", map[string]interface{}{"items": tooMany})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_ProductTrackingAndAdjust(t *testing.T) {
	s := newTestServer(t)
	p := s.store.PutProduct(&domain.Product{Title: "7in", InventoryTracking: true, InventoryQuantity: 3})
	base := "/v1/admin/products/" + strconv.FormatInt(p.ID, 10)

	rec := s.do(t, http.MethodPatch, base+"/tracking", map[string]bool{"enabled": false})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "not_tracked", body["stock_level"])
	assert.Equal(t, float64(3), body["inventory_quantity"])

	rec = s.do(t, http.MethodPatch, base+"/tracking", map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodPatch, base+"/tracking", map[string]bool{"enabled": true})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPost, base+"/adjust", map[string]int{"delta": -3})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "out", decode(t, rec)["stock_level"])

	rec = s.do(t, http.MethodPost, base+"/adjust", map[string]int{"delta": -1})
	assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)

	rec = s.do(t, http.MethodPost, "/v1/admin/products/x/adjust", map[string]int{"delta": 1})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_InventoryReport(t *testing.T) {
	s := newTestServer(t)
	p := s.store.PutProduct(&domain.Product{Title: "LP", InventoryTracking: true, InventoryQuantity: 2})
	o := s.pendingOrder("VH-3008", "")
	s.store.PutItem(&domain.OrderItem{OrderID: o.ID, ProductID: &p.ID, Quantity: 3})

	rec := s.do(t, http.MethodGet, "/v1/admin/inventory", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Products []struct {
			ID         int64  `json:"id"`
			StockLevel string `json:"stock_level"`
			Sold       *int   `json:"sold"`
		} `json:"products"`
		SalesDegraded bool `json:"sales_degraded"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 1)
	assert.Equal(t, "low", resp.Products[0].StockLevel)
	require.NotNil(t, resp.Products[0].Sold)
	assert.Equal(t, 3, *resp.Products[0].Sold)
	assert.False(t, resp.SalesDegraded)
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.do(t, http.MethodGet, "/v1/admin/orders", nil)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `labelapi_http_request_duration_seconds_count{method="GET",route="/v1/admin/orders",status="200"} 1`)
}
