package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	domain "github.com/franchisehub/api/internal/domain"
	"github.com/franchisehub/api/internal/platform/auth"
	"github.com/franchisehub/api/internal/platform/idempotency"
	"github.com/franchisehub/api/internal/services"
)

type stubOrderService struct {
	createFn func(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error)
	listFn   func(ctx context.Context, query services.ListOrdersQuery) ([]domain.Order, error)
	getFn    func(ctx context.Context, actor services.Actor, orderID string) (domain.Order, error)
	updateFn func(ctx context.Context, cmd services.UpdateOrderCommand) (domain.Order, error)
	cancelFn func(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error)
}

func (s *stubOrderService) CreateOrder(ctx context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
	if s.createFn != nil {
		return s.createFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) ListOrders(ctx context.Context, query services.ListOrdersQuery) ([]domain.Order, error) {
	if s.listFn != nil {
		return s.listFn(ctx, query)
	}
	return nil, nil
}

func (s *stubOrderService) GetOrder(ctx context.Context, actor services.Actor, orderID string) (domain.Order, error) {
	if s.getFn != nil {
		return s.getFn(ctx, actor, orderID)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) UpdateOrder(ctx context.Context, cmd services.UpdateOrderCommand) (domain.Order, error) {
	if s.updateFn != nil {
		return s.updateFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func (s *stubOrderService) CancelOrder(ctx context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
	if s.cancelFn != nil {
		return s.cancelFn(ctx, cmd)
	}
	return domain.Order{}, nil
}

func sampleOrder() domain.Order {
	return domain.Order{
		ID:            "ord_sample",
		OrderNumber:   "SO-2026-000001",
		StoreID:       "store-1",
		Status:        domain.OrderStatusNew,
		PaymentStatus: domain.PaymentStatusPending,
		TotalAmount:   13580,
		VatAmount:     1235,
		PlacedAt:      time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC),
		Version:       1,
		Items: []domain.OrderItem{
			{ProductID: "p1", Quantity: 3, UnitPrice: 1500, Status: domain.OrderItemStatusPending},
		},
	}
}

func testRouter(t *testing.T, service services.OrderService, store idempotency.Store) chi.Router {
	t.Helper()

	handler, err := NewOrdersHandler(service, services.NewOrderProjector(nil))
	if err != nil {
		t.Fatalf("NewOrdersHandler: %v", err)
	}

	return NewRouter(RouterDeps{
		Orders:            handler,
		Health:            NewHealthHandler(nil),
		IdempotencyStore:  store,
		IdempotencyHeader: "Idempotency-Key",
		IdempotencyTTL:    time.Hour,
	})
}

func doRequest(t *testing.T, router chi.Router, method, path, body string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	for name, value := range headers {
		req.Header.Set(name, value)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func storeHeaders() map[string]string {
	return map[string]string{
		auth.HeaderUserID:   "user-1",
		auth.HeaderUserRole: "store",
	}
}

func adminHeaders() map[string]string {
	return map[string]string{
		auth.HeaderUserID:   "admin-1",
		auth.HeaderUserRole: "admin",
	}
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var payload map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("response is not JSON: %v (%s)", err, rec.Body.String())
	}
	return payload
}

func TestCreateOrderEndpoint(t *testing.T) {
	service := &stubOrderService{
		createFn: func(_ context.Context, cmd services.CreateOrderCommand) (domain.Order, error) {
			if cmd.UserID != "user-1" {
				t.Fatalf("user id = %q", cmd.UserID)
			}
			if len(cmd.Lines) != 1 || cmd.Lines[0].ProductID != "p1" {
				t.Fatalf("lines = %+v", cmd.Lines)
			}
			return sampleOrder(), nil
		},
	}
	router := testRouter(t, service, nil)

	body := `{"items":[{"productId":"p1","quantity":3,"unitPrice":1500}],"shippingAddress":"12 Teheran-ro"}`
	rec := doRequest(t, router, http.MethodPost, "/api/v1/orders", body, storeHeaders())

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (%s)", rec.Code, rec.Body.String())
	}

	payload := decodeBody(t, rec)
	order, ok := payload["order"].(map[string]any)
	if !ok {
		t.Fatalf("missing order in response: %v", payload)
	}
	if order["id"] != "ord_sample" || order["orderNumber"] != "SO-2026-000001" {
		t.Fatalf("unexpected order payload: %v", order)
	}
}

func TestCreateOrderRequiresIdentity(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/orders", `{}`, nil)
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateOrderRejectsUnknownRole(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/orders", `{}`, map[string]string{
		auth.HeaderUserID:   "user-1",
		auth.HeaderUserRole: "wizard",
	})
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestCreateOrderUnknownProduct(t *testing.T) {
	service := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrProductNotFound
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/orders", `{"items":[{"productId":"ghost","quantity":1,"unitPrice":100}]}`, storeHeaders())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "product_not_found" {
		t.Fatalf("error code = %v", payload["error"])
	}
}

func TestCreateOrderMalformedBody(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	rec := doRequest(t, router, http.MethodPost, "/api/v1/orders", `{"items":`, storeHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestCreateOrderIdempotentReplay(t *testing.T) {
	calls := 0
	service := &stubOrderService{
		createFn: func(context.Context, services.CreateOrderCommand) (domain.Order, error) {
			calls++
			return sampleOrder(), nil
		},
	}
	router := testRouter(t, service, idempotency.NewMemoryStore())

	headers := storeHeaders()
	headers["Idempotency-Key"] = "key-123"
	body := `{"items":[{"productId":"p1","quantity":3,"unitPrice":1500}]}`

	first := doRequest(t, router, http.MethodPost, "/api/v1/orders", body, headers)
	if first.Code != http.StatusCreated {
		t.Fatalf("first status = %d, want 201", first.Code)
	}

	second := doRequest(t, router, http.MethodPost, "/api/v1/orders", body, headers)
	if second.Code != http.StatusCreated {
		t.Fatalf("replay status = %d, want 201", second.Code)
	}
	if second.Header().Get("X-Idempotent-Replay") != "true" {
		t.Fatal("replay header missing on second response")
	}
	if calls != 1 {
		t.Fatalf("service calls = %d, want 1", calls)
	}
}

func TestListOrdersEndpoint(t *testing.T) {
	service := &stubOrderService{
		listFn: func(_ context.Context, query services.ListOrdersQuery) ([]domain.Order, error) {
			if query.Actor.Admin {
				t.Fatal("store user must not be admin")
			}
			if query.Status != "NEW" {
				t.Fatalf("status filter = %q", query.Status)
			}
			return []domain.Order{sampleOrder()}, nil
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders?status=NEW", "", storeHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}

	payload := decodeBody(t, rec)
	orders, ok := payload["orders"].([]any)
	if !ok || len(orders) != 1 {
		t.Fatalf("orders payload = %v", payload)
	}
}

func TestListOrdersRejectsBadLimit(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders?limit=banana", "", storeHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestGetOrderEndpointNotFound(t *testing.T) {
	service := &stubOrderService{
		getFn: func(context.Context, services.Actor, string) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderNotFound
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodGet, "/api/v1/orders/ord_missing", "", storeHeaders())
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "order_not_found" {
		t.Fatalf("error code = %v", payload["error"])
	}
}

func TestUpdateOrderRequiresAdmin(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/orders/ord_sample", `{"status":"PROCESSING"}`, storeHeaders())
	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
}

func TestUpdateOrderEndpoint(t *testing.T) {
	service := &stubOrderService{
		updateFn: func(_ context.Context, cmd services.UpdateOrderCommand) (domain.Order, error) {
			if cmd.OrderID != "ord_sample" {
				t.Fatalf("order id = %q", cmd.OrderID)
			}
			if cmd.Status == nil || *cmd.Status != "PROCESSING" {
				t.Fatalf("status = %v", cmd.Status)
			}
			order := sampleOrder()
			order.Status = domain.OrderStatusProcessing
			order.Version = 2
			return order, nil
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/orders/ord_sample", `{"status":"PROCESSING"}`, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 (%s)", rec.Code, rec.Body.String())
	}
}

func TestUpdateOrderNoChangesWarning(t *testing.T) {
	service := &stubOrderService{
		updateFn: func(context.Context, services.UpdateOrderCommand) (domain.Order, error) {
			return sampleOrder(), services.ErrOrderNoChanges
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/orders/ord_sample", `{}`, adminHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["warning"] != "no_changes" {
		t.Fatalf("warning = %v", payload["warning"])
	}
}

func TestUpdateOrderInvalidTransition(t *testing.T) {
	service := &stubOrderService{
		updateFn: func(context.Context, services.UpdateOrderCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderInvalidState
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/orders/ord_sample", `{"status":"DELIVERED"}`, adminHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "order_invalid_state" {
		t.Fatalf("error code = %v", payload["error"])
	}
}

func TestUpdateOrderVersionConflict(t *testing.T) {
	service := &stubOrderService{
		updateFn: func(context.Context, services.UpdateOrderCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderConflict
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodPut, "/api/v1/orders/ord_sample", `{"status":"PROCESSING"}`, adminHeaders())
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d, want 409", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "order_conflict" {
		t.Fatalf("error code = %v", payload["error"])
	}
}

func TestCancelOrderEndpoint(t *testing.T) {
	service := &stubOrderService{
		cancelFn: func(_ context.Context, cmd services.CancelOrderCommand) (domain.Order, error) {
			if cmd.OrderID != "ord_sample" || cmd.UserID != "user-1" {
				t.Fatalf("cancel cmd = %+v", cmd)
			}
			order := sampleOrder()
			order.Status = domain.OrderStatusCancelled
			return order, nil
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/orders/ord_sample", "", storeHeaders())
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestCancelOrderForbiddenState(t *testing.T) {
	service := &stubOrderService{
		cancelFn: func(context.Context, services.CancelOrderCommand) (domain.Order, error) {
			return domain.Order{}, services.ErrOrderForbiddenState
		},
	}
	router := testRouter(t, service, nil)

	rec := doRequest(t, router, http.MethodDelete, "/api/v1/orders/ord_sample", "", storeHeaders())
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "order_forbidden_state" {
		t.Fatalf("error code = %v", payload["error"])
	}
}

func TestHealthEndpoints(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	if rec := doRequest(t, router, http.MethodGet, "/healthz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("healthz status = %d, want 200", rec.Code)
	}
	if rec := doRequest(t, router, http.MethodGet, "/readyz", "", nil); rec.Code != http.StatusOK {
		t.Fatalf("readyz status = %d, want 200", rec.Code)
	}
}

func TestUnknownRouteEnvelope(t *testing.T) {
	router := testRouter(t, &stubOrderService{}, nil)

	rec := doRequest(t, router, http.MethodGet, "/nope", "", nil)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
	if payload := decodeBody(t, rec); payload["error"] != "not_found" {
		t.Fatalf("error code = %v", payload["error"])
	}
}
