package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	decimal.MarshalJSONWithoutQuotes = true
	m.Run()
}

type fakeProductUC struct {
	list   func(ctx context.Context) ([]domain.Product, error)
	get    func(ctx context.Context, id int64) (*domain.Product, error)
	create func(ctx context.Context, req *usecase.CreateProductReq) (*domain.Product, error)
	update func(ctx context.Context, req *usecase.UpdateProductReq) (*domain.Product, error)
	delete func(ctx context.Context, id int64) error
}

func (f *fakeProductUC) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return f.list(ctx)
}

func (f *fakeProductUC) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	return f.get(ctx, id)
}

func (f *fakeProductUC) CreateProduct(ctx context.Context, req *usecase.CreateProductReq) (*domain.Product, error) {
	return f.create(ctx, req)
}

func (f *fakeProductUC) UpdateProduct(ctx context.Context, req *usecase.UpdateProductReq) (*domain.Product, error) {
	return f.update(ctx, req)
}

func (f *fakeProductUC) DeleteProduct(ctx context.Context, id int64) error {
	return f.delete(ctx, id)
}

type fakeOrderUC struct {
	place        func(ctx context.Context, req *usecase.PlaceOrderReq) (*domain.Order, error)
	updateStatus func(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	get          func(ctx context.Context, id int64) (*domain.OrderWithLines, error)
	list         func(ctx context.Context) ([]domain.Order, error)
}

func (f *fakeOrderUC) PlaceOrder(ctx context.Context, req *usecase.PlaceOrderReq) (*domain.Order, error) {
	return f.place(ctx, req)
}

func (f *fakeOrderUC) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	return f.updateStatus(ctx, id, status)
}

func (f *fakeOrderUC) GetOrder(ctx context.Context, id int64) (*domain.OrderWithLines, error) {
	return f.get(ctx, id)
}

func (f *fakeOrderUC) ListOrders(ctx context.Context) ([]domain.Order, error) {
	return f.list(ctx)
}

type fakePinger struct{ err error }

func (p fakePinger) Ping(context.Context) error { return p.err }

func newTestRouter(pr *fakeProductUC, or *fakeOrderUC, db Pinger) http.Handler {
	if pr == nil {
		pr = &fakeProductUC{}
	}
	if or == nil {
		or = &fakeOrderUC{}
	}
	if db == nil {
		db = fakePinger{}
	}
	r := NewRouter(chi.NewRouter(), logger.Nop())
	r.Init(pr, or, db)
	return r.Handler()
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func do(t *testing.T, h http.Handler, method, target, body string, headers ...string) (int, envelope) {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec.Code, env
}

var fixedTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func widget() *domain.Product {
	return &domain.Product{
		ID:        1,
		Name:      "Widget",
		Price:     decimal.RequireFromString("9.99"),
		Stock:     5,
		CreatedAt: fixedTime,
		UpdatedAt: fixedTime,
	}
}

func TestListProductsEmptyIsArray(t *testing.T) {
	h := newTestRouter(&fakeProductUC{
		list: func(context.Context) ([]domain.Product, error) { return nil, nil },
	}, nil, nil)

	code, env := do(t, h, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusOK, code)
	assert.True(t, env.Success)
	assert.JSONEq(t, `[]`, string(env.Data))
}

func TestGetProduct(t *testing.T) {
	h := newTestRouter(&fakeProductUC{
		get: func(_ context.Context, id int64) (*domain.Product, error) {
			if id == 1 {
				return widget(), nil
			}
			return nil, e.NotFound("product %d not found", id)
		},
	}, nil, nil)

	code, env := do(t, h, http.MethodGet, "/api/products/1", "")
	require.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{
		"id": 1, "name": "Widget", "description": "", "price": 9.99, "stock": 5,
		"createdAt": "2024-05-01T12:00:00Z", "updatedAt": "2024-05-01T12:00:00Z"
	}`, string(env.Data))

	code, env = do(t, h, http.MethodGet, "/api/products/7", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.False(t, env.Success)
	assert.Equal(t, "product 7 not found", env.Error)

	code, env = do(t, h, http.MethodGet, "/api/products/abc", "")
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "invalid id", env.Error)
}

func TestCreateProduct(t *testing.T) {
	var got *usecase.CreateProductReq
	h := newTestRouter(&fakeProductUC{
		create: func(_ context.Context, req *usecase.CreateProductReq) (*domain.Product, error) {
			got = req
			return widget(), nil
		},
	}, nil, nil)

	code, env := do(t, h, http.MethodPost, "/api/products", `{"name":"Widget","price":9.99}`)
	require.Equal(t, http.StatusCreated, code)
	assert.True(t, env.Success)

	require.NotNil(t, got)
	assert.Equal(t, "Widget", got.Name)
	assert.True(t, got.Price.Equal(decimal.RequireFromString("9.99")))
	assert.Equal(t, 0, got.Stock)
}

func TestCreateProductRejectsBadBodies(t *testing.T) {
	h := newTestRouter(&fakeProductUC{
		create: func(context.Context, *usecase.CreateProductReq) (*domain.Product, error) {
			t.Fatal("use case must not be called")
			return nil, nil
		},
	}, nil, nil)

	bodies := []string{
		`{"name":`,
		`{"name":"Widget","price":1,"colour":"red"}`,
		`{"name":"Widget","price":1}{"name":"Other"}`,
		`{"name":"Widget","price":"abc"}`,
	}
	for _, body := range bodies {
		code, env := do(t, h, http.MethodPost, "/api/products", body)
		assert.Equal(t, http.StatusBadRequest, code, body)
		assert.Equal(t, "invalid request body", env.Error, body)
	}
}

func TestCreateProductValidationError(t *testing.T) {
	h := newTestRouter(&fakeProductUC{
		create: func(context.Context, *usecase.CreateProductReq) (*domain.Product, error) {
			return nil, e.Validation("name is required")
		},
	}, nil, nil)

	code, env := do(t, h, http.MethodPost, "/api/products", `{"name":"","price":1}`)
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "name is required", env.Error)
}

func TestUpdateProductPassesOnlyProvidedFields(t *testing.T) {
	var got *usecase.UpdateProductReq
	h := newTestRouter(&fakeProductUC{
		update: func(_ context.Context, req *usecase.UpdateProductReq) (*domain.Product, error) {
			got = req
			return widget(), nil
		},
	}, nil, nil)

	code, _ := do(t, h, http.MethodPut, "/api/products/1", `{"stock":3}`)
	require.Equal(t, http.StatusOK, code)

	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.ID)
	assert.Nil(t, got.Name)
	assert.Nil(t, got.Price)
	require.NotNil(t, got.Stock)
	assert.Equal(t, 3, *got.Stock)
}

func TestDeleteProduct(t *testing.T) {
	h := newTestRouter(&fakeProductUC{
		delete: func(_ context.Context, id int64) error {
			if id == 1 {
				return nil
			}
			return e.NotFound("product %d not found", id)
		},
	}, nil, nil)

	code, env := do(t, h, http.MethodDelete, "/api/products/1", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"message":"product deleted"}`, string(env.Data))

	code, _ = do(t, h, http.MethodDelete, "/api/products/2", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestInternalErrorsAreNotExposed(t *testing.T) {
	h := newTestRouter(&fakeProductUC{
		list: func(context.Context) ([]domain.Product, error) {
			return nil, e.Wrap("ProductRepo.List", errors.New("connection refused to 10.0.0.5"))
		},
	}, nil, nil)

	code, env := do(t, h, http.MethodGet, "/api/products", "")
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "internal server error", env.Error)
}

func placedOrder() *domain.Order {
	return &domain.Order{
		ID:            10,
		CustomerName:  "Ana",
		CustomerEmail: "ana@example.com",
		Status:        domain.OrderStatusPending,
		TotalAmount:   decimal.RequireFromString("19.98"),
		CreatedAt:     fixedTime,
		UpdatedAt:     fixedTime,
	}
}

func TestPlaceOrder(t *testing.T) {
	var got *usecase.PlaceOrderReq
	h := newTestRouter(nil, &fakeOrderUC{
		place: func(_ context.Context, req *usecase.PlaceOrderReq) (*domain.Order, error) {
			got = req
			return placedOrder(), nil
		},
	}, nil)

	body := `{"customerName":"Ana","customerEmail":"ana@example.com","items":[{"productId":1,"quantity":2}]}`
	code, env := do(t, h, http.MethodPost, "/api/orders", body, idempotencyKeyHeader, "abc-1")
	require.Equal(t, http.StatusCreated, code)
	assert.JSONEq(t, `{
		"id": 10, "customerName": "Ana", "customerEmail": "ana@example.com",
		"status": "pending", "totalAmount": 19.98,
		"createdAt": "2024-05-01T12:00:00Z", "updatedAt": "2024-05-01T12:00:00Z"
	}`, string(env.Data))

	require.NotNil(t, got)
	assert.Equal(t, "abc-1", got.IdempotencyKey)
	require.Len(t, got.Items, 1)
	assert.Equal(t, int64(1), got.Items[0].ProductID)
	assert.Equal(t, 2, got.Items[0].Quantity)
}

func TestPlaceOrderErrorMapping(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
		msg  string
	}{
		{"missing product", e.NotFound("product 99 not found"), http.StatusBadRequest, "product 99 not found"},
		{"insufficient stock", e.InsufficientStock("insufficient stock for product 1"), http.StatusBadRequest, "insufficient stock for product 1"},
		{"validation", e.Validation("items must not be empty"), http.StatusBadRequest, "items must not be empty"},
		{"in flight", e.Conflict("order with this idempotency key is being processed"), http.StatusConflict, "order with this idempotency key is being processed"},
		{"storage", errors.New("tx aborted"), http.StatusInternalServerError, "internal server error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestRouter(nil, &fakeOrderUC{
				place: func(context.Context, *usecase.PlaceOrderReq) (*domain.Order, error) {
					return nil, tt.err
				},
			}, nil)

			code, env := do(t, h, http.MethodPost, "/api/orders", `{"customerName":"Ana","customerEmail":"ana@example.com","items":[]}`)
			assert.Equal(t, tt.code, code)
			assert.False(t, env.Success)
			assert.Equal(t, tt.msg, env.Error)
		})
	}
}

func TestGetOrderWithItems(t *testing.T) {
	h := newTestRouter(nil, &fakeOrderUC{
		get: func(_ context.Context, id int64) (*domain.OrderWithLines, error) {
			if id != 10 {
				return nil, e.NotFound("order %d not found", id)
			}
			return &domain.OrderWithLines{
				Order: placedOrder(),
				Lines: []domain.OrderLine{{ID: 1, OrderID: 10, ProductID: 1, Quantity: 2, UnitPrice: decimal.RequireFromString("9.99")}},
			}, nil
		},
	}, nil)

	code, env := do(t, h, http.MethodGet, "/api/orders/10", "")
	require.Equal(t, http.StatusOK, code)

	var body struct {
		Order OrderResponse     `json:"order"`
		Items []json.RawMessage `json:"items"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &body))
	assert.Equal(t, int64(10), body.Order.ID)
	require.Len(t, body.Items, 1)
	assert.JSONEq(t, `{"id":1,"orderId":10,"productId":1,"quantity":2,"unitPrice":9.99}`, string(body.Items[0]))

	code, _ = do(t, h, http.MethodGet, "/api/orders/11", "")
	assert.Equal(t, http.StatusNotFound, code)
}

func TestUpdateOrderStatus(t *testing.T) {
	h := newTestRouter(nil, &fakeOrderUC{
		updateStatus: func(_ context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
			if !status.IsValid() {
				return nil, e.Validation("invalid status %q", status)
			}
			o := placedOrder()
			o.ID = id
			o.Status = status
			return o, nil
		},
	}, nil)

	code, env := do(t, h, http.MethodPut, "/api/orders/10/status", `{"status":"shipped"}`)
	require.Equal(t, http.StatusOK, code)
	var o OrderResponse
	require.NoError(t, json.Unmarshal(env.Data, &o))
	assert.Equal(t, "shipped", o.Status)

	code, _ = do(t, h, http.MethodPut, "/api/orders/10/status", `{"status":"lost"}`)
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestHealthz(t *testing.T) {
	code, env := do(t, newTestRouter(nil, nil, fakePinger{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, code)
	assert.JSONEq(t, `{"status":"ok"}`, string(env.Data))

	code, env = do(t, newTestRouter(nil, nil, fakePinger{err: errors.New("down")}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, code)
	assert.False(t, env.Success)
}

func TestUnknownRoute(t *testing.T) {
	code, env := do(t, newTestRouter(nil, nil, nil), http.MethodGet, "/api/nothing", "")
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "route not found", env.Error)
}
