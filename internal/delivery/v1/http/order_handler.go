package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

const idempotencyKeyHeader = "Idempotency-Key"

type OrderHandler struct {
	orderUsecase usecase.OrderUC
	logger       logger.Logger
}

func NewOrderHandler(orderUsecase usecase.OrderUC, logger logger.Logger) *OrderHandler {
	return &OrderHandler{orderUsecase: orderUsecase, logger: logger}
}

func (o *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := o.orderUsecase.ListOrders(r.Context())
	if err != nil {
		o.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewOrdersResponse(orders))
}

func (o *OrderHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		o.fail(w, err)
		return
	}

	order, err := o.orderUsecase.GetOrder(r.Context(), id)
	if err != nil {
		o.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewOrderWithItemsResponse(order))
}

// placeOrder оформляет заказ. Отсутствующий товар здесь — ошибка запроса (400), а не 404.
func (o *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	var req PlaceOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		o.fail(w, err)
		return
	}

	items := make([]usecase.PlaceOrderItem, 0, len(req.Items))
	for _, item := range req.Items {
		items = append(items, usecase.NewPlaceOrderItem(item.ProductID, item.Quantity))
	}

	order, err := o.orderUsecase.PlaceOrder(r.Context(), usecase.NewPlaceOrderReq(
		req.CustomerName,
		req.CustomerEmail,
		items,
		r.Header.Get(idempotencyKeyHeader),
	))
	if err != nil {
		logError(o.logger, err)
		if e.KindOf(err) == e.KindNotFound {
			WriteErrorStatus(w, http.StatusBadRequest, e.Message(err))
			return
		}
		WriteError(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, NewOrderResponse(order))
}

func (o *OrderHandler) updateOrderStatus(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		o.fail(w, err)
		return
	}

	var req UpdateOrderStatusRequest
	if err := decodeJSON(w, r, &req); err != nil {
		o.fail(w, err)
		return
	}

	order, err := o.orderUsecase.UpdateOrderStatus(r.Context(), id, domain.OrderStatus(req.Status))
	if err != nil {
		o.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewOrderResponse(order))
}

func (o *OrderHandler) fail(w http.ResponseWriter, err error) {
	logError(o.logger, err)
	WriteError(w, err)
}
