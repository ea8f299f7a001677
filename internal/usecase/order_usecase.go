package usecase

import (
	"cmp"
	"context"
	"encoding/json"
	"slices"
	"strings"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// OrderUseCase оформляет заказы и ведёт их статусы.
// Все изменения одного вызова (остатки, заказ, позиции, событие outbox) выполняются в одной транзакции.
type OrderUseCase struct {
	orderRepo   OrderRepository
	productRepo ProductRepository
	outboxRepo  OutboxRepository
	trManager   tr.Manager
	idempotency IdempotencyStore // nil — идемпотентность выключена
	validator   *Validator
	logger      logger.Logger
}

func NewOrderUC(
	orderRepo OrderRepository,
	productRepo ProductRepository,
	outboxRepo OutboxRepository,
	trManager tr.Manager,
	idempotency IdempotencyStore,
	validator *Validator,
	logger logger.Logger,
) *OrderUseCase {
	return &OrderUseCase{
		orderRepo:   orderRepo,
		productRepo: productRepo,
		outboxRepo:  outboxRepo,
		trManager:   trManager,
		idempotency: idempotency,
		validator:   validator,
		logger:      logger,
	}
}

// PlaceOrder проверяет запрос, фиксирует цены, списывает остатки и сохраняет заказ с позициями.
// При любой ошибке откатываются все списания и вставки.
func (o *OrderUseCase) PlaceOrder(ctx context.Context, req *PlaceOrderReq) (*domain.Order, error) {
	const op = "OrderUseCase.PlaceOrder"

	req.CustomerName = strings.TrimSpace(req.CustomerName)
	req.CustomerEmail = strings.TrimSpace(req.CustomerEmail)
	if err := o.validator.Struct(req); err != nil {
		return nil, e.Wrap(op, err)
	}

	key := strings.TrimSpace(req.IdempotencyKey)
	if key == "" || o.idempotency == nil {
		order, err := o.placeOrder(ctx, req)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		return order, nil
	}

	// Повтор запроса с тем же ключом возвращает исходный заказ
	replayed, err := o.recallOrder(ctx, key)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if replayed != nil {
		o.logger.Infof("idempotent replay: key=%q order_id=%d", key, replayed.ID)
		return replayed, nil
	}

	locked, err := o.idempotency.TryLock(ctx, key)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if !locked {
		return nil, e.Conflict("order with idempotency key %q is already being processed", key)
	}

	order, err := o.placeOrder(ctx, req)
	if err != nil {
		if uerr := o.idempotency.Unlock(context.WithoutCancel(ctx), key); uerr != nil {
			o.logger.Warnf("failed to release idempotency key %q: %v", key, e.Wrap(op, uerr))
		}
		return nil, e.Wrap(op, err)
	}

	if err := o.idempotency.Remember(context.WithoutCancel(ctx), key, order.ID); err != nil {
		o.logger.Warnf("failed to remember idempotency key %q: %v", key, e.Wrap(op, err))
	}

	return order, nil
}

func (o *OrderUseCase) placeOrder(ctx context.Context, req *PlaceOrderReq) (*domain.Order, error) {
	var order *domain.Order

	err := o.trManager.Do(ctx, func(ctx context.Context) error {
		lines := make([]domain.OrderLine, 0, len(req.Items))
		total := decimal.Zero

		for _, item := range req.Items {
			product, err := o.productRepo.GetByID(ctx, item.ProductID)
			if err != nil {
				return err
			}
			if product == nil {
				return productNotFound(item.ProductID)
			}
			if !product.HasStock(item.Quantity) {
				return e.InsufficientStock(
					"insufficient stock for product %d: requested %d, available %d",
					product.ID, item.Quantity, product.Stock,
				)
			}

			line := domain.NewOrderLine(product.ID, item.Quantity, product.Price)
			total = total.Add(line.Total())
			lines = append(lines, *line)
		}

		if total.GreaterThanOrEqual(maxOrderTotal) {
			return e.Validation("order total must be less than %s", maxOrderTotal.String())
		}

		// условное списание: параллельный заказ мог забрать остаток после чтения.
		// Строки products блокируются строго по возрастанию id.
		for _, item := range decrementOrder(req.Items) {
			if _, err := o.productRepo.DecrementStock(ctx, item.ProductID, item.Quantity); err != nil {
				return err
			}
		}

		created, err := o.orderRepo.CreateWithLines(ctx, domain.NewOrder(req.CustomerName, req.CustomerEmail, total), lines)
		if err != nil {
			return err
		}

		if err := o.publish(ctx, OrderPlaced, created, lines); err != nil {
			return err
		}

		order = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	o.logger.Infof("order placed: id=%d items=%d total=%s", order.ID, len(req.Items), order.TotalAmount.StringFixed(2))
	return order, nil
}

// UpdateOrderStatus меняет статус заказа. Переходы между статусами не ограничиваются.
// Отсутствие заказа проверяется раньше статуса: для несуществующего заказа всегда NotFound.
func (o *OrderUseCase) UpdateOrderStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	const op = "OrderUseCase.UpdateOrderStatus"

	if !status.IsValid() {
		existing, err := o.orderRepo.GetByID(ctx, id)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		if existing == nil {
			return nil, orderNotFound(id)
		}
		return nil, e.Wrap(op, invalidStatus(status))
	}

	var order *domain.Order
	err := o.trManager.Do(ctx, func(ctx context.Context) error {
		updated, err := o.orderRepo.UpdateStatus(ctx, id, status)
		if err != nil {
			return err
		}
		if updated == nil {
			return orderNotFound(id)
		}

		if err := o.publish(ctx, OrderStatusChanged, updated, nil); err != nil {
			return err
		}

		order = updated
		return nil
	})
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return order, nil
}

func (o *OrderUseCase) GetOrder(ctx context.Context, id int64) (*domain.OrderWithLines, error) {
	const op = "OrderUseCase.GetOrder"

	order, err := o.orderRepo.GetWithLines(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if order == nil {
		return nil, orderNotFound(id)
	}

	return order, nil
}

func (o *OrderUseCase) ListOrders(ctx context.Context) ([]domain.Order, error) {
	const op = "OrderUseCase.ListOrders"

	orders, err := o.orderRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return orders, nil
}

// recallOrder возвращает заказ, ранее созданный по ключу, или nil.
func (o *OrderUseCase) recallOrder(ctx context.Context, key string) (*domain.Order, error) {
	orderID, ok, err := o.idempotency.Recall(ctx, key)
	if err != nil || !ok {
		return nil, err
	}

	return o.orderRepo.GetByID(ctx, orderID)
}

// publish пишет событие заказа в outbox в текущей транзакции.
func (o *OrderUseCase) publish(ctx context.Context, eventType OutboxEventType, order *domain.Order, lines []domain.OrderLine) error {
	eventID := uuid.New()

	payload := OrderEventPayload{
		EventID:     eventID,
		EventType:   eventType,
		OccurredAt:  time.Now().UTC(),
		OrderID:     order.ID,
		Status:      order.Status,
		TotalAmount: order.TotalAmount,
	}
	if eventType == OrderPlaced {
		payload.Customer = &OrderEventCustomer{Name: order.CustomerName, Email: order.CustomerEmail}
		payload.Items = make([]OrderEventItem, 0, len(lines))
		for _, l := range lines {
			payload.Items = append(payload.Items, OrderEventItem{
				ProductID: l.ProductID,
				Quantity:  l.Quantity,
				UnitPrice: l.UnitPrice,
			})
		}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	_, err = o.outboxRepo.Create(ctx, NewOutboxEvent(eventID, eventType, order.ID, data))
	return err
}

// decrementOrder возвращает копию позиций, отсортированную по productId.
func decrementOrder(items []PlaceOrderItem) []PlaceOrderItem {
	sorted := slices.Clone(items)
	slices.SortStableFunc(sorted, func(a, b PlaceOrderItem) int {
		return cmp.Compare(a.ProductID, b.ProductID)
	})
	return sorted
}

func orderNotFound(id int64) error {
	return e.NotFound("order %d not found", id)
}

func invalidStatus(status domain.OrderStatus) error {
	names := make([]string, 0, len(domain.OrderStatuses))
	for _, s := range domain.OrderStatuses {
		names = append(names, string(s))
	}

	return e.Validation("invalid status %q: must be one of %s", status, strings.Join(names, ", "))
}
