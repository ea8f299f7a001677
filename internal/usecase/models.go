package usecase

import (
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PRODUCT USECASE

// CreateProductReq — запрос на создание товара.
type CreateProductReq struct {
	Name        string          `validate:"notblank" label:"name"`
	Description string          `label:"description"`
	Price       decimal.Decimal `validate:"gt=0" label:"price"`
	Stock       int             `validate:"gte=0,lte=2147483647" label:"stock"`
}

// UpdateProductReq — частичное обновление товара, nil-поля не меняются.
type UpdateProductReq struct {
	ID          int64            `validate:"gt=0" label:"id"`
	Name        *string          `validate:"omitempty,notblank" label:"name"`
	Description *string          `label:"description"`
	Price       *decimal.Decimal `validate:"omitempty,gt=0" label:"price"`
	Stock       *int             `validate:"omitempty,gte=0,lte=2147483647" label:"stock"`
}

// ORDER USECASE

// PlaceOrderReq — запрос на оформление заказа.
// IdempotencyKey необязателен: пустой ключ отключает защиту от повторов.
type PlaceOrderReq struct {
	CustomerName   string           `validate:"notblank" label:"customerName"`
	CustomerEmail  string           `validate:"required,email" label:"customerEmail"`
	Items          []PlaceOrderItem `validate:"required,min=1,dive" label:"items"`
	IdempotencyKey string           `label:"idempotencyKey"`
}

type PlaceOrderItem struct {
	ProductID int64 `validate:"gt=0" label:"productId"`
	Quantity  int   `validate:"gt=0,lte=2147483647" label:"quantity"`
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
	Failed     OutboxStatus = "failed"
)

type OutboxEventType string

const (
	OrderPlaced        OutboxEventType = "order.placed"
	OrderStatusChanged OutboxEventType = "order.status_changed"
)

// OutboxEvent — доменное событие, ожидающее публикации в Kafka.
type OutboxEvent struct {
	ID            int64
	EventID       uuid.UUID
	EventType     OutboxEventType
	AggregateID   int64 // id заказа, ключ сообщения Kafka
	Payload       []byte
	Status        OutboxStatus
	Attempts      int
	LastError     *string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	ProcessedAt   *time.Time
}

// OrderEventPayload — JSON-тело событий заказа.
type OrderEventPayload struct {
	EventID     uuid.UUID           `json:"eventId"`
	EventType   OutboxEventType     `json:"eventType"`
	OccurredAt  time.Time           `json:"occurredAt"`
	OrderID     int64               `json:"orderId"`
	Status      domain.OrderStatus  `json:"status"`
	TotalAmount decimal.Decimal     `json:"totalAmount"`
	Customer    *OrderEventCustomer `json:"customer,omitempty"`
	Items       []OrderEventItem    `json:"items,omitempty"`
}

type OrderEventCustomer struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

type OrderEventItem struct {
	ProductID int64           `json:"productId"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
}

// INFRASTRUCTURE

// WriteMessageReq — сообщение для публикации в брокер.
type WriteMessageReq struct {
	Key       int64
	EventID   uuid.UUID
	EventType OutboxEventType
	Payload   []byte
}

// MAPPERS

func NewCreateProductReq(name, description string, price decimal.Decimal, stock int) *CreateProductReq {
	return &CreateProductReq{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}
}

func NewUpdateProductReq(id int64, name, description *string, price *decimal.Decimal, stock *int) *UpdateProductReq {
	return &UpdateProductReq{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}
}

func NewPlaceOrderReq(customerName, customerEmail string, items []PlaceOrderItem, idempotencyKey string) *PlaceOrderReq {
	return &PlaceOrderReq{
		CustomerName:   customerName,
		CustomerEmail:  customerEmail,
		Items:          items,
		IdempotencyKey: idempotencyKey,
	}
}

func NewPlaceOrderItem(productID int64, quantity int) PlaceOrderItem {
	return PlaceOrderItem{ProductID: productID, Quantity: quantity}
}

func NewOutboxEvent(eventID uuid.UUID, eventType OutboxEventType, aggregateID int64, payload []byte) *OutboxEvent {
	return &OutboxEvent{
		EventID:     eventID,
		EventType:   eventType,
		AggregateID: aggregateID,
		Payload:     payload,
		Status:      Pending,
	}
}

func NewWriteMessageReq(event *OutboxEvent) *WriteMessageReq {
	return &WriteMessageReq{
		Key:       event.AggregateID,
		EventID:   event.EventID,
		EventType: event.EventType,
		Payload:   event.Payload,
	}
}

func (r *UpdateProductReq) Patch() domain.ProductPatch {
	return domain.ProductPatch{
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
	}
}
