package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses — все допустимые статусы в порядке жизненного цикла.
var OrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusProcessing,
	OrderStatusShipped,
	OrderStatusDelivered,
	OrderStatusCancelled,
}

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	default:
		return false
	}
}

// Order описывает заказ. TotalAmount считается один раз при создании.
type Order struct {
	ID            int64
	CustomerName  string
	CustomerEmail string
	Status        OrderStatus
	TotalAmount   decimal.Decimal
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func NewOrder(customerName, customerEmail string, total decimal.Decimal) *Order {
	return &Order{
		CustomerName:  customerName,
		CustomerEmail: customerEmail,
		Status:        OrderStatusPending,
		TotalAmount:   total,
	}
}

// OrderLine — позиция заказа. UnitPrice фиксирует цену товара на момент заказа.
type OrderLine struct {
	ID        int64
	OrderID   int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

func NewOrderLine(productID int64, quantity int, unitPrice decimal.Decimal) *OrderLine {
	return &OrderLine{
		ProductID: productID,
		Quantity:  quantity,
		UnitPrice: unitPrice,
	}
}

// Total возвращает стоимость позиции.
func (l OrderLine) Total() decimal.Decimal {
	return l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type OrderWithLines struct {
	Order *Order
	Lines []OrderLine
}
