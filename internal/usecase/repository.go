package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/shop-backend/internal/domain"
)

// ProductRepository — хранилище каталога. Методы работают в транзакции из ctx, если она есть.
type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	// GetByID возвращает nil, nil, если товара нет.
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Create(ctx context.Context, product *domain.Product) (*domain.Product, error)
	// Update возвращает nil, nil, если товара нет.
	Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id int64) (bool, error)
	// DecrementStock атомарно уменьшает остаток: e.ErrInsufficientStock, если остатка не хватает,
	// e.ErrNotFound, если товара нет.
	DecrementStock(ctx context.Context, id int64, quantity int) (*domain.Product, error)
}

type OrderRepository interface {
	List(ctx context.Context) ([]domain.Order, error)
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error)
	CreateWithLines(ctx context.Context, order *domain.Order, lines []domain.OrderLine) (*domain.Order, error)
	UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error)
	GetWithLines(ctx context.Context, id int64) (*domain.OrderWithLines, error)
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	// Reschedule возвращает событие в pending до nextAttemptAt.
	Reschedule(ctx context.Context, id int64, nextAttemptAt time.Time, lastErr string) error
	MarkAsFailed(ctx context.Context, id int64, lastErr string) error
}
