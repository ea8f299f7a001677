package pgdb

import (
	"context"
	"errors"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/repository/pgdb/converter"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/tr"
	"github.com/jackc/pgx/v5"
	"github.com/jimlawless/whereami"
)

const (
	orderColumns     = `id, customer_name, customer_email, status, total_amount, created_at, updated_at`
	orderItemColumns = `id, order_id, product_id, quantity, unit_price`
)

// OrderRepo реализует репозиторий заказов и их позиций поверх PostgreSQL.
type OrderRepo struct {
	getter    *tr.Getter
	trManager tr.Manager
	conv      converter.OrderConverter
}

func NewOrderRepo(getter *tr.Getter, trManager tr.Manager, conv converter.OrderConverter) *OrderRepo {
	return &OrderRepo{
		getter:    getter,
		trManager: trManager,
		conv:      conv,
	}
}

func (o *OrderRepo) List(ctx context.Context) ([]domain.Order, error) {
	rows, err := o.getter.FromCtx(ctx).Query(ctx, `SELECT `+orderColumns+` FROM orders ORDER BY id`)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[converter.OrderModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToArrEntity(models), nil
}

// GetByID возвращает заказ или nil, если его нет.
func (o *OrderRepo) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	return o.queryOne(ctx, `SELECT `+orderColumns+` FROM orders WHERE id = $1`, id)
}

func (o *OrderRepo) GetLines(ctx context.Context, orderID int64) ([]domain.OrderLine, error) {
	query := `SELECT ` + orderItemColumns + ` FROM order_items WHERE order_id = $1 ORDER BY id`

	rows, err := o.getter.FromCtx(ctx).Query(ctx, query, orderID)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[converter.OrderItemModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToArrLineEntity(models), nil
}

// CreateWithLines вставляет заказ и все его позиции в одной транзакции.
// Если транзакция уже открыта в ctx, запись присоединяется к ней.
func (o *OrderRepo) CreateWithLines(ctx context.Context, order *domain.Order, lines []domain.OrderLine) (*domain.Order, error) {
	var created *domain.Order

	err := o.trManager.Do(ctx, func(ctx context.Context) error {
		orderQuery := `
			INSERT INTO orders (customer_name, customer_email, status, total_amount)
			VALUES ($1, $2, $3, $4)
			RETURNING ` + orderColumns

		var err error
		created, err = o.queryOne(ctx, orderQuery,
			order.CustomerName, order.CustomerEmail, string(order.Status), order.TotalAmount,
		)
		if err != nil {
			if postgresNumericOutOfRange(err) {
				return e.Wrap(whereami.WhereAmI(), e.Validation("order total is out of range"))
			}
			return err
		}

		lineQuery := `
			INSERT INTO order_items (order_id, product_id, quantity, unit_price)
			VALUES ($1, $2, $3, $4)`

		q := o.getter.FromCtx(ctx)
		for _, line := range lines {
			if _, err := q.Exec(ctx, lineQuery, created.ID, line.ProductID, line.Quantity, line.UnitPrice); err != nil {
				if postgresForeignKeyViolation(err) {
					return e.Wrap(whereami.WhereAmI(), e.NotFound("product %d not found", line.ProductID))
				}
				return e.Wrap(whereami.WhereAmI(), err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return created, nil
}

// UpdateStatus меняет статус и updated_at. nil, nil — заказа нет.
func (o *OrderRepo) UpdateStatus(ctx context.Context, id int64, status domain.OrderStatus) (*domain.Order, error) {
	query := `
		UPDATE orders
		SET status = $2, updated_at = NOW()
		WHERE id = $1
		RETURNING ` + orderColumns

	return o.queryOne(ctx, query, id, string(status))
}

func (o *OrderRepo) GetWithLines(ctx context.Context, id int64) (*domain.OrderWithLines, error) {
	order, err := o.GetByID(ctx, id)
	if err != nil || order == nil {
		return nil, err
	}

	lines, err := o.GetLines(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.OrderWithLines{Order: order, Lines: lines}, nil
}

func (o *OrderRepo) queryOne(ctx context.Context, query string, args ...any) (*domain.Order, error) {
	rows, err := o.getter.FromCtx(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[converter.OrderModel])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return o.conv.ToEntity(&model), nil
}
