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

const productColumns = `id, name, description, price, stock, created_at, updated_at`

// ProductRepo реализует репозиторий товаров поверх PostgreSQL.
type ProductRepo struct {
	getter *tr.Getter
	conv   converter.ProductConverter
}

func NewProductRepo(getter *tr.Getter, conv converter.ProductConverter) *ProductRepo {
	return &ProductRepo{
		getter: getter,
		conv:   conv,
	}
}

// List возвращает все товары по возрастанию id.
func (p *ProductRepo) List(ctx context.Context) ([]domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products ORDER BY id`

	rows, err := p.getter.FromCtx(ctx).Query(ctx, query)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	models, err := pgx.CollectRows(rows, pgx.RowToStructByName[converter.ProductModel])
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToArrEntity(models), nil
}

// GetByID возвращает товар или nil, если его нет.
func (p *ProductRepo) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	query := `SELECT ` + productColumns + ` FROM products WHERE id = $1`

	return p.queryOne(ctx, query, id)
}

func (p *ProductRepo) Create(ctx context.Context, product *domain.Product) (*domain.Product, error) {
	query := `
		INSERT INTO products (name, description, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING ` + productColumns

	model := p.conv.ToModel(product)
	created, err := p.queryOne(ctx, query, model.Name, model.Description, model.Price, model.Stock)
	if err != nil {
		return nil, err
	}

	return created, nil
}

// Update применяет заданные поля патча и обновляет updated_at. nil, nil — товара нет.
func (p *ProductRepo) Update(ctx context.Context, id int64, patch domain.ProductPatch) (*domain.Product, error) {
	// $3 — признак того, что описание передано: пустая строка очищает его
	query := `
		UPDATE products SET
			name        = COALESCE($2, name),
			description = CASE WHEN $3::boolean THEN NULLIF($4::text, '') ELSE description END,
			price       = COALESCE($5, price),
			stock       = COALESCE($6, stock),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING ` + productColumns

	var description string
	if patch.Description != nil {
		description = *patch.Description
	}

	return p.queryOne(ctx, query, id, patch.Name, patch.Description != nil, description, patch.Price, patch.Stock)
}

// Delete удаляет товар. Товар, на который ссылаются заказы, удалить нельзя.
func (p *ProductRepo) Delete(ctx context.Context, id int64) (bool, error) {
	tag, err := p.getter.FromCtx(ctx).Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		if postgresForeignKeyViolation(err) {
			return false, e.Wrap(whereami.WhereAmI(), e.Validation("product is referenced by existing orders"))
		}
		return false, e.Wrap(whereami.WhereAmI(), err)
	}

	return tag.RowsAffected() > 0, nil
}

// DecrementStock списывает quantity одним условным UPDATE, остаток не уходит в минус.
func (p *ProductRepo) DecrementStock(ctx context.Context, id int64, quantity int) (*domain.Product, error) {
	query := `
		UPDATE products
		SET stock = stock - $2, updated_at = NOW()
		WHERE id = $1 AND stock >= $2
		RETURNING ` + productColumns

	product, err := p.queryOne(ctx, query, id, quantity)
	if err != nil {
		return nil, err
	}
	if product != nil {
		return product, nil
	}

	var exists bool
	err = p.getter.FromCtx(ctx).
		QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM products WHERE id = $1)`, id).
		Scan(&exists)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}
	if !exists {
		return nil, e.Wrap(whereami.WhereAmI(), e.NotFound("product %d not found", id))
	}

	return nil, e.Wrap(whereami.WhereAmI(), e.InsufficientStock("insufficient stock for product %d", id))
}

// queryOne выполняет запрос, возвращающий не больше одного товара.
func (p *ProductRepo) queryOne(ctx context.Context, query string, args ...any) (*domain.Product, error) {
	rows, err := p.getter.FromCtx(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	model, err := pgx.CollectExactlyOneRow(rows, pgx.RowToStructByName[converter.ProductModel])
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		if postgresCheckViolation(err) {
			return nil, e.Wrap(whereami.WhereAmI(), e.Validation("product violates catalog constraints"))
		}
		return nil, e.Wrap(whereami.WhereAmI(), err)
	}

	return p.conv.ToEntity(&model), nil
}
