package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product описывает товар каталога
type Product struct {
	ID          int64
	Name        string
	Description string
	Price       decimal.Decimal // NUMERIC(12,2)
	Stock       int
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func NewProduct(name, description string, price decimal.Decimal, stock int) *Product {
	return &Product{
		Name:        name,
		Description: description,
		Price:       price,
		Stock:       stock,
	}
}

// ProductPatch — частичное обновление товара. nil-поле не меняется.
type ProductPatch struct {
	Name        *string
	Description *string
	Price       *decimal.Decimal
	Stock       *int
}

// IsEmpty сообщает, что ни одно поле не задано.
func (p ProductPatch) IsEmpty() bool {
	return p.Name == nil && p.Description == nil && p.Price == nil && p.Stock == nil
}

// HasStock сообщает, хватает ли остатка на quantity единиц.
func (p *Product) HasStock(quantity int) bool {
	return p.Stock >= quantity
}
