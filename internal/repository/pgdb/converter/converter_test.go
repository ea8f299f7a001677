package converter

import (
	"testing"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestProductDescriptionNullability(t *testing.T) {
	conv := NewProductConverter()

	model := conv.ToModel(domain.NewProduct("Widget", "", decimal.RequireFromString("1.50"), 2))
	assert.Nil(t, model.Description)

	model = conv.ToModel(domain.NewProduct("Widget", "Blue", decimal.RequireFromString("1.50"), 2))
	if assert.NotNil(t, model.Description) {
		assert.Equal(t, "Blue", *model.Description)
	}

	model.Description = nil
	assert.Equal(t, "", conv.ToEntity(model).Description)
}

func TestNilModelsConvertToNil(t *testing.T) {
	assert.Nil(t, NewProductConverter().ToEntity(nil))
	assert.Nil(t, NewOrderConverter().ToEntity(nil))
	assert.Nil(t, NewOutboxEventConverter().ToEntity(nil))
}
