package converter

import (
	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/internal/usecase"
)

// ProductConverter преобразует сущности Product между domain и моделью PostgreSQL.
type ProductConverter interface {
	ToModel(entity *domain.Product) *ProductModel
	ToEntity(model *ProductModel) *domain.Product
	ToArrEntity(models []ProductModel) []domain.Product
}

// OrderConverter преобразует заказы и их позиции.
type OrderConverter interface {
	ToEntity(model *OrderModel) *domain.Order
	ToArrEntity(models []OrderModel) []domain.Order
	ToLineEntity(model *OrderItemModel) *domain.OrderLine
	ToArrLineEntity(models []OrderItemModel) []domain.OrderLine
}

// OutboxEventConverter преобразует сущности OutboxEvent между usecase и моделью PostgreSQL.
type OutboxEventConverter interface {
	ToModel(entity *usecase.OutboxEvent) *OutboxEventModel
	ToEntity(model *OutboxEventModel) *usecase.OutboxEvent
	ToArrEntity(models []OutboxEventModel) []*usecase.OutboxEvent
}

type productConverter struct{}

func NewProductConverter() ProductConverter { return productConverter{} }

func (productConverter) ToModel(entity *domain.Product) *ProductModel {
	if entity == nil {
		return nil
	}

	return &ProductModel{
		ID:          entity.ID,
		Name:        entity.Name,
		Description: nullableString(entity.Description),
		Price:       entity.Price,
		Stock:       entity.Stock,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   entity.UpdatedAt,
	}
}

func (productConverter) ToEntity(model *ProductModel) *domain.Product {
	if model == nil {
		return nil
	}

	return &domain.Product{
		ID:          model.ID,
		Name:        model.Name,
		Description: stringValue(model.Description),
		Price:       model.Price,
		Stock:       model.Stock,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}
}

func (c productConverter) ToArrEntity(models []ProductModel) []domain.Product {
	result := make([]domain.Product, 0, len(models))
	for i := range models {
		result = append(result, *c.ToEntity(&models[i]))
	}
	return result
}

type orderConverter struct{}

func NewOrderConverter() OrderConverter { return orderConverter{} }

func (orderConverter) ToEntity(model *OrderModel) *domain.Order {
	if model == nil {
		return nil
	}

	return &domain.Order{
		ID:            model.ID,
		CustomerName:  model.CustomerName,
		CustomerEmail: model.CustomerEmail,
		Status:        domain.OrderStatus(model.Status),
		TotalAmount:   model.TotalAmount,
		CreatedAt:     model.CreatedAt,
		UpdatedAt:     model.UpdatedAt,
	}
}

func (c orderConverter) ToArrEntity(models []OrderModel) []domain.Order {
	result := make([]domain.Order, 0, len(models))
	for i := range models {
		result = append(result, *c.ToEntity(&models[i]))
	}
	return result
}

func (orderConverter) ToLineEntity(model *OrderItemModel) *domain.OrderLine {
	if model == nil {
		return nil
	}

	return &domain.OrderLine{
		ID:        model.ID,
		OrderID:   model.OrderID,
		ProductID: model.ProductID,
		Quantity:  model.Quantity,
		UnitPrice: model.UnitPrice,
	}
}

func (c orderConverter) ToArrLineEntity(models []OrderItemModel) []domain.OrderLine {
	result := make([]domain.OrderLine, 0, len(models))
	for i := range models {
		result = append(result, *c.ToLineEntity(&models[i]))
	}
	return result
}

type outboxEventConverter struct{}

func NewOutboxEventConverter() OutboxEventConverter { return outboxEventConverter{} }

func (outboxEventConverter) ToModel(entity *usecase.OutboxEvent) *OutboxEventModel {
	if entity == nil {
		return nil
	}

	return &OutboxEventModel{
		ID:            entity.ID,
		EventID:       entity.EventID,
		EventType:     string(entity.EventType),
		AggregateID:   entity.AggregateID,
		Payload:       entity.Payload,
		Status:        string(entity.Status),
		Attempts:      entity.Attempts,
		LastError:     entity.LastError,
		NextAttemptAt: entity.NextAttemptAt,
		CreatedAt:     entity.CreatedAt,
		ProcessedAt:   entity.ProcessedAt,
	}
}

func (outboxEventConverter) ToEntity(model *OutboxEventModel) *usecase.OutboxEvent {
	if model == nil {
		return nil
	}

	return &usecase.OutboxEvent{
		ID:            model.ID,
		EventID:       model.EventID,
		EventType:     usecase.OutboxEventType(model.EventType),
		AggregateID:   model.AggregateID,
		Payload:       model.Payload,
		Status:        usecase.OutboxStatus(model.Status),
		Attempts:      model.Attempts,
		LastError:     model.LastError,
		NextAttemptAt: model.NextAttemptAt,
		CreatedAt:     model.CreatedAt,
		ProcessedAt:   model.ProcessedAt,
	}
}

func (c outboxEventConverter) ToArrEntity(models []OutboxEventModel) []*usecase.OutboxEvent {
	result := make([]*usecase.OutboxEvent, 0, len(models))
	for i := range models {
		result = append(result, c.ToEntity(&models[i]))
	}
	return result
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func stringValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
