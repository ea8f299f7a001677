package usecase

import (
	"context"
	"strings"

	"github.com/DRSN-tech/shop-backend/internal/domain"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

// ProductUseCase реализует бизнес-логику каталога товаров.
type ProductUseCase struct {
	productRepo ProductRepository
	validator   *Validator
	logger      logger.Logger
}

func NewProductUC(productRepo ProductRepository, validator *Validator, logger logger.Logger) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		validator:   validator,
		logger:      logger,
	}
}

func (p *ProductUseCase) ListProducts(ctx context.Context) ([]domain.Product, error) {
	const op = "ProductUseCase.ListProducts"

	products, err := p.productRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	return products, nil
}

func (p *ProductUseCase) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	const op = "ProductUseCase.GetProduct"

	product, err := p.productRepo.GetByID(ctx, id)
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if product == nil {
		return nil, productNotFound(id)
	}

	return product, nil
}

// CreateProduct валидирует и сохраняет новый товар. Остаток по умолчанию 0.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	req.Name = strings.TrimSpace(req.Name)
	if err := p.validator.Struct(req); err != nil {
		return nil, e.Wrap(op, err)
	}
	if err := validatePricePrecision(req.Price); err != nil {
		return nil, e.Wrap(op, err)
	}

	product, err := p.productRepo.Create(ctx, domain.NewProduct(req.Name, req.Description, req.Price, req.Stock))
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	p.logger.Infof("product created: id=%d name=%q stock=%d", product.ID, product.Name, product.Stock)
	return product, nil
}

// UpdateProduct применяет частичное обновление. Пустой патч только обновляет updatedAt.
func (p *ProductUseCase) UpdateProduct(ctx context.Context, req *UpdateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.UpdateProduct"

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		req.Name = &name
	}
	if err := p.validator.Struct(req); err != nil {
		return nil, e.Wrap(op, err)
	}
	if req.Price != nil {
		if err := validatePricePrecision(*req.Price); err != nil {
			return nil, e.Wrap(op, err)
		}
	}

	product, err := p.productRepo.Update(ctx, req.ID, req.Patch())
	if err != nil {
		return nil, e.Wrap(op, err)
	}
	if product == nil {
		return nil, productNotFound(req.ID)
	}

	return product, nil
}

func (p *ProductUseCase) DeleteProduct(ctx context.Context, id int64) error {
	const op = "ProductUseCase.DeleteProduct"

	deleted, err := p.productRepo.Delete(ctx, id)
	if err != nil {
		return e.Wrap(op, err)
	}
	if !deleted {
		return productNotFound(id)
	}

	p.logger.Infof("product deleted: id=%d", id)
	return nil
}

func productNotFound(id int64) error {
	return e.NotFound("product %d not found", id)
}
