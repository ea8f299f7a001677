package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/e"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := p.productUsecase.ListProducts(r.Context())
	if err != nil {
		p.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductsResponse(products))
}

func (p *ProductHandler) getProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		p.fail(w, err)
		return
	}

	product, err := p.productUsecase.GetProduct(r.Context(), id)
	if err != nil {
		p.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		p.fail(w, err)
		return
	}

	var (
		description string
		stock       int
	)
	if req.Description != nil {
		description = *req.Description
	}
	if req.Stock != nil {
		stock = *req.Stock
	}

	product, err := p.productUsecase.CreateProduct(r.Context(),
		usecase.NewCreateProductReq(req.Name, description, req.Price, stock))
	if err != nil {
		p.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusCreated, NewProductResponse(product))
}

func (p *ProductHandler) updateProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		p.fail(w, err)
		return
	}

	var req UpdateProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		p.fail(w, err)
		return
	}

	product, err := p.productUsecase.UpdateProduct(r.Context(),
		usecase.NewUpdateProductReq(id, req.Name, req.Description, req.Price, req.Stock))
	if err != nil {
		p.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, NewProductResponse(product))
}

func (p *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		p.fail(w, err)
		return
	}

	if err := p.productUsecase.DeleteProduct(r.Context(), id); err != nil {
		p.fail(w, err)
		return
	}

	WriteSuccess(w, http.StatusOK, MessageResponse{Message: "product deleted"})
}

func (p *ProductHandler) fail(w http.ResponseWriter, err error) {
	logError(p.logger, err)
	WriteError(w, err)
}

// logError пишет внутренние ошибки как error, клиентские — как warn.
func logError(log logger.Logger, err error) {
	if e.KindOf(err) == e.KindInternal {
		log.Errorf(err, "request failed")
		return
	}
	log.Warnf("request rejected: %v", err)
}
