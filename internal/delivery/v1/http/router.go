package http

import (
	"net/http"

	"github.com/DRSN-tech/shop-backend/internal/usecase"
	"github.com/DRSN-tech/shop-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	router *chi.Mux
	logger logger.Logger
}

func NewRouter(router *chi.Mux, logger logger.Logger) *Router {
	return &Router{router: router, logger: logger}
}

func (r *Router) Init(prUC usecase.ProductUC, orUC usecase.OrderUC, db Pinger) {
	r.router.Use(middleware.RequestID)
	r.router.Use(accessLog(r.logger))
	r.router.Use(middleware.Recoverer)

	r.router.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		WriteErrorStatus(w, http.StatusNotFound, "route not found")
	})
	r.router.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		WriteErrorStatus(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	r.router.Get("/healthz", NewHealthHandler(db, r.logger).healthz)
	r.router.Handle("/metrics", promhttp.Handler())

	r.router.Route("/api", func(api chi.Router) {
		registerProductRoutes(api, NewProductHandler(prUC, r.logger))
		registerOrderRoutes(api, NewOrderHandler(orUC, r.logger))
	})
}

func (r *Router) Handler() http.Handler {
	return r.router
}

func registerProductRoutes(router chi.Router, prHandler *ProductHandler) {
	router.Route("/products", func(pr chi.Router) {
		pr.Get("/", prHandler.listProducts)
		pr.Post("/", prHandler.createProduct)
		pr.Get("/{id}", prHandler.getProduct)
		pr.Put("/{id}", prHandler.updateProduct)
		pr.Delete("/{id}", prHandler.deleteProduct)
	})
}

func registerOrderRoutes(router chi.Router, orHandler *OrderHandler) {
	router.Route("/orders", func(or chi.Router) {
		or.Get("/", orHandler.listOrders)
		or.Post("/", orHandler.placeOrder)
		or.Get("/{id}", orHandler.getOrder)
		or.Put("/{id}/status", orHandler.updateOrderStatus)
	})
}
