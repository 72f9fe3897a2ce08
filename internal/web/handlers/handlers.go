package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"jewelry-catalog/internal/content"
	"jewelry-catalog/internal/domain/catalog"
	"jewelry-catalog/internal/observability"
	"jewelry-catalog/internal/services"
	"jewelry-catalog/internal/services/implementations"
)

// ProductService is the product catalog used by the handlers
type ProductService interface {
	Create(ctx context.Context, p *catalog.Product) error
	Update(ctx context.Context, p *catalog.Product) error
	Delete(ctx context.Context, id int) error
	Get(ctx context.Context, id int) (*catalog.Product, error)
	ListAll(ctx context.Context) ([]*catalog.Product, error)
	ListPublic(ctx context.Context, categorySlug, materialSlug string) ([]*catalog.Product, error)
	Showcase(ctx context.Context) ([]*catalog.Product, error)
	Related(ctx context.Context, slug string) ([]*catalog.Product, error)
	Detail(ctx context.Context, slug string) (*catalog.Product, error)
}

// TaxonomyService manages categories and materials
type TaxonomyService interface {
	ListCategories(ctx context.Context) ([]*catalog.Category, error)
	CreateCategory(ctx context.Context, name, slug string) (*catalog.Category, error)
	DeleteCategory(ctx context.Context, id int) error
	ListMaterials(ctx context.Context) ([]*catalog.Material, error)
	CreateMaterial(ctx context.Context, name, slug string) (*catalog.Material, error)
	DeleteMaterial(ctx context.Context, id int) error
}

// StockService manages in-store inventory
type StockService interface {
	List(ctx context.Context) ([]*catalog.StockItem, error)
	Get(ctx context.Context, id int) (*catalog.StockItem, error)
	Storefront(ctx context.Context, filter catalog.StockFilter) (catalog.Storefront, error)
	Create(ctx context.Context, item *catalog.StockItem) error
	Update(ctx context.Context, item *catalog.StockItem) error
	Delete(ctx context.Context, id int) error
}

// CarouselService manages home page slides
type CarouselService interface {
	List(ctx context.Context) ([]*catalog.CarouselItem, error)
	Get(ctx context.Context, id int) (*catalog.CarouselItem, error)
	Create(ctx context.Context, item *catalog.CarouselItem) error
	Update(ctx context.Context, item *catalog.CarouselItem) error
	Delete(ctx context.Context, id int) error
}

// CustomOrderService records custom design requests
type CustomOrderService interface {
	Submit(ctx context.Context, req *catalog.CustomOrderRequest) error
	List(ctx context.Context, limit int) ([]*catalog.CustomOrderRequest, error)
}

// HealthCheck probes one dependency
type HealthCheck func(ctx context.Context) error

// Deps are the collaborators served over HTTP
type Deps struct {
	Sessions     *implementations.UploadSessions
	Products     ProductService
	Taxonomy     TaxonomyService
	Stock        StockService
	Carousel     CarouselService
	CustomOrders CustomOrderService
	Pages        *content.Pages

	// ReadinessChecks run on /readyz, keyed by dependency name
	ReadinessChecks map[string]HealthCheck

	Logger        *observability.Logger
	Tracer        trace.Tracer
	HTTPMetrics   *observability.HTTPMetrics
	MaxUploadSize int64
}

type Handler struct {
	Deps
	logger *observability.Logger
	tracer trace.Tracer
}

// New creates a handler over deps
func New(deps Deps) *Handler {
	logger := deps.Logger
	if logger == nil {
		logger = observability.NopLogger()
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}
	if deps.MaxUploadSize <= 0 {
		deps.MaxUploadSize = defaultMaxUploadSize
	}
	return &Handler{
		Deps:   deps,
		logger: logger.With("http"),
		tracer: tracer,
	}
}

// NewWithContainer wires a handler from the service container
func NewWithContainer(c *services.Container, httpMetrics *observability.HTTPMetrics) *Handler {
	checks := map[string]HealthCheck{}
	if db := c.DB(); db != nil {
		checks["database"] = db.PingContext
	}
	if cacheService := c.CacheService(); cacheService.Available() {
		checks["cache"] = cacheService.Health
	}

	return New(Deps{
		Sessions:        c.UploadSessions(),
		Products:        c.ProductService(),
		Taxonomy:        c.TaxonomyService(),
		Stock:           c.StockService(),
		Carousel:        c.CarouselService(),
		CustomOrders:    c.CustomOrderService(),
		Pages:           c.Pages(),
		ReadinessChecks: checks,
		Logger:          c.Logger(),
		Tracer:          observability.GetTracer(),
		HTTPMetrics:     httpMetrics,
		MaxUploadSize:   c.Config().Storage.MaxUploadSize,
	})
}

func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(observability.TracingMiddleware(h.tracer))
	if h.HTTPMetrics != nil {
		r.Use(observability.MetricsMiddleware(h.HTTPMetrics))
	}

	r.Get("/healthz", h.healthzHandler)
	r.Get("/readyz", h.readyzHandler)

	r.Route("/api", func(r chi.Router) {
		r.Route("/products", func(r chi.Router) {
			r.Get("/", h.listProductsHandler)
			r.Get("/showcase", h.showcaseHandler)
			r.Get("/{slug}", h.productDetailHandler)
			r.Get("/{slug}/related", h.relatedProductsHandler)
		})
		r.Get("/categories", h.listCategoriesHandler)
		r.Get("/materials", h.listMaterialsHandler)
		r.Get("/stock", h.storefrontHandler)
		r.Get("/carousel", h.listCarouselHandler)
		r.Get("/pages", h.listPagesHandler)
		r.Get("/pages/{slug}", h.getPageHandler)
		r.Post("/custom-orders", h.submitCustomOrderHandler)

		r.Route("/admin", func(r chi.Router) {
			r.Route("/uploads", func(r chi.Router) {
				r.Get("/", h.listUploadsHandler)
				r.Post("/", h.createUploadHandler)
				r.Get("/{id}", h.getUploadHandler)
				r.Put("/{id}", h.reselectUploadHandler)
				r.Post("/{id}/confirm", h.confirmUploadHandler)
				r.Delete("/{id}", h.deleteUploadHandler)
			})

			r.Route("/products", func(r chi.Router) {
				r.Get("/", h.adminListProductsHandler)
				r.Post("/", h.createProductHandler)
				r.Get("/{id}", h.getProductHandler)
				r.Put("/{id}", h.updateProductHandler)
				r.Delete("/{id}", h.deleteProductHandler)
			})

			r.Route("/stock", func(r chi.Router) {
				r.Get("/", h.adminListStockHandler)
				r.Post("/", h.createStockHandler)
				r.Get("/{id}", h.getStockHandler)
				r.Put("/{id}", h.updateStockHandler)
				r.Delete("/{id}", h.deleteStockHandler)
			})

			r.Route("/carousel", func(r chi.Router) {
				r.Get("/", h.listCarouselHandler)
				r.Post("/", h.createCarouselHandler)
				r.Get("/{id}", h.getCarouselHandler)
				r.Put("/{id}", h.updateCarouselHandler)
				r.Delete("/{id}", h.deleteCarouselHandler)
			})

			r.Route("/categories", func(r chi.Router) {
				r.Get("/", h.listCategoriesHandler)
				r.Post("/", h.createCategoryHandler)
				r.Delete("/{id}", h.deleteCategoryHandler)
			})

			r.Route("/materials", func(r chi.Router) {
				r.Get("/", h.listMaterialsHandler)
				r.Post("/", h.createMaterialHandler)
				r.Delete("/{id}", h.deleteMaterialHandler)
			})

			r.Get("/custom-orders", h.listCustomOrdersHandler)
		})
	})

	return r
}

// requestLogger logs one line per request through the structured logger
func (h *Handler) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		if r.URL.Path == "/healthz" || r.URL.Path == "/readyz" {
			return
		}
		h.logger.Info(r.Context()).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", ww.Status()).
			Int("bytes", ww.BytesWritten()).
			Dur("duration", time.Since(start)).
			Str("request_id", middleware.GetReqID(r.Context())).
			Msg("request handled")
	})
}
