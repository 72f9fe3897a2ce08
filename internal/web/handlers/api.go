package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"jewelry-catalog/internal/domain/catalog"
)

// Public catalog endpoints. Query parameter names follow the storefront
// links (categoria, material, precio).

func (h *Handler) listProductsHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	products, err := h.Products.ListPublic(r.Context(), q.Get("categoria"), q.Get("material"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"products":    products,
		"total_count": len(products),
	})
}

func (h *Handler) showcaseHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.Showcase(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) productDetailHandler(w http.ResponseWriter, r *http.Request) {
	product, err := h.Products.Detail(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, product)
}

func (h *Handler) relatedProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.Related(r.Context(), chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) listCategoriesHandler(w http.ResponseWriter, r *http.Request) {
	categories, err := h.Taxonomy.ListCategories(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"categories": categories})
}

func (h *Handler) listMaterialsHandler(w http.ResponseWriter, r *http.Request) {
	materials, err := h.Taxonomy.ListMaterials(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"materials": materials})
}

// storefrontHandler serves the stock view. An unparsable price is ignored.
func (h *Handler) storefrontHandler(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := catalog.StockFilter{Category: q.Get("categoria")}
	if raw := strings.TrimSpace(q.Get("precio")); raw != "" {
		if price, err := strconv.ParseFloat(raw, 64); err == nil {
			filter.Price = &price
		}
	}

	view, err := h.Stock.Storefront(r.Context(), filter)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (h *Handler) listCarouselHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Carousel.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) listPagesHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"pages": h.Pages.Slugs()})
}

func (h *Handler) getPageHandler(w http.ResponseWriter, r *http.Request) {
	page, err := h.Pages.Get(chi.URLParam(r, "slug"))
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *Handler) submitCustomOrderHandler(w http.ResponseWriter, r *http.Request) {
	var req catalog.CustomOrderRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	req.ID = 0

	if err := h.CustomOrders.Submit(r.Context(), &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}
