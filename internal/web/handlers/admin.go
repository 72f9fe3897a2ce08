package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"jewelry-catalog/internal/domain/catalog"
)

// Products

func (h *Handler) adminListProductsHandler(w http.ResponseWriter, r *http.Request) {
	products, err := h.Products.ListAll(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"products": products})
}

func (h *Handler) createProductHandler(w http.ResponseWriter, r *http.Request) {
	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		h.respondError(w, r, err)
		return
	}
	p.ID = 0

	if err := h.Products.Create(r.Context(), &p); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (h *Handler) getProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	p, err := h.Products.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) updateProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var p catalog.Product
	if err := decodeJSON(w, r, &p); err != nil {
		h.respondError(w, r, err)
		return
	}
	p.ID = id

	if err := h.Products.Update(r.Context(), &p); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProductHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Products.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Stock

func (h *Handler) adminListStockHandler(w http.ResponseWriter, r *http.Request) {
	items, err := h.Stock.List(r.Context())
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"items": items})
}

func (h *Handler) createStockHandler(w http.ResponseWriter, r *http.Request) {
	var item catalog.StockItem
	if err := decodeJSON(w, r, &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	item.ID = 0

	if err := h.Stock.Create(r.Context(), &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) getStockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	item, err := h.Stock.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) updateStockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var item catalog.StockItem
	if err := decodeJSON(w, r, &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	item.ID = id

	if err := h.Stock.Update(r.Context(), &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) deleteStockHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Stock.Delete(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Carousel

func (h *Handler) createCarouselHandler(w http.ResponseWriter, r *http.Request) {
	var item catalog.CarouselItem
	if err := decodeJSON(w, r, &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	item.ID = 0

	if err := h.Carousel.Create(r.Context(), &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, item)
}

func (h *Handler) getCarouselHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	item, err := h.Carousel.Get(r.Context(), id)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

func (h *Handler) updateCarouselHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	var item catalog.CarouselItem
	if err := decodeJSON(w, r, &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	item.ID = id

	if err := h.Carousel.Update(r.Context(), &item); err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, item)
}

// deleteCarouselHandler reports a failed image cleanup as a warning on an
// otherwise successful delete.
func (h *Handler) deleteCarouselHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}

	err = h.Carousel.Delete(r.Context(), id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, catalog.ErrImageCleanup):
		h.logger.Warn(r.Context()).Err(err).Int("carousel_id", id).Msg("carousel image left in storage")
		writeJSON(w, http.StatusOK, map[string]any{
			"deleted": true,
			"warning": "The slide was deleted but its image could not be removed from storage.",
		})
	default:
		h.respondError(w, r, err)
	}
}

// Taxonomy

type taxonomyRequest struct {
	Name string `json:"name"`
	Slug string `json:"slug"`
}

func (h *Handler) createCategoryHandler(w http.ResponseWriter, r *http.Request) {
	var req taxonomyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	category, err := h.Taxonomy.CreateCategory(r.Context(), req.Name, req.Slug)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, category)
}

func (h *Handler) deleteCategoryHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Taxonomy.DeleteCategory(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) createMaterialHandler(w http.ResponseWriter, r *http.Request) {
	var req taxonomyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.respondError(w, r, err)
		return
	}
	material, err := h.Taxonomy.CreateMaterial(r.Context(), req.Name, req.Slug)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, material)
}

func (h *Handler) deleteMaterialHandler(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	if err := h.Taxonomy.DeleteMaterial(r.Context(), id); err != nil {
		h.respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Custom orders

func (h *Handler) listCustomOrdersHandler(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.respondError(w, r, badRequest("invalid limit %q", raw))
			return
		}
		limit = n
	}

	orders, err := h.CustomOrders.List(r.Context(), limit)
	if err != nil {
		h.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"orders": orders})
}
