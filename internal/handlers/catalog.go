package handlers

import (
	"net/http"
	"strings"

	"github.com/User-Emin/kattenbak-sub003/internal/services"
)

type categoryRequest struct {
	Slug        string `json:"slug" validate:"max=100"`
	Name        string `json:"name" validate:"required,max=100"`
	Description string `json:"description" validate:"max=2000"`
	Position    int    `json:"position" validate:"min=0"`
}

type variantRequest struct {
	SKU                  string `json:"sku" validate:"required,max=64"`
	Name                 string `json:"name" validate:"required,max=100"`
	PriceAdjustmentCents int    `json:"priceAdjustmentCents"`
	Stock                int    `json:"stock" validate:"min=0"`
	Active               *bool  `json:"active"`
}

type productRequest struct {
	Slug           string           `json:"slug" validate:"max=100"`
	SKU            string           `json:"sku" validate:"required,max=64"`
	Name           string           `json:"name" validate:"required,max=200"`
	Description    string           `json:"description" validate:"max=5000"`
	CategoryID     string           `json:"categoryId"`
	BasePriceCents int              `json:"basePriceCents" validate:"min=0"`
	Stock          int              `json:"stock" validate:"min=0"`
	Active         *bool            `json:"active"`
	Variants       []variantRequest `json:"variants" validate:"max=50,dive"`
}

type deletedResponse struct {
	Deleted bool `json:"deleted"`
}

// active defaults an omitted flag to true.
func active(flag *bool) bool {
	return flag == nil || *flag
}

func (req categoryRequest) input() services.CategoryInput {
	return services.CategoryInput{
		Slug:        req.Slug,
		Name:        req.Name,
		Description: req.Description,
		Position:    req.Position,
	}
}

func (req variantRequest) input() services.VariantInput {
	return services.VariantInput{
		SKU:                  req.SKU,
		Name:                 req.Name,
		PriceAdjustmentCents: req.PriceAdjustmentCents,
		Stock:                req.Stock,
		Active:               active(req.Active),
	}
}

func (req productRequest) input() services.ProductInput {
	variants := make([]services.VariantInput, 0, len(req.Variants))
	for _, v := range req.Variants {
		variants = append(variants, v.input())
	}
	return services.ProductInput{
		Slug:           req.Slug,
		SKU:            req.SKU,
		Name:           req.Name,
		Description:    req.Description,
		CategoryID:     req.CategoryID,
		BasePriceCents: req.BasePriceCents,
		Stock:          req.Stock,
		Active:         active(req.Active),
		Variants:       variants,
	}
}

func (h *Handlers) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.catalog.Categories(r.Context())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, categories)
}

func (h *Handlers) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.Products(r.Context(), strings.TrimSpace(r.URL.Query().Get("category")))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, products)
}

func (h *Handlers) GetProduct(w http.ResponseWriter, r *http.Request) {
	product, err := h.catalog.Product(r.Context(), pathID(r, "slug"))
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, product)
}

func (h *Handlers) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	category, err := h.catalog.CreateCategory(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusCreated, category)
}

func (h *Handlers) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	category, err := h.catalog.UpdateCategory(r.Context(), pathID(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, category)
}

func (h *Handlers) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteCategory(r.Context(), pathID(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, deletedResponse{Deleted: true})
}

func (h *Handlers) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	product, err := h.catalog.CreateProduct(r.Context(), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.loggerFromContext(r.Context()).Info("product created", "product_id", product.ID, "slug", product.Slug)
	h.writeData(w, r, http.StatusCreated, product)
}

func (h *Handlers) UpdateProduct(w http.ResponseWriter, r *http.Request) {
	var req productRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	product, err := h.catalog.UpdateProduct(r.Context(), pathID(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, product)
}

func (h *Handlers) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := pathID(r, "id")
	if err := h.catalog.DeleteProduct(r.Context(), id); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.loggerFromContext(r.Context()).Info("product deleted", "product_id", id)
	h.writeData(w, r, http.StatusOK, deletedResponse{Deleted: true})
}

func (h *Handlers) CreateVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	variant, err := h.catalog.CreateVariant(r.Context(), pathID(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusCreated, variant)
}

func (h *Handlers) UpdateVariant(w http.ResponseWriter, r *http.Request) {
	var req variantRequest
	if !h.decodeJSON(w, r, &req) {
		return
	}
	variant, err := h.catalog.UpdateVariant(r.Context(), pathID(r, "id"), req.input())
	if err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, variant)
}

func (h *Handlers) DeleteVariant(w http.ResponseWriter, r *http.Request) {
	if err := h.catalog.DeleteVariant(r.Context(), pathID(r, "id")); err != nil {
		h.writeServiceError(w, r, err)
		return
	}
	h.writeData(w, r, http.StatusOK, deletedResponse{Deleted: true})
}
