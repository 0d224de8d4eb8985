package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/seanokelly/analogmarket/internal/domain/entities"
	"github.com/seanokelly/analogmarket/internal/domain/repositories"
	apperrors "github.com/seanokelly/analogmarket/pkg/errors"
)

// ProductHandler handles product-related HTTP requests
type ProductHandler struct {
	productRepo repositories.ProductRepository
	indexRepo   repositories.ProductIndexRepository
}

// NewProductHandler creates a new product handler. indexRepo is optional;
// without it the search endpoint degrades to a plain list.
func NewProductHandler(productRepo repositories.ProductRepository, indexRepo repositories.ProductIndexRepository) *ProductHandler {
	return &ProductHandler{
		productRepo: productRepo,
		indexRepo:   indexRepo,
	}
}

// GetProduct handles GET /api/products/{id}
func (h *ProductHandler) GetProduct(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("id")
	if productID == "" {
		respondWithError(w, http.StatusBadRequest, "product ID is required")
		return
	}

	product, err := h.productRepo.GetByID(r.Context(), productID)
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, product)
}

// ListProducts handles GET /api/products. A q parameter routes through the
// search index; otherwise it is a filtered page from the store.
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	category := r.URL.Query().Get("category")
	limit := parseIntParam(r, "limit", 30)
	offset := parseIntParam(r, "offset", 0)

	if query != "" && h.indexRepo != nil {
		h.searchProducts(w, r, query, category, limit, offset)
		return
	}

	active := true
	filter := repositories.ProductFilter{
		Category: category,
		IsActive: &active,
		Limit:    limit,
		Offset:   offset,
	}

	products, err := h.productRepo.List(r.Context(), filter)
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

func (h *ProductHandler) searchProducts(w http.ResponseWriter, r *http.Request, query, category string, limit, offset int) {
	ids, err := h.indexRepo.Search(r.Context(), repositories.ProductSearchParams{
		Query:    query,
		Category: category,
		Limit:    limit,
		Offset:   offset,
	})
	if err != nil {
		respondWithError(w, http.StatusInternalServerError, "failed to search products")
		return
	}

	products := []*entities.Product{}
	for _, id := range ids {
		product, err := h.productRepo.GetByID(r.Context(), id)
		if err != nil {
			// Index can briefly lead the store; drop the stale hit
			log.Printf("search hit %s not found in store: %v", id, err)
			continue
		}
		products = append(products, product)
	}

	respondWithJSON(w, http.StatusOK, map[string]interface{}{
		"products": products,
		"count":    len(products),
	})
}

func parseIntParam(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

// Helper functions
func respondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}

func respondWithError(w http.ResponseWriter, statusCode int, message string) {
	respondWithJSON(w, statusCode, map[string]string{
		"error": message,
	})
}

// respondWithAppError maps typed application errors onto HTTP statuses
func respondWithAppError(w http.ResponseWriter, err error) {
	if appErr, ok := err.(*apperrors.AppError); ok {
		switch appErr.Type {
		case apperrors.ErrorTypeNotFound:
			respondWithError(w, http.StatusNotFound, appErr.Message)
		case apperrors.ErrorTypeValidation:
			respondWithError(w, http.StatusBadRequest, appErr.Message)
		default:
			respondWithError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	respondWithError(w, http.StatusInternalServerError, "internal server error")
}
