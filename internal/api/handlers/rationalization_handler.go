package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/seanokelly/analogmarket/internal/application/services"
)

// RationalizationHandler exposes the admin triggers for the enrichment
// pipeline and the catalog completeness report.
type RationalizationHandler struct {
	rationalizationService *services.RationalizationService
	categorizationService  *services.CategorizationService
	statusService          *services.CatalogStatusService
	redisClient            *redislib.Client
	idempotencyTTL         time.Duration
}

func NewRationalizationHandler(
	rationalizationService *services.RationalizationService,
	categorizationService *services.CategorizationService,
	statusService *services.CatalogStatusService,
	redisClient *redislib.Client,
	idempotencyTTL time.Duration,
) *RationalizationHandler {
	if idempotencyTTL <= 0 {
		idempotencyTTL = time.Hour
	}
	return &RationalizationHandler{
		rationalizationService: rationalizationService,
		categorizationService:  categorizationService,
		statusService:          statusService,
		redisClient:            redisClient,
		idempotencyTTL:         idempotencyTTL,
	}
}

// RationalizeCatalog handles POST /api/admin/products/rationalize
func (h *RationalizationHandler) RationalizeCatalog(w http.ResponseWriter, r *http.Request) {
	if h.rationalizationService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "rationalization service not configured")
		return
	}

	if duplicate, key := h.isDuplicate(r.Context(), r, "rationalize_idem:"); duplicate {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":          "duplicate",
			"idempotency_key": key,
		})
		return
	}

	report, err := h.rationalizationService.RationalizeCatalog(r.Context(), runOptionsFromRequest(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// RationalizeProduct handles POST /api/admin/products/{id}/rationalize
func (h *RationalizationHandler) RationalizeProduct(w http.ResponseWriter, r *http.Request) {
	if h.rationalizationService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "rationalization service not configured")
		return
	}

	report, err := h.rationalizationService.RationalizeProduct(r.Context(), r.PathValue("id"), runOptionsFromRequest(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// CategorizeCatalog handles POST /api/admin/products/categorize
func (h *RationalizationHandler) CategorizeCatalog(w http.ResponseWriter, r *http.Request) {
	if h.categorizationService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "categorization service not configured")
		return
	}

	if duplicate, key := h.isDuplicate(r.Context(), r, "categorize_idem:"); duplicate {
		respondWithJSON(w, http.StatusOK, map[string]string{
			"status":          "duplicate",
			"idempotency_key": key,
		})
		return
	}

	report, err := h.categorizationService.CategorizeCatalog(r.Context(), runOptionsFromRequest(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// CategorizeProduct handles POST /api/admin/products/{id}/categorize
func (h *RationalizationHandler) CategorizeProduct(w http.ResponseWriter, r *http.Request) {
	if h.categorizationService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "categorization service not configured")
		return
	}

	report, err := h.categorizationService.CategorizeProduct(r.Context(), r.PathValue("id"), runOptionsFromRequest(r))
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, report)
}

// GetCatalogStatus handles GET /api/admin/products/rationalize/status
func (h *RationalizationHandler) GetCatalogStatus(w http.ResponseWriter, r *http.Request) {
	if h.statusService == nil {
		respondWithError(w, http.StatusServiceUnavailable, "status service not configured")
		return
	}

	status, err := h.statusService.Status(r.Context())
	if err != nil {
		respondWithAppError(w, err)
		return
	}

	respondWithJSON(w, http.StatusOK, status)
}

func runOptionsFromRequest(r *http.Request) services.RunOptions {
	q := r.URL.Query()
	return services.RunOptions{
		DryRun: q.Get("dryRun") == "true",
		Force:  q.Get("force") == "true",
		Style:  strings.TrimSpace(q.Get("style")),
	}
}

// isDuplicate claims the request's idempotency key in Redis. The first
// caller wins; replays within the TTL are reported as duplicates.
func (h *RationalizationHandler) isDuplicate(ctx context.Context, r *http.Request, prefix string) (bool, string) {
	key := strings.TrimSpace(r.Header.Get("Idempotency-Key"))
	if key == "" {
		key = strings.TrimSpace(r.Header.Get("X-Idempotency-Key"))
	}
	if key == "" || h.redisClient == nil {
		return false, ""
	}

	redisKey := prefix + key
	ok, err := h.redisClient.SetNX(ctx, redisKey, time.Now().UTC().Format(time.RFC3339Nano), h.idempotencyTTL).Result()
	if err != nil {
		log.Printf("idempotency check failed: %v", err)
		return false, key
	}
	if !ok {
		return true, key
	}
	return false, key
}
