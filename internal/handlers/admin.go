package handlers

import (
	"net/http"

	"smartbin-backend/internal/cache"
	"smartbin-backend/internal/services"
	"smartbin-backend/pkg/utils"
)

// RunDigest handles POST /api/admin/digest/run (admin only). Kicks one digest
// pass without waiting for the daily schedule.
func RunDigest(digest *services.DigestService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sent, skipped, failed := digest.RunOnce(r.Context())
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success": true,
			"sent":    sent,
			"skipped": skipped,
			"failed":  failed,
		})
	}
}

// GetCacheStats handles GET /api/admin/cache/stats (admin only).
func GetCacheStats(readings *cache.ReadingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		utils.RespondJSON(w, http.StatusOK, readings.GetStats())
	}
}
