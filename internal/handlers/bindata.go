package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"
	"time"

	"smartbin-backend/internal/cache"
	"smartbin-backend/internal/database"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/websocket"
	"smartbin-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 500
)

// IngestResponse is the 201 payload for a sensor reading. Dispatch carries the
// notification outcome as a side channel; its failures never fail the request.
type IngestResponse struct {
	Success  bool                     `json:"success"`
	ID       string                   `json:"id"`
	Status   string                   `json:"status"`
	Dispatch *services.DispatchResult `json:"dispatch,omitempty"`
}

// IngestReading handles POST /api/esp/data and POST /api/bin-data. Field
// devices post unauthenticated; the bin auto-registers on first contact.
func IngestReading(store database.BinStore, readings *cache.ReadingCache, dispatcher *services.Dispatcher, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req models.IngestRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		// Zero is a valid distance and a valid fill percentage; only absence
		// rejects.
		var missing []string
		if strings.TrimSpace(req.BinID) == "" {
			missing = append(missing, "binId")
		}
		if req.Distance == nil {
			missing = append(missing, "distance")
		}
		if req.FillPercentage == nil {
			missing = append(missing, "fillPercentage")
		}
		if len(missing) > 0 {
			utils.RespondError(w, http.StatusBadRequest,
				"Missing required field(s): "+strings.Join(missing, ", "))
			return
		}

		fill := models.ClampFill(*req.FillPercentage)
		status := req.Status
		if !models.ValidStatus(status) {
			status = models.ClassifyFillLevel(fill)
		}

		now := time.Now()
		reading := models.BinReading{
			ID:             uuid.New().String(),
			BinID:          req.BinID,
			Distance:       *req.Distance,
			FillPercentage: fill,
			Status:         status,
			BatteryLevel:   req.BatteryLevel,
			RecordedAt:     now.Unix(),
		}

		// The persistence writes are the critical path; their failure is the
		// endpoint's failure.
		if err := store.UpsertBinMetadata(req.BinID, fill, req.BatteryLevel, status); err != nil {
			log.Printf("❌ Bin upsert failed for %s: %v", req.BinID, err)
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to record reading", err)
			return
		}
		if err := store.AppendReading(&reading); err != nil {
			log.Printf("❌ Reading append failed for %s: %v", req.BinID, err)
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to record reading", err)
			return
		}

		readings.Put(req.BinID, reading)

		ownerID := ""
		address := ""
		if bin, err := store.GetBin(req.BinID); err == nil {
			ownerID = bin.OwnerID
			address = bin.Address
		}

		if hub != nil {
			hub.BroadcastReading(ownerID, websocket.ReadingUpdate{
				BinID:          req.BinID,
				FillPercentage: fill,
				Status:         status,
				RecordedAtIso:  now.Format(time.RFC3339),
			})
		}

		resp := IngestResponse{Success: true, ID: reading.ID, Status: status}
		if status == models.StatusCritical {
			resp.Dispatch = dispatcher.NotifyOverflow(r.Context(), req.BinID, fill, address)
		}

		utils.RespondJSON(w, http.StatusCreated, resp)
	}
}

// GetLatestReading handles GET /api/bin-data/{binId}. Cache first; a miss
// falls through to the store and repopulates the cache.
func GetLatestReading(store database.BinStore, readings *cache.ReadingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "binId")
		if binID == "" {
			utils.RespondError(w, http.StatusBadRequest, "binId is required")
			return
		}

		if reading, ok := readings.Get(binID); ok {
			utils.RespondJSON(w, http.StatusOK, reading.ToReadingResponse())
			return
		}

		reading, err := store.LatestReading(binID)
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "No readings for bin "+binID)
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch reading", err)
			return
		}

		readings.Put(binID, *reading)
		utils.RespondJSON(w, http.StatusOK, reading.ToReadingResponse())
	}
}

// GetReadingHistory handles GET /api/bin-data/{binId}/history?limit=N.
// Newest first; a bin with no readings gets an empty list, not an error.
func GetReadingHistory(store database.BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "binId")
		if binID == "" {
			utils.RespondError(w, http.StatusBadRequest, "binId is required")
			return
		}

		limit := defaultHistoryLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				utils.RespondError(w, http.StatusBadRequest, "limit must be a positive integer")
				return
			}
			limit = parsed
		}
		if limit > maxHistoryLimit {
			limit = maxHistoryLimit
		}

		history, err := store.ReadingHistory(binID, limit)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch history", err)
			return
		}

		responses := make([]models.ReadingResponse, len(history))
		for i, reading := range history {
			responses[i] = reading.ToReadingResponse()
		}

		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// ClearReadingHistory handles DELETE /api/bin-data/{binId}/history (admin).
// Drops the time series and invalidates the cache entry.
func ClearReadingHistory(store database.BinStore, readings *cache.ReadingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		binID := chi.URLParam(r, "binId")
		if binID == "" {
			utils.RespondError(w, http.StatusBadRequest, "binId is required")
			return
		}

		if err := store.ClearHistory(binID); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to clear history", err)
			return
		}
		readings.Invalidate(binID)

		claims, _ := middleware.GetUserFromContext(r)
		log.Printf("🗑️  Reading history for bin %s cleared by %s", binID, claims.Email)
		utils.RespondSuccess(w, "History cleared")
	}
}
