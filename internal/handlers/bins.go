package handlers

import (
	"encoding/json"
	"log"
	"net/http"
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

// canView reports whether the caller may read a bin.
func canView(claims middleware.UserClaims, bin *models.Bin) bool {
	return claims.Role == "admin" || claims.Role == "manager" || bin.OwnerID == claims.UserID
}

// canMutate reports whether the caller may change or act on a bin.
func canMutate(claims middleware.UserClaims, bin *models.Bin) bool {
	return claims.Role == "admin" || bin.OwnerID == claims.UserID
}

// GetBins handles GET /api/bins. Users see their own bins; admins and
// managers see the whole fleet.
func GetBins(store database.BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		ownerFilter := claims.UserID
		if claims.Role == "admin" || claims.Role == "manager" {
			ownerFilter = ""
		}

		bins, err := store.ListBins(ownerFilter)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch bins", err)
			return
		}

		responses := make([]models.BinResponse, len(bins))
		for i, bin := range bins {
			responses[i] = bin.ToBinResponse()
		}
		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// GetBin handles GET /api/bins/{id}
func GetBin(store database.BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		bin, err := store.GetBin(chi.URLParam(r, "id"))
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch bin", err)
			return
		}

		if !canView(claims, bin) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		utils.RespondJSON(w, http.StatusOK, bin.ToBinResponse())
	}
}

// CreateBin handles POST /api/bins. The caller becomes the owner.
func CreateBin(store database.BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		var req models.CreateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var missing []string
		if strings.TrimSpace(req.ID) == "" {
			missing = append(missing, "id")
		}
		if strings.TrimSpace(req.Name) == "" {
			missing = append(missing, "name")
		}
		if len(missing) > 0 {
			utils.RespondError(w, http.StatusBadRequest,
				"Missing required field(s): "+strings.Join(missing, ", "))
			return
		}

		wasteType := req.WasteType
		if wasteType == "" {
			wasteType = "general"
		}

		now := time.Now().Unix()
		bin := models.Bin{
			ID:        req.ID,
			Name:      req.Name,
			Address:   req.Address,
			Capacity:  req.Capacity,
			WasteType: wasteType,
			OwnerID:   claims.UserID,
			Alert:     models.StatusNormal,
			CreatedAt: now,
			UpdatedAt: now,
		}

		if err := store.CreateBin(&bin); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to create bin", err)
			return
		}

		log.Printf("✅ Bin %s created by %s", bin.ID, claims.Email)
		utils.RespondJSON(w, http.StatusCreated, bin.ToBinResponse())
	}
}

// UpdateBin handles PUT /api/bins/{id}. Metadata only; sensor fields go
// through the sensor endpoint so status derivation stays in one place.
func UpdateBin(store database.BinStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		bin, err := store.GetBin(chi.URLParam(r, "id"))
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch bin", err)
			return
		}

		if !canMutate(claims, bin) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var req models.UpdateBinRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Name != nil {
			bin.Name = strings.TrimSpace(*req.Name)
		}
		if req.Address != nil {
			bin.Address = strings.TrimSpace(*req.Address)
		}
		if req.Capacity != nil {
			bin.Capacity = *req.Capacity
		}
		if req.WasteType != nil {
			bin.WasteType = *req.WasteType
		}

		if err := store.UpdateBin(bin); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to update bin", err)
			return
		}

		updated, err := store.GetBin(bin.ID)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch updated bin", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, updated.ToBinResponse())
	}
}

// UpdateBinSensor handles PATCH /api/bins/{id}/sensor. A manual sensor update
// runs through the same classifier and reading path as device ingestion, so a
// critical fill reported here alerts exactly like one from the field.
func UpdateBinSensor(store database.BinStore, readings *cache.ReadingCache, dispatcher *services.Dispatcher, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)
		id := chi.URLParam(r, "id")

		bin, err := store.GetBin(id)
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch bin", err)
			return
		}

		if !canMutate(claims, bin) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var req models.SensorUpdateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var resp IngestResponse
		resp.Success = true
		resp.Status = bin.Alert

		if req.FillPercentage != nil {
			fill := models.ClampFill(*req.FillPercentage)
			status := models.ClassifyFillLevel(fill)
			now := time.Now()

			reading := models.BinReading{
				ID:             uuid.New().String(),
				BinID:          bin.ID,
				FillPercentage: fill,
				Status:         status,
				BatteryLevel:   req.BatteryLevel,
				RecordedAt:     now.Unix(),
			}

			if err := store.UpsertBinMetadata(bin.ID, fill, req.BatteryLevel, status); err != nil {
				utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to update bin", err)
				return
			}
			if err := store.AppendReading(&reading); err != nil {
				utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to record reading", err)
				return
			}
			readings.Put(bin.ID, reading)

			if hub != nil {
				hub.BroadcastReading(bin.OwnerID, websocket.ReadingUpdate{
					BinID:          bin.ID,
					FillPercentage: fill,
					Status:         status,
					RecordedAtIso:  now.Format(time.RFC3339),
				})
			}

			resp.ID = reading.ID
			resp.Status = status
			if status == models.StatusCritical {
				resp.Dispatch = dispatcher.NotifyOverflow(r.Context(), bin.ID, fill, bin.Address)
			}
		}

		if req.Temperature != nil || req.Humidity != nil || req.Weight != nil {
			if err := updateEnvironment(store, bin, req); err != nil {
				utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to update sensor data", err)
				return
			}
		}

		utils.RespondJSON(w, http.StatusOK, resp)
	}
}

// EmptyBin handles POST /api/bins/{id}/empty. Resets the fill level, stamps
// last_emptied and appends a zero reading so history shows the event.
func EmptyBin(store database.BinStore, readings *cache.ReadingCache, hub *websocket.Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)
		id := chi.URLParam(r, "id")

		bin, err := store.GetBin(id)
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch bin", err)
			return
		}

		if !canMutate(claims, bin) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		now := time.Now()
		if err := store.EmptyBin(id, now.Unix()); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to empty bin", err)
			return
		}

		reading := models.BinReading{
			ID:         uuid.New().String(),
			BinID:      id,
			Status:     models.StatusNormal,
			RecordedAt: now.Unix(),
		}
		if err := store.AppendReading(&reading); err != nil {
			log.Printf("⚠️ Failed to record empty event for bin %s: %v", id, err)
		} else {
			readings.Put(id, reading)
		}

		if hub != nil {
			hub.BroadcastReading(bin.OwnerID, websocket.ReadingUpdate{
				BinID:         id,
				Status:        models.StatusNormal,
				RecordedAtIso: now.Format(time.RFC3339),
			})
		}

		log.Printf("✅ Bin %s emptied by %s", id, claims.Email)
		utils.RespondSuccess(w, "Bin emptied")
	}
}

// ScheduleCollection handles POST /api/bins/{id}/schedule-collection.
func ScheduleCollection(store database.BinStore, dispatcher *services.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)
		id := chi.URLParam(r, "id")

		bin, err := store.GetBin(id)
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch bin", err)
			return
		}

		if !canMutate(claims, bin) {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		var req struct {
			ScheduledForIso string `json:"scheduledForIso"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		when := time.Now().Add(24 * time.Hour)
		if req.ScheduledForIso != "" {
			parsed, err := time.Parse(time.RFC3339, req.ScheduledForIso)
			if err != nil {
				utils.RespondError(w, http.StatusBadRequest, "scheduledForIso must be RFC3339")
				return
			}
			when = parsed
		}

		ownerID := bin.OwnerID
		if ownerID == "" {
			ownerID = claims.UserID
		}

		result := dispatcher.NotifyCollectionScheduled(r.Context(), bin.ID, bin.Address, ownerID, when)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"message":  "Collection scheduled",
			"dispatch": result,
		})
	}
}

// DeleteBin handles DELETE /api/bins/{id} (admin only). The notifications FK
// cascade removes the bin's notifications with it.
func DeleteBin(store database.BinStore, readings *cache.ReadingCache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")

		if err := store.DeleteBin(id); err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Bin not found")
			return
		} else if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to delete bin", err)
			return
		}

		if err := store.ClearHistory(id); err != nil {
			log.Printf("⚠️ Failed to clear history for deleted bin %s: %v", id, err)
		}
		readings.Invalidate(id)

		w.WriteHeader(http.StatusNoContent)
	}
}

func updateEnvironment(store database.BinStore, bin *models.Bin, req models.SensorUpdateRequest) error {
	if req.Temperature != nil {
		bin.Temperature = req.Temperature
	}
	if req.Humidity != nil {
		bin.Humidity = req.Humidity
	}
	if req.Weight != nil {
		bin.Weight = req.Weight
	}
	return store.UpdateBinEnvironment(bin.ID, bin.Temperature, bin.Humidity, bin.Weight)
}
