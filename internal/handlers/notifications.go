package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"smartbin-backend/internal/database"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/internal/services"
	"smartbin-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
)

const notificationPageSize = 100

// GetNotifications handles GET /api/notifications. Returns the caller's
// notifications plus broadcasts, newest first.
func GetNotifications(store database.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		notifications, err := store.ListNotifications(claims.UserID, notificationPageSize)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch notifications", err)
			return
		}

		responses := make([]models.NotificationResponse, len(notifications))
		for i, n := range notifications {
			responses[i] = n.ToNotificationResponse()
		}
		utils.RespondJSON(w, http.StatusOK, responses)
	}
}

// GetUnreadCount handles GET /api/notifications/unread-count
func GetUnreadCount(store database.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		count, err := store.UnreadCount(claims.UserID)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to count notifications", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, map[string]int{"unread": count})
	}
}

// MarkNotificationRead handles PATCH /api/notifications/{id}/read. Only the
// recipient can change read state.
func MarkNotificationRead(store database.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		notification, err := store.GetNotification(chi.URLParam(r, "id"))
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Notification not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch notification", err)
			return
		}

		if notification.UserID != nil && *notification.UserID != claims.UserID {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		if err := store.MarkRead(notification.ID, time.Now().Unix()); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to mark as read", err)
			return
		}
		utils.RespondSuccess(w, "Notification marked as read")
	}
}

// MarkAllNotificationsRead handles POST /api/notifications/mark-all-read
func MarkAllNotificationsRead(store database.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		if err := store.MarkAllRead(claims.UserID, time.Now().Unix()); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to mark notifications as read", err)
			return
		}
		utils.RespondSuccess(w, "All notifications marked as read")
	}
}

// DeleteNotification handles DELETE /api/notifications/{id}. Recipient or
// admin only.
func DeleteNotification(store database.NotificationStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		notification, err := store.GetNotification(chi.URLParam(r, "id"))
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Notification not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch notification", err)
			return
		}

		isRecipient := notification.UserID != nil && *notification.UserID == claims.UserID
		if !isRecipient && claims.Role != "admin" {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		if err := store.DeleteNotification(notification.ID); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to delete notification", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// SendTestNotification handles POST /api/notifications/send-test. Lets a user
// verify their device registration end to end.
func SendTestNotification(dispatcher *services.Dispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		var req struct {
			Title   string `json:"title"`
			Message string `json:"message"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		if req.Title == "" {
			req.Title = "Test notification"
		}
		if req.Message == "" {
			req.Message = "If you can read this, push notifications are working."
		}

		result := dispatcher.SendTestNotification(r.Context(), claims.UserID, req.Title, req.Message)
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"success":  true,
			"dispatch": result,
		})
	}
}
