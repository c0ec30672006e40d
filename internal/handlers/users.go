package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"
	"time"

	"smartbin-backend/internal/database"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type CreateUserRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	Role     string `json:"role"` // "user", "manager" or "admin"
}

var validRoles = map[string]bool{"user": true, "manager": true, "admin": true}

// CreateUser handles POST /api/users (admin only).
func CreateUser(store database.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateUserRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		var missing []string
		for field, value := range map[string]string{
			"email": req.Email, "password": req.Password, "name": req.Name, "role": req.Role,
		} {
			if strings.TrimSpace(value) == "" {
				missing = append(missing, field)
			}
		}
		if len(missing) > 0 {
			utils.RespondError(w, http.StatusBadRequest, "Email, password, name, and role are required")
			return
		}

		if !validRoles[req.Role] {
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'user', 'manager', or 'admin'")
			return
		}

		if _, err := store.GetUserByEmail(req.Email); err == nil {
			utils.RespondError(w, http.StatusConflict, "User with this email already exists")
			return
		}

		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to hash password")
			return
		}

		now := time.Now().Unix()
		user := models.User{
			ID:                   uuid.New().String(),
			Email:                req.Email,
			Password:             string(hashedPassword),
			Name:                 req.Name,
			Role:                 req.Role,
			NotificationsEnabled: true,
			IsActive:             true,
			CreatedAt:            now,
			UpdatedAt:            now,
		}

		if err := store.CreateUser(&user); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to create user", err)
			return
		}

		log.Printf("✅ User created: %s (%s)", user.Email, user.Role)
		userResponse := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"user":    userResponse,
		})
	}
}

// SetUserRole handles PATCH /api/users/{id}/role (admin only).
func SetUserRole(store database.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Role string `json:"role"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || !validRoles[req.Role] {
			utils.RespondError(w, http.StatusBadRequest, "Role must be 'user', 'manager', or 'admin'")
			return
		}

		id := chi.URLParam(r, "id")
		if err := store.SetUserRole(id, req.Role); err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		} else if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to update role", err)
			return
		}

		log.Printf("✅ Role for user %s set to %s", id, req.Role)
		utils.RespondSuccess(w, "Role updated")
	}
}

// SetUserActive handles PATCH /api/users/{id}/active (admin only).
func SetUserActive(store database.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			IsActive *bool `json:"is_active"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.IsActive == nil {
			utils.RespondError(w, http.StatusBadRequest, "is_active is required")
			return
		}

		id := chi.URLParam(r, "id")
		if err := store.SetUserActive(id, *req.IsActive); err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		} else if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to update user", err)
			return
		}
		utils.RespondSuccess(w, "User updated")
	}
}

// RegisterFCMToken handles POST /api/users/fcm-token. Upserts by token value
// so a device re-registering moves to its current user.
func RegisterFCMToken(store database.TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		var req models.RegisterTokenRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if strings.TrimSpace(req.Token) == "" {
			utils.RespondError(w, http.StatusBadRequest, "Missing required field(s): token")
			return
		}

		record, err := store.UpsertToken(claims.UserID, req.Token, req.DeviceInfo)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to register token", err)
			return
		}

		utils.RespondJSON(w, http.StatusCreated, map[string]interface{}{
			"success": true,
			"id":      record.ID,
		})
	}
}

// ListFCMTokens handles GET /api/users/fcm-tokens
func ListFCMTokens(store database.TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		tokens, err := store.ListTokens(claims.UserID)
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch tokens", err)
			return
		}
		utils.RespondJSON(w, http.StatusOK, tokens)
	}
}

// DeleteFCMToken handles DELETE /api/users/fcm-token/{tokenId}. Owner or
// admin only.
func DeleteFCMToken(store database.TokenStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, _ := middleware.GetUserFromContext(r)

		token, err := store.GetToken(chi.URLParam(r, "tokenId"))
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "Token not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch token", err)
			return
		}

		if token.UserID != claims.UserID && claims.Role != "admin" {
			utils.RespondError(w, http.StatusForbidden, "Forbidden")
			return
		}

		if err := store.DeleteToken(token.ID); err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to delete token", err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
