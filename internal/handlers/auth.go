package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"os"
	"time"

	"smartbin-backend/internal/database"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/models"
	"smartbin-backend/pkg/utils"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginResponse struct {
	OK    bool                 `json:"ok"`
	Token string               `json:"token,omitempty"`
	User  *models.UserResponse `json:"user,omitempty"`
}

func Login(store database.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		jwtSecret := os.Getenv("APP_JWT_SECRET")
		if jwtSecret == "" {
			log.Println("❌ JWT secret not configured")
			utils.RespondJSON(w, http.StatusInternalServerError, LoginResponse{OK: false})
			return
		}

		user, err := store.GetUserByEmail(req.Email)
		if err != nil {
			log.Printf("❌ Login failed, user not found: %s", req.Email)
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		if !user.IsActive {
			log.Printf("❌ Login attempt for deactivated account: %s", req.Email)
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(req.Password)); err != nil {
			log.Printf("❌ Invalid password for: %s", req.Email)
			utils.RespondJSON(w, http.StatusUnauthorized, LoginResponse{OK: false})
			return
		}

		token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
			"user_id": user.ID,
			"email":   user.Email,
			"role":    user.Role,
			"iat":     time.Now().Unix(),
			"exp":     time.Now().Add(7 * 24 * time.Hour).Unix(),
		})

		tokenString, err := token.SignedString([]byte(jwtSecret))
		if err != nil {
			utils.RespondError(w, http.StatusInternalServerError, "Failed to create token")
			return
		}

		if err := store.TouchLastLogin(user.ID, time.Now().Unix()); err != nil {
			log.Printf("⚠️ Failed to update last login for %s: %v", user.Email, err)
		}

		userResponse := user.ToUserResponse()
		log.Printf("✅ Login successful: %s (%s)", user.Email, user.Role)

		utils.RespondJSON(w, http.StatusOK, LoginResponse{
			OK:    true,
			Token: tokenString,
			User:  &userResponse,
		})
	}
}

// GetAuthStatus handles GET /api/auth/status. Returns the profile behind the
// presented token.
func GetAuthStatus(store database.UserStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims, ok := middleware.GetUserFromContext(r)
		if !ok {
			utils.RespondError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}

		user, err := store.GetUser(claims.UserID)
		if err == database.ErrNotFound {
			utils.RespondError(w, http.StatusNotFound, "User not found")
			return
		}
		if err != nil {
			utils.RespondErrorDetail(w, http.StatusInternalServerError, "Failed to fetch user", err)
			return
		}

		userResponse := user.ToUserResponse()
		utils.RespondJSON(w, http.StatusOK, map[string]interface{}{
			"ok":   true,
			"user": userResponse,
		})
	}
}
