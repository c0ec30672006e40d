package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"strconv"
	"time"

	"smartbin-backend/internal/cache"
	"smartbin-backend/internal/database"
	"smartbin-backend/internal/handlers"
	"smartbin-backend/internal/middleware"
	"smartbin-backend/internal/services"
	"smartbin-backend/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 SMARTBIN BACKEND SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  .env file not found, using environment variables from system")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("❌ DATABASE_URL environment variable is required")
	}

	db, err := database.Connect(dbURL)
	if err != nil {
		log.Fatalf("❌ Database connection failed: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("❌ Database migrations failed: %v", err)
	}
	log.Println("✅ Database migrations completed")

	if err := database.SeedUsers(db); err != nil {
		log.Fatalf("❌ User seeding failed: %v", err)
	}
	if err := database.SeedBins(db); err != nil {
		log.Fatalf("❌ Bin seeding failed: %v", err)
	}

	store := database.NewStore(db)

	// Initialize Firebase Cloud Messaging. Push is optional: a missing or bad
	// credential disables it instead of failing startup.
	var push services.PushSender
	if fcmService := initFCM(); fcmService != nil {
		push = fcmService
	}

	// Initialize SMTP mailer, also optional.
	var mail services.EmailSender
	if mailer := initMailer(); mailer != nil {
		mail = mailer
	}

	// Reading cache: bounded, capacity and TTL injected here.
	readings := cache.NewReadingCache(
		envInt("READING_CACHE_SIZE", 10000),
		time.Duration(envInt("READING_CACHE_TTL_SECONDS", 900))*time.Second,
	)
	cacheStop := make(chan struct{})
	defer close(cacheStop)
	go readings.CleanupLoop(10*time.Minute, cacheStop)

	tasks := services.NewBackground()
	dispatcher := services.NewDispatcher(store, push, mail, tasks)
	if raw := os.Getenv("OVERFLOW_THRESHOLD"); raw != "" {
		if threshold, err := strconv.ParseFloat(raw, 64); err == nil {
			dispatcher.Threshold = threshold
		}
	}

	// Daily digest job
	digest := services.NewDigestService(store, mail)
	digest.Hour = envInt("DIGEST_HOUR", 7)
	digestCtx, cancelDigest := context.WithCancel(context.Background())
	defer cancelDigest()
	go digest.Run(digestCtx)

	// WebSocket hub for live dashboard updates
	wsHub := websocket.NewHub()
	go wsHub.Run()
	log.Println("✅ WebSocket hub started")

	// Create router
	r := chi.NewRouter()

	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	// Authentication (no auth required)
	r.Post("/api/auth/login", handlers.Login(store))

	// WebSocket endpoint (token handled in handler via query param)
	r.Get("/ws", websocket.HandleWebSocket(wsHub))

	r.Route("/api", func(r chi.Router) {
		// Sensor ingestion (field devices, unauthenticated)
		r.Post("/esp/data", handlers.IngestReading(store, readings, dispatcher, wsHub))
		r.Post("/bin-data", handlers.IngestReading(store, readings, dispatcher, wsHub))

		// Authenticated routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)

			r.Get("/auth/status", handlers.GetAuthStatus(store))

			// Reading queries
			r.Get("/bin-data/{binId}", handlers.GetLatestReading(store, readings))
			r.Get("/bin-data/{binId}/history", handlers.GetReadingHistory(store))

			// Bins
			r.Get("/bins", handlers.GetBins(store))
			r.Post("/bins", handlers.CreateBin(store))
			r.Get("/bins/{id}", handlers.GetBin(store))
			r.Put("/bins/{id}", handlers.UpdateBin(store))
			r.Patch("/bins/{id}/sensor", handlers.UpdateBinSensor(store, readings, dispatcher, wsHub))
			r.Post("/bins/{id}/empty", handlers.EmptyBin(store, readings, wsHub))
			r.Post("/bins/{id}/schedule-collection", handlers.ScheduleCollection(store, dispatcher))

			// Notifications
			r.Get("/notifications", handlers.GetNotifications(store))
			r.Get("/notifications/unread-count", handlers.GetUnreadCount(store))
			r.Patch("/notifications/{id}/read", handlers.MarkNotificationRead(store))
			r.Post("/notifications/mark-all-read", handlers.MarkAllNotificationsRead(store))
			r.Delete("/notifications/{id}", handlers.DeleteNotification(store))
			r.Post("/notifications/send-test", handlers.SendTestNotification(dispatcher))

			// FCM device tokens
			r.Post("/users/fcm-token", handlers.RegisterFCMToken(store))
			r.Get("/users/fcm-tokens", handlers.ListFCMTokens(store))
			r.Delete("/users/fcm-token/{tokenId}", handlers.DeleteFCMToken(store))
		})

		// Admin routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth)
			r.Use(middleware.RequireRole("admin"))

			r.Post("/users", handlers.CreateUser(store))
			r.Patch("/users/{id}/role", handlers.SetUserRole(store))
			r.Patch("/users/{id}/active", handlers.SetUserActive(store))

			r.Delete("/bins/{id}", handlers.DeleteBin(store, readings))
			r.Delete("/bin-data/{binId}/history", handlers.ClearReadingHistory(store, readings))

			r.Post("/admin/digest/run", handlers.RunDigest(digest))
			r.Get("/admin/cache/stats", handlers.GetCacheStats(readings))
		})
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("✅ ALL INITIALIZATION COMPLETE")
	log.Printf("🚀 Server starting on http://localhost:%s", port)
	log.Println("═══════════════════════════════════════════════════════════════════")

	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("❌ Server failed to start: %v", err)
	}
}

// initFCM builds the push service from base64 credentials (cloud-friendly) or
// a credentials file (local development).
func initFCM() *services.FCMService {
	if credsBase64 := os.Getenv("FIREBASE_CREDENTIALS_BASE64"); credsBase64 != "" {
		fcmService, err := services.NewFCMServiceFromBase64(credsBase64)
		if err != nil {
			log.Printf("⚠️  Failed to initialize FCM from base64: %v (push notifications disabled)", err)
			return nil
		}
		log.Println("✅ Firebase Cloud Messaging initialized from base64 credentials")
		return fcmService
	}

	credentialsFile := os.Getenv("FIREBASE_CREDENTIALS_FILE")
	if credentialsFile == "" {
		credentialsFile = "./firebase-service-account.json"
	}

	fcmService, err := services.NewFCMService(credentialsFile)
	if err != nil {
		log.Printf("⚠️  Failed to initialize FCM from file: %v (push notifications disabled)", err)
		return nil
	}
	log.Println("✅ Firebase Cloud Messaging initialized from file")
	return fcmService
}

func initMailer() *services.Mailer {
	host := os.Getenv("SMTP_HOST")
	username := os.Getenv("SMTP_USER")
	password := os.Getenv("SMTP_PASS")
	if host == "" || username == "" {
		log.Println("⚠️  SMTP_HOST/SMTP_USER not set (email notifications disabled)")
		return nil
	}

	port := envInt("SMTP_PORT", 587)
	from := os.Getenv("SMTP_FROM")
	log.Printf("✅ SMTP mailer configured for %s:%d", host, port)
	return services.NewMailer(host, port, username, password, from)
}

func envInt(key string, fallback int) int {
	if raw := os.Getenv(key); raw != "" {
		if value, err := strconv.Atoi(raw); err == nil {
			return value
		}
	}
	return fallback
}
