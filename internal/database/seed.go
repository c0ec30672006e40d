package database

import (
	"log"
	"os"
	"time"

	"smartbin-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"golang.org/x/crypto/bcrypt"
)

func SeedUsers(db *sqlx.DB) error {
	// Check if users already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM users"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Users already seeded, skipping...")
		return nil
	}

	adminPassword := os.Getenv("SEED_ADMIN_PASSWORD")
	if adminPassword == "" {
		adminPassword = "changeme"
		log.Println("⚠️  SEED_ADMIN_PASSWORD not set, seeding admin with default password")
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	users := []struct {
		email string
		name  string
		role  string
	}{
		{"admin@smartbin.local", "Administrator", "admin"},
		{"manager@smartbin.local", "Fleet Manager", "manager"},
		{"demo@smartbin.local", "Demo User", "user"},
	}

	for _, u := range users {
		_, err := db.Exec(`
			INSERT INTO users (id, email, password, name, role, notifications_enabled, is_active, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, TRUE, TRUE, $6, $6)
		`, uuid.New().String(), u.email, string(hashed), u.name, u.role, now)
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d users", len(users))
	return nil
}

func SeedBins(db *sqlx.DB) error {
	// Check if bins already exist
	var count int
	if err := db.Get(&count, "SELECT COUNT(*) FROM bins"); err != nil {
		return err
	}

	if count > 0 {
		log.Println("✓ Bins already seeded, skipping...")
		return nil
	}

	var demoOwner string
	if err := db.Get(&demoOwner, "SELECT id FROM users WHERE email = 'demo@smartbin.local'"); err != nil {
		log.Println("⚠️  Demo user not found, seeding bins without an owner")
		demoOwner = ""
	}

	bins := []struct {
		id        string
		name      string
		address   string
		capacity  int
		wasteType string
		fill      float64
	}{
		{"SB-001", "Market Square North", "99 S Market St, San Jose", 240, "general", 45},
		{"SB-002", "City Hall Plaza", "200 E Santa Clara St, San Jose", 240, "general", 67},
		{"SB-003", "Mission St Recycling", "151 W Mission St, San Jose", 360, "recycling", 23},
		{"SB-004", "Almaden Blvd Organic", "408 Almaden Blvd, San Jose", 120, "organic", 12},
		{"SB-005", "Park Ave General", "180 Park Ave, San Jose", 240, "general", 78},
		{"SB-006", "St James Station", "258 W St James St, San Jose", 240, "general", 31},
	}

	now := time.Now().Unix()
	for _, bin := range bins {
		alert := models.ClassifyFillLevel(bin.fill)
		_, err := db.Exec(`
			INSERT INTO bins (id, name, address, capacity, waste_type, owner_id, fill_percentage, alert, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
		`, bin.id, bin.name, bin.address, bin.capacity, bin.wasteType, demoOwner, bin.fill, alert, now)
		if err != nil {
			return err
		}
	}

	log.Printf("✓ Successfully seeded %d bins", len(bins))
	return nil
}
