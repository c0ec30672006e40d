package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"smartbin-backend/internal/models"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrNotFound is returned when a requested row does not exist.
var ErrNotFound = errors.New("not found")

// BinStore is the single source of truth for bins and their readings.
// Bin metadata and the reading time series are written through exactly two
// operations (UpsertBinMetadata, AppendReading) so sensor ingestion, manual
// sensor updates and dashboard actions cannot diverge.
type BinStore interface {
	UpsertBinMetadata(binID string, fill float64, battery *float64, status string) error
	AppendReading(r *models.BinReading) error
	LatestReading(binID string) (*models.BinReading, error)
	ReadingHistory(binID string, limit int) ([]models.BinReading, error)
	ClearHistory(binID string) error
	GetBin(id string) (*models.Bin, error)
	ListBins(ownerID string) ([]models.Bin, error)
	CreateBin(b *models.Bin) error
	UpdateBin(b *models.Bin) error
	UpdateBinEnvironment(binID string, temperature, humidity, weight *float64) error
	DeleteBin(id string) error
	EmptyBin(id string, at int64) error
	BinOwner(binID string) (string, error)
}

// NotificationStore persists and queries user notifications.
type NotificationStore interface {
	InsertNotification(n *models.Notification) error
	ListNotifications(userID string, limit int) ([]models.Notification, error)
	GetNotification(id string) (*models.Notification, error)
	UnreadCount(userID string) (int, error)
	MarkRead(id string, at int64) error
	MarkAllRead(userID string, at int64) error
	DeleteNotification(id string) error
}

// TokenStore persists FCM device tokens, upserted by token value.
type TokenStore interface {
	UpsertToken(userID, token string, deviceInfo *string) (*models.FCMToken, error)
	ListTokens(userID string) ([]models.FCMToken, error)
	GetToken(id string) (*models.FCMToken, error)
	DeleteToken(id string) error
	DeleteTokenByValue(token string) error
}

// UserStore reads and mutates user accounts.
type UserStore interface {
	GetUser(id string) (*models.User, error)
	GetUserByEmail(email string) (*models.User, error)
	ListActiveUsers() ([]models.User, error)
	CreateUser(u *models.User) error
	SetUserRole(id, role string) error
	SetUserActive(id string, active bool) error
	TouchLastLogin(id string, at int64) error
}

// Store implements BinStore, NotificationStore, TokenStore and UserStore
// against Postgres.
type Store struct {
	db *sqlx.DB
}

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// ── bins ──────────────────────────────────────────────────────────────

// UpsertBinMetadata creates the bin row on first contact (device
// auto-registration) and otherwise folds the latest reading into it.
func (s *Store) UpsertBinMetadata(binID string, fill float64, battery *float64, status string) error {
	now := time.Now().Unix()
	_, err := s.db.Exec(`
		INSERT INTO bins (id, fill_percentage, battery_level, alert, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (id) DO UPDATE SET
			fill_percentage = EXCLUDED.fill_percentage,
			battery_level = COALESCE(EXCLUDED.battery_level, bins.battery_level),
			alert = EXCLUDED.alert,
			updated_at = EXCLUDED.updated_at
	`, binID, fill, battery, status, now)
	if err != nil {
		return fmt.Errorf("failed to upsert bin %s: %w", binID, err)
	}
	return nil
}

func (s *Store) AppendReading(r *models.BinReading) error {
	if r.ID == "" {
		r.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO bin_readings (id, bin_id, distance, fill_percentage, status, battery_level, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, r.ID, r.BinID, r.Distance, r.FillPercentage, r.Status, r.BatteryLevel, r.RecordedAt)
	if err != nil {
		return fmt.Errorf("failed to append reading for bin %s: %w", r.BinID, err)
	}
	return nil
}

func (s *Store) LatestReading(binID string) (*models.BinReading, error) {
	var reading models.BinReading
	err := s.db.Get(&reading, `
		SELECT * FROM bin_readings
		WHERE bin_id = $1
		ORDER BY recorded_at DESC
		LIMIT 1
	`, binID)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reading, nil
}

func (s *Store) ReadingHistory(binID string, limit int) ([]models.BinReading, error) {
	readings := []models.BinReading{}
	err := s.db.Select(&readings, `
		SELECT * FROM bin_readings
		WHERE bin_id = $1
		ORDER BY recorded_at DESC
		LIMIT $2
	`, binID, limit)
	if err != nil {
		return nil, err
	}
	return readings, nil
}

func (s *Store) ClearHistory(binID string) error {
	_, err := s.db.Exec(`DELETE FROM bin_readings WHERE bin_id = $1`, binID)
	return err
}

func (s *Store) GetBin(id string) (*models.Bin, error) {
	var bin models.Bin
	err := s.db.Get(&bin, `SELECT * FROM bins WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &bin, nil
}

// ListBins returns the bins owned by ownerID, or every bin when ownerID is empty.
func (s *Store) ListBins(ownerID string) ([]models.Bin, error) {
	bins := []models.Bin{}
	var err error
	if ownerID == "" {
		err = s.db.Select(&bins, `SELECT * FROM bins ORDER BY id ASC`)
	} else {
		err = s.db.Select(&bins, `SELECT * FROM bins WHERE owner_id = $1 ORDER BY id ASC`, ownerID)
	}
	if err != nil {
		return nil, err
	}
	return bins, nil
}

func (s *Store) CreateBin(b *models.Bin) error {
	_, err := s.db.Exec(`
		INSERT INTO bins (id, name, address, capacity, waste_type, owner_id,
			fill_percentage, alert, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, b.ID, b.Name, b.Address, b.Capacity, b.WasteType, b.OwnerID,
		b.FillPercentage, b.Alert, b.CreatedAt, b.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create bin %s: %w", b.ID, err)
	}
	return nil
}

func (s *Store) UpdateBin(b *models.Bin) error {
	result, err := s.db.Exec(`
		UPDATE bins
		SET name = $1, address = $2, capacity = $3, waste_type = $4, updated_at = $5
		WHERE id = $6
	`, b.Name, b.Address, b.Capacity, b.WasteType, time.Now().Unix(), b.ID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

// UpdateBinEnvironment writes the environmental sensor fields.
func (s *Store) UpdateBinEnvironment(binID string, temperature, humidity, weight *float64) error {
	result, err := s.db.Exec(`
		UPDATE bins
		SET temperature = $1, humidity = $2, weight = $3, updated_at = $4
		WHERE id = $5
	`, temperature, humidity, weight, time.Now().Unix(), binID)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

// DeleteBin removes the bin; related notifications go with it via the FK cascade.
func (s *Store) DeleteBin(id string) error {
	result, err := s.db.Exec(`DELETE FROM bins WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) EmptyBin(id string, at int64) error {
	result, err := s.db.Exec(`
		UPDATE bins
		SET fill_percentage = 0, alert = 'normal', last_emptied = $1, updated_at = $1
		WHERE id = $2
	`, at, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

// BinOwner resolves the recorded owner for a bin. Auto-registered bins have no
// owner yet; that comes back as ErrNotFound.
func (s *Store) BinOwner(binID string) (string, error) {
	var ownerID string
	err := s.db.Get(&ownerID, `SELECT owner_id FROM bins WHERE id = $1`, binID)
	if err == sql.ErrNoRows {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	if ownerID == "" {
		return "", ErrNotFound
	}
	return ownerID, nil
}

// ── notifications ─────────────────────────────────────────────────────

func (s *Store) InsertNotification(n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	_, err := s.db.Exec(`
		INSERT INTO notifications (id, user_id, bin_id, title, message, type, priority, category, is_read, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, FALSE, $9)
	`, n.ID, n.UserID, n.BinID, n.Title, n.Message, n.Type, n.Priority, n.Category, n.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert notification: %w", err)
	}
	return nil
}

// ListNotifications returns the user's notifications plus broadcasts, newest first.
func (s *Store) ListNotifications(userID string, limit int) ([]models.Notification, error) {
	notifications := []models.Notification{}
	err := s.db.Select(&notifications, `
		SELECT * FROM notifications
		WHERE user_id = $1 OR user_id IS NULL
		ORDER BY created_at DESC
		LIMIT $2
	`, userID, limit)
	if err != nil {
		return nil, err
	}
	return notifications, nil
}

func (s *Store) GetNotification(id string) (*models.Notification, error) {
	var n models.Notification
	err := s.db.Get(&n, `SELECT * FROM notifications WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &n, nil
}

func (s *Store) UnreadCount(userID string) (int, error) {
	var count int
	err := s.db.Get(&count, `
		SELECT COUNT(*) FROM notifications
		WHERE (user_id = $1 OR user_id IS NULL) AND is_read = FALSE
	`, userID)
	return count, err
}

func (s *Store) MarkRead(id string, at int64) error {
	result, err := s.db.Exec(`
		UPDATE notifications SET is_read = TRUE, read_at = $1 WHERE id = $2
	`, at, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) MarkAllRead(userID string, at int64) error {
	_, err := s.db.Exec(`
		UPDATE notifications SET is_read = TRUE, read_at = $1
		WHERE (user_id = $2 OR user_id IS NULL) AND is_read = FALSE
	`, at, userID)
	return err
}

func (s *Store) DeleteNotification(id string) error {
	result, err := s.db.Exec(`DELETE FROM notifications WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

// ── fcm tokens ────────────────────────────────────────────────────────

func (s *Store) UpsertToken(userID, token string, deviceInfo *string) (*models.FCMToken, error) {
	now := time.Now().Unix()
	record := models.FCMToken{
		ID:         uuid.New().String(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		LastActive: now,
	}
	err := s.db.Get(&record, `
		INSERT INTO fcm_tokens (id, user_id, token, device_info, created_at, last_active)
		VALUES ($1, $2, $3, $4, $5, $5)
		ON CONFLICT (token) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			device_info = COALESCE(EXCLUDED.device_info, fcm_tokens.device_info),
			last_active = EXCLUDED.last_active
		RETURNING *
	`, record.ID, userID, token, deviceInfo, now)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert fcm token: %w", err)
	}
	return &record, nil
}

func (s *Store) ListTokens(userID string) ([]models.FCMToken, error) {
	tokens := []models.FCMToken{}
	err := s.db.Select(&tokens, `
		SELECT * FROM fcm_tokens WHERE user_id = $1 ORDER BY last_active DESC
	`, userID)
	if err != nil {
		return nil, err
	}
	return tokens, nil
}

func (s *Store) GetToken(id string) (*models.FCMToken, error) {
	var token models.FCMToken
	err := s.db.Get(&token, `SELECT * FROM fcm_tokens WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &token, nil
}

func (s *Store) DeleteToken(id string) error {
	result, err := s.db.Exec(`DELETE FROM fcm_tokens WHERE id = $1`, id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) DeleteTokenByValue(token string) error {
	_, err := s.db.Exec(`DELETE FROM fcm_tokens WHERE token = $1`, token)
	return err
}

// ── users ─────────────────────────────────────────────────────────────

func (s *Store) GetUser(id string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT * FROM users WHERE id = $1`, id)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) GetUserByEmail(email string) (*models.User, error) {
	var user models.User
	err := s.db.Get(&user, `SELECT * FROM users WHERE email = $1`, email)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Store) ListActiveUsers() ([]models.User, error) {
	users := []models.User{}
	err := s.db.Select(&users, `SELECT * FROM users WHERE is_active = TRUE ORDER BY email ASC`)
	if err != nil {
		return nil, err
	}
	return users, nil
}

func (s *Store) CreateUser(u *models.User) error {
	_, err := s.db.Exec(`
		INSERT INTO users (id, email, password, name, role, notifications_enabled, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, u.ID, u.Email, u.Password, u.Name, u.Role, u.NotificationsEnabled, u.IsActive, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to create user %s: %w", u.Email, err)
	}
	return nil
}

func (s *Store) SetUserRole(id, role string) error {
	result, err := s.db.Exec(`
		UPDATE users SET role = $1, updated_at = $2 WHERE id = $3
	`, role, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) SetUserActive(id string, active bool) error {
	result, err := s.db.Exec(`
		UPDATE users SET is_active = $1, updated_at = $2 WHERE id = $3
	`, active, time.Now().Unix(), id)
	if err != nil {
		return err
	}
	rows, err := result.RowsAffected()
	if err == nil && rows == 0 {
		return ErrNotFound
	}
	return err
}

func (s *Store) TouchLastLogin(id string, at int64) error {
	_, err := s.db.Exec(`UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return err
}
