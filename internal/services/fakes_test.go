package services

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"time"

	"smartbin-backend/internal/database"
	"smartbin-backend/internal/models"
)

// memStore is an in-memory stand-in for the Postgres store, implementing the
// same store interfaces the real one does.
type memStore struct {
	mu            sync.Mutex
	bins          map[string]*models.Bin
	readings      map[string][]models.BinReading
	notifications []*models.Notification
	tokens        map[string]*models.FCMToken
	users         map[string]*models.User

	insertNotificationErr error
	listTokensErr         error
	nextID                int
}

func newMemStore() *memStore {
	return &memStore{
		bins:     make(map[string]*models.Bin),
		readings: make(map[string][]models.BinReading),
		tokens:   make(map[string]*models.FCMToken),
		users:    make(map[string]*models.User),
	}
}

func (s *memStore) id() string {
	s.nextID++
	return "id-" + strconv.Itoa(s.nextID)
}

func (s *memStore) addUser(u models.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = &u
}

func (s *memStore) addBin(b models.Bin) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bins[b.ID] = &b
}

func (s *memStore) addToken(t models.FCMToken) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tokens[t.ID] = &t
}

func (s *memStore) notificationCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.notifications)
}

func (s *memStore) tokenCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}

// ── database.BinStore ─────────────────────────────────────────────────

func (s *memStore) UpsertBinMetadata(binID string, fill float64, battery *float64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bin, ok := s.bins[binID]
	if !ok {
		bin = &models.Bin{ID: binID, CreatedAt: time.Now().Unix()}
		s.bins[binID] = bin
	}
	bin.FillPercentage = fill
	if battery != nil {
		bin.BatteryLevel = battery
	}
	bin.Alert = status
	bin.UpdatedAt = time.Now().Unix()
	return nil
}

func (s *memStore) AppendReading(r *models.BinReading) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if r.ID == "" {
		r.ID = s.id()
	}
	s.readings[r.BinID] = append(s.readings[r.BinID], *r)
	return nil
}

func (s *memStore) LatestReading(binID string) (*models.BinReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.readings[binID]
	if len(history) == 0 {
		return nil, database.ErrNotFound
	}
	latest := history[len(history)-1]
	return &latest, nil
}

func (s *memStore) ReadingHistory(binID string, limit int) ([]models.BinReading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	history := s.readings[binID]
	out := make([]models.BinReading, 0, limit)
	for i := len(history) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, history[i])
	}
	return out, nil
}

func (s *memStore) ClearHistory(binID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.readings, binID)
	return nil
}

func (s *memStore) GetBin(id string) (*models.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bin, ok := s.bins[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *bin
	return &copied, nil
}

func (s *memStore) ListBins(ownerID string) ([]models.Bin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bins := []models.Bin{}
	for _, bin := range s.bins {
		if ownerID == "" || bin.OwnerID == ownerID {
			bins = append(bins, *bin)
		}
	}
	return bins, nil
}

func (s *memStore) CreateBin(b *models.Bin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bins[b.ID] = b
	return nil
}

func (s *memStore) UpdateBin(b *models.Bin) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bins[b.ID]; !ok {
		return database.ErrNotFound
	}
	copied := *b
	s.bins[b.ID] = &copied
	return nil
}

func (s *memStore) UpdateBinEnvironment(binID string, temperature, humidity, weight *float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bin, ok := s.bins[binID]
	if !ok {
		return database.ErrNotFound
	}
	bin.Temperature = temperature
	bin.Humidity = humidity
	bin.Weight = weight
	return nil
}

func (s *memStore) DeleteBin(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.bins[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.bins, id)
	return nil
}

func (s *memStore) EmptyBin(id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bin, ok := s.bins[id]
	if !ok {
		return database.ErrNotFound
	}
	bin.FillPercentage = 0
	bin.Alert = models.StatusNormal
	bin.LastEmptied = &at
	return nil
}

func (s *memStore) BinOwner(binID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	bin, ok := s.bins[binID]
	if !ok || bin.OwnerID == "" {
		return "", database.ErrNotFound
	}
	return bin.OwnerID, nil
}

// ── database.NotificationStore ────────────────────────────────────────

func (s *memStore) InsertNotification(n *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.insertNotificationErr != nil {
		return s.insertNotificationErr
	}
	if n.ID == "" {
		n.ID = s.id()
	}
	copied := *n
	s.notifications = append(s.notifications, &copied)
	return nil
}

func (s *memStore) ListNotifications(userID string, limit int) ([]models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Notification{}
	for i := len(s.notifications) - 1; i >= 0 && len(out) < limit; i-- {
		n := s.notifications[i]
		if n.UserID == nil || *n.UserID == userID {
			out = append(out, *n)
		}
	}
	return out, nil
}

func (s *memStore) GetNotification(id string) (*models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id {
			copied := *n
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) UnreadCount(userID string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, n := range s.notifications {
		if (n.UserID == nil || *n.UserID == userID) && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *memStore) MarkRead(id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.ID == id {
			n.IsRead = true
			n.ReadAt = &at
			return nil
		}
	}
	return database.ErrNotFound
}

func (s *memStore) MarkAllRead(userID string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, n := range s.notifications {
		if n.UserID == nil || *n.UserID == userID {
			n.IsRead = true
			n.ReadAt = &at
		}
	}
	return nil
}

func (s *memStore) DeleteNotification(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, n := range s.notifications {
		if n.ID == id {
			s.notifications = append(s.notifications[:i], s.notifications[i+1:]...)
			return nil
		}
	}
	return database.ErrNotFound
}

// ── database.TokenStore ───────────────────────────────────────────────

func (s *memStore) UpsertToken(userID, token string, deviceInfo *string) (*models.FCMToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().Unix()
	for _, existing := range s.tokens {
		if existing.Token == token {
			existing.UserID = userID
			existing.LastActive = now
			copied := *existing
			return &copied, nil
		}
	}
	record := &models.FCMToken{
		ID:         s.id(),
		UserID:     userID,
		Token:      token,
		DeviceInfo: deviceInfo,
		CreatedAt:  now,
		LastActive: now,
	}
	s.tokens[record.ID] = record
	copied := *record
	return &copied, nil
}

func (s *memStore) ListTokens(userID string) ([]models.FCMToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listTokensErr != nil {
		return nil, s.listTokensErr
	}
	tokens := []models.FCMToken{}
	for _, token := range s.tokens {
		if token.UserID == userID {
			tokens = append(tokens, *token)
		}
	}
	return tokens, nil
}

func (s *memStore) GetToken(id string) (*models.FCMToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	token, ok := s.tokens[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *token
	return &copied, nil
}

func (s *memStore) DeleteToken(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.tokens[id]; !ok {
		return database.ErrNotFound
	}
	delete(s.tokens, id)
	return nil
}

func (s *memStore) DeleteTokenByValue(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.tokens {
		if existing.Token == token {
			delete(s.tokens, id)
		}
	}
	return nil
}

// ── database.UserStore ────────────────────────────────────────────────

func (s *memStore) GetUser(id string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, database.ErrNotFound
	}
	copied := *user
	return &copied, nil
}

func (s *memStore) GetUserByEmail(email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, user := range s.users {
		if user.Email == email {
			copied := *user
			return &copied, nil
		}
	}
	return nil, database.ErrNotFound
}

func (s *memStore) ListActiveUsers() ([]models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	users := []models.User{}
	for _, user := range s.users {
		if user.IsActive {
			users = append(users, *user)
		}
	}
	return users, nil
}

func (s *memStore) CreateUser(u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[u.ID] = u
	return nil
}

func (s *memStore) SetUserRole(id, role string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	user.Role = role
	return nil
}

func (s *memStore) SetUserActive(id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	user.IsActive = active
	return nil
}

func (s *memStore) TouchLastLogin(id string, at int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return database.ErrNotFound
	}
	user.LastLogin = &at
	return nil
}

// ── channel fakes ─────────────────────────────────────────────────────

type fakePush struct {
	mu     sync.Mutex
	calls  int
	tokens []string
	report *PushReport
	err    error
}

func (p *fakePush) SendMulticast(ctx context.Context, tokens []string, title, body string, data map[string]string) (*PushReport, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	p.tokens = append([]string{}, tokens...)
	if p.err != nil {
		return nil, p.err
	}
	if p.report != nil {
		return p.report, nil
	}
	return &PushReport{SuccessCount: len(tokens)}, nil
}

func (p *fakePush) callCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls
}

type mailCall struct {
	template  string
	recipient string
}

type fakeMail struct {
	mu      sync.Mutex
	calls   []mailCall
	failFor map[string]error // recipient email -> error
}

func (m *fakeMail) record(template, to string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, mailCall{template: template, recipient: to})
	if err, ok := m.failFor[to]; ok {
		return err
	}
	return nil
}

func (m *fakeMail) SendBinOverflowEmail(to, name, binID string, fillPercentage float64, address string) error {
	return m.record("binOverflow", to)
}

func (m *fakeMail) SendBinStatusEmail(to, name, binID, status string, fillPercentage float64) error {
	return m.record("binStatus", to)
}

func (m *fakeMail) SendCollectionScheduledEmail(to, name, binID, address string, scheduledFor time.Time) error {
	return m.record("collectionScheduled", to)
}

func (m *fakeMail) SendDailyDigestEmail(to, name string, bins []DigestBin) error {
	return m.record("dailyDigest", to)
}

func (m *fakeMail) callsFor(template string) []mailCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []mailCall{}
	for _, call := range m.calls {
		if call.template == template {
			out = append(out, call)
		}
	}
	return out
}

var errProvider = errors.New("provider unavailable")
