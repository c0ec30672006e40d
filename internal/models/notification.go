package models

import "time"

// Notification types
const (
	NotificationTypeWarning = "warning"
	NotificationTypeSuccess = "success"
	NotificationTypeInfo    = "info"
	NotificationTypeTest    = "test"
)

type Notification struct {
	ID        string  `json:"id" db:"id"`
	UserID    *string `json:"user_id,omitempty" db:"user_id"` // nil means broadcast
	BinID     *string `json:"bin_id,omitempty" db:"bin_id"`
	Title     string  `json:"title" db:"title"`
	Message   string  `json:"message" db:"message"`
	Type      string  `json:"type" db:"type"`
	Priority  string  `json:"priority" db:"priority"` // "low", "normal", "high"
	Category  string  `json:"category" db:"category"`
	IsRead    bool    `json:"is_read" db:"is_read"`
	ReadAt    *int64  `json:"read_at,omitempty" db:"read_at"`
	CreatedAt int64   `json:"created_at" db:"created_at"`
}

type NotificationResponse struct {
	ID           string  `json:"id"`
	UserID       *string `json:"user_id,omitempty"`
	BinID        *string `json:"bin_id,omitempty"`
	Title        string  `json:"title"`
	Message      string  `json:"message"`
	Type         string  `json:"type"`
	Priority     string  `json:"priority"`
	Category     string  `json:"category"`
	IsRead       bool    `json:"is_read"`
	ReadAtIso    *string `json:"readAtIso,omitempty"`
	CreatedAtIso string  `json:"createdAtIso"`
}

func (n *Notification) ToNotificationResponse() NotificationResponse {
	resp := NotificationResponse{
		ID:           n.ID,
		UserID:       n.UserID,
		BinID:        n.BinID,
		Title:        n.Title,
		Message:      n.Message,
		Type:         n.Type,
		Priority:     n.Priority,
		Category:     n.Category,
		IsRead:       n.IsRead,
		CreatedAtIso: time.Unix(n.CreatedAt, 0).Format(time.RFC3339),
	}

	if n.ReadAt != nil {
		iso := time.Unix(*n.ReadAt, 0).Format(time.RFC3339)
		resp.ReadAtIso = &iso
	}

	return resp
}
