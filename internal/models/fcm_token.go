package models

// FCMToken is a registered push-notification device token. Upserted by token
// value so a device re-registering under a new user moves to that user.
type FCMToken struct {
	ID         string  `json:"id" db:"id"`
	UserID     string  `json:"user_id" db:"user_id"`
	Token      string  `json:"-" db:"token"` // never expose the raw token in JSON
	DeviceInfo *string `json:"device_info,omitempty" db:"device_info"`
	CreatedAt  int64   `json:"created_at" db:"created_at"`
	LastActive int64   `json:"last_active" db:"last_active"`
}

// RegisterTokenRequest is the request body for POST /api/users/fcm-token
type RegisterTokenRequest struct {
	Token      string  `json:"token"`
	DeviceInfo *string `json:"device_info,omitempty"`
}
