package models

import "time"

// BinReading is one time-series row per ingestion event. Append-only.
type BinReading struct {
	ID             string   `json:"id" db:"id"`
	BinID          string   `json:"bin_id" db:"bin_id"`
	Distance       float64  `json:"distance" db:"distance"`
	FillPercentage float64  `json:"fill_percentage" db:"fill_percentage"`
	Status         string   `json:"status" db:"status"`
	BatteryLevel   *float64 `json:"battery_level,omitempty" db:"battery_level"`
	RecordedAt     int64    `json:"recorded_at" db:"recorded_at"` // Unix timestamp
}

// ReadingResponse is what we send to the client with ISO timestamps
type ReadingResponse struct {
	ID             string   `json:"id"`
	BinID          string   `json:"bin_id"`
	Distance       float64  `json:"distance"`
	FillPercentage float64  `json:"fill_percentage"`
	Status         string   `json:"status"`
	BatteryLevel   *float64 `json:"battery_level,omitempty"`
	RecordedAtIso  string   `json:"recordedAtIso"`
}

// IngestRequest is the request body for POST /api/esp/data and POST /api/bin-data.
// Distance and FillPercentage are pointers so an absent field can be told apart
// from a legitimate zero.
type IngestRequest struct {
	BinID          string   `json:"binId"`
	Distance       *float64 `json:"distance"`
	FillPercentage *float64 `json:"fillPercentage"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`
	Status         string   `json:"status,omitempty"`
}

// ToReadingResponse converts a BinReading to ReadingResponse
func (r *BinReading) ToReadingResponse() ReadingResponse {
	return ReadingResponse{
		ID:             r.ID,
		BinID:          r.BinID,
		Distance:       r.Distance,
		FillPercentage: r.FillPercentage,
		Status:         r.Status,
		BatteryLevel:   r.BatteryLevel,
		RecordedAtIso:  time.Unix(r.RecordedAt, 0).Format(time.RFC3339),
	}
}
