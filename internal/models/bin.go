package models

import "time"

type Bin struct {
	ID             string   `json:"id" db:"id"` // externally assigned device binId
	Name           string   `json:"name" db:"name"`
	Address        string   `json:"address" db:"address"`
	Capacity       int      `json:"capacity" db:"capacity"`
	WasteType      string   `json:"waste_type" db:"waste_type"`
	OwnerID        string   `json:"owner_id" db:"owner_id"`
	FillPercentage float64  `json:"fill_percentage" db:"fill_percentage"`
	BatteryLevel   *float64 `json:"battery_level,omitempty" db:"battery_level"`
	Alert          string   `json:"alert" db:"alert"` // "normal", "warning", "critical"
	Temperature    *float64 `json:"temperature,omitempty" db:"temperature"`
	Humidity       *float64 `json:"humidity,omitempty" db:"humidity"`
	Weight         *float64 `json:"weight,omitempty" db:"weight"`
	LastEmptied    *int64   `json:"last_emptied,omitempty" db:"last_emptied"` // Unix timestamp
	CreatedAt      int64    `json:"created_at" db:"created_at"`               // Unix timestamp
	UpdatedAt      int64    `json:"updated_at" db:"updated_at"`               // Unix timestamp
}

// BinResponse is what we send to the client with ISO timestamps
type BinResponse struct {
	ID             string   `json:"id"`
	Name           string   `json:"name"`
	Address        string   `json:"address"`
	Capacity       int      `json:"capacity"`
	WasteType      string   `json:"waste_type"`
	OwnerID        string   `json:"owner_id"`
	FillPercentage float64  `json:"fill_percentage"`
	BatteryLevel   *float64 `json:"battery_level,omitempty"`
	Alert          string   `json:"alert"`
	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	LastEmptiedIso *string  `json:"lastEmptiedIso,omitempty"`
	CreatedAtIso   string   `json:"createdAtIso"`
	UpdatedAtIso   string   `json:"updatedAtIso"`
}

// CreateBinRequest is the request body for POST /api/bins
type CreateBinRequest struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Address   string `json:"address"`
	Capacity  int    `json:"capacity"`
	WasteType string `json:"waste_type"`
}

// UpdateBinRequest is the request body for PUT /api/bins/:id
type UpdateBinRequest struct {
	Name      *string `json:"name,omitempty"`
	Address   *string `json:"address,omitempty"`
	Capacity  *int    `json:"capacity,omitempty"`
	WasteType *string `json:"waste_type,omitempty"`
}

// SensorUpdateRequest is the request body for PATCH /api/bins/:id/sensor
type SensorUpdateRequest struct {
	Temperature    *float64 `json:"temperature,omitempty"`
	Humidity       *float64 `json:"humidity,omitempty"`
	Weight         *float64 `json:"weight,omitempty"`
	FillPercentage *float64 `json:"fillPercentage,omitempty"`
	BatteryLevel   *float64 `json:"batteryLevel,omitempty"`
}

// ToBinResponse converts a Bin to BinResponse
func (b *Bin) ToBinResponse() BinResponse {
	resp := BinResponse{
		ID:             b.ID,
		Name:           b.Name,
		Address:        b.Address,
		Capacity:       b.Capacity,
		WasteType:      b.WasteType,
		OwnerID:        b.OwnerID,
		FillPercentage: b.FillPercentage,
		BatteryLevel:   b.BatteryLevel,
		Alert:          b.Alert,
		Temperature:    b.Temperature,
		Humidity:       b.Humidity,
		Weight:         b.Weight,
		CreatedAtIso:   time.Unix(b.CreatedAt, 0).Format(time.RFC3339),
		UpdatedAtIso:   time.Unix(b.UpdatedAt, 0).Format(time.RFC3339),
	}

	if b.LastEmptied != nil {
		iso := time.Unix(*b.LastEmptied, 0).Format(time.RFC3339)
		resp.LastEmptiedIso = &iso
	}

	return resp
}
