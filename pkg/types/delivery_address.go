package types

import (
	"database/sql/driver"
	"errors"
	"strings"
	"time"
)

// Coordinates is a WGS84 position.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Valid rejects out-of-range coordinates.
func (c Coordinates) Valid() bool {
	return c.Latitude >= -90 && c.Latitude <= 90 && c.Longitude >= -180 && c.Longitude <= 180
}

// DeliveryAddress is snapshotted onto orders and subscriptions as JSONB so
// later edits to a user's saved addresses never rewrite history.
type DeliveryAddress struct {
	Address     string       `json:"address"`
	Landmark    *string      `json:"landmark,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty"`
}

// Value marshals the address into JSON.
func (a DeliveryAddress) Value() (driver.Value, error) {
	if strings.TrimSpace(a.Address) == "" {
		return nil, errors.New("delivery address: missing address")
	}
	return jsonValue(a)
}

// Scan decodes JSONB into the address.
func (a *DeliveryAddress) Scan(value any) error {
	return scanColumn("delivery address", value, a)
}

// DeliveryPerson is the courier attached to an order once it is being prepared.
type DeliveryPerson struct {
	Name            string       `json:"name"`
	Phone           string       `json:"phone"`
	CurrentLocation *Coordinates `json:"current_location,omitempty"`
	LocationAt      *time.Time   `json:"location_updated_at,omitempty"`
}

func (d DeliveryPerson) Value() (driver.Value, error) {
	return jsonValue(d)
}

func (d *DeliveryPerson) Scan(value any) error {
	return scanColumn("delivery person", value, d)
}
