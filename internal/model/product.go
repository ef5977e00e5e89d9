package model

import "time"

// Product is a single tracked marketplace item. The ASIN doubles as the key
// in the persisted state file, so it is not serialized into the record body.
type Product struct {
	ASIN             string       `json:"-"`
	Name             string       `json:"name"`
	URL              string       `json:"url,omitempty"`
	LastPrice        *int         `json:"last_price"`
	LastAvailability string       `json:"last_availability,omitempty"`
	LastChecked      *time.Time   `json:"last_checked"`
	PriceHistory     []PricePoint `json:"price_history,omitempty"`
}

// PricePoint records one observed price change.
type PricePoint struct {
	Price     int       `json:"price"`
	Timestamp time.Time `json:"timestamp"`
}
