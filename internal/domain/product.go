package domain

import "time"

// Product is a catalog entry. ID is a unique lowercase slug.
type Product struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	PriceUSD    float64   `json:"priceUsd"`
	Stock       int       `json:"stock"`
	Category    string    `json:"category,omitempty"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}
