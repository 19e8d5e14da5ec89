package domain

import "time"

// Order is an immutable record written at checkout. It is logically closed
// (delivered) at admin approval; there is no delete.
type Order struct {
	OrderID    string     `json:"orderId"`
	CustomerID string     `json:"customerId"`
	Items      []CartItem `json:"items"`
	TotalUSD   float64    `json:"totalUsd"`
	TotalIDR   int64      `json:"totalIdr"`
	CreatedAt  time.Time  `json:"createdAt"`
}

// OrderStats is the incremental aggregate behind /stats.
type OrderStats struct {
	Count       int64   `json:"count"`
	RevenueUSD  float64 `json:"revenueUsd"`
	RevenueIDR  int64   `json:"revenueIdr"`
	LastOrderAt time.Time
}
