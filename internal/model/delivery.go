package model

import "time"

const (
	DeliveryDelivered = "delivered"
	DeliveryFailed    = "failed"
)

// Delivery records the outcome of one notification channel for one acceptance.
type Delivery struct {
	DocumentID  string    `json:"document_id"`
	Channel     string    `json:"channel"`
	Status      string    `json:"status"`
	Attempts    int       `json:"attempts"`
	Error       string    `json:"error,omitempty"`
	DeliveredAt time.Time `json:"delivered_at"`
}
