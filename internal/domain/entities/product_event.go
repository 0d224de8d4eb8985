package entities

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// ProductEventType represents the type of product event
type ProductEventType string

const (
	ProductEventTypeRationalized ProductEventType = "product_rationalized"
	ProductEventTypeCategorized  ProductEventType = "product_categorized"
)

// ProductEvent represents an update event for a product, published after the
// pipeline writes accepted changes back to the store.
type ProductEvent struct {
	ID            string                 `json:"id"`
	ProductID     string                 `json:"product_id"`
	EventType     ProductEventType       `json:"event_type"`
	Timestamp     time.Time              `json:"timestamp"`
	ChangedFields map[string]FieldChange `json:"changed_fields"`
}

// NewProductEvent creates a new product event
func NewProductEvent(productID string, eventType ProductEventType, changedFields map[string]FieldChange) *ProductEvent {
	return &ProductEvent{
		ID:            generateEventID(),
		ProductID:     productID,
		EventType:     eventType,
		Timestamp:     time.Now(),
		ChangedFields: changedFields,
	}
}

// generateEventID generates a unique event ID
func generateEventID() string {
	return time.Now().Format("20060102150405") + "-" + randomString(8)
}

// randomString generates a random string of specified length
func randomString(length int) string {
	bytes := make([]byte, length/2+1)
	if _, err := rand.Read(bytes); err != nil {
		// Fallback to timestamp-based if crypto/rand fails
		return time.Now().Format("150405.000")
	}
	return hex.EncodeToString(bytes)[:length]
}
