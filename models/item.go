package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// InventoryItem is the canonical remote record for one tracked cut of meat.
// Timestamps and identity stamps are assigned by the repository layer on
// every write; clients never supply them.
type InventoryItem struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ItemName      string             `json:"itemName" bson:"itemName"`
	Category      string             `json:"category" bson:"category"`
	Quantity      int                `json:"quantity" bson:"quantity"`
	PurchaseDate  *time.Time         `json:"purchaseDate,omitempty" bson:"purchaseDate,omitempty"`
	ExpiryDate    *time.Time         `json:"expiryDate,omitempty" bson:"expiryDate,omitempty"`
	Notes         string             `json:"notes,omitempty" bson:"notes,omitempty"`
	ImageURL      string             `json:"imageUrl,omitempty" bson:"imageUrl,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
	LastUpdatedBy string             `json:"lastUpdatedBy" bson:"lastUpdatedBy"`
	UserID        string             `json:"userId" bson:"userId"`
}

// InventoryItemWithStatus is an InventoryItem plus its derived status.
// Status is a time-dependent projection: two reads of the same record may
// differ as the clock advances, so consumers must re-derive rather than
// cache it across renders.
type InventoryItemWithStatus struct {
	InventoryItem
	Status ItemStatus `json:"status"`
}

// WithStatus classifies a single item at the given instant.
func (i InventoryItem) WithStatus(now time.Time) InventoryItemWithStatus {
	return InventoryItemWithStatus{
		InventoryItem: i,
		Status:        ClassifyStatus(i.Quantity, i.ExpiryDate, now),
	}
}

// NeedItem is an entry on the reorder list. AddedByName is a deliberate
// point-in-time denormalization of the acting user's display name and is not
// kept in sync with later profile changes.
type NeedItem struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	ItemName    string             `json:"itemName" bson:"itemName"`
	Category    string             `json:"category" bson:"category"`
	CreatedAt   time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt   time.Time          `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
	AddedBy     string             `json:"addedBy" bson:"addedBy"`
	AddedByName string             `json:"addedByName,omitempty" bson:"addedByName,omitempty"`
}

// CreateItemRequest is the client payload for adding an inventory item.
type CreateItemRequest struct {
	ItemName     string     `json:"itemName" binding:"required"`
	Category     string     `json:"category" binding:"required"`
	Quantity     *int       `json:"quantity" binding:"required,gte=0"`
	PurchaseDate *time.Time `json:"purchaseDate"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	Notes        string     `json:"notes"`
	ImageURL     string     `json:"imageUrl"`
}

// UpdateItemRequest is a partial update; only non-nil fields are applied.
type UpdateItemRequest struct {
	ItemName     *string    `json:"itemName" binding:"omitempty,min=1"`
	Category     *string    `json:"category" binding:"omitempty,min=1"`
	Quantity     *int       `json:"quantity" binding:"omitempty,gte=0"`
	PurchaseDate *time.Time `json:"purchaseDate"`
	ExpiryDate   *time.Time `json:"expiryDate"`
	Notes        *string    `json:"notes"`
	ImageURL     *string    `json:"imageUrl"`
}

// CreateNeedRequest is the client payload for adding a reorder entry.
type CreateNeedRequest struct {
	ItemName string `json:"itemName" binding:"required"`
	Category string `json:"category" binding:"required"`
}

// UpdateNeedRequest is a partial update of a reorder entry.
type UpdateNeedRequest struct {
	ItemName *string `json:"itemName" binding:"omitempty,min=1"`
	Category *string `json:"category" binding:"omitempty,min=1"`
}
