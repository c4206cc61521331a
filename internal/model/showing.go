package model

import "time"

// ShowingStatus represents the state of a showing request.
type ShowingStatus string

const (
	ShowingStatusRequested ShowingStatus = "requested"
	ShowingStatusConfirmed ShowingStatus = "confirmed"
	ShowingStatusDeclined  ShowingStatus = "declined"
	ShowingStatusCancelled ShowingStatus = "cancelled"
)

// ShowingRequest is a buyer's request to tour a listed property.
type ShowingRequest struct {
	ID          string        `json:"id"`
	ListingID   string        `json:"listing_id"`
	BuyerID     string        `json:"buyer_id"`
	RequestedAt time.Time     `json:"requested_at"`
	Message     string        `json:"message,omitempty"`
	Status      ShowingStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}
