// Package orders is the query side of the storefront: it fetches orders one
// page at a time through opaque next/previous cursors, classifies admin
// search input, and exposes status updates for staff views.
package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is an order's lifecycle state, matching the backend's vocabulary.
type Status string

const (
	StatusPending   Status = "pending"
	StatusAssigned  Status = "assigned"
	StatusPicked    Status = "picked"
	StatusDelivered Status = "delivered"
)

// statusLabels maps each status to its display label.
var statusLabels = map[Status]string{
	StatusPending:   "Pending",
	StatusAssigned:  "Assigned",
	StatusPicked:    "Picked",
	StatusDelivered: "Delivered",
}

// Statuses lists all statuses in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusAssigned, StatusPicked, StatusDelivered}
}

// Label returns the display label for the status, falling back to the raw
// value for statuses this client does not know.
func (s Status) Label() string {
	if l, ok := statusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Summary is one order row in a listing.
type Summary struct {
	ID            int64           `json:"id"`
	OrderNumber   string          `json:"order_number"`
	Status        Status          `json:"status"`
	StatusDisplay string          `json:"status_display"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	CreatedAt     time.Time       `json:"created_at"`
	CustomerName  string          `json:"customer_name"`
}

// CustomerInfo identifies the customer on a full order.
type CustomerInfo struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
	Email string `json:"email"`
}

// AddressInfo is the delivery address on a full order.
type AddressInfo struct {
	AddressLine1        string `json:"address_line_1"`
	AddressLine2        string `json:"address_line_2"`
	NoInterior          string `json:"no_interior"`
	NoExterior          string `json:"no_exterior"`
	SpecialInstructions string `json:"special_instructions"`
}

// Item is one line of a full order, with the name and size captured at order
// time.
type Item struct {
	MenuItemID int64           `json:"menu_item_id"`
	SizeID     int64           `json:"size_id"`
	ItemName   string          `json:"item_name"`
	SizeName   string          `json:"size_name"`
	Quantity   int             `json:"quantity"`
	Price      decimal.Decimal `json:"price"`
}

// Order is the full admin-facing order record.
type Order struct {
	ID                  int64           `json:"id"`
	OrderNumber         string          `json:"order_number"`
	Status              Status          `json:"status"`
	CustomerInfo        CustomerInfo    `json:"customer_info"`
	AddressInfo         AddressInfo     `json:"address_info"`
	SpecialInstructions string          `json:"special_instructions"`
	Items               []Item          `json:"items"`
	TotalAmount         decimal.Decimal `json:"total_amount"`
	TransactionID       string          `json:"transaction_id"`
	CreatedAt           time.Time       `json:"created_at"`
	LastUpdated         time.Time       `json:"last_updated"`
}
