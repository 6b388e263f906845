package models

import (
	"strings"
	"time"

	"github.com/example/bloomcart/pkg/apperr"
)

// Status is the closed set of order lifecycle states.
type Status string

const (
	StatusPending    Status = "pending"
	StatusConfirmed  Status = "confirmed"
	StatusPreparing  Status = "preparing"
	StatusDelivering Status = "delivering"
	StatusDelivered  Status = "delivered"
	StatusCancelled  Status = "cancelled"
)

// Statuses lists every status in lifecycle order.
var Statuses = []Status{
	StatusPending,
	StatusConfirmed,
	StatusPreparing,
	StatusDelivering,
	StatusDelivered,
	StatusCancelled,
}

// FulfillableStatuses are the statuses in which an order can be picked up by a delivery agent.
var FulfillableStatuses = []Status{StatusConfirmed, StatusPreparing, StatusDelivering}

// ParseStatus normalises raw case-insensitively and rejects empty or unknown values.
func ParseStatus(raw string) (Status, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	if normalized == "" {
		return "", apperr.Validation("status is required")
	}
	for _, s := range Statuses {
		if string(s) == normalized {
			return s, nil
		}
	}
	return "", apperr.Validation("unknown status %q", raw)
}

// IsTerminal reports whether no further lifecycle progress is expected.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

type LineItem struct {
	FlowerID string  `json:"flowerId"`
	Quantity int     `json:"quantity"`
	Price    float64 `json:"price"`
}

// Subtotal is quantity × price.
func (i LineItem) Subtotal() float64 {
	return float64(i.Quantity) * i.Price
}

// Validate checks quantity ≥ 1 and price ≥ 0.
func (i LineItem) Validate() error {
	if strings.TrimSpace(i.FlowerID) == "" {
		return apperr.Validation("flowerId is required")
	}
	if i.Quantity < 1 {
		return apperr.Validation("quantity must be at least 1, got %d", i.Quantity)
	}
	if i.Price < 0 {
		return apperr.Validation("price must not be negative, got %v", i.Price)
	}
	return nil
}

// ItemPatch carries the optional fields of a line item update.
type ItemPatch struct {
	Quantity *int     `json:"quantity,omitempty"`
	Price    *float64 `json:"price,omitempty"`
}

func (p ItemPatch) Validate() error {
	if p.Quantity == nil && p.Price == nil {
		return apperr.Validation("quantity or price is required")
	}
	if p.Quantity != nil && *p.Quantity < 1 {
		return apperr.Validation("quantity must be at least 1, got %d", *p.Quantity)
	}
	if p.Price != nil && *p.Price < 0 {
		return apperr.Validation("price must not be negative, got %v", *p.Price)
	}
	return nil
}

// Apply overwrites the patched fields of item.
func (p ItemPatch) Apply(item *LineItem) {
	if p.Quantity != nil {
		item.Quantity = *p.Quantity
	}
	if p.Price != nil {
		item.Price = *p.Price
	}
}

type Order struct {
	ID              string     `json:"id"`
	OrderNumber     string     `json:"orderNumber"`
	UserID          string     `json:"userId"`
	FloristID       string     `json:"floristId,omitempty"`
	DeliverID       string     `json:"deliverId,omitempty"`
	Status          Status     `json:"status"`
	TotalPrice      float64    `json:"totalPrice"`
	City            string     `json:"city"`
	DeliveryAddress string     `json:"deliveryAddress,omitempty"`
	Items           []LineItem `json:"items"`
	CreatedAt       time.Time  `json:"createdAt"`
}

// ItemsTotal is Σ quantity × price over the line items.
func (o *Order) ItemsTotal() float64 {
	return SumItems(o.Items)
}

// FindItem returns the index of the first item for flowerID, or -1.
func (o *Order) FindItem(flowerID string) int {
	for i, item := range o.Items {
		if item.FlowerID == flowerID {
			return i
		}
	}
	return -1
}

func SumItems(items []LineItem) float64 {
	var total float64
	for _, item := range items {
		total += item.Subtotal()
	}
	return total
}

// OrderFilter selects orders. Zero fields do not constrain the result.
type OrderFilter struct {
	Statuses  []Status
	UserID    string
	FloristID string
	DeliverID string
	FlowerID  string
	// Unassigned matches orders without a delivery agent.
	Unassigned bool
	// MissingFlorist matches orders without a fulfilling shop.
	MissingFlorist bool
}
