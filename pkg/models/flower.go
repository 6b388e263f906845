package models

// Flower is the catalog projection the order service needs.
type Flower struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	FloristID string `json:"floristId"`
}
