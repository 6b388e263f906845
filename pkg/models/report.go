package models

type ReportSummary struct {
	TotalOrders  int64   `json:"totalOrders"`
	TotalRevenue float64 `json:"totalRevenue"`
}

type StatusBreakdown struct {
	Status  Status  `json:"status"`
	Count   int64   `json:"count"`
	Revenue float64 `json:"revenue"`
}

type FlowerSales struct {
	FlowerID string  `json:"flowerId"`
	Name     string  `json:"name,omitempty"`
	Quantity int64   `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// FloristReport is the analytics view over one shop's orders.
type FloristReport struct {
	Summary    ReportSummary     `json:"summary"`
	ByStatus   []StatusBreakdown `json:"byStatus"`
	TopFlowers []FlowerSales     `json:"topFlowers"`
}
