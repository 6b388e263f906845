package repository

import (
	"context"
	"slices"
	"sort"
	"strings"
	"sync"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemoryStore is an in-process order store with the same per-update semantics as the
// Mongo store. It backs tests and local runs without a database.
type MemoryStore struct {
	mu     sync.Mutex
	orders map[string]*models.Order
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{orders: make(map[string]*models.Order)}
}

func (m *MemoryStore) Insert(_ context.Context, o *models.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if o.OrderNumber != "" {
		for _, existing := range m.orders {
			if existing.OrderNumber == o.OrderNumber {
				return apperr.Conflict(nil, "order number %s already exists", o.OrderNumber)
			}
		}
	}
	if o.ID == "" {
		o.ID = primitive.NewObjectID().Hex()
	}
	m.orders[o.ID] = cloneOrder(o)
	return nil
}

func (m *MemoryStore) FindByID(_ context.Context, id string) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id)
	}
	return cloneOrder(o), nil
}

func (m *MemoryStore) Find(_ context.Context, filter models.OrderFilter, opts query.Options) ([]models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []models.Order
	for _, o := range m.orders {
		if matches(o, filter) {
			out = append(out, *cloneOrder(o))
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		for _, f := range opts.Sort {
			c := compareField(&out[i], &out[j], f.Field)
			if c == 0 {
				continue
			}
			if f.Desc {
				return c > 0
			}
			return c < 0
		}
		return out[i].ID < out[j].ID
	})

	if opts.Paginate {
		skip := int(opts.Skip())
		if skip < 0 || skip >= len(out) {
			return []models.Order{}, nil
		}
		end := min(len(out), skip+opts.Limit)
		out = out[skip:end]
	}
	return out, nil
}

func (m *MemoryStore) Count(_ context.Context, filter models.OrderFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var n int64
	for _, o := range m.orders {
		if matches(o, filter) {
			n++
		}
	}
	return n, nil
}

func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.orders[id]; !ok {
		return apperr.NotFound("order", id)
	}
	delete(m.orders, id)
	return nil
}

func (m *MemoryStore) PushItem(_ context.Context, id string, item models.LineItem) (*models.Order, error) {
	return m.update(id, func(o *models.Order) error {
		o.Items = append(o.Items, item)
		o.TotalPrice += item.Subtotal()
		return nil
	})
}

func (m *MemoryStore) UpdateFirstItem(_ context.Context, id, flowerID string, patch models.ItemPatch) (*models.Order, error) {
	return m.update(id, func(o *models.Order) error {
		idx := o.FindItem(flowerID)
		if idx < 0 {
			return apperr.NotFound("line item", flowerID)
		}
		patch.Apply(&o.Items[idx])
		o.TotalPrice = o.ItemsTotal()
		return nil
	})
}

func (m *MemoryStore) PullItems(_ context.Context, id, flowerID string) (*models.Order, error) {
	return m.update(id, func(o *models.Order) error {
		o.Items = slices.DeleteFunc(o.Items, func(item models.LineItem) bool {
			return item.FlowerID == flowerID
		})
		o.TotalPrice = o.ItemsTotal()
		return nil
	})
}

func (m *MemoryStore) SetStatus(_ context.Context, id string, status models.Status) (*models.Order, error) {
	return m.update(id, func(o *models.Order) error {
		o.Status = status
		return nil
	})
}

func (m *MemoryStore) SetDeliver(_ context.Context, id, deliverID string, onlyUnassigned bool) (*models.Order, error) {
	return m.update(id, func(o *models.Order) error {
		if onlyUnassigned && o.DeliverID != "" && o.DeliverID != deliverID {
			return apperr.Conflict(nil, "order %s is already assigned", id)
		}
		o.DeliverID = deliverID
		return nil
	})
}

func (m *MemoryStore) SetFlorist(_ context.Context, id, floristID string) (*models.Order, error) {
	return m.update(id, func(o *models.Order) error {
		o.FloristID = floristID
		return nil
	})
}

func (m *MemoryStore) FillFlorist(_ context.Context, id, floristID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.FloristID != "" {
		return false, nil
	}
	o.FloristID = floristID
	return true, nil
}

func (m *MemoryStore) FloristReport(_ context.Context, floristID string, topFlowers int) (*models.FloristReport, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	report := &models.FloristReport{}
	byStatus := map[models.Status]*models.StatusBreakdown{}
	var statusOrder []models.Status
	flowers := map[string]*models.FlowerSales{}
	var flowerOrder []string

	for _, o := range m.orders {
		if o.FloristID != floristID {
			continue
		}
		report.Summary.TotalOrders++
		report.Summary.TotalRevenue += o.TotalPrice

		b, ok := byStatus[o.Status]
		if !ok {
			b = &models.StatusBreakdown{Status: o.Status}
			byStatus[o.Status] = b
			statusOrder = append(statusOrder, o.Status)
		}
		b.Count++
		b.Revenue += o.TotalPrice

		for _, item := range o.Items {
			f, ok := flowers[item.FlowerID]
			if !ok {
				f = &models.FlowerSales{FlowerID: item.FlowerID}
				flowers[item.FlowerID] = f
				flowerOrder = append(flowerOrder, item.FlowerID)
			}
			f.Quantity += int64(item.Quantity)
			f.Revenue += item.Subtotal()
		}
	}

	for _, s := range statusOrder {
		report.ByStatus = append(report.ByStatus, *byStatus[s])
	}
	sort.SliceStable(report.ByStatus, func(i, j int) bool {
		return report.ByStatus[i].Count > report.ByStatus[j].Count
	})

	for _, id := range flowerOrder {
		report.TopFlowers = append(report.TopFlowers, *flowers[id])
	}
	sort.SliceStable(report.TopFlowers, func(i, j int) bool {
		return report.TopFlowers[i].Quantity > report.TopFlowers[j].Quantity
	})
	if len(report.TopFlowers) > topFlowers {
		report.TopFlowers = report.TopFlowers[:topFlowers]
	}
	return report, nil
}

func (m *MemoryStore) update(id string, fn func(o *models.Order) error) (*models.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return nil, apperr.NotFound("order", id)
	}
	working := cloneOrder(o)
	if err := fn(working); err != nil {
		return nil, err
	}
	m.orders[id] = working
	return cloneOrder(working), nil
}

func matches(o *models.Order, f models.OrderFilter) bool {
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, o.Status) {
		return false
	}
	if f.UserID != "" && o.UserID != f.UserID {
		return false
	}
	if f.FloristID != "" && o.FloristID != f.FloristID {
		return false
	}
	if f.DeliverID != "" && o.DeliverID != f.DeliverID {
		return false
	}
	if f.FlowerID != "" && o.FindItem(f.FlowerID) < 0 {
		return false
	}
	if f.Unassigned && o.DeliverID != "" {
		return false
	}
	if f.MissingFlorist && o.FloristID != "" {
		return false
	}
	return true
}

func compareField(a, b *models.Order, field string) int {
	switch field {
	case "createdAt":
		return a.CreatedAt.Compare(b.CreatedAt)
	case "totalPrice":
		switch {
		case a.TotalPrice < b.TotalPrice:
			return -1
		case a.TotalPrice > b.TotalPrice:
			return 1
		}
		return 0
	case "status":
		return strings.Compare(string(a.Status), string(b.Status))
	case "city":
		return strings.Compare(a.City, b.City)
	case "orderNumber":
		return strings.Compare(a.OrderNumber, b.OrderNumber)
	case "id":
		return strings.Compare(a.ID, b.ID)
	case "userId":
		return strings.Compare(a.UserID, b.UserID)
	case "floristId":
		return strings.Compare(a.FloristID, b.FloristID)
	case "deliverId":
		return strings.Compare(a.DeliverID, b.DeliverID)
	case "deliveryAddress":
		return strings.Compare(a.DeliveryAddress, b.DeliveryAddress)
	default:
		return 0
	}
}

func cloneOrder(o *models.Order) *models.Order {
	c := *o
	c.Items = slices.Clone(o.Items)
	if c.Items == nil {
		c.Items = []models.LineItem{}
	}
	return &c
}
