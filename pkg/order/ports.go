package order

import (
	"context"

	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/query"
)

// Store persists orders. Every mutation is a single atomic document update and
// returns the order as it is after the update.
type Store interface {
	Insert(ctx context.Context, o *models.Order) error
	FindByID(ctx context.Context, id string) (*models.Order, error)
	Find(ctx context.Context, filter models.OrderFilter, opts query.Options) ([]models.Order, error)
	Count(ctx context.Context, filter models.OrderFilter) (int64, error)
	Delete(ctx context.Context, id string) error

	// PushItem appends item and increments totalPrice by its subtotal.
	PushItem(ctx context.Context, id string, item models.LineItem) (*models.Order, error)
	// UpdateFirstItem patches the first item for flowerID and recomputes totalPrice.
	UpdateFirstItem(ctx context.Context, id, flowerID string, patch models.ItemPatch) (*models.Order, error)
	// PullItems removes every item for flowerID and recomputes totalPrice.
	PullItems(ctx context.Context, id, flowerID string) (*models.Order, error)

	SetStatus(ctx context.Context, id string, status models.Status) (*models.Order, error)
	// SetDeliver assigns the delivery agent. With onlyUnassigned the update applies only
	// while the order has no agent or already has deliverID, otherwise ErrConflict.
	SetDeliver(ctx context.Context, id, deliverID string, onlyUnassigned bool) (*models.Order, error)
	SetFlorist(ctx context.Context, id, floristID string) (*models.Order, error)
	// FillFlorist sets floristID only while the order still has none. It reports
	// whether the order was updated.
	FillFlorist(ctx context.Context, id, floristID string) (bool, error)

	// FloristReport aggregates the shop's orders. Top flowers carry no names.
	FloristReport(ctx context.Context, floristID string, topFlowers int) (*models.FloristReport, error)
}

// Catalog resolves product references. It returns an apperr not-found error for
// unknown flowers.
type Catalog interface {
	Lookup(ctx context.Context, flowerID string) (models.Flower, error)
}

// Auditor receives an entry for every successful mutation. Implementations must not block.
type Auditor interface {
	Record(ctx context.Context, entry models.AuditEntry)
}

type nopAuditor struct{}

func (nopAuditor) Record(context.Context, models.AuditEntry) {}
