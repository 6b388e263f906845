package order

import (
	"context"
	"strings"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"go.uber.org/zap"
)

// loadEditable loads the order and applies the cart gate: owners while pending,
// admins always.
func (s *Service) loadEditable(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	if err := RequireRole(actor, OpEditCart); err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, o, OpEditCart); err != nil {
		return nil, err
	}
	if !actor.IsAdmin() && o.Status != models.StatusPending {
		return nil, apperr.Validation("order %s can no longer be modified in status %s", o.ID, o.Status)
	}
	return o, nil
}

// AddItem appends a line item and increments totalPrice by quantity × price in the
// same store update.
func (s *Service) AddItem(ctx context.Context, actor models.Actor, id string, item models.LineItem) (*models.Order, error) {
	item.FlowerID = strings.TrimSpace(item.FlowerID)
	if err := item.Validate(); err != nil {
		return nil, err
	}
	o, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.PushItem(ctx, o.ID, item)
	if err != nil {
		return nil, apperr.Wrap(err, "add line item")
	}

	s.logger.Debug("Line item added", zap.String("order_id", o.ID), zap.String("flower_id", item.FlowerID))
	s.audit(ctx, actor, "add_item", o.ID, map[string]any{
		"flowerId": item.FlowerID,
		"quantity": item.Quantity,
		"price":    item.Price,
	})
	return updated, nil
}

// UpdateItem overwrites the given fields of the first item for flowerID. The store
// recomputes totalPrice from the resulting items.
func (s *Service) UpdateItem(ctx context.Context, actor models.Actor, id, flowerID string, patch models.ItemPatch) (*models.Order, error) {
	flowerID = strings.TrimSpace(flowerID)
	if flowerID == "" {
		return nil, apperr.Validation("flowerId is required")
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}
	o, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if o.FindItem(flowerID) < 0 {
		return nil, apperr.NotFound("line item", flowerID)
	}

	updated, err := s.store.UpdateFirstItem(ctx, o.ID, flowerID, patch)
	if err != nil {
		return nil, apperr.Wrap(err, "update line item")
	}

	data := map[string]any{"flowerId": flowerID}
	if patch.Quantity != nil {
		data["quantity"] = *patch.Quantity
	}
	if patch.Price != nil {
		data["price"] = *patch.Price
	}
	s.audit(ctx, actor, "update_item", o.ID, data)
	return updated, nil
}

// RemoveResult is the order after removal plus the amount taken off the total,
// computed from the pre-removal items.
type RemoveResult struct {
	Order   *models.Order
	Removed float64
}

// RemoveItem strips every item for flowerID and recomputes totalPrice.
func (s *Service) RemoveItem(ctx context.Context, actor models.Actor, id, flowerID string) (*RemoveResult, error) {
	flowerID = strings.TrimSpace(flowerID)
	if flowerID == "" {
		return nil, apperr.Validation("flowerId is required")
	}
	o, err := s.loadEditable(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	var removed float64
	matches := 0
	for _, item := range o.Items {
		if item.FlowerID == flowerID {
			removed += item.Subtotal()
			matches++
		}
	}
	if matches == 0 {
		return nil, apperr.NotFound("line item", flowerID)
	}
	if matches > 1 {
		s.logger.Warn("Removing duplicate line items",
			zap.String("order_id", o.ID),
			zap.String("flower_id", flowerID),
			zap.Int("matches", matches))
	}

	updated, err := s.store.PullItems(ctx, o.ID, flowerID)
	if err != nil {
		return nil, apperr.Wrap(err, "remove line item")
	}

	s.audit(ctx, actor, "remove_item", o.ID, map[string]any{"flowerId": flowerID, "removed": removed})
	return &RemoveResult{Order: updated, Removed: removed}, nil
}
