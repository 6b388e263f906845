package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"go.uber.org/zap"
)

type ResolutionOutcome int

const (
	ResolutionResolved ResolutionOutcome = iota
	ResolutionSkipped
	ResolutionFailed
)

func (o ResolutionOutcome) String() string {
	switch o {
	case ResolutionResolved:
		return "resolved"
	case ResolutionSkipped:
		return "skipped"
	default:
		return "failed"
	}
}

// Resolution is the result of inferring an order's shop from its first line item.
type Resolution struct {
	Outcome   ResolutionOutcome
	FloristID string
	Reason    string
	Err       error
}

// resolveFlorist never fails the caller; lookup errors become ResolutionFailed.
func (s *Service) resolveFlorist(ctx context.Context, items []models.LineItem) Resolution {
	if len(items) == 0 {
		return Resolution{Outcome: ResolutionSkipped, Reason: "order has no items"}
	}
	if s.catalog == nil {
		return Resolution{Outcome: ResolutionSkipped, Reason: "catalog unavailable"}
	}

	flowerID := items[0].FlowerID
	flower, err := s.catalog.Lookup(ctx, flowerID)
	if err != nil {
		if errors.Is(err, apperr.ErrNotFound) {
			return Resolution{Outcome: ResolutionSkipped, Reason: fmt.Sprintf("flower %s not in catalog", flowerID)}
		}
		return Resolution{Outcome: ResolutionFailed, Err: fmt.Errorf("lookup flower %s: %w", flowerID, err)}
	}
	if flower.FloristID == "" {
		return Resolution{Outcome: ResolutionSkipped, Reason: fmt.Sprintf("flower %s has no florist", flowerID)}
	}
	return Resolution{Outcome: ResolutionResolved, FloristID: flower.FloristID}
}

type SweepError struct {
	OrderID string `json:"orderId"`
	Error   string `json:"error"`
}

// SweepResult collects per-order outcomes of a repair sweep.
type SweepResult struct {
	Scanned int          `json:"scanned"`
	Updated int          `json:"updated"`
	Skipped int          `json:"skipped"`
	Errors  []SweepError `json:"errors"`
}

// MissingFlorist lists orders that have no fulfilling shop.
func (s *Service) MissingFlorist(ctx context.Context, actor models.Actor) ([]models.Order, error) {
	if err := RequireRole(actor, OpRepair); err != nil {
		return nil, err
	}
	page, err := s.page(ctx, models.OrderFilter{MissingFlorist: true}, defaultListOptions())
	if err != nil {
		return nil, err
	}
	return page.Orders, nil
}

// RepairFlorists backfills floristId on every order lacking one. Each order is handled
// independently; failures are collected and never abort the sweep.
func (s *Service) RepairFlorists(ctx context.Context, actor models.Actor) (*SweepResult, error) {
	if err := RequireRole(actor, OpRepair); err != nil {
		return nil, err
	}
	orders, err := s.store.Find(ctx, models.OrderFilter{MissingFlorist: true}, defaultListOptions())
	if err != nil {
		return nil, apperr.Wrap(err, "find orders without florist")
	}

	result := &SweepResult{Scanned: len(orders), Errors: []SweepError{}}
	for i := range orders {
		if err := ctx.Err(); err != nil {
			return result, apperr.Wrap(err, "florist sweep interrupted")
		}
		o := &orders[i]

		res := s.resolveFlorist(ctx, o.Items)
		switch res.Outcome {
		case ResolutionSkipped:
			result.Skipped++
			continue
		case ResolutionFailed:
			result.Errors = append(result.Errors, SweepError{OrderID: o.ID, Error: res.Err.Error()})
			continue
		}

		updated, err := s.store.FillFlorist(ctx, o.ID, res.FloristID)
		if err != nil {
			result.Errors = append(result.Errors, SweepError{OrderID: o.ID, Error: err.Error()})
			continue
		}
		if !updated {
			result.Skipped++
			continue
		}
		result.Updated++
		s.logger.Info("Backfilled florist", zap.String("order_id", o.ID), zap.String("florist_id", res.FloristID))
		s.audit(ctx, actor, "backfill_florist", o.ID, map[string]any{"floristId": res.FloristID})
	}

	return result, nil
}
