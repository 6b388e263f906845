package order

import (
	"context"
	"math/rand/v2"
	"strings"
	"time"

	"github.com/example/bloomcart/pkg/apperr"
	"github.com/example/bloomcart/pkg/models"
	"github.com/example/bloomcart/pkg/query"
	"go.uber.org/zap"
)

const (
	auditService     = "order-service"
	topFlowersLimit  = 5
	orderNumberRange = 1000
)

// Service owns order state: creation, lifecycle transitions, cart edits, florist
// backfill and shop analytics. It holds no per-order locks; concurrent requests are
// coordinated only by the atomicity of single store updates.
type Service struct {
	store   Store
	catalog Catalog
	auditor Auditor
	logger  *zap.Logger
	now     func() time.Time
	randN   func(n int) int

	freezeTerminal bool
}

type Option func(*Service)

func WithAuditor(a Auditor) Option {
	return func(s *Service) {
		if a != nil {
			s.auditor = a
		}
	}
}

// WithClock overrides the time source used for createdAt and order numbers.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithRandom overrides the order number suffix source.
func WithRandom(randN func(n int) int) Option {
	return func(s *Service) {
		if randN != nil {
			s.randN = randN
		}
	}
}

// WithTerminalFreeze makes delivered and cancelled orders immutable for everyone but
// admins. Off by default: any role may move an order out of a terminal status as long
// as the target is in its allowed set and it owns the order.
func WithTerminalFreeze(on bool) Option {
	return func(s *Service) {
		s.freezeTerminal = on
	}
}

func NewService(store Store, catalog Catalog, logger *zap.Logger, opts ...Option) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Service{
		store:   store,
		catalog: catalog,
		auditor: nopAuditor{},
		logger:  logger,
		now:     time.Now,
		randN:   rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateInput is the checkout payload.
type CreateInput struct {
	UserID          string
	FloristID       string
	DeliverID       string
	TotalPrice      *float64
	City            string
	DeliveryAddress string
	Items           []models.LineItem
}

// Create validates the checkout, backfills the florist when absent and stores a new
// pending order. A user's own id always replaces the payload userId.
func (s *Service) Create(ctx context.Context, actor models.Actor, in CreateInput) (*models.Order, error) {
	if err := RequireRole(actor, OpCreate); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleUser {
		in.UserID = actor.ID
		in.DeliverID = ""
	}
	items := make([]models.LineItem, len(in.Items))
	for i, item := range in.Items {
		item.FlowerID = strings.TrimSpace(item.FlowerID)
		items[i] = item
	}
	in.Items = items
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	now := s.now()
	o := &models.Order{
		OrderNumber:     s.orderNumber(now),
		UserID:          strings.TrimSpace(in.UserID),
		FloristID:       strings.TrimSpace(in.FloristID),
		DeliverID:       strings.TrimSpace(in.DeliverID),
		Status:          models.StatusPending,
		TotalPrice:      models.SumItems(items),
		City:            strings.TrimSpace(in.City),
		DeliveryAddress: strings.TrimSpace(in.DeliveryAddress),
		Items:           items,
		CreatedAt:       now,
	}

	if in.TotalPrice != nil && *in.TotalPrice != o.TotalPrice {
		s.logger.Debug("Client total differs from line items, using line items",
			zap.Float64("client_total", *in.TotalPrice),
			zap.Float64("items_total", o.TotalPrice))
	}

	if o.FloristID == "" {
		res := s.resolveFlorist(ctx, o.Items)
		switch res.Outcome {
		case ResolutionResolved:
			o.FloristID = res.FloristID
			s.logger.Info("Auto-assigned florist from first item", zap.String("florist_id", res.FloristID))
		case ResolutionFailed:
			s.logger.Warn("Could not auto-assign florist", zap.Error(res.Err))
		case ResolutionSkipped:
			s.logger.Warn("Florist left unassigned", zap.String("reason", res.Reason))
		}
	}

	if err := s.store.Insert(ctx, o); err != nil {
		return nil, apperr.Wrap(err, "create order")
	}

	s.logger.Info("Order created", zap.String("order_id", o.ID), zap.String("order_number", o.OrderNumber))
	s.audit(ctx, actor, "create_order", o.ID, map[string]any{
		"orderNumber": o.OrderNumber,
		"userId":      o.UserID,
		"floristId":   o.FloristID,
		"totalPrice":  o.TotalPrice,
	})
	return o, nil
}

func validateCreate(in CreateInput) error {
	if strings.TrimSpace(in.UserID) == "" {
		return apperr.Validation("userId is required")
	}
	if strings.TrimSpace(in.City) == "" {
		return apperr.Validation("city is required")
	}
	if len(in.Items) == 0 {
		return apperr.Validation("items must not be empty")
	}
	if in.TotalPrice != nil && *in.TotalPrice < 0 {
		return apperr.Validation("totalPrice must not be negative")
	}
	for _, item := range in.Items {
		if err := item.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Get returns one order visible to actor.
func (s *Service) Get(ctx context.Context, actor models.Actor, id string) (*models.Order, error) {
	if err := RequireRole(actor, OpRead); err != nil {
		return nil, err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, o, OpRead); err != nil {
		return nil, err
	}
	return o, nil
}

// Page is one list result. Meta is nil when the caller did not ask for pagination.
type Page struct {
	Orders []models.Order
	Meta   *query.Meta
}

// List returns orders matching filter. Florists and delivery agents only ever see
// their own orders whatever the filter says.
func (s *Service) List(ctx context.Context, actor models.Actor, filter models.OrderFilter, opts query.Options) (*Page, error) {
	if err := RequireRole(actor, OpList); err != nil {
		return nil, err
	}
	switch actor.Role {
	case models.RoleFlorist:
		filter.FloristID = actor.ID
	case models.RoleDeliver:
		filter.DeliverID = actor.ID
	}
	return s.page(ctx, filter, opts)
}

func (s *Service) ListByUser(ctx context.Context, actor models.Actor, userID string, opts query.Options) (*Page, error) {
	if err := RequireSelf(actor, models.RoleUser, userID); err != nil {
		return nil, err
	}
	return s.page(ctx, models.OrderFilter{UserID: userID}, opts)
}

func (s *Service) ListByFlorist(ctx context.Context, actor models.Actor, floristID string, opts query.Options) (*Page, error) {
	if err := RequireSelf(actor, models.RoleFlorist, floristID); err != nil {
		return nil, err
	}
	return s.page(ctx, models.OrderFilter{FloristID: floristID}, opts)
}

func (s *Service) ListByDeliver(ctx context.Context, actor models.Actor, deliverID string, opts query.Options) (*Page, error) {
	if err := RequireSelf(actor, models.RoleDeliver, deliverID); err != nil {
		return nil, err
	}
	return s.page(ctx, models.OrderFilter{DeliverID: deliverID}, opts)
}

// ListAvailable returns unassigned orders a delivery agent could pick up.
func (s *Service) ListAvailable(ctx context.Context, actor models.Actor, opts query.Options) (*Page, error) {
	if err := RequireRole(actor, OpListAvailable); err != nil {
		return nil, err
	}
	filter := models.OrderFilter{Statuses: models.FulfillableStatuses, Unassigned: true}
	return s.page(ctx, filter, opts)
}

// ListByFlower returns orders containing flowerID; florists see only their shop's.
func (s *Service) ListByFlower(ctx context.Context, actor models.Actor, flowerID string, opts query.Options) (*Page, error) {
	if err := RequireRole(actor, OpListByFlower); err != nil {
		return nil, err
	}
	if strings.TrimSpace(flowerID) == "" {
		return nil, apperr.Validation("flowerId is required")
	}
	filter := models.OrderFilter{FlowerID: flowerID}
	if actor.Role == models.RoleFlorist {
		filter.FloristID = actor.ID
	}
	return s.page(ctx, filter, opts)
}

func (s *Service) page(ctx context.Context, filter models.OrderFilter, opts query.Options) (*Page, error) {
	orders, err := s.store.Find(ctx, filter, opts)
	if err != nil {
		return nil, apperr.Wrap(err, "list orders")
	}
	if orders == nil {
		orders = []models.Order{}
	}
	page := &Page{Orders: orders}
	if opts.Paginate {
		total, err := s.store.Count(ctx, filter)
		if err != nil {
			return nil, apperr.Wrap(err, "count orders")
		}
		meta := opts.Meta(total)
		page.Meta = &meta
	}
	return page, nil
}

// Transition sets the order status under the role matrix and ownership rules. It has
// no compensating side effects.
func (s *Service) Transition(ctx context.Context, actor models.Actor, id, rawStatus string) (*models.Order, error) {
	target, err := models.ParseStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	if !CanSetStatus(actor.Role, target) {
		return nil, apperr.Forbidden("role %q may not set status %s (allowed: %v)", actor.Role, target, AllowedTargets(actor.Role))
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, o, OpTransition); err != nil {
		return nil, err
	}
	if s.freezeTerminal {
		if err := checkNotTerminal(actor, o); err != nil {
			return nil, err
		}
	}

	updated, err := s.store.SetStatus(ctx, o.ID, target)
	if err != nil {
		return nil, apperr.Wrap(err, "update order status")
	}

	s.logger.Info("Order status changed",
		zap.String("order_id", o.ID),
		zap.String("from", string(o.Status)),
		zap.String("to", string(target)),
		zap.String("actor_role", string(actor.Role)))
	s.audit(ctx, actor, "update_status", o.ID, map[string]any{"from": o.Status, "to": target})
	return updated, nil
}

// AssignDeliver sets the delivery agent. Agents may only take unassigned orders for
// themselves; admins may assign anyone.
func (s *Service) AssignDeliver(ctx context.Context, actor models.Actor, id, deliverID string) (*models.Order, error) {
	if err := RequireRole(actor, OpAssignDeliver); err != nil {
		return nil, err
	}
	if actor.Role == models.RoleDeliver {
		if deliverID != "" && deliverID != actor.ID {
			return nil, apperr.Forbidden("delivery agents may only assign themselves")
		}
		deliverID = actor.ID
	}
	deliverID = strings.TrimSpace(deliverID)
	if deliverID == "" {
		return nil, apperr.Validation("deliverId is required")
	}

	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := Authorize(actor, o, OpAssignDeliver); err != nil {
		return nil, err
	}

	updated, err := s.store.SetDeliver(ctx, o.ID, deliverID, !actor.IsAdmin())
	if err != nil {
		return nil, apperr.Wrap(err, "assign delivery agent")
	}

	s.audit(ctx, actor, "assign_deliver", o.ID, map[string]any{"deliverId": deliverID, "previous": o.DeliverID})
	return updated, nil
}

// SetFlorist reassigns the fulfilling shop.
func (s *Service) SetFlorist(ctx context.Context, actor models.Actor, id, floristID string) (*models.Order, error) {
	if err := RequireRole(actor, OpSetFlorist); err != nil {
		return nil, err
	}
	floristID = strings.TrimSpace(floristID)
	if floristID == "" {
		return nil, apperr.Validation("floristId is required")
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := s.store.SetFlorist(ctx, o.ID, floristID)
	if err != nil {
		return nil, apperr.Wrap(err, "set florist")
	}
	s.audit(ctx, actor, "set_florist", o.ID, map[string]any{"floristId": floristID, "previous": o.FloristID})
	return updated, nil
}

// Delete permanently removes the order.
func (s *Service) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := RequireRole(actor, OpDelete); err != nil {
		return err
	}
	o, err := s.load(ctx, id)
	if err != nil {
		return err
	}
	if err := Authorize(actor, o, OpDelete); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, o.ID); err != nil {
		return apperr.Wrap(err, "delete order")
	}
	s.audit(ctx, actor, "delete_order", o.ID, map[string]any{"orderNumber": o.OrderNumber})
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Order, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.Validation("order id is required")
	}
	o, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, apperr.Wrap(err, "load order")
	}
	return o, nil
}

func (s *Service) audit(ctx context.Context, actor models.Actor, action, orderID string, data map[string]any) {
	s.auditor.Record(ctx, models.AuditEntry{
		Service:   auditService,
		Action:    action,
		EntityID:  orderID,
		ActorID:   actor.ID,
		ActorRole: actor.Role,
		Data:      data,
		CreatedAt: s.now(),
	})
}
