package order

import (
	"context"
	"errors"
	"time"

	"marketplace-be/internal/address"
	"marketplace-be/internal/apperror"
	"marketplace-be/internal/audit"
	"marketplace-be/internal/auth"
	"marketplace-be/internal/events"
	"marketplace-be/internal/logger"
	"marketplace-be/internal/metrics"
	"marketplace-be/internal/payment"
	"marketplace-be/internal/user"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const historyLimit = 100

type Service interface {
	Create(ctx context.Context, caller auth.Caller, in CreateInput) (*Order, error)
	ListForBuyer(ctx context.Context, caller auth.Caller) ([]*Order, error)
	Cancel(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*Order, error)
	Edit(ctx context.Context, caller auth.Caller, orderID uuid.UUID, in EditInput) (*Order, error)
	ListForSeller(ctx context.Context, caller auth.Caller) ([]*Order, error)
	UpdateItemStatus(ctx context.Context, caller auth.Caller, orderID uuid.UUID, itemIDs []uuid.UUID, status Status) (*Order, error)
	History(ctx context.Context, caller auth.Caller, orderID uuid.UUID) ([]audit.Entry, error)
}

// Catalog is the part of the product service orders depend on.
type Catalog interface {
	ExistingIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]struct{}, error)
	SellerProductIDs(ctx context.Context, sellerID uuid.UUID) (map[uuid.UUID]struct{}, error)
}

type AddressBook interface {
	Get(ctx context.Context, caller auth.Caller, addressID uuid.UUID) (*address.Address, error)
}

type BuyerDirectory interface {
	Summaries(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]user.Summary, error)
}

type Deps struct {
	Repo      Repository
	Catalog   Catalog
	Addresses AddressBook
	Buyers    BuyerDirectory
	Payments  payment.Gateway
	Events    events.Publisher
	Audit     audit.Log
	Metrics   *metrics.Metrics

	// CancelCascadesItems moves pending items to cancelled when their order
	// is cancelled.
	CancelCascadesItems bool
}

type service struct {
	repo      Repository
	catalog   Catalog
	addresses AddressBook
	buyers    BuyerDirectory
	payments  payment.Gateway
	events    events.Publisher
	audit     audit.Log
	metrics   *metrics.Metrics
	cascade   bool
	now       func() time.Time
}

func NewService(d Deps) Service {
	s := &service{
		repo:      d.Repo,
		catalog:   d.Catalog,
		addresses: d.Addresses,
		buyers:    d.Buyers,
		payments:  d.Payments,
		events:    d.Events,
		audit:     d.Audit,
		metrics:   d.Metrics,
		cascade:   d.CancelCascadesItems,
		now:       time.Now,
	}
	if s.payments == nil {
		s.payments = payment.NewInstantGateway()
	}
	if s.events == nil {
		s.events = events.Nop{}
	}
	if s.audit == nil {
		s.audit = audit.Nop{}
	}
	if s.metrics == nil {
		s.metrics = metrics.New()
	}
	return s
}

func (s *service) Create(ctx context.Context, caller auth.Caller, in CreateInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Create"),
		zap.String("buyer_id", caller.ID.String()),
	)

	if err := auth.RequireRole(caller, auth.RoleBuyer); err != nil {
		return nil, err
	}
	if err := validateCreate(in); err != nil {
		return nil, err
	}

	shipping, err := s.resolveShipping(ctx, caller, in)
	if err != nil {
		return nil, err
	}

	ids := make([]uuid.UUID, 0, len(in.Items))
	for _, it := range in.Items {
		ids = append(ids, it.ProductID)
	}
	existing, err := s.catalog.ExistingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, ok := existing[id]; !ok {
			log.Warn("unknown product in order", zap.String("product_id", id.String()))
			return nil, ErrProductNotFound
		}
	}

	method := in.PaymentMethod
	if method == "" {
		method = payment.MethodCard
	}

	o := &Order{
		ID:              uuid.New(),
		BuyerID:         caller.ID,
		Items:           make([]Item, 0, len(in.Items)),
		ShippingAddress: shipping,
		PaymentMethod:   method,
		PaymentStatus:   payment.StatusPending,
		TotalAmount:     in.Total,
		TaxAmount:       TaxFor(in.Total),
		ShippingFee:     ShippingFee,
		Status:          StatusPending,
	}
	for _, it := range in.Items {
		o.Items = append(o.Items, Item{
			ID:        uuid.New(),
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Status:    StatusPending,
		})
	}

	status, err := s.payments.Settle(ctx, payment.Charge{
		OrderID: o.ID.String(),
		BuyerID: o.BuyerID.String(),
		Method:  o.PaymentMethod,
		Amount:  o.TotalAmount,
	})
	if err != nil {
		log.Error("payment settlement failed", zap.Error(err))
		return nil, apperror.Internal(err)
	}
	o.PaymentStatus = status

	if err := s.repo.Create(ctx, o); err != nil {
		log.Error("failed to create order", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.metrics.OrdersCreated.Inc()
	s.record(ctx, caller, o, audit.ActionCreated, events.OrderCreated, map[string]interface{}{
		"total_amount":   o.TotalAmount.String(),
		"payment_method": string(o.PaymentMethod),
		"items":          len(o.Items),
	}, nil)

	log.Info("order created", zap.String("order_id", o.ID.String()))
	return o, nil
}

func (s *service) ListForBuyer(ctx context.Context, caller auth.Caller) ([]*Order, error) {
	if err := auth.RequireRole(caller, auth.RoleBuyer); err != nil {
		return nil, err
	}

	orders, err := s.repo.ListByBuyer(ctx, caller.ID)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if err := s.attachBuyers(ctx, orders); err != nil {
		return nil, err
	}
	return orders, nil
}

func (s *service) Cancel(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Cancel"),
		zap.String("order_id", orderID.String()),
	)

	o, err := s.ownedOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}

	if o.Status == StatusCancelled {
		return o, nil
	}
	if !CanTransition(o.Status, StatusCancelled) {
		return nil, transitionError(o.Status, StatusCancelled)
	}

	o.Status = StatusCancelled
	var cascaded []string
	if s.cascade {
		for i := range o.Items {
			if o.Items[i].Status == StatusPending {
				o.Items[i].Status = StatusCancelled
				cascaded = append(cascaded, o.Items[i].ID.String())
			}
		}
	}

	if err := s.repo.Save(ctx, o); err != nil {
		log.Error("failed to save cancelled order", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.metrics.StatusTransitions.WithLabelValues("order", string(StatusCancelled)).Inc()
	if len(cascaded) > 0 {
		s.metrics.StatusTransitions.WithLabelValues("item", string(StatusCancelled)).Add(float64(len(cascaded)))
	}
	s.record(ctx, caller, o, audit.ActionCancelled, events.OrderCancelled, map[string]interface{}{
		"cascaded_items": len(cascaded),
	}, cascaded)

	log.Info("order cancelled", zap.Int("cascaded_items", len(cascaded)))
	return o, nil
}

func (s *service) Edit(ctx context.Context, caller auth.Caller, orderID uuid.UUID, in EditInput) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "Edit"),
		zap.String("order_id", orderID.String()),
	)

	if in.ShippingAddress == nil {
		return nil, ErrNothingToEdit
	}
	shipping := in.ShippingAddress.Normalize()
	if err := shipping.Validate(); err != nil {
		return nil, err
	}

	o, err := s.ownedOrder(ctx, caller, orderID)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending {
		return nil, ErrOrderNotEditable
	}

	o.ShippingAddress = shipping
	if err := s.repo.Save(ctx, o); err != nil {
		log.Error("failed to save edited order", zap.Error(err))
		return nil, apperror.Internal(err)
	}

	s.record(ctx, caller, o, audit.ActionEdited, events.OrderEdited, map[string]interface{}{
		"shipping_address": shipping,
	}, nil)
	return o, nil
}

func (s *service) ListForSeller(ctx context.Context, caller auth.Caller) ([]*Order, error) {
	if err := auth.RequireRole(caller, auth.RoleSeller); err != nil {
		return nil, err
	}

	owned, err := s.catalog.SellerProductIDs(ctx, caller.ID)
	if err != nil {
		return nil, err
	}
	if len(owned) == 0 {
		return []*Order{}, nil
	}

	ids := make([]uuid.UUID, 0, len(owned))
	for id := range owned {
		ids = append(ids, id)
	}
	orders, err := s.repo.ListByProducts(ctx, ids)
	if err != nil {
		return nil, apperror.Internal(err)
	}

	out := make([]*Order, 0, len(orders))
	for _, o := range orders {
		if filterItems(o, owned) {
			out = append(out, o)
		}
	}

	if err := s.attachBuyers(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *service) UpdateItemStatus(
	ctx context.Context,
	caller auth.Caller,
	orderID uuid.UUID,
	itemIDs []uuid.UUID,
	status Status,
) (*Order, error) {
	log := logger.FromCtx(ctx).With(
		zap.String("layer", "service"),
		zap.String("method", "UpdateItemStatus"),
		zap.String("order_id", orderID.String()),
		zap.String("seller_id", caller.ID.String()),
	)

	if err := auth.RequireRole(caller, auth.RoleSeller); err != nil {
		return nil, err
	}
	if len(itemIDs) == 0 {
		return nil, ErrNoItemIDs
	}
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}

	owned, err := s.catalog.SellerProductIDs(ctx, caller.ID)
	if err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}

	index := make(map[uuid.UUID]int, len(o.Items))
	sellerHasItem := false
	for i, it := range o.Items {
		index[it.ID] = i
		if _, ok := owned[it.ProductID]; ok {
			sellerHasItem = true
		}
	}
	if !sellerHasItem {
		log.Warn("seller has no items in order")
		return nil, ErrOrderNotFound
	}

	// Every target is checked before anything changes so a rejected request
	// leaves the order untouched.
	var targets []int
	seen := make(map[uuid.UUID]struct{}, len(itemIDs))
	for _, id := range itemIDs {
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		i, ok := index[id]
		if !ok {
			continue
		}
		item := o.Items[i]
		if _, mine := owned[item.ProductID]; !mine {
			log.Warn("item owned by another seller", zap.String("item_id", id.String()))
			return nil, ErrItemNotOwned
		}
		if item.Status == status {
			continue
		}
		if !CanTransition(item.Status, status) {
			return nil, transitionError(item.Status, status)
		}
		targets = append(targets, i)
	}

	changed := make([]string, 0, len(targets))
	if len(targets) > 0 {
		for _, i := range targets {
			o.Items[i].Status = status
			changed = append(changed, o.Items[i].ID.String())
		}
		if err := s.repo.Save(ctx, o); err != nil {
			log.Error("failed to save item statuses", zap.Error(err))
			return nil, apperror.Internal(err)
		}

		s.metrics.StatusTransitions.WithLabelValues("item", string(status)).Add(float64(len(changed)))
		s.record(ctx, caller, o, audit.ActionItemsUpdated, events.OrderItemsUpdated, map[string]interface{}{
			"status":   string(status),
			"item_ids": changed,
		}, changed)
	}

	filterItems(o, owned)
	if err := s.attachBuyers(ctx, []*Order{o}); err != nil {
		return nil, err
	}

	log.Info("item statuses updated", zap.Int("changed", len(changed)))
	return o, nil
}

func (s *service) History(ctx context.Context, caller auth.Caller, orderID uuid.UUID) ([]audit.Entry, error) {
	if _, err := s.ownedOrder(ctx, caller, orderID); err != nil {
		return nil, err
	}

	entries, err := s.audit.ListByOrder(ctx, orderID.String(), historyLimit)
	if err != nil {
		return nil, apperror.Internal(err)
	}
	return entries, nil
}

// ownedOrder loads an order and hides it from every buyer but its own.
func (s *service) ownedOrder(ctx context.Context, caller auth.Caller, orderID uuid.UUID) (*Order, error) {
	if err := auth.RequireRole(caller, auth.RoleBuyer); err != nil {
		return nil, err
	}

	o, err := s.repo.GetByID(ctx, orderID)
	if errors.Is(err, ErrOrderNotFound) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, apperror.Internal(err)
	}
	if o.BuyerID != caller.ID {
		logger.FromCtx(ctx).Warn("foreign order access",
			zap.String("order_id", orderID.String()),
			zap.String("user_id", caller.ID.String()),
		)
		return nil, ErrOrderNotFound
	}
	return o, nil
}

func (s *service) resolveShipping(ctx context.Context, caller auth.Caller, in CreateInput) (address.Fields, error) {
	if in.AddressID != nil {
		saved, err := s.addresses.Get(ctx, caller, *in.AddressID)
		if err != nil {
			return address.Fields{}, err
		}
		return saved.Fields, nil
	}

	shipping := in.Address.Normalize()
	if err := shipping.Validate(); err != nil {
		return address.Fields{}, err
	}
	return shipping, nil
}

func (s *service) attachBuyers(ctx context.Context, orders []*Order) error {
	if len(orders) == 0 || s.buyers == nil {
		return nil
	}

	seen := make(map[uuid.UUID]struct{})
	ids := make([]uuid.UUID, 0, len(orders))
	for _, o := range orders {
		if _, ok := seen[o.BuyerID]; ok {
			continue
		}
		seen[o.BuyerID] = struct{}{}
		ids = append(ids, o.BuyerID)
	}

	summaries, err := s.buyers.Summaries(ctx, ids)
	if err != nil {
		return err
	}
	for _, o := range orders {
		if b, ok := summaries[o.BuyerID]; ok {
			b := b
			o.Buyer = &b
		}
	}
	return nil
}

// record writes the audit entry and publishes the domain event for a
// committed mutation. Failures are logged and counted only.
func (s *service) record(
	ctx context.Context,
	caller auth.Caller,
	o *Order,
	action audit.Action,
	eventType events.Type,
	data map[string]interface{},
	itemIDs []string,
) {
	log := logger.FromCtx(ctx).With(
		zap.String("order_id", o.ID.String()),
		zap.String("action", string(action)),
	)
	now := s.now().UTC()

	if err := s.audit.Record(ctx, audit.Entry{
		OrderID:   o.ID.String(),
		Action:    action,
		ActorID:   caller.ID.String(),
		ActorRole: string(caller.Role),
		Data:      data,
		CreatedAt: now,
	}); err != nil {
		s.metrics.SideEffectFailures.WithLabelValues("audit").Inc()
		log.Error("audit write failed", zap.Error(err))
	}

	if err := s.events.Publish(ctx, events.Event{
		Type:       eventType,
		OrderID:    o.ID.String(),
		ActorID:    caller.ID.String(),
		Status:     string(o.Status),
		ItemIDs:    itemIDs,
		OccurredAt: now,
	}); err != nil {
		s.metrics.SideEffectFailures.WithLabelValues("events").Inc()
		log.Error("event publish failed", zap.Error(err))
	}
}

// filterItems keeps only the items whose product is in owned and reports
// whether any remain.
func filterItems(o *Order, owned map[uuid.UUID]struct{}) bool {
	kept := o.Items[:0]
	for _, it := range o.Items {
		if _, ok := owned[it.ProductID]; ok {
			kept = append(kept, it)
		}
	}
	o.Items = kept
	return len(kept) > 0
}

func validateCreate(in CreateInput) error {
	if len(in.Items) == 0 {
		return invalidOrder("items must not be empty")
	}
	for _, it := range in.Items {
		if it.ProductID == uuid.Nil {
			return invalidOrder("productId is required")
		}
		if it.Quantity < 1 {
			return invalidOrder("quantity must be at least 1")
		}
	}
	if in.Total.LessThan(decimal.Zero) {
		return invalidOrder("total must not be negative")
	}
	if !in.Total.Equal(in.Total.Round(2)) {
		return invalidOrder("total must have at most 2 decimal places")
	}
	if in.PaymentMethod != "" && !in.PaymentMethod.Valid() {
		return invalidOrder("paymentMethod must be one of card, cod, upi")
	}
	if (in.Address == nil) == (in.AddressID == nil) {
		return invalidOrder("exactly one of address or addressId is required")
	}
	return nil
}
