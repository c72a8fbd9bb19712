package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	cartapp "github.com/Apurer/medstore-checkout/internal/domains/cart/application"
	cartdomain "github.com/Apurer/medstore-checkout/internal/domains/cart/domain"
	cartports "github.com/Apurer/medstore-checkout/internal/domains/cart/ports"
	inventorydomain "github.com/Apurer/medstore-checkout/internal/domains/inventory/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/application/types"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/domain"
	"github.com/Apurer/medstore-checkout/internal/domains/orders/ports"
	paymentsdomain "github.com/Apurer/medstore-checkout/internal/domains/payments/domain"
	paymentsports "github.com/Apurer/medstore-checkout/internal/domains/payments/ports"
)

// Failure reasons carried on failed outcomes and order.failed events.
const (
	ReasonCallbackIncomplete   = "callback_incomplete"
	ReasonSignatureInvalid     = "signature_invalid"
	ReasonPaymentOrderMismatch = "payment_order_mismatch"
	ReasonPaymentNotCaptured   = "payment_not_captured"
)

// Dependencies are the collaborators the engine is built from. Orders and Idempotency are read
// outside transactions; every write goes through UnitOfWork.
type Dependencies struct {
	UnitOfWork  ports.UnitOfWork
	Orders      ports.Repository
	Idempotency ports.IdempotencyStore
	Gateway     paymentsports.Gateway
	Addresses   ports.AddressBook
}

// Service reconciles orders, stock and gateway payments.
type Service struct {
	cfg         Config
	uow         ports.UnitOfWork
	orders      ports.Repository
	idempotency ports.IdempotencyStore
	gateway     paymentsports.Gateway
	addresses   ports.AddressBook
	guard       ports.CallbackGuard
	now         func() time.Time
	suffix      func() string
}

type Option func(*Service)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithCallbackGuard short-circuits concurrent duplicate callbacks.
func WithCallbackGuard(guard ports.CallbackGuard) Option {
	return func(s *Service) {
		s.guard = guard
	}
}

// WithNumberSuffix overrides the random order number suffix.
func WithNumberSuffix(suffix func() string) Option {
	return func(s *Service) {
		if suffix != nil {
			s.suffix = suffix
		}
	}
}

// NewService wires the engine.
func NewService(cfg Config, deps Dependencies, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if deps.UnitOfWork == nil || deps.Orders == nil || deps.Idempotency == nil || deps.Gateway == nil || deps.Addresses == nil {
		return nil, errors.New("orders service: missing dependency")
	}
	s := &Service{
		cfg:         cfg,
		uow:         deps.UnitOfWork,
		orders:      deps.Orders,
		idempotency: deps.Idempotency,
		gateway:     deps.Gateway,
		addresses:   deps.Addresses,
		now:         time.Now,
		suffix:      func() string { return uuid.NewString()[:4] },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

// Initiate reserves stock, opens the order and the gateway order in one transaction.
func (s *Service) Initiate(ctx context.Context, input types.InitiateInput) (*types.InitiateResult, error) {
	if input.UserID <= 0 {
		return nil, mapError(domain.ErrInvalidUserID)
	}
	key := strings.TrimSpace(input.IdempotencyKey)
	var hash string
	if key != "" {
		var err error
		if hash, err = FingerprintInitiate(input); err != nil {
			return nil, err
		}
		existing, err := s.idempotency.Get(ctx, key)
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return s.replay(ctx, existing, input.UserID, hash)
		}
	}

	shipping, err := s.resolveShipping(ctx, input)
	if err != nil {
		return nil, err
	}

	var result *types.InitiateResult
	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		now := s.now().UTC()
		if key != "" {
			if err := tx.Idempotency().Claim(ctx, ports.IdempotencyRecord{
				Key: key, UserID: input.UserID, RequestHash: hash, CreatedAt: now, UpdatedAt: now,
			}); err != nil {
				return err
			}
		}

		items, err := loadCartLines(ctx, tx.Carts(), input.UserID, input.CartItemID)
		if err != nil {
			return err
		}
		snap, err := cartapp.PriceItems(ctx, tx.Inventory(), items, s.cfg.Delivery)
		if err != nil {
			return err
		}
		if err := tx.Inventory().Reserve(ctx, stockRequests(snap)); err != nil {
			return err
		}

		order, err := domain.NewOrder(domain.NewOrderParams{
			UserID:         input.UserID,
			Number:         domain.GenerateNumber(input.UserID, now, s.suffix()),
			CartItemIDs:    snap.CartItemIDs(),
			Items:          orderItems(snap),
			Subtotal:       snap.Net,
			Discount:       snap.Discount,
			DeliveryCharge: snap.DeliveryCharge,
			Amount:         snap.Payable,
			Currency:       s.cfg.Currency,
			Shipping:       shipping,
			Now:            now,
		})
		if err != nil {
			return err
		}
		order, err = tx.Orders().Create(ctx, order)
		if err != nil {
			return err
		}

		amountMinor := cartdomain.MinorUnits(order.Amount)
		remote, err := s.gateway.CreateOrder(ctx, paymentsdomain.CreateOrderRequest{
			AmountMinor: amountMinor,
			Currency:    order.Currency,
			Receipt:     order.Receipt,
			Notes: map[string]string{
				"order_number":  order.Number,
				"cart_item_ids": joinIDs(order.CartItemIDs),
			},
		})
		if err != nil {
			return err
		}
		if remote.Amount != 0 && remote.Amount != amountMinor {
			return fmt.Errorf("%w: gateway order amount %d does not match %d", paymentsports.ErrGatewayUnavailable, remote.Amount, amountMinor)
		}
		if err := order.AttachGatewayOrder(remote.ID, now); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}
		if key != "" {
			if err := tx.Idempotency().Bind(ctx, key, order.ID); err != nil {
				return err
			}
		}
		if err := appendEvents(ctx, tx, order, now); err != nil {
			return err
		}
		result = &types.InitiateResult{
			Order:          order,
			GatewayKey:     s.gateway.PublicKey(),
			GatewayOrderID: remote.ID,
			AmountMinor:    amountMinor,
		}
		return nil
	})
	if errors.Is(err, ports.ErrIdempotencyKeyTaken) {
		existing, getErr := s.idempotency.Get(ctx, key)
		if getErr != nil {
			return nil, getErr
		}
		if existing == nil {
			return nil, err
		}
		return s.replay(ctx, existing, input.UserID, hash)
	}
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// Verify settles a gateway callback. The order row is locked for the whole step, so duplicate
// callbacks serialize and only the first one changes anything.
func (s *Service) Verify(ctx context.Context, input types.VerifyInput) (*types.VerifyResult, error) {
	located, err := s.locate(ctx, input.UserID, input.OrderNumber, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}

	if s.guard != nil && located.GatewayOrderID != "" {
		release, err := s.guard.Acquire(ctx, "callback:"+located.GatewayOrderID, s.cfg.CallbackGuardTTL)
		if errors.Is(err, ports.ErrGuardHeld) {
			return nil, ErrCallbackInFlight
		}
		if err != nil {
			return nil, err
		}
		defer release(context.WithoutCancel(ctx))
	}

	var result *types.VerifyResult
	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		now := s.now().UTC()
		order, err := tx.Orders().Lock(ctx, located.ID)
		if err != nil {
			return err
		}
		if order.IsTerminal() {
			result = &types.VerifyResult{Order: order, Outcome: domain.OutcomeStale}
			return nil
		}

		reason := ""
		switch {
		case input.MissingFields():
			reason = ReasonCallbackIncomplete
		case input.GatewayOrderID != order.GatewayOrderID:
			reason = ReasonSignatureInvalid
		default:
			if err := s.gateway.VerifySignature(order.GatewayOrderID, input.GatewayPaymentID, input.Signature); err != nil {
				if !errors.Is(err, paymentsports.ErrSignatureInvalid) {
					return err
				}
				reason = ReasonSignatureInvalid
			}
		}
		if reason != "" {
			if err := s.fail(ctx, tx, order, reason, now); err != nil {
				return err
			}
			result = &types.VerifyResult{Order: order, Outcome: domain.OutcomeFailed, Reason: reason}
			return nil
		}

		payment, err := s.gateway.FetchPayment(ctx, input.GatewayPaymentID)
		if err != nil {
			return err
		}
		stored := toPayment(payment, input.Signature, now)
		if err := tx.Orders().SavePayment(ctx, order.ID, stored); err != nil {
			return err
		}
		order.Payment = stored

		switch {
		case payment.OrderID != "" && payment.OrderID != order.GatewayOrderID:
			reason = ReasonPaymentOrderMismatch
		case !payment.IsCaptured():
			reason = ReasonPaymentNotCaptured
		}
		if reason != "" {
			if err := s.fail(ctx, tx, order, reason, now); err != nil {
				return err
			}
			result = &types.VerifyResult{Order: order, Outcome: domain.OutcomeFailed, Reason: reason}
			return nil
		}

		if err := order.MarkPaid(now); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}
		if err := tx.Carts().DeleteByIDs(ctx, order.CartItemIDs); err != nil {
			return err
		}
		if err := appendEvents(ctx, tx, order, now); err != nil {
			return err
		}
		result = &types.VerifyResult{Order: order, Outcome: domain.OutcomePaid}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// Cancel closes an abandoned checkout and returns its stock. Already-closed orders are left alone.
func (s *Service) Cancel(ctx context.Context, input types.CancelInput) (*types.CancelResult, error) {
	located, err := s.locate(ctx, input.UserID, input.OrderNumber, input.GatewayOrderID)
	if err != nil {
		return nil, err
	}
	var result *types.CancelResult
	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		now := s.now().UTC()
		order, err := tx.Orders().Lock(ctx, located.ID)
		if err != nil {
			return err
		}
		if order.IsTerminal() {
			result = &types.CancelResult{Order: order, Outcome: domain.OutcomeStale}
			return nil
		}
		if err := order.Cancel(now); err != nil {
			return err
		}
		if err := s.release(ctx, tx, order, now); err != nil {
			return err
		}
		result = &types.CancelResult{Order: order, Outcome: domain.OutcomeCancelled}
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// ExpireStale fails every order still awaiting payment after the grace window. Each order is
// expired in its own transaction; one failure does not stop the sweep.
func (s *Service) ExpireStale(ctx context.Context) (int, error) {
	cutoff := s.now().UTC().Add(-s.cfg.GraceWindow)
	expired := 0
	var errs []error
	for {
		ids, err := s.orders.ListStale(ctx, cutoff, s.cfg.SweepBatchSize)
		if err != nil {
			return expired, errors.Join(append(errs, err)...)
		}
		progressed := false
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return expired, errors.Join(append(errs, err)...)
			}
			ok, err := s.expireOne(ctx, id)
			if err != nil {
				errs = append(errs, fmt.Errorf("expire order %d: %w", id, err))
				continue
			}
			if ok {
				expired++
				progressed = true
			}
		}
		if len(ids) < s.cfg.SweepBatchSize || !progressed {
			break
		}
	}
	return expired, errors.Join(errs...)
}

func (s *Service) expireOne(ctx context.Context, id int64) (bool, error) {
	expired := false
	err := s.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		now := s.now().UTC()
		order, err := tx.Orders().Lock(ctx, id)
		if err != nil {
			return err
		}
		if order.IsTerminal() {
			return nil
		}
		if err := order.Expire(now); err != nil {
			return err
		}
		if err := s.release(ctx, tx, order, now); err != nil {
			return err
		}
		expired = true
		return nil
	})
	return expired, err
}

func (s *Service) GetOrder(ctx context.Context, userID int64, ref string) (*domain.Order, error) {
	order, err := s.byRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	if order.UserID != userID {
		return nil, ports.ErrNotFound
	}
	return order, nil
}

func (s *Service) ListOrders(ctx context.Context, userID int64) ([]*domain.Order, error) {
	if userID <= 0 {
		return nil, mapError(domain.ErrInvalidUserID)
	}
	return s.orders.ListByUser(ctx, userID)
}

// AdvanceDelivery moves a paid order along fulfilment.
func (s *Service) AdvanceDelivery(ctx context.Context, ref string, status domain.DeliveryStatus) (*domain.Order, error) {
	located, err := s.byRef(ctx, ref)
	if err != nil {
		return nil, err
	}
	var result *domain.Order
	err = s.uow.Do(ctx, func(ctx context.Context, tx ports.Tx) error {
		order, err := tx.Orders().Lock(ctx, located.ID)
		if err != nil {
			return err
		}
		if err := order.AdvanceDelivery(status, s.now()); err != nil {
			return err
		}
		if err := tx.Orders().Update(ctx, order); err != nil {
			return err
		}
		result = order
		return nil
	})
	if err != nil {
		return nil, mapError(err)
	}
	return result, nil
}

// fail closes the order as failed and returns its stock.
func (s *Service) fail(ctx context.Context, tx ports.Tx, order *domain.Order, reason string, now time.Time) error {
	if err := order.MarkFailed(reason, now); err != nil {
		return err
	}
	return s.release(ctx, tx, order, now)
}

// release persists a terminal transition that returns stock. Callers hold the order lock and have
// just moved the order out of created, so stock is restored exactly once per order.
func (s *Service) release(ctx context.Context, tx ports.Tx, order *domain.Order, now time.Time) error {
	if err := tx.Orders().Update(ctx, order); err != nil {
		return err
	}
	reqs := make([]inventorydomain.StockRequest, 0, len(order.Items))
	for _, line := range order.StockLines() {
		reqs = append(reqs, inventorydomain.StockRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	if len(reqs) > 0 {
		if err := tx.Inventory().Restore(ctx, reqs); err != nil {
			return err
		}
	}
	return appendEvents(ctx, tx, order, now)
}

func (s *Service) replay(ctx context.Context, rec *ports.IdempotencyRecord, userID int64, hash string) (*types.InitiateResult, error) {
	if rec.UserID != userID || rec.RequestHash != hash {
		return nil, ports.ErrIdempotencyConflict
	}
	if rec.OrderID == 0 {
		return nil, fmt.Errorf("%w: key has no order", ports.ErrIdempotencyConflict)
	}
	order, err := s.orders.GetByID(ctx, rec.OrderID)
	if err != nil {
		return nil, err
	}
	return &types.InitiateResult{
		Order:          order,
		GatewayKey:     s.gateway.PublicKey(),
		GatewayOrderID: order.GatewayOrderID,
		AmountMinor:    cartdomain.MinorUnits(order.Amount),
		Replayed:       true,
	}, nil
}

func (s *Service) resolveShipping(ctx context.Context, input types.InitiateInput) (*domain.ShippingAddress, error) {
	if input.UseRegisteredAddress {
		addr, err := s.addresses.RegisteredAddress(ctx, input.UserID)
		if err != nil {
			if errors.Is(err, ports.ErrNoRegisteredAddress) {
				return nil, fmt.Errorf("%w: %w", ErrAddressRequired, err)
			}
			return nil, err
		}
		normalized := addr.Normalize()
		if err := normalized.Validate(); err != nil {
			return nil, mapError(err)
		}
		return &normalized, nil
	}
	if input.Shipping == nil {
		return nil, ErrAddressRequired
	}
	normalized := input.Shipping.Normalize()
	if err := normalized.Validate(); err != nil {
		return nil, mapError(err)
	}
	return &normalized, nil
}

// locate finds the order a callback refers to: by our order number when given, else by the stored
// gateway order id.
func (s *Service) locate(ctx context.Context, userID int64, number, gatewayOrderID string) (*domain.Order, error) {
	var (
		order *domain.Order
		err   error
	)
	switch {
	case strings.TrimSpace(number) != "":
		order, err = s.orders.GetByNumber(ctx, strings.TrimSpace(number))
	case strings.TrimSpace(gatewayOrderID) != "":
		order, err = s.orders.GetByGatewayOrderID(ctx, strings.TrimSpace(gatewayOrderID))
	default:
		return nil, fmt.Errorf("%w: order reference is required", ErrInvalidInput)
	}
	if err != nil {
		return nil, err
	}
	if userID > 0 && order.UserID != userID {
		return nil, ports.ErrNotFound
	}
	return order, nil
}

func (s *Service) byRef(ctx context.Context, ref string) (*domain.Order, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: order reference is required", ErrInvalidInput)
	}
	if id, err := strconv.ParseInt(ref, 10, 64); err == nil {
		return s.orders.GetByID(ctx, id)
	}
	return s.orders.GetByNumber(ctx, ref)
}

func loadCartLines(ctx context.Context, carts cartports.Repository, userID int64, cartItemID *int64) ([]*cartdomain.LineItem, error) {
	if cartItemID != nil {
		item, err := carts.Get(ctx, userID, *cartItemID)
		if errors.Is(err, cartports.ErrNotFound) {
			return nil, cartdomain.ErrEmptyCart
		}
		if err != nil {
			return nil, err
		}
		return []*cartdomain.LineItem{item}, nil
	}
	items, err := carts.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, cartdomain.ErrEmptyCart
	}
	return items, nil
}

func stockRequests(snap cartdomain.Snapshot) []inventorydomain.StockRequest {
	reqs := make([]inventorydomain.StockRequest, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		reqs = append(reqs, inventorydomain.StockRequest{ProductID: line.ProductID, Quantity: line.Quantity})
	}
	return reqs
}

func orderItems(snap cartdomain.Snapshot) []domain.OrderItem {
	items := make([]domain.OrderItem, 0, len(snap.Lines))
	for _, line := range snap.Lines {
		items = append(items, domain.OrderItem{
			ProductID:       line.ProductID,
			ProductName:     line.ProductName,
			CategoryName:    line.CategoryName,
			Quantity:        line.Quantity,
			UnitPrice:       line.UnitPrice,
			DiscountPercent: line.DiscountPercent,
			LineTotal:       line.LineNet,
		})
	}
	return items
}

func toPayment(p paymentsdomain.PaymentRecord, signature string, now time.Time) *domain.Payment {
	return &domain.Payment{
		GatewayPaymentID: p.ID,
		Signature:        signature,
		Method:           p.Method,
		Email:            p.Email,
		Contact:          p.Contact,
		Bank:             p.Bank,
		Wallet:           p.Wallet,
		VPA:              p.VPA,
		International:    p.International,
		Amount:           p.Amount,
		Currency:         p.Currency,
		Status:           p.Status,
		Captured:         p.Captured,
		Fee:              p.Fee,
		Tax:              p.Tax,
		ErrorCode:        p.ErrorCode,
		ErrorDescription: p.ErrorDescription,
		Raw:              p.Raw,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
}

func appendEvents(ctx context.Context, tx ports.Tx, order *domain.Order, now time.Time) error {
	events := order.Events()
	if len(events) == 0 {
		return nil
	}
	msgs := make([]ports.OutboxMessage, 0, len(events))
	for _, e := range events {
		payload, err := json.Marshal(e)
		if err != nil {
			return fmt.Errorf("encode %s: %w", e.EventName(), err)
		}
		msgs = append(msgs, ports.OutboxMessage{
			ID:        uuid.NewString(),
			EventType: e.EventName(),
			Key:       order.Number,
			Payload:   payload,
			CreatedAt: now,
		})
	}
	if err := tx.Outbox().Append(ctx, msgs...); err != nil {
		return err
	}
	order.ClearEvents()
	return nil
}

func joinIDs(ids []int64) string {
	parts := make([]string, 0, len(ids))
	for _, id := range ids {
		parts = append(parts, strconv.FormatInt(id, 10))
	}
	return strings.Join(parts, ",")
}

var _ ports.Service = (*Service)(nil)
