package domain

import "time"

// Event is a state change other processes may react to.
type Event interface {
	EventName() string
	OccurredAt() time.Time
}

// OrderEvent is the payload every order event carries.
type OrderEvent struct {
	Timestamp      time.Time `json:"occurredAt"`
	OrderID        int64     `json:"orderId"`
	OrderNumber    string    `json:"orderNumber"`
	UserID         int64     `json:"userId"`
	GatewayOrderID string    `json:"gatewayOrderId,omitempty"`
	Amount         string    `json:"amount"`
	Currency       string    `json:"currency"`
	Status         Status    `json:"status"`
}

func (e OrderEvent) OccurredAt() time.Time {
	return e.Timestamp
}

// OrderCreated is raised once the gateway order exists and the buyer can pay.
type OrderCreated struct {
	OrderEvent
}

func (OrderCreated) EventName() string { return "order.created" }

type OrderPaid struct {
	OrderEvent
}

func (OrderPaid) EventName() string { return "order.paid" }

// OrderFailed carries why payment did not complete.
type OrderFailed struct {
	OrderEvent
	Reason string `json:"reason,omitempty"`
}

func (OrderFailed) EventName() string { return "order.failed" }

type OrderCancelled struct {
	OrderEvent
}

func (OrderCancelled) EventName() string { return "order.cancelled" }

type OrderExpired struct {
	OrderEvent
}

func (OrderExpired) EventName() string { return "order.expired" }

// Events returns the events raised since the last ClearEvents.
func (o *Order) Events() []Event {
	return append([]Event(nil), o.events...)
}

func (o *Order) ClearEvents() {
	o.events = nil
}

func (o *Order) record(e Event) {
	o.events = append(o.events, e)
}

func (o *Order) eventBody(now time.Time) OrderEvent {
	return OrderEvent{
		Timestamp:      now.UTC(),
		OrderID:        o.ID,
		OrderNumber:    o.Number,
		UserID:         o.UserID,
		GatewayOrderID: o.GatewayOrderID,
		Amount:         o.Amount.StringFixed(2),
		Currency:       o.Currency,
		Status:         o.Status,
	}
}

// Outcome is what a reconciliation step did to an order.
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomePaid      Outcome = "paid"
	OutcomeFailed    Outcome = "failed"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeExpired   Outcome = "expired"
	// OutcomeStale means the order was already terminal and nothing changed.
	OutcomeStale Outcome = "stale"
)
