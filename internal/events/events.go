// Package events publishes loan lifecycle facts for downstream consumers
// (notifications, reporting).
package events

import (
	"context"
	"encoding/json"
	"time"
)

const (
	EventLoanCreated  = "LoanCreated"
	EventFineIssued   = "FineIssued"
	EventLoanReturned = "LoanReturned"
)

type Envelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	CorrelationID string          `json:"correlation_id,omitempty"` // saga run id
	Payload       json.RawMessage `json:"payload"`
}

type LoanCreatedPayload struct {
	LoanID     int64  `json:"loan_id"`
	BookID     int64  `json:"book_id"`
	MemberID   int64  `json:"member_id"`
	LoanDate   string `json:"loan_date"`
	DueDate    string `json:"due_date"`
	StockAfter int64  `json:"stock_after"`
	Operator   string `json:"operator"`
}

type FineIssuedPayload struct {
	LoanID   int64  `json:"loan_id"`
	MemberID int64  `json:"member_id"`
	BookID   int64  `json:"book_id"`
	Amount   int64  `json:"amount"`
	DaysLate int64  `json:"days_late"`
	Date     string `json:"date"`
}

type LoanReturnedPayload struct {
	LoanID     int64  `json:"loan_id"`
	BookID     int64  `json:"book_id"`
	MemberID   int64  `json:"member_id"`
	ReturnDate string `json:"return_date"`
	Fine       int64  `json:"fine"`
	StockAfter int64  `json:"stock_after"`
	Operator   string `json:"operator"`
}

// Publisher emits an event without blocking the caller. Delivery is best
// effort; a lost event never fails the operation that produced it.
type Publisher interface {
	Publish(ctx context.Context, eventType, correlationID string, payload any)
}

// NopPublisher drops everything. Used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, string, any) {}
