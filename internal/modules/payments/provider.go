package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Normalized outcome statuses shared by every rail.
const (
	StatusSuccess = "success"
	StatusPending = "pending"
	StatusFailed  = "failed"
)

type InitiateRequest struct {
	UserID   string
	Amount   decimal.Decimal
	Currency string
}

// InitiateResponse carries whatever the client needs to complete
// authorization: an approval redirect for PayPal, a QR payload for NETS,
// nothing extra for the local card rail.
type InitiateResponse struct {
	ExternalID  string
	RedirectURL string
	QRPayload   string
}

type CardDetails struct {
	HolderName string
	Number     string
	CVV        string
	Expiry     string // MM/YY
}

type ConfirmRequest struct {
	ExternalID string
	PayerID    string       // PayPal approval callback
	Card       *CardDetails // card rail only
	// InitiatedAt bounds provider-side polling: NETS treats a non-success
	// status past its window as a hard failure instead of retrying.
	InitiatedAt time.Time
}

type Outcome struct {
	Status    string // success|pending|failed
	CaptureID string
}

// Provider is the two-phase contract every rail converges on, regardless
// of its wire protocol.
type Provider interface {
	Name() string
	Initiate(ctx context.Context, req InitiateRequest) (InitiateResponse, error)
	Confirm(ctx context.Context, req ConfirmRequest) (Outcome, error)
}
