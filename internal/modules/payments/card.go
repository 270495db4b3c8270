package payments

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Card is the simulated card rail: no external call ever happens. Initiate
// just mints an identifier; Confirm validates the card fields locally and
// synthesizes a capture id.
type Card struct {
	now func() time.Time
}

func NewCard() *Card { return &Card{now: time.Now} }

func (c *Card) Name() string { return "card" }

func (c *Card) Initiate(_ context.Context, _ InitiateRequest) (InitiateResponse, error) {
	return InitiateResponse{ExternalID: "card_" + uuid.NewString()}, nil
}

func (c *Card) Confirm(_ context.Context, req ConfirmRequest) (Outcome, error) {
	if req.Card == nil {
		return Outcome{Status: StatusFailed}, &CardValidationError{Fields: map[string]string{
			"card_number": "Card details are required.",
		}}
	}
	if fields := validateCard(*req.Card, c.now()); len(fields) > 0 {
		return Outcome{Status: StatusFailed}, &CardValidationError{Fields: fields}
	}
	return Outcome{Status: StatusSuccess, CaptureID: "ch_" + uuid.NewString()}, nil
}

func validateCard(card CardDetails, now time.Time) map[string]string {
	fields := map[string]string{}

	number := strings.ReplaceAll(strings.TrimSpace(card.Number), " ", "")
	if len(number) != 16 || !digitsOnly(number) {
		fields["card_number"] = "Card number must be 16 digits."
	}

	cvv := strings.TrimSpace(card.CVV)
	if len(cvv) < 3 || len(cvv) > 4 || !digitsOnly(cvv) {
		fields["cvv"] = "CVV must be 3 or 4 digits."
	}

	if ok, expired := parseExpiry(strings.TrimSpace(card.Expiry), now); !ok {
		fields["expiry"] = "Expiry must be in MM/YY format."
	} else if expired {
		fields["expiry"] = "Card has expired."
	}

	return fields
}

func digitsOnly(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(s) > 0
}

// parseExpiry reads MM/YY; the card is valid through the last day of its
// expiry month.
func parseExpiry(s string, now time.Time) (ok bool, expired bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 2 || len(parts[0]) != 2 || len(parts[1]) != 2 {
		return false, false
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil || month < 1 || month > 12 {
		return false, false
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return false, false
	}
	year += 2000

	endOfMonth := time.Date(year, time.Month(month)+1, 1, 0, 0, 0, 0, now.Location())
	return true, !now.Before(endOfMonth)
}
