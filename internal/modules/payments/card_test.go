package payments

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedCard(now time.Time) *Card {
	c := NewCard()
	c.now = func() time.Time { return now }
	return c
}

func TestCardConfirmValid(t *testing.T) {
	c := fixedCard(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	out, err := c.Confirm(context.Background(), ConfirmRequest{
		Card: &CardDetails{Number: "4242424242424242", CVV: "123", Expiry: "12/27"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)
	require.NotEmpty(t, out.CaptureID)
}

func TestCardConfirmFieldErrors(t *testing.T) {
	c := fixedCard(time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC))

	cases := []struct {
		name  string
		card  CardDetails
		field string
	}{
		{"short number", CardDetails{Number: "1234", CVV: "123", Expiry: "12/27"}, "card_number"},
		{"letters in number", CardDetails{Number: "42424242424242ab", CVV: "123", Expiry: "12/27"}, "card_number"},
		{"bad cvv", CardDetails{Number: "4242424242424242", CVV: "12", Expiry: "12/27"}, "cvv"},
		{"five digit cvv", CardDetails{Number: "4242424242424242", CVV: "12345", Expiry: "12/27"}, "cvv"},
		{"bad expiry format", CardDetails{Number: "4242424242424242", CVV: "123", Expiry: "2027-12"}, "expiry"},
		{"expired", CardDetails{Number: "4242424242424242", CVV: "123", Expiry: "01/26"}, "expiry"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			out, err := c.Confirm(context.Background(), ConfirmRequest{Card: &tc.card})
			require.Equal(t, StatusFailed, out.Status)
			var ve *CardValidationError
			require.ErrorAs(t, err, &ve)
			require.Contains(t, ve.Fields, tc.field)
		})
	}
}

func TestCardExpiryMonthBoundary(t *testing.T) {
	// valid through the last day of the expiry month
	c := fixedCard(time.Date(2026, 3, 31, 23, 0, 0, 0, time.UTC))
	out, err := c.Confirm(context.Background(), ConfirmRequest{
		Card: &CardDetails{Number: "4242424242424242", CVV: "123", Expiry: "03/26"},
	})
	require.NoError(t, err)
	require.Equal(t, StatusSuccess, out.Status)

	c = fixedCard(time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	out, err = c.Confirm(context.Background(), ConfirmRequest{
		Card: &CardDetails{Number: "4242424242424242", CVV: "123", Expiry: "03/26"},
	})
	require.Error(t, err)
	require.Equal(t, StatusFailed, out.Status)
}

func TestCardConfirmMissingDetails(t *testing.T) {
	c := NewCard()
	out, err := c.Confirm(context.Background(), ConfirmRequest{})
	require.Error(t, err)
	require.Equal(t, StatusFailed, out.Status)
}
