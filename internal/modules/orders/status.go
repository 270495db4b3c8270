package orders

const (
	StatusProcessing     = "processing"
	StatusCompleted      = "completed"
	StatusCancelled      = "cancelled"
	StatusRefundFull     = "refund_full"
	StatusRefundPartial  = "refund_partial"
	StatusRefundRejected = "refund_rejected"
)

// transitions is the closed status graph. processing is the sole initial
// state; nothing is reversible.
var transitions = map[string][]string{
	StatusProcessing: {StatusCompleted, StatusCancelled},
	StatusCompleted:  {StatusRefundFull, StatusRefundPartial, StatusRefundRejected},
}

func ValidStatus(s string) bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusCancelled,
		StatusRefundFull, StatusRefundPartial, StatusRefundRejected:
		return true
	}
	return false
}

func CanTransition(from, to string) bool {
	for _, t := range transitions[from] {
		if t == to {
			return true
		}
	}
	return false
}
