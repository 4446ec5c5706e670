package enums

import "fmt"

// CancelReason records why a pending order was canceled.
type CancelReason string

const (
	CancelReasonBuyer   CancelReason = "buyer_canceled"
	CancelReasonExpired CancelReason = "expired"
)

var validCancelReasons = []CancelReason{
	CancelReasonBuyer,
	CancelReasonExpired,
}

// String implements fmt.Stringer.
func (c CancelReason) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CancelReason.
func (c CancelReason) IsValid() bool {
	for _, candidate := range validCancelReasons {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCancelReason converts raw input into a CancelReason.
func ParseCancelReason(value string) (CancelReason, error) {
	for _, candidate := range validCancelReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid cancel reason %q", value)
}
