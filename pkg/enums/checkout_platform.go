package enums

import "fmt"

// CheckoutPlatform is the client surface an order was placed from. It is
// echoed into payment intent metadata for reconciliation and analytics.
type CheckoutPlatform string

const (
	CheckoutPlatformWeb     CheckoutPlatform = "web"
	CheckoutPlatformIOS     CheckoutPlatform = "ios"
	CheckoutPlatformAndroid CheckoutPlatform = "android"
)

var validCheckoutPlatforms = []CheckoutPlatform{
	CheckoutPlatformWeb,
	CheckoutPlatformIOS,
	CheckoutPlatformAndroid,
}

// String implements fmt.Stringer.
func (c CheckoutPlatform) String() string {
	return string(c)
}

// IsValid reports whether the value is a known CheckoutPlatform.
func (c CheckoutPlatform) IsValid() bool {
	for _, candidate := range validCheckoutPlatforms {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseCheckoutPlatform converts raw input into a CheckoutPlatform.
func ParseCheckoutPlatform(value string) (CheckoutPlatform, error) {
	for _, candidate := range validCheckoutPlatforms {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid checkout platform %q", value)
}
