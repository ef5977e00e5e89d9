package runner

import "fmt"

// LookupError indicates the pricing API could not resolve a tracked product
// this cycle. The product is skipped and its stored price left untouched.
type LookupError struct {
	ASIN string
	Err  error
}

func (e *LookupError) Error() string { return fmt.Sprintf("lookup %s: %v", e.ASIN, e.Err) }
func (e *LookupError) Unwrap() error { return e.Err }

// NotificationError indicates posting a price-drop message failed. The
// product's stored price is still updated.
type NotificationError struct {
	ASIN string
	Err  error
}

func (e *NotificationError) Error() string { return fmt.Sprintf("notify %s: %v", e.ASIN, e.Err) }
func (e *NotificationError) Unwrap() error { return e.Err }
